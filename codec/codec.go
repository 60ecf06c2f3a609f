// Package codec implements the little-endian, length-prefixed binary wire
// format used for save files and the client-server protocol (spec.md §4.7,
// §6): fixed field order per type, IEEE-754 binary32 for scent/color
// floats and binary64 for diffusion-related floats, length prefixes ahead
// of every variable-length array or string.
package codec

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// ErrTooLarge guards against a corrupt or hostile length prefix causing an
// attempted multi-gigabyte allocation before a single byte of the claimed
// array has been validated.
type ErrTooLarge struct {
	Field string
	Len   uint32
}

func (e *ErrTooLarge) Error() string {
	return fmt.Sprintf("codec: %s length %d exceeds sanity limit", e.Field, e.Len)
}

// MaxArrayLen bounds every length-prefixed array this package decodes.
// Chosen generously above any realistic item/agent/patch count; it exists
// only to fail fast on a corrupt stream rather than to express a real
// domain limit.
const MaxArrayLen = 1 << 24

func checkLen(field string, n uint32) error {
	if n > MaxArrayLen {
		return &ErrTooLarge{Field: field, Len: n}
	}
	return nil
}

func WriteUint8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

func ReadUint8(r io.Reader) (uint8, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func WriteBool(w io.Writer, v bool) error {
	if v {
		return WriteUint8(w, 1)
	}
	return WriteUint8(w, 0)
}

func ReadBool(r io.Reader) (bool, error) {
	v, err := ReadUint8(r)
	return v != 0, err
}

func WriteUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func ReadUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func WriteUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func ReadUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func WriteInt64(w io.Writer, v int64) error {
	return WriteUint64(w, uint64(v))
}

func ReadInt64(r io.Reader) (int64, error) {
	v, err := ReadUint64(r)
	return int64(v), err
}

func WriteFloat32(w io.Writer, v float32) error {
	return WriteUint32(w, math.Float32bits(v))
}

func ReadFloat32(r io.Reader) (float32, error) {
	v, err := ReadUint32(r)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func WriteFloat64(w io.Writer, v float64) error {
	return WriteUint64(w, math.Float64bits(v))
}

func ReadFloat64(r io.Reader) (float64, error) {
	v, err := ReadUint64(r)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// WriteString writes a uint32 length prefix followed by the string's raw
// UTF-8 bytes (spec.md §4.7: "strings are length-prefixed UTF-8").
func WriteString(w io.Writer, s string) error {
	if err := WriteUint32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func ReadString(r io.Reader) (string, error) {
	n, err := ReadUint32(r)
	if err != nil {
		return "", err
	}
	if err := checkLen("string", n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// WriteFloat32Slice writes a length-prefixed array of binary32 floats.
func WriteFloat32Slice(w io.Writer, vs []float32) error {
	if err := WriteUint32(w, uint32(len(vs))); err != nil {
		return err
	}
	for _, v := range vs {
		if err := WriteFloat32(w, v); err != nil {
			return err
		}
	}
	return nil
}

func ReadFloat32Slice(r io.Reader) ([]float32, error) {
	n, err := ReadUint32(r)
	if err != nil {
		return nil, err
	}
	if err := checkLen("[]float32", n); err != nil {
		return nil, err
	}
	out := make([]float32, n)
	for i := range out {
		if out[i], err = ReadFloat32(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// WriteUint32Slice writes a length-prefixed array of uint32s.
func WriteUint32Slice(w io.Writer, vs []uint32) error {
	if err := WriteUint32(w, uint32(len(vs))); err != nil {
		return err
	}
	for _, v := range vs {
		if err := WriteUint32(w, v); err != nil {
			return err
		}
	}
	return nil
}

func ReadUint32Slice(r io.Reader) ([]uint32, error) {
	n, err := ReadUint32(r)
	if err != nil {
		return nil, err
	}
	if err := checkLen("[]uint32", n); err != nil {
		return nil, err
	}
	out := make([]uint32, n)
	for i := range out {
		if out[i], err = ReadUint32(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// WriteUint64Slice writes a length-prefixed array of uint64s, used for
// agent id lists on the wire (spec.md §6's `owned_agent_ids:[u64]`).
func WriteUint64Slice(w io.Writer, vs []uint64) error {
	if err := WriteUint32(w, uint32(len(vs))); err != nil {
		return err
	}
	for _, v := range vs {
		if err := WriteUint64(w, v); err != nil {
			return err
		}
	}
	return nil
}

func ReadUint64Slice(r io.Reader) ([]uint64, error) {
	n, err := ReadUint32(r)
	if err != nil {
		return nil, err
	}
	if err := checkLen("[]uint64", n); err != nil {
		return nil, err
	}
	out := make([]uint64, n)
	for i := range out {
		if out[i], err = ReadUint64(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}
