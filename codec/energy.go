package codec

import (
	"io"

	"jbw/energy"
)

// WriteIntensityFn writes a kernel kind byte followed by its
// length-prefixed binary64 argument array. Args round-trip as float64
// regardless of the on-wire float size used elsewhere, since these are
// configuration constants rather than per-tick state (spec.md §4.7's
// "binary64 for diffusion"-class fields).
func WriteIntensityFn(w io.Writer, f energy.IntensityFn) error {
	if err := WriteUint8(w, uint8(f.Kind)); err != nil {
		return err
	}
	return writeFloat64Slice(w, f.Args)
}

// ReadIntensityFn reads and validates a kernel against numTypes, the
// current item type count, failing with energy's own ErrBadArgs /
// ErrUnknownKernel if the wire value doesn't fit the closed registry
// (spec.md §4.1: "no foreign kernels cross the wire").
func ReadIntensityFn(r io.Reader, numTypes int) (energy.IntensityFn, error) {
	kind, err := ReadUint8(r)
	if err != nil {
		return energy.IntensityFn{}, err
	}
	args, err := readFloat64Slice(r)
	if err != nil {
		return energy.IntensityFn{}, err
	}
	return energy.NewIntensityFn(energy.IntensityKind(kind), args, numTypes)
}

func WriteInteractionFn(w io.Writer, f energy.InteractionFn) error {
	if err := WriteUint8(w, uint8(f.Kind)); err != nil {
		return err
	}
	return writeFloat64Slice(w, f.Args)
}

func ReadInteractionFn(r io.Reader) (energy.InteractionFn, error) {
	kind, err := ReadUint8(r)
	if err != nil {
		return energy.InteractionFn{}, err
	}
	args, err := readFloat64Slice(r)
	if err != nil {
		return energy.InteractionFn{}, err
	}
	return energy.NewInteractionFn(energy.InteractionKind(kind), args)
}

func writeFloat64Slice(w io.Writer, vs []float64) error {
	if err := WriteUint32(w, uint32(len(vs))); err != nil {
		return err
	}
	for _, v := range vs {
		if err := WriteFloat64(w, v); err != nil {
			return err
		}
	}
	return nil
}

func readFloat64Slice(r io.Reader) ([]float64, error) {
	n, err := ReadUint32(r)
	if err != nil {
		return nil, err
	}
	if err := checkLen("[]float64", n); err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := range out {
		if out[i], err = ReadFloat64(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}
