package codec

import (
	"io"

	"jbw/position"
)

// WritePosition writes a Position as two little-endian int64 fields.
func WritePosition(w io.Writer, p position.Position) error {
	if err := WriteInt64(w, p.X); err != nil {
		return err
	}
	return WriteInt64(w, p.Y)
}

func ReadPosition(r io.Reader) (position.Position, error) {
	x, err := ReadInt64(r)
	if err != nil {
		return position.Position{}, err
	}
	y, err := ReadInt64(r)
	if err != nil {
		return position.Position{}, err
	}
	return position.Position{X: x, Y: y}, nil
}

// WriteDirection writes a Direction as a single byte.
func WriteDirection(w io.Writer, d position.Direction) error {
	return WriteUint8(w, uint8(d))
}

func ReadDirection(r io.Reader) (position.Direction, error) {
	v, err := ReadUint8(r)
	return position.Direction(v), err
}

// WriteTurnDirection writes a TurnDirection as a single byte.
func WriteTurnDirection(w io.Writer, t position.TurnDirection) error {
	return WriteUint8(w, uint8(t))
}

func ReadTurnDirection(r io.Reader) (position.TurnDirection, error) {
	v, err := ReadUint8(r)
	return position.TurnDirection(v), err
}
