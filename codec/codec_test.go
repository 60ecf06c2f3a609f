package codec_test

import (
	"bytes"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"jbw/codec"
	"jbw/position"
)

func TestPrimitiveRoundTrips(t *testing.T) {
	Convey("Scalar primitives round-trip through their Write/Read pair", t, func() {
		Convey("uint8", func() {
			var buf bytes.Buffer
			So(codec.WriteUint8(&buf, 0xAB), ShouldBeNil)
			got, err := codec.ReadUint8(&buf)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, uint8(0xAB))
		})

		Convey("bool", func() {
			var buf bytes.Buffer
			So(codec.WriteBool(&buf, true), ShouldBeNil)
			So(codec.WriteBool(&buf, false), ShouldBeNil)
			got1, err := codec.ReadBool(&buf)
			So(err, ShouldBeNil)
			So(got1, ShouldBeTrue)
			got2, err := codec.ReadBool(&buf)
			So(err, ShouldBeNil)
			So(got2, ShouldBeFalse)
		})

		Convey("uint32", func() {
			var buf bytes.Buffer
			So(codec.WriteUint32(&buf, 1<<20+7), ShouldBeNil)
			got, err := codec.ReadUint32(&buf)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, uint32(1<<20+7))
		})

		Convey("uint64", func() {
			var buf bytes.Buffer
			So(codec.WriteUint64(&buf, 1<<40+3), ShouldBeNil)
			got, err := codec.ReadUint64(&buf)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, uint64(1<<40+3))
		})

		Convey("int64, including negative values", func() {
			var buf bytes.Buffer
			So(codec.WriteInt64(&buf, -12345), ShouldBeNil)
			got, err := codec.ReadInt64(&buf)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, int64(-12345))
		})

		Convey("float32", func() {
			var buf bytes.Buffer
			So(codec.WriteFloat32(&buf, 3.5), ShouldBeNil)
			got, err := codec.ReadFloat32(&buf)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, float32(3.5))
		})

		Convey("float64", func() {
			var buf bytes.Buffer
			So(codec.WriteFloat64(&buf, -0.125), ShouldBeNil)
			got, err := codec.ReadFloat64(&buf)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, -0.125)
		})

		Convey("string", func() {
			var buf bytes.Buffer
			So(codec.WriteString(&buf, "patch-agent"), ShouldBeNil)
			got, err := codec.ReadString(&buf)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, "patch-agent")
		})

		Convey("empty string", func() {
			var buf bytes.Buffer
			So(codec.WriteString(&buf, ""), ShouldBeNil)
			got, err := codec.ReadString(&buf)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, "")
		})
	})
}

func TestSliceRoundTrips(t *testing.T) {
	Convey("Length-prefixed slices round-trip through their Write/Read pair", t, func() {
		Convey("float32 slice", func() {
			var buf bytes.Buffer
			want := []float32{1, 2.5, -3}
			So(codec.WriteFloat32Slice(&buf, want), ShouldBeNil)
			got, err := codec.ReadFloat32Slice(&buf)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, want)
		})

		Convey("uint32 slice", func() {
			var buf bytes.Buffer
			want := []uint32{10, 20, 30}
			So(codec.WriteUint32Slice(&buf, want), ShouldBeNil)
			got, err := codec.ReadUint32Slice(&buf)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, want)
		})

		Convey("uint64 slice", func() {
			var buf bytes.Buffer
			want := []uint64{100, 200}
			So(codec.WriteUint64Slice(&buf, want), ShouldBeNil)
			got, err := codec.ReadUint64Slice(&buf)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, want)
		})

		Convey("an empty slice decodes to a zero-length, non-nil slice", func() {
			var buf bytes.Buffer
			So(codec.WriteUint32Slice(&buf, nil), ShouldBeNil)
			got, err := codec.ReadUint32Slice(&buf)
			So(err, ShouldBeNil)
			So(got, ShouldNotBeNil)
			So(len(got), ShouldEqual, 0)
		})
	})
}

func TestPositionAndDirectionRoundTrip(t *testing.T) {
	Convey("Position and Direction round-trip", t, func() {
		var buf bytes.Buffer
		want := position.Position{X: -7, Y: 42}
		So(codec.WritePosition(&buf, want), ShouldBeNil)
		got, err := codec.ReadPosition(&buf)
		So(err, ShouldBeNil)
		So(got, ShouldResemble, want)

		var dbuf bytes.Buffer
		So(codec.WriteDirection(&dbuf, position.Right), ShouldBeNil)
		gotDir, err := codec.ReadDirection(&dbuf)
		So(err, ShouldBeNil)
		So(gotDir, ShouldEqual, position.Right)

		var tbuf bytes.Buffer
		So(codec.WriteTurnDirection(&tbuf, position.TurnLeft), ShouldBeNil)
		gotTurn, err := codec.ReadTurnDirection(&tbuf)
		So(err, ShouldBeNil)
		So(gotTurn, ShouldEqual, position.TurnLeft)
	})
}

func TestReadTooLargeLengthPrefixFails(t *testing.T) {
	Convey("A length prefix beyond the sanity limit fails fast instead of allocating", t, func() {
		var buf bytes.Buffer
		So(codec.WriteUint32(&buf, codec.MaxArrayLen+1), ShouldBeNil)
		_, err := codec.ReadUint32Slice(&buf)
		So(err, ShouldNotBeNil)
		var tooLarge *codec.ErrTooLarge
		So(errors.As(err, &tooLarge), ShouldBeTrue)
	})
}
