package rawcooked

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestEB(t *testing.T) {
	t.Parallel()

	Convey("EB integers", t, func() {
		Convey("encode", func() {
			for _, tc := range []struct {
				v   uint64
				enc []byte
			}{
				{0, []byte{0x80}},
				{1, []byte{0x81}},
				{126, []byte{0xFE}},
				{127, []byte{0x40, 0x7F}},
				{16382, []byte{0x7F, 0xFE}},
				{16383, []byte{0x20, 0x3F, 0xFF}},
				{nameEBML, []byte{0x1A, 0x45, 0xDF, 0xA3}},
				{nameBlock, []byte{0x20, 0x72, 0x62}},
				{MaxEB, []byte{0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFE}},
			} {
				So(AppendEB(nil, tc.v), ShouldResemble, tc.enc)
				So(SizeEB(tc.v), ShouldEqual, len(tc.enc))

				v, n, err := ReadEB(append(tc.enc, 0xAA))
				So(err, ShouldBeNil)
				So(n, ShouldEqual, len(tc.enc))
				So(v, ShouldEqual, tc.v)
			}
		})

		Convey("too large", func() {
			So(func() { AppendEB(nil, MaxEB+1) }, ShouldPanic)
		})

		Convey("bad input", func() {
			_, _, err := ReadEB(nil)
			So(err, ShouldEqual, errEBShort)

			_, _, err = ReadEB([]byte{0x00, 0x01})
			So(err, ShouldEqual, errEBInvalid)

			_, _, err = ReadEB([]byte{0x20, 0x01})
			So(err, ShouldEqual, errEBShort)
		})
	})
}

func TestWriter(t *testing.T) {
	t.Parallel()

	Convey("ebWriter", t, func() {
		payload := make([]byte, 200)
		emit := func(w *ebWriter) {
			w.begin(nameBlock)
			w.begin(nameBeforeData)
			w.putBytes([]byte("abc"))
			w.end()
			w.begin(nameAfterData)
			w.putBytes(payload)
			w.end()
			w.end()
			w.putNumber(nameFileSize, 0x1234)
		}
		w := &ebWriter{}
		emit(w)
		w.allocate()
		emit(w)

		want := []byte{0x20, 0x72, 0x62, 0x40, 0xD0, 0x81, 0x83, 'a', 'b', 'c', 0x82, 0x40, 0xC8}
		want = append(want, payload...)
		want = append(want, 0xB0, 0x82, 0x12, 0x34)
		So(w.bytes(), ShouldResemble, want)
	})

	Convey("numberLen", t, func() {
		So(numberLen(0), ShouldEqual, 1)
		So(numberLen(0xFF), ShouldEqual, 1)
		So(numberLen(0x100), ShouldEqual, 2)
		So(numberLen(^uint64(0)), ShouldEqual, 8)
	})
}
