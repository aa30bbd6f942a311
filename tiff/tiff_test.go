package tiff

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nabil6391/rawcooked/container"
	"github.com/nabil6391/rawcooked/ledger"
)

type entry struct {
	tag    uint16
	typ    uint16
	values []uint32
}

func short(tag uint16, values ...uint32) entry { return entry{tag, typeShort, values} }
func long(tag uint16, values ...uint32) entry  { return entry{tag, typeLong, values} }

// tiffFile lays out a header, the pixels and then the directory.
func tiffFile(order binary.ByteOrder, pixels []byte, entries ...entry) []byte {
	buf := []byte("II*\x00\x00\x00\x00\x00")
	if order == binary.BigEndian {
		buf = []byte("MM\x00*\x00\x00\x00\x00")
	}
	buf = append(buf, pixels...)
	if len(buf)%2 == 1 {
		buf = append(buf, 0)
	}
	ifd := len(buf)
	order.PutUint32(buf[4:], uint32(ifd))

	dir := make([]byte, 2+12*len(entries)+4)
	order.PutUint16(dir, uint16(len(entries)))
	var extra []byte
	for i, e := range entries {
		field := dir[2+12*i:]
		order.PutUint16(field[0:], e.tag)
		order.PutUint16(field[2:], e.typ)
		order.PutUint32(field[4:], uint32(len(e.values)))
		var data []byte
		for _, v := range e.values {
			var b [4]byte
			if e.typ == typeShort {
				order.PutUint16(b[:], uint16(v))
				data = append(data, b[:2]...)
			} else {
				order.PutUint32(b[:], v)
				data = append(data, b[:]...)
			}
		}
		if len(data) <= 4 {
			copy(field[8:], data)
		} else {
			order.PutUint32(field[8:], uint32(ifd+len(dir)+len(extra)))
			extra = append(extra, data...)
		}
	}
	buf = append(buf, dir...)
	return append(buf, extra...)
}

func rgb8(pixels []byte, offsets, counts []uint32) []byte {
	return tiffFile(binary.LittleEndian, pixels,
		short(tagImageWidth, 2),
		short(tagImageLength, 2),
		short(tagBitsPerSample, 8, 8, 8),
		short(tagCompression, 1),
		short(tagPhotometricInterpretation, photometricRGB),
		long(tagStripOffsets, offsets...),
		short(tagSamplesPerPixel, 3),
		long(tagStripByteCounts, counts...),
	)
}

func gray16(order binary.ByteOrder) []byte {
	return tiffFile(order, make([]byte, 8),
		long(tagImageWidth, 4),
		long(tagImageLength, 1),
		short(tagBitsPerSample, 16),
		short(tagPhotometricInterpretation, photometricBlackIsZero),
		long(tagStripOffsets, 8),
		long(tagStripByteCounts, 8),
	)
}

func TestParseRGB(t *testing.T) {
	buf := rgb8(make([]byte, 12), []uint32{8}, []uint32{12})
	l := ledger.New()

	res, err := Parse(buf, l)
	require.NoError(t, err)
	require.False(t, l.HasErrors())
	require.False(t, l.HasWarnings())
	require.Equal(t, "RGB_8", res.FlavorName)
	require.Equal(t, uint64(8), res.PayloadBegin)
	require.Equal(t, uint64(20), res.PayloadEnd)
	require.False(t, res.Unique)

	u := res.Unit(buf, "0001.tif")
	require.False(t, u.IsUnique)
	require.Equal(t, buf[:8], u.Before)
	require.Equal(t, buf[20:], u.After)
}

func TestParseStrips(t *testing.T) {
	buf := rgb8(make([]byte, 12), []uint32{8, 14}, []uint32{6, 6})
	l := ledger.New()
	res, err := Parse(buf, l)
	require.NoError(t, err)
	require.Equal(t, uint64(20), res.PayloadEnd)

	buf = rgb8(make([]byte, 16), []uint32{8, 18}, []uint32{6, 6})
	l = ledger.New()
	res, err = Parse(buf, l)
	require.True(t, errors.Is(err, container.ErrUnsupported))
	require.Nil(t, res)
	require.Equal(t, uint64(1), l.Count(Parser, ledger.Unsupported, CodeStrips))
}

func TestParseByteOrder(t *testing.T) {
	res, err := Parse(gray16(binary.LittleEndian), ledger.New())
	require.NoError(t, err)
	require.Equal(t, "Y_16_LE", res.FlavorName)

	res, err = Parse(gray16(binary.BigEndian), ledger.New())
	require.NoError(t, err)
	require.Equal(t, "Y_16_BE", res.FlavorName)

	le, _ := Classify(RGB, 8, container.LittleEndian)
	be, _ := Classify(RGB, 8, container.BigEndian)
	require.Equal(t, le, be)
}

func TestParseProblems(t *testing.T) {
	multi := rgb8(make([]byte, 12), []uint32{8}, []uint32{12})
	binary.LittleEndian.PutUint32(multi[20+2+12*8:], 8)

	tests := []struct {
		name string
		buf  []byte
		err  error
		cat  ledger.Category
		code ledger.Code
	}{
		{
			name: "compressed",
			buf: tiffFile(binary.LittleEndian, make([]byte, 8),
				long(tagImageWidth, 4),
				long(tagImageLength, 1),
				short(tagBitsPerSample, 16),
				short(tagCompression, 5),
				short(tagPhotometricInterpretation, photometricBlackIsZero),
				long(tagStripOffsets, 8),
				long(tagStripByteCounts, 8),
			),
			err:  container.ErrUnsupported,
			cat:  ledger.Unsupported,
			code: CodeCompression,
		},
		{
			name: "multiple images",
			buf:  multi,
			err:  container.ErrUnsupported,
			cat:  ledger.Unsupported,
			code: CodeMultipleImages,
		},
		{
			name: "missing width",
			buf: tiffFile(binary.LittleEndian, make([]byte, 8),
				long(tagImageLength, 1),
				short(tagBitsPerSample, 16),
				short(tagPhotometricInterpretation, photometricBlackIsZero),
				long(tagStripOffsets, 8),
				long(tagStripByteCounts, 8),
			),
			err:  container.ErrUnsupported,
			cat:  ledger.Undecodable,
			code: CodeMissingTag,
		},
		{
			name: "palette",
			buf: tiffFile(binary.LittleEndian, make([]byte, 4),
				long(tagImageWidth, 4),
				long(tagImageLength, 1),
				short(tagBitsPerSample, 8),
				short(tagPhotometricInterpretation, 3),
				long(tagStripOffsets, 8),
				long(tagStripByteCounts, 4),
			),
			err:  container.ErrUnsupported,
			cat:  ledger.Unsupported,
			code: CodePhotometric,
		},
		{
			name: "short pixel data",
			buf:  rgb8(make([]byte, 10), []uint32{8}, []uint32{10}),
			err:  container.ErrUnsupported,
			cat:  ledger.Unsupported,
			code: CodePixelDataSize,
		},
		{
			name: "12-bit",
			buf: tiffFile(binary.LittleEndian, make([]byte, 6),
				long(tagImageWidth, 4),
				long(tagImageLength, 1),
				short(tagBitsPerSample, 12),
				short(tagPhotometricInterpretation, photometricBlackIsZero),
				long(tagStripOffsets, 8),
				long(tagStripByteCounts, 6),
			),
			err:  container.ErrUnsupported,
			cat:  ledger.Unsupported,
			code: CodeFlavor,
		},
		{
			name: "bad IFD offset",
			buf:  []byte("II*\x00\xff\x00\x00\x00"),
			err:  container.ErrUndecodable,
			cat:  ledger.Undecodable,
			code: CodeIfdOffset,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := ledger.New()
			res, err := Parse(tt.buf, l)
			require.True(t, errors.Is(err, tt.err), "%v", err)
			require.Nil(t, res)
			require.Equal(t, uint64(1), l.Count(Parser, tt.cat, tt.code))
		})
	}
}

func TestParseTruncated(t *testing.T) {
	big := rgb8(make([]byte, 12), []uint32{8}, []uint32{1 << 20})
	l := ledger.New()
	_, err := Parse(big, l)
	require.True(t, errors.Is(err, container.ErrUnsupported))
	require.Equal(t, uint64(1), l.Count(Parser, ledger.Undecodable, container.CodeTruncatedChunk))

	l = ledger.New()
	res, err := Parse(big, l, container.AcceptTruncated(true))
	require.NoError(t, err)
	// the clamped strip stops at the directory
	require.Equal(t, uint64(20), res.PayloadEnd)
	u := res.Unit(big, "0001.tif")
	require.Equal(t, big[20:], u.After)

	past := rgb8(make([]byte, 12), []uint32{5000}, []uint32{12})
	l = ledger.New()
	res, err = Parse(past, l, container.AcceptTruncated(true))
	require.True(t, errors.Is(err, container.ErrUnsupported))
	require.Nil(t, res)
	require.Equal(t, uint64(1), l.Count(Parser, ledger.Undecodable, container.CodeTruncatedChunk))
}

func TestParseTagOrder(t *testing.T) {
	buf := tiffFile(binary.LittleEndian, make([]byte, 8),
		long(tagImageLength, 1),
		long(tagImageWidth, 4),
		short(tagBitsPerSample, 16),
		short(tagPhotometricInterpretation, photometricBlackIsZero),
		long(tagStripOffsets, 8),
		long(tagStripByteCounts, 8),
	)
	l := ledger.New()
	_, err := Parse(buf, l)
	require.NoError(t, err)
	require.True(t, l.HasWarnings())
	require.Equal(t, uint64(1), l.Count(Parser, ledger.Invalid, CodeTagOrder))
}

func TestDetect(t *testing.T) {
	require.True(t, Detect([]byte("II*\x00")))
	require.True(t, Detect([]byte("MM\x00*")))
	require.False(t, Detect([]byte("MM*\x00")))
}

func TestClassify(t *testing.T) {
	seen := map[Flavor]bool{}
	for i, f := range flavors {
		got, ok := Classify(f.colorspace, uint64(f.bits), f.endianness)
		require.True(t, ok)
		require.Equal(t, Flavor(i), got)
		require.False(t, seen[got])
		seen[got] = true
	}
	require.Len(t, flavors, 9)

	_, ok := Classify(RGBA, 10, container.LittleEndian)
	require.False(t, ok)
}

func TestCodeNames(t *testing.T) {
	require.Equal(t, container.UndecodableCount, CodeIfdOffset)
	require.Equal(t, "BufferOverflow", Parser.CodeName(ledger.Undecodable, container.CodeBufferOverflow))
	require.Equal(t, "IfdOffset", Parser.CodeName(ledger.Undecodable, CodeIfdOffset))
	require.Equal(t, "StripCount", Parser.CodeName(ledger.Undecodable, CodeStripCount))
}
