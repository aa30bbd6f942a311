package wav

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nabil6391/rawcooked/container"
	"github.com/nabil6391/rawcooked/ledger"
)

func chunk(name string, payload []byte) []byte {
	b := make([]byte, 8, 9+len(payload))
	copy(b, name)
	binary.LittleEndian.PutUint32(b[4:], uint32(len(payload)))
	b = append(b, payload...)
	if len(payload)%2 == 1 {
		b = append(b, 0)
	}
	return b
}

func riff(kind string, chunks ...[]byte) []byte {
	payload := []byte(kind)
	for _, c := range chunks {
		payload = append(payload, c...)
	}
	return chunk("RIFF", payload)
}

func pcmFmt(rate uint32, bits, channels uint16) []byte {
	b := make([]byte, 16)
	align := channels * bits / 8
	binary.LittleEndian.PutUint16(b[0:], formatPCM)
	binary.LittleEndian.PutUint16(b[2:], channels)
	binary.LittleEndian.PutUint32(b[4:], rate)
	binary.LittleEndian.PutUint32(b[8:], rate*uint32(align))
	binary.LittleEndian.PutUint16(b[12:], align)
	binary.LittleEndian.PutUint16(b[14:], bits)
	return chunk("fmt ", b)
}

func extensibleFmt(rate uint32, bits, channels uint16, mask uint32, sub []byte) []byte {
	b := pcmFmt(rate, bits, channels)[8:]
	binary.LittleEndian.PutUint16(b[0:], formatExtensible)
	ext := make([]byte, 8)
	binary.LittleEndian.PutUint16(ext[0:], 22)
	binary.LittleEndian.PutUint16(ext[2:], bits)
	binary.LittleEndian.PutUint32(ext[4:], mask)
	b = append(b, ext...)
	b = append(b, sub...)
	return chunk("fmt ", b)
}

func samples(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

func TestParseMinimal(t *testing.T) {
	buf := riff("WAVE", pcmFmt(48000, 16, 2), chunk("data", samples(8)))
	l := ledger.New()

	res, err := Parse(buf, l)
	require.NoError(t, err)
	require.False(t, l.HasErrors())
	require.False(t, l.HasWarnings())

	flavor, ok := Classify(48000, 16, 2)
	require.True(t, ok)
	require.Equal(t, uint8(flavor), res.Flavor)
	require.Equal(t, "PCM_48000_16_2", res.FlavorName)
	require.Equal(t, uint64(44), res.PayloadBegin)
	require.Equal(t, uint64(52), res.PayloadEnd)

	u := res.Unit(buf, "a.wav")
	require.True(t, u.IsUnique)
	require.Equal(t, buf[:44], u.Before)
	require.Nil(t, u.After)
	require.Equal(t, uint64(len(buf)), u.FileSize)
}

func TestParseTrailingChunks(t *testing.T) {
	list := chunk("LIST", append([]byte("INFO"), chunk("ISFT", []byte("abc"))...))
	buf := riff("WAVE", pcmFmt(44100, 24, 6), chunk("data", samples(18*3)), list)
	l := ledger.New()

	res, err := Parse(buf, l)
	require.NoError(t, err)
	require.Equal(t, "PCM_44100_24_6", res.FlavorName)
	require.Equal(t, buf[res.PayloadEnd:], list)

	u := res.Unit(buf, "b.wav")
	require.Equal(t, list, u.After)
}

func TestParseTruncated(t *testing.T) {
	buf := riff("WAVE", pcmFmt(48000, 16, 2), chunk("data", samples(8)))
	buf = buf[:48]

	l := ledger.New()
	res, err := Parse(buf, l)
	require.True(t, errors.Is(err, container.ErrUndecodable))
	require.Nil(t, res)
	require.True(t, l.HasErrors())
	require.Equal(t, uint64(1), l.Count(Parser, ledger.Undecodable, container.CodeTruncatedChunk))

	l = ledger.New()
	res, err = Parse(buf, l, container.AcceptTruncated(true))
	require.NoError(t, err)
	require.False(t, l.HasErrors())
	require.Equal(t, uint64(44), res.PayloadBegin)
	require.Equal(t, uint64(48), res.PayloadEnd)
}

func TestParseUnsupported(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		cat  ledger.Category
		code ledger.Code
	}{
		{
			name: "flavor",
			buf:  riff("WAVE", pcmFmt(22050, 16, 2), chunk("data", samples(8))),
			cat:  ledger.Unsupported,
			code: CodeFlavor,
		},
		{
			name: "float",
			buf: func() []byte {
				b := riff("WAVE", pcmFmt(48000, 32, 2), chunk("data", samples(8)))
				b[20] = 3
				return b
			}(),
			cat:  ledger.Unsupported,
			code: CodeFormatTag,
		},
		{
			name: "sub format",
			buf:  riff("WAVE", extensibleFmt(48000, 16, 2, 3, make([]byte, 16)), chunk("data", samples(8))),
			cat:  ledger.Unsupported,
			code: CodeSubFormat,
		},
		{
			name: "not wave",
			buf:  riff("AVI ", chunk("data", samples(8))),
			cat:  ledger.Unsupported,
			code: CodeFileType,
		},
		{
			name: "no data",
			buf:  riff("WAVE", pcmFmt(48000, 16, 2)),
			cat:  ledger.Undecodable,
			code: CodeMissingData,
		},
		{
			name: "two data chunks",
			buf:  riff("WAVE", pcmFmt(48000, 16, 2), chunk("data", samples(8)), chunk("data", samples(4))),
			cat:  ledger.Unsupported,
			code: CodeMultipleData,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := ledger.New()
			res, err := Parse(tt.buf, l)
			require.True(t, errors.Is(err, container.ErrUnsupported))
			require.Nil(t, res)
			require.True(t, l.HasErrors())
			require.Equal(t, uint64(1), l.Count(Parser, tt.cat, tt.code))
		})
	}
}

func TestParseExtensible(t *testing.T) {
	buf := riff("WAVE", extensibleFmt(96000, 24, 2, 3, subFormatPCM), chunk("data", samples(12)))
	l := ledger.New()
	res, err := Parse(buf, l)
	require.NoError(t, err)
	require.False(t, l.HasWarnings())
	require.Equal(t, "PCM_96000_24_2", res.FlavorName)

	buf = riff("WAVE", extensibleFmt(96000, 24, 2, 7, subFormatPCM), chunk("data", samples(12)))
	l = ledger.New()
	_, err = Parse(buf, l)
	require.NoError(t, err)
	require.True(t, l.HasWarnings())
	require.Equal(t, uint64(1), l.Count(Parser, ledger.Incoherent, CodeChannelMask))
}

func TestParseIncoherent(t *testing.T) {
	buf := riff("WAVE", pcmFmt(48000, 16, 2), chunk("data", samples(8)))
	binary.LittleEndian.PutUint32(buf[28:], 1)
	l := ledger.New()
	res, err := Parse(buf, l)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.False(t, l.HasErrors())
	require.True(t, l.HasWarnings())
	require.Equal(t, uint64(1), l.Count(Parser, ledger.Incoherent, CodeAvgBytesPerSec))
}

func TestParseOddChunk(t *testing.T) {
	buf := riff("WAVE", pcmFmt(48000, 8, 1), chunk("data", samples(5)), chunk("JUNK", []byte{1}))
	l := ledger.New()
	res, err := Parse(buf, l)
	require.NoError(t, err)
	require.Equal(t, uint64(44), res.PayloadBegin)
	require.Equal(t, uint64(49), res.PayloadEnd)
	require.False(t, l.HasWarnings())
}

func TestParseTrailingBytes(t *testing.T) {
	buf := riff("WAVE", pcmFmt(48000, 16, 2), chunk("data", samples(8)))
	buf = append(buf, 0xDE, 0xAD)
	l := ledger.New()
	res, err := Parse(buf, l)
	require.NoError(t, err)
	require.Equal(t, uint64(1), l.Count(Parser, ledger.Invalid, CodeTrailingBytes))
	require.Equal(t, []byte{0xDE, 0xAD}, res.Unit(buf, "c.wav").After)
}

func rf64(riffSize, dataSize uint64, data []byte, declared uint32) []byte {
	ds64 := make([]byte, 28)
	binary.LittleEndian.PutUint64(ds64[0:], riffSize)
	binary.LittleEndian.PutUint64(ds64[8:], dataSize)
	b := []byte("RF64\xff\xff\xff\xffWAVE")
	b = append(b, chunk("ds64", ds64)...)
	b = append(b, pcmFmt(48000, 16, 2)...)
	d := chunk("data", data)
	binary.LittleEndian.PutUint32(d[4:], declared)
	return append(b, d...)
}

func TestParseRF64(t *testing.T) {
	data := samples(16)
	// RF64 header 12, ds64 36, fmt 24, data header 8
	riffSize := uint64(4 + 36 + 24 + 8 + len(data))
	buf := rf64(riffSize, uint64(len(data)), data, 0xFFFFFFFF)
	buf = append(buf, 0xAA, 0xBB, 0xCC, 0xDD)

	l := ledger.New()
	res, err := Parse(buf, l)
	require.NoError(t, err)
	require.False(t, l.HasErrors())
	require.Equal(t, uint64(80), res.PayloadBegin)
	require.Equal(t, uint64(96), res.PayloadEnd)
	require.Equal(t, uint64(1), l.Count(Parser, ledger.Invalid, CodeTrailingBytes))

	t.Run("ds64 past end", func(t *testing.T) {
		buf := rf64(1000, uint64(len(data)), data, 0xFFFFFFFF)
		l := ledger.New()
		_, err := Parse(buf, l)
		require.True(t, errors.Is(err, container.ErrUndecodable))
		require.Equal(t, uint64(1), l.Count(Parser, ledger.Undecodable, container.CodeTruncatedChunk))
	})

	t.Run("ds64 in RIFF", func(t *testing.T) {
		buf := riff("WAVE", chunk("ds64", make([]byte, 28)), pcmFmt(48000, 16, 2), chunk("data", samples(8)))
		l := ledger.New()
		_, err := Parse(buf, l)
		require.True(t, errors.Is(err, container.ErrUndecodable))
		require.Equal(t, uint64(1), l.Count(Parser, ledger.Undecodable, CodeDs64Misplaced))
	})
}

func TestDetect(t *testing.T) {
	require.True(t, Detect(riff("WAVE")))
	require.True(t, Detect([]byte("RF64\xff\xff\xff\xffWAVE")))
	require.False(t, Detect([]byte("RIFF\x04\x00\x00\x00AVI ")))
	require.False(t, Detect([]byte("RIFF")))
}

func TestClassify(t *testing.T) {
	seen := map[Flavor]bool{}
	for i, f := range flavors {
		got, ok := Classify(uint64(f.rate), uint64(f.bits), uint64(f.channels))
		require.True(t, ok)
		require.Equal(t, Flavor(i), got)
		require.False(t, seen[got])
		seen[got] = true
	}
	require.Len(t, flavors, 36)

	_, ok := Classify(48000, 16, 3)
	require.False(t, ok)
	_, ok = Classify(48000+1<<32, 16, 2)
	require.False(t, ok)
	require.Equal(t, "Flavor(200)", Flavor(200).String())
}

func TestCodeNames(t *testing.T) {
	require.Equal(t, container.UndecodableCount, CodeDs64Misplaced)
	require.Equal(t, "BufferOverflow", Parser.CodeName(ledger.Undecodable, container.CodeBufferOverflow))
	require.Equal(t, "Ds64Misplaced", Parser.CodeName(ledger.Undecodable, CodeDs64Misplaced))
	require.Equal(t, "MissingData", Parser.CodeName(ledger.Undecodable, CodeMissingData))
}
