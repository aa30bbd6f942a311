// Package wav parses RIFF WAVE and RF64 files holding integer PCM.
package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/sirupsen/logrus"

	"github.com/nabil6391/rawcooked/container"
	"github.com/nabil6391/rawcooked/ledger"
)

// Undecodable codes.
const (
	CodeDs64Misplaced = container.UndecodableCount + iota
	CodeFmtTooSmall
	CodeMissingFmt
	CodeMissingData
)

// Unsupported codes.
const (
	CodeFileType ledger.Code = iota
	CodeFormatTag
	CodeSubFormat
	CodeFmtSize
	CodeValidBits
	CodeFlavor
	CodeMultipleData
)

// Incoherent codes.
const (
	CodeBlockAlign ledger.Code = iota
	CodeAvgBytesPerSec
	CodeChannelMask
)

// Invalid codes.
const (
	CodeTrailingBytes ledger.Code = iota
)

// Parser identifies WAV problems in a ledger.
var Parser = &ledger.Parser{
	Name: "WAV",
	Codes: ledger.Codes{
		ledger.Undecodable: append(append([]string{}, container.UndecodableCodes...),
			"Ds64Misplaced", "FmtTooSmall", "MissingFmt", "MissingData"),
		ledger.Unsupported: {"FileType", "FormatTag", "SubFormat", "FmtSize", "ValidBits", "Flavor", "MultipleData"},
		ledger.Incoherent:  {"BlockAlign", "AvgBytesPerSec", "ChannelMask"},
		ledger.Invalid:     {"TrailingBytes"},
	},
}

var (
	nameRIFF = container.NewName("RIFF")
	nameRF64 = container.NewName("RF64")
	nameLIST = container.NewName("LIST")
	nameWAVE = container.NewName("WAVE")
	nameFmt  = container.NewName("fmt ")
	nameData = container.NewName("data")
	nameDs64 = container.NewName("ds64")
)

const (
	formatPCM        = 0x0001
	formatExtensible = 0xFFFE
)

// KSDATAFORMAT_SUBTYPE_PCM
var subFormatPCM = []byte{
	0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00,
	0x80, 0x00, 0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71,
}

var riffFormat = container.Format{
	Order:      binary.LittleEndian,
	NameLen:    4,
	SizeLen:    4,
	Groups:     []container.Name{nameRIFF, nameRF64, nameLIST},
	Unbounded:  0xFFFFFFFF,
	Pad:        true,
	SingleRoot: true,
}

// Detect reports whether buf starts like a WAV file.
func Detect(buf []byte) bool {
	if len(buf) < 12 || !bytes.Equal(buf[8:12], []byte("WAVE")) {
		return false
	}
	return bytes.HasPrefix(buf, []byte("RIFF")) || bytes.HasPrefix(buf, []byte("RF64"))
}

type parser struct {
	*container.Walker

	rejected bool
	sawWave  bool
	rf64     bool

	haveFmt  bool
	rate     uint32
	bits     uint16
	channels uint16
	flavor   Flavor

	haveData   bool
	begin, end uint64
}

func (p *parser) record(cat ledger.Category, code ledger.Code) {
	p.Ledger().Record(Parser, cat, code)
	if cat.Fatal() {
		p.rejected = true
	}
}

func (p *parser) recordString(cat ledger.Category, code ledger.Code, s string) {
	p.Ledger().RecordString(Parser, cat, code, s)
	if cat.Fatal() {
		p.rejected = true
	}
}

// Parse checks that buf is a WAV file whose audio can be carried as PCM
// essence and returns the range of its samples.
func Parse(buf []byte, l *ledger.Ledger, opts ...container.Option) (*container.Result, error) {
	p := &parser{}
	p.Walker = container.NewWalker(buf, riffFormat, l, Parser, opts...)
	if err := p.Walk(p.tables()); err != nil {
		return nil, fmt.Errorf("wav: %w", err)
	}

	switch {
	case !p.sawWave:
		p.record(ledger.Unsupported, CodeFileType)
	case !p.haveFmt:
		p.record(ledger.Undecodable, CodeMissingFmt)
	case !p.haveData:
		p.record(ledger.Undecodable, CodeMissingData)
	}
	if p.Off < p.Len() {
		p.record(ledger.Invalid, CodeTrailingBytes)
	}
	if p.rejected {
		return nil, fmt.Errorf("wav: %w", container.ErrUnsupported)
	}

	logrus.WithFields(logrus.Fields{
		"flavor": p.flavor.String(),
		"begin":  p.begin,
		"end":    p.end,
	}).Debugf("Parsed WAV")
	return &container.Result{
		Format:       "WAV",
		Flavor:       uint8(p.flavor),
		FlavorName:   p.flavor.String(),
		PayloadBegin: p.begin,
		PayloadEnd:   p.end,
		Unique:       true,
	}, nil
}

// tables returns the dispatch tables of one parse.
func (p *parser) tables() container.Table {
	wave := container.Table{
		nameDs64: {Handler: p.ds64Chunk},
		nameFmt:  {Handler: p.fmtChunk},
		nameData: {Handler: p.dataChunk},
	}
	return container.Table{
		nameWAVE: {Handler: p.waveChunk, Nested: wave},
	}
}

func (p *parser) waveChunk(w *container.Walker, c *container.Chunk) error {
	if c.Group != nameRIFF && c.Group != nameRF64 {
		return nil
	}
	p.sawWave = true
	p.rf64 = c.Group == nameRF64
	w.List()
	return nil
}

func (p *parser) fmtChunk(w *container.Walker, c *container.Chunk) error {
	size := c.End - c.Begin
	if size < 16 {
		p.record(ledger.Undecodable, CodeFmtTooSmall)
		return nil
	}
	tag := w.U16()
	p.channels = w.U16()
	p.rate = w.U32()
	avgBytes := w.U32()
	blockAlign := w.U16()
	p.bits = w.U16()
	p.haveFmt = true

	switch tag {
	case formatPCM:
		if size != 16 && size != 18 {
			p.recordString(ledger.Unsupported, CodeFmtSize, fmt.Sprint(size))
		}
	case formatExtensible:
		if size != 40 {
			p.recordString(ledger.Unsupported, CodeFmtSize, fmt.Sprint(size))
			break
		}
		w.Skip(2) // cbSize
		validBits := w.U16()
		mask := w.U32()
		if validBits != p.bits {
			p.recordString(ledger.Unsupported, CodeValidBits, fmt.Sprintf("%d/%d", validBits, p.bits))
		}
		if mask != 0 && bits.OnesCount32(mask) != int(p.channels) {
			p.record(ledger.Incoherent, CodeChannelMask)
		}
		if !bytes.Equal(w.Bytes(16), subFormatPCM) {
			p.record(ledger.Unsupported, CodeSubFormat)
		}
	default:
		p.recordString(ledger.Unsupported, CodeFormatTag, fmt.Sprintf("0x%04X", tag))
	}

	if want := uint32(p.channels) * uint32(p.bits) / 8; uint32(blockAlign) != want {
		p.record(ledger.Incoherent, CodeBlockAlign)
	}
	if uint64(avgBytes) != uint64(p.rate)*uint64(blockAlign) {
		p.record(ledger.Incoherent, CodeAvgBytesPerSec)
	}

	flavor, ok := Classify(uint64(p.rate), uint64(p.bits), uint64(p.channels))
	if !ok {
		p.recordString(ledger.Unsupported, CodeFlavor, fmt.Sprintf("%d Hz %d bit %d ch", p.rate, p.bits, p.channels))
		return nil
	}
	p.flavor = flavor
	return nil
}

func (p *parser) dataChunk(w *container.Walker, c *container.Chunk) error {
	if p.haveData {
		p.record(ledger.Unsupported, CodeMultipleData)
		return nil
	}
	if !p.haveFmt {
		p.record(ledger.Undecodable, CodeMissingFmt)
	}
	p.haveData = true
	p.begin, p.end = c.Begin, c.End
	return nil
}

// ds64Chunk applies the 64-bit sizes of an RF64 file: the RF64 chunk end and
// the size of the data chunk to come.
func (p *parser) ds64Chunk(w *container.Walker, c *container.Chunk) error {
	if !p.rf64 || c.Begin != 20 {
		p.record(ledger.Undecodable, CodeDs64Misplaced)
		return container.ErrUndecodable
	}
	if c.End-c.Begin < 28 {
		p.record(ledger.Undecodable, container.CodeBufferOverflow)
		return container.ErrUndecodable
	}
	riffSize := w.U64()
	dataSize := w.U64()
	if riffSize+8 < riffSize || dataSize > riffSize {
		p.record(ledger.Undecodable, container.CodeTruncatedChunk)
		return container.ErrUndecodable
	}
	if err := w.SetLevelEnd(c.Depth-1, 8+riffSize); err != nil {
		return err
	}
	w.OverrideSize(nameData, dataSize)
	return nil
}
