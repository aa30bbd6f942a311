// Package caf parses Core Audio Format files holding integer linear PCM.
package caf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/nabil6391/rawcooked/container"
	"github.com/nabil6391/rawcooked/ledger"
)

var (
	errInvalidLayout  = errors.New("invalid channel layout")
	errInvalidStrings = errors.New("invalid strings chunk")
)

// Undecodable codes.
const (
	CodeHeader = container.UndecodableCount + iota
	CodeDescSize
	CodeDataSize
	CodeMissingDesc
	CodeMissingData
)

// Unsupported codes.
const (
	CodeFileVersion ledger.Code = iota
	CodeFormatID
	CodeFormatFlags
	CodePacketSize
	CodePacketTable
	CodeFlavor
	CodeMultipleData
)

// Incoherent codes.
const (
	CodeChannelLayout ledger.Code = iota
)

// Invalid codes.
const (
	CodeChannelLayoutSize ledger.Code = iota
	CodeInformation
)

// Parser identifies CAF problems in a ledger.
var Parser = &ledger.Parser{
	Name: "CAF",
	Codes: ledger.Codes{
		ledger.Undecodable: append(append([]string{}, container.UndecodableCodes...),
			"Header", "DescSize", "DataSize", "MissingDesc", "MissingData"),
		ledger.Unsupported: {"FileVersion", "FormatID", "FormatFlags", "PacketSize", "PacketTable", "Flavor", "MultipleData"},
		ledger.Incoherent:  {"ChannelLayout"},
		ledger.Invalid:     {"ChannelLayoutSize", "Information"},
	},
}

// Chunk types.
var (
	ChunkAudioDescription = NewFourByteStr("desc")
	ChunkChannelLayout    = NewFourByteStr("chan")
	ChunkInformation      = NewFourByteStr("info")
	ChunkAudioData        = NewFourByteStr("data")
	ChunkPacketTable      = NewFourByteStr("pakt")
)

var cafFormat = container.Format{
	Order:     binary.BigEndian,
	NameLen:   4,
	SizeLen:   8,
	Unbounded: math.MaxUint64,
}

// Detect reports whether buf starts with a CAF file header.
func Detect(buf []byte) bool {
	return bytes.HasPrefix(buf, []byte("caff"))
}

type parser struct {
	*container.Walker

	rejected bool

	haveDesc   bool
	format     CAFAudioFormat
	endianness container.Endianness
	flavor     Flavor

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

func (p *parser) tables() container.Table {
	return container.Table{
		ChunkAudioDescription.Name(): {Handler: p.descChunk},
		ChunkChannelLayout.Name():    {Handler: p.chanChunk},
		ChunkInformation.Name():      {Handler: p.infoChunk},
		ChunkPacketTable.Name():      {Handler: p.paktChunk},
		ChunkAudioData.Name():        {Handler: p.dataChunk},
	}
}

// Parse checks that buf is a CAF file whose audio can be carried as PCM
// essence and returns the range of its samples.
func Parse(buf []byte, l *ledger.Ledger, opts ...container.Option) (*container.Result, error) {
	var h CAFFileHeader
	if err := h.Decode(buf); err != nil {
		l.Record(Parser, ledger.Undecodable, CodeHeader)
		return nil, fmt.Errorf("caf: %v: %w", err, container.ErrUndecodable)
	}

	p := &parser{}
	p.Walker = container.NewWalker(buf, cafFormat, l, Parser, opts...)
	if h.FileVersion != 1 {
		p.recordString(ledger.Unsupported, CodeFileVersion, fmt.Sprint(h.FileVersion))
		return nil, fmt.Errorf("caf: %w", container.ErrUnsupported)
	}
	p.Off = fileHeaderSize
	if err := p.Walk(p.tables()); err != nil {
		return nil, fmt.Errorf("caf: %w", err)
	}

	switch {
	case !p.haveDesc:
		p.record(ledger.Undecodable, CodeMissingDesc)
	case !p.haveData:
		p.record(ledger.Undecodable, CodeMissingData)
	}
	if p.rejected {
		return nil, fmt.Errorf("caf: %w", container.ErrUnsupported)
	}

	logrus.WithFields(logrus.Fields{
		"flavor": p.flavor.String(),
		"begin":  p.begin,
		"end":    p.end,
	}).Debugf("Parsed CAF")
	return &container.Result{
		Format:       "CAF",
		Flavor:       uint8(p.flavor),
		FlavorName:   p.flavor.String(),
		PayloadBegin: p.begin,
		PayloadEnd:   p.end,
		Unique:       true,
	}, nil
}

func content(w *container.Walker, c *container.Chunk) []byte {
	return w.Buf[c.Begin:c.End]
}

func (p *parser) descChunk(w *container.Walker, c *container.Chunk) error {
	if c.End-c.Begin < audioFormatSize {
		p.record(ledger.Undecodable, CodeDescSize)
		return nil
	}
	f := &p.format
	if err := f.decode(content(w, c)); err != nil {
		p.record(ledger.Undecodable, CodeDescSize)
		return nil
	}
	p.haveDesc = true

	if f.FormatID != formatLinearPCM {
		p.recordString(ledger.Unsupported, CodeFormatID, f.FormatID.String())
		return nil
	}
	if f.FormatFlags&kCAFLinearPCMFormatFlagIsFloat != 0 {
		p.record(ledger.Unsupported, CodeFormatFlags)
		return nil
	}
	p.endianness = container.BigEndian
	if f.FormatFlags&kCAFLinearPCMFormatFlagIsLittleEndian != 0 {
		p.endianness = container.LittleEndian
	}
	if f.FramesPerPacket != 1 || uint64(f.BytesPerPacket) != uint64(f.ChannelsPerPacket)*uint64(f.BitsPerChannel)/8 {
		p.record(ledger.Unsupported, CodePacketSize)
		return nil
	}

	rate := f.SampleRate
	if rate != math.Trunc(rate) || rate < 0 || rate > math.MaxUint32 {
		p.recordString(ledger.Unsupported, CodeFlavor, "non integer sample rate")
		return nil
	}
	flavor, ok := Classify(uint64(rate), uint64(f.BitsPerChannel), uint64(f.ChannelsPerPacket), p.endianness)
	if !ok {
		p.recordString(ledger.Unsupported, CodeFlavor,
			fmt.Sprintf("%d Hz %d bit %d ch %s", uint64(rate), f.BitsPerChannel, f.ChannelsPerPacket, p.endianness))
		return nil
	}
	p.flavor = flavor
	return nil
}

func (p *parser) chanChunk(w *container.Walker, c *container.Chunk) error {
	var layout CAFChannelLayout
	if err := layout.decode(content(w, c)); err != nil {
		p.record(ledger.Invalid, CodeChannelLayoutSize)
		return nil
	}
	if p.haveDesc && layout.ChannelCount() != p.format.ChannelsPerPacket {
		p.record(ledger.Incoherent, CodeChannelLayout)
	}
	return nil
}

func (p *parser) infoChunk(w *container.Walker, c *container.Chunk) error {
	var info CAFStringsChunk
	if err := info.decode(content(w, c)); err != nil {
		p.record(ledger.Invalid, CodeInformation)
		return nil
	}
	for _, s := range info.Strings {
		logrus.WithField("parser", Parser.Name).Debugf("info %s: %s", s.Key, s.Value)
	}
	return nil
}

func (p *parser) paktChunk(w *container.Walker, c *container.Chunk) error {
	var h CAFPacketTableHeader
	if err := h.decode(content(w, c)); err != nil || h.NumberPackets != 0 {
		p.record(ledger.Unsupported, CodePacketTable)
	}
	return nil
}

func (p *parser) dataChunk(w *container.Walker, c *container.Chunk) error {
	if p.haveData {
		p.record(ledger.Unsupported, CodeMultipleData)
		return nil
	}
	if c.End-c.Begin < 4 {
		p.record(ledger.Undecodable, CodeDataSize)
		return nil
	}
	w.Skip(4) // edit count
	p.haveData = true
	p.begin, p.end = w.Off, c.End
	return nil
}
