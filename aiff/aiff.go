// Package aiff parses AIFF and AIFF-C files holding integer PCM.
package aiff

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/charmap"

	"github.com/nabil6391/rawcooked/container"
	"github.com/nabil6391/rawcooked/ledger"
)

// Undecodable codes.
const (
	CodeCommSize = container.UndecodableCount + iota
	CodeSsndSize
	CodeMissingComm
	CodeMissingSsnd
)

// Unsupported codes.
const (
	CodeFileType ledger.Code = iota
	CodeCompression
	CodeFlavor
	CodeMultipleSsnd
)

// Incoherent codes.
const (
	CodeSampleFrames ledger.Code = iota
)

// Invalid codes.
const (
	CodeFverVersion ledger.Code = iota
	CodeTrailingBytes
)

// Parser identifies AIFF problems in a ledger.
var Parser = &ledger.Parser{
	Name: "AIFF",
	Codes: ledger.Codes{
		ledger.Undecodable: append(append([]string{}, container.UndecodableCodes...),
			"CommSize", "SsndSize", "MissingComm", "MissingSsnd"),
		ledger.Unsupported: {"FileType", "Compression", "Flavor", "MultipleSsnd"},
		ledger.Incoherent:  {"SampleFrames"},
		ledger.Invalid:     {"FverVersion", "TrailingBytes"},
	},
}

var (
	nameFORM = container.NewName("FORM")
	nameAIFF = container.NewName("AIFF")
	nameAIFC = container.NewName("AIFC")
	nameCOMM = container.NewName("COMM")
	nameSSND = container.NewName("SSND")
	nameFVER = container.NewName("FVER")
)

// AIFF-C compression types carrying plain integer PCM.
var (
	compressionNONE = container.NewName("NONE")
	compressionTwos = container.NewName("twos")
	compressionSowt = container.NewName("sowt")
)

// fverAIFC is the only AIFF-C format version.
const fverAIFC = 0xA2805140

var formFormat = container.Format{
	Order:      binary.BigEndian,
	NameLen:    4,
	SizeLen:    4,
	Groups:     []container.Name{nameFORM},
	Pad:        true,
	SingleRoot: true,
}

// Detect reports whether buf starts like an AIFF or AIFF-C file.
func Detect(buf []byte) bool {
	if len(buf) < 12 || !bytes.HasPrefix(buf, []byte("FORM")) {
		return false
	}
	kind := buf[8:12]
	return bytes.Equal(kind, []byte("AIFF")) || bytes.Equal(kind, []byte("AIFC"))
}

type parser struct {
	*container.Walker

	rejected bool
	form     bool
	aifc     bool

	haveComm   bool
	channels   uint16
	frames     uint32
	bits       uint16
	endianness container.Endianness
	flavor     Flavor

	haveSsnd   bool
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
	form := container.Table{
		nameCOMM: {Handler: p.commChunk},
		nameSSND: {Handler: p.ssndChunk},
		nameFVER: {Handler: p.fverChunk},
	}
	return container.Table{
		nameAIFF: {Handler: p.formChunk, Nested: form},
		nameAIFC: {Handler: p.formChunk, Nested: form},
	}
}

// Parse checks that buf is an AIFF file whose audio can be carried as PCM
// essence and returns the range of its samples.
func Parse(buf []byte, l *ledger.Ledger, opts ...container.Option) (*container.Result, error) {
	p := &parser{}
	p.Walker = container.NewWalker(buf, formFormat, l, Parser, opts...)
	if err := p.Walk(p.tables()); err != nil {
		return nil, fmt.Errorf("aiff: %w", err)
	}

	switch {
	case !p.form:
		p.record(ledger.Unsupported, CodeFileType)
	case !p.haveComm:
		p.record(ledger.Undecodable, CodeMissingComm)
	case !p.haveSsnd:
		p.record(ledger.Undecodable, CodeMissingSsnd)
	default:
		frameSize := uint64(p.channels) * uint64(p.bits) / 8
		if uint64(p.frames)*frameSize != p.end-p.begin {
			p.record(ledger.Incoherent, CodeSampleFrames)
		}
	}
	if p.Off < p.Len() {
		p.record(ledger.Invalid, CodeTrailingBytes)
	}
	if p.rejected {
		return nil, fmt.Errorf("aiff: %w", container.ErrUnsupported)
	}

	logrus.WithFields(logrus.Fields{
		"flavor": p.flavor.String(),
		"begin":  p.begin,
		"end":    p.end,
	}).Debugf("Parsed AIFF")
	return &container.Result{
		Format:       "AIFF",
		Flavor:       uint8(p.flavor),
		FlavorName:   p.flavor.String(),
		PayloadBegin: p.begin,
		PayloadEnd:   p.end,
		Unique:       true,
	}, nil
}

func (p *parser) formChunk(w *container.Walker, c *container.Chunk) error {
	if c.Group != nameFORM {
		return nil
	}
	p.form = true
	p.aifc = c.Name == nameAIFC
	w.List()
	return nil
}

func (p *parser) commChunk(w *container.Walker, c *container.Chunk) error {
	size := c.End - c.Begin
	if size < 18 || (p.aifc && size < 22) {
		p.record(ledger.Undecodable, CodeCommSize)
		return nil
	}
	p.haveComm = true
	p.channels = w.U16()
	p.frames = w.U32()
	p.bits = w.U16()
	rate, integer := sampleRate(w.Bytes(10))

	p.endianness = container.BigEndian
	if p.aifc {
		compression := w.Name(4)
		switch compression {
		case compressionNONE, compressionTwos:
		case compressionSowt:
			p.endianness = container.LittleEndian
		default:
			p.recordString(ledger.Unsupported, CodeCompression, describe(compression, w.Buf[w.Off:c.End]))
			return nil
		}
	}

	if !integer {
		p.recordString(ledger.Unsupported, CodeFlavor, "non integer sample rate")
		return nil
	}
	flavor, ok := Classify(rate, uint64(p.bits), uint64(p.channels), p.endianness)
	if !ok {
		p.recordString(ledger.Unsupported, CodeFlavor,
			fmt.Sprintf("%d Hz %d bit %d ch %s", rate, p.bits, p.channels, p.endianness))
		return nil
	}
	p.flavor = flavor
	return nil
}

// describe names an AIFF-C compression type with its Pascal string name,
// which is Mac Roman encoded.
func describe(compression container.Name, pstring []byte) string {
	if len(pstring) == 0 || int(pstring[0]) > len(pstring)-1 {
		return compression.String()
	}
	name, err := charmap.Macintosh.NewDecoder().Bytes(pstring[1 : 1+int(pstring[0])])
	if err != nil || len(name) == 0 {
		return compression.String()
	}
	return fmt.Sprintf("%s (%s)", compression, name)
}

func (p *parser) ssndChunk(w *container.Walker, c *container.Chunk) error {
	if p.haveSsnd {
		p.record(ledger.Unsupported, CodeMultipleSsnd)
		return nil
	}
	if c.End-c.Begin < 8 {
		p.record(ledger.Undecodable, CodeSsndSize)
		return nil
	}
	offset := uint64(w.U32())
	w.Skip(4) // block size
	if offset > c.End-w.Off {
		p.record(ledger.Undecodable, CodeSsndSize)
		return nil
	}
	p.haveSsnd = true
	p.begin, p.end = w.Off+offset, c.End
	return nil
}

func (p *parser) fverChunk(w *container.Walker, c *container.Chunk) error {
	if c.End-c.Begin < 4 || w.U32() != fverAIFC {
		p.record(ledger.Invalid, CodeFverVersion)
	}
	return nil
}
