// Package tiff parses uncompressed TIFF images, one frame of an image
// sequence each.
package tiff

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nabil6391/rawcooked/container"
	"github.com/nabil6391/rawcooked/ledger"
)

// Undecodable codes.
const (
	CodeIfdOffset = container.UndecodableCount + iota
	CodeMissingTag
	CodeStripCount
)

// Unsupported codes.
const (
	CodeCompression ledger.Code = iota
	CodePlanarConfiguration
	CodePhotometric
	CodeBitsPerSample
	CodeSamplesPerPixel
	CodeStrips
	CodeMultipleImages
	CodePixelDataSize
	CodeFlavor
)

// Invalid codes.
const (
	CodeTagOrder ledger.Code = iota
)

// Parser identifies TIFF problems in a ledger.
var Parser = &ledger.Parser{
	Name: "TIFF",
	Codes: ledger.Codes{
		ledger.Undecodable: append(append([]string{}, container.UndecodableCodes...),
			"IfdOffset", "MissingTag", "StripCount"),
		ledger.Unsupported: {"Compression", "PlanarConfiguration", "Photometric", "BitsPerSample",
			"SamplesPerPixel", "Strips", "MultipleImages", "PixelDataSize", "Flavor"},
		ledger.Invalid: {"TagOrder"},
	},
}

// Baseline tags.
const (
	tagImageWidth                = 256
	tagImageLength               = 257
	tagBitsPerSample             = 258
	tagCompression               = 259
	tagPhotometricInterpretation = 262
	tagStripOffsets              = 273
	tagSamplesPerPixel           = 277
	tagStripByteCounts           = 279
	tagPlanarConfiguration       = 284
	tagExtraSamples              = 338
)

var tagNames = map[uint16]string{
	tagImageWidth:                "ImageWidth",
	tagImageLength:               "ImageLength",
	tagBitsPerSample:             "BitsPerSample",
	tagPhotometricInterpretation: "PhotometricInterpretation",
	tagStripOffsets:              "StripOffsets",
	tagStripByteCounts:           "StripByteCounts",
}

// Field types.
const (
	typeByte  = 1
	typeShort = 3
	typeLong  = 4
)

const (
	photometricBlackIsZero = 1
	photometricRGB         = 2
)

// Detect reports whether buf starts with a TIFF header.
func Detect(buf []byte) bool {
	return bytes.HasPrefix(buf, []byte("II*\x00")) || bytes.HasPrefix(buf, []byte("MM\x00*"))
}

type parser struct {
	*container.Cursor

	ledger     *ledger.Ledger
	opts       container.Options
	rejected   bool
	endianness container.Endianness
	tags       map[uint16][]uint64
	// dir holds the offsets of the IFD and of its out-of-line values.
	dir []uint64
}

func (p *parser) record(cat ledger.Category, code ledger.Code) {
	p.ledger.Record(Parser, cat, code)
	if cat.Fatal() {
		p.rejected = true
	}
}

func (p *parser) recordString(cat ledger.Category, code ledger.Code, s string) {
	p.ledger.RecordString(Parser, cat, code, s)
	if cat.Fatal() {
		p.rejected = true
	}
}

// Parse checks that buf is a TIFF image whose pixels can be carried as
// essence and returns the range of its pixel data.
func Parse(buf []byte, l *ledger.Ledger, opts ...container.Option) (*container.Result, error) {
	if !Detect(buf) || len(buf) < 8 {
		l.Record(Parser, ledger.Undecodable, container.CodeBufferOverflow)
		return nil, fmt.Errorf("tiff: %w", container.ErrUndecodable)
	}
	p := &parser{ledger: l, opts: container.NewOptions(opts...), tags: map[uint16][]uint64{}}
	order := binary.ByteOrder(binary.LittleEndian)
	p.endianness = container.LittleEndian
	if buf[0] == 'M' {
		order = binary.BigEndian
		p.endianness = container.BigEndian
	}
	p.Cursor = container.NewCursor(buf, order)
	p.Skip(4)

	if err := p.readIFD(uint64(p.U32())); err != nil {
		return nil, fmt.Errorf("tiff: %w", err)
	}
	res := p.check()
	if p.rejected {
		return nil, fmt.Errorf("tiff: %w", container.ErrUnsupported)
	}
	logrus.WithFields(logrus.Fields{
		"flavor": res.FlavorName,
		"begin":  res.PayloadBegin,
		"end":    res.PayloadEnd,
	}).Debugf("Parsed TIFF")
	return res, nil
}

// readIFD reads the first image file directory into p.tags.
func (p *parser) readIFD(offset uint64) error {
	if offset < 8 || offset+2 > p.Len() {
		p.record(ledger.Undecodable, CodeIfdOffset)
		return container.ErrUndecodable
	}
	p.Off = offset
	p.dir = append(p.dir, offset)
	count := uint64(p.U16())
	if p.Off+count*12+4 > p.Len() {
		p.record(ledger.Undecodable, container.CodeBufferOverflow)
		return container.ErrUndecodable
	}
	var last uint16
	for i := uint64(0); i < count; i++ {
		tag := p.U16()
		typ := p.U16()
		n := uint64(p.U32())
		value := p.Bytes(4)
		if i > 0 && tag <= last {
			p.record(ledger.Invalid, CodeTagOrder)
		}
		last = tag
		values, err := p.values(typ, n, value)
		if err != nil {
			return err
		}
		if values != nil {
			p.tags[tag] = values
		}
	}
	if next := p.U32(); next != 0 {
		p.record(ledger.Unsupported, CodeMultipleImages)
	}
	return nil
}

// values decodes the integer values of a field. Fields of other types are
// ignored.
func (p *parser) values(typ uint16, n uint64, value []byte) ([]uint64, error) {
	var size uint64
	switch typ {
	case typeByte:
		size = 1
	case typeShort:
		size = 2
	case typeLong:
		size = 4
	default:
		return nil, nil
	}
	data := value
	if n*size > 4 {
		offset := uint64(p.Order.Uint32(value))
		if n > p.Len() || offset+n*size > p.Len() {
			p.record(ledger.Undecodable, container.CodeBufferOverflow)
			return nil, container.ErrUndecodable
		}
		data = p.Buf[offset : offset+n*size]
		p.dir = append(p.dir, offset)
	}
	out := make([]uint64, n)
	c := container.NewCursor(data, p.Order)
	for i := range out {
		out[i] = c.Uint(int(size))
	}
	return out, nil
}

// single returns the value of a one-valued tag, or def when it is absent.
func (p *parser) single(tag uint16, def uint64) uint64 {
	v, ok := p.tags[tag]
	if !ok || len(v) == 0 {
		return def
	}
	return v[0]
}

func (p *parser) check() *container.Result {
	for _, tag := range []uint16{tagImageWidth, tagImageLength, tagBitsPerSample, tagPhotometricInterpretation, tagStripOffsets, tagStripByteCounts} {
		if _, ok := p.tags[tag]; !ok {
			p.recordString(ledger.Undecodable, CodeMissingTag, tagNames[tag])
		}
	}
	if p.rejected {
		return nil
	}

	if v := p.single(tagCompression, 1); v != 1 {
		p.recordString(ledger.Unsupported, CodeCompression, fmt.Sprint(v))
	}
	if v := p.single(tagPlanarConfiguration, 1); v != 1 {
		p.recordString(ledger.Unsupported, CodePlanarConfiguration, fmt.Sprint(v))
	}

	samples := p.single(tagSamplesPerPixel, 1)
	var colorspace Colorspace
	switch photometric := p.single(tagPhotometricInterpretation, 0); {
	case photometric == photometricBlackIsZero && samples == 1:
		colorspace = Y
	case photometric == photometricRGB && samples == 3:
		colorspace = RGB
	case photometric == photometricRGB && samples == 4 && len(p.tags[tagExtraSamples]) == 1:
		colorspace = RGBA
	case photometric != photometricBlackIsZero && photometric != photometricRGB:
		p.recordString(ledger.Unsupported, CodePhotometric, fmt.Sprint(photometric))
	default:
		p.recordString(ledger.Unsupported, CodeSamplesPerPixel, fmt.Sprint(samples))
	}

	depths := p.tags[tagBitsPerSample]
	if len(depths) == 0 {
		p.recordString(ledger.Undecodable, CodeMissingTag, tagNames[tagBitsPerSample])
		return nil
	}
	depth := depths[0]
	for _, d := range depths[1:] {
		if d != depth {
			p.recordString(ledger.Unsupported, CodeBitsPerSample, fmt.Sprint(depths))
			break
		}
	}
	if uint64(len(depths)) != samples {
		p.recordString(ledger.Unsupported, CodeBitsPerSample, fmt.Sprint(depths))
	}

	offsets, counts := p.tags[tagStripOffsets], p.tags[tagStripByteCounts]
	if len(offsets) != len(counts) || len(offsets) == 0 {
		p.record(ledger.Undecodable, CodeStripCount)
		return nil
	}
	begin, end := offsets[0], offsets[0]
	for i, o := range offsets {
		if o != end {
			p.record(ledger.Unsupported, CodeStrips)
			return nil
		}
		end += counts[i]
	}
	truncated := end > p.Len()
	if truncated {
		if !p.opts.AcceptTruncated || begin >= p.Len() {
			p.record(ledger.Undecodable, container.CodeTruncatedChunk)
			return nil
		}
		limit := p.Len()
		for _, o := range p.dir {
			if o >= begin && o < limit {
				limit = o
			}
		}
		logrus.WithField("parser", Parser.Name).Debugf("truncated pixel data clamped from %d to %d bytes", end-begin, limit-begin)
		end = limit
	}
	width, height := p.single(tagImageWidth, 0), p.single(tagImageLength, 0)
	if want := width * height * samples * depth / 8; !truncated && end-begin != want {
		p.recordString(ledger.Unsupported, CodePixelDataSize, fmt.Sprintf("%d/%d", end-begin, want))
	}
	if p.rejected {
		return nil
	}

	flavor, ok := Classify(colorspace, depth, p.endianness)
	if !ok {
		p.recordString(ledger.Unsupported, CodeFlavor, fmt.Sprintf("%s %d bit", colorspace, depth))
		return nil
	}
	return &container.Result{
		Format:       "TIFF",
		Flavor:       uint8(flavor),
		FlavorName:   flavor.String(),
		PayloadBegin: begin,
		PayloadEnd:   end,
		Unique:       false,
	}
}
