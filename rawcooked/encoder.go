package rawcooked

import (
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/sirupsen/logrus"
)

// EncoderVersion is written in the Segment element unless overridden.
const EncoderVersion = "0.1.0"

type encoderOptions struct {
	level   int
	version string
}

// EncoderOption configures an Encoder.
type EncoderOption func(*encoderOptions)

// WithCompressionLevel sets the zlib level used for compressible fields.
func WithCompressionLevel(level int) EncoderOption {
	return func(o *encoderOptions) {
		o.level = level
	}
}

// WithEncoderVersion sets the library version written in the Segment element.
func WithEncoderVersion(version string) EncoderOption {
	return func(o *encoderOptions) {
		o.version = version
	}
}

// Encoder turns Units into reversibility records, one sink write per Unit.
// It is not safe for concurrent use.
type Encoder struct {
	sink io.Writer
	opts encoderOptions

	headerWritten bool
	track         track
}

// track holds the templates captured from the first block of a track.
type track struct {
	blocks uint64

	fileName, before, after, in []byte
	fileSize                    uint64
	hasFileSize                 bool
}

// NewEncoder returns an Encoder writing to sink.
func NewEncoder(sink io.Writer, opts ...EncoderOption) *Encoder {
	o := encoderOptions{level: zlib.BestCompression, version: EncoderVersion}
	for _, opt := range opts {
		opt(&o)
	}
	return &Encoder{sink: sink, opts: o}
}

// ResetTrack starts a new track: the next Unit is block 0 again.
func (e *Encoder) ResetTrack() {
	e.track = track{}
}

// BlockCount returns the number of blocks written in the current track.
func (e *Encoder) BlockCount() uint64 {
	return e.track.blocks
}

// Encode writes the record of u with a single call to the sink. Errors from
// the sink are returned unchanged and leave the encoder state untouched.
func (e *Encoder) Encode(u *Unit) error {
	r := record{
		header:  !e.headerWritten,
		version: e.opts.version,
	}
	next := e.track
	if u.IsAttachment {
		r.container = nameAttachment
		r.fields = e.rawFields(u)
	} else {
		if next.blocks == 0 {
			r.writeTrack = true
			if !u.IsUnique {
				next = captureTrack(u)
				r.track = e.templateFields(&next)
			}
		}
		r.container = nameBlock
		if u.IsUnique {
			r.fields = e.rawFields(u)
		} else {
			r.fields = e.blockFields(u, &next)
		}
		next.blocks++
	}

	w := &ebWriter{}
	r.emit(w)
	w.allocate()
	r.emit(w)
	out := w.bytes()

	if _, err := e.sink.Write(out); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"file":  string(u.FileName),
		"block": next.blocks,
		"size":  len(out),
	}).Debugf("Wrote reversibility record")
	e.headerWritten = true
	if !u.IsAttachment {
		e.track = next
	}
	return nil
}

func captureTrack(u *Unit) track {
	return track{
		fileName:    clone(u.FileName),
		before:      clone(u.Before),
		after:       clone(u.After),
		in:          clone(u.In),
		fileSize:    u.FileSize,
		hasFileSize: u.HasFileSize,
	}
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}

func (e *Encoder) compress(content []byte) Buffer {
	return NewCompressed(NewMasked(content, nil), e.opts.level)
}

func (e *Encoder) templateFields(t *track) []element {
	var els []element
	for _, f := range []struct {
		name uint64
		data []byte
	}{
		{nameMaskName, t.fileName},
		{nameMaskBefore, t.before},
		{nameMaskAfter, t.after},
		{nameMaskIn, t.in},
	} {
		if f.data != nil {
			els = append(els, element{kind: kindBuffer, name: f.name, buf: e.compress(f.data)})
		}
	}
	if t.hasFileSize {
		els = append(els, element{kind: kindNumber, name: nameMaskSize, num: t.fileSize})
	}
	return els
}

func (e *Encoder) rawFields(u *Unit) []element {
	var els []element
	for _, f := range []struct {
		name uint64
		data []byte
	}{
		{nameFileName, u.FileName},
		{nameBeforeData, u.Before},
		{nameAfterData, u.After},
		{nameInData, u.In},
	} {
		if f.data != nil {
			els = append(els, element{kind: kindBuffer, name: f.name, buf: e.compress(f.data)})
		}
	}
	if u.HasFileSize {
		els = append(els, element{kind: kindNumber, name: nameFileSize, num: u.FileSize})
	}
	if u.Hash != nil {
		els = append(els, element{kind: kindHash, hash: *u.Hash})
	}
	return els
}

func (e *Encoder) blockFields(u *Unit, t *track) []element {
	var els []element
	for _, f := range []struct {
		raw, mask uint64
		data      []byte
		template  []byte
	}{
		{nameFileName, nameMaskName, u.FileName, t.fileName},
		{nameBeforeData, nameMaskBefore, u.Before, t.before},
		{nameAfterData, nameMaskAfter, u.After, t.after},
		{nameInData, nameMaskIn, u.In, t.in},
	} {
		if f.data == nil {
			continue
		}
		plain := e.compress(f.data)
		if f.template == nil {
			els = append(els, element{kind: kindBuffer, name: f.raw, buf: plain})
			continue
		}
		delta := NewCompressed(NewMasked(f.data, f.template), e.opts.level)
		if storedLen(delta) <= storedLen(plain) {
			els = append(els, element{kind: kindBuffer, name: f.mask, buf: delta})
		} else {
			els = append(els, element{kind: kindBuffer, name: f.raw, buf: plain})
		}
	}
	if u.HasFileSize {
		switch delta := u.FileSize - t.fileSize; {
		case t.hasFileSize && numberLen(delta) <= numberLen(u.FileSize):
			els = append(els, element{kind: kindNumber, name: nameMaskSize, num: delta})
		default:
			els = append(els, element{kind: kindNumber, name: nameFileSize, num: u.FileSize})
		}
	}
	if u.Hash != nil {
		els = append(els, element{kind: kindHash, hash: *u.Hash})
	}
	return els
}

// storedLen is the payload size of a compressible element.
func storedLen(b Buffer) int {
	return SizeEB(b.UncompressedSize()) + b.Len()
}

type elementKind uint8

const (
	kindBuffer elementKind = iota
	kindNumber
	kindHash
)

type element struct {
	kind elementKind
	name uint64
	buf  Buffer
	num  uint64
	hash Hash
}

func (el *element) emit(w *ebWriter) {
	switch el.kind {
	case kindBuffer:
		w.putBuffer(el.name, el.buf)
	case kindNumber:
		w.putNumber(el.name, el.num)
	case kindHash:
		w.putHash(el.hash)
	}
}

// record is everything one Encode call writes, emitted once per pass.
type record struct {
	header  bool
	version string

	writeTrack bool
	track      []element

	container uint64
	fields    []element
}

func (r *record) emit(w *ebWriter) {
	if r.header {
		w.begin(nameEBML)
		w.putString(nameDocType, DocType)
		w.putNumber(nameDocTypeVersion, DocTypeVersion)
		w.putNumber(nameDocTypeReadVersion, DocTypeReadVersion)
		w.end()

		w.begin(nameSegment)
		w.putString(nameLibraryName, LibraryName)
		w.putString(nameLibraryVersion, r.version)
		w.putString(namePathSeparator, PathSeparator)
		w.end()
	}
	if r.writeTrack {
		w.begin(nameTrack)
		for i := range r.track {
			r.track[i].emit(w)
		}
		w.end()
	}
	w.begin(r.container)
	for i := range r.fields {
		r.fields[i].emit(w)
	}
	w.end()
}
