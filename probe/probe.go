// Package probe picks the parser of a file from its leading bytes and
// builds its reversibility unit.
package probe

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nabil6391/rawcooked/aiff"
	"github.com/nabil6391/rawcooked/caf"
	"github.com/nabil6391/rawcooked/container"
	"github.com/nabil6391/rawcooked/ledger"
	"github.com/nabil6391/rawcooked/rawcooked"
	"github.com/nabil6391/rawcooked/tiff"
	"github.com/nabil6391/rawcooked/wav"
)

// ErrUnknownFormat is returned for files no parser recognizes.
var ErrUnknownFormat = errors.New("unknown file format")

// Format is a parser together with the magic check selecting it.
type Format struct {
	Name   string
	Detect func(buf []byte) bool
	Parse  func(buf []byte, l *ledger.Ledger, opts ...container.Option) (*container.Result, error)
}

// Formats are tried in order.
var Formats = []Format{
	{"WAV", wav.Detect, wav.Parse},
	{"AIFF", aiff.Detect, aiff.Parse},
	{"TIFF", tiff.Detect, tiff.Parse},
	{"CAF", caf.Detect, caf.Parse},
}

type options struct {
	hash  *rawcooked.HashScheme
	parse []container.Option
}

// Option configures Parse and Attachment.
type Option func(*options)

// WithHash adds a digest of the whole file to the unit.
func WithHash(s rawcooked.HashScheme) Option {
	return func(o *options) {
		o.hash = &s
	}
}

// WithOptions passes parse policies to the format parser.
func WithOptions(opts ...container.Option) Option {
	return func(o *options) {
		o.parse = append(o.parse, opts...)
	}
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Detect returns the format of buf.
func Detect(buf []byte) (*Format, bool) {
	for i := range Formats {
		if Formats[i].Detect(buf) {
			return &Formats[i], true
		}
	}
	return nil, false
}

// File is an accepted input file.
type File struct {
	*container.Result
	Unit *rawcooked.Unit
}

// Parse detects and parses buf. Problems are recorded in l; when one of
// them is fatal no File is returned and the file must not be encoded.
func Parse(buf []byte, fileName string, l *ledger.Ledger, opts ...Option) (*File, error) {
	o := newOptions(opts)
	f, ok := Detect(buf)
	if !ok {
		return nil, fmt.Errorf("%s: %w", fileName, ErrUnknownFormat)
	}
	res, err := f.Parse(buf, l, o.parse...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fileName, err)
	}
	u := res.Unit(buf, fileName)
	if o.hash != nil {
		h := o.hash.Sum(buf)
		u.Hash = &h
	}
	logrus.WithFields(logrus.Fields{
		"file":   fileName,
		"format": f.Name,
		"flavor": res.FlavorName,
	}).Debugf("Probed file")
	return &File{Result: res, Unit: u}, nil
}

// Attachment returns the unit of a file stored beside the essence.
func Attachment(buf []byte, fileName string, opts ...Option) *rawcooked.Unit {
	o := newOptions(opts)
	u := &rawcooked.Unit{
		IsUnique:     true,
		IsAttachment: true,
		FileName:     []byte(fileName),
		FileSize:     uint64(len(buf)),
		HasFileSize:  true,
	}
	if o.hash != nil {
		h := o.hash.Sum(buf)
		u.Hash = &h
	}
	return u
}
