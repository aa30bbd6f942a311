package container

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nabil6391/rawcooked/ledger"
)

var (
	// ErrUndecodable is returned when a walk stops on malformed structure.
	// The details are in the ledger.
	ErrUndecodable = errors.New("undecodable container")
	// ErrUnsupported is returned by parsers for well formed files they cannot
	// store reversibly.
	ErrUnsupported = errors.New("unsupported content")
)

// Undecodable codes shared by every chunk-based parser. A parser's own
// Undecodable code list must start with UndecodableCodes.
const (
	CodeBufferOverflow ledger.Code = iota
	CodeTruncatedChunk

	// UndecodableCount is the first code free for a parser's own
	// Undecodable codes.
	UndecodableCount
)

// UndecodableCodes names CodeBufferOverflow and CodeTruncatedChunk.
var UndecodableCodes = []string{"BufferOverflow", "TruncatedChunk"}

// Format describes the chunk header layout of a container family.
type Format struct {
	// Order is the byte order of chunk sizes.
	Order binary.ByteOrder
	// NameLen and SizeLen are the widths of the header fields.
	NameLen int
	SizeLen int
	// Groups are wrapper names followed by an inner name which is used for
	// dispatch instead.
	Groups []Name
	// Unbounded, when non-zero, is a declared size meaning "up to the end of
	// the enclosing chunk".
	Unbounded uint64
	// Pad enables the single zero byte padding after odd sized chunks.
	Pad bool
	// SingleRoot stops the walk once the first root chunk is done.
	SingleRoot bool
}

func (f *Format) isGroup(n Name) bool {
	for _, g := range f.Groups {
		if g == n {
			return true
		}
	}
	return false
}

// Chunk is the chunk being handled. Begin and End delimit its content.
type Chunk struct {
	Name  Name
	Group Name
	Size  uint64
	Begin uint64
	End   uint64
	Depth int
}

// Handler handles one chunk. Returning an error aborts the walk.
type Handler func(w *Walker, c *Chunk) error

// Entry is what a Table resolves a chunk name to: the handler and the table
// used for the chunk content when the handler marks it as a list.
type Entry struct {
	Handler Handler
	Nested  Table
}

// Table maps chunk names to their entries. Missing names resolve to the void
// entry, which skips the chunk.
type Table map[Name]Entry

func (t Table) lookup(n Name) Entry {
	if e, ok := t[n]; ok && e.Handler != nil {
		return e
	}
	return Entry{Handler: Void}
}

// Void is the handler of unknown chunks.
func Void(w *Walker, c *Chunk) error {
	logrus.WithFields(logrus.Fields{
		"parser": w.parser.Name,
		"offset": c.Begin,
	}).Debugf("Got unknown chunk type %s", c.Name)
	return nil
}

// Level is one open chunk: the exclusive end of its content and the table
// active for its sub-chunks.
type Level struct {
	End   uint64
	Table Table
}

// Walker walks nested chunks of a buffer depth-first in document order.
type Walker struct {
	*Cursor

	format    Format
	opts      Options
	ledger    *ledger.Ledger
	parser    *ledger.Parser
	levels    []Level
	isList    bool
	overrides map[Name]uint64
}

// NewWalker returns a Walker over buf. Problems are recorded in l under p.
func NewWalker(buf []byte, f Format, l *ledger.Ledger, p *ledger.Parser, opts ...Option) *Walker {
	w := &Walker{
		Cursor: NewCursor(buf, f.Order),
		format: f,
		ledger: l,
		parser: p,
	}
	for _, o := range opts {
		o(&w.opts)
	}
	return w
}

// Ledger returns the ledger problems are recorded in.
func (w *Walker) Ledger() *ledger.Ledger { return w.ledger }

// Options returns the options the walker was built with.
func (w *Walker) Options() Options { return w.opts }

// Levels returns the open levels, the root first.
func (w *Walker) Levels() []Level { return w.levels }

// List marks the current chunk as a container of sub-chunks.
func (w *Walker) List() { w.isList = true }

// OverrideSize makes the next chunk named n whose declared size is the
// Unbounded value use size instead.
func (w *Walker) OverrideSize(n Name, size uint64) {
	if w.overrides == nil {
		w.overrides = map[Name]uint64{}
	}
	w.overrides[n] = size
}

// SetLevelEnd changes the end of an open level, the truncation policy
// applying as for declared sizes.
func (w *Walker) SetLevelEnd(depth int, end uint64) error {
	if depth <= 0 || depth >= len(w.levels) {
		return fmt.Errorf("no open level at depth %d", depth)
	}
	if bound := w.levels[depth-1].End; end > bound {
		if !w.opts.AcceptTruncated {
			w.ledger.Record(w.parser, ledger.Undecodable, CodeTruncatedChunk)
			return ErrUndecodable
		}
		end = bound
	}
	w.levels[depth].End = end
	return nil
}

// Walk walks the buffer from the current offset, dispatching root chunks
// through root.
func (w *Walker) Walk(root Table) error {
	w.levels = append(w.levels[:0], Level{End: w.Len(), Table: root})
	depth := 1
	headerLen := uint64(w.format.NameLen + w.format.SizeLen)

	for w.Off < w.levels[0].End {
		for depth > 1 && w.Off >= w.levels[depth-1].End {
			depth--
		}
		if depth == 1 && w.format.SingleRoot && len(w.levels) > 1 {
			break
		}
		w.levels = w.levels[:depth]
		parentEnd := w.levels[depth-1].End

		if w.Off+headerLen > parentEnd {
			w.ledger.Record(w.parser, ledger.Undecodable, CodeBufferOverflow)
			return ErrUndecodable
		}
		c := &Chunk{Depth: depth}
		c.Name = w.Cursor.Name(w.format.NameLen)
		c.Size = w.Uint(w.format.SizeLen)
		size := c.Size
		if w.format.isGroup(c.Name) {
			if size < uint64(w.format.NameLen) || w.Off+uint64(w.format.NameLen) > parentEnd {
				w.ledger.Record(w.parser, ledger.Undecodable, CodeBufferOverflow)
				return ErrUndecodable
			}
			c.Group = c.Name
			c.Name = w.Cursor.Name(w.format.NameLen)
			if size != w.format.Unbounded || w.format.Unbounded == 0 {
				size -= uint64(w.format.NameLen)
			}
		}
		if w.format.Unbounded != 0 && c.Size == w.format.Unbounded {
			if v, ok := w.overrides[c.Name]; ok {
				delete(w.overrides, c.Name)
				size = v
			} else {
				size = parentEnd - w.Off
			}
		}

		c.Begin = w.Off
		c.End = c.Begin + size
		if c.End < c.Begin || c.End > parentEnd {
			if !w.opts.AcceptTruncated {
				w.ledger.Record(w.parser, ledger.Undecodable, CodeTruncatedChunk)
				return ErrUndecodable
			}
			logrus.WithFields(logrus.Fields{
				"parser": w.parser.Name,
				"chunk":  c.Name.String(),
				"offset": c.Begin,
			}).Debugf("truncated chunk clamped from %d to %d bytes", size, parentEnd-c.Begin)
			c.End = parentEnd
		}

		entry := w.levels[depth-1].Table.lookup(c.Name)
		w.levels = append(w.levels, Level{End: c.End, Table: entry.Nested})

		w.isList = false
		if err := entry.Handler(w, c); err != nil {
			return err
		}
		if !w.isList {
			w.Off = w.levels[depth].End
		}

		if w.format.Pad && (!w.isList || w.Off == w.levels[depth].End) && w.Off%2 == 1 && w.Off < w.Len() && w.Buf[w.Off] == 0 {
			w.Off++
			w.levels[depth].End++
		}

		if w.Off < w.levels[depth].End {
			depth++
		}
	}
	return nil
}
