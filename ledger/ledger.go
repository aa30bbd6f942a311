package ledger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// Category is the severity class of a recorded problem.
type Category uint8

const (
	// Undecodable means the bytes do not conform to the claimed format.
	Undecodable Category = iota
	// Unsupported means the content is valid but outside what can be stored
	// reversibly.
	Unsupported
	// Incoherent means two values of the file disagree with each other.
	Incoherent
	// Invalid means a value violates a soft expectation of the format.
	Invalid

	categoryCount
)

var categoryNames = [categoryCount]string{"undecodable", "unsupported", "incoherent", "invalid"}

func (c Category) String() string {
	if c < categoryCount {
		return categoryNames[c]
	}
	return fmt.Sprintf("category(%d)", uint8(c))
}

// Fatal reports whether a problem of this category prevents reversible
// encoding of the file.
func (c Category) Fatal() bool {
	return c == Undecodable || c == Unsupported
}

// Code identifies one problem within a parser and category.
type Code uint8

// Codes holds the code names of a parser, per category.
type Codes [categoryCount][]string

// Parser describes the codes a parser may record. A Parser is identified by
// its address; declare one package-level value per parser.
type Parser struct {
	Name  string
	Codes Codes
}

// CodeName returns the human-readable name of a code.
func (p *Parser) CodeName(cat Category, code Code) string {
	if cat < categoryCount && int(code) < len(p.Codes[cat]) {
		return p.Codes[cat][code]
	}
	return fmt.Sprintf("code(%d)", uint8(code))
}

// MaxStrings is the number of example strings kept per code, the last slot
// being the ellipsis marker.
const MaxStrings = 11

// Ellipsis replaces the examples which do not fit.
const Ellipsis = "..."

type key struct {
	parser *Parser
	cat    Category
	code   Code
}

type entry struct {
	count   uint64
	strings []string
}

// Ledger accumulates problems found while parsing. It is not safe for
// concurrent use; give each file its own Ledger.
type Ledger struct {
	entries  map[key]*entry
	parsers  []*Parser
	errors   bool
	warnings bool
}

// New returns an empty Ledger.
func New() *Ledger {
	return &Ledger{entries: map[key]*entry{}}
}

func (l *Ledger) get(p *Parser, cat Category, code Code) *entry {
	if l.entries == nil {
		l.entries = map[key]*entry{}
	}
	k := key{p, cat, code}
	e, ok := l.entries[k]
	if !ok {
		e = &entry{}
		l.entries[k] = e
		known := false
		for _, q := range l.parsers {
			if q == p {
				known = true
				break
			}
		}
		if !known {
			l.parsers = append(l.parsers, p)
		}
	}
	if cat.Fatal() {
		l.errors = true
	} else {
		l.warnings = true
	}
	return e
}

// Record counts one occurrence of a problem.
func (l *Ledger) Record(p *Parser, cat Category, code Code) {
	e := l.get(p, cat, code)
	e.count++
	logrus.WithFields(logrus.Fields{
		"parser":   p.Name,
		"category": cat,
	}).Debugf("recorded %s", p.CodeName(cat, code))
}

// RecordString records a problem together with an example string.
func (l *Ledger) RecordString(p *Parser, cat Category, code Code, s string) {
	e := l.get(p, cat, code)
	e.count++
	logrus.WithFields(logrus.Fields{
		"parser":   p.Name,
		"category": cat,
		"example":  s,
	}).Debugf("recorded %s", p.CodeName(cat, code))

	n := len(e.strings)
	switch {
	case n >= MaxStrings:
		return
	case n > 0 && e.strings[n-1] == s:
		return
	case n == MaxStrings-1:
		e.strings = append(e.strings, Ellipsis)
	default:
		e.strings = append(e.strings, s)
	}
}

// HasErrors reports whether a fatal problem was recorded.
func (l *Ledger) HasErrors() bool { return l.errors }

// HasWarnings reports whether an advisory problem was recorded.
func (l *Ledger) HasWarnings() bool { return l.warnings }

// Count returns how many times a problem was recorded.
func (l *Ledger) Count(p *Parser, cat Category, code Code) uint64 {
	if e, ok := l.entries[key{p, cat, code}]; ok {
		return e.count
	}
	return 0
}

// Strings returns the example strings kept for a problem.
func (l *Ledger) Strings(p *Parser, cat Category, code Code) []string {
	if e, ok := l.entries[key{p, cat, code}]; ok {
		return append([]string(nil), e.strings...)
	}
	return nil
}

// Reset forgets everything recorded so far.
func (l *Ledger) Reset() {
	l.entries = map[key]*entry{}
	l.parsers = nil
	l.errors = false
	l.warnings = false
}

var footers = [categoryCount]string{
	Undecodable: "Error: undecodable content, the file cannot be parsed.",
	Unsupported: "Error: unsupported content, the file cannot be stored reversibly.",
	Incoherent:  "Warning: incoherent content, please check the file.",
	Invalid:     "Warning: non-conforming content, please check the file.",
}

// Render formats the recorded problems, one line per parser, category and
// code, followed by one footer per category seen.
func (l *Ledger) Render() string {
	var b strings.Builder
	var seen [categoryCount]bool
	for _, p := range l.parsers {
		keys := make([]key, 0, len(l.entries))
		for k := range l.entries {
			if k.parser == p {
				keys = append(keys, k)
			}
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].cat != keys[j].cat {
				return keys[i].cat < keys[j].cat
			}
			return keys[i].code < keys[j].code
		})
		for _, k := range keys {
			e := l.entries[k]
			seen[k.cat] = true
			fmt.Fprintf(&b, "%s: %s: %s", p.Name, k.cat, p.CodeName(k.cat, k.code))
			if len(e.strings) > 0 {
				fmt.Fprintf(&b, " (%s)", strings.Join(e.strings, ", "))
			} else {
				fmt.Fprintf(&b, " (%d)", e.count)
			}
			b.WriteByte('\n')
		}
	}
	for cat, ok := range seen {
		if ok {
			b.WriteString(footers[cat])
			b.WriteByte('\n')
		}
	}
	return b.String()
}
