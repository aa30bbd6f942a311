package rawcooked

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReversibility is returned for data that does not start with a
	// rawcooked EBML header.
	ErrNotReversibility = errors.New("not reversibility data")
	// ErrCorrupt is returned for malformed reversibility data.
	ErrCorrupt = errors.New("corrupt reversibility data")
	// ErrVersion is returned when the data needs a newer reader.
	ErrVersion = errors.New("unsupported reversibility version")
)

// Header is the content of the EBML header and Segment elements.
type Header struct {
	DocType        string
	Version        uint64
	ReadVersion    uint64
	LibraryName    string
	LibraryVersion string
	PathSeparator  string
}

// Record is one decoded Block or Attachment with masks removed.
type Record struct {
	// Track counts Track elements seen before this record, starting at 1.
	// It is 0 for attachments written before any track.
	Track        int
	IsAttachment bool

	FileName []byte
	Before   []byte
	After    []byte
	In       []byte

	FileSize    uint64
	HasFileSize bool

	Hash *Hash
}

// rawElement is one element as found on the wire.
type rawElement struct {
	name    uint64
	payload []byte
}

// readElements splits b into consecutive elements.
func readElements(b []byte) ([]rawElement, error) {
	var els []rawElement
	for len(b) > 0 {
		name, n, err := ReadEB(b)
		if err != nil {
			return nil, fmt.Errorf("%w: element name: %v", ErrCorrupt, err)
		}
		b = b[n:]
		size, n, err := ReadEB(b)
		if err != nil {
			return nil, fmt.Errorf("%w: size of element 0x%x: %v", ErrCorrupt, name, err)
		}
		b = b[n:]
		if size > uint64(len(b)) {
			return nil, fmt.Errorf("%w: element 0x%x needs %d bytes, %d left", ErrCorrupt, name, size, len(b))
		}
		els = append(els, rawElement{name: name, payload: b[:size]})
		b = b[size:]
	}
	return els, nil
}

func readNumber(b []byte) (uint64, error) {
	if len(b) == 0 || len(b) > 8 {
		return 0, fmt.Errorf("%w: number of %d bytes", ErrCorrupt, len(b))
	}
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v, nil
}

// readBuffer returns the inflated content of a compressible payload.
func readBuffer(b []byte) ([]byte, error) {
	size, n, err := ReadEB(b)
	if err != nil {
		return nil, fmt.Errorf("%w: uncompressed size: %v", ErrCorrupt, err)
	}
	return Inflate(b[n:], size)
}

func readHash(b []byte) (*Hash, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty hash", ErrCorrupt)
	}
	s := HashScheme(b[0])
	if err := s.Valid(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(b)-1 != s.Size() {
		return nil, fmt.Errorf("%w: %s digest of %d bytes", ErrCorrupt, s, len(b)-1)
	}
	return &Hash{Scheme: s, Sum: append([]byte{}, b[1:]...)}, nil
}

func readHeader(h *Header, payload []byte) error {
	els, err := readElements(payload)
	if err != nil {
		return err
	}
	for _, el := range els {
		switch el.name {
		case nameDocType:
			h.DocType = string(el.payload)
		case nameDocTypeVersion:
			if h.Version, err = readNumber(el.payload); err != nil {
				return err
			}
		case nameDocTypeReadVersion:
			if h.ReadVersion, err = readNumber(el.payload); err != nil {
				return err
			}
		}
	}
	if h.DocType != DocType {
		return fmt.Errorf("%w: doctype %q", ErrNotReversibility, h.DocType)
	}
	if h.ReadVersion > DocTypeReadVersion {
		return fmt.Errorf("%w: read version %d", ErrVersion, h.ReadVersion)
	}
	return nil
}

func readSegment(h *Header, payload []byte) error {
	els, err := readElements(payload)
	if err != nil {
		return err
	}
	for _, el := range els {
		switch el.name {
		case nameLibraryName:
			h.LibraryName = string(el.payload)
		case nameLibraryVersion:
			h.LibraryVersion = string(el.payload)
		case namePathSeparator:
			h.PathSeparator = string(el.payload)
		}
	}
	return nil
}

// readTrack returns the templates held by a Track element.
func readTrack(payload []byte) (track, error) {
	var t track
	els, err := readElements(payload)
	if err != nil {
		return t, err
	}
	for _, el := range els {
		var dst *[]byte
		switch el.name {
		case nameMaskName:
			dst = &t.fileName
		case nameMaskBefore:
			dst = &t.before
		case nameMaskAfter:
			dst = &t.after
		case nameMaskIn:
			dst = &t.in
		case nameMaskSize:
			if t.fileSize, err = readNumber(el.payload); err != nil {
				return t, err
			}
			t.hasFileSize = true
			continue
		default:
			continue
		}
		if *dst, err = readBuffer(el.payload); err != nil {
			return t, err
		}
	}
	return t, nil
}

func readRecord(r *Record, t *track, payload []byte) error {
	els, err := readElements(payload)
	if err != nil {
		return err
	}
	for _, el := range els {
		var (
			dst      *[]byte
			template []byte
			masked   bool
		)
		switch el.name {
		case nameFileName:
			dst = &r.FileName
		case nameBeforeData:
			dst = &r.Before
		case nameAfterData:
			dst = &r.After
		case nameInData:
			dst = &r.In
		case nameMaskName:
			dst, template, masked = &r.FileName, t.fileName, true
		case nameMaskBefore:
			dst, template, masked = &r.Before, t.before, true
		case nameMaskAfter:
			dst, template, masked = &r.After, t.after, true
		case nameMaskIn:
			dst, template, masked = &r.In, t.in, true
		case nameFileSize, nameMaskSize:
			v, err := readNumber(el.payload)
			if err != nil {
				return err
			}
			if el.name == nameMaskSize {
				if !t.hasFileSize {
					return fmt.Errorf("%w: file size delta without template", ErrCorrupt)
				}
				v += t.fileSize
			}
			r.FileSize, r.HasFileSize = v, true
			continue
		case nameFileHash:
			if r.Hash, err = readHash(el.payload); err != nil {
				return err
			}
			continue
		default:
			continue
		}
		content, err := readBuffer(el.payload)
		if err != nil {
			return err
		}
		if masked {
			if template == nil {
				return fmt.Errorf("%w: delta 0x%x without template", ErrCorrupt, el.name)
			}
			content = Unmask(content, template)
		}
		*dst = content
	}
	return nil
}

// Decode parses a complete reversibility stream, as written by one Encoder,
// and returns its header and records in order.
func Decode(data []byte) (*Header, []Record, error) {
	els, err := readElements(data)
	if err != nil {
		return nil, nil, err
	}
	if len(els) == 0 || els[0].name != nameEBML {
		return nil, nil, ErrNotReversibility
	}
	h := &Header{}
	if err := readHeader(h, els[0].payload); err != nil {
		return nil, nil, err
	}

	var (
		records []Record
		t       track
		tracks  int
	)
	for _, el := range els[1:] {
		switch el.name {
		case nameSegment:
			if err := readSegment(h, el.payload); err != nil {
				return nil, nil, err
			}
		case nameTrack:
			if t, err = readTrack(el.payload); err != nil {
				return nil, nil, err
			}
			tracks++
		case nameBlock:
			r := Record{Track: tracks}
			if err := readRecord(&r, &t, el.payload); err != nil {
				return nil, nil, err
			}
			records = append(records, r)
		case nameAttachment:
			r := Record{Track: tracks, IsAttachment: true}
			if err := readRecord(&r, &track{}, el.payload); err != nil {
				return nil, nil, err
			}
			records = append(records, r)
		}
	}
	return h, records, nil
}
