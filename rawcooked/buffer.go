package rawcooked

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// Origin tells where the bytes of a Buffer come from.
type Origin uint8

const (
	// Borrowed bytes belong to the caller and are never modified.
	Borrowed Origin = iota
	// Masked bytes were allocated to hold a difference against a template.
	Masked
	// Compressed bytes were allocated to hold a zlib stream.
	Compressed
)

// Buffer is a byte range on its way to the wire, possibly diffed against a
// template and possibly compressed.
type Buffer struct {
	data             []byte
	origin           Origin
	uncompressedSize uint64
}

// Bytes returns the stored bytes.
func (b Buffer) Bytes() []byte { return b.data }

// Len returns the number of stored bytes.
func (b Buffer) Len() int { return len(b.data) }

// Origin returns where the stored bytes come from.
func (b Buffer) Origin() Origin { return b.origin }

// UncompressedSize is the inflated size of compressed bytes, 0 when the bytes
// are stored as is.
func (b Buffer) UncompressedSize() uint64 { return b.uncompressedSize }

// NewMasked returns content minus mask, byte per byte modulo 256, over the
// common length; the tail of content is copied unchanged. Without a mask the
// content is borrowed.
func NewMasked(content, mask []byte) Buffer {
	if mask == nil {
		return Buffer{data: content, origin: Borrowed}
	}
	out := make([]byte, len(content))
	n := copy(out, content)
	if len(mask) < n {
		n = len(mask)
	}
	for i := 0; i < n; i++ {
		out[i] -= mask[i]
	}
	return Buffer{data: out, origin: Masked}
}

// Unmask reverses NewMasked: it returns masked plus mask, modulo 256, over
// the common length, with the tail of masked copied unchanged.
func Unmask(masked, mask []byte) []byte {
	out := make([]byte, len(masked))
	n := copy(out, masked)
	if len(mask) < n {
		n = len(mask)
	}
	for i := 0; i < n; i++ {
		out[i] += mask[i]
	}
	return out
}

// NewCompressed compresses in with zlib at level. When compression fails or
// does not make it smaller, in is kept unchanged with an uncompressed size
// of 0.
func NewCompressed(in Buffer, level int) Buffer {
	raw := Buffer{data: in.data, origin: in.origin}
	if len(in.data) == 0 {
		return raw
	}
	var out bytes.Buffer
	zw, err := zlib.NewWriterLevel(&out, level)
	if err != nil {
		return raw
	}
	if _, err := zw.Write(in.data); err != nil {
		return raw
	}
	if err := zw.Close(); err != nil {
		return raw
	}
	if out.Len() >= len(in.data) {
		return raw
	}
	return Buffer{data: out.Bytes(), origin: Compressed, uncompressedSize: uint64(len(in.data))}
}

// maxInflate bounds the allocation made for a declared uncompressed size.
const maxInflate = 1 << 32

// Inflate returns the original bytes of a stored payload: data itself when
// uncompressedSize is 0, else data inflated to exactly uncompressedSize
// bytes.
func Inflate(data []byte, uncompressedSize uint64) ([]byte, error) {
	if uncompressedSize == 0 {
		return data, nil
	}
	if uncompressedSize > maxInflate {
		return nil, fmt.Errorf("%w: uncompressed size %d", ErrCorrupt, uncompressedSize)
	}
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer zr.Close()
	out := make([]byte, uncompressedSize)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, fmt.Errorf("%w: inflating %d bytes: %v", ErrCorrupt, uncompressedSize, err)
	}
	return out, nil
}
