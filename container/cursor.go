package container

import (
	"encoding/binary"
	"errors"
)

// ErrShortBuffer is set on a Cursor when a read would go past its end.
var ErrShortBuffer = errors.New("read past end of buffer")

// Cursor reads fixed-width values from an immutable buffer. A read past the
// end returns zero and leaves the cursor in error; check Err once after a
// group of reads.
type Cursor struct {
	Buf   []byte
	Off   uint64
	Order binary.ByteOrder
	err   error
}

// NewCursor returns a Cursor positioned at the start of buf.
func NewCursor(buf []byte, order binary.ByteOrder) *Cursor {
	return &Cursor{Buf: buf, Order: order}
}

// Err returns ErrShortBuffer if a read went past the end.
func (c *Cursor) Err() error { return c.err }

// Len returns the size of the buffer.
func (c *Cursor) Len() uint64 { return uint64(len(c.Buf)) }

// Remaining returns the number of bytes after the read offset.
func (c *Cursor) Remaining() uint64 {
	if c.Off >= c.Len() {
		return 0
	}
	return c.Len() - c.Off
}

func (c *Cursor) take(n uint64) []byte {
	if c.err != nil || n > c.Remaining() {
		c.err = ErrShortBuffer
		return nil
	}
	b := c.Buf[c.Off : c.Off+n]
	c.Off += n
	return b
}

// Skip advances the offset by n bytes.
func (c *Cursor) Skip(n uint64) {
	c.take(n)
}

// Bytes returns the next n bytes without copying them.
func (c *Cursor) Bytes(n uint64) []byte {
	return c.take(n)
}

// U8 reads one byte.
func (c *Cursor) U8() uint8 {
	b := c.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// U16 reads two bytes in the cursor byte order.
func (c *Cursor) U16() uint16 {
	b := c.take(2)
	if b == nil {
		return 0
	}
	return c.Order.Uint16(b)
}

// U32 reads four bytes in the cursor byte order.
func (c *Cursor) U32() uint32 {
	b := c.take(4)
	if b == nil {
		return 0
	}
	return c.Order.Uint32(b)
}

// U64 reads eight bytes in the cursor byte order.
func (c *Cursor) U64() uint64 {
	b := c.take(8)
	if b == nil {
		return 0
	}
	return c.Order.Uint64(b)
}

// Uint reads an n byte unsigned value (n is 1, 2, 4 or 8) in the cursor byte
// order.
func (c *Cursor) Uint(n int) uint64 {
	switch n {
	case 1:
		return uint64(c.U8())
	case 2:
		return uint64(c.U16())
	case 4:
		return uint64(c.U32())
	case 8:
		return c.U64()
	}
	panic("unsupported integer width")
}

// Name reads an n byte code, always big-endian.
func (c *Cursor) Name(n int) Name {
	b := c.take(uint64(n))
	var res Name
	for _, v := range b {
		res = res<<8 | Name(v)
	}
	return res
}
