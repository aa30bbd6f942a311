package caf

import (
	"bytes"
	"encoding/binary"
	"math/bits"
)

const (
	kCAFChannelLayoutTag_UseChannelDescriptions = 0<<16 | 0
	kCAFChannelLayoutTag_UseChannelBitmap       = 1<<16 | 0
)

type CAFChannelLayout struct {
	ChannelLayoutTag          uint32
	ChannelBitmap             uint32
	NumberChannelDescriptions uint32
	Channels                  []CAFChannelDescription
}

type CAFChannelDescription struct {
	ChannelLabel uint32
	ChannelFlags uint32
	Coordinates  [3]float32
}

func (c *CAFChannelLayout) decode(b []byte) error {
	r := bytes.NewReader(b)
	if err := binary.Read(r, binary.BigEndian, &c.ChannelLayoutTag); err != nil {
		return err
	}
	if err := binary.Read(r, binary.BigEndian, &c.ChannelBitmap); err != nil {
		return err
	}
	if err := binary.Read(r, binary.BigEndian, &c.NumberChannelDescriptions); err != nil {
		return err
	}
	if uint64(c.NumberChannelDescriptions)*20 > uint64(r.Len()) {
		return errInvalidLayout
	}
	c.Channels = make([]CAFChannelDescription, c.NumberChannelDescriptions)
	return binary.Read(r, binary.BigEndian, c.Channels)
}

// ChannelCount returns the number of channels the layout describes.
func (c *CAFChannelLayout) ChannelCount() uint32 {
	switch c.ChannelLayoutTag {
	case kCAFChannelLayoutTag_UseChannelDescriptions:
		return c.NumberChannelDescriptions
	case kCAFChannelLayoutTag_UseChannelBitmap:
		return uint32(bits.OnesCount32(c.ChannelBitmap))
	default:
		return c.ChannelLayoutTag & 0xFFFF
	}
}
