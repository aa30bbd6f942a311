package caf

import (
	"bytes"
	"encoding/binary"
)

const audioFormatSize = 32

// Linear PCM format flags.
const (
	kCAFLinearPCMFormatFlagIsFloat        = 1 << 0
	kCAFLinearPCMFormatFlagIsLittleEndian = 1 << 1
)

var formatLinearPCM = NewFourByteStr("lpcm")

type CAFAudioFormat struct {
	SampleRate        float64
	FormatID          FourByteString
	FormatFlags       uint32
	BytesPerPacket    uint32
	FramesPerPacket   uint32
	ChannelsPerPacket uint32
	BitsPerChannel    uint32
}

func (c *CAFAudioFormat) decode(b []byte) error {
	return binary.Read(bytes.NewReader(b), binary.BigEndian, c)
}
