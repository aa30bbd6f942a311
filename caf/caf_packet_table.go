package caf

import (
	"bytes"
	"encoding/binary"
)

type CAFPacketTableHeader struct {
	NumberPackets     int64
	NumberValidFrames int64
	PrimingFrames     int32
	RemainderFrames   int32
}

func (c *CAFPacketTableHeader) decode(b []byte) error {
	return binary.Read(bytes.NewReader(b), binary.BigEndian, c)
}
