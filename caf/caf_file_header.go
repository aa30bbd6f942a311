package caf

import (
	"bytes"
	"encoding/binary"
	"errors"
)

var errInvalidHeader = errors.New("invalid caff header")

const fileHeaderSize = 8

type CAFFileHeader struct {
	FileType    FourByteString
	FileVersion int16
	FileFlags   int16
}

func (h *CAFFileHeader) Decode(b []byte) error {
	if err := binary.Read(bytes.NewReader(b), binary.BigEndian, h); err != nil {
		return err
	}
	if h.FileType != NewFourByteStr("caff") {
		return errInvalidHeader
	}
	return nil
}
