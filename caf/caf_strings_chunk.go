package caf

import (
	"bytes"
	"encoding/binary"
)

type Information struct {
	Key   string
	Value string
}

type CAFStringsChunk struct {
	NumEntries uint32
	Strings    []Information
}

func (c *CAFStringsChunk) decode(b []byte) error {
	if err := binary.Read(bytes.NewReader(b), binary.BigEndian, &c.NumEntries); err != nil {
		return err
	}
	b = b[4:]
	for i := uint32(0); i < c.NumEntries; i++ {
		var info Information
		var ok bool
		if info.Key, b, ok = readString(b); !ok {
			return errInvalidStrings
		}
		if info.Value, b, ok = readString(b); !ok {
			return errInvalidStrings
		}
		c.Strings = append(c.Strings, info)
	}
	return nil
}
