package caf

import "github.com/nabil6391/rawcooked/container"

// FourByteString is a four-character code as stored in CAF structures.
type FourByteString [4]byte

func NewFourByteStr(str string) FourByteString {
	if len(str) != 4 {
		panic("FourByteString must be 4 bytes")
	}
	res := FourByteString{}
	copy(res[:], str)
	return res
}

func (s FourByteString) String() string { return s.Name().String() }

// Name returns the code as a chunk name.
func (s FourByteString) Name() container.Name {
	return container.NewName(string(s[:]))
}

// readString reads a NUL terminated string from b and returns the rest.
func readString(b []byte) (string, []byte, bool) {
	for i, c := range b {
		if c == 0 {
			return string(b[:i]), b[i+1:], true
		}
	}
	return "", nil, false
}
