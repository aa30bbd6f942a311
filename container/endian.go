package container

// Endianness is the byte order of samples, as used by flavor tables.
type Endianness uint8

const (
	BigEndian Endianness = iota
	LittleEndian
)

func (e Endianness) String() string {
	if e == LittleEndian {
		return "LE"
	}
	return "BE"
}
