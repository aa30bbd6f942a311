package container

import "strings"

// Name is a chunk tag. Four-character codes are stored big-endian, so the
// value of "fmt " is the same whatever the byte order of the container.
type Name uint64

// NewName builds a Name from a 1 to 8 byte code.
func NewName(str string) Name {
	if len(str) == 0 || len(str) > 8 {
		panic("Name must be 1 to 8 bytes")
	}
	var res Name
	for i := 0; i < len(str); i++ {
		res = res<<8 | Name(str[i])
	}
	return res
}

// String returns the printable form of a four-character code, or its
// hexadecimal value when it is not printable.
func (n Name) String() string {
	var b strings.Builder
	for shift := 24; shift >= 0; shift -= 8 {
		c := byte(n >> uint(shift))
		if c < 0x20 || c > 0x7e || n>>32 != 0 {
			return hexName(n)
		}
		b.WriteByte(c)
	}
	return b.String()
}

func hexName(n Name) string {
	const digits = "0123456789ABCDEF"
	var buf [18]byte
	i := len(buf)
	v := uint64(n)
	for {
		i--
		buf[i] = digits[v&0xF]
		v >>= 4
		if v == 0 {
			break
		}
	}
	i--
	buf[i] = 'x'
	i--
	buf[i] = '0'
	return string(buf[i:])
}
