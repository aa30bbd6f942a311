package rawcooked

import "errors"

// MaxEB is the largest value an EB integer can hold.
const MaxEB = 1<<56 - 2

var (
	errEBTooLarge = errors.New("value too large for an EB integer")
	errEBInvalid  = errors.New("invalid EB integer")
	errEBShort    = errors.New("EB integer goes past end of buffer")
)

// SizeEB returns the number of bytes of the EB encoding of v. The all-ones
// value of each length is reserved, so it is pushed to the next length.
func SizeEB(v uint64) int {
	n := 1
	for n < 8 && v >= 1<<(7*uint(n))-1 {
		n++
	}
	return n
}

// AppendEB appends the EB encoding of v to b. v must not exceed MaxEB.
func AppendEB(b []byte, v uint64) []byte {
	if v > MaxEB {
		panic(errEBTooLarge)
	}
	n := SizeEB(v)
	v |= 1 << (7 * uint(n))
	for i := n - 1; i >= 0; i-- {
		b = append(b, byte(v>>(8*uint(i))))
	}
	return b
}

// putEB writes the EB encoding of v at the start of b and returns its length.
func putEB(b []byte, v uint64) int {
	n := SizeEB(v)
	v |= 1 << (7 * uint(n))
	for i := 0; i < n; i++ {
		b[i] = byte(v >> (8 * uint(n-1-i)))
	}
	return n
}

// ReadEB decodes the EB integer at the start of b and returns it with the
// number of bytes it used.
func ReadEB(b []byte) (uint64, int, error) {
	if len(b) == 0 {
		return 0, 0, errEBShort
	}
	first := b[0]
	n := 1
	for mask := byte(0x80); first&mask == 0; mask >>= 1 {
		n++
		if n > 8 {
			return 0, 0, errEBInvalid
		}
	}
	if len(b) < n {
		return 0, 0, errEBShort
	}
	v := uint64(first) & (1<<(8-uint(n)) - 1)
	for i := 1; i < n; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v, n, nil
}
