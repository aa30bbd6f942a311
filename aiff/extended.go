package aiff

import "encoding/binary"

// sampleRate decodes the 80-bit IEEE 754 extended sample rate of a COMM
// chunk. ok is false for negative rates and rates with a fractional part.
func sampleRate(b []byte) (rate uint64, ok bool) {
	se := binary.BigEndian.Uint16(b)
	mantissa := binary.BigEndian.Uint64(b[2:])
	if se&0x8000 != 0 {
		return 0, false
	}
	if mantissa == 0 {
		return 0, true
	}
	e := int(se&0x7FFF) - 16383
	if e < 0 || e > 63 {
		return 0, false
	}
	shift := uint(63 - e)
	if mantissa&(uint64(1)<<shift-1) != 0 {
		return 0, false
	}
	return mantissa >> shift, true
}
