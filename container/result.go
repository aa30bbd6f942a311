package container

import "github.com/nabil6391/rawcooked/rawcooked"

// Result is what a parser found in a file it accepted.
type Result struct {
	// Format is the container family, e.g. "WAV".
	Format string
	// Flavor is the id of the matching row of the format's flavor table and
	// FlavorName its printable name.
	Flavor     uint8
	FlavorName string
	// PayloadBegin and PayloadEnd delimit the bytes carried by the essence.
	PayloadBegin uint64
	PayloadEnd   uint64
	// Unique is false for files which are one frame of a sequence.
	Unique bool
}

// Unit builds the reversibility unit of buf: everything outside the payload
// range is kept as before and after data.
func (r *Result) Unit(buf []byte, fileName string) *rawcooked.Unit {
	u := &rawcooked.Unit{
		IsUnique:    r.Unique,
		FileName:    []byte(fileName),
		FileSize:    uint64(len(buf)),
		HasFileSize: true,
	}
	end := min(r.PayloadEnd, uint64(len(buf)))
	begin := min(r.PayloadBegin, end)
	if begin > 0 {
		u.Before = buf[:begin]
	}
	if end < uint64(len(buf)) {
		u.After = buf[end:]
	}
	return u
}
