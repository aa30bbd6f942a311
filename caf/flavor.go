package caf

import (
	"fmt"

	"github.com/nabil6391/rawcooked/container"
)

// Flavor is the id of a supported linear PCM layout: its row in the flavor
// table.
type Flavor uint8

type flavorInfo struct {
	rate       uint32
	bits       uint8
	channels   uint8
	endianness container.Endianness
}

var flavors = func() []flavorInfo {
	var t []flavorInfo
	for _, r := range []uint32{44100, 48000, 96000} {
		for _, b := range []uint8{16, 24} {
			for _, c := range []uint8{1, 2, 6, 8} {
				for _, e := range []container.Endianness{container.BigEndian, container.LittleEndian} {
					t = append(t, flavorInfo{rate: r, bits: b, channels: c, endianness: e})
				}
			}
		}
	}
	return t
}()

func (f Flavor) String() string {
	if int(f) >= len(flavors) {
		return fmt.Sprintf("Flavor(%d)", uint8(f))
	}
	i := flavors[f]
	return fmt.Sprintf("LPCM_%d_%d_%d_%s", i.rate, i.bits, i.channels, i.endianness)
}

// Classify returns the flavor of signed integer linear PCM.
func Classify(rate, bits, channels uint64, e container.Endianness) (Flavor, bool) {
	for i, f := range flavors {
		if uint64(f.rate) == rate && uint64(f.bits) == bits && uint64(f.channels) == channels && f.endianness == e {
			return Flavor(i), true
		}
	}
	return 0, false
}
