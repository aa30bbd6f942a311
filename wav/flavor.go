package wav

import "fmt"

// Flavor is the id of a supported PCM layout: its row in the flavor table.
type Flavor uint8

type flavorInfo struct {
	rate     uint32
	bits     uint8
	channels uint8
}

var (
	rates    = []uint32{44100, 48000, 96000}
	depths   = []uint8{8, 16, 24}
	channels = []uint8{1, 2, 6, 8}
)

var flavors = func() []flavorInfo {
	var t []flavorInfo
	for _, r := range rates {
		for _, b := range depths {
			for _, c := range channels {
				t = append(t, flavorInfo{rate: r, bits: b, channels: c})
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
	return fmt.Sprintf("PCM_%d_%d_%d", i.rate, i.bits, i.channels)
}

// Classify returns the flavor of integer PCM with the given layout. 8-bit
// samples are unsigned, wider ones signed little-endian.
func Classify(rate, bits, channels uint64) (Flavor, bool) {
	for i, f := range flavors {
		if uint64(f.rate) == rate && uint64(f.bits) == bits && uint64(f.channels) == channels {
			return Flavor(i), true
		}
	}
	return 0, false
}
