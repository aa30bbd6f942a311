package tiff

import (
	"fmt"

	"github.com/nabil6391/rawcooked/container"
)

// Colorspace is the pixel layout of an image.
type Colorspace uint8

const (
	Y Colorspace = iota
	RGB
	RGBA
)

var colorspaceNames = [...]string{"Y", "RGB", "RGBA"}

func (c Colorspace) String() string {
	if int(c) < len(colorspaceNames) {
		return colorspaceNames[c]
	}
	return fmt.Sprintf("Colorspace(%d)", uint8(c))
}

// Flavor is the id of a supported pixel layout: its row in the flavor table.
type Flavor uint8

type flavorInfo struct {
	colorspace Colorspace
	bits       uint8
	endianness container.Endianness
}

var flavors = func() []flavorInfo {
	var t []flavorInfo
	for _, c := range []Colorspace{Y, RGB, RGBA} {
		t = append(t, flavorInfo{colorspace: c, bits: 8, endianness: container.LittleEndian})
		for _, e := range []container.Endianness{container.LittleEndian, container.BigEndian} {
			t = append(t, flavorInfo{colorspace: c, bits: 16, endianness: e})
		}
	}
	return t
}()

func (f Flavor) String() string {
	if int(f) >= len(flavors) {
		return fmt.Sprintf("Flavor(%d)", uint8(f))
	}
	i := flavors[f]
	if i.bits == 8 {
		return fmt.Sprintf("%s_%d", i.colorspace, i.bits)
	}
	return fmt.Sprintf("%s_%d_%s", i.colorspace, i.bits, i.endianness)
}

// Classify returns the flavor of an image. Byte order does not matter for
// 8-bit samples.
func Classify(c Colorspace, bits uint64, e container.Endianness) (Flavor, bool) {
	if bits == 8 {
		e = container.LittleEndian
	}
	for i, f := range flavors {
		if f.colorspace == c && uint64(f.bits) == bits && f.endianness == e {
			return Flavor(i), true
		}
	}
	return 0, false
}
