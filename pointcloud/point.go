package pointcloud

import (
	"image/color"

	"github.com/golang/geo/r3"
)

// NewVector convenience method for creating a vector.
func NewVector(x, y, z float64) r3.Vector {
	return r3.Vector{X: x, Y: y, Z: z}
}

// PointAndData pairs a position with what was recorded about it.
type PointAndData struct {
	P r3.Vector
	D Data
}

// Data is what a scan records about a point besides its position: an optional color and an optional integer value.
// LAS scans store the return intensity as the value.
type Data interface {
	HasColor() bool
	// RGB255 returns the color components; all zero for an uncolored point.
	RGB255() (uint8, uint8, uint8)
	Color() color.Color
	SetColor(c color.NRGBA) Data

	HasValue() bool
	Value() int
	SetValue(v int) Data
}

type dataFlags uint8

const (
	flagColor dataFlags = 1 << iota
	flagValue
)

type pointData struct {
	flags dataFlags
	rgb   color.NRGBA
	value int
}

// NewBasicData returns data for a point known only by its position.
func NewBasicData() Data {
	return &pointData{}
}

// NewColoredData returns data carrying a color.
func NewColoredData(c color.NRGBA) Data {
	return &pointData{flags: flagColor, rgb: c}
}

// NewValueData returns data carrying an integer value.
func NewValueData(v int) Data {
	return &pointData{flags: flagValue, value: v}
}

func (d *pointData) HasColor() bool {
	return d.flags&flagColor != 0
}

func (d *pointData) RGB255() (uint8, uint8, uint8) {
	return d.rgb.R, d.rgb.G, d.rgb.B
}

func (d *pointData) Color() color.Color {
	return &d.rgb
}

func (d *pointData) SetColor(c color.NRGBA) Data {
	d.rgb = c
	d.flags |= flagColor
	return d
}

func (d *pointData) HasValue() bool {
	return d.flags&flagValue != 0
}

func (d *pointData) Value() int {
	return d.value
}

func (d *pointData) SetValue(v int) Data {
	d.value = v
	d.flags |= flagValue
	return d
}
