package dicomframes

import (
	"image/color"
	"image/draw"
)

// Overlay is a bitmap overlay plane from DICOM group 0x6000: a grid of
// one-bit cells that annotate the image (commonly a region-of-interest
// outline on cardiac MRI).
type Overlay struct {
	Rows int
	Cols int

	// Bits holds one value per overlay cell, row-major, 0 or 1.
	Bits []int
}

// unpackOverlayBits expands packed overlay data, least significant bit
// first, into one int per overlay cell.
func unpackOverlayBits(value []interface{}) []int {
	var overlayPixels []int

	for _, enclosed := range value {
		// There should be one enclosure, and it should contain a slice of
		// bytes, one bit per cell.
		cellVals, ok := enclosed.([]byte)
		if !ok {
			continue
		}

		nBits := 8

		overlayPixels = make([]int, nBits*len(cellVals))

		for i := range cellVals {
			byteAsInt := cellVals[i]
			for j := 0; j < nBits; j++ {
				overlayPixels[i*nBits+j] = int((byteAsInt >> uint(j)) & 1)
			}
		}
	}

	return overlayPixels
}

// Apply paints the set overlay cells white onto img. The overlay grid is
// assumed to match the image grid, which holds for the files we process.
func (o *Overlay) Apply(img draw.Image) {
	if o == nil || len(o.Bits) == 0 || o.Cols < 1 {
		return
	}

	for i, overlayValue := range o.Bits {
		row := i / o.Cols
		col := i % o.Cols

		if overlayValue != 0 {
			img.Set(col, row, color.White)
		}
	}
}
