package dicomframes

import (
	"image"
	"testing"
)

func TestUnpackOverlayBits(t *testing.T) {
	bits := unpackOverlayBits([]interface{}{[]byte{0x01, 0x80}})

	if len(bits) != 16 {
		t.Fatalf("Bits: got %d, expected 16", len(bits))
	}

	for i, bit := range bits {
		want := 0
		if i == 0 || i == 15 {
			want = 1
		}

		if bit != want {
			t.Fatalf("Bit %d: got %d, expected %d", i, bit, want)
		}
	}
}

func TestUnpackOverlayBitsIgnoresNonBytes(t *testing.T) {
	bits := unpackOverlayBits([]interface{}{"not bytes", []byte{0xFF}})

	if len(bits) != 8 {
		t.Fatalf("Bits: got %d, expected the string entry to be skipped, leaving 8", len(bits))
	}
}

func TestOverlayApply(t *testing.T) {
	o := &Overlay{Rows: 4, Cols: 4, Bits: make([]int, 16)}
	o.Bits[5] = 1

	img := image.NewGray(image.Rect(0, 0, 4, 4))
	o.Apply(img)

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			want := uint8(0)
			if x == 1 && y == 1 {
				want = 255
			}

			if got := img.GrayAt(x, y).Y; got != want {
				t.Fatalf("Pixel (%d,%d): got %d, expected %d", x, y, got, want)
			}
		}
	}
}

func TestOverlayApplyNilReceiver(t *testing.T) {
	var o *Overlay

	// Must be a no-op rather than a panic
	o.Apply(image.NewGray(image.Rect(0, 0, 2, 2)))
}
