package dicomframes

import (
	"image"
	"image/color"
	"image/gif"
	"os"
	"path/filepath"
	"testing"
)

func cineGray(offset int) image.Image {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := 0; i < 16; i++ {
		img.SetGray(i%4, i/4, color.Gray{Y: uint8(offset + i)})
	}

	return img
}

func TestMakeCineGIFSharesPaletteAcrossFrames(t *testing.T) {
	images := []image.Image{cineGray(0), cineGray(60), cineGray(120)}

	outGif, err := MakeCineGIF(images, 6)
	if err != nil {
		t.Fatal(err)
	}

	if len(outGif.Image) != 3 || len(outGif.Delay) != 3 {
		t.Fatalf("Expected 3 frames with 3 delays, got %d and %d", len(outGif.Image), len(outGif.Delay))
	}

	for i, delay := range outGif.Delay {
		if delay != 6 {
			t.Fatalf("Delay %d: got %d, expected 6", i, delay)
		}
	}

	first := outGif.Image[0].Palette
	for i := 1; i < len(outGif.Image); i++ {
		pal := outGif.Image[i].Palette
		if len(pal) != len(first) {
			t.Fatalf("Frame %d: palette size %d differs from frame 0's %d", i, len(pal), len(first))
		}
		for j := range pal {
			if pal[j] != first[j] {
				t.Fatalf("Frame %d: palette entry %d differs from frame 0's", i, j)
			}
		}
	}
}

func TestMakeCineGIFEmptyInput(t *testing.T) {
	if _, err := MakeCineGIF(nil, 4); err == nil {
		t.Fatal("Expected an error for an empty frame list")
	}
}

func TestWriteCineGIF(t *testing.T) {
	frames := make([]FrameBuffer, 4)
	for k := range frames {
		samples := make([]float64, 16)
		for i := range samples {
			samples[i] = float64(k*50 + i)
		}
		frames[k] = FrameBuffer{Rows: 4, Cols: 4, Samples: samples}
	}

	buf := &PixelBuffer{Rank: 3, SampleType: SampleUint8, Frames: frames}
	outputDir := t.TempDir()

	if err := writeCineGIF(buf, nil, outputDir, 4); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(filepath.Join(outputDir, "cine.gif"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	decoded, err := gif.DecodeAll(f)
	if err != nil {
		t.Fatal(err)
	}

	if len(decoded.Image) != 4 {
		t.Fatalf("Expected 4 animation frames, got %d", len(decoded.Image))
	}
	for i, delay := range decoded.Delay {
		if delay != 4 {
			t.Fatalf("Delay %d: got %d, expected 4", i, delay)
		}
	}
}

func TestWriteCineGIFSkipsUnusableFrames(t *testing.T) {
	good := func(offset float64) FrameBuffer {
		samples := make([]float64, 16)
		for i := range samples {
			samples[i] = offset + float64(i)
		}

		return FrameBuffer{Rows: 4, Cols: 4, Samples: samples}
	}

	buf := &PixelBuffer{
		Rank:       3,
		SampleType: SampleUint8,
		Frames: []FrameBuffer{
			good(0),
			{Rows: 4, Cols: 4, Channels: 2, Samples: make([]float64, 32)},
			good(100),
		},
	}

	outputDir := t.TempDir()
	if err := writeCineGIF(buf, nil, outputDir, 4); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(filepath.Join(outputDir, "cine.gif"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	decoded, err := gif.DecodeAll(f)
	if err != nil {
		t.Fatal(err)
	}

	if len(decoded.Image) != 2 {
		t.Fatalf("Expected the bad frame to be dropped, got %d frames", len(decoded.Image))
	}
}

func TestWriteCineGIFNeedsTwoFrames(t *testing.T) {
	buf := &PixelBuffer{
		Rank:       3,
		SampleType: SampleUint8,
		Frames: []FrameBuffer{
			{Rows: 2, Cols: 2, Samples: []float64{1, 2, 3, 4}},
			{Rows: 2, Cols: 2, Channels: 2, Samples: make([]float64, 8)},
		},
	}

	outputDir := t.TempDir()
	if err := writeCineGIF(buf, nil, outputDir, 4); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(outputDir, "cine.gif")); !os.IsNotExist(err) {
		t.Fatalf("Expected no animation from a single usable frame, stat returned %v", err)
	}
}
