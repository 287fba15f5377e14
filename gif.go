package dicomframes

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"os"
	"path/filepath"
	"runtime"

	"github.com/carbocation/go-quantize/quantize"
	"github.com/carbocation/pfx"
)

type orderedPaletted struct {
	key   int
	image *image.Paletted
}

// MakeCineGIF creates an animated gif from an ordered slice of frames. The
// delay between frames is in hundredths of a second. The color quantizer is
// built from *all* input frames, and the quantized palette is shared across
// all of the output frames so the animation does not flicker.
func MakeCineGIF(sortedImages []image.Image, delay int) (*gif.GIF, error) {
	if len(sortedImages) < 1 {
		return nil, pfx.Err(fmt.Errorf("no frames were provided"))
	}

	outGif := &gif.GIF{}

	quantizer := quantize.MedianCutQuantizer{
		Aggregation:    quantize.Mean,
		Weighting:      nil,
		AddTransparent: false,
	}

	pal := quantizer.QuantizeMultiple(make([]color.Color, 0, 256), sortedImages)

	// Convert each image to a frame in our animated gif
	palettedImages := make(chan orderedPaletted)
	semaphore := make(chan struct{}, runtime.NumCPU())

	// This is surprisingly slow and so is worth parallelizing.
	go func() {
		for k, img := range sortedImages {
			semaphore <- struct{}{}

			go func(k int, img image.Image) {
				defer func() { <-semaphore }()

				palettedImage := image.NewPaletted(img.Bounds(), pal)
				draw.Draw(palettedImage, img.Bounds(), img, image.Point{}, draw.Over)

				palettedImages <- orderedPaletted{
					key:   k,
					image: palettedImage,
				}
			}(k, img)
		}
	}()

	// Collect the outputs - in order
	sortedPalettedImages := make([]*image.Paletted, len(sortedImages))
	for range sortedImages {
		palettedImage := <-palettedImages
		sortedPalettedImages[palettedImage.key] = palettedImage.image
	}

	// Assemble into a gif
	for _, palettedImage := range sortedPalettedImages {
		outGif.Image = append(outGif.Image, palettedImage)
		outGif.Delay = append(outGif.Delay, delay)
	}

	return outGif, nil
}

// writeCineGIF renders the frames once more and saves an animated preview
// named cine.gif alongside the extracted PNGs. Frames that were skipped
// during PNG extraction are skipped here too, without re-reporting them.
func writeCineGIF(buf *PixelBuffer, overlay *Overlay, outputDir string, delay int) error {
	images := make([]image.Image, 0, len(buf.Frames))
	for _, fr := range buf.Frames {
		frameImg, err := FrameImage(fr, buf.SampleType)
		if err != nil {
			continue
		}

		overlay.Apply(frameImg)
		images = append(images, frameImg)
	}

	// An animation needs at least two usable frames
	if len(images) < 2 {
		return nil
	}

	outGif, err := MakeCineGIF(images, delay)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(filepath.Join(outputDir, "cine.gif"), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return pfx.Err(err)
	}
	defer f.Close()

	return gif.EncodeAll(f, outGif)
}
