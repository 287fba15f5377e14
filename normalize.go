package dicomframes

import (
	"image"
	"image/color"
	"image/draw"
)

// NormalizeFrame rescales one frame's samples onto the 8-bit range using the
// frame's own minimum and maximum: out = 255 * (in - min) / (max - min),
// truncated to uint8. A flat frame (max == min) has no contrast to stretch
// and comes back all zero. Frames that were already 8-bit unsigned pass
// through untouched.
func NormalizeFrame(f FrameBuffer, sampleType SampleType) []uint8 {
	out := make([]uint8, len(f.Samples))
	if len(f.Samples) == 0 {
		return out
	}

	if sampleType == SampleUint8 {
		for i, v := range f.Samples {
			out[i] = uint8(v)
		}

		return out
	}

	min, max := sampleRange(f.Samples)
	if max == min {
		return out
	}

	for i, v := range f.Samples {
		out[i] = uint8(255 * (v - min) / (max - min))
	}

	return out
}

func sampleRange(samples []float64) (min, max float64) {
	min, max = samples[0], samples[0]
	for _, v := range samples[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	return min, max
}

// FrameImage normalizes one frame and renders it as a drawable image. Frames
// without a channel axis become 8-bit grayscale; 3- and 4-channel frames
// become NRGBA. (The png encoder writes an opaque NRGBA image as RGB, so the
// channel count of the output follows the channel count of the input.)
func FrameImage(f FrameBuffer, sampleType SampleType) (draw.Image, error) {
	if err := f.CheckShape(); err != nil {
		return nil, err
	}

	normalized := NormalizeFrame(f, sampleType)

	switch f.Channels {
	case 3:
		img := image.NewNRGBA(image.Rect(0, 0, f.Cols, f.Rows))
		for j := 0; j+2 < len(normalized); j += 3 {
			cell := j / 3

			// %cols and /cols; the row count is not needed here
			img.SetNRGBA(cell%f.Cols, cell/f.Cols, color.NRGBA{
				R: normalized[j],
				G: normalized[j+1],
				B: normalized[j+2],
				A: 0xff,
			})
		}

		return img, nil
	case 4:
		img := image.NewNRGBA(image.Rect(0, 0, f.Cols, f.Rows))
		for j := 0; j+3 < len(normalized); j += 4 {
			cell := j / 4

			img.SetNRGBA(cell%f.Cols, cell/f.Cols, color.NRGBA{
				R: normalized[j],
				G: normalized[j+1],
				B: normalized[j+2],
				A: normalized[j+3],
			})
		}

		return img, nil
	}

	img := image.NewGray(image.Rect(0, 0, f.Cols, f.Rows))
	for j, v := range normalized {
		img.SetGray(j%f.Cols, j/f.Cols, color.Gray{Y: v})
	}

	return img, nil
}
