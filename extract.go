package dicomframes

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/disintegration/imaging"
)

// ExtractFile converts one DICOM file into PNG frames under outputRoot. The
// returned Result is always populated; problems with this one file land in
// Result.Err so that callers looping over many files can keep going.
func ExtractFile(sourcePath, outputRoot string, opts ...Option) Result {
	img, err := DecodeDicomFile(sourcePath)
	if err != nil {
		return Result{Source: sourcePath, Err: err}
	}

	res := extractDecoded(img, filepath.Base(sourcePath), outputRoot, opts...)
	res.Source = sourcePath

	return res
}

// ExtractReader converts one DICOM read from r (nBytes long) into PNG frames
// under outputRoot. sourceName supplies the base name that the output folder
// is derived from, since the reader itself has no name.
func ExtractReader(r io.Reader, nBytes int64, sourceName, outputRoot string, opts ...Option) Result {
	img, err := DecodeDicom(r, nBytes)
	if err != nil {
		return Result{Source: sourceName, Err: err}
	}

	return extractDecoded(img, sourceName, outputRoot, opts...)
}

func extractDecoded(img *DicomImage, sourceName, outputRoot string, opts ...Option) Result {
	res := Result{
		Source:              sourceName,
		Rows:                img.Rows,
		Cols:                img.Cols,
		HasReferencedImages: img.HasReferencedImages,
	}

	if img.PixelData == nil {
		res.NoPixelData = true

		log.Printf("No pixel data found in %s\n", sourceName)
		if img.HasReferencedImages {
			log.Printf("%s references images stored in other files rather than containing them\n", sourceName)
		}

		return res
	}

	res.OutputDir = OutputDirName(sourceName, outputRoot)

	options := newExtractOptions(opts...)
	var overlay *Overlay
	if options.IncludeOverlay {
		overlay = img.Overlay
	}

	written, skipped, err := WriteFrames(img.PixelData, overlay, res.OutputDir, opts...)
	res.FramesWritten = written
	res.SkippedFrames = skipped
	res.Err = err

	if err == nil && options.CineGIF && len(img.PixelData.Frames) > 1 {
		if gifErr := writeCineGIF(img.PixelData, overlay, res.OutputDir, options.GIFDelay); gifErr != nil {
			log.Printf("Error writing cine gif for %s: %v\n", sourceName, gifErr)
		}
	}

	return res
}

// OutputDirName returns the folder that receives the extracted frames for
// the named source: <outputRoot>/<base name minus final extension>_extracted.
func OutputDirName(sourceName, outputRoot string) string {
	base := filepath.Base(sourceName)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	return filepath.Join(outputRoot, stem+"_extracted")
}

// WriteFrames renders every frame of buf as a PNG inside outputDir, creating
// the directory first. A rank-2 buffer produces one single_frame.png; rank-3
// and rank-4 buffers produce frame_0000.png onward, where each file keeps
// its original frame index even when earlier frames were skipped. A frame
// whose shape cannot be exported is reported, recorded in skipped, and
// passed over; the remaining frames are still written. Ranks other than 2,
// 3, and 4 fail with ErrUnrecognizedRank, leaving the directory empty.
func WriteFrames(buf *PixelBuffer, overlay *Overlay, outputDir string, opts ...Option) (written int, skipped []int, err error) {
	options := newExtractOptions(opts...)

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, nil, pfx.Err(err)
	}

	switch buf.Rank {
	case 2:
		if len(buf.Frames) < 1 {
			return 0, nil, fmt.Errorf("%w: rank 2 buffer holds no frame", ErrFrameShape)
		}

		frameImg, err := FrameImage(buf.Frames[0], buf.SampleType)
		if err != nil {
			return 0, nil, err
		}

		if err := saveFramePNG(frameImg, overlay, filepath.Join(outputDir, "single_frame.png"), options); err != nil {
			return 0, nil, err
		}

		return 1, nil, nil

	case 3, 4:
		for i, fr := range buf.Frames {
			frameImg, err := FrameImage(fr, buf.SampleType)
			if err != nil {
				log.Printf("Skipping frame %d: %v\n", i, err)
				skipped = append(skipped, i)

				continue
			}

			outName := filepath.Join(outputDir, fmt.Sprintf("frame_%04d.png", i))
			if err := saveFramePNG(frameImg, overlay, outName, options); err != nil {
				return written, skipped, err
			}

			written++
		}

		return written, skipped, nil
	}

	return 0, nil, fmt.Errorf("%w: rank %d", ErrUnrecognizedRank, buf.Rank)
}

func saveFramePNG(frameImg draw.Image, overlay *Overlay, outName string, options ExtractOptions) error {
	overlay.Apply(frameImg)

	var outImg image.Image = frameImg
	if options.ScaleFactor > 1 {
		size := frameImg.Bounds().Size()
		outImg = imaging.Resize(frameImg, options.ScaleFactor*size.X, options.ScaleFactor*size.Y, imaging.NearestNeighbor)
	}

	f, err := os.Create(outName)
	if err != nil {
		return pfx.Err(err)
	}

	if err := png.Encode(f, outImg); err != nil {
		f.Close()

		return pfx.Err(err)
	}

	return f.Close()
}
