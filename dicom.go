package dicomframes

import (
	"fmt"
	"image"
	"io"
	"os"

	"github.com/carbocation/pfx"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/dicomtag"
	"github.com/suyashkumar/dicom/element"
	"github.com/suyashkumar/dicom/frame"
)

// DicomImage is the pixel-relevant slice of one parsed DICOM file.
type DicomImage struct {
	// PixelData is nil when the file carries no pixel data element.
	PixelData *PixelBuffer

	// Overlay is the group-0x6000 overlay plane, if one was present.
	Overlay *Overlay

	// Rows and Cols are the image dimensions from the DICOM header.
	Rows int
	Cols int

	// HasReferencedImages is set when a Referenced Image Sequence element is
	// present, meaning the file points to images stored elsewhere.
	HasReferencedImages bool
}

// DecodeDicomFile parses the DICOM file at path. A path that does not exist
// is reported as ErrMissingInput; content that cannot be parsed as DICOM is
// reported as ErrNotDicom. Both are per-file conditions that batch callers
// recover from.
func DecodeDicomFile(path string) (*DicomImage, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingInput, path)
		}

		return nil, pfx.Err(err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, pfx.Err(err)
	}

	return DecodeDicom(f, stat.Size())
}

// DecodeDicom parses one DICOM read from r, whose full length is nBytes.
func DecodeDicom(r io.Reader, nBytes int64) (*DicomImage, error) {
	p, err := dicom.NewParser(r, nBytes, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDicom, err)
	}

	parsedData, err := safelyParse(p, dicom.ParseOptions{
		DropPixelData: false,
	})
	if parsedData == nil || err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDicom, err)
	}

	return decodeDataSet(parsedData)
}

// safelyParse consumes panics emitted by the dicom library, which are
// inappropriate and must be captured in order to turn them into recoverable
// errors.
func safelyParse(p dicom.Parser, opts dicom.ParseOptions) (parsedData *element.DataSet, err error) {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			err = fmt.Errorf("%v", panicErr)
		}
	}()

	return p.Parse(opts)
}

// decodeDataSet converts parsed elements into a DicomImage, capturing the
// panics that malformed element values provoke the same way safelyParse does
// for the parser itself.
func decodeDataSet(parsedData *element.DataSet) (out *DicomImage, err error) {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			out = nil
			err = fmt.Errorf("%w: %v", ErrNotDicom, panicErr)
		}
	}()

	return dicomImageFromDataSet(parsedData)
}

// dicomImageFromDataSet walks the parsed elements and assembles the typed
// pixel representation that the extraction pipeline consumes.
func dicomImageFromDataSet(parsedData *element.DataSet) (*DicomImage, error) {
	out := &DicomImage{}

	// 16-bit unsigned single-sample pixels unless the header says otherwise
	var bitsAllocated uint16 = 16
	var pixelRepresentation uint16
	var samplesPerPixel uint16 = 1

	var pixelElem *element.Element
	overlay := &Overlay{}

	for _, elem := range parsedData.Elements {
		if elem.Tag == dicomtag.Rows {
			out.Rows = int(elem.Value[0].(uint16))
		} else if elem.Tag == dicomtag.Columns {
			out.Cols = int(elem.Value[0].(uint16))
		} else if elem.Tag == dicomtag.BitsAllocated {
			bitsAllocated = elem.Value[0].(uint16)
		} else if elem.Tag == dicomtag.PixelRepresentation {
			pixelRepresentation = elem.Value[0].(uint16)
		} else if elem.Tag == dicomtag.SamplesPerPixel {
			samplesPerPixel = elem.Value[0].(uint16)
		} else if elem.Tag.Compare(dicomtag.Tag{Group: 0x0008, Element: 0x1140}) == 0 {
			out.HasReferencedImages = true
		} else if elem.Tag.Compare(dicomtag.Tag{Group: 0x6000, Element: 0x0010}) == 0 {
			overlay.Rows = int(elem.Value[0].(uint16))
		} else if elem.Tag.Compare(dicomtag.Tag{Group: 0x6000, Element: 0x0011}) == 0 {
			overlay.Cols = int(elem.Value[0].(uint16))
		} else if elem.Tag.Compare(dicomtag.Tag{Group: 0x6000, Element: 0x3000}) == 0 {
			overlay.Bits = unpackOverlayBits(elem.Value)
		} else if elem.Tag == dicomtag.PixelData {
			pixelElem = elem
		}
	}

	if len(overlay.Bits) > 0 {
		out.Overlay = overlay
	}

	if pixelElem == nil {
		return out, nil
	}

	buf, err := pixelBufferFromElement(pixelElem, out.Rows, out.Cols, bitsAllocated, pixelRepresentation, samplesPerPixel)
	if err != nil {
		return nil, err
	}
	out.PixelData = buf

	return out, nil
}

// pixelBufferFromElement widens the frames of a pixel data element into the
// typed buffer. Native frames keep their raw samples (sign-extended when the
// header declares two's-complement data); encapsulated frames are decoded by
// the dicom library and converted back to samples.
func pixelBufferFromElement(elem *element.Element, rows, cols int, bitsAllocated, pixelRepresentation, samplesPerPixel uint16) (*PixelBuffer, error) {
	data, ok := elem.Value[0].(element.PixelDataInfo)
	if !ok {
		return nil, fmt.Errorf("%w: pixel data element held %T", ErrNotDicom, elem.Value[0])
	}

	buf := &PixelBuffer{
		SampleType: nativeSampleType(bitsAllocated, pixelRepresentation),
	}

	for _, fr := range data.Frames {
		if fr.IsEncapsulated() {
			encImg, err := fr.GetImage()
			if err != nil {
				return nil, pfx.Err(err)
			}

			fb, sampleType := frameBufferFromImage(encImg)
			buf.SampleType = sampleType
			buf.Frames = append(buf.Frames, fb)

			continue
		}

		buf.Frames = append(buf.Frames, frameBufferFromNative(fr.NativeData, rows, cols, int(samplesPerPixel), buf.SampleType))
	}

	if len(buf.Frames) == 0 {
		return nil, fmt.Errorf("%w: pixel data element contained no frames", ErrNotDicom)
	}

	switch {
	case len(buf.Frames) == 1 && buf.Frames[0].Channels == 0:
		buf.Rank = 2
	case buf.Frames[0].Channels == 0:
		buf.Rank = 3
	default:
		// A single color frame still has frame x height x width x channel
		// shape, so it lands here alongside multi-frame color data.
		buf.Rank = 4
	}

	return buf, nil
}

// frameBufferFromNative widens one native frame. Each entry of Data is one
// pixel, holding one sample per channel.
func frameBufferFromNative(nd frame.NativeFrame, rows, cols, samplesPerPixel int, sampleType SampleType) FrameBuffer {
	fb := FrameBuffer{Rows: rows, Cols: cols}
	if samplesPerPixel > 1 {
		fb.Channels = samplesPerPixel
	}

	fb.Samples = make([]float64, 0, len(nd.Data)*samplesPerPixel)
	for _, cell := range nd.Data {
		for _, sample := range cell {
			fb.Samples = append(fb.Samples, float64(signExtend(sample, sampleType)))
		}
	}

	return fb
}

// frameBufferFromImage converts a frame the dicom library decoded for us back
// into samples so that it rejoins the normalization pipeline.
func frameBufferFromImage(img image.Image) (FrameBuffer, SampleType) {
	bounds := img.Bounds()
	fb := FrameBuffer{Rows: bounds.Dy(), Cols: bounds.Dx()}

	switch typed := img.(type) {
	case *image.Gray:
		fb.Samples = make([]float64, 0, fb.Rows*fb.Cols)
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				fb.Samples = append(fb.Samples, float64(typed.GrayAt(x, y).Y))
			}
		}

		return fb, SampleUint8
	case *image.Gray16:
		fb.Samples = make([]float64, 0, fb.Rows*fb.Cols)
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				fb.Samples = append(fb.Samples, float64(typed.Gray16At(x, y).Y))
			}
		}

		return fb, SampleUint16
	}

	// Anything else is treated as 8-bit color
	fb.Channels = 3
	fb.Samples = make([]float64, 0, fb.Rows*fb.Cols*3)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			fb.Samples = append(fb.Samples, float64(r>>8), float64(g>>8), float64(b>>8))
		}
	}

	return fb, SampleUint8
}

// nativeSampleType maps BitsAllocated and PixelRepresentation onto the
// storage type of the raw samples. DICOM uses PixelRepresentation 1 to mark
// two's-complement data.
func nativeSampleType(bitsAllocated, pixelRepresentation uint16) SampleType {
	signed := pixelRepresentation == 1

	switch bitsAllocated {
	case 8:
		if signed {
			return SampleInt8
		}

		return SampleUint8
	case 32:
		if signed {
			return SampleInt32
		}

		return SampleUint32
	}

	if signed {
		return SampleInt16
	}

	return SampleUint16
}

// signExtend reinterprets a raw sample's low bits for the signed sample
// types. The parser reads native samples as unsigned, so a 16-bit -1 arrives
// as 0xFFFF.
func signExtend(v int, sampleType SampleType) int {
	switch sampleType {
	case SampleInt8:
		return int(int8(v))
	case SampleInt16:
		return int(int16(v))
	case SampleInt32:
		return int(int32(v))
	}

	return v
}
