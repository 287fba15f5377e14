package dicomframes

import "fmt"

// SampleType identifies the storage type that produced a frame's samples
// before they were widened to float64. Only SampleUint8 changes behavior
// downstream, since 8-bit unsigned frames are exported without rescaling.
type SampleType int

const (
	SampleUint16 SampleType = iota
	SampleInt16
	SampleUint8
	SampleInt8
	SampleUint32
	SampleInt32
	SampleFloat32
	SampleFloat64
)

func (s SampleType) String() string {
	switch s {
	case SampleUint8:
		return "uint8"
	case SampleInt8:
		return "int8"
	case SampleUint16:
		return "uint16"
	case SampleInt16:
		return "int16"
	case SampleUint32:
		return "uint32"
	case SampleInt32:
		return "int32"
	case SampleFloat32:
		return "float32"
	case SampleFloat64:
		return "float64"
	}

	return fmt.Sprintf("SampleType(%d)", int(s))
}

// FrameBuffer holds the samples for one frame in row-major order. Channels is
// 0 when the frame has no trailing channel axis (a plain grayscale frame);
// otherwise it is the length of that axis, with 3 and 4 being the channel
// counts we know how to export.
type FrameBuffer struct {
	Rows     int
	Cols     int
	Channels int
	Samples  []float64
}

// SamplesPerCell reports how many samples make up one pixel of the frame.
func (f FrameBuffer) SamplesPerCell() int {
	if f.Channels == 0 {
		return 1
	}

	return f.Channels
}

// CheckShape reports whether the frame can be exported: its channel count
// must be absent, 3, or 4, and it must carry one sample per cell.
func (f FrameBuffer) CheckShape() error {
	switch f.Channels {
	case 0, 3, 4:
	default:
		return fmt.Errorf("%w: %d channels", ErrFrameShape, f.Channels)
	}

	if want := f.Rows * f.Cols * f.SamplesPerCell(); len(f.Samples) != want {
		return fmt.Errorf("%w: have %d samples, want %d", ErrFrameShape, len(f.Samples), want)
	}

	return nil
}

// PixelBuffer is the decoded pixel content of one DICOM file. Rank follows
// the shape of the underlying data: 2 for a single grayscale frame, 3 for a
// stack of grayscale frames, 4 for a stack of multi-channel frames. Any
// other rank is rejected at extraction time.
type PixelBuffer struct {
	Rank       int
	SampleType SampleType
	Frames     []FrameBuffer
}
