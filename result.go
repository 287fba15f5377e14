package dicomframes

import "errors"

// The closed set of per-file failure kinds. Everything else that can go
// wrong is left unclassified and reported with its underlying error text.
var (
	// ErrNotDicom means the input could not be parsed as a DICOM file.
	ErrNotDicom = errors.New("input is not a parseable DICOM file")

	// ErrMissingInput means the input path does not exist.
	ErrMissingInput = errors.New("input does not exist")

	// ErrUnrecognizedRank means the decoded pixel buffer had a rank other
	// than 2, 3, or 4.
	ErrUnrecognizedRank = errors.New("unrecognized pixel buffer rank")

	// ErrFrameShape means one frame's shape did not match any recognized
	// grayscale or color layout. Within a multi-frame file this skips the
	// offending frame rather than failing the file.
	ErrFrameShape = errors.New("unrecognized frame shape")
)

// Result summarizes the outcome of extracting one source file, so that batch
// callers can distinguish "skipped, no pixel data" from "failed" from "wrote
// N frames" without parsing log output.
type Result struct {
	// Source names the input: a file path, a gs:// object, or a zip member.
	Source string

	// OutputDir is the <basename>_extracted folder that received the frames.
	// Empty when nothing was written.
	OutputDir string

	// FramesWritten counts the PNG artifacts produced for this source.
	FramesWritten int

	// SkippedFrames lists the indices of frames whose shape could not be
	// exported. Their filenames are simply absent from OutputDir.
	SkippedFrames []int

	// Rows and Cols echo the image dimensions reported by the DICOM header.
	Rows int
	Cols int

	// NoPixelData is set when the file parsed cleanly but carried no pixel
	// data element. This is an outcome, not an error.
	NoPixelData bool

	// HasReferencedImages is set when the file carries a Referenced Image
	// Sequence, i.e. it points at images stored elsewhere.
	HasReferencedImages bool

	// Err holds the per-file failure, if any. Batch runs never abort on a
	// per-file error.
	Err error
}

// Status classifies the result for reporting and for the batch manifest.
func (r Result) Status() string {
	switch {
	case r.Err != nil:
		return "failed"
	case r.NoPixelData:
		return "no_pixel_data"
	}

	return "extracted"
}
