package dicomframes

// ExtractOptions collects the optional extraction behaviors. Construct it
// through the Opt* functions.
type ExtractOptions struct {
	IncludeOverlay bool
	CineGIF        bool
	GIFDelay       int
	ScaleFactor    int
}

// Option modifies ExtractOptions.
type Option func(o *ExtractOptions)

func newExtractOptions(opts ...Option) ExtractOptions {
	options := ExtractOptions{
		GIFDelay:    4,
		ScaleFactor: 1,
	}

	for _, opt := range opts {
		opt(&options)
	}

	return options
}

// OptIncludeOverlay burns the overlay plane, if one is present, on top of
// every exported frame.
func OptIncludeOverlay() Option {
	return func(o *ExtractOptions) {
		o.IncludeOverlay = true
	}
}

// OptCineGIF additionally writes an animated cine.gif beside the frames of
// any multi-frame source. The delay between gif frames is in hundredths of a
// second; values below 1 keep the default.
func OptCineGIF(delay int) Option {
	return func(o *ExtractOptions) {
		o.CineGIF = true
		if delay > 0 {
			o.GIFDelay = delay
		}
	}
}

// OptScale resizes every exported image to factor times its original width
// and height, using nearest-neighbor sampling so that pixel values are
// preserved exactly.
func OptScale(factor int) Option {
	return func(o *ExtractOptions) {
		if factor > 1 {
			o.ScaleFactor = factor
		}
	}
}
