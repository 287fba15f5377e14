package dicomframes

import (
	"archive/zip"
	"context"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"github.com/kardianos/osext"
)

// BatchConfig describes one batch run. Only Input is required.
type BatchConfig struct {
	// Input is a DICOM file, a folder holding .dcm files, or a .zip holding
	// .dcm members. Any of the three may live in Google Storage under the
	// gs:// prefix.
	Input string

	// OutputRoot receives one <name>_extracted folder per converted file,
	// plus the batch manifest. When empty, DefaultOutputRoot() is used.
	OutputRoot string

	// StorageClient is only consulted for gs:// inputs. When nil, a client
	// is created on demand.
	StorageClient *storage.Client

	// Options apply to every file in the batch.
	Options []Option

	// SkipManifest disables writing manifest.tsv at the output root.
	SkipManifest bool
}

const (
	inputFile = iota
	inputFolder
	inputZip
)

// RunBatch converts every DICOM named by cfg.Input, one file at a time in
// name order, and reports one Result per file. The error return is reserved
// for conditions that prevent the batch from running at all; per-file
// failures land in the Results and never stop the remaining files.
func RunBatch(cfg BatchConfig) ([]Result, error) {
	outputRoot := cfg.OutputRoot
	if outputRoot == "" {
		outputRoot = DefaultOutputRoot()
	}

	client := cfg.StorageClient
	if client == nil && strings.HasPrefix(cfg.Input, "gs://") {
		var err error
		client, err = storage.NewClient(context.Background())
		if err != nil {
			return nil, pfx.Err(err)
		}
	}

	if err := os.MkdirAll(outputRoot, 0755); err != nil {
		return nil, pfx.Err(err)
	}

	var results []Result
	var err error

	switch classifyInput(cfg.Input) {
	case inputZip:
		results, err = runZip(cfg.Input, outputRoot, client, cfg.Options...)
	case inputFolder:
		results, err = runFolder(cfg.Input, outputRoot, client, cfg.Options...)
	default:
		results = []Result{runOne(cfg.Input, outputRoot, client, cfg.Options...)}
	}

	if err != nil {
		return nil, err
	}

	for _, res := range results {
		logResult(res)
	}

	if !cfg.SkipManifest {
		if manifestErr := WriteManifest(results, filepath.Join(outputRoot, "manifest.tsv")); manifestErr != nil {
			log.Printf("Error writing the batch manifest: %v\n", manifestErr)
		}
	}

	return results, nil
}

// DefaultOutputRoot returns the extracted_images folder next to the running
// binary, falling back to the current working directory when the executable's
// location cannot be determined.
func DefaultOutputRoot() string {
	folder, err := osext.ExecutableFolder()
	if err != nil {
		if folder, err = os.Getwd(); err != nil {
			folder = "."
		}
	}

	return filepath.Join(folder, "extracted_images")
}

// classifyInput decides whether the input names a single file, a folder to
// scan, or a zip archive. Google Storage folders cannot be stat'ed, so for
// gs:// paths the suffix decides. A local path that does not exist is
// classified by suffix too, so that the error surfaces in the right place.
func classifyInput(input string) int {
	lower := strings.ToLower(input)

	if strings.HasSuffix(lower, ".zip") {
		return inputZip
	}

	if strings.HasPrefix(input, "gs://") {
		if strings.HasSuffix(lower, ".dcm") {
			return inputFile
		}

		return inputFolder
	}

	if fileInfo, err := os.Stat(input); err == nil {
		if fileInfo.IsDir() {
			return inputFolder
		}

		return inputFile
	}

	if strings.HasSuffix(lower, ".dcm") {
		return inputFile
	}

	return inputFolder
}

func runOne(input, outputRoot string, client *storage.Client, opts ...Option) Result {
	if strings.HasPrefix(input, "gs://") {
		handle, nBytes, err := MaybeOpenFromGoogleStorage(input, client)
		if err != nil {
			return Result{Source: input, Err: err}
		}
		defer handle.Close()

		res := ExtractReader(handle, nBytes, filepath.Base(input), outputRoot, opts...)
		res.Source = input

		return res
	}

	return ExtractFile(input, outputRoot, opts...)
}

func runFolder(input, outputRoot string, client *storage.Client, opts ...Option) ([]Result, error) {
	if strings.HasPrefix(input, "gs://") {
		files, err := ListDicomsFromGoogleStorage(input, client)
		if err != nil {
			// Listing failures leave nothing to convert, but are not fatal
			// the way a missing local folder is
			log.Printf("Error listing %s: %v\n", input, err)

			return []Result{}, nil
		}

		return runFiles(files, outputRoot, client, opts...), nil
	}

	if _, err := os.Stat(input); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingInput, input)
	}

	dir, err := ioutil.ReadDir(input)
	if err != nil {
		log.Printf("Error listing %s: %v\n", input, err)

		return []Result{}, nil
	}

	var files []string
	for _, file := range dir {
		if file.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(file.Name()), ".dcm") {
			continue
		}

		files = append(files, filepath.Join(input, file.Name()))
	}

	return runFiles(files, outputRoot, client, opts...), nil
}

func runFiles(files []string, outputRoot string, client *storage.Client, opts ...Option) []Result {
	results := make([]Result, 0, len(files))
	for _, file := range files {
		results = append(results, runOne(file, outputRoot, client, opts...))
	}

	return results
}

func runZip(input, outputRoot string, client *storage.Client, opts ...Option) ([]Result, error) {
	readerAt, nBytes, err := MaybeOpenFromGoogleStorage(input, client)
	if err != nil {
		return nil, err
	}
	defer readerAt.Close()

	rc, err := zip.NewReader(readerAt, nBytes)
	if err != nil {
		return nil, pfx.Err(err)
	}

	var members []*zip.File
	for _, v := range rc.File {
		if v.FileInfo().IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(v.Name), ".dcm") {
			continue
		}

		members = append(members, v)
	}

	sort.Slice(members, func(i, j int) bool {
		return members[i].Name < members[j].Name
	})

	results := make([]Result, 0, len(members))
	for _, v := range members {
		dicomReader, err := v.Open()
		if err != nil {
			results = append(results, Result{Source: v.Name, Err: pfx.Err(err)})

			continue
		}

		res := ExtractReader(dicomReader, int64(v.UncompressedSize64), filepath.Base(v.Name), outputRoot, opts...)
		res.Source = v.Name
		dicomReader.Close()

		results = append(results, res)
	}

	return results, nil
}

func logResult(res Result) {
	switch {
	case res.Err != nil:
		log.Printf("Error extracting %s: %v\n", res.Source, res.Err)
	case res.NoPixelData:
		// Already reported during extraction
	default:
		log.Printf("Extracted %d frames from %s into %s\n", res.FramesWritten, res.Source, res.OutputDir)
		if len(res.SkippedFrames) > 0 {
			log.Printf("Skipped %d frames from %s due to unrecognized shapes\n", len(res.SkippedFrames), res.Source)
		}
	}
}
