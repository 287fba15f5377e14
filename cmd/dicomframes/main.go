package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/dicomframes"
	"github.com/carbocation/dicomframes/buildinfo"
)

// Safe for concurrent use by multiple goroutines so we'll make this a global
var client *storage.Client

func main() {
	buildinfo.PrintToStderr()

	var inputPath, outputRoot string
	var includeOverlay, cineGIF, skipManifest bool
	var delay, scale int
	flag.StringVar(&inputPath, "file", "", "Path to the DICOM file to convert. May also be a folder containing .dcm files, a .zip containing .dcm files, or any of these under gs://")
	flag.StringVar(&outputRoot, "out", "", "Folder that will hold one <name>_extracted folder per converted DICOM. Defaults to extracted_images beside this binary")
	flag.BoolVar(&includeOverlay, "include-overlay", false, "Print the overlay on top of the images?")
	flag.BoolVar(&cineGIF, "gif", false, "Additionally write an animated cine.gif for multi-frame files?")
	flag.IntVar(&delay, "delay", 4, "Hundredths of a second between animated gif frames. Only meaningful with -gif")
	flag.IntVar(&scale, "scale", 1, "Integer upscaling factor applied to every output image")
	flag.BoolVar(&skipManifest, "skip-manifest", false, "Pass this to skip writing manifest.tsv at the output root")

	flag.Parse()

	fmt.Fprintln(os.Stderr, strings.Join(os.Args, " "))

	if inputPath == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	inputPath = dicomframes.ExpandHome(inputPath)
	outputRoot = dicomframes.ExpandHome(outputRoot)

	// Initialize the Google Storage client, but only if our input indicates
	// that we are pointing to a Google Storage path.
	if strings.HasPrefix(inputPath, "gs://") {
		var err error
		client, err = storage.NewClient(context.Background())
		if err != nil {
			log.Fatalln(err)
		}
	}

	var opts []dicomframes.Option
	if includeOverlay {
		opts = append(opts, dicomframes.OptIncludeOverlay())
	}
	if cineGIF {
		opts = append(opts, dicomframes.OptCineGIF(delay))
	}
	if scale > 1 {
		opts = append(opts, dicomframes.OptScale(scale))
	}

	results, err := dicomframes.RunBatch(dicomframes.BatchConfig{
		Input:         inputPath,
		OutputRoot:    outputRoot,
		StorageClient: client,
		Options:       opts,
		SkipManifest:  skipManifest,
	})
	if err != nil {
		log.Fatalln(err)
	}

	// Per-file failures are reported in the results and the manifest; they
	// do not change the exit status.
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}

	log.Printf("Processed %d files (%d with errors)\n", len(results), failed)
}
