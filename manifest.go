package dicomframes

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
)

// ManifestRow is one line of the tab-delimited batch manifest.
type ManifestRow struct {
	SourceFile            string `csv:"source_file"`
	Status                string `csv:"status"`
	FramesWritten         int    `csv:"frames_written"`
	FramesSkipped         string `csv:"frames_skipped"`
	Rows                  int    `csv:"rows"`
	Cols                  int    `csv:"cols"`
	ReferencesOtherImages bool   `csv:"references_other_images"`
	OutputFolder          string `csv:"output_folder"`
	Error                 string `csv:"error"`
}

// WriteManifest summarizes a batch as a tab-delimited file at outName, one
// row per processed source, so downstream tooling can join extraction
// outcomes against sample manifests.
func WriteManifest(results []Result, outName string) error {
	rows := make([]*ManifestRow, 0, len(results))
	for _, res := range results {
		rows = append(rows, manifestRowFromResult(res))
	}

	// Tell gocsv to use tab as the delimiter
	gocsv.SetCSVWriter(func(out io.Writer) *gocsv.SafeCSVWriter {
		w := csv.NewWriter(out)
		w.Comma = '\t'

		return gocsv.NewSafeCSVWriter(w)
	})

	f, err := os.Create(outName)
	if err != nil {
		return pfx.Err(err)
	}
	defer f.Close()

	return gocsv.MarshalFile(&rows, f)
}

func manifestRowFromResult(res Result) *ManifestRow {
	row := &ManifestRow{
		SourceFile:            res.Source,
		Status:                res.Status(),
		FramesWritten:         res.FramesWritten,
		Rows:                  res.Rows,
		Cols:                  res.Cols,
		ReferencesOtherImages: res.HasReferencedImages,
		OutputFolder:          res.OutputDir,
	}

	if len(res.SkippedFrames) > 0 {
		skipped := make([]string, 0, len(res.SkippedFrames))
		for _, v := range res.SkippedFrames {
			skipped = append(skipped, strconv.Itoa(v))
		}

		row.FramesSkipped = strings.Join(skipped, ",")
	}

	if res.Err != nil {
		row.Error = res.Err.Error()
	}

	return row
}
