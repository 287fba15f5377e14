package dicomframes

import (
	"archive/zip"
	"bytes"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunBatchFolderProcessesSortedDicoms(t *testing.T) {
	input := t.TempDir()
	for _, name := range []string{"b.dcm", "a.dcm", "C.DCM", "ignored.txt"} {
		if err := ioutil.WriteFile(filepath.Join(input, name), []byte("garbage, not dicom"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	outputRoot := filepath.Join(t.TempDir(), "out")

	results, err := RunBatch(BatchConfig{Input: input, OutputRoot: outputRoot})
	if err != nil {
		t.Fatal(err)
	}

	if len(results) != 3 {
		t.Fatalf("Results: got %d, expected the 3 .dcm files and not ignored.txt", len(results))
	}

	wantOrder := []string{"C.DCM", "a.dcm", "b.dcm"}
	for i, res := range results {
		if got := filepath.Base(res.Source); got != wantOrder[i] {
			t.Fatalf("Result %d: got %s, expected %s", i, got, wantOrder[i])
		}
		if !errors.Is(res.Err, ErrNotDicom) {
			t.Fatalf("Result %d: got %v, expected ErrNotDicom", i, res.Err)
		}
	}

	content, err := ioutil.ReadFile(filepath.Join(outputRoot, "manifest.tsv"))
	if err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 4 {
		t.Fatalf("Manifest lines: got %d, expected a header plus 3 rows:\n%s", len(lines), content)
	}
	if !strings.HasPrefix(lines[0], "source_file\tstatus") {
		t.Fatalf("Manifest header: got %q", lines[0])
	}
	if !strings.Contains(lines[1], "\tfailed\t") {
		t.Fatalf("Expected a failed status in manifest row %q", lines[1])
	}
}

func TestRunBatchMissingFolder(t *testing.T) {
	input := filepath.Join(t.TempDir(), "absent")

	results, err := RunBatch(BatchConfig{Input: input, OutputRoot: filepath.Join(t.TempDir(), "out")})
	if !errors.Is(err, ErrMissingInput) {
		t.Fatalf("Expected ErrMissingInput, got %v", err)
	}
	if results != nil {
		t.Fatalf("Expected no results, got %d", len(results))
	}
}

func TestRunBatchMissingFileIsPerFile(t *testing.T) {
	input := filepath.Join(t.TempDir(), "absent.dcm")

	results, err := RunBatch(BatchConfig{Input: input, OutputRoot: filepath.Join(t.TempDir(), "out"), SkipManifest: true})
	if err != nil {
		t.Fatalf("A missing single file should not fail the batch, got %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Results: got %d, expected 1", len(results))
	}
	if !errors.Is(results[0].Err, ErrMissingInput) {
		t.Fatalf("Expected ErrMissingInput, got %v", results[0].Err)
	}
}

func TestRunBatchZipMembers(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, member := range []string{"z_last.dcm", "a_first.dcm", "notes.txt"} {
		w, err := zw.Create(member)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte("garbage, not dicom")); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	input := filepath.Join(t.TempDir(), "batch.zip")
	if err := ioutil.WriteFile(input, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	outputRoot := filepath.Join(t.TempDir(), "out")

	results, err := RunBatch(BatchConfig{Input: input, OutputRoot: outputRoot, SkipManifest: true})
	if err != nil {
		t.Fatal(err)
	}

	if len(results) != 2 {
		t.Fatalf("Results: got %d, expected the 2 .dcm members", len(results))
	}
	if results[0].Source != "a_first.dcm" || results[1].Source != "z_last.dcm" {
		t.Fatalf("Expected members sorted by name, got %s then %s", results[0].Source, results[1].Source)
	}
	for i, res := range results {
		if !errors.Is(res.Err, ErrNotDicom) {
			t.Fatalf("Result %d: got %v, expected ErrNotDicom", i, res.Err)
		}
	}

	if _, err := os.Stat(filepath.Join(outputRoot, "manifest.tsv")); !os.IsNotExist(err) {
		t.Fatalf("Expected no manifest when SkipManifest is set, stat returned %v", err)
	}
}

func TestClassifyInput(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "present.bin")
	if err := ioutil.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	for _, v := range []struct {
		input string
		want  int
	}{
		{"archive.zip", inputZip},
		{"ARCHIVE.ZIP", inputZip},
		{"gs://bucket/path/file.dcm", inputFile},
		{"gs://bucket/path/FILE.DCM", inputFile},
		{"gs://bucket/path", inputFolder},
		{dir, inputFolder},
		{file, inputFile},
		{filepath.Join(dir, "absent.dcm"), inputFile},
		{filepath.Join(dir, "absent"), inputFolder},
	} {
		if got := classifyInput(v.input); got != v.want {
			t.Fatalf("\nError with input: %s\nGot: %d\nExpected: %d\n", v.input, got, v.want)
		}
	}
}

func TestDefaultOutputRoot(t *testing.T) {
	root := DefaultOutputRoot()

	if filepath.Base(root) != "extracted_images" {
		t.Fatalf("Expected the default root to be named extracted_images, got %s", root)
	}
	if !filepath.IsAbs(root) {
		t.Fatalf("Expected an absolute default root, got %s", root)
	}
}
