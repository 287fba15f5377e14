// Package buildinfo reports the build metadata stamped into the binary, so
// that images produced by long-lived research pipelines can be traced back
// to the code that wrote them.
package buildinfo

import (
	"fmt"
	"os"
	"runtime/debug"
)

// Info describes the compiled binary.
type Info struct {
	Path       string
	GoVersion  string
	Commit     string
	CommitTime string
	Modified   bool
}

func (i Info) String() string {
	mod := ""
	if i.Modified {
		mod = " Files in the repo were modified after that commit."
	}

	return fmt.Sprintf("This %s binary was built with %s at commit %v at time %v.%s", i.Path, i.GoVersion, i.Commit, i.CommitTime, mod)
}

// Get reads the build metadata the Go toolchain recorded into the binary.
func Get() Info {
	out := Info{}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}

	out.GoVersion = bi.GoVersion
	out.Path = bi.Path
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			out.Commit = s.Value
		case "vcs.time":
			out.CommitTime = s.Value
		case "vcs.modified":
			out.Modified = s.Value == "true"
		}
	}

	return out
}

// PrintToStderr writes the build description to standard error.
func PrintToStderr() {
	fmt.Fprintf(os.Stderr, "%s\n", Get())
}
