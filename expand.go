package dicomframes

import (
	"log"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/carbocation/pfx"
)

// ExpandHome expands a leading ~ to the user's home directory, so that
// quoted paths passed on the command line behave like unquoted ones. Paths
// without the prefix, including gs:// paths, pass through untouched.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		usr, err := user.Current()
		if err != nil {
			log.Fatalln(pfx.Err(err))
		}
		path = filepath.Join(usr.HomeDir, (path)[2:])
	}

	return path
}
