// Package workdir resolves the tally project root, so commands run from a
// subdirectory use the enclosing project's .tally directory.
package workdir

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	dataDir  = ".tally"
	rootFile = ".tally-root"
	envDir   = "TALLY_DIR"
)

// ResolveBaseDir returns the project root for start.
//
// Priority: TALLY_DIR env, then the nearest ancestor (start included) that
// holds a .tally-root redirect file or a .tally directory. A .tally-root file
// contains the path of the shared root; relative paths resolve against the
// directory holding the file. Without any marker, start is returned.
func ResolveBaseDir(start string) string {
	if v := strings.TrimSpace(os.Getenv(envDir)); v != "" {
		return v
	}

	dir := start
	for {
		if target, ok := readRootFile(dir); ok {
			return target
		}
		if info, err := os.Stat(filepath.Join(dir, dataDir)); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}

func readRootFile(dir string) (string, bool) {
	content, err := os.ReadFile(filepath.Join(dir, rootFile))
	if err != nil {
		return "", false
	}
	target := strings.TrimSpace(string(content))
	if target == "" {
		return "", false
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(dir, target)
	}
	return filepath.Clean(target), true
}
