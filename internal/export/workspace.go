package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kikiluvv/trimline/pkg/util"
)

// workspace is the scratch directory of one job.
type workspace struct {
	dir string
}

func newWorkspace(base string) (*workspace, error) {
	if base != "" {
		if err := util.EnsureDir(base); err != nil {
			return nil, fmt.Errorf("create temp dir: %w", err)
		}
	}
	dir, err := os.MkdirTemp(base, "trimline-export-*")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &workspace{dir: dir}, nil
}

// Path returns name inside the workspace.
func (w *workspace) Path(name string) string {
	return filepath.Join(w.dir, name)
}

// Stage makes the source available inside the workspace without
// touching the original.
func (w *workspace) Stage(source string) (string, error) {
	info, err := os.Stat(source)
	if err != nil {
		return "", fmt.Errorf("open source: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("source %s is a directory", source)
	}

	staged := w.Path("input" + filepath.Ext(source))
	if err := util.LinkOrCopy(source, staged); err != nil {
		return "", fmt.Errorf("stage source: %w", err)
	}
	return staged, nil
}

// Close removes the workspace and everything in it.
func (w *workspace) Close() error {
	return os.RemoveAll(w.dir)
}
