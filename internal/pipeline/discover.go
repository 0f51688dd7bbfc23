package pipeline

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var inputExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
	".ico":  true,
}

// CollectImages resolves the input path into an ordered list of
// candidate image files. A directory is walked lexically, one level deep
// unless recursive is set. Unreadable entries are warned about on warn
// and skipped; only a missing or unstatable input is fatal.
func CollectImages(root string, recursive bool, warn io.Writer) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		if !supportedExt(absRoot) {
			warnf(warn, "skipping %s: not a supported image type", root)
			return nil, nil
		}
		return []string{absRoot}, nil
	}

	var files []string
	fsys := os.DirFS(absRoot)
	walkErr := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			warnf(warn, "skipping %s: %v", path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if !recursive && path != "." {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !supportedExt(path) {
			return nil
		}
		files = append(files, filepath.Join(absRoot, path))
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	return files, nil
}

func supportedExt(path string) bool {
	return inputExts[strings.ToLower(filepath.Ext(path))]
}

func warnf(w io.Writer, format string, args ...any) {
	if w == nil {
		return
	}
	fmt.Fprintf(w, "warning: "+format+"\n", args...)
}
