package sprite

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pkg/errors"
)

// Discover walks root and returns every file whose name ends in one of
// InputExtensions, in lexical order. Any walk error aborts the scan.
func Discover(root string) ([]string, error) {
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrInputNotFound, "path <%s>", root)
		}
		return nil, errors.Wrapf(err, "stat %s", root)
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !HasInputExtension(d.Name()) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walk %s", root)
	}

	return files, nil
}

// HasInputExtension reports whether name is picked up as an input image.
func HasInputExtension(name string) bool {
	for _, ext := range InputExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// IsIgnored reports whether path exactly matches an entry of ignore.
func IsIgnored(path string, ignore []string) bool {
	return slices.Contains(ignore, path)
}
