package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// CollectInputFiles resolves path to the files to validate: the file itself
// when it has a .json suffix, or the sorted *.json entries of a directory.
func CollectInputFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInputNotFound, path)
	}

	if !info.IsDir() {
		if strings.EqualFold(filepath.Ext(path), ".json") {
			return []string{path}, nil
		}
		return nil, fmt.Errorf("%w: %s is not a .json file", ErrInputNotFound, path)
	}

	files, err := filepath.Glob(filepath.Join(path, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoInputFiles, path)
	}
	sort.Strings(files)
	return files, nil
}
