package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// ExpandGlobs expands input paths and glob patterns into a sorted unique
// list. Plain paths must exist; patterns must match at least one file.
func ExpandGlobs(patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("no input files provided")
	}

	files := mapset.NewThreadUnsafeSet[string]()
	for _, pattern := range patterns {
		if !hasGlobMeta(pattern) {
			info, err := os.Stat(pattern)
			if err != nil {
				return nil, err
			}
			if info.IsDir() {
				return nil, fmt.Errorf("%s is a directory", pattern)
			}
			files.Add(pattern)
			continue
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no matches for pattern %q", pattern)
		}
		files.Append(matches...)
	}

	out := files.ToSlice()
	slices.Sort(out)
	return out, nil
}

func hasGlobMeta(s string) bool {
	return strings.ContainsAny(s, "*?[")
}
