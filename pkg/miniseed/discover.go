// Package miniseed reads continuous waveform data from miniSEED container
// files: input discovery plus a record decoder for the uncompressed sample
// encodings.
package miniseed

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// knownExtensions are the file extensions searched during recursive discovery.
var knownExtensions = []string{".mseed", ".msd", ".seed"}

// ErrNoFiles indicates that discovery matched no input files.
var ErrNoFiles = errors.New("no waveform files found")

// Discover resolves an input pattern into a sorted list of waveform files.
// A directory is searched recursively for the known extensions; anything else
// is treated as a glob pattern. Zero matches is a structural error.
func Discover(pattern string) ([]string, error) {
	info, statErr := os.Stat(pattern)
	if statErr == nil && info.IsDir() {
		return discoverDir(pattern)
	}

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}

	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFiles, pattern)
	}

	sort.Strings(matches)

	return matches, nil
}

func discoverDir(root string) ([]string, error) {
	var files []string

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		for _, known := range knownExtensions {
			if ext == known {
				files = append(files, path)

				break
			}
		}

		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk %q: %w", root, walkErr)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFiles, root)
	}

	sort.Strings(files)

	return files, nil
}
