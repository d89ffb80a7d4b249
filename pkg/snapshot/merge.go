package snapshot

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/seiscode/cp-ppsd/pkg/spectral"
)

// ErrEmptySeedGroup indicates a merge request with no artifacts.
var ErrEmptySeedGroup = errors.New("seed group has no artifacts")

// MergeEngine combines a set of same-identity artifacts into one accumulator.
type MergeEngine struct {
	codec  Codec
	logger *slog.Logger
}

// NewMergeEngine creates a merge engine.
func NewMergeEngine(codec Codec, logger *slog.Logger) *MergeEngine {
	if codec == nil {
		codec = NewLZ4Codec()
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &MergeEngine{codec: codec, logger: logger}
}

// Merge folds the artifacts into one accumulator. The set is sorted by
// filename first so the merge order is deterministic; the underlying fold is
// treated as order-sensitive. A base-load failure is fatal for the group; a
// per-artifact fold failure is logged and skipped, never aborting the merge.
// A zero final count is warned about but the empty accumulator is still
// returned.
func (e *MergeEngine) Merge(paths []string) (*spectral.PPSD, error) {
	if len(paths) == 0 {
		return nil, ErrEmptySeedGroup
	}

	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	e.logger.Info("merging artifacts", "count", len(sorted), "base", filepath.Base(sorted[0]))

	baseSnap, err := Load(sorted[0], e.codec)
	if err != nil {
		return nil, fmt.Errorf("load base artifact: %w", err)
	}

	merged, err := spectral.FromSnapshot(baseSnap)
	if err != nil {
		return nil, fmt.Errorf("restore base accumulator: %w", err)
	}

	for _, path := range sorted[1:] {
		e.fold(merged, path)
	}

	if merged.WindowCount() == 0 {
		e.logger.Warn("merged accumulator has no processed windows",
			"channel", merged.ID().String())
	}

	e.logger.Info("merge finished",
		"channel", merged.ID().String(), "windows", merged.WindowCount())

	return merged, nil
}

// fold adds one artifact to the merged accumulator, logging and skipping on
// failure.
func (e *MergeEngine) fold(merged *spectral.PPSD, path string) {
	before := merged.WindowCount()

	snap, err := Load(path, e.codec)
	if err != nil {
		e.logger.Error("skipping unreadable artifact", "path", path, "error", err)

		return
	}

	err = merged.Fold(snap)
	if err != nil {
		e.logger.Error("skipping incompatible artifact", "path", path, "error", err)

		return
	}

	added := merged.WindowCount() - before

	if added != snap.WindowCount() {
		e.logger.Warn("fold count mismatch",
			"path", path, "expected", snap.WindowCount(), "added", added)
	}

	e.logger.Info("artifact folded",
		"path", filepath.Base(path), "added", added, "total", merged.WindowCount())
}
