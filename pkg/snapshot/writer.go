package snapshot

import (
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/seiscode/cp-ppsd/pkg/spectral"
)

// Writer persists accumulators to artifact files, skipping empty results.
type Writer struct {
	dir     string
	pattern string
	codec   Codec
	logger  *slog.Logger

	// now supplies the wall-clock fallback for naming.
	now func() time.Time
}

// NewWriter creates a writer. An empty pattern selects the default name that
// embeds the source file's base name.
func NewWriter(dir, pattern string, codec Codec, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}

	if codec == nil {
		codec = NewLZ4Codec()
	}

	return &Writer{
		dir:     dir,
		pattern: pattern,
		codec:   codec,
		logger:  logger,
		now:     time.Now,
	}
}

// Write persists one accumulator. An accumulator with zero processed windows
// is logged and discarded without writing; the empty path and false are
// returned. sourceFile is the waveform file the data came from.
func (w *Writer) Write(acc spectral.Accumulator, sourceFile string) (string, bool, error) {
	snap := acc.Snapshot()

	if acc.WindowCount() == 0 {
		w.logger.Warn("accumulator has zero processed windows, skipping artifact",
			"channel", snap.ID.String(), "source", sourceFile)

		return "", false, nil
	}

	name := w.name(snap, sourceFile)
	path := filepath.Join(w.dir, name)

	err := Save(path, w.codec, snap)
	if err != nil {
		return "", false, err
	}

	w.logger.Info("artifact written",
		"path", path, "channel", snap.ID.String(), "windows", acc.WindowCount())

	return path, true, nil
}

func (w *Writer) name(snap *spectral.Snapshot, sourceFile string) string {
	if w.pattern == "" {
		stem := strings.TrimSuffix(filepath.Base(sourceFile), filepath.Ext(sourceFile))

		return DefaultFilename(stem)
	}

	return GenerateFilename(w.pattern, snap.ID, snap.DataStart, snap.DataEnd, w.now(), nil)
}
