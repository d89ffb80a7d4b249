package snapshot

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/seiscode/cp-ppsd/pkg/seismic"
)

var (
	namingID    = seismic.ChannelID{Network: "BJ", Station: "DAX", Location: "00", Channel: "BHZ"}
	namingStart = time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	namingEnd   = time.Date(2025, 12, 31, 23, 59, 58, 0, time.UTC)
	wallClock   = time.Date(2041, 6, 15, 12, 0, 0, 0, time.UTC)
)

// fullPattern exercises every supported placeholder.
const fullPattern = "{network}.{station}.{location}.{channel}" +
	"_{start_datetime}_{start_year}-{start_month}-{start_day}" +
	"_{start_hour}{start_minute}{start_second}_{start_julday}" +
	"_{end_datetime}_{end_year}-{end_month}-{end_day}" +
	"_{end_hour}{end_minute}{end_second}_{end_julday}" +
	"_{datetime}_{year}{month}{day}{hour}{minute}{second}{julday}" + Extension

func TestGenerateFilename_AllPlaceholders(t *testing.T) {
	t.Parallel()

	name := GenerateFilename(fullPattern, namingID, namingStart, namingEnd, wallClock, nil)

	// No unresolved tokens remain.
	assert.NotContains(t, name, "{")
	assert.NotContains(t, name, "}")

	assert.Contains(t, name, "BJ.DAX.00.BHZ")
	assert.Contains(t, name, "202502030405")     // start datetime
	assert.Contains(t, name, "2025-02-03")       // start components
	assert.Contains(t, name, "040506_034")       // start time of day and julday
	assert.Contains(t, name, "202512312359")     // end datetime
	assert.Contains(t, name, "235958_365")       // end time of day and julday
	assert.NotContains(t, name, "2041")          // wall clock not used when data times exist
}

func TestGenerateFilename_LegacyAliasesEqualStart(t *testing.T) {
	t.Parallel()

	legacy := GenerateFilename("{datetime}_{year}_{julday}", namingID, namingStart, namingEnd, wallClock, nil)
	prefixed := GenerateFilename("{start_datetime}_{start_year}_{start_julday}", namingID, namingStart, namingEnd, wallClock, nil)

	assert.Equal(t, prefixed, legacy)
}

func TestGenerateFilename_WallClockFallback(t *testing.T) {
	t.Parallel()

	name := GenerateFilename("{start_year}_{end_year}", namingID, time.Time{}, time.Time{}, wallClock, nil)

	assert.Equal(t, "2041_2041", name)
}

func TestGenerateFilename_EndFallsBackToStart(t *testing.T) {
	t.Parallel()

	name := GenerateFilename("{start_datetime}_{end_datetime}", namingID, namingStart, time.Time{}, wallClock, nil)

	parts := strings.Split(name, "_")

	assert.Equal(t, parts[0], parts[1])
}

func TestGenerateFilename_ExtraPlaceholders(t *testing.T) {
	t.Parallel()

	name := GenerateFilename("{plot_type}_{network}", namingID, namingStart, namingEnd, wallClock,
		map[string]string{"plot_type": "standard"})

	assert.Equal(t, "standard_BJ", name)
}

func TestDefaultFilename(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "PPSD_day001"+Extension, DefaultFilename("day001"))
}
