package snapshot

import (
	"fmt"
	"strings"
	"time"

	"github.com/seiscode/cp-ppsd/pkg/seismic"
)

// datetimePattern is the layout of the combined datetime placeholder.
const datetimePattern = "200601021504"

// GenerateFilename substitutes the named placeholders of an artifact naming
// pattern. The data's own start and end timestamps feed the start_* and end_*
// fields; the legacy unprefixed fields alias the start-time fields. A zero
// start falls back to the wall clock (now); a zero end falls back to start.
func GenerateFilename(pattern string, id seismic.ChannelID, start, end, now time.Time, extra map[string]string) string {
	if start.IsZero() {
		start = now
	}

	if end.IsZero() {
		end = start
	}

	replacements := map[string]string{
		"network":  id.Network,
		"station":  id.Station,
		"location": id.Location,
		"channel":  id.Channel,
	}

	addTimeFields(replacements, "start_", start)
	addTimeFields(replacements, "end_", end)
	addTimeFields(replacements, "", start) // legacy aliases

	for key, value := range extra {
		replacements[key] = value
	}

	name := pattern
	for key, value := range replacements {
		name = strings.ReplaceAll(name, "{"+key+"}", value)
	}

	return name
}

// addTimeFields registers the timestamp placeholders under the given prefix.
func addTimeFields(replacements map[string]string, prefix string, t time.Time) {
	replacements[prefix+"datetime"] = t.Format(datetimePattern)
	replacements[prefix+"year"] = fmt.Sprintf("%d", t.Year())
	replacements[prefix+"month"] = fmt.Sprintf("%02d", int(t.Month()))
	replacements[prefix+"day"] = fmt.Sprintf("%02d", t.Day())
	replacements[prefix+"hour"] = fmt.Sprintf("%02d", t.Hour())
	replacements[prefix+"minute"] = fmt.Sprintf("%02d", t.Minute())
	replacements[prefix+"second"] = fmt.Sprintf("%02d", t.Second())
	replacements[prefix+"julday"] = fmt.Sprintf("%03d", t.YearDay())
}

// DefaultFilename builds the artifact name used when no pattern is supplied:
// it embeds the source file's base name so artifacts stay unique per source
// file even for the same channel.
func DefaultFilename(sourceStem string) string {
	return "PPSD_" + sourceStem + Extension
}
