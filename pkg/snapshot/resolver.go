package snapshot

import (
	"path/filepath"
	"strings"

	"github.com/seiscode/cp-ppsd/pkg/seismic"
	"github.com/seiscode/cp-ppsd/pkg/spectral"
)

// knownPrefix marks artifact names produced by the default naming rule.
const knownPrefix = "PPSD_"

// defaultChannelCode fills a missing channel component in embedded metadata.
const defaultChannelCode = "XXX"

// segmentSeparator delimits filename segments for the heuristics.
const segmentSeparator = "_"

// hyphen-identity token bounds: NET-STA-LOC-CHA or NET-STA-CHA.
const (
	minIdentityParts = 3
	maxIdentityParts = 4
)

// filenameHeuristic attempts to extract an identity string from an artifact
// file stem. Each heuristic is independent; the resolver stops at the first
// success.
type filenameHeuristic func(stem string) (string, bool)

// ResolveIdentity determines the canonical channel identity string of one
// artifact. Embedded metadata wins over filename heuristics; any failure
// while reading metadata falls through silently. The stem fallback guarantees
// every artifact is groupable.
func ResolveIdentity(path string, codec Codec) string {
	snap, err := Load(path, codec)
	if err == nil {
		id, ok := embeddedIdentity(snap)
		if ok {
			return id
		}
	}

	return resolveFromFilename(filepath.Base(path))
}

// embeddedIdentity extracts the identity from decoded snapshot metadata.
// A full identity field is preferred; separate component fields are accepted
// with defaults for missing location and channel.
func embeddedIdentity(snap *spectral.Snapshot) (string, bool) {
	id := snap.ID

	if !id.IsZero() && id.Network != "" && id.Station != "" && id.Channel != "" {
		return id.String(), true
	}

	if id.Network != "" && id.Station != "" {
		if id.Channel == "" {
			id.Channel = defaultChannelCode
		}

		return id.String(), true
	}

	return "", false
}

// resolveFromFilename runs the heuristic chain over the artifact stem.
func resolveFromFilename(base string) string {
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	for _, heuristic := range []filenameHeuristic{hyphenTokenHeuristic, prefixSegmentHeuristic} {
		id, ok := heuristic(stem)
		if ok {
			return id
		}
	}

	return stem
}

// hyphenTokenHeuristic searches the filename segments, last to first, for a
// token shaped like NET-STA-LOC-CHA and converts hyphens to the identity
// delimiter.
func hyphenTokenHeuristic(stem string) (string, bool) {
	segments := strings.Split(stem, segmentSeparator)

	for i := len(segments) - 1; i >= 0; i-- {
		parts := strings.Split(segments[i], "-")
		if len(parts) < minIdentityParts || len(parts) > maxIdentityParts {
			continue
		}

		empty := false

		for _, part := range parts {
			if part == "" {
				empty = true

				break
			}
		}

		if empty {
			continue
		}

		return strings.Join(parts, seismic.IDSeparator), true
	}

	return "", false
}

// prefixSegmentHeuristic handles the default naming rule: a stem starting
// with the known prefix carries the identity in its first remaining segment.
func prefixSegmentHeuristic(stem string) (string, bool) {
	if !strings.HasPrefix(stem, knownPrefix) {
		return "", false
	}

	rest := strings.TrimPrefix(stem, knownPrefix)

	segments := strings.Split(rest, segmentSeparator)
	if len(segments) == 0 {
		return "", false
	}

	candidate := segments[0]
	if strings.Count(candidate, seismic.IDSeparator) >= 2 {
		return candidate, true
	}

	return "", false
}
