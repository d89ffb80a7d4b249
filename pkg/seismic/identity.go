// Package seismic defines the waveform domain model: channel identities,
// trace segments, per-file channel grouping and the gap merge policy applied
// before spectral accumulation.
package seismic

import (
	"errors"
	"fmt"
	"strings"
)

// IDSeparator joins the components of a channel identity string.
const IDSeparator = "."

// channelIDParts is the number of components in a full channel identity.
const channelIDParts = 4

// ErrInvalidChannelID indicates a string that does not parse as NET.STA.LOC.CHA.
var ErrInvalidChannelID = errors.New("invalid channel identity")

// ChannelID identifies one sensor data stream.
type ChannelID struct {
	Network  string
	Station  string
	Location string
	Channel  string
}

// String renders the identity as NET.STA.LOC.CHA. The location code may be
// empty, which yields consecutive separators as in the SEED convention.
func (id ChannelID) String() string {
	return strings.Join([]string{id.Network, id.Station, id.Location, id.Channel}, IDSeparator)
}

// IsZero reports whether all identity components are empty.
func (id ChannelID) IsZero() bool {
	return id == ChannelID{}
}

// ParseChannelID parses a NET.STA.LOC.CHA string into a ChannelID.
func ParseChannelID(s string) (ChannelID, error) {
	parts := strings.Split(s, IDSeparator)
	if len(parts) != channelIDParts {
		return ChannelID{}, fmt.Errorf("%w: %q", ErrInvalidChannelID, s)
	}

	return ChannelID{
		Network:  parts[0],
		Station:  parts[1],
		Location: parts[2],
		Channel:  parts[3],
	}, nil
}
