// Package inventory provides station metadata lookup from StationXML
// instrument-response catalogs. The catalog is read once per batch and passed
// by reference to every accumulator construction.
package inventory

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/seiscode/cp-ppsd/pkg/seismic"
)

// Sentinel lookup errors.
var (
	ErrChannelNotFound = errors.New("channel not found in inventory")
	ErrNoSensitivity   = errors.New("channel has no instrument sensitivity")
)

// Response describes the instrument response of one channel epoch.
type Response struct {
	// Sensitivity is the overall scalar gain (counts per input unit).
	Sensitivity float64

	// Frequency is the frequency at which the sensitivity is specified.
	Frequency float64

	// InputUnits names the physical input unit (e.g. M/S, PA).
	InputUnits string
}

// Provider resolves instrument responses by channel identity and time.
type Provider interface {
	// Response returns the response of the channel epoch covering at.
	Response(id seismic.ChannelID, at time.Time) (*Response, error)

	// Sensitivity returns the overall scalar sensitivity of the channel
	// epoch covering at. Resolution failure must be loud: ringlaser-class
	// handling depends on it.
	Sensitivity(id seismic.ChannelID, at time.Time) (float64, error)
}

// channelEpoch is one channel entry with its validity interval.
type channelEpoch struct {
	id       seismic.ChannelID
	start    time.Time
	end      time.Time // zero = open
	response *Response
}

// Inventory is an in-memory StationXML catalog. It implements Provider.
type Inventory struct {
	epochs []channelEpoch
}

// Response implements Provider.
func (inv *Inventory) Response(id seismic.ChannelID, at time.Time) (*Response, error) {
	for i := range inv.epochs {
		epoch := &inv.epochs[i]

		if epoch.id != id {
			continue
		}

		if at.Before(epoch.start) {
			continue
		}

		if !epoch.end.IsZero() && at.After(epoch.end) {
			continue
		}

		return epoch.response, nil
	}

	return nil, fmt.Errorf("%w: %s at %s", ErrChannelNotFound, id, at.Format(time.RFC3339))
}

// Sensitivity implements Provider.
func (inv *Inventory) Sensitivity(id seismic.ChannelID, at time.Time) (float64, error) {
	resp, err := inv.Response(id, at)
	if err != nil {
		return 0, err
	}

	if resp.Sensitivity == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoSensitivity, id)
	}

	return resp.Sensitivity, nil
}

// StationXML document subset.
type stationXML struct {
	Networks []xmlNetwork `xml:"Network"`
}

type xmlNetwork struct {
	Code     string       `xml:"code,attr"`
	Stations []xmlStation `xml:"Station"`
}

type xmlStation struct {
	Code     string       `xml:"code,attr"`
	Channels []xmlChannel `xml:"Channel"`
}

type xmlChannel struct {
	Code         string      `xml:"code,attr"`
	LocationCode string      `xml:"locationCode,attr"`
	StartDate    string      `xml:"startDate,attr"`
	EndDate      string      `xml:"endDate,attr"`
	Response     xmlResponse `xml:"Response"`
}

type xmlResponse struct {
	InstrumentSensitivity *xmlSensitivity `xml:"InstrumentSensitivity"`
}

type xmlSensitivity struct {
	Value      float64  `xml:"Value"`
	Frequency  float64  `xml:"Frequency"`
	InputUnits xmlUnits `xml:"InputUnits"`
}

type xmlUnits struct {
	Name string `xml:"Name"`
}

// ReadStationXML reads an instrument-response catalog from a StationXML file.
func ReadStationXML(path string) (*Inventory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read inventory %s: %w", path, err)
	}

	return ParseStationXML(raw)
}

// ParseStationXML parses StationXML bytes into an Inventory.
func ParseStationXML(raw []byte) (*Inventory, error) {
	var doc stationXML

	err := xml.Unmarshal(raw, &doc)
	if err != nil {
		return nil, fmt.Errorf("parse stationxml: %w", err)
	}

	inv := &Inventory{}

	for _, network := range doc.Networks {
		for _, station := range network.Stations {
			for _, channel := range station.Channels {
				inv.epochs = append(inv.epochs, buildEpoch(network.Code, station.Code, channel))
			}
		}
	}

	return inv, nil
}

func buildEpoch(network, station string, channel xmlChannel) channelEpoch {
	epoch := channelEpoch{
		id: seismic.ChannelID{
			Network:  network,
			Station:  station,
			Location: channel.LocationCode,
			Channel:  channel.Code,
		},
		response: &Response{},
	}

	if channel.Response.InstrumentSensitivity != nil {
		sens := channel.Response.InstrumentSensitivity
		epoch.response = &Response{
			Sensitivity: sens.Value,
			Frequency:   sens.Frequency,
			InputUnits:  sens.InputUnits.Name,
		}
	}

	epoch.start = parseEpochTime(channel.StartDate)

	if channel.EndDate != "" {
		epoch.end = parseEpochTime(channel.EndDate)
	}

	return epoch
}

// parseEpochTime parses StationXML date attributes, which appear both with
// and without an explicit zone designator.
func parseEpochTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t
		}
	}

	return time.Time{}
}
