package sdjson

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Station is one channel entity within a lineup, joined from the service's
// station list and channel-number map. Built once per run; immutable after.
type Station struct {
	StationID         string
	Name              string
	Callsign          string
	Channel           string // lineup channel number, leading zeros stripped
	BroadcastLanguage []string
	Logo              *StationLogo
}

// StationLogo is the station artwork reference, if the service has one.
type StationLogo struct {
	URL    string
	Width  int
	Height int
}

// Lineup is the resolved station table for one lineup code. Station order is
// the order of the service's channel map, first mapping per station winning.
type Lineup struct {
	Code     string
	Stations []Station
}

// lineupDetail is the GET /lineups/<id> payload (verboseMap variant).
type lineupDetail struct {
	Map []struct {
		StationID string `json:"stationID"`
		Channel   string `json:"channel"`
	} `json:"map"`
	Stations []struct {
		StationID         string   `json:"stationID"`
		Name              string   `json:"name"`
		Callsign          string   `json:"callsign"`
		BroadcastLanguage []string `json:"broadcastLanguage"`
		Logo              *struct {
			URL    string `json:"URL"`
			Width  int    `json:"width"`
			Height int    `json:"height"`
		} `json:"logo"`
	} `json:"stations"`
}

// ResolveLineup fetches the lineup detail and builds the Station table.
// Stations mapped under several channel numbers keep the first mapping
// encountered, so the table order is stable and deterministic. An unknown
// lineup code surfaces as ErrLineupNotFound.
func (c *Client) ResolveLineup(ctx context.Context, code string) (*Lineup, error) {
	raw, err := c.call(ctx, http.MethodGet, "/lineups/"+code, nil, callOpts{verboseMap: true})
	if err != nil {
		return nil, err
	}
	var detail lineupDetail
	if err := json.Unmarshal(raw, &detail); err != nil {
		return nil, fmt.Errorf("parse lineup %s: %w", code, err)
	}

	byID := make(map[string]int, len(detail.Stations))
	for i, st := range detail.Stations {
		byID[st.StationID] = i
	}

	lineup := &Lineup{Code: code, Stations: make([]Station, 0, len(detail.Map))}
	seen := make(map[string]bool, len(detail.Map))
	for _, m := range detail.Map {
		if seen[m.StationID] {
			continue
		}
		idx, ok := byID[m.StationID]
		if !ok {
			zap.L().Warn("channel map references unknown station",
				zap.String("lineup", code), zap.String("stationID", m.StationID))
			continue
		}
		seen[m.StationID] = true
		st := detail.Stations[idx]
		station := Station{
			StationID:         st.StationID,
			Name:              st.Name,
			Callsign:          st.Callsign,
			Channel:           normalizeChannel(m.Channel),
			BroadcastLanguage: st.BroadcastLanguage,
		}
		if st.Logo != nil && st.Logo.URL != "" {
			station.Logo = &StationLogo{URL: st.Logo.URL, Width: st.Logo.Width, Height: st.Logo.Height}
		}
		lineup.Stations = append(lineup.Stations, station)
	}

	zap.L().Info("lineup resolved",
		zap.String("lineup", code), zap.Int("channels", len(lineup.Stations)))
	return lineup, nil
}

// normalizeChannel strips leading zeros from purely numeric channel numbers
// ("002" → "2") and leaves compound OTA numbers like "2.1" untouched.
func normalizeChannel(ch string) string {
	if n, err := strconv.Atoi(strings.TrimSpace(ch)); err == nil {
		return strconv.Itoa(n)
	}
	return strings.TrimSpace(ch)
}
