package sdjson

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// AccountStatus is the GET /status payload subset the tool cares about:
// account expiry and any service-side incident notices.
type AccountStatus struct {
	Account struct {
		Expires    string   `json:"expires"`
		Messages   []string `json:"messages"`
		MaxLineups int      `json:"maxLineups"`
	} `json:"account"`
	Lineups      []LineupRef `json:"lineups"`
	SystemStatus []struct {
		Date    string `json:"date"`
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"systemStatus"`
}

// LineupRef is one lineup reference as listed by /lineups or /headends.
type LineupRef struct {
	Lineup    string `json:"lineup"`
	Name      string `json:"name"`
	Transport string `json:"transport"`
	Location  string `json:"location"`
	URI       string `json:"uri"`
}

// Headend is one headend returned by lineup discovery for a country/postal
// code pair.
type Headend struct {
	Headend   string      `json:"headend"`
	Transport string      `json:"transport"`
	Location  string      `json:"location"`
	Lineups   []LineupRef `json:"lineups"`
}

// Status fetches the account status. Advisory: the pipeline logs an
// upcoming expiry but does not fail on it.
func (c *Client) Status(ctx context.Context) (*AccountStatus, error) {
	raw, err := c.call(ctx, http.MethodGet, "/status", nil, callOpts{})
	if err != nil {
		return nil, err
	}
	var st AccountStatus
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("parse status: %w", err)
	}
	return &st, nil
}

// Lineups lists the lineups registered to the account.
func (c *Client) Lineups(ctx context.Context) ([]LineupRef, error) {
	raw, err := c.call(ctx, http.MethodGet, "/lineups", nil, callOpts{})
	if err != nil {
		return nil, err
	}
	var resp struct {
		Lineups []LineupRef `json:"lineups"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("parse lineups: %w", err)
	}
	return resp.Lineups, nil
}

// Headends discovers the headends (and their lineups) available for a
// country and postal code, for users picking a lineup to configure.
func (c *Client) Headends(ctx context.Context, country, postalCode string) ([]Headend, error) {
	q := url.Values{"country": {country}, "postalcode": {postalCode}}
	raw, err := c.call(ctx, http.MethodGet, "/headends?"+q.Encode(), nil, callOpts{})
	if err != nil {
		return nil, err
	}
	var headends []Headend
	if err := json.Unmarshal(raw, &headends); err != nil {
		return nil, fmt.Errorf("parse headends: %w", err)
	}
	return headends, nil
}
