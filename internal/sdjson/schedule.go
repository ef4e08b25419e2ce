package sdjson

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// ScheduleEntry is one airing placeholder: it ties a station and a start
// time to an opaque program ID. Many entries may reference the same program
// (reruns); metadata is fetched separately, once per unique ID.
type ScheduleEntry struct {
	StationID       string
	ProgramID       string
	AirDateTime     time.Time // always UTC; local conversion is the builder's job
	Duration        int       // seconds
	MD5             string
	New             bool
	AudioProperties []string
	VideoProperties []string
}

// scheduleRequest is one element of the POST /schedules body:
//
//	[{"stationID": "20454", "date": ["2015-03-13", "2015-03-14"]}, …]
type scheduleRequest struct {
	StationID string   `json:"stationID"`
	Date      []string `json:"date"`
}

// stationSchedule is one element of the /schedules response array. Elements
// carry their own embedded code for per-station failures.
type stationSchedule struct {
	StationID string `json:"stationID"`
	Code      int    `json:"code"`
	Response  string `json:"response"`
	Programs  []struct {
		ProgramID       string   `json:"programID"`
		AirDateTime     string   `json:"airDateTime"`
		Duration        int      `json:"duration"`
		MD5             string   `json:"md5"`
		New             bool     `json:"new"`
		AudioProperties []string `json:"audioProperties"`
		VideoProperties []string `json:"videoProperties"`
	} `json:"programs"`
}

// FetchSchedules retrieves the daily schedules for stationIDs over the
// [start, start+days) window. Stations are split into chunks of at most
// MaxStationsPerCall; chunks run concurrently on a bounded pool. The stage
// is all-or-nothing: any failed chunk discards every partial result and
// returns ErrScheduleFetch, so a half-populated guide is never produced.
func (c *Client) FetchSchedules(ctx context.Context, stationIDs []string, start time.Time, days int) ([]ScheduleEntry, error) {
	if len(stationIDs) == 0 || days <= 0 {
		return nil, nil
	}

	dates := make([]string, days)
	day := start.UTC()
	for i := range dates {
		dates[i] = day.Format("2006-01-02")
		day = day.AddDate(0, 0, 1)
	}

	chunks := chunkStrings(stationIDs, c.maxStations)
	results := make([][]ScheduleEntry, len(chunks))

	p := pool.New().WithContext(ctx).WithCancelOnError().WithMaxGoroutines(c.concurrency)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		p.Go(func(ctx context.Context) error {
			entries, err := c.fetchScheduleChunk(ctx, chunk, dates)
			if err != nil {
				return err
			}
			results[i] = entries
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScheduleFetch, err)
	}

	var out []ScheduleEntry
	for _, r := range results {
		out = append(out, r...)
	}
	zap.L().Info("schedules retrieved",
		zap.Int("stations", len(stationIDs)), zap.Int("days", days), zap.Int("airings", len(out)))
	return out, nil
}

func (c *Client) fetchScheduleChunk(ctx context.Context, stationIDs []string, dates []string) ([]ScheduleEntry, error) {
	body := make([]scheduleRequest, len(stationIDs))
	for i, sid := range stationIDs {
		body[i] = scheduleRequest{StationID: sid, Date: dates}
	}
	raw, err := c.call(ctx, http.MethodPost, "/schedules", body, callOpts{})
	if err != nil {
		return nil, err
	}
	var schedules []stationSchedule
	if err := json.Unmarshal(raw, &schedules); err != nil {
		return nil, fmt.Errorf("parse schedules: %w", err)
	}

	var entries []ScheduleEntry
	for _, sched := range schedules {
		if sched.Code != codeOK {
			return nil, &APIError{Code: sched.Code, Message: sched.Response, Endpoint: "schedules/" + sched.StationID}
		}
		for _, prog := range sched.Programs {
			at, err := parseUTCAirTime(prog.AirDateTime)
			if err != nil {
				return nil, fmt.Errorf("station %s program %s: %w", sched.StationID, prog.ProgramID, err)
			}
			entries = append(entries, ScheduleEntry{
				StationID:       sched.StationID,
				ProgramID:       prog.ProgramID,
				AirDateTime:     at,
				Duration:        prog.Duration,
				MD5:             prog.MD5,
				New:             prog.New,
				AudioProperties: prog.AudioProperties,
				VideoProperties: prog.VideoProperties,
			})
		}
	}
	return entries, nil
}

// parseUTCAirTime parses an airDateTime and rejects payloads not based on
// UTC. All internal times stay UTC until the XMLTV builder converts them.
func parseUTCAirTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse airDateTime %q: %w", s, err)
	}
	if _, offset := t.Zone(); offset != 0 {
		return time.Time{}, fmt.Errorf("airDateTime %q not UTC-based", s)
	}
	return t.UTC(), nil
}

// chunkStrings splits ids into slices of at most size elements, preserving
// order.
func chunkStrings(ids []string, size int) [][]string {
	if size <= 0 {
		size = len(ids)
	}
	var chunks [][]string
	for len(ids) > 0 {
		n := min(size, len(ids))
		chunks = append(chunks, ids[:n])
		ids = ids[n:]
	}
	return chunks
}
