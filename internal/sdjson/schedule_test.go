package sdjson

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func scheduleFor(sid string) string {
	return fmt.Sprintf(`{
		"stationID": %q,
		"programs": [
			{"programID": "EP%s01", "airDateTime": "2026-08-24T00:00:00Z",
			 "duration": 1800, "md5": "aaa", "new": true,
			 "audioProperties": ["cc","stereo"], "videoProperties": ["hdtv"]},
			{"programID": "EP%s02", "airDateTime": "2026-08-24T00:30:00Z",
			 "duration": 3600, "md5": "bbb"}
		]
	}`, sid, sid, sid)
}

func TestFetchSchedules(t *testing.T) {
	f := newFakeSD(t)
	var mu sync.Mutex
	var requests [][]scheduleRequest
	f.mux.HandleFunc("/schedules", func(w http.ResponseWriter, r *http.Request) {
		var body []scheduleRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		mu.Lock()
		requests = append(requests, body)
		mu.Unlock()
		out := "["
		for i, req := range body {
			if i > 0 {
				out += ","
			}
			out += scheduleFor(req.StationID)
		}
		fmt.Fprint(w, out+"]")
	})
	c := f.client(t, Options{MaxStationsPerCall: 2})

	start := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	entries, err := c.FetchSchedules(context.Background(), []string{"100", "200", "300"}, start, 3)
	require.NoError(t, err)
	require.Len(t, entries, 6)

	// 3 stations at 2 per call is two batches, each asking for all 3 dates.
	require.Len(t, requests, 2)
	for _, batch := range requests {
		for _, req := range batch {
			require.Equal(t, []string{"2026-08-24", "2026-08-25", "2026-08-26"}, req.Date)
		}
	}

	first := entries[0]
	require.Equal(t, "100", first.StationID)
	require.Equal(t, "EP10001", first.ProgramID)
	require.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), first.AirDateTime)
	require.Equal(t, 1800, first.Duration)
	require.True(t, first.New)
	require.Equal(t, []string{"hdtv"}, first.VideoProperties)
}

func TestFetchSchedulesEmptyInput(t *testing.T) {
	f := newFakeSD(t)
	c := f.client(t, Options{})
	entries, err := c.FetchSchedules(context.Background(), nil, time.Now(), 3)
	require.NoError(t, err)
	require.Nil(t, entries)
}

func TestFetchSchedulesStationErrorFailsStage(t *testing.T) {
	f := newFakeSD(t)
	f.mux.HandleFunc("/schedules", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"stationID":"100","code":2201,"response":"SCHEDULE_QUEUED"}]`)
	})
	c := f.client(t, Options{})

	_, err := c.FetchSchedules(context.Background(), []string{"100"}, time.Now(), 1)
	require.ErrorIs(t, err, ErrScheduleFetch)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 2201, apiErr.Code)
}

func TestParseUTCAirTime(t *testing.T) {
	got, err := parseUTCAirTime("2026-08-24T06:30:00Z")
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 8, 24, 6, 30, 0, 0, time.UTC), got)

	_, err = parseUTCAirTime("2026-08-24T06:30:00+02:00")
	require.Error(t, err, "non-UTC payloads are rejected")

	_, err = parseUTCAirTime("24 Aug 2026")
	require.Error(t, err)
}

func TestChunkStrings(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	require.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, chunkStrings(ids, 2))
	require.Equal(t, [][]string{{"a", "b", "c", "d", "e"}}, chunkStrings(ids, 0))
	require.Nil(t, chunkStrings(nil, 2))
}
