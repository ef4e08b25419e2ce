package guide

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sdgrab/sd-xmltv/internal/config"
	"github.com/sdgrab/sd-xmltv/internal/sdjson"
)

// fakeService serves the full endpoint set one pipeline run touches.
type fakeService struct {
	srv          *httptest.Server
	programsFail bool
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()
	f := &fakeService{}
	mux := http.NewServeMux()

	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":0,"token":"tok1","serverID":"test"}`)
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":0,"account":{"expires":"2026-12-31"},"systemStatus":[{"status":"Online"}]}`)
	})
	mux.HandleFunc("/lineups/USA-TEST-X", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"map": [{"stationID": "100", "channel": "2"}, {"stationID": "200", "channel": "7"}],
			"stations": [
				{"stationID": "100", "name": "KONE", "callsign": "KONE", "broadcastLanguage": ["en"]},
				{"stationID": "200", "name": "KTWO", "callsign": "KTWO", "broadcastLanguage": ["en"]}
			]
		}`)
	})
	mux.HandleFunc("/schedules", func(w http.ResponseWriter, r *http.Request) {
		var body []struct {
			StationID string   `json:"stationID"`
			Date      []string `json:"date"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		out := "["
		for i, req := range body {
			if i > 0 {
				out += ","
			}
			out += fmt.Sprintf(`{
				"stationID": %q,
				"programs": [
					{"programID": "EP1", "airDateTime": "%sT00:00:00Z", "duration": 1800, "md5": "m1"},
					{"programID": "EP2", "airDateTime": "%sT00:30:00Z", "duration": 3600, "md5": "m2"}
				]
			}`, req.StationID, req.Date[0], req.Date[0])
		}
		fmt.Fprint(w, out+"]")
	})
	mux.HandleFunc("/programs", func(w http.ResponseWriter, r *http.Request) {
		if f.programsFail {
			fmt.Fprint(w, `{"code":3000,"message":"service offline"}`)
			return
		}
		var ids []string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ids))
		out := "["
		for i, id := range ids {
			if i > 0 {
				out += ","
			}
			out += fmt.Sprintf(`{"programID":%q,"titles":[{"title120":"Show %s"}]}`, id, id)
		}
		fmt.Fprint(w, out+"]")
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeService) config(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.URL = f.srv.URL
	cfg.Username = "user"
	cfg.Password = "secret"
	cfg.Lineup = "USA-TEST-X"
	cfg.Days = 2
	cfg.Timezone = "UTC"
	cfg.Output = filepath.Join(t.TempDir(), "guide.xml")
	cfg.RequestsPerSecond = 1000
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestRunWritesGuide(t *testing.T) {
	f := newFakeService(t)
	cfg := f.config(t)

	start := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	doc, err := run(context.Background(), cfg, start)
	require.NoError(t, err)

	require.Len(t, doc.Channels, 2)
	// 2 stations times 2 airings; both stations share EP1/EP2, fetched once.
	require.Len(t, doc.Programmes, 4)
	require.Equal(t, "Show EP1", doc.Programmes[0].Titles[0].Value)

	data, err := os.ReadFile(cfg.Output)
	require.NoError(t, err)
	require.Contains(t, string(data), `<!DOCTYPE tv SYSTEM "xmltv.dtd">`)
	require.Contains(t, string(data), "Show EP2")
}

func TestRunBuildOnlyWithoutOutput(t *testing.T) {
	f := newFakeService(t)
	cfg := f.config(t)
	out := cfg.Output
	cfg.Output = ""

	doc, err := run(context.Background(), cfg, time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, doc.Programmes, 4)
	_, err = os.Stat(out)
	require.True(t, os.IsNotExist(err))
}

func TestRunFailureLeavesExistingGuideUntouched(t *testing.T) {
	f := newFakeService(t)
	cfg := f.config(t)
	require.NoError(t, os.WriteFile(cfg.Output, []byte("previous guide"), 0o644))

	f.programsFail = true
	_, err := run(context.Background(), cfg, time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC))
	require.ErrorIs(t, err, sdjson.ErrProgramFetch)

	data, err := os.ReadFile(cfg.Output)
	require.NoError(t, err)
	require.Equal(t, "previous guide", string(data))
}

func TestUniqueProgramIDs(t *testing.T) {
	entries := []sdjson.ScheduleEntry{
		{ProgramID: "EP2"}, {ProgramID: "EP1"}, {ProgramID: "EP2"}, {ProgramID: ""},
	}
	require.Equal(t, []string{"EP2", "EP1"}, uniqueProgramIDs(entries))
	require.Nil(t, uniqueProgramIDs(nil))
}
