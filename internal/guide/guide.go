// Package guide composes the fixed pipeline: authenticate → resolve lineup →
// fetch schedules → fetch program metadata → build XMLTV → write output.
// Each stage starts only after the previous stage's full result is available;
// every stage either returns a complete, consistent result or fails the run.
// On any failure nothing is written, so a known-good guide file is never
// replaced by a partial one.
package guide

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sdgrab/sd-xmltv/internal/config"
	"github.com/sdgrab/sd-xmltv/internal/metrics"
	"github.com/sdgrab/sd-xmltv/internal/sdjson"
	"github.com/sdgrab/sd-xmltv/internal/xmltv"
)

// Run executes one full guide run with the date window starting today.
// The returned document is also written to cfg.Output when set.
func Run(ctx context.Context, cfg *config.Config) (*xmltv.TV, error) {
	return run(ctx, cfg, time.Now())
}

func run(ctx context.Context, cfg *config.Config, start time.Time) (*xmltv.TV, error) {
	began := time.Now()
	log := zap.L()

	client, err := sdjson.NewClient(sdjson.Options{
		BaseURL:            cfg.URL,
		Username:           cfg.Username,
		PasswordSHA1:       cfg.PasswordSHA1,
		Headers:            cfg.Headers,
		Concurrency:        cfg.Concurrency,
		RequestsPerSecond:  cfg.RequestsPerSecond,
		MaxStationsPerCall: cfg.MaxStationsPerCall,
		MaxProgramsPerCall: cfg.MaxProgramsPerCall,
	})
	if err != nil {
		return nil, err
	}

	if err := client.Authenticate(ctx); err != nil {
		return nil, err
	}

	// Advisory only: warn about approaching account expiry and service
	// incidents, but never fail a run over the status endpoint.
	if status, err := client.Status(ctx); err != nil {
		log.Warn("account status unavailable", zap.Error(err))
	} else {
		log.Info("account status", zap.String("expires", status.Account.Expires))
		for _, sys := range status.SystemStatus {
			if sys.Status != "" && sys.Status != "Online" {
				log.Warn("service status", zap.String("status", sys.Status), zap.String("message", sys.Message))
			}
		}
	}

	lineup, err := client.ResolveLineup(ctx, cfg.Lineup)
	if err != nil {
		return nil, err
	}

	stationIDs := make([]string, len(lineup.Stations))
	for i, st := range lineup.Stations {
		stationIDs[i] = st.StationID
	}

	entries, err := client.FetchSchedules(ctx, stationIDs, start, cfg.Days)
	if err != nil {
		return nil, err
	}

	programs, err := client.FetchPrograms(ctx, uniqueProgramIDs(entries))
	if err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	doc, err := xmltv.Build(lineup, entries, programs, loc)
	if err != nil {
		return nil, err
	}

	if cfg.Output != "" {
		if err := xmltv.WriteFile(doc, cfg.Output); err != nil {
			return nil, err
		}
		log.Info("guide written",
			zap.String("path", cfg.Output),
			zap.Int("channels", len(doc.Channels)),
			zap.Int("programmes", len(doc.Programmes)))
	}

	metrics.RunDuration.Observe(time.Since(began).Seconds())
	metrics.LastSuccess.SetToCurrentTime()
	return doc, nil
}

// uniqueProgramIDs collects the deduplicated program ID set referenced by
// the schedule entries. Reruns across stations and days collapse to one ID,
// which is the central fetch-once invariant of the program stage.
func uniqueProgramIDs(entries []sdjson.ScheduleEntry) []string {
	seen := make(map[string]bool, len(entries))
	var ids []string
	for _, e := range entries {
		if e.ProgramID == "" || seen[e.ProgramID] {
			continue
		}
		seen[e.ProgramID] = true
		ids = append(ids, e.ProgramID)
	}
	return ids
}
