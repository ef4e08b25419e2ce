package sdjson

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/sdgrab/sd-xmltv/internal/metrics"
)

// Program is the descriptive metadata for one broadcast program,
// independent of when or where it airs. Field shapes follow the /programs
// response documented in the SD-JSON wiki.
type Program struct {
	ProgramID          string                 `json:"programID"`
	MD5                string                 `json:"md5"`
	Titles             []Title                `json:"titles"`
	EpisodeTitle150    string                 `json:"episodeTitle150"`
	Descriptions       *Descriptions          `json:"descriptions"`
	OriginalAirDate    string                 `json:"originalAirDate"` // "2006-01-02"
	Genres             []string               `json:"genres"`
	Duration           int                    `json:"duration"` // seconds
	Metadata           []map[string]Gracenote `json:"metadata"`
	Movie              *Movie                 `json:"movie"`
	ContentRating      []ContentRating        `json:"contentRating"`
	Cast               []CastMember           `json:"cast"`
	Crew               []CrewMember           `json:"crew"`
	ShowType           string                 `json:"showType"`
	OfficialURL        string                 `json:"officialURL"`
	IsPremiereOrFinale string                 `json:"isPremiereOrFinale"`

	// Code is the per-element embedded error (e.g. INVALID_PROGRAMID).
	Code     int    `json:"code"`
	Response string `json:"response"`
}

// Title holds the canonical 120-char title.
type Title struct {
	Title120 string `json:"title120"`
}

// Descriptions carries the long and short description variants.
type Descriptions struct {
	Description1000 []Description `json:"description1000"`
	Description100  []Description `json:"description100"`
}

// Description is one localized description text.
type Description struct {
	DescriptionLanguage string `json:"descriptionLanguage"`
	Description         string `json:"description"`
}

// Gracenote is the season/episode numbering block inside metadata. Values
// are 1-based; zero means absent.
type Gracenote struct {
	Season        int `json:"season"`
	Episode       int `json:"episode"`
	Part          int `json:"part"`
	TotalSeasons  int `json:"totalSeasons"`
	TotalEpisodes int `json:"totalEpisodes"`
	TotalParts    int `json:"totalParts"`
}

// Movie is the film-specific block: release year, runtime, quality ratings.
type Movie struct {
	Year          string          `json:"year"`
	Duration      int             `json:"duration"`
	QualityRating []QualityRating `json:"qualityRating"`
}

// QualityRating is a critic score, e.g. 3.5 out of 4.
type QualityRating struct {
	RatingsBody string `json:"ratingsBody"`
	Rating      string `json:"rating"`
	MaxRating   string `json:"maxRating"`
}

// ContentRating is an advisory rating from one ratings body.
type ContentRating struct {
	Body string `json:"body"`
	Code string `json:"code"`
}

// CastMember is an on-screen credit.
type CastMember struct {
	Name          string `json:"name"`
	Role          string `json:"role"`
	CharacterName string `json:"characterName"`
}

// CrewMember is an off-screen credit.
type CrewMember struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// FetchPrograms retrieves metadata for the given already-deduplicated
// program ID set and returns it keyed by ID. IDs are sorted before batching
// so identical inputs produce identical request sequences. Batches of at
// most MaxProgramsPerCall run concurrently on a bounded pool; the stage is
// all-or-nothing (ErrProgramFetch), because a guide with missing
// descriptions is broken output. No ID is requested more than once per run.
func (c *Client) FetchPrograms(ctx context.Context, programIDs []string) (map[string]*Program, error) {
	if len(programIDs) == 0 {
		return map[string]*Program{}, nil
	}
	ids := make([]string, len(programIDs))
	copy(ids, programIDs)
	sort.Strings(ids)

	chunks := chunkStrings(ids, c.maxPrograms)
	results := make([][]*Program, len(chunks))

	p := pool.New().WithContext(ctx).WithCancelOnError().WithMaxGoroutines(c.concurrency)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		p.Go(func(ctx context.Context) error {
			programs, err := c.fetchProgramChunk(ctx, chunk)
			if err != nil {
				return err
			}
			results[i] = programs
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProgramFetch, err)
	}

	// Single merge step after all batches complete; batches are disjoint so
	// every key is written once.
	merged := make(map[string]*Program, len(ids))
	for _, batch := range results {
		for _, prog := range batch {
			merged[prog.ProgramID] = prog
		}
	}
	metrics.ProgramsFetched.Add(float64(len(merged)))
	zap.L().Info("programs retrieved",
		zap.Int("requested", len(ids)), zap.Int("retrieved", len(merged)))
	return merged, nil
}

func (c *Client) fetchProgramChunk(ctx context.Context, ids []string) ([]*Program, error) {
	raw, err := c.call(ctx, http.MethodPost, "/programs", ids, callOpts{})
	if err != nil {
		return nil, err
	}
	var programs []*Program
	if err := json.Unmarshal(raw, &programs); err != nil {
		return nil, fmt.Errorf("parse programs: %w", err)
	}
	for _, prog := range programs {
		if prog.Code != codeOK {
			return nil, &APIError{Code: prog.Code, Message: prog.Response, Endpoint: "programs/" + prog.ProgramID}
		}
	}
	return programs, nil
}
