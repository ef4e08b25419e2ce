package xmltv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sdgrab/sd-xmltv/internal/sdjson"
)

func testLineup() *sdjson.Lineup {
	return &sdjson.Lineup{
		Code: "USA-TEST-X",
		Stations: []sdjson.Station{
			{StationID: "100", Name: "KONE", Callsign: "KONE", Channel: "2",
				BroadcastLanguage: []string{"en"},
				Logo:              &sdjson.StationLogo{URL: "https://img.example/kone.png", Width: 360, Height: 270}},
			{StationID: "200", Name: "KTWO", Callsign: "KTWO", Channel: "2.1",
				BroadcastLanguage: []string{"en"}},
		},
	}
}

func testPrograms() map[string]*sdjson.Program {
	return map[string]*sdjson.Program{
		"EP1": {
			ProgramID:       "EP1",
			Titles:          []sdjson.Title{{Title120: "The Show"}},
			EpisodeTitle150: "Pilot",
			Descriptions: &sdjson.Descriptions{
				Description1000: []sdjson.Description{{DescriptionLanguage: "en", Description: "Long description."}},
			},
			OriginalAirDate: "2020-01-15",
			Genres:          []string{"Comedy"},
			Duration:        1800,
			Metadata: []map[string]sdjson.Gracenote{
				{"Gracenote": {Season: 2, Episode: 5, TotalEpisodes: 24}},
			},
			Cast: []sdjson.CastMember{
				{Name: "Jo Smith", Role: "Actor", CharacterName: "Lead"},
				{Name: "Pat Jones", Role: "Executive Producer"}, // no DTD role prefix, dropped
			},
			Crew: []sdjson.CrewMember{
				{Name: "Sam Reed", Role: "Director of Photography"},
			},
			ContentRating: []sdjson.ContentRating{{Body: "USA Parental Rating", Code: "TVPG"}},
		},
		"MV1": {
			ProgramID: "MV1",
			Titles:    []sdjson.Title{{Title120: "Some Film"}},
			Movie: &sdjson.Movie{Year: "1994", Duration: 5400,
				QualityRating: []sdjson.QualityRating{{Rating: "3.5", MaxRating: "4"}}},
			IsPremiereOrFinale: "Premiere",
		},
	}
}

func testEntries() []sdjson.ScheduleEntry {
	t0 := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	return []sdjson.ScheduleEntry{
		{StationID: "200", ProgramID: "EP1", AirDateTime: t0, Duration: 1800, MD5: "ccc"},
		{StationID: "100", ProgramID: "EP1", AirDateTime: t0.Add(30 * time.Minute), Duration: 1800,
			MD5: "aaa", New: true, AudioProperties: []string{"cc", "stereo"}, VideoProperties: []string{"hdtv"}},
		{StationID: "100", ProgramID: "MV1", AirDateTime: t0, Duration: 5400, MD5: "bbb"},
	}
}

func TestBuildChannels(t *testing.T) {
	tv, err := Build(testLineup(), nil, map[string]*sdjson.Program{}, time.UTC)
	require.NoError(t, err)
	require.Len(t, tv.Channels, 2)
	require.Empty(t, tv.Programmes)

	ch := tv.Channels[0]
	require.Equal(t, "I0.100.schedulesdirect.org", ch.ID)
	require.Equal(t, []string{"2 KONE", "KONE", "2"}, ch.DisplayNames)
	require.NotNil(t, ch.Icon)
	require.Equal(t, "https://img.example/kone.png", ch.Icon.Src)

	require.Equal(t, "I1.200.schedulesdirect.org", tv.Channels[1].ID)
	require.Nil(t, tv.Channels[1].Icon)
}

func TestBuildEmptyLineup(t *testing.T) {
	tv, err := Build(&sdjson.Lineup{Code: "USA-EMPTY-X"}, nil, map[string]*sdjson.Program{}, time.UTC)
	require.NoError(t, err)
	require.Empty(t, tv.Channels)
	require.Empty(t, tv.Programmes)

	data, err := Marshal(tv)
	require.NoError(t, err)
	require.Contains(t, string(data), "<tv")
}

func TestBuildProgrammeOrderingAndAiringCounters(t *testing.T) {
	tv, err := Build(testLineup(), testEntries(), testPrograms(), time.UTC)
	require.NoError(t, err)
	require.Len(t, tv.Programmes, 3)

	// Station-table order first, then start time within a station.
	require.Equal(t, "I0.100.schedulesdirect.org", tv.Programmes[0].Channel)
	require.Equal(t, "I0.100.schedulesdirect.org", tv.Programmes[1].Channel)
	require.Equal(t, "I1.200.schedulesdirect.org", tv.Programmes[2].Channel)
	require.Equal(t, "Some Film", tv.Programmes[0].Titles[0].Value)

	// dd_progid counter increments per airing of the same program.
	require.Equal(t, "MV1.0", ddProgID(t, tv.Programmes[0]))
	require.Equal(t, "EP1.0", ddProgID(t, tv.Programmes[1]))
	require.Equal(t, "EP1.1", ddProgID(t, tv.Programmes[2]))
}

func ddProgID(t *testing.T, p Programme) string {
	t.Helper()
	for _, e := range p.EpisodeNums {
		if e.System == "dd_progid" {
			return e.Value
		}
	}
	t.Fatal("no dd_progid episode-num")
	return ""
}

func TestBuildEpisodeFields(t *testing.T) {
	tv, err := Build(testLineup(), testEntries(), testPrograms(), time.UTC)
	require.NoError(t, err)

	ep := tv.Programmes[1] // EP1 on station 100
	require.Equal(t, "20260824003000 +0000", ep.Start)
	require.Equal(t, "20260824010000 +0000", ep.Stop)
	require.Equal(t, "The Show", ep.Titles[0].Value)
	require.Equal(t, "en", ep.Titles[0].Lang)
	require.Equal(t, "Pilot", ep.SubTitle.Value)
	require.Equal(t, "Long description.", ep.Desc.Value)
	require.Equal(t, "20200115", ep.Date)
	require.Equal(t, []Text{{Lang: "en", Value: "Comedy"}}, ep.Categories)
	require.Equal(t, []string{"sd-md5-aaa"}, ep.Keywords)
	require.Equal(t, &Length{Units: "seconds", Value: "1800"}, ep.Length)

	require.NotNil(t, ep.Credits)
	require.Equal(t, []Actor{{Role: "Lead", Name: "Jo Smith"}}, ep.Credits.Actors)
	require.Equal(t, []string{"Sam Reed"}, ep.Credits.Directors)
	require.Empty(t, ep.Credits.Producers, "unmatched roles are dropped")

	require.Equal(t, "1.4/24.", gracenoteNum(t, ep))
	require.NotNil(t, ep.Video)
	require.Equal(t, "HDTV", ep.Video.Quality)
	require.Equal(t, "stereo", ep.Audio.Stereo)
	require.NotNil(t, ep.New)
	require.NotNil(t, ep.Subtitles)
	require.Equal(t, "20200115000000", ep.PreviouslyShown.Start)
	require.Equal(t, []Rating{{System: "USA Parental Rating", Value: "TVPG"}}, ep.Ratings)
}

func gracenoteNum(t *testing.T, p Programme) string {
	t.Helper()
	for _, e := range p.EpisodeNums {
		if e.System == "xmltv_ns" {
			return e.Value
		}
	}
	return ""
}

func TestBuildMovieFields(t *testing.T) {
	tv, err := Build(testLineup(), testEntries(), testPrograms(), time.UTC)
	require.NoError(t, err)

	mv := tv.Programmes[0] // MV1 on station 100
	require.Equal(t, "1994", mv.Date, "movies use the release year")
	require.Equal(t, &Length{Units: "seconds", Value: "5400"}, mv.Length)
	require.NotNil(t, mv.Premiere)
	require.Equal(t, []Rating{{Value: "3.5/4"}}, mv.StarRatings)
	require.Empty(t, gracenoteNum(t, mv))
	require.Nil(t, mv.Video)
	require.Nil(t, mv.Audio)
	require.Nil(t, mv.New)
	require.Nil(t, mv.PreviouslyShown)
}

func TestBuildLocalTimezone(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	tv, err := Build(testLineup(), testEntries(), testPrograms(), loc)
	require.NoError(t, err)
	// 2026-08-24T00:00Z is 20:00 EDT the previous day.
	require.Equal(t, "20260823200000 -0400", tv.Programmes[0].Start)
}

func TestBuildMissingProgramFails(t *testing.T) {
	programs := testPrograms()
	delete(programs, "MV1")
	_, err := Build(testLineup(), testEntries(), programs, time.UTC)
	require.ErrorIs(t, err, ErrMissingProgram)
}

func TestBuildUnknownStationFails(t *testing.T) {
	entries := []sdjson.ScheduleEntry{{StationID: "999", ProgramID: "EP1",
		AirDateTime: time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)}}
	_, err := Build(testLineup(), entries, testPrograms(), time.UTC)
	require.ErrorIs(t, err, ErrMissingProgram)
}

func TestGracenoteEpisodeNum(t *testing.T) {
	tests := []struct {
		gn   sdjson.Gracenote
		want string
	}{
		{sdjson.Gracenote{Season: 2, Episode: 5, TotalEpisodes: 24}, "1.4/24."},
		{sdjson.Gracenote{Season: 1, TotalSeasons: 3, Episode: 1, Part: 2, TotalParts: 2}, "0/3.0.1/2"},
		{sdjson.Gracenote{Episode: 7}, ".6."},
		{sdjson.Gracenote{}, ""},
	}
	for _, tc := range tests {
		got := gracenoteEpisodeNum([]map[string]sdjson.Gracenote{{"Gracenote": tc.gn}})
		require.Equal(t, tc.want, got, "%+v", tc.gn)
	}
	require.Empty(t, gracenoteEpisodeNum(nil))
	require.Empty(t, gracenoteEpisodeNum([]map[string]sdjson.Gracenote{{"Other": {Season: 1}}}))
}

func TestMapRole(t *testing.T) {
	tests := map[string]string{
		"Actor":                   "actor",
		"Director of Photography": "director",
		"Writer (Story)":          "writer",
		"Guest Star":              "guest",
		"Executive Producer":      "",
		"Key Grip":                "",
	}
	for in, want := range tests {
		require.Equal(t, want, mapRole(in), "role %q", in)
	}
}
