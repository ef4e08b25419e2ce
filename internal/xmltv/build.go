package xmltv

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sdgrab/sd-xmltv/internal/sdjson"
)

// ErrMissingProgram means a schedule entry references a program ID absent
// from the fetched metadata. That is an upstream data-integrity violation
// and is fatal: the guide is not silently emitted with holes.
var ErrMissingProgram = errors.New("schedule references unknown program")

// keywordMD5Prefix tags each programme with its Schedules Direct content
// hash, so downstream tools can detect unchanged programme data.
const keywordMD5Prefix = "sd-md5-"

// xmltvRoles are the credit roles the DTD knows, in match priority order.
var xmltvRoles = []string{
	"director", "actor", "writer", "adapter", "producer",
	"composer", "editor", "presenter", "commentator", "guest",
}

// Build merges the station table, schedule entries, and program metadata
// into one XMLTV document. Channels appear in station-table order;
// programmes are sorted by station then start time (stable, so equal starts
// keep API order). Start/stop are converted from UTC to loc. Overlapping or
// duplicate airings are passed through as-is; that is an upstream
// data-quality property, not this builder's to fix.
func Build(lineup *sdjson.Lineup, entries []sdjson.ScheduleEntry, programs map[string]*sdjson.Program, loc *time.Location) (*TV, error) {
	if loc == nil {
		loc = time.Local
	}
	tv := &TV{
		SourceInfoName:    "Schedules Direct",
		GeneratorInfoName: "sd-xmltv",
		GeneratorInfoURL:  "https://github.com/sdgrab/sd-xmltv",
	}

	stationOrder := make(map[string]int, len(lineup.Stations))
	channelID := make(map[string]string, len(lineup.Stations))
	stationLang := make(map[string]string, len(lineup.Stations))
	for i, st := range lineup.Stations {
		id := fmt.Sprintf("I%d.%s.schedulesdirect.org", i, st.StationID)
		stationOrder[st.StationID] = i
		channelID[st.StationID] = id
		if len(st.BroadcastLanguage) > 0 {
			stationLang[st.StationID] = st.BroadcastLanguage[0]
		}

		ch := Channel{
			ID: id,
			DisplayNames: []string{
				st.Channel + " " + st.Name,
				st.Callsign,
				st.Channel,
			},
		}
		if st.Logo != nil {
			ch.Icon = &Icon{Src: st.Logo.URL, Width: st.Logo.Width, Height: st.Logo.Height}
		}
		tv.Channels = append(tv.Channels, ch)
	}

	sorted := make([]sdjson.ScheduleEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		oi, oj := stationOrder[sorted[i].StationID], stationOrder[sorted[j].StationID]
		if oi != oj {
			return oi < oj
		}
		return sorted[i].AirDateTime.Before(sorted[j].AirDateTime)
	})

	// dd_progid airing counters, zero-padded to the digit width of the
	// program count (matches the classic grabber output).
	prec := 1
	if n := len(programs); n > 1 {
		prec = int(math.Ceil(math.Log10(float64(n))))
	}
	airingCount := make(map[string]int, len(programs))

	for _, entry := range sorted {
		prog, ok := programs[entry.ProgramID]
		if !ok {
			return nil, fmt.Errorf("%w: %s (station %s at %s)",
				ErrMissingProgram, entry.ProgramID, entry.StationID, entry.AirDateTime.Format(time.RFC3339))
		}
		id, ok := channelID[entry.StationID]
		if !ok {
			// Schedule for a station outside the lineup: the fetcher only
			// asks for lineup stations, so this is the same class of
			// upstream inconsistency as a missing program.
			return nil, fmt.Errorf("%w: entry for unknown station %s", ErrMissingProgram, entry.StationID)
		}

		p := buildProgramme(entry, prog, id, stationLang[entry.StationID], loc)
		p.EpisodeNums = append(p.EpisodeNums, EpisodeNum{
			System: "dd_progid",
			Value:  fmt.Sprintf("%s.%0*d", prog.ProgramID, prec, airingCount[prog.ProgramID]),
		})
		airingCount[prog.ProgramID]++
		tv.Programmes = append(tv.Programmes, p)
	}
	return tv, nil
}

// buildProgramme translates one airing plus its metadata into a programme
// element. Everything here mirrors the upstream field semantics; absent
// source fields simply produce absent elements.
func buildProgramme(entry sdjson.ScheduleEntry, prog *sdjson.Program, channelID, lang string, loc *time.Location) Programme {
	start := entry.AirDateTime.In(loc)
	stop := start.Add(time.Duration(entry.Duration) * time.Second)

	p := Programme{
		Start:   start.Format(TimeLayout),
		Stop:    stop.Format(TimeLayout),
		Channel: channelID,
	}

	for _, t := range prog.Titles {
		if t.Title120 != "" {
			p.Titles = append(p.Titles, Text{Lang: lang, Value: t.Title120})
		}
	}
	if prog.EpisodeTitle150 != "" {
		p.SubTitle = &Text{Lang: lang, Value: prog.EpisodeTitle150}
	}
	if d, dLang := pickDescription(prog.Descriptions); d != "" {
		if dLang == "" {
			dLang = lang
		}
		p.Desc = &Text{Lang: dLang, Value: d}
	}
	p.Credits = buildCredits(prog.Cast, prog.Crew)

	switch {
	case prog.Movie != nil && prog.Movie.Year != "":
		p.Date = prog.Movie.Year
	case prog.OriginalAirDate != "":
		if t, err := time.Parse("2006-01-02", prog.OriginalAirDate); err == nil {
			p.Date = t.Format("20060102")
		}
	}

	for _, g := range prog.Genres {
		p.Categories = append(p.Categories, Text{Lang: lang, Value: g})
	}
	if entry.MD5 != "" {
		p.Keywords = append(p.Keywords, keywordMD5Prefix+entry.MD5)
	}

	switch {
	case prog.Duration > 0:
		p.Length = &Length{Units: "seconds", Value: strconv.Itoa(prog.Duration)}
	case prog.Movie != nil && prog.Movie.Duration > 0:
		p.Length = &Length{Units: "seconds", Value: strconv.Itoa(prog.Movie.Duration)}
	}

	p.URL = prog.OfficialURL

	if ep := gracenoteEpisodeNum(prog.Metadata); ep != "" {
		p.EpisodeNums = append(p.EpisodeNums, EpisodeNum{System: "xmltv_ns", Value: ep})
	}

	if anyHasPrefix(entry.VideoProperties, "hdtv") {
		p.Video = &Video{Quality: "HDTV"}
	}
	switch {
	case anyHasPrefix(entry.AudioProperties, "mono"):
		p.Audio = &Audio{Stereo: "mono"}
	case anyHasPrefix(entry.AudioProperties, "stereo"):
		p.Audio = &Audio{Stereo: "stereo"}
	case anyHasPrefix(entry.AudioProperties, "dd"):
		p.Audio = &Audio{Stereo: "dolby digital"}
	}

	if prog.OriginalAirDate != "" {
		if t, err := time.Parse("2006-01-02", prog.OriginalAirDate); err == nil {
			p.PreviouslyShown = &PreviouslyShown{Start: t.Format("20060102150405")}
		}
	}
	if strings.HasPrefix(strings.ToLower(prog.IsPremiereOrFinale), "premiere") {
		p.Premiere = &Text{Value: prog.IsPremiereOrFinale}
	}
	if entry.New {
		p.New = &Empty{}
	}
	if anyHasPrefix(entry.AudioProperties, "cc") {
		p.Subtitles = &Subtitles{Type: "teletext"}
	}

	for _, r := range prog.ContentRating {
		p.Ratings = append(p.Ratings, Rating{System: r.Body, Value: r.Code})
	}
	if prog.Movie != nil {
		for _, q := range prog.Movie.QualityRating {
			p.StarRatings = append(p.StarRatings, Rating{Value: q.Rating + "/" + q.MaxRating})
		}
	}
	return p
}

// pickDescription prefers the long description variant, falling back to the
// short one. Returns the text and its declared language, if any.
func pickDescription(d *sdjson.Descriptions) (text, lang string) {
	if d == nil {
		return "", ""
	}
	if len(d.Description1000) > 0 {
		return d.Description1000[0].Description, d.Description1000[0].DescriptionLanguage
	}
	if len(d.Description100) > 0 {
		return d.Description100[0].Description, d.Description100[0].DescriptionLanguage
	}
	return "", ""
}

// gracenoteEpisodeNum renders the xmltv_ns numbering string from the first
// Gracenote metadata block: zero-based "season/total.episode/total.part/total"
// with absent positions left empty.
func gracenoteEpisodeNum(metadata []map[string]sdjson.Gracenote) string {
	if len(metadata) == 0 {
		return ""
	}
	gn, ok := metadata[0]["Gracenote"]
	if !ok {
		return ""
	}
	var b strings.Builder
	if gn.Season > 0 {
		b.WriteString(strconv.Itoa(gn.Season - 1))
	}
	if gn.TotalSeasons > 0 {
		b.WriteString("/" + strconv.Itoa(gn.TotalSeasons))
	}
	b.WriteString(".")
	if gn.Episode > 0 {
		b.WriteString(strconv.Itoa(gn.Episode - 1))
	}
	if gn.TotalEpisodes > 0 {
		b.WriteString("/" + strconv.Itoa(gn.TotalEpisodes))
	}
	b.WriteString(".")
	if gn.Part > 0 {
		b.WriteString(strconv.Itoa(gn.Part - 1))
	}
	if gn.TotalParts > 0 {
		b.WriteString("/" + strconv.Itoa(gn.TotalParts))
	}
	if b.String() == ".." {
		return ""
	}
	return b.String()
}

// buildCredits maps cast and crew onto DTD credit roles. Roles are matched
// by normalized prefix ("Director of Photography" → director); unmatched
// roles are dropped, same as the classic grabbers.
func buildCredits(cast []sdjson.CastMember, crew []sdjson.CrewMember) *Credits {
	var c Credits
	used := false
	add := func(role, name, character string) {
		mapped := mapRole(role)
		if mapped == "" || name == "" {
			return
		}
		used = true
		switch mapped {
		case "director":
			c.Directors = append(c.Directors, name)
		case "actor":
			c.Actors = append(c.Actors, Actor{Role: character, Name: name})
		case "writer":
			c.Writers = append(c.Writers, name)
		case "adapter":
			c.Adapters = append(c.Adapters, name)
		case "producer":
			c.Producers = append(c.Producers, name)
		case "composer":
			c.Composers = append(c.Composers, name)
		case "editor":
			c.Editors = append(c.Editors, name)
		case "presenter":
			c.Presenters = append(c.Presenters, name)
		case "commentator":
			c.Commentators = append(c.Commentators, name)
		case "guest":
			c.Guests = append(c.Guests, name)
		}
	}
	for _, m := range cast {
		add(m.Role, m.Name, m.CharacterName)
	}
	for _, m := range crew {
		add(m.Role, m.Name, "")
	}
	if !used {
		return nil
	}
	return &c
}

// mapRole normalizes a source role name and prefix-matches it against the
// DTD roles.
func mapRole(role string) string {
	norm := normalizeRole(role)
	for _, r := range xmltvRoles {
		if strings.HasPrefix(norm, r) {
			return r
		}
	}
	return ""
}

// normalizeRole lowercases, strips punctuation, and hyphenates spaces, so
// "Executive Producer" becomes "executive-producer".
func normalizeRole(role string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(role)) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	return b.String()
}

// anyHasPrefix reports whether any value starts with prefix,
// case-insensitively.
func anyHasPrefix(values []string, prefix string) bool {
	for _, v := range values {
		if strings.HasPrefix(strings.ToLower(v), prefix) {
			return true
		}
	}
	return false
}
