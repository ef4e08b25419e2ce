// Package xmltv models the XMLTV document tree and builds it from resolved
// Schedules Direct data. Element order inside Programme follows the XMLTV
// DTD (https://github.com/XMLTV/xmltv/blob/master/xmltv.dtd), which consumers
// validate against.
package xmltv

import "encoding/xml"

// TimeLayout is the XMLTV timestamp format for programme start/stop.
const TimeLayout = "20060102150405 -0700"

// TV is the document root: all channel elements precede all programmes.
type TV struct {
	XMLName           xml.Name    `xml:"tv"`
	SourceInfoName    string      `xml:"source-info-name,attr,omitempty"`
	GeneratorInfoName string      `xml:"generator-info-name,attr,omitempty"`
	GeneratorInfoURL  string      `xml:"generator-info-url,attr,omitempty"`
	Channels          []Channel   `xml:"channel"`
	Programmes        []Programme `xml:"programme"`
}

// Channel is one station. The first three display-names are number+name,
// callsign, and number — MythTV assumes that order.
type Channel struct {
	ID           string   `xml:"id,attr"`
	DisplayNames []string `xml:"display-name"`
	Icon         *Icon    `xml:"icon"`
}

// Icon is channel or programme artwork.
type Icon struct {
	Src    string `xml:"src,attr"`
	Width  int    `xml:"width,attr,omitempty"`
	Height int    `xml:"height,attr,omitempty"`
}

// Programme is one airing. Child fields are declared in DTD order; the
// encoder emits them in declaration order.
type Programme struct {
	Start   string `xml:"start,attr"`
	Stop    string `xml:"stop,attr"`
	Channel string `xml:"channel,attr"`

	Titles          []Text           `xml:"title"`
	SubTitle        *Text            `xml:"sub-title"`
	Desc            *Text            `xml:"desc"`
	Credits         *Credits         `xml:"credits"`
	Date            string           `xml:"date,omitempty"`
	Categories      []Text           `xml:"category"`
	Keywords        []string         `xml:"keyword"`
	Length          *Length          `xml:"length"`
	URL             string           `xml:"url,omitempty"`
	EpisodeNums     []EpisodeNum     `xml:"episode-num"`
	Video           *Video           `xml:"video"`
	Audio           *Audio           `xml:"audio"`
	PreviouslyShown *PreviouslyShown `xml:"previously-shown"`
	Premiere        *Text            `xml:"premiere"`
	New             *Empty           `xml:"new"`
	Subtitles       *Subtitles       `xml:"subtitles"`
	Ratings         []Rating         `xml:"rating"`
	StarRatings     []Rating         `xml:"star-rating"`
}

// Text is an element with optional language attribute.
type Text struct {
	Lang  string `xml:"lang,attr,omitempty"`
	Value string `xml:",chardata"`
}

// Credits lists credited people grouped by DTD role, in DTD role order.
type Credits struct {
	Directors    []string `xml:"director"`
	Actors       []Actor  `xml:"actor"`
	Writers      []string `xml:"writer"`
	Adapters     []string `xml:"adapter"`
	Producers    []string `xml:"producer"`
	Composers    []string `xml:"composer"`
	Editors      []string `xml:"editor"`
	Presenters   []string `xml:"presenter"`
	Commentators []string `xml:"commentator"`
	Guests       []string `xml:"guest"`
}

// Actor carries the optional character-name role attribute.
type Actor struct {
	Role string `xml:"role,attr,omitempty"`
	Name string `xml:",chardata"`
}

// Length is the programme runtime.
type Length struct {
	Units string `xml:"units,attr"`
	Value string `xml:",chardata"`
}

// EpisodeNum is an episode number in a named system (xmltv_ns, dd_progid).
type EpisodeNum struct {
	System string `xml:"system,attr"`
	Value  string `xml:",chardata"`
}

// Video holds picture quality info.
type Video struct {
	Quality string `xml:"quality,omitempty"`
}

// Audio holds the stereo mode.
type Audio struct {
	Stereo string `xml:"stereo,omitempty"`
}

// PreviouslyShown marks a rerun with its original air timestamp.
type PreviouslyShown struct {
	Start string `xml:"start,attr,omitempty"`
}

// Subtitles marks closed-caption availability.
type Subtitles struct {
	Type string `xml:"type,attr,omitempty"`
}

// Rating is an advisory or quality rating with its system/body.
type Rating struct {
	System string `xml:"system,attr,omitempty"`
	Value  string `xml:"value"`
}

// Empty renders as a bare element, e.g. <new/>.
type Empty struct{}
