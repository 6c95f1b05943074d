package history

import "time"

// AdMarker is the details[0].name value the export uses for ad impressions.
const AdMarker = "From Google Ads"

// SearchPrefix is prepended to every search title in the export.
const SearchPrefix = "Searched for "

// Detail is one entry of a record's "details" list.
type Detail struct {
	Name *string `json:"name"`
}

// Subtitle is one entry of a record's "subtitles" list. For watch events the
// first subtitle names the channel. Absent keys stay nil.
type Subtitle struct {
	Name *string `json:"name"`
	URL  *string `json:"url"`
}

// RawActivityRecord is one entry of a history export. Every field is optional;
// nil means the key was absent (or null) in the source document.
type RawActivityRecord struct {
	Header           *string
	Title            *string
	TitleURL         *string
	Time             *string
	Description      *string
	ActivityControls []string
	Products         []string
	Details          []Detail
	Subtitles        []Subtitle
}

// NormalizedRecord is the flat, fixed-column form of a RawActivityRecord.
type NormalizedRecord struct {
	Header           *string
	Title            *string
	TitleURL         *string
	Time             *time.Time
	Description      *string
	ActivityControls string
	Products         string
	SearchDetail     *string
	ChannelName      *string
	ChannelURL       *string
}

// WatchRecord is a persisted row of the watch_history table.
type WatchRecord struct {
	Title            *string
	Time             *time.Time
	ChannelName      *string
	VideoID          *string
	CategoryID       *string
	CategoryName     *string
	VideoDescription *string
}

// SearchRecord is a persisted row of the search_history table.
type SearchRecord struct {
	Title         *string
	Time          *time.Time
	VideoID       *string
	IsVideo       bool
	CategoryGuess *string // reserved, never populated
}

// VideoMeta is the catalog's answer for one video id. Missing snippet fields
// stay nil.
type VideoMeta struct {
	ID          string
	CategoryID  *string
	Title       *string
	Description *string
}
