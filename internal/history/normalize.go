package history

import (
	"strings"
	"time"
)

// timeLayouts are tried in order when parsing the export's time field.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime returns nil for a missing or unparsable timestamp.
func parseTime(s *string) *time.Time {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	return nil
}

// Normalize flattens raw records into fixed-column rows, one per input, in
// input order. It never fails: bad timestamps become nil.
func Normalize(raw []RawActivityRecord) []NormalizedRecord {
	out := make([]NormalizedRecord, 0, len(raw))
	for _, r := range raw {
		n := NormalizedRecord{
			Header:           r.Header,
			Title:            r.Title,
			TitleURL:         r.TitleURL,
			Time:             parseTime(r.Time),
			Description:      r.Description,
			ActivityControls: strings.Join(r.ActivityControls, ", "),
			Products:         strings.Join(r.Products, ", "),
		}
		if len(r.Details) > 0 {
			n.SearchDetail = r.Details[0].Name
		}
		if len(r.Subtitles) > 0 {
			n.ChannelName = r.Subtitles[0].Name
			n.ChannelURL = r.Subtitles[0].URL
		}
		out = append(out, n)
	}
	return out
}
