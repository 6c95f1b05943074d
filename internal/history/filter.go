package history

import "strings"

func isAd(n NormalizedRecord) bool {
	return n.SearchDetail != nil && *n.SearchDetail == AdMarker
}

// FilterWatch keeps records that name a channel and are not ad impressions.
func FilterWatch(records []NormalizedRecord) []NormalizedRecord {
	out := make([]NormalizedRecord, 0, len(records))
	for _, n := range records {
		if n.ChannelName == nil || isAd(n) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// FilterSearch strips the "Searched for " title prefix and drops ad records
// that also carry a description. Ads without a description are kept.
func FilterSearch(records []NormalizedRecord) []NormalizedRecord {
	out := make([]NormalizedRecord, 0, len(records))
	for _, n := range records {
		if n.Title != nil && strings.HasPrefix(*n.Title, SearchPrefix) {
			title := strings.TrimPrefix(*n.Title, SearchPrefix)
			n.Title = &title
		}
		if isAd(n) && n.Description != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// BuildWatch projects filtered rows onto the watch_history shape. Enrichment
// columns stay nil until the catalog enricher fills them.
func BuildWatch(records []NormalizedRecord) []WatchRecord {
	out := make([]WatchRecord, 0, len(records))
	for _, n := range records {
		out = append(out, WatchRecord{
			Title:       n.Title,
			Time:        n.Time,
			ChannelName: n.ChannelName,
			VideoID:     ExtractVideoID(n.TitleURL),
		})
	}
	return out
}

// BuildSearch projects filtered rows onto the search_history shape.
func BuildSearch(records []NormalizedRecord) []SearchRecord {
	out := make([]SearchRecord, 0, len(records))
	for _, n := range records {
		id := ExtractVideoID(n.TitleURL)
		out = append(out, SearchRecord{
			Title:   n.Title,
			Time:    n.Time,
			VideoID: id,
			IsVideo: id != nil,
		})
	}
	return out
}
