// Package analytics computes the dashboard aggregates over loaded history.
// Everything here works in memory on the rows returned by storage.Load.
package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/runnerr0/yoda/internal/history"
)

const (
	// All is the dropdown value that disables a channel or category filter.
	All = "All"
	// Others labels the bucket that small categories are folded into.
	Others = "Others"

	DefaultTopN       = 10
	DefaultSmallShare = 0.02

	dayLayout = "2006-01-02"
)

// Filter narrows the rows a dashboard is built from. Zero Start and End
// default to the first and last watch day. Dates compare by calendar day
// (UTC), inclusive on both ends.
type Filter struct {
	Start    time.Time
	End      time.Time
	Channel  string
	Category string
}

// Apply returns the watch and search rows selected by f. Channel and
// category only narrow watch rows. Rows without a timestamp never match.
func Apply(watch []history.WatchRecord, search []history.SearchRecord, f Filter) ([]history.WatchRecord, []history.SearchRecord) {
	start, end := f.bounds(watch)

	var fw []history.WatchRecord
	for _, w := range watch {
		if !inRange(w.Time, start, end) {
			continue
		}
		if active(f.Channel) && (w.ChannelName == nil || *w.ChannelName != f.Channel) {
			continue
		}
		if active(f.Category) && (w.CategoryName == nil || *w.CategoryName != f.Category) {
			continue
		}
		fw = append(fw, w)
	}

	var fs []history.SearchRecord
	for _, s := range search {
		if inRange(s.Time, start, end) {
			fs = append(fs, s)
		}
	}
	return fw, fs
}

func (f Filter) bounds(watch []history.WatchRecord) (string, string) {
	var start, end string
	if !f.Start.IsZero() {
		start = dayKey(f.Start)
	}
	if !f.End.IsZero() {
		end = dayKey(f.End)
	}
	if start != "" && end != "" {
		return start, end
	}

	minDay, maxDay := watchDayRange(watch)
	if start == "" {
		start = minDay
	}
	if end == "" {
		end = maxDay
	}
	return start, end
}

func inRange(t *time.Time, start, end string) bool {
	if t == nil {
		return false
	}
	d := dayKey(*t)
	if start != "" && d < start {
		return false
	}
	if end != "" && d > end {
		return false
	}
	return true
}

func active(v string) bool {
	return v != "" && v != All
}

// TopChannels ranks channels by watch count. Ties keep first appearance.
func TopChannels(watch []history.WatchRecord, n int) []LabelCount {
	var c counter
	for _, w := range watch {
		if w.ChannelName != nil {
			c.add(*w.ChannelName)
		}
	}
	return head(c.ranked(), n)
}

// TopSearches ranks search terms, compared lower-cased and trimmed.
func TopSearches(search []history.SearchRecord, n int) []LabelCount {
	var c counter
	for _, s := range search {
		if s.Title == nil {
			continue
		}
		term := strings.ToLower(strings.TrimSpace(*s.Title))
		if term == "" {
			continue
		}
		c.add(term)
	}
	return head(c.ranked(), n)
}

// CategoryShares returns the category distribution. Categories whose share
// is below threshold are summed into a single Others entry.
func CategoryShares(watch []history.WatchRecord, threshold float64) []CategoryShare {
	var c counter
	for _, w := range watch {
		if w.CategoryName != nil {
			c.add(*w.CategoryName)
		}
	}
	ranked := foldSmall(c.ranked(), c.total, threshold)

	out := make([]CategoryShare, len(ranked))
	for i, lc := range ranked {
		out[i] = CategoryShare{
			Category: lc.Label,
			Count:    lc.Count,
			Share:    float64(lc.Count) / float64(c.total),
		}
	}
	return out
}

// DailyCounts returns watches per calendar day, oldest first.
func DailyCounts(watch []history.WatchRecord) []PeriodCount {
	return periodCounts(watch, dayKey)
}

// WeeklyCounts returns watches per ISO week, oldest first.
func WeeklyCounts(watch []history.WatchRecord) []PeriodCount {
	return periodCounts(watch, weekKey)
}

func periodCounts(watch []history.WatchRecord, key func(time.Time) string) []PeriodCount {
	counts := make(map[string]int)
	for _, w := range watch {
		if w.Time != nil {
			counts[key(*w.Time)]++
		}
	}
	periods := sortedKeys(counts)
	out := make([]PeriodCount, len(periods))
	for i, p := range periods {
		out[i] = PeriodCount{Period: p, Count: counts[p]}
	}
	return out
}

// CategoryOverTime returns one weekly series per category, largest total
// first. Categories below threshold of the overall count are folded into
// Others. Every series covers every week in the data, zero filled.
func CategoryOverTime(watch []history.WatchRecord, threshold float64) []CategorySeries {
	var c counter
	weekly := make(map[string]map[string]int)
	weeks := make(map[string]int)
	for _, w := range watch {
		if w.Time == nil || w.CategoryName == nil {
			continue
		}
		cat, week := *w.CategoryName, weekKey(*w.Time)
		c.add(cat)
		if weekly[cat] == nil {
			weekly[cat] = make(map[string]int)
		}
		weekly[cat][week]++
		weeks[week]++
	}
	if c.total == 0 {
		return nil
	}

	kept := make(map[string]bool)
	for _, lc := range c.ranked() {
		if lc.Label != Others && !isSmall(lc.Count, c.total, threshold) {
			kept[lc.Label] = true
		}
	}
	folded := make(map[string]int)
	for cat, byWeek := range weekly {
		if kept[cat] {
			continue
		}
		for week, n := range byWeek {
			folded[week] += n
		}
	}
	if len(folded) > 0 {
		weekly[Others] = folded
	}

	order := sortedKeys(weeks)
	var out []CategorySeries
	for _, lc := range foldSmall(c.ranked(), c.total, threshold) {
		series := CategorySeries{Category: lc.Label, Total: lc.Count, Points: make([]PeriodCount, len(order))}
		for i, week := range order {
			series.Points[i] = PeriodCount{Period: week, Count: weekly[lc.Label][week]}
		}
		out = append(out, series)
	}
	return out
}

// SearchVsWatch pairs daily search and watch counts. Days present on only
// one side are zero filled on the other. Both inputs must be non-empty.
func SearchVsWatch(watch []history.WatchRecord, search []history.SearchRecord) []DayActivity {
	if len(watch) == 0 || len(search) == 0 {
		return nil
	}

	watches := make(map[string]int)
	days := make(map[string]int)
	for _, w := range watch {
		if w.Time != nil {
			d := dayKey(*w.Time)
			watches[d]++
			days[d]++
		}
	}
	searches := make(map[string]int)
	for _, s := range search {
		if s.Time != nil {
			d := dayKey(*s.Time)
			searches[d]++
			days[d]++
		}
	}

	keys := sortedKeys(days)
	out := make([]DayActivity, len(keys))
	for i, d := range keys {
		out[i] = DayActivity{Date: d, Searches: searches[d], Watches: watches[d]}
	}
	return out
}

// Options lists distinct channels and categories in order of first
// appearance, plus the watch date range.
func Options(watch []history.WatchRecord) FilterOptions {
	opts := FilterOptions{Channels: []string{}, Categories: []string{}}
	seenChannel := make(map[string]bool)
	seenCategory := make(map[string]bool)
	for _, w := range watch {
		if w.ChannelName != nil && !seenChannel[*w.ChannelName] {
			seenChannel[*w.ChannelName] = true
			opts.Channels = append(opts.Channels, *w.ChannelName)
		}
		if w.CategoryName != nil && !seenCategory[*w.CategoryName] {
			seenCategory[*w.CategoryName] = true
			opts.Categories = append(opts.Categories, *w.CategoryName)
		}
	}
	opts.MinDate, opts.MaxDate = watchDayRange(watch)
	return opts
}

// BuildOptions tunes Build. Zero values take the defaults.
type BuildOptions struct {
	TopN       int
	SmallShare float64
}

// Build filters the loaded rows and computes every chart.
func Build(watch []history.WatchRecord, search []history.SearchRecord, f Filter, opts BuildOptions) Dashboard {
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	if opts.SmallShare <= 0 {
		opts.SmallShare = DefaultSmallShare
	}
	if len(watch) == 0 && len(search) == 0 {
		return Dashboard{Empty: true}
	}

	fw, fs := Apply(watch, search, f)
	return Dashboard{
		WatchCount:       len(fw),
		SearchCount:      len(fs),
		TopChannels:      TopChannels(fw, opts.TopN),
		TopSearches:      TopSearches(fs, opts.TopN),
		Categories:       CategoryShares(fw, opts.SmallShare),
		Daily:            DailyCounts(fw),
		Weekly:           WeeklyCounts(fw),
		CategoryOverTime: CategoryOverTime(fw, opts.SmallShare),
		SearchVsWatch:    SearchVsWatch(fw, fs),
	}
}

// ParseDate parses a YYYY-MM-DD date. An empty string is the zero time.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return t, nil
}

func dayKey(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

func weekKey(t time.Time) string {
	y, w := t.UTC().ISOWeek()
	return fmt.Sprintf("%04d-W%02d", y, w)
}

func watchDayRange(watch []history.WatchRecord) (string, string) {
	var lo, hi string
	for _, w := range watch {
		if w.Time == nil {
			continue
		}
		d := dayKey(*w.Time)
		if lo == "" || d < lo {
			lo = d
		}
		if hi == "" || d > hi {
			hi = d
		}
	}
	return lo, hi
}

func isSmall(count, total int, threshold float64) bool {
	return float64(count)/float64(total) < threshold
}

// foldSmall replaces entries under threshold with one Others entry and
// re-ranks the result.
func foldSmall(ranked []LabelCount, total int, threshold float64) []LabelCount {
	if total == 0 {
		return nil
	}
	var out []LabelCount
	others := 0
	for _, lc := range ranked {
		if isSmall(lc.Count, total, threshold) || lc.Label == Others {
			others += lc.Count
			continue
		}
		out = append(out, lc)
	}
	if others > 0 {
		out = append(out, LabelCount{Label: Others, Count: others})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

func head(lc []LabelCount, n int) []LabelCount {
	if n > 0 && len(lc) > n {
		return lc[:n]
	}
	return lc
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// counter counts labels and remembers first-appearance order.
type counter struct {
	order  []string
	counts map[string]int
	total  int
}

func (c *counter) add(label string) {
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	if _, ok := c.counts[label]; !ok {
		c.order = append(c.order, label)
	}
	c.counts[label]++
	c.total++
}

func (c *counter) ranked() []LabelCount {
	out := make([]LabelCount, len(c.order))
	for i, label := range c.order {
		out[i] = LabelCount{Label: label, Count: c.counts[label]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}
