package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/runnerr0/yoda/internal/analytics"
	"github.com/runnerr0/yoda/internal/config"
	"github.com/runnerr0/yoda/internal/storage"
)

// Execute implements the go-flags Commander interface for ReportCommand.
func (c *ReportCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	store, _, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	return c.executeWithStore(cfg, store, time.Now())
}

// executeWithStore builds the report from a provided store (for testing).
func (c *ReportCommand) executeWithStore(cfg *config.Config, store storage.Store, now time.Time) error {
	filter, err := c.filter(now)
	if err != nil {
		return err
	}

	watch, search, err := store.Load(context.Background())
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	dash := analytics.Build(watch, search, filter, analytics.BuildOptions{
		TopN:       c.Top,
		SmallShare: cfg.Server.SmallShare,
	})

	if c.globals != nil && c.globals.JSON {
		return printJSON(dash)
	}
	printDashboard(dash)
	return nil
}

func (c *ReportCommand) filter(now time.Time) (analytics.Filter, error) {
	since, err := parseDay(c.Since, now)
	if err != nil {
		return analytics.Filter{}, fmt.Errorf("invalid --since value %q: %w", c.Since, err)
	}
	until, err := parseDay(c.Until, now)
	if err != nil {
		return analytics.Filter{}, fmt.Errorf("invalid --until value %q: %w", c.Until, err)
	}
	if !since.IsZero() && !until.IsZero() && until.Before(since) {
		return analytics.Filter{}, fmt.Errorf("--until is before --since")
	}
	if c.Top < 0 {
		return analytics.Filter{}, fmt.Errorf("--top must not be negative")
	}
	return analytics.Filter{Start: since, End: until, Channel: c.Channel, Category: c.Category}, nil
}

func printDashboard(d analytics.Dashboard) {
	if d.Empty {
		fmt.Println("No data available. Import watch and search history first.")
		return
	}

	fmt.Printf("Videos watched: %s   Searches: %s\n",
		formatNumber(int64(d.WatchCount)), formatNumber(int64(d.SearchCount)))

	printRanked("Top Channels", d.TopChannels)
	printRanked("Top Searches", d.TopSearches)

	if len(d.Categories) > 0 {
		fmt.Println()
		fmt.Println("Categories:")
		for _, c := range d.Categories {
			fmt.Printf("  %-30s %6s  %5.1f%%\n", c.Category, formatNumber(int64(c.Count)), c.Share*100)
		}
	}

	if len(d.Weekly) > 0 {
		fmt.Println()
		fmt.Println("Weekly Videos:")
		peak := 0
		for _, p := range d.Weekly {
			if p.Count > peak {
				peak = p.Count
			}
		}
		for _, p := range d.Weekly {
			fmt.Printf("  %s %5d %s\n", p.Period, p.Count, bar(p.Count, peak, 40))
		}
	}

	if len(d.SearchVsWatch) > 0 {
		var searches, watches int
		for _, day := range d.SearchVsWatch {
			searches += day.Searches
			watches += day.Watches
		}
		days := len(d.SearchVsWatch)
		fmt.Println()
		fmt.Printf("Per active day: %.1f searches, %.1f videos over %d days\n",
			float64(searches)/float64(days), float64(watches)/float64(days), days)
	}
}

func printRanked(title string, rows []analytics.LabelCount) {
	if len(rows) == 0 {
		return
	}
	fmt.Println()
	fmt.Printf("%s:\n", title)
	for i, r := range rows {
		fmt.Printf("  %2d. %-40s %s\n", i+1, truncate(r.Label, 40), formatNumber(int64(r.Count)))
	}
}

func bar(n, peak, width int) string {
	if peak == 0 {
		return ""
	}
	return strings.Repeat("#", n*width/peak)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
