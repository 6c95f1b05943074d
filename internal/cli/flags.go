package cli

import "io"

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file (default ~/.config/yoda/config.yaml)" default:""`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable debug logging"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// ImportCommand reads both exports, enriches them and replaces the stored tables.
type ImportCommand struct {
	Watch      string `long:"watch" description:"Path to watch-history.json" required:"true"`
	Search     string `long:"search" description:"Path to search-history.json" required:"true"`
	SkipEnrich bool   `long:"skip-enrich" description:"Do not call the catalog service"`
	Lenient    bool   `long:"lenient" description:"Ignore unknown fields in export records"`

	globals *GlobalFlags
	version string
}

// StatusCommand shows database statistics and a configuration summary.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}

// ReportCommand prints dashboard aggregates for a filter selection.
type ReportCommand struct {
	Since    string `long:"since" description:"First day to include (YYYY-MM-DD or relative, e.g. 30d, 2w)"`
	Until    string `long:"until" description:"Last day to include (YYYY-MM-DD or relative)"`
	Channel  string `long:"channel" description:"Only this channel" default:"All"`
	Category string `long:"category" description:"Only this category" default:"All"`
	Top      int    `long:"top" description:"Entries in ranked lists" default:"10"`

	globals *GlobalFlags
	version string
}

// ServeCommand serves the dashboard JSON API.
type ServeCommand struct {
	Host string `long:"host" description:"Override listen host"`
	Port int    `long:"port" description:"Override listen port"`

	globals *GlobalFlags
	version string
}

// PurgeCommand drops all imported history after a safety confirmation.
type PurgeCommand struct {
	All   bool `long:"all" description:"Required flag to confirm purge intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	version string
	in      io.Reader // confirmation input; nil means stdin
}
