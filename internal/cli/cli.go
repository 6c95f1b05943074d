package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Import *ImportCommand
	Status *StatusCommand
	Report *ReportCommand
	Serve  *ServeCommand
	Purge  *PurgeCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "yoda"
	parser.LongDescription = "Import YouTube watch and search history, enrich it with video metadata and explore it."

	cmds := &commands{
		Import: &ImportCommand{globals: &globals, version: version},
		Status: &StatusCommand{globals: &globals, version: version},
		Report: &ReportCommand{globals: &globals, version: version},
		Serve:  &ServeCommand{globals: &globals, version: version},
		Purge:  &PurgeCommand{globals: &globals, version: version},
	}

	parser.AddCommand("import", "Import watch and search history", "Decode both history exports, drop ads, enrich watch records from the catalog and replace the stored tables.", cmds.Import)
	parser.AddCommand("status", "Show database statistics", "Show stored row counts, time range, top channels and configuration summary.", cmds.Status)
	parser.AddCommand("report", "Print dashboard aggregates", "Print top channels, searches, categories and activity over time for a filter selection.", cmds.Report)
	parser.AddCommand("serve", "Serve the dashboard API", "Serve dashboard aggregates as JSON over HTTP, with Prometheus metrics.", cmds.Serve)
	parser.AddCommand("purge", "Delete ALL imported history", "Delete ALL imported history. Destructive operation with safety prompt.", cmds.Purge)

	return parser, &globals, cmds
}

// Run is the main entry point for the YODA CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("yoda %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
