package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/runnerr0/yoda/internal/storage"
)

// Execute implements the go-flags Commander interface for PurgeCommand.
func (c *PurgeCommand) Execute(args []string) error {
	if !c.All {
		return fmt.Errorf("purge requires --all flag for safety")
	}
	if err := c.confirm(); err != nil {
		return err
	}

	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	store, _, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	return c.executeWithStore(store)
}

// confirm asks for the PURGE confirmation unless --force is set.
func (c *PurgeCommand) confirm() error {
	if c.Force {
		return nil
	}

	fmt.Println("⚠ WARNING: This will permanently delete ALL imported history.")
	fmt.Println("  - All watch history rows and their video metadata")
	fmt.Println("  - All search history rows")
	fmt.Println()
	fmt.Println("This action cannot be undone.")
	fmt.Println()
	fmt.Print(`Type "PURGE" to confirm: `)

	var in io.Reader = os.Stdin
	if c.in != nil {
		in = c.in
	}
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return fmt.Errorf("aborted: no input received")
	}
	if strings.TrimSpace(scanner.Text()) != "PURGE" {
		return fmt.Errorf("aborted: confirmation text did not match")
	}
	return nil
}

// executeWithStore purges a provided store (for testing).
func (c *PurgeCommand) executeWithStore(store storage.Store) error {
	if err := store.Purge(context.Background()); err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(map[string]interface{}{
			"purged":  true,
			"message": "all history deleted",
		})
	}

	fmt.Println("Purged all history. YODA is empty.")
	return nil
}
