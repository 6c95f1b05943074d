package cli

import (
	"bytes"
	"database/sql"
	"io"
	"os"
	"testing"

	goflags "github.com/jessevdk/go-flags"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/yoda/internal/storage"
)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// openTestStore creates an in-memory store for command tests.
func openTestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	return storage.NewSQLiteStore(db)
}

// parseOnly parses args without executing the matched command.
func parseOnly(args ...string) (*GlobalFlags, *commands, error) {
	parser, globals, cmds := buildParser("test")
	parser.CommandHandler = func(goflags.Commander, []string) error { return nil }
	_, err := parser.ParseArgs(args)
	return globals, cmds, err
}
