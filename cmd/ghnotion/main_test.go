package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JohanCodinha/ghnotion/internal/journal"
	"github.com/JohanCodinha/ghnotion/internal/sync"
)

func TestCommands(t *testing.T) {
	names := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}

	for _, want := range []string{"sync", "history"} {
		if !names[want] {
			t.Errorf("rootCmd missing %q subcommand", want)
		}
	}
}

func TestSyncFlags(t *testing.T) {
	if syncCmd.Flags().Lookup("dry-run") == nil {
		t.Error("sync command missing --dry-run flag")
	}
	if syncCmd.Flags().Lookup("batch-size") == nil {
		t.Error("sync command missing --batch-size flag")
	}
}

func TestJournalPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path, err := journalPath()
	if err != nil {
		t.Fatalf("journalPath() unexpected error: %v", err)
	}

	want := filepath.Join(home, ".cache", "ghnotion", "journal.db")
	if path != want {
		t.Errorf("journalPath() = %q, want %q", path, want)
	}

	// Parent directory must exist after the call
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Errorf("journal directory not created: %v", err)
	}
}

func TestFormatSummary(t *testing.T) {
	summary := &sync.Summary{
		Fetched:  23,
		Created:  4,
		Updated:  19,
		Duration: 1500 * time.Millisecond,
	}

	got := formatSummary(summary, false)
	if !strings.Contains(got, "23 issues") || !strings.Contains(got, "4 created") || !strings.Contains(got, "19 updated") {
		t.Errorf("Unexpected summary: %q", got)
	}

	dry := formatSummary(summary, true)
	if !strings.Contains(dry, "dry run") || !strings.Contains(dry, "would create 4") {
		t.Errorf("Unexpected dry run summary: %q", dry)
	}
}

func TestFormatRun(t *testing.T) {
	run := journal.Run{
		Repo:       "owner/repo",
		DatabaseID: "db-1",
		StartedAt:  time.Now().Add(-2 * time.Hour),
		Fetched:    10,
		Created:    1,
		Updated:    9,
		Status:     journal.StatusOK,
	}

	got := formatRun(run)
	for _, want := range []string{"owner/repo", "db-1", "fetched 10", "created 1", "updated 9", "[ok]"} {
		if !strings.Contains(got, want) {
			t.Errorf("formatRun() = %q, missing %q", got, want)
		}
	}

	failed := formatRun(journal.Run{
		Repo:       "owner/repo",
		DatabaseID: "db-1",
		StartedAt:  time.Now(),
		Status:     journal.StatusFailed,
		Error:      "GitHub API error: 403",
	})
	if !strings.Contains(failed, "[failed]") || !strings.Contains(failed, "403") {
		t.Errorf("formatRun() for failed run = %q", failed)
	}
}
