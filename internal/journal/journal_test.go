package journal

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndRecent(t *testing.T) {
	db := openTestDB(t)

	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	run := Run{
		Repo:       "owner/repo",
		DatabaseID: "db-1",
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
		Fetched:    23,
		Created:    4,
		Updated:    19,
		Status:     StatusOK,
	}

	if err := db.Record(run); err != nil {
		t.Fatalf("Record() unexpected error: %v", err)
	}

	runs, err := db.Recent(10)
	if err != nil {
		t.Fatalf("Recent() unexpected error: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("Expected 1 run, got %d", len(runs))
	}

	got := runs[0]
	if got.ID == "" {
		t.Error("Expected a generated run id, got empty")
	}
	if got.Repo != "owner/repo" || got.DatabaseID != "db-1" {
		t.Errorf("Unexpected run identity: %+v", got)
	}
	if got.Fetched != 23 || got.Created != 4 || got.Updated != 19 {
		t.Errorf("Unexpected counts: %+v", got)
	}
	if got.Status != StatusOK || got.Error != "" {
		t.Errorf("Unexpected status: %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
	}
}

func TestRecent_NewestFirst(t *testing.T) {
	db := openTestDB(t)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := db.Record(Run{
			Repo:       "owner/repo",
			DatabaseID: "db-1",
			StartedAt:  base.Add(time.Duration(i) * time.Hour),
			FinishedAt: base.Add(time.Duration(i)*time.Hour + time.Second),
			Status:     StatusOK,
		})
		if err != nil {
			t.Fatalf("Record() unexpected error: %v", err)
		}
	}

	runs, err := db.Recent(3)
	if err != nil {
		t.Fatalf("Recent() unexpected error: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("Expected 3 runs with limit, got %d", len(runs))
	}
	for i := 1; i < len(runs); i++ {
		if runs[i].StartedAt.After(runs[i-1].StartedAt) {
			t.Errorf("Runs not newest-first: %v before %v", runs[i-1].StartedAt, runs[i].StartedAt)
		}
	}
}

func TestRecord_FailedRunKeepsError(t *testing.T) {
	db := openTestDB(t)

	now := time.Now()
	err := db.Record(Run{
		Repo:       "owner/repo",
		DatabaseID: "db-1",
		StartedAt:  now,
		FinishedAt: now,
		Status:     StatusFailed,
		Error:      "GitHub API error: 403 Forbidden",
	})
	if err != nil {
		t.Fatalf("Record() unexpected error: %v", err)
	}

	runs, err := db.Recent(1)
	if err != nil {
		t.Fatalf("Recent() unexpected error: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != StatusFailed {
		t.Fatalf("Expected one failed run, got %+v", runs)
	}
	if runs[0].Error != "GitHub API error: 403 Forbidden" {
		t.Errorf("Unexpected error text: %q", runs[0].Error)
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}
	now := time.Now()
	if err := db.Record(Run{Repo: "o/r", DatabaseID: "db", StartedAt: now, FinishedAt: now, Status: StatusOK}); err != nil {
		t.Fatalf("Record() unexpected error: %v", err)
	}
	db.Close()

	db2, err := Open(path)
	if err != nil {
		t.Fatalf("Reopen unexpected error: %v", err)
	}
	defer db2.Close()

	runs, err := db2.Recent(10)
	if err != nil {
		t.Fatalf("Recent() unexpected error: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("Expected recorded run to survive reopen, got %d runs", len(runs))
	}
}
