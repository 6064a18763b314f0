package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "journal.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRecordAndRecent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	for i, status := range []string{StatusSuccess, StatusError, StatusSuccess} {
		_, err := repo.Record(ctx, Submission{
			SubmittedAt:  base.Add(time.Duration(i) * time.Minute),
			Backend:      "webdav",
			DocumentPath: "/kakeibo.xlsx",
			EntryCount:   i + 1,
			Status:       status,
			Message:      "m",
		})
		if err != nil {
			t.Fatalf("Record #%d: %v", i, err)
		}
	}

	got, err := repo.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent(2) returned %d rows", len(got))
	}
	if got[0].EntryCount != 3 || got[1].EntryCount != 2 {
		t.Fatalf("Recent order = %d, %d; want 3, 2", got[0].EntryCount, got[1].EntryCount)
	}
	if got[0].ID == "" || !got[0].SubmittedAt.Equal(base.Add(2*time.Minute)) {
		t.Fatalf("unexpected row: %+v", got[0])
	}
}

func TestRecordAssignsIDAndTimestamp(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	s, err := repo.Record(ctx, Submission{Backend: "memory", DocumentPath: "/k.xlsx", EntryCount: 1, Status: StatusSuccess})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if s.ID == "" || s.SubmittedAt.IsZero() {
		t.Fatalf("Record did not fill id/timestamp: %+v", s)
	}

	got, err := repo.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Backend != "memory" || got.Status != StatusSuccess {
		t.Fatalf("Get = %+v", got)
	}

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestRecordRejectsUnknownStatus(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.Record(context.Background(), Submission{Status: "pending"}); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultRecentLimit},
		{-5, DefaultRecentLimit},
		{7, 7},
		{MaxRecentLimit, MaxRecentLimit},
		{500, MaxRecentLimit},
	}
	for _, tt := range tests {
		if got := ClampLimit(tt.in); got != tt.want {
			t.Errorf("ClampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestMigrateJournalIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	for i := 0; i < 2; i++ {
		version, err := MigrateJournal(path)
		if err != nil {
			t.Fatalf("MigrateJournal #%d: %v", i+1, err)
		}
		if version != 1 {
			t.Fatalf("MigrateJournal #%d version = %d, want 1", i+1, version)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ` + migrationsTable).Scan(&n); err != nil {
		t.Fatalf("version table %s: %v", migrationsTable, err)
	}
	if n != 1 {
		t.Fatalf("version rows = %d, want 1", n)
	}
}
