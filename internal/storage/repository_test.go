package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"maks/internal/storage"
	"maks/internal/storage/storagetest"
)

func newTestRepo(t *testing.T) (*storage.SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "maks.db")
	repo, err := storage.NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func TestSQLiteRepositoryContract(t *testing.T) {
	repo, _ := newTestRepo(t)
	storagetest.Run(t, repo)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	_, path := newTestRepo(t)

	if err := storage.RunMigrations(path); err != nil {
		t.Fatalf("second migration run: %v", err)
	}
	version, dirty, err := storage.SchemaVersion(path)
	if err != nil {
		t.Fatal(err)
	}
	if version != 1 || dirty {
		t.Fatalf("schema version = %d dirty=%v", version, dirty)
	}
}

func TestDataSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "maks.db")
	repo, err := storage.NewSQLiteRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	created := time.Date(2025, 1, 15, 9, 30, 0, 123456789, time.UTC)
	if err := repo.PutEntry(ctx, "u", storage.Document{ID: "e1", CreatedAt: created, Body: []byte(`{"content":"abc"}`)}); err != nil {
		t.Fatal(err)
	}
	repo.Close()

	reopened, err := storage.NewSQLiteRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	docs, err := reopened.ListEntries(ctx, "u")
	if err != nil || len(docs) != 1 {
		t.Fatalf("ListEntries = %v %v", docs, err)
	}
	if !docs[0].CreatedAt.Equal(created) {
		t.Fatalf("created_at lost precision: %v", docs[0].CreatedAt)
	}
}

func TestCreatedAtLayoutSortsAsText(t *testing.T) {
	a := storage.FormatCreatedAt(time.Date(2025, 1, 1, 0, 0, 0, 500, time.UTC))
	b := storage.FormatCreatedAt(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Millisecond))
	if !(a < b) {
		t.Fatalf("%q should sort before %q", a, b)
	}
	if _, err := storage.ParseCreatedAt("2024-12-31T23:59:59Z"); err != nil {
		t.Fatalf("RFC 3339 fallback: %v", err)
	}
}
