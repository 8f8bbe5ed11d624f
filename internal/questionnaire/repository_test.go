package questionnaire

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/evcraddock/dengue-visits/internal/db"
)

func TestRepositorySaveAndLatest(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)

	if _, err := repo.Latest(ctx, "es"); !errors.Is(err, ErrNotCached) {
		t.Fatalf("empty cache: got %v, want ErrNotCached", err)
	}

	q, err := LoadFile(filepath.Join("testdata", "breeding_sites.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := repo.Save(ctx, "es", q); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := repo.Latest(ctx, "es")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got.ID != q.ID || len(got.Questions) != len(q.Questions) {
		t.Errorf("got %s with %d questions, want %s with %d", got.ID, len(got.Questions), q.ID, len(q.Questions))
	}

	if _, err := repo.Latest(ctx, "en"); !errors.Is(err, ErrNotCached) {
		t.Errorf("other language: got %v, want ErrNotCached", err)
	}
}

func TestRepositoryReplacesSameID(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)

	q, err := LoadFile(filepath.Join("testdata", "breeding_sites.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := repo.Save(ctx, "es", q); err != nil {
		t.Fatalf("save: %v", err)
	}

	q.Name = "Renamed"
	if err := repo.Save(ctx, "es", q); err != nil {
		t.Fatalf("save again: %v", err)
	}

	got, err := repo.Latest(ctx, "es")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got.Name != "Renamed" {
		t.Errorf("name = %q, want Renamed", got.Name)
	}
}

func testRepo(t *testing.T) *Repository {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "visits.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})
	return NewRepository(d)
}
