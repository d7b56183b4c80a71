package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	applog "aurabudget/internal/log"
	"aurabudget/internal/services"
	"aurabudget/internal/storage"
	"aurabudget/internal/watch"
)

func newCategoryService(t *testing.T) (*services.CategoryService, *storage.SQLiteRepository, *applog.Logger) {
	t.Helper()
	cfg := applog.DefaultConfig()
	cfg.Output = io.Discard
	logger := applog.New(cfg)

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "cli.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { repo.Close() })

	events := services.NewEvents(nil, watch.NewHub(), logger)
	return services.NewCategoryService(repo, events, logger), repo, logger
}

func TestSeedCategoriesEmbedded(t *testing.T) {
	ctx := context.Background()
	svc, repo, logger := newCategoryService(t)

	want, err := storage.LoadCategorySeeds("")
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if err := SeedCategories(ctx, svc, "", logger); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		got, err := repo.ListCategories(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != len(want) {
			t.Fatalf("run %d: %d categories, want %d", i, len(got), len(want))
		}
	}
}

func TestSeedCategoriesFromFile(t *testing.T) {
	ctx := context.Background()
	svc, repo, logger := newCategoryService(t)

	path := filepath.Join(t.TempDir(), "seed.yaml")
	doc := "categories:\n  - name: Rent\n    type: EXPENSE\n  - name: Salary\n    type: INCOME\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := SeedCategories(ctx, svc, path, logger); err != nil {
		t.Fatal(err)
	}
	got, err := repo.ListCategories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d categories", len(got))
	}
}

func TestSeedCategoriesMissingFile(t *testing.T) {
	svc, _, logger := newCategoryService(t)
	if err := SeedCategories(context.Background(), svc, filepath.Join(t.TempDir(), "nope.yaml"), logger); err == nil {
		t.Fatal("expected error for missing seed file")
	}
}
