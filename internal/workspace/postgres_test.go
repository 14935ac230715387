package workspace

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/dgallion1/prose/internal/doctree"
)

// openTestPostgres connects when PROSE_TEST_DATABASE_URL is set.
func openTestPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("PROSE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("PROSE_TEST_DATABASE_URL not set")
	}
	s, err := NewPostgres(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPostgresStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestPostgres(t)

	ws := uuid.NewString()
	folder, created, err := s.EnsureFolder(ctx, ws, nil, "thesis")
	if err != nil || !created {
		t.Fatalf("ensure folder: %v %v", created, err)
	}
	again, created, err := s.EnsureFolder(ctx, ws, nil, "thesis")
	if err != nil || created || again != folder {
		t.Fatalf("expected existing folder %s, got %s %v %v", folder, again, created, err)
	}
	if _, err := s.PutDocument(ctx, ws, &folder, "main.tex", "v1"); err != nil {
		t.Fatal(err)
	}
	created, err = s.PutDocument(ctx, ws, &folder, "main.tex", "v2")
	if err != nil || created {
		t.Fatalf("expected update, got %v %v", created, err)
	}
	if _, err := s.PutDocument(ctx, ws, nil, "notes.tex", "loose"); err != nil {
		t.Fatal(err)
	}

	tree, err := s.FetchTree(ctx, ws)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if doctree.CountDocuments(tree) != 2 {
		t.Fatalf("expected 2 documents, got %d", doctree.CountDocuments(tree))
	}
	if tree[0].ID != doctree.RootID {
		t.Errorf("expected synthetic root first, got %q", tree[0].ID)
	}
	if tree[1].Documents[0].Content != "v2" {
		t.Errorf("expected updated content, got %q", tree[1].Documents[0].Content)
	}
}

func TestPostgresStore_ConcurrentRootFolder(t *testing.T) {
	ctx := context.Background()
	s := openTestPostgres(t)
	ws := uuid.NewString()

	const n = 8
	ids := make([]string, n)
	created := make([]bool, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids[i], created[i], errs[i] = s.EnsureFolder(ctx, ws, nil, "chapters")
		}()
	}
	wg.Wait()

	creators := 0
	for i := range n {
		if errs[i] != nil {
			t.Fatalf("ensure folder %d: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Errorf("expected one folder id, got %s and %s", ids[0], ids[i])
		}
		if created[i] {
			creators++
		}
	}
	if creators != 1 {
		t.Errorf("expected exactly one creator, got %d", creators)
	}

	tree, err := s.FetchTree(ctx, ws)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(tree) != 1 {
		t.Errorf("expected a single root folder, got %d", len(tree))
	}
}
