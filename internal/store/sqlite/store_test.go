package sqlite

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blueprintstore/blueprintstore-server/internal/domain"
	"github.com/blueprintstore/blueprintstore-server/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func makeTestBlueprint(id int64, title string) domain.Blueprint {
	return domain.Blueprint{
		ID:        id,
		Slug:      "bp",
		Title:     title,
		Author:    "casey",
		Excerpt:   "turns lights on with motion",
		Likes:     10,
		Views:     100,
		Buckets:   []string{"lighting"},
		ImportURL: "https://my.home-assistant.io/redirect/blueprint_import/?blueprint_url=x",
		CreatedAt: time.Unix(1700000000, 0),
		UpdatedAt: time.Unix(1700000500, 0),
	}
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	var journalMode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected wal, got %s", journalMode)
	}

	for _, table := range []string{"posts", "meta"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestUpsertAndQuery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	items := []domain.Blueprint{
		makeTestBlueprint(1, "Motion Lights"),
		makeTestBlueprint(2, "Thermostat Schedule"),
	}
	items[1].Buckets = []string{"climate"}
	items[1].Excerpt = "adjusts heating by schedule"
	items[1].Likes = 50

	n, err := s.Upsert(ctx, items)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if n != 2 {
		t.Errorf("rows written: got %d, want 2", n)
	}

	got, err := s.Query(ctx, store.QueryParams{Sort: domain.SortLikes, Limit: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d items, want 2", len(got))
	}
	if got[0].ID != 2 {
		t.Errorf("likes sort: first item ID got %d, want 2", got[0].ID)
	}
	if got[0].Buckets[0] != "climate" {
		t.Errorf("buckets round trip: got %v", got[0].Buckets)
	}
	if !got[0].CreatedAt.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("created_at round trip: got %v", got[0].CreatedAt)
	}
}

func TestUpsertRefreshesExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	bp := makeTestBlueprint(7, "Old Title")
	if _, err := s.Upsert(ctx, []domain.Blueprint{bp}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	bp.Title = "New Title"
	bp.Likes = 99
	if _, err := s.Upsert(ctx, []domain.Blueprint{bp}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := s.Query(ctx, store.QueryParams{Limit: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d items, want 1", len(got))
	}
	if got[0].Title != "New Title" || got[0].Likes != 99 {
		t.Errorf("row not refreshed: %+v", got[0])
	}
}

func TestQuerySearchTerms(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	items := []domain.Blueprint{
		makeTestBlueprint(1, "Motion Activated Lights"),
		makeTestBlueprint(2, "Door Sensor Alert"),
	}
	items[1].Excerpt = "notifies when a door opens"
	if _, err := s.Upsert(ctx, items); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	// Both terms must match, across title and excerpt.
	got, err := s.Query(ctx, store.QueryParams{Query: "door notifies", Limit: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("term search: got %v", got)
	}

	got, err = s.Query(ctx, store.QueryParams{Query: "door lights", Limit: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("conjunctive search should exclude partial matches, got %d", len(got))
	}
}

func TestQueryBucketFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := makeTestBlueprint(1, "Motion Lights")
	a.Buckets = []string{"lighting", "motion-presence"}
	b := makeTestBlueprint(2, "Water the Garden")
	b.Buckets = []string{"irrigation-garden"}
	if _, err := s.Upsert(ctx, []domain.Blueprint{a, b}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := s.Query(ctx, store.QueryParams{Buckets: []string{"motion-presence"}, Limit: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("bucket filter: got %v", got)
	}
}

func TestQueryTitleSortIgnoresDecoration(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := makeTestBlueprint(1, "\U0001F4A1 Zigbee Remote")
	b := makeTestBlueprint(2, "Alarm Clock")
	if _, err := s.Upsert(ctx, []domain.Blueprint{a, b}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := s.Query(ctx, store.QueryParams{Sort: domain.SortTitle, Limit: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if got[0].ID != 2 || got[1].ID != 1 {
		t.Errorf("title sort: got order %d, %d", got[0].ID, got[1].ID)
	}
}

func TestBuckets(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := makeTestBlueprint(1, "A")
	a.Buckets = []string{"lighting", "motion-presence"}
	b := makeTestBlueprint(2, "B")
	b.Buckets = []string{"climate"}
	if _, err := s.Upsert(ctx, []domain.Blueprint{a, b}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := s.Buckets(ctx)
	if err != nil {
		t.Fatalf("Buckets: %v", err)
	}
	want := []string{"climate", "lighting", "motion-presence"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("bucket %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSpotlight(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := makeTestBlueprint(1, "Crowd Favorite")
	a.Likes = 500
	a.Author = "alex"
	b := makeTestBlueprint(2, "Fresh Upload")
	b.Likes = 1
	b.Author = "sam"
	b.UpdatedAt = time.Unix(1800000000, 0)
	c := makeTestBlueprint(3, "Another By Sam")
	c.Author = "sam"
	if _, err := s.Upsert(ctx, []domain.Blueprint{a, b, c}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	sp, err := s.Spotlight(ctx)
	if err != nil {
		t.Fatalf("Spotlight: %v", err)
	}
	if sp.MostPopular.ID != 1 {
		t.Errorf("MostPopular: got %d, want 1", sp.MostPopular.ID)
	}
	if sp.TopUploader.Author != "sam" || sp.TopUploader.Count != 2 {
		t.Errorf("TopUploader: got %+v", sp.TopUploader)
	}
	if sp.MostRecent.ID != 2 {
		t.Errorf("MostRecent: got %d, want 2", sp.MostRecent.ID)
	}
}

func TestSpotlightEmpty(t *testing.T) {
	s := newTestStore(t)

	sp, err := s.Spotlight(context.Background())
	if err != nil {
		t.Fatalf("Spotlight on empty store: %v", err)
	}
	if sp.MostPopular.ID != 0 || sp.TopUploader.Count != 0 {
		t.Errorf("expected zero spotlight, got %+v", sp)
	}
}

func TestRefreshDue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	due, err := s.RefreshDue(ctx, time.Hour, false)
	if err != nil {
		t.Fatalf("RefreshDue: %v", err)
	}
	if !due {
		t.Fatal("first call should be due")
	}

	due, err = s.RefreshDue(ctx, time.Hour, false)
	if err != nil {
		t.Fatalf("RefreshDue: %v", err)
	}
	if due {
		t.Error("second call inside interval should not be due")
	}

	due, err = s.RefreshDue(ctx, time.Hour, true)
	if err != nil {
		t.Fatalf("RefreshDue force: %v", err)
	}
	if !due {
		t.Error("forced call should always be due")
	}
}

func TestPrune(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Upsert(ctx, []domain.Blueprint{makeTestBlueprint(1, "Stale")}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	// Backdate seen_at past the retention window.
	old := time.Now().Add(-48 * time.Hour).Unix()
	if _, err := s.db.Exec("UPDATE posts SET seen_at = ?", old); err != nil {
		t.Fatalf("backdate: %v", err)
	}

	n, err := s.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d rows, want 1", n)
	}
}
