package search

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"jotx/internal/domain"
	"jotx/internal/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	path := t.TempDir() + "/jotx.db"
	store, err := sqlite.Open(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("sqlite.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func mustInsertShell(t *testing.T, store *sqlite.Store, content, dir string, ts int64, timesRun int) {
	t.Helper()
	for i := 0; i < timesRun; i++ {
		if _, err := store.InsertShell(context.Background(), domain.Entry{
			Content: content, WorkingDir: dir, Timestamp: ts, Host: "h",
		}); err != nil {
			t.Fatalf("InsertShell: %v", err)
		}
	}
}

func TestRelevanceScoreTiers(t *testing.T) {
	cases := []struct {
		content, query string
		want           float64
	}{
		{"git push", "git push", 100},
		{"git push origin main", "git push", 90},
	}
	for _, c := range cases {
		if got := RelevanceScore(c.content, c.query, "", ""); got != c.want {
			t.Errorf("RelevanceScore(%q, %q) = %v, want %v", c.content, c.query, got, c.want)
		}
	}
}

func TestRelevanceScoreDirBoost(t *testing.T) {
	exact := RelevanceScore("ls -la", "ls", "/home/u/proj", "/home/u/proj")
	none := RelevanceScore("ls -la", "ls", "/var/log", "/home/u/proj")
	if exact <= none {
		t.Errorf("exact dir match score %v should exceed no-match score %v", exact, none)
	}
}

func TestResolveTimeRangeYesterday(t *testing.T) {
	now := time.Date(2026, 7, 31, 15, 0, 0, 0, time.UTC)
	tr := ResolveTimeRange(domain.TimeRange{Kind: domain.TimeRangeYesterday}, now)

	wantEnd := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC).Unix()
	wantStart := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC).Unix()
	if tr.Start != wantStart || tr.End != wantEnd {
		t.Errorf("yesterday = [%d, %d], want [%d, %d]", tr.Start, tr.End, wantStart, wantEnd)
	}
}

func TestResolveTimeRangeCustomDefaultsEnd(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	tr := ResolveTimeRange(domain.TimeRange{Kind: domain.TimeRangeCustom, Start: 1000}, now)
	if tr.Start != 1000 || tr.End != now.Unix() {
		t.Errorf("custom = [%d, %d], want [1000, %d]", tr.Start, tr.End, now.Unix())
	}
}

func TestDirectSearchDedupAndOrder(t *testing.T) {
	store := newTestStore(t)
	mustInsertShell(t, store, "docker ps", "/home/u/proj", 100, 3)
	mustInsertShell(t, store, "docker compose up", "/tmp", 50, 1)

	x := New(store, nil, nil, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
	results, err := x.DirectSearch(context.Background(), "docker", "/home/u/proj")
	if err != nil {
		t.Fatalf("DirectSearch: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].Entry.Content != "docker ps" {
		t.Errorf("top result = %q, want docker ps (higher times_run + dir match)", results[0].Entry.Content)
	}
}

type fakeHub struct {
	called  bool
	dropAll bool
}

func (f *fakeHub) DispatchSearchAfter(_ context.Context, _ string, results []domain.SearchResult) ([]domain.SearchResult, error) {
	f.called = true
	if f.dropAll {
		return nil, nil
	}
	return results, nil
}

func TestDirectSearchInvokesPluginHub(t *testing.T) {
	store := newTestStore(t)
	mustInsertShell(t, store, "kubectl get pods", "/tmp", 10, 1)

	hub := &fakeHub{}
	x := New(store, nil, hub, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if _, err := x.DirectSearch(context.Background(), "kubectl", ""); err != nil {
		t.Fatalf("DirectSearch: %v", err)
	}
	if !hub.called {
		t.Error("expected the plugin hub to be invoked")
	}
}

func TestPlannedSearchLexical(t *testing.T) {
	store := newTestStore(t)
	mustInsertShell(t, store, "terraform plan -out=tfplan", "/infra", 200, 1)

	x := New(store, nil, nil, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
	plan := domain.QueryPlan{Keywords: []string{"terraform"}, Kind: domain.EntryShell}
	results, err := x.PlannedSearch(context.Background(), plan, "/infra")
	if err != nil {
		t.Fatalf("PlannedSearch: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
}

func TestPlannedSearchDenseWithoutEmbedderErrors(t *testing.T) {
	store := newTestStore(t)
	x := New(store, nil, nil, 0.5, slog.New(slog.NewTextHandler(io.Discard, nil)))

	plan := domain.QueryPlan{Keywords: []string{"deploy"}, UseSemantic: true}
	if _, err := x.PlannedSearch(context.Background(), plan, ""); err == nil {
		t.Fatal("expected an error when dense search has no embedding provider")
	} else if kind, ok := domain.KindOf(err); !ok || kind != domain.KindUnavailable {
		t.Errorf("KindOf = %v, %v, want KindUnavailable", kind, ok)
	}
}
