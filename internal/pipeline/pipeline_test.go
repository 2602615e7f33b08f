package pipeline

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"jotx/internal/domain"
)

type stubStore struct {
	mu      sync.Mutex
	shell   []domain.Entry
	clip    []domain.Entry
	failAll bool
}

func (s *stubStore) InsertShell(ctx context.Context, e domain.Entry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return 0, domain.NewError("test", domain.KindStorage, "boom")
	}
	s.shell = append(s.shell, e)
	return int64(len(s.shell)), nil
}

func (s *stubStore) InsertClipboard(ctx context.Context, e domain.Entry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return 0, domain.NewError("test", domain.KindStorage, "boom")
	}
	s.clip = append(s.clip, e)
	return int64(len(s.clip)), nil
}

func (s *stubStore) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.shell), len(s.clip)
}

type stubEmbedder struct {
	calls int
	fail  bool
}

func (e *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.fail {
		return nil, domain.NewError("test", domain.KindExternal, "embedding unavailable")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 2, 3}
	}
	return out, nil
}

func (e *stubEmbedder) Dimensions() int { return 3 }
func (e *stubEmbedder) Name() string    { return "stub" }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWriterFlushesOnBatchSize(t *testing.T) {
	store := &stubStore{}
	w := New(store, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)

	for i := 0; i < BatchSize; i++ {
		if err := w.Enqueue(domain.Entry{Kind: domain.EntryShell, Content: "cmd"}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	waitFor(t, func() bool {
		n, _ := store.counts()
		return n == BatchSize
	})

	cancel()
	w.Wait()
}

func TestWriterFlushesOnIdleTimeout(t *testing.T) {
	store := &stubStore{}
	w := New(store, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)

	if err := w.Enqueue(domain.Entry{Kind: domain.EntryClipboard, Content: "clip"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	waitFor(t, func() bool {
		_, n := store.counts()
		return n == 1
	})

	cancel()
	w.Wait()
}

func TestWriterEmbedsBeforeInsert(t *testing.T) {
	store := &stubStore{}
	embedder := &stubEmbedder{}
	w := New(store, embedder, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)

	if err := w.Enqueue(domain.Entry{Kind: domain.EntryShell, Content: "cmd"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	waitFor(t, func() bool {
		n, _ := store.counts()
		return n == 1
	})
	cancel()
	w.Wait()

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.shell[0].Embedding) != 3 {
		t.Errorf("expected embedding of length 3, got %d", len(store.shell[0].Embedding))
	}
}

func TestWriterWritesWithoutEmbeddingOnFailure(t *testing.T) {
	store := &stubStore{}
	embedder := &stubEmbedder{fail: true}
	w := New(store, embedder, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)

	if err := w.Enqueue(domain.Entry{Kind: domain.EntryShell, Content: "cmd"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	waitFor(t, func() bool {
		n, _ := store.counts()
		return n == 1
	})
	cancel()
	w.Wait()

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.shell[0].Embedding) != 0 {
		t.Error("expected no embedding when embedder fails")
	}
}

func TestEnqueueReturnsErrorWhenQueueFull(t *testing.T) {
	store := &stubStore{}
	w := New(store, nil, testLogger())
	// No Run goroutine draining: fill the queue to capacity.
	for i := 0; i < QueueSize; i++ {
		if err := w.Enqueue(domain.Entry{Kind: domain.EntryShell}); err != nil {
			t.Fatalf("Enqueue %d: %v", i, err)
		}
	}
	if err := w.Enqueue(domain.Entry{Kind: domain.EntryShell}); err == nil {
		t.Error("expected back-pressure error on a full queue")
	}
}

func TestWriterDrainsRemainingItemsOnShutdown(t *testing.T) {
	store := &stubStore{}
	w := New(store, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)

	// Enqueue fewer than a batch so nothing flushes until idle or shutdown.
	for i := 0; i < 3; i++ {
		if err := w.Enqueue(domain.Entry{Kind: domain.EntryShell, Content: "cmd"}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	cancel()
	w.Wait()

	n, _ := store.counts()
	if n != 3 {
		t.Errorf("expected all 3 entries drained on shutdown, got %d", n)
	}
}

// ctxCheckingStore fails any insert whose context is already done,
// mimicking a real store that honors context cancellation.
type ctxCheckingStore struct {
	mu    sync.Mutex
	shell []domain.Entry
}

func (s *ctxCheckingStore) InsertShell(ctx context.Context, e domain.Entry) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shell = append(s.shell, e)
	return int64(len(s.shell)), nil
}

func (s *ctxCheckingStore) InsertClipboard(ctx context.Context, e domain.Entry) (int64, error) {
	return s.InsertShell(ctx, e)
}

func (s *ctxCheckingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.shell)
}

func TestWriterDrainUsesFreshContextNotCancelledOne(t *testing.T) {
	store := &ctxCheckingStore{}
	w := New(store, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)

	for i := 0; i < 3; i++ {
		if err := w.Enqueue(domain.Entry{Kind: domain.EntryShell, Content: "cmd"}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	cancel()
	w.Wait()

	if n := store.count(); n != 3 {
		t.Errorf("expected all 3 entries drained with a live context after shutdown, got %d", n)
	}
}

func TestWriterDropsUnknownKind(t *testing.T) {
	store := &stubStore{}
	w := New(store, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)

	if err := w.Enqueue(domain.Entry{Kind: "bogus"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	cancel()
	w.Wait()

	shellN, clipN := store.counts()
	if shellN != 0 || clipN != 0 {
		t.Error("expected unknown-kind entry to be dropped, not inserted")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
