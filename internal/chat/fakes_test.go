package chat

import (
	"context"
	"errors"
	"sync"

	"github.com/ashureev/chatrelay/internal/domain"
)

type fakeRepo struct {
	mu        sync.Mutex
	entries   []domain.ChatEntry
	appendErr error
	listErr   error
	clearErr  error
	appends   int
	clears    int
}

func (r *fakeRepo) Append(_ context.Context, e *domain.ChatEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appends++
	if r.appendErr != nil {
		return r.appendErr
	}
	r.entries = append(r.entries, *e)
	return nil
}

func (r *fakeRepo) ListAll(context.Context) ([]domain.ChatEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]domain.ChatEntry, len(r.entries))
	copy(out, r.entries)
	return out, nil
}

func (r *fakeRepo) ClearAll(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clears++
	if r.clearErr != nil {
		return 0, r.clearErr
	}
	n := int64(len(r.entries))
	r.entries = nil
	return n, nil
}

func (r *fakeRepo) Ping(context.Context) error { return nil }
func (r *fakeRepo) Close() error               { return nil }

func (r *fakeRepo) snapshot() []domain.ChatEntry {
	entries, _ := r.ListAll(context.Background())
	return entries
}

type fakeGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	panicV  any
	prompts []string
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if g.panicV != nil {
		panic(g.panicV)
	}
	if g.err != nil {
		return "", g.err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return g.reply, nil
}

type fakeBroadcaster struct {
	mu    sync.Mutex
	count int
}

func (b *fakeBroadcaster) BroadcastClearScreen(context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count++
}

func (b *fakeBroadcaster) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

type recordingTranscript struct {
	mu     sync.Mutex
	events []TranscriptEvent
}

func (t *recordingTranscript) Log(e TranscriptEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, e)
}

func (t *recordingTranscript) Close() error { return nil }

var errBoom = errors.New("boom")
