package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/efreitasn/mockmaker/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	fills  []domain.FillResult
	quotes []domain.DesiredQuote
}

func (p *recordingPublisher) PublishFill(_ context.Context, f domain.FillResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fills = append(p.fills, f)
}

func (p *recordingPublisher) PublishQuote(_ context.Context, q domain.DesiredQuote) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quotes = append(p.quotes, q)
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) fillCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.fills)
}

// recordingObserver implements the service observer interfaces.
type recordingObserver struct {
	mu      sync.Mutex
	fills   int
	active  int
	updates map[string]int
}

func (o *recordingObserver) ObserveFill(domain.FillResult, time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fills++
}

func (o *recordingObserver) SetActiveSessions(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active = n
}

func (o *recordingObserver) MarketUpdated(source string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.updates == nil {
		o.updates = make(map[string]int)
	}
	o.updates[source]++
}

// fakeQuoter counts Start and Stop calls.
type fakeQuoter struct {
	mu      sync.Mutex
	running bool
	starts  int
	stops   int
}

func (q *fakeQuoter) Start(context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.running = true
	q.starts++
	return nil
}

func (q *fakeQuoter) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.running = false
	q.stops++
}
