package engine

import (
	"io"
	"log/slog"
	"sync"

	"github.com/efreitasn/mockmaker/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingObserver implements every observer interface of this package.
type recordingObserver struct {
	mu      sync.Mutex
	cycles  int
	emitted map[string]int
	skipped map[string]int
	updates map[string]int
	panics  map[string]int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{
		emitted: make(map[string]int),
		skipped: make(map[string]int),
		updates: make(map[string]int),
		panics:  make(map[string]int),
	}
}

func (o *recordingObserver) QuoteCycle() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cycles++
}

func (o *recordingObserver) QuoteEmitted(symbol string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.emitted[symbol]++
}

func (o *recordingObserver) QuoteSkipped(symbol string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.skipped[symbol]++
}

func (o *recordingObserver) MarketUpdated(source string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.updates[source]++
}

func (o *recordingObserver) WorkerPanic(worker string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.panics[worker]++
}

func (o *recordingObserver) count(m map[string]int, key string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return m[key]
}

// quoteRecorder is a QuoteSink that keeps every quote.
type quoteRecorder struct {
	mu     sync.Mutex
	quotes []domain.DesiredQuote
}

func (r *quoteRecorder) sink(q domain.DesiredQuote) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quotes = append(r.quotes, q)
}

func (r *quoteRecorder) all() []domain.DesiredQuote {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.DesiredQuote, len(r.quotes))
	copy(out, r.quotes)
	return out
}
