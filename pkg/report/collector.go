package report

import (
	"context"
	"slices"
	"sync"

	"github.com/denizgursoy/cukexml/pkg/document"
)

// Collector buffers the attempts and documents of a run until the engine
// signals completion. Collect and AddDocument may be called from several
// goroutines.
type Collector struct {
	mu         sync.Mutex
	attempts   []TestCaseAttempt
	documents  document.Set
	aggregator *Aggregator
}

// NewCollector creates an empty Collector. opts are applied when the report
// is finalized.
func NewCollector(opts ...Option) *Collector {
	return &Collector{
		documents:  make(document.Set),
		aggregator: NewAggregator(opts...),
	}
}

// AddDocument registers the document attempts with a matching URI are
// resolved against. A later document with the same URI replaces the earlier.
func (c *Collector) AddDocument(doc *document.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.documents.Add(doc)
}

// Collect appends attempts in the order they are given.
func (c *Collector) Collect(attempts ...TestCaseAttempt) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts = append(c.attempts, attempts...)
}

// Len returns the number of attempts collected so far, retried ones included.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.attempts)
}

// Finalize builds the report from a snapshot of everything collected. The
// collector keeps its buffers, so calling Finalize again yields the same
// report.
func (c *Collector) Finalize(ctx context.Context) (*Report, error) {
	c.mu.Lock()
	attempts := slices.Clone(c.attempts)
	documents := make(document.Set, len(c.documents))
	for uri, doc := range c.documents {
		documents[uri] = doc
	}
	c.mu.Unlock()

	return c.aggregator.Aggregate(ctx, attempts, documents)
}

// Reset discards collected attempts and documents so the collector can be
// reused for another run.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts = nil
	c.documents = make(document.Set)
}
