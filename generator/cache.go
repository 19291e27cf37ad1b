package generator

import (
	"context"
	"sync"
)

// ProduceFunc runs one full pipeline generation for a Brief.
type ProduceFunc func(ctx context.Context) (*Article, error)

// resultCell is a single-assignment slot: the owning run sets article/err
// exactly once and closes done; waiters only read after done is closed.
// status is the live phase of the in-flight run, guarded by the cache lock.
type resultCell struct {
	done    chan struct{}
	article *Article
	err     error
	status  Status
}

func settled(cell *resultCell) bool {
	select {
	case <-cell.done:
		return true
	default:
		return false
	}
}

// Cache is the idempotency cache: a concurrency-safe mapping from Fingerprint
// to a result cell. Check-then-insert happens under one lock, so at most one
// generation runs per fingerprint; terminal entries are append-only.
type Cache struct {
	mu    sync.Mutex
	cells map[string]*resultCell
}

func NewCache() *Cache {
	return &Cache{cells: make(map[string]*resultCell)}
}

// GetOrCreate returns the cached Article for the Brief's fingerprint,
// waits on an in-flight run for the same fingerprint, or becomes the owner
// and runs produce. A failed run removes its cell so an identical
// resubmission is free to retry from scratch.
func (c *Cache) GetOrCreate(ctx context.Context, brief Brief, produce ProduceFunc) (*Article, error) {
	return c.acquire(ctx, brief.Fingerprint(), produce, false)
}

// Recreate is GetOrCreate with terminal reuse disabled: a finished result for
// the fingerprint is discarded under the same lock that claims ownership, so
// no concurrent submission can reinstate it in between. An in-flight run is
// joined; it is already newer than anything discarded here.
func (c *Cache) Recreate(ctx context.Context, brief Brief, produce ProduceFunc) (*Article, error) {
	return c.acquire(ctx, brief.Fingerprint(), produce, true)
}

func (c *Cache) acquire(ctx context.Context, fp string, produce ProduceFunc, dropTerminal bool) (*Article, error) {
	c.mu.Lock()
	cell, ok := c.cells[fp]
	if ok && dropTerminal && settled(cell) {
		delete(c.cells, fp)
		ok = false
	}
	if ok {
		c.mu.Unlock()
		select {
		case <-cell.done:
			return cell.article, cell.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	cell = &resultCell{done: make(chan struct{}), status: StatusGenerating}
	c.cells[fp] = cell
	c.mu.Unlock()

	article, err := produce(ctx)
	if err != nil {
		c.mu.Lock()
		delete(c.cells, fp)
		c.mu.Unlock()
		cell.err = err
		close(cell.done)
		return nil, err
	}

	cell.article = article
	close(cell.done)
	return article, nil
}

// Report updates the live status of an in-flight run. Settled entries are
// never touched.
func (c *Cache) Report(fp string, status Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cell, ok := c.cells[fp]; ok && !settled(cell) {
		cell.status = status
	}
}

// Peek reports the current state for a fingerprint without waiting. A
// terminal entry comes back with its article; an in-flight one with a nil
// article and the run's live status.
func (c *Cache) Peek(fp string) (article *Article, status Status, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cell, exists := c.cells[fp]
	if !exists {
		return nil, "", false
	}
	if settled(cell) {
		return cell.article, cell.article.Status, true
	}
	return nil, cell.status, true
}
