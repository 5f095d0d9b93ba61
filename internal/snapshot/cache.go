package snapshot

import (
	"context"
	"fmt"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrClosed is returned by a Cache after Close.
var ErrClosed = eris.New("snapshot: cache closed")

// Cache memoizes one snapshot per session. It holds at most one entry, keyed
// by the Params it was loaded with; a Get for different Params replaces it.
// Concurrent first accesses share a single load.
type Cache struct {
	src   Source
	group singleflight.Group

	mu     sync.Mutex
	key    Params
	entry  *Snapshot
	loads  int
	closed bool
}

// NewCache creates an empty cache backed by src.
func NewCache(src Source) *Cache {
	return &Cache{src: src}
}

// Get returns the cached snapshot for p, loading it on first access.
// Failed loads are not cached.
func (c *Cache) Get(ctx context.Context, p Params) (*Snapshot, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.entry != nil && c.key == p {
		snap := c.entry
		c.mu.Unlock()
		return snap, nil
	}
	c.mu.Unlock()

	return c.load(ctx, p, "get")
}

// Refresh reloads the snapshot for p and replaces the cached entry. On error
// the previous entry is kept.
func (c *Cache) Refresh(ctx context.Context, p Params) (*Snapshot, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	return c.load(ctx, p, "refresh")
}

// Peek returns the cached entry without loading.
func (c *Cache) Peek() (*Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entry, c.entry != nil
}

// Loads reports how many loads have completed successfully.
func (c *Cache) Loads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loads
}

// Close drops the entry. Subsequent calls fail with ErrClosed.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry = nil
	c.closed = true
}

// load runs at most one Source.Load per key. The load ignores ctx
// cancellation and is cached once it completes; the caller returns as soon
// as ctx is done.
func (c *Cache) load(ctx context.Context, p Params, op string) (*Snapshot, error) {
	flightKey := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%d", op, p.DatasetURL, p.MetadataURL, p.CachePath, p.Delimiter, p.SheetName, p.SheetIndex)
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(flightKey, func() (any, error) {
		if op == "get" {
			c.mu.Lock()
			if c.entry != nil && c.key == p {
				snap := c.entry
				c.mu.Unlock()
				return snap, nil
			}
			c.mu.Unlock()
		}

		snap, err := c.src.Load(loadCtx, p)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			return nil, ErrClosed
		}
		c.key = p
		c.entry = snap
		c.loads++
		return snap, nil
	})

	select {
	case <-ctx.Done():
		return nil, eris.Wrapf(ctx.Err(), "snapshot: %s", op)
	case res := <-ch:
		if res.Err != nil {
			return nil, eris.Wrapf(res.Err, "snapshot: %s", op)
		}
		if res.Shared {
			zap.L().Debug("snapshot load shared", zap.String("op", op))
		}
		return res.Val.(*Snapshot), nil
	}
}
