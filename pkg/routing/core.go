package routing

import (
	"context"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"offline_router/pkg/graph"
	"offline_router/pkg/metrics"
)

// CoreLoader reads the contracted core graph. *store.Store implements it.
type CoreLoader interface {
	LoadCoreGraph(ctx context.Context) (*graph.Static, error)
}

// CoreGraph holds the core graph once it has been loaded. Concurrent first
// callers share one load; a failed load is not kept, so a later call tries
// again. The zero value is ready to use and a CoreGraph must not be copied.
type CoreGraph struct {
	g     atomic.Pointer[graph.Static]
	group singleflight.Group
}

// Load returns the core graph, reading it with l on first use.
func (c *CoreGraph) Load(ctx context.Context, l CoreLoader) (*graph.Static, error) {
	if g := c.g.Load(); g != nil {
		return g, nil
	}

	v, err, _ := c.group.Do("core", func() (any, error) {
		// Double-check inside singleflight
		if g := c.g.Load(); g != nil {
			return g, nil
		}
		g, err := l.LoadCoreGraph(ctx)
		if err != nil {
			return nil, err
		}
		c.g.Store(g)
		metrics.CoreLoads.Inc()
		return g, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "load core graph")
	}
	return v.(*graph.Static), nil
}

// Loaded reports whether the core graph is available without loading.
func (c *CoreGraph) Loaded() bool { return c.g.Load() != nil }
