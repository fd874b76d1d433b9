package routing

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"offline_router/pkg/geo"
	"offline_router/pkg/graph"
	"offline_router/pkg/metrics"
	"offline_router/pkg/store"
)

const (
	// DefaultCacheSlots is the page cache size of one query, in 4 KiB blocks.
	DefaultCacheSlots = 32
	// DefaultTravelTimeConstant converts edge weight into seconds.
	DefaultTravelTimeConstant = 0.02769230769230769
)

// Options configures an Engine. Zero fields take their defaults.
type Options struct {
	CacheSlots         int
	SnapRadiusMeters   float64
	TravelTimeConstant float64
	Logger             *zap.Logger
}

// Result is the output of a route query.
type Result struct {
	Way *store.Way
	// Start and Dest are the positions of the nodes the query points
	// snapped to.
	Start, Dest         geo.Position
	StartNode, DestNode int32
	// Distance is the great-circle length of Way in meters.
	Distance float64
	// Time is the estimated travel time in seconds.
	Time float64
	// PathLength is the summed edge weight of the route.
	PathLength int64
}

// FlatE6 returns the way as alternating latitude and longitude, scaled by
// 1e6.
func (r *Result) FlatE6() []int32 {
	out := make([]int32, 0, 2*len(r.Way.Points))
	for _, p := range r.Way.Points {
		out = append(out, p.LatE6(), p.LonE6())
	}
	return out
}

// Engine answers route queries against a graph file. Every query opens the
// file with its own page cache and closes it before returning; only the
// core graph is shared between queries. An Engine is safe for concurrent
// use.
type Engine struct {
	location string
	core     *CoreGraph
	opts     Options
	logger   *zap.Logger
}

// NewEngine creates an engine for the graph file at location. core may be
// shared between engines reading the same file; nil creates a private one.
func NewEngine(location string, core *CoreGraph, opts Options) *Engine {
	if core == nil {
		core = &CoreGraph{}
	}
	if opts.CacheSlots <= 0 {
		opts.CacheSlots = DefaultCacheSlots
	}
	if opts.SnapRadiusMeters <= 0 {
		opts.SnapRadiusMeters = store.DefaultSnapRadius
	}
	if opts.TravelTimeConstant <= 0 {
		opts.TravelTimeConstant = DefaultTravelTimeConstant
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		location: location,
		core:     core,
		opts:     opts,
		logger:   logger.With(zap.String("graph", location)),
	}
}

// open opens the graph file with a page cache. The caller closes it.
func (e *Engine) open() (*store.Store, error) {
	s, err := store.Open(e.location, store.Options{
		SnapRadiusMeters: e.opts.SnapRadiusMeters,
		Logger:           e.logger,
	})
	if err != nil {
		return nil, err
	}
	if err := s.OpenCache(e.opts.CacheSlots); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// observe records the outcome of a query.
func (e *Engine) observe(op string, start time.Time, err error) {
	outcome := Classify(err)
	elapsed := time.Since(start)
	metrics.Queries.WithLabelValues(outcome.String()).Inc()
	metrics.QueryDuration.Observe(elapsed.Seconds())

	if outcome == OutcomeOK {
		e.logger.Info(op+" completed", zap.Duration("elapsed", elapsed))
		return
	}
	e.logger.Warn(op+" failed",
		zap.Stringer("outcome", outcome),
		zap.Duration("elapsed", elapsed),
		zap.Error(err))
}

// Route computes the shortest route between the nodes nearest to from and
// to. It returns ErrNodeNotFound when either point has no node nearby,
// ErrNoRoute when the nodes are not connected, and the context error when
// ctx is cancelled.
func (e *Engine) Route(ctx context.Context, from, to geo.Position) (res *Result, err error) {
	begin := time.Now()
	defer func() { e.observe("route", begin, err) }()

	s, err := e.open()
	if err != nil {
		return nil, err
	}
	defer s.Close()

	e.logger.Debug("searching path", zap.Stringer("from", from), zap.Stringer("to", to))

	startNode, err := e.nearest(ctx, s, from)
	if err != nil {
		return nil, err
	}
	destNode, err := e.nearest(ctx, s, to)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("resolved nodes", zap.Int32("start", startNode), zap.Int32("dest", destNode))

	core, err := e.core.Load(ctx, s)
	if err != nil {
		return nil, err
	}

	// core <- outgoing region of start <- incoming region of dest
	outGraph, err := s.CreateGraphWithoutCore(ctx, startNode, true)
	if err != nil {
		return nil, err
	}
	outGraph.SetParent(core)
	inGraph, err := s.CreateGraphWithoutCore(ctx, destNode, false)
	if err != nil {
		return nil, err
	}
	inGraph.SetParent(outGraph)
	e.logger.Debug("loaded search graph",
		zap.Int("core_edges", core.EdgeCount()),
		zap.Int("out_edges", outGraph.LocalEdges()),
		zap.Int("in_edges", inGraph.LocalEdges()))

	searchStart := time.Now()
	d := NewDijkstra(inGraph)
	found, err := d.Run(ctx, startNode, destNode)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.Wrapf(ErrNoRoute, "%d -> %d", startNode, destNode)
	}
	e.logger.Debug("dijkstra finished",
		zap.Duration("elapsed", time.Since(searchStart)),
		zap.Int("reached", d.Settled()),
		zap.Int64("length", d.Path.Length))

	path := d.Path
	if err := s.ExpandShortcuts(ctx, inGraph, &path); err != nil {
		return nil, err
	}
	way, err := s.LoadWayCoords(ctx, &path)
	if err != nil {
		return nil, err
	}

	return &Result{
		Way:        way,
		Start:      way.Points[0],
		Dest:       way.Points[len(way.Points)-1],
		StartNode:  startNode,
		DestNode:   destNode,
		Distance:   way.Length,
		Time:       float64(path.Length) * e.opts.TravelTimeConstant,
		PathLength: path.Length,
	}, nil
}

// Nearest returns the node nearest to p and its position.
func (e *Engine) Nearest(ctx context.Context, p geo.Position) (node int32, pos geo.Position, err error) {
	begin := time.Now()
	defer func() { e.observe("nearest", begin, err) }()

	s, err := e.open()
	if err != nil {
		return -1, geo.Position{}, err
	}
	defer s.Close()

	node, err = e.nearest(ctx, s, p)
	if err != nil {
		return -1, geo.Position{}, err
	}
	pos, err = s.Position(ctx, node)
	if err != nil {
		return -1, geo.Position{}, err
	}
	return node, pos, nil
}

func (e *Engine) nearest(ctx context.Context, s *store.Store, p geo.Position) (int32, error) {
	node, err := s.FindPoint(ctx, p)
	if err != nil {
		return -1, err
	}
	if node < 0 {
		return -1, errors.Wrapf(ErrNodeNotFound, "at %v", p)
	}
	return node, nil
}

// Core returns the shared core graph, loading it if needed.
func (e *Engine) Core(ctx context.Context) (*graph.Static, error) {
	if e.core.Loaded() {
		return e.core.Load(ctx, nil)
	}
	s, err := store.Open(e.location, store.Options{Logger: e.logger})
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return e.core.Load(ctx, s)
}

// RouteSample searches a client-supplied sample graph between its original
// source and target. The returned path uses the sample's edge ids.
func RouteSample(ctx context.Context, sample *graph.Sample) (*graph.Path, error) {
	src, dst := sample.OrigSource(), sample.OrigTarget()
	if src < 0 || dst < 0 {
		return nil, errors.Wrap(ErrNodeNotFound, "sample graph has no source or target")
	}
	if !sample.HasNode(src) {
		return nil, errors.Wrapf(ErrNodeNotFound, "sample source %d", src)
	}

	d := NewDijkstra(sample)
	found, err := d.Run(ctx, src, dst)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.Wrapf(ErrNoRoute, "%d -> %d", src, dst)
	}
	path := d.Path
	return &path, nil
}
