// Package store reads and writes the contracted graph file: node
// coordinates, core and non-core edge tables, shortcut definitions, edge
// shapes and a spatial grid over the nodes.
package store

import (
	"context"
	"encoding/binary"
	"math"
	"os"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"offline_router/pkg/geo"
	"offline_router/pkg/graph"
)

// DefaultSnapRadius is the largest distance in meters at which FindPoint
// still matches a node.
const DefaultSnapRadius = 500.0

// Options configures a Store.
type Options struct {
	SnapRadiusMeters float64
	Logger           *zap.Logger
}

// Store serves random-access reads from a graph file. Apart from the core
// graph, all reads go through a page cache that must be opened with
// OpenCache first. A Store is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	f      *os.File
	path   string
	hdr    *header
	l      layout
	grid   *spatialIndex
	cache  *pageCache
	radius float64
	logger *zap.Logger
}

// Open opens the graph file at path and loads its header and cell directory.
func Open(path string, opts ...Options) (*Store, error) {
	var opt Options
	if len(opts) > 0 {
		opt = opts[0]
	}
	if opt.SnapRadiusMeters <= 0 {
		opt.SnapRadiusMeters = DefaultSnapRadius
	}
	if opt.Logger == nil {
		opt.Logger = zap.NewNop()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open graph file")
	}
	s, err := open(f, path, opt)
	if err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

func open(f *os.File, path string, opt Options) (*Store, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "stat graph file")
	}

	raw := make([]byte, headerSize)
	if fi.Size() < headerSize {
		return nil, errors.Wrapf(ErrFormat, "file is %d bytes, shorter than header", fi.Size())
	}
	if _, err := f.ReadAt(raw, 0); err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	h, err := parseHeader(raw)
	if err != nil {
		return nil, err
	}
	l := newLayout(h)
	if l.size != fi.Size() {
		return nil, errors.Wrapf(ErrFormat, "file is %d bytes, header describes %d", fi.Size(), l.size)
	}

	grid, err := loadSpatial(f, h, l)
	if err != nil {
		return nil, err
	}

	opt.Logger.Debug("opened graph file",
		zap.String("path", path),
		zap.Uint32("nodes", h.NumNodes),
		zap.Uint32("core_nodes", h.NumCoreNodes),
		zap.Uint32("edges", h.NumEdges),
		zap.Uint32("core_edges", h.NumCoreEdges),
		zap.Uint32("cells", h.NumCells))

	return &Store{
		f:      f,
		path:   path,
		hdr:    h,
		l:      l,
		grid:   grid,
		radius: opt.SnapRadiusMeters,
		logger: opt.Logger,
	}, nil
}

// OpenCache sets up a page cache of slots blocks of BlockSize bytes,
// replacing any previous cache.
func (s *Store) OpenCache(slots int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return ErrClosed
	}
	c, err := newPageCache(s.f, s.l.size, slots)
	if err != nil {
		return err
	}
	s.cache = c
	return nil
}

// Close releases the file handle. It is safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	s.cache = nil
	return errors.Wrap(err, "close graph file")
}

// Path returns the file the store was opened from.
func (s *Store) Path() string { return s.path }

// NumNodes returns the number of nodes in the file.
func (s *Store) NumNodes() int { return int(s.hdr.NumNodes) }

// NumCoreNodes returns the number of core nodes; they are nodes [0, n).
func (s *Store) NumCoreNodes() int { return int(s.hdr.NumCoreNodes) }

// NumEdges returns the number of edges in the file, shortcuts included.
func (s *Store) NumEdges() int { return int(s.hdr.NumEdges) }

// reader returns the page cache for a read under s.mu.RLock.
func (s *Store) reader() (*pageCache, error) {
	if s.f == nil {
		return nil, ErrClosed
	}
	if s.cache == nil {
		return nil, ErrCacheNotOpen
	}
	return s.cache, nil
}

func (s *Store) checkNode(node int32) error {
	if node < 0 || node >= int32(s.hdr.NumNodes) {
		return errors.Errorf("node %d out of range [0,%d)", node, s.hdr.NumNodes)
	}
	return nil
}

func (s *Store) position(c *pageCache, node int32) (geo.Position, error) {
	var b [coordSize]byte
	if err := c.readAt(b[:], s.l.coords+int64(node)*coordSize); err != nil {
		return geo.Position{}, err
	}
	return geo.FromE7(int32(binary.LittleEndian.Uint32(b[:])), int32(binary.LittleEndian.Uint32(b[4:]))), nil
}

func (s *Store) edge(c *pageCache, id int32) (graph.Edge, error) {
	if id < 0 || id >= int32(s.hdr.NumEdges) {
		return graph.Edge{}, errors.Wrapf(ErrFormat, "edge %d out of range [0,%d)", id, s.hdr.NumEdges)
	}
	var b [edgeSize]byte
	if err := c.readAt(b[:], s.l.edges+int64(id)*edgeSize); err != nil {
		return graph.Edge{}, err
	}
	le := binary.LittleEndian
	e := graph.Edge{
		Source: int32(le.Uint32(b[:])),
		Target: int32(le.Uint32(b[4:])),
		Weight: int32(le.Uint32(b[8:])),
		Origin: id,
	}
	n := int32(s.hdr.NumNodes)
	if e.Source < 0 || e.Source >= n || e.Target < 0 || e.Target >= n || e.Weight < 0 {
		return graph.Edge{}, errors.Wrapf(ErrFormat, "edge %d is invalid (%d->%d, weight %d)", id, e.Source, e.Target, e.Weight)
	}
	return e, nil
}

func (s *Store) shortcut(c *pageCache, id int32) (first, second int32, err error) {
	var b [shortcutSize]byte
	if err := c.readAt(b[:], s.l.shortcuts+int64(id)*shortcutSize); err != nil {
		return 0, 0, err
	}
	return int32(binary.LittleEndian.Uint32(b[:])), int32(binary.LittleEndian.Uint32(b[4:])), nil
}

// ids reads the id list of node from a CSR section pair.
func (s *Store) ids(c *pageCache, firstOff, listOff int64, total uint32, node int32) ([]int32, error) {
	var b [2 * offsetSize]byte
	if err := c.readAt(b[:], firstOff+int64(node)*offsetSize); err != nil {
		return nil, err
	}
	first := binary.LittleEndian.Uint32(b[:])
	last := binary.LittleEndian.Uint32(b[4:])
	if first > last || last > total {
		return nil, errors.Wrapf(ErrFormat, "adjacency of node %d is [%d,%d) of %d", node, first, last, total)
	}
	if first == last {
		return nil, nil
	}
	raw := make([]byte, int64(last-first)*idSize)
	if err := c.readAt(raw, listOff+int64(first)*idSize); err != nil {
		return nil, err
	}
	out := make([]int32, last-first)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(raw[i*idSize:]))
	}
	return out, nil
}

// Position returns the coordinate of node.
func (s *Store) Position(ctx context.Context, node int32) (geo.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.reader()
	if err != nil {
		return geo.Position{}, err
	}
	if err := ctx.Err(); err != nil {
		return geo.Position{}, err
	}
	if err := s.checkNode(node); err != nil {
		return geo.Position{}, err
	}
	return s.position(c, node)
}

// FindPoint returns the node closest to p, or -1 if no node lies within the
// snap radius. Ties go to the smallest node id.
func (s *Store) FindPoint(ctx context.Context, p geo.Position) (int32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.reader()
	if err != nil {
		return -1, err
	}
	if err := ctx.Err(); err != nil {
		return -1, err
	}

	best := int32(-1)
	bestDist := math.Inf(1)
	err = s.grid.search(p, s.radius, func(cell gridCell) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw := make([]byte, int64(cell.count)*idSize)
		if err := c.readAt(raw, s.l.cellNodes+int64(cell.first)*idSize); err != nil {
			return err
		}
		for i := range int(cell.count) {
			node := int32(binary.LittleEndian.Uint32(raw[i*idSize:]))
			if err := s.checkNode(node); err != nil {
				return errors.Wrap(ErrFormat, err.Error())
			}
			pos, err := s.position(c, node)
			if err != nil {
				return err
			}
			d := geo.Distance(p, pos)
			if d < bestDist || (d == bestDist && node < best) {
				best, bestDist = node, d
			}
		}
		return nil
	})
	if err != nil {
		return -1, err
	}
	if best < 0 || bestDist > s.radius {
		return -1, nil
	}
	return best, nil
}

// LoadCoreGraph reads the core graph in one pass and checks its structure.
// Edge ids of the returned graph are file edge ids.
func (s *Store) LoadCoreGraph(ctx context.Context) (*graph.Static, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.f == nil {
		return nil, ErrClosed
	}

	numCore := int(s.hdr.NumCoreNodes)
	numEdges := int(s.hdr.NumCoreEdges)

	raw := make([]byte, (numCore+1)*offsetSize)
	if _, err := s.f.ReadAt(raw, s.l.coreFirst); err != nil {
		return nil, errors.Wrap(err, "read core offsets")
	}
	le := binary.LittleEndian
	g := &graph.Static{
		FirstOut: make([]uint32, numCore+1),
		Tail:     make([]int32, numEdges),
		Head:     make([]int32, numEdges),
		Weight:   make([]int32, numEdges),
		Coords:   make([]geo.Position, numCore),
	}
	for i := range g.FirstOut {
		g.FirstOut[i] = le.Uint32(raw[i*offsetSize:])
		if i > 0 && g.FirstOut[i] < g.FirstOut[i-1] {
			return nil, errors.Wrapf(ErrFormat, "core offsets not monotonic at %d", i)
		}
	}
	if g.FirstOut[0] != 0 || int(g.FirstOut[numCore]) != numEdges {
		return nil, errors.Wrapf(ErrFormat, "core offsets span [%d,%d), want [0,%d)", g.FirstOut[0], g.FirstOut[numCore], numEdges)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw = make([]byte, numEdges*edgeSize)
	if _, err := s.f.ReadAt(raw, s.l.edges); err != nil {
		return nil, errors.Wrap(err, "read core edges")
	}
	for u := range numCore {
		for e := g.FirstOut[u]; e < g.FirstOut[u+1]; e++ {
			b := raw[e*edgeSize:]
			src := int32(le.Uint32(b))
			tgt := int32(le.Uint32(b[4:]))
			w := int32(le.Uint32(b[8:]))
			if src != int32(u) || tgt < 0 || int(tgt) >= numCore || w < 0 {
				return nil, errors.Wrapf(ErrFormat, "core edge %d (%d->%d, weight %d) is invalid", e, src, tgt, w)
			}
			g.Tail[e], g.Head[e], g.Weight[e] = src, tgt, w
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw = make([]byte, numCore*coordSize)
	if _, err := s.f.ReadAt(raw, s.l.coords); err != nil {
		return nil, errors.Wrap(err, "read core coordinates")
	}
	for i := range g.Coords {
		b := raw[i*coordSize:]
		g.Coords[i] = geo.FromE7(int32(le.Uint32(b)), int32(le.Uint32(b[4:])))
	}

	s.logger.Debug("loaded core graph", zap.Int("nodes", numCore), zap.Int("edges", numEdges))
	return g, nil
}

// CreateGraphWithoutCore collects the non-core edges around node. With
// forward set it follows upward edges out of node, otherwise downward edges
// into node, in both cases until core nodes are reached. The result has no
// parent; local edges carry their file edge ids as origin.
func (s *Store) CreateGraphWithoutCore(ctx context.Context, node int32, forward bool) (*graph.Layer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.reader()
	if err != nil {
		return nil, err
	}
	if err := s.checkNode(node); err != nil {
		return nil, err
	}

	firstOff, listOff, total := s.l.upFirst, s.l.up, s.hdr.NumUpEdges
	if !forward {
		firstOff, listOff, total = s.l.downFirst, s.l.down, s.hdr.NumDownEdges
	}

	var edges []graph.Edge
	seen := map[int32]bool{node: true}
	queue := []int32{node}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v := queue[0]
		queue = queue[1:]
		if v < int32(s.hdr.NumCoreNodes) {
			continue
		}

		ids, err := s.ids(c, firstOff, listOff, total, v)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if id < int32(s.hdr.NumCoreEdges) {
				return nil, errors.Wrapf(ErrFormat, "core edge %d listed as non-core", id)
			}
			e, err := s.edge(c, id)
			if err != nil {
				return nil, err
			}
			next := e.Target
			if !forward {
				next = e.Source
			}
			if (forward && e.Source != v) || (!forward && e.Target != v) {
				return nil, errors.Wrapf(ErrFormat, "edge %d (%d->%d) listed at node %d", id, e.Source, e.Target, v)
			}
			edges = append(edges, e)
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}

	return graph.NewLayer(edges), nil
}
