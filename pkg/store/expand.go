package store

import (
	"context"
	"encoding/binary"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"offline_router/pkg/geo"
	"offline_router/pkg/graph"
)

// maxExpandDepth bounds shortcut nesting. Deeper chains mean the shortcut
// table has a cycle.
const maxExpandDepth = 1024

// ExpandShortcuts rewrites p in place so that it uses original edges only.
// Edge ids of p are taken relative to g and mapped to file edge ids first;
// on return p.Edges holds file edge ids and p.Nodes the matching node
// sequence. p.Length is unchanged.
func (s *Store) ExpandShortcuts(ctx context.Context, g graph.Graph, p *graph.Path) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.reader()
	if err != nil {
		return err
	}
	if len(p.Edges) == 0 {
		return nil
	}
	if len(p.Nodes) != len(p.Edges)+1 {
		return errors.Errorf("path has %d nodes for %d edges", len(p.Nodes), len(p.Edges))
	}

	type item struct {
		edge  int32
		depth int
	}

	nodes := make([]int32, 1, len(p.Nodes))
	nodes[0] = p.Nodes[0]
	edges := make([]int32, 0, len(p.Edges))
	var stack []item

	for _, e := range p.Edges {
		if err := ctx.Err(); err != nil {
			return err
		}
		stack = append(stack[:0], item{graph.Origin(g, e), 0})
		for len(stack) > 0 {
			it := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if it.depth > maxExpandDepth {
				return errors.Wrapf(ErrFormat, "shortcut nesting deeper than %d at edge %d", maxExpandDepth, it.edge)
			}

			rec, err := s.edge(c, it.edge)
			if err != nil {
				return err
			}
			first, second, err := s.shortcut(c, it.edge)
			if err != nil {
				return err
			}
			if first < 0 {
				if last := nodes[len(nodes)-1]; rec.Source != last {
					return errors.Wrapf(ErrFormat, "edge %d starts at %d, path is at %d", it.edge, rec.Source, last)
				}
				edges = append(edges, it.edge)
				nodes = append(nodes, rec.Target)
				continue
			}
			// Second half first so the first half is expanded next.
			stack = append(stack, item{second, it.depth + 1}, item{first, it.depth + 1})
		}
	}

	if last := nodes[len(nodes)-1]; last != p.Nodes[len(p.Nodes)-1] {
		return errors.Wrapf(ErrFormat, "expanded path ends at %d, want %d", last, p.Nodes[len(p.Nodes)-1])
	}
	p.Nodes = nodes
	p.Edges = edges
	return nil
}

// Way is the geometry of an expanded path.
type Way struct {
	Points []geo.Position
	// Length is the great-circle length of Points in meters.
	Length float64
}

// LineString returns the way as an orb line string.
func (w *Way) LineString() orb.LineString {
	ls := make(orb.LineString, len(w.Points))
	for i, p := range w.Points {
		ls[i] = p.Point()
	}
	return ls
}

// LoadWayCoords resolves an expanded path of file edge ids into its
// polyline: the coordinate of every node with the shape points of each edge
// in between.
func (s *Store) LoadWayCoords(ctx context.Context, p *graph.Path) (*Way, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.reader()
	if err != nil {
		return nil, err
	}

	w := &Way{}
	if len(p.Nodes) == 0 {
		return w, nil
	}
	if len(p.Nodes) != len(p.Edges)+1 {
		return nil, errors.Errorf("path has %d nodes for %d edges", len(p.Nodes), len(p.Edges))
	}

	for i, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i > 0 {
			shape, err := s.shape(c, p.Edges[i-1])
			if err != nil {
				return nil, err
			}
			w.Points = append(w.Points, shape...)
		}
		if err := s.checkNode(node); err != nil {
			return nil, errors.Wrap(ErrFormat, err.Error())
		}
		pos, err := s.position(c, node)
		if err != nil {
			return nil, err
		}
		w.Points = append(w.Points, pos)
	}
	w.Length = geo.Length(w.Points)
	return w, nil
}

// shape returns the intermediate points of edge.
func (s *Store) shape(c *pageCache, edge int32) ([]geo.Position, error) {
	if edge < 0 || edge >= int32(s.hdr.NumEdges) {
		return nil, errors.Wrapf(ErrFormat, "edge %d out of range [0,%d)", edge, s.hdr.NumEdges)
	}
	var b [2 * offsetSize]byte
	if err := c.readAt(b[:], s.l.shapeFirst+int64(edge)*offsetSize); err != nil {
		return nil, err
	}
	first := binary.LittleEndian.Uint32(b[:])
	last := binary.LittleEndian.Uint32(b[4:])
	if first > last || last > s.hdr.NumShapePoints {
		return nil, errors.Wrapf(ErrFormat, "shape of edge %d is [%d,%d) of %d", edge, first, last, s.hdr.NumShapePoints)
	}
	if first == last {
		return nil, nil
	}
	raw := make([]byte, int64(last-first)*coordSize)
	if err := c.readAt(raw, s.l.shape+int64(first)*coordSize); err != nil {
		return nil, err
	}
	le := binary.LittleEndian
	out := make([]geo.Position, last-first)
	for i := range out {
		b := raw[i*coordSize:]
		out[i] = geo.FromE7(int32(le.Uint32(b)), int32(le.Uint32(b[4:])))
	}
	return out, nil
}
