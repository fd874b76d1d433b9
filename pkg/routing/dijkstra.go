package routing

import (
	"context"
	"math"
	"slices"

	"github.com/pkg/errors"

	"offline_router/pkg/graph"
)

// ErrNegativeWeight is returned when the search meets an edge with a
// negative weight.
var ErrNegativeWeight = errors.New("negative edge weight")

// MinHeap is a concrete-typed min-heap for the Dijkstra priority queue.
// Avoids interface boxing overhead of container/heap.
//
// It has no decrease-key: a node whose distance improves is pushed again
// and the outdated entry is skipped when it surfaces.
type MinHeap struct {
	items []PQItem
}

// PQItem is a priority queue entry.
type PQItem struct {
	Node int32
	Dist int64
}

func (h *MinHeap) Len() int { return len(h.items) }

func (h *MinHeap) Push(node int32, dist int64) {
	h.items = append(h.items, PQItem{node, dist})
	h.siftUp(len(h.items) - 1)
}

func (h *MinHeap) Pop() PQItem {
	n := len(h.items)
	item := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return item
}

func (h *MinHeap) PeekDist() int64 {
	if len(h.items) == 0 {
		return math.MaxInt64
	}
	return h.items[0].Dist
}

func (h *MinHeap) Reset() {
	h.items = h.items[:0]
}

func (h *MinHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.items[i].Dist >= h.items[parent].Dist {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *MinHeap) siftDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2
		if left < n && h.items[left].Dist < h.items[smallest].Dist {
			smallest = left
		}
		if right < n && h.items[right].Dist < h.items[smallest].Dist {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}

// nodeData is the best known distance to a node and the edge it was
// reached by.
type nodeData struct {
	dist int64
	pred int32
	edge int32
}

// Dijkstra runs one-to-one searches over a graph. Node state is kept in a
// map because layered graphs have sparse node ids. A Dijkstra is not safe
// for concurrent use.
type Dijkstra struct {
	g     graph.Graph
	heap  MinHeap
	nodes map[int32]nodeData
	it    graph.EdgeIterator

	// Path holds the result of the last successful Run. It is emptied at
	// the start of every Run.
	Path graph.Path
}

// NewDijkstra creates a search over g.
func NewDijkstra(g graph.Graph) *Dijkstra {
	return &Dijkstra{
		g:     g,
		heap:  MinHeap{items: make([]PQItem, 0, 256)},
		nodes: make(map[int32]nodeData),
	}
}

// Graph returns the graph the search runs on.
func (d *Dijkstra) Graph() graph.Graph { return d.g }

// Settled returns the number of nodes reached by the last Run.
func (d *Dijkstra) Settled() int { return len(d.nodes) }

// Run searches for the shortest path from start to dest and reports whether
// one exists. ctx is checked before every heap pop; on cancellation the
// context error is returned and Path stays empty.
func (d *Dijkstra) Run(ctx context.Context, start, dest int32) (bool, error) {
	d.Path.Reset()
	d.heap.Reset()
	clear(d.nodes)

	d.nodes[start] = nodeData{dist: 0, pred: -1, edge: -1}
	d.heap.Push(start, 0)

	for d.heap.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		item := d.heap.Pop()

		if item.Node == dest {
			d.backtrack(start, dest)
			return true, nil
		}
		if item.Dist > d.nodes[item.Node].dist {
			continue // stale entry
		}

		for d.it.Load(d.g, item.Node); d.it.Next(); {
			if d.it.Weight < 0 {
				return false, errors.Wrapf(ErrNegativeWeight, "edge %d weighs %d", d.it.Edge, d.it.Weight)
			}
			cand := item.Dist + int64(d.it.Weight)
			if nd, ok := d.nodes[d.it.Target]; ok && cand >= nd.dist {
				continue
			}
			d.nodes[d.it.Target] = nodeData{dist: cand, pred: item.Node, edge: d.it.Edge}
			d.heap.Push(d.it.Target, cand)
		}
	}
	return false, nil
}

// backtrack fills Path by walking predecessors from dest back to start.
func (d *Dijkstra) backtrack(start, dest int32) {
	d.Path.Length = d.nodes[dest].dist

	v := dest
	d.Path.Nodes = append(d.Path.Nodes, v)
	for v != start {
		nd := d.nodes[v]
		d.Path.Edges = append(d.Path.Edges, nd.edge)
		v = nd.pred
		d.Path.Nodes = append(d.Path.Nodes, v)
	}
	slices.Reverse(d.Path.Nodes)
	slices.Reverse(d.Path.Edges)
}
