package ch

import (
	"container/heap"
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"offline_router/pkg/graph"
)

// defaultMaxShortcutsPerNode is the limit on shortcuts a single contraction
// can create. Nodes exceeding it join the uncontracted core.
const defaultMaxShortcutsPerNode = 1000

// Edge is an edge of the contracted hierarchy. First and Second are the
// hierarchy edge ids a shortcut stands for, -1 for original edges.
type Edge struct {
	From, To      int32
	Weight        int32
	First, Second int32
}

// IsShortcut reports whether e replaces a pair of edges.
func (e Edge) IsShortcut() bool { return e.First >= 0 }

// Hierarchy is the output of contraction. Edges[0:n] are the input graph's
// edges with their original indices; shortcuts follow in creation order.
// Nodes with Rank >= len(Rank)-CoreSize form the uncontracted core.
type Hierarchy struct {
	Rank     []int32
	Edges    []Edge
	CoreSize int
}

// IsCore reports whether node was left uncontracted.
func (h *Hierarchy) IsCore(node int32) bool {
	return int(h.Rank[node]) >= len(h.Rank)-h.CoreSize
}

// Shortcuts returns the number of shortcut edges.
func (h *Hierarchy) Shortcuts() int {
	n := 0
	for _, e := range h.Edges {
		if e.IsShortcut() {
			n++
		}
	}
	return n
}

// Options configures contraction.
type Options struct {
	// CoreSize is the number of nodes left uncontracted at the top of the
	// hierarchy. Contraction may stop earlier, leaving a larger core.
	CoreSize            int
	MaxShortcutsPerNode int
	Logger              *zap.Logger
}

// adjEntry represents an edge in the mutable adjacency list.
type adjEntry struct {
	to     int32
	weight int32
	edge   int32 // hierarchy edge id
}

// Contract performs Contraction Hierarchies preprocessing on g, leaving the
// opts.CoreSize most important nodes uncontracted. ctx is checked at every
// progress interval; on cancellation the context error is returned.
func Contract(ctx context.Context, g *graph.Static, opts Options) (*Hierarchy, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxShortcuts := opts.MaxShortcutsPerNode
	if maxShortcuts <= 0 {
		maxShortcuts = defaultMaxShortcutsPerNode
	}

	n := int32(g.NodeCount())
	h := &Hierarchy{
		Rank:  make([]int32, n),
		Edges: make([]Edge, 0, g.EdgeCount()*2),
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n == 0 {
		return h, nil
	}

	// Mutable forward and reverse adjacency lists from the CSR graph.
	outAdj := make([][]adjEntry, n)
	inAdj := make([][]adjEntry, n)
	for e := range int32(g.EdgeCount()) {
		u, v, w := g.Tail[e], g.Head[e], g.Weight[e]
		h.Edges = append(h.Edges, Edge{From: u, To: v, Weight: w, First: -1, Second: -1})
		outAdj[u] = append(outAdj[u], adjEntry{to: v, weight: w, edge: e})
		inAdj[v] = append(inAdj[v], adjEntry{to: u, weight: w, edge: e})
	}

	contracted := make([]bool, n)
	contractedNeighbors := make([]int, n)
	level := make([]int, n)

	pq := make(priorityQueue, n)
	for i := range n {
		pq[i] = &pqEntry{
			node:     i,
			priority: computePriority(outAdj, inAdj, i, contracted, contractedNeighbors[i], level[i]),
			index:    int(i),
		}
	}
	heap.Init(&pq)

	ws := newWitnessState(n)

	logger.Info("starting contraction", zap.Int32("nodes", n), zap.Int("core_size", opts.CoreSize))

	var totalShortcuts int
	order := int32(0)
	target := n - int32(min(max(opts.CoreSize, 0), int(n)))
	logInterval := int32(50000)

	for pq.Len() > 0 && order < target {
		entry := heap.Pop(&pq).(*pqEntry)
		node := entry.node

		if contracted[node] {
			continue
		}

		// Lazy update: recompute priority and re-insert if it changed.
		newPriority := computePriority(outAdj, inAdj, node, contracted, contractedNeighbors[node], level[node])
		if newPriority > entry.priority && pq.Len() > 0 && newPriority > pq[0].priority {
			entry.priority = newPriority
			heap.Push(&pq, entry)
			continue
		}

		shortcuts := findShortcuts(ws, outAdj, inAdj, node, contracted)

		if len(shortcuts) > maxShortcuts {
			logger.Info("stopping contraction early",
				zap.Int32("node", node),
				zap.Int("shortcuts", len(shortcuts)),
				zap.Int("limit", maxShortcuts),
				zap.Int32("core_nodes", n-order))
			break
		}

		contracted[node] = true
		h.Rank[node] = order
		order++
		totalShortcuts += len(shortcuts)

		for _, sc := range shortcuts {
			id := int32(len(h.Edges))
			h.Edges = append(h.Edges, Edge{From: sc.from, To: sc.to, Weight: sc.weight, First: sc.first, Second: sc.second})
			outAdj[sc.from] = append(outAdj[sc.from], adjEntry{to: sc.to, weight: sc.weight, edge: id})
			inAdj[sc.to] = append(inAdj[sc.to], adjEntry{to: sc.from, weight: sc.weight, edge: id})
		}

		for _, adj := range [2][]adjEntry{outAdj[node], inAdj[node]} {
			for _, e := range adj {
				if !contracted[e.to] {
					contractedNeighbors[e.to]++
					level[e.to] = max(level[e.to], level[node]+1)
				}
			}
		}

		remaining := n - order
		switch {
		case remaining < 1000:
			logInterval = 100
		case remaining < 10000:
			logInterval = 1000
		case remaining < 100000:
			logInterval = 10000
		default:
			logInterval = 50000
		}
		if order%logInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, errors.Wrapf(err, "contraction stopped after %d nodes", order)
			}
			logger.Info("contraction progress",
				zap.Int32("contracted", order),
				zap.Int32("nodes", n),
				zap.Int("shortcuts", totalShortcuts))
		}
	}

	// Remaining nodes form the core, ranked above everything contracted.
	for i := range n {
		if !contracted[i] {
			h.Rank[i] = order
			order++
			h.CoreSize++
		}
	}

	ratio := 0.0
	if g.EdgeCount() > 0 {
		ratio = float64(totalShortcuts) / float64(g.EdgeCount())
	}
	logger.Info("contraction complete",
		zap.Int("shortcuts", totalShortcuts),
		zap.Float64("shortcut_ratio", ratio),
		zap.Int("core_nodes", h.CoreSize))

	return h, nil
}

// shortcut represents a shortcut edge to be added.
type shortcut struct {
	from, to      int32
	weight        int32
	first, second int32
}

// findShortcuts determines which shortcuts are needed when contracting a node.
// One witness search runs per incoming neighbor, covering all outgoing targets.
func findShortcuts(ws *witnessState, outAdj, inAdj [][]adjEntry, node int32, contracted []bool) []shortcut {
	var incoming []adjEntry
	for _, e := range inAdj[node] {
		if !contracted[e.to] && e.to != node {
			incoming = append(incoming, e)
		}
	}

	var outgoing []adjEntry
	for _, e := range outAdj[node] {
		if !contracted[e.to] && e.to != node {
			outgoing = append(outgoing, e)
		}
	}

	if len(incoming) == 0 || len(outgoing) == 0 {
		return nil
	}

	var shortcuts []shortcut

	for _, in := range incoming {
		// Zero-weight edges still need a witness, so -1 marks "no target".
		maxOut := int64(-1)
		for _, out := range outgoing {
			if out.to != in.to && int64(out.weight) > maxOut {
				maxOut = int64(out.weight)
			}
		}
		if maxOut < 0 {
			continue
		}

		batchWitnessSearch(ws, outAdj, in.to, node, int64(in.weight)+maxOut, contracted)

		for _, out := range outgoing {
			if out.to == in.to {
				continue
			}
			w := int64(in.weight) + int64(out.weight)
			if ws.dist[out.to] > w {
				shortcuts = append(shortcuts, shortcut{
					from:   in.to,
					to:     out.to,
					weight: int32(w),
					first:  in.edge,
					second: out.edge,
				})
			}
		}
	}

	return shortcuts
}

// computePriority returns the priority for a node (lower = contract first).
func computePriority(outAdj, inAdj [][]adjEntry, node int32, contracted []bool, contractedNeighbors, level int) int {
	activeIn := 0
	for _, e := range inAdj[node] {
		if !contracted[e.to] {
			activeIn++
		}
	}
	activeOut := 0
	for _, e := range outAdj[node] {
		if !contracted[e.to] {
			activeOut++
		}
	}

	// Worst-case shortcut count stands in for a full witness search.
	edgeDifference := activeIn*activeOut - (activeIn + activeOut)

	return edgeDifference + 2*contractedNeighbors + level
}

type pqEntry struct {
	node     int32
	priority int
	index    int
}

type priorityQueue []*pqEntry

func (pq priorityQueue) Len() int { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].priority != pq[j].priority {
		return pq[i].priority < pq[j].priority
	}
	return pq[i].node < pq[j].node
}
func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	entry := x.(*pqEntry)
	entry.index = len(*pq)
	*pq = append(*pq, entry)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	entry.index = -1
	*pq = old[:n-1]
	return entry
}
