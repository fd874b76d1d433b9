package ch

import "math"

const (
	maxSettled = 500 // max nodes settled during witness search
	maxHops    = 5   // max hops from source
)

const unreached = int64(math.MaxInt64)

type witnessItem struct {
	node int32
	dist int64
	hops int
}

// witnessHeap is a binary min-heap keyed on dist.
type witnessHeap []witnessItem

func (h *witnessHeap) push(it witnessItem) {
	*h = append(*h, it)
	s := *h
	i := len(s) - 1
	for i > 0 {
		p := (i - 1) / 2
		if it.dist >= s[p].dist {
			break
		}
		s[i] = s[p]
		i = p
	}
	s[i] = it
}

func (h *witnessHeap) pop() witnessItem {
	s := *h
	top := s[0]
	n := len(s) - 1
	last := s[n]
	s = s[:n]
	*h = s
	if n == 0 {
		return top
	}
	i := 0
	for {
		c := 2*i + 1
		if c >= n {
			break
		}
		if r := c + 1; r < n && s[r].dist < s[c].dist {
			c = r
		}
		if last.dist <= s[c].dist {
			break
		}
		s[i] = s[c]
		i = c
	}
	s[i] = last
	return top
}

// witnessState is reused across searches. Only touched entries of dist are
// reset between runs.
type witnessState struct {
	dist    []int64
	touched []int32
	heap    witnessHeap
}

func newWitnessState(numNodes int32) *witnessState {
	dist := make([]int64, numNodes)
	for i := range dist {
		dist[i] = unreached
	}
	return &witnessState{
		dist: dist,
		heap: make(witnessHeap, 0, 256),
	}
}

func (ws *witnessState) reset() {
	for _, n := range ws.touched {
		ws.dist[n] = unreached
	}
	ws.touched = ws.touched[:0]
	ws.heap = ws.heap[:0]
}

// batchWitnessSearch runs a bounded Dijkstra from source that avoids the
// node being contracted. Afterwards ws.dist holds upper bounds for every
// node it reached within maxWeight.
func batchWitnessSearch(ws *witnessState, outAdj [][]adjEntry, source, excluded int32, maxWeight int64, contracted []bool) {
	ws.reset()

	ws.dist[source] = 0
	ws.touched = append(ws.touched, source)
	ws.heap.push(witnessItem{node: source})

	settled := 0
	for len(ws.heap) > 0 {
		cur := ws.heap.pop()
		if cur.dist > ws.dist[cur.node] {
			continue
		}

		settled++
		if settled >= maxSettled {
			break
		}
		if cur.hops >= maxHops {
			continue
		}

		for _, e := range outAdj[cur.node] {
			if e.to == excluded || contracted[e.to] {
				continue
			}
			nd := cur.dist + int64(e.weight)
			if nd > maxWeight || nd >= ws.dist[e.to] {
				continue
			}
			if ws.dist[e.to] == unreached {
				ws.touched = append(ws.touched, e.to)
			}
			ws.dist[e.to] = nd
			ws.heap.push(witnessItem{node: e.to, dist: nd, hops: cur.hops + 1})
		}
	}
}
