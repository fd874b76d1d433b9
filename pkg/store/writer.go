package store

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"

	"offline_router/pkg/geo"
)

// EdgeRecord is one entry of the edge table. First and Second name the two
// edges a shortcut replaces; both are -1 for original edges.
type EdgeRecord struct {
	Source, Target int32
	Weight         int32
	First, Second  int32
}

// IsShortcut reports whether r replaces a pair of edges.
func (r EdgeRecord) IsShortcut() bool { return r.First >= 0 }

// Data is the content of a graph file before serialization.
//
// Nodes [0, NumCore) are core nodes. Edges between two core nodes come first,
// ordered by source. Every other edge is stored with the lower-ranked of its
// endpoints: in the upward list of its source when Rank[Source] <
// Rank[Target], otherwise in the downward list of its target.
type Data struct {
	Coords  []geo.Position
	Rank    []int32
	NumCore int
	Edges   []EdgeRecord

	// ShapeFirst[i]..ShapeFirst[i+1] indexes into Shape for edge i.
	// Both may be nil when no edge has shape points.
	ShapeFirst []uint32
	Shape      []geo.Position

	CellSizeE7 int32
}

// Write serializes d to path. The file is written to a temporary name and
// renamed into place once complete.
func Write(path string, d *Data) error {
	if err := d.validate(); err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath)
	}()

	bw := bufio.NewWriterSize(f, 1<<16)
	cw := newCRC32Writer(bw)
	if err := d.encode(cw); err != nil {
		return err
	}

	var crc [crcSize]byte
	binary.LittleEndian.PutUint32(crc[:], cw.hash.Sum32())
	if _, err := bw.Write(crc[:]); err != nil {
		return errors.Wrap(err, "write CRC32")
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, "flush")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errors.Wrap(err, "rename")
	}
	return nil
}

func (d *Data) numCoreEdges() int {
	n := 0
	for n < len(d.Edges) && d.isCore(d.Edges[n].Source) && d.isCore(d.Edges[n].Target) {
		n++
	}
	return n
}

func (d *Data) isCore(node int32) bool { return int(node) < d.NumCore }

// upward reports whether non-core edge e is stored with its source.
func (d *Data) upward(e EdgeRecord) bool {
	return d.Rank[e.Source] < d.Rank[e.Target]
}

func (d *Data) validate() error {
	n := len(d.Coords)
	if n > maxNodes || len(d.Edges) > maxEdges {
		return errors.Errorf("graph too large: %d nodes, %d edges", n, len(d.Edges))
	}
	if d.NumCore < 0 || d.NumCore > n {
		return errors.Errorf("NumCore %d out of range [0,%d]", d.NumCore, n)
	}
	if d.CellSizeE7 <= 0 {
		return errors.Errorf("invalid cell size %d", d.CellSizeE7)
	}

	coreEdges := d.numCoreEdges()
	if coreEdges < len(d.Edges) && len(d.Rank) != n {
		return errors.Errorf("Rank has %d entries, want %d", len(d.Rank), n)
	}
	for i, e := range d.Edges {
		if e.Source < 0 || int(e.Source) >= n || e.Target < 0 || int(e.Target) >= n {
			return errors.Errorf("edge %d (%d->%d) references unknown node", i, e.Source, e.Target)
		}
		if e.Weight < 0 {
			return errors.Errorf("edge %d has negative weight %d", i, e.Weight)
		}
		if i < coreEdges {
			if i > 0 && d.Edges[i-1].Source > e.Source {
				return errors.Errorf("core edge %d out of source order", i)
			}
		} else if d.isCore(e.Source) && d.isCore(e.Target) {
			return errors.Errorf("core edge %d stored after non-core edges", i)
		}
		if err := d.validateShortcut(i, e); err != nil {
			return err
		}
	}

	if d.ShapeFirst != nil {
		if len(d.ShapeFirst) != len(d.Edges)+1 {
			return errors.Errorf("ShapeFirst has %d entries, want %d", len(d.ShapeFirst), len(d.Edges)+1)
		}
		for i := 1; i < len(d.ShapeFirst); i++ {
			if d.ShapeFirst[i] < d.ShapeFirst[i-1] {
				return errors.Errorf("ShapeFirst not monotonic at %d", i)
			}
		}
		if int(d.ShapeFirst[len(d.Edges)]) != len(d.Shape) {
			return errors.Errorf("ShapeFirst ends at %d, have %d shape points", d.ShapeFirst[len(d.Edges)], len(d.Shape))
		}
	} else if len(d.Shape) > 0 {
		return errors.New("shape points without ShapeFirst")
	}
	return nil
}

// validateShortcut checks that shortcut i is the concatenation of its two
// constituents.
func (d *Data) validateShortcut(i int, e EdgeRecord) error {
	if e.First < 0 && e.Second < 0 {
		return nil
	}
	if e.First < 0 || e.Second < 0 || int(e.First) >= len(d.Edges) || int(e.Second) >= len(d.Edges) {
		return errors.Errorf("shortcut %d has invalid constituents (%d,%d)", i, e.First, e.Second)
	}
	if int(e.First) == i || int(e.Second) == i {
		return errors.Errorf("shortcut %d refers to itself", i)
	}
	a, b := d.Edges[e.First], d.Edges[e.Second]
	if a.Source != e.Source || a.Target != b.Source || b.Target != e.Target {
		return errors.Errorf("shortcut %d (%d->%d) is not connected through %d and %d", i, e.Source, e.Target, e.First, e.Second)
	}
	if int64(a.Weight)+int64(b.Weight) != int64(e.Weight) {
		return errors.Errorf("shortcut %d weight %d != %d + %d", i, e.Weight, a.Weight, b.Weight)
	}
	return nil
}

// encoder writes little-endian values, keeping the first error.
type encoder struct {
	w   io.Writer
	buf [8]byte
	err error
}

func (e *encoder) u32(v uint32) {
	if e.err != nil {
		return
	}
	binary.LittleEndian.PutUint32(e.buf[:4], v)
	_, e.err = e.w.Write(e.buf[:4])
}

func (e *encoder) i32(v int32) { e.u32(uint32(v)) }

func (e *encoder) pos(p geo.Position) {
	e.i32(p.LatE7())
	e.i32(p.LonE7())
}

func (d *Data) encode(w io.Writer) error {
	n := len(d.Coords)
	coreEdges := d.numCoreEdges()

	// Upward and downward adjacency, as CSR over all nodes.
	upFirst := make([]uint32, n+1)
	downFirst := make([]uint32, n+1)
	for _, e := range d.Edges[coreEdges:] {
		if d.upward(e) {
			upFirst[e.Source+1]++
		} else {
			downFirst[e.Target+1]++
		}
	}
	for i := 1; i <= n; i++ {
		upFirst[i] += upFirst[i-1]
		downFirst[i] += downFirst[i-1]
	}
	up := make([]int32, upFirst[n])
	down := make([]int32, downFirst[n])
	upPos := append([]uint32(nil), upFirst[:n]...)
	downPos := append([]uint32(nil), downFirst[:n]...)
	for i := coreEdges; i < len(d.Edges); i++ {
		e := d.Edges[i]
		if d.upward(e) {
			up[upPos[e.Source]] = int32(i)
			upPos[e.Source]++
		} else {
			down[downPos[e.Target]] = int32(i)
			downPos[e.Target]++
		}
	}

	cells, cellNodes := buildGrid(d.Coords, d.CellSizeE7)

	h := header{
		Version:        version,
		NumNodes:       uint32(n),
		NumCoreNodes:   uint32(d.NumCore),
		NumEdges:       uint32(len(d.Edges)),
		NumCoreEdges:   uint32(coreEdges),
		NumUpEdges:     uint32(len(up)),
		NumDownEdges:   uint32(len(down)),
		NumShapePoints: uint32(len(d.Shape)),
		NumCells:       uint32(len(cells)),
		CellSizeE7:     d.CellSizeE7,
	}
	copy(h.Magic[:], magicBytes)
	if _, err := w.Write(h.marshal()); err != nil {
		return errors.Wrap(err, "write header")
	}

	enc := &encoder{w: w}

	for _, p := range d.Coords {
		enc.pos(p)
	}

	// Core CSR over the sorted core edge prefix.
	coreFirst := make([]uint32, d.NumCore+1)
	for _, e := range d.Edges[:coreEdges] {
		coreFirst[e.Source+1]++
	}
	for i := 1; i <= d.NumCore; i++ {
		coreFirst[i] += coreFirst[i-1]
	}
	for _, v := range coreFirst {
		enc.u32(v)
	}

	for _, e := range d.Edges {
		enc.i32(e.Source)
		enc.i32(e.Target)
		enc.i32(e.Weight)
	}
	for _, e := range d.Edges {
		first, second := e.First, e.Second
		if first < 0 || second < 0 {
			first, second = -1, -1
		}
		enc.i32(first)
		enc.i32(second)
	}

	for _, v := range upFirst {
		enc.u32(v)
	}
	for _, id := range up {
		enc.i32(id)
	}
	for _, v := range downFirst {
		enc.u32(v)
	}
	for _, id := range down {
		enc.i32(id)
	}

	for i := 0; i <= len(d.Edges); i++ {
		if d.ShapeFirst == nil {
			enc.u32(0)
		} else {
			enc.u32(d.ShapeFirst[i])
		}
	}
	for _, p := range d.Shape {
		enc.pos(p)
	}

	for _, c := range cells {
		enc.i32(c.lat)
		enc.i32(c.lon)
		enc.u32(c.first)
		enc.u32(c.count)
	}
	for _, id := range cellNodes {
		enc.i32(id)
	}

	return errors.Wrap(enc.err, "write sections")
}

// gridCell is one non-empty cell of the spatial grid.
type gridCell struct {
	lat, lon     int32
	first, count uint32
}

// cellOf returns the grid cell containing p.
func cellOf(p geo.Position, size int32) (lat, lon int32) {
	return floorDiv(p.LatE7(), size), floorDiv(p.LonE7(), size)
}

func floorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// buildGrid buckets nodes into cells of size E7 units, ordered by cell and
// then by node id.
func buildGrid(coords []geo.Position, size int32) ([]gridCell, []int32) {
	type entry struct {
		lat, lon int32
		node     int32
	}
	entries := make([]entry, len(coords))
	for i, p := range coords {
		lat, lon := cellOf(p, size)
		entries[i] = entry{lat, lon, int32(i)}
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.lat != b.lat {
			return a.lat < b.lat
		}
		if a.lon != b.lon {
			return a.lon < b.lon
		}
		return a.node < b.node
	})

	var cells []gridCell
	nodes := make([]int32, len(entries))
	for i, e := range entries {
		nodes[i] = e.node
		if len(cells) > 0 {
			last := &cells[len(cells)-1]
			if last.lat == e.lat && last.lon == e.lon {
				last.count++
				continue
			}
		}
		cells = append(cells, gridCell{lat: e.lat, lon: e.lon, first: uint32(i), count: 1})
	}
	return cells, nodes
}
