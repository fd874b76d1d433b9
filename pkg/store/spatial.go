package store

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	"github.com/tidwall/rtree"

	"offline_router/pkg/geo"
)

// spatialIndex is the in-memory directory of the grid: one R-tree entry per
// non-empty cell. Node lists of the cells stay on disk.
type spatialIndex struct {
	tree  rtree.RTreeG[int32]
	cells []gridCell
	size  int32
}

// loadSpatial reads the cell directory of the file behind r.
func loadSpatial(r io.ReaderAt, h *header, l layout) (*spatialIndex, error) {
	raw := make([]byte, int64(h.NumCells)*cellSize)
	if _, err := r.ReadAt(raw, l.cells); err != nil {
		return nil, errors.Wrap(err, "read cell directory")
	}

	ix := &spatialIndex{
		cells: make([]gridCell, h.NumCells),
		size:  h.CellSizeE7,
	}
	le := binary.LittleEndian
	var total uint64
	for i := range ix.cells {
		b := raw[i*cellSize:]
		c := gridCell{
			lat:   int32(le.Uint32(b)),
			lon:   int32(le.Uint32(b[4:])),
			first: le.Uint32(b[8:]),
			count: le.Uint32(b[12:]),
		}
		if uint64(c.first) != total || c.count == 0 {
			return nil, errors.Wrapf(ErrFormat, "cell %d covers [%d,+%d), expected start %d", i, c.first, c.count, total)
		}
		total += uint64(c.count)
		ix.cells[i] = c
		lo, hi := ix.bounds(c)
		ix.tree.Insert(lo, hi, int32(i))
	}
	if total != uint64(h.NumNodes) {
		return nil, errors.Wrapf(ErrFormat, "cells hold %d nodes, want %d", total, h.NumNodes)
	}
	return ix, nil
}

// bounds returns the box of c in E7 units.
func (ix *spatialIndex) bounds(c gridCell) (lo, hi [2]float64) {
	s := float64(ix.size)
	lo = [2]float64{float64(c.lat) * s, float64(c.lon) * s}
	hi = [2]float64{float64(c.lat+1) * s, float64(c.lon+1) * s}
	return lo, hi
}

// lonSpanE7 is the full longitude range in E7 units.
const lonSpanE7 = 360 * 1e7

// search calls fn once for every cell intersecting the box of radius meters
// around center. A box crossing ±180° longitude is split in two.
func (ix *spatialIndex) search(center geo.Position, radius float64, fn func(c gridCell) error) error {
	dLat, dLon := geo.MetersToDegrees(radius, center.Lat())
	lat, lon := float64(center.LatE7()), float64(center.LonE7())
	lo := [2]float64{lat - dLat*1e7, lon - dLon*1e7}
	hi := [2]float64{lat + dLat*1e7, lon + dLon*1e7}

	boxes := [][2][2]float64{{lo, hi}}
	switch {
	case dLon >= 180:
		boxes[0] = [2][2]float64{{lo[0], -lonSpanE7 / 2}, {hi[0], lonSpanE7 / 2}}
	case lo[1] < -lonSpanE7/2:
		boxes = append(boxes, [2][2]float64{{lo[0], lo[1] + lonSpanE7}, {hi[0], lonSpanE7 / 2}})
	case hi[1] > lonSpanE7/2:
		boxes = append(boxes, [2][2]float64{{lo[0], -lonSpanE7 / 2}, {hi[0], hi[1] - lonSpanE7}})
	}

	var hits []int32
	seen := make(map[int32]bool)
	for _, b := range boxes {
		ix.tree.Search(b[0], b[1], func(_, _ [2]float64, idx int32) bool {
			if !seen[idx] {
				seen[idx] = true
				hits = append(hits, idx)
			}
			return true
		})
	}
	for _, idx := range hits {
		if err := fn(ix.cells[idx]); err != nil {
			return err
		}
	}
	return nil
}
