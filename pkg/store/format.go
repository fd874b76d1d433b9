package store

import (
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/pkg/errors"
)

const (
	magicBytes = "OFFLNCH\x00"
	version    = uint32(1)
	headerSize = 48

	maxNodes = 100_000_000
	maxEdges = 500_000_000
)

var (
	// ErrFormat reports a malformed, truncated or inconsistent graph file.
	ErrFormat = errors.New("malformed graph file")
	// ErrCacheNotOpen is returned by cached reads before OpenCache.
	ErrCacheNotOpen = errors.New("page cache not open")
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store closed")
)

// header is the fixed-size file header. All sections that follow are sized
// from these counts.
type header struct {
	Magic          [8]byte
	Version        uint32
	NumNodes       uint32
	NumCoreNodes   uint32
	NumEdges       uint32
	NumCoreEdges   uint32
	NumUpEdges     uint32
	NumDownEdges   uint32
	NumShapePoints uint32
	NumCells       uint32
	CellSizeE7     int32
}

func (h *header) marshal() []byte {
	b := make([]byte, headerSize)
	copy(b, h.Magic[:])
	le := binary.LittleEndian
	le.PutUint32(b[8:], h.Version)
	le.PutUint32(b[12:], h.NumNodes)
	le.PutUint32(b[16:], h.NumCoreNodes)
	le.PutUint32(b[20:], h.NumEdges)
	le.PutUint32(b[24:], h.NumCoreEdges)
	le.PutUint32(b[28:], h.NumUpEdges)
	le.PutUint32(b[32:], h.NumDownEdges)
	le.PutUint32(b[36:], h.NumShapePoints)
	le.PutUint32(b[40:], h.NumCells)
	le.PutUint32(b[44:], uint32(h.CellSizeE7))
	return b
}

func parseHeader(b []byte) (*header, error) {
	if len(b) < headerSize {
		return nil, errors.Wrap(ErrFormat, "short header")
	}
	h := &header{}
	copy(h.Magic[:], b)
	if string(h.Magic[:]) != magicBytes {
		return nil, errors.Wrapf(ErrFormat, "invalid magic bytes %q", h.Magic)
	}
	le := binary.LittleEndian
	h.Version = le.Uint32(b[8:])
	if h.Version != version {
		return nil, errors.Wrapf(ErrFormat, "unsupported version %d", h.Version)
	}
	h.NumNodes = le.Uint32(b[12:])
	h.NumCoreNodes = le.Uint32(b[16:])
	h.NumEdges = le.Uint32(b[20:])
	h.NumCoreEdges = le.Uint32(b[24:])
	h.NumUpEdges = le.Uint32(b[28:])
	h.NumDownEdges = le.Uint32(b[32:])
	h.NumShapePoints = le.Uint32(b[36:])
	h.NumCells = le.Uint32(b[40:])
	h.CellSizeE7 = int32(le.Uint32(b[44:]))

	switch {
	case h.NumNodes > maxNodes:
		return nil, errors.Wrapf(ErrFormat, "NumNodes %d exceeds limit %d", h.NumNodes, maxNodes)
	case h.NumEdges > maxEdges:
		return nil, errors.Wrapf(ErrFormat, "NumEdges %d exceeds limit %d", h.NumEdges, maxEdges)
	case h.NumCoreNodes > h.NumNodes:
		return nil, errors.Wrapf(ErrFormat, "NumCoreNodes %d > NumNodes %d", h.NumCoreNodes, h.NumNodes)
	case uint64(h.NumCoreEdges)+uint64(h.NumUpEdges)+uint64(h.NumDownEdges) != uint64(h.NumEdges):
		return nil, errors.Wrapf(ErrFormat, "edge counts %d+%d+%d != %d",
			h.NumCoreEdges, h.NumUpEdges, h.NumDownEdges, h.NumEdges)
	case h.NumCells > h.NumNodes:
		return nil, errors.Wrapf(ErrFormat, "NumCells %d > NumNodes %d", h.NumCells, h.NumNodes)
	case h.CellSizeE7 <= 0:
		return nil, errors.Wrapf(ErrFormat, "invalid cell size %d", h.CellSizeE7)
	}
	return h, nil
}

// Fixed record sizes in bytes.
const (
	coordSize    = 8  // latE7, lonE7
	edgeSize     = 12 // source, target, weight
	shortcutSize = 8  // first, second
	cellSize     = 16 // cellLat, cellLon, first, count
	offsetSize   = 4
	idSize       = 4
	crcSize      = 4
)

// layout holds the absolute offset of every section.
type layout struct {
	coords     int64
	coreFirst  int64
	edges      int64
	shortcuts  int64
	upFirst    int64
	up         int64
	downFirst  int64
	down       int64
	shapeFirst int64
	shape      int64
	cells      int64
	cellNodes  int64
	crc        int64
	size       int64
}

func newLayout(h *header) layout {
	n := int64(h.NumNodes)
	e := int64(h.NumEdges)
	var l layout
	off := int64(headerSize)
	next := func(size int64) int64 {
		at := off
		off += size
		return at
	}
	l.coords = next(n * coordSize)
	l.coreFirst = next((int64(h.NumCoreNodes) + 1) * offsetSize)
	l.edges = next(e * edgeSize)
	l.shortcuts = next(e * shortcutSize)
	l.upFirst = next((n + 1) * offsetSize)
	l.up = next(int64(h.NumUpEdges) * idSize)
	l.downFirst = next((n + 1) * offsetSize)
	l.down = next(int64(h.NumDownEdges) * idSize)
	l.shapeFirst = next((e + 1) * offsetSize)
	l.shape = next(int64(h.NumShapePoints) * coordSize)
	l.cells = next(int64(h.NumCells) * cellSize)
	l.cellNodes = next(n * idSize)
	l.crc = next(crcSize)
	l.size = off
	return l
}

// crc32Writer hashes everything written through it.
type crc32Writer struct {
	w    io.Writer
	hash hashWriter
}

type hashWriter interface {
	io.Writer
	Sum32() uint32
}

func newCRC32Writer(w io.Writer) *crc32Writer {
	return &crc32Writer{w: w, hash: crc32.NewIEEE()}
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}
