package store

import (
	"io"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/pkg/errors"

	"offline_router/pkg/metrics"
)

// BlockSize is the size of one page cache slot.
const BlockSize = 4096

// pageCache serves reads from fixed-size blocks of r, keeping at most
// slots blocks resident. Evicted buffers are reused.
type pageCache struct {
	mu   sync.Mutex
	r    io.ReaderAt
	size int64
	lru  *simplelru.LRU[int64, []byte]
	free [][]byte
}

func newPageCache(r io.ReaderAt, size int64, slots int) (*pageCache, error) {
	if slots <= 0 {
		return nil, errors.Errorf("invalid page cache size %d", slots)
	}
	c := &pageCache{r: r, size: size}
	lru, err := simplelru.NewLRU[int64, []byte](slots, func(_ int64, buf []byte) {
		c.free = append(c.free, buf)
		metrics.CacheEvictions.Inc()
	})
	if err != nil {
		return nil, errors.Wrap(err, "page cache")
	}
	c.lru = lru
	return c, nil
}

// readAt fills p with the bytes at off. Reads past the end of the backing
// file fail with ErrFormat.
func (c *pageCache) readAt(p []byte, off int64) error {
	if off < 0 || off+int64(len(p)) > c.size {
		return errors.Wrapf(ErrFormat, "read [%d,%d) beyond end of file (%d bytes)", off, off+int64(len(p)), c.size)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for len(p) > 0 {
		block := off / BlockSize
		buf, err := c.block(block)
		if err != nil {
			return err
		}
		n := copy(p, buf[off-block*BlockSize:])
		p = p[n:]
		off += int64(n)
	}
	return nil
}

// block returns the resident buffer for block b, loading it on a miss.
func (c *pageCache) block(b int64) ([]byte, error) {
	if buf, ok := c.lru.Get(b); ok {
		metrics.CacheHits.Inc()
		return buf, nil
	}
	metrics.CacheMisses.Inc()

	start := b * BlockSize
	want := min(int64(BlockSize), c.size-start)

	var buf []byte
	if n := len(c.free); n > 0 {
		buf = c.free[n-1][:want]
		c.free = c.free[:n-1]
	} else {
		buf = make([]byte, want, BlockSize)
	}

	n, err := c.r.ReadAt(buf, start)
	if err != nil && !(errors.Is(err, io.EOF) && int64(n) == want) {
		c.free = append(c.free, buf)
		return nil, errors.Wrapf(err, "read block %d", b)
	}
	c.lru.Add(b, buf)
	return buf, nil
}

// resident returns the number of blocks currently cached.
func (c *pageCache) resident() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
