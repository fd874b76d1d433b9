package store

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"offline_router/pkg/metrics"
)

func testBytes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i * 31)
	}
	return b
}

func TestPageCacheRead(t *testing.T) {
	data := testBytes(3*BlockSize + 100)
	c, err := newPageCache(bytes.NewReader(data), int64(len(data)), 2)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		off  int64
		n    int
	}{
		{"first block", 0, 16},
		{"block boundary", BlockSize - 5, 10},
		{"spanning three blocks", BlockSize - 1, BlockSize + 2},
		{"short last block", 3 * BlockSize, 100},
		{"whole tail", 2*BlockSize + 10, BlockSize + 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := make([]byte, tt.n)
			if err := c.readAt(p, tt.off); err != nil {
				t.Fatalf("readAt: %v", err)
			}
			if !bytes.Equal(p, data[tt.off:tt.off+int64(tt.n)]) {
				t.Error("content mismatch")
			}
			if r := c.resident(); r > 2 {
				t.Errorf("resident blocks: got %d, want <= 2", r)
			}
		})
	}

	if err := c.readAt(make([]byte, 10), int64(len(data))-5); !errors.Is(err, ErrFormat) {
		t.Errorf("read past end: got %v, want ErrFormat", err)
	}
	if err := c.readAt(make([]byte, 1), -1); !errors.Is(err, ErrFormat) {
		t.Errorf("negative offset: got %v, want ErrFormat", err)
	}
}

func TestPageCacheMetrics(t *testing.T) {
	data := testBytes(4 * BlockSize)
	c, err := newPageCache(bytes.NewReader(data), int64(len(data)), 2)
	if err != nil {
		t.Fatal(err)
	}

	hits := testutil.ToFloat64(metrics.CacheHits)
	misses := testutil.ToFloat64(metrics.CacheMisses)
	evictions := testutil.ToFloat64(metrics.CacheEvictions)

	p := make([]byte, 8)
	for _, off := range []int64{0, 8, BlockSize, 16, 2 * BlockSize, 0} {
		if err := c.readAt(p, off); err != nil {
			t.Fatal(err)
		}
	}

	// Blocks: 0 miss, 0 hit, 1 miss, 0 hit, 2 miss evicting 1, 0 hit.
	if d := testutil.ToFloat64(metrics.CacheHits) - hits; d != 3 {
		t.Errorf("hits: got %v, want 3", d)
	}
	if d := testutil.ToFloat64(metrics.CacheMisses) - misses; d != 3 {
		t.Errorf("misses: got %v, want 3", d)
	}
	if d := testutil.ToFloat64(metrics.CacheEvictions) - evictions; d != 1 {
		t.Errorf("evictions: got %v, want 1", d)
	}
	if c.resident() != 2 {
		t.Errorf("resident: got %d, want 2", c.resident())
	}
	if len(c.free) != 1 {
		t.Errorf("free buffers: got %d, want 1", len(c.free))
	}
}

func TestPageCacheInvalidSize(t *testing.T) {
	if _, err := newPageCache(bytes.NewReader(nil), 0, 0); err == nil {
		t.Error("expected error for zero slots")
	}
}
