package store

import (
	"bufio"
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/pkg/errors"
)

// Verify streams the whole file and checks the CRC32 trailer.
func (s *Store) Verify() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.f == nil {
		return ErrClosed
	}

	h := crc32.NewIEEE()
	r := bufio.NewReaderSize(io.NewSectionReader(s.f, 0, s.l.crc), 1<<16)
	if _, err := io.Copy(h, r); err != nil {
		return errors.Wrap(err, "read graph file")
	}

	var b [crcSize]byte
	if _, err := s.f.ReadAt(b[:], s.l.crc); err != nil {
		return errors.Wrap(err, "read CRC32")
	}
	if want, got := binary.LittleEndian.Uint32(b[:]), h.Sum32(); want != got {
		return errors.Wrapf(ErrFormat, "CRC32 mismatch: stored %08x, computed %08x", want, got)
	}
	return nil
}
