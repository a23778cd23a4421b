package molprint

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/RoaringBitmap/roaring"
	"github.com/cockroachdb/errors"
)

// FingerprintIndex is a flat, exhaustive similarity index over bit fingerprints.
//
// HOW IT WORKS:
// Every stored fingerprint is compared to the query with the configured similarity
// coefficient; results are ranked by decreasing similarity. Bit vectors are roaring
// bitmaps, so each comparison costs one intersection cardinality.
//
// DELETES:
// Remove only marks an id in a roaring bitmap. Marked rows are skipped by searches
// and physically dropped by Flush, which WriteTo calls before serializing.
//
// Thread-safety: safe for concurrent use. Searches share a read lock; Add, Remove and
// Flush are exclusive.
type FingerprintIndex struct {
	width int
	kind  SimilarityKind
	sim   Similarity

	ids  []uint32
	rows []*BitVect
	pos  map[uint32]int

	// deleted tracks soft-deleted ids.
	deleted *roaring.Bitmap

	mu sync.RWMutex
}

// NewFingerprintIndex creates an empty index for fingerprints of the given width.
//
// Example:
//
//	idx, err := NewFingerprintIndex(2048, Tanimoto)
//	if err != nil { log.Fatal(err) }
func NewFingerprintIndex(width int, kind SimilarityKind) (*FingerprintIndex, error) {
	if width <= 0 {
		return nil, invalidConfig("index width must be positive, got %d", width)
	}
	sim, err := NewSimilarity(kind)
	if err != nil {
		return nil, err
	}
	return &FingerprintIndex{
		width:   width,
		kind:    kind,
		sim:     sim,
		pos:     make(map[uint32]int),
		deleted: roaring.New(),
	}, nil
}

// Add stores fp under id. The id must not be present, even soft-deleted.
func (idx *FingerprintIndex) Add(id uint32, fp *BitVect) error {
	if fp == nil {
		return errors.Wrapf(ErrInvalidMolecule, "nil fingerprint for id %d", id)
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if fp.Len() != idx.width {
		return errors.Wrapf(ErrDimensionMismatch, "expected width %d, got %d", idx.width, fp.Len())
	}
	if _, ok := idx.pos[id]; ok {
		return errors.Newf("id %d already present", id)
	}
	idx.pos[id] = len(idx.rows)
	idx.ids = append(idx.ids, id)
	idx.rows = append(idx.rows, fp)
	return nil
}

// Remove soft-deletes id.
func (idx *FingerprintIndex) Remove(id uint32) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.pos[id]; !ok {
		return errors.Newf("id %d not found", id)
	}
	if !idx.deleted.CheckedAdd(id) {
		return errors.Newf("id %d already deleted", id)
	}
	return nil
}

// Flush drops soft-deleted rows and clears the deleted set.
func (idx *FingerprintIndex) Flush() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.flushLocked()
	return nil
}

func (idx *FingerprintIndex) flushLocked() {
	if idx.deleted.IsEmpty() {
		return
	}
	n := len(idx.rows) - int(idx.deleted.GetCardinality())
	ids := make([]uint32, 0, n)
	rows := make([]*BitVect, 0, n)
	pos := make(map[uint32]int, n)
	for i, id := range idx.ids {
		if idx.deleted.Contains(id) {
			continue
		}
		pos[id] = len(rows)
		ids = append(ids, id)
		rows = append(rows, idx.rows[i])
	}
	idx.ids, idx.rows, idx.pos = ids, rows, pos
	idx.deleted.Clear()
}

// Len returns the number of live fingerprints.
func (idx *FingerprintIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.rows) - int(idx.deleted.GetCardinality())
}

// Width returns the fingerprint width.
func (idx *FingerprintIndex) Width() int { return idx.width }

// SimilarityKind returns the coefficient used for ranking.
func (idx *FingerprintIndex) SimilarityKind() SimilarityKind { return idx.kind }

// Get returns the fingerprint stored under id, if live.
func (idx *FingerprintIndex) Get(id uint32) (*BitVect, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	p, ok := idx.pos[id]
	if !ok || idx.deleted.Contains(id) {
		return nil, false
	}
	return idx.rows[p], true
}

// NewSearch creates a search builder with k = 10 and no threshold.
func (idx *FingerprintIndex) NewSearch() *FingerprintSearch {
	return &FingerprintSearch{index: idx, k: 10}
}

const (
	indexMagic   = "MPFI"
	indexVersion = uint32(1)
)

// WriteTo serializes the index. Soft-deleted rows are flushed first.
//
// The format is, little endian:
//  1. Magic "MPFI" and version (4 bytes each)
//  2. Width (4 bytes)
//  3. Similarity kind length (4 bytes) + kind string
//  4. Row count (4 bytes)
//  5. For each row: id (4 bytes), bitmap size (4 bytes), roaring bitmap bytes
func (idx *FingerprintIndex) WriteTo(w io.Writer) (int64, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.flushLocked()

	var written int64
	write := func(b []byte) error {
		n, err := w.Write(b)
		written += int64(n)
		return err
	}
	u32 := func(v uint32) error {
		return write(binary.LittleEndian.AppendUint32(nil, v))
	}

	if err := write([]byte(indexMagic)); err != nil {
		return written, errors.Wrap(err, "write magic")
	}
	if err := u32(indexVersion); err != nil {
		return written, errors.Wrap(err, "write version")
	}
	if err := u32(uint32(idx.width)); err != nil {
		return written, errors.Wrap(err, "write width")
	}
	if err := u32(uint32(len(idx.kind))); err != nil {
		return written, errors.Wrap(err, "write similarity kind")
	}
	if err := write([]byte(idx.kind)); err != nil {
		return written, errors.Wrap(err, "write similarity kind")
	}
	if err := u32(uint32(len(idx.rows))); err != nil {
		return written, errors.Wrap(err, "write row count")
	}
	for i, row := range idx.rows {
		data, err := row.bits.ToBytes()
		if err != nil {
			return written, errors.Wrapf(err, "serialize row %d", i)
		}
		if err := u32(idx.ids[i]); err != nil {
			return written, errors.Wrapf(err, "write row %d id", i)
		}
		if err := u32(uint32(len(data))); err != nil {
			return written, errors.Wrapf(err, "write row %d size", i)
		}
		if err := write(data); err != nil {
			return written, errors.Wrapf(err, "write row %d", i)
		}
	}
	return written, nil
}

// ReadFrom replaces the index content with serialized data. Width and similarity
// kind must match the receiver.
func (idx *FingerprintIndex) ReadFrom(r io.Reader) (int64, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	var read int64
	readFull := func(b []byte) error {
		n, err := io.ReadFull(r, b)
		read += int64(n)
		return err
	}
	u32 := func() (uint32, error) {
		var buf [4]byte
		if err := readFull(buf[:]); err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint32(buf[:]), nil
	}

	magic := make([]byte, len(indexMagic))
	if err := readFull(magic); err != nil {
		return read, errors.Wrap(err, "read magic")
	}
	if string(magic) != indexMagic {
		return read, errors.Newf("invalid magic number: expected %q, got %q", indexMagic, magic)
	}
	version, err := u32()
	if err != nil {
		return read, errors.Wrap(err, "read version")
	}
	if version != indexVersion {
		return read, errors.Newf("unsupported version: %d", version)
	}
	width, err := u32()
	if err != nil {
		return read, errors.Wrap(err, "read width")
	}
	if int(width) != idx.width {
		return read, errors.Wrapf(ErrDimensionMismatch, "index has width %d, data has %d", idx.width, width)
	}
	kindLen, err := u32()
	if err != nil {
		return read, errors.Wrap(err, "read similarity kind")
	}
	kind := make([]byte, kindLen)
	if err := readFull(kind); err != nil {
		return read, errors.Wrap(err, "read similarity kind")
	}
	if SimilarityKind(kind) != idx.kind {
		return read, errors.Newf("similarity kind mismatch: index uses %q, data uses %q", idx.kind, kind)
	}
	count, err := u32()
	if err != nil {
		return read, errors.Wrap(err, "read row count")
	}

	ids := make([]uint32, 0, count)
	rows := make([]*BitVect, 0, count)
	pos := make(map[uint32]int, count)
	for i := uint32(0); i < count; i++ {
		id, err := u32()
		if err != nil {
			return read, errors.Wrapf(err, "read row %d id", i)
		}
		size, err := u32()
		if err != nil {
			return read, errors.Wrapf(err, "read row %d size", i)
		}
		data := make([]byte, size)
		if err := readFull(data); err != nil {
			return read, errors.Wrapf(err, "read row %d", i)
		}
		bm := roaring.New()
		if err := bm.UnmarshalBinary(data); err != nil {
			return read, errors.Wrapf(err, "decode row %d", i)
		}
		pos[id] = len(rows)
		ids = append(ids, id)
		rows = append(rows, &BitVect{n: idx.width, bits: bm})
	}

	idx.ids, idx.rows, idx.pos = ids, rows, pos
	idx.deleted = roaring.New()
	return read, nil
}
