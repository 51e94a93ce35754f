package docstore

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/gamma-omg/querydoc/device"
	"github.com/gamma-omg/querydoc/vecmath"
)

// storeState is one committed snapshot. It is never mutated after being
// stored; writers build a new state and swap it in.
type storeState struct {
	dim     int
	nextID  uint32
	records []Record
	// vectors holds all record vectors flattened row-major so a query scores
	// the whole index in one batched pass.
	vectors []float32
}

// MemoryStore is an in-memory vector index. Writes are serialized by a mutex
// and commit a fresh snapshot; reads are lock-free against the last committed
// snapshot, so a concurrent insert can never expose a half-written record.
//
// The first insert fixes the vector dimension for the store's lifetime.
type MemoryStore struct {
	writeMu sync.Mutex
	state   atomic.Pointer[storeState]
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	s.state.Store(&storeState{})
	return s
}

// Insert adds a single record and returns its assigned ID.
func (s *MemoryStore) Insert(rec Record) (uint32, error) {
	ids, err := s.BatchInsert([]Record{rec})
	if err != nil {
		return 0, err
	}

	return ids[0], nil
}

// BatchInsert adds records in one commit. Validation runs before anything is
// written: if any record's dimension mismatches the store's, no record is
// inserted and the store is unchanged.
func (s *MemoryStore) BatchInsert(recs []Record) ([]uint32, error) {
	if len(recs) == 0 {
		return nil, nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	old := s.state.Load()

	dim := old.dim
	for _, rec := range recs {
		if len(rec.Vector) == 0 {
			return nil, ErrEmptyVector
		}
		if dim == 0 {
			dim = len(rec.Vector)
			continue
		}
		if len(rec.Vector) != dim {
			return nil, &ErrDimensionMismatch{Expected: dim, Actual: len(rec.Vector)}
		}
	}

	next := &storeState{
		dim:     dim,
		nextID:  old.nextID,
		records: make([]Record, len(old.records), len(old.records)+len(recs)),
		vectors: make([]float32, len(old.vectors), len(old.vectors)+len(recs)*dim),
	}
	copy(next.records, old.records)
	copy(next.vectors, old.vectors)

	ids := make([]uint32, len(recs))
	for i, rec := range recs {
		rec.ID = next.nextID
		next.nextID++
		ids[i] = rec.ID
		next.records = append(next.records, rec)
		next.vectors = append(next.vectors, rec.Vector...)
	}

	s.state.Store(next)
	return ids, nil
}

// All returns the current snapshot of records. The returned slice is shared
// with the snapshot and must be treated as read-only.
func (s *MemoryStore) All() []Record {
	return s.state.Load().records
}

// Size returns the number of records in the store.
func (s *MemoryStore) Size() int {
	return len(s.state.Load().records)
}

// Dimension returns the fixed vector dimension, or 0 before the first insert.
func (s *MemoryStore) Dimension() int {
	return s.state.Load().dim
}

// RemoveFile drops every record that originated from the given file and
// returns how many were removed.
func (s *MemoryStore) RemoveFile(file string) int {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	old := s.state.Load()

	next := &storeState{
		dim:     old.dim,
		nextID:  old.nextID,
		records: make([]Record, 0, len(old.records)),
		vectors: make([]float32, 0, len(old.vectors)),
	}
	removed := 0
	for _, rec := range old.records {
		if rec.File == file {
			removed++
			continue
		}
		next.records = append(next.records, rec)
		next.vectors = append(next.vectors, rec.Vector...)
	}

	if removed == 0 {
		return 0
	}

	s.state.Store(next)
	return removed
}

// GetIngested lists the distinct documents currently in the store.
func (s *MemoryStore) GetIngested(ctx context.Context) ([]IngestedDoc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var docs []IngestedDoc
	seen := make(map[IngestedDoc]struct{})
	for _, rec := range s.state.Load().records {
		doc := IngestedDoc{File: rec.File, Crc: rec.Crc}
		if _, ok := seen[doc]; ok {
			continue
		}

		seen[doc] = struct{}{}
		docs = append(docs, doc)
	}

	return docs, nil
}

// Search scores query against every record in one batched pass on the given
// device and returns the top k matches ordered by descending score, ties
// broken by ascending ID. A zero-magnitude query scores 0 against everything.
func (s *MemoryStore) Search(ctx context.Context, query []float32, k int, dev device.Device) ([]QueryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, ErrInvalidK
	}

	st := s.state.Load()
	if len(st.records) == 0 {
		return nil, nil
	}
	if len(query) != st.dim {
		return nil, &ErrDimensionMismatch{Expected: st.dim, Actual: len(query)}
	}

	scores := make([]float32, len(st.records))
	vecmath.CosineBatch(query, st.vectors, st.dim, scores, dev.Accelerated())

	top := selectTop(st.records, scores, k)

	res := make([]QueryResult, len(top))
	for i, idx := range top {
		rec := st.records[idx]
		res[i] = QueryResult{
			ID:    rec.ID,
			File:  rec.File,
			Page:  rec.Page,
			Text:  rec.Text,
			Score: scores[idx],
			Rank:  i,
		}
	}

	return res, nil
}
