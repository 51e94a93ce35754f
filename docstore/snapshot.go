package docstore

import (
	"encoding/gob"
	"fmt"
	"io"
)

// snapshot is the on-disk form of a committed store state.
type snapshot struct {
	Dim     int
	NextID  uint32
	Records []Record
}

// SaveSnapshot writes the current state to w. The snapshot is taken from the
// last committed state, so a concurrent insert either fully appears or not
// at all.
func (s *MemoryStore) SaveSnapshot(w io.Writer) error {
	st := s.state.Load()

	snap := snapshot{
		Dim:     st.dim,
		NextID:  st.nextID,
		Records: st.records,
	}
	if err := gob.NewEncoder(w).Encode(snap); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	return nil
}

// LoadSnapshot replaces the store's contents with a previously saved
// snapshot.
func (s *MemoryStore) LoadSnapshot(r io.Reader) error {
	var snap snapshot
	if err := gob.NewDecoder(r).Decode(&snap); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}

	for _, rec := range snap.Records {
		if len(rec.Vector) != snap.Dim {
			return &ErrDimensionMismatch{Expected: snap.Dim, Actual: len(rec.Vector)}
		}
	}

	next := &storeState{
		dim:     snap.Dim,
		nextID:  snap.NextID,
		records: snap.Records,
		vectors: make([]float32, 0, len(snap.Records)*snap.Dim),
	}
	for _, rec := range snap.Records {
		next.vectors = append(next.vectors, rec.Vector...)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.state.Store(next)

	return nil
}
