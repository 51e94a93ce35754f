package docstore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Insert_FixesDimension(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Insert(Record{File: "a.pdf", Vector: []float32{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, 3, s.Dimension())

	_, err = s.Insert(Record{File: "a.pdf", Vector: []float32{1, 2, 3, 4}})

	var dm *ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 3, dm.Expected)
	assert.Equal(t, 4, dm.Actual)
	assert.Equal(t, 1, s.Size())
}

func Test_Insert_AssignsSequentialIDs(t *testing.T) {
	s := NewMemoryStore()

	id0, err := s.Insert(Record{Vector: []float32{1, 0}})
	require.NoError(t, err)
	id1, err := s.Insert(Record{Vector: []float32{0, 1}})
	require.NoError(t, err)

	assert.Equal(t, uint32(0), id0)
	assert.Equal(t, uint32(1), id1)
}

func Test_Insert_RejectsEmptyVector(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Insert(Record{File: "a.pdf"})
	assert.ErrorIs(t, err, ErrEmptyVector)
	assert.Equal(t, 0, s.Size())
}

func Test_BatchInsert_AllOrNothing(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Insert(Record{Vector: []float32{1, 1}})
	require.NoError(t, err)

	_, err = s.BatchInsert([]Record{
		{Vector: []float32{1, 2}},
		{Vector: []float32{1, 2, 3}},
	})

	var dm *ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 1, s.Size())
}

func Test_RemoveFile(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.BatchInsert([]Record{
		{File: "a.pdf", Vector: []float32{1, 0}},
		{File: "b.pdf", Vector: []float32{0, 1}},
		{File: "a.pdf", Vector: []float32{1, 1}},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, s.RemoveFile("a.pdf"))
	assert.Equal(t, 1, s.Size())
	assert.Equal(t, "b.pdf", s.All()[0].File)
	assert.Equal(t, 0, s.RemoveFile("missing.pdf"))
}

func Test_GetIngested_Dedupes(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.BatchInsert([]Record{
		{File: "a.pdf", Crc: 1, Vector: []float32{1, 0}},
		{File: "a.pdf", Crc: 1, Vector: []float32{0, 1}},
		{File: "b.pdf", Crc: 2, Vector: []float32{1, 1}},
	})
	require.NoError(t, err)

	docs, err := s.GetIngested(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []IngestedDoc{
		{File: "a.pdf", Crc: 1},
		{File: "b.pdf", Crc: 2},
	}, docs)
}

// Concurrent inserts must never expose a record with an ID but no vector to
// a concurrent reader.
func Test_ConcurrentInsertAndAll_NoTornReads(t *testing.T) {
	s := NewMemoryStore()

	const writers = 4
	const perWriter = 50

	stop := make(chan struct{})
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			select {
			case <-stop:
				return
			default:
			}
			for _, rec := range s.All() {
				assert.Len(t, rec.Vector, 4, "record %d has a torn vector", rec.ID)
			}
		}
	}()

	var writersWg sync.WaitGroup
	for w := 0; w < writers; w++ {
		writersWg.Add(1)
		go func() {
			defer writersWg.Done()
			for i := 0; i < perWriter; i++ {
				_, err := s.Insert(Record{File: "doc.pdf", Vector: []float32{1, 2, 3, 4}})
				assert.NoError(t, err)
			}
		}()
	}

	writersWg.Wait()
	close(stop)
	<-readerDone

	assert.Equal(t, writers*perWriter, s.Size())
}
