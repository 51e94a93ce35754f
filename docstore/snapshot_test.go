package docstore

import (
	"bytes"
	"context"
	"testing"

	"github.com/gamma-omg/querydoc/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Snapshot_Roundtrip(t *testing.T) {
	s := fillStore(t,
		[]float32{1, 0},
		[]float32{0, 1},
		[]float32{1, 1},
	)

	var buf bytes.Buffer
	require.NoError(t, s.SaveSnapshot(&buf))

	restored := NewMemoryStore()
	require.NoError(t, restored.LoadSnapshot(&buf))

	assert.Equal(t, s.Size(), restored.Size())
	assert.Equal(t, s.Dimension(), restored.Dimension())
	assert.Equal(t, s.All(), restored.All())

	// Restored store keeps serving searches and assigning fresh IDs.
	res, err := restored.Search(context.Background(), []float32{1, 0}, 1, device.Select())
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, uint32(0), res[0].ID)

	id, err := restored.Insert(Record{File: "new.pdf", Vector: []float32{2, 2}})
	require.NoError(t, err)
	assert.Equal(t, uint32(3), id)
}

func Test_Snapshot_EmptyStore(t *testing.T) {
	s := NewMemoryStore()

	var buf bytes.Buffer
	require.NoError(t, s.SaveSnapshot(&buf))

	restored := NewMemoryStore()
	require.NoError(t, restored.LoadSnapshot(&buf))
	assert.Equal(t, 0, restored.Size())
}

func Test_Snapshot_CorruptData(t *testing.T) {
	s := NewMemoryStore()
	err := s.LoadSnapshot(bytes.NewReader([]byte("not a snapshot")))
	assert.Error(t, err)
}
