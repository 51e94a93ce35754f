package main

import (
	"context"
	"errors"
	"hash/crc32"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gamma-omg/querydoc/docstore"
	"github.com/gamma-omg/querydoc/ingest"
	"github.com/gamma-omg/querydoc/readers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockTextReader struct{}

func (r *mockTextReader) CanRead(path string) bool { return true }

func (r *mockTextReader) ReadPages(path string) ([]readers.Page, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return []readers.Page{{Index: 0, Text: string(bytes)}}, nil
}

type fakeDocStore struct {
	mu       sync.Mutex
	ingested map[string]uint32

	insertCalls []string
	removeCalls []string
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{ingested: make(map[string]uint32)}
}

func (s *fakeDocStore) BatchInsert(recs []docstore.Record) ([]uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range recs {
		s.ingested[rec.File] = rec.Crc
	}
	if len(recs) > 0 {
		s.insertCalls = append(s.insertCalls, recs[0].File)
	}

	return make([]uint32, len(recs)), nil
}

func (s *fakeDocStore) RemoveFile(file string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeCalls = append(s.removeCalls, file)
	if _, ok := s.ingested[file]; !ok {
		return 0
	}

	delete(s.ingested, file)
	return 1
}

func (s *fakeDocStore) GetIngested(ctx context.Context) ([]docstore.IngestedDoc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var docs []docstore.IngestedDoc
	for file, crc := range s.ingested {
		docs = append(docs, docstore.IngestedDoc{File: file, Crc: crc})
	}

	return docs, nil
}

func (s *fakeDocStore) getInsertCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.insertCalls...)
}

func (s *fakeDocStore) getRemoveCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.removeCalls...)
}

type fakeIngester struct {
	mu      sync.Mutex
	calls   []string
	failAll bool
}

func (f *fakeIngester) Ingest(ctx context.Context, doc ingest.Document) ([]docstore.Record, *ingest.Report, error) {
	f.mu.Lock()
	f.calls = append(f.calls, doc.File)
	f.mu.Unlock()

	if f.failAll {
		pages := make([]int, len(doc.Pages))
		for i := range pages {
			pages[i] = i
		}
		return nil, nil, &ingest.ErrIngestionFailed{File: doc.File, Pages: pages}
	}

	var recs []docstore.Record
	for _, p := range doc.Pages {
		recs = append(recs, docstore.Record{
			File:   doc.File,
			Crc:    doc.Crc,
			Page:   p.Index,
			Text:   p.Text,
			Vector: []float32{1, 0},
		})
	}

	return recs, &ingest.Report{File: doc.File}, nil
}

func (f *fakeIngester) getCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func Test_Sync(t *testing.T) {
	tmp := t.TempDir()

	createFile := func(name string, content string) DiskDoc {
		buff := []byte(content)
		path := filepath.Join(tmp, name)
		require.NoError(t, os.WriteFile(path, buff, 0o644))
		return DiskDoc{
			File: path,
			Crc:  crc32.Checksum(buff, crc32.IEEETable),
		}
	}

	createFile("f1.txt", "f1")
	createFile("f3.pdf", "f3")
	f2 := createFile("f2.txt", "f2")

	store := newFakeDocStore()
	// f2 is unchanged, f3 has a stale crc, f4 is gone from disk.
	store.ingested[f2.File] = f2.Crc
	store.ingested[filepath.Join(tmp, "f3.pdf")] = 0
	store.ingested[filepath.Join(tmp, "f4.pdf")] = 4

	ingester := &fakeIngester{}
	reg := DocRegistry{
		log:      discardLogger(),
		root:     tmp,
		store:    store,
		ingester: ingester,
	}
	reg.RegisterReader(&mockTextReader{})

	require.NoError(t, reg.Sync(context.Background()))

	assert.ElementsMatch(t, []string{
		filepath.Join(tmp, "f1.txt"),
		filepath.Join(tmp, "f3.pdf"),
	}, ingester.getCalls())
	assert.Contains(t, store.getRemoveCalls(), filepath.Join(tmp, "f4.pdf"))
	assert.NotContains(t, store.ingested, filepath.Join(tmp, "f4.pdf"))
}

func Test_Sync_SkipsDocsWhereAllUnitsFail(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "f1.txt"), []byte("f1"), 0o644))

	store := newFakeDocStore()
	reg := DocRegistry{
		log:      discardLogger(),
		root:     tmp,
		store:    store,
		ingester: &fakeIngester{failAll: true},
	}
	reg.RegisterReader(&mockTextReader{})

	require.NoError(t, reg.Sync(context.Background()))
	assert.Empty(t, store.getInsertCalls())
}

func Test_Watch(t *testing.T) {
	tmp := t.TempDir()

	createFile := func(name string, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(tmp, name), []byte(content), 0o644))
	}
	removeFile := func(name string) {
		require.NoError(t, os.Remove(filepath.Join(tmp, name)))
	}
	renameFile := func(oldname, newname string) {
		require.NoError(t, os.Rename(
			filepath.Join(tmp, oldname),
			filepath.Join(tmp, newname)))
	}

	store := newFakeDocStore()
	ingester := &fakeIngester{}
	reg := DocRegistry{
		log:              discardLogger(),
		root:             tmp,
		mergeEventsDelay: 20 * time.Millisecond,
		store:            store,
		ingester:         ingester,
	}
	reg.RegisterReader(&mockTextReader{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, reg.Watch(ctx))
	time.Sleep(100 * time.Millisecond)

	createFile("f1.txt", "f1")
	time.Sleep(150 * time.Millisecond)

	createFile("f2.txt", "f2")
	time.Sleep(150 * time.Millisecond)

	renameFile("f1.txt", "f3.txt")
	time.Sleep(150 * time.Millisecond)

	removeFile("f2.txt")
	time.Sleep(150 * time.Millisecond)

	assert.ElementsMatch(t, []string{
		filepath.Join(tmp, "f1.txt"),
		filepath.Join(tmp, "f2.txt"),
		filepath.Join(tmp, "f3.txt"),
	}, ingester.getCalls())
	assert.Contains(t, store.getRemoveCalls(), filepath.Join(tmp, "f1.txt"))
	assert.Contains(t, store.getRemoveCalls(), filepath.Join(tmp, "f2.txt"))
}

type brokenPdfReader struct{}

func (r *brokenPdfReader) CanRead(path string) bool { return filepath.Ext(path) == ".pdf" }

func (r *brokenPdfReader) ReadPages(path string) ([]readers.Page, error) {
	return nil, errors.New("corrupt document")
}

func Test_Sync_SkipsUnreadableDocuments(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "good.txt"), []byte("fine"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "broken.pdf"), []byte("not a pdf"), 0o644))

	store := newFakeDocStore()
	ingester := &fakeIngester{}
	reg := DocRegistry{
		log:      discardLogger(),
		root:     tmp,
		store:    store,
		ingester: ingester,
	}
	reg.RegisterReader(&brokenPdfReader{}, &readers.TxtPageReader{})

	require.NoError(t, reg.Sync(context.Background()))
	assert.Equal(t, []string{filepath.Join(tmp, "good.txt")}, ingester.getCalls())
}

func Test_collectDocs(t *testing.T) {
	tmp := t.TempDir()

	createFile := func(name string, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(tmp, name), []byte(content), 0o644))
	}

	createFile("f1.txt", "f1 content")
	createFile("f2.txt", "f2 content")
	createFile("unsupported.bin", "f3 content")

	reg := DocRegistry{
		log:  discardLogger(),
		root: tmp,
	}
	reg.RegisterReader(&readers.TxtPageReader{})

	docs, err := reg.collectDocs()
	require.NoError(t, err)

	var files []string
	for _, d := range docs {
		files = append(files, filepath.Base(d.File))
	}

	assert.ElementsMatch(t, []string{"f1.txt", "f2.txt"}, files)
}
