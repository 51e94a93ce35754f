package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gamma-omg/querydoc/docstore"
	"github.com/gamma-omg/querydoc/ingest"
	"github.com/gamma-omg/querydoc/readers"
)

type DocStore interface {
	BatchInsert(recs []docstore.Record) ([]uint32, error)
	RemoveFile(file string) int
	GetIngested(ctx context.Context) ([]docstore.IngestedDoc, error)
}

type Ingester interface {
	Ingest(ctx context.Context, doc ingest.Document) ([]docstore.Record, *ingest.Report, error)
}

// DocRegistry keeps the store in sync with the documents under root: new and
// changed files are re-ingested, removed files are forgotten.
type DocRegistry struct {
	log              *slog.Logger
	root             string
	mergeEventsDelay time.Duration
	store            DocStore
	ingester         Ingester
	readers          []readers.PageReader

	// persist, when set, runs after every store mutation.
	persist func()

	timersMu sync.Mutex
	timers   map[string]*time.Timer
}

type diskDocs map[string]ingest.Document
type dbDocs map[string]docstore.IngestedDoc

func (dr *DocRegistry) RegisterReader(rs ...readers.PageReader) {
	dr.readers = append(dr.readers, rs...)
}

// Sync reconciles the store with the current contents of root.
func (dr *DocRegistry) Sync(ctx context.Context) error {
	disk, err := dr.collectDocs()
	if err != nil {
		return err
	}

	db, err := dr.store.GetIngested(ctx)
	if err != nil {
		return err
	}

	dbMap := make(dbDocs)
	for _, d := range db {
		dbMap[d.File] = d
	}

	if err := dr.ingestNewDocuments(ctx, disk, dbMap); err != nil {
		return err
	}

	if err := dr.forgetRemovedDocuments(disk, dbMap); err != nil {
		return err
	}

	dr.flush()
	return nil
}

func (dr *DocRegistry) collectDocs() (diskDocs, error) {
	docs := make(diskDocs)
	err := filepath.Walk(dr.root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		reader, e := dr.findReader(path)
		if e != nil {
			dr.log.Warn(fmt.Sprintf("unsupported file: %s", path))
			return nil
		}

		// one unreadable document must not keep the rest of the corpus from
		// syncing
		doc, e := readDocument(path, reader)
		if e != nil {
			dr.log.Warn("skipping unreadable document", "file", path, "error", e)
			return nil
		}

		docs[path] = doc
		return nil
	})
	if err != nil {
		return nil, err
	}

	return docs, nil
}

func (dr *DocRegistry) ingestNewDocuments(ctx context.Context, disk diskDocs, db dbDocs) error {
	for _, doc := range disk {
		dbDoc, ok := db[doc.File]
		if ok && dbDoc.Crc == doc.Crc {
			continue
		}

		if err := dr.ingestDoc(ctx, doc); err != nil {
			return err
		}
	}

	return nil
}

func (dr *DocRegistry) forgetRemovedDocuments(disk diskDocs, db dbDocs) error {
	for _, dbDoc := range db {
		if _, ok := disk[dbDoc.File]; ok {
			continue
		}

		dr.store.RemoveFile(dbDoc.File)
	}

	return nil
}

// ingestDoc runs the pipeline for one document and replaces the document's
// records in the store. A document where every unit failed is logged and
// skipped; it does not abort the surrounding sync.
func (dr *DocRegistry) ingestDoc(ctx context.Context, doc ingest.Document) error {
	recs, report, err := dr.ingester.Ingest(ctx, doc)
	if err != nil {
		var ingErr *ingest.ErrIngestionFailed
		if errors.As(err, &ingErr) {
			dr.log.Warn("document ingestion failed",
				"file", ingErr.File,
				"failed_units", len(ingErr.Pages))
			return nil
		}

		return fmt.Errorf("failed to ingest document %s: %w", doc.File, err)
	}

	if len(report.Failures) > 0 {
		dr.log.Warn("document partially ingested",
			"file", doc.File,
			"failed_units", len(report.Failures))
	}

	dr.store.RemoveFile(doc.File)
	if _, err := dr.store.BatchInsert(recs); err != nil {
		return fmt.Errorf("failed to store document %s: %w", doc.File, err)
	}

	return nil
}

func (dr *DocRegistry) findReader(file string) (readers.PageReader, error) {
	for _, r := range dr.readers {
		if r.CanRead(file) {
			return r, nil
		}
	}

	return nil, fmt.Errorf("unable to find reader for file: %s", file)
}

func (dr *DocRegistry) flush() {
	if dr.persist != nil {
		dr.persist()
	}
}

// Watch follows filesystem events under root and keeps the store current.
// Rapid write events for the same file are merged over mergeEventsDelay.
// Watch returns after the watcher is installed; processing continues until
// ctx is cancelled.
func (dr *DocRegistry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := watcher.Add(dr.root); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dr.root, err)
	}

	dr.timers = make(map[string]*time.Timer)

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				dr.handleEvent(ctx, event)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				dr.log.Error("watcher error", "error", err)
			}
		}
	}()

	return nil
}

func (dr *DocRegistry) handleEvent(ctx context.Context, event fsnotify.Event) {
	switch {
	case event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write):
		dr.scheduleIngest(ctx, event.Name)

	case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
		dr.store.RemoveFile(event.Name)
		dr.flush()
	}
}

// scheduleIngest defers ingestion until the file has been quiet for
// mergeEventsDelay, merging the event bursts editors and copies produce.
func (dr *DocRegistry) scheduleIngest(ctx context.Context, path string) {
	dr.timersMu.Lock()
	defer dr.timersMu.Unlock()

	if timer, ok := dr.timers[path]; ok {
		timer.Stop()
	}

	dr.timers[path] = time.AfterFunc(dr.mergeEventsDelay, func() {
		dr.timersMu.Lock()
		delete(dr.timers, path)
		dr.timersMu.Unlock()

		if ctx.Err() != nil {
			return
		}

		reader, err := dr.findReader(path)
		if err != nil {
			dr.log.Warn(fmt.Sprintf("unsupported file: %s", path))
			return
		}

		doc, err := readDocument(path, reader)
		if err != nil {
			dr.log.Error("failed to read document", "file", path, "error", err)
			return
		}

		if err := dr.ingestDoc(ctx, doc); err != nil {
			dr.log.Error("failed to ingest document", "file", path, "error", err)
			return
		}

		dr.flush()
	})
}
