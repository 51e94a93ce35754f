package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/gamma-omg/querydoc/docstore"
)

// SnapshotCache persists the store to disk so a restart serves queries
// without re-extracting and re-embedding every document.
type SnapshotCache struct {
	log  *slog.Logger
	path string

	// saveMu serializes writers; debounce timers and the watcher's remove
	// path can flush concurrently and share one temp file.
	saveMu sync.Mutex
}

// Load rehydrates the store from the cache file. A missing file is not an
// error; the registry sync will rebuild the index from scratch.
func (c *SnapshotCache) Load(store *docstore.MemoryStore) error {
	f, err := os.Open(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open snapshot cache: %w", err)
	}
	defer f.Close()

	if err := store.LoadSnapshot(f); err != nil {
		return fmt.Errorf("failed to load snapshot cache: %w", err)
	}

	c.log.Info("loaded snapshot cache", "file", c.path, "records", store.Size())
	return nil
}

// Save writes the current snapshot through a temp file and renames it into
// place, so a crash mid-write never corrupts the cache.
func (c *SnapshotCache) Save(store *docstore.MemoryStore) error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	tmp := c.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create snapshot cache: %w", err)
	}

	if err := store.SaveSnapshot(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write snapshot cache: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close snapshot cache: %w", err)
	}

	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("failed to replace snapshot cache: %w", err)
	}

	return nil
}

// Reset deletes the cache file.
func (c *SnapshotCache) Reset() error {
	err := os.Remove(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return err
}
