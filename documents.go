package main

import (
	"fmt"
	"hash/crc32"

	"github.com/gamma-omg/querydoc/ingest"
	"github.com/gamma-omg/querydoc/readers"
)

// DiskDoc identifies a document on disk by path and content checksum.
type DiskDoc struct {
	File string
	Crc  uint32
}

// pagesCrc checksums the extracted text of all pages. Failed pages contribute
// their empty text, so a document whose extraction improves re-ingests.
func pagesCrc(pages []readers.Page) uint32 {
	crc := uint32(0)
	for _, p := range pages {
		crc = crc32.Update(crc, crc32.IEEETable, []byte(p.Text))
	}

	return crc
}

// readDocument extracts a document's pages with the given reader and tags
// them with the content checksum.
func readDocument(path string, reader readers.PageReader) (ingest.Document, error) {
	pages, err := reader.ReadPages(path)
	if err != nil {
		return ingest.Document{}, fmt.Errorf("failed to read document %s: %w", path, err)
	}

	return ingest.Document{
		File:  path,
		Crc:   pagesCrc(pages),
		Pages: pages,
	}, nil
}
