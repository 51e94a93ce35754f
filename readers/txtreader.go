package readers

import (
	"fmt"
	"os"
	"path/filepath"
)

type TxtPageReader struct{}

func (r *TxtPageReader) CanRead(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".txt"
}

// ReadPages returns the whole file as a single page; plain text has no page
// structure.
func (r *TxtPageReader) ReadPages(path string) ([]Page, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading text file: %w", err)
	}

	return []Page{{Index: 0, Text: string(buf)}}, nil
}
