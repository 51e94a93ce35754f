package readers

import (
	"fmt"
	"path/filepath"

	"code.sajari.com/docconv/v2"
)

// UniversalPageReader handles formats without page structure through docconv;
// the extracted document comes back as a single page. Register the dedicated
// pdf and txt readers ahead of it so they win for their extensions.
type UniversalPageReader struct {
}

func (r *UniversalPageReader) CanRead(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".txt" || ext == ".docx" || ext == ".odt" || ext == ".pdf" || ext == ".xml"
}

func (r *UniversalPageReader) ReadPages(path string) ([]Page, error) {
	res, err := docconv.ConvertPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	return []Page{{Index: 0, Text: res.Body}}, nil
}
