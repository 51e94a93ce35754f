// Package ingest turns an extracted document into embedded index records.
// Pages are fanned out across a bounded worker pool and reassembled in page
// order, so the output never depends on worker completion order.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/gamma-omg/querydoc/docstore"
	"github.com/gamma-omg/querydoc/readers"
)

// DefaultWorkers bounds concurrent embedding calls when no explicit worker
// count is configured.
const DefaultWorkers = 4

// Document is the extracted input to the pipeline.
type Document struct {
	File  string
	Crc   uint32
	Pages []readers.Page
}

// Embedder is the external embedding collaborator. Calls may be slow
// (network or model inference), which is why the pipeline parallelizes
// around it.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Chunkifier splits page text into embeddable chunks.
type Chunkifier interface {
	Chunkify(text string) []string
}

// Report aggregates the per-unit failures of one document.
type Report struct {
	File     string
	Failures []UnitFailure
}

// FailedPages lists the page indexes that failed, in page order.
func (r *Report) FailedPages() []int {
	pages := make([]int, 0, len(r.Failures))
	for _, f := range r.Failures {
		pages = append(pages, f.Page)
	}

	return pages
}

type PipelineConfig struct {
	Log        *slog.Logger
	Embedder   Embedder
	Chunkifier Chunkifier

	// Workers bounds the pool; 0 means DefaultWorkers.
	Workers int

	// Retries is the number of extra embedding attempts per unit after the
	// first one fails. Default is single-attempt.
	Retries int
}

type Pipeline struct {
	log        *slog.Logger
	embedder   Embedder
	chunkifier Chunkifier
	workers    int
	retries    int
}

func NewPipeline(cfg PipelineConfig) *Pipeline {
	log := cfg.Log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	return &Pipeline{
		log:        log,
		embedder:   cfg.Embedder,
		chunkifier: cfg.Chunkifier,
		workers:    workers,
		retries:    cfg.Retries,
	}
}

// Ingest embeds every page of doc and returns the records in page order,
// each page's chunks kept in chunk order. A failed unit is recorded in the
// report and does not cancel its siblings; the call fails only if all units
// fail, or the context is cancelled. On cancellation already-running workers
// finish but their results are discarded and nothing is returned.
func (p *Pipeline) Ingest(ctx context.Context, doc Document) ([]docstore.Record, *Report, error) {
	perPage := make([][]docstore.Record, len(doc.Pages))
	failed := make([]*UnitFailure, len(doc.Pages))

	var g errgroup.Group
	g.SetLimit(p.workers)

	for i, page := range doc.Pages {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if page.Failed {
				failed[i] = &UnitFailure{Page: page.Index, Err: ErrExtractionFailed}
				return nil
			}

			chunks := p.chunkifier.Chunkify(page.Text)
			if len(chunks) == 0 {
				return nil
			}

			vectors, err := p.embed(ctx, chunks)
			if err == nil && len(vectors) != len(chunks) {
				err = fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
			}
			if err != nil {
				p.log.Warn("failed to embed page",
					"file", doc.File,
					"page", page.Index,
					"error", err)
				failed[i] = &UnitFailure{Page: page.Index, Err: err}
				return nil
			}

			recs := make([]docstore.Record, len(chunks))
			for j, chunk := range chunks {
				recs[j] = docstore.Record{
					File:   doc.File,
					Crc:    doc.Crc,
					Page:   page.Index,
					Text:   chunk,
					Vector: vectors[j],
				}
			}
			perPage[i] = recs
			return nil
		})
	}

	_ = g.Wait() // unit failures are collected, never returned through the group

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	report := &Report{File: doc.File}
	var records []docstore.Record
	succeeded := 0
	for i := range doc.Pages {
		if failed[i] != nil {
			report.Failures = append(report.Failures, *failed[i])
			continue
		}

		succeeded++
		records = append(records, perPage[i]...)
	}

	if len(report.Failures) > 0 && succeeded == 0 {
		return nil, nil, &ErrIngestionFailed{File: doc.File, Pages: report.FailedPages()}
	}

	return records, report, nil
}

func (p *Pipeline) embed(ctx context.Context, chunks []string) ([][]float32, error) {
	var vectors [][]float32
	var err error
	for attempt := 0; attempt <= p.retries; attempt++ {
		if e := ctx.Err(); e != nil {
			return nil, e
		}

		vectors, err = p.embedder.Embed(ctx, chunks)
		if err == nil {
			return vectors, nil
		}
	}

	return nil, err
}
