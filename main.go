package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/gamma-omg/querydoc/device"
	"github.com/gamma-omg/querydoc/docstore"
	"github.com/gamma-omg/querydoc/ingest"
	"github.com/gamma-omg/querydoc/readers"
)

func main() {
	reset := flag.Bool("reset", false, "Reinitialize the index from scratch if set")
	cfgPath := flag.String("config", "cfg/config.yaml", "Configuration file for the MCP server")
	flag.Parse()

	cfg, err := readConfig(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	logFile, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		log.Fatalf("failed to open log file: %s", err)
	}
	defer logFile.Close()

	logger := slog.New(slog.NewJSONHandler(logFile, nil))

	dev := device.Select()
	logger.Info("selected compute device", "device", dev.String())

	ef, err := createEmbeddingFunction(cfg)
	if err != nil {
		log.Fatal(err)
	}
	embedder := &chromaEmbedder{ef: ef}

	store := docstore.NewMemoryStore()
	cache := &SnapshotCache{log: logger, path: cfg.CacheFile}
	if *reset {
		if err := cache.Reset(); err != nil {
			log.Fatal(err)
		}
	} else if cfg.CacheFile != "" {
		if err := cache.Load(store); err != nil {
			logger.Warn("snapshot cache unusable, rebuilding index", "error", err)
		}
	}

	pipeline := ingest.NewPipeline(ingest.PipelineConfig{
		Log:      logger,
		Embedder: embedder,
		Chunkifier: &DefaultChunkifier{
			chunkSize:    cfg.ChunkSize,
			chunkOverlap: cfg.ChunkOverlap,
		},
		Workers: cfg.Workers,
		Retries: cfg.EmbedRetries,
	})

	reg := DocRegistry{
		log:              logger,
		root:             cfg.DocRoot,
		mergeEventsDelay: time.Duration(cfg.MergeEventsMs) * time.Millisecond,
		store:            store,
		ingester:         pipeline,
	}
	reg.RegisterReader(&readers.PdfPageReader{}, &readers.TxtPageReader{}, &readers.UniversalPageReader{})
	if cfg.CacheFile != "" {
		reg.persist = func() {
			if err := cache.Save(store); err != nil {
				logger.Error("failed to save snapshot cache", "error", err)
			}
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := reg.Sync(ctx); err != nil {
			log.Fatal(err)
		}

		if err := reg.Watch(ctx); err != nil {
			log.Fatal(err)
		}
	}()

	svc := &QueryService{
		embedder: embedder,
		store:    store,
		dev:      dev,
		results:  cfg.Results,
	}

	srv := NewRagServer(svc, logger)
	sse := server.NewSSEServer(srv, server.WithBaseURL(fmt.Sprintf("http://%s", cfg.ServerAddr)))
	log.Println(sse.Start(cfg.ServerAddr))
}
