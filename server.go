package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gamma-omg/querydoc/device"
	"github.com/gamma-omg/querydoc/docstore"
)

type queryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type vectorSearcher interface {
	Search(ctx context.Context, query []float32, k int, dev device.Device) ([]docstore.QueryResult, error)
}

// QueryService embeds a query with the same embedder documents were ingested
// with and runs it against the store on the selected device.
type QueryService struct {
	embedder queryEmbedder
	store    vectorSearcher
	dev      device.Device
	results  int
}

func (s *QueryService) Query(ctx context.Context, query string) ([]docstore.QueryResult, error) {
	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	return s.store.Search(ctx, vec, s.results, s.dev)
}

type docQuerier interface {
	Query(ctx context.Context, query string) ([]docstore.QueryResult, error)
}

func NewRagServer(querier docQuerier, log *slog.Logger) *server.MCPServer {
	tool := mcp.NewTool("RAG tool",
		mcp.WithDescription("This tool allows searching user documents and get results for RAG"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query"),
		))

	srv := server.NewMCPServer("RAG", "0.0.1", server.WithToolCapabilities(false))
	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		res, err := querier.Query(ctx, q)
		if err != nil {
			log.Error("query failed", "query", q, "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}

		var response string
		for _, r := range res {
			raw, err := json.Marshal(struct {
				Score float32 `json:"score"`
				File  string  `json:"file"`
				Page  int     `json:"page"`
				Text  string  `json:"text"`
			}{
				Score: r.Score,
				File:  r.File,
				Page:  r.Page,
				Text:  r.Text,
			})
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			response += fmt.Sprintf("%s\n", string(raw))
		}

		return mcp.NewToolResultText(response), nil
	})

	return srv
}
