// Package mcpserver exposes retrieval as MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/siddhikamalkar/AI-Medibot/internal/config"
	"github.com/siddhikamalkar/AI-Medibot/internal/keyword"
)

const searchLimit = 5

// ContextRetriever returns the joined medical context for a query.
type ContextRetriever interface {
	Retrieve(ctx context.Context, query string) (string, error)
}

// New builds an MCP server with the medical_context tool and, when lookup is set,
// the search_passages tool.
func New(retriever ContextRetriever, lookup *keyword.Lookup, version string, logger *zap.Logger) *server.MCPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := server.NewMCPServer("MediBot", version, server.WithToolCapabilities(false))

	contextTool := mcp.NewTool("medical_context",
		mcp.WithDescription("Retrieve passages from the medical encyclopedia most relevant to a patient's symptoms or question"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Symptoms or medical question"),
		))
	srv.AddTool(contextTool, contextHandler(retriever, logger))

	if lookup != nil {
		searchTool := mcp.NewTool("search_passages",
			mcp.WithDescription("Keyword search over the medical encyclopedia passages"),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Search terms"),
			))
		srv.AddTool(searchTool, searchHandler(lookup, logger))
	}
	return srv
}

func contextHandler(retriever ContextRetriever, logger *zap.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		text, err := retriever.Retrieve(ctx, q)
		if err != nil {
			logger.Error("medical_context failed", zap.Error(err))
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(text), nil
	}
}

func searchHandler(lookup *keyword.Lookup, logger *zap.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		passages, corrected, err := lookup.Search(ctx, q, searchLimit, nil)
		if err != nil {
			logger.Error("search_passages failed", zap.Error(err))
			return mcp.NewToolResultError(err.Error()), nil
		}

		var b strings.Builder
		if corrected != "" {
			fmt.Fprintf(&b, "Showing results for %q\n", corrected)
		}
		for _, p := range passages {
			raw, err := json.Marshal(struct {
				Ordinal int     `json:"ordinal"`
				Source  string  `json:"source"`
				Score   float64 `json:"score"`
				Text    string  `json:"text"`
			}{
				Ordinal: p.Ordinal,
				Source:  p.SourceID,
				Score:   p.Score,
				Text:    p.Content,
			})
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			b.Write(raw)
			b.WriteByte('\n')
		}
		return mcp.NewToolResultText(b.String()), nil
	}
}

// Serve runs srv over the configured transport and blocks until it stops.
func Serve(srv *server.MCPServer, cfg config.MCPConfig, logger *zap.Logger) error {
	switch cfg.Transport {
	case "stdio":
		return server.ServeStdio(srv)
	case "sse":
		sse := server.NewSSEServer(srv, server.WithBaseURL(fmt.Sprintf("http://%s", cfg.Addr)))
		logger.Info("Starting MCP SSE server", zap.String("addr", cfg.Addr))
		return sse.Start(cfg.Addr)
	default:
		return fmt.Errorf("unknown MCP transport %q", cfg.Transport)
	}
}
