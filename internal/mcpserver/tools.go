package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/scipcxx/internal/mcpindex"
)

// Tool name constants.
const (
	ToolNameLookupSymbol  = "index_lookup_symbol"
	ToolNameListDocuments = "index_list_documents"
	ToolNameStats         = "index_stats"
)

const (
	lookupSymbolDescription = "Look up a symbol in the merged SCIP index. Tries an exact SCIP " +
		"symbol string first, then falls back to an approximate match by bare descriptor name " +
		"(e.g. a function name with no package/disambiguator) when no exact match exists."
	listDocumentsDescription = "List every document's relative path in the merged SCIP index."
	statsDescription         = "Report summary counters (documents, symbols, external symbols, occurrences) for the merged SCIP index."
)

// LookupSymbolInput is the input schema for index_lookup_symbol.
type LookupSymbolInput struct {
	Symbol string `json:"symbol" jsonschema:"an exact SCIP symbol string, or a bare identifier for an approximate match"`
}

// LookupSymbolOutput is the structured output for index_lookup_symbol.
type LookupSymbolOutput struct {
	Exact         bool     `json:"exact"`
	Symbol        string   `json:"symbol,omitempty"`
	DisplayName   string   `json:"display_name,omitempty"`
	Documentation []string `json:"documentation,omitempty"`
	Candidates    []string `json:"candidates,omitempty"`
}

// ListDocumentsOutput is the structured output for index_list_documents.
type ListDocumentsOutput struct {
	Paths []string `json:"paths"`
}

func errorResult(err error) (*mcpsdk.CallToolResult, any, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
		IsError: true,
	}, nil, nil
}

func jsonResult(value any) (*mcpsdk.CallToolResult, any, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
	}, value, nil
}

func handleLookupSymbol(idx *mcpindex.Index) func(context.Context, *mcpsdk.CallToolRequest, LookupSymbolInput) (*mcpsdk.CallToolResult, any, error) {
	return func(_ context.Context, _ *mcpsdk.CallToolRequest, input LookupSymbolInput) (*mcpsdk.CallToolResult, any, error) {
		if input.Symbol == "" {
			return errorResult(fmt.Errorf("symbol parameter is required"))
		}

		if sym, ok := idx.LookupSymbol(input.Symbol); ok {
			return jsonResult(LookupSymbolOutput{
				Exact:         true,
				Symbol:        sym.Symbol,
				DisplayName:   sym.DisplayName,
				Documentation: sym.Documentation,
			})
		}

		candidates := idx.ApproximateLookup(input.Symbol)

		return jsonResult(LookupSymbolOutput{Exact: false, Candidates: candidates})
	}
}

func handleListDocuments(idx *mcpindex.Index) func(context.Context, *mcpsdk.CallToolRequest, struct{}) (*mcpsdk.CallToolResult, any, error) {
	return func(_ context.Context, _ *mcpsdk.CallToolRequest, _ struct{}) (*mcpsdk.CallToolResult, any, error) {
		return jsonResult(ListDocumentsOutput{Paths: idx.ListDocuments()})
	}
}

func handleStats(idx *mcpindex.Index) func(context.Context, *mcpsdk.CallToolRequest, struct{}) (*mcpsdk.CallToolResult, any, error) {
	return func(_ context.Context, _ *mcpsdk.CallToolRequest, _ struct{}) (*mcpsdk.CallToolResult, any, error) {
		return jsonResult(idx.Stats())
	}
}
