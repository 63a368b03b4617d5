package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/vaultlens/vaultlens/internal/dedup"
	"github.com/vaultlens/vaultlens/internal/engine"
	"github.com/vaultlens/vaultlens/internal/search"
	"github.com/vaultlens/vaultlens/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
)

// handleBuildIndex handles the build_index tool invocation
func (s *Server) handleBuildIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := requestArgs(request)

	opts := engine.BuildOptions{
		Force:          getBoolDefault(args, "force", false),
		SampleSize:     getIntDefault(args, "sample_size", 0),
		IncludeFolders: getStringSlice(args, "include_folders"),
		ExcludeFolders: getStringSlice(args, "exclude_folders"),
	}

	stats, err := s.engine.BuildIndex(ctx, opts)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed":         true,
		"documents":       stats.TotalDocuments,
		"cache_hits":      stats.CacheHits,
		"cache_misses":    stats.CacheMisses,
		"parse_failures":  stats.ParseFailures,
		"encode_failures": stats.EncodeFailures,
		"model":           stats.Model,
		"dimension":       stats.Dimension,
		"duration_ms":     stats.Duration.Milliseconds(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchVault handles the search_vault tool invocation
func (s *Server) handleSearchVault(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := requestArgs(request)

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "query parameter is required", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", search.DefaultTopK)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	mode := getStringDefault(args, "mode", string(types.ModeHybrid))
	opts := s.defaults
	opts.Mode = types.SearchMode(mode)
	opts.K = limit
	opts.Threshold = getFloatDefault(args, "threshold", opts.Threshold)
	opts.Expand = getBoolDefault(args, "expand", false)
	opts.Rerank = getBoolDefault(args, "rerank", false)

	results, err := s.engine.Search(ctx, query, opts)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid search parameters", map[string]interface{}{
			"error": err.Error(),
		})
	}

	items := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		item := map[string]interface{}{
			"path":    r.Document.Path,
			"title":   r.Document.Title,
			"score":   r.Score,
			"rank":    r.Rank,
			"mode":    string(r.Mode),
			"snippet": r.Snippet,
			"encoded": r.Document.Encoded,
		}
		if r.OriginalRank != 0 {
			item["original_rank"] = r.OriginalRank
		}
		if len(r.MatchedTerms) > 0 {
			item["matched_terms"] = r.MatchedTerms
		}
		items = append(items, item)
	}

	response := map[string]interface{}{
		"indexed": s.engine.Indexed(),
		"query":   query,
		"count":   len(items),
		"results": items,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleFindDuplicates handles the find_duplicates tool invocation
func (s *Server) handleFindDuplicates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := requestArgs(request)

	opts := dedup.Options{
		Threshold: getFloatDefault(args, "threshold", dedup.DefaultThreshold),
		MinWords:  getIntDefault(args, "min_words", dedup.DefaultMinWords),
	}

	report := s.engine.FindDuplicates(opts)

	groups := make([]map[string]interface{}, 0, len(report.Groups))
	for _, g := range report.Groups {
		members := make([]map[string]interface{}, 0, len(g.Members))
		for _, m := range g.Members {
			members = append(members, map[string]interface{}{
				"path":       m.Path,
				"title":      m.Title,
				"word_count": m.WordCount,
				"size_bytes": m.SizeBytes,
			})
		}
		groups = append(groups, map[string]interface{}{
			"representative": g.Representative.Path,
			"avg_similarity": g.AvgSimilarity,
			"members":        members,
		})
	}

	response := map[string]interface{}{
		"total_analyzed":          report.TotalAnalyzed,
		"duplicate_count":         report.DuplicateCount,
		"unique_count":            report.UniqueCount,
		"duplicate_ratio":         report.DuplicateRatio,
		"potential_savings_bytes": report.PotentialSavingsBytes,
		"groups":                  groups,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleCacheStats handles the cache_stats tool invocation
func (s *Server) handleCacheStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.engine.CacheStats(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to read cache stats", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"total_rows":     stats.TotalRows,
		"rows_per_model": stats.RowsPerModel,
		"token_rows":     stats.TokenRows,
		"size_bytes":     stats.SizeBytes,
	}
	if !stats.LastUpdatedAt.IsZero() {
		response["last_updated_at"] = stats.LastUpdatedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSweepCache handles the sweep_cache tool invocation
func (s *Server) handleSweepCache(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	removed, err := s.engine.SweepCache(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "sweep failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"removed": removed,
	})), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// requestArgs extracts the argument map; tools with no required
// parameters may receive nil arguments.
func requestArgs(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	return args
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloatDefault extracts a float parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	if val, ok := args[key].(float64); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string-array parameter
func getStringSlice(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
