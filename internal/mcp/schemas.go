package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// buildIndexTool returns the tool definition for build_index
func buildIndexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "build_index",
		Description: "Index the configured Obsidian vault so it becomes searchable",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, discard cached embeddings and re-encode every note",
					"default":     false,
				},
				"sample_size": map[string]interface{}{
					"type":        "integer",
					"description": "Index only the first N notes (0 = no limit)",
					"default":     0,
					"minimum":     0,
				},
				"include_folders": map[string]interface{}{
					"type":        "array",
					"description": "Restrict the run to these vault-relative folders",
					"items":       map[string]interface{}{"type": "string"},
				},
				"exclude_folders": map[string]interface{}{
					"type":        "array",
					"description": "Skip these vault-relative folders",
					"items":       map[string]interface{}{"type": "string"},
				},
			},
		},
	}
}

// searchVaultTool returns the tool definition for search_vault
func searchVaultTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_vault",
		Description: "Search the indexed vault with semantic, keyword, hybrid, or token-level retrieval",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "Retrieval mode",
					"enum":        []string{"semantic", "keyword", "hybrid", "token-level"},
					"default":     "hybrid",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"threshold": map[string]interface{}{
					"type":        "number",
					"description": "Minimum similarity score (0.0-1.0)",
					"default":     0.0,
					"minimum":     0.0,
					"maximum":     1.0,
				},
				"expand": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, run query expansion (synonyms + hypothetical document)",
					"default":     false,
				},
				"rerank": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, rerank first-stage candidates with the cross-encoder",
					"default":     false,
				},
			},
			Required: []string{"query"},
		},
	}
}

// findDuplicatesTool returns the tool definition for find_duplicates
func findDuplicatesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "find_duplicates",
		Description: "Find groups of near-duplicate notes in the indexed vault",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"threshold": map[string]interface{}{
					"type":        "number",
					"description": "Minimum cosine similarity for two notes to count as duplicates",
					"default":     0.85,
					"minimum":     0.0,
					"maximum":     1.0,
				},
				"min_words": map[string]interface{}{
					"type":        "integer",
					"description": "Ignore notes shorter than this many words",
					"default":     10,
					"minimum":     0,
				},
			},
		},
	}
}

// cacheStatsTool returns the tool definition for cache_stats
func cacheStatsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "cache_stats",
		Description: "Report embedding-cache row counts, size, and models",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// sweepCacheTool returns the tool definition for sweep_cache
func sweepCacheTool() mcp.Tool {
	return mcp.Tool{
		Name:        "sweep_cache",
		Description: "Remove cached embeddings whose notes no longer exist",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
