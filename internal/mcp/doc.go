// Package mcp implements the Model Context Protocol (MCP) server for
// vaultlens.
//
// The server exposes five tools to MCP clients:
//   - build_index: index the configured vault
//   - search_vault: semantic / keyword / hybrid / token-level retrieval
//   - find_duplicates: near-duplicate note groups
//   - cache_stats: embedding-cache counters
//   - sweep_cache: remove orphaned cache rows
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server is typically started via the serve command:
//
//	vaultlens mcp
//
// It then listens on stdin for protocol messages and writes responses
// to stdout; logs go to stderr so they never corrupt the protocol
// stream.
//
// # Tool: search_vault
//
//	Request:
//	{
//	  "name": "search_vault",
//	  "arguments": {
//	    "query": "spaced repetition",
//	    "mode": "hybrid",
//	    "limit": 10,
//	    "expand": true
//	  }
//	}
//
//	Response:
//	{
//	  "indexed": true,
//	  "count": 2,
//	  "results": [
//	    {
//	      "rank": 1,
//	      "path": "learning/anki.md",
//	      "title": "Anki workflow",
//	      "score": 0.012,
//	      "mode": "hybrid",
//	      "snippet": "…how spaced repetition schedules reviews…"
//	    }
//	  ]
//	}
//
// # Error Handling
//
// Handlers return standard JSON-RPC error responses:
//   - -32602: invalid params (missing/invalid arguments)
//   - -32603: internal error (indexing or cache I/O)
//
// Recoverable retrieval failures are not errors: searching an unindexed
// vault yields an empty result list with "indexed": false.
package mcp
