// Package cli implements the vaultlens command tree: index, search,
// duplicates, cache, and the MCP server.
package cli
