// Package types provides shared type definitions for the vaultlens engine.
//
// This package defines the domain types used across the retrieval core:
// documents parsed from the vault, search results with their mode tags,
// and duplicate-detection reports.
//
// Document is the unit of retrieval. It is produced by the vault parser
// and treated as immutable between indexing runs:
//
//	doc := &types.Document{
//	    Path:    "notes/tdd-basics.md",
//	    Title:   "TDD basics",
//	    Content: cleaned,
//	    Tags:    []string{"dev", "testing"},
//	}
//
// SearchResult carries the ranked output of any retrieval mode. The Mode
// field distinguishes how the score was produced (semantic, keyword,
// hybrid, token-level, reranked).
package types
