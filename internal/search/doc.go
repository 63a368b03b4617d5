// Package search implements the retrieval pipeline: mode dispatch
// (semantic, keyword, hybrid, token-level), reciprocal-rank fusion,
// query expansion, cross-encoder reranking, and snippet rendering.
// It operates on immutable index snapshots built by the engine.
package search
