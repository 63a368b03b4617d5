// Package index holds the in-memory retrieval indices rebuilt on every
// indexing run: a BM25 sparse index over tokenized note contents and a
// row-aligned dense vector matrix supporting cosine top-k. Row i of the
// dense matrix is always the embedding of document i.
package index
