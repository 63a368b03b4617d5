// Package store implements the persistent embedding cache: a SQLite
// database mapping vault paths to dense vectors and token-embedding
// matrices, keyed by content hash and model identifier.
//
// Reads validate the stored hash, vector dimension, and finiteness; any
// mismatch is a silent cache miss, never an error. Writes assume a single
// writer (the indexer). A sidecar JSON document records schema version and
// model identifiers next to the database file.
package store
