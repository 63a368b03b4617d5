// Package engine wires the vault walker, embedding store, encoders, and
// in-memory indices into one facade. It owns the index snapshot and
// swaps it atomically after each rebuild, so searches in flight keep a
// consistent view.
package engine
