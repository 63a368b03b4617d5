// Package vault walks an Obsidian vault and parses Markdown notes into
// Document records: front matter, cleaned plain text, tags, word count,
// and the content hash the embedding cache is keyed by.
package vault
