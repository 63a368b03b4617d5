// Package embedder defines the external model interfaces the retrieval
// core consumes: a dense encoder, an optional per-token encoder for
// late-interaction scoring, and a cross-encoder for reranking. HTTP
// providers (Ollama, OpenAI-compatible, Jina) implement them; a
// deterministic local encoder backs tests and offline use.
package embedder
