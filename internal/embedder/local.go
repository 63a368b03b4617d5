package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
	"unicode"
)

// LocalEncoder is a deterministic, dependency-free encoder for offline use
// and tests. It embeds a text as the normalized sum of per-token vectors,
// where each token vector is derived from the token's hash. Texts sharing
// vocabulary land close in the space; identical texts embed identically.
type LocalEncoder struct {
	model     string
	dimension int
	cache     *Cache
}

// NewLocalEncoder creates a local deterministic encoder.
func NewLocalEncoder(dimension int, cache *Cache) *LocalEncoder {
	if dimension <= 0 {
		dimension = LocalDimension
	}
	return &LocalEncoder{
		model:     "local-hash",
		dimension: dimension,
		cache:     cache,
	}
}

func (l *LocalEncoder) EncodeDense(ctx context.Context, text string) ([]float32, error) {
	if err := ValidateText(text); err != nil {
		return nil, err
	}

	hash := ComputeHash(text)
	if l.cache != nil {
		if v, ok := l.cache.Get(hash); ok {
			return v, nil
		}
	}

	tokens := splitTokens(text)
	vector := make([]float32, l.dimension)
	for _, tok := range tokens {
		tv := l.tokenVector(tok)
		for i := range vector {
			vector[i] += tv[i]
		}
	}
	vector = NormalizeVector(vector)

	if l.cache != nil {
		l.cache.Set(hash, vector)
	}
	return vector, nil
}

func (l *LocalEncoder) EncodeDenseBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ValidateBatch(texts); err != nil {
		return nil, err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := l.EncodeDense(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}
	return vectors, nil
}

// EncodeTokens returns one unit vector per token, so the local encoder can
// also stand in for a late-interaction model.
func (l *LocalEncoder) EncodeTokens(ctx context.Context, text string) ([][]float32, []string, error) {
	if err := ValidateText(text); err != nil {
		return nil, nil, err
	}
	tokens := splitTokens(text)
	matrix := make([][]float32, len(tokens))
	for i, tok := range tokens {
		matrix[i] = l.tokenVector(tok)
	}
	return matrix, tokens, nil
}

// tokenVector derives a deterministic unit vector from the token's hash.
func (l *LocalEncoder) tokenVector(token string) []float32 {
	v := make([]float32, l.dimension)
	seed := sha256.Sum256([]byte(token))
	state := seed[:]
	for i := 0; i < l.dimension; i += 8 {
		h := sha256.Sum256(state)
		state = h[:]
		for j := 0; j < 8 && i+j < l.dimension; j++ {
			bits := binary.LittleEndian.Uint32(h[j*4 : j*4+4])
			// Map to [-1, 1)
			v[i+j] = float32(bits)/float32(math.MaxUint32)*2 - 1
		}
	}
	return NormalizeVector(v)
}

func (l *LocalEncoder) Dimension() int { return l.dimension }
func (l *LocalEncoder) Model() string  { return l.model }
func (l *LocalEncoder) Close() error   { return nil }

// splitTokens lower-cases and splits on anything that is not a letter or
// digit, which handles Latin and Hangul text uniformly.
func splitTokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// NormalizeVector normalizes a vector to unit length.
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}
	return result
}
