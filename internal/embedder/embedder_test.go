package embedder

import (
	"context"
	"math"
	"testing"
)

func TestComputeHash(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "empty string",
			text: "",
			want: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name: "simple text",
			text: "hello world",
			want: "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeHash(tt.text)
			if got != tt.want {
				t.Errorf("ComputeHash() = %v, want %v", got, tt.want)
			}
			if got != ComputeHash(tt.text) {
				t.Error("ComputeHash() not deterministic")
			}
		})
	}
}

func TestCacheReturnsCopy(t *testing.T) {
	cache := NewCache(10)
	cache.Set("h", []float32{1, 2, 3})

	v, ok := cache.Get("h")
	if !ok {
		t.Fatal("expected cache hit")
	}
	v[0] = 99

	v2, _ := cache.Get("h")
	if v2[0] != 1 {
		t.Error("cache entry mutated through returned slice")
	}
}

func TestValidateBatch(t *testing.T) {
	if err := ValidateBatch(nil); err == nil {
		t.Error("expected error for empty batch")
	}
	if err := ValidateBatch([]string{"a", ""}); err == nil {
		t.Error("expected error for empty text in batch")
	}
	if err := ValidateBatch([]string{"a", "b"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLocalEncoderDeterministic(t *testing.T) {
	enc := NewLocalEncoder(64, nil)
	ctx := context.Background()

	a, err := enc.EncodeDense(ctx, "test driven development")
	if err != nil {
		t.Fatalf("EncodeDense: %v", err)
	}
	b, err := enc.EncodeDense(ctx, "test driven development")
	if err != nil {
		t.Fatalf("EncodeDense: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("local encoder not deterministic")
		}
	}

	// Unit norm
	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	if math.Abs(sum-1.0) > 1e-5 {
		t.Errorf("expected unit vector, norm^2 = %f", sum)
	}
}

func TestLocalEncoderVocabularyOverlap(t *testing.T) {
	enc := NewLocalEncoder(128, nil)
	ctx := context.Background()

	base, _ := enc.EncodeDense(ctx, "unit testing with test doubles and assertions")
	near, _ := enc.EncodeDense(ctx, "unit testing with test doubles and mocks")
	far, _ := enc.EncodeDense(ctx, "sourdough bread recipe hydration ratio")

	cos := func(a, b []float32) float64 {
		var dot float64
		for i := range a {
			dot += float64(a[i]) * float64(b[i])
		}
		return dot
	}

	if cos(base, near) <= cos(base, far) {
		t.Errorf("overlapping text should be closer: near=%f far=%f", cos(base, near), cos(base, far))
	}
}

func TestLocalEncoderTokens(t *testing.T) {
	enc := NewLocalEncoder(32, nil)
	matrix, tokens, err := enc.EncodeTokens(context.Background(), "Hello, 세계 world")
	if err != nil {
		t.Fatalf("EncodeTokens: %v", err)
	}
	if len(matrix) != len(tokens) {
		t.Fatalf("matrix rows %d != tokens %d", len(matrix), len(tokens))
	}
	want := []string{"hello", "세계", "world"}
	if len(tokens) != len(want) {
		t.Fatalf("tokens = %v, want %v", tokens, want)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("token %d = %q, want %q", i, tokens[i], want[i])
		}
	}
}

func TestNormalizeVectorZero(t *testing.T) {
	v := []float32{0, 0, 0}
	got := NormalizeVector(v)
	for _, x := range got {
		if x != 0 {
			t.Error("zero vector should stay zero")
		}
	}
}
