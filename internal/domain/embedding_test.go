package domain

import (
	"context"
	"errors"
	"testing"
)

type recordingEmbedder struct {
	texts []string
	err   error
}

func (r *recordingEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	r.texts = append(r.texts, text)
	if r.err != nil {
		return EmbeddingResult{}, r.err
	}
	return EmbeddingResult{Embedding: []float32{float32(len(text))}, PromptTokens: 1, TotalTokens: 1}, nil
}

type batchEmbedder struct {
	recordingEmbedder
	batchCalls int
}

func (b *batchEmbedder) BatchEmbed(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
	b.batchCalls++
	return BatchEmbeddingResult{Embeddings: make([][]float32, len(texts)), TotalTokens: len(texts)}, nil
}

func TestInstructionEmbedder_Prefixes(t *testing.T) {
	inner := &recordingEmbedder{}
	e := NewInstructionEmbedder(inner, "query: ")

	if _, err := e.Embed(context.Background(), "dentist"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.texts) != 1 || inner.texts[0] != "query: dentist" {
		t.Errorf("expected prefixed text, got %v", inner.texts)
	}
}

func TestInstructionEmbedder_Error(t *testing.T) {
	e := NewInstructionEmbedder(&recordingEmbedder{err: ErrEmbeddingProviderError}, "q: ")
	_, err := e.Embed(context.Background(), "x")
	if !errors.Is(err, ErrEmbeddingProviderError) {
		t.Errorf("expected wrapped provider error, got %v", err)
	}
}

func TestEmbedAll_Fallback(t *testing.T) {
	inner := &recordingEmbedder{}
	res, err := EmbedAll(context.Background(), inner, []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 3 || res.Embeddings[2][0] != 3 {
		t.Errorf("unexpected embeddings: %v", res.Embeddings)
	}
	if res.TotalTokens != 3 {
		t.Errorf("expected TotalTokens=3, got %d", res.TotalTokens)
	}
}

func TestEmbedAll_Batch(t *testing.T) {
	inner := &batchEmbedder{}
	if _, err := EmbedAll(context.Background(), inner, []string{"a", "b"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.batchCalls != 1 {
		t.Errorf("expected 1 batch call, got %d", inner.batchCalls)
	}
	if len(inner.texts) != 0 {
		t.Errorf("expected no single Embed calls, got %d", len(inner.texts))
	}
}

func TestEmbedAll_FallbackError(t *testing.T) {
	_, err := EmbedAll(context.Background(), &recordingEmbedder{err: errors.New("down")}, []string{"a"})
	if err == nil {
		t.Fatal("expected error")
	}
}
