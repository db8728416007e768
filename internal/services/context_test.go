package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type stubEmbedder struct {
	err   error
	calls int
}

func (s *stubEmbedder) GenerateEmbedding(_ context.Context, _ string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type stubSearcher struct {
	results map[string][]SearchResult
	errs    map[string]error
}

func (s *stubSearcher) SearchSimilar(_ context.Context, _ []float32, docType string, limit int) ([]SearchResult, error) {
	if err, ok := s.errs[docType]; ok {
		return nil, err
	}

	results := s.results[docType]
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func chunksOf(docType string, n int) []SearchResult {
	var out []SearchResult
	for i := 0; i < n; i++ {
		out = append(out, SearchResult{
			ID:      fmt.Sprintf("%s_%d", docType, i),
			Text:    fmt.Sprintf("%s chunk %d", docType, i),
			DocType: docType,
		})
	}
	return out
}

func newTestAssembler(embedder embeddingGenerator, searcher vectorSearcher) *contextAssembler {
	return &contextAssembler{
		embedder: embedder,
		searcher: searcher,
		logger:   zap.NewNop(),
	}
}

func TestAssembleCapsCombinedResults(t *testing.T) {
	searcher := &stubSearcher{results: map[string][]SearchResult{
		DocTypeCVContext: chunksOf(DocTypeCVContext, 20),
		DocTypeCVRubric:  chunksOf(DocTypeCVRubric, 20),
	}}
	assembler := newTestAssembler(&stubEmbedder{}, searcher)

	chunks := assembler.Assemble(context.Background(), "cv text", []ContextCategory{
		{DocType: DocTypeCVContext, TopK: 6},
		{DocType: DocTypeCVRubric, TopK: 4},
	}, CVContextLimit)

	assert.Len(t, chunks, 10)
	// Call order decides what survives truncation: domain context first.
	assert.Equal(t, "cv_context chunk 0", chunks[0])
	assert.Equal(t, "cv_rubric chunk 3", chunks[9])
}

func TestAssembleNeverExceedsLimit(t *testing.T) {
	searcher := &stubSearcher{results: map[string][]SearchResult{
		DocTypeProjectContext: chunksOf(DocTypeProjectContext, 50),
		DocTypeProjectRubric:  chunksOf(DocTypeProjectRubric, 50),
	}}
	assembler := newTestAssembler(&stubEmbedder{}, searcher)

	chunks := assembler.Assemble(context.Background(), "report text", []ContextCategory{
		{DocType: DocTypeProjectContext, TopK: 8},
		{DocType: DocTypeProjectRubric, TopK: 4},
	}, ProjectContextLimit)

	assert.LessOrEqual(t, len(chunks), ProjectContextLimit)
}

func TestAssembleCategoryFailureDegrades(t *testing.T) {
	searcher := &stubSearcher{
		results: map[string][]SearchResult{
			DocTypeCVContext: chunksOf(DocTypeCVContext, 3),
		},
		errs: map[string]error{
			DocTypeCVRubric: errors.New("collection unavailable"),
		},
	}
	assembler := newTestAssembler(&stubEmbedder{}, searcher)

	chunks := assembler.Assemble(context.Background(), "cv text", []ContextCategory{
		{DocType: DocTypeCVContext, TopK: 6},
		{DocType: DocTypeCVRubric, TopK: 4},
	}, CVContextLimit)

	// Only the surviving category's chunks are present.
	assert.Len(t, chunks, 3)
	for _, chunk := range chunks {
		assert.Contains(t, chunk, "cv_context")
	}
}

func TestAssembleEmbeddingFailureReturnsEmpty(t *testing.T) {
	assembler := newTestAssembler(
		&stubEmbedder{err: errors.New("embedding quota exceeded")},
		&stubSearcher{},
	)

	chunks := assembler.Assemble(context.Background(), "cv text", []ContextCategory{
		{DocType: DocTypeCVContext, TopK: 6},
	}, CVContextLimit)

	assert.Empty(t, chunks)
}

func TestAssembleEmbedsProbeOnce(t *testing.T) {
	embedder := &stubEmbedder{}
	searcher := &stubSearcher{results: map[string][]SearchResult{
		DocTypeCVContext: chunksOf(DocTypeCVContext, 2),
		DocTypeCVRubric:  chunksOf(DocTypeCVRubric, 2),
	}}
	assembler := newTestAssembler(embedder, searcher)

	assembler.Assemble(context.Background(), "cv text", []ContextCategory{
		{DocType: DocTypeCVContext, TopK: 6},
		{DocType: DocTypeCVRubric, TopK: 4},
	}, CVContextLimit)

	assert.Equal(t, 1, embedder.calls)
}
