package services

import (
	"context"

	"go.uber.org/zap"
)

// Per-call caps on assembled context. They bound downstream prompt token
// cost, not ranking: truncation keeps the first N chunks, so category order
// decides which evidence survives.
const (
	CVContextLimit      = 10
	ProjectContextLimit = 12
)

type embeddingGenerator interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type vectorSearcher interface {
	SearchSimilar(ctx context.Context, queryEmbedding []float32, docType string, limit int) ([]SearchResult, error)
}

// ContextCategory is one retrieval pass: a doc type filter and the number
// of chunks requested for it.
type ContextCategory struct {
	DocType string
	TopK    int
}

// ContextAssembler gathers grounding chunks for a document. Retrieval
// failures degrade per category to an empty result; assembly itself never
// fails a job.
type ContextAssembler interface {
	Assemble(ctx context.Context, documentText string, categories []ContextCategory, limit int) []string
}

type contextAssembler struct {
	embedder embeddingGenerator
	searcher vectorSearcher
	logger   *zap.Logger
}

func NewContextAssembler(embedder GeminiService, searcher QdrantService, logger *zap.Logger) ContextAssembler {
	return &contextAssembler{
		embedder: embedder,
		searcher: searcher,
		logger:   logger,
	}
}

// Assemble implements ContextAssembler. The document text is embedded once
// and reused as the similarity probe for every category.
func (a *contextAssembler) Assemble(ctx context.Context, documentText string, categories []ContextCategory, limit int) []string {
	embedding, err := a.embedder.GenerateEmbedding(ctx, documentText)
	if err != nil {
		a.logger.Warn("failed to embed retrieval query, continuing without context", zap.Error(err))
		return nil
	}

	var chunks []string
	for _, category := range categories {
		results, err := a.searcher.SearchSimilar(ctx, embedding, category.DocType, category.TopK)
		if err != nil {
			a.logger.Warn("context retrieval failed for category",
				zap.String("doc_type", category.DocType),
				zap.Error(err))
			continue
		}

		for _, result := range results {
			if result.Text != "" {
				chunks = append(chunks, result.Text)
			}
		}
	}

	if limit > 0 && len(chunks) > limit {
		chunks = chunks[:limit]
	}

	return chunks
}
