package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Doc types recognized by the retrieval store. Ground-truth material is
// ingested out of band; candidate documents are ingested by the pipeline
// itself.
const (
	DocTypeCVContext      = "cv_context"
	DocTypeCVRubric       = "cv_rubric"
	DocTypeProjectContext = "project_context"
	DocTypeProjectRubric  = "project_rubric"
	DocTypeCandidate      = "candidate"
)

// IngestService chunks a document, embeds each chunk, and upserts the
// chunks into the retrieval store under the given doc type.
type IngestService interface {
	IngestDocument(ctx context.Context, docID, docType, content string) error
}

type ingestService struct {
	embedder embeddingGenerator
	store    QdrantService
	logger   *zap.Logger
}

func NewIngestService(embedder GeminiService, store QdrantService, logger *zap.Logger) IngestService {
	return &ingestService{
		embedder: embedder,
		store:    store,
		logger:   logger,
	}
}

// IngestDocument implements IngestService.
func (s *ingestService) IngestDocument(ctx context.Context, docID, docType, content string) error {
	chunks := ChunkText(content, defaultChunkWords, defaultChunkOverlap)
	if len(chunks) == 0 {
		return fmt.Errorf("document %s has no ingestable content", docID)
	}

	s.logger.Debug("ingesting document",
		zap.String("doc_id", docID),
		zap.String("doc_type", docType),
		zap.Int("chunks", len(chunks)))

	for i, chunk := range chunks {
		embedding, err := s.embedder.GenerateEmbedding(ctx, chunk)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d of %s: %w", i, docID, err)
		}

		chunkID := fmt.Sprintf("%s_%d", docID, i)
		if err := s.store.UpsertChunk(ctx, chunkID, docType, chunk, embedding); err != nil {
			return fmt.Errorf("failed to store chunk %d of %s: %w", i, docID, err)
		}
	}

	s.logger.Info("document ingested",
		zap.String("doc_id", docID),
		zap.String("doc_type", docType),
		zap.Int("chunks", len(chunks)))

	return nil
}
