package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"ai-evaluator/internal/config"
	"ai-evaluator/internal/logger"
	"ai-evaluator/internal/services"
)

// Seeds the retrieval store with the ground-truth documents the pipeline
// retrieves against: job description, case study brief, and both scoring
// rubrics.
func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	geminiService, err := services.NewGeminiService(cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.EmbedModel)
	if err != nil {
		log.Fatal("failed to initialize gemini client", zap.Error(err))
	}

	qdrantService, err := services.NewQdrantService(
		cfg.Qdrant.URL,
		cfg.Qdrant.APIKey,
		cfg.Qdrant.Collection,
		log,
	)
	if err != nil {
		log.Fatal("failed to initialize qdrant client", zap.Error(err))
	}

	ctx := context.Background()
	if err := qdrantService.EnsureCollection(ctx); err != nil {
		log.Fatal("failed to ensure qdrant collection", zap.Error(err))
	}

	pdfParser := services.NewPDFParserService()
	ingestService := services.NewIngestService(geminiService, qdrantService, log)

	documents := []struct {
		Path    string
		DocID   string
		DocType string
	}{
		{
			Path:    "./reference_docs/job_description.pdf",
			DocID:   "job_description_v1",
			DocType: services.DocTypeCVContext,
		},
		{
			Path:    "./reference_docs/cv_scoring_rubric.pdf",
			DocID:   "cv_rubric_v1",
			DocType: services.DocTypeCVRubric,
		},
		{
			Path:    "./reference_docs/case_study_brief.pdf",
			DocID:   "case_study_v1",
			DocType: services.DocTypeProjectContext,
		},
		{
			Path:    "./reference_docs/project_scoring_rubric.pdf",
			DocID:   "project_rubric_v1",
			DocType: services.DocTypeProjectRubric,
		},
	}

	failed := 0
	for _, doc := range documents {
		docLog := log.With(zap.String("doc_id", doc.DocID), zap.String("path", doc.Path))

		if _, err := os.Stat(doc.Path); os.IsNotExist(err) {
			docLog.Warn("file not found, skipping")
			failed++
			continue
		}

		text, err := pdfParser.ExtractText(doc.Path)
		if err != nil {
			docLog.Error("failed to extract text", zap.Error(err))
			failed++
			continue
		}

		if err := ingestService.IngestDocument(ctx, doc.DocID, doc.DocType, text); err != nil {
			docLog.Error("failed to ingest document", zap.Error(err))
			failed++
			continue
		}
	}

	if failed > 0 {
		log.Warn("some documents failed to ingest", zap.Int("failed", failed))
		os.Exit(1)
	}

	log.Info("all ground-truth documents ingested", zap.Int("count", len(documents)))
}
