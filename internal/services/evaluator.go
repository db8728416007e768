package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ai-evaluator/internal/models"
	"ai-evaluator/internal/repositories"
)

// EvaluatorService runs the evaluation pipeline for one job: parse both
// documents, ingest them as candidate material, retrieve grounding context,
// run the two rubric evaluations, summarize, and persist the final result.
// Every step is recorded on the job record before the pipeline advances, so
// progress is observable and a redelivered job simply rewrites the same
// fields.
type EvaluatorService interface {
	EvaluateCandidate(ctx context.Context, jobID uuid.UUID) error
}

type evaluatorService struct {
	jobRepo   repositories.JobRepository
	docRepo   repositories.DocumentRepository
	parser    PDFParserService
	ingestor  IngestService
	assembler ContextAssembler
	llm       LLMClient
	prompts   *PromptBuilder
	logger    *zap.Logger
}

func NewEvaluatorService(
	jobRepo repositories.JobRepository,
	docRepo repositories.DocumentRepository,
	parser PDFParserService,
	ingestor IngestService,
	assembler ContextAssembler,
	llm LLMClient,
	logger *zap.Logger,
) EvaluatorService {
	return &evaluatorService{
		jobRepo:   jobRepo,
		docRepo:   docRepo,
		parser:    parser,
		ingestor:  ingestor,
		assembler: assembler,
		llm:       llm,
		prompts:   NewPromptBuilder(),
		logger:    logger,
	}
}

// EvaluateCandidate implements EvaluatorService.
func (e *evaluatorService) EvaluateCandidate(ctx context.Context, jobID uuid.UUID) error {
	log := e.logger.With(zap.String("job_id", jobID.String()))

	job, err := e.jobRepo.FindByID(jobID)
	if err != nil {
		return fmt.Errorf("failed to load job: %w", err)
	}

	if err := e.jobRepo.SetFields(jobID, map[string]interface{}{
		"status":     models.StatusProcessing,
		"started_at": time.Now(),
	}); err != nil {
		return fmt.Errorf("failed to mark job processing: %w", err)
	}

	log.Info("job started", zap.String("job_title", job.JobTitle))

	cvDoc, err := e.docRepo.FindByID(job.CVID)
	if err != nil {
		return e.failJob(jobID, log, fmt.Sprintf("CV document not found: %v", err))
	}

	reportDoc, err := e.docRepo.FindByID(job.ReportID)
	if err != nil {
		return e.failJob(jobID, log, fmt.Sprintf("project document not found: %v", err))
	}

	// Step 1: parse. No text, no evaluation.
	e.setFields(jobID, log, map[string]interface{}{"step_parse": models.StepStarted})

	cvText, err := e.parser.ExtractText(cvDoc.FilePath)
	if err != nil {
		e.setFields(jobID, log, map[string]interface{}{"step_parse": models.StepFailed})
		return e.failJob(jobID, log, fmt.Sprintf("failed to parse CV: %v", err))
	}

	projectText, err := e.parser.ExtractText(reportDoc.FilePath)
	if err != nil {
		e.setFields(jobID, log, map[string]interface{}{"step_parse": models.StepFailed})
		return e.failJob(jobID, log, fmt.Sprintf("failed to parse project report: %v", err))
	}

	e.setFields(jobID, log, map[string]interface{}{
		"step_parse":     models.StepDone,
		"cv_length":      len(cvText),
		"project_length": len(projectText),
	})

	// Step 2: candidate ingestion. Only affects future retrievals, so a
	// failure is recorded but does not abort this job.
	ingestOK := true
	if err := e.ingestCandidate(ctx, job, cvText, projectText); err != nil {
		ingestOK = false
		log.Warn("candidate ingest failed, continuing", zap.Error(err))
		e.setFields(jobID, log, map[string]interface{}{
			"step_ingest_candidates": models.StepFailed,
			"ingest_error":           err.Error(),
		})
	} else {
		e.setFields(jobID, log, map[string]interface{}{"step_ingest_candidates": models.StepDone})
	}

	// Step 3: retrieval. Categories degrade independently; the step always
	// completes.
	e.setFields(jobID, log, map[string]interface{}{"step_rag": models.StepStarted})

	cvContext := e.assembler.Assemble(ctx, cvText, []ContextCategory{
		{DocType: DocTypeCVContext, TopK: 6},
		{DocType: DocTypeCVRubric, TopK: 4},
	}, CVContextLimit)

	projectContext := e.assembler.Assemble(ctx, projectText, []ContextCategory{
		{DocType: DocTypeProjectContext, TopK: 8},
		{DocType: DocTypeProjectRubric, TopK: 4},
	}, ProjectContextLimit)

	e.setFields(jobID, log, map[string]interface{}{
		"step_rag":              models.StepDone,
		"cv_context_count":      len(cvContext),
		"project_context_count": len(projectContext),
	})

	// Step 4: CV evaluation. Exhausted retries are fatal.
	e.setFields(jobID, log, map[string]interface{}{"step_cv_eval": models.StepStarted})

	cvParsed, err := e.llm.CompleteJSON(ctx, e.prompts.CVSystemPrompt(), e.prompts.BuildCVUserPrompt(cvContext, cvText))
	if err != nil {
		e.setFields(jobID, log, map[string]interface{}{"step_cv_eval": models.StepFailed})
		return e.failJob(jobID, log, fmt.Sprintf("failed to evaluate CV: %v", err))
	}

	cvEval := NormalizeCVResult(cvParsed)
	cvJSON, _ := json.Marshal(cvEval)
	e.setFields(jobID, log, map[string]interface{}{
		"cv_result":    string(cvJSON),
		"step_cv_eval": models.StepDone,
	})

	// Step 5: project evaluation, same policy.
	e.setFields(jobID, log, map[string]interface{}{"step_project_eval": models.StepStarted})

	projectParsed, err := e.llm.CompleteJSON(ctx, e.prompts.ProjectSystemPrompt(), e.prompts.BuildProjectUserPrompt(projectContext, projectText))
	if err != nil {
		e.setFields(jobID, log, map[string]interface{}{"step_project_eval": models.StepFailed})
		return e.failJob(jobID, log, fmt.Sprintf("failed to evaluate project report: %v", err))
	}

	projectEval := NormalizeProjectResult(projectParsed)
	projectJSON, _ := json.Marshal(projectEval)
	e.setFields(jobID, log, map[string]interface{}{
		"project_result":    string(projectJSON),
		"step_project_eval": models.StepDone,
	})

	// Step 6: summarization over the normalized results. The job is still
	// useful without narrative prose, so this never fails the job.
	e.setFields(jobID, log, map[string]interface{}{"step_final": models.StepStarted})

	summary := missingSummaryText
	stepFinal := models.StepDone
	finalParsed, err := e.llm.CompleteJSON(ctx, e.prompts.FinalSystemPrompt(), e.prompts.BuildFinalUserPrompt(cvEval, projectEval))
	if err != nil {
		log.Warn("summary generation failed, using placeholder", zap.Error(err))
		stepFinal = models.StepFailed
	} else {
		summary = NormalizeSummary(finalParsed)
	}
	e.setFields(jobID, log, map[string]interface{}{"step_final": stepFinal})

	// Step 7: completion. The canonical clamp lives here, at the point the
	// final result is assembled.
	final := &models.FinalResult{
		CVMatchRate:      clampFloat(cvEval.MatchRate, 0.0, 1.0),
		CVFeedback:       cvEval.Feedback,
		CVBreakdown:      cvEval.Breakdown,
		ProjectScore:     clampFloat(projectEval.Score, 1.0, 5.0),
		ProjectFeedback:  projectEval.Feedback,
		ProjectBreakdown: projectEval.Breakdown,
		OverallSummary:   summary,
		Meta: &models.ResultMeta{
			Steps: models.StepSummary{
				Parse:            models.StepDone,
				IngestCandidates: ingestOK,
				RAGCVCount:       len(cvContext),
				RAGProjectCount:  len(projectContext),
			},
			CompletedAt: time.Now(),
		},
	}

	resultJSON, err := json.Marshal(final)
	if err != nil {
		return e.failJob(jobID, log, fmt.Sprintf("failed to serialize result: %v", err))
	}

	if err := e.jobRepo.SetFields(jobID, map[string]interface{}{
		"status":       models.StatusCompleted,
		"result":       string(resultJSON),
		"completed_at": time.Now(),
	}); err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}

	log.Info("job completed",
		zap.Float64("cv_match_rate", final.CVMatchRate),
		zap.Float64("project_score", final.ProjectScore))

	return nil
}

func (e *evaluatorService) ingestCandidate(ctx context.Context, job *models.Job, cvText, projectText string) error {
	if err := e.ingestor.IngestDocument(ctx, job.CVID.String(), DocTypeCandidate, cvText); err != nil {
		return err
	}
	return e.ingestor.IngestDocument(ctx, job.ReportID.String(), DocTypeCandidate, projectText)
}

// setFields writes progress markers. A marker write failure is logged but
// does not interrupt the pipeline; the job's outcome fields are written
// with checked errors separately.
func (e *evaluatorService) setFields(jobID uuid.UUID, log *zap.Logger, fields map[string]interface{}) {
	if err := e.jobRepo.SetFields(jobID, fields); err != nil {
		log.Warn("failed to write job fields", zap.Error(err))
	}
}

func (e *evaluatorService) failJob(jobID uuid.UUID, log *zap.Logger, msg string) error {
	if err := e.jobRepo.SetFields(jobID, map[string]interface{}{
		"status":        models.StatusFailed,
		"error_message": msg,
		"failed_at":     time.Now(),
	}); err != nil {
		log.Error("failed to record job failure", zap.Error(err))
	}

	log.Error("job failed", zap.String("reason", msg))
	return errors.New(msg)
}
