package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ai-evaluator/internal/models"
)

type fakeJobRepo struct {
	jobs   map[uuid.UUID]*models.Job
	fields map[uuid.UUID]map[string]interface{}
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{
		jobs:   make(map[uuid.UUID]*models.Job),
		fields: make(map[uuid.UUID]map[string]interface{}),
	}
}

func (f *fakeJobRepo) Create(job *models.Job) error {
	f.jobs[job.ID] = job
	f.fields[job.ID] = map[string]interface{}{"status": job.Status}
	return nil
}

func (f *fakeJobRepo) FindByID(id uuid.UUID) (*models.Job, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, errors.New("job not found")
	}
	return job, nil
}

func (f *fakeJobRepo) SetFields(id uuid.UUID, fields map[string]interface{}) error {
	if _, ok := f.jobs[id]; !ok {
		return errors.New("job not found")
	}
	for k, v := range fields {
		f.fields[id][k] = v
	}
	return nil
}

func (f *fakeJobRepo) FindPending(limit int) ([]models.Job, error) {
	return nil, nil
}

type fakeDocRepo struct {
	docs map[uuid.UUID]*models.Document
}

func (f *fakeDocRepo) Create(doc *models.Document) error {
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeDocRepo) FindByID(id uuid.UUID) (*models.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, errors.New("document not found")
	}
	return doc, nil
}

type fakeParser struct {
	texts map[string]string
	errs  map[string]error
}

func (f *fakeParser) ExtractText(filePath string) (string, error) {
	if err, ok := f.errs[filePath]; ok {
		return "", err
	}
	text, ok := f.texts[filePath]
	if !ok {
		return "", fmt.Errorf("no text for %s", filePath)
	}
	return text, nil
}

type fakeIngestor struct {
	err   error
	calls []string
}

func (f *fakeIngestor) IngestDocument(_ context.Context, docID, docType, _ string) error {
	f.calls = append(f.calls, docID+":"+docType)
	return f.err
}

// routingCompleter answers each of the three pipeline calls based on the
// system prompt it receives.
type routingCompleter struct {
	cvReply      string
	projectReply string
	finalReply   string
	cvErr        error
	projectErr   error
	finalErr     error
	calls        int
}

func (r *routingCompleter) Complete(_ context.Context, system, _ string, _ float32, _ int32) (string, error) {
	r.calls++
	switch {
	case strings.Contains(system, "recruiter"):
		return r.cvReply, r.cvErr
	case strings.Contains(system, "engineering reviewer"):
		return r.projectReply, r.projectErr
	case strings.Contains(system, "hiring manager"):
		return r.finalReply, r.finalErr
	}
	return "", errors.New("unknown system prompt")
}

const (
	validCVReply = `{
		"cv_match_rate": 0.93,
		"cv_feedback": "Strong backend profile with relevant cloud experience.",
		"breakdown": {"technical_skills": 4, "experience_level": 3, "achievements": 4, "cultural_fit": 5}
	}`
	validProjectReply = `{
		"project_score": 4.9,
		"project_feedback": "Correct implementation with solid retries.",
		"breakdown": {"correctness": 5, "code_quality": 4, "resilience": 3, "documentation": 4, "creativity": 2}
	}`
	validFinalReply = `{"overall_summary": "Hire. Strong technical skills with minor documentation gaps."}`
)

type pipelineFixture struct {
	jobID     uuid.UUID
	jobRepo   *fakeJobRepo
	ingestor  *fakeIngestor
	completer *routingCompleter
	evaluator EvaluatorService
}

func newPipelineFixture(t *testing.T, completer *routingCompleter, ingestor *fakeIngestor, searcher *stubSearcher, parser *fakeParser) *pipelineFixture {
	t.Helper()

	cvID := uuid.New()
	reportID := uuid.New()

	docRepo := &fakeDocRepo{docs: map[uuid.UUID]*models.Document{
		cvID:     {ID: cvID, FilePath: "cv_1.pdf", FileType: "cv"},
		reportID: {ID: reportID, FilePath: "rep_1.pdf", FileType: "project_report"},
	}}

	if parser == nil {
		parser = &fakeParser{texts: map[string]string{
			"cv_1.pdf":  "five years of Go and distributed systems",
			"rep_1.pdf": "implemented an async evaluation pipeline with retries",
		}}
	}

	if searcher == nil {
		searcher = &stubSearcher{results: map[string][]SearchResult{
			DocTypeCVContext:      chunksOf(DocTypeCVContext, 3),
			DocTypeCVRubric:       chunksOf(DocTypeCVRubric, 2),
			DocTypeProjectContext: chunksOf(DocTypeProjectContext, 4),
			DocTypeProjectRubric:  chunksOf(DocTypeProjectRubric, 2),
		}}
	}

	assembler := newTestAssembler(&stubEmbedder{}, searcher)

	llm := newLLMClient(completer, 0.25, 1000, 3, zap.NewNop())
	llm.sleep = func(context.Context, time.Duration) error { return nil }

	jobRepo := newFakeJobRepo()
	jobID := uuid.New()
	require.NoError(t, jobRepo.Create(&models.Job{
		ID:       jobID,
		JobTitle: "Backend Engineer",
		CVID:     cvID,
		ReportID: reportID,
		Status:   models.StatusQueued,
	}))

	evaluator := NewEvaluatorService(jobRepo, docRepo, parser, ingestor, assembler, llm, zap.NewNop())

	return &pipelineFixture{
		jobID:     jobID,
		jobRepo:   jobRepo,
		ingestor:  ingestor,
		completer: completer,
		evaluator: evaluator,
	}
}

func (f *pipelineFixture) field(key string) interface{} {
	return f.jobRepo.fields[f.jobID][key]
}

func (f *pipelineFixture) finalResult(t *testing.T) *models.FinalResult {
	t.Helper()

	raw, ok := f.field("result").(string)
	require.True(t, ok, "result field must be set")

	var result models.FinalResult
	require.NoError(t, json.Unmarshal([]byte(raw), &result))
	return &result
}

func TestEvaluateCandidateCompletes(t *testing.T) {
	completer := &routingCompleter{
		cvReply:      validCVReply,
		projectReply: validProjectReply,
		finalReply:   validFinalReply,
	}
	f := newPipelineFixture(t, completer, &fakeIngestor{}, nil, nil)

	err := f.evaluator.EvaluateCandidate(context.Background(), f.jobID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusCompleted, f.field("status"))
	assert.Equal(t, models.StepDone, f.field("step_parse"))
	assert.Equal(t, models.StepDone, f.field("step_ingest_candidates"))
	assert.Equal(t, models.StepDone, f.field("step_rag"))
	assert.Equal(t, models.StepDone, f.field("step_cv_eval"))
	assert.Equal(t, models.StepDone, f.field("step_project_eval"))
	assert.Equal(t, models.StepDone, f.field("step_final"))
	assert.Equal(t, 5, f.field("cv_context_count"))
	assert.Equal(t, 6, f.field("project_context_count"))

	result := f.finalResult(t)
	assert.Equal(t, 0.78, result.CVMatchRate)
	assert.Equal(t, 3.9, result.ProjectScore)
	assert.Equal(t, "Hire. Strong technical skills with minor documentation gaps.", result.OverallSummary)
	require.NotNil(t, result.Meta)
	assert.True(t, result.Meta.Steps.IngestCandidates)

	// Both candidate documents were ingested under the candidate type.
	assert.Len(t, f.ingestor.calls, 2)
	for _, call := range f.ingestor.calls {
		assert.True(t, strings.HasSuffix(call, ":"+DocTypeCandidate))
	}
}

func TestEvaluateCandidateFailsOnPersistentInvalidOutput(t *testing.T) {
	completer := &routingCompleter{
		cvReply:      "I am sorry, I cannot produce a score.",
		projectReply: validProjectReply,
		finalReply:   validFinalReply,
	}
	f := newPipelineFixture(t, completer, &fakeIngestor{}, nil, nil)

	err := f.evaluator.EvaluateCandidate(context.Background(), f.jobID)
	require.Error(t, err)

	assert.Equal(t, models.StatusFailed, f.field("status"))
	assert.Equal(t, models.StepFailed, f.field("step_cv_eval"))

	errMsg, ok := f.field("error_message").(string)
	require.True(t, ok)
	assert.Contains(t, errMsg, "invalid LLM output")

	// The whole retry budget was spent on the CV call and nothing after it
	// ran.
	assert.Equal(t, 3, f.completer.calls)
	assert.Nil(t, f.field("result"))
}

func TestEvaluateCandidateSurvivesIngestFailure(t *testing.T) {
	completer := &routingCompleter{
		cvReply:      validCVReply,
		projectReply: validProjectReply,
		finalReply:   validFinalReply,
	}
	ingestor := &fakeIngestor{err: errors.New("vector store unavailable")}
	f := newPipelineFixture(t, completer, ingestor, nil, nil)

	err := f.evaluator.EvaluateCandidate(context.Background(), f.jobID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusCompleted, f.field("status"))
	assert.Equal(t, models.StepFailed, f.field("step_ingest_candidates"))
	assert.Equal(t, "vector store unavailable", f.field("ingest_error"))

	result := f.finalResult(t)
	require.NotNil(t, result.Meta)
	assert.False(t, result.Meta.Steps.IngestCandidates)
}

func TestEvaluateCandidateSurvivesRubricRetrievalFailure(t *testing.T) {
	completer := &routingCompleter{
		cvReply:      validCVReply,
		projectReply: validProjectReply,
		finalReply:   validFinalReply,
	}
	searcher := &stubSearcher{
		results: map[string][]SearchResult{
			DocTypeCVContext:      chunksOf(DocTypeCVContext, 3),
			DocTypeProjectContext: chunksOf(DocTypeProjectContext, 4),
		},
		errs: map[string]error{
			DocTypeCVRubric:      errors.New("rubric collection down"),
			DocTypeProjectRubric: errors.New("rubric collection down"),
		},
	}
	f := newPipelineFixture(t, completer, &fakeIngestor{}, searcher, nil)

	err := f.evaluator.EvaluateCandidate(context.Background(), f.jobID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusCompleted, f.field("status"))
	assert.Equal(t, models.StepDone, f.field("step_rag"))
	// Only the surviving domain categories contribute context.
	assert.Equal(t, 3, f.field("cv_context_count"))
	assert.Equal(t, 4, f.field("project_context_count"))
}

func TestEvaluateCandidateUsesPlaceholderSummaryOnFailure(t *testing.T) {
	completer := &routingCompleter{
		cvReply:      validCVReply,
		projectReply: validProjectReply,
		finalErr:     errors.New("model unavailable"),
	}
	f := newPipelineFixture(t, completer, &fakeIngestor{}, nil, nil)

	err := f.evaluator.EvaluateCandidate(context.Background(), f.jobID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusCompleted, f.field("status"))
	assert.Equal(t, models.StepFailed, f.field("step_final"))

	result := f.finalResult(t)
	assert.Equal(t, missingSummaryText, result.OverallSummary)
	assert.Equal(t, 0.78, result.CVMatchRate)
	assert.Equal(t, 3.9, result.ProjectScore)
}

func TestEvaluateCandidateFailsOnParseError(t *testing.T) {
	completer := &routingCompleter{
		cvReply:      validCVReply,
		projectReply: validProjectReply,
		finalReply:   validFinalReply,
	}
	parser := &fakeParser{
		texts: map[string]string{"rep_1.pdf": "report text"},
		errs:  map[string]error{"cv_1.pdf": errors.New("no text content found in PDF")},
	}
	f := newPipelineFixture(t, completer, &fakeIngestor{}, nil, parser)

	err := f.evaluator.EvaluateCandidate(context.Background(), f.jobID)
	require.Error(t, err)

	assert.Equal(t, models.StatusFailed, f.field("status"))
	assert.Equal(t, models.StepFailed, f.field("step_parse"))

	errMsg, ok := f.field("error_message").(string)
	require.True(t, ok)
	assert.Contains(t, errMsg, "failed to parse CV")

	// Nothing downstream ran.
	assert.Equal(t, 0, f.completer.calls)
	assert.Empty(t, f.ingestor.calls)
}
