package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"ai-evaluator/internal/models"
)

// PromptBuilder assembles the system and user prompts for the three model
// calls. The JSON shapes requested here are the ones the normalizer
// expects; change them together.
type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

const cvSystemPrompt = `You are an expert technical recruiter and scorecard engine. Produce a numeric match score (0.0-1.0) and concise feedback for a candidate CV against the provided job requirements and the CV scoring rubric. Follow the scoring rubric weights and return only the JSON object requested.`

const projectSystemPrompt = `You are an expert engineering reviewer. Evaluate the candidate's project report against the Project Context and Project Scoring Rubric. Provide a numeric project_score (1.0-5.0) and project_feedback.`

const finalSystemPrompt = `You are a senior hiring manager summarizing candidate evaluation outputs. Produce a concise 3-5 sentence overall_summary that highlights major strengths, main gaps, and one actionable recommendation. Use only the CV and Project structured outputs provided.`

func (pb *PromptBuilder) CVSystemPrompt() string      { return cvSystemPrompt }
func (pb *PromptBuilder) ProjectSystemPrompt() string { return projectSystemPrompt }
func (pb *PromptBuilder) FinalSystemPrompt() string   { return finalSystemPrompt }

// BuildCVUserPrompt combines retrieved context and the CV text into the CV
// evaluation prompt.
func (pb *PromptBuilder) BuildCVUserPrompt(contextChunks []string, cvText string) string {
	return fmt.Sprintf(`--- JOB CONTEXT (retrieved chunks) ---
%s

--- CV TEXT ---
%s

--- SCORING RUBRIC (short) ---
Technical Skills Match (40%%), Experience Level (25%%), Relevant Achievements (20%%), Cultural Fit (15%%).
For each rubric item, score 1-5. Then compute a weighted average and convert to decimal 0.0-1.0 (scale: 1=0.2, 5=1.0). Round to two decimal places.

Return JSON exactly in this format:
{
  "cv_match_rate": 0.00,
  "cv_feedback": "short paragraph (2-4 sentences)",
  "breakdown": {
     "technical_skills": 1,
     "experience_level": 1,
     "achievements": 1,
     "cultural_fit": 1
  }
}`, formatContext(contextChunks), cvText)
}

// BuildProjectUserPrompt combines retrieved context and the report text
// into the project evaluation prompt.
func (pb *PromptBuilder) BuildProjectUserPrompt(contextChunks []string, reportText string) string {
	return fmt.Sprintf(`--- PROJECT CONTEXT (retrieved chunks) ---
%s

--- PROJECT REPORT TEXT ---
%s

--- PROJECT RUBRIC (short) ---
Correctness (30%%), Code Quality (25%%), Resilience & Error Handling (20%%), Documentation (15%%), Creativity/Bonus (10%%).
For each criterion, score 1-5. Compute weighted average -> project_score (scale 1.0-5.0). Round to one decimal place.

Return JSON exactly:
{
  "project_score": 1.0,
  "project_feedback": "short paragraph (2-4 sentences)",
  "breakdown": {
     "correctness": 1,
     "code_quality": 1,
     "resilience": 1,
     "documentation": 1,
     "creativity": 1
  }
}`, formatContext(contextChunks), reportText)
}

// BuildFinalUserPrompt feeds both normalized evaluation objects, not raw
// document text, into the summarization call.
func (pb *PromptBuilder) BuildFinalUserPrompt(cvEval *models.CVEvaluation, projectEval *models.ProjectEvaluation) string {
	cvJSON, _ := json.MarshalIndent(cvEval, "", "  ")
	projectJSON, _ := json.MarshalIndent(projectEval, "", "  ")

	return fmt.Sprintf(`CV evaluation:
%s

Project evaluation:
%s

Return exactly:
{
  "overall_summary": "3-5 sentence summary"
}`, string(cvJSON), string(projectJSON))
}

func formatContext(chunks []string) string {
	if len(chunks) == 0 {
		return "No relevant context found."
	}

	var parts []string
	for i, chunk := range chunks {
		parts = append(parts, fmt.Sprintf("--- Context %d ---\n%s", i+1, strings.TrimSpace(chunk)))
	}

	return strings.Join(parts, "\n\n")
}
