package models

import "time"

// CVBreakdown holds the fixed rubric sub-scores for a CV evaluation. Each
// value is an integer in [1, 5] after normalization.
type CVBreakdown struct {
	TechnicalSkills int `json:"technical_skills"`
	ExperienceLevel int `json:"experience_level"`
	Achievements    int `json:"achievements"`
	CulturalFit     int `json:"cultural_fit"`
}

// CVEvaluation is the normalized CV result. MatchRate is always recomputed
// from the breakdown, never taken verbatim from model output.
type CVEvaluation struct {
	MatchRate       float64     `json:"cv_match_rate"`
	Feedback        string      `json:"cv_feedback"`
	Breakdown       CVBreakdown `json:"breakdown"`
	ValidationNotes []string    `json:"validation_notes"`
}

type ProjectBreakdown struct {
	Correctness   int `json:"correctness"`
	CodeQuality   int `json:"code_quality"`
	Resilience    int `json:"resilience"`
	Documentation int `json:"documentation"`
	Creativity    int `json:"creativity"`
}

type ProjectEvaluation struct {
	Score           float64          `json:"project_score"`
	Feedback        string           `json:"project_feedback"`
	Breakdown       ProjectBreakdown `json:"breakdown"`
	ValidationNotes []string         `json:"validation_notes"`
}

type StepSummary struct {
	Parse            string `json:"parse"`
	IngestCandidates bool   `json:"ingest_candidates"`
	RAGCVCount       int    `json:"rag_cv_count"`
	RAGProjectCount  int    `json:"rag_project_count"`
}

type ResultMeta struct {
	Steps       StepSummary `json:"steps"`
	CompletedAt time.Time   `json:"completed_at"`
}

// FinalResult aggregates both evaluations plus the narrative summary. The
// score fields are clamped to their canonical ranges exactly once, when
// this struct is assembled.
type FinalResult struct {
	CVMatchRate      float64          `json:"cv_match_rate"`
	CVFeedback       string           `json:"cv_feedback"`
	CVBreakdown      CVBreakdown      `json:"cv_breakdown"`
	ProjectScore     float64          `json:"project_score"`
	ProjectFeedback  string           `json:"project_feedback"`
	ProjectBreakdown ProjectBreakdown `json:"project_breakdown"`
	OverallSummary   string           `json:"overall_summary"`
	Meta             *ResultMeta      `json:"meta,omitempty"`
}
