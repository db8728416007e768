package models

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Pipeline step marker values. Once a step is "done" no later step in the
// same execution reverts it.
const (
	StepStarted = "started"
	StepDone    = "done"
	StepFailed  = "failed"
)

// Job is the durable record of one evaluation request. It is mutated only
// by the worker that owns the job; the result path reads it as-is, so every
// step change is observable immediately.
type Job struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	JobTitle string    `gorm:"type:text" json:"job_title"`
	CVID     uuid.UUID `gorm:"type:uuid;not null;column:cv_id" json:"cv_id"`
	ReportID uuid.UUID `gorm:"type:uuid;not null;column:report_id" json:"report_id"`
	Status   JobStatus `gorm:"not null;default:'queued'" json:"status"`

	StepParse            string `gorm:"type:text;column:step_parse" json:"step_parse,omitempty"`
	StepIngestCandidates string `gorm:"type:text;column:step_ingest_candidates" json:"step_ingest_candidates,omitempty"`
	StepRAG              string `gorm:"type:text;column:step_rag" json:"step_rag,omitempty"`
	StepCVEval           string `gorm:"type:text;column:step_cv_eval" json:"step_cv_eval,omitempty"`
	StepProjectEval      string `gorm:"type:text;column:step_project_eval" json:"step_project_eval,omitempty"`
	StepFinal            string `gorm:"type:text;column:step_final" json:"step_final,omitempty"`

	CVLength            int `gorm:"column:cv_length" json:"cv_length,omitempty"`
	ProjectLength       int `gorm:"column:project_length" json:"project_length,omitempty"`
	CVContextCount      int `gorm:"column:cv_context_count" json:"cv_context_count,omitempty"`
	ProjectContextCount int `gorm:"column:project_context_count" json:"project_context_count,omitempty"`

	CVResult      *string `gorm:"type:text;column:cv_result" json:"cv_result,omitempty"`
	ProjectResult *string `gorm:"type:text;column:project_result" json:"project_result,omitempty"`
	Result        *string `gorm:"type:text;column:result" json:"result,omitempty"`
	ErrorMessage  *string `gorm:"type:text;column:error_message" json:"error_message,omitempty"`
	IngestError   *string `gorm:"type:text;column:ingest_error" json:"ingest_error,omitempty"`

	CreatedAt   time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	FailedAt    *time.Time `json:"failed_at,omitempty"`

	// Relations
	CVDocument     Document `gorm:"foreignKey:CVID" json:"-"`
	ReportDocument Document `gorm:"foreignKey:ReportID" json:"-"`
}

func (Job) TableName() string {
	return "jobs"
}
