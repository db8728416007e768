package repositories

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"ai-evaluator/internal/models"
)

// JobRepository is the durable job record store. Writes are partial,
// per-column merges: only one worker owns a job at a time, so no
// read-modify-write cycle is needed and repeating a step's writes after
// redelivery is harmless.
type JobRepository interface {
	Create(job *models.Job) error
	FindByID(id uuid.UUID) (*models.Job, error)
	SetFields(id uuid.UUID, fields map[string]interface{}) error
	FindPending(limit int) ([]models.Job, error)
}

type jobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) Create(job *models.Job) error {
	if err := r.db.Create(job).Error; err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (r *jobRepository) FindByID(id uuid.UUID) (*models.Job, error) {
	var job models.Job
	if err := r.db.Where("id = ?", id).First(&job).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("job not found")
		}
		return nil, fmt.Errorf("failed to find job: %w", err)
	}
	return &job, nil
}

// SetFields merges the given columns into the job row.
func (r *jobRepository) SetFields(id uuid.UUID, fields map[string]interface{}) error {
	result := r.db.Model(&models.Job{}).
		Where("id = ?", id).
		Updates(fields)

	if result.Error != nil {
		return fmt.Errorf("failed to update job fields: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("job not found")
	}

	return nil
}

// FindPending returns queued jobs, oldest first. Used by the dispatcher's
// poller to re-deliver jobs that were never picked up.
func (r *jobRepository) FindPending(limit int) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.
		Where("status = ?", models.StatusQueued).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobs).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find pending jobs: %w", err)
	}

	return jobs, nil
}
