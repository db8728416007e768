package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"ai-evaluator/internal/models"
	"ai-evaluator/internal/repositories"
	"ai-evaluator/internal/services"
)

type EvaluateHandler struct {
	jobRepo repositories.JobRepository
	docRepo repositories.DocumentRepository
	worker  services.Worker
}

func NewEvaluateHandler(
	jobRepo repositories.JobRepository,
	docRepo repositories.DocumentRepository,
	worker services.Worker,
) *EvaluateHandler {
	return &EvaluateHandler{
		jobRepo: jobRepo,
		docRepo: docRepo,
		worker:  worker,
	}
}

// HandleEvaluate handles POST /evaluate: creates the job record in queued
// state and hands the id to the dispatcher.
func (h *EvaluateHandler) HandleEvaluate(c *fiber.Ctx) error {
	var req models.EvaluateRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	if req.JobTitle == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "job_title is required",
		})
	}

	if req.CVID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "cv_id is required",
		})
	}

	if req.ReportID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "report_id is required",
		})
	}

	cvID, err := uuid.Parse(req.CVID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid cv_id format",
		})
	}

	reportID, err := uuid.Parse(req.ReportID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid report_id format",
		})
	}

	if _, err := h.docRepo.FindByID(cvID); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "CV document not found",
		})
	}

	if _, err := h.docRepo.FindByID(reportID); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Project document not found",
		})
	}

	job := &models.Job{
		ID:        uuid.New(),
		JobTitle:  req.JobTitle,
		CVID:      cvID,
		ReportID:  reportID,
		Status:    models.StatusQueued,
		CreatedAt: time.Now(),
	}

	if err := h.jobRepo.Create(job); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create evaluation job",
		})
	}

	h.worker.EnqueueJob(job.ID)

	return c.Status(fiber.StatusAccepted).JSON(models.EvaluateResponse{
		ID:     job.ID.String(),
		Status: string(models.StatusQueued),
	})
}
