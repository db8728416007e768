package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"ai-evaluator/internal/models"
	"ai-evaluator/internal/repositories"
)

type ResultHandler struct {
	jobRepo repositories.JobRepository
}

func NewResultHandler(jobRepo repositories.JobRepository) *ResultHandler {
	return &ResultHandler{
		jobRepo: jobRepo,
	}
}

// HandleGetResult handles GET /result/:id. The result payload is present
// only for completed jobs; failed jobs expose the short error message and
// nothing else.
func (h *ResultHandler) HandleGetResult(c *fiber.Ctx) error {
	idParam := c.Params("id")
	jobID, err := uuid.Parse(idParam)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid job ID format",
		})
	}

	job, err := h.jobRepo.FindByID(jobID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Job not found",
		})
	}

	response := models.ResultResponse{
		ID:     job.ID.String(),
		Status: string(job.Status),
	}

	if job.Status == models.StatusCompleted && job.Result != nil {
		var result models.FinalResult
		if err := json.Unmarshal([]byte(*job.Result), &result); err == nil {
			result.Meta = nil // internal step bookkeeping stays internal
			response.Result = &result
		}
	}

	if job.Status == models.StatusFailed {
		response.ErrorMessage = job.ErrorMessage
	}

	return c.JSON(response)
}
