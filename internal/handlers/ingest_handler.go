package handlers

import (
	"github.com/gofiber/fiber/v2"

	"ai-evaluator/internal/models"
	"ai-evaluator/internal/services"
)

type IngestHandler struct {
	ingestService services.IngestService
}

func NewIngestHandler(ingestService services.IngestService) *IngestHandler {
	return &IngestHandler{
		ingestService: ingestService,
	}
}

// HandleIngest handles POST /ingest: pushes ground-truth text (job
// descriptions, case briefs, rubrics) into the retrieval store.
func (h *IngestHandler) HandleIngest(c *fiber.Ctx) error {
	var req models.IngestRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	if req.DocID == "" || req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "doc_id and content are required",
		})
	}

	if req.DocType == "" {
		req.DocType = services.DocTypeCVContext
	}

	if err := h.ingestService.IngestDocument(c.Context(), req.DocID, req.DocType, req.Content); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Document " + req.DocID + " ingested successfully",
	})
}
