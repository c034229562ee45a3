package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/legal-service/internal/domain"
	"github.com/spec-kit/legal-service/internal/service"
)

// SLAHandler serves live SLA reporting.
type SLAHandler struct {
	service *service.SLAService
}

func NewSLAHandler(sla *service.SLAService) *SLAHandler {
	return &SLAHandler{service: sla}
}

// Report GET /v1/sla/report?kind=consultation|litigation.
func (h *SLAHandler) Report(c *fiber.Ctx) error {
	kind := domain.AggregateType(c.Query("kind", string(domain.AggregateConsultation)))
	report, err := h.service.Report(c.UserContext(), kind)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": report})
}
