package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/legal-service/internal/api/dto"
	"github.com/spec-kit/legal-service/internal/domain"
	"github.com/spec-kit/legal-service/internal/service"
)

// ConsultationsHandler exposes the consultation lifecycle.
type ConsultationsHandler struct {
	service *service.ConsultationService
}

// NewConsultationsHandler constructs handler.
func NewConsultationsHandler(consultations *service.ConsultationService) *ConsultationsHandler {
	return &ConsultationsHandler{service: consultations}
}

// Create POST /v1/consultations.
func (h *ConsultationsHandler) Create(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateConsultationRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	created, err := h.service.Create(c.UserContext(), actor, requestInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": consultationResponse(created)})
}

// Get GET /v1/consultations/:id.
func (h *ConsultationsHandler) Get(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	found, err := h.service.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": consultationResponse(found)})
}

// List GET /v1/consultations.
func (h *ConsultationsHandler) List(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	found, err := h.service.List(c.UserContext(), actor, parseListQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.ConsultationResponse, 0, len(found))
	for _, item := range found {
		items = append(items, consultationResponse(item))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Assign POST /v1/consultations/:id/assign.
func (h *ConsultationsHandler) Assign(c *fiber.Ctx) error {
	var req dto.AssignRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	return h.apply(c, func(ctx *fiber.Ctx, actor service.Actor) (*domain.ConsultationRequest, error) {
		return h.service.Assign(ctx.UserContext(), actor, ctx.Params("id"), req.ProviderID)
	})
}

// AutoAssign POST /v1/consultations/:id/auto-assign.
func (h *ConsultationsHandler) AutoAssign(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.AutoAssignRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	updated, assigned, err := h.service.AutoAssign(c.UserContext(), actor, c.Params("id"), req.Region)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AssignmentResponse{Assigned: assigned, Request: consultationResponse(updated)}})
}

// Start POST /v1/consultations/:id/start.
func (h *ConsultationsHandler) Start(c *fiber.Ctx) error {
	return h.apply(c, func(ctx *fiber.Ctx, actor service.Actor) (*domain.ConsultationRequest, error) {
		return h.service.MarkInProgress(ctx.UserContext(), actor, ctx.Params("id"))
	})
}

// Respond POST /v1/consultations/:id/respond.
func (h *ConsultationsHandler) Respond(c *fiber.Ctx) error {
	return h.apply(c, func(ctx *fiber.Ctx, actor service.Actor) (*domain.ConsultationRequest, error) {
		return h.service.MarkResponded(ctx.UserContext(), actor, ctx.Params("id"))
	})
}

// RequestInfo POST /v1/consultations/:id/request-info.
func (h *ConsultationsHandler) RequestInfo(c *fiber.Ctx) error {
	var req dto.ReasonRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	return h.apply(c, func(ctx *fiber.Ctx, actor service.Actor) (*domain.ConsultationRequest, error) {
		return h.service.RequestAdditionalInfo(ctx.UserContext(), actor, ctx.Params("id"), req.Reason)
	})
}

// Complete POST /v1/consultations/:id/complete.
func (h *ConsultationsHandler) Complete(c *fiber.Ctx) error {
	return h.apply(c, func(ctx *fiber.Ctx, actor service.Actor) (*domain.ConsultationRequest, error) {
		return h.service.Complete(ctx.UserContext(), actor, ctx.Params("id"))
	})
}

// Cancel POST /v1/consultations/:id/cancel.
func (h *ConsultationsHandler) Cancel(c *fiber.Ctx) error {
	var req dto.ReasonRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	return h.apply(c, func(ctx *fiber.Ctx, actor service.Actor) (*domain.ConsultationRequest, error) {
		return h.service.Cancel(ctx.UserContext(), actor, ctx.Params("id"), req.Reason)
	})
}

// Dispute POST /v1/consultations/:id/dispute.
func (h *ConsultationsHandler) Dispute(c *fiber.Ctx) error {
	var req dto.ReasonRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	return h.apply(c, func(ctx *fiber.Ctx, actor service.Actor) (*domain.ConsultationRequest, error) {
		return h.service.Dispute(ctx.UserContext(), actor, ctx.Params("id"), req.Reason)
	})
}

// Rate POST /v1/consultations/:id/rate.
func (h *ConsultationsHandler) Rate(c *fiber.Ctx) error {
	var req dto.RateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	return h.apply(c, func(ctx *fiber.Ctx, actor service.Actor) (*domain.ConsultationRequest, error) {
		return h.service.Rate(ctx.UserContext(), actor, ctx.Params("id"), req.Rating, req.Feedback)
	})
}

// OverrideSLA POST /v1/consultations/:id/sla.
func (h *ConsultationsHandler) OverrideSLA(c *fiber.Ctx) error {
	var req dto.SLAOverrideRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	return h.apply(c, func(ctx *fiber.Ctx, actor service.Actor) (*domain.ConsultationRequest, error) {
		return h.service.OverrideSLA(ctx.UserContext(), actor, ctx.Params("id"), req.Deadline, req.Status)
	})
}

// History GET /v1/consultations/:id/history.
func (h *ConsultationsHandler) History(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	rows, err := h.service.History(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponse(rows)})
}

// Delete DELETE /v1/consultations/:id.
func (h *ConsultationsHandler) Delete(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func (h *ConsultationsHandler) apply(c *fiber.Ctx, op func(*fiber.Ctx, service.Actor) (*domain.ConsultationRequest, error)) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	updated, err := op(c, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": consultationResponse(updated)})
}
