package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/legal-service/internal/api/dto"
	"github.com/spec-kit/legal-service/internal/domain"
	"github.com/spec-kit/legal-service/internal/service"
)

// LitigationHandler exposes the litigation case lifecycle.
type LitigationHandler struct {
	service *service.LitigationService
}

// NewLitigationHandler constructs handler.
func NewLitigationHandler(litigation *service.LitigationService) *LitigationHandler {
	return &LitigationHandler{service: litigation}
}

// Create POST /v1/litigation.
func (h *LitigationHandler) Create(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateLitigationRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	created, err := h.service.Create(c.UserContext(), actor, service.LitigationCreateInput{
		RequestInput: requestInput(req.CreateConsultationRequest),
		CaseType:     req.CaseType,
		CourtName:    req.CourtName,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": litigationResponse(created)})
}

// Get GET /v1/litigation/:id.
func (h *LitigationHandler) Get(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	found, err := h.service.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": litigationResponse(found)})
}

// List GET /v1/litigation.
func (h *LitigationHandler) List(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	found, err := h.service.List(c.UserContext(), actor, parseListQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.LitigationResponse, 0, len(found))
	for _, item := range found {
		items = append(items, litigationResponse(item))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Assign POST /v1/litigation/:id/assign.
func (h *LitigationHandler) Assign(c *fiber.Ctx) error {
	var req dto.AssignRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	return h.apply(c, func(ctx *fiber.Ctx, actor service.Actor) (*domain.LitigationCase, error) {
		return h.service.Assign(ctx.UserContext(), actor, ctx.Params("id"), req.ProviderID)
	})
}

// AutoAssign POST /v1/litigation/:id/auto-assign.
func (h *LitigationHandler) AutoAssign(c *fiber.Ctx) error {
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
	return c.JSON(fiber.Map{"data": dto.AssignmentResponse{Assigned: assigned, Request: litigationResponse(updated)}})
}

// SendQuote POST /v1/litigation/:id/quote.
func (h *LitigationHandler) SendQuote(c *fiber.Ctx) error {
	var req dto.QuoteRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	return h.apply(c, func(ctx *fiber.Ctx, actor service.Actor) (*domain.LitigationCase, error) {
		return h.service.SendQuote(ctx.UserContext(), actor, ctx.Params("id"), service.QuoteInput{
			Amount:     req.Amount,
			Currency:   req.Currency,
			ValidUntil: req.ValidUntil,
			Details:    req.Details,
		})
	})
}

// AcceptQuote POST /v1/litigation/:id/accept-quote.
func (h *LitigationHandler) AcceptQuote(c *fiber.Ctx) error {
	return h.apply(c, func(ctx *fiber.Ctx, actor service.Actor) (*domain.LitigationCase, error) {
		return h.service.AcceptQuote(ctx.UserContext(), actor, ctx.Params("id"))
	})
}

// MarkAsPaid POST /v1/litigation/:id/pay.
func (h *LitigationHandler) MarkAsPaid(c *fiber.Ctx) error {
	var req dto.PaymentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	return h.apply(c, func(ctx *fiber.Ctx, actor service.Actor) (*domain.LitigationCase, error) {
		return h.service.MarkAsPaid(ctx.UserContext(), actor, ctx.Params("id"), service.PaymentInput{
			Reference: req.Reference,
			Amount:    req.Amount,
			Currency:  req.Currency,
		})
	})
}

// Refund POST /v1/litigation/:id/refund.
func (h *LitigationHandler) Refund(c *fiber.Ctx) error {
	var req dto.RefundRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	return h.apply(c, func(ctx *fiber.Ctx, actor service.Actor) (*domain.LitigationCase, error) {
		return h.service.ProcessRefund(ctx.UserContext(), actor, ctx.Params("id"), req.Reference, req.Reason)
	})
}

// Activate POST /v1/litigation/:id/activate.
func (h *LitigationHandler) Activate(c *fiber.Ctx) error {
	return h.apply(c, func(ctx *fiber.Ctx, actor service.Actor) (*domain.LitigationCase, error) {
		return h.service.Activate(ctx.UserContext(), actor, ctx.Params("id"))
	})
}

// Close POST /v1/litigation/:id/close.
func (h *LitigationHandler) Close(c *fiber.Ctx) error {
	var req dto.ReasonRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	return h.apply(c, func(ctx *fiber.Ctx, actor service.Actor) (*domain.LitigationCase, error) {
		return h.service.Close(ctx.UserContext(), actor, ctx.Params("id"), req.Reason)
	})
}

// Cancel POST /v1/litigation/:id/cancel.
func (h *LitigationHandler) Cancel(c *fiber.Ctx) error {
	var req dto.ReasonRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	return h.apply(c, func(ctx *fiber.Ctx, actor service.Actor) (*domain.LitigationCase, error) {
		return h.service.Cancel(ctx.UserContext(), actor, ctx.Params("id"), req.Reason)
	})
}

// OverrideSLA POST /v1/litigation/:id/sla.
func (h *LitigationHandler) OverrideSLA(c *fiber.Ctx) error {
	var req dto.SLAOverrideRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	return h.apply(c, func(ctx *fiber.Ctx, actor service.Actor) (*domain.LitigationCase, error) {
		return h.service.OverrideSLA(ctx.UserContext(), actor, ctx.Params("id"), req.Deadline, req.Status)
	})
}

// History GET /v1/litigation/:id/history.
func (h *LitigationHandler) History(c *fiber.Ctx) error {
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

// Delete DELETE /v1/litigation/:id.
func (h *LitigationHandler) Delete(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func (h *LitigationHandler) apply(c *fiber.Ctx, op func(*fiber.Ctx, service.Actor) (*domain.LitigationCase, error)) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	updated, err := op(c, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": litigationResponse(updated)})
}
