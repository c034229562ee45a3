package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/legal-service/internal/api/dto"
	"github.com/spec-kit/legal-service/internal/auth"
	"github.com/spec-kit/legal-service/internal/domain"
	"github.com/spec-kit/legal-service/internal/service"
	apperrors "github.com/spec-kit/legal-service/pkg/util/errorutil"
)

func actorFrom(c *fiber.Ctx) (service.Actor, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return service.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return service.Actor{ID: principal.SubjectID, Role: service.Role(principal.Role)}, nil
}

// parseBody treats an empty body as the zero payload.
func parseBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

func parseListQuery(c *fiber.Ctx) service.ListInput {
	return service.ListInput{
		SubscriberID: c.Query("subscriber_id"),
		ProviderID:   c.Query("provider_id"),
		Statuses:     splitQuery(c.Query("status")),
		Urgencies:    splitQuery(c.Query("urgency")),
		Category:     c.Query("category"),
		Limit:        queryInt(c, "limit"),
		Offset:       queryInt(c, "offset"),
	}
}

func splitQuery(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func queryInt(c *fiber.Ctx, key string) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func requestInput(req dto.CreateConsultationRequest) service.RequestInput {
	return service.RequestInput{
		SubscriberID: req.SubscriberID,
		Urgency:      req.Urgency,
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Jurisdiction: req.Jurisdiction,
	}
}

type requestView interface {
	ID() domain.RequestID
	Number() domain.HumanNumber
	SubscriberID() domain.SubscriberID
	AssignedProviderID() *domain.ProviderID
	Urgency() domain.Urgency
	Title() domain.Title
	Description() domain.Description
	Category() domain.Category
	Jurisdiction() string
	SubmittedAt() time.Time
	AssignedAt() *time.Time
	SLADeadline() *time.Time
	SLAStatus() domain.SLAStatus
	CreatedAt() time.Time
	UpdatedAt() time.Time
}

func baseResponse(r requestView, status string) dto.RequestResponse {
	return dto.RequestResponse{
		ID:           r.ID().String(),
		Number:       r.Number().String(),
		Status:       status,
		SubscriberID: r.SubscriberID().String(),
		ProviderID:   stringPtr(r.AssignedProviderID()),
		Urgency:      string(r.Urgency()),
		Title:        r.Title().String(),
		Description:  r.Description().String(),
		Category:     r.Category().String(),
		Jurisdiction: r.Jurisdiction(),
		SubmittedAt:  r.SubmittedAt(),
		AssignedAt:   r.AssignedAt(),
		SLADeadline:  r.SLADeadline(),
		SLAStatus:    string(r.SLAStatus()),
		CreatedAt:    r.CreatedAt(),
		UpdatedAt:    r.UpdatedAt(),
	}
}

func consultationResponse(c *domain.ConsultationRequest) dto.ConsultationResponse {
	resp := dto.ConsultationResponse{
		RequestResponse: baseResponse(c, string(c.Status())),
		RespondedAt:     c.RespondedAt(),
		CompletedAt:     c.CompletedAt(),
		ClosedAt:        c.ClosedAt(),
		Feedback:        c.Feedback(),
		RatedAt:         c.RatedAt(),
	}
	if r := c.Rating(); r != nil {
		v := r.Int()
		resp.Rating = &v
	}
	return resp
}

func litigationResponse(l *domain.LitigationCase) dto.LitigationResponse {
	resp := dto.LitigationResponse{
		RequestResponse:  baseResponse(l, string(l.Status())),
		CaseType:         l.CaseType(),
		CourtName:        l.CourtName(),
		QuoteSentAt:      l.QuoteSentAt(),
		QuoteAcceptedAt:  l.QuoteAcceptedAt(),
		PaymentStatus:    string(l.PaymentStatus()),
		PaymentReference: stringPtr(l.PaymentReference()),
		PaidAt:           l.PaidAt(),
		RefundReference:  stringPtr(l.RefundReference()),
		RefundedAt:       l.RefundedAt(),
		ActivatedAt:      l.ActivatedAt(),
		ClosedAt:         l.ClosedAt(),
	}
	if q := l.Quote(); q != nil {
		resp.Quote = &dto.QuoteResponse{Amount: moneyResponse(q.Amount), ValidUntil: q.ValidUntil, Details: q.Details}
	}
	if m := l.PaidAmount(); m != nil {
		paid := moneyResponse(*m)
		resp.PaidAmount = &paid
	}
	return resp
}

func moneyResponse(m domain.Money) dto.MoneyResponse {
	return dto.MoneyResponse{Amount: m.Amount().StringFixed(2), Currency: m.Currency()}
}

func historyResponse(rows []*domain.StatusHistory) []dto.StatusHistoryResponse {
	items := make([]dto.StatusHistoryResponse, 0, len(rows))
	for _, h := range rows {
		items = append(items, dto.StatusHistoryResponse{
			ID:         h.ID(),
			FromStatus: h.FromStatus(),
			ToStatus:   h.ToStatus(),
			Reason:     stringPtr(h.Reason()),
			ChangedBy:  stringPtr(h.ChangedBy()),
			Metadata:   h.Metadata(),
			ChangedAt:  h.ChangedAt(),
		})
	}
	return items
}

func stringPtr[T fmt.Stringer](v *T) *string {
	if v == nil {
		return nil
	}
	s := (*v).String()
	return &s
}
