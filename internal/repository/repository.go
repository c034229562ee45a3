package repository

import (
	"context"

	"github.com/spec-kit/legal-service/internal/domain"
)

// RequestFilter captures listing parameters shared by both request families.
type RequestFilter struct {
	SubscriberID *domain.SubscriberID
	ProviderID   *domain.ProviderID
	Statuses     []string
	Urgencies    []domain.Urgency
	Category     *domain.Category
	Limit        int
	Offset       int
}

// ConsultationRepository persists consultation requests. Soft-deleted rows are
// reported as not found.
type ConsultationRepository interface {
	Create(ctx context.Context, c *domain.ConsultationRequest) error
	Update(ctx context.Context, c *domain.ConsultationRequest) error
	FindByID(ctx context.Context, id domain.RequestID) (*domain.ConsultationRequest, error)
	List(ctx context.Context, filter RequestFilter) ([]*domain.ConsultationRequest, error)
	ListOpen(ctx context.Context) ([]*domain.ConsultationRequest, error)
}

// LitigationRepository persists litigation cases.
type LitigationRepository interface {
	Create(ctx context.Context, l *domain.LitigationCase) error
	Update(ctx context.Context, l *domain.LitigationCase) error
	FindByID(ctx context.Context, id domain.RequestID) (*domain.LitigationCase, error)
	List(ctx context.Context, filter RequestFilter) ([]*domain.LitigationCase, error)
	ListOpen(ctx context.Context) ([]*domain.LitigationCase, error)
}

// StatusHistoryRepository stores audit entries. There is no update or delete.
type StatusHistoryRepository interface {
	Create(ctx context.Context, h *domain.StatusHistory) error
	ListByAggregate(ctx context.Context, kind domain.AggregateType, id domain.RequestID) ([]*domain.StatusHistory, error)
	Latest(ctx context.Context, kind domain.AggregateType, id domain.RequestID) (*domain.StatusHistory, error)
	Count(ctx context.Context, kind domain.AggregateType, id domain.RequestID) (int, error)
}

// Repositories groups the handles that share one transactional context.
type Repositories struct {
	Consultations ConsultationRepository
	Litigations   LitigationRepository
	History       StatusHistoryRepository
}

// UnitOfWork runs work atomically. Calling Transaction with a context that
// already carries an open transaction reuses it.
type UnitOfWork interface {
	Transaction(ctx context.Context, work func(ctx context.Context, repos Repositories) error) error
	Repositories() Repositories
}

const (
	defaultListLimit = 20
	MaxListLimit     = 100
)

// NormalizePage applies the default page size, caps it at MaxListLimit and
// clamps negative offsets.
func (f RequestFilter) NormalizePage() (limit, offset int) {
	limit = f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset = f.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
