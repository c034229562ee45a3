package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/spec-kit/legal-service/internal/domain"
	"github.com/spec-kit/legal-service/internal/repository"
	apperrors "github.com/spec-kit/legal-service/pkg/util/errorutil"
)

type consultationRepository struct {
	uow *UnitOfWork
}

func (r *consultationRepository) Create(_ context.Context, c *domain.ConsultationRequest) error {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	s := c.State()
	if _, exists := r.uow.consultations[s.ID]; exists {
		return apperrors.NewConflictingState("consultation already exists", map[string]any{"id": s.ID})
	}
	for _, other := range r.uow.consultations {
		if other.Number == s.Number {
			return apperrors.NewConflictingState("number already in use", map[string]any{"number": s.Number})
		}
	}
	r.uow.consultations[s.ID] = s
	return nil
}

func (r *consultationRepository) Update(_ context.Context, c *domain.ConsultationRequest) error {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	s := c.State()
	current, ok := r.uow.consultations[s.ID]
	if !ok || current.DeletedAt != nil {
		return apperrors.NewNotFound("consultation", map[string]any{"id": s.ID})
	}
	r.uow.consultations[s.ID] = s
	return nil
}

func (r *consultationRepository) FindByID(_ context.Context, id domain.RequestID) (*domain.ConsultationRequest, error) {
	r.uow.mu.RLock()
	defer r.uow.mu.RUnlock()
	s, ok := r.uow.consultations[id]
	if !ok || s.DeletedAt != nil {
		return nil, apperrors.NewNotFound("consultation", map[string]any{"id": id})
	}
	return domain.RestoreConsultation(s), nil
}

func (r *consultationRepository) List(_ context.Context, filter repository.RequestFilter) ([]*domain.ConsultationRequest, error) {
	r.uow.mu.RLock()
	defer r.uow.mu.RUnlock()
	var matched []domain.ConsultationState
	for _, s := range r.uow.consultations {
		if matches(filter, s.RequestState, string(s.Status)) {
			matched = append(matched, s)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].SubmittedAt.After(matched[j].SubmittedAt)
	})
	limit, offset := filter.NormalizePage()
	return restoreConsultations(page(matched, limit, offset)), nil
}

func (r *consultationRepository) ListOpen(_ context.Context) ([]*domain.ConsultationRequest, error) {
	r.uow.mu.RLock()
	defer r.uow.mu.RUnlock()
	var open []domain.ConsultationState
	for _, s := range r.uow.consultations {
		if s.DeletedAt == nil && !s.Status.IsTerminal() {
			open = append(open, s)
		}
	}
	sort.Slice(open, func(i, j int) bool {
		return open[i].SubmittedAt.Before(open[j].SubmittedAt)
	})
	return restoreConsultations(open), nil
}

func restoreConsultations(states []domain.ConsultationState) []*domain.ConsultationRequest {
	out := make([]*domain.ConsultationRequest, 0, len(states))
	for _, s := range states {
		out = append(out, domain.RestoreConsultation(s))
	}
	return out
}

type litigationRepository struct {
	uow *UnitOfWork
}

func (r *litigationRepository) Create(_ context.Context, l *domain.LitigationCase) error {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	s := l.State()
	if _, exists := r.uow.litigations[s.ID]; exists {
		return apperrors.NewConflictingState("litigation case already exists", map[string]any{"id": s.ID})
	}
	for _, other := range r.uow.litigations {
		if other.Number == s.Number {
			return apperrors.NewConflictingState("number already in use", map[string]any{"number": s.Number})
		}
	}
	r.uow.litigations[s.ID] = s
	return nil
}

func (r *litigationRepository) Update(_ context.Context, l *domain.LitigationCase) error {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	s := l.State()
	current, ok := r.uow.litigations[s.ID]
	if !ok || current.DeletedAt != nil {
		return apperrors.NewNotFound("litigation case", map[string]any{"id": s.ID})
	}
	r.uow.litigations[s.ID] = s
	return nil
}

func (r *litigationRepository) FindByID(_ context.Context, id domain.RequestID) (*domain.LitigationCase, error) {
	r.uow.mu.RLock()
	defer r.uow.mu.RUnlock()
	s, ok := r.uow.litigations[id]
	if !ok || s.DeletedAt != nil {
		return nil, apperrors.NewNotFound("litigation case", map[string]any{"id": id})
	}
	return domain.RestoreLitigation(s), nil
}

func (r *litigationRepository) List(_ context.Context, filter repository.RequestFilter) ([]*domain.LitigationCase, error) {
	r.uow.mu.RLock()
	defer r.uow.mu.RUnlock()
	var matched []domain.LitigationState
	for _, s := range r.uow.litigations {
		if matches(filter, s.RequestState, string(s.Status)) {
			matched = append(matched, s)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].SubmittedAt.After(matched[j].SubmittedAt)
	})
	limit, offset := filter.NormalizePage()
	return restoreLitigations(page(matched, limit, offset)), nil
}

func (r *litigationRepository) ListOpen(_ context.Context) ([]*domain.LitigationCase, error) {
	r.uow.mu.RLock()
	defer r.uow.mu.RUnlock()
	var open []domain.LitigationState
	for _, s := range r.uow.litigations {
		if s.DeletedAt == nil && !s.Status.IsTerminal() {
			open = append(open, s)
		}
	}
	sort.Slice(open, func(i, j int) bool {
		return open[i].SubmittedAt.Before(open[j].SubmittedAt)
	})
	return restoreLitigations(open), nil
}

func restoreLitigations(states []domain.LitigationState) []*domain.LitigationCase {
	out := make([]*domain.LitigationCase, 0, len(states))
	for _, s := range states {
		out = append(out, domain.RestoreLitigation(s))
	}
	return out
}

type historyRepository struct {
	uow *UnitOfWork
}

func (r *historyRepository) Create(_ context.Context, h *domain.StatusHistory) error {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	if r.uow.historyFault != nil {
		return r.uow.historyFault
	}
	r.uow.history = append(r.uow.history, h.State())
	return nil
}

func (r *historyRepository) ListByAggregate(_ context.Context, kind domain.AggregateType, id domain.RequestID) ([]*domain.StatusHistory, error) {
	r.uow.mu.RLock()
	defer r.uow.mu.RUnlock()
	var out []*domain.StatusHistory
	for _, s := range r.uow.history {
		if s.AggregateType == kind && s.AggregateID == id {
			out = append(out, domain.RestoreStatusHistory(s))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ChangedAt().Before(out[j].ChangedAt())
	})
	return out, nil
}

func (r *historyRepository) Latest(ctx context.Context, kind domain.AggregateType, id domain.RequestID) (*domain.StatusHistory, error) {
	entries, err := r.ListByAggregate(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, apperrors.NewNotFound("status history", map[string]any{"aggregate_id": id})
	}
	return entries[len(entries)-1], nil
}

func (r *historyRepository) Count(_ context.Context, kind domain.AggregateType, id domain.RequestID) (int, error) {
	r.uow.mu.RLock()
	defer r.uow.mu.RUnlock()
	count := 0
	for _, s := range r.uow.history {
		if s.AggregateType == kind && s.AggregateID == id {
			count++
		}
	}
	return count, nil
}

func matches(filter repository.RequestFilter, s domain.RequestState, status string) bool {
	if s.DeletedAt != nil {
		return false
	}
	if filter.SubscriberID != nil && s.SubscriberID != *filter.SubscriberID {
		return false
	}
	if filter.ProviderID != nil && (s.ProviderID == nil || *s.ProviderID != *filter.ProviderID) {
		return false
	}
	if filter.Category != nil && s.Category != *filter.Category {
		return false
	}
	if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, status) {
		return false
	}
	if len(filter.Urgencies) > 0 && !slices.Contains(filter.Urgencies, s.Urgency) {
		return false
	}
	return true
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
