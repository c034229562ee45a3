package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/spec-kit/legal-service/pkg/util/errorutil"
)

// StatusHistory is an immutable audit trail entry. Once built it is only ever
// inserted, never updated.
type StatusHistory struct {
	id            string
	aggregateType AggregateType
	aggregateID   RequestID
	fromStatus    *string
	toStatus      string
	reason        *Reason
	changedBy     *ActorID
	metadata      map[string]any
	changedAt     time.Time
}

// StatusChange carries the captured transition for NewStatusHistory.
type StatusChange struct {
	AggregateType AggregateType
	AggregateID   RequestID
	From          *string
	To            string
	Reason        *Reason
	ChangedBy     *ActorID
	Metadata      map[string]any
}

// NewStatusHistory stamps a history entry at now.
func NewStatusHistory(change StatusChange, now time.Time) (*StatusHistory, error) {
	if !change.AggregateType.Valid() {
		return nil, apperrors.NewValidationError("unknown aggregate type", map[string]any{"aggregate_type": change.AggregateType})
	}
	if change.AggregateID == "" {
		return nil, apperrors.NewValidationError("aggregate id is required", nil)
	}
	to := strings.TrimSpace(change.To)
	if to == "" {
		return nil, apperrors.NewValidationError("target status is required", nil)
	}
	var from *string
	if change.From != nil {
		v := *change.From
		from = &v
	}
	return &StatusHistory{
		id:            uuid.NewString(),
		aggregateType: change.AggregateType,
		aggregateID:   change.AggregateID,
		fromStatus:    from,
		toStatus:      to,
		reason:        copyReason(change.Reason),
		changedBy:     copyActor(change.ChangedBy),
		metadata:      copyMetadata(change.Metadata),
		changedAt:     now,
	}, nil
}

// StatusHistoryState is the storage shape of a history entry.
type StatusHistoryState struct {
	ID            string
	AggregateType AggregateType
	AggregateID   RequestID
	FromStatus    *string
	ToStatus      string
	Reason        *Reason
	ChangedBy     *ActorID
	Metadata      map[string]any
	ChangedAt     time.Time
}

// RestoreStatusHistory rebuilds a stored entry.
func RestoreStatusHistory(s StatusHistoryState) *StatusHistory {
	return &StatusHistory{
		id:            s.ID,
		aggregateType: s.AggregateType,
		aggregateID:   s.AggregateID,
		fromStatus:    s.FromStatus,
		toStatus:      s.ToStatus,
		reason:        s.Reason,
		changedBy:     s.ChangedBy,
		metadata:      copyMetadata(s.Metadata),
		changedAt:     s.ChangedAt,
	}
}

func (h *StatusHistory) State() StatusHistoryState {
	return StatusHistoryState{
		ID:            h.id,
		AggregateType: h.aggregateType,
		AggregateID:   h.aggregateID,
		FromStatus:    h.FromStatus(),
		ToStatus:      h.toStatus,
		Reason:        h.Reason(),
		ChangedBy:     h.ChangedBy(),
		Metadata:      copyMetadata(h.metadata),
		ChangedAt:     h.changedAt,
	}
}

func (h *StatusHistory) ID() string                   { return h.id }
func (h *StatusHistory) AggregateType() AggregateType { return h.aggregateType }
func (h *StatusHistory) AggregateID() RequestID       { return h.aggregateID }
func (h *StatusHistory) ToStatus() string             { return h.toStatus }
func (h *StatusHistory) ChangedAt() time.Time         { return h.changedAt }
func (h *StatusHistory) Metadata() map[string]any     { return copyMetadata(h.metadata) }

func (h *StatusHistory) FromStatus() *string {
	if h.fromStatus == nil {
		return nil
	}
	v := *h.fromStatus
	return &v
}

func (h *StatusHistory) Reason() *Reason     { return copyReason(h.reason) }
func (h *StatusHistory) ChangedBy() *ActorID { return copyActor(h.changedBy) }

func copyReason(r *Reason) *Reason {
	if r == nil {
		return nil
	}
	v := *r
	return &v
}

func copyActor(a *ActorID) *ActorID {
	if a == nil {
		return nil
	}
	v := *a
	return &v
}

func copyMetadata(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
