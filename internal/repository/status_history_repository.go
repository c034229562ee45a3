package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/legal-service/internal/domain"
	apperrors "github.com/spec-kit/legal-service/pkg/util/errorutil"
)

const historyColumns = `id, aggregate_type, aggregate_id, from_status, to_status, reason, changed_by, metadata, changed_at`

type statusHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewStatusHistoryRepository builds the append-only history repository.
func NewStatusHistoryRepository(pool *pgxpool.Pool) StatusHistoryRepository {
	return &statusHistoryRepository{pool: pool}
}

func (r *statusHistoryRepository) Create(ctx context.Context, h *domain.StatusHistory) error {
	const query = `
        INSERT INTO status_history (id, aggregate_type, aggregate_id, from_status, to_status, reason, changed_by, metadata, changed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	s := h.State()
	_, err := conn(ctx, r.pool).Exec(ctx, query,
		s.ID,
		string(s.AggregateType),
		string(s.AggregateID),
		s.FromStatus,
		s.ToStatus,
		stringPtr(s.Reason),
		stringPtr(s.ChangedBy),
		s.Metadata,
		s.ChangedAt,
	)
	return err
}

func (r *statusHistoryRepository) ListByAggregate(ctx context.Context, kind domain.AggregateType, id domain.RequestID) ([]*domain.StatusHistory, error) {
	const query = `SELECT ` + historyColumns + `
        FROM status_history WHERE aggregate_type=$1 AND aggregate_id=$2 ORDER BY changed_at ASC, seq ASC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, string(kind), string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.StatusHistory
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, h)
	}
	return result, rows.Err()
}

func (r *statusHistoryRepository) Latest(ctx context.Context, kind domain.AggregateType, id domain.RequestID) (*domain.StatusHistory, error) {
	const query = `SELECT ` + historyColumns + `
        FROM status_history WHERE aggregate_type=$1 AND aggregate_id=$2 ORDER BY changed_at DESC, seq DESC LIMIT 1`
	h, err := scanHistory(conn(ctx, r.pool).QueryRow(ctx, query, string(kind), string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("status history", map[string]any{"aggregate_id": id})
	}
	return h, err
}

func (r *statusHistoryRepository) Count(ctx context.Context, kind domain.AggregateType, id domain.RequestID) (int, error) {
	const query = `SELECT COUNT(*) FROM status_history WHERE aggregate_type=$1 AND aggregate_id=$2`
	var count int
	if err := conn(ctx, r.pool).QueryRow(ctx, query, string(kind), string(id)).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanHistory(row pgx.Row) (*domain.StatusHistory, error) {
	var (
		kind, aggregateID string
		reason, changedBy *string
		s                 domain.StatusHistoryState
	)
	if err := row.Scan(
		&s.ID,
		&kind,
		&aggregateID,
		&s.FromStatus,
		&s.ToStatus,
		&reason,
		&changedBy,
		&s.Metadata,
		&s.ChangedAt,
	); err != nil {
		return nil, err
	}
	s.AggregateType = domain.AggregateType(kind)
	s.AggregateID = domain.RequestID(aggregateID)
	s.Reason = typedPtr[domain.Reason](reason)
	s.ChangedBy = typedPtr[domain.ActorID](changedBy)
	s.ChangedAt = s.ChangedAt.UTC()
	return domain.RestoreStatusHistory(s), nil
}
