package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/legal-service/internal/domain"
	apperrors "github.com/spec-kit/legal-service/pkg/util/errorutil"
)

const consultationColumns = `id, number, subscriber_id, provider_id, status, urgency, title, description,
               category, jurisdiction, submitted_at, assigned_at, responded_at, completed_at, closed_at,
               sla_deadline, sla_status, rating, feedback, rated_at, created_at, updated_at, deleted_at`

type consultationRepository struct {
	pool *pgxpool.Pool
}

// NewConsultationRepository instantiates the Postgres repository.
func NewConsultationRepository(pool *pgxpool.Pool) ConsultationRepository {
	return &consultationRepository{pool: pool}
}

func (r *consultationRepository) Create(ctx context.Context, c *domain.ConsultationRequest) error {
	const query = `
        INSERT INTO consultation_requests (id, number, subscriber_id, provider_id, status, urgency, title, description,
            category, jurisdiction, submitted_at, assigned_at, responded_at, completed_at, closed_at,
            sla_deadline, sla_status, rating, feedback, rated_at, created_at, updated_at, deleted_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)`
	s := c.State()
	_, err := conn(ctx, r.pool).Exec(ctx, query,
		string(s.ID),
		string(s.Number),
		string(s.SubscriberID),
		stringPtr(s.ProviderID),
		string(s.Status),
		string(s.Urgency),
		string(s.Title),
		string(s.Description),
		string(s.Category),
		s.Jurisdiction,
		s.SubmittedAt,
		s.AssignedAt,
		s.RespondedAt,
		s.CompletedAt,
		s.ClosedAt,
		s.SLADeadline,
		string(s.SLAStatus),
		ratingValue(s.Rating),
		s.Feedback,
		s.RatedAt,
		s.CreatedAt,
		s.UpdatedAt,
		s.DeletedAt,
	)
	return err
}

func (r *consultationRepository) Update(ctx context.Context, c *domain.ConsultationRequest) error {
	const query = `
        UPDATE consultation_requests
        SET provider_id=$1, status=$2, assigned_at=$3, responded_at=$4, completed_at=$5, closed_at=$6,
            sla_deadline=$7, sla_status=$8, rating=$9, feedback=$10, rated_at=$11, updated_at=$12, deleted_at=$13
        WHERE id=$14 AND deleted_at IS NULL`
	s := c.State()
	cmd, err := conn(ctx, r.pool).Exec(ctx, query,
		stringPtr(s.ProviderID),
		string(s.Status),
		s.AssignedAt,
		s.RespondedAt,
		s.CompletedAt,
		s.ClosedAt,
		s.SLADeadline,
		string(s.SLAStatus),
		ratingValue(s.Rating),
		s.Feedback,
		s.RatedAt,
		s.UpdatedAt,
		s.DeletedAt,
		string(s.ID),
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewNotFound("consultation", map[string]any{"id": s.ID})
	}
	return nil
}

// FindByID locks the row when called inside a transaction.
func (r *consultationRepository) FindByID(ctx context.Context, id domain.RequestID) (*domain.ConsultationRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM consultation_requests WHERE id=$1 AND deleted_at IS NULL`, consultationColumns)
	if _, ok := txFrom(ctx); ok {
		query += " FOR UPDATE"
	}
	c, err := scanConsultation(conn(ctx, r.pool).QueryRow(ctx, query, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("consultation", map[string]any{"id": id})
	}
	return c, err
}

func (r *consultationRepository) List(ctx context.Context, filter RequestFilter) ([]*domain.ConsultationRequest, error) {
	where, args := whereClause(filter)
	limit, offset := filter.NormalizePage()
	query := fmt.Sprintf(`SELECT %s FROM consultation_requests WHERE %s ORDER BY submitted_at DESC LIMIT %d OFFSET %d`,
		consultationColumns, where, limit, offset)
	return r.query(ctx, query, args...)
}

func (r *consultationRepository) ListOpen(ctx context.Context) ([]*domain.ConsultationRequest, error) {
	statuses := make([]string, 0, 5)
	for _, s := range domain.NonTerminalConsultationStatuses() {
		statuses = append(statuses, string(s))
	}
	where, args := whereClause(RequestFilter{Statuses: statuses})
	query := fmt.Sprintf(`SELECT %s FROM consultation_requests WHERE %s ORDER BY submitted_at ASC`, consultationColumns, where)
	return r.query(ctx, query, args...)
}

func (r *consultationRepository) query(ctx context.Context, query string, args ...any) ([]*domain.ConsultationRequest, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.ConsultationRequest
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func scanConsultation(row pgx.Row) (*domain.ConsultationRequest, error) {
	var (
		id, number, subscriber, status, urgency string
		title, description, category           string
		provider                                *string
		rating                                  *int16
		slaStatus                               string
		s                                       domain.ConsultationState
	)
	if err := row.Scan(
		&id,
		&number,
		&subscriber,
		&provider,
		&status,
		&urgency,
		&title,
		&description,
		&category,
		&s.Jurisdiction,
		&s.SubmittedAt,
		&s.AssignedAt,
		&s.RespondedAt,
		&s.CompletedAt,
		&s.ClosedAt,
		&s.SLADeadline,
		&slaStatus,
		&rating,
		&s.Feedback,
		&s.RatedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.DeletedAt,
	); err != nil {
		return nil, err
	}
	s.ID = domain.RequestID(id)
	s.Number = domain.HumanNumber(number)
	s.SubscriberID = domain.SubscriberID(subscriber)
	s.ProviderID = typedPtr[domain.ProviderID](provider)
	s.Status = domain.ConsultationStatus(status)
	s.Urgency = domain.Urgency(urgency)
	s.Title = domain.Title(title)
	s.Description = domain.Description(description)
	s.Category = domain.Category(category)
	s.SLAStatus = domain.SLAStatus(slaStatus)
	if rating != nil {
		r := domain.Rating(*rating)
		s.Rating = &r
	}
	normalizeTimes(&s.RequestState, s.RespondedAt, s.CompletedAt, s.ClosedAt, s.RatedAt)
	return domain.RestoreConsultation(s), nil
}

func ratingValue(r *domain.Rating) *int16 {
	if r == nil {
		return nil
	}
	v := int16(*r)
	return &v
}

// normalizeTimes keeps timestamps read back from Postgres in UTC. extra
// carries the family specific timestamps.
func normalizeTimes(s *domain.RequestState, extra ...*time.Time) {
	s.SubmittedAt = s.SubmittedAt.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	for _, t := range append([]*time.Time{s.AssignedAt, s.SLADeadline, s.DeletedAt}, extra...) {
		if t != nil {
			*t = t.UTC()
		}
	}
}
