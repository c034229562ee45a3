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

const litigationColumns = `id, number, subscriber_id, provider_id, status, urgency, title, description,
               category, jurisdiction, case_type, court_name, submitted_at, assigned_at,
               quote_amount::text, quote_currency, quote_valid_until, quote_details, quote_sent_at, quote_accepted_at,
               payment_status, payment_reference, paid_amount::text, paid_at, refund_reference, refunded_at,
               activated_at, closed_at, sla_deadline, sla_status, created_at, updated_at, deleted_at`

type litigationRepository struct {
	pool *pgxpool.Pool
}

// NewLitigationRepository instantiates the Postgres repository.
func NewLitigationRepository(pool *pgxpool.Pool) LitigationRepository {
	return &litigationRepository{pool: pool}
}

// quoteColumns flattens the optional quote for storage.
type quoteColumns struct {
	amount     *string
	currency   *string
	validUntil *time.Time
	details    *string
}

func flattenQuote(q *domain.Quote) quoteColumns {
	if q == nil {
		return quoteColumns{}
	}
	amount := q.Amount.Amount().String()
	currency := q.Amount.Currency()
	validUntil := q.ValidUntil
	details := q.Details
	return quoteColumns{amount: &amount, currency: &currency, validUntil: &validUntil, details: &details}
}

func moneyColumns(m *domain.Money) (*string, *string) {
	if m == nil {
		return nil, nil
	}
	amount := m.Amount().String()
	currency := m.Currency()
	return &amount, &currency
}

func (r *litigationRepository) Create(ctx context.Context, l *domain.LitigationCase) error {
	const query = `
        INSERT INTO litigation_cases (id, number, subscriber_id, provider_id, status, urgency, title, description,
            category, jurisdiction, case_type, court_name, submitted_at, assigned_at,
            quote_amount, quote_currency, quote_valid_until, quote_details, quote_sent_at, quote_accepted_at,
            payment_status, payment_reference, paid_amount, paid_at, refund_reference, refunded_at,
            activated_at, closed_at, sla_deadline, sla_status, created_at, updated_at, deleted_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15::numeric,$16,$17,$18,$19,$20,
            $21,$22,$23::numeric,$24,$25,$26,$27,$28,$29,$30,$31,$32,$33)`
	s := l.State()
	q := flattenQuote(s.Quote)
	paidAmount, _ := moneyColumns(s.PaidAmount)
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
		s.CaseType,
		s.CourtName,
		s.SubmittedAt,
		s.AssignedAt,
		q.amount,
		q.currency,
		q.validUntil,
		q.details,
		s.QuoteSentAt,
		s.QuoteAcceptedAt,
		string(s.PaymentStatus),
		stringPtr(s.PaymentReference),
		paidAmount,
		s.PaidAt,
		stringPtr(s.RefundReference),
		s.RefundedAt,
		s.ActivatedAt,
		s.ClosedAt,
		s.SLADeadline,
		string(s.SLAStatus),
		s.CreatedAt,
		s.UpdatedAt,
		s.DeletedAt,
	)
	return err
}

func (r *litigationRepository) Update(ctx context.Context, l *domain.LitigationCase) error {
	const query = `
        UPDATE litigation_cases
        SET provider_id=$1, status=$2, assigned_at=$3, quote_amount=$4::numeric, quote_currency=$5,
            quote_valid_until=$6, quote_details=$7, quote_sent_at=$8, quote_accepted_at=$9,
            payment_status=$10, payment_reference=$11, paid_amount=$12::numeric, paid_at=$13,
            refund_reference=$14, refunded_at=$15, activated_at=$16, closed_at=$17,
            sla_deadline=$18, sla_status=$19, updated_at=$20, deleted_at=$21
        WHERE id=$22 AND deleted_at IS NULL`
	s := l.State()
	q := flattenQuote(s.Quote)
	paidAmount, _ := moneyColumns(s.PaidAmount)
	cmd, err := conn(ctx, r.pool).Exec(ctx, query,
		stringPtr(s.ProviderID),
		string(s.Status),
		s.AssignedAt,
		q.amount,
		q.currency,
		q.validUntil,
		q.details,
		s.QuoteSentAt,
		s.QuoteAcceptedAt,
		string(s.PaymentStatus),
		stringPtr(s.PaymentReference),
		paidAmount,
		s.PaidAt,
		stringPtr(s.RefundReference),
		s.RefundedAt,
		s.ActivatedAt,
		s.ClosedAt,
		s.SLADeadline,
		string(s.SLAStatus),
		s.UpdatedAt,
		s.DeletedAt,
		string(s.ID),
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewNotFound("litigation case", map[string]any{"id": s.ID})
	}
	return nil
}

func (r *litigationRepository) FindByID(ctx context.Context, id domain.RequestID) (*domain.LitigationCase, error) {
	query := fmt.Sprintf(`SELECT %s FROM litigation_cases WHERE id=$1 AND deleted_at IS NULL`, litigationColumns)
	if _, ok := txFrom(ctx); ok {
		query += " FOR UPDATE"
	}
	l, err := scanLitigation(conn(ctx, r.pool).QueryRow(ctx, query, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("litigation case", map[string]any{"id": id})
	}
	return l, err
}

func (r *litigationRepository) List(ctx context.Context, filter RequestFilter) ([]*domain.LitigationCase, error) {
	where, args := whereClause(filter)
	limit, offset := filter.NormalizePage()
	query := fmt.Sprintf(`SELECT %s FROM litigation_cases WHERE %s ORDER BY submitted_at DESC LIMIT %d OFFSET %d`,
		litigationColumns, where, limit, offset)
	return r.query(ctx, query, args...)
}

func (r *litigationRepository) ListOpen(ctx context.Context) ([]*domain.LitigationCase, error) {
	statuses := make([]string, 0, 4)
	for _, s := range domain.NonTerminalLitigationStatuses() {
		statuses = append(statuses, string(s))
	}
	where, args := whereClause(RequestFilter{Statuses: statuses})
	query := fmt.Sprintf(`SELECT %s FROM litigation_cases WHERE %s ORDER BY submitted_at ASC`, litigationColumns, where)
	return r.query(ctx, query, args...)
}

func (r *litigationRepository) query(ctx context.Context, query string, args ...any) ([]*domain.LitigationCase, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.LitigationCase
	for rows.Next() {
		l, err := scanLitigation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

func scanLitigation(row pgx.Row) (*domain.LitigationCase, error) {
	var (
		id, number, subscriber, status, urgency string
		title, description, category           string
		paymentStatus, slaStatus                string
		provider, paymentRef, refundRef         *string
		quoteAmount, quoteCurrency, quoteDetail *string
		quoteValidUntil                         *time.Time
		paidAmount                              *string
		s                                       domain.LitigationState
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
		&s.CaseType,
		&s.CourtName,
		&s.SubmittedAt,
		&s.AssignedAt,
		&quoteAmount,
		&quoteCurrency,
		&quoteValidUntil,
		&quoteDetail,
		&s.QuoteSentAt,
		&s.QuoteAcceptedAt,
		&paymentStatus,
		&paymentRef,
		&paidAmount,
		&s.PaidAt,
		&refundRef,
		&s.RefundedAt,
		&s.ActivatedAt,
		&s.ClosedAt,
		&s.SLADeadline,
		&slaStatus,
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
	s.Status = domain.LitigationStatus(status)
	s.Urgency = domain.Urgency(urgency)
	s.Title = domain.Title(title)
	s.Description = domain.Description(description)
	s.Category = domain.Category(category)
	s.PaymentStatus = domain.PaymentStatus(paymentStatus)
	s.PaymentReference = typedPtr[domain.PaymentReference](paymentRef)
	s.RefundReference = typedPtr[domain.PaymentReference](refundRef)
	s.SLAStatus = domain.SLAStatus(slaStatus)

	if quoteAmount != nil && quoteCurrency != nil && quoteValidUntil != nil {
		amount, err := domain.ParseMoney(*quoteAmount, *quoteCurrency)
		if err != nil {
			return nil, fmt.Errorf("decode quote for %s: %w", id, err)
		}
		quote := &domain.Quote{Amount: amount, ValidUntil: quoteValidUntil.UTC()}
		if quoteDetail != nil {
			quote.Details = *quoteDetail
		}
		s.Quote = quote
		if paidAmount != nil {
			paid, err := domain.ParseMoney(*paidAmount, *quoteCurrency)
			if err != nil {
				return nil, fmt.Errorf("decode paid amount for %s: %w", id, err)
			}
			s.PaidAmount = &paid
		}
	}
	normalizeTimes(&s.RequestState, s.PaidAt, s.RefundedAt, s.QuoteSentAt, s.QuoteAcceptedAt, s.ActivatedAt, s.ClosedAt)
	return domain.RestoreLitigation(s), nil
}
