package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/legal-service/internal/domain"
)

// ProviderRepository reads provider profiles together with their current workload.
type ProviderRepository interface {
	ListCandidates(ctx context.Context, criteria domain.MatchCriteria) ([]domain.ProviderProfile, error)
}

type providerRepository struct {
	pool *pgxpool.Pool
}

// NewProviderRepository instantiates the repository.
func NewProviderRepository(pool *pgxpool.Pool) ProviderRepository {
	return &providerRepository{pool: pool}
}

func (r *providerRepository) ListCandidates(ctx context.Context, criteria domain.MatchCriteria) ([]domain.ProviderProfile, error) {
	args := []any{string(criteria.Kind)}
	clauses := []string{"p.active_flag", "$1 = ANY(p.kinds)"}

	if criteria.Category != "" {
		args = append(args, string(criteria.Category))
		clauses = append(clauses, fmt.Sprintf("(cardinality(p.categories) = 0 OR $%d = ANY(p.categories))", len(args)))
	}
	if region := strings.TrimSpace(criteria.Region); region != "" {
		args = append(args, region)
		clauses = append(clauses, fmt.Sprintf("(cardinality(p.regions) = 0 OR $%d = ANY(p.regions))", len(args)))
	}

	consultationOpen := quoted(domain.NonTerminalConsultationStatuses())
	litigationOpen := quoted(domain.NonTerminalLitigationStatuses())
	query := fmt.Sprintf(`
        SELECT p.id, p.display_name, p.available, p.rating::float8,
            (SELECT COUNT(*) FROM consultation_requests c
                WHERE c.provider_id = p.id AND c.deleted_at IS NULL AND c.status IN (%s))
          + (SELECT COUNT(*) FROM litigation_cases l
                WHERE l.provider_id = p.id AND l.deleted_at IS NULL AND l.status IN (%s)) AS active_requests
        FROM provider_profiles p
        WHERE %s
        ORDER BY p.id ASC`, consultationOpen, litigationOpen, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ProviderProfile
	for rows.Next() {
		var (
			id      string
			profile domain.ProviderProfile
		)
		if err := rows.Scan(
			&id,
			&profile.DisplayName,
			&profile.Available,
			&profile.Rating,
			&profile.ActiveRequests,
		); err != nil {
			return nil, err
		}
		profile.ID = domain.ProviderID(id)
		result = append(result, profile)
	}
	return result, rows.Err()
}

// quoted renders enum values as a SQL literal list. Values come from the
// domain constants, never from input.
func quoted[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = "'" + string(v) + "'"
	}
	return strings.Join(parts, ",")
}
