package repository

import (
	"fmt"
	"strings"
)

// whereClause renders filter as SQL conditions over the shared request columns.
// Soft-deleted rows are always excluded.
func whereClause(filter RequestFilter) (string, []any) {
	clauses := []string{"deleted_at IS NULL"}
	args := []any{}

	if filter.SubscriberID != nil {
		args = append(args, string(*filter.SubscriberID))
		clauses = append(clauses, fmt.Sprintf("subscriber_id=$%d", len(args)))
	}
	if filter.ProviderID != nil {
		args = append(args, string(*filter.ProviderID))
		clauses = append(clauses, fmt.Sprintf("provider_id=$%d", len(args)))
	}
	if filter.Category != nil {
		args = append(args, string(*filter.Category))
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Urgencies) > 0 {
		placeholders := make([]string, len(filter.Urgencies))
		for i, u := range filter.Urgencies {
			args = append(args, string(u))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("urgency IN (%s)", strings.Join(placeholders, ",")))
	}
	return strings.Join(clauses, " AND "), args
}

func stringPtr[T ~string](v *T) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func typedPtr[T ~string](v *string) *T {
	if v == nil {
		return nil
	}
	t := T(*v)
	return &t
}
