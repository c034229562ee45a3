package service

import (
	"context"
	"sort"

	"github.com/spec-kit/legal-service/internal/domain"
	apperrors "github.com/spec-kit/legal-service/pkg/util/errorutil"
)

// WorkloadMatcher picks the available provider with the fewest open requests,
// preferring higher ratings and then the lowest id.
type WorkloadMatcher struct {
	directory ProviderDirectory
	maxActive int
}

// NewWorkloadMatcher creates the matcher. maxActive <= 0 disables the
// per-provider capacity limit.
func NewWorkloadMatcher(directory ProviderDirectory, maxActive int) *WorkloadMatcher {
	return &WorkloadMatcher{directory: directory, maxActive: maxActive}
}

// Match returns ok=false when no provider qualifies.
func (m *WorkloadMatcher) Match(ctx context.Context, criteria domain.MatchCriteria) (domain.ProviderID, bool, error) {
	if m.directory == nil {
		return "", false, nil
	}
	candidates, err := m.directory.ListCandidates(ctx, criteria)
	if err != nil {
		return "", false, apperrors.MapError(err)
	}
	eligible := candidates[:0:0]
	for _, c := range candidates {
		if !c.Available {
			continue
		}
		if m.maxActive > 0 && c.ActiveRequests >= m.maxActive {
			continue
		}
		eligible = append(eligible, c)
	}
	if len(eligible) == 0 {
		return "", false, nil
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if a.ActiveRequests != b.ActiveRequests {
			return a.ActiveRequests < b.ActiveRequests
		}
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		return a.ID < b.ID
	})
	return eligible[0].ID, true, nil
}
