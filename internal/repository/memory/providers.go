package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/spec-kit/legal-service/internal/domain"
)

// ProviderSeed is a provider registered with the in-memory directory.
type ProviderSeed struct {
	Profile    domain.ProviderProfile
	Kinds      []domain.AggregateType
	Categories []domain.Category
	Regions    []string
}

// ProviderDirectory answers candidate lookups from seeded profiles and counts
// open requests in the unit of work's dataset.
type ProviderDirectory struct {
	uow *UnitOfWork

	mu    sync.RWMutex
	seeds []ProviderSeed
}

func NewProviderDirectory(uow *UnitOfWork, seeds ...ProviderSeed) *ProviderDirectory {
	return &ProviderDirectory{uow: uow, seeds: seeds}
}

// Register adds or replaces a provider.
func (d *ProviderDirectory) Register(seed ProviderSeed) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, existing := range d.seeds {
		if existing.Profile.ID == seed.Profile.ID {
			d.seeds[i] = seed
			return
		}
	}
	d.seeds = append(d.seeds, seed)
}

func (d *ProviderDirectory) ListCandidates(_ context.Context, criteria domain.MatchCriteria) ([]domain.ProviderProfile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []domain.ProviderProfile
	for _, seed := range d.seeds {
		if len(seed.Kinds) > 0 && !slices.Contains(seed.Kinds, criteria.Kind) {
			continue
		}
		if criteria.Category != "" && len(seed.Categories) > 0 && !slices.Contains(seed.Categories, criteria.Category) {
			continue
		}
		if criteria.Region != "" && len(seed.Regions) > 0 && !slices.Contains(seed.Regions, criteria.Region) {
			continue
		}
		profile := seed.Profile
		profile.ActiveRequests = d.activeRequests(profile.ID)
		out = append(out, profile)
	}
	return out, nil
}

func (d *ProviderDirectory) activeRequests(id domain.ProviderID) int {
	if d.uow == nil {
		return 0
	}
	d.uow.mu.RLock()
	defer d.uow.mu.RUnlock()
	count := 0
	for _, s := range d.uow.consultations {
		if s.DeletedAt == nil && s.ProviderID != nil && *s.ProviderID == id && !s.Status.IsTerminal() {
			count++
		}
	}
	for _, s := range d.uow.litigations {
		if s.DeletedAt == nil && s.ProviderID != nil && *s.ProviderID == id && !s.Status.IsTerminal() {
			count++
		}
	}
	return count
}
