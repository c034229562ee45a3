package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spec-kit/legal-service/internal/domain"
)

// NumberSequence hands out human numbers from per prefix and day counters.
type NumberSequence struct {
	mu       sync.Mutex
	counters map[string]int64
}

func NewNumberSequence() *NumberSequence {
	return &NumberSequence{counters: make(map[string]int64)}
}

func (s *NumberSequence) Next(_ context.Context, prefix string, now time.Time) (domain.HumanNumber, error) {
	day := now.UTC().Format("20060102")
	key := prefix + ":" + day

	s.mu.Lock()
	s.counters[key]++
	n := s.counters[key]
	s.mu.Unlock()

	return domain.NewHumanNumber(fmt.Sprintf("%s-%s-%04d", prefix, day, n))
}
