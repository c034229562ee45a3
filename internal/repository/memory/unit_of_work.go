// Package memory provides in-process repositories and a unit of work for tests
// and for development runs without Postgres.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/legal-service/internal/domain"
	"github.com/spec-kit/legal-service/internal/repository"
	apperrors "github.com/spec-kit/legal-service/pkg/util/errorutil"
)

const defaultTxTimeout = 5 * time.Second

type txKey struct{}

type snapshot struct {
	consultations map[domain.RequestID]domain.ConsultationState
	litigations   map[domain.RequestID]domain.LitigationState
	history       []domain.StatusHistoryState
}

// UnitOfWork serializes transactions over a single in-memory dataset and
// restores a snapshot on rollback.
type UnitOfWork struct {
	sem     chan struct{}
	timeout time.Duration

	mu            sync.RWMutex
	consultations map[domain.RequestID]domain.ConsultationState
	litigations   map[domain.RequestID]domain.LitigationState
	history       []domain.StatusHistoryState
	historyFault  error

	repos repository.Repositories
}

// NewUnitOfWork builds an empty store. A zero timeout uses the default.
func NewUnitOfWork(timeout time.Duration) *UnitOfWork {
	if timeout <= 0 {
		timeout = defaultTxTimeout
	}
	u := &UnitOfWork{
		sem:           make(chan struct{}, 1),
		timeout:       timeout,
		consultations: make(map[domain.RequestID]domain.ConsultationState),
		litigations:   make(map[domain.RequestID]domain.LitigationState),
	}
	u.repos = repository.Repositories{
		Consultations: &consultationRepository{uow: u},
		Litigations:   &litigationRepository{uow: u},
		History:       &historyRepository{uow: u},
	}
	return u
}

func (u *UnitOfWork) Repositories() repository.Repositories {
	return u.repos
}

// FailHistoryWrites makes every history insert return err until called with nil.
func (u *UnitOfWork) FailHistoryWrites(err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.historyFault = err
}

// InTransaction reports whether ctx carries an open transaction of this store.
func (u *UnitOfWork) InTransaction(ctx context.Context) bool {
	owner, ok := ctx.Value(txKey{}).(*UnitOfWork)
	return ok && owner == u
}

func (u *UnitOfWork) Transaction(ctx context.Context, work func(ctx context.Context, repos repository.Repositories) error) error {
	if u.InTransaction(ctx) {
		return work(ctx, u.repos)
	}
	parent := ctx
	if err := ctx.Err(); err != nil {
		return apperrors.NewTimeout("transaction aborted: context done", err)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	select {
	case u.sem <- struct{}{}:
	case <-ctx.Done():
		return apperrors.NewTimeout("timed out waiting for transaction", ctx.Err())
	}
	released := false
	defer func() {
		if !released {
			<-u.sem
		}
	}()

	saved := u.snapshot()
	committed := false
	defer func() {
		if !committed {
			u.restore(saved)
		}
	}()

	workCtx, hooks := repository.WithAfterCommitHooks(context.WithValue(ctx, txKey{}, u))
	if err := work(workCtx, u.repos); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return apperrors.NewTimeout("transaction timed out", err)
	}
	committed = true
	<-u.sem
	released = true
	hooks.Run(context.WithoutCancel(parent))
	return nil
}

func (u *UnitOfWork) snapshot() snapshot {
	u.mu.RLock()
	defer u.mu.RUnlock()
	s := snapshot{
		consultations: make(map[domain.RequestID]domain.ConsultationState, len(u.consultations)),
		litigations:   make(map[domain.RequestID]domain.LitigationState, len(u.litigations)),
		history:       make([]domain.StatusHistoryState, len(u.history)),
	}
	for k, v := range u.consultations {
		s.consultations[k] = v
	}
	for k, v := range u.litigations {
		s.litigations[k] = v
	}
	copy(s.history, u.history)
	return s
}

func (u *UnitOfWork) restore(s snapshot) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.consultations = s.consultations
	u.litigations = s.litigations
	u.history = s.history
}
