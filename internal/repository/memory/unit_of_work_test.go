package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/spec-kit/legal-service/internal/domain"
	"github.com/spec-kit/legal-service/internal/repository"
	"github.com/spec-kit/legal-service/internal/repository/memory"
	apperrors "github.com/spec-kit/legal-service/pkg/util/errorutil"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type UnitOfWorkSuite struct {
	suite.Suite
	uow *memory.UnitOfWork
	ctx context.Context
	seq *memory.NumberSequence
}

func TestUnitOfWorkSuite(t *testing.T) {
	suite.Run(t, new(UnitOfWorkSuite))
}

func (s *UnitOfWorkSuite) SetupTest() {
	s.uow = memory.NewUnitOfWork(time.Second)
	s.ctx = context.Background()
	s.seq = memory.NewNumberSequence()
}

func (s *UnitOfWorkSuite) newConsultation() *domain.ConsultationRequest {
	number, err := s.seq.Next(s.ctx, "CON", t0)
	s.Require().NoError(err)
	c, err := domain.NewConsultationRequest(domain.RequestDetails{
		Number:       number,
		SubscriberID: "sub-1",
		Urgency:      domain.UrgencyNormal,
		Title:        "Employment contract review",
		Description:  "Please review the non-compete clause in my contract.",
		Category:     "employment",
	}, domain.DefaultSLAPolicy(), t0)
	s.Require().NoError(err)
	return c
}

func (s *UnitOfWorkSuite) history(c *domain.ConsultationRequest, from *string) *domain.StatusHistory {
	h, err := domain.NewStatusHistory(domain.StatusChange{
		AggregateType: domain.AggregateConsultation,
		AggregateID:   c.ID(),
		From:          from,
		To:            string(c.Status()),
	}, t0)
	s.Require().NoError(err)
	return h
}

func (s *UnitOfWorkSuite) TestCommit() {
	c := s.newConsultation()
	err := s.uow.Transaction(s.ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Consultations.Create(ctx, c); err != nil {
			return err
		}
		return repos.History.Create(ctx, s.history(c, nil))
	})
	s.Require().NoError(err)

	found, err := s.uow.Repositories().Consultations.FindByID(s.ctx, c.ID())
	s.Require().NoError(err)
	s.Equal(c.State(), found.State())

	count, err := s.uow.Repositories().History.Count(s.ctx, domain.AggregateConsultation, c.ID())
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *UnitOfWorkSuite) TestRollbackOnError() {
	c := s.newConsultation()
	boom := errors.New("boom")
	err := s.uow.Transaction(s.ctx, func(ctx context.Context, repos repository.Repositories) error {
		s.Require().NoError(repos.Consultations.Create(ctx, c))
		return boom
	})
	s.Require().ErrorIs(err, boom)

	_, err = s.uow.Repositories().Consultations.FindByID(s.ctx, c.ID())
	s.True(apperrors.HasCode(err, apperrors.CodeNotFound))
}

func (s *UnitOfWorkSuite) TestRollbackOnPanic() {
	c := s.newConsultation()
	s.Panics(func() {
		_ = s.uow.Transaction(s.ctx, func(ctx context.Context, repos repository.Repositories) error {
			s.Require().NoError(repos.Consultations.Create(ctx, c))
			panic("mid-transaction")
		})
	})

	_, err := s.uow.Repositories().Consultations.FindByID(s.ctx, c.ID())
	s.True(apperrors.HasCode(err, apperrors.CodeNotFound))

	// the store must still accept new transactions
	s.Require().NoError(s.uow.Transaction(s.ctx, func(ctx context.Context, repos repository.Repositories) error {
		return repos.Consultations.Create(ctx, c)
	}))
}

func (s *UnitOfWorkSuite) TestHistoryFailureRollsBackUpdate() {
	c := s.newConsultation()
	s.Require().NoError(s.uow.Repositories().Consultations.Create(s.ctx, c))

	s.uow.FailHistoryWrites(errors.New("disk full"))
	err := s.uow.Transaction(s.ctx, func(ctx context.Context, repos repository.Repositories) error {
		loaded, err := repos.Consultations.FindByID(ctx, c.ID())
		if err != nil {
			return err
		}
		from := string(loaded.Status())
		if err := loaded.Assign("prov-1", domain.DefaultSLAPolicy(), t0.Add(time.Minute)); err != nil {
			return err
		}
		if err := repos.Consultations.Update(ctx, loaded); err != nil {
			return err
		}
		return repos.History.Create(ctx, s.history(loaded, &from))
	})
	s.Require().Error(err)
	s.uow.FailHistoryWrites(nil)

	found, err := s.uow.Repositories().Consultations.FindByID(s.ctx, c.ID())
	s.Require().NoError(err)
	s.Equal(domain.ConsultationPending, found.Status())
	s.False(found.HasProvider())
}

func (s *UnitOfWorkSuite) TestReentrant() {
	c := s.newConsultation()
	err := s.uow.Transaction(s.ctx, func(ctx context.Context, repos repository.Repositories) error {
		s.True(s.uow.InTransaction(ctx))
		return s.uow.Transaction(ctx, func(inner context.Context, repos repository.Repositories) error {
			return repos.Consultations.Create(inner, c)
		})
	})
	s.Require().NoError(err)

	s.Run("nested failure rolls back the outer work", func() {
		other := s.newConsultation()
		err := s.uow.Transaction(s.ctx, func(ctx context.Context, repos repository.Repositories) error {
			s.Require().NoError(repos.Consultations.Create(ctx, other))
			return s.uow.Transaction(ctx, func(context.Context, repository.Repositories) error {
				return errors.New("inner failed")
			})
		})
		s.Require().Error(err)
		_, err = s.uow.Repositories().Consultations.FindByID(s.ctx, other.ID())
		s.True(apperrors.HasCode(err, apperrors.CodeNotFound))
	})
}

func (s *UnitOfWorkSuite) TestBoundedWait() {
	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = s.uow.Transaction(s.ctx, func(context.Context, repository.Repositories) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started
	defer close(release)

	ctx, cancel := context.WithTimeout(s.ctx, 20*time.Millisecond)
	defer cancel()
	err := s.uow.Transaction(ctx, func(context.Context, repository.Repositories) error {
		s.Fail("work must not run while another transaction holds the store")
		return nil
	})
	s.True(apperrors.HasCode(err, apperrors.CodeTimeout))
}

func (s *UnitOfWorkSuite) TestSoftDeletedIsAbsent() {
	c := s.newConsultation()
	repos := s.uow.Repositories()
	s.Require().NoError(repos.Consultations.Create(s.ctx, c))
	s.True(c.SoftDelete(t0.Add(time.Hour)))
	s.Require().NoError(repos.Consultations.Update(s.ctx, c))

	_, err := repos.Consultations.FindByID(s.ctx, c.ID())
	s.True(apperrors.HasCode(err, apperrors.CodeNotFound))

	listed, err := repos.Consultations.List(s.ctx, repository.RequestFilter{})
	s.Require().NoError(err)
	s.Empty(listed)
}

func (s *UnitOfWorkSuite) TestHistoryOrdering() {
	c := s.newConsultation()
	repos := s.uow.Repositories()
	for i, to := range []string{"pending", "assigned", "in_progress"} {
		h, err := domain.NewStatusHistory(domain.StatusChange{
			AggregateType: domain.AggregateConsultation,
			AggregateID:   c.ID(),
			To:            to,
		}, t0.Add(time.Duration(2-i)*time.Minute))
		s.Require().NoError(err)
		s.Require().NoError(repos.History.Create(s.ctx, h))
	}

	timeline, err := repos.History.ListByAggregate(s.ctx, domain.AggregateConsultation, c.ID())
	s.Require().NoError(err)
	s.Require().Len(timeline, 3)
	s.Equal("in_progress", timeline[0].ToStatus())

	latest, err := repos.History.Latest(s.ctx, domain.AggregateConsultation, c.ID())
	s.Require().NoError(err)
	s.Equal("pending", latest.ToStatus())
}

func (s *UnitOfWorkSuite) TestAfterCommitHooks() {
	var ran []string
	hook := func(name string) func(context.Context) {
		return func(context.Context) { ran = append(ran, name) }
	}

	s.Run("outside a transaction runs at once", func() {
		ran = nil
		repository.AfterCommit(s.ctx, hook("direct"))
		s.Equal([]string{"direct"}, ran)
	})

	s.Run("nested hooks wait for the outer commit", func() {
		ran = nil
		err := s.uow.Transaction(s.ctx, func(ctx context.Context, _ repository.Repositories) error {
			repository.AfterCommit(ctx, hook("outer"))
			err := s.uow.Transaction(ctx, func(ctx context.Context, _ repository.Repositories) error {
				repository.AfterCommit(ctx, hook("inner"))
				return nil
			})
			s.Require().NoError(err)
			s.Empty(ran)
			return nil
		})
		s.Require().NoError(err)
		s.Equal([]string{"outer", "inner"}, ran)
	})

	s.Run("rollback drops hooks", func() {
		ran = nil
		err := s.uow.Transaction(s.ctx, func(ctx context.Context, _ repository.Repositories) error {
			repository.AfterCommit(ctx, hook("dropped"))
			return errors.New("boom")
		})
		s.Require().Error(err)
		s.Empty(ran)
	})

	s.Run("hooks may open a new transaction", func() {
		ran = nil
		err := s.uow.Transaction(s.ctx, func(ctx context.Context, _ repository.Repositories) error {
			repository.AfterCommit(ctx, func(ctx context.Context) {
				s.NoError(s.uow.Transaction(ctx, func(context.Context, repository.Repositories) error {
					ran = append(ran, "follow-up")
					return nil
				}))
			})
			return nil
		})
		s.Require().NoError(err)
		s.Equal([]string{"follow-up"}, ran)
	})
}
