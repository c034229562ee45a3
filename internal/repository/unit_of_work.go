package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/spec-kit/legal-service/pkg/util/errorutil"
)

const defaultTxTimeout = 5 * time.Second

type txKey struct{}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func withTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func txFrom(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}

// conn picks the open transaction from ctx, falling back to the pool.
func conn(ctx context.Context, pool *pgxpool.Pool) querier {
	if tx, ok := txFrom(ctx); ok {
		return tx
	}
	return pool
}

// PostgresUnitOfWork coordinates the Postgres repositories inside one pgx transaction.
type PostgresUnitOfWork struct {
	pool    *pgxpool.Pool
	timeout time.Duration
	repos   Repositories
	tracer  trace.Tracer
}

// NewUnitOfWork builds the Postgres unit of work. A zero timeout uses the default.
func NewUnitOfWork(pool *pgxpool.Pool, timeout time.Duration) *PostgresUnitOfWork {
	if timeout <= 0 {
		timeout = defaultTxTimeout
	}
	return &PostgresUnitOfWork{
		pool:    pool,
		timeout: timeout,
		repos: Repositories{
			Consultations: NewConsultationRepository(pool),
			Litigations:   NewLitigationRepository(pool),
			History:       NewStatusHistoryRepository(pool),
		},
		tracer: otel.Tracer("github.com/spec-kit/legal-service/internal/repository"),
	}
}

func (u *PostgresUnitOfWork) Repositories() Repositories {
	return u.repos
}

func (u *PostgresUnitOfWork) Transaction(ctx context.Context, work func(ctx context.Context, repos Repositories) error) (err error) {
	if _, ok := txFrom(ctx); ok {
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

	ctx, span := u.tracer.Start(ctx, "uow.transaction")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	tx, err := u.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return timeoutOr(ctx, err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
	}()

	workCtx, hooks := WithAfterCommitHooks(withTx(ctx, tx))
	if err := work(workCtx, u.repos); err != nil {
		_ = tx.Rollback(context.WithoutCancel(ctx))
		return timeoutOr(ctx, err)
	}
	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(context.WithoutCancel(ctx))
		return timeoutOr(ctx, err)
	}
	hooks.Run(context.WithoutCancel(parent))
	return nil
}

// timeoutOr leaves domain errors untouched and reports expired transactions as timeouts.
func timeoutOr(ctx context.Context, err error) error {
	var de *apperrors.DomainError
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.NewTimeout("transaction timed out", err)
	}
	return err
}
