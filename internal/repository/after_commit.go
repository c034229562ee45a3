package repository

import (
	"context"
	"sync"
)

type afterCommitKey struct{}

// AfterCommitHooks collects callbacks registered while a transaction is open.
type AfterCommitHooks struct {
	mu  sync.Mutex
	fns []func(ctx context.Context)
}

// WithAfterCommitHooks attaches an empty hook list to ctx. Unit of work
// implementations call it when they open an outermost transaction.
func WithAfterCommitHooks(ctx context.Context) (context.Context, *AfterCommitHooks) {
	hooks := &AfterCommitHooks{}
	return context.WithValue(ctx, afterCommitKey{}, hooks), hooks
}

// AfterCommit defers fn until the outermost transaction in ctx commits. A
// rolled back transaction drops it. Outside a transaction fn runs at once.
func AfterCommit(ctx context.Context, fn func(ctx context.Context)) {
	hooks, ok := ctx.Value(afterCommitKey{}).(*AfterCommitHooks)
	if !ok {
		fn(ctx)
		return
	}
	hooks.mu.Lock()
	hooks.fns = append(hooks.fns, fn)
	hooks.mu.Unlock()
}

// Run calls the registered hooks in order.
func (h *AfterCommitHooks) Run(ctx context.Context) {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()
	for _, fn := range fns {
		fn(ctx)
	}
}
