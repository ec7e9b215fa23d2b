package tx

import "context"

// Hooks collects callbacks to run after the enclosing transaction commits.
// Transaction runners create one per transaction, place it in context, and
// invoke Run only when the commit succeeds. A rolled-back transaction drops
// its hooks on the floor, which is exactly the contract event publication
// relies upon: no commit, no event.
type Hooks struct {
	fns []func(context.Context)
}

type hooksKey struct{}

// WithHooks attaches a fresh hook registry to ctx and returns both.
func WithHooks(ctx context.Context) (context.Context, *Hooks) {
	h := &Hooks{}
	return context.WithValue(ctx, hooksKey{}, h), h
}

// AfterCommit registers fn to run after a successful commit. Outside a
// transaction (no registry in context) fn runs immediately; this keeps
// memory-store test paths and one-shot reads behaving sensibly.
func AfterCommit(ctx context.Context, fn func(context.Context)) {
	if h, ok := ctx.Value(hooksKey{}).(*Hooks); ok {
		h.fns = append(h.fns, fn)
		return
	}
	fn(ctx)
}

// Run executes the registered hooks in registration order, synchronously on
// the calling goroutine. The context passed here is the post-commit context,
// no longer carrying the transaction.
func (h *Hooks) Run(ctx context.Context) {
	for _, fn := range h.fns {
		fn(ctx)
	}
}
