package service

import (
	"context"
	"sync"

	"custodyprofile/internal/profile/store"
	"custodyprofile/pkg/platform/tx"
)

// InMemoryTxRunner satisfies TxRunner over the in-memory store. Transactions
// run one at a time, standing in for the row locks that serialise concurrent
// writers in Postgres. A failed fn restores the store to its pre-transaction
// state, and hooks registered during fn run only when fn succeeds.
type InMemoryTxRunner struct {
	mu    sync.Mutex
	Store *store.InMemory
}

func (r *InMemoryTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context, s store.Store) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.Store.Snapshot()
	ctx, hooks := tx.WithHooks(ctx)
	if err := fn(ctx, r.Store); err != nil {
		r.Store.Restore(snap)
		return err
	}
	hooks.Run(ctx)
	return nil
}
