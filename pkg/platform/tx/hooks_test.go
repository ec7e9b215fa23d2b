package tx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAfterCommit_DeferredUntilRun(t *testing.T) {
	ctx, hooks := WithHooks(context.Background())

	var fired []string
	AfterCommit(ctx, func(context.Context) { fired = append(fired, "first") })
	AfterCommit(ctx, func(context.Context) { fired = append(fired, "second") })

	assert.Empty(t, fired, "hooks must not fire before Run")

	hooks.Run(context.Background())
	assert.Equal(t, []string{"first", "second"}, fired, "hooks run in registration order")
}

func TestAfterCommit_RollbackDropsHooks(t *testing.T) {
	ctx, _ := WithHooks(context.Background())

	fired := false
	AfterCommit(ctx, func(context.Context) { fired = true })

	// Simulate rollback: the registry is simply never Run.
	assert.False(t, fired)
}

func TestAfterCommit_NoRegistryRunsImmediately(t *testing.T) {
	fired := false
	AfterCommit(context.Background(), func(context.Context) { fired = true })
	assert.True(t, fired, "without a registry the hook runs inline")
}
