package workerpool_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/shashiranjanraj/mithai/pkg/workerpool"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func shutdown(t *testing.T, p *workerpool.Pool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))
}

func TestSubmitAndExecute(t *testing.T) {
	pool := workerpool.New(4)
	defer shutdown(t, pool)

	const n = 100
	var count atomic.Int64
	var wg sync.WaitGroup
	wg.Add(n)

	ctx := context.Background()
	for i := 0; i < n; i++ {
		require.NoError(t, pool.SubmitWait(ctx, func(context.Context) {
			defer wg.Done()
			count.Add(1)
		}))
	}
	wg.Wait()

	assert.Equal(t, int64(n), count.Load())
}

func TestTaskReceivesContext(t *testing.T) {
	pool := workerpool.New(1)
	defer shutdown(t, pool)

	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "purchase.completed")
	got := make(chan any, 1)
	require.NoError(t, pool.Submit(ctx, func(ctx context.Context) { got <- ctx.Value(key{}) }))

	select {
	case v := <-got:
		assert.Equal(t, "purchase.completed", v)
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
}

func TestSubmitReturnsFullWhenSaturated(t *testing.T) {
	pool := workerpool.New(1)
	defer shutdown(t, pool)

	ctx := context.Background()
	blocker := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, pool.SubmitWait(ctx, func(context.Context) {
		close(started)
		<-blocker
	}))
	<-started

	// queue holds two
	require.NoError(t, pool.Submit(ctx, func(context.Context) {}))
	require.NoError(t, pool.Submit(ctx, func(context.Context) {}))

	assert.ErrorIs(t, pool.Submit(ctx, func(context.Context) {}), workerpool.ErrPoolFull)

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, pool.SubmitWait(waitCtx, func(context.Context) {}), context.DeadlineExceeded)

	close(blocker)
}

func TestSubmitAfterShutdown(t *testing.T) {
	pool := workerpool.New(2)
	shutdown(t, pool)

	assert.ErrorIs(t, pool.Submit(context.Background(), func(context.Context) {}), workerpool.ErrPoolClosed)
	assert.NoError(t, pool.Shutdown(context.Background()), "second shutdown is a no-op")
}

func TestPanicDoesNotKillWorker(t *testing.T) {
	pool := workerpool.New(1)
	defer shutdown(t, pool)

	ctx := context.Background()
	require.NoError(t, pool.SubmitWait(ctx, func(context.Context) { panic("listener bug") }))

	ran := make(chan struct{})
	require.NoError(t, pool.SubmitWait(ctx, func(context.Context) { close(ran) }))

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive the panic")
	}
}

func TestShutdownDrainsQueue(t *testing.T) {
	pool := workerpool.New(2)
	var count atomic.Int64

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		require.NoError(t, pool.SubmitWait(ctx, func(context.Context) {
			time.Sleep(time.Millisecond)
			count.Add(1)
		}))
	}
	shutdown(t, pool)

	assert.Equal(t, int64(4), count.Load())
}

func TestShutdownHonoursDeadline(t *testing.T) {
	pool := workerpool.New(1)
	release := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), func(context.Context) { <-release }))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, pool.Shutdown(ctx), context.DeadlineExceeded)

	close(release)
	shutdown(t, pool)
}
