package blocking

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestCall_ReturnsValue(t *testing.T) {
	p := NewPool(2)
	got, err := Call(context.Background(), p, func(context.Context) (string, error) {
		return "row", nil
	})
	require.NoError(t, err)
	require.Equal(t, "row", got)

	boom := errors.New("boom")
	_, err = Call(context.Background(), p, func(context.Context) (int, error) { return 0, boom })
	require.ErrorIs(t, err, boom)
}

func TestPool_BoundsConcurrency(t *testing.T) {
	const workers = 3
	p := NewPool(workers)
	var running, peak atomic.Int32

	var g errgroup.Group
	for i := 0; i < 20; i++ {
		g.Go(func() error {
			return p.Do(context.Background(), func(context.Context) error {
				n := running.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
				return nil
			})
		})
	}
	require.NoError(t, g.Wait())
	require.LessOrEqual(t, peak.Load(), int32(workers))
}

func TestPool_CallerCancelledWhileRunning(t *testing.T) {
	p := NewPool(1)
	release := make(chan struct{})
	finished := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := p.Do(ctx, func(context.Context) error {
		<-release
		close(finished)
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)

	// The slot is still held by the running call.
	short, stop := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer stop()
	require.ErrorIs(t, p.Do(short, func(context.Context) error { return nil }), context.DeadlineExceeded)

	close(release)
	<-finished
	require.Eventually(t, func() bool {
		return p.Do(context.Background(), func(context.Context) error { return nil }) == nil
	}, time.Second, 5*time.Millisecond)
}
