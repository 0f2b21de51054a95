package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/hazardwatch/go-hazard-zones/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func delivery(userID string) Delivery {
	return Delivery{
		UserID:  userID,
		Kind:    KindEntry,
		Payload: models.ExitPayload(1),
	}
}

func TestPool_StartStop(t *testing.T) {
	var delivered atomic.Int64
	deliver := func(ctx context.Context, d Delivery) error {
		delivered.Add(1)
		return nil
	}

	pool := NewPool(2, 10, deliver)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	for i := 0; i < 5; i++ {
		pool.Submit(delivery(fmt.Sprintf("user-%d", i)))
	}

	time.Sleep(50 * time.Millisecond)

	cancel()
	pool.Stop()

	if delivered.Load() != 5 {
		t.Errorf("expected 5 deliveries, got %d", delivered.Load())
	}
}

func TestPool_ConcurrentSubmit(t *testing.T) {
	var delivered atomic.Int64
	deliver := func(ctx context.Context, d Delivery) error {
		delivered.Add(1)
		return nil
	}

	pool := NewPool(4, 100, deliver)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	for i := 0; i < 100; i++ {
		go func(n int) {
			pool.Submit(delivery(fmt.Sprintf("user-%d", n)))
		}(i)
	}

	time.Sleep(100 * time.Millisecond)

	cancel()
	pool.Stop()

	if delivered.Load() != 100 {
		t.Errorf("expected 100 deliveries, got %d", delivered.Load())
	}
}

func TestPool_FailedDeliveryDoesNotStopWorkers(t *testing.T) {
	var attempts atomic.Int64
	deliver := func(ctx context.Context, d Delivery) error {
		attempts.Add(1)
		return fmt.Errorf("transport down")
	}

	pool := NewPool(1, 10, deliver)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	for i := 0; i < 3; i++ {
		pool.Submit(delivery("user-1"))
	}

	time.Sleep(50 * time.Millisecond)

	cancel()
	pool.Stop()

	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts despite failures, got %d", attempts.Load())
	}
}

func TestPool_GracefulShutdown(t *testing.T) {
	var delivered atomic.Int64
	deliver := func(ctx context.Context, d Delivery) error {
		time.Sleep(10 * time.Millisecond)
		delivered.Add(1)
		return nil
	}

	pool := NewPool(2, 50, deliver)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	for i := 0; i < 20; i++ {
		pool.Submit(delivery("user-1"))
	}

	cancel()

	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()

	select {
	case <-done:
		// Good
	case <-time.After(5 * time.Second):
		t.Fatal("pool.Stop() timed out")
	}

	t.Logf("delivered %d before shutdown", delivered.Load())
}
