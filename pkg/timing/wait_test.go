package timing

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWaitForSucceedsImmediately(t *testing.T) {
	ctx := context.Background()
	ok, err := WaitFor(ctx, time.Second, func(ctx context.Context) (bool, error) {
		return true, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected true")
	}
}

func TestWaitForEventuallyTrue(t *testing.T) {
	ctx := context.Background()
	calls := 0
	ok, err := WaitFor(ctx, time.Second, func(ctx context.Context) (bool, error) {
		calls++
		return calls >= 3, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected true eventually")
	}
}

func TestWaitForTimeoutIsNotAnError(t *testing.T) {
	ctx := context.Background()
	start := time.Now()
	ok, err := WaitFor(ctx, 150*time.Millisecond, func(ctx context.Context) (bool, error) {
		return false, nil
	})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("timeout must not be an error, got: %v", err)
	}
	if ok {
		t.Fatal("expected false on timeout")
	}
	if elapsed < 150*time.Millisecond {
		t.Fatalf("returned too early: %v", elapsed)
	}
}

func TestWaitForPropagatesPredicateError(t *testing.T) {
	ctx := context.Background()
	sentinel := errors.New("boom")
	_, err := WaitFor(ctx, time.Second, func(ctx context.Context) (bool, error) {
		return false, sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got: %v", err)
	}
}

func TestWaitForRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	ok, err := WaitFor(ctx, 5*time.Second, func(ctx context.Context) (bool, error) {
		return false, nil
	})
	elapsed := time.Since(start)

	if ok {
		t.Fatal("expected false")
	}
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed > time.Second {
		t.Fatalf("did not return promptly after cancellation: %v", elapsed)
	}
}
