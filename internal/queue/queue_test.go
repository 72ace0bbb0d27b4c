package queue

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestSubmitGlobalCap(t *testing.T) {
	q := New(Config{GlobalConcurrency: 1, PerUserRatePerMin: 1000})

	release1, err := q.Submit(context.Background(), "alice")
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if q.InFlight() != 1 {
		t.Fatalf("expected 1 in flight, got %d", q.InFlight())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := q.Submit(ctx, "bob"); err == nil {
		t.Fatal("expected second submit to fail while the only slot is held")
	}

	release1()
	if q.InFlight() != 0 {
		t.Fatalf("expected 0 in flight after release, got %d", q.InFlight())
	}

	release2, err := q.Submit(context.Background(), "bob")
	if err != nil {
		t.Fatalf("submit after release should succeed: %v", err)
	}
	release2()
}

func TestSubmitPerUserRateLimit(t *testing.T) {
	q := New(Config{GlobalConcurrency: 10, PerUserRatePerMin: 1})

	release, err := q.Submit(context.Background(), "alice")
	if err != nil {
		t.Fatalf("first submit should pass: %v", err)
	}
	release()

	if _, err := q.Submit(context.Background(), "alice"); err == nil {
		t.Fatal("expected rate limit on rapid second submit for the same user")
	}

	// A different user has an independent bucket.
	release2, err := q.Submit(context.Background(), "bob")
	if err != nil {
		t.Fatalf("different user should not be rate limited by alice's bucket: %v", err)
	}
	release2()
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
