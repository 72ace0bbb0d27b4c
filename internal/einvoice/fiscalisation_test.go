package einvoice

import (
	"context"
	"testing"
	"time"
)

func TestSubmitAcceptedOnFirstTry(t *testing.T) {
	calls := 0
	outcome, ack, err := Submit(context.Background(), []byte("<x/>"), func(ctx context.Context, xml []byte) (AckCode, error) {
		calls++
		return AckAccepted, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomePosted || ack != AckAccepted {
		t.Fatalf("expected posted/10, got %s/%d", outcome, ack)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one submit call, got %d", calls)
	}
}

func TestSubmitInvalidXMLDoesNotRetry(t *testing.T) {
	calls := 0
	outcome, ack, err := Submit(context.Background(), []byte("<x/>"), func(ctx context.Context, xml []byte) (AckCode, error) {
		calls++
		return AckInvalidXML, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeNeedsCorrection || ack != AckInvalidXML {
		t.Fatalf("expected needs_correction/90, got %s/%d", outcome, ack)
	}
	if calls != 1 {
		t.Fatalf("expected no retry on ack 90, got %d calls", calls)
	}
}

func TestSubmitInvalidSignatureDoesNotRetry(t *testing.T) {
	calls := 0
	outcome, ack, _ := Submit(context.Background(), []byte("<x/>"), func(ctx context.Context, xml []byte) (AckCode, error) {
		calls++
		return AckInvalidSignature, nil
	})
	if outcome != OutcomeCertificateProblem || ack != AckInvalidSignature {
		t.Fatalf("expected certificate_problem/91, got %s/%d", outcome, ack)
	}
	if calls != 1 {
		t.Fatalf("expected no retry on ack 91, got %d calls", calls)
	}
}

func TestSubmitServerErrorRetriesThenExhausts(t *testing.T) {
	calls := 0
	ctx := context.Background()
	outcome, ack, err := submitWithFastBackoff(ctx, func(ctx context.Context, xml []byte) (AckCode, error) {
		calls++
		return AckServerError, nil
	})
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	if outcome != OutcomeRetriesExhausted || ack != AckServerError {
		t.Fatalf("expected retries_exhausted/99, got %s/%d", outcome, ack)
	}
	if calls != maxRetries+1 {
		t.Fatalf("expected %d attempts (1 + %d retries), got %d", maxRetries+1, maxRetries, calls)
	}
}

func TestSubmitServerErrorRecoversOnRetry(t *testing.T) {
	calls := 0
	outcome, ack, err := submitWithFastBackoff(context.Background(), func(ctx context.Context, xml []byte) (AckCode, error) {
		calls++
		if calls < 3 {
			return AckServerError, nil
		}
		return AckAccepted, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomePosted || ack != AckAccepted {
		t.Fatalf("expected posted/10 after recovering, got %s/%d", outcome, ack)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

// submitWithFastBackoff swaps the package-level backoff schedule for a
// near-zero one so retry tests don't sleep 5+10+20+40+80 seconds, then
// restores it. Tests in this file never run in parallel with each other,
// so mutating the package var is safe.
func submitWithFastBackoff(ctx context.Context, fn SubmitFunc) (Outcome, AckCode, error) {
	original := backoffSchedule
	fast := make([]time.Duration, len(original))
	backoffSchedule = fast
	defer func() { backoffSchedule = original }()
	return Submit(ctx, []byte("<x/>"), fn)
}
