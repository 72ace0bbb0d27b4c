package einvoice

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mladen1312/nyx-light-racunovodja/internal/apperr"
	"github.com/mladen1312/nyx-light-racunovodja/internal/logging"
)

// AckCode is the fiscalisation service's response code (spec.md §6).
type AckCode int

const (
	AckAccepted       AckCode = 10
	AckInvalidXML     AckCode = 90
	AckInvalidSignature AckCode = 91
	AckServerError    AckCode = 99
)

// maxRetries and backoffSchedule implement spec.md §6's fiscalisation
// policy for ack 99: "retry with exponential backoff (5s, 10s, 20s, 40s,
// 80s, max 5 retries)".
const maxRetries = 5

var backoffSchedule = []time.Duration{
	5 * time.Second,
	10 * time.Second,
	20 * time.Second,
	40 * time.Second,
	80 * time.Second,
}

// Outcome is the result of submitting one invoice for fiscalisation.
type Outcome string

const (
	OutcomePosted              Outcome = "posted"
	OutcomeNeedsCorrection     Outcome = "needs_correction"
	OutcomeCertificateProblem  Outcome = "certificate_problem"
	OutcomeRetriesExhausted    Outcome = "retries_exhausted"
)

// SubmitFunc sends the already-egressed invoice XML to the fiscalisation
// service and returns its ack code. Injected so this package never
// imports an HTTP client directly — the production wiring supplies a
// real Peppol/fiskalizacija client from internal/services.
type SubmitFunc func(ctx context.Context, xml []byte) (AckCode, error)

// Submit runs the ack-code policy from spec.md §6:
//   - 10 accepted -> OutcomePosted, no retry
//   - 90 invalid XML -> OutcomeNeedsCorrection (diagnostic, not retried)
//   - 91 invalid signature -> OutcomeCertificateProblem (not retried)
//   - 99 server error -> retried with exponential backoff, up to maxRetries
//     retries (maxRetries+1 attempts), then OutcomeRetriesExhausted
//
// Sleeping between retries respects ctx cancellation.
func Submit(ctx context.Context, xml []byte, submit SubmitFunc) (Outcome, AckCode, error) {
	log := logging.For(logging.CategoryEinvoice)
	timer := logging.StartTimer(logging.CategoryEinvoice, "Submit")
	defer timer.Stop()

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		ack, err := submit(ctx, xml)
		if err != nil {
			lastErr = err
			log.Warn("fiscalisation submit transport error", zap.Int("attempt", attempt), zap.Error(err))
		} else {
			switch ack {
			case AckAccepted:
				log.Info("fiscalisation accepted", zap.Int("attempt", attempt))
				return OutcomePosted, ack, nil
			case AckInvalidXML:
				log.Warn("fiscalisation rejected invalid XML", zap.Int("attempt", attempt))
				return OutcomeNeedsCorrection, ack, nil
			case AckInvalidSignature:
				log.Error("fiscalisation rejected invalid signature", zap.Int("attempt", attempt))
				return OutcomeCertificateProblem, ack, nil
			case AckServerError:
				lastErr = apperr.Newf(apperr.KindExternalService, "fiscalisation server error (ack 99), attempt %d", attempt+1)
				log.Warn("fiscalisation server error, will retry", zap.Int("attempt", attempt))
			default:
				lastErr = apperr.Newf(apperr.KindExternalService, "unrecognised fiscalisation ack code %d", ack)
			}
		}

		if attempt == maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return OutcomeRetriesExhausted, 0, ctx.Err()
		case <-time.After(backoffSchedule[attempt]):
		}
	}

	log.Error("fiscalisation retries exhausted", zap.Int("attempts", maxRetries+1))
	return OutcomeRetriesExhausted, AckServerError, apperr.Wrap(apperr.KindExternalService, lastErr, "fiscalisation retries exhausted")
}
