package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mladen1312/nyx-light-racunovodja/internal/apperr"
	"github.com/mladen1312/nyx-light-racunovodja/internal/erpexport"
	"github.com/mladen1312/nyx-light-racunovodja/internal/logging"
	"github.com/mladen1312/nyx-light-racunovodja/internal/types"
)

// Pipeline drives the booking state machine described in spec.md §4.1:
//
//	pending -> approved -> exported
//	pending -> corrected -> exported
//	pending -> rejected
//
// Every transition is a compare-and-swap against the persisted status, so
// two concurrent calls racing on the same proposal never both succeed.
type Pipeline struct {
	store   *Store
	writers map[types.ERPTarget]erpexport.Writer
	exportDir string
}

// New builds a Pipeline backed by the given store and export writers.
func New(store *Store, exportDir string, writers map[types.ERPTarget]erpexport.Writer) *Pipeline {
	return &Pipeline{store: store, writers: writers, exportDir: exportDir}
}

// Submit validates and stores a single proposal, returning its id.
// RequiresApproval proposals are never auto-approved, matching spec.md
// §4.1's "every proposal starts pending regardless of model confidence".
func (p *Pipeline) Submit(proposal *types.BookingProposal) (string, error) {
	log := logging.For(logging.CategoryPipeline)
	timer := logging.StartTimer(logging.CategoryPipeline, "Submit")
	defer timer.Stop()

	if proposal.ID == "" {
		proposal.ID = types.NewID("prop")
	}
	if proposal.CreatedAt.IsZero() {
		proposal.CreatedAt = time.Now().UTC()
	}
	proposal.Status = types.StatusPending

	if !proposal.Balanced() {
		return "", apperr.Field(apperr.KindValidation, "lines", "proposal does not balance: debit and credit must match within 0.01")
	}
	if proposal.ClientID == "" {
		return "", apperr.Field(apperr.KindValidation, "client_id", "client_id is required")
	}

	if err := p.store.insert(proposal); err != nil {
		return "", apperr.Wrap(apperr.KindFatal, err, "store proposal")
	}
	log.Info("proposal submitted", zap.String("id", proposal.ID), zap.String("kind", string(proposal.DocumentKind)))
	return proposal.ID, nil
}

// SubmitBatch submits many proposals, continuing past individual failures
// and reporting each outcome rather than aborting the whole batch (spec.md
// §4.1: "a batch submission is not atomic; each document lives or dies on
// its own").
func (p *Pipeline) SubmitBatch(proposals []*types.BookingProposal) (ids []string, errs []error) {
	ids = make([]string, len(proposals))
	errs = make([]error, len(proposals))
	for i, proposal := range proposals {
		id, err := p.Submit(proposal)
		ids[i] = id
		errs[i] = err
	}
	return ids, errs
}

// Approve transitions a pending proposal to approved. Returns
// apperr.ErrNotFound if the id is unknown, apperr.ErrValidation if the
// proposal is not currently pending (already approved, rejected, etc.).
func (p *Pipeline) Approve(id, userID string) (*types.BookingProposal, error) {
	timer := logging.StartTimer(logging.CategoryPipeline, "Approve")
	defer timer.Stop()

	ok, proposal, err := p.store.casUpdate(id, types.StatusPending, func(pr *types.BookingProposal) error {
		pr.Status = types.StatusApproved
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindFatal, err, "approve")
	}
	if proposal == nil && !ok {
		existing, gerr := p.store.get(id)
		if gerr == nil && existing == nil {
			return nil, apperr.New(apperr.KindNotFound, "proposal not found")
		}
	}
	if !ok {
		return nil, apperr.New(apperr.KindValidation, "proposal is not pending")
	}
	logging.For(logging.CategoryPipeline).Info("proposal approved", zap.String("id", id), zap.String("user", userID))
	return proposal, nil
}

// Correct applies user-supplied corrected lines to a pending proposal,
// records a CorrectionRecord (the L1 memory system's primary feed for
// "did the model get this category right"), and transitions the proposal
// to corrected.
func (p *Pipeline) Correct(id, userID, reason string, correctedLines []types.BookingLine) (*types.BookingProposal, error) {
	timer := logging.StartTimer(logging.CategoryPipeline, "Correct")
	defer timer.Stop()

	var original []types.BookingLine
	ok, proposal, err := p.store.casUpdate(id, types.StatusPending, func(pr *types.BookingProposal) error {
		original = append(original, pr.Lines...)
		pr.Lines = correctedLines
		pr.Status = types.StatusCorrected
		if !pr.Balanced() {
			return fmt.Errorf("corrected lines do not balance")
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, err, "correct")
	}
	if !ok {
		return nil, apperr.New(apperr.KindValidation, "proposal is not pending")
	}

	record := &types.CorrectionRecord{
		ID:             uuid.NewString(),
		ProposalID:     id,
		OriginalLines:  original,
		CorrectedLines: correctedLines,
		UserID:         userID,
		DocumentKind:   proposal.DocumentKind,
		ClientID:       proposal.ClientID,
		Reason:         reason,
		CreatedAt:      time.Now().UTC(),
	}
	if err := p.store.insertCorrection(record); err != nil {
		return nil, apperr.Wrap(apperr.KindFatal, err, "store correction")
	}
	logging.For(logging.CategoryPipeline).Info("proposal corrected", zap.String("id", id), zap.String("user", userID))
	return proposal, nil
}

// Reject transitions a pending proposal to rejected. A rejected proposal
// never reaches export.
func (p *Pipeline) Reject(id, userID, reason string) (*types.BookingProposal, error) {
	ok, proposal, err := p.store.casUpdate(id, types.StatusPending, func(pr *types.BookingProposal) error {
		pr.Status = types.StatusRejected
		pr.Warnings = append(pr.Warnings, "rejected: "+reason)
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindFatal, err, "reject")
	}
	if !ok {
		return nil, apperr.New(apperr.KindValidation, "proposal is not pending")
	}
	logging.For(logging.CategoryPipeline).Info("proposal rejected", zap.String("id", id), zap.String("user", userID), zap.String("reason", reason))
	return proposal, nil
}

// Pending lists every proposal awaiting a human decision, optionally
// scoped to a client, for the review console (SPEC_FULL.md §4.11's
// `cmd review` human-in-the-loop TUI).
func (p *Pipeline) Pending(clientID string) ([]*types.BookingProposal, error) {
	proposals, err := p.store.listByStatus([]types.Status{types.StatusPending}, clientID, "")
	if err != nil {
		return nil, apperr.Wrap(apperr.KindFatal, err, "list pending proposals")
	}
	return proposals, nil
}

// ExportApproved writes every approved or corrected proposal matching the
// given filters to the named ERP writer and marks them exported. The whole
// operation is serialised globally (spec.md §5) so two concurrent exports
// never claim overlapping proposals: the second call fails NothingToExport
// because the first has already flipped statuses to exported inside its own
// transaction before releasing exportMu.
func (p *Pipeline) ExportApproved(clientID string, erp types.ERPTarget, format string) (*erpexport.Result, error) {
	p.store.exportMu.Lock()
	defer p.store.exportMu.Unlock()

	timer := logging.StartTimer(logging.CategoryPipeline, "ExportApproved")
	defer timer.Stop()

	proposals, err := p.store.listByStatus([]types.Status{types.StatusApproved, types.StatusCorrected}, clientID, erp)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindFatal, err, "list exportable proposals")
	}
	if len(proposals) == 0 {
		return nil, apperr.Newf(apperr.KindNotFound, "nothing to export for erp=%s", erp)
	}

	writer, ok := p.writers[erp]
	if !ok {
		return nil, apperr.Newf(apperr.KindValidation, "no export writer configured for %s", erp)
	}

	collisions := tieBreakCollisions(proposals)
	result, err := writer.Write(p.exportDir, proposals, format)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExternalService, err, "write export file")
	}
	result.Collisions = collisions

	ids := make([]string, len(proposals))
	for i, pr := range proposals {
		ids[i] = pr.ID
	}
	if err := p.store.markExported(ids); err != nil {
		return nil, apperr.Wrap(apperr.KindFatal, err, "mark exported")
	}
	result.ExportedCount = len(ids)
	logging.For(logging.CategoryPipeline).Info("export complete",
		zap.Int("count", len(ids)), zap.Int("collisions", len(collisions)), zap.String("erp", string(erp)))
	return result, nil
}

// tieBreakCollisions flags every proposal whose natural key (same document
// number, client, and kind) is shared with another exportable proposal.
// Colliding proposals are still exported — deduplication is the human's job
// (spec.md §4.1 "Tie-breaks") — the export result only carries the warning.
func tieBreakCollisions(proposals []*types.BookingProposal) (collisions []string) {
	byKey := make(map[string][]string, len(proposals))
	for _, pr := range proposals {
		key := pr.TieBreakKey()
		byKey[key] = append(byKey[key], pr.ID)
	}
	for _, pr := range proposals {
		if len(byKey[pr.TieBreakKey()]) > 1 {
			collisions = append(collisions, pr.ID)
		}
	}
	return collisions
}
