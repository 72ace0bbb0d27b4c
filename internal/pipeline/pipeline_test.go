package pipeline

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mladen1312/nyx-light-racunovodja/internal/apperr"
	"github.com/mladen1312/nyx-light-racunovodja/internal/erpexport"
	"github.com/mladen1312/nyx-light-racunovodja/internal/types"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	dir := t.TempDir()
	store, err := NewStore(filepath.Join(dir, "pipeline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	exportDir := filepath.Join(dir, "exports")
	require.NoError(t, os.MkdirAll(exportDir, 0o755))

	return New(store, exportDir, erpexport.Default())
}

func balancedProposal(clientID string) *types.BookingProposal {
	return &types.BookingProposal{
		ClientID:     clientID,
		DocumentKind: types.DocPurchaseInvoice,
		ERPTarget:    types.ERPCpp,
		Meta:         types.DocumentMeta{DocumentNo: "INV-001"},
		Lines: []types.BookingLine{
			{Account: "4000", Side: types.SideDebit, Amount: decimal.NewFromFloat(100)},
			{Account: "2200", Side: types.SideCredit, Amount: decimal.NewFromFloat(100)},
		},
	}
}

func TestSubmit_RejectsUnbalancedProposal(t *testing.T) {
	p := newTestPipeline(t)
	proposal := balancedProposal("client-1")
	proposal.Lines[1].Amount = decimal.NewFromFloat(50)

	_, err := p.Submit(proposal)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestSubmit_RequiresClientID(t *testing.T) {
	p := newTestPipeline(t)
	proposal := balancedProposal("")
	_, err := p.Submit(proposal)
	require.Error(t, err)
}

func TestApprove_TransitionsPendingToApproved(t *testing.T) {
	p := newTestPipeline(t)
	id, err := p.Submit(balancedProposal("client-1"))
	require.NoError(t, err)

	approved, err := p.Approve(id, "alice")
	require.NoError(t, err)
	assert.Equal(t, types.StatusApproved, approved.Status)
}

func TestApprove_SecondCallFails(t *testing.T) {
	p := newTestPipeline(t)
	id, err := p.Submit(balancedProposal("client-1"))
	require.NoError(t, err)

	_, err = p.Approve(id, "alice")
	require.NoError(t, err)

	_, err = p.Approve(id, "bob")
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

// Two concurrent approvals for the same proposal race; exactly one must
// succeed (spec.md §5).
func TestApprove_ConcurrentRaceExactlyOneWins(t *testing.T) {
	p := newTestPipeline(t)
	id, err := p.Submit(balancedProposal("client-1"))
	require.NoError(t, err)

	const attempts = 8
	var wg sync.WaitGroup
	successes := make([]bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := p.Approve(id, "racer")
			successes[i] = err == nil
		}(i)
	}
	wg.Wait()

	count := 0
	for _, ok := range successes {
		if ok {
			count++
		}
	}
	assert.Equal(t, 1, count, "exactly one approval must win")
}

func TestApprove_UnknownIDReturnsNotFound(t *testing.T) {
	p := newTestPipeline(t)
	_, err := p.Approve("does-not-exist", "alice")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCorrect_ReplacesLinesAndRecordsCorrection(t *testing.T) {
	p := newTestPipeline(t)
	id, err := p.Submit(balancedProposal("client-1"))
	require.NoError(t, err)

	corrected := []types.BookingLine{
		{Account: "4000", Side: types.SideDebit, Amount: decimal.NewFromFloat(120)},
		{Account: "2200", Side: types.SideCredit, Amount: decimal.NewFromFloat(120)},
	}
	result, err := p.Correct(id, "alice", "wrong amount", corrected)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCorrected, result.Status)
	assert.True(t, result.Lines[0].Amount.Equal(decimal.NewFromFloat(120)))
}

func TestCorrect_RejectsUnbalancedCorrection(t *testing.T) {
	p := newTestPipeline(t)
	id, err := p.Submit(balancedProposal("client-1"))
	require.NoError(t, err)

	corrected := []types.BookingLine{
		{Account: "4000", Side: types.SideDebit, Amount: decimal.NewFromFloat(120)},
		{Account: "2200", Side: types.SideCredit, Amount: decimal.NewFromFloat(90)},
	}
	_, err = p.Correct(id, "alice", "typo", corrected)
	require.Error(t, err)
}

func TestReject_NeverReachesExport(t *testing.T) {
	p := newTestPipeline(t)
	id, err := p.Submit(balancedProposal("client-1"))
	require.NoError(t, err)

	_, err = p.Reject(id, "alice", "duplicate document")
	require.NoError(t, err)

	_, err = p.ExportApproved("client-1", types.ERPCpp, "")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestExportApproved_WritesFileAndMarksExported(t *testing.T) {
	p := newTestPipeline(t)
	id, err := p.Submit(balancedProposal("client-1"))
	require.NoError(t, err)
	_, err = p.Approve(id, "alice")
	require.NoError(t, err)

	result, err := p.ExportApproved("client-1", types.ERPCpp, "")
	require.NoError(t, err)
	assert.Equal(t, 1, result.ExportedCount)
	assert.FileExists(t, result.Path)

	// The state transition is one-way: a second export call fails
	// NothingToExport because everything is already exported.
	_, err = p.ExportApproved("client-1", types.ERPCpp, "")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestExportApproved_FlagsTieBreakCollisions(t *testing.T) {
	p := newTestPipeline(t)
	a := balancedProposal("client-1")
	b := balancedProposal("client-1") // same document number, client, kind

	idA, err := p.Submit(a)
	require.NoError(t, err)
	idB, err := p.Submit(b)
	require.NoError(t, err)
	_, err = p.Approve(idA, "alice")
	require.NoError(t, err)
	_, err = p.Approve(idB, "alice")
	require.NoError(t, err)

	// Both collide on the natural key; both are still exported and both are
	// flagged — deduplication is the human's job.
	result, err := p.ExportApproved("client-1", types.ERPCpp, "")
	require.NoError(t, err)
	assert.Equal(t, 2, result.ExportedCount)
	assert.ElementsMatch(t, []string{idA, idB}, result.Collisions)
}

func TestExportApproved_ConcurrentCallsSeeDisjointSets(t *testing.T) {
	p := newTestPipeline(t)
	ids := make([]string, 0, 4)
	for i := 0; i < 4; i++ {
		proposal := balancedProposal("client-1")
		proposal.Meta.DocumentNo = filepath.Join("INV", string(rune('A'+i)))
		id, err := p.Submit(proposal)
		require.NoError(t, err)
		_, err = p.Approve(id, "alice")
		require.NoError(t, err)
		ids = append(ids, id)
	}

	// Export is serialised globally: the loser of the race sees nothing
	// left and fails NothingToExport; the winner claims all four.
	var wg sync.WaitGroup
	counts := make([]int, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := p.ExportApproved("client-1", types.ERPCpp, "")
			if err != nil {
				require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
				return
			}
			counts[i] = r.ExportedCount
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 4, counts[0]+counts[1])
}
