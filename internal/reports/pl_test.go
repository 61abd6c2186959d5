package reports

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/courtledger/courtledger/internal/coa"
	"github.com/courtledger/courtledger/internal/ledger"
)

func entry(status ledger.Status, lines ...ledger.Line) ledger.Entry {
	return ledger.Entry{Status: status, Lines: lines}
}

func debit(code string, amount int64) ledger.Line {
	return ledger.Line{AccountCode: code, Side: coa.SideDebit, Amount: amount}
}

func credit(code string, amount int64) ledger.Line {
	return ledger.Line{AccountCode: code, Side: coa.SideCredit, Amount: amount}
}

func TestBuildProfitAndLoss(t *testing.T) {
	now := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	entries := []ledger.Entry{
		// member income: cash in, revenue credit
		entry(ledger.StatusPosted, debit("1-001", 500000), credit("4-001", 500000)),
		// session revenue
		entry(ledger.StatusPosted, debit("1-001", 700000), credit("4-002", 700000)),
		// session closing: COGS + opex out of cash/inventory
		entry(ledger.StatusPosted,
			debit("5-001", 13280), credit("1-101", 13280),
			debit("6-001", 160000), debit("6-002", 250000), credit("1-001", 410000)),
		// refund shrinks revenue
		entry(ledger.StatusPosted, debit("4-002", 50000), credit("1-001", 50000)),
	}
	pl := BuildProfitAndLoss(entries, now)

	require.Equal(t, int64(500000+700000-50000), pl.TotalRev)
	require.Equal(t, int64(13280), pl.TotalCOGS)
	require.Equal(t, int64(410000), pl.TotalOpex)
	require.Equal(t, pl.TotalRev-pl.TotalCOGS, pl.GrossProfit)
	require.Equal(t, pl.GrossProfit-pl.TotalOpex, pl.NetProfit)
	require.Equal(t, 4, pl.EntryCount)
	require.Equal(t, now, pl.GeneratedAt)

	require.Len(t, pl.Revenue, 2)
	require.Equal(t, "4-001", pl.Revenue[0].AccountCode)
	require.Equal(t, int64(650000), pl.Revenue[1].Amount)
}

func TestBuildProfitAndLossSkipsReversedEntries(t *testing.T) {
	entries := []ledger.Entry{
		entry(ledger.StatusReversed, debit("1-001", 500000), credit("4-001", 500000)),
	}
	pl := BuildProfitAndLoss(entries, time.Now())
	require.Zero(t, pl.TotalRev)
	require.Zero(t, pl.EntryCount)
}

func TestBuildProfitAndLossExcludesReversalPairs(t *testing.T) {
	mirror := entry(ledger.StatusPosted, debit("4-001", 500000), credit("1-001", 500000))
	mirror.Metadata = map[string]any{"reverses": "MBR-2025-001"}
	entries := []ledger.Entry{
		entry(ledger.StatusReversed, debit("1-001", 500000), credit("4-001", 500000)),
		mirror,
		entry(ledger.StatusPosted, debit("1-001", 700000), credit("4-002", 700000)),
	}
	pl := BuildProfitAndLoss(entries, time.Now())

	// the reversed pair cancels out entirely; only the live entry counts
	require.Equal(t, int64(700000), pl.TotalRev)
	require.Equal(t, 1, pl.EntryCount)
	require.Len(t, pl.Revenue, 1)
	require.Equal(t, "4-002", pl.Revenue[0].AccountCode)
}

func TestWriteCSVGroupsRupiah(t *testing.T) {
	pl := BuildProfitAndLoss([]ledger.Entry{
		entry(ledger.StatusPosted, debit("1-001", 1250000), credit("4-001", 1250000)),
	}, time.Now())

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, pl))
	out := buf.String()
	require.Contains(t, out, "section,account_code,amount_idr")
	require.Contains(t, out, "revenue,4-001,1.250.000")
	require.Contains(t, out, "net_profit,,1.250.000")
	require.True(t, strings.HasSuffix(out, "\r\n"))
}

type countingLedger struct {
	calls  atomic.Int32
	block  chan struct{}
	blockN int32
}

func (l *countingLedger) List(ctx context.Context, limit int) ([]ledger.Entry, error) {
	n := l.calls.Add(1)
	if l.block != nil && n <= l.blockN {
		<-l.block
	}
	return []ledger.Entry{
		entry(ledger.StatusPosted, debit("1-001", 100000), credit("4-001", 100000)),
	}, nil
}

func TestConcurrentRequestsCollapse(t *testing.T) {
	src := &countingLedger{block: make(chan struct{}), blockN: 1}
	svc := NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), src, nil)

	var wg sync.WaitGroup
	results := make([]ProfitAndLoss, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pl, err := svc.ProfitAndLoss(context.Background())
			require.NoError(t, err)
			results[i] = pl
		}(i)
	}
	// let the goroutines pile onto the in-flight recompute
	time.Sleep(50 * time.Millisecond)
	close(src.block)
	wg.Wait()

	require.Equal(t, int32(1), src.calls.Load())
	for _, pl := range results {
		require.Equal(t, int64(100000), pl.TotalRev)
	}
}
