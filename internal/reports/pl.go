package reports

import (
	"sort"
	"strings"
	"time"

	"github.com/courtledger/courtledger/internal/coa"
	"github.com/courtledger/courtledger/internal/ledger"
)

// AccountTotal is one account's net contribution to a report section.
type AccountTotal struct {
	AccountCode string `json:"account_code"`
	Amount      int64  `json:"amount"`
}

// ProfitAndLoss is the computed statement. Revenue nets credit minus debit;
// COGS and operating expenses net debit minus credit.
type ProfitAndLoss struct {
	Revenue     []AccountTotal `json:"revenue"`
	COGS        []AccountTotal `json:"cogs"`
	Opex        []AccountTotal `json:"opex"`
	TotalRev    int64          `json:"total_revenue"`
	TotalCOGS   int64          `json:"total_cogs"`
	TotalOpex   int64          `json:"total_opex"`
	GrossProfit int64          `json:"gross_profit"`
	NetProfit   int64          `json:"net_profit"`
	EntryCount  int            `json:"entry_count"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// BuildProfitAndLoss folds posted journal entries into a P&L statement.
// A reversed original and its mirror entry are both excluded: counting the
// mirror while skipping the original would invert the pair instead of
// cancelling it.
func BuildProfitAndLoss(entries []ledger.Entry, generatedAt time.Time) ProfitAndLoss {
	nets := map[string]int64{}
	counted := 0
	for _, entry := range entries {
		if entry.Status != ledger.StatusPosted {
			continue
		}
		if _, ok := entry.Metadata["reverses"]; ok {
			continue
		}
		counted++
		for _, line := range entry.Lines {
			switch sectionFor(line.AccountCode) {
			case sectionRevenue:
				nets[line.AccountCode] += signed(line, coa.SideCredit)
			case sectionCOGS, sectionOpex:
				nets[line.AccountCode] += signed(line, coa.SideDebit)
			}
		}
	}
	pl := ProfitAndLoss{EntryCount: counted, GeneratedAt: generatedAt}
	for code, amount := range nets {
		total := AccountTotal{AccountCode: code, Amount: amount}
		switch sectionFor(code) {
		case sectionRevenue:
			pl.Revenue = append(pl.Revenue, total)
			pl.TotalRev += amount
		case sectionCOGS:
			pl.COGS = append(pl.COGS, total)
			pl.TotalCOGS += amount
		case sectionOpex:
			pl.Opex = append(pl.Opex, total)
			pl.TotalOpex += amount
		}
	}
	sortTotals(pl.Revenue)
	sortTotals(pl.COGS)
	sortTotals(pl.Opex)
	pl.GrossProfit = pl.TotalRev - pl.TotalCOGS
	pl.NetProfit = pl.GrossProfit - pl.TotalOpex
	return pl
}

type section int

const (
	sectionNone section = iota
	sectionRevenue
	sectionCOGS
	sectionOpex
)

func sectionFor(code string) section {
	prefix, _, ok := strings.Cut(code, "-")
	if !ok {
		return sectionNone
	}
	switch prefix {
	case "4":
		return sectionRevenue
	case "5":
		return sectionCOGS
	case "6":
		return sectionOpex
	default:
		return sectionNone
	}
}

func signed(line ledger.Line, positive coa.Side) int64 {
	if line.Side == positive {
		return line.Amount
	}
	return -line.Amount
}

func sortTotals(totals []AccountTotal) {
	sort.Slice(totals, func(i, j int) bool { return totals[i].AccountCode < totals[j].AccountCode })
}
