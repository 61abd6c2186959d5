package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/courtledger/courtledger/internal/coa"
)

func sumSides(lines []LineInput) (debit, credit int64) {
	for _, l := range lines {
		if l.Side == coa.SideDebit {
			debit += l.Amount
		} else {
			credit += l.Amount
		}
	}
	return debit, credit
}

func TestBuildIncome(t *testing.T) {
	input, err := BuildIncome(IncomeInput{
		RefID:          "INC-1",
		Date:           time.Now(),
		Description:    "drop-in payment",
		TargetAccount:  coa.AccountCash,
		RevenueAccount: coa.AccountSessionRevenue,
		Amount:         70000,
	})
	require.NoError(t, err)
	require.NoError(t, input.Validate())
	require.Len(t, input.Lines, 2)

	debit, credit := sumSides(input.Lines)
	require.Equal(t, int64(70000), debit)
	require.Equal(t, int64(70000), credit)
}

func TestBuildExpenseAcceptsExactSplit(t *testing.T) {
	input, err := BuildExpense(ExpenseInput{
		RefID:         "EXP-1",
		Date:          time.Now(),
		Description:   "session costs",
		SourceAccount: coa.AccountCash,
		Total:         500000,
		Splits: []ExpenseSplit{
			{AccountCode: coa.AccountCourtFee, Amount: 300000},
			{AccountCode: coa.AccountCoachFee, Amount: 200000},
		},
	})
	require.NoError(t, err)
	require.NoError(t, input.Validate())

	debit, credit := sumSides(input.Lines)
	require.Equal(t, int64(500000), debit)
	require.Equal(t, int64(500000), credit)
}

func TestBuildExpenseRejectsSplitMismatch(t *testing.T) {
	_, err := BuildExpense(ExpenseInput{
		RefID:         "EXP-2",
		Date:          time.Now(),
		Description:   "short split",
		SourceAccount: coa.AccountCash,
		Total:         500000,
		Splits: []ExpenseSplit{
			{AccountCode: coa.AccountCourtFee, Amount: 300000},
			{AccountCode: coa.AccountCoachFee, Amount: 150000},
		},
	})
	require.ErrorIs(t, err, ErrSplitMismatch)
}

func TestBuildTransferWithFee(t *testing.T) {
	input, err := BuildTransfer(TransferInput{
		RefID:         "TRF-1",
		Date:          time.Now(),
		Description:   "cash to bank",
		SourceAccount: coa.AccountCash,
		TargetAccount: coa.AccountBank,
		Amount:        1000000,
		Fee:           6500,
	})
	require.NoError(t, err)
	require.NoError(t, input.Validate())
	require.Len(t, input.Lines, 3)

	debit, credit := sumSides(input.Lines)
	require.Equal(t, int64(1006500), debit)
	require.Equal(t, int64(1006500), credit)
	require.Equal(t, coa.AccountAdminFee, input.Lines[1].AccountCode)
}

func TestBuildTransferWithoutFee(t *testing.T) {
	input, err := BuildTransfer(TransferInput{
		RefID:         "TRF-2",
		Date:          time.Now(),
		Description:   "bank to cash",
		SourceAccount: coa.AccountBank,
		TargetAccount: coa.AccountCash,
		Amount:        250000,
	})
	require.NoError(t, err)
	require.Len(t, input.Lines, 2)
	require.NoError(t, input.Validate())
}

func TestBuildTransferSameAccountRejected(t *testing.T) {
	_, err := BuildTransfer(TransferInput{
		RefID:         "TRF-3",
		Date:          time.Now(),
		SourceAccount: coa.AccountCash,
		TargetAccount: coa.AccountCash,
		Amount:        1000,
	})
	require.Error(t, err)
}
