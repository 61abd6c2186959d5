package coa

import (
	"errors"
	"fmt"
	"strings"
)

// Account codes used by built-in posting flows. The leading digit of a code
// determines its category: 1 asset, 2 liability, 4 revenue, 5 COGS, 6 opex.
const (
	AccountCash              = "1-001"
	AccountBank              = "1-002"
	AccountInventoryShuttles = "1-101"
	AccountFixedAssets       = "1-201"
	AccountMemberRevenue     = "4-001"
	AccountSessionRevenue    = "4-002"
	AccountStockGain         = "4-901"
	AccountShuttlecockCOGS   = "5-001"
	AccountCourtFee          = "6-001"
	AccountCoachFee          = "6-002"
	AccountAdminFee          = "6-003"
	AccountStockLoss         = "6-901"
)

// ErrUnknownCategory indicates a code whose prefix digit maps to no category.
var ErrUnknownCategory = errors.New("coa: unknown account category")

// CategoryForCode derives the category from the code's leading digit.
func CategoryForCode(code string) (Category, error) {
	prefix, _, ok := strings.Cut(code, "-")
	if !ok || len(prefix) != 1 {
		return "", fmt.Errorf("coa: malformed account code %q", code)
	}
	switch prefix {
	case "1":
		return CategoryAsset, nil
	case "2":
		return CategoryLiability, nil
	case "4":
		return CategoryRevenue, nil
	case "5":
		return CategoryCOGS, nil
	case "6":
		return CategoryOpex, nil
	}
	return "", fmt.Errorf("%w: code %q", ErrUnknownCategory, code)
}

// NormalSideFor returns the normal balance side for a category.
func NormalSideFor(category Category) Side {
	switch category {
	case CategoryLiability, CategoryRevenue:
		return SideCredit
	default:
		return SideDebit
	}
}

// DefaultAccounts returns the accounts seeded at deployment.
func DefaultAccounts() []Account {
	defs := []struct {
		code, name string
	}{
		{AccountCash, "Cash on Hand"},
		{AccountBank, "Bank"},
		{AccountInventoryShuttles, "Inventory - Shuttlecocks"},
		{AccountFixedAssets, "Fixed Assets"},
		{AccountMemberRevenue, "Membership Revenue"},
		{AccountSessionRevenue, "Session Revenue"},
		{AccountStockGain, "Stock Opname Gain"},
		{AccountShuttlecockCOGS, "Shuttlecock Consumption"},
		{AccountCourtFee, "Court Rental Fee"},
		{AccountCoachFee, "Coach Fee"},
		{AccountAdminFee, "Admin & Transfer Fees"},
		{AccountStockLoss, "Stock Opname Loss"},
	}
	accounts := make([]Account, 0, len(defs))
	for _, d := range defs {
		category, err := CategoryForCode(d.code)
		if err != nil {
			panic(err)
		}
		accounts = append(accounts, Account{
			Code:       d.code,
			Name:       d.name,
			Category:   category,
			NormalSide: NormalSideFor(category),
			IsActive:   true,
		})
	}
	return accounts
}
