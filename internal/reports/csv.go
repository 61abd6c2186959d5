package reports

import (
	"encoding/csv"
	"fmt"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var rupiah = message.NewPrinter(language.Indonesian)

// WriteCSV renders the statement as a CSV document with grouped rupiah
// amounts.
func WriteCSV(w io.Writer, pl ProfitAndLoss) error {
	writer := csv.NewWriter(w)
	writer.UseCRLF = true

	rows := [][]string{
		{"section", "account_code", "amount_idr"},
	}
	rows = append(rows, sectionRows("revenue", pl.Revenue)...)
	rows = append(rows, []string{"revenue_total", "", formatRupiah(pl.TotalRev)})
	rows = append(rows, sectionRows("cogs", pl.COGS)...)
	rows = append(rows, []string{"cogs_total", "", formatRupiah(pl.TotalCOGS)})
	rows = append(rows, []string{"gross_profit", "", formatRupiah(pl.GrossProfit)})
	rows = append(rows, sectionRows("opex", pl.Opex)...)
	rows = append(rows, []string{"opex_total", "", formatRupiah(pl.TotalOpex)})
	rows = append(rows, []string{"net_profit", "", formatRupiah(pl.NetProfit)})

	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("reports: write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func sectionRows(name string, totals []AccountTotal) [][]string {
	rows := make([][]string, 0, len(totals))
	for _, t := range totals {
		rows = append(rows, []string{name, t.AccountCode, formatRupiah(t.Amount)})
	}
	return rows
}

func formatRupiah(amount int64) string {
	return rupiah.Sprintf("%d", amount)
}
