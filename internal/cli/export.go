package cli

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"dompet/internal/core"
)

const exportSheet = "Ledger"

// WriteWorkbook writes items to an xlsx file at path: a header row, one row
// per item, then a Balance row. Dates are written in loc.
func WriteWorkbook(path string, items []core.LedgerItem, loc *time.Location) error {
	f, err := BuildWorkbook(items, loc)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// BuildWorkbook lays out the ledger workbook in memory.
func BuildWorkbook(items []core.LedgerItem, loc *time.Location) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	headers := []string{"Datetime", "Name", "Description", "Price"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			return nil, err
		}
	}

	amounts := make([]core.Amount, 0, len(items))
	for idx, it := range items {
		row := idx + 2
		amounts = append(amounts, it.Price)
		values := []any{
			core.FormatDatetime(it.Datetime, loc),
			it.Name,
			it.Description,
			it.Price.Decimal().InexactFloat64(),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(exportSheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	balanceRow := len(items) + 2
	if err := f.SetCellValue(exportSheet, fmt.Sprintf("A%d", balanceRow), "Balance"); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(exportSheet, fmt.Sprintf("D%d", balanceRow), core.Balance(amounts).InexactFloat64()); err != nil {
		return nil, err
	}

	f.SetColWidth(exportSheet, "A", "A", 24)
	f.SetColWidth(exportSheet, "B", "B", 28)
	f.SetColWidth(exportSheet, "C", "C", 36)
	f.SetColWidth(exportSheet, "D", "D", 14)
	return f, nil
}
