package expense

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"
)

const (
	dataSheet    = "Expenses"
	summarySheet = "Summary"
)

// exportHeader is the fixed data sheet column layout
var exportHeader = []string{"Vendor", "Date", "Amount", "Currency", "Category", "Source"}

// ExportWorkbook renders a record set and its summary into an xlsx workbook
// with one data sheet and one summary sheet. records must already be in the
// canonical order (date ascending, ties by ID); identical inputs produce
// byte-identical output. Amounts are written as fixed two-decimal text so
// a re-read reconstructs them exactly.
func ExportWorkbook(records []*Record, summary *Summary) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", dataSheet)
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("creating summary sheet: %w", err)
	}

	if err := writeDataSheet(f, records); err != nil {
		return nil, err
	}
	if err := writeSummarySheet(f, summary); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeDataSheet(f *excelize.File, records []*Record) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"1F4E79"}},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	for col, name := range exportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(dataSheet, cell, name); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	if err := f.SetCellStyle(dataSheet, "A1", "F1", headerStyle); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}
	if err := f.SetColWidth(dataSheet, "A", "A", 28); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}

	for i, r := range records {
		row := i + 2
		values := []interface{}{
			r.Vendor,
			r.Date.Format("2006-01-02"),
			r.Amount.StringFixed(2),
			r.Currency,
			string(r.Category),
			string(r.Source),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(dataSheet, cell, v); err != nil {
				return fmt.Errorf("writing row %d: %w", row, err)
			}
		}
	}
	return nil
}

func writeSummarySheet(f *excelize.File, summary *Summary) error {
	set := func(row int, label string, value interface{}) error {
		if err := f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), label); err != nil {
			return err
		}
		return f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), value)
	}

	row := 1
	if err := set(row, "Total", summary.Total.StringFixed(2)); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	row++
	if err := set(row, "Count", summary.Count); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	row += 2

	if err := f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "By Category"); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	row++
	categories := make([]string, 0, len(summary.ByCategory))
	for c := range summary.ByCategory {
		categories = append(categories, string(c))
	}
	sort.Strings(categories)
	for _, c := range categories {
		if err := set(row, c, summary.ByCategory[Category(c)].StringFixed(2)); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
		row++
	}
	row++

	if err := f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "By Month"); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	row++
	months := make([]string, 0, len(summary.ByMonth))
	for m := range summary.ByMonth {
		months = append(months, m)
	}
	sort.Strings(months)
	for _, m := range months {
		if err := set(row, m, summary.ByMonth[m].StringFixed(2)); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
		row++
	}
	row++

	if err := f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "Top Vendors"); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	row++
	for _, v := range summary.TopVendors {
		if err := set(row, v.Vendor, v.Total.StringFixed(2)); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
		row++
	}
	return nil
}
