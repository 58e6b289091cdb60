// Package export writes batch results to an XLSX workbook.
package export

import (
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"

	"factures/pkg/models"
)

// Worksheet names.
const (
	InvoicesSheet = "Factures"
	LinesSheet    = "Lignes"
)

var lineColumns = []string{"File", "Invoice number", "Description", "Qty", "Unit", "Unit price", "Total"}

// WriteXLSX renders results as a workbook with one invoice per row on the
// first sheet and every line item on the second.
func WriteXLSX(w io.Writer, results []models.ProcessingResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", InvoicesSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(LinesSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	if err := writeRow(f, InvoicesSheet, 1, toAny(models.ResultColumns)); err != nil {
		return err
	}
	if err := writeRow(f, LinesSheet, 1, toAny(lineColumns)); err != nil {
		return err
	}

	lineRow := 2
	for i, r := range results {
		if err := writeRow(f, InvoicesSheet, i+2, r.Row()); err != nil {
			return err
		}
		if r.Record == nil {
			continue
		}
		for _, li := range r.Record.Lines {
			if err := writeRow(f, LinesSheet, lineRow, lineRowValues(r, li)); err != nil {
				return err
			}
			lineRow++
		}
	}

	for _, sheet := range []string{InvoicesSheet, LinesSheet} {
		if err := styleHeader(f, sheet); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(InvoicesSheet, "A", "A", 32)
	_ = f.SetColWidth(InvoicesSheet, "C", "H", 18)
	_ = f.SetColWidth(InvoicesSheet, "M", "Q", 28)
	_ = f.SetColWidth(LinesSheet, "C", "C", 48)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

// SaveXLSX writes the workbook to path.
func SaveXLSX(path string, results []models.ProcessingResult) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteXLSX(out, results); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func styleHeader(f *excelize.File, sheet string) error {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"E6E6E6"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	cols, err := f.GetCols(sheet)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(cols), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return err
	}
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func lineRowValues(r models.ProcessingResult, li models.LineItem) []any {
	number := ""
	if r.Record.InvoiceNumber != nil {
		number = *r.Record.InvoiceNumber
	}
	return []any{r.Filename, number, deref(li.Description), amount(li.Qty), deref(li.Unit), amount(li.UnitPrice), amount(li.Total)}
}

func toAny(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

func deref(s *string) any {
	if s == nil {
		return ""
	}
	return *s
}

func amount(a *models.Amount) any {
	if a == nil {
		return ""
	}
	return a.InexactFloat64()
}
