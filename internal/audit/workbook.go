// Package audit exports stored bookings as xlsx workbooks.
package audit

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// workbook writes sheets row by row.
type workbook struct {
	file  *excelize.File
	sheet string
	row   int
	bold  int
}

func newWorkbook() *workbook {
	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		bold = 0
	}
	return &workbook{file: f, bold: bold}
}

// addSheet starts a new sheet; the first call renames the default one.
func (w *workbook) addSheet(name string) error {
	// Excel limit
	if len(name) > 31 {
		name = name[:31]
	}
	if w.sheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet: %w", err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	w.sheet = name
	w.row = 1
	return nil
}

func (w *workbook) writeHeader(columns []string) error {
	values := make([]interface{}, len(columns))
	for i, c := range columns {
		values[i] = c
	}
	if err := w.writeRow(values); err != nil {
		return err
	}
	if w.bold != 0 {
		start, _ := excelize.CoordinatesToCellName(1, w.row-1)
		end, _ := excelize.CoordinatesToCellName(len(columns), w.row-1)
		_ = w.file.SetCellStyle(w.sheet, start, end, w.bold)
	}
	return nil
}

func (w *workbook) writeRow(values []interface{}) error {
	if w.sheet == "" {
		return fmt.Errorf("no active sheet")
	}
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(w.sheet, cell, &values); err != nil {
		return err
	}
	w.row++
	return nil
}

func (w *workbook) save(out io.Writer) error {
	return w.file.Write(out)
}

func (w *workbook) close() error {
	return w.file.Close()
}
