// Package workbook decodes, patches and re-encodes XLSX documents.
package workbook

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ErrNoSheets is returned when a document has no worksheet to append to.
var ErrNoSheets = errors.New("workbook has no sheets")

// Workbook is a decoded spreadsheet held in memory.
type Workbook struct {
	f *excelize.File
}

// Decode parses an XLSX document.
func Decode(data []byte) (*Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return &Workbook{f: f}, nil
}

// Sheets lists sheet names in document order.
func (w *Workbook) Sheets() []string {
	return w.f.GetSheetList()
}

// FirstSheet returns the name of the first sheet in document order.
func (w *Workbook) FirstSheet() (string, error) {
	sheets := w.f.GetSheetList()
	if len(sheets) == 0 {
		return "", ErrNoSheets
	}
	return sheets[0], nil
}

// Rows returns the formatted cell values of sheet.
func (w *Workbook) Rows(sheet string) ([][]string, error) {
	rows, err := w.f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read rows of %q: %w", sheet, err)
	}
	return rows, nil
}

// AppendRows writes rows after the last non-empty row of sheet, leaving
// existing rows untouched. It returns the 1-based index of the first new row.
func (w *Workbook) AppendRows(sheet string, rows [][]any) (int, error) {
	existing, err := w.Rows(sheet)
	if err != nil {
		return 0, err
	}
	start := len(existing) + 1
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, start+i)
		if err != nil {
			return 0, err
		}
		values := row
		if err := w.f.SetSheetRow(sheet, cell, &values); err != nil {
			return 0, fmt.Errorf("set row %d of %q: %w", start+i, sheet, err)
		}
	}
	return start, nil
}

// Encode serialises the full workbook, every sheet included.
func (w *Workbook) Encode() ([]byte, error) {
	buf, err := w.f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Close releases temporary resources held by the decoder.
func (w *Workbook) Close() error {
	return w.f.Close()
}

// New builds an encoded workbook with one sheet named sheet holding rows.
func New(sheet string, rows [][]any) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if sheet != "" && sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return nil, fmt.Errorf("rename sheet: %w", err)
		}
	} else {
		sheet = "Sheet1"
	}
	w := &Workbook{f: f}
	if len(rows) > 0 {
		if _, err := w.AppendRows(sheet, rows); err != nil {
			return nil, err
		}
	}
	return w.Encode()
}
