package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const maxColumnWidth = 50

// DefaultBaseName is the file name used for downloads when none is given
const DefaultBaseName = "seo_keywords_results"

// Sheet is one output table. Cells hold string, int64, float64 or nil.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]interface{}
}

// WriteCSV writes a single sheet as UTF-8 CSV
func WriteCSV(w io.Writer, s *Sheet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(s.Header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	record := make([]string, len(s.Header))
	for _, row := range s.Rows {
		for i := range record {
			record[i] = ""
			if i < len(row) {
				record[i] = formatCell(row[i])
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes every non-nil sheet into one workbook, in order.
// Headers are bold and each column is sized to min(longest cell + 2, 50).
func WriteXLSX(w io.Writer, sheets ...*Sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	first := true
	for _, s := range sheets {
		if s == nil {
			continue
		}

		if first {
			if err := f.SetSheetName(f.GetSheetName(0), s.Name); err != nil {
				return fmt.Errorf("failed to name sheet %q: %w", s.Name, err)
			}
			first = false
		} else if _, err := f.NewSheet(s.Name); err != nil {
			return fmt.Errorf("failed to add sheet %q: %w", s.Name, err)
		}

		if err := writeSheet(f, s, bold); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, s *Sheet, headerStyle int) error {
	widths := make([]int, len(s.Header))

	header := make([]interface{}, len(s.Header))
	for i, h := range s.Header {
		header[i] = h
		widths[i] = utf8.RuneCountInString(h)
	}
	if err := f.SetSheetRow(s.Name, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header of %q: %w", s.Name, err)
	}

	if len(s.Header) > 0 {
		last, err := excelize.CoordinatesToCellName(len(s.Header), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(s.Name, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("failed to style header of %q: %w", s.Name, err)
		}
	}

	for r, row := range s.Rows {
		cells := make([]interface{}, len(s.Header))
		for i := range cells {
			if i >= len(row) || row[i] == nil {
				continue
			}
			cells[i] = row[i]
			if n := utf8.RuneCountInString(formatCell(row[i])); n > widths[i] {
				widths[i] = n
			}
		}

		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(s.Name, cell, &cells); err != nil {
			return fmt.Errorf("failed to write row %d of %q: %w", r+2, s.Name, err)
		}
	}

	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(s.Name, col, col, float64(min(width+2, maxColumnWidth))); err != nil {
			return fmt.Errorf("failed to size column %s of %q: %w", col, s.Name, err)
		}
	}
	return nil
}

func formatCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
