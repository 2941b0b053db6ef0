// Package table reads keyword spreadsheets and writes enriched results as CSV or XLSX.
package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"keyword-enricher/pkg/model"
)

// Input is a parsed upload: the header in file order and one Row per data line
type Input struct {
	Name   string
	Header []string
	Rows   []model.Row
}

// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX
var ErrUnsupportedFormat = errors.New("unsupported file format (want .csv, .txt or .xlsx)")

// Read parses r according to the extension of name
func Read(name string, r io.Reader) (*Input, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt", ".tsv":
		return ReadCSV(name, r)
	case ".xlsx", ".xlsm":
		return ReadXLSX(name, r)
	default:
		return nil, fmt.Errorf("%s: %w", name, ErrUnsupportedFormat)
	}
}

// ReadCSV parses delimited text. UTF-8 and UTF-16 byte order marks are honored
// and the delimiter (comma, semicolon or tab) is taken from the header line.
func ReadCSV(name string, r io.Reader) (*Input, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	data, err := io.ReadAll(decoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sniffDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return fromRecords(name, records)
}

// ReadXLSX parses the first worksheet of a workbook
func ReadXLSX(name string, r io.Reader) (*Input, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s has no worksheets", name)
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q of %s: %w", sheets[0], name, err)
	}
	return fromRecords(name, records)
}

func fromRecords(name string, records [][]string) (*Input, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%s is empty", name)
	}

	header := uniqueHeader(records[0])
	in := &Input{Name: name, Header: header}

	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		row := make(model.Row, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = strings.TrimSpace(rec[i])
			} else {
				row[col] = ""
			}
		}
		in.Rows = append(in.Rows, row)
	}

	return in, nil
}

// uniqueHeader names blank columns and disambiguates repeated ones
func uniqueHeader(raw []string) []string {
	header := make([]string, len(raw))
	seen := make(map[string]int, len(raw))

	for i, h := range raw {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Column %d", i+1)
		}
		seen[h]++
		if n := seen[h]; n > 1 {
			h = fmt.Sprintf("%s (%d)", h, n)
		}
		header[i] = h
	}
	return header
}

func blank(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}

	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

var keywordColumnCandidates = []string{"keyword", "keywords", "query", "top queries", "queries", "search term", "search query"}

// DetectKeywordColumn resolves the keyword column. A requested name must exist
// (case-insensitive); otherwise well-known names are tried, then the first column.
func DetectKeywordColumn(header []string, requested string) (string, error) {
	if len(header) == 0 {
		return "", errors.New("input has no columns")
	}

	if requested = strings.TrimSpace(requested); requested != "" {
		for _, h := range header {
			if strings.EqualFold(h, requested) {
				return h, nil
			}
		}
		return "", fmt.Errorf("keyword column %q not found (available: %s)", requested, strings.Join(header, ", "))
	}

	for _, candidate := range keywordColumnCandidates {
		for _, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), candidate) {
				return h, nil
			}
		}
	}
	return header[0], nil
}
