// Package gsc rolls enriched Google Search Console rows up to page level.
package gsc

import (
	"fmt"
	"strconv"
	"strings"
)

// Columns names the GSC export columns found in a header
type Columns struct {
	Query       string
	Page        string
	Clicks      string
	Impressions string
	CTR         string
	Position    string
}

var aliases = map[string][]string{
	"query":       {"query", "top queries", "queries", "keyword", "search query"},
	"page":        {"page", "top pages", "pages", "landing page", "url", "address"},
	"clicks":      {"clicks", "url clicks"},
	"impressions": {"impressions"},
	"ctr":         {"ctr", "url ctr"},
	"position":    {"position", "average position", "avg. position"},
}

// DetectColumns maps an export header onto Columns, case-insensitively.
// Query and Page are required; the metric columns are optional.
func DetectColumns(header []string) (Columns, error) {
	find := func(field string) string {
		for _, alias := range aliases[field] {
			for _, h := range header {
				if strings.EqualFold(strings.TrimSpace(h), alias) {
					return h
				}
			}
		}
		return ""
	}

	cols := Columns{
		Query:       find("query"),
		Page:        find("page"),
		Clicks:      find("clicks"),
		Impressions: find("impressions"),
		CTR:         find("ctr"),
		Position:    find("position"),
	}

	var missing []string
	if cols.Query == "" {
		missing = append(missing, "query")
	}
	if cols.Page == "" {
		missing = append(missing, "page")
	}
	if len(missing) > 0 {
		return cols, fmt.Errorf("not a GSC export: missing %s column(s) in header %q", strings.Join(missing, ", "), header)
	}
	return cols, nil
}

// ParseNumber reads a GSC cell such as "1,234", "5.2%" or " 3 ".
// ok is false for empty or unparseable cells.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
