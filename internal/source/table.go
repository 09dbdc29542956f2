// Package source reads rate documents into header/row tables.
package source

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingColumns is returned when a table lacks a required header.
var ErrMissingColumns = errors.New("missing required columns")

// Table is a rate document reduced to its header row and data rows.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Index returns the position of the named header, or -1. Headers compare
// trimmed and case-insensitively.
func (t Table) Index(name string) int {
	return IndexOf(t.Headers, name)
}

// IndexOf finds name in headers the way Table.Index does.
func IndexOf(headers []string, name string) int {
	name = strings.TrimSpace(name)
	for i, h := range headers {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

// Require checks that every named header exists.
func Require(headers []string, names ...string) error {
	var missing []string
	for _, n := range names {
		if IndexOf(headers, n) < 0 {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return nil
}

// Cell returns the trimmed value at idx, or "" when idx is negative or the
// row is short.
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// Merge appends the rows of every table to the first. Later tables are
// re-ordered to the first table's headers; columns they lack are left blank.
func Merge(tables ...Table) Table {
	if len(tables) == 0 {
		return Table{}
	}
	out := Table{Headers: append([]string(nil), tables[0].Headers...)}
	out.Rows = append(out.Rows, tables[0].Rows...)

	for _, t := range tables[1:] {
		idx := make([]int, len(out.Headers))
		for i, h := range out.Headers {
			idx[i] = t.Index(h)
		}
		for _, row := range t.Rows {
			mapped := make([]string, len(out.Headers))
			for i, j := range idx {
				if j >= 0 && j < len(row) {
					mapped[i] = row[j]
				}
			}
			out.Rows = append(out.Rows, mapped)
		}
	}
	return out
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
