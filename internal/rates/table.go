// Package rates holds the banded rate tables used for domestic moves and
// looks up the rate that applies to a distance and volume.
package rates

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rate-estimator/internal/source"
)

// Rate types.
const (
	Flat     = "FLAT"
	Variable = "VARIABLE"
	Unknown  = "UNKNOWN"
)

// Roles a rule applies to.
const (
	RoleOrigin      = "ORIGIN"
	RoleDestination = "DESTINATION"
)

// Source column names.
const (
	ColOperation     = "Operation"
	ColType          = "Type"
	ColDistanceStart = "Distance start"
	ColDistanceEnd   = "Distance end"
	ColMinValue      = "Min. Value"
	ColMaxValue      = "Max. Value"
	ColRateType      = "Rate type"
	ColFlatRate      = "Flat rate in EUR"
	ColFlexRate      = "Flexibel( rate per cbm)"
)

// Rule is one band of a rate table.
type Rule struct {
	Operation     string  `json:"operation"`
	Type          string  `json:"type"`
	DistanceStart float64 `json:"distanceStart"`
	DistanceEnd   float64 `json:"distanceEnd"`
	MinValue      float64 `json:"minValue"`
	MaxValue      float64 `json:"maxValue"`
	RateType      string  `json:"rateType"`
	FlatRate      float64 `json:"flatRate"`
	FlexRate      float64 `json:"flexRate"`
}

// Table is an ordered rule list. Order matters: lookups take the first
// matching rule.
type Table struct {
	Rules []Rule `json:"rates"`
}

// Validate rejects tables that cannot have come from ParseTable.
func (t *Table) Validate() error {
	if t.Rules == nil {
		return errors.New("rates: missing rule list")
	}
	for i, r := range t.Rules {
		if r.Operation == "" || r.Type == "" {
			return fmt.Errorf("rates: rule %d has no operation or type", i)
		}
	}
	return nil
}

// ParseTable builds a table from a rate sheet. Operation, Type and Rate type
// are required columns; numeric cells that do not parse count as 0. Rows
// without an operation or type are skipped.
func ParseTable(headers []string, rows [][]string) (*Table, error) {
	if err := source.Require(headers, ColOperation, ColType, ColRateType); err != nil {
		return nil, err
	}

	var (
		iOp   = source.IndexOf(headers, ColOperation)
		iType = source.IndexOf(headers, ColType)
		iDS   = source.IndexOf(headers, ColDistanceStart)
		iDE   = source.IndexOf(headers, ColDistanceEnd)
		iMin  = source.IndexOf(headers, ColMinValue)
		iMax  = source.IndexOf(headers, ColMaxValue)
		iRate = source.IndexOf(headers, ColRateType)
		iFlat = source.IndexOf(headers, ColFlatRate)
		iFlex = source.IndexOf(headers, ColFlexRate)
	)

	t := &Table{Rules: make([]Rule, 0, len(rows))}
	for _, row := range rows {
		r := Rule{
			Operation:     source.Cell(row, iOp),
			Type:          source.Cell(row, iType),
			DistanceStart: number(source.Cell(row, iDS)),
			DistanceEnd:   number(source.Cell(row, iDE)),
			MinValue:      number(source.Cell(row, iMin)),
			MaxValue:      number(source.Cell(row, iMax)),
			RateType:      canonicalRateType(source.Cell(row, iRate)),
			FlatRate:      number(source.Cell(row, iFlat)),
			FlexRate:      number(source.Cell(row, iFlex)),
		}
		if r.Operation == "" || r.Type == "" {
			continue
		}
		t.Rules = append(t.Rules, r)
	}
	return t, nil
}

// canonicalRateType upper-cases the rate type and maps the Dutch spelling
// used in the source sheets to Variable.
func canonicalRateType(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "VARIABEL" {
		return Variable
	}
	return s
}

// number parses a sheet cell, accepting a decimal comma.
func number(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		v, err = strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
		if err != nil {
			return 0
		}
	}
	return v
}

// Operations returns the distinct operation names in table order.
func (t *Table) Operations() []string {
	seen := make(map[string]struct{})
	var ops []string
	for _, r := range t.Rules {
		if _, ok := seen[r.Operation]; ok {
			continue
		}
		seen[r.Operation] = struct{}{}
		ops = append(ops, r.Operation)
	}
	return ops
}
