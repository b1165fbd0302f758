// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package godley interprets Godley double-entry accounting tables (§3
// "Godley table", §4.4, §4.5).
package godley

import (
	"strconv"
	"strings"

	"github.com/cpmech/gosl/chk"
)

// AssetClass tags a Godley column's accounting role; it determines whether
// the sign convention is reversed in double-entry mode.
type AssetClass int

const (
	Unclassified AssetClass = iota
	Asset
	Liability
	Equity
)

// Term is one signed variable reference parsed out of an interior cell,
// e.g. "-2a" => {Coeff: -2, Name: "a"}.
type Term struct {
	Coeff float64
	Name  string
}

// Table is a two-dimensional Godley grid. Row 0 is column headings; column 0
// is row labels. Cells[r][c] holds the raw formula string as typed.
type Table struct {
	Cells   [][]string
	Classes []AssetClass // one per data column (excludes column 0)

	doubleEntry bool
}

// NewTable returns a table with nRows rows and nCols data columns (plus the
// row-label column), all cells empty.
func NewTable(nRows, nCols int) *Table {
	t := &Table{Classes: make([]AssetClass, nCols)}
	t.Cells = make([][]string, nRows)
	for r := range t.Cells {
		t.Cells[r] = make([]string, nCols+1)
	}
	return t
}

func isInitialConditionsLabel(label string) bool {
	s := strings.ToLower(strings.TrimLeft(label, " \t"))
	return strings.HasPrefix(s, "initial conditions")
}

// IsInitialConditionsRow reports whether row r's label marks it as an
// initial-value row rather than a flow row.
func (t *Table) IsInitialConditionsRow(r int) bool {
	if r <= 0 || r >= len(t.Cells) {
		return false
	}
	return isInitialConditionsLabel(t.Cells[r][0])
}

// stripNonAlnum removes every rune that isn't an ASCII letter, digit or
// underscore; underscores are kept so headings can name variables such as
// "stock_x".
func stripNonAlnum(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ColumnVariables returns the ordered list of stock names from row 0,
// skipping empty headings and stripping every character other than letters,
// digits and underscores.
func (t *Table) ColumnVariables() []string {
	if len(t.Cells) == 0 {
		return nil
	}
	var out []string
	for c := 1; c < len(t.Cells[0]); c++ {
		name := stripNonAlnum(t.Cells[0][c])
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}

// InteriorVariables returns the set of flow-variable names referenced in any
// non-initial-condition interior cell.
func (t *Table) InteriorVariables() map[string]bool {
	out := make(map[string]bool)
	for r := 1; r < len(t.Cells); r++ {
		if t.IsInitialConditionsRow(r) {
			continue
		}
		for c := 1; c < len(t.Cells[r]); c++ {
			for _, term := range parseCell(t.Cells[r][c]) {
				out[term.Name] = true
			}
		}
	}
	return out
}

// parseCell parses a cell of the form "[sign][coeff]name[,[sign][coeff]name...]".
// Minsky cells normally hold a single term; this also tolerates a
// comma-separated list, matching the richer interior-cell grammar permitted
// by the original schema.
func parseCell(cell string) []Term {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	var out []Term
	for _, part := range strings.Split(cell, ",") {
		if t, ok := parseTerm(part); ok {
			out = append(out, t)
		}
	}
	return out
}

// parseTerm parses one signed, optionally coefficiented variable reference.
// "-" alone means coefficient -1 with no name (a bare sign marker; ignored).
func parseTerm(s string) (Term, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Term{}, false
	}
	sign := 1.0
	if strings.HasPrefix(s, "+") {
		s = s[1:]
	} else if strings.HasPrefix(s, "-") {
		sign = -1
		s = s[1:]
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return Term{}, false // bare sign, no name
	}
	// split a leading numeric coefficient from the trailing name
	i := 0
	for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.') {
		i++
	}
	coeff := 1.0
	name := s
	if i > 0 {
		if v, err := strconv.ParseFloat(s[:i], 64); err == nil {
			coeff = v
			name = strings.TrimSpace(s[i:])
		}
	}
	if name == "" {
		return Term{}, false
	}
	return Term{Coeff: sign * coeff, Name: name}, true
}

// SignConventionReversed reports whether column c (0-based data column
// index) has its natural sign flipped, per §4.4: true iff double-entry mode
// is on and the column is classified liability or equity.
func (t *Table) SignConventionReversed(c int) bool {
	if c < 0 || c >= len(t.Classes) {
		return false
	}
	if !t.doubleEntry {
		return false
	}
	class := t.Classes[c]
	return class == Liability || class == Equity
}

// SetDoubleEntryMode toggles double-entry mode. On a false->true transition
// every interior cell of a liability/equity column has its leading sign
// flipped in place (§4.4, §9 design note on representing the toggle as a
// view transform would be preferable, but the mutate-in-place behavior is
// what the original implements and what callers of set_double_entry_mode
// observe).
func (t *Table) SetDoubleEntryMode(m bool) {
	if m == t.doubleEntry {
		return
	}
	if m {
		for c := range t.Classes {
			if t.Classes[c] != Liability && t.Classes[c] != Equity {
				continue
			}
			for r := 1; r < len(t.Cells); r++ {
				col := c + 1
				if col >= len(t.Cells[r]) {
					continue
				}
				t.Cells[r][col] = flipLeadingSign(t.Cells[r][col])
			}
		}
	}
	t.doubleEntry = m
}

// DoubleEntry reports the table's current double-entry mode.
func (t *Table) DoubleEntry() bool { return t.doubleEntry }

// SetDoubleEntryRaw sets the double-entry flag without touching any cell,
// for reconstructing a table from storage where the cells already reflect
// whatever sign convention was in effect when it was saved. Contrast with
// SetDoubleEntryMode, which is the user-facing toggle and mutates cells.
func (t *Table) SetDoubleEntryRaw(m bool) { t.doubleEntry = m }

func flipLeadingSign(cell string) string {
	s := strings.TrimSpace(cell)
	if s == "" {
		return cell
	}
	if strings.HasPrefix(s, "-") {
		return "+" + s[1:]
	}
	if strings.HasPrefix(s, "+") {
		return "-" + s[1:]
	}
	return "-" + s
}

// RowSum returns the canonical signed-sum string for row r, e.g. "+a-b+2c",
// or "0" if every term cancels or the row is empty. Coefficients that cancel
// to exactly zero are omitted.
func (t *Table) RowSum(r int) string {
	totals := make(map[string]float64)
	var order []string
	for c := 1; c < len(t.Cells[r]); c++ {
		rev := t.SignConventionReversed(c - 1)
		for _, term := range parseCell(t.Cells[r][c]) {
			coeff := term.Coeff
			if rev {
				coeff = -coeff
			}
			if _, ok := totals[term.Name]; !ok {
				order = append(order, term.Name)
			}
			totals[term.Name] += coeff
		}
	}
	var b strings.Builder
	for _, name := range order {
		v := totals[name]
		if v == 0 {
			continue
		}
		sign := "+"
		if v < 0 {
			sign = "-"
			v = -v
		}
		b.WriteString(sign)
		if v != 1 {
			b.WriteString(formatCoeff(v))
		}
		b.WriteString(name)
	}
	if b.Len() == 0 {
		return "0"
	}
	return b.String()
}

func formatCoeff(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// CheckDoubleEntry returns an error if, in double-entry mode, some
// non-initial-condition row's RowSum is not "0" (§8 invariant 3).
func (t *Table) CheckDoubleEntry() error {
	if !t.doubleEntry {
		return nil
	}
	for r := 1; r < len(t.Cells); r++ {
		if t.IsInitialConditionsRow(r) {
			continue
		}
		if sum := t.RowSum(r); sum != "0" {
			return chk.Err("godley table row %d is not balanced: %s", r, sum)
		}
	}
	return nil
}

// Terms returns the parsed signed terms of cell (r,c) (1-based data column),
// applying the column's sign reversal.
func (t *Table) Terms(r, c int) []Term {
	rev := t.SignConventionReversed(c - 1)
	terms := parseCell(t.Cells[r][c])
	if rev {
		for i := range terms {
			terms[i].Coeff = -terms[i].Coeff
		}
	}
	return terms
}
