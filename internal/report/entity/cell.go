package entity

import (
	"math"
	"strconv"
	"strings"
)

type CellKind int

const (
	CellMissing CellKind = iota
	CellText
	CellNumber
)

// Cell is one loosely typed value of an exported sheet.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
}

func Missing() Cell {
	return Cell{Kind: CellMissing}
}

func Text(s string) Cell {
	return Cell{Kind: CellText, Text: s}
}

func Number(n float64) Cell {
	return Cell{Kind: CellNumber, Number: n}
}

//nolint:gochecknoglobals // read-only lookup
var naTokens = map[string]struct{}{
	"#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {},
	"N/A": {}, "NA": {}, "NULL": {}, "NaN": {}, "None": {},
	"n/a": {}, "nan": {}, "null": {},
}

// ParseCell classifies a raw cell the way spreadsheet exports are usually
// read: blanks and NA markers are missing, finite decimals are numbers and
// everything else is text (kept verbatim).
func ParseCell(raw string) Cell {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Missing()
	}
	if _, ok := naTokens[trimmed]; ok {
		return Missing()
	}

	if n, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsInf(n, 0) && !math.IsNaN(n) {
		return Number(n)
	}

	return Text(raw)
}

func (c Cell) IsMissing() bool {
	return c.Kind == CellMissing
}

// String renders the cell as text. Numbers use the shortest decimal form,
// so 1715 prints as "1715" and 12.5 as "12.5".
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	default:
		return ""
	}
}
