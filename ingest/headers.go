package ingest

import (
	"strings"
)

// ColumnMap locates the interesting columns of a cable sheet. A value of -1
// means the column is absent.
type ColumnMap struct {
	Code        int
	Length      int
	Description int
	Zone        int
}

// Yard spreadsheets come from several subcontractors and the header spelling
// drifts. Matching is by token so "COD. CAVO" and "Codice" both resolve.
var (
	codeTokens   = map[string]bool{"cavo": true, "sigla": true, "rif": true, "id": true}
	lengthTokens = map[string]bool{"metri": true, "ml": true, "mtot": true}
	descTokens   = map[string]bool{"descrizione": true, "denominazione": true, "tipo": true}
	zoneTokens   = map[string]bool{"zona": true, "locale": true, "area": true}
)

func headerTokens(cell string) []string {
	lower := strings.ToLower(strings.TrimSpace(cell))
	return strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
}

func isCodeHeader(cell string) bool {
	for _, tok := range headerTokens(cell) {
		if codeTokens[tok] || strings.HasPrefix(tok, "cod") {
			return true
		}
	}
	return false
}

func isLengthHeader(cell string) bool {
	for _, tok := range headerTokens(cell) {
		if lengthTokens[tok] || strings.HasPrefix(tok, "lungh") {
			return true
		}
	}
	return false
}

func isDescriptionHeader(cell string) bool {
	for _, tok := range headerTokens(cell) {
		if descTokens[tok] || strings.HasPrefix(tok, "descr") {
			return true
		}
	}
	return false
}

func isZoneHeader(cell string) bool {
	for _, tok := range headerTokens(cell) {
		if zoneTokens[tok] {
			return true
		}
	}
	return false
}

// numericShare returns the fraction of non-empty cells in column col that
// parse to a positive length.
func numericShare(dataRows [][]string, col int) float64 {
	nonEmpty := 0
	numeric := 0
	for _, row := range dataRows {
		if col >= len(row) {
			continue
		}
		cell := strings.TrimSpace(row[col])
		if cell == "" {
			continue
		}
		nonEmpty++
		if ParseMeters(cell).IsPositive() {
			numeric++
		}
	}
	if nonEmpty == 0 {
		return 0
	}
	return float64(numeric) / float64(nonEmpty)
}

// statisticalLengthThreshold is the numeric share a column must exceed to be
// taken as the length column when no header matched.
const statisticalLengthThreshold = 0.6

// ResolveColumns maps a header row to the columns the importer needs.
// Resolution is best effort, in three tiers:
//
//  1. header keywords
//  2. for the length, the leftmost non-code column whose cells are mostly
//     numeric (legacy sheets with blank or garbled headers)
//  3. position: code in the first column, length in the second
//
// Code resolution falling through to position is reported by Positional so
// the caller can warn.
func ResolveColumns(header []string, dataRows [][]string) (ColumnMap, bool) {
	cols := ColumnMap{Code: -1, Length: -1, Description: -1, Zone: -1}

	for i, cell := range header {
		switch {
		case cols.Code == -1 && isCodeHeader(cell):
			cols.Code = i
		case cols.Length == -1 && isLengthHeader(cell):
			cols.Length = i
		case cols.Description == -1 && isDescriptionHeader(cell):
			cols.Description = i
		case cols.Zone == -1 && isZoneHeader(cell):
			cols.Zone = i
		}
	}

	positional := false
	if cols.Code == -1 {
		cols.Code = 0
		positional = true
	}

	if cols.Length == -1 {
		for i := range header {
			if i == cols.Code {
				continue
			}
			if numericShare(dataRows, i) > statisticalLengthThreshold {
				cols.Length = i
				break
			}
		}
	}
	if cols.Length == -1 && positional && len(header) > 1 {
		cols.Length = 1
	}

	return cols, positional
}
