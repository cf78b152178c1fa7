package ingest

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CandidateCable is one cable row extracted from a spreadsheet, normalized
// and ready for the merge pass. It carries no database identity.
type CandidateCable struct {
	Code            string
	Description     string
	ReferenceLength decimal.Decimal
	Zone            string
	CableType       string
	SourceFile      string
	SourceSheet     string
	SourceRow       int
}

// warningsCap bounds the warning list carried back to the caller; the adapter
// logs everything regardless.
const warningsCap = 50

// ImportBatch is the outcome of reading one or more workbooks. Warnings
// accumulate per file and sheet; a broken file degrades to a warning instead
// of failing the batch.
type ImportBatch struct {
	Candidates []CandidateCable

	FilesRead     int
	SheetsRead    int
	SheetsSkipped int

	// RowsRead counts every scanned data row with content; accepted rows
	// became candidates, rejected ones carried no usable cable code.
	RowsRead     int
	RowsAccepted int
	RowsRejected int

	Warnings []string

	warningsDropped int
}

func (b *ImportBatch) warnf(format string, args ...interface{}) {
	if len(b.Warnings) >= warningsCap {
		b.warningsDropped++
		return
	}
	b.Warnings = append(b.Warnings, fmt.Sprintf(format, args...))
}
