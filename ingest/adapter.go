package ingest

import (
	"bytes"
	"context"
	"strings"

	"bitbucket.org/mmdatafocus/cabletrack_backend/config"
	"bitbucket.org/mmdatafocus/cabletrack_backend/utils"
	"github.com/xuri/excelize/v2"
)

// WorkbookFile is one uploaded spreadsheet, held in memory.
type WorkbookFile struct {
	Name string
	Data []byte
}

// headerMinCells is how many non-empty cells a row needs to qualify as the
// header. Yard files often carry a title or a logo row above the real table.
const headerMinCells = 2

func findHeaderRow(rows [][]string) int {
	for i, row := range rows {
		nonEmpty := 0
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				nonEmpty++
			}
		}
		if nonEmpty >= headerMinCells {
			return i
		}
	}
	return -1
}

func rowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func cellAt(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// ReadWorkbooks extracts cable candidates from every sheet of every file.
// Nothing in a single file can fail the batch: unreadable files, sheets
// without a recognizable table, and rows without a code all degrade to
// warnings and counters.
func ReadWorkbooks(ctx context.Context, files []WorkbookFile) *ImportBatch {
	logger := config.GetLogger()
	batch := &ImportBatch{}

	for _, file := range files {
		select {
		case <-ctx.Done():
			batch.warnf("batch aborted: %v", ctx.Err())
			return batch
		default:
		}

		if !strings.HasSuffix(strings.ToLower(file.Name), ".xlsx") {
			batch.warnf("%s: not an .xlsx file, skipped", file.Name)
			continue
		}

		f, err := excelize.OpenReader(bytes.NewReader(file.Data))
		if err != nil {
			config.LogError(logger, "ingest", "ReadWorkbooks", "unable to open workbook", file.Name, err)
			batch.warnf("%s: unable to open workbook: %v", file.Name, err)
			continue
		}

		batch.FilesRead++
		for _, sheet := range f.GetSheetList() {
			rows, err := f.GetRows(sheet)
			if err != nil {
				batch.warnf("%s/%s: unable to read sheet: %v", file.Name, sheet, err)
				continue
			}
			readSheet(batch, file.Name, sheet, rows)
		}
		if err := f.Close(); err != nil {
			config.LogError(logger, "ingest", "ReadWorkbooks", "error closing workbook", file.Name, err)
		}
	}

	if batch.warningsDropped > 0 {
		logger.WithField("dropped", batch.warningsDropped).Warn("import warnings truncated")
	}
	return batch
}

func readSheet(batch *ImportBatch, fileName string, sheetName string, rows [][]string) {
	headerIdx := findHeaderRow(rows)
	if headerIdx == -1 {
		batch.SheetsSkipped++
		batch.warnf("%s/%s: no header row found, sheet skipped", fileName, sheetName)
		return
	}

	header := rows[headerIdx]
	dataRows := rows[headerIdx+1:]
	cols, positional := ResolveColumns(header, dataRows)
	if positional {
		batch.warnf("%s/%s: no code header recognized, falling back to first column", fileName, sheetName)
	}

	var candidates []CandidateCable
	read := 0
	rejected := 0
	descriptionOnly := 0
	for i, row := range dataRows {
		if rowEmpty(row) {
			continue
		}
		read++
		code := utils.NormalizeCableCode(cellAt(row, cols.Code))
		if code == "" {
			rejected++
			if cellAt(row, cols.Description) != "" {
				descriptionOnly++
			}
			continue
		}
		candidates = append(candidates, CandidateCable{
			Code:            code,
			Description:     cellAt(row, cols.Description),
			ReferenceLength: ParseMeters(cellAt(row, cols.Length)),
			Zone:            cellAt(row, cols.Zone),
			SourceFile:      fileName,
			SourceSheet:     sheetName,
			// +2: one for the header, one because spreadsheets count from 1
			SourceRow: headerIdx + i + 2,
		})
	}

	// A sheet that produced no codes at all is a summary or legend sheet,
	// not a cable table.
	if len(candidates) == 0 {
		batch.SheetsSkipped++
		batch.warnf("%s/%s: no cable rows found, sheet skipped", fileName, sheetName)
		return
	}

	if descriptionOnly > 0 {
		batch.warnf("%s/%s: %d row(s) carry a description but no cable code", fileName, sheetName, descriptionOnly)
	}

	batch.SheetsRead++
	batch.RowsRead += read
	batch.RowsAccepted += len(candidates)
	batch.RowsRejected += rejected
	batch.Candidates = append(batch.Candidates, candidates...)
}
