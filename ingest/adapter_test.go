package ingest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

type testSheet struct {
	name string
	rows [][]interface{}
}

func buildWorkbook(t *testing.T, sheets []testSheet) []byte {
	t.Helper()
	f := excelize.NewFile()
	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.name); err != nil {
				t.Fatalf("SetSheetName: %v", err)
			}
		} else {
			if _, err := f.NewSheet(sheet.name); err != nil {
				t.Fatalf("NewSheet: %v", err)
			}
		}
		for r, row := range sheet.rows {
			cell := fmt.Sprintf("A%d", r+1)
			if err := f.SetSheetRow(sheet.name, cell, &row); err != nil {
				t.Fatalf("SetSheetRow: %v", err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

func TestReadWorkbooks_TitleRowAndLegendSheet(t *testing.T) {
	data := buildWorkbook(t, []testSheet{
		{
			name: "Ponte 3",
			rows: [][]interface{}{
				{"ELENCO CAVI"},
				{"COD. CAVO", "Descrizione", "Lunghezza", "Zona"},
				{"c-001", "Alimentazione", "1.234,56", "Sala macchine"},
				{"", "riga senza codice", "10", ""},
				{"C-002", "Segnale", "85", "Ponte"},
			},
		},
		{
			name: "Legenda",
			rows: [][]interface{}{
				{"Simbolo", "Significato"},
				{"", "posato"},
				{"", "tagliato"},
			},
		},
	})

	batch := ReadWorkbooks(context.Background(), []WorkbookFile{{Name: "elenco.xlsx", Data: data}})

	if batch.FilesRead != 1 {
		t.Fatalf("expected 1 file read, got %d", batch.FilesRead)
	}
	if batch.SheetsRead != 1 || batch.SheetsSkipped != 1 {
		t.Fatalf("expected 1 sheet read and 1 skipped, got read=%d skipped=%d",
			batch.SheetsRead, batch.SheetsSkipped)
	}
	if len(batch.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(batch.Candidates))
	}
	if batch.RowsRead != 3 || batch.RowsAccepted != 2 || batch.RowsRejected != 1 {
		t.Fatalf("expected 3 read / 2 accepted / 1 rejected, got read=%d accepted=%d rejected=%d",
			batch.RowsRead, batch.RowsAccepted, batch.RowsRejected)
	}

	first := batch.Candidates[0]
	if first.Code != "C-001" {
		t.Fatalf("expected normalized code C-001, got %q", first.Code)
	}
	if first.ReferenceLength.String() != "1234.56" {
		t.Fatalf("expected length 1234.56, got %s", first.ReferenceLength.String())
	}
	if first.Zone != "Sala macchine" {
		t.Fatalf("expected zone, got %q", first.Zone)
	}
	// Header is spreadsheet row 2, so the first data row is row 3.
	if first.SourceRow != 3 {
		t.Fatalf("expected source row 3, got %d", first.SourceRow)
	}
	if batch.Candidates[1].Code != "C-002" || batch.Candidates[1].SourceRow != 5 {
		t.Fatalf("unexpected second candidate %+v", batch.Candidates[1])
	}
}

func TestReadWorkbooks_BrokenFileDoesNotAbortBatch(t *testing.T) {
	good := buildWorkbook(t, []testSheet{
		{
			name: "Cavi",
			rows: [][]interface{}{
				{"Cavo", "Lunghezza"},
				{"C-100", "42"},
			},
		},
	})

	batch := ReadWorkbooks(context.Background(), []WorkbookFile{
		{Name: "rotto.xlsx", Data: []byte("this is not a workbook")},
		{Name: "note.txt", Data: []byte("appunti")},
		{Name: "buono.xlsx", Data: good},
	})

	if batch.FilesRead != 1 {
		t.Fatalf("expected only the good file to count, got %d", batch.FilesRead)
	}
	if len(batch.Candidates) != 1 || batch.Candidates[0].Code != "C-100" {
		t.Fatalf("expected candidate C-100, got %+v", batch.Candidates)
	}
	if len(batch.Warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %d: %v", len(batch.Warnings), batch.Warnings)
	}
}

func TestReadWorkbooks_DescriptionWithoutCodeIsRejectedWithWarning(t *testing.T) {
	data := buildWorkbook(t, []testSheet{
		{
			name: "Cavi",
			rows: [][]interface{}{
				{"COD. CAVO", "Descrizione", "Lunghezza"},
				{"C-1", "Alimentazione", "100"},
				{"", "solo descrizione, codice mancante", "25"},
				{},
				{"C-2", "Segnale", "40"},
			},
		},
	})

	batch := ReadWorkbooks(context.Background(), []WorkbookFile{{Name: "cavi.xlsx", Data: data}})

	// The blank row is not a data row; the code-less one is read but rejected.
	if batch.RowsRead != 3 || batch.RowsAccepted != 2 || batch.RowsRejected != 1 {
		t.Fatalf("expected 3 read / 2 accepted / 1 rejected, got read=%d accepted=%d rejected=%d",
			batch.RowsRead, batch.RowsAccepted, batch.RowsRejected)
	}
	found := false
	for _, w := range batch.Warnings {
		if strings.Contains(w, "description but no cable code") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a description-without-code warning, got %v", batch.Warnings)
	}
}

func TestReadWorkbooks_EmptySheetSkipped(t *testing.T) {
	data := buildWorkbook(t, []testSheet{
		{name: "Vuoto", rows: nil},
	})

	batch := ReadWorkbooks(context.Background(), []WorkbookFile{{Name: "vuoto.xlsx", Data: data}})

	if batch.SheetsSkipped != 1 || batch.SheetsRead != 0 {
		t.Fatalf("expected empty sheet skipped, got read=%d skipped=%d",
			batch.SheetsRead, batch.SheetsSkipped)
	}
	if len(batch.Candidates) != 0 {
		t.Fatalf("expected no candidates, got %d", len(batch.Candidates))
	}
}

func TestReadWorkbooks_CancelledContextStopsEarly(t *testing.T) {
	data := buildWorkbook(t, []testSheet{
		{
			name: "Cavi",
			rows: [][]interface{}{
				{"Cavo", "Lunghezza"},
				{"C-1", "10"},
			},
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch := ReadWorkbooks(ctx, []WorkbookFile{{Name: "cavi.xlsx", Data: data}})
	if batch.FilesRead != 0 {
		t.Fatalf("expected no files read after cancellation, got %d", batch.FilesRead)
	}
	if len(batch.Warnings) != 1 {
		t.Fatalf("expected abort warning, got %v", batch.Warnings)
	}
}
