package services

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"backend/models"

	"github.com/xuri/excelize/v2"
)

// fakeTokenStore keeps tokens in a map, keyed like the SQL store.
type fakeTokenStore struct {
	tokens map[string]string
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: make(map[string]string)}
}

func (s *fakeTokenStore) SaveToken(rfqID, supplierID, token string) error {
	s.tokens[rfqID+"|"+supplierID] = token
	return nil
}

func (s *fakeTokenStore) GetToken(rfqID, supplierID string) (string, error) {
	return s.tokens[rfqID+"|"+supplierID], nil
}

func roundTripDocument() []models.Section {
	return SynthesizeSupplierDocument(models.AdHocRFQInput{
		GeneralInfo: map[string]string{
			"rfq_number": "RFQ-AB12345",
			"rfq_title":  "Packaging Procurement",
		},
		ItemGroups: []models.CommercialItemGroup{
			{Title: "Boxes", Items: []models.CommercialItem{
				{ID: "i1", Description: "Box 600x400", Quantity: 1000, Unit: "pcs"},
				{ID: "i2", Description: "Box 800x600", Quantity: 500, Unit: "pcs"},
			}},
		},
	})
}

// generateTestWorkbook renders a workbook for the standard test document and
// returns its bytes, the document it was built from and the stored token.
func generateTestWorkbook(t *testing.T) ([]byte, []models.Section, string) {
	t.Helper()
	sections := roundTripDocument()
	store := newFakeTokenStore()
	data, name, err := GenerateWorkbook(sections, testRecipient(), store)
	if err != nil {
		t.Fatalf("GenerateWorkbook: %v", err)
	}
	if name != "quote_request_RFQ-AB12345_SUP-CD67890.xlsx" {
		t.Fatalf("unexpected workbook filename %q", name)
	}
	token, err := store.GetToken("RFQ-AB12345", "SUP-CD67890")
	if err != nil || token == "" {
		t.Fatalf("token not persisted: %q, %v", token, err)
	}
	return data, sections, token
}

// mutateWorkbook applies fn to a copy of the workbook, as a supplier (or an
// attacker) editing the file would.
func mutateWorkbook(t *testing.T, data []byte, fn func(f *excelize.File)) []byte {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopening workbook: %v", err)
	}
	defer f.Close()
	fn(f)
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("rewriting workbook: %v", err)
	}
	return buf.Bytes()
}

func setCell(t *testing.T, f *excelize.File, sheet string, col, row int, value string) {
	t.Helper()
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		t.Fatalf("cell ref (%d,%d): %v", col, row, err)
	}
	if err := f.SetCellValue(sheet, ref, value); err != nil {
		t.Fatalf("setting %s!%s: %v", sheet, ref, err)
	}
}

// labelRow returns the 1-based sheet row whose column A equals label.
func labelRow(t *testing.T, f *excelize.File, sheet, label string) int {
	t.Helper()
	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("reading sheet %s: %v", sheet, err)
	}
	for i, row := range rows {
		if len(row) > 0 && strings.TrimSpace(row[0]) == label {
			return i + 1
		}
	}
	t.Fatalf("label %q not found on sheet %s", label, sheet)
	return 0
}

// headerCol returns the 1-based column whose header cell equals header, given
// the 1-based header row.
func headerCol(t *testing.T, f *excelize.File, sheet string, headerRow int, header string) int {
	t.Helper()
	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("reading sheet %s: %v", sheet, err)
	}
	for i, h := range rows[headerRow-1] {
		if strings.TrimSpace(h) == header {
			return i + 1
		}
	}
	t.Fatalf("header %q not found on sheet %s", header, sheet)
	return 0
}

// tableHeaderRow returns the 1-based header row of the named table. The
// section title shares the table's text on synthesized sheets, so a title
// occurrence counts only when the next row is non-blank (the header row sits
// directly beneath the table title; a blank row follows the section title).
func tableHeaderRow(t *testing.T, f *excelize.File, sheet, title string) int {
	t.Helper()
	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("reading sheet %s: %v", sheet, err)
	}
	for i, row := range rows {
		if len(row) == 0 || strings.TrimSpace(row[0]) != title {
			continue
		}
		if i+1 < len(rows) && !sheetRowBlank(rows[i+1]) {
			return i + 2
		}
	}
	t.Fatalf("table %q not found on sheet %s", title, sheet)
	return 0
}

func sheetRowBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func commercialTable(t *testing.T, sections []models.Section, title string) *models.Table {
	t.Helper()
	for i := range sections {
		if sections[i].Title == title {
			return &sections[i].Tables[0]
		}
	}
	t.Fatalf("section %q not in document", title)
	return nil
}

func TestRoundTripEditableField(t *testing.T) {
	data, sections, token := generateTestWorkbook(t)

	edited := mutateWorkbook(t, data, func(f *excelize.File) {
		row := labelRow(t, f, "Quote Summary", "Total Quote Value *")
		setCell(t, f, "Quote Summary", 2, row, "12500")
		row = labelRow(t, f, "Quote Summary", "Currency *")
		setCell(t, f, "Quote Summary", 2, row, "EUR")
	})

	result, err := ReconcileWorkbook(edited, sections, token)
	if err != nil {
		t.Fatalf("ReconcileWorkbook: %v", err)
	}
	if len(result.SkippedSections) != 0 {
		t.Fatalf("unexpected skipped sections: %v", result.SkippedSections)
	}

	var summary *models.Section
	for i := range result.Sections {
		if result.Sections[i].ID == "sec-quote-summary" {
			summary = &result.Sections[i]
		}
	}
	if summary == nil {
		t.Fatal("quote summary lost in reconciliation")
	}
	values := map[string]interface{}{}
	for _, f := range summary.Fields {
		values[f.ID] = f.Value
	}
	if values["total_quote_value"] != "12500" {
		t.Errorf("total_quote_value = %v, want 12500", values["total_quote_value"])
	}
	if values["currency"] != "EUR" {
		t.Errorf("currency = %v, want EUR", values["currency"])
	}
}

func TestRoundTripTableTamperDiscarded(t *testing.T) {
	data, sections, token := generateTestWorkbook(t)

	edited := mutateWorkbook(t, data, func(f *excelize.File) {
		headerRow := tableHeaderRow(t, f, "Boxes", "Boxes")
		priceCol := headerCol(t, f, "Boxes", headerRow, "Unit Price")
		descCol := headerCol(t, f, "Boxes", headerRow, "Description")
		// legitimate edit in an unlocked column
		setCell(t, f, "Boxes", priceCol, headerRow+1, "9.50")
		// tampering with a locked column
		setCell(t, f, "Boxes", descCol, headerRow+1, "Box 600x400 (premium grade)")
	})

	result, err := ReconcileWorkbook(edited, sections, token)
	if err != nil {
		t.Fatalf("ReconcileWorkbook: %v", err)
	}

	table := commercialTable(t, result.Sections, "Boxes")
	row := table.Data[0]
	if got := row.StringValue("unitPrice"); got != "9.50" {
		t.Errorf("unitPrice = %q, want 9.50", got)
	}
	if got := row.StringValue("description"); got != "Box 600x400" {
		t.Errorf("tampered description accepted: %q", got)
	}
}

func TestRoundTripRowReorderMatchedByID(t *testing.T) {
	data, sections, token := generateTestWorkbook(t)

	edited := mutateWorkbook(t, data, func(f *excelize.File) {
		headerRow := tableHeaderRow(t, f, "Boxes", "Boxes")
		rows, err := f.GetRows("Boxes")
		if err != nil {
			t.Fatalf("reading Boxes sheet: %v", err)
		}
		first, second := rows[headerRow], rows[headerRow+1]
		for col := 0; col < len(first) || col < len(second); col++ {
			a, b := "", ""
			if col < len(first) {
				a = first[col]
			}
			if col < len(second) {
				b = second[col]
			}
			setCell(t, f, "Boxes", col+1, headerRow+1, b)
			setCell(t, f, "Boxes", col+1, headerRow+2, a)
		}
		// price entered against the row now sitting first (id i2)
		priceCol := headerCol(t, f, "Boxes", headerRow, "Unit Price")
		setCell(t, f, "Boxes", priceCol, headerRow+1, "7.25")
	})

	result, err := ReconcileWorkbook(edited, sections, token)
	if err != nil {
		t.Fatalf("ReconcileWorkbook: %v", err)
	}

	table := commercialTable(t, result.Sections, "Boxes")
	if id := table.Data[0].RowID(); id != "i1" {
		t.Fatalf("original row order not preserved, first row id %q", id)
	}
	if got := table.Data[1].StringValue("unitPrice"); got != "7.25" {
		t.Errorf("price did not follow the row id: i2 unitPrice = %q", got)
	}
	if got := table.Data[0].StringValue("unitPrice"); got == "7.25" {
		t.Error("price attributed positionally instead of by id")
	}
}

func TestRoundTripWrongToken(t *testing.T) {
	data, sections, _ := generateTestWorkbook(t)

	_, err := ReconcileWorkbook(data, sections, "some-other-token")
	if !errors.Is(err, ErrTokenMismatch) {
		t.Fatalf("expected ErrTokenMismatch, got %v", err)
	}

	// no stored token can never verify
	_, err = ReconcileWorkbook(data, sections, "")
	if !errors.Is(err, ErrTokenMismatch) {
		t.Fatalf("expected ErrTokenMismatch with empty stored token, got %v", err)
	}
}

func TestRoundTripTokenRowRemoved(t *testing.T) {
	data, sections, token := generateTestWorkbook(t)

	edited := mutateWorkbook(t, data, func(f *excelize.File) {
		row := labelRow(t, f, SheetQuoteDetails, VerificationLabel)
		setCell(t, f, SheetQuoteDetails, 1, row, "Reference")
	})

	_, err := ReconcileWorkbook(edited, sections, token)
	if !errors.Is(err, ErrTokenMissing) {
		t.Fatalf("expected ErrTokenMissing, got %v", err)
	}
}

func TestRoundTripMissingSheetSkipsSection(t *testing.T) {
	data, sections, token := generateTestWorkbook(t)

	edited := mutateWorkbook(t, data, func(f *excelize.File) {
		if err := f.DeleteSheet("Boxes"); err != nil {
			t.Fatalf("deleting sheet: %v", err)
		}
	})

	result, err := ReconcileWorkbook(edited, sections, token)
	if err != nil {
		t.Fatalf("ReconcileWorkbook: %v", err)
	}
	found := false
	for _, title := range result.SkippedSections {
		if title == "Boxes" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Boxes not reported skipped: %v", result.SkippedSections)
	}
	// the section itself is left as the original
	table := commercialTable(t, result.Sections, "Boxes")
	if got := table.Data[0].StringValue("description"); got != "Box 600x400" {
		t.Errorf("skipped section was modified: %q", got)
	}
}

func TestRoundTripUnknownRowWarns(t *testing.T) {
	data, sections, token := generateTestWorkbook(t)

	edited := mutateWorkbook(t, data, func(f *excelize.File) {
		headerRow := tableHeaderRow(t, f, "Boxes", "Boxes")
		// an inserted row with a fabricated id
		setCell(t, f, "Boxes", 1, headerRow+3, "i999")
		setCell(t, f, "Boxes", 2, headerRow+3, "Smuggled item")
	})

	result, err := ReconcileWorkbook(edited, sections, token)
	if err != nil {
		t.Fatalf("ReconcileWorkbook: %v", err)
	}
	table := commercialTable(t, result.Sections, "Boxes")
	if len(table.Data) != 2 {
		t.Fatalf("inserted row leaked into the document: %d rows", len(table.Data))
	}
	warned := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "unrecognized row") {
			warned = true
		}
	}
	if !warned {
		t.Errorf("no warning for the unrecognized row: %v", result.Warnings)
	}
}

func TestGenerateWorkbookRegenerationInvalidatesOldFile(t *testing.T) {
	sections := roundTripDocument()
	store := newFakeTokenStore()

	oldData, _, err := GenerateWorkbook(sections, testRecipient(), store)
	if err != nil {
		t.Fatalf("GenerateWorkbook: %v", err)
	}
	if _, _, err := GenerateWorkbook(sections, testRecipient(), store); err != nil {
		t.Fatalf("regenerating workbook: %v", err)
	}
	current, err := store.GetToken("RFQ-AB12345", "SUP-CD67890")
	if err != nil {
		t.Fatalf("GetToken: %v", err)
	}

	_, err = ReconcileWorkbook(oldData, sections, current)
	if !errors.Is(err, ErrTokenMismatch) {
		t.Fatalf("stale workbook accepted after regeneration: %v", err)
	}
}

func TestWorkbookSheetsProtected(t *testing.T) {
	data, _, _ := generateTestWorkbook(t)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopening workbook: %v", err)
	}
	defer f.Close()

	list := f.GetSheetList()
	if len(list) == 0 {
		t.Fatal("workbook has no sheets")
	}
	for _, name := range list {
		if name == "Sheet1" {
			t.Error("default Sheet1 left in workbook")
		}
	}
	for _, want := range []string{SheetInstructions, SheetQuoteDetails, "General Details", "Boxes", "Quote Summary"} {
		found := false
		for _, name := range list {
			if name == want {
				found = true
			}
		}
		if !found {
			t.Errorf("sheet %q missing; have %v", want, list)
		}
	}

	// editable data cell keeps its fill through a save/load cycle
	headerRow := tableHeaderRow(t, f, "Boxes", "Boxes")
	priceCol := headerCol(t, f, "Boxes", headerRow, "Unit Price")
	ref, _ := excelize.CoordinatesToCellName(priceCol, headerRow+1)
	if !hasEditableFill(f, "Boxes", ref) {
		t.Errorf("editable cell Boxes!%s lost its fill", ref)
	}
	descCol := headerCol(t, f, "Boxes", headerRow, "Description")
	ref, _ = excelize.CoordinatesToCellName(descCol, headerRow+1)
	if hasEditableFill(f, "Boxes", ref) {
		t.Errorf("locked cell Boxes!%s carries the editable fill", ref)
	}
}

func TestWorkbookFileNameUniquePerSupplier(t *testing.T) {
	a := testRecipient()
	b := testRecipient()
	b.SupplierID = fmt.Sprintf("%s-2", b.SupplierID)
	if WorkbookFileName(a) == WorkbookFileName(b) {
		t.Error("filenames collide across suppliers")
	}
}
