package services

import (
	"strings"
	"testing"
	"time"

	"backend/models"
)

func testRecipient() *RecipientContext {
	return &RecipientContext{
		RFQID:        "RFQ-AB12345",
		RFQTitle:     "Packaging Procurement",
		DueDate:      time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC),
		SupplierID:   "SUP-CD67890",
		SupplierName: "Acme Industrial",
		ContactEmail: "sales@acme.example",
	}
}

func findSheet(t *testing.T, plan *WorkbookPlan, name string) SheetPlan {
	t.Helper()
	for _, s := range plan.Sheets {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("sheet %q not in plan; have %v", name, sheetNamesOf(plan))
	return SheetPlan{}
}

func sheetNamesOf(plan *WorkbookPlan) []string {
	names := make([]string, 0, len(plan.Sheets))
	for _, s := range plan.Sheets {
		names = append(names, s.Name)
	}
	return names
}

func cellValue(sheet SheetPlan, row, col int) interface{} {
	for _, c := range sheet.Cells {
		if c.Row == row && c.Col == col {
			return c.Value
		}
	}
	return nil
}

func findCellByValue(sheet SheetPlan, value string) *CellPlan {
	for i, c := range sheet.Cells {
		if s, ok := c.Value.(string); ok && s == value {
			return &sheet.Cells[i]
		}
	}
	return nil
}

func TestSheetNameForSection(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"General Details", "General Details"},
		{"  Terms / Conditions  ", "Terms - Conditions"},
		{"Q1 [draft]: pricing?", "Q1 (draft)- pricing-"},
		{"", "Section"},
		{strings.Repeat("x", 40), strings.Repeat("x", 31)},
	}
	for _, c := range cases {
		if got := SheetNameForSection(c.in); got != c.want {
			t.Errorf("SheetNameForSection(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestBuildWorkbookPlanTokenRow(t *testing.T) {
	plan := BuildWorkbookPlan(SynthesizeSupplierDocument(models.AdHocRFQInput{}), testRecipient())

	if plan.Token == "" {
		t.Fatal("plan has no verification token")
	}
	details := findSheet(t, plan, SheetQuoteDetails)

	label := findCellByValue(details, VerificationLabel)
	if label == nil {
		t.Fatal("verification label row missing from Quote Details")
	}
	if got := cellValue(details, label.Row, 2); got != plan.Token {
		t.Errorf("token cell = %v, want %s", got, plan.Token)
	}
	// the details sheet is entirely locked
	for _, c := range details.Cells {
		if c.Editable {
			t.Fatalf("Quote Details cell (%d,%d) marked editable", c.Row, c.Col)
		}
	}
}

func TestBuildWorkbookPlanFreshTokenPerCall(t *testing.T) {
	sections := SynthesizeSupplierDocument(models.AdHocRFQInput{})
	a := BuildWorkbookPlan(sections, testRecipient())
	b := BuildWorkbookPlan(sections, testRecipient())
	if a.Token == b.Token {
		t.Error("two plans share a verification token")
	}
}

func TestBuildWorkbookPlanInstructionsListSections(t *testing.T) {
	input := models.AdHocRFQInput{
		ItemGroups: []models.CommercialItemGroup{
			{Title: "Boxes", Items: []models.CommercialItem{{ID: "i1", Description: "Box"}}},
		},
	}
	plan := BuildWorkbookPlan(SynthesizeSupplierDocument(input), testRecipient())

	instructions := findSheet(t, plan, SheetInstructions)
	for _, name := range []string{"General Details", "Boxes", "Quote Summary"} {
		if findCellByValue(instructions, "  - "+name) == nil {
			t.Errorf("instructions sheet does not list section sheet %q", name)
		}
		findSheet(t, plan, name)
	}
}

func TestBuildWorkbookPlanSkipsInvisibleSections(t *testing.T) {
	sections := []models.Section{
		{ID: "s1", Title: "Visible", Type: "form", VisibleToSupplier: true},
		{ID: "s2", Title: "Hidden", Type: "form", VisibleToSupplier: false},
	}
	plan := BuildWorkbookPlan(sections, testRecipient())
	for _, name := range sheetNamesOf(plan) {
		if name == "Hidden" {
			t.Fatal("invisible section got a worksheet")
		}
	}
}

func TestPlanTableRowIDColumn(t *testing.T) {
	input := models.AdHocRFQInput{
		ItemGroups: []models.CommercialItemGroup{
			{Title: "Boxes", Items: []models.CommercialItem{
				{ID: "i1", Description: "Box 600x400", Quantity: 1000, Unit: "pcs"},
			}},
		},
	}
	plan := BuildWorkbookPlan(SynthesizeSupplierDocument(input), testRecipient())
	sheet := findSheet(t, plan, "Boxes")

	header := findCellByValue(sheet, RowIDHeader)
	if header == nil {
		t.Fatal("Row ID column not prepended for a table with stable ids")
	}
	if header.Col != 1 {
		t.Errorf("Row ID header in column %d, want 1", header.Col)
	}
	if header.Role != RoleHeader {
		t.Errorf("Row ID header role = %v, want RoleHeader", header.Role)
	}
	if got := cellValue(sheet, header.Row+1, 1); got != "i1" {
		t.Errorf("row id cell = %v, want i1", got)
	}

	// the section title on row 1 shares the table's text; the table title
	// is the later occurrence
	var title *CellPlan
	for i, c := range sheet.Cells {
		if s, ok := c.Value.(string); ok && s == "Boxes" && c.Row > 1 {
			title = &sheet.Cells[i]
			break
		}
	}
	if title == nil || header.Row != title.Row+tableHeaderOffset {
		t.Error("header row not at the fixed offset beneath the table title")
	}
}

func TestPlanTableNoRowIDColumnWithoutIDs(t *testing.T) {
	sections := []models.Section{{
		ID: "s1", Title: "Loose Items", Type: "commercialTable", VisibleToSupplier: true,
		Tables: []models.Table{{
			ID: "t1", Title: "Loose Items", VisibleToSupplier: true,
			Columns: []models.Column{
				{ID: "c1", Header: "Description", AccessorKey: "description", VisibleToSupplier: true},
			},
			Data: []models.RowRecord{{"description": "Tape"}},
		}},
	}}
	plan := BuildWorkbookPlan(sections, testRecipient())
	sheet := findSheet(t, plan, "Loose Items")
	if findCellByValue(sheet, RowIDHeader) != nil {
		t.Error("Row ID column emitted for a table without stable ids")
	}
}

func TestPlanEditableCellsAndDropdowns(t *testing.T) {
	input := models.AdHocRFQInput{
		Questionnaires: []models.QuestionnaireGroup{
			{Title: "Quality", Questions: []models.QuestionnaireItem{
				{ID: "q1", Question: "ISO 9001 certified?", Options: []string{"Yes", "No"}},
				{ID: "q2", Question: "Lead time policy?"},
			}},
		},
	}
	plan := BuildWorkbookPlan(SynthesizeSupplierDocument(input), testRecipient())
	sheet := findSheet(t, plan, "Quality")

	respHeader := findCellByValue(sheet, "Response")
	if respHeader == nil {
		t.Fatal("Response header missing")
	}
	qHeader := findCellByValue(sheet, "Question")
	if qHeader == nil {
		t.Fatal("Question header missing")
	}

	var respCell, qCell *CellPlan
	for i, c := range sheet.Cells {
		if c.Row == respHeader.Row+1 {
			if c.Col == respHeader.Col {
				respCell = &sheet.Cells[i]
			}
			if c.Col == qHeader.Col {
				qCell = &sheet.Cells[i]
			}
		}
	}
	if respCell == nil || qCell == nil {
		t.Fatal("first data row incomplete")
	}
	if !respCell.Editable {
		t.Error("response cell not editable")
	}
	// row-level options flow to the response dropdown
	if len(respCell.Options) != 2 || respCell.Options[0] != "Yes" {
		t.Errorf("response dropdown options = %v, want [Yes No]", respCell.Options)
	}
	if qCell.Editable {
		t.Error("question cell marked editable")
	}
	if len(qCell.Options) != 0 {
		t.Error("locked cell carries dropdown options")
	}
}

func TestPlanFieldsRequiredMarker(t *testing.T) {
	plan := BuildWorkbookPlan(SynthesizeSupplierDocument(models.AdHocRFQInput{}), testRecipient())
	sheet := findSheet(t, plan, "Quote Summary")

	label := findCellByValue(sheet, "Total Quote Value *")
	if label == nil {
		t.Fatal("required field label not suffixed with *")
	}
	var value *CellPlan
	for i, c := range sheet.Cells {
		if c.Row == label.Row && c.Col == 2 {
			value = &sheet.Cells[i]
		}
	}
	if value == nil || !value.Editable {
		t.Fatal("required field value cell missing or locked")
	}
}

func TestWorkbookFileName(t *testing.T) {
	rc := testRecipient()
	if got := WorkbookFileName(rc); got != "quote_request_RFQ-AB12345_SUP-CD67890.xlsx" {
		t.Errorf("unexpected filename %q", got)
	}
	rc.RFQID = "RFQ AB/1"
	if got := WorkbookFileName(rc); strings.ContainsAny(got, " /") {
		t.Errorf("filename not sanitized: %q", got)
	}
}
