package services

import (
	"strings"
	"testing"

	"backend/models"

	"github.com/xuri/excelize/v2"
)

func TestIsEditableFillColor(t *testing.T) {
	cases := []struct {
		color string
		want  bool
	}{
		{"FFF2CC", true},   // 6-digit RGB as the writer sets it
		{"#FFF2CC", true},  // hash-prefixed
		{"fff2cc", true},   // lower case
		{"FFFFF2CC", true}, // 8-digit ARGB with alpha
		{"F2CC", false},    // the 6-digit form must not lose its FF prefix
		{"FFFFFF", false},
		{"4472C4", false},
		{"", false},
	}
	for _, c := range cases {
		if got := isEditableFillColor(c.color); got != c.want {
			t.Errorf("isEditableFillColor(%q) = %v, want %v", c.color, got, c.want)
		}
	}
}

func TestFindTableRowsSkipsSectionTitle(t *testing.T) {
	table := &models.Table{
		Title: "Boxes",
		Columns: []models.Column{
			{Header: "Description", AccessorKey: "description"},
			{Header: "Unit Price", AccessorKey: "unitPrice"},
		},
	}
	// section title at row 0, blank row, table title at row 2, header at 3
	rows := [][]string{
		{"Boxes"},
		{},
		{"Boxes"},
		{"Row ID", "Description", "Quantity", "Unit", "Unit Price", "Comments"},
		{"i1", "Box 600x400", "1000", "pcs", "", ""},
	}

	titleIdx, headerIdx := findTableRows(rows, table)
	if titleIdx != 2 || headerIdx != 3 {
		t.Errorf("findTableRows = (%d, %d), want (2, 3)", titleIdx, headerIdx)
	}

	// no occurrence with a matching header row means not found
	titleIdx, headerIdx = findTableRows([][]string{{"Boxes"}, {}, {"Other"}}, table)
	if titleIdx != -1 || headerIdx != -1 {
		t.Errorf("findTableRows on headerless sheet = (%d, %d), want (-1, -1)", titleIdx, headerIdx)
	}
}

func TestRoundTripSharedSectionAndTableTitle(t *testing.T) {
	// the synthesized layout names the section and its table identically;
	// table extraction must land on the table title, not the section title
	data, sections, token := generateTestWorkbook(t)

	edited := mutateWorkbook(t, data, func(f *excelize.File) {
		headerRow := tableHeaderRow(t, f, "Boxes", "Boxes")
		qtyCol := headerCol(t, f, "Boxes", headerRow, "Quantity")
		setCell(t, f, "Boxes", qtyCol, headerRow+1, "750")
	})

	result, err := ReconcileWorkbook(edited, sections, token)
	if err != nil {
		t.Fatalf("ReconcileWorkbook: %v", err)
	}
	for _, w := range result.Warnings {
		if strings.Contains(w, "not found") || strings.Contains(w, "unrecognized") {
			t.Errorf("unexpected warning: %s", w)
		}
	}
	table := commercialTable(t, result.Sections, "Boxes")
	if got := table.Data[0].StringValue("quantity"); got != "750" {
		t.Errorf("quantity = %q, want 750", got)
	}
}

func TestRoundTripSubsectionFieldScoped(t *testing.T) {
	sections := []models.Section{{
		ID:                "sec-terms",
		Title:             "Commercial Terms",
		Type:              "form",
		VisibleToSupplier: true,
		Fields: []models.Field{
			{ID: "f-sec-comments", Label: "Comments", Type: "text", VisibleToSupplier: true, EditableBySupplier: true},
		},
		Subsections: []models.Subsection{{
			ID:                "sub-delivery",
			Title:             "Delivery",
			VisibleToSupplier: true,
			Fields: []models.Field{
				{ID: "f-sub-comments", Label: "Comments", Type: "text", VisibleToSupplier: true, EditableBySupplier: true},
			},
		}},
	}}
	store := newFakeTokenStore()
	data, _, err := GenerateWorkbook(sections, testRecipient(), store)
	if err != nil {
		t.Fatalf("GenerateWorkbook: %v", err)
	}
	token, _ := store.GetToken("RFQ-AB12345", "SUP-CD67890")

	edited := mutateWorkbook(t, data, func(f *excelize.File) {
		rows, err := f.GetRows("Commercial Terms")
		if err != nil {
			t.Fatalf("reading sheet: %v", err)
		}
		var commentRows []int
		for i, row := range rows {
			if len(row) > 0 && strings.TrimSpace(row[0]) == "Comments" {
				commentRows = append(commentRows, i+1)
			}
		}
		if len(commentRows) != 2 {
			t.Fatalf("expected 2 Comments rows, found %d", len(commentRows))
		}
		setCell(t, f, "Commercial Terms", 2, commentRows[0], "section note")
		setCell(t, f, "Commercial Terms", 2, commentRows[1], "subsection note")
	})

	result, err := ReconcileWorkbook(edited, sections, token)
	if err != nil {
		t.Fatalf("ReconcileWorkbook: %v", err)
	}
	sec := result.Sections[0]
	if got := sec.Fields[0].Value; got != "section note" {
		t.Errorf("section field = %v, want section note", got)
	}
	if got := sec.Subsections[0].Fields[0].Value; got != "subsection note" {
		t.Errorf("subsection field = %v, want subsection note", got)
	}
}
