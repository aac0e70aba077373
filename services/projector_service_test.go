package services

import (
	"reflect"
	"testing"

	"backend/models"
)

func sampleTemplate() []models.Section {
	return []models.Section{
		{
			ID:                "sec-visible",
			Title:             "Commercial Terms",
			Type:              "form",
			VisibleToSupplier: true,
			Fields: []models.Field{
				{ID: "f-payment", Label: "Payment Terms", Type: "text", DefaultValue: "Net 30", VisibleToSupplier: true},
				{ID: "f-hidden", Label: "Internal Budget", Type: "number", Value: "100000", VisibleToSupplier: false},
				{ID: "f-notes", Label: "Notes", Type: "text", VisibleToSupplier: true, EditableBySupplier: true},
			},
			Subsections: []models.Subsection{
				{ID: "sub-visible", Title: "Delivery", VisibleToSupplier: true, Fields: []models.Field{
					{ID: "f-incoterm", Label: "Incoterm", Value: "FOB", VisibleToSupplier: true},
				}},
				{ID: "sub-hidden", Title: "Margins", VisibleToSupplier: false, Fields: []models.Field{
					{ID: "f-margin", Label: "Margin", Value: "12%", VisibleToSupplier: true},
				}},
			},
			Tables: []models.Table{
				{
					ID:                "tbl-items",
					Title:             "Items",
					VisibleToSupplier: true,
					Columns: []models.Column{
						{ID: "c-desc", Header: "Description", AccessorKey: "description", VisibleToSupplier: true},
						{ID: "c-cost", Header: "Internal Cost", AccessorKey: "cost", VisibleToSupplier: false},
						{ID: "c-price", Header: "Unit Price", AccessorKey: "unitPrice", VisibleToSupplier: true, EditableBySupplier: true},
					},
					Data: []models.RowRecord{{"id": "r1", "description": "Widget", "cost": "4.00", "unitPrice": ""}},
				},
			},
		},
		{
			ID:                "sec-hidden",
			Title:             "Sourcing Strategy",
			VisibleToSupplier: false,
			Fields: []models.Field{
				{ID: "f-strategy", Label: "Strategy", Value: "single source", VisibleToSupplier: true},
			},
		},
	}
}

func TestProjectSectionsDropsInvisibleSubtrees(t *testing.T) {
	out := ProjectSections(sampleTemplate())

	if len(out) != 1 {
		t.Fatalf("expected 1 projected section, got %d", len(out))
	}
	sec := out[0]
	if sec.ID != "sec-visible" {
		t.Fatalf("wrong section survived: %s", sec.ID)
	}
	if len(sec.Fields) != 2 {
		t.Fatalf("expected 2 visible fields, got %d", len(sec.Fields))
	}
	for _, f := range sec.Fields {
		if f.ID == "f-hidden" {
			t.Fatal("invisible field survived projection")
		}
	}
	if len(sec.Subsections) != 1 || sec.Subsections[0].ID != "sub-visible" {
		t.Fatalf("invisible subsection was not dropped: %+v", sec.Subsections)
	}
	if len(sec.Tables) != 1 || len(sec.Tables[0].Columns) != 2 {
		t.Fatalf("invisible column was not pruned: %+v", sec.Tables)
	}
	for _, c := range sec.Tables[0].Columns {
		if c.AccessorKey == "cost" {
			t.Fatal("invisible column survived projection")
		}
	}
}

func TestProjectSectionsForcesVisibility(t *testing.T) {
	out := ProjectSections(sampleTemplate())

	sec := out[0]
	if !sec.VisibleToSupplier {
		t.Error("section visibility not forced true")
	}
	for _, f := range sec.Fields {
		if !f.VisibleToSupplier {
			t.Errorf("field %s visibility not forced true", f.ID)
		}
	}
	if !sec.Subsections[0].VisibleToSupplier {
		t.Error("subsection visibility not forced true")
	}
	if !sec.Tables[0].VisibleToSupplier {
		t.Error("table visibility not forced true")
	}
}

func TestProjectSectionsResolvesFieldValues(t *testing.T) {
	out := ProjectSections(sampleTemplate())

	byID := map[string]models.Field{}
	for _, f := range out[0].Fields {
		byID[f.ID] = f
	}

	// defaultValue wins over value, and is cleared after resolution
	if got := byID["f-payment"].Value; got != "Net 30" {
		t.Errorf("default value not resolved: got %v", got)
	}
	if byID["f-payment"].DefaultValue != nil {
		t.Error("DefaultValue not cleared after resolution")
	}
	// neither default nor value resolves to ""
	if got := byID["f-notes"].Value; got != "" {
		t.Errorf("empty field resolved to %v, want \"\"", got)
	}
	// editability passes through untouched
	if !byID["f-notes"].EditableBySupplier {
		t.Error("editable flag lost in projection")
	}
}

func TestProjectSectionsIdempotent(t *testing.T) {
	once := ProjectSections(sampleTemplate())
	twice := ProjectSections(once)
	if !reflect.DeepEqual(once, twice) {
		t.Error("projecting an already projected document changed it")
	}
}

func TestProjectSectionsDoesNotMutateInput(t *testing.T) {
	src := sampleTemplate()
	ProjectSections(src)
	if src[0].Fields[0].DefaultValue != "Net 30" {
		t.Error("projection mutated the source tree")
	}
}

func TestSynthesizeSupplierDocument(t *testing.T) {
	input := models.AdHocRFQInput{
		GeneralInfo: map[string]string{
			"rfq_number": "RFQ-AB12345",
			"rfq_title":  "Packaging Procurement",
		},
		ScopeOfWork: "Supply corrugated boxes.",
		Questionnaires: []models.QuestionnaireGroup{
			{Title: "Quality", Questions: []models.QuestionnaireItem{
				{ID: "q1", Question: "ISO 9001 certified?", Options: []string{"Yes", "No"}},
			}},
		},
		ItemGroups: []models.CommercialItemGroup{
			{Title: "Boxes", Items: []models.CommercialItem{
				{ID: "i1", Description: "Box 600x400", Quantity: 1000, Unit: "pcs"},
			}},
		},
		TermsText: "Standard terms apply.",
	}

	sections := SynthesizeSupplierDocument(input)

	wantTitles := []string{"General Details", "Scope of Work", "Quality", "Boxes", "Terms and Conditions", "Quote Summary"}
	if len(sections) != len(wantTitles) {
		t.Fatalf("expected %d sections, got %d", len(wantTitles), len(sections))
	}
	for i, title := range wantTitles {
		if sections[i].Title != title {
			t.Errorf("section %d: got title %q, want %q", i, sections[i].Title, title)
		}
		if !sections[i].VisibleToSupplier {
			t.Errorf("section %q not visible", title)
		}
	}

	// questionnaire row carries its id and options for the serializer
	qRow := sections[2].Tables[0].Data[0]
	if qRow.RowID() != "q1" {
		t.Errorf("questionnaire row id lost: %q", qRow.RowID())
	}
	if opts := qRow.RowOptions(); len(opts) != 2 || opts[0] != "Yes" {
		t.Errorf("questionnaire row options lost: %v", opts)
	}

	// commercial table marks price, quantity and comments editable
	editable := map[string]bool{}
	for _, c := range sections[3].Tables[0].Columns {
		editable[c.AccessorKey] = c.EditableBySupplier
	}
	if editable["description"] || editable["unit"] {
		t.Error("read-only commercial columns marked editable")
	}
	if !editable["unitPrice"] || !editable["quantity"] || !editable["comments"] {
		t.Errorf("supplier input columns not editable: %v", editable)
	}
}

func TestSynthesizeSupplierDocumentMinimal(t *testing.T) {
	sections := SynthesizeSupplierDocument(models.AdHocRFQInput{})

	if len(sections) != 2 {
		t.Fatalf("expected general details plus quote summary, got %d sections", len(sections))
	}
	summary := sections[len(sections)-1]
	if summary.ID != "sec-quote-summary" {
		t.Fatalf("quote summary not appended, got %s", summary.ID)
	}
	var total, currency bool
	for _, f := range summary.Fields {
		switch f.ID {
		case "total_quote_value":
			total = f.Required && f.EditableBySupplier
		case "currency":
			currency = len(f.Options) > 0
		}
	}
	if !total {
		t.Error("total_quote_value missing or not a required editable field")
	}
	if !currency {
		t.Error("currency field missing its option list")
	}
}
