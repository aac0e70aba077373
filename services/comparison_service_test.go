package services

import (
	"testing"

	"backend/models"
)

func submittedQuote(supplierID string, prices map[string]string) models.SupplierQuoteRequest {
	rows := []models.RowRecord{
		{"id": "i1", "description": "Box 600x400", "unitPrice": prices["i1"]},
		{"id": "i2", "description": "Box 800x600", "unitPrice": prices["i2"]},
	}
	return models.SupplierQuoteRequest{
		RFQID:      "RFQ-AB12345",
		SupplierID: supplierID,
		Status:     "submitted",
		Sections: models.SectionList{
			{
				ID:                "sec-items-1",
				Title:             "Boxes",
				Type:              "commercialTable",
				VisibleToSupplier: true,
				Tables: []models.Table{{
					ID:    "tbl-items-1",
					Title: "Boxes",
					Columns: []models.Column{
						{ID: "c-desc", Header: "Description", AccessorKey: "description", VisibleToSupplier: true},
						{ID: "c-price", Header: "Unit Price", AccessorKey: "unitPrice", VisibleToSupplier: true, EditableBySupplier: true},
					},
					Data:              rows,
					VisibleToSupplier: true,
				}},
			},
		},
	}
}

func TestLowestOffersPicksMinimum(t *testing.T) {
	requests := []models.SupplierQuoteRequest{
		submittedQuote("SUP-A", map[string]string{"i1": "12.00", "i2": "30.00"}),
		submittedQuote("SUP-B", map[string]string{"i1": "9.50", "i2": "31.50"}),
		submittedQuote("SUP-C", map[string]string{"i1": "", "i2": "29.00"}),
	}
	names := map[string]string{"SUP-A": "Acme", "SUP-B": "Beta Corp", "SUP-C": "Gamma"}

	baselines := LowestOffers(requests, names)
	if len(baselines) != 2 {
		t.Fatalf("expected 2 baselines, got %d", len(baselines))
	}

	first := baselines[0]
	if first.RowID != "i1" {
		t.Fatalf("first-seen order lost, got %s first", first.RowID)
	}
	if first.BestPrice != 9.50 || first.SupplierID != "SUP-B" || first.SupplierName != "Beta Corp" {
		t.Errorf("i1 winner: %+v", first)
	}
	// SUP-C left i1 blank; only two offers count
	if first.Offers != 2 {
		t.Errorf("i1 offers = %d, want 2", first.Offers)
	}

	second := baselines[1]
	if second.BestPrice != 29.00 || second.SupplierID != "SUP-C" {
		t.Errorf("i2 winner: %+v", second)
	}
	if second.Offers != 3 {
		t.Errorf("i2 offers = %d, want 3", second.Offers)
	}
	if second.Description != "Box 800x600" {
		t.Errorf("i2 description: %q", second.Description)
	}
}

func TestLowestOffersIgnoresNonCommercialSections(t *testing.T) {
	req := submittedQuote("SUP-A", map[string]string{"i1": "5.00", "i2": "6.00"})
	req.Sections = append(req.Sections, models.Section{
		ID:   "sec-questionnaire-1",
		Type: "questionnaire",
		Tables: []models.Table{{
			ID:      "tbl-questionnaire-1",
			Title:   "Quality",
			Columns: []models.Column{{Header: "Question", AccessorKey: "question"}},
			Data:    []models.RowRecord{{"id": "q1", "question": "ISO 9001?"}},
		}},
	})

	baselines := LowestOffers([]models.SupplierQuoteRequest{req}, nil)
	for _, b := range baselines {
		if b.TableID == "tbl-questionnaire-1" {
			t.Fatal("questionnaire rows leaked into the comparison")
		}
	}
	if len(baselines) != 2 {
		t.Fatalf("expected 2 baselines, got %d", len(baselines))
	}
}

func TestLowestOffersPositionalRowsWithoutIDs(t *testing.T) {
	req := submittedQuote("SUP-A", map[string]string{"i1": "5.00", "i2": "6.00"})
	for i := range req.Sections[0].Tables[0].Data {
		delete(req.Sections[0].Tables[0].Data[i], "id")
	}

	baselines := LowestOffers([]models.SupplierQuoteRequest{req}, nil)
	if len(baselines) != 2 {
		t.Fatalf("expected 2 baselines, got %d", len(baselines))
	}
	if baselines[0].RowID != "#0" || baselines[1].RowID != "#1" {
		t.Errorf("positional keys: %s, %s", baselines[0].RowID, baselines[1].RowID)
	}
}

func TestLowestOffersNoSubmissions(t *testing.T) {
	baselines := LowestOffers(nil, nil)
	if len(baselines) != 0 {
		t.Fatalf("expected no baselines, got %d", len(baselines))
	}
}

func TestParsePrice(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"12.50", 12.50, true},
		{" 1,200.00 ", 1200.00, true},
		{"$9.99", 9.99, true},
		{"€42", 42, true},
		{"0", 0, true},
		{"", 0, false},
		{"TBD", 0, false},
		{"-5", 0, false},
	}
	for _, c := range cases {
		got, ok := parsePrice(c.in)
		if ok != c.ok || got != c.want {
			t.Errorf("parsePrice(%q) = %v, %v; want %v, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestCommercialAccessors(t *testing.T) {
	table := models.Table{Columns: []models.Column{
		{Header: "Item", AccessorKey: "item_name"},
		{Header: "Price", AccessorKey: "offer_price"},
	}}
	price, desc := commercialAccessors(table)
	if price != "offer_price" || desc != "item_name" {
		t.Errorf("accessors = %q, %q", price, desc)
	}

	price, desc = commercialAccessors(models.Table{})
	if price != "unitPrice" || desc != "description" {
		t.Errorf("fallback accessors = %q, %q", price, desc)
	}
}
