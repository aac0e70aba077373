package models

import (
	"encoding/json"
	"testing"
)

func TestRowRecordStringValue(t *testing.T) {
	row := RowRecord{
		"description": "Box 600x400",
		"quantity":    float64(1000),
		"unitPrice":   12.5,
		"missing":     nil,
	}
	cases := []struct {
		key  string
		want string
	}{
		{"description", "Box 600x400"},
		{"quantity", "1000"}, // integral float renders without the decimal
		{"unitPrice", "12.5"},
		{"missing", ""},
		{"absent", ""},
	}
	for _, c := range cases {
		if got := row.StringValue(c.key); got != c.want {
			t.Errorf("StringValue(%q) = %q, want %q", c.key, got, c.want)
		}
	}
}

func TestRowRecordIDAndOptions(t *testing.T) {
	row := RowRecord{"id": "r1", "options": []string{"Yes", "No"}}
	if row.RowID() != "r1" {
		t.Errorf("RowID = %q", row.RowID())
	}
	if opts := row.RowOptions(); len(opts) != 2 || opts[1] != "No" {
		t.Errorf("RowOptions = %v", opts)
	}

	// JSON decoding turns options into []interface{}
	var decoded RowRecord
	if err := json.Unmarshal([]byte(`{"id":"r2","options":["A","B","C"]}`), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if opts := decoded.RowOptions(); len(opts) != 3 || opts[2] != "C" {
		t.Errorf("decoded RowOptions = %v", opts)
	}

	if (RowRecord{}).RowID() != "" {
		t.Error("RowID on empty record should be \"\"")
	}
	if (RowRecord{}).RowOptions() != nil {
		t.Error("RowOptions on empty record should be nil")
	}
}

func TestRowRecordCloneCopiesSlices(t *testing.T) {
	row := RowRecord{
		"id":      "r1",
		"options": []string{"Yes", "No"},
		"tags":    []interface{}{"a", "b"},
	}
	clone := row.Clone()
	clone["options"].([]string)[0] = "Maybe"
	clone["tags"].([]interface{})[0] = "z"

	if opts := row.RowOptions(); opts[0] != "Yes" {
		t.Errorf("clone shares the options backing array: %v", opts)
	}
	if row["tags"].([]interface{})[0] != "a" {
		t.Error("clone shares the tags backing array")
	}
}

func TestSectionCloneIsDeep(t *testing.T) {
	src := Section{
		ID:     "s1",
		Fields: []Field{{ID: "f1", Value: "original"}},
		Subsections: []Subsection{{
			ID:     "sub1",
			Fields: []Field{{ID: "f2", Value: "original"}},
		}},
		Tables: []Table{{
			ID:      "t1",
			Columns: []Column{{ID: "c1", AccessorKey: "a"}},
			Data:    []RowRecord{{"a": "original"}},
		}},
	}

	clone := src.Clone()
	clone.Fields[0].Value = "changed"
	clone.Subsections[0].Fields[0].Value = "changed"
	clone.Tables[0].Data[0]["a"] = "changed"
	clone.Tables[0].Columns[0].AccessorKey = "b"

	if src.Fields[0].Value != "original" {
		t.Error("field mutation leaked into the source")
	}
	if src.Subsections[0].Fields[0].Value != "original" {
		t.Error("subsection field mutation leaked into the source")
	}
	if src.Tables[0].Data[0]["a"] != "original" {
		t.Error("row mutation leaked into the source")
	}
	if src.Tables[0].Columns[0].AccessorKey != "a" {
		t.Error("column mutation leaked into the source")
	}
}

func TestCloneSections(t *testing.T) {
	src := []Section{{ID: "s1", Tables: []Table{{Data: []RowRecord{{"k": "v"}}}}}}
	clone := CloneSections(src)
	clone[0].Tables[0].Data[0]["k"] = "changed"
	if src[0].Tables[0].Data[0]["k"] != "v" {
		t.Error("CloneSections is not deep")
	}
}

func TestSectionListValueScanRoundTrip(t *testing.T) {
	src := SectionList{{
		ID:                "s1",
		Title:             "General Details",
		Type:              "form",
		VisibleToSupplier: true,
		Fields:            []Field{{ID: "f1", Label: "RFQ Number", Value: "RFQ-AB12345", VisibleToSupplier: true}},
	}}

	value, err := src.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}

	var out SectionList
	if err := out.Scan(value); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(out) != 1 || out[0].ID != "s1" || out[0].Fields[0].Value != "RFQ-AB12345" {
		t.Errorf("round trip lost data: %+v", out)
	}
}

func TestSectionListScanEdgeCases(t *testing.T) {
	var s SectionList
	if err := s.Scan(nil); err != nil {
		t.Fatalf("Scan(nil): %v", err)
	}
	if s == nil || len(s) != 0 {
		t.Errorf("Scan(nil) should yield an empty list, got %v", s)
	}

	if err := s.Scan([]byte(`[{"id":"x"}]`)); err != nil {
		t.Fatalf("Scan([]byte): %v", err)
	}
	if len(s) != 1 || s[0].ID != "x" {
		t.Errorf("Scan([]byte) = %v", s)
	}

	if err := s.Scan(42); err == nil {
		t.Error("Scan should reject unsupported types")
	}

	var nilList SectionList
	value, err := nilList.Value()
	if err != nil {
		t.Fatalf("Value on nil list: %v", err)
	}
	if value != "[]" {
		t.Errorf("nil list Value = %v, want []", value)
	}
}
