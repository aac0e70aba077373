package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// Document tree model shared by RFQ templates and supplier quote requests.
// A template holds the buyer's master structure; the supplier-facing copy is
// produced by the projector in services. Every node carries its own
// visibility/editability flags; visibility is inherited top-down, so a node
// under an invisible parent never reaches the supplier regardless of its own
// flag.

// Section is a top-level block of an RFQ document. Each visible section
// becomes one worksheet in the generated Excel workbook.
type Section struct {
	ID                 string       `json:"id" example:"sec-general"`
	Title              string       `json:"title" example:"General Details"`
	Type               string       `json:"type" example:"form"` // form, sow, commercialTable, questionnaire
	Content            string       `json:"content,omitempty"`
	Fields             []Field      `json:"fields"`
	Subsections        []Subsection `json:"subsections"`
	Tables             []Table      `json:"tables"`
	VisibleToSupplier  bool         `json:"visibleToSupplier" example:"true"`
	EditableBySupplier bool         `json:"editableBySupplier" example:"false"`
}

// Subsection mirrors Section without further nesting (one level only).
type Subsection struct {
	ID                 string  `json:"id"`
	Title              string  `json:"title"`
	Type               string  `json:"type"`
	Content            string  `json:"content,omitempty"`
	Fields             []Field `json:"fields"`
	Tables             []Table `json:"tables"`
	VisibleToSupplier  bool    `json:"visibleToSupplier"`
	EditableBySupplier bool    `json:"editableBySupplier"`
}

// Field is a single label/value pair rendered as one row in a worksheet.
type Field struct {
	ID                 string      `json:"id"`
	Label              string      `json:"label" example:"Delivery Terms"`
	Type               string      `json:"type" example:"text"` // text, number, date, textarea, select, multiselect
	Value              interface{} `json:"value"`
	DefaultValue       interface{} `json:"defaultValue,omitempty"`
	Options            []string    `json:"options,omitempty"`
	Required           bool        `json:"required"`
	VisibleToSupplier  bool        `json:"visibleToSupplier"`
	EditableBySupplier bool        `json:"editableBySupplier"`
}

// Column describes one table column. AccessorKey is the key used to read and
// write the column's value in a RowRecord.
type Column struct {
	ID                 string   `json:"id"`
	Header             string   `json:"header" example:"Unit Price"`
	AccessorKey        string   `json:"accessorKey" example:"unitPrice"`
	Type               string   `json:"type" example:"number"`
	Width              float64  `json:"width,omitempty"`
	Options            []string `json:"options,omitempty"`
	VisibleToSupplier  bool     `json:"visibleToSupplier"`
	EditableBySupplier bool     `json:"editableBySupplier"`
}

// RowRecord is one table row, keyed by column accessor. The reserved keys
// "id" (stable row identifier) and "options" (row-level dropdown choices,
// which take priority over column-level options) are recognized by the
// workbook serializer and parser.
type RowRecord map[string]interface{}

// Table is an ordered grid of RowRecords under typed columns.
type Table struct {
	ID                 string      `json:"id"`
	Title              string      `json:"title" example:"Commercial Items"`
	Columns            []Column    `json:"columns"`
	Data               []RowRecord `json:"data"`
	VisibleToSupplier  bool        `json:"visibleToSupplier"`
	EditableBySupplier bool        `json:"editableBySupplier"`
}

// RowID returns the row's stable identifier, or "" when the row has none.
func (r RowRecord) RowID() string {
	return r.StringValue("id")
}

// RowOptions returns the row-level dropdown options, tolerating both
// []string and the []interface{} shape JSON decoding produces.
func (r RowRecord) RowOptions() []string {
	switch v := r["options"].(type) {
	case []string:
		return v
	case []interface{}:
		opts := make([]string, 0, len(v))
		for _, o := range v {
			opts = append(opts, fmt.Sprintf("%v", o))
		}
		return opts
	}
	return nil
}

// StringValue returns the row value under key as display text. Missing keys
// and nil values render as the empty string.
func (r RowRecord) StringValue(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// JSON numbers decode as float64; drop the trailing ".0" on integers
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Clone returns a deep copy of the row. Slice values (the row-level
// "options" list in particular) are copied so the clone never aliases the
// original's backing arrays.
func (r RowRecord) Clone() RowRecord {
	out := make(RowRecord, len(r))
	for k, v := range r {
		switch t := v.(type) {
		case []string:
			out[k] = append([]string(nil), t...)
		case []interface{}:
			out[k] = append([]interface{}(nil), t...)
		default:
			out[k] = v
		}
	}
	return out
}

// Clone returns a deep copy of the section and its entire subtree.
func (s Section) Clone() Section {
	out := s
	out.Fields = cloneFields(s.Fields)
	out.Tables = cloneTables(s.Tables)
	out.Subsections = make([]Subsection, len(s.Subsections))
	for i, sub := range s.Subsections {
		out.Subsections[i] = sub.Clone()
	}
	return out
}

// Clone returns a deep copy of the subsection.
func (s Subsection) Clone() Subsection {
	out := s
	out.Fields = cloneFields(s.Fields)
	out.Tables = cloneTables(s.Tables)
	return out
}

// Clone returns a deep copy of the table, rows included.
func (t Table) Clone() Table {
	out := t
	out.Columns = make([]Column, len(t.Columns))
	copy(out.Columns, t.Columns)
	out.Data = make([]RowRecord, len(t.Data))
	for i, row := range t.Data {
		out.Data[i] = row.Clone()
	}
	return out
}

func cloneFields(fields []Field) []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

func cloneTables(tables []Table) []Table {
	out := make([]Table, len(tables))
	for i, t := range tables {
		out[i] = t.Clone()
	}
	return out
}

// CloneSections deep-copies a whole document tree.
func CloneSections(sections []Section) []Section {
	out := make([]Section, len(sections))
	for i, s := range sections {
		out[i] = s.Clone()
	}
	return out
}

// SectionList persists a document tree as a JSONB column.
type SectionList []Section

// Value implements driver.Valuer for database/sql and GORM.
func (s SectionList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner for database/sql and GORM.
func (s *SectionList) Scan(value interface{}) error {
	if value == nil {
		*s = SectionList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for SectionList")
	}
	if len(data) == 0 {
		*s = SectionList{}
		return nil
	}
	return json.Unmarshal(data, s)
}
