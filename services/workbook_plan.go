package services

import (
	"fmt"
	"strings"
	"time"

	"backend/models"

	"github.com/google/uuid"
)

// The workbook is built in two stages: this file compiles a document tree
// into a WorkbookPlan (pure data, no spreadsheet library), and
// excel_service.go renders the plan with excelize. Tests assert on the plan
// directly.

const (
	SheetInstructions = "Instructions"
	SheetQuoteDetails = "Quote Details"

	// VerificationLabel is the first-column text of the token row in the
	// Quote Details sheet. The parser looks it up verbatim.
	VerificationLabel = "Verification UUID"

	// RowIDHeader is the locked leading column carrying each row's stable
	// id, so reconciliation can survive row reordering in the upload.
	RowIDHeader = "Row ID"

	// EditableFillColor marks supplier-editable cells. The parser checks a
	// cell's fill against this before trusting its value.
	EditableFillColor = "FFF2CC"

	headerFillColor = "4472C4"
	titleFillColor  = "2E5E8C"

	// tableHeaderOffset is the number of rows between a table's title row
	// and its header row.
	tableHeaderOffset = 1
)

// CellRole drives styling and protection for one planned cell.
type CellRole int

const (
	RoleTitle CellRole = iota // section or table title row
	RoleHeader                // table header cell
	RoleLabel                 // field label in column A
	RoleText                  // plain read-only text (instructions, content)
	RoleValue                 // field or table data cell, locked unless Editable
)

// CellPlan is one cell to be written: position, value, role and, for
// editable enumerated cells, the dropdown options.
type CellPlan struct {
	Row      int // 1-based
	Col      int // 1-based
	Value    interface{}
	Role     CellRole
	Editable bool
	Options  []string
}

// SheetPlan is one worksheet: its name, cells and column widths.
type SheetPlan struct {
	Name      string
	Cells     []CellPlan
	ColWidths map[int]float64
}

// WorkbookPlan is the full planned workbook plus the verification token
// generated for this (RFQ, supplier) pair.
type WorkbookPlan struct {
	Sheets []SheetPlan
	Token  string
}

// RecipientContext identifies the supplier a workbook is generated for.
type RecipientContext struct {
	RFQID        string
	RFQTitle     string
	DueDate      time.Time
	SupplierID   string
	SupplierName string
	ContactEmail string
}

// SheetNameForSection maps a section title to its worksheet name. This is
// the single place display text becomes a sheet identifier; the parser uses
// the same mapping to find the sheet again. Excel caps names at 31 chars and
// rejects a handful of characters.
func SheetNameForSection(title string) string {
	replacer := strings.NewReplacer("\\", "-", "/", "-", "*", "-", "?", "-", ":", "-", "[", "(", "]", ")")
	name := replacer.Replace(strings.TrimSpace(title))
	if name == "" {
		name = "Section"
	}
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}

// BuildWorkbookPlan compiles a supplier document into a workbook plan. The
// document is expected to be already projected (all nodes visible); invisible
// nodes that slipped through are dropped here as well. A fresh verification
// token is generated per call; persisting it is the caller's side effect.
func BuildWorkbookPlan(sections []models.Section, rc *RecipientContext) *WorkbookPlan {
	plan := &WorkbookPlan{Token: uuid.NewString()}

	visible := ProjectSections(sections)

	sheetNames := make([]string, 0, len(visible))
	for _, sec := range visible {
		sheetNames = append(sheetNames, SheetNameForSection(sec.Title))
	}

	plan.Sheets = append(plan.Sheets, instructionsSheet(sheetNames))
	if rc != nil {
		plan.Sheets = append(plan.Sheets, quoteDetailsSheet(rc, plan.Token))
	}
	for _, sec := range visible {
		plan.Sheets = append(plan.Sheets, sectionSheet(sec))
	}
	return plan
}

func instructionsSheet(sheetNames []string) SheetPlan {
	sheet := SheetPlan{
		Name:      SheetInstructions,
		ColWidths: map[int]float64{1: 90},
	}
	lines := []string{
		"Supplier Quote Request",
		"",
		"How to complete this workbook:",
		"1. Only cells with a colored background are editable. All other cells are locked.",
		"2. Cells with a dropdown must use one of the listed values.",
		"3. Do not insert, delete or reorder rows, columns or sheets.",
		"4. Do not modify the Quote Details sheet; it identifies your submission.",
		"5. When finished, upload this file unchanged through the supplier portal.",
		"",
		"Sheets to complete:",
	}
	row := 1
	for _, line := range lines {
		role := RoleText
		if row == 1 {
			role = RoleTitle
		}
		sheet.Cells = append(sheet.Cells, CellPlan{Row: row, Col: 1, Value: line, Role: role})
		row++
	}
	for _, name := range sheetNames {
		sheet.Cells = append(sheet.Cells, CellPlan{Row: row, Col: 1, Value: "  - " + name, Role: RoleText})
		row++
	}
	return sheet
}

func quoteDetailsSheet(rc *RecipientContext, token string) SheetPlan {
	sheet := SheetPlan{
		Name:      SheetQuoteDetails,
		ColWidths: map[int]float64{1: 28, 2: 48},
	}
	sheet.Cells = append(sheet.Cells,
		CellPlan{Row: 1, Col: 1, Value: "Field", Role: RoleHeader},
		CellPlan{Row: 1, Col: 2, Value: "Value", Role: RoleHeader},
	)
	rows := []struct {
		label string
		value string
	}{
		{"Supplier ID", rc.SupplierID},
		{"Supplier Name", rc.SupplierName},
		{"Contact Email", rc.ContactEmail},
		{"RFQ ID", rc.RFQID},
		{"RFQ Title", rc.RFQTitle},
		{"Response Due Date", rc.DueDate.Format("2006-01-02")},
		{VerificationLabel, token},
	}
	for i, r := range rows {
		sheet.Cells = append(sheet.Cells,
			CellPlan{Row: i + 2, Col: 1, Value: r.label, Role: RoleLabel},
			CellPlan{Row: i + 2, Col: 2, Value: r.value, Role: RoleValue},
		)
	}
	return sheet
}

func sectionSheet(sec models.Section) SheetPlan {
	sheet := SheetPlan{
		Name:      SheetNameForSection(sec.Title),
		ColWidths: map[int]float64{1: 36, 2: 36},
	}
	row := 1
	sheet.Cells = append(sheet.Cells, CellPlan{Row: row, Col: 1, Value: sec.Title, Role: RoleTitle})
	row += 2

	row = planContent(&sheet, row, sec.Content)
	row = planFields(&sheet, row, sec.Fields)
	for _, table := range sec.Tables {
		row = planTable(&sheet, row, table)
	}
	for _, sub := range sec.Subsections {
		sheet.Cells = append(sheet.Cells, CellPlan{Row: row, Col: 1, Value: sub.Title, Role: RoleTitle})
		row += 2
		row = planContent(&sheet, row, sub.Content)
		row = planFields(&sheet, row, sub.Fields)
		for _, table := range sub.Tables {
			row = planTable(&sheet, row, table)
		}
	}
	return sheet
}

func planContent(sheet *SheetPlan, row int, content string) int {
	if content == "" {
		return row
	}
	for _, line := range strings.Split(content, "\n") {
		sheet.Cells = append(sheet.Cells, CellPlan{Row: row, Col: 1, Value: line, Role: RoleText})
		row++
	}
	return row + 1
}

func planFields(sheet *SheetPlan, row int, fields []models.Field) int {
	if len(fields) == 0 {
		return row
	}
	for _, f := range fields {
		label := f.Label
		if f.Required {
			label += " *"
		}
		sheet.Cells = append(sheet.Cells, CellPlan{Row: row, Col: 1, Value: label, Role: RoleLabel})
		value := CellPlan{
			Row:      row,
			Col:      2,
			Value:    fieldDisplayValue(f),
			Role:     RoleValue,
			Editable: f.EditableBySupplier,
		}
		if f.EditableBySupplier && len(f.Options) > 0 {
			value.Options = f.Options
		}
		sheet.Cells = append(sheet.Cells, value)
		row++
	}
	return row + 1
}

func fieldDisplayValue(f models.Field) interface{} {
	if f.Value == nil {
		return ""
	}
	return f.Value
}

// planTable emits a title row, a header row at the fixed offset beneath it,
// and one row per RowRecord. A locked Row ID column is prepended whenever
// any row carries a stable id.
func planTable(sheet *SheetPlan, row int, table models.Table) int {
	if len(table.Columns) == 0 {
		// un-navigable table; skip rather than emit a headerless grid
		return row
	}

	sheet.Cells = append(sheet.Cells, CellPlan{Row: row, Col: 1, Value: table.Title, Role: RoleTitle})
	headerRow := row + tableHeaderOffset

	withID := tableHasRowIDs(table)
	col := 1
	if withID {
		sheet.Cells = append(sheet.Cells, CellPlan{Row: headerRow, Col: col, Value: RowIDHeader, Role: RoleHeader})
		col++
	}
	for _, c := range table.Columns {
		sheet.Cells = append(sheet.Cells, CellPlan{Row: headerRow, Col: col, Value: c.Header, Role: RoleHeader})
		if c.Width > 0 {
			sheet.ColWidths[col] = c.Width
		} else if _, ok := sheet.ColWidths[col]; !ok {
			sheet.ColWidths[col] = 24
		}
		col++
	}

	r := headerRow + 1
	for _, record := range table.Data {
		col = 1
		if withID {
			sheet.Cells = append(sheet.Cells, CellPlan{Row: r, Col: col, Value: record.RowID(), Role: RoleValue})
			col++
		}
		for _, c := range table.Columns {
			cell := CellPlan{
				Row:      r,
				Col:      col,
				Value:    record.StringValue(c.AccessorKey),
				Role:     RoleValue,
				Editable: c.EditableBySupplier,
			}
			if c.EditableBySupplier {
				if opts := dropdownOptions(record, c); len(opts) > 0 {
					cell.Options = opts
				}
			}
			sheet.Cells = append(sheet.Cells, cell)
			col++
		}
		r++
	}
	return r + 1
}

// dropdownOptions resolves the option list for a data cell: row-level
// options win over column-level options.
func dropdownOptions(record models.RowRecord, col models.Column) []string {
	if opts := record.RowOptions(); len(opts) > 0 {
		return opts
	}
	return col.Options
}

func tableHasRowIDs(table models.Table) bool {
	for _, record := range table.Data {
		if record.RowID() != "" {
			return true
		}
	}
	return false
}

// WorkbookFileName builds the download filename for a generated workbook.
func WorkbookFileName(rc *RecipientContext) string {
	safe := func(s string) string {
		replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "*", "-", "?", "-", "\"", "-", "<", "-", ">", "-", "|", "-")
		return replacer.Replace(strings.TrimSpace(s))
	}
	return fmt.Sprintf("quote_request_%s_%s.xlsx", safe(rc.RFQID), safe(rc.SupplierID))
}
