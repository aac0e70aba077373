package services

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"strings"

	"backend/models"

	"github.com/xuri/excelize/v2"
)

// Reconciliation of an uploaded workbook against the original supplier
// document. The spreadsheet is untrusted input: values are accepted only
// from cells the serializer marked editable, everything else is restored
// from the original tree. Lookup is by display text (sheet name = section
// title, first column = field label / table title, header text = accessor)
// because that is all a spreadsheet carries.

var (
	// ErrTokenMissing means the Quote Details sheet or its token row was
	// removed from the upload.
	ErrTokenMissing = errors.New("verification token not found in workbook")
	// ErrTokenMismatch means the uploaded token does not match the one
	// stored for this supplier; the file is stale or tampered.
	ErrTokenMismatch = errors.New("verification token does not match")
)

// ReconcileResult is a full copy of the original tree with editable values
// replaced by extracted ones, plus per-item diagnostics.
type ReconcileResult struct {
	Sections        []models.Section
	SkippedSections []string
	Warnings        []string
}

// ReconcileWorkbook verifies the embedded token against storedToken and
// merges editable cell values from the upload into a copy of original.
// Authenticity failure aborts before any extraction; structural lookup
// misses are skipped per item and reported, never fatal.
func ReconcileWorkbook(data []byte, original []models.Section, storedToken string) (*ReconcileResult, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unable to open workbook: %v", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Error closing uploaded workbook: %v", err)
		}
	}()

	if err := verifyToken(f, storedToken); err != nil {
		return nil, err
	}

	result := &ReconcileResult{Sections: models.CloneSections(original)}
	sheetSet := make(map[string]bool)
	for _, name := range f.GetSheetList() {
		sheetSet[name] = true
	}

	for i := range result.Sections {
		sec := &result.Sections[i]
		if !sec.VisibleToSupplier {
			continue
		}
		sheetName := SheetNameForSection(sec.Title)
		if !sheetSet[sheetName] {
			result.SkippedSections = append(result.SkippedSections, sec.Title)
			log.Printf("Worksheet %q missing from upload; section left unchanged", sheetName)
			continue
		}
		rows, err := f.GetRows(sheetName)
		if err != nil {
			result.SkippedSections = append(result.SkippedSections, sec.Title)
			log.Printf("Error reading worksheet %q: %v", sheetName, err)
			continue
		}
		extractFields(f, sheetName, rows, sec.Fields, 0, result)
		for t := range sec.Tables {
			extractTable(sheetName, rows, &sec.Tables[t], result)
		}
		for s := range sec.Subsections {
			sub := &sec.Subsections[s]
			if !sub.VisibleToSupplier {
				continue
			}
			subStart := findRowByLabel(rows, sub.Title, 0)
			extractFields(f, sheetName, rows, sub.Fields, subStart, result)
			for t := range sub.Tables {
				extractTable(sheetName, rows, &sub.Tables[t], result)
			}
		}
	}
	return result, nil
}

// verifyToken locates the token row in the Quote Details sheet and compares
// it byte-for-byte against the stored token. It runs before any extraction.
func verifyToken(f *excelize.File, storedToken string) error {
	rows, err := f.GetRows(SheetQuoteDetails)
	if err != nil {
		return ErrTokenMissing
	}
	for _, row := range rows {
		if len(row) >= 2 && strings.TrimSpace(row[0]) == VerificationLabel {
			if strings.TrimSpace(row[1]) == storedToken && storedToken != "" {
				return nil
			}
			return ErrTokenMismatch
		}
	}
	return ErrTokenMissing
}

// extractFields updates editable fields in place. A field's new value is
// accepted only when the label matched and the value cell still carries the
// editable fill: a second line of defense against edits in locked cells.
// Lookup starts at from so a subsection field sharing a label with a field
// higher up the sheet resolves to its own row.
func extractFields(f *excelize.File, sheetName string, rows [][]string, fields []models.Field, from int, result *ReconcileResult) {
	for i := range fields {
		field := &fields[i]
		if !field.EditableBySupplier || !field.VisibleToSupplier {
			continue
		}
		label := field.Label
		if field.Required {
			label += " *"
		}
		rowIdx := findRowByLabel(rows, label, from)
		if rowIdx < 0 {
			result.Warnings = append(result.Warnings, fmt.Sprintf("field %q not found on sheet %q", field.Label, sheetName))
			continue
		}
		ref, err := excelize.CoordinatesToCellName(2, rowIdx+1)
		if err != nil {
			continue
		}
		if !hasEditableFill(f, sheetName, ref) {
			result.Warnings = append(result.Warnings, fmt.Sprintf("field %q on sheet %q lost its editable marking; value ignored", field.Label, sheetName))
			continue
		}
		field.Value = cellAt(rows, rowIdx, 1)
	}
}

// findRowByLabel is the single lookup point for "find a row by its display
// text in column A", scanning at or after from.
func findRowByLabel(rows [][]string, label string, from int) int {
	if from < 0 {
		from = 0
	}
	for i := from; i < len(rows); i++ {
		row := rows[i]
		if len(row) > 0 && strings.TrimSpace(row[0]) == strings.TrimSpace(label) {
			return i
		}
	}
	return -1
}

// extractTable rebuilds a table's rows from the sheet. Editable columns take
// the uploaded cell text; non-editable columns are restored from the
// original row regardless of what the sheet contains. Original rows are
// matched by the Row ID column when it survived, then by question text for
// questionnaire tables, then by position.
func extractTable(sheetName string, rows [][]string, table *models.Table, result *ReconcileResult) {
	if len(table.Columns) == 0 {
		return
	}
	_, headerIdx := findTableRows(rows, table)
	if headerIdx < 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("table %q not found on sheet %q", table.Title, sheetName))
		return
	}

	headerMap := make(map[string]int) // header text -> sheet column index
	for i, h := range rows[headerIdx] {
		headerMap[strings.TrimSpace(h)] = i
	}
	idCol, hasIDCol := headerMap[RowIDHeader]

	questionKey := questionnaireMatchKey(table)

	merged := make([]models.RowRecord, len(table.Data))
	matched := make([]bool, len(table.Data))
	for i, orig := range table.Data {
		merged[i] = orig.Clone()
	}

	position := 0
	for r := headerIdx + 1; r < len(rows); r++ {
		row := rows[r]
		if rowIsBlank(row) {
			break
		}
		origIdx := matchOriginalRow(table, row, headerMap, idCol, hasIDCol, questionKey, position)
		position++
		if origIdx < 0 || origIdx >= len(table.Data) || matched[origIdx] {
			result.Warnings = append(result.Warnings, fmt.Sprintf("table %q on sheet %q: unrecognized row %d ignored", table.Title, sheetName, position))
			continue
		}
		matched[origIdx] = true
		for _, col := range table.Columns {
			if !col.EditableBySupplier || !col.VisibleToSupplier {
				continue // non-editable: keep the original value untouched
			}
			sheetCol, ok := headerMap[strings.TrimSpace(col.Header)]
			if !ok {
				continue
			}
			merged[origIdx][col.AccessorKey] = cellAt(rows, r, sheetCol)
		}
	}

	table.Data = merged
}

// findTableRows locates a table's title and header rows. A section and its
// table may carry the same title text and the section title also sits in
// column A, so a candidate title row counts only when the row at the fixed
// offset beneath it holds at least one of the table's headers.
func findTableRows(rows [][]string, table *models.Table) (titleIdx, headerIdx int) {
	for i := 0; ; {
		t := findRowByLabel(rows, table.Title, i)
		if t < 0 {
			return -1, -1
		}
		h := t + tableHeaderOffset
		if h < len(rows) && rowHasTableHeader(rows[h], table) {
			return t, h
		}
		i = t + 1
	}
}

func rowHasTableHeader(row []string, table *models.Table) bool {
	for _, cell := range row {
		text := strings.TrimSpace(cell)
		if text == "" {
			continue
		}
		if text == RowIDHeader {
			return true
		}
		for _, col := range table.Columns {
			if text == strings.TrimSpace(col.Header) {
				return true
			}
		}
	}
	return false
}

// matchOriginalRow resolves which original row an uploaded row corresponds
// to: by stable id when the Row ID column survived, by exact question text
// for questionnaire tables, positionally as a last resort.
func matchOriginalRow(table *models.Table, row []string, headerMap map[string]int, idCol int, hasIDCol bool, questionKey string, position int) int {
	if hasIDCol && idCol < len(row) {
		if id := strings.TrimSpace(row[idCol]); id != "" {
			for i, orig := range table.Data {
				if orig.RowID() == id {
					return i
				}
			}
			return -1
		}
	}
	if questionKey != "" {
		if qCol, ok := headerMap["Question"]; ok && qCol < len(row) {
			question := strings.TrimSpace(row[qCol])
			for i, orig := range table.Data {
				if strings.TrimSpace(orig.StringValue(questionKey)) == question {
					return i
				}
			}
			return -1
		}
	}
	if position < len(table.Data) {
		return position
	}
	return -1
}

// questionnaireMatchKey returns the accessor of the question column when
// the table looks like a questionnaire, "" otherwise.
func questionnaireMatchKey(table *models.Table) string {
	for _, col := range table.Columns {
		if col.Header == "Question" && !col.EditableBySupplier {
			return col.AccessorKey
		}
	}
	return ""
}

func rowIsBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// cellAt reads a cell's formatted text, tolerating the ragged rows GetRows
// produces; a missing cell is the empty string.
func cellAt(rows [][]string, rowIdx, colIdx int) string {
	if rowIdx >= len(rows) {
		return ""
	}
	row := rows[rowIdx]
	if colIdx >= len(row) {
		return ""
	}
	return row[colIdx]
}

// hasEditableFill checks whether a cell still carries the editable fill the
// serializer applied.
func hasEditableFill(f *excelize.File, sheet, ref string) bool {
	styleID, err := f.GetCellStyle(sheet, ref)
	if err != nil {
		return false
	}
	style, err := f.GetStyle(styleID)
	if err != nil || style == nil {
		return false
	}
	for _, color := range style.Fill.Color {
		if isEditableFillColor(color) {
			return true
		}
	}
	return false
}

// isEditableFillColor compares a fill color against the editable marker,
// tolerating a "#" prefix and the 8-digit ARGB form some readers return.
// The alpha prefix is stripped only from 8-digit values; a 6-digit color
// starting with FF is already the plain RGB form.
func isEditableFillColor(color string) bool {
	c := strings.ToUpper(strings.TrimPrefix(color, "#"))
	if len(c) == 8 {
		c = strings.TrimPrefix(c, "FF")
	}
	return c == EditableFillColor
}
