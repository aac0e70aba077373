package services

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"backend/models"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// TokenStore persists the verification token for a (RFQ, supplier) pair.
// Implementations must serialize writes and reads per pair so a regeneration
// cannot interleave with an upload's read-and-compare.
type TokenStore interface {
	SaveToken(rfqID, supplierID, token string) error
	GetToken(rfqID, supplierID string) (string, error)
}

// GenerateWorkbook projects nothing itself: it takes the supplier document
// as stored, compiles it to a plan, renders the xlsx and persists the fresh
// token. Persisting the token invalidates any previously generated workbook
// for this supplier.
func GenerateWorkbook(sections []models.Section, rc *RecipientContext, store TokenStore) ([]byte, string, error) {
	plan := BuildWorkbookPlan(sections, rc)
	data, err := WriteWorkbook(plan)
	if err != nil {
		return nil, "", err
	}
	if err := store.SaveToken(rc.RFQID, rc.SupplierID, plan.Token); err != nil {
		return nil, "", fmt.Errorf("failed to persist verification token: %v", err)
	}
	return data, WorkbookFileName(rc), nil
}

// sheetProtection is the fixed policy applied to every sheet: cell value
// edits on unlocked cells only, no structural changes.
func sheetProtection() *excelize.SheetProtectionOptions {
	return &excelize.SheetProtectionOptions{
		SelectLockedCells:   true,
		SelectUnlockedCells: true,
		FormatCells:         false,
		FormatColumns:       true,
		FormatRows:          false,
		InsertColumns:       false,
		InsertRows:          false,
		DeleteColumns:       false,
		DeleteRows:          false,
		Sort:                false,
		AutoFilter:          false,
		PivotTables:         false,
	}
}

type styleKey struct {
	role     CellRole
	editable bool
}

// styleSet lazily registers one excelize style per (role, editable) combo.
type styleSet struct {
	f     *excelize.File
	cache map[styleKey]int
}

func (s *styleSet) id(role CellRole, editable bool) (int, error) {
	key := styleKey{role, editable}
	if id, ok := s.cache[key]; ok {
		return id, nil
	}
	style := styleFor(role, editable)
	id, err := s.f.NewStyle(style)
	if err != nil {
		return 0, err
	}
	s.cache[key] = id
	return id, nil
}

// styleFor is the pure (role, editable) -> style mapping. Editability shows
// only through the fill color and the unlocked protection flag.
func styleFor(role CellRole, editable bool) *excelize.Style {
	border := []excelize.Border{
		{Type: "left", Color: "#D9D9D9", Style: 1},
		{Type: "top", Color: "#D9D9D9", Style: 1},
		{Type: "right", Color: "#D9D9D9", Style: 1},
		{Type: "bottom", Color: "#D9D9D9", Style: 1},
	}
	switch role {
	case RoleTitle:
		return &excelize.Style{
			Font: &excelize.Font{Bold: true, Size: 14, Family: "Arial", Color: "#FFFFFF"},
			Fill: excelize.Fill{Type: "pattern", Color: []string{"#" + titleFillColor}, Pattern: 1},
			Alignment: &excelize.Alignment{
				Horizontal: "left",
				Vertical:   "center",
			},
		}
	case RoleHeader:
		return &excelize.Style{
			Font: &excelize.Font{Bold: true, Size: 12, Family: "Arial", Color: "#FFFFFF"},
			Fill: excelize.Fill{Type: "pattern", Color: []string{"#" + headerFillColor}, Pattern: 1},
			Alignment: &excelize.Alignment{
				Horizontal: "center",
				Vertical:   "center",
			},
			Border: border,
		}
	case RoleLabel:
		return &excelize.Style{
			Font:   &excelize.Font{Bold: true, Size: 11, Family: "Arial"},
			Border: border,
		}
	case RoleText:
		return &excelize.Style{
			Font: &excelize.Font{Size: 11, Family: "Arial"},
		}
	default: // RoleValue
		style := &excelize.Style{
			Font:   &excelize.Font{Size: 11, Family: "Arial"},
			Border: border,
		}
		if editable {
			style.Fill = excelize.Fill{Type: "pattern", Color: []string{"#" + EditableFillColor}, Pattern: 1}
			style.Protection = &excelize.Protection{Locked: false}
		}
		return style
	}
}

// WriteWorkbook renders a plan to xlsx bytes. The workbook is staged through
// a temp file that is removed on every exit path.
func WriteWorkbook(plan *WorkbookPlan) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Error closing workbook: %v", err)
		}
	}()

	styles := &styleSet{f: f, cache: make(map[styleKey]int)}

	for i, sheet := range plan.Sheets {
		index, err := f.NewSheet(sheet.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to create sheet %q: %v", sheet.Name, err)
		}
		if i == 0 {
			f.SetActiveSheet(index)
		}
		if err := writeSheet(f, styles, sheet); err != nil {
			return nil, err
		}
	}
	// Remove the default sheet excelize creates
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to remove default sheet: %v", err)
	}

	tmpPath := filepath.Join(os.TempDir(), fmt.Sprintf("quote_workbook_%s.xlsx", uuid.NewString()))
	defer func() {
		if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
			log.Printf("Error removing temp workbook %s: %v", tmpPath, err)
		}
	}()
	if err := f.SaveAs(tmpPath); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %v", err)
	}
	data, err := os.ReadFile(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook back: %v", err)
	}
	return data, nil
}

func writeSheet(f *excelize.File, styles *styleSet, sheet SheetPlan) error {
	for _, cell := range sheet.Cells {
		ref, err := excelize.CoordinatesToCellName(cell.Col, cell.Row)
		if err != nil {
			return fmt.Errorf("invalid cell coordinates (%d,%d): %v", cell.Col, cell.Row, err)
		}
		if err := f.SetCellValue(sheet.Name, ref, cell.Value); err != nil {
			return fmt.Errorf("failed to write cell %s!%s: %v", sheet.Name, ref, err)
		}
		styleID, err := styles.id(cell.Role, cell.Editable)
		if err != nil {
			return fmt.Errorf("failed to build style: %v", err)
		}
		if err := f.SetCellStyle(sheet.Name, ref, ref, styleID); err != nil {
			return fmt.Errorf("failed to style cell %s!%s: %v", sheet.Name, ref, err)
		}
		if cell.Editable && len(cell.Options) > 0 {
			if err := addDropdown(f, sheet.Name, ref, cell.Options); err != nil {
				return err
			}
		}
	}

	for col, width := range sheet.ColWidths {
		name, err := excelize.ColumnNumberToName(col)
		if err != nil {
			continue
		}
		if err := f.SetColWidth(sheet.Name, name, name, width); err != nil {
			return fmt.Errorf("failed to set column width on %s: %v", sheet.Name, err)
		}
	}

	if err := f.ProtectSheet(sheet.Name, sheetProtection()); err != nil {
		return fmt.Errorf("failed to protect sheet %q: %v", sheet.Name, err)
	}
	return nil
}

func addDropdown(f *excelize.File, sheet, ref string, options []string) error {
	dv := excelize.NewDataValidation(true)
	dv.Sqref = ref + ":" + ref
	if err := dv.SetDropList(options); err != nil {
		// Drop lists have a hard length limit; a too-long option set
		// degrades to a free-text cell.
		log.Printf("Skipping dropdown on %s!%s: %v", sheet, ref, err)
		return nil
	}
	dv.SetError(excelize.DataValidationErrorStyleStop, "Invalid value", "Please pick one of the listed values.")
	if err := f.AddDataValidation(sheet, dv); err != nil {
		return fmt.Errorf("failed to add dropdown on %s!%s: %v", sheet, ref, err)
	}
	return nil
}
