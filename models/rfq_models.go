package models

import (
	"time"

	_ "github.com/lib/pq"
)

// RFQ represents the rfqs table.
type RFQ struct {
	RFQID       string    `json:"rfq_id" example:"RFQ-AB12345"`
	Title       string    `json:"title" example:"FY26 Packaging Procurement"`
	Description string    `json:"description" example:"Corrugated boxes and fillers"`
	Status      string    `json:"status" example:"open"` // draft, open, closed, awarded
	TemplateID  *int      `json:"template_id,omitempty" example:"1"`
	DueDate     time.Time `json:"due_date" example:"2026-09-30T00:00:00Z"`
	Currency    string    `json:"currency" example:"USD"`
	CreatedAt   time.Time `json:"created_at" example:"2026-08-01T10:30:00Z"`
	UpdatedAt   time.Time `json:"updated_at" example:"2026-08-01T10:30:00Z"`
	CreatedBy   string    `json:"created_by" example:"admin"`
	UpdatedBy   string    `json:"updated_by" example:"admin"`
}

// RFQSupplier represents the rfq_suppliers table: one row per invited
// supplier, carrying the verification token for the most recently generated
// workbook. Only the latest token is valid for upload.
type RFQSupplier struct {
	ID                int        `json:"id" example:"1"`
	RFQID             string     `json:"rfq_id" example:"RFQ-AB12345"`
	SupplierID        string     `json:"supplier_id" example:"SUP-CD67890"`
	Name              string     `json:"name" example:"Acme Industrial"`
	Email             string     `json:"email" example:"sales@acme.example"`
	ContactName       string     `json:"contact_name" example:"Jane Smith"`
	Status            string     `json:"status" example:"invited"` // invited, responded, accepted, rejected
	VerificationToken string     `json:"-"`
	InvitedAt         time.Time  `json:"invited_at"`
	RespondedAt       *time.Time `json:"responded_at,omitempty"`
}

// RFQTemplate represents the rfq_templates table. Structure holds the
// supplier-agnostic master document tree.
type RFQTemplate struct {
	TemplateID  int         `json:"template_id" example:"1"`
	Name        string      `json:"name" example:"Standard Goods RFQ"`
	Description string      `json:"description"`
	Structure   SectionList `json:"structure"`
	IsActive    bool        `json:"is_active" example:"true"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	CreatedBy   string      `json:"created_by"`
}

// QuestionnaireItem is one question in an ad hoc RFQ without a template.
type QuestionnaireItem struct {
	ID       string   `json:"id"`
	Question string   `json:"question" example:"Do you hold ISO 9001 certification?"`
	Response string   `json:"response"`
	Remarks  string   `json:"remarks"`
	Options  []string `json:"options,omitempty"`
}

// QuestionnaireGroup is a titled block of questionnaire items.
type QuestionnaireGroup struct {
	ID        string              `json:"id"`
	Title     string              `json:"title" example:"Quality Questionnaire"`
	Questions []QuestionnaireItem `json:"questions"`
}

// CommercialItem is one priced line item in an ad hoc RFQ.
type CommercialItem struct {
	ID          string  `json:"id"`
	Description string  `json:"description" example:"Corrugated box 600x400x400"`
	Quantity    float64 `json:"quantity" example:"1000"`
	Unit        string  `json:"unit" example:"pcs"`
	UnitPrice   string  `json:"unit_price"`
	Comments    string  `json:"comments"`
}

// CommercialItemGroup is a titled block of commercial items.
type CommercialItemGroup struct {
	ID    string           `json:"id"`
	Title string           `json:"title" example:"Packaging Items"`
	Items []CommercialItem `json:"items"`
}

// AdHocRFQInput is the raw business data used to synthesize a supplier
// document when the RFQ was created without a template.
type AdHocRFQInput struct {
	GeneralInfo    map[string]string     `json:"general_info"`
	ScopeOfWork    string                `json:"scope_of_work"`
	Questionnaires []QuestionnaireGroup  `json:"questionnaires"`
	ItemGroups     []CommercialItemGroup `json:"item_groups"`
	TermsText      string                `json:"terms_text"`
}

// LineItemBaseline is the lowest offer found for one line item across all
// supplier responses.
type LineItemBaseline struct {
	TableID      string  `json:"table_id"`
	RowID        string  `json:"row_id"`
	Description  string  `json:"description"`
	BestPrice    float64 `json:"best_price" example:"9.50"`
	SupplierID   string  `json:"supplier_id"`
	SupplierName string  `json:"supplier_name"`
	Offers       int     `json:"offers" example:"3"`
}
