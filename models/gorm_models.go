package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// GORM-compatible models with proper tags

// Attachment is one file reference attached to a supplier quote request.
type Attachment struct {
	FileName   string    `json:"file_name" example:"datasheet.pdf"`
	FileURL    string    `json:"file_url"`
	UploadedAt time.Time `json:"uploaded_at"`
	UploadedBy string    `json:"uploaded_by"`
}

// AttachmentList persists attachments as a JSONB column.
type AttachmentList []Attachment

// Value implements driver.Valuer for database/sql and GORM.
func (a AttachmentList) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner for database/sql and GORM.
func (a *AttachmentList) Scan(value interface{}) error {
	if value == nil {
		*a = AttachmentList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for AttachmentList")
	}
	if len(data) == 0 {
		*a = AttachmentList{}
		return nil
	}
	return json.Unmarshal(data, a)
}

// SupplierQuoteRequest represents the supplier_quote_requests table: the
// persisted supplier-facing document, one per (rfq_id, supplier_id). Created
// when the supplier is invited, mutated on each Excel upload or portal save
// while in draft, frozen on submit.
type SupplierQuoteRequest struct {
	ID              uint           `gorm:"primaryKey;column:id" json:"id"`
	RFQID           string         `gorm:"column:rfq_id;not null;index:idx_sqr_rfq_supplier,unique" json:"rfq_id"`
	SupplierID      string         `gorm:"column:supplier_id;not null;index:idx_sqr_rfq_supplier,unique" json:"supplier_id"`
	Status          string         `gorm:"column:status;not null;default:'draft'" json:"status" example:"draft"` // draft, submitted, accepted, rejected
	Sections        SectionList    `gorm:"column:sections;type:jsonb" json:"sections"`
	Attachments     AttachmentList `gorm:"column:attachments;type:jsonb" json:"attachments"`
	Comments        string         `gorm:"column:comments" json:"comments"`
	TotalQuoteValue *float64       `gorm:"column:total_quote_value" json:"total_quote_value,omitempty"`
	Currency        string         `gorm:"column:currency" json:"currency" example:"USD"`
	SubmissionDate  *time.Time     `gorm:"column:submission_date" json:"submission_date,omitempty"`
	LastUpdated     time.Time      `gorm:"column:last_updated;not null" json:"last_updated"`
	CreatedAt       time.Time      `gorm:"column:created_at;not null" json:"created_at"`
}

// TableName specifies the table name for SupplierQuoteRequest
func (SupplierQuoteRequest) TableName() string {
	return "supplier_quote_requests"
}
