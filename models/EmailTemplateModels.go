package models

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// EmailTemplate represents the email_templates table
type EmailTemplate struct {
	ID           int       `json:"id" example:"1"`
	Name         string    `json:"name" example:"RFQ Invitation"`
	Subject      string    `json:"subject" example:"Request for Quotation: {{rfq_title}}"`
	Body         string    `json:"body" example:"Dear {{supplier_name}}, ..."`
	TemplateType string    `json:"template_type" example:"rfq_invite"`
	IsDefault    bool      `json:"is_default" example:"true"`
	IsActive     bool      `json:"is_active" example:"true"`
	CC           []string  `json:"cc,omitempty"`
	BCC          []string  `json:"bcc,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// EmailData holds the variables substituted into email templates.
type EmailData struct {
	SupplierName string `json:"supplier_name"`
	ContactName  string `json:"contact_name"`
	Email        string `json:"email"`
	RFQID        string `json:"rfq_id"`
	RFQTitle     string `json:"rfq_title"`
	DueDate      string `json:"due_date"`
	BuyerName    string `json:"buyer_name"`
	PortalURL    string `json:"portal_url"`
	SupportEmail string `json:"support_email"`
}

// GetDefaultTemplate fetches the active default template for a type.
func GetDefaultTemplate(db *sql.DB, templateType string) (*EmailTemplate, error) {
	var t EmailTemplate
	query := `
		SELECT id, name, subject, body, template_type, is_default, is_active,
		       COALESCE(cc, '{}'), COALESCE(bcc, '{}'), created_at, updated_at
		FROM email_templates
		WHERE template_type = $1 AND is_default = true AND is_active = true
		LIMIT 1`
	err := db.QueryRow(query, templateType).Scan(
		&t.ID, &t.Name, &t.Subject, &t.Body, &t.TemplateType, &t.IsDefault,
		&t.IsActive, pq.Array(&t.CC), pq.Array(&t.BCC), &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("no default template for type %q: %v", templateType, err)
	}
	return &t, nil
}

// GetTemplateByID fetches a specific template.
func GetTemplateByID(db *sql.DB, id int) (*EmailTemplate, error) {
	var t EmailTemplate
	query := `
		SELECT id, name, subject, body, template_type, is_default, is_active,
		       COALESCE(cc, '{}'), COALESCE(bcc, '{}'), created_at, updated_at
		FROM email_templates
		WHERE id = $1`
	err := db.QueryRow(query, id).Scan(
		&t.ID, &t.Name, &t.Subject, &t.Body, &t.TemplateType, &t.IsDefault,
		&t.IsActive, pq.Array(&t.CC), pq.Array(&t.BCC), &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("template %d not found: %v", id, err)
	}
	return &t, nil
}
