package services

import (
	"strings"
	"testing"

	"backend/models"
)

func TestProcessTemplateSubstitution(t *testing.T) {
	es := NewEmailService(nil, LogMailer{})
	data := models.EmailData{
		SupplierName: "Acme Industrial",
		RFQID:        "RFQ-AB12345",
		RFQTitle:     "Packaging Procurement",
		DueDate:      "2026-09-30",
	}

	out, err := es.processTemplate("Dear {{supplier_name}}, please quote for {{rfq_title}} ({{rfq_id}}) by {{due_date}}.", data)
	if err != nil {
		t.Fatalf("processTemplate: %v", err)
	}
	want := "Dear Acme Industrial, please quote for Packaging Procurement (RFQ-AB12345) by 2026-09-30."
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}

	// unset variables substitute to the empty string, not the placeholder
	out, err = es.processTemplate("Contact: {{buyer_name}}", models.EmailData{})
	if err != nil {
		t.Fatalf("processTemplate: %v", err)
	}
	if strings.Contains(out, "{{") {
		t.Errorf("placeholder left in output: %q", out)
	}
}

func TestValidateTemplate(t *testing.T) {
	es := NewEmailService(nil, LogMailer{})

	if err := es.ValidateTemplate("Hello {{supplier_name}}, see {{portal_url}}"); err != nil {
		t.Errorf("valid template rejected: %v", err)
	}
	if err := es.ValidateTemplate("Hello {{supplier_name}"); err == nil {
		t.Error("unmatched braces accepted")
	}
	if err := es.ValidateTemplate("Hello {{no_such_var}}"); err == nil {
		t.Error("unknown variable accepted")
	}
}

func TestConvertHTMLToText(t *testing.T) {
	in := "<p>Dear supplier,</p><p>Please find the workbook attached.</p><ul><li>Complete all highlighted cells</li><li>Upload before the due date</li></ul>"
	out := convertHTMLToText(in)

	if strings.Contains(out, "<") {
		t.Errorf("tags left in output: %q", out)
	}
	for _, want := range []string{"Dear supplier,", "- Complete all highlighted cells", "- Upload before the due date"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %q", want, out)
		}
	}
}

func TestConvertHTMLToTextPlainInput(t *testing.T) {
	in := "Just a plain sentence."
	if out := convertHTMLToText(in); out != in {
		t.Errorf("plain text mangled: %q", out)
	}
}

func TestWrapBase64(t *testing.T) {
	s := strings.Repeat("A", 200)
	wrapped := wrapBase64(s)
	for i, line := range strings.Split(wrapped, "\r\n") {
		if len(line) > 76 {
			t.Errorf("line %d is %d chars", i, len(line))
		}
	}
	if strings.ReplaceAll(wrapped, "\r\n", "") != s {
		t.Error("wrapping altered the content")
	}
	if wrapBase64("short") != "short" {
		t.Error("short input should pass through unwrapped")
	}
}

func TestPreviewEmailAsText(t *testing.T) {
	es := NewEmailService(nil, LogMailer{})
	out, err := es.PreviewEmailAsText("<p>Hello {{contact_name}}</p>", models.EmailData{ContactName: "Jane Smith"})
	if err != nil {
		t.Fatalf("PreviewEmailAsText: %v", err)
	}
	if out != "Hello Jane Smith" {
		t.Errorf("got %q", out)
	}
}
