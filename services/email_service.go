package services

import (
	"database/sql"
	"encoding/base64"
	"fmt"
	"log"
	"mime"
	"net/smtp"
	"os"
	"regexp"
	"strings"

	"backend/models"

	"golang.org/x/net/html"
)

// Attachment is one file to include in an outgoing message.
type EmailAttachment struct {
	FileName string
	MIMEType string
	Data     []byte
}

// Mailer delivers a rendered message. Wiring decides the implementation:
// SMTPMailer in a configured deployment, LogMailer otherwise. There is no
// silent fallback inside the service; the caller always knows which one it
// handed over.
type Mailer interface {
	Send(to string, cc, bcc []string, subject, body string, attachments []EmailAttachment) error
}

// SMTPMailer sends through a plain-auth SMTP relay.
type SMTPMailer struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// NewSMTPMailerFromEnv builds a mailer from SMTP_* environment variables.
// It fails rather than degrade when the relay is not configured.
func NewSMTPMailerFromEnv() (*SMTPMailer, error) {
	m := &SMTPMailer{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     os.Getenv("SMTP_PORT"),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("SMTP_FROM"),
	}
	if m.Host == "" || m.Username == "" || m.Password == "" {
		return nil, fmt.Errorf("SMTP_HOST, SMTP_USERNAME and SMTP_PASSWORD must be set")
	}
	if m.Port == "" {
		m.Port = "587"
	}
	if m.From == "" {
		m.From = m.Username
	}
	return m, nil
}

// Send builds a multipart MIME message so workbook attachments survive the
// trip, and hands it to the relay.
func (m *SMTPMailer) Send(to string, cc, bcc []string, subject, body string, attachments []EmailAttachment) error {
	auth := smtp.PlainAuth("", m.Username, m.Password, m.Host)

	toList := []string{to}
	toList = append(toList, cc...)
	toList = append(toList, bcc...)

	boundary := "----=_quote_request_boundary"
	var msg strings.Builder
	msg.WriteString("From: " + m.From + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	if len(cc) > 0 {
		msg.WriteString("Cc: " + strings.Join(cc, ", ") + "\r\n")
	}
	msg.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")

	if len(attachments) == 0 {
		msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		msg.WriteString(body + "\r\n")
	} else {
		msg.WriteString("Content-Type: multipart/mixed; boundary=\"" + boundary + "\"\r\n\r\n")
		msg.WriteString("--" + boundary + "\r\n")
		msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		msg.WriteString(body + "\r\n")
		for _, att := range attachments {
			mimeType := att.MIMEType
			if mimeType == "" {
				mimeType = "application/octet-stream"
			}
			msg.WriteString("--" + boundary + "\r\n")
			msg.WriteString("Content-Type: " + mimeType + "; name=\"" + att.FileName + "\"\r\n")
			msg.WriteString("Content-Disposition: attachment; filename=\"" + att.FileName + "\"\r\n")
			msg.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
			msg.WriteString(wrapBase64(base64.StdEncoding.EncodeToString(att.Data)))
			msg.WriteString("\r\n")
		}
		msg.WriteString("--" + boundary + "--\r\n")
	}

	return smtp.SendMail(m.Host+":"+m.Port, auth, m.From, toList, []byte(msg.String()))
}

// wrapBase64 folds encoded content to the 76-char lines RFC 2045 asks for.
func wrapBase64(s string) string {
	var b strings.Builder
	for len(s) > 76 {
		b.WriteString(s[:76])
		b.WriteString("\r\n")
		s = s[76:]
	}
	b.WriteString(s)
	return b.String()
}

// LogMailer records messages in the application log instead of sending them.
// Used in development and in tests.
type LogMailer struct{}

func (LogMailer) Send(to string, cc, bcc []string, subject, body string, attachments []EmailAttachment) error {
	names := make([]string, 0, len(attachments))
	for _, att := range attachments {
		names = append(names, fmt.Sprintf("%s (%d bytes)", att.FileName, len(att.Data)))
	}
	log.Printf("Email (not sent) to=%s cc=%v subject=%q attachments=%v", to, cc, subject, names)
	return nil
}

// EmailService renders templated messages and delivers them through the
// injected Mailer.
type EmailService struct {
	db     *sql.DB
	mailer Mailer
}

// NewEmailService creates a new email service instance.
func NewEmailService(db *sql.DB, mailer Mailer) *EmailService {
	return &EmailService{db: db, mailer: mailer}
}

// SendTemplatedEmail renders the template of the given type and sends it.
// A custom template id overrides the type's default; the type must match.
func (es *EmailService) SendTemplatedEmail(templateType string, emailData models.EmailData, customTemplateID *int, attachments []EmailAttachment) error {
	var emailTemplate *models.EmailTemplate
	var err error

	if customTemplateID != nil {
		emailTemplate, err = models.GetTemplateByID(es.db, *customTemplateID)
		if err != nil {
			return fmt.Errorf("failed to get custom template (ID: %d): %v", *customTemplateID, err)
		}
		if emailTemplate.TemplateType != templateType {
			return fmt.Errorf("custom template type mismatch: expected %s, got %s", templateType, emailTemplate.TemplateType)
		}
	} else {
		emailTemplate, err = models.GetDefaultTemplate(es.db, templateType)
		if err != nil {
			return fmt.Errorf("failed to get default template for type '%s': %v", templateType, err)
		}
	}

	subject, err := es.processTemplate(emailTemplate.Subject, emailData)
	if err != nil {
		return fmt.Errorf("failed to process subject template: %v", err)
	}
	body, err := es.processTemplate(emailTemplate.Body, emailData)
	if err != nil {
		return fmt.Errorf("failed to process body template: %v", err)
	}

	// Templates are authored as HTML; deliver as plain text
	plainTextBody := convertHTMLToText(body)

	return es.mailer.Send(emailData.Email, emailTemplate.CC, emailTemplate.BCC, subject, plainTextBody, attachments)
}

// SendRFQInvitation mails the quote request workbook to an invited supplier.
func (es *EmailService) SendRFQInvitation(supplier models.RFQSupplier, rfq models.RFQ, workbook []byte, fileName string, customTemplateID *int) error {
	emailData := models.EmailData{
		SupplierName: supplier.Name,
		ContactName:  supplier.ContactName,
		Email:        supplier.Email,
		RFQID:        rfq.RFQID,
		RFQTitle:     rfq.Title,
		DueDate:      rfq.DueDate.Format("2006-01-02"),
		BuyerName:    rfq.CreatedBy,
		PortalURL:    os.Getenv("SUPPLIER_PORTAL_URL"),
		SupportEmail: os.Getenv("SUPPORT_EMAIL"),
	}
	attachments := []EmailAttachment{{
		FileName: fileName,
		MIMEType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:     workbook,
	}}
	return es.SendTemplatedEmail("rfq_invite", emailData, customTemplateID, attachments)
}

// SendSubmissionReceipt confirms to a supplier that their quote was received.
func (es *EmailService) SendSubmissionReceipt(supplier models.RFQSupplier, rfq models.RFQ) error {
	emailData := models.EmailData{
		SupplierName: supplier.Name,
		ContactName:  supplier.ContactName,
		Email:        supplier.Email,
		RFQID:        rfq.RFQID,
		RFQTitle:     rfq.Title,
		DueDate:      rfq.DueDate.Format("2006-01-02"),
		SupportEmail: os.Getenv("SUPPORT_EMAIL"),
	}
	return es.SendTemplatedEmail("quote_received", emailData, nil, nil)
}

// processTemplate processes a template string with variable substitution.
func (es *EmailService) processTemplate(templateStr string, data models.EmailData) (string, error) {
	variables := map[string]string{
		"supplier_name": data.SupplierName,
		"contact_name":  data.ContactName,
		"email":         data.Email,
		"rfq_id":        data.RFQID,
		"rfq_title":     data.RFQTitle,
		"due_date":      data.DueDate,
		"buyer_name":    data.BuyerName,
		"portal_url":    data.PortalURL,
		"support_email": data.SupportEmail,
	}

	result := templateStr
	for key, value := range variables {
		placeholder := fmt.Sprintf("{{%s}}", key)
		result = strings.ReplaceAll(result, placeholder, value)
	}
	return result, nil
}

// ValidateTemplate validates a template string for syntax errors.
func (es *EmailService) ValidateTemplate(templateStr string) error {
	openBraces := strings.Count(templateStr, "{{")
	closeBraces := strings.Count(templateStr, "}}")
	if openBraces != closeBraces {
		return fmt.Errorf("unmatched braces in template")
	}

	re := regexp.MustCompile(`\{\{([^}]+)\}\}`)
	matches := re.FindAllStringSubmatch(templateStr, -1)

	validVariables := map[string]bool{
		"supplier_name": true,
		"contact_name":  true,
		"email":         true,
		"rfq_id":        true,
		"rfq_title":     true,
		"due_date":      true,
		"buyer_name":    true,
		"portal_url":    true,
		"support_email": true,
	}
	for _, match := range matches {
		if len(match) > 1 {
			variable := strings.TrimSpace(match[1])
			if !validVariables[variable] {
				return fmt.Errorf("invalid variable: %s", variable)
			}
		}
	}
	return nil
}

// PreviewEmailAsText renders a template with variables and converts it to
// the plain text that would actually be sent.
func (es *EmailService) PreviewEmailAsText(htmlContent string, emailData models.EmailData) (string, error) {
	processedContent, err := es.processTemplate(htmlContent, emailData)
	if err != nil {
		return "", fmt.Errorf("failed to process template: %v", err)
	}
	return convertHTMLToText(processedContent), nil
}

// convertHTMLToText converts HTML content to plain text for email sending
func convertHTMLToText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return htmlContent
	}

	var text strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			text.WriteString(n.Data)
		case html.ElementNode:
			switch n.Data {
			case "p", "div", "br", "h1", "h2", "h3", "h4", "h5", "h6":
				text.WriteString("\n")
			case "li":
				text.WriteString("- ")
			case "table", "tr":
				text.WriteString("\n")
			case "td", "th":
				text.WriteString(" | ")
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			extractText(child)
		}
	}
	extractText(doc)

	result := text.String()
	result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	return strings.TrimSpace(result)
}
