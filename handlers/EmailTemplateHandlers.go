package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"backend/models"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"golang.org/x/net/html"
)

var validTemplateTypes = []string{"rfq_invite", "quote_received", "rfq_reminder"}

func isValidTemplateType(t string) bool {
	for _, v := range validTemplateTypes {
		if t == v {
			return true
		}
	}
	return false
}

// sanitizeHTML strips script/style elements and event handler attributes
// from template bodies authored in the frontend editor.
func sanitizeHTML(input string) string {
	doc, err := html.Parse(strings.NewReader(input))
	if err != nil {
		return input
	}

	var clean func(*html.Node)
	clean = func(n *html.Node) {
		for child := n.FirstChild; child != nil; {
			next := child.NextSibling
			if child.Type == html.ElementNode && (child.Data == "script" || child.Data == "style" || child.Data == "iframe") {
				n.RemoveChild(child)
			} else {
				clean(child)
			}
			child = next
		}
		if n.Type == html.ElementNode {
			attrs := n.Attr[:0]
			for _, a := range n.Attr {
				if strings.HasPrefix(strings.ToLower(a.Key), "on") {
					continue
				}
				if a.Key == "href" && strings.HasPrefix(strings.ToLower(strings.TrimSpace(a.Val)), "javascript:") {
					continue
				}
				attrs = append(attrs, a)
			}
			n.Attr = attrs
		}
	}
	clean(doc)

	var b strings.Builder
	if err := html.Render(&b, doc); err != nil {
		return input
	}
	return b.String()
}

// CreateEmailTemplate godoc
// @Summary Create email template
// @Tags Email Templates
// @Accept json
// @Produce json
// @Param template body models.EmailTemplate true "Email template data"
// @Success 201 {object} models.EmailTemplate
// @Failure 400 {object} models.ErrorResponse
// @Router /api/email-templates [post]
func CreateEmailTemplate(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, userName, ok := sessionUser(c, db)
		if !ok {
			return
		}

		var request models.EmailTemplate
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}
		if !isValidTemplateType(request.TemplateType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template type", "valid_types": validTemplateTypes})
			return
		}

		tx, err := db.Begin()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
			return
		}
		defer tx.Rollback()

		// A type has at most one default
		if request.IsDefault {
			if _, err := tx.Exec("UPDATE email_templates SET is_default = false WHERE template_type = $1", request.TemplateType); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update existing defaults"})
				return
			}
		}

		sanitizedBody := sanitizeHTML(request.Body)

		var templateID int
		query := `
			INSERT INTO email_templates (name, subject, body, template_type, is_default, is_active, cc, bcc, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
			RETURNING id`
		err = tx.QueryRow(query,
			request.Name, request.Subject, sanitizedBody, request.TemplateType,
			request.IsDefault, request.IsActive, pq.Array(request.CC), pq.Array(request.BCC),
		).Scan(&templateID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create template", "details": err.Error()})
			return
		}

		if err := tx.Commit(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
			return
		}

		log := models.ActivityLog{
			EventContext: "Email Template",
			EventName:    "Create",
			Description:  fmt.Sprintf("Email template '%s' created", request.Name),
			UserName:     userName,
			HostName:     session.HostName,
			IPAddress:    session.IPAddress,
			CreatedAt:    time.Now(),
		}
		if logErr := SaveActivityLog(db, log); logErr != nil {
			fmt.Printf("Failed to log activity: %v\n", logErr)
		}

		template, err := models.GetTemplateByID(db, templateID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Template created but failed to retrieve"})
			return
		}
		c.JSON(http.StatusCreated, template)
	}
}

// GetEmailTemplates godoc
// @Summary Get all email templates
// @Tags Email Templates
// @Produce json
// @Success 200 {array} models.EmailTemplate
// @Router /api/email-templates [get]
func GetEmailTemplates(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, _, ok := sessionUser(c, db); !ok {
			return
		}

		rows, err := db.Query(`
			SELECT id, name, subject, body, template_type, is_default, is_active,
			       COALESCE(cc, '{}'), COALESCE(bcc, '{}'), created_at, updated_at
			FROM email_templates
			WHERE is_active = true
			ORDER BY template_type, name`)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error querying templates", "details": err.Error()})
			return
		}
		defer rows.Close()

		var templates []models.EmailTemplate
		for rows.Next() {
			var t models.EmailTemplate
			if err := rows.Scan(&t.ID, &t.Name, &t.Subject, &t.Body, &t.TemplateType, &t.IsDefault,
				&t.IsActive, pq.Array(&t.CC), pq.Array(&t.BCC), &t.CreatedAt, &t.UpdatedAt); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Error scanning templates"})
				return
			}
			templates = append(templates, t)
		}
		c.JSON(http.StatusOK, templates)
	}
}

// GetEmailTemplateByID godoc
// @Summary Get email template by ID
// @Tags Email Templates
// @Produce json
// @Param id path int true "Template ID"
// @Success 200 {object} models.EmailTemplate
// @Failure 404 {object} models.ErrorResponse
// @Router /api/email-templates/{id} [get]
func GetEmailTemplateByID(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, _, ok := sessionUser(c, db); !ok {
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template ID"})
			return
		}
		template, err := models.GetTemplateByID(db, id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			return
		}
		c.JSON(http.StatusOK, template)
	}
}

// UpdateEmailTemplate godoc
// @Summary Update email template
// @Tags Email Templates
// @Accept json
// @Produce json
// @Param id path int true "Template ID"
// @Param template body models.EmailTemplate true "Updated template"
// @Success 200 {object} models.EmailTemplate
// @Failure 404 {object} models.ErrorResponse
// @Router /api/email-templates/{id} [put]
func UpdateEmailTemplate(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, _, ok := sessionUser(c, db); !ok {
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template ID"})
			return
		}

		var request models.EmailTemplate
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}
		if request.TemplateType != "" && !isValidTemplateType(request.TemplateType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template type", "valid_types": validTemplateTypes})
			return
		}

		tx, err := db.Begin()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
			return
		}
		defer tx.Rollback()

		if request.IsDefault && request.TemplateType != "" {
			if _, err := tx.Exec("UPDATE email_templates SET is_default = false WHERE template_type = $1 AND id != $2", request.TemplateType, id); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update existing defaults"})
				return
			}
		}

		result, err := tx.Exec(`
			UPDATE email_templates SET
				name = COALESCE(NULLIF($1, ''), name),
				subject = COALESCE(NULLIF($2, ''), subject),
				body = COALESCE(NULLIF($3, ''), body),
				template_type = COALESCE(NULLIF($4, ''), template_type),
				is_default = $5,
				is_active = $6,
				cc = $7,
				bcc = $8,
				updated_at = NOW()
			WHERE id = $9`,
			request.Name, request.Subject, sanitizeHTML(request.Body), request.TemplateType,
			request.IsDefault, request.IsActive, pq.Array(request.CC), pq.Array(request.BCC), id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update template", "details": err.Error()})
			return
		}
		rowsAffected, _ := result.RowsAffected()
		if rowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			return
		}
		if err := tx.Commit(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
			return
		}

		template, err := models.GetTemplateByID(db, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Template updated but failed to retrieve"})
			return
		}
		c.JSON(http.StatusOK, template)
	}
}

// DeleteEmailTemplate godoc
// @Summary Delete email template
// @Description Soft-deletes by marking inactive; the default template of a type cannot be deleted
// @Tags Email Templates
// @Produce json
// @Param id path int true "Template ID"
// @Success 200 {object} utils.Response
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/email-templates/{id} [delete]
func DeleteEmailTemplate(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, _, ok := sessionUser(c, db); !ok {
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template ID"})
			return
		}

		var isDefault bool
		if err := db.QueryRow(`SELECT is_default FROM email_templates WHERE id = $1`, id).Scan(&isDefault); err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error querying template", "details": err.Error()})
			return
		}
		if isDefault {
			c.JSON(http.StatusConflict, gin.H{"error": "Cannot delete the default template for its type"})
			return
		}

		if _, err := db.Exec(`UPDATE email_templates SET is_active = false, updated_at = NOW() WHERE id = $1`, id); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete template", "details": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Template deleted"})
	}
}
