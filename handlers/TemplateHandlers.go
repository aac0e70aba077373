package handlers

import (
	"database/sql"
	"net/http"
	"strconv"

	"backend/models"

	"github.com/gin-gonic/gin"
)

// CreateTemplateHandler godoc
// @Summary      Create an RFQ template
// @Tags         templates
// @Accept       json
// @Produce      json
// @Param        request  body  models.RFQTemplate  true  "Template"
// @Success      201  {object}  models.RFQTemplate
// @Failure      400  {object}  models.ErrorResponse
// @Router       /api/create_template [post]
func CreateTemplateHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, userName, ok := sessionUser(c, db)
		if !ok {
			return
		}

		var input struct {
			Name        string             `json:"name" binding:"required"`
			Description string             `json:"description"`
			Structure   models.SectionList `json:"structure" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}
		if len(input.Structure) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Template structure must have at least one section"})
			return
		}

		tmpl := models.RFQTemplate{
			Name:        input.Name,
			Description: input.Description,
			Structure:   input.Structure,
			IsActive:    true,
			CreatedBy:   userName,
		}
		err := db.QueryRow(`
			INSERT INTO rfq_templates (name, description, structure, is_active, created_at, updated_at, created_by)
			VALUES ($1, $2, $3, true, NOW(), NOW(), $4)
			RETURNING template_id, created_at, updated_at`,
			tmpl.Name, tmpl.Description, tmpl.Structure, userName,
		).Scan(&tmpl.TemplateID, &tmpl.CreatedAt, &tmpl.UpdatedAt)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create template", "details": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, tmpl)
	}
}

// GetTemplatesHandler godoc
// @Summary      List active RFQ templates
// @Tags         templates
// @Produce      json
// @Success      200  {array}  models.RFQTemplate
// @Router       /api/get_templates [get]
func GetTemplatesHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, _, ok := sessionUser(c, db); !ok {
			return
		}

		rows, err := db.Query(`
			SELECT template_id, name, description, structure, is_active, created_at, updated_at, created_by
			FROM rfq_templates
			WHERE is_active = true
			ORDER BY name`)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error querying templates", "details": err.Error()})
			return
		}
		defer rows.Close()

		var templates []models.RFQTemplate
		for rows.Next() {
			var t models.RFQTemplate
			if err := rows.Scan(&t.TemplateID, &t.Name, &t.Description, &t.Structure, &t.IsActive, &t.CreatedAt, &t.UpdatedAt, &t.CreatedBy); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Error scanning templates"})
				return
			}
			templates = append(templates, t)
		}

		c.JSON(http.StatusOK, templates)
	}
}

// GetTemplateHandler godoc
// @Summary      Get one RFQ template
// @Tags         templates
// @Produce      json
// @Param        template_id  path  int  true  "Template ID"
// @Success      200  {object}  models.RFQTemplate
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/get_template/{template_id} [get]
func GetTemplateHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, _, ok := sessionUser(c, db); !ok {
			return
		}
		templateID, err := strconv.Atoi(c.Param("template_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template ID"})
			return
		}

		var t models.RFQTemplate
		err = db.QueryRow(`
			SELECT template_id, name, description, structure, is_active, created_at, updated_at, created_by
			FROM rfq_templates WHERE template_id = $1`, templateID).Scan(
			&t.TemplateID, &t.Name, &t.Description, &t.Structure, &t.IsActive, &t.CreatedAt, &t.UpdatedAt, &t.CreatedBy)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error querying template", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, t)
	}
}

// UpdateTemplateHandler godoc
// @Summary      Update an RFQ template
// @Tags         templates
// @Accept       json
// @Produce      json
// @Param        template_id  path  int                 true  "Template ID"
// @Param        request      body  models.RFQTemplate  true  "Updated template"
// @Success      200  {object}  models.RFQTemplate
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/update_template/{template_id} [put]
func UpdateTemplateHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, _, ok := sessionUser(c, db); !ok {
			return
		}
		templateID, err := strconv.Atoi(c.Param("template_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template ID"})
			return
		}

		var input struct {
			Name        string             `json:"name"`
			Description string             `json:"description"`
			Structure   models.SectionList `json:"structure"`
			IsActive    *bool              `json:"is_active"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		// Existing RFQs keep the structure they were created with; template
		// edits affect only future RFQs.
		result, err := db.Exec(`
			UPDATE rfq_templates SET
				name = COALESCE(NULLIF($1, ''), name),
				description = COALESCE(NULLIF($2, ''), description),
				structure = CASE WHEN $3::jsonb IS NOT NULL THEN $3::jsonb ELSE structure END,
				is_active = COALESCE($4, is_active),
				updated_at = NOW()
			WHERE template_id = $5`,
			input.Name, input.Description, nullableStructure(input.Structure), input.IsActive, templateID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update template", "details": err.Error()})
			return
		}
		rowsAffected, _ := result.RowsAffected()
		if rowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			return
		}

		var t models.RFQTemplate
		err = db.QueryRow(`
			SELECT template_id, name, description, structure, is_active, created_at, updated_at, created_by
			FROM rfq_templates WHERE template_id = $1`, templateID).Scan(
			&t.TemplateID, &t.Name, &t.Description, &t.Structure, &t.IsActive, &t.CreatedAt, &t.UpdatedAt, &t.CreatedBy)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reload template", "details": err.Error()})
			return
		}
		c.JSON(http.StatusOK, t)
	}
}

func nullableStructure(s models.SectionList) interface{} {
	if s == nil {
		return nil
	}
	return s
}
