package handlers

import (
	"database/sql"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"backend/models"
	"backend/repository"
	"backend/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// sessionUser resolves the caller from the Authorization header, writing the
// error response itself on failure.
func sessionUser(c *gin.Context, db *sql.DB) (models.Session, string, bool) {
	sessionID := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing session"})
		return models.Session{}, "", false
	}
	session, userName, err := GetSessionDetails(db, sessionID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session"})
		return models.Session{}, "", false
	}
	return session, userName, true
}

// CreateRFQInput is the request body for creating an RFQ. Either a template
// id or the ad hoc building blocks may be given; with neither, suppliers get
// only the synthesized general details and quote summary.
type CreateRFQInput struct {
	Title       string                `json:"title" binding:"required"`
	Description string                `json:"description"`
	DueDate     time.Time             `json:"due_date" binding:"required"`
	Currency    string                `json:"currency"`
	TemplateID  *int                  `json:"template_id,omitempty"`
	AdHoc       *models.AdHocRFQInput `json:"ad_hoc,omitempty"`
}

// CreateRFQHandler godoc
// @Summary      Create an RFQ
// @Tags         rfq
// @Accept       json
// @Produce      json
// @Param        request  body  CreateRFQInput  true  "RFQ details"
// @Success      201  {object}  models.RFQ
// @Failure      400  {object}  models.ErrorResponse
// @Router       /api/create_rfq [post]
func CreateRFQHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, userName, ok := sessionUser(c, db)
		if !ok {
			return
		}

		var input CreateRFQInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		rfqID, err := repository.GenerateRFQID(db)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate RFQ ID", "details": err.Error()})
			return
		}

		templateID := input.TemplateID
		if templateID == nil && input.AdHoc != nil {
			// Ad hoc RFQs get their synthesized document stored as a
			// one-off inactive template so later workbook generation and
			// reconciliation read the same structure.
			doc := services.SynthesizeSupplierDocument(*input.AdHoc)
			var newID int
			err := db.QueryRow(`
				INSERT INTO rfq_templates (name, description, structure, is_active, created_at, updated_at, created_by)
				VALUES ($1, $2, $3, false, NOW(), NOW(), $4)
				RETURNING template_id`,
				"Ad hoc - "+rfqID, input.Title, models.SectionList(doc), userName,
			).Scan(&newID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store RFQ structure", "details": err.Error()})
				return
			}
			templateID = &newID
		}

		currency := input.Currency
		if currency == "" {
			currency = "USD"
		}

		rfq := models.RFQ{
			RFQID:       rfqID,
			Title:       input.Title,
			Description: input.Description,
			Status:      "draft",
			TemplateID:  templateID,
			DueDate:     input.DueDate,
			Currency:    currency,
			CreatedBy:   userName,
			UpdatedBy:   userName,
		}
		err = db.QueryRow(`
			INSERT INTO rfqs (rfq_id, title, description, status, template_id, due_date, currency, created_at, updated_at, created_by, updated_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW(), $8, $8)
			RETURNING created_at, updated_at`,
			rfq.RFQID, rfq.Title, rfq.Description, rfq.Status, rfq.TemplateID, rfq.DueDate, rfq.Currency, userName,
		).Scan(&rfq.CreatedAt, &rfq.UpdatedAt)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create RFQ", "details": err.Error()})
			return
		}

		if err := SaveActivityLog(db, models.ActivityLog{
			CreatedAt:    time.Now(),
			UserName:     userName,
			HostName:     session.HostName,
			IPAddress:    session.IPAddress,
			EventContext: "RFQ",
			EventName:    "Create",
			Description:  "Created RFQ " + rfqID,
			RFQID:        rfqID,
		}); err != nil {
			log.Printf("Failed to save activity log: %v", err)
		}

		c.JSON(http.StatusCreated, rfq)
	}
}

// GetRFQsHandler godoc
// @Summary      List RFQs
// @Tags         rfq
// @Produce      json
// @Param        status  query  string  false  "Filter by status"
// @Param        page    query  int     false  "Page"
// @Param        limit   query  int     false  "Limit"
// @Success      200  {object}  object
// @Router       /api/get_rfqs [get]
func GetRFQsHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, _, ok := sessionUser(c, db); !ok {
			return
		}

		status := c.Query("status")
		page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
		if err != nil || page < 1 {
			page = 1
		}
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
		if err != nil || limit < 1 {
			limit = 20
		}
		offset := (page - 1) * limit

		var totalRecords int
		if err := db.QueryRow(`SELECT COUNT(*) FROM rfqs WHERE ($1 = '' OR status = $1)`, status).Scan(&totalRecords); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error counting RFQs"})
			return
		}

		rows, err := db.Query(`
			SELECT rfq_id, title, description, status, template_id, due_date, currency, created_at, updated_at, created_by, updated_by
			FROM rfqs
			WHERE ($1 = '' OR status = $1)
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3`, status, limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error querying RFQs", "details": err.Error()})
			return
		}
		defer rows.Close()

		var rfqs []models.RFQ
		for rows.Next() {
			var rfq models.RFQ
			var templateID sql.NullInt64
			if err := rows.Scan(&rfq.RFQID, &rfq.Title, &rfq.Description, &rfq.Status, &templateID,
				&rfq.DueDate, &rfq.Currency, &rfq.CreatedAt, &rfq.UpdatedAt, &rfq.CreatedBy, &rfq.UpdatedBy); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Error scanning RFQs"})
				return
			}
			if templateID.Valid {
				id := int(templateID.Int64)
				rfq.TemplateID = &id
			}
			rfqs = append(rfqs, rfq)
		}

		c.JSON(http.StatusOK, gin.H{
			"rfqs":          rfqs,
			"total_records": totalRecords,
			"page":          page,
			"page_size":     limit,
		})
	}
}

// GetRFQHandler godoc
// @Summary      Get one RFQ with its invited suppliers
// @Tags         rfq
// @Produce      json
// @Param        rfq_id  path  string  true  "RFQ ID"
// @Success      200  {object}  object
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/get_rfq/{rfq_id} [get]
func GetRFQHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, _, ok := sessionUser(c, db); !ok {
			return
		}
		rfqID := c.Param("rfq_id")

		rfq, err := fetchRFQ(db, rfqID)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": "RFQ not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error querying RFQ", "details": err.Error()})
			return
		}

		suppliers, err := fetchRFQSuppliers(db, rfqID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error querying suppliers", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"rfq": rfq, "suppliers": suppliers})
	}
}

func fetchRFQ(db *sql.DB, rfqID string) (*models.RFQ, error) {
	var rfq models.RFQ
	var templateID sql.NullInt64
	err := db.QueryRow(`
		SELECT rfq_id, title, description, status, template_id, due_date, currency, created_at, updated_at, created_by, updated_by
		FROM rfqs WHERE rfq_id = $1`, rfqID).Scan(
		&rfq.RFQID, &rfq.Title, &rfq.Description, &rfq.Status, &templateID,
		&rfq.DueDate, &rfq.Currency, &rfq.CreatedAt, &rfq.UpdatedAt, &rfq.CreatedBy, &rfq.UpdatedBy)
	if err != nil {
		return nil, err
	}
	if templateID.Valid {
		id := int(templateID.Int64)
		rfq.TemplateID = &id
	}
	return &rfq, nil
}

func fetchRFQSuppliers(db *sql.DB, rfqID string) ([]models.RFQSupplier, error) {
	rows, err := db.Query(`
		SELECT id, rfq_id, supplier_id, name, email, contact_name, status, invited_at, responded_at
		FROM rfq_suppliers WHERE rfq_id = $1 ORDER BY invited_at`, rfqID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suppliers []models.RFQSupplier
	for rows.Next() {
		var s models.RFQSupplier
		var respondedAt sql.NullTime
		if err := rows.Scan(&s.ID, &s.RFQID, &s.SupplierID, &s.Name, &s.Email, &s.ContactName, &s.Status, &s.InvitedAt, &respondedAt); err != nil {
			return nil, err
		}
		if respondedAt.Valid {
			s.RespondedAt = &respondedAt.Time
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, nil
}

func fetchRFQSupplier(db *sql.DB, rfqID, supplierID string) (*models.RFQSupplier, error) {
	var s models.RFQSupplier
	var respondedAt sql.NullTime
	err := db.QueryRow(`
		SELECT id, rfq_id, supplier_id, name, email, contact_name, status, invited_at, responded_at
		FROM rfq_suppliers WHERE rfq_id = $1 AND supplier_id = $2`, rfqID, supplierID).Scan(
		&s.ID, &s.RFQID, &s.SupplierID, &s.Name, &s.Email, &s.ContactName, &s.Status, &s.InvitedAt, &respondedAt)
	if err != nil {
		return nil, err
	}
	if respondedAt.Valid {
		s.RespondedAt = &respondedAt.Time
	}
	return &s, nil
}

// UpdateRFQHandler godoc
// @Summary      Update an RFQ
// @Tags         rfq
// @Accept       json
// @Produce      json
// @Param        rfq_id   path  string          true  "RFQ ID"
// @Param        request  body  CreateRFQInput  true  "Updated fields"
// @Success      200  {object}  models.RFQ
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/update_rfq/{rfq_id} [put]
func UpdateRFQHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, userName, ok := sessionUser(c, db)
		if !ok {
			return
		}
		rfqID := c.Param("rfq_id")

		var input struct {
			Title       string     `json:"title"`
			Description string     `json:"description"`
			Status      string     `json:"status"`
			DueDate     *time.Time `json:"due_date"`
			Currency    string     `json:"currency"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		if input.Status != "" {
			switch input.Status {
			case "draft", "open", "closed", "awarded":
			default:
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
				return
			}
		}

		result, err := db.Exec(`
			UPDATE rfqs SET
				title = COALESCE(NULLIF($1, ''), title),
				description = COALESCE(NULLIF($2, ''), description),
				status = COALESCE(NULLIF($3, ''), status),
				due_date = COALESCE($4, due_date),
				currency = COALESCE(NULLIF($5, ''), currency),
				updated_at = NOW(),
				updated_by = $6
			WHERE rfq_id = $7`,
			input.Title, input.Description, input.Status, input.DueDate, input.Currency, userName, rfqID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update RFQ", "details": err.Error()})
			return
		}
		rowsAffected, _ := result.RowsAffected()
		if rowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "RFQ not found"})
			return
		}

		if err := SaveActivityLog(db, models.ActivityLog{
			CreatedAt:    time.Now(),
			UserName:     userName,
			HostName:     session.HostName,
			IPAddress:    session.IPAddress,
			EventContext: "RFQ",
			EventName:    "Update",
			Description:  "Updated RFQ " + rfqID,
			RFQID:        rfqID,
		}); err != nil {
			log.Printf("Failed to save activity log: %v", err)
		}

		rfq, err := fetchRFQ(db, rfqID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reload RFQ", "details": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rfq)
	}
}

// DeleteRFQHandler godoc
// @Summary      Delete a draft RFQ
// @Tags         rfq
// @Produce      json
// @Param        rfq_id  path  string  true  "RFQ ID"
// @Success      200  {object}  utils.Response
// @Failure      404  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse
// @Router       /api/delete_rfq/{rfq_id} [delete]
func DeleteRFQHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, userName, ok := sessionUser(c, db)
		if !ok {
			return
		}
		rfqID := c.Param("rfq_id")

		var status string
		if err := db.QueryRow(`SELECT status FROM rfqs WHERE rfq_id = $1`, rfqID).Scan(&status); err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": "RFQ not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error querying RFQ", "details": err.Error()})
			return
		}
		if status != "draft" {
			c.JSON(http.StatusConflict, gin.H{"error": "Only draft RFQs can be deleted"})
			return
		}

		if _, err := db.Exec(`DELETE FROM rfq_suppliers WHERE rfq_id = $1`, rfqID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete suppliers", "details": err.Error()})
			return
		}
		if _, err := db.Exec(`DELETE FROM rfqs WHERE rfq_id = $1`, rfqID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete RFQ", "details": err.Error()})
			return
		}

		if err := SaveActivityLog(db, models.ActivityLog{
			CreatedAt:    time.Now(),
			UserName:     userName,
			HostName:     session.HostName,
			IPAddress:    session.IPAddress,
			EventContext: "RFQ",
			EventName:    "Delete",
			Description:  "Deleted RFQ " + rfqID,
			RFQID:        rfqID,
		}); err != nil {
			log.Printf("Failed to save activity log: %v", err)
		}

		c.JSON(http.StatusOK, gin.H{"message": "RFQ deleted"})
	}
}

// SupplierInvite is one supplier to invite to an RFQ.
type SupplierInvite struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	ContactName string `json:"contact_name"`
	TemplateID  *int   `json:"email_template_id,omitempty"`
}

// InviteSuppliersHandler godoc
// @Summary      Invite suppliers to an RFQ
// @Description  Creates a draft quote request per supplier, generates their workbook and emails it
// @Tags         rfq
// @Accept       json
// @Produce      json
// @Param        rfq_id   path  string            true  "RFQ ID"
// @Param        request  body  []SupplierInvite  true  "Suppliers to invite"
// @Success      200  {object}  object
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/rfq_suppliers/{rfq_id} [post]
func InviteSuppliersHandler(db *sql.DB, gdb *gorm.DB, emailService *services.EmailService, store services.TokenStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, userName, ok := sessionUser(c, db)
		if !ok {
			return
		}
		rfqID := c.Param("rfq_id")

		rfq, err := fetchRFQ(db, rfqID)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": "RFQ not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error querying RFQ", "details": err.Error()})
			return
		}
		if rfq.Status == "closed" || rfq.Status == "awarded" {
			c.JSON(http.StatusConflict, gin.H{"error": "RFQ is no longer open for invitations"})
			return
		}

		var invites []SupplierInvite
		if err := c.ShouldBindJSON(&invites); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}
		if len(invites) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No suppliers given"})
			return
		}

		structure, err := loadRFQStructure(db, rfq)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load RFQ structure", "details": err.Error()})
			return
		}

		type inviteResult struct {
			SupplierID string `json:"supplier_id"`
			Email      string `json:"email"`
			Emailed    bool   `json:"emailed"`
			Error      string `json:"error,omitempty"`
		}
		results := make([]inviteResult, 0, len(invites))

		for _, invite := range invites {
			supplierID, err := repository.GenerateSupplierID(db)
			if err != nil {
				results = append(results, inviteResult{Email: invite.Email, Error: err.Error()})
				continue
			}

			_, err = db.Exec(`
				INSERT INTO rfq_suppliers (rfq_id, supplier_id, name, email, contact_name, status, invited_at)
				VALUES ($1, $2, $3, $4, $5, 'invited', NOW())`,
				rfqID, supplierID, invite.Name, invite.Email, invite.ContactName)
			if err != nil {
				results = append(results, inviteResult{Email: invite.Email, Error: err.Error()})
				continue
			}

			// Each supplier gets their own draft quote request holding the
			// projected document.
			supplierDoc := services.ProjectSections(structure)
			sqr := models.SupplierQuoteRequest{
				RFQID:       rfqID,
				SupplierID:  supplierID,
				Status:      "draft",
				Sections:    supplierDoc,
				Currency:    rfq.Currency,
				LastUpdated: time.Now(),
				CreatedAt:   time.Now(),
			}
			if err := gdb.Create(&sqr).Error; err != nil {
				results = append(results, inviteResult{SupplierID: supplierID, Email: invite.Email, Error: err.Error()})
				continue
			}

			rc := &services.RecipientContext{
				RFQID:        rfqID,
				RFQTitle:     rfq.Title,
				DueDate:      rfq.DueDate,
				SupplierID:   supplierID,
				SupplierName: invite.Name,
				ContactEmail: invite.Email,
			}
			workbook, fileName, err := services.GenerateWorkbook(sqr.Sections, rc, store)
			if err != nil {
				results = append(results, inviteResult{SupplierID: supplierID, Email: invite.Email, Error: err.Error()})
				continue
			}

			supplier := models.RFQSupplier{
				RFQID:       rfqID,
				SupplierID:  supplierID,
				Name:        invite.Name,
				Email:       invite.Email,
				ContactName: invite.ContactName,
			}
			emailed := true
			if err := emailService.SendRFQInvitation(supplier, *rfq, workbook, fileName, invite.TemplateID); err != nil {
				log.Printf("Failed to email invitation to %s: %v", invite.Email, err)
				emailed = false
			}

			results = append(results, inviteResult{SupplierID: supplierID, Email: invite.Email, Emailed: emailed})
		}

		// Inviting the first supplier opens a draft RFQ
		if rfq.Status == "draft" {
			if _, err := db.Exec(`UPDATE rfqs SET status = 'open', updated_at = NOW(), updated_by = $1 WHERE rfq_id = $2`, userName, rfqID); err != nil {
				log.Printf("Failed to open RFQ %s: %v", rfqID, err)
			}
		}

		if err := SaveActivityLog(db, models.ActivityLog{
			CreatedAt:    time.Now(),
			UserName:     userName,
			HostName:     session.HostName,
			IPAddress:    session.IPAddress,
			EventContext: "RFQ",
			EventName:    "Invite",
			Description:  "Invited suppliers to RFQ " + rfqID,
			RFQID:        rfqID,
		}); err != nil {
			log.Printf("Failed to save activity log: %v", err)
		}

		c.JSON(http.StatusOK, gin.H{"rfq_id": rfqID, "invited": results})
	}
}

// loadRFQStructure returns the master document for an RFQ. RFQs without a
// template (no ad hoc input either) get the minimal synthesized document.
func loadRFQStructure(db *sql.DB, rfq *models.RFQ) ([]models.Section, error) {
	if rfq.TemplateID == nil {
		return services.SynthesizeSupplierDocument(models.AdHocRFQInput{
			GeneralInfo: map[string]string{
				"rfq_number": rfq.RFQID,
				"rfq_title":  rfq.Title,
				"buyer_name": rfq.CreatedBy,
				"due_date":   rfq.DueDate.Format("2006-01-02"),
			},
		}), nil
	}
	var structure models.SectionList
	err := db.QueryRow(`SELECT structure FROM rfq_templates WHERE template_id = $1`, *rfq.TemplateID).Scan(&structure)
	if err != nil {
		return nil, err
	}
	return structure, nil
}
