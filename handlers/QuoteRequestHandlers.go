package handlers

import (
	"database/sql"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"backend/models"
	"backend/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// maxUploadSize caps uploaded workbooks at 20 MB.
const maxUploadSize = 20 << 20

func loadQuoteRequest(gdb *gorm.DB, rfqID, supplierID string) (*models.SupplierQuoteRequest, error) {
	var sqr models.SupplierQuoteRequest
	err := gdb.Where("rfq_id = ? AND supplier_id = ?", rfqID, supplierID).First(&sqr).Error
	if err != nil {
		return nil, err
	}
	return &sqr, nil
}

// GetQuoteRequestHandler godoc
// @Summary      Get a supplier quote request
// @Tags         quote-request
// @Produce      json
// @Param        rfq_id       path  string  true  "RFQ ID"
// @Param        supplier_id  path  string  true  "Supplier ID"
// @Success      200  {object}  models.SupplierQuoteRequest
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/quote_request/{rfq_id}/{supplier_id} [get]
func GetQuoteRequestHandler(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqr, err := loadQuoteRequest(gdb, c.Param("rfq_id"), c.Param("supplier_id"))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Quote request not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error querying quote request", "details": err.Error()})
			return
		}
		c.JSON(http.StatusOK, sqr)
	}
}

// UpdateQuoteRequestHandler godoc
// @Summary      Save quote request changes from the supplier portal
// @Description  Accepts section values, comments and attachments while the request is still a draft
// @Tags         quote-request
// @Accept       json
// @Produce      json
// @Param        rfq_id       path  string  true  "RFQ ID"
// @Param        supplier_id  path  string  true  "Supplier ID"
// @Success      200  {object}  models.SupplierQuoteRequest
// @Failure      404  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse
// @Router       /api/quote_request/{rfq_id}/{supplier_id} [put]
func UpdateQuoteRequestHandler(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		rfqID := c.Param("rfq_id")
		supplierID := c.Param("supplier_id")

		sqr, err := loadQuoteRequest(gdb, rfqID, supplierID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Quote request not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error querying quote request", "details": err.Error()})
			return
		}
		if sqr.Status != "draft" {
			c.JSON(http.StatusConflict, gin.H{"error": "Quote request is already submitted"})
			return
		}

		var input struct {
			Sections    models.SectionList    `json:"sections"`
			Attachments models.AttachmentList `json:"attachments"`
			Comments    *string               `json:"comments"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		if input.Sections != nil {
			sqr.Sections = input.Sections
		}
		if input.Attachments != nil {
			sqr.Attachments = input.Attachments
		}
		if input.Comments != nil {
			sqr.Comments = *input.Comments
		}
		sqr.LastUpdated = time.Now()

		if err := gdb.Save(sqr).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save quote request", "details": err.Error()})
			return
		}
		c.JSON(http.StatusOK, sqr)
	}
}

// DeleteQuoteRequestHandler godoc
// @Summary      Withdraw a supplier from an RFQ
// @Tags         quote-request
// @Produce      json
// @Param        rfq_id       path  string  true  "RFQ ID"
// @Param        supplier_id  path  string  true  "Supplier ID"
// @Success      200  {object}  utils.Response
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/quote_request/{rfq_id}/{supplier_id} [delete]
func DeleteQuoteRequestHandler(db *sql.DB, gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, _, ok := sessionUser(c, db); !ok {
			return
		}
		rfqID := c.Param("rfq_id")
		supplierID := c.Param("supplier_id")

		result := gdb.Where("rfq_id = ? AND supplier_id = ?", rfqID, supplierID).Delete(&models.SupplierQuoteRequest{})
		if result.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete quote request", "details": result.Error.Error()})
			return
		}
		if result.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Quote request not found"})
			return
		}
		if _, err := db.Exec(`DELETE FROM rfq_suppliers WHERE rfq_id = $1 AND supplier_id = $2`, rfqID, supplierID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove supplier", "details": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Quote request deleted"})
	}
}

// DownloadQuoteRequestExcelHandler godoc
// @Summary      Download the quote request workbook
// @Description  Generates a fresh workbook for the supplier. Each download embeds a new verification token, invalidating previously downloaded copies.
// @Tags         quote-request
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        rfq_id       path  string  true  "RFQ ID"
// @Param        supplier_id  path  string  true  "Supplier ID"
// @Success      200  {file}    file  "Workbook"
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/quote_request_excel/{rfq_id}/{supplier_id} [get]
func DownloadQuoteRequestExcelHandler(db *sql.DB, gdb *gorm.DB, store services.TokenStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		rfqID := c.Param("rfq_id")
		supplierID := c.Param("supplier_id")

		sqr, err := loadQuoteRequest(gdb, rfqID, supplierID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Quote request not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error querying quote request", "details": err.Error()})
			return
		}
		if sqr.Status != "draft" {
			c.JSON(http.StatusConflict, gin.H{"error": "Quote request is already submitted"})
			return
		}

		rfq, err := fetchRFQ(db, rfqID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error querying RFQ", "details": err.Error()})
			return
		}
		supplier, err := fetchRFQSupplier(db, rfqID, supplierID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Supplier not invited to this RFQ"})
			return
		}

		rc := &services.RecipientContext{
			RFQID:        rfqID,
			RFQTitle:     rfq.Title,
			DueDate:      rfq.DueDate,
			SupplierID:   supplierID,
			SupplierName: supplier.Name,
			ContactEmail: supplier.Email,
		}
		data, fileName, err := services.GenerateWorkbook(sqr.Sections, rc, store)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate workbook", "details": err.Error()})
			return
		}

		c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
		c.Header("Content-Length", strconv.Itoa(len(data)))
		c.Data(http.StatusOK, xlsxContentType, data)
	}
}

// UploadQuoteRequestExcelHandler godoc
// @Summary      Upload a filled quote request workbook
// @Description  Verifies the workbook token and merges supplier-editable values back into the stored quote request
// @Tags         quote-request
// @Accept       multipart/form-data
// @Produce      json
// @Param        rfq_id       path      string  true  "RFQ ID"
// @Param        supplier_id  path      string  true  "Supplier ID"
// @Param        file         formData  file    true  "Filled workbook"
// @Success      200  {object}  models.QuoteUploadResponse
// @Failure      400  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse
// @Router       /api/quote_request_upload/{rfq_id}/{supplier_id} [post]
func UploadQuoteRequestExcelHandler(db *sql.DB, gdb *gorm.DB, store services.TokenStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		rfqID := c.Param("rfq_id")
		supplierID := c.Param("supplier_id")

		sqr, err := loadQuoteRequest(gdb, rfqID, supplierID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Quote request not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error querying quote request", "details": err.Error()})
			return
		}
		if sqr.Status != "draft" {
			c.JSON(http.StatusConflict, gin.H{"error": "Quote request is already submitted"})
			return
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing workbook file", "details": err.Error()})
			return
		}
		if fileHeader.Size > maxUploadSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Workbook exceeds the size limit"})
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot open uploaded file", "details": err.Error()})
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot read uploaded file", "details": err.Error()})
			return
		}

		storedToken, err := store.GetToken(rfqID, supplierID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read verification token", "details": err.Error()})
			return
		}

		result, err := services.ReconcileWorkbook(data, sqr.Sections, storedToken)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrTokenMismatch):
				c.JSON(http.StatusConflict, gin.H{"error": "This workbook is no longer valid. Please download a fresh copy and fill it again."})
			case errors.Is(err, services.ErrTokenMissing):
				c.JSON(http.StatusBadRequest, gin.H{"error": "The workbook is missing its verification details. Please upload the file generated for you."})
			default:
				c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read the workbook", "details": err.Error()})
			}
			return
		}

		sqr.Sections = result.Sections
		sqr.LastUpdated = time.Now()
		if err := gdb.Save(sqr).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save quote request", "details": err.Error()})
			return
		}

		if _, err := db.Exec(`UPDATE rfq_suppliers SET status = 'responded', responded_at = NOW() WHERE rfq_id = $1 AND supplier_id = $2 AND status = 'invited'`, rfqID, supplierID); err != nil {
			log.Printf("Failed to mark supplier %s as responded: %v", supplierID, err)
		}

		c.JSON(http.StatusOK, models.QuoteUploadResponse{
			RFQID:           rfqID,
			SupplierID:      supplierID,
			SkippedSections: result.SkippedSections,
			Warnings:        result.Warnings,
			Message:         "Quote response saved",
		})
	}
}

// SubmitQuoteRequestHandler godoc
// @Summary      Submit a quote request
// @Description  Freezes the draft, stamps the submission time and notifies the buyer
// @Tags         quote-request
// @Produce      json
// @Param        rfq_id       path  string  true  "RFQ ID"
// @Param        supplier_id  path  string  true  "Supplier ID"
// @Success      200  {object}  models.SupplierQuoteRequest
// @Failure      404  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse
// @Router       /api/quote_request_submit/{rfq_id}/{supplier_id} [post]
func SubmitQuoteRequestHandler(db *sql.DB, gdb *gorm.DB, emailService *services.EmailService, push *services.PushService) gin.HandlerFunc {
	return func(c *gin.Context) {
		rfqID := c.Param("rfq_id")
		supplierID := c.Param("supplier_id")

		sqr, err := loadQuoteRequest(gdb, rfqID, supplierID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Quote request not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error querying quote request", "details": err.Error()})
			return
		}
		if sqr.Status != "draft" {
			c.JSON(http.StatusConflict, gin.H{"error": "Quote request is already submitted"})
			return
		}

		total, currency := quoteSummaryTotals(sqr.Sections)
		if total == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Total Quote Value must be filled in before submitting"})
			return
		}

		now := time.Now()
		sqr.Status = "submitted"
		sqr.TotalQuoteValue = total
		if currency != "" {
			sqr.Currency = currency
		}
		sqr.SubmissionDate = &now
		sqr.LastUpdated = now
		if err := gdb.Save(sqr).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit quote request", "details": err.Error()})
			return
		}

		if _, err := db.Exec(`UPDATE rfq_suppliers SET status = 'responded', responded_at = $1 WHERE rfq_id = $2 AND supplier_id = $3`, now, rfqID, supplierID); err != nil {
			log.Printf("Failed to update supplier status: %v", err)
		}

		rfq, err := fetchRFQ(db, rfqID)
		if err != nil {
			log.Printf("Failed to load RFQ %s for notifications: %v", rfqID, err)
		}
		supplier, supErr := fetchRFQSupplier(db, rfqID, supplierID)

		if rfq != nil && supErr == nil {
			if err := emailService.SendSubmissionReceipt(*supplier, *rfq); err != nil {
				log.Printf("Failed to send submission receipt: %v", err)
			}
			if push != nil {
				if err := push.NotifyQuoteSubmitted(c.Request.Context(), *rfq, *supplier); err != nil {
					log.Printf("Failed to push submission notification: %v", err)
				}
			}
			if err := SaveActivityLog(db, models.ActivityLog{
				CreatedAt:    now,
				UserName:     supplier.Name,
				EventContext: "QuoteRequest",
				EventName:    "Submit",
				Description:  "Supplier " + supplier.Name + " submitted a quote for " + rfqID,
				RFQID:        rfqID,
			}); err != nil {
				log.Printf("Failed to save activity log: %v", err)
			}
		}

		c.JSON(http.StatusOK, sqr)
	}
}

// quoteSummaryTotals pulls the total value and currency out of the Quote
// Summary section of a supplier document.
func quoteSummaryTotals(sections []models.Section) (*float64, string) {
	for _, sec := range sections {
		if sec.ID != "sec-quote-summary" && sec.Title != "Quote Summary" {
			continue
		}
		var total *float64
		var currency string
		for _, f := range sec.Fields {
			switch f.ID {
			case "total_quote_value":
				if s, ok := f.Value.(string); ok {
					if v, err := strconv.ParseFloat(s, 64); err == nil {
						total = &v
					}
				} else if v, ok := f.Value.(float64); ok {
					total = &v
				}
			case "currency":
				if s, ok := f.Value.(string); ok {
					currency = s
				}
			}
		}
		return total, currency
	}
	return nil, ""
}
