package handlers

import (
	"database/sql"
	"net/http"

	"backend/models"
	"backend/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// loadSubmittedQuotes returns every submitted quote request for an RFQ and
// a supplier id to display name map.
func loadSubmittedQuotes(db *sql.DB, gdb *gorm.DB, rfqID string) ([]models.SupplierQuoteRequest, map[string]string, error) {
	var requests []models.SupplierQuoteRequest
	err := gdb.Where("rfq_id = ? AND status = ?", rfqID, "submitted").Find(&requests).Error
	if err != nil {
		return nil, nil, err
	}

	suppliers, err := fetchRFQSuppliers(db, rfqID)
	if err != nil {
		return nil, nil, err
	}
	names := make(map[string]string, len(suppliers))
	for _, s := range suppliers {
		names[s.SupplierID] = s.Name
	}
	return requests, names, nil
}

// GetQuoteComparisonHandler godoc
// @Summary      Compare submitted quotes
// @Description  Returns the lowest offer per line item across all submitted supplier quotes
// @Tags         comparison
// @Produce      json
// @Param        rfq_id  path  string  true  "RFQ ID"
// @Success      200  {object}  models.ComparisonResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/quote_comparison/{rfq_id} [get]
func GetQuoteComparisonHandler(db *sql.DB, gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, _, ok := sessionUser(c, db); !ok {
			return
		}
		rfqID := c.Param("rfq_id")

		if _, err := fetchRFQ(db, rfqID); err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": "RFQ not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error querying RFQ", "details": err.Error()})
			return
		}

		requests, names, err := loadSubmittedQuotes(db, gdb, rfqID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error loading submitted quotes", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, models.ComparisonResponse{
			RFQID:     rfqID,
			Suppliers: len(requests),
			Baselines: services.LowestOffers(requests, names),
		})
	}
}

// GetQuoteComparisonPDFHandler godoc
// @Summary      Download the quote comparison report as PDF
// @Tags         comparison
// @Produce      application/pdf
// @Param        rfq_id  path  string  true  "RFQ ID"
// @Success      200  {file}    file  "PDF report"
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/quote_comparison_pdf/{rfq_id} [get]
func GetQuoteComparisonPDFHandler(db *sql.DB, gdb *gorm.DB) gin.HandlerFunc {
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

		requests, names, err := loadSubmittedQuotes(db, gdb, rfqID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error loading submitted quotes", "details": err.Error()})
			return
		}
		baselines := services.LowestOffers(requests, names)

		c.Header("Content-Disposition", `attachment; filename="quote_comparison_`+rfqID+`.pdf"`)
		c.Header("Content-Type", "application/pdf")
		if err := services.WriteComparisonPDF(c.Writer, *rfq, baselines, len(requests)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate PDF", "details": err.Error()})
			return
		}
	}
}
