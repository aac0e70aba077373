package handlers

import (
	"bytes"
	"database/sql"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"
)

// addLabel adds text to an image at the specified position
func addLabel(img *image.RGBA, x, y int, label string) {
	col := color.RGBA{0, 0, 0, 255}
	face := inconsolata.Regular8x16

	point := fixed.Point26_6{
		X: fixed.Int26_6(x * 64),
		Y: fixed.Int26_6(y * 64),
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  point,
	}
	d.DrawString(label)
}

// addLabelBold adds bold text for label prefixes
func addLabelBold(img *image.RGBA, x, y int, label string) {
	col := color.RGBA{30, 30, 30, 255}
	face := inconsolata.Bold8x16

	point := fixed.Point26_6{
		X: fixed.Int26_6(x * 64),
		Y: fixed.Int26_6(y * 64),
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  point,
	}
	d.DrawString(label)
}

func truncateLabel(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// SupplierPortalQRHandler godoc
// @Summary      Generate supplier portal QR code
// @Description  Returns a labeled QR image linking a supplier to their quote request portal page
// @Tags         qr
// @Param        rfq_id       path  string  true  "RFQ ID"
// @Param        supplier_id  path  string  true  "Supplier ID"
// @Success      200  {file}    file  "JPEG image"
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/supplier_portal_qr/{rfq_id}/{supplier_id} [get]
func SupplierPortalQRHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		rfqID := c.Param("rfq_id")
		supplierID := c.Param("supplier_id")

		var supplierName, rfqTitle string
		var dueDate time.Time
		err := db.QueryRow(`
			SELECT rs.name, r.title, r.due_date
			FROM rfq_suppliers rs
			JOIN rfqs r ON rs.rfq_id = r.rfq_id
			WHERE rs.rfq_id = $1 AND rs.supplier_id = $2
		`, rfqID, supplierID).Scan(&supplierName, &rfqTitle, &dueDate)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": "Supplier not invited to this RFQ"})
				return
			}
			log.Printf("Error fetching supplier for QR: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch supplier details"})
			return
		}

		portalBase := os.Getenv("SUPPLIER_PORTAL_URL")
		if portalBase == "" {
			portalBase = "https://portal.example.com"
		}
		portalURL := fmt.Sprintf("%s/quote/%s/%s", portalBase, rfqID, supplierID)

		qr, err := qrcode.New(portalURL, qrcode.Medium)
		if err != nil {
			c.String(http.StatusInternalServerError, "QR code generation failed")
			return
		}
		qrImg := qr.Image(512)

		qrSize := qrImg.Bounds().Dy()
		padding := 30
		lineHeight := 28
		textAreaHeight := 4*lineHeight + padding
		totalHeight := qrSize + padding + textAreaHeight

		combinedImg := image.NewRGBA(image.Rect(0, 0, qrSize, totalHeight))
		draw.Draw(combinedImg, combinedImg.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)

		qrRect := image.Rect(0, 0, qrSize, qrSize)
		draw.Draw(combinedImg, qrRect, qrImg, image.Point{}, draw.Src)

		separatorY := qrSize + padding/2
		for x := 0; x < qrSize; x++ {
			combinedImg.Set(x, separatorY, color.RGBA{200, 200, 200, 255})
		}

		startY := qrSize + padding + lineHeight
		xPos := 20

		addLabelBold(combinedImg, xPos, startY, "RFQ:")
		addLabel(combinedImg, xPos+120, startY, rfqID)

		addLabelBold(combinedImg, xPos, startY+lineHeight, "Title:")
		addLabel(combinedImg, xPos+120, startY+lineHeight, truncateLabel(rfqTitle, 30))

		addLabelBold(combinedImg, xPos, startY+2*lineHeight, "Supplier:")
		addLabel(combinedImg, xPos+120, startY+2*lineHeight, truncateLabel(supplierName, 30))

		addLabelBold(combinedImg, xPos, startY+3*lineHeight, "Due Date:")
		addLabel(combinedImg, xPos+120, startY+3*lineHeight, dueDate.Format("2006-01-02"))

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, combinedImg, nil); err != nil {
			c.String(http.StatusInternalServerError, "JPEG encoding failed")
			return
		}

		c.Data(http.StatusOK, "image/jpeg", buf.Bytes())
	}
}
