package handlers

import (
	"database/sql"
	"math"
	"net/http"
	"strconv"

	"backend/models"

	"github.com/gin-gonic/gin"
)

// Helper to fetch session details
func GetSessionDetails(db *sql.DB, sessionID string) (models.Session, string, error) {
	var session models.Session
	var userName string

	query := `
        SELECT s.user_id, CONCAT(u.first_name, ' ', u.last_name) AS user_name, s.host_name, s.ip_address
        FROM session s
        JOIN users u ON s.user_id = u.id
        WHERE s.session_id = $1 AND s.expires_at > NOW()`

	err := db.QueryRow(query, sessionID).Scan(
		&session.UserID,
		&userName,
		&session.HostName,
		&session.IPAddress,
	)
	if err != nil {
		return models.Session{}, "", err
	}
	session.SessionID = sessionID
	return session, userName, nil
}

// Helper to save activity logs
func SaveActivityLog(db *sql.DB, log models.ActivityLog) error {
	query := `
    INSERT INTO activity_logs (
        created_at, user_name, host_name, event_context, ip_address,
        description, event_name, affected_user_name, affected_user_email, rfq_id
    ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := db.Exec(query,
		log.CreatedAt, log.UserName, log.HostName, log.EventContext, log.IPAddress,
		log.Description, log.EventName, log.AffectedUserName, log.AffectedUserEmail, log.RFQID,
	)
	return err
}

// GetActivityLogsHandler godoc
// @Summary      Get activity logs
// @Tags         activity-logs
// @Param        page    query  int     false  "Page"
// @Param        limit   query  int     false  "Limit"
// @Param        rfq_id  query  string  false  "Filter by RFQ"
// @Success      200     {object}  object
// @Router       /api/logs [get]
func GetActivityLogsHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		pageStr := c.DefaultQuery("page", "1")
		limitStr := c.DefaultQuery("limit", "10")
		rfqID := c.Query("rfq_id")

		page, err := strconv.Atoi(pageStr)
		if err != nil || page < 1 {
			page = 1
		}
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			limit = 10
		}
		offset := (page - 1) * limit

		countQuery := `SELECT COUNT(*) FROM activity_logs WHERE ($1 = '' OR rfq_id = $1)`
		var totalRecords int
		if err := db.QueryRow(countQuery, rfqID).Scan(&totalRecords); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error counting logs"})
			return
		}

		totalPages := int(math.Ceil(float64(totalRecords) / float64(limit)))
		hasNext := page < totalPages
		hasPrev := page > 1

		query := `
			SELECT id, created_at, user_name, host_name, event_context, ip_address,
				   description, event_name, affected_user_name, affected_user_email, rfq_id
			FROM activity_logs
			WHERE ($1 = '' OR rfq_id = $1)
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3
		`
		rows, err := db.Query(query, rfqID, limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error querying logs"})
			return
		}
		defer rows.Close()

		var logs []models.ActivityLog
		for rows.Next() {
			var (
				log               models.ActivityLog
				userName          sql.NullString
				hostName          sql.NullString
				eventContext      sql.NullString
				ipAddress         sql.NullString
				description       sql.NullString
				eventName         sql.NullString
				affectedUserName  sql.NullString
				affectedUserEmail sql.NullString
				logRFQID          sql.NullString
			)

			err := rows.Scan(
				&log.ID, &log.CreatedAt, &userName, &hostName, &eventContext, &ipAddress,
				&description, &eventName, &affectedUserName, &affectedUserEmail, &logRFQID,
			)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Error scanning logs"})
				return
			}

			log.UserName = getStringOrEmpty(userName)
			log.HostName = getStringOrEmpty(hostName)
			log.EventContext = getStringOrEmpty(eventContext)
			log.IPAddress = getStringOrEmpty(ipAddress)
			log.Description = getStringOrEmpty(description)
			log.EventName = getStringOrEmpty(eventName)
			log.AffectedUserName = getStringOrEmpty(affectedUserName)
			log.AffectedUserEmail = getStringOrEmpty(affectedUserEmail)
			log.RFQID = getStringOrEmpty(logRFQID)

			logs = append(logs, log)
		}

		c.JSON(http.StatusOK, gin.H{
			"logs": logs,
			"pagination": gin.H{
				"current_page":  page,
				"page_size":     limit,
				"total_records": totalRecords,
				"total_pages":   totalPages,
				"has_next":      hasNext,
				"has_prev":      hasPrev,
			},
		})
	}
}

func getStringOrEmpty(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}
