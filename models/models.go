package models

import (
	"time"

	_ "github.com/lib/pq"
)

type User struct {
	ID          int       `json:"id" example:"1"`
	Email       string    `json:"email" example:"user@example.com"`
	Password    string    `json:"password" example:""`
	FirstName   string    `json:"first_name" example:"John"`
	LastName    string    `json:"last_name" example:"Doe"`
	CreatedAt   time.Time `json:"created_at" example:"2026-01-15T10:30:00Z"`
	UpdatedAt   time.Time `json:"updated_at" example:"2026-01-15T10:30:00Z"`
	LastAccess  time.Time `json:"last_access,omitempty" example:"2026-01-15T10:30:00Z"`
	IsAdmin     bool      `json:"is_admin" example:"false"`
	PhoneNo     string    `json:"phone_no" example:"9876543210"`
	RoleName    string    `json:"role_name" example:"Buyer"`
	Suspended   bool      `json:"suspended" example:"false"`
	FCMToken    string    `json:"fcm_token,omitempty"`
	CompanyName string    `json:"company_name" example:"Blue Invent"`
}

// Session represents the session table.
type Session struct {
	SessionID string    `json:"session_id" example:"f9c1..."`
	UserID    int       `json:"user_id" example:"1"`
	HostName  string    `json:"host_name" example:"workstation-12"`
	IPAddress string    `json:"ip_address" example:"10.0.0.12"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ActivityLog represents the activity_logs table.
type ActivityLog struct {
	ID                int       `json:"id" example:"1"`
	EventContext      string    `json:"event_context" example:"QuoteRequest"`
	EventName         string    `json:"event_name" example:"Submit"`
	Description       string    `json:"description" example:"Supplier submitted quote"`
	UserName          string    `json:"user_name" example:"Jane Smith"`
	HostName          string    `json:"host_name"`
	IPAddress         string    `json:"ip_address"`
	CreatedAt         time.Time `json:"created_at"`
	RFQID             string    `json:"rfq_id" example:"RFQ-AB12345"`
	AffectedUserName  string    `json:"affected_user_name,omitempty"`
	AffectedUserEmail string    `json:"affected_user_email,omitempty"`
}
