package models

// ErrorResponse is the generic error payload returned by all handlers.
type ErrorResponse struct {
	Error   string `json:"error" example:"Invalid session"`
	Details string `json:"details,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required" example:"user@example.com"`
	Password string `json:"password" binding:"required" example:""`
}

type LoginResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	SessionID    string `json:"session_id"`
	User         User   `json:"user"`
}

// QuoteUploadResponse reports the outcome of an Excel upload.
type QuoteUploadResponse struct {
	RFQID           string   `json:"rfq_id"`
	SupplierID      string   `json:"supplier_id"`
	SkippedSections []string `json:"skipped_sections,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
	Message         string   `json:"message" example:"Quote response saved"`
}

// ComparisonResponse wraps the lowest-offer baselines for an RFQ.
type ComparisonResponse struct {
	RFQID     string             `json:"rfq_id"`
	Suppliers int                `json:"suppliers" example:"3"`
	Baselines []LineItemBaseline `json:"baselines"`
}
