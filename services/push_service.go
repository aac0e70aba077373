package services

import (
	"bytes"
	"context"
	"crypto/rsa"
	"crypto/x509"
	"database/sql"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"backend/models"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/jwt"
)

// PushService sends buyer-facing notifications over Firebase Cloud
// Messaging (HTTP v1). Quote submissions are the main trigger: the buyer
// who created the RFQ gets a push the moment a supplier submits.
type PushService struct {
	projectID   string
	credentials *jwt.Config
	db          *sql.DB
	httpClient  *http.Client
	tokenSource oauth2.TokenSource
}

// serviceAccountCredentials mirrors the Firebase service account JSON.
type serviceAccountCredentials struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	ClientID     string `json:"client_id"`
	TokenURI     string `json:"token_uri"`
}

// NewPushService initializes the service from a Firebase service account
// JSON file.
func NewPushService(credentialsPath string, db *sql.DB) (*PushService, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("credentials path is required")
	}
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("error reading credentials file: %v", err)
	}

	var creds serviceAccountCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("error parsing credentials: %v", err)
	}
	if _, err := parsePrivateKey(creds.PrivateKey); err != nil {
		return nil, fmt.Errorf("error parsing private key: %v", err)
	}

	// jwt.Config wants the key as PEM bytes with real newlines
	privateKey := []byte(strings.ReplaceAll(creds.PrivateKey, "\\n", "\n"))
	config := &jwt.Config{
		Email:      creds.ClientEmail,
		PrivateKey: privateKey,
		Scopes:     []string{"https://www.googleapis.com/auth/firebase.messaging"},
		TokenURL:   creds.TokenURI,
	}

	return &PushService{
		projectID:   creds.ProjectID,
		credentials: config,
		db:          db,
		httpClient:  &http.Client{},
		tokenSource: config.TokenSource(context.Background()),
	}, nil
}

func parsePrivateKey(keyData string) (*rsa.PrivateKey, error) {
	keyData = strings.ReplaceAll(keyData, "\\n", "\n")
	block, _ := pem.Decode([]byte(strings.TrimSpace(keyData)))
	if block == nil {
		return nil, fmt.Errorf("failed to parse PEM block")
	}
	privateKey, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		rsaKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %v", err)
		}
		return rsaKey, nil
	}
	rsaKey, ok := privateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA private key")
	}
	return rsaKey, nil
}

// NotifyQuoteSubmitted pushes a submission alert to the buyer who owns the
// RFQ. Missing buyer tokens are not errors; the submission flow must never
// fail on notification delivery.
func (p *PushService) NotifyQuoteSubmitted(ctx context.Context, rfq models.RFQ, supplier models.RFQSupplier) error {
	title := fmt.Sprintf("Quote received for %s", rfq.RFQID)
	body := fmt.Sprintf("%s submitted a quote for %q", supplier.Name, rfq.Title)
	data := map[string]string{
		"rfq_id":      rfq.RFQID,
		"supplier_id": supplier.SupplierID,
		"action":      fmt.Sprintf("/rfqs/%s/comparison", rfq.RFQID),
	}
	return p.notifyUserByEmail(ctx, rfq.CreatedBy, title, body, data)
}

// notifyUserByEmail resolves a user's FCM token by email and sends to it.
func (p *PushService) notifyUserByEmail(ctx context.Context, email, title, body string, data map[string]string) error {
	var fcmToken string
	err := p.db.QueryRow(`SELECT fcm_token FROM users WHERE email = $1 AND fcm_token IS NOT NULL AND fcm_token != ''`, email).Scan(&fcmToken)
	if err != nil {
		if err == sql.ErrNoRows {
			log.Printf("No FCM token registered for %s; skipping push", email)
			return nil
		}
		return fmt.Errorf("error fetching FCM token for %s: %v", email, err)
	}
	return p.SendNotification(ctx, fcmToken, title, body, data)
}

// SendNotification sends a push to a single FCM token using the HTTP v1 API.
func (p *PushService) SendNotification(ctx context.Context, token, title, body string, data map[string]string) error {
	if token == "" {
		return fmt.Errorf("FCM token cannot be empty")
	}

	oauthToken, err := p.tokenSource.Token()
	if err != nil {
		return fmt.Errorf("error getting OAuth token: %v", err)
	}

	if data == nil {
		data = map[string]string{}
	}
	message := map[string]interface{}{
		"message": map[string]interface{}{
			"token": token,
			"notification": map[string]string{
				"title": title,
				"body":  body,
			},
			"data": data,
			"webpush": map[string]interface{}{
				"fcm_options": map[string]interface{}{
					"link": data["action"],
				},
			},
		},
	}

	endpoint := fmt.Sprintf("https://fcm.googleapis.com/v1/projects/%s/messages:send", p.projectID)
	return p.sendHTTPv1Request(ctx, endpoint, oauthToken.AccessToken, message)
}

// SaveFCMToken saves or updates the FCM token for a user.
func (p *PushService) SaveFCMToken(userID int, token string) error {
	_, err := p.db.Exec(`UPDATE users SET fcm_token = $1 WHERE id = $2`, token, userID)
	if err != nil {
		return fmt.Errorf("error saving FCM token: %v", err)
	}
	return nil
}

// RemoveFCMToken removes the FCM token for a user.
func (p *PushService) RemoveFCMToken(userID int) error {
	_, err := p.db.Exec(`UPDATE users SET fcm_token = NULL WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("error removing FCM token: %v", err)
	}
	return nil
}

func (p *PushService) sendHTTPv1Request(ctx context.Context, endpoint, accessToken string, payload map[string]interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error marshaling payload: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("error creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errorResp map[string]interface{}
		if err := json.NewDecoder(resp.Body).Decode(&errorResp); err == nil {
			return fmt.Errorf("FCM API error (status %d): %v", resp.StatusCode, errorResp)
		}
		return fmt.Errorf("FCM API error: status code %d", resp.StatusCode)
	}

	var fcmResponse struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&fcmResponse); err == nil {
		log.Printf("FCM notification sent. Response name: %s", fcmResponse.Name)
	}
	return nil
}
