package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"backend/models"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

var db *sql.DB

func InitDB() *sql.DB {
	if err := godotenv.Load(); err != nil {
		log.Fatal("Error loading .env file")
	}
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	dbname := os.Getenv("DB_NAME")
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")

	connStr := fmt.Sprintf("user=%s password=%s dbname=%s host=%s port=%s sslmode=disable",
		user, password, dbname, host, port)

	var err error
	db, err = sql.Open("postgres", connStr)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	return db
}

func GetDB() *sql.DB {
	return db
}

// SaveSession inserts a new session. Only one session per user is kept;
// logging in from a second device replaces the first.
func SaveSession(db *sql.DB, session *models.Session) error {
	if _, err := db.Exec(`DELETE FROM session WHERE user_id = $1`, session.UserID); err != nil {
		return fmt.Errorf("failed to delete existing user sessions: %v", err)
	}
	insertQuery := `INSERT INTO session (user_id, session_id, host_name, ip_address, created_at, expires_at)
                    VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := db.Exec(insertQuery, session.UserID, session.SessionID, session.HostName, session.IPAddress, session.CreatedAt, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to insert new session: %v", err)
	}
	return nil
}

func DeleteSession(db *sql.DB, userID int) error {
	_, err := db.Exec(`DELETE FROM session WHERE user_id = $1`, userID)
	return err
}

func CleanupExpiredSessions(db *sql.DB) error {
	threshold := time.Now().Add(-24 * time.Hour)
	_, err := db.Exec(`DELETE FROM session WHERE expires_at < $1`, threshold)
	return err
}

func GetUserByEmail(db *sql.DB, email string) (*models.User, error) {
	var user models.User
	query := `SELECT id, email, password, first_name, last_name, suspended FROM users WHERE LOWER(email) = LOWER($1)`

	err := db.QueryRow(query, email).Scan(&user.ID, &user.Email, &user.Password, &user.FirstName, &user.LastName, &user.Suspended)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user with email %s not found", email)
		}
		return nil, fmt.Errorf("failed to query user: %v", err)
	}
	return &user, nil
}

// GetUserBySessionID retrieves the user owning an unexpired session.
func GetUserBySessionID(db *sql.DB, sessionID string) (*models.User, error) {
	query := `
		SELECT u.id, u.email, u.first_name, u.last_name,
		       u.created_at, u.updated_at, u.is_admin, u.phone_no,
		       COALESCE(r.role_name, ''), u.suspended, COALESCE(u.company_name, '')
		FROM session s
		JOIN users u ON s.user_id = u.id
		LEFT JOIN roles r ON u.role_id = r.role_id
		WHERE s.session_id = $1 AND s.expires_at > NOW()
	`

	var user models.User
	err := db.QueryRow(query, sessionID).Scan(
		&user.ID, &user.Email, &user.FirstName, &user.LastName,
		&user.CreatedAt, &user.UpdatedAt, &user.IsAdmin, &user.PhoneNo,
		&user.RoleName, &user.Suspended, &user.CompanyName,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("user not found for the given session ID")
		}
		return nil, err
	}
	if user.Suspended {
		return nil, errors.New("account suspended")
	}
	return &user, nil
}

// SQLTokenStore persists workbook verification tokens on the rfq_suppliers
// row. A per-(rfq, supplier) mutex serializes save against read so a
// regeneration cannot interleave with an upload's compare.
type SQLTokenStore struct {
	db    *sql.DB
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSQLTokenStore(db *sql.DB) *SQLTokenStore {
	return &SQLTokenStore{db: db, locks: make(map[string]*sync.Mutex)}
}

func (s *SQLTokenStore) pairLock(rfqID, supplierID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := rfqID + "|" + supplierID
	if l, ok := s.locks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.locks[key] = l
	return l
}

// SaveToken replaces the stored token for the pair, invalidating every
// previously generated workbook.
func (s *SQLTokenStore) SaveToken(rfqID, supplierID, token string) error {
	l := s.pairLock(rfqID, supplierID)
	l.Lock()
	defer l.Unlock()

	result, err := s.db.Exec(
		`UPDATE rfq_suppliers SET verification_token = $1 WHERE rfq_id = $2 AND supplier_id = $3`,
		token, rfqID, supplierID,
	)
	if err != nil {
		return fmt.Errorf("failed to save verification token: %v", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %v", err)
	}
	if rows == 0 {
		return fmt.Errorf("supplier %s is not invited to RFQ %s", supplierID, rfqID)
	}
	return nil
}

// GetToken returns the stored token for the pair, "" when none was issued.
func (s *SQLTokenStore) GetToken(rfqID, supplierID string) (string, error) {
	l := s.pairLock(rfqID, supplierID)
	l.Lock()
	defer l.Unlock()

	var token sql.NullString
	err := s.db.QueryRow(
		`SELECT verification_token FROM rfq_suppliers WHERE rfq_id = $1 AND supplier_id = $2`,
		rfqID, supplierID,
	).Scan(&token)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("supplier %s is not invited to RFQ %s", supplierID, rfqID)
		}
		return "", fmt.Errorf("failed to read verification token: %v", err)
	}
	return token.String, nil
}
