package repository

import (
	"database/sql"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

func GenerateRandomCode() string {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	letters := "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	prefix := string(letters[rng.Intn(len(letters))]) + string(letters[rng.Intn(len(letters))])
	number := rng.Intn(90000) + 10000

	return fmt.Sprintf("%s%d", prefix, number)
}

// GenerateRFQID produces a new RFQ identifier like "RFQ-AB12345", retrying
// until it does not collide with an existing row.
func GenerateRFQID(db *sql.DB) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		id := "RFQ-" + GenerateRandomCode()
		var exists bool
		err := db.QueryRow(`SELECT EXISTS(SELECT 1 FROM rfqs WHERE rfq_id = $1)`, id).Scan(&exists)
		if err != nil {
			return "", fmt.Errorf("failed to check RFQ ID uniqueness: %v", err)
		}
		if !exists {
			return id, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique RFQ ID")
}

// GenerateSupplierID produces a new supplier identifier like "SUP-CD67890".
func GenerateSupplierID(db *sql.DB) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		id := "SUP-" + GenerateRandomCode()
		var exists bool
		err := db.QueryRow(`SELECT EXISTS(SELECT 1 FROM rfq_suppliers WHERE supplier_id = $1)`, id).Scan(&exists)
		if err != nil {
			return "", fmt.Errorf("failed to check supplier ID uniqueness: %v", err)
		}
		if !exists {
			return id, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique supplier ID")
}

// NextRevision advances a revision code like "RV-01" -> "RV-02".
func NextRevision(previousVersion string) string {
	if previousVersion == "" {
		return "RV-01"
	}
	versionNumberStr := strings.TrimPrefix(previousVersion, "RV-")
	var versionNumber int
	if _, err := fmt.Sscanf(versionNumberStr, "%d", &versionNumber); err != nil {
		return "RV-01"
	}
	return fmt.Sprintf("RV-%02d", versionNumber+1)
}
