package repository

import syncdomain "sift-backend/internal/sync/domain"

// ProcessedEmailRepository defines the interface for the processed-message ledger
type ProcessedEmailRepository interface {
	// Check if a sync run already handled this email for the user
	IsProcessed(userID, emailID string) (bool, error)
	// Record that a sync run finished with this email
	Create(record *syncdomain.ProcessedEmail) error
	// List recent records for a user, newest first
	ListByUser(userID string, limit int) ([]*syncdomain.ProcessedEmail, error)
}
