package repository

import (
	syncdomain "sift-backend/internal/sync/domain"

	"gorm.io/gorm"
)

// processedEmailRepository implements ProcessedEmailRepository interface
type processedEmailRepository struct {
	db *gorm.DB
}

// NewProcessedEmailRepository creates a new instance of processedEmailRepository
func NewProcessedEmailRepository(db *gorm.DB) ProcessedEmailRepository {
	return &processedEmailRepository{
		db: db,
	}
}

// IsProcessed checks whether a sync run already handled this email for the user
func (r *processedEmailRepository) IsProcessed(userID, emailID string) (bool, error) {
	var record syncdomain.ProcessedEmail
	err := r.db.Where("user_id = ? AND email_id = ?", userID, emailID).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Create records that a sync run finished with this email
func (r *processedEmailRepository) Create(record *syncdomain.ProcessedEmail) error {
	return r.db.Create(record).Error
}

// ListByUser returns recent processed records for a user, newest first
func (r *processedEmailRepository) ListByUser(userID string, limit int) ([]*syncdomain.ProcessedEmail, error) {
	var records []*syncdomain.ProcessedEmail
	query := r.db.Where("user_id = ?", userID).Order("processed_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
