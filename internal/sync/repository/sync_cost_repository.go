package repository

import (
	syncdomain "sift-backend/internal/sync/domain"

	"gorm.io/gorm"
)

// syncCostRepository implements SyncCostRepository interface
type syncCostRepository struct {
	db *gorm.DB
}

// NewSyncCostRepository creates a new instance of syncCostRepository
func NewSyncCostRepository(db *gorm.DB) SyncCostRepository {
	return &syncCostRepository{
		db: db,
	}
}

// Create records the token spend of one sync run
func (r *syncCostRepository) Create(cost *syncdomain.SyncCost) error {
	return r.db.Create(cost).Error
}

// TotalForUser sums the dollar cost of all runs for a user
func (r *syncCostRepository) TotalForUser(userID string) (float64, error) {
	var total float64
	err := r.db.Model(&syncdomain.SyncCost{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(cost_usd), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
