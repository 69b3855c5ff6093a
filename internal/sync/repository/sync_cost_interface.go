package repository

import syncdomain "sift-backend/internal/sync/domain"

// SyncCostRepository defines the interface for per-run cost records
type SyncCostRepository interface {
	// Record the token spend of one sync run
	Create(cost *syncdomain.SyncCost) error
	// Sum the dollar cost of all runs for a user
	TotalForUser(userID string) (float64, error)
}
