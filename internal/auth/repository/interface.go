package repository

import (
	"time"

	authdomain "sift-backend/internal/auth/domain"
)

// UserRepository defines the interface for user persistence
type UserRepository interface {
	Create(user *authdomain.User) error
	FindByEmail(email string) (*authdomain.User, error)
	FindByID(id string) (*authdomain.User, error)
	Update(user *authdomain.User) error

	// Update the stored (encrypted) Google OAuth tokens
	UpdateGoogleTokens(userID, accessToken, refreshToken string) error
	// Record the dedicated calendar created for the user
	SaveCalendarID(userID, calendarID string) error
	// Record when the user's last sync run finished
	StampLastSync(userID string, t time.Time) error

	SaveRefreshToken(token *authdomain.RefreshToken) error
	FindRefreshToken(token string) (*authdomain.RefreshToken, error)
	DeleteRefreshToken(token string) error
	DeleteRefreshTokensByUser(userID string) error
}
