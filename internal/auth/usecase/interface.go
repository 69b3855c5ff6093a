package usecase

import (
	"context"

	authdomain "sift-backend/internal/auth/domain"
	authdto "sift-backend/internal/auth/dto"
)

// AuthUsecase defines the interface for authentication operations
type AuthUsecase interface {
	// GoogleAuthURL builds the consent-screen URL for the OAuth code flow
	GoogleAuthURL(state string) string
	// GoogleCallback exchanges an authorization code for tokens, creating
	// the user on first sign-in
	GoogleCallback(ctx context.Context, code string) (*authdto.TokenResponse, error)
	RefreshToken(refreshToken string) (*authdto.TokenResponse, error)
	Logout(refreshToken string) error
	ValidateToken(tokenString string) (*authdomain.User, error)
	// ConfigureIMAP stores an IMAP account for mailboxes outside Gmail
	ConfigureIMAP(userID string, req *authdto.IMAPConfigRequest) error
}
