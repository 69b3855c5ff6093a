package domain

import "golang.org/x/oauth2"

// TokenUpdateFunc persists a refreshed OAuth token for the current user.
type TokenUpdateFunc func(token *oauth2.Token) error
