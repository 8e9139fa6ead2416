package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/supabase-community/supabase-go"

	"sessionhistory/internal/config"
)

// SupabaseAuthenticator validates Supabase access tokens against GoTrue.
type SupabaseAuthenticator struct {
	client *supabase.Client
}

var _ Authenticator = (*SupabaseAuthenticator)(nil)

func NewSupabaseAuthenticator(cfg config.SupabaseConfig) (*SupabaseAuthenticator, error) {
	if cfg.URL == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("supabase url and api key are required")
	}
	client, err := supabase.NewClient(cfg.URL, cfg.APIKey, &supabase.ClientOptions{Schema: cfg.Schema})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &SupabaseAuthenticator{client: client}, nil
}

// Authenticate asks GoTrue for the user behind token. Any rejection is
// reported as ErrInvalidToken.
func (a *SupabaseAuthenticator) Authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrTokenRequired
	}
	user, err := a.client.Auth.WithToken(token).GetUser()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if user == nil || user.ID == uuid.Nil {
		return "", ErrInvalidToken
	}
	return user.ID.String(), nil
}
