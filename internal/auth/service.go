package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"sessionhistory/internal/observability"
	"sessionhistory/internal/redis"
)

const redisTokenPrefix = "auth:token:"

var (
	ErrTokenRequired = errors.New("token required")
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenExpired  = errors.New("token expired")
)

// Authenticator resolves a bearer token to the id of the user it belongs to.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// Revoker is implemented by authenticators that own their tokens and can
// invalidate them on logout.
type Revoker interface {
	RevokeToken(ctx context.Context, authToken string) error
	RevokeUserTokens(ctx context.Context, userID string) error
	TokenTTL() time.Duration
}

// Service issues, validates, and revokes user authentication tokens.
// Validated tokens are cached in redis when a cache is configured.
type Service struct {
	db       *sql.DB
	cache    *redis.Client
	tokenTTL time.Duration
}

var (
	_ Authenticator = (*Service)(nil)
	_ Revoker       = (*Service)(nil)
)

// NewService constructs an auth service with the supplied token lifetime.
// cache may be nil.
func NewService(db *sql.DB, cache *redis.Client, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		db:       db,
		cache:    cache,
		tokenTTL: ttl,
	}
}

// IssueToken mints a new random token for the user and persists it.
func (s *Service) IssueToken(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", errors.New("invalid user id")
	}
	now := time.Now().UTC()
	expiresAt := now.Add(s.tokenTTL)
	for i := 0; i < 5; i++ {
		token, err := generateToken()
		if err != nil {
			return "", err
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO user_tokens (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
			token, userID, now, expiresAt,
		)
		if err == nil {
			s.cacheToken(ctx, token, userID, s.tokenTTL)
			return token, nil
		}
	}
	return "", errors.New("could not issue token")
}

// Authenticate implements Authenticator.
func (s *Service) Authenticate(ctx context.Context, token string) (string, error) {
	return s.ValidateToken(ctx, token)
}

// ValidateToken verifies the token exists and has not expired, returning the user id.
func (s *Service) ValidateToken(ctx context.Context, authToken string) (string, error) {
	if authToken == "" {
		return "", ErrTokenRequired
	}
	if s.cache != nil {
		userID, err := s.cache.Get(ctx, redisTokenPrefix+authToken)
		if err == nil && userID != "" {
			return userID, nil
		}
		if err != nil && !errors.Is(err, redis.ErrCacheMiss) {
			observability.LoggerFromContext(ctx).Warn("token cache lookup failed", "error", err)
		}
	}

	var userID string
	var expires time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, expires_at FROM user_tokens WHERE token = ?`, authToken,
	).Scan(&userID, &expires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrInvalidToken
		}
		return "", fmt.Errorf("lookup token: %w", err)
	}
	remaining := time.Until(expires)
	if remaining <= 0 {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM user_tokens WHERE token = ?`, authToken)
		return "", ErrTokenExpired
	}
	s.cacheToken(ctx, authToken, userID, remaining)
	return userID, nil
}

// RevokeToken deletes a single token.
func (s *Service) RevokeToken(ctx context.Context, authToken string) error {
	if authToken == "" {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_tokens WHERE token = ?`, authToken); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	s.evict(ctx, authToken)
	return nil
}

// RevokeUserTokens removes all tokens belonging to the user.
func (s *Service) RevokeUserTokens(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	if s.cache != nil {
		rows, err := s.db.QueryContext(ctx, `SELECT token FROM user_tokens WHERE user_id = ?`, userID)
		if err != nil {
			return fmt.Errorf("list user tokens: %w", err)
		}
		var tokens []string
		for rows.Next() {
			var token string
			if err := rows.Scan(&token); err != nil {
				rows.Close()
				return fmt.Errorf("scan user token: %w", err)
			}
			tokens = append(tokens, token)
		}
		rows.Close()
		s.evict(ctx, tokens...)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_tokens WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("revoke user tokens: %w", err)
	}
	return nil
}

// TokenTTL reports the configured token lifetime.
func (s *Service) TokenTTL() time.Duration {
	return s.tokenTTL
}

func (s *Service) cacheToken(ctx context.Context, token, userID string, ttl time.Duration) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, redisTokenPrefix+token, userID, ttl); err != nil {
		observability.LoggerFromContext(ctx).Warn("token cache write failed", "error", err)
	}
}

func (s *Service) evict(ctx context.Context, tokens ...string) {
	if s.cache == nil || len(tokens) == 0 {
		return
	}
	keys := make([]string, 0, len(tokens))
	for _, token := range tokens {
		keys = append(keys, redisTokenPrefix+token)
	}
	if err := s.cache.Del(ctx, keys...); err != nil {
		observability.LoggerFromContext(ctx).Warn("token cache eviction failed", "error", err)
	}
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// NewCSRFToken returns a random token used for CSRF protection.
func NewCSRFToken() (string, error) {
	return generateToken()
}
