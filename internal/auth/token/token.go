// Package token verifies bearer tokens against the api_tokens table. Raw
// tokens are generated with crypto/rand and only their SHA-256 digest is
// stored, so a token can be shown once and never recovered.
package token

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/rarematch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/postgres"
)

var (
	ErrInvalidToken = fmt.Errorf("%w: invalid token", apperrors.ErrUnauthorized)
	ErrExpiredToken = fmt.Errorf("%w: token expired", apperrors.ErrUnauthorized)
)

// AnonymousUserID identifies requests served while authentication is off.
const AnonymousUserID = "anonymous"

// Principal is the authenticated caller of a request.
type Principal struct {
	TokenID   string     `json:"id"`
	UserID    string     `json:"user_id"`
	Name      string     `json:"name"`
	RateLimit int        `json:"rate_limit"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Anonymous returns the principal used when authentication is disabled.
func Anonymous(rateLimit int) *Principal {
	return &Principal{TokenID: AnonymousUserID, UserID: "", Name: AnonymousUserID, RateLimit: rateLimit, IsActive: true}
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by the auth middleware, or nil.
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}

// Verifier looks up tokens in Postgres.
type Verifier struct {
	db     *postgres.Client
	now    func() time.Time
	logger *slog.Logger
}

func NewVerifier(db *postgres.Client) *Verifier {
	return &Verifier{
		db:     db,
		now:    time.Now,
		logger: slog.Default().With("component", "token-verifier"),
	}
}

// Verify resolves a raw token to its principal. Unknown or revoked tokens
// return ErrInvalidToken and expired ones ErrExpiredToken.
func (v *Verifier) Verify(ctx context.Context, raw string) (*Principal, error) {
	var (
		p         Principal
		expiresAt sql.NullTime
	)
	err := v.db.DB.QueryRowContext(ctx,
		`SELECT id, user_id, name, rate_limit, is_active, created_at, expires_at
		 FROM api_tokens
		 WHERE token_hash = $1 AND is_active = true`,
		Hash(raw),
	).Scan(&p.TokenID, &p.UserID, &p.Name, &p.RateLimit, &p.IsActive, &p.CreatedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("querying api token: %w", err)
	}

	if expiresAt.Valid {
		if expiresAt.Time.Before(v.now()) {
			return nil, ErrExpiredToken
		}
		p.ExpiresAt = &expiresAt.Time
	}
	return &p, nil
}

// Issue creates a token for userID and returns the raw value.
func (v *Verifier) Issue(ctx context.Context, userID, name string, rateLimit int, expiresAt *time.Time) (string, error) {
	raw, err := generate()
	if err != nil {
		return "", err
	}

	var expiry sql.NullTime
	if expiresAt != nil {
		expiry = sql.NullTime{Time: *expiresAt, Valid: true}
	}

	_, err = v.db.DB.ExecContext(ctx,
		`INSERT INTO api_tokens (token_hash, user_id, name, rate_limit, expires_at) VALUES ($1, $2, $3, $4, $5)`,
		Hash(raw), userID, name, rateLimit, expiry,
	)
	if err != nil {
		return "", fmt.Errorf("creating api token: %w", err)
	}

	v.logger.Info("api token issued", "user_id", userID, "name", name, "rate_limit", rateLimit)
	return raw, nil
}

// Revoke deactivates a token.
func (v *Verifier) Revoke(ctx context.Context, raw string) error {
	result, err := v.db.DB.ExecContext(ctx,
		`UPDATE api_tokens SET is_active = false WHERE token_hash = $1`,
		Hash(raw),
	)
	if err != nil {
		return fmt.Errorf("revoking api token: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrInvalidToken
	}

	v.logger.Info("api token revoked")
	return nil
}

// List returns active tokens, newest first. An empty userID lists all users.
func (v *Verifier) List(ctx context.Context, userID string) ([]Principal, error) {
	rows, err := v.db.DB.QueryContext(ctx,
		`SELECT id, user_id, name, rate_limit, is_active, created_at, expires_at
		 FROM api_tokens
		 WHERE is_active = true AND ($1 = '' OR user_id = $1)
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing api tokens: %w", err)
	}
	defer rows.Close()

	tokens := make([]Principal, 0)
	for rows.Next() {
		var (
			p         Principal
			expiresAt sql.NullTime
		)
		if err := rows.Scan(&p.TokenID, &p.UserID, &p.Name, &p.RateLimit, &p.IsActive, &p.CreatedAt, &expiresAt); err != nil {
			return nil, fmt.Errorf("scanning api token row: %w", err)
		}
		if expiresAt.Valid {
			p.ExpiresAt = &expiresAt.Time
		}
		tokens = append(tokens, p)
	}
	return tokens, rows.Err()
}

// Hash returns the hex SHA-256 digest stored for a raw token.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func generate() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	return "rm_" + hex.EncodeToString(b), nil
}
