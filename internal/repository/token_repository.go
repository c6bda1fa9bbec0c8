package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/faizvk/ecommerce-app/internal/model"
)

// TokenRepo persists refresh token ids for rotation mode.  Only the SHA-256
// hash of each token id is stored.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRefresh inserts a refresh token row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID, tokenHash, family string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, family_id, expires_at, created_at) VALUES (?,?,?,?,?)",
		userID, tokenHash, family, exp.UTC(), time.Now().UTC())
	return err
}

// Lookup returns the row for tokenHash, revoked or not.
func (r *TokenRepo) Lookup(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	var (
		t         model.RefreshToken
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, token_hash, family_id, expires_at, revoked_at, created_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.Family, &t.ExpiresAt, &revokedAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	if revokedAt.Valid {
		t.RevokedAt = &revokedAt.Time
	}
	return &t, nil
}

// RevokeByHash marks a token as revoked.  It reports whether this call did
// the revoking, so two concurrent refreshes cannot both rotate one token.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=? WHERE token_hash=? AND revoked_at IS NULL",
		time.Now().UTC(), tokenHash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// RevokeFamily revokes every active token rotated from the same login.
func (r *TokenRepo) RevokeFamily(ctx context.Context, family string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=? WHERE family_id=? AND revoked_at IS NULL",
		time.Now().UTC(), family)
	return err
}

// RevokeAllForUser revokes all user's active tokens.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=? WHERE user_id=? AND revoked_at IS NULL",
		time.Now().UTC(), userID)
	return err
}
