package helper

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TokenBlacklistModel stores HMAC digests of revoked access tokens, never the
// raw token.
type TokenBlacklistModel struct {
	TokenBlacklistID        uint      `gorm:"primaryKey;column:token_blacklist_id"`
	TokenBlacklistDigest    string    `gorm:"type:varchar(64);not null;uniqueIndex:uq_token_blacklist_digest;column:token_blacklist_digest"`
	TokenBlacklistExpiresAt time.Time `gorm:"not null;index:idx_token_blacklist_expires;column:token_blacklist_expires_at"`
	TokenBlacklistCreatedAt time.Time `gorm:"not null;autoCreateTime;column:token_blacklist_created_at"`
}

func (TokenBlacklistModel) TableName() string { return "token_blacklist" }

func digest(rawToken, secret string) string {
	m := hmac.New(sha256.New, []byte(secret))
	_, _ = m.Write([]byte(rawToken))
	return hex.EncodeToString(m.Sum(nil))
}

// Revoke blacklists rawToken until expiresAt. Revoking twice extends the
// expiry.
func Revoke(ctx context.Context, db *gorm.DB, rawToken, secret string, expiresAt time.Time) error {
	if strings.TrimSpace(rawToken) == "" || strings.TrimSpace(secret) == "" {
		return errors.New("token and secret are required")
	}
	row := TokenBlacklistModel{
		TokenBlacklistDigest:    digest(rawToken, secret),
		TokenBlacklistExpiresAt: expiresAt.UTC(),
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token_blacklist_digest"}},
		DoUpdates: clause.AssignmentColumns([]string{"token_blacklist_expires_at"}),
	}).Create(&row).Error
}

func IsRevoked(ctx context.Context, db *gorm.DB, rawToken, secret string) (bool, error) {
	if strings.TrimSpace(rawToken) == "" {
		return false, nil
	}
	var n int64
	err := db.WithContext(ctx).Model(&TokenBlacklistModel{}).
		Where("token_blacklist_digest = ? AND token_blacklist_expires_at > ?", digest(rawToken, secret), time.Now().UTC()).
		Count(&n).Error
	return n > 0, err
}

// PurgeExpired removes rows whose token can no longer be presented anyway.
func PurgeExpired(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("token_blacklist_expires_at <= ?", now.UTC()).
		Delete(&TokenBlacklistModel{})
	return res.RowsAffected, res.Error
}

// Checker adapts IsRevoked to the JWT middleware hook.
func Checker(db *gorm.DB, secret string) func(ctx context.Context, rawToken string) (bool, error) {
	return func(ctx context.Context, rawToken string) (bool, error) {
		return IsRevoked(ctx, db, rawToken, secret)
	}
}
