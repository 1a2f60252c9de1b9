package auth

import (
	"context"
	"time"

	"github.com/sahilchouksey/learnhub-api/model"
	"gorm.io/gorm"
)

// BlacklistService tracks revoked access tokens until they expire
type BlacklistService struct {
	db *gorm.DB
}

// NewBlacklistService creates a new blacklist service
func NewBlacklistService(db *gorm.DB) *BlacklistService {
	return &BlacklistService{db: db}
}

// Revoke blacklists a token id
func (s *BlacklistService) Revoke(ctx context.Context, session *Session, reason string) error {
	return s.db.WithContext(ctx).Create(&model.RevokedToken{
		JTI:       session.TokenID,
		UserID:    session.UserID,
		Reason:    reason,
		ExpiresAt: session.ExpiresAt,
	}).Error
}

// IsRevoked checks if a token id is blacklisted and not yet expired
func (s *BlacklistService) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.RevokedToken{}).
		Where("jti = ? AND expires_at > ?", jti, time.Now()).
		Count(&count).
		Error
	return count > 0, err
}

// RevokeAllUserTokens bumps the user's token version so every issued token stops validating
func (s *BlacklistService) RevokeAllUserTokens(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		UpdateColumn("token_version", gorm.Expr("token_version + ?", 1)).
		Error
}

// CleanupExpired removes blacklist rows whose token can no longer validate anyway
func (s *BlacklistService) CleanupExpired(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&model.RevokedToken{})
	return res.RowsAffected, res.Error
}
