package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/denteo/clinic-auth/internal/models"
	"github.com/denteo/clinic-auth/internal/tokens"
)

func (r *GormRepo) CreateSession(ctx context.Context, userID uuid.UUID, accessToken, refreshToken string, expiresAt time.Time) (*models.Session, error) {
	s := models.Session{
		ID:          uuid.New(),
		UserID:      userID,
		AccessToken: accessToken,
		TokenHash:   tokens.Sha256Hex(refreshToken),
		ExpiresAt:   expiresAt,
	}
	if err := r.DB.WithContext(ctx).Create(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// FindValidSession treats expired-but-present rows as not found. The boundary
// is strict: expires_at equal to now is already invalid.
func (r *GormRepo) FindValidSession(ctx context.Context, refreshToken string) (*models.Session, error) {
	var s models.Session
	err := r.DB.WithContext(ctx).
		Where("token_hash = ? AND expires_at > ?", tokens.Sha256Hex(refreshToken), time.Now().UTC()).
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

// RotateSession swaps in the new refresh token with a single conditional
// UPDATE keyed on the old token hash. Of two racing refresh calls holding the
// same token, the loser matches zero rows and gets ErrSessionNotFound; the
// old value is gone the instant the winner commits.
func (r *GormRepo) RotateSession(ctx context.Context, oldRefreshToken, newAccessToken, newRefreshToken string, newExpiresAt time.Time) error {
	tx := r.DB.WithContext(ctx).Model(&models.Session{}).
		Where("token_hash = ? AND expires_at > ?", tokens.Sha256Hex(oldRefreshToken), time.Now().UTC()).
		Updates(map[string]any{
			"token_hash":   tokens.Sha256Hex(newRefreshToken),
			"access_token": newAccessToken,
			"expires_at":   newExpiresAt,
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// RevokeByRefreshToken is idempotent: revoking an already-gone token deletes
// zero rows and succeeds.
func (r *GormRepo) RevokeByRefreshToken(ctx context.Context, refreshToken string) error {
	return r.DB.WithContext(ctx).
		Where("token_hash = ?", tokens.Sha256Hex(refreshToken)).
		Delete(&models.Session{}).Error
}

func (r *GormRepo) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	tx := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.Session{})
	return tx.RowsAffected, tx.Error
}

func (r *GormRepo) CountSessionsForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.Session{}).
		Where("user_id = ? AND expires_at > ?", userID, time.Now().UTC()).
		Count(&count).Error
	return count, err
}

// DeleteExpiredSessions is an opportunistic sweep; correctness never depends
// on it since lookups filter on expiry.
func (r *GormRepo) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	tx := r.DB.WithContext(ctx).
		Where("expires_at <= ?", time.Now().UTC()).
		Delete(&models.Session{})
	return tx.RowsAffected, tx.Error
}
