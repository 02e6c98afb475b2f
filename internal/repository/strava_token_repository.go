package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"mealtrack-bff/internal/model"
	"mealtrack-bff/internal/pkg/jwtutil"
)

type StravaTokenRepository struct {
	gw *Gateway
}

func NewStravaTokenRepository(gw *Gateway) *StravaTokenRepository {
	return &StravaTokenRepository{gw: gw}
}

// SavePair replaces the user's token pair in one transaction.
func (r *StravaTokenRepository) SavePair(ctx context.Context, id *jwtutil.Identity, access *model.AccessToken, refresh *model.RefreshToken) error {
	err := r.gw.Scoped(ctx, id, func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", access.UserID).Delete(&model.AccessToken{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", refresh.UserID).Delete(&model.RefreshToken{}).Error; err != nil {
			return err
		}
		if err := tx.Create(access).Error; err != nil {
			return err
		}
		return tx.Create(refresh).Error
	})
	if err != nil {
		return fmt.Errorf("save strava token pair failed: %w", err)
	}
	return nil
}

func (r *StravaTokenRepository) GetAccessToken(ctx context.Context, id *jwtutil.Identity, userID string) (*model.AccessToken, error) {
	var token model.AccessToken
	found, err := r.first(ctx, id, userID, &token)
	if err != nil {
		return nil, fmt.Errorf("get strava access token failed: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &token, nil
}

func (r *StravaTokenRepository) GetRefreshToken(ctx context.Context, id *jwtutil.Identity, userID string) (*model.RefreshToken, error) {
	var token model.RefreshToken
	found, err := r.first(ctx, id, userID, &token)
	if err != nil {
		return nil, fmt.Errorf("get strava refresh token failed: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &token, nil
}

// Rotate stores the result of a refresh. Both rows change together or not at
// all, since Strava invalidates the old refresh token once a new one is issued.
func (r *StravaTokenRepository) Rotate(ctx context.Context, id *jwtutil.Identity, userID, accessToken string, expiresAt int64, refreshToken string) error {
	err := r.gw.Scoped(ctx, id, func(tx *gorm.DB) error {
		if err := tx.Model(&model.AccessToken{}).Where("user_id = ?", userID).Updates(map[string]interface{}{
			"access_token": accessToken,
			"expires_at":   expiresAt,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&model.RefreshToken{}).Where("user_id = ?", userID).
			Update("refresh_token", refreshToken).Error
	})
	if err != nil {
		return fmt.Errorf("rotate strava tokens failed: %w", err)
	}
	return nil
}

func (r *StravaTokenRepository) first(ctx context.Context, id *jwtutil.Identity, userID string, dest interface{}) (bool, error) {
	found := true
	err := r.gw.Scoped(ctx, id, func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).First(dest).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				found = false
				return nil
			}
			return err
		}
		return nil
	})
	return found, err
}
