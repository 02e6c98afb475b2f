package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"mealtrack-bff/internal/model"
	"mealtrack-bff/internal/pkg/jwtutil"
)

type MealRepository struct {
	gw *Gateway
}

// MealUpdate lists the editable columns; nil fields are left untouched.
type MealUpdate struct {
	Type     *string
	Notes    *string
	Datetime *time.Time
}

func NewMealRepository(gw *Gateway) *MealRepository {
	return &MealRepository{gw: gw}
}

// ListByUserInRange returns meals with from <= datetime < to, oldest first.
func (r *MealRepository) ListByUserInRange(ctx context.Context, id *jwtutil.Identity, userID string, from, to time.Time) ([]model.Meal, error) {
	var meals []model.Meal
	err := r.gw.Scoped(ctx, id, func(tx *gorm.DB) error {
		return tx.Where(`"userId" = ? AND "datetime" >= ? AND "datetime" < ?`, userID, from, to).
			Order(`"datetime" ASC`).
			Find(&meals).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list meals failed: %w", err)
	}
	return meals, nil
}

// ListRecent returns the newest meals logged since the given instant.
func (r *MealRepository) ListRecent(ctx context.Context, id *jwtutil.Identity, userID string, since time.Time, limit int) ([]model.Meal, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var meals []model.Meal
	err := r.gw.Scoped(ctx, id, func(tx *gorm.DB) error {
		return tx.Where(`"userId" = ? AND "datetime" >= ?`, userID, since).
			Order(`"datetime" DESC`).
			Limit(limit).
			Find(&meals).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list recent meals failed: %w", err)
	}
	return meals, nil
}

func (r *MealRepository) Create(ctx context.Context, id *jwtutil.Identity, meal *model.Meal) error {
	err := r.gw.Scoped(ctx, id, func(tx *gorm.DB) error {
		return tx.Create(meal).Error
	})
	if err != nil {
		return fmt.Errorf("create meal failed: %w", err)
	}
	return nil
}

// Update applies upd and returns the updated row, or nil when no visible row
// has that id.
func (r *MealRepository) Update(ctx context.Context, id *jwtutil.Identity, mealID int64, upd MealUpdate) (*model.Meal, error) {
	columns := map[string]interface{}{}
	if upd.Type != nil {
		columns["type"] = *upd.Type
	}
	if upd.Notes != nil {
		columns["notes"] = *upd.Notes
	}
	if upd.Datetime != nil {
		columns["datetime"] = *upd.Datetime
	}

	var meal model.Meal
	found := true
	err := r.gw.Scoped(ctx, id, func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", mealID).First(&meal).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				found = false
				return nil
			}
			return err
		}
		if len(columns) == 0 {
			return nil
		}
		if err := tx.Model(&meal).Updates(columns).Error; err != nil {
			return err
		}
		return tx.First(&meal, meal.ID).Error
	})
	if err != nil {
		return nil, fmt.Errorf("update meal failed: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &meal, nil
}

func (r *MealRepository) Delete(ctx context.Context, id *jwtutil.Identity, mealID int64) error {
	err := r.gw.Scoped(ctx, id, func(tx *gorm.DB) error {
		return tx.Where("id = ?", mealID).Delete(&model.Meal{}).Error
	})
	if err != nil {
		return fmt.Errorf("delete meal failed: %w", err)
	}
	return nil
}

// GetForEmbedding loads a meal with the service role for the embedding worker.
func (r *MealRepository) GetForEmbedding(ctx context.Context, mealID int64) (*model.Meal, error) {
	var meal model.Meal
	found := true
	err := r.gw.Service(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&meal, mealID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				found = false
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get meal for embedding failed: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &meal, nil
}
