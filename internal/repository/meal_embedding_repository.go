package repository

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"mealtrack-bff/internal/model"
	"mealtrack-bff/internal/pkg/jwtutil"
)

type MealEmbeddingRepository struct {
	gw *Gateway
}

func NewMealEmbeddingRepository(gw *Gateway) *MealEmbeddingRepository {
	return &MealEmbeddingRepository{gw: gw}
}

// Create stores an embedding with the service role.
func (r *MealEmbeddingRepository) Create(ctx context.Context, embedding *model.MealEmbedding) error {
	err := r.gw.Service(ctx, func(tx *gorm.DB) error {
		return tx.Create(embedding).Error
	})
	if err != nil {
		return fmt.Errorf("create meal embedding failed: %w", err)
	}
	return nil
}

func (r *MealEmbeddingRepository) ExistsForMeal(ctx context.Context, mealID int64) (bool, error) {
	var count int64
	err := r.gw.Service(ctx, func(tx *gorm.DB) error {
		return tx.Model(&model.MealEmbedding{}).Where("meal_id = ?", mealID).Count(&count).Error
	})
	if err != nil {
		return false, fmt.Errorf("check meal embedding failed: %w", err)
	}
	return count > 0, nil
}

// SearchSimilar ranks the caller's meal embeddings by cosine similarity to
// query and keeps those above threshold.
func (r *MealEmbeddingRepository) SearchSimilar(ctx context.Context, id *jwtutil.Identity, userID string, query []float32, threshold float64, limit int) ([]model.MealMatch, error) {
	if limit <= 0 {
		limit = 10
	}
	vec := pgvector.NewVector(query)

	var matches []model.MealMatch
	err := r.gw.Scoped(ctx, id, func(tx *gorm.DB) error {
		return tx.Raw(`
			SELECT meal_id, content, 1 - (embedding <=> ?) AS similarity
			FROM "Meal_Embeddings"
			WHERE user_id = ? AND 1 - (embedding <=> ?) > ?
			ORDER BY embedding <=> ?
			LIMIT ?`,
			vec, userID, vec, threshold, vec, limit,
		).Scan(&matches).Error
	})
	if err != nil {
		return nil, fmt.Errorf("search similar meals failed: %w", err)
	}
	return matches, nil
}
