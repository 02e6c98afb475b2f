package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"mealtrack-bff/internal/model"
)

// EmbeddingService builds the searchable text of a meal and stores its
// embedding. It runs from the queue worker with service credentials.
type EmbeddingService struct {
	meals      MealSource
	embeddings EmbeddingStore
	embedder   Embedder
	describer  ImageDescriber
	logger     *zap.Logger
}

func NewEmbeddingService(meals MealSource, embeddings EmbeddingStore, embedder Embedder, describer ImageDescriber, logger *zap.Logger) *EmbeddingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmbeddingService{
		meals:      meals,
		embeddings: embeddings,
		embedder:   embedder,
		describer:  describer,
		logger:     logger,
	}
}

// HandleEmbeddingJob is idempotent: a meal that already has an embedding, or
// that was deleted in the meantime, is skipped.
func (s *EmbeddingService) HandleEmbeddingJob(ctx context.Context, job model.EmbeddingJob) error {
	exists, err := s.embeddings.ExistsForMeal(ctx, job.MealID)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Debug("meal already embedded", zap.Int64("meal_id", job.MealID))
		return nil
	}

	meal, err := s.meals.GetForEmbedding(ctx, job.MealID)
	if err != nil {
		return err
	}
	if meal == nil {
		s.logger.Info("meal gone before embedding", zap.Int64("meal_id", job.MealID))
		return nil
	}

	content := s.SummarizeMeal(ctx, meal)
	emb, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return err
	}

	record := &model.MealEmbedding{
		MealID:     meal.ID,
		UserID:     meal.UserID,
		Embedding:  pgvector.NewVector(emb.Vector),
		TokenCount: emb.TokenCount,
		Content:    content,
	}
	if err := s.embeddings.Create(ctx, record); err != nil {
		return err
	}
	s.logger.Info("meal embedded", zap.Int64("meal_id", meal.ID), zap.Int("tokens", emb.TokenCount))
	return nil
}

// SummarizeMeal renders a meal as the text that gets embedded. Each image is
// described by the vision model; an image that cannot be described is left out.
func (s *EmbeddingService) SummarizeMeal(ctx context.Context, meal *model.Meal) string {
	descriptions := make([]string, 0, len(meal.ImageURLs))
	for _, url := range meal.ImageURLs {
		text, err := s.describer.DescribeImage(ctx, url)
		if err != nil {
			s.logger.Warn("describe meal image failed", zap.Int64("meal_id", meal.ID), zap.Error(err))
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			descriptions = append(descriptions, text)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Meal Type: %s\n", meal.TypeText())
	fmt.Fprintf(&b, "Meal DateTime: %s\n", meal.Datetime.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Meal Notes: %q\n", meal.NotesText())
	if len(descriptions) > 0 {
		fmt.Fprintf(&b, "%q\n", strings.Join(descriptions, " "))
	}
	return b.String()
}
