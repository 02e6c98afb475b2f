package model

import "github.com/pgvector/pgvector-go"

// MealEmbedding holds the vector of a meal's text summary. One row per meal.
type MealEmbedding struct {
	ID         int64           `gorm:"column:id;primaryKey" json:"id"`
	MealID     int64           `gorm:"column:meal_id;not null;uniqueIndex" json:"meal_id"`
	UserID     string          `gorm:"column:user_id;not null;index" json:"user_id"`
	Embedding  pgvector.Vector `gorm:"column:embedding;type:vector(1536)" json:"-"`
	TokenCount int             `gorm:"column:token_count" json:"token_count"`
	Content    string          `gorm:"column:content;type:text;not null" json:"content"`
}

func (MealEmbedding) TableName() string { return "Meal_Embeddings" }

// MealMatch is one row of a similarity search over meal embeddings.
type MealMatch struct {
	MealID     int64   `gorm:"column:meal_id" json:"meal_id"`
	Content    string  `gorm:"column:content" json:"content"`
	Similarity float64 `gorm:"column:similarity" json:"similarity"`
}

// EmbeddingJob asks the embedding worker to summarize and embed a meal.
type EmbeddingJob struct {
	MealID int64  `json:"meal_id"`
	UserID string `json:"user_id"`
}
