package app

import (
	"context"
	"io"
	"time"

	"mealtrack-bff/internal/ai"
	"mealtrack-bff/internal/model"
	"mealtrack-bff/internal/pkg/jwtutil"
	"mealtrack-bff/internal/repository"
	"mealtrack-bff/internal/strava"
)

type MealStore interface {
	ListByUserInRange(ctx context.Context, id *jwtutil.Identity, userID string, from, to time.Time) ([]model.Meal, error)
	ListRecent(ctx context.Context, id *jwtutil.Identity, userID string, since time.Time, limit int) ([]model.Meal, error)
	Create(ctx context.Context, id *jwtutil.Identity, meal *model.Meal) error
	Update(ctx context.Context, id *jwtutil.Identity, mealID int64, upd repository.MealUpdate) (*model.Meal, error)
	Delete(ctx context.Context, id *jwtutil.Identity, mealID int64) error
}

// MealSource reads meals outside of any caller's scope, for background jobs.
type MealSource interface {
	GetForEmbedding(ctx context.Context, mealID int64) (*model.Meal, error)
}

type EmbeddingStore interface {
	Create(ctx context.Context, embedding *model.MealEmbedding) error
	ExistsForMeal(ctx context.Context, mealID int64) (bool, error)
}

type SimilaritySearcher interface {
	SearchSimilar(ctx context.Context, id *jwtutil.Identity, userID string, query []float32, threshold float64, limit int) ([]model.MealMatch, error)
}

type ThreadStore interface {
	GetByUserID(ctx context.Context, id *jwtutil.Identity, userID string) (*model.MessageThread, error)
	Create(ctx context.Context, id *jwtutil.Identity, thread *model.MessageThread) error
	AppendTurns(ctx context.Context, id *jwtutil.Identity, rowID int64, turns []model.Turn, tokens int) (*model.MessageThread, error)
}

type ThreadCache interface {
	GetThread(ctx context.Context, userID string) (*model.MessageThread, bool, error)
	SetThread(ctx context.Context, thread *model.MessageThread) error
	DeleteThread(ctx context.Context, userID string) error
	MarkDirty(ctx context.Context, userID string) error
	IsDirty(ctx context.Context, userID string) (bool, error)
}

type BlobStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
	Delete(ctx context.Context, key string) error
}

type EmbeddingPublisher interface {
	PublishEmbeddingJob(ctx context.Context, job model.EmbeddingJob) error
}

type Completer interface {
	Complete(ctx context.Context, messages []ai.ChatMessage) (string, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) (ai.Embedding, error)
}

type ImageDescriber interface {
	DescribeImage(ctx context.Context, imageURL string) (string, error)
}

type ThreadAPI interface {
	CreateThread(ctx context.Context) (string, error)
	AddUserMessage(ctx context.Context, threadID, content string) error
}

type RunAPI interface {
	CreateRun(ctx context.Context, threadID string) (ai.Run, error)
	RetrieveRun(ctx context.Context, threadID, runID string) (ai.Run, error)
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ai.ToolOutput) (ai.Run, error)
	CancelRun(ctx context.Context, threadID, runID string) error
	LatestAssistantMessage(ctx context.Context, threadID string) (string, error)
}

type TokenBroker interface {
	Connect(ctx context.Context, id *jwtutil.Identity, in strava.ConnectInput) (*strava.TokenGrant, error)
	AccessToken(ctx context.Context, id *jwtutil.Identity, userID string) (string, bool, error)
}

type ActivityFetcher interface {
	Activities(ctx context.Context, accessToken string) ([]strava.Activity, error)
}

// FileInput is one uploaded file, already opened by the transport layer.
type FileInput struct {
	Field       string
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}
