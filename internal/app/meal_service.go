package app

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"mealtrack-bff/internal/ai"
	"mealtrack-bff/internal/model"
	"mealtrack-bff/internal/objectstore"
	"mealtrack-bff/internal/pkg/jwtutil"
	"mealtrack-bff/internal/repository"
)

const maxMealImages = 3

const quickAddPrompt = `You turn a spoken description of a meal into a short note for a food journal.
Keep every food, drink and quantity that was mentioned. Leave out filler words.
Reply with the note only.`

type MealService struct {
	meals       MealStore
	blobs       BlobStore
	publisher   EmbeddingPublisher
	completer   Completer
	transcriber Transcriber
	logger      *zap.Logger
	now         func() time.Time
}

type AddMealInput struct {
	UserID string
	Type   *string
	Notes  *string
	Date   time.Time
	Images []FileInput
}

type UpdateMealInput struct {
	MealID   int64
	Type     *string
	Notes    *string
	Datetime *time.Time
}

type QuickAddInput struct {
	UserID   string
	Datetime time.Time
	Audio    FileInput
}

func NewMealService(
	meals MealStore,
	blobs BlobStore,
	publisher EmbeddingPublisher,
	completer Completer,
	transcriber Transcriber,
	logger *zap.Logger,
) *MealService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MealService{
		meals:       meals,
		blobs:       blobs,
		publisher:   publisher,
		completer:   completer,
		transcriber: transcriber,
		logger:      logger,
		now:         time.Now,
	}
}

// ListMonth returns the user's meals in the UTC calendar month containing at.
func (s *MealService) ListMonth(ctx context.Context, id *jwtutil.Identity, userID string, at time.Time) ([]model.Meal, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidInput
	}
	at = at.UTC()
	from := time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	meals, err := s.meals.ListByUserInRange(ctx, id, userID, from, to)
	if err != nil {
		return nil, err
	}
	if meals == nil {
		meals = []model.Meal{}
	}
	return meals, nil
}

func (s *MealService) AddMeal(ctx context.Context, id *jwtutil.Identity, input AddMealInput) (*model.Meal, error) {
	if strings.TrimSpace(input.UserID) == "" || input.Date.IsZero() {
		return nil, ErrInvalidInput
	}
	if len(input.Images) > maxMealImages {
		return nil, ErrTooManyImages
	}

	urls := make([]string, 0, len(input.Images))
	keys := make([]string, 0, len(input.Images))
	for _, img := range input.Images {
		key := objectstore.Key(input.UserID, img.Field, img.Name, s.now())
		url, err := s.blobs.Upload(ctx, key, img.ContentType, img.Body, img.Size)
		if err != nil {
			s.removeObjects(keys)
			return nil, upstreamError(err, "error in storing meal images")
		}
		keys = append(keys, key)
		urls = append(urls, url)
	}

	meal := &model.Meal{
		UserID:    input.UserID,
		Datetime:  input.Date.UTC(),
		Notes:     input.Notes,
		Type:      input.Type,
		ImageURLs: urls,
	}
	if err := s.insertAndEnqueue(ctx, id, meal, keys); err != nil {
		return nil, err
	}
	return meal, nil
}

// UpdateMeal changes the given fields only. The stored embedding is left as
// it was.
func (s *MealService) UpdateMeal(ctx context.Context, id *jwtutil.Identity, input UpdateMealInput) (*model.Meal, error) {
	if input.MealID <= 0 {
		return nil, ErrInvalidInput
	}
	upd := repository.MealUpdate{
		Type:  input.Type,
		Notes: input.Notes,
	}
	if input.Datetime != nil {
		utc := input.Datetime.UTC()
		upd.Datetime = &utc
	}

	meal, err := s.meals.Update(ctx, id, input.MealID, upd)
	if err != nil {
		return nil, err
	}
	if meal == nil {
		return nil, ErrMealNotFound
	}
	return meal, nil
}

// QuickAdd logs a meal from a voice note: the transcription is rewritten into
// a journal note and stored as the meal's notes.
func (s *MealService) QuickAdd(ctx context.Context, id *jwtutil.Identity, input QuickAddInput) (*model.Meal, error) {
	if strings.TrimSpace(input.UserID) == "" || input.Datetime.IsZero() || input.Audio.Body == nil {
		return nil, ErrInvalidInput
	}

	transcript, err := s.transcriber.Transcribe(ctx, input.Audio.Name, input.Audio.Body)
	if err != nil {
		return nil, upstreamError(err, "error in transcribing audio")
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, ErrEmptyAudio
	}

	notes, err := s.completer.Complete(ctx, []ai.ChatMessage{
		{Role: "system", Content: quickAddPrompt},
		{Role: "user", Content: transcript},
	})
	if err != nil {
		return nil, upstreamError(err, "error in summarizing audio")
	}
	notes = strings.TrimSpace(notes)
	if notes == "" {
		notes = transcript
	}

	meal := &model.Meal{
		UserID:    input.UserID,
		Datetime:  input.Datetime.UTC(),
		Notes:     &notes,
		ImageURLs: []string{},
	}
	if err := s.insertAndEnqueue(ctx, id, meal, nil); err != nil {
		return nil, err
	}
	return meal, nil
}

// insertAndEnqueue stores meal and schedules its embedding. When either step
// fails, everything this request already wrote is removed again.
func (s *MealService) insertAndEnqueue(ctx context.Context, id *jwtutil.Identity, meal *model.Meal, objectKeys []string) error {
	if err := s.meals.Create(ctx, id, meal); err != nil {
		s.removeObjects(objectKeys)
		return upstreamError(err, "error in storing meal data")
	}

	job := model.EmbeddingJob{MealID: meal.ID, UserID: meal.UserID}
	if err := s.publisher.PublishEmbeddingJob(ctx, job); err != nil {
		cleanupCtx, cancel := cleanupContext(ctx)
		defer cancel()
		if delErr := s.meals.Delete(cleanupCtx, id, meal.ID); delErr != nil {
			s.logger.Warn("compensating meal delete failed",
				zap.Int64("meal_id", meal.ID),
				zap.Error(delErr),
			)
		}
		s.removeObjects(objectKeys)
		return upstreamError(err, "error in scheduling meal embedding")
	}
	return nil
}

func (s *MealService) removeObjects(keys []string) {
	if len(keys) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, key := range keys {
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.logger.Warn("compensating object delete failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// cleanupContext outlives a cancelled request so compensation still runs.
func cleanupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
}
