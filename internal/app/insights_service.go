package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"mealtrack-bff/internal/ai"
	"mealtrack-bff/internal/model"
	"mealtrack-bff/internal/pkg/jwtutil"
)

const (
	similarityThreshold = 0.5
	similarityMatches   = 10
	recentMealsDefault  = 7
	recentMealsMaxDays  = 31
	recentMealsLimit    = 50
)

const askQuestionPrompt = `You are an assistant who helps people keep track of the food they eat.
You will be given data regarding the food consumed by an individual.
The data is a JSON list of meal objects. Each has a "content" field describing
a meal they ate. When you are asked a question about the food eaten recently,
answer it from this data.

Here is the meal data:
%s`

type InsightsService struct {
	threads   ThreadStore
	cache     ThreadCache
	threadAPI ThreadAPI
	poller    *RunPoller
	meals     MealStore
	workouts  *WorkoutService
	search    SimilaritySearcher
	embedder  Embedder
	completer Completer
	logger    *zap.Logger
	now       func() time.Time
}

type SendMessageInput struct {
	UserID  string
	Message string
}

type SendMessageResult struct {
	Reply  string               `json:"reply"`
	Thread *model.MessageThread `json:"thread"`
}

func NewInsightsService(
	threads ThreadStore,
	cache ThreadCache,
	threadAPI ThreadAPI,
	poller *RunPoller,
	meals MealStore,
	workouts *WorkoutService,
	search SimilaritySearcher,
	embedder Embedder,
	completer Completer,
	logger *zap.Logger,
) *InsightsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InsightsService{
		threads:   threads,
		cache:     cache,
		threadAPI: threadAPI,
		poller:    poller,
		meals:     meals,
		workouts:  workouts,
		search:    search,
		embedder:  embedder,
		completer: completer,
		logger:    logger,
		now:       time.Now,
	}
}

// GetMessages returns the user's thread, creating it together with its remote
// assistant thread on first use.
func (s *InsightsService) GetMessages(ctx context.Context, id *jwtutil.Identity, userID string) (*model.MessageThread, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidInput
	}

	// The cache bypasses row-level security, so only the owner may use it.
	useCache := s.cache != nil && id != nil && id.Subject == userID

	if useCache {
		dirty, err := s.cache.IsDirty(ctx, userID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.cache.GetThread(ctx, userID); cacheErr == nil && hit {
				return cached, nil
			}
		}
	}

	thread, err := s.ensureThread(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if useCache {
		if dirty, dirtyErr := s.cache.IsDirty(ctx, userID); dirtyErr == nil && !dirty {
			if err := s.cache.SetThread(ctx, thread); err != nil {
				s.logger.Warn("cache thread failed", zap.String("user_id", userID), zap.Error(err))
			}
		}
	}
	return thread, nil
}

// SendMessage posts message to the user's assistant thread, runs the
// assistant to completion and appends both turns to the local history.
func (s *InsightsService) SendMessage(ctx context.Context, id *jwtutil.Identity, input SendMessageInput) (*SendMessageResult, error) {
	content := strings.TrimSpace(input.Message)
	if strings.TrimSpace(input.UserID) == "" || content == "" {
		return nil, ErrInvalidInput
	}

	thread, err := s.ensureThread(ctx, id, input.UserID)
	if err != nil {
		return nil, err
	}

	sentAt := s.now().UTC()
	if err := s.threadAPI.AddUserMessage(ctx, thread.ThreadID, content); err != nil {
		return nil, upstreamError(err, "error in sending message")
	}

	reply, err := s.poller.Run(ctx, thread.ThreadID, s.tools(id, input.UserID))
	if err != nil {
		return nil, err
	}
	reply = strings.TrimSpace(reply)

	s.invalidate(ctx, input.UserID)
	turns := []model.Turn{
		{Role: model.RoleUser, Content: content, CreatedAt: sentAt},
		{Role: model.RoleAssistant, Content: reply, CreatedAt: s.now().UTC()},
	}
	tokens := model.EstimateTokens(content) + model.EstimateTokens(reply)
	updated, err := s.threads.AppendTurns(ctx, id, thread.ID, turns, tokens)
	if err != nil {
		return nil, err
	}
	return &SendMessageResult{Reply: reply, Thread: updated}, nil
}

// AskQuestion answers a question from the caller's most similar meals.
func (s *InsightsService) AskQuestion(ctx context.Context, id *jwtutil.Identity, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" || id == nil {
		return "", ErrInvalidInput
	}

	emb, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return "", upstreamError(err, "error in embedding question")
	}
	matches, err := s.search.SearchSimilar(ctx, id, id.Subject, emb.Vector, similarityThreshold, similarityMatches)
	if err != nil {
		return "", err
	}
	if matches == nil {
		matches = []model.MealMatch{}
	}
	data, err := json.Marshal(matches)
	if err != nil {
		return "", fmt.Errorf("marshal meal matches failed: %w", err)
	}

	completion, err := s.completer.Complete(ctx, []ai.ChatMessage{
		{Role: "system", Content: fmt.Sprintf(askQuestionPrompt, data)},
		{Role: "user", Content: question},
	})
	if err != nil {
		return "", upstreamError(err, "error in answering question")
	}
	return completion, nil
}

func (s *InsightsService) ensureThread(ctx context.Context, id *jwtutil.Identity, userID string) (*model.MessageThread, error) {
	thread, err := s.threads.GetByUserID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if thread != nil {
		return thread, nil
	}

	remoteID, err := s.threadAPI.CreateThread(ctx)
	if err != nil {
		return nil, upstreamError(err, "error in creating assistant thread")
	}
	thread = &model.MessageThread{
		UserID:   userID,
		ThreadID: remoteID,
		Messages: []model.Turn{},
	}
	if err := s.threads.Create(ctx, id, thread); err != nil {
		// A concurrent first request may have won the insert.
		existing, getErr := s.threads.GetByUserID(ctx, id, userID)
		if getErr == nil && existing != nil {
			s.logger.Warn("discarding duplicate assistant thread",
				zap.String("user_id", userID),
				zap.String("thread_id", remoteID),
			)
			return existing, nil
		}
		return nil, err
	}
	return thread, nil
}

func (s *InsightsService) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.MarkDirty(ctx, userID); err != nil {
		s.logger.Warn("mark thread cache dirty failed", zap.String("user_id", userID), zap.Error(err))
	}
	if err := s.cache.DeleteThread(ctx, userID); err != nil {
		s.logger.Warn("delete thread cache failed", zap.String("user_id", userID), zap.Error(err))
	}
}

type recentMealsArgs struct {
	Days int `json:"days"`
}

type mealDigest struct {
	Datetime   time.Time `json:"datetime"`
	Type       string    `json:"type,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	ImageCount int       `json:"imageCount"`
}

func (s *InsightsService) tools(id *jwtutil.Identity, userID string) *ToolRegistry {
	registry := NewToolRegistry()

	registry.Register(ToolRecentMeals, func(ctx context.Context, arguments string) (interface{}, error) {
		args := recentMealsArgs{Days: recentMealsDefault}
		if strings.TrimSpace(arguments) != "" {
			if err := json.Unmarshal([]byte(arguments), &args); err != nil {
				return nil, fmt.Errorf("invalid arguments: %w", err)
			}
		}
		if args.Days <= 0 {
			args.Days = recentMealsDefault
		}
		if args.Days > recentMealsMaxDays {
			args.Days = recentMealsMaxDays
		}

		since := s.now().UTC().AddDate(0, 0, -args.Days)
		meals, err := s.meals.ListRecent(ctx, id, userID, since, recentMealsLimit)
		if err != nil {
			return nil, err
		}
		out := make([]mealDigest, 0, len(meals))
		for i := range meals {
			out = append(out, mealDigest{
				Datetime:   meals[i].Datetime,
				Type:       meals[i].TypeText(),
				Notes:      meals[i].NotesText(),
				ImageCount: len(meals[i].ImageURLs),
			})
		}
		return out, nil
	})

	if s.workouts != nil {
		registry.Register(ToolRecentWorkouts, func(ctx context.Context, arguments string) (interface{}, error) {
			return s.workouts.Activities(ctx, id, userID)
		})
	}
	return registry
}
