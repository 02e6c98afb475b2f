package app

import (
	"context"
	"strings"

	"mealtrack-bff/internal/pkg/jwtutil"
	"mealtrack-bff/internal/strava"
)

const authorizationCodeGrant = "authorization_code"

type WorkoutService struct {
	broker     TokenBroker
	activities ActivityFetcher
}

type ConnectStravaInput struct {
	ClientID     string
	ClientSecret string
	Code         string
	GrantType    string
	UserID       string
}

type ActivitiesResult struct {
	UserConnected bool              `json:"userConnected"`
	ActivityData  []strava.Activity `json:"activityData"`
}

func NewWorkoutService(broker TokenBroker, activities ActivityFetcher) *WorkoutService {
	return &WorkoutService{
		broker:     broker,
		activities: activities,
	}
}

// Connect exchanges an authorization code and stores the first token pair.
// It returns the provider payload.
func (s *WorkoutService) Connect(ctx context.Context, id *jwtutil.Identity, input ConnectStravaInput) (map[string]interface{}, error) {
	if input.GrantType != authorizationCodeGrant {
		return nil, ErrInvalidInput
	}
	if strings.TrimSpace(input.UserID) == "" || strings.TrimSpace(input.Code) == "" {
		return nil, ErrInvalidInput
	}

	grant, err := s.broker.Connect(ctx, id, strava.ConnectInput{
		ClientID:     input.ClientID,
		ClientSecret: input.ClientSecret,
		Code:         input.Code,
		UserID:       input.UserID,
	})
	if err != nil {
		return nil, upstreamError(err, "error in connecting strava")
	}
	return grant.Raw, nil
}

// Activities relays the user's recent Strava activities, refreshing the
// access token first when it has expired.
func (s *WorkoutService) Activities(ctx context.Context, id *jwtutil.Identity, userID string) (*ActivitiesResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidInput
	}

	token, connected, err := s.broker.AccessToken(ctx, id, userID)
	if err != nil {
		return nil, upstreamError(err, "error in refreshing strava token")
	}
	if !connected {
		return &ActivitiesResult{UserConnected: false}, nil
	}

	activities, err := s.activities.Activities(ctx, token)
	if err != nil {
		return nil, upstreamError(err, "error in fetching strava activities")
	}
	if activities == nil {
		activities = []strava.Activity{}
	}
	return &ActivitiesResult{UserConnected: true, ActivityData: activities}, nil
}
