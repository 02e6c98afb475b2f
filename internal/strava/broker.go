package strava

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"mealtrack-bff/internal/model"
	"mealtrack-bff/internal/pkg/jwtutil"
)

var ErrNoRefreshToken = errors.New("strava refresh token missing")

type TokenStore interface {
	GetAccessToken(ctx context.Context, id *jwtutil.Identity, userID string) (*model.AccessToken, error)
	GetRefreshToken(ctx context.Context, id *jwtutil.Identity, userID string) (*model.RefreshToken, error)
	SavePair(ctx context.Context, id *jwtutil.Identity, access *model.AccessToken, refresh *model.RefreshToken) error
	Rotate(ctx context.Context, id *jwtutil.Identity, userID, accessToken string, expiresAt int64, refreshToken string) error
}

type OAuth interface {
	Exchange(ctx context.Context, clientID, clientSecret, code string) (*TokenGrant, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenGrant, error)
}

// Locker serializes refreshes of one user across processes.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type ConnectInput struct {
	ClientID     string
	ClientSecret string
	Code         string
	UserID       string
}

// Broker owns the lifecycle of each user's Strava token pair: the first code
// exchange and every refresh after the access token expires.
type Broker struct {
	store  TokenStore
	oauth  OAuth
	locker Locker
	logger *zap.Logger
	group  singleflight.Group
	now    func() time.Time

	refreshTimeout time.Duration
}

func NewBroker(store TokenStore, oauth OAuth, locker Locker, logger *zap.Logger) *Broker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broker{
		store:  store,
		oauth:  oauth,
		locker: locker,
		logger: logger,
		now:    time.Now,

		refreshTimeout: 30 * time.Second,
	}
}

func (b *Broker) Connect(ctx context.Context, id *jwtutil.Identity, in ConnectInput) (*TokenGrant, error) {
	grant, err := b.oauth.Exchange(ctx, in.ClientID, in.ClientSecret, in.Code)
	if err != nil {
		return nil, err
	}

	access := &model.AccessToken{
		UserID:      in.UserID,
		AthleteID:   grant.AthleteID,
		AccessToken: grant.AccessToken,
		ExpiresAt:   grant.ExpiresAt,
	}
	refresh := &model.RefreshToken{
		UserID:       in.UserID,
		AthleteID:    grant.AthleteID,
		RefreshToken: grant.RefreshToken,
	}
	if err := b.store.SavePair(ctx, id, access, refresh); err != nil {
		return nil, err
	}
	return grant, nil
}

// AccessToken returns a usable access token for userID, refreshing it first
// when it has expired. connected is false when the user never linked Strava.
func (b *Broker) AccessToken(ctx context.Context, id *jwtutil.Identity, userID string) (string, bool, error) {
	current, err := b.store.GetAccessToken(ctx, id, userID)
	if err != nil {
		return "", false, err
	}
	if current == nil {
		return "", false, nil
	}
	if current.ValidAt(b.now()) {
		return current.AccessToken, true, nil
	}

	// The refresh outlives any single caller: once Strava rotates the refresh
	// token the new pair must be stored even if the first caller went away.
	ch := b.group.DoChan(userID, func() (interface{}, error) {
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.refreshTimeout)
		defer cancel()
		return b.refresh(refreshCtx, id, userID)
	})

	select {
	case <-ctx.Done():
		return "", true, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", true, res.Err
		}
		if res.Shared {
			b.logger.Debug("strava refresh coalesced", zap.String("user_id", userID))
		}
		return res.Val.(string), true, nil
	}
}

func (b *Broker) refresh(ctx context.Context, id *jwtutil.Identity, userID string) (string, error) {
	if b.locker != nil {
		release, err := b.locker.Acquire(ctx, "strava:refresh:"+userID)
		if err != nil {
			return "", fmt.Errorf("acquire strava refresh lock failed: %w", err)
		}
		defer release()
	}

	// Another replica may have refreshed while we waited for the lock.
	current, err := b.store.GetAccessToken(ctx, id, userID)
	if err != nil {
		return "", err
	}
	if current != nil && current.ValidAt(b.now()) {
		return current.AccessToken, nil
	}

	stored, err := b.store.GetRefreshToken(ctx, id, userID)
	if err != nil {
		return "", err
	}
	if stored == nil {
		return "", ErrNoRefreshToken
	}

	grant, err := b.oauth.Refresh(ctx, stored.RefreshToken)
	if err != nil {
		return "", err
	}
	if grant.RefreshToken == "" {
		grant.RefreshToken = stored.RefreshToken
	}

	if err := b.store.Rotate(ctx, id, userID, grant.AccessToken, grant.ExpiresAt, grant.RefreshToken); err != nil {
		return "", err
	}
	b.logger.Info("strava token refreshed",
		zap.String("user_id", userID),
		zap.Int64("expires_at", grant.ExpiresAt),
	)
	return grant.AccessToken, nil
}
