package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
)

var ErrMalformedGrant = errors.New("strava token response is malformed")

// TokenGrant is what Strava's token endpoint returns for both grant types.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64
	AthleteID    int64
	// Raw is the provider payload, relayed to the client after a code exchange.
	Raw map[string]interface{}
}

// OAuthClient talks to the Strava token endpoint. Strava wants the client
// credentials in the request parameters, not in a basic auth header.
type OAuthClient struct {
	clientID     string
	clientSecret string
	tokenURL     string
	httpClient   *http.Client
}

func NewOAuthClient(clientID, clientSecret, tokenURL string, httpClient *http.Client) *OAuthClient {
	return &OAuthClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     tokenURL,
		httpClient:   httpClient,
	}
}

// Exchange trades an authorization code for the first token pair. The client
// credentials come from the caller, as the app registers them itself.
func (c *OAuthClient) Exchange(ctx context.Context, clientID, clientSecret, code string) (*TokenGrant, error) {
	tok, err := c.config(clientID, clientSecret).Exchange(c.withClient(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("strava code exchange failed: %w", err)
	}
	return toGrant(tok)
}

// Refresh spends refreshToken for a new pair. Strava rotates the refresh
// token, so the old one is unusable afterwards.
func (c *OAuthClient) Refresh(ctx context.Context, refreshToken string) (*TokenGrant, error) {
	src := c.config(c.clientID, c.clientSecret).TokenSource(c.withClient(ctx), &oauth2.Token{
		RefreshToken: refreshToken,
	})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("strava token refresh failed: %w", err)
	}
	return toGrant(tok)
}

func (c *OAuthClient) config(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func (c *OAuthClient) withClient(ctx context.Context) context.Context {
	if c.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

var grantFields = []string{"token_type", "access_token", "refresh_token", "expires_at", "expires_in", "athlete"}

func toGrant(tok *oauth2.Token) (*TokenGrant, error) {
	expiresAt, ok := asInt64(tok.Extra("expires_at"))
	if !ok {
		if tok.Expiry.IsZero() {
			return nil, fmt.Errorf("%w: no expiry", ErrMalformedGrant)
		}
		expiresAt = tok.Expiry.Unix()
	}

	grant := &TokenGrant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    expiresAt,
		Raw:          make(map[string]interface{}, len(grantFields)),
	}
	if athlete, ok := tok.Extra("athlete").(map[string]interface{}); ok {
		grant.AthleteID, _ = asInt64(athlete["id"])
	}
	for _, field := range grantFields {
		if v := tok.Extra(field); v != nil {
			grant.Raw[field] = v
		}
	}
	return grant, nil
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}
