package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// Activity is the condensed form of a Strava activity that the app shows.
type Activity struct {
	StartDateLocal string  `json:"startDateLocal"`
	Name           string  `json:"name"`
	SportType      string  `json:"sportType"`
	MovingTime     int64   `json:"movingTime"`
	Distance       float64 `json:"distance"`
}

type rawActivity struct {
	StartDateLocal string  `json:"start_date_local"`
	Name           string  `json:"name"`
	SportType      string  `json:"sport_type"`
	MovingTime     int64   `json:"moving_time"`
	Distance       float64 `json:"distance"`
}

// APIClient reads from the Strava REST API on behalf of one athlete.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewAPIClient(baseURL string, httpClient *http.Client) *APIClient {
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *APIClient) Activities(ctx context.Context, accessToken string) ([]Activity, error) {
	if c.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/athlete/activities", nil)
	if err != nil {
		return nil, fmt.Errorf("build strava activities request failed: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch strava activities failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch strava activities failed: status %d", resp.StatusCode)
	}

	var raw []rawActivity
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode strava activities failed: %w", err)
	}

	out := make([]Activity, 0, len(raw))
	for _, a := range raw {
		out = append(out, Activity{
			StartDateLocal: a.StartDateLocal,
			Name:           a.Name,
			SportType:      a.SportType,
			MovingTime:     a.MovingTime,
			Distance:       a.Distance,
		})
	}
	return out, nil
}
