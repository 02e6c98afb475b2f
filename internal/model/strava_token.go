package model

import "time"

// AccessToken is a short-lived Strava access token. ExpiresAt is unix seconds,
// as issued by Strava.
type AccessToken struct {
	ID          int64  `gorm:"column:id;primaryKey" json:"id"`
	UserID      string `gorm:"column:user_id;not null;uniqueIndex" json:"user_id"`
	AthleteID   int64  `gorm:"column:athlete_id;not null" json:"athlete_id"`
	AccessToken string `gorm:"column:access_token;not null" json:"access_token"`
	ExpiresAt   int64  `gorm:"column:expires_at;not null" json:"expires_at"`
}

func (AccessToken) TableName() string { return "Access_Tokens" }

// ValidAt reports whether the token can still be used at now.
func (t *AccessToken) ValidAt(now time.Time) bool {
	return now.Unix() < t.ExpiresAt
}

// RefreshToken is rotated by Strava on every refresh.
type RefreshToken struct {
	ID           int64  `gorm:"column:id;primaryKey" json:"id"`
	UserID       string `gorm:"column:user_id;not null;uniqueIndex" json:"user_id"`
	AthleteID    int64  `gorm:"column:athlete_id;not null" json:"athlete_id"`
	RefreshToken string `gorm:"column:refresh_token;not null" json:"refresh_token"`
}

func (RefreshToken) TableName() string { return "Refresh_Tokens" }
