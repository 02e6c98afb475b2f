package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one chat exchange entry kept in a thread's local history.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// MessageThread is the per-user insights conversation. ThreadID is the
// identifier issued by the assistant provider; Messages mirrors it locally.
type MessageThread struct {
	ID         int64                     `gorm:"column:id;primaryKey" json:"id"`
	UserID     string                    `gorm:"column:user_id;not null;uniqueIndex" json:"user_id"`
	ThreadID   string                    `gorm:"column:thread_id;not null" json:"thread_id"`
	Messages   datatypes.JSONSlice[Turn] `gorm:"column:messages;type:jsonb;not null" json:"messages"`
	TokenCount int                       `gorm:"column:token_count;not null;default:0" json:"token_count"`
	CreatedAt  time.Time                 `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (MessageThread) TableName() string { return "Messages" }

// EstimateTokens approximates the token count of text at four characters per
// token, which is close enough for usage accounting.
func EstimateTokens(text string) int {
	n := len([]rune(text))
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}
