package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mealtrack-bff/internal/model"
	"mealtrack-bff/internal/pkg/jwtutil"
)

type MessageThreadRepository struct {
	gw *Gateway
}

func NewMessageThreadRepository(gw *Gateway) *MessageThreadRepository {
	return &MessageThreadRepository{gw: gw}
}

// GetByUserID returns the user's thread, or nil when none exists yet.
func (r *MessageThreadRepository) GetByUserID(ctx context.Context, id *jwtutil.Identity, userID string) (*model.MessageThread, error) {
	var thread model.MessageThread
	found := true
	err := r.gw.Scoped(ctx, id, func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).First(&thread).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				found = false
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get message thread failed: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &thread, nil
}

func (r *MessageThreadRepository) Create(ctx context.Context, id *jwtutil.Identity, thread *model.MessageThread) error {
	if thread.Messages == nil {
		thread.Messages = []model.Turn{}
	}
	err := r.gw.Scoped(ctx, id, func(tx *gorm.DB) error {
		return tx.Create(thread).Error
	})
	if err != nil {
		return fmt.Errorf("create message thread failed: %w", err)
	}
	return nil
}

// AppendTurns adds turns to the end of the stored history under a row lock,
// so concurrent exchanges for the same user never drop each other's turns.
func (r *MessageThreadRepository) AppendTurns(ctx context.Context, id *jwtutil.Identity, rowID int64, turns []model.Turn, tokens int) (*model.MessageThread, error) {
	var thread model.MessageThread
	err := r.gw.Scoped(ctx, id, func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&thread, rowID).Error; err != nil {
			return err
		}
		thread.Messages = append(thread.Messages, turns...)
		thread.TokenCount += tokens
		return tx.Model(&thread).Updates(map[string]interface{}{
			"messages":    thread.Messages,
			"token_count": thread.TokenCount,
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("append message turns failed: %w", err)
	}
	return &thread, nil
}
