package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"mealtrack-bff/internal/app"
	"mealtrack-bff/internal/model"
	"mealtrack-bff/internal/pkg/jwtutil"
	"mealtrack-bff/internal/transport/http/response"
)

type InsightsService interface {
	GetMessages(ctx context.Context, id *jwtutil.Identity, userID string) (*model.MessageThread, error)
	SendMessage(ctx context.Context, id *jwtutil.Identity, input app.SendMessageInput) (*app.SendMessageResult, error)
	AskQuestion(ctx context.Context, id *jwtutil.Identity, question string) (string, error)
}

type InsightsHandler struct {
	insightsService InsightsService
}

type SendMessageRequest struct {
	Message string `json:"message" binding:"required"`
	UserID  string `json:"userId" binding:"required"`
}

type AskQuestionRequest struct {
	Question string `json:"question" binding:"required"`
}

func NewInsightsHandler(insightsService InsightsService) *InsightsHandler {
	return &InsightsHandler{insightsService: insightsService}
}

func (h *InsightsHandler) GetMessages(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	thread, err := h.insightsService.GetMessages(c.Request.Context(), id, c.Param("userId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, thread)
}

// SendMessage blocks until the assistant run finishes or times out.
func (h *InsightsHandler) SendMessage(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(invalidRequest(err))
		return
	}

	result, err := h.insightsService.SendMessage(c.Request.Context(), id, app.SendMessageInput{
		UserID:  req.UserID,
		Message: req.Message,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, result)
}

func (h *InsightsHandler) AskQuestion(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	var req AskQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(invalidRequest(err))
		return
	}

	completion, err := h.insightsService.AskQuestion(c.Request.Context(), id, req.Question)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, gin.H{"completion": completion})
}
