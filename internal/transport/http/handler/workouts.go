package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"mealtrack-bff/internal/app"
	"mealtrack-bff/internal/pkg/jwtutil"
	"mealtrack-bff/internal/transport/http/response"
)

type WorkoutService interface {
	Connect(ctx context.Context, id *jwtutil.Identity, input app.ConnectStravaInput) (map[string]interface{}, error)
	Activities(ctx context.Context, id *jwtutil.Identity, userID string) (*app.ActivitiesResult, error)
}

type WorkoutsHandler struct {
	workoutService WorkoutService
}

type CreateStravaTokenRequest struct {
	ClientID     string `json:"clientId" binding:"required"`
	ClientSecret string `json:"clientSecret" binding:"required"`
	Code         string `json:"code" binding:"required"`
	GrantType    string `json:"grantType" binding:"required,eq=authorization_code"`
	UserID       string `json:"userId" binding:"required"`
}

func NewWorkoutsHandler(workoutService WorkoutService) *WorkoutsHandler {
	return &WorkoutsHandler{workoutService: workoutService}
}

func (h *WorkoutsHandler) CreateStravaAccessToken(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	var req CreateStravaTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(invalidRequest(err))
		return
	}

	payload, err := h.workoutService.Connect(c.Request.Context(), id, app.ConnectStravaInput{
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		Code:         req.Code,
		GrantType:    req.GrantType,
		UserID:       req.UserID,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, gin.H{"data": payload})
}

func (h *WorkoutsHandler) StravaActivities(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	result, err := h.workoutService.Activities(c.Request.Context(), id, c.Param("userId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, result)
}
