package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mealtrack-bff/internal/app"
	"mealtrack-bff/internal/model"
	"mealtrack-bff/internal/pkg/apperr"
	"mealtrack-bff/internal/pkg/jwtutil"
	"mealtrack-bff/internal/transport/http/response"
)

const maxMealImages = 3

type MealService interface {
	ListMonth(ctx context.Context, id *jwtutil.Identity, userID string, at time.Time) ([]model.Meal, error)
	AddMeal(ctx context.Context, id *jwtutil.Identity, input app.AddMealInput) (*model.Meal, error)
	UpdateMeal(ctx context.Context, id *jwtutil.Identity, input app.UpdateMealInput) (*model.Meal, error)
	QuickAdd(ctx context.Context, id *jwtutil.Identity, input app.QuickAddInput) (*model.Meal, error)
}

type MealHandler struct {
	mealService MealService
}

type AllMealsQuery struct {
	Datetime string `form:"datetime" binding:"required,iso8601"`
}

type AddMealForm struct {
	Date   string `form:"date" binding:"required,iso8601"`
	UserID string `form:"userId" binding:"required"`
}

type UpdateMealRequest struct {
	MealID   int64   `json:"mealId" binding:"required,gt=0"`
	Type     *string `json:"type"`
	Notes    *string `json:"notes"`
	Datetime *string `json:"datetime" binding:"omitempty,iso8601"`
}

type QuickAddForm struct {
	Datetime string `form:"datetime" binding:"required,iso8601"`
	UserID   string `form:"userId" binding:"required"`
}

func NewMealHandler(mealService MealService) *MealHandler {
	return &MealHandler{mealService: mealService}
}

func (h *MealHandler) AllMeals(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	var query AllMealsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		_ = c.Error(invalidRequest(err))
		return
	}
	at, _ := ParseISO8601(query.Datetime)

	meals, err := h.mealService.ListMonth(c.Request.Context(), id, c.Param("userId"), at)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, meals)
}

func (h *MealHandler) AddMeal(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	var form AddMealForm
	if err := c.ShouldBind(&form); err != nil {
		_ = c.Error(invalidRequest(err))
		return
	}
	date, _ := ParseISO8601(form.Date)

	var headers []*multipart.FileHeader
	mf, err := c.MultipartForm()
	switch {
	case err == nil:
		headers = mf.File["images"]
	case errors.Is(err, http.ErrNotMultipart):
	default:
		_ = c.Error(invalidRequest(err))
		return
	}
	if len(headers) > maxMealImages {
		_ = c.Error(app.ErrTooManyImages)
		return
	}

	images := make([]app.FileInput, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			_ = c.Error(invalidRequest(err))
			return
		}
		defer f.Close()
		images = append(images, fileInput("images", fh, f))
	}

	input := app.AddMealInput{
		UserID: form.UserID,
		Type:   optionalPostForm(c, "type"),
		Notes:  optionalPostForm(c, "notes"),
		Date:   date,
		Images: images,
	}
	meal, err := h.mealService.AddMeal(c.Request.Context(), id, input)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, meal)
}

func (h *MealHandler) UpdateMeal(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	var req UpdateMealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(invalidRequest(err))
		return
	}

	input := app.UpdateMealInput{
		MealID: req.MealID,
		Type:   req.Type,
		Notes:  req.Notes,
	}
	if req.Datetime != nil {
		at, _ := ParseISO8601(*req.Datetime)
		input.Datetime = &at
	}

	meal, err := h.mealService.UpdateMeal(c.Request.Context(), id, input)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, meal)
}

func (h *MealHandler) QuickAdd(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	var form QuickAddForm
	if err := c.ShouldBind(&form); err != nil {
		_ = c.Error(invalidRequest(err))
		return
	}
	fh, err := c.FormFile("audio")
	if err != nil {
		_ = c.Error(apperr.Wrap(err, http.StatusBadRequest, apperr.CodeBadRequest, "audio file is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		_ = c.Error(invalidRequest(err))
		return
	}
	defer f.Close()

	at, _ := ParseISO8601(form.Datetime)
	meal, err := h.mealService.QuickAdd(c.Request.Context(), id, app.QuickAddInput{
		UserID:   form.UserID,
		Datetime: at,
		Audio:    fileInput("audio", fh, f),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, meal)
}

func fileInput(field string, fh *multipart.FileHeader, f multipart.File) app.FileInput {
	return app.FileInput{
		Field:       field,
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	}
}

// optionalPostForm distinguishes a missing field from an empty one.
func optionalPostForm(c *gin.Context, key string) *string {
	v, ok := c.GetPostForm(key)
	if !ok {
		return nil
	}
	return &v
}
