package http

import (
	"context"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mealtrack-bff/internal/app"
	"mealtrack-bff/internal/model"
	"mealtrack-bff/internal/pkg/jwtutil"
	"mealtrack-bff/internal/transport/http/handler"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

type stubMeals struct {
	caller *jwtutil.Identity
}

func (s *stubMeals) ListMonth(ctx context.Context, id *jwtutil.Identity, userID string, at time.Time) ([]model.Meal, error) {
	s.caller = id
	return []model.Meal{}, nil
}

func (s *stubMeals) AddMeal(ctx context.Context, id *jwtutil.Identity, input app.AddMealInput) (*model.Meal, error) {
	return &model.Meal{}, nil
}

func (s *stubMeals) UpdateMeal(ctx context.Context, id *jwtutil.Identity, input app.UpdateMealInput) (*model.Meal, error) {
	return nil, app.ErrMealNotFound
}

func (s *stubMeals) QuickAdd(ctx context.Context, id *jwtutil.Identity, input app.QuickAddInput) (*model.Meal, error) {
	return &model.Meal{}, nil
}

func testEngine(meals handler.MealService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return newEngine(testSecret, zap.NewNop(), Handlers{
		Health: handler.NewHealthHandler("mealtrack-bff", "test", time.Now(), nil),
		Meals:  handler.NewMealHandler(meals),
	})
}

func TestHelloWorld(t *testing.T) {
	r := testEngine(&stubMeals{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(stdhttp.MethodGet, "/", nil))
	assert.Equal(t, stdhttp.StatusOK, w.Code)
	assert.Equal(t, "Hello World", w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestUnknownRoute(t *testing.T) {
	r := testEngine(&stubMeals{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(stdhttp.MethodGet, "/nope", nil))
	assert.Equal(t, stdhttp.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"code":40400,"message":"route not found"}`, w.Body.String())
}

func TestProtectedRoutesRequireBearer(t *testing.T) {
	meals := &stubMeals{}
	r := testEngine(meals)
	path := "/meals/all-meals/u1?datetime=2024-01-01T00:00:00Z"

	cases := map[string]string{
		"missing":      "",
		"wrong scheme": "Basic abc",
		"bad token":    "Bearer not-a-jwt",
	}
	for name, header := range cases {
		req := httptest.NewRequest(stdhttp.MethodGet, path, nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, stdhttp.StatusUnauthorized, w.Code, name)
	}
	assert.Nil(t, meals.caller)
}

func TestBearerIdentityReachesService(t *testing.T) {
	meals := &stubMeals{}
	r := testEngine(meals)

	token, err := jwtutil.GenerateToken(testSecret, time.Hour, "user-1", "authenticated")
	require.NoError(t, err)

	req := httptest.NewRequest(stdhttp.MethodGet, "/meals/all-meals/user-1?datetime=2024-01-01T00:00:00Z", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, stdhttp.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `[]`, w.Body.String())
	require.NotNil(t, meals.caller)
	assert.Equal(t, "user-1", meals.caller.Subject)
}

func TestServiceErrorsUseEnvelope(t *testing.T) {
	r := testEngine(&stubMeals{})

	token, err := jwtutil.GenerateToken(testSecret, time.Hour, "user-1", "authenticated")
	require.NoError(t, err)

	req := httptest.NewRequest(stdhttp.MethodPost, "/meals/update-meal", strings.NewReader(`{"mealId":7,"notes":"x"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, stdhttp.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"code":40401,"message":"meal not found"}`, w.Body.String())
}
