package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mealtrack-bff/internal/app"
	"mealtrack-bff/internal/model"
	"mealtrack-bff/internal/pkg/jwtutil"
	"mealtrack-bff/internal/transport/http/middleware"
)

var testIdentity = &jwtutil.Identity{Subject: "u1", Role: "authenticated"}

func testRouter(routes func(r *gin.Engine)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	RegisterValidators()
	r := gin.New()
	r.Use(middleware.ErrorHandler(zap.NewNop()))
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextIdentityKey, testIdentity)
		c.Next()
	})
	routes(r)
	return r
}

// reply holds an error envelope, or the raw body of a successful response.
type reply struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Body    json.RawMessage `json:"-"`
}

func do(t *testing.T, r http.Handler, req *http.Request) (*httptest.ResponseRecorder, reply) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	res := reply{Body: w.Body.Bytes()}
	if w.Code >= http.StatusBadRequest {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res), w.Body.String())
	}
	return w, res
}

func jsonRequest(method, path string, body interface{}) *http.Request {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

type multipartFile struct {
	field, name, content string
}

func multipartRequest(t *testing.T, path string, fields map[string]string, files []multipartFile) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

type fakeMealService struct {
	listCalls  int
	listAt     time.Time
	addInput   app.AddMealInput
	addNames   []string
	updateErr  error
	quickInput app.QuickAddInput
}

func (f *fakeMealService) ListMonth(ctx context.Context, id *jwtutil.Identity, userID string, at time.Time) ([]model.Meal, error) {
	f.listCalls++
	f.listAt = at
	return []model.Meal{{ID: 1, UserID: userID}}, nil
}

func (f *fakeMealService) AddMeal(ctx context.Context, id *jwtutil.Identity, input app.AddMealInput) (*model.Meal, error) {
	f.addInput = input
	urls := make([]string, 0, len(input.Images))
	for _, img := range input.Images {
		f.addNames = append(f.addNames, img.Name)
		urls = append(urls, "https://storage.test/"+img.Name)
	}
	return &model.Meal{ID: 2, UserID: input.UserID, ImageURLs: urls}, nil
}

func (f *fakeMealService) UpdateMeal(ctx context.Context, id *jwtutil.Identity, input app.UpdateMealInput) (*model.Meal, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &model.Meal{ID: input.MealID}, nil
}

func (f *fakeMealService) QuickAdd(ctx context.Context, id *jwtutil.Identity, input app.QuickAddInput) (*model.Meal, error) {
	f.quickInput = input
	notes := "Two eggs."
	return &model.Meal{ID: 3, UserID: input.UserID, Datetime: input.Datetime, Notes: &notes}, nil
}

func mealRoutes(svc MealService) func(r *gin.Engine) {
	h := NewMealHandler(svc)
	return func(r *gin.Engine) {
		r.GET("/meals/all-meals/:userId", h.AllMeals)
		r.POST("/meals/add-meal", h.AddMeal)
		r.POST("/meals/update-meal", h.UpdateMeal)
		r.POST("/meals/quick-add", h.QuickAdd)
	}
}

func TestAllMealsRequiresDatetime(t *testing.T) {
	svc := &fakeMealService{}
	r := testRouter(mealRoutes(svc))

	for _, path := range []string{"/meals/all-meals/u1", "/meals/all-meals/u1?datetime=yesterday"} {
		w, env := do(t, r, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Contains(t, env.Message, "datetime")
	}
	assert.Zero(t, svc.listCalls)
}

func TestAllMealsParsesDatetime(t *testing.T) {
	svc := &fakeMealService{}
	r := testRouter(mealRoutes(svc))

	w, env := do(t, r, httptest.NewRequest(http.MethodGet, "/meals/all-meals/u1?datetime=2024-02-10T08:30:00Z", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var meals []model.Meal
	require.NoError(t, json.Unmarshal(env.Body, &meals))
	require.Len(t, meals, 1)
	assert.Equal(t, "u1", meals[0].UserID)
	assert.Equal(t, 1, svc.listCalls)
	assert.True(t, svc.listAt.Equal(time.Date(2024, 2, 10, 8, 30, 0, 0, time.UTC)))
}

func TestAddMealPassesEveryImage(t *testing.T) {
	svc := &fakeMealService{}
	r := testRouter(mealRoutes(svc))

	req := multipartRequest(t, "/meals/add-meal",
		map[string]string{"date": "2024-01-05T12:00:00Z", "userId": "u1", "notes": "salad"},
		[]multipartFile{{"images", "a.jpg", "aaa"}, {"images", "b.jpg", "bbb"}},
	)
	w, env := do(t, r, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, []string{"a.jpg", "b.jpg"}, svc.addNames)
	assert.Equal(t, "u1", svc.addInput.UserID)
	require.NotNil(t, svc.addInput.Notes)
	assert.Equal(t, "salad", *svc.addInput.Notes)
	assert.Nil(t, svc.addInput.Type)

	var meal model.Meal
	require.NoError(t, json.Unmarshal(env.Body, &meal))
	assert.Len(t, meal.ImageURLs, 2)
}

func TestAddMealRejectsMoreThanThreeImages(t *testing.T) {
	svc := &fakeMealService{}
	r := testRouter(mealRoutes(svc))

	files := make([]multipartFile, 0, 4)
	for i := 0; i < 4; i++ {
		files = append(files, multipartFile{"images", fmt.Sprintf("%d.jpg", i), "x"})
	}
	req := multipartRequest(t, "/meals/add-meal", map[string]string{"date": "2024-01-05T12:00:00Z", "userId": "u1"}, files)

	w, _ := do(t, r, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.addNames)
}

func TestAddMealRequiresDateAndUser(t *testing.T) {
	svc := &fakeMealService{}
	r := testRouter(mealRoutes(svc))

	w, env := do(t, r, multipartRequest(t, "/meals/add-meal", map[string]string{"notes": "x"}, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Message, "date")
	assert.Contains(t, env.Message, "userId")
}

func TestUpdateMealNotFound(t *testing.T) {
	r := testRouter(mealRoutes(&fakeMealService{updateErr: app.ErrMealNotFound}))

	w, env := do(t, r, jsonRequest(http.MethodPost, "/meals/update-meal", map[string]interface{}{"mealId": 5, "notes": "x"}))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "meal not found", env.Message)
}

func TestUpdateMealValidatesDatetime(t *testing.T) {
	r := testRouter(mealRoutes(&fakeMealService{}))

	w, _ := do(t, r, jsonRequest(http.MethodPost, "/meals/update-meal", map[string]interface{}{"mealId": 5, "datetime": "5 pm"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, jsonRequest(http.MethodPost, "/meals/update-meal", map[string]interface{}{"notes": "x"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuickAddRequiresAudio(t *testing.T) {
	svc := &fakeMealService{}
	r := testRouter(mealRoutes(svc))

	w, env := do(t, r, multipartRequest(t, "/meals/quick-add", map[string]string{"datetime": "2024-01-01T00:00:00Z", "userId": "u1"}, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "audio file is required", env.Message)
	assert.Empty(t, svc.quickInput.UserID)
}

func TestQuickAddStoresGivenDatetime(t *testing.T) {
	svc := &fakeMealService{}
	r := testRouter(mealRoutes(svc))

	req := multipartRequest(t, "/meals/quick-add",
		map[string]string{"datetime": "2024-01-01T00:00:00Z", "userId": "u1"},
		[]multipartFile{{"audio", "note.m4a", "voice"}},
	)
	w, env := do(t, r, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "u1", svc.quickInput.UserID)
	assert.Equal(t, "note.m4a", svc.quickInput.Audio.Name)
	assert.True(t, svc.quickInput.Datetime.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	var meal model.Meal
	require.NoError(t, json.Unmarshal(env.Body, &meal))
	assert.NotEmpty(t, meal.NotesText())
}

func TestParseISO8601(t *testing.T) {
	valid := []string{"2024-01-01T00:00:00Z", "2024-01-01T00:00:00.123Z", "2024-06-01T10:00:00+02:00"}
	for _, s := range valid {
		_, err := ParseISO8601(s)
		assert.NoError(t, err, s)
	}
	for _, s := range []string{"", "2024-01-01", "01/02/2024", "2024-01-01 10:00:00"} {
		_, err := ParseISO8601(s)
		assert.Error(t, err, s)
	}
}
