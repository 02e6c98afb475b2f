package http

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mealtrack-bff/internal/bootstrap"
	"mealtrack-bff/internal/platform/rabbitmq"
	"mealtrack-bff/internal/transport/http/handler"
	"mealtrack-bff/internal/transport/http/middleware"
)

type Handlers struct {
	Health   *handler.HealthHandler
	Meals    *handler.MealHandler
	Insights *handler.InsightsHandler
	Workouts *handler.WorkoutsHandler
}

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)

	checks := map[string]handler.Check{
		"postgres": func(ctx context.Context) error {
			sqlDB, err := app.Postgres.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"rabbitmq": func(ctx context.Context) error {
			return rabbitmq.Ping(app.MQConn)
		},
	}
	if app.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return app.Redis.Ping(ctx).Err()
		}
	}

	return newEngine(app.Config.Auth.JWTSecret, app.Logger, Handlers{
		Health:   handler.NewHealthHandler(app.Config.App.Name, app.Config.App.Env, app.StartedAt, checks),
		Meals:    handler.NewMealHandler(app.Meals),
		Insights: handler.NewInsightsHandler(app.Insights),
		Workouts: handler.NewWorkoutsHandler(app.Workouts),
	})
}

func newEngine(jwtSecret string, logger *zap.Logger, h Handlers) *gin.Engine {
	handler.RegisterValidators()

	router := gin.New()
	router.MaxMultipartMemory = 32 << 20
	router.Use(
		middleware.RequestLogger(logger),
		middleware.Recovery(logger),
		cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:    []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
			ExposeHeaders:   []string{middleware.RequestIDHeader},
			MaxAge:          12 * time.Hour,
		}),
		middleware.ErrorHandler(logger),
	)
	router.NoRoute(middleware.NotFound)

	router.GET("/", h.Health.Hello)
	router.GET("/healthz", h.Health.Check)

	auth := middleware.AuthBearer(jwtSecret)

	meals := router.Group("/meals", auth)
	meals.GET("/all-meals/:userId", h.Meals.AllMeals)
	meals.POST("/add-meal", h.Meals.AddMeal)
	meals.POST("/update-meal", h.Meals.UpdateMeal)
	meals.POST("/quick-add", h.Meals.QuickAdd)

	insights := router.Group("/insights", auth)
	insights.GET("/messages/:userId", h.Insights.GetMessages)
	insights.POST("/send-message", h.Insights.SendMessage)
	insights.POST("/ask-question", h.Insights.AskQuestion)

	workouts := router.Group("/workouts", auth)
	workouts.POST("/create-strava-access-token", h.Workouts.CreateStravaAccessToken)
	workouts.GET("/strava-activities/:userId", h.Workouts.StravaActivities)

	return router
}
