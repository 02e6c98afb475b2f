package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"mealtrack-bff/internal/ai"
	"mealtrack-bff/internal/app"
	"mealtrack-bff/internal/cache"
	"mealtrack-bff/internal/config"
	"mealtrack-bff/internal/lock"
	"mealtrack-bff/internal/objectstore"
	"mealtrack-bff/internal/platform/logger"
	postgresClient "mealtrack-bff/internal/platform/postgres"
	rabbitmqClient "mealtrack-bff/internal/platform/rabbitmq"
	redisClient "mealtrack-bff/internal/platform/redis"
	"mealtrack-bff/internal/repository"
	"mealtrack-bff/internal/strava"
	"mealtrack-bff/internal/worker"
)

type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Postgres *gorm.DB
	Redis    *redis.Client
	MQConn   *amqp.Connection

	Meals           *app.MealService
	Insights        *app.InsightsService
	Workouts        *app.WorkoutService
	EmbeddingWorker *worker.EmbeddingWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: log, StartedAt: time.Now()}
	if err := a.init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	db, err := postgresClient.New(ctx, cfg.PostgresDSN())
	if err != nil {
		return err
	}
	a.Postgres = db
	// The hosted schema is managed outside this service; migrating is only for
	// local databases.
	if cfg.Postgres.AutoMigrate {
		if err := postgresClient.Migrate(db); err != nil {
			return err
		}
	}

	// Redis only backs the thread cache and the cross-replica refresh lock.
	var (
		threadCache app.ThreadCache
		locker      strava.Locker
	)
	redisCli, err := redisClient.New(ctx, redisClient.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		a.Logger.Warn("redis unavailable, running without thread cache and refresh lock", zap.Error(err))
	} else {
		a.Redis = redisCli
		threadCache = cache.NewThreadCache(
			redisCli,
			time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
			time.Duration(cfg.Redis.HistoryDirtyTTLSeconds)*time.Second,
		)
		locker = lock.NewRedisLocker(redisCli, time.Duration(cfg.Redis.LockTTLSeconds)*time.Second)
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return err
	}
	a.MQConn = mqConn

	store, err := objectstore.New(ctx, objectstore.Options{
		Endpoint:        cfg.Storage.Endpoint,
		Region:          cfg.Storage.Region,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		Bucket:          cfg.Storage.Bucket,
		PublicBaseURL:   cfg.Storage.PublicBaseURL,
	})
	if err != nil {
		return err
	}

	llm := ai.NewClient(ai.Config{
		BaseURL:            cfg.LLM.BaseURL,
		APIKey:             cfg.LLM.APIKey,
		ChatModel:          cfg.LLM.ChatModel,
		VisionModel:        cfg.LLM.VisionModel,
		EmbeddingModel:     cfg.LLM.EmbeddingModel,
		TranscriptionModel: cfg.LLM.TranscriptionModel,
		AssistantID:        cfg.LLM.AssistantID,
	})

	gw := repository.NewGateway(db, cfg.Auth.DefaultRole, cfg.Auth.ServiceRole)
	mealRepo := repository.NewMealRepository(gw)
	embeddingRepo := repository.NewMealEmbeddingRepository(gw)
	threadRepo := repository.NewMessageThreadRepository(gw)
	tokenRepo := repository.NewStravaTokenRepository(gw)

	stravaHTTP := &http.Client{Timeout: 15 * time.Second}
	broker := strava.NewBroker(
		tokenRepo,
		strava.NewOAuthClient(cfg.Strava.ClientID, cfg.Strava.ClientSecret, cfg.Strava.TokenURL, stravaHTTP),
		locker,
		a.Logger.Named("strava"),
	)

	publisher := rabbitmqClient.NewEmbeddingPublisher(mqConn, cfg.RabbitMQ.EmbeddingQueue)
	poller := app.NewRunPoller(llm, cfg.PollInterval(), cfg.RunTimeout(), a.Logger.Named("assistant"))

	a.Workouts = app.NewWorkoutService(broker, strava.NewAPIClient(cfg.Strava.APIBaseURL, stravaHTTP))
	a.Meals = app.NewMealService(mealRepo, store, publisher, llm, llm, a.Logger.Named("meals"))
	a.Insights = app.NewInsightsService(
		threadRepo,
		threadCache,
		llm,
		poller,
		mealRepo,
		a.Workouts,
		embeddingRepo,
		llm,
		llm,
		a.Logger.Named("insights"),
	)

	embeddings := app.NewEmbeddingService(mealRepo, embeddingRepo, llm, llm, a.Logger.Named("embeddings"))
	a.EmbeddingWorker = worker.NewEmbeddingWorker(mqConn, embeddings, cfg.RabbitMQ.EmbeddingQueue, a.Logger.Named("worker"))
	if err := a.EmbeddingWorker.Start(ctx); err != nil {
		return fmt.Errorf("start embedding worker failed: %w", err)
	}
	return nil
}

func (a *App) Close() error {
	var closeErr error
	if a.EmbeddingWorker != nil {
		a.EmbeddingWorker.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Postgres != nil {
		sqlDB, err := a.Postgres.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return closeErr
}
