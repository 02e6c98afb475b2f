package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"mealtrack-bff/internal/model"
	"mealtrack-bff/internal/platform/rabbitmq"
)

type EmbeddingJobHandler interface {
	HandleEmbeddingJob(ctx context.Context, job model.EmbeddingJob) error
}

// EmbeddingWorker consumes embedding jobs one at a time. Failed jobs are
// dropped (nack without requeue) and logged; nothing retries them.
type EmbeddingWorker struct {
	conn      *amqp.Connection
	handler   EmbeddingJobHandler
	queueName string
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewEmbeddingWorker(conn *amqp.Connection, handler EmbeddingJobHandler, queueName string, logger *zap.Logger) *EmbeddingWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmbeddingWorker{
		conn:      conn,
		handler:   handler,
		queueName: queueName,
		logger:    logger,
	}
}

func (w *EmbeddingWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if _, err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}

	// Each job makes several LLM calls; holding more than one unacked
	// delivery only delays the others.
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				w.process(workerCtx, d)
			}
		}
	}()

	w.logger.Info("embedding worker started", zap.String("queue", w.queueName))
	return nil
}

func (w *EmbeddingWorker) process(ctx context.Context, d amqp.Delivery) {
	var job model.EmbeddingJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		w.logger.Error("worker decode embedding job failed", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	if err := w.handler.HandleEmbeddingJob(ctx, job); err != nil {
		w.logger.Error("worker generate embedding failed",
			zap.Int64("meal_id", job.MealID),
			zap.String("user_id", job.UserID),
			zap.Error(err),
		)
		_ = d.Nack(false, false)
		return
	}

	_ = d.Ack(false)
}

func (w *EmbeddingWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
