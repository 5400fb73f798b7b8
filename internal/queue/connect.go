package queue

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	connectMaxRetries   = 10
	connectInitialDelay = 2 * time.Second
	connectMaxDelay     = 30 * time.Second
)

// ConnectRabbitMQ dials the broker with exponential backoff to ride out
// broker startup
func ConnectRabbitMQ(ctx context.Context, amqpURL string, logger *zap.Logger) (*RabbitMQQueue, error) {
	return connectWithRetry(ctx, logger, connectMaxRetries, connectInitialDelay, func() (*RabbitMQQueue, error) {
		return NewRabbitMQQueue(amqpURL, logger)
	})
}

func connectWithRetry[T any](ctx context.Context, logger *zap.Logger, maxRetries int, initialDelay time.Duration, dial func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		conn, err := dial()
		if err == nil {
			logger.Info("connected_to_rabbitmq", zap.Int("attempt", attempt+1))
			return conn, nil
		}
		lastErr = err

		delay := min(initialDelay*time.Duration(1<<attempt), connectMaxDelay)
		logger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Duration("retry_delay", delay),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}
	return zero, lastErr
}
