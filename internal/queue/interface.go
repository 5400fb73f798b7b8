package queue

import (
	"context"
)

// MessageInterface is a delivered job awaiting acknowledgement
type MessageInterface interface {
	Ack() error
	Nack(requeue bool) error
	GetJob() *Job
}

// JobQueue is the interface for job queues
type JobQueue interface {
	// Enqueue publishes a job. Jobs with a future NotBefore are delayed.
	Enqueue(ctx context.Context, job *Job) error

	// Consume streams deliveries until ctx is cancelled or the connection
	// drops. prefetchCount bounds unacknowledged messages per consumer. The
	// caller must Ack or Nack every message.
	Consume(ctx context.Context, prefetchCount int) (<-chan MessageInterface, <-chan error, error)

	// Close closes the queue connection
	Close() error

	// HealthCheck verifies the queue connection is healthy
	HealthCheck(ctx context.Context) error
}
