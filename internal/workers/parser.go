package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/keisuke70/tasklazy/internal/database"
	"github.com/keisuke70/tasklazy/internal/queue"
	"github.com/keisuke70/tasklazy/internal/services/ai"
	"github.com/keisuke70/tasklazy/internal/telemetry"
	"github.com/keisuke70/tasklazy/internal/validation"
)

// ErrUnknownJobType is returned for jobs this worker does not handle
var ErrUnknownJobType = errors.New("unknown job type")

// TaskParseWorker turns queued free-text descriptions into stored tasks
type TaskParseWorker struct {
	parser ai.TaskParser
	tasks  database.TaskRepositoryInterface
	queue  queue.JobQueue
	logger *zap.Logger
}

// NewTaskParseWorker creates a parse worker
func NewTaskParseWorker(parser ai.TaskParser, tasks database.TaskRepositoryInterface, jobQueue queue.JobQueue, logger *zap.Logger) *TaskParseWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskParseWorker{
		parser: parser,
		tasks:  tasks,
		queue:  jobQueue,
		logger: logger,
	}
}

// ParseAndStore runs one parse job to completion and returns the stored task ID
func (w *TaskParseWorker) ParseAndStore(ctx context.Context, job *queue.Job) (string, error) {
	payload, err := job.ParseTaskPayload()
	if err != nil {
		return "", err
	}

	parsed, err := w.parser.ParseTask(ctx, ai.ParseRequest{
		Description: payload.Description,
		TimeZone:    payload.TimeZone,
		Now:         payload.RequestedAt,
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse task: %w", err)
	}

	task := parsed.ToTask(job.UserID)
	task.Name = validation.SanitizeTaskName(task.Name)
	if task.Name == "" {
		return "", ai.ErrEmptyTaskName
	}
	if err := w.tasks.Create(ctx, task); err != nil {
		return "", fmt.Errorf("failed to store parsed task: %w", err)
	}
	return task.ID.String(), nil
}

// ProcessJob handles one delivery and settles it with the broker
func (w *TaskParseWorker) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	ctx = telemetry.ExtractHeaders(ctx, job.TraceContext)
	ctx, span := telemetry.StartSpan(ctx, "worker.process_job",
		attribute.String("job.id", job.ID.String()),
		attribute.String("job.type", string(job.Type)),
		attribute.Int("job.retry_count", job.RetryCount),
	)

	if job.Type != queue.JobTypeParseTask {
		err := fmt.Errorf("%w: %s", ErrUnknownJobType, job.Type)
		telemetry.EndSpan(span, err)
		if nackErr := msg.Nack(false); nackErr != nil {
			w.logger.Warn("job_nack_failed", zap.String("job_id", job.ID.String()), zap.Error(nackErr))
		}
		return err
	}

	taskID, err := w.ParseAndStore(ctx, job)
	telemetry.EndSpan(span, err)
	if err != nil {
		return w.handleJobError(ctx, msg, job, err)
	}

	w.logger.Info("task_parsed",
		zap.String("job_id", job.ID.String()),
		zap.String("user_id", job.UserID.String()),
		zap.String("task_id", taskID),
	)
	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack job: %w", ackErr)
	}
	return nil
}

// handleJobError retries throttled jobs with a delay and dead-letters the rest
func (w *TaskParseWorker) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, jobErr error) error {
	fields := []zap.Field{
		zap.String("job_id", job.ID.String()),
		zap.Int("retry_count", job.RetryCount),
		zap.Error(jobErr),
	}

	if (ai.IsRateLimitError(jobErr) || ai.IsQuotaError(jobErr)) && job.CanRetry() {
		delay := ai.GetRetryDelay(jobErr, job.RetryCount)
		retry := job.RetryAfter(delay)
		if err := w.queue.Enqueue(ctx, retry); err != nil {
			w.logger.Error("job_retry_enqueue_failed", append(fields, zap.NamedError("enqueue_error", err))...)
			if nackErr := msg.Nack(true); nackErr != nil {
				return fmt.Errorf("failed to nack job: %w", nackErr)
			}
			return fmt.Errorf("failed to re-enqueue job: %w", err)
		}
		w.logger.Warn("job_retry_scheduled", append(fields, zap.Duration("delay", delay))...)
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack retried job: %w", ackErr)
		}
		return nil
	}

	w.logger.Error("job_failed", fields...)
	if nackErr := msg.Nack(false); nackErr != nil {
		return fmt.Errorf("failed to nack job: %w", nackErr)
	}
	return fmt.Errorf("parse job failed: %w", jobErr)
}

// Run consumes jobs until ctx is cancelled or the delivery stream closes
func (w *TaskParseWorker) Run(ctx context.Context, prefetch int) error {
	msgs, errs, err := w.queue.Consume(ctx, prefetch)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.logger.Error("queue_error", zap.Error(err))
		case msg, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("message channel closed")
			}
			start := time.Now()
			if err := w.ProcessJob(ctx, msg); err != nil {
				w.logger.Warn("job_not_processed",
					zap.String("job_id", msg.GetJob().ID.String()),
					zap.Duration("elapsed", time.Since(start)),
					zap.Error(err),
				)
			}
		}
	}
}
