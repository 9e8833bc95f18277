package workerpool

import (
	"context"
	"fmt"

	"minicode/internal/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// SubmissionStream carries pending submission ids from the submit
	// handler to the evaluation workers.
	SubmissionStream = "submissions"
	ConsumerGroup    = "evaluators"
)

// Enqueue publishes a submission for evaluation.
func Enqueue(ctx context.Context, rdb *redis.Client, submissionID int) error {
	err := rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: SubmissionStream,
		ID:     "*",
		Values: map[string]interface{}{
			"submission_id": fmt.Sprintf("%d", submissionID),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to enqueue submission %d: %w", submissionID, err)
	}
	return nil
}

type WorkerPool struct {
	workers    []*Worker
	numWorkers int
	rdb        *redis.Client
	stream     string
	group      string
	runner     JobRunner
}

func NewWorkerPool(numWorkers int, rdb *redis.Client, stream, group string, runner JobRunner) *WorkerPool {
	return &WorkerPool{
		workers:    make([]*Worker, numWorkers),
		numWorkers: numWorkers,
		rdb:        rdb,
		stream:     stream,
		group:      group,
		runner:     runner,
	}
}

func (p *WorkerPool) Start(ctx context.Context) error {
	// Create consumer group if it doesn't exist
	_, err := p.rdb.XGroupCreateMkStream(ctx, p.stream, p.group, "$").Result()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	for i := 0; i < p.numWorkers; i++ {
		worker := NewWorker(
			fmt.Sprintf("evaluator-%d-%s", i+1, uuid.NewString()[:8]),
			p.rdb,
			p.stream,
			p.group,
			p.runner,
		)

		worker.Start(ctx)
		p.workers[i] = worker

		logger.Log.Info("Starting evaluation worker",
			zap.String("worker_id", worker.id))
	}

	logger.Log.Info("Evaluation worker pool started",
		zap.Int("num_workers", p.numWorkers))

	return nil
}

// Stop terminates all workers in the pool
func (p *WorkerPool) Stop() {
	for _, worker := range p.workers {
		worker.Stop()
	}
}
