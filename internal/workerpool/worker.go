package workerpool

import (
	"context"
	"strconv"
	"time"

	"minicode/internal/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// JobRunner is what a worker does with a claimed submission id; in
// production it is the evaluation orchestrator.
type JobRunner interface {
	Run(ctx context.Context, submissionID int) error
}

const (
	// A pending entry idle this long is assumed orphaned by a dead or
	// stuck consumer and becomes claimable by any worker.
	reclaimMinIdle = time.Minute
	reclaimEvery   = 30 * time.Second
)

type Worker struct {
	id     string
	quit   chan bool
	rdb    *redis.Client
	stream string
	group  string
	runner JobRunner

	reclaimMinIdle time.Duration
	reclaimEvery   time.Duration
}

func NewWorker(id string, rdb *redis.Client, stream, group string, runner JobRunner) *Worker {
	return &Worker{
		id:             id,
		quit:           make(chan bool),
		rdb:            rdb,
		stream:         stream,
		group:          group,
		runner:         runner,
		reclaimMinIdle: reclaimMinIdle,
		reclaimEvery:   reclaimEvery,
	}
}

// Start begins consuming evaluation jobs from the stream.
func (w *Worker) Start(ctx context.Context) {
	go func() {
		lastReclaim := time.Now()
		for {
			select {
			case <-w.quit:
				return
			default:
				if time.Since(lastReclaim) >= w.reclaimEvery {
					w.reclaimStale(ctx)
					lastReclaim = time.Now()
				}

				entries, err := w.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
					Group:    w.group,
					Consumer: w.id,
					Streams:  []string{w.stream, ">"},
					Count:    1,
					Block:    5 * time.Second,
				}).Result()

				if err != nil {
					if err != redis.Nil && ctx.Err() == nil {
						logger.Log.Error("Redis operation failed",
							zap.String("worker_id", w.id),
							zap.Error(err))
					}
					continue
				}

				for _, stream := range entries {
					for _, msg := range stream.Messages {
						w.processJob(ctx, msg)
					}
				}
			}
		}
	}()
}

func (w *Worker) Stop() {
	logger.Log.Info("Closing worker",
		zap.String("worker_id", w.id))
	w.quit <- true
	close(w.quit)
}

// reclaimStale takes over pending entries whose consumer stopped
// acknowledging them and runs them here. Redelivery is safe because the
// orchestrator skips submissions that already reached a terminal state.
func (w *Worker) reclaimStale(ctx context.Context) {
	msgs, _, err := w.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   w.stream,
		Group:    w.group,
		Consumer: w.id,
		MinIdle:  w.reclaimMinIdle,
		Start:    "0-0",
		Count:    10,
	}).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			logger.Log.Error("Failed to reclaim stale jobs",
				zap.String("worker_id", w.id),
				zap.Error(err))
		}
		return
	}

	for _, msg := range msgs {
		logger.Log.Warn("Reclaimed stale evaluation job",
			zap.String("worker_id", w.id),
			zap.String("job_id", msg.ID))
		w.processJob(ctx, msg)
	}
}

// processJob runs the orchestrator for one claimed submission. The job is
// acknowledged only after the run finishes, so an interrupted worker leaves
// the entry pending for reclaim instead of losing it.
func (w *Worker) processJob(ctx context.Context, msg redis.XMessage) {
	logger.Log.Info("Processing evaluation job",
		zap.String("worker_id", w.id),
		zap.String("job_id", msg.ID))

	submissionIDStr, ok := msg.Values["submission_id"].(string)
	if !ok {
		logger.Log.Error("Invalid submission ID in message",
			zap.String("worker_id", w.id),
			zap.Any("values", msg.Values))
		w.ack(ctx, msg)
		return
	}

	submissionID, err := strconv.Atoi(submissionIDStr)
	if err != nil {
		logger.Log.Error("Failed to parse submission ID",
			zap.String("worker_id", w.id),
			zap.String("submission_id", submissionIDStr),
			zap.Error(err))
		w.ack(ctx, msg)
		return
	}

	if err := w.runner.Run(ctx, submissionID); err != nil {
		// Leave the entry pending; a reclaim pass retries it. Acking a
		// failed run would drop the submission with no terminal record.
		logger.Log.Error("Evaluation job failed, leaving pending for retry",
			zap.String("worker_id", w.id),
			zap.Int("submission_id", submissionID),
			zap.Error(err))
		return
	}

	w.ack(ctx, msg)

	logger.Log.Info("Finished evaluation job",
		zap.String("worker_id", w.id),
		zap.String("job_id", msg.ID))
}

func (w *Worker) ack(ctx context.Context, msg redis.XMessage) {
	if err := w.rdb.XAck(ctx, w.stream, w.group, msg.ID).Err(); err != nil {
		logger.Log.Error("Failed to acknowledge job",
			zap.String("worker_id", w.id),
			zap.Error(err))
	}
}
