package service

import (
	"bitwise74/sketch-api/pkg/util"
	"context"
	"sync/atomic"

	"go.uber.org/zap"
)

type GenerationJob struct {
	ID     string
	UserID string // Empty for guests
	Run    func(ctx context.Context) error
	Ctx    context.Context
	Done   chan error
}

// JobQueue bounds how many gateway calls run at once and how many may wait
type JobQueue struct {
	jobs    chan *GenerationJob
	running atomic.Int32
	workers int
}

// NewJobQueue initializes a new job queue that limits the
// max amount of jobs that can be queued at once
func NewJobQueue(workers, maxJobs int) *JobQueue {
	zap.L().Debug("Initializing job queue", zap.Int("workers", workers), zap.Int("max_jobs", maxJobs))

	return &JobQueue{
		jobs:    make(chan *GenerationJob, maxJobs),
		workers: max(workers, 1),
	}
}

// StartWorkerPool starts the workers, they exit once ctx is done
func (q *JobQueue) StartWorkerPool(ctx context.Context) {
	for range q.workers {
		go q.worker(ctx)
	}
}

func (q *JobQueue) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.jobs:
			q.run(job)
		}
	}
}

func (q *JobQueue) run(job *GenerationJob) {
	defer q.running.Add(-1)

	// The caller gave up while the job was waiting
	if err := job.Ctx.Err(); err != nil {
		job.Done <- err
		close(job.Done)
		return
	}

	err := job.Run(job.Ctx)

	job.Done <- err
	close(job.Done)

	if err != nil {
		zap.L().Error("Generation job finished with an error",
			zap.String("user_id", job.UserID),
			zap.String("job_id", job.ID),
			zap.Error(err))
	} else {
		zap.L().Debug("Generation job finished successfully", zap.String("job_id", job.ID))
	}
}

func (q *JobQueue) Enqueue(job *GenerationJob) error {
	q.running.Add(1)

	select {
	case q.jobs <- job:
		zap.L().Debug("New generation job enqueued", zap.Int32("enqueued", q.running.Load()), zap.String("user_id", job.UserID))
		return nil
	default:
		q.running.Add(-1)
		return ErrQueueFull
	}
}

// Do enqueues fn and waits until it finished or ctx is done
func (q *JobQueue) Do(ctx context.Context, userID string, fn func(ctx context.Context) error) error {
	job := &GenerationJob{
		ID:     util.RandStr(5),
		UserID: userID,
		Run:    fn,
		Ctx:    ctx,
		Done:   make(chan error, 1),
	}

	if err := q.Enqueue(job); err != nil {
		return err
	}

	select {
	case err := <-job.Done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the amount of jobs queued or running
func (q *JobQueue) Pending() int32 {
	return q.running.Load()
}
