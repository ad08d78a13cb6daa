package sched

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"trading-academy-platform/internal/domain/model"
	"trading-academy-platform/internal/domain/ports/repository"
	"trading-academy-platform/internal/infra/metrics"
	"trading-academy-platform/internal/infra/worker"
	"trading-academy-platform/internal/usecase"
)

// EmailWorker drains the durable email job queue. Delayed notifications
// (access credentials, welcome guide) are ordinary rows with a future
// RunAt, so pending sends survive restarts.
type EmailWorker struct {
	interval  time.Duration
	batchSize int
	jobs      repository.EmailJobRepository
	notifUC   usecase.NotificationUseCase
	pool      *worker.Pool
	log       *zerolog.Logger
}

func NewEmailWorker(
	interval time.Duration,
	batchSize int,
	jobs repository.EmailJobRepository,
	notifUC usecase.NotificationUseCase,
	pool *worker.Pool,
	logger *zerolog.Logger,
) *EmailWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	compLog := logger.With().Str("component", "EmailWorker").Logger()
	return &EmailWorker{
		interval:  interval,
		batchSize: batchSize,
		jobs:      jobs,
		notifUC:   notifUC,
		pool:      pool,
		log:       &compLog,
	}
}

func (w *EmailWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting email worker")
	// Run once on startup, then on every tick
	w.tick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping email worker")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

// tick sends one batch of due jobs. It waits for the batch to finish so
// the next tick never sees a job that is still in flight.
func (w *EmailWorker) tick(ctx context.Context) {
	due, err := w.jobs.ListDue(ctx, repository.NoTX, time.Now(), w.batchSize)
	if err != nil {
		w.log.Error().Err(err).Msg("list due email jobs failed")
		return
	}
	metrics.SetEmailJobsDue(len(due))
	if len(due) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, job := range due {
		job := job
		wg.Add(1)
		task := func(ctx context.Context) error {
			defer wg.Done()
			w.dispatch(ctx, job)
			return nil
		}
		if err := w.pool.Submit(task); err != nil {
			// queue saturated, run inline rather than dropping the job
			w.dispatch(ctx, job)
			wg.Done()
		}
	}

	// Wait for the batch, but never outlive the shutdown signal. Jobs
	// still unsent stay due and are picked up on the next startup.
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (w *EmailWorker) dispatch(ctx context.Context, job *model.EmailJob) {
	_, err := w.notifUC.Dispatch(ctx, job.TemplateKey, job.Recipient, job.Variables)
	if err != nil {
		if merr := w.jobs.MarkAttemptFailed(ctx, repository.NoTX, job.ID, job.Attempts+1, err.Error()); merr != nil {
			w.log.Error().Err(merr).Str("job_id", job.ID).Msg("mark attempt failed errored")
		}
		w.log.Warn().Err(err).Str("job_id", job.ID).Str("template", job.TemplateKey).Int("attempt", job.Attempts+1).Msg("email job failed")
		return
	}
	if err := w.jobs.MarkSent(ctx, repository.NoTX, job.ID); err != nil {
		w.log.Error().Err(err).Str("job_id", job.ID).Msg("mark sent failed")
	}
}
