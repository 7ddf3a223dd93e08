package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/hidaya/internal/domain"
	"github.com/Guilhem-Bonnet/hidaya/internal/ports"
)

type WorkerOptions struct {
	PollInterval time.Duration
	Executors    ExecutorRegistry
	// ProgressStep: écart minimal de progression avant d'écrire en base et de publier.
	ProgressStep float64
}

func DefaultWorkerOptions() WorkerOptions {
	return WorkerOptions{
		PollInterval: 750 * time.Millisecond,
		Executors:    NewExecutorRegistry(nil),
		ProgressStep: 0.01,
	}
}

// Worker exécute les jobs "queued" un par un. Après un job, il réessaie tout de suite
// au lieu d'attendre le prochain tick, pour vider la file.
type Worker struct {
	logger zerolog.Logger
	repo   ports.JobRepository
	bus    ports.EventBus
	opts   WorkerOptions
}

func NewWorker(logger zerolog.Logger, repo ports.JobRepository, bus ports.EventBus, opts WorkerOptions) *Worker {
	def := DefaultWorkerOptions()
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if opts.Executors.byType == nil {
		opts.Executors = def.Executors
	}
	if opts.ProgressStep < 0 {
		opts.ProgressStep = 0
	}
	return &Worker{logger: logger, repo: repo, bus: bus, opts: opts}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for w.runNext(ctx) {
			}
		}
	}
}

// runNext renvoie true si un job a été exécuté.
func (w *Worker) runNext(ctx context.Context) bool {
	job, err := w.repo.ClaimNextQueued(ctx)
	if err != nil {
		if !errors.Is(err, ErrNotFound) && ctx.Err() == nil {
			w.logger.Error().Err(err).Msg("claim next job failed")
		}
		return false
	}
	w.execute(ctx, job)
	return ctx.Err() == nil
}

func (w *Worker) execute(ctx context.Context, job domain.Job) {
	logger := w.logger.With().Str("job_id", job.ID).Str("type", job.Type).Logger()
	logger.Info().Msg("job claimed")
	PublishJobEvent(w.bus, TopicJobStarted, job)

	exec, ok := w.opts.Executors.Get(job.Type)
	if !ok {
		w.fail(ctx, logger, job.ID, coded(CodeInvalidParams, "no executor for job type "+job.Type, nil))
		return
	}

	reported := 0.0
	env := ExecEnv{
		UpdateProgress: func(progress float64) error {
			if progress < 1 && progress-reported < w.opts.ProgressStep {
				return nil
			}
			reported = progress
			updated, err := w.repo.UpdateProgress(ctx, job.ID, progress)
			if err != nil {
				return err
			}
			PublishJobEvent(w.bus, TopicJobProgress, updated)
			return nil
		},
		UpdateResult: func(result []byte) error {
			_, err := w.repo.UpdateResult(ctx, job.ID, result)
			return err
		},
		IsCanceled: func() (bool, error) {
			current, err := w.repo.Get(ctx, job.ID)
			if err != nil {
				return false, err
			}
			return current.State == domain.JobCanceled, nil
		},
	}
	// Les exécuteurs peuvent appeler UpdateProgress depuis plusieurs goroutines.
	env.UpdateProgress = serialize(env.UpdateProgress)

	if err := exec.Execute(ctx, job, env); err != nil {
		w.fail(ctx, logger, job.ID, err)
		return
	}

	canceled, err := env.IsCanceled()
	if err != nil {
		logger.Error().Err(err).Msg("failed to reload job")
		return
	}
	if canceled {
		logger.Info().Msg("job canceled")
		return
	}
	w.complete(ctx, logger, job.ID)
}

// complete respecte running -> finishing -> completed.
func (w *Worker) complete(ctx context.Context, logger zerolog.Logger, id string) {
	phase, err := w.repo.UpdateState(ctx, id, domain.JobRunning, domain.JobFinishing)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to mark job finishing")
		return
	}
	PublishJobEvent(w.bus, TopicJobFinishing, phase)

	if _, err := w.repo.UpdateProgress(ctx, id, 1); err != nil {
		logger.Warn().Err(err).Msg("failed to record final progress")
	}
	finished, err := w.repo.UpdateState(ctx, id, domain.JobFinishing, domain.JobCompleted)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to mark job completed")
		return
	}
	logger.Info().Msg("job completed")
	PublishJobEvent(w.bus, TopicJobCompleted, finished)
}

func (w *Worker) fail(ctx context.Context, logger zerolog.Logger, id string, cause error) {
	logger.Error().Err(cause).Msg("executor failed")
	code := ErrorCode(cause)
	if code == "" {
		code = "executor_failed"
	}
	if _, err := w.repo.UpdateError(ctx, id, code, cause.Error()); err != nil {
		logger.Warn().Err(err).Msg("failed to record job error")
	}
	failed, err := w.repo.UpdateState(ctx, id, domain.JobRunning, domain.JobFailed)
	if err != nil {
		// Annulé entre-temps: l'état "canceled" est conservé.
		return
	}
	PublishJobEvent(w.bus, TopicJobFailed, failed)
}

func serialize(fn func(float64) error) func(float64) error {
	var mu sync.Mutex
	return func(v float64) error {
		mu.Lock()
		defer mu.Unlock()
		return fn(v)
	}
}
