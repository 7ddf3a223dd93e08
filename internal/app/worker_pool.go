package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/hidaya/internal/ports"
)

// WorkerPool fait tourner les workers de préchargement hors-ligne.
// SetCount ajuste leur nombre à chaud; un worker retiré voit son contexte annulé,
// ce qui interrompt aussi le job en cours.
type WorkerPool struct {
	parent context.Context
	logger zerolog.Logger
	repo   ports.JobRepository
	bus    ports.EventBus
	opts   WorkerOptions

	mu      sync.Mutex
	workers []poolWorker
	nextID  int
	wg      sync.WaitGroup
}

type poolWorker struct {
	id     int
	cancel context.CancelFunc
}

func NewWorkerPool(parent context.Context, logger zerolog.Logger, repo ports.JobRepository, bus ports.EventBus, opts WorkerOptions) *WorkerPool {
	if parent == nil {
		parent = context.Background()
	}
	return &WorkerPool{parent: parent, logger: logger, repo: repo, bus: bus, opts: opts}
}

func (p *WorkerPool) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

func (p *WorkerPool) SetCount(n int) {
	n = max(n, 1)

	p.mu.Lock()
	current := len(p.workers)
	if n == current {
		p.mu.Unlock()
		return
	}
	p.logger.Info().Int("from", current).Int("to", n).Msg("resizing worker pool")

	var retired []poolWorker
	if n > current {
		for range n - current {
			p.spawnLocked()
		}
	} else {
		retired = append(retired, p.workers[n:]...)
		p.workers = p.workers[:n]
	}
	p.mu.Unlock()

	for _, w := range retired {
		w.cancel()
	}
}

// Close arrête tous les workers et attend leur sortie.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	all := p.workers
	p.workers = nil
	p.mu.Unlock()

	for _, w := range all {
		w.cancel()
	}
	p.wg.Wait()
}

func (p *WorkerPool) spawnLocked() {
	p.nextID++
	ctx, cancel := context.WithCancel(p.parent)
	w := poolWorker{id: p.nextID, cancel: cancel}
	p.workers = append(p.workers, w)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		NewWorker(p.logger.With().Int("worker", w.id).Logger(), p.repo, p.bus, p.opts).Run(ctx)
	}()
}
