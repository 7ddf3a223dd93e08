package app

import (
	"context"
	"sync"
)

// DynamicLimiter borne le nombre de téléchargements audio simultanés.
// Les attentes sont servies dans l'ordre d'arrivée, donc les versets partent dans l'ordre.
// Le plafond peut changer à chaud (SetLimit).
type DynamicLimiter struct {
	mu       sync.Mutex
	limit    int
	inFlight int
	waiters  []chan struct{}
}

func NewDynamicLimiter(limit int) *DynamicLimiter {
	return &DynamicLimiter{limit: max(limit, 1)}
}

func (l *DynamicLimiter) Limit() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limit
}

func (l *DynamicLimiter) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inFlight
}

// Waiting renvoie le nombre d'appels bloqués dans Acquire.
func (l *DynamicLimiter) Waiting() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.waiters)
}

func (l *DynamicLimiter) SetLimit(limit int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limit = max(limit, 1)
	l.grantLocked()
}

func (l *DynamicLimiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	if len(l.waiters) == 0 && l.inFlight < l.limit {
		l.inFlight++
		l.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	l.waiters = append(l.waiters, ch)
	l.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for i, w := range l.waiters {
		if w == ch {
			l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
			return ctx.Err()
		}
	}
	// Place accordée entre-temps: on la rend.
	l.inFlight--
	l.grantLocked()
	return ctx.Err()
}

func (l *DynamicLimiter) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inFlight > 0 {
		l.inFlight--
	}
	l.grantLocked()
}

// Do exécute fn en tenant une place.
func (l *DynamicLimiter) Do(ctx context.Context, fn func() error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn()
}

func (l *DynamicLimiter) grantLocked() {
	for l.inFlight < l.limit && len(l.waiters) > 0 {
		next := l.waiters[0]
		l.waiters = l.waiters[1:]
		l.inFlight++
		close(next)
	}
}
