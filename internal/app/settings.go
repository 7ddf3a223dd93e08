package app

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
	"sync"

	"github.com/Guilhem-Bonnet/hidaya/internal/domain"
	"github.com/Guilhem-Bonnet/hidaya/internal/ports"
)

const TopicSettingsUpdated = "settings.updated"

type SettingsService struct {
	repo ports.SettingsRepository
	bus  ports.EventBus

	mu    sync.Mutex
	hooks []func(previous, updated domain.Settings)
}

func NewSettingsService(repo ports.SettingsRepository, bus ports.EventBus) *SettingsService {
	return &SettingsService{repo: repo, bus: bus}
}

// OnChange enregistre un hook appelé après chaque Put réussi.
func (s *SettingsService) OnChange(fn func(previous, updated domain.Settings)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.hooks = append(s.hooks, fn)
	s.mu.Unlock()
}

func (s *SettingsService) Get(ctx context.Context) (domain.Settings, error) {
	return s.repo.Get(ctx)
}

func (s *SettingsService) Put(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	previous, err := s.repo.Get(ctx)
	if err != nil {
		return domain.Settings{}, err
	}

	updated, err := s.repo.Put(ctx, Normalize(settings))
	if err != nil {
		return domain.Settings{}, err
	}

	s.mu.Lock()
	hooks := slices.Clone(s.hooks)
	s.mu.Unlock()
	for _, h := range hooks {
		h(previous, updated)
	}

	if s.bus != nil {
		if b, err := json.Marshal(updated); err == nil {
			s.bus.Publish(TopicSettingsUpdated, b)
		}
	}
	return updated, nil
}

// Update applique fn sur les réglages courants puis les persiste.
func (s *SettingsService) Update(ctx context.Context, fn func(*domain.Settings)) (domain.Settings, error) {
	current, err := s.repo.Get(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	fn(&current)
	return s.Put(ctx, current)
}

// Normalize ramène les valeurs hors bornes à des valeurs sûres.
func Normalize(settings domain.Settings) domain.Settings {
	def := domain.DefaultSettings()
	settings.Reciter = strings.TrimSpace(settings.Reciter)
	if settings.Reciter == "" {
		settings.Reciter = def.Reciter
	}
	if settings.Speed <= 0 {
		settings.Speed = def.Speed
	}
	if settings.Speed > domain.MaxSpeed {
		settings.Speed = domain.MaxSpeed
	}
	if settings.Volume < 0 {
		settings.Volume = 0
	}
	if settings.Volume > 1 {
		settings.Volume = 1
	}
	return settings
}
