package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/hidaya/internal/domain"
	"github.com/Guilhem-Bonnet/hidaya/internal/ports"
)

const (
	TopicPrayerUpdated = "prayer.updated"
	TopicPrayerNext    = "prayer.next"
)

const locateTimeout = 5 * time.Second

// Origine de la position utilisée pour les horaires.
const (
	LocationExplicit   = "explicit"
	LocationConfigured = "configured"
	LocationDetected   = "detected"
	LocationFallback   = "fallback"
)

type PrayerSlot struct {
	Name    string `json:"name"`
	Time    string `json:"time"`
	Display string `json:"display"`
	Next    bool   `json:"next"`
}

type PrayerTimes struct {
	Location       domain.Coordinates `json:"location"`
	LocationSource string             `json:"locationSource"`
	Date           string             `json:"date"`
	Prayers        []PrayerSlot       `json:"prayers"`
	NextIndex      int                `json:"nextIndex"`

	schedule domain.Schedule
}

type PrayerServiceOptions struct {
	// Coordonnées fixées par la configuration (prioritaires sur la géolocalisation IP).
	Configured *domain.Coordinates
	Bus        ports.EventBus
}

type PrayerService struct {
	logger     zerolog.Logger
	provider   ports.PrayerTimeProvider
	locator    ports.Locator
	configured *domain.Coordinates
	bus        ports.EventBus
	now        func() time.Time

	mu   sync.Mutex
	last *PrayerTimes
}

func NewPrayerService(logger zerolog.Logger, provider ports.PrayerTimeProvider, locator ports.Locator, opts PrayerServiceOptions) *PrayerService {
	return &PrayerService{
		logger:     logger,
		provider:   provider,
		locator:    locator,
		configured: opts.Configured,
		bus:        opts.Bus,
		now:        time.Now,
	}
}

// Resolve choisit la position: explicite, puis configurée, puis détectée; Londres sinon.
func (s *PrayerService) Resolve(ctx context.Context, explicit *domain.Coordinates) (domain.Coordinates, string) {
	if explicit != nil {
		return *explicit, LocationExplicit
	}
	if s.configured != nil {
		return *s.configured, LocationConfigured
	}
	if s.locator != nil {
		lctx, cancel := context.WithTimeout(ctx, locateTimeout)
		defer cancel()
		at, err := s.locator.Locate(lctx)
		if err == nil {
			return at, LocationDetected
		}
		s.logger.Warn().Err(coded(CodeLocationUnavailable, "location unavailable", err)).Msg("using default location")
	}
	return domain.DefaultCoordinates, LocationFallback
}

// Today récupère les horaires du jour et marque la prochaine prière.
func (s *PrayerService) Today(ctx context.Context, explicit *domain.Coordinates) (PrayerTimes, error) {
	at, source := s.Resolve(ctx, explicit)
	now := s.now()

	timings, err := s.provider.Timings(ctx, at, now)
	if err != nil {
		return PrayerTimes{}, fetchError("failed to load prayer times", err)
	}

	schedule := timings.Schedule()
	out := PrayerTimes{
		Location:       at,
		LocationSource: source,
		Date:           now.Format("2006-01-02"),
		schedule:       schedule,
	}
	out.setNext(domain.NextPrayer(schedule, minutesOfDay(now)))

	s.mu.Lock()
	cp := out
	s.last = &cp
	s.mu.Unlock()

	s.publish(TopicPrayerUpdated, out)
	return out, nil
}

// Last renvoie les derniers horaires calculés (nil s'il n'y en a pas).
func (s *PrayerService) Last() *PrayerTimes {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	cp := *s.last
	cp.Prayers = append([]PrayerSlot(nil), s.last.Prayers...)
	return &cp
}

// Tick recalcule la prochaine prière; les horaires sont rechargés au changement de jour.
// Renvoie true si quelque chose a été publié.
func (s *PrayerService) Tick(ctx context.Context) (bool, error) {
	now := s.now()

	s.mu.Lock()
	last := s.last
	s.mu.Unlock()

	if last == nil || last.Date != now.Format("2006-01-02") {
		var explicit *domain.Coordinates
		if last != nil && last.LocationSource == LocationExplicit {
			at := last.Location
			explicit = &at
		}
		_, err := s.Today(ctx, explicit)
		return err == nil, err
	}

	next := domain.NextPrayer(last.schedule, minutesOfDay(now))
	if next == last.NextIndex {
		return false, nil
	}

	s.mu.Lock()
	if s.last == nil {
		s.mu.Unlock()
		return false, nil
	}
	s.last.setNext(next)
	cp := *s.last
	s.mu.Unlock()

	s.publish(TopicPrayerNext, cp)
	return true, nil
}

func (p *PrayerTimes) setNext(next int) {
	p.NextIndex = next
	p.Prayers = make([]PrayerSlot, 0, len(p.schedule))
	for i, pr := range p.schedule {
		display, err := domain.FormatClock12h(pr.Time)
		if err != nil {
			display = pr.Time
		}
		p.Prayers = append(p.Prayers, PrayerSlot{Name: pr.Name, Time: pr.Time, Display: display, Next: i == next})
	}
}

func minutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func (s *PrayerService) publish(topic string, payload PrayerTimes) {
	if s.bus == nil {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	s.bus.Publish(topic, b)
}

// PrayerRefresher appelle Tick à intervalle régulier.
type PrayerRefresher struct {
	logger  zerolog.Logger
	service *PrayerService

	TickInterval time.Duration
}

func NewPrayerRefresher(logger zerolog.Logger, service *PrayerService) *PrayerRefresher {
	return &PrayerRefresher{logger: logger, service: service, TickInterval: time.Minute}
}

func (r *PrayerRefresher) Run(ctx context.Context) {
	interval := r.TickInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("prayer refresher stopped")
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *PrayerRefresher) tick(ctx context.Context) {
	if r.service == nil {
		return
	}
	if _, err := r.service.Tick(ctx); err != nil {
		r.logger.Warn().Err(err).Msg("prayer refresh failed")
	}
}
