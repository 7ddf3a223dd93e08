package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/hidaya/internal/domain"
	"github.com/Guilhem-Bonnet/hidaya/internal/ports"
)

const (
	TopicPlaybackState  = "playback.state"
	TopicPlaybackFailed = "playback.failed"
)

// Durée max accordée à la sortie audio pour charger et démarrer une piste.
const playbackStartTimeout = 10 * time.Second

// PlaybackController possède l'unique session de lecture du processus.
//
// Chaque PlayAt prend un nouveau ticket: le démarrage de la sortie se fait hors du verrou
// (goroutine) et n'est appliqué que si son ticket est toujours le courant. Le dernier
// appel gagne, les complétions périmées sont ignorées.
type PlaybackController struct {
	logger zerolog.Logger
	out    ports.AudioOutput
	bus    ports.EventBus

	mu        sync.Mutex
	sessionID string
	sequence  []domain.Verse
	index     int
	playing   bool
	playAll   bool
	speed     float64
	volume    float64
	ticket    uint64
	state     domain.PlaybackState

	// outMu sérialise les démarrages successifs sur la sortie.
	outMu sync.Mutex

	// async lance le démarrage de la sortie (go par défaut).
	async func(func())
}

func NewPlaybackController(logger zerolog.Logger, out ports.AudioOutput, bus ports.EventBus) *PlaybackController {
	def := domain.DefaultSettings()
	return &PlaybackController{
		logger:    logger,
		out:       out,
		bus:       bus,
		sessionID: uuid.NewString(),
		index:     -1,
		speed:     def.Speed,
		volume:    def.Volume,
		state:     domain.PlaybackStopped,
		async:     func(f func()) { go f() },
	}
}

// Run consomme les événements de la sortie audio (fin de piste, erreur) jusqu'à l'arrêt du contexte.
func (c *PlaybackController) Run(ctx context.Context) {
	events := c.out.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			c.HandleAudioEvent(evt)
		}
	}
}

// Load remplace la séquence de versets (nouvelle sourate ou retour à la liste):
// la lecture est arrêtée et une nouvelle session commence.
func (c *PlaybackController) Load(verses []domain.Verse) domain.PlaybackSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.sequence = append([]domain.Verse(nil), verses...)
	c.sessionID = uuid.NewString()
	c.publishStateLocked()
	return c.snapshotLocked()
}

func (c *PlaybackController) Snapshot() domain.PlaybackSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *PlaybackController) PlayAt(i int) error {
	c.mu.Lock()
	start, err := c.playAtLocked(i)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.launch(start)
	return nil
}

func (c *PlaybackController) ToggleSingle(i int) error {
	c.mu.Lock()
	if c.index == i && c.playing {
		c.stopLocked()
		c.publishStateLocked()
		c.mu.Unlock()
		return nil
	}
	prev := c.playAll
	c.playAll = false
	start, err := c.playAtLocked(i)
	if err != nil {
		c.playAll = prev
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()
	c.launch(start)
	return nil
}

func (c *PlaybackController) TogglePlayAll() error {
	c.mu.Lock()
	if c.playAll && c.playing {
		c.stopLocked()
		c.publishStateLocked()
		c.mu.Unlock()
		return nil
	}
	prev := c.playAll
	c.playAll = true
	from := 0
	if c.index > -1 {
		from = c.index
	}
	start, err := c.playAtLocked(from)
	if err != nil {
		c.playAll = prev
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()
	c.launch(start)
	return nil
}

// Stop est idempotent.
func (c *PlaybackController) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	wasStopped := !c.playing && c.index == -1 && !c.playAll
	c.stopLocked()
	if !wasStopped {
		c.publishStateLocked()
	}
}

// OnVerseEnded traite une fin de verset signalée par un client (sortie Null).
// Le signal est ignoré s'il ne désigne plus la piste courante: index différent,
// ou ticket fourni (non nul) différent de celui du snapshot.
func (c *PlaybackController) OnVerseEnded(index int, ticket uint64) {
	c.mu.Lock()
	if !c.playing || c.index != index || (ticket != 0 && ticket != c.ticket) {
		c.mu.Unlock()
		c.logger.Debug().Int("index", index).Uint64("ticket", ticket).Msg("stale ended report ignored")
		return
	}
	start, err := c.endedLocked()
	c.mu.Unlock()
	if err == nil && start != nil {
		c.launch(*start)
	}
}

// HandleAudioEvent applique un événement de la sortie, sauf s'il concerne un démarrage
// qui n'est plus le courant.
func (c *PlaybackController) HandleAudioEvent(evt ports.AudioEvent) {
	c.mu.Lock()
	if !c.playing || evt.Ticket != c.ticket {
		c.mu.Unlock()
		c.logger.Debug().Uint64("ticket", evt.Ticket).Str("locator", evt.Locator).Str("kind", string(evt.Kind)).Msg("stale audio event ignored")
		return
	}

	switch evt.Kind {
	case ports.AudioEnded:
		start, err := c.endedLocked()
		c.mu.Unlock()
		if err == nil && start != nil {
			c.launch(*start)
		}
	case ports.AudioError:
		c.failLocked(coded(CodePlaybackFailed, "audio output error", evt.Err))
		c.mu.Unlock()
	default:
		c.mu.Unlock()
	}
}

func (c *PlaybackController) SetSpeed(rate float64) error {
	if rate <= 0 || rate > domain.MaxSpeed {
		return coded(CodeInvalidParams, fmt.Sprintf("speed must be in (0, %g]", domain.MaxSpeed), nil)
	}
	c.mu.Lock()
	c.speed = rate
	c.publishStateLocked()
	c.mu.Unlock()
	return c.out.SetRate(rate)
}

func (c *PlaybackController) SetVolume(level float64) error {
	if level < 0 || level > 1 {
		return coded(CodeInvalidParams, "volume must be in [0, 1]", nil)
	}
	c.mu.Lock()
	c.volume = level
	c.publishStateLocked()
	c.mu.Unlock()
	return c.out.SetVolume(level)
}

type playbackStart struct {
	ticket  uint64
	locator string
	speed   float64
	volume  float64
}

func (c *PlaybackController) playAtLocked(i int) (playbackStart, error) {
	if i < 0 || i >= len(c.sequence) {
		return playbackStart{}, coded(CodeInvalidIndex, fmt.Sprintf("verse index %d out of range [0, %d)", i, len(c.sequence)), nil)
	}
	verse := c.sequence[i]
	if !verse.HasAudio() {
		return playbackStart{}, coded(CodeNoAudioResource, fmt.Sprintf("no audio for verse %d", verse.NumberInSurah), nil)
	}

	if c.playing {
		_ = c.out.Pause()
	}
	c.index = i
	c.playing = true
	c.ticket++
	c.publishStateLocked()

	return playbackStart{ticket: c.ticket, locator: verse.Audio, speed: c.speed, volume: c.volume}, nil
}

func (c *PlaybackController) endedLocked() (*playbackStart, error) {
	if c.playAll && c.index < len(c.sequence)-1 {
		start, err := c.playAtLocked(c.index + 1)
		if err != nil {
			c.failLocked(err)
			return nil, err
		}
		return &start, nil
	}
	c.stopLocked()
	c.publishStateLocked()
	return nil, nil
}

func (c *PlaybackController) stopLocked() {
	if c.playing {
		_ = c.out.Stop()
	}
	c.playing = false
	c.playAll = false
	c.index = -1
	// Invalide tout démarrage encore en vol.
	c.ticket++
}

func (c *PlaybackController) failLocked(err error) {
	index := c.index
	c.stopLocked()
	c.publishStateLocked()

	c.logger.Warn().Err(err).Int("index", index).Msg("playback failed")
	if c.bus == nil {
		return
	}
	b, _ := json.Marshal(map[string]any{
		"code":    ErrorCode(err),
		"message": err.Error(),
		"index":   index,
	})
	c.bus.Publish(TopicPlaybackFailed, b)
}

func (c *PlaybackController) isCurrent(ticket uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing && c.ticket == ticket
}

func (c *PlaybackController) launch(start playbackStart) {
	c.async(func() { c.startOutput(start) })
}

func (c *PlaybackController) startOutput(start playbackStart) {
	c.outMu.Lock()
	defer c.outMu.Unlock()

	if !c.isCurrent(start.ticket) {
		return
	}

	err := c.out.Load(start.locator, start.ticket)
	if err == nil {
		err = c.out.SetRate(start.speed)
	}
	if err == nil {
		err = c.out.SetVolume(start.volume)
	}
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), playbackStartTimeout)
		err = c.out.Play(ctx)
		cancel()
	}

	if err != nil {
		c.mu.Lock()
		if c.playing && c.ticket == start.ticket {
			c.failLocked(coded(CodePlaybackFailed, "audio playback failed", err))
		}
		c.mu.Unlock()
		return
	}

	// Remplacé ou arrêté pendant le chargement: on libère la piste.
	if !c.isCurrent(start.ticket) {
		_ = c.out.Stop()
	}
}

func (c *PlaybackController) snapshotLocked() domain.PlaybackSnapshot {
	snap := domain.PlaybackSnapshot{
		SessionID: c.sessionID,
		State:     domain.StateOf(c.playing, c.playAll),
		Index:     c.index,
		Playing:   c.playing,
		PlayAll:   c.playAll,
		Length:    len(c.sequence),
		Speed:     c.speed,
		Volume:    c.volume,
	}
	if c.playing {
		snap.Ticket = c.ticket
	}
	if c.index >= 0 && c.index < len(c.sequence) {
		v := c.sequence[c.index]
		snap.Verse = &v
	}
	return snap
}

func (c *PlaybackController) publishStateLocked() {
	next := domain.StateOf(c.playing, c.playAll)
	if !domain.CanTransitionPlayback(c.state, next) {
		c.logger.Error().Str("from", string(c.state)).Str("to", string(next)).Msg("unexpected playback transition")
	}
	c.state = next

	if c.bus == nil {
		return
	}
	b, err := json.Marshal(c.snapshotLocked())
	if err != nil {
		return
	}
	c.bus.Publish(TopicPlaybackState, b)
}
