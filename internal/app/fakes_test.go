package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Guilhem-Bonnet/hidaya/internal/domain"
	"github.com/Guilhem-Bonnet/hidaya/internal/ports"
)

// fakeOutput enregistre les appels faits à la sortie audio.
type fakeOutput struct {
	mu      sync.Mutex
	loaded  []string
	tickets []uint64
	plays   int
	pauses  int
	stops   int
	rate    float64
	volume  float64
	playErr error
	events  chan ports.AudioEvent
}

func newFakeOutput() *fakeOutput {
	return &fakeOutput{events: make(chan ports.AudioEvent, 8)}
}

func (o *fakeOutput) Load(locator string, ticket uint64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.loaded = append(o.loaded, locator)
	o.tickets = append(o.tickets, ticket)
	return nil
}

func (o *fakeOutput) Play(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.plays++
	return o.playErr
}

func (o *fakeOutput) Pause() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pauses++
	return nil
}

func (o *fakeOutput) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stops++
	return nil
}

func (o *fakeOutput) SetRate(rate float64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rate = rate
	return nil
}

func (o *fakeOutput) SetVolume(level float64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.volume = level
	return nil
}

func (o *fakeOutput) Events() <-chan ports.AudioEvent { return o.events }

func (o *fakeOutput) Loaded() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.loaded...)
}

// fakeBus garde tous les événements publiés.
type fakeBus struct {
	mu     sync.Mutex
	events []ports.Event
}

func (b *fakeBus) Publish(topic string, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ports.Event{Topic: topic, Payload: append([]byte(nil), payload...)})
}

func (b *fakeBus) Subscribe() (<-chan ports.Event, func()) {
	ch := make(chan ports.Event)
	return ch, func() {}
}

func (b *fakeBus) Topics() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.Topic)
	}
	return out
}

func (b *fakeBus) Last(topic string) (ports.Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.events) - 1; i >= 0; i-- {
		if b.events[i].Topic == topic {
			return b.events[i], true
		}
	}
	return ports.Event{}, false
}

// fakeContent sert des sourates fabriquées: verset k de la sourate n a le numéro global n*1000+k.
type fakeContent struct {
	mu       sync.Mutex
	chapters []domain.Chapter
	// noAudio liste les numéros dans la sourate sans audio.
	noAudio map[int]bool
	// audioBase préfixe les URLs audio (ex: serveur httptest).
	audioBase string
	err       error
	// block, si non nil, retarde ChapterEdition jusqu'à sa fermeture.
	block   chan struct{}
	calls   int
	verseFn func(n int, editions []string) ([]domain.VerseText, error)
}

func (c *fakeContent) Chapters(ctx context.Context) ([]domain.Chapter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.chapters, nil
}

func (c *fakeContent) ChapterEdition(ctx context.Context, number int, edition string) (domain.ChapterEdition, error) {
	c.mu.Lock()
	c.calls++
	block, err := c.block, c.err
	c.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return domain.ChapterEdition{}, ctx.Err()
		}
	}
	if err != nil {
		return domain.ChapterEdition{}, err
	}

	ch := domain.Chapter{Number: number, EnglishName: fmt.Sprintf("Chapter %d", number), NumberOfAyahs: 3}
	for _, known := range c.chapters {
		if known.Number == number {
			ch = known
		}
	}
	out := domain.ChapterEdition{Chapter: ch, Edition: edition}
	translation := strings.HasPrefix(edition, "en.")
	for k := 1; k <= ch.NumberOfAyahs; k++ {
		v := domain.VerseText{Number: number*1000 + k, NumberInSurah: k}
		if translation {
			v.Text = fmt.Sprintf("translation %d:%d", number, k)
		} else {
			v.Text = fmt.Sprintf("arabic %d:%d", number, k)
			if !c.noAudio[k] {
				v.Audio = fmt.Sprintf("%s/%s/%d.mp3", c.audioBase, edition, v.Number)
			}
		}
		out.Verses = append(out.Verses, v)
	}
	return out, nil
}

func (c *fakeContent) VerseEditions(ctx context.Context, number int, editions []string) ([]domain.VerseText, error) {
	c.mu.Lock()
	c.calls++
	fn, err := c.verseFn, c.err
	c.mu.Unlock()
	if fn != nil {
		return fn(number, editions)
	}
	if err != nil {
		return nil, err
	}
	return nil, errors.New("not implemented")
}

func (c *fakeContent) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type memSettingsRepo struct {
	mu sync.Mutex
	s  domain.Settings
}

func newMemSettingsRepo() *memSettingsRepo {
	return &memSettingsRepo{s: domain.DefaultSettings()}
}

func (r *memSettingsRepo) Get(ctx context.Context) (domain.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.s, nil
}

func (r *memSettingsRepo) Put(ctx context.Context, s domain.Settings) (domain.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.s = s
	return s, nil
}

type memOfflineRepo struct {
	mu    sync.Mutex
	items []domain.OfflineChapter
}

func (r *memOfflineRepo) Upsert(ctx context.Context, c domain.OfflineChapter) (domain.OfflineChapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, it := range r.items {
		if it.Chapter == c.Chapter && it.Reciter == c.Reciter {
			r.items[i] = c
			return c, nil
		}
	}
	r.items = append(r.items, c)
	return c, nil
}

func (r *memOfflineRepo) List(ctx context.Context) ([]domain.OfflineChapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.OfflineChapter(nil), r.items...), nil
}

type fakeTimings struct {
	mu      sync.Mutex
	timings domain.Timings
	err     error
	calls   int
	lastAt  domain.Coordinates
}

func (p *fakeTimings) Timings(ctx context.Context, at domain.Coordinates, date time.Time) (domain.Timings, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.lastAt = at
	return p.timings, p.err
}

type fakeLocator struct {
	at    domain.Coordinates
	err   error
	block bool
}

func (l fakeLocator) Locate(ctx context.Context) (domain.Coordinates, error) {
	if l.block {
		<-ctx.Done()
		return domain.Coordinates{}, ctx.Err()
	}
	return l.at, l.err
}

// eventually attend qu'une condition devienne vraie.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
