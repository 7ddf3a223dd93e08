package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Guilhem-Bonnet/hidaya/internal/domain"
	"github.com/Guilhem-Bonnet/hidaya/internal/ports"
)

const (
	TopicReaderOpened = "reader.opened"
	TopicReaderClosed = "reader.closed"
)

// Reader est la session de lecture: sourate ouverte, ses versets et le contrôleur de lecture.
// Il est créé au démarrage et remis à zéro à chaque navigation.
type Reader struct {
	logger      zerolog.Logger
	content     ports.ContentProvider
	settings    func(ctx context.Context) (domain.Settings, error)
	player      *PlaybackController
	offline     *OfflineLibrary
	bus         ports.EventBus
	translation string

	mu       sync.Mutex
	chapters []domain.Chapter
	chapter  *domain.Chapter
	reciter  string
	verses   []domain.Verse
	openSeq  uint64
}

type ReaderOptions struct {
	Translation string
	Offline     *OfflineLibrary
	Bus         ports.EventBus
}

func NewReader(logger zerolog.Logger, content ports.ContentProvider, settings func(ctx context.Context) (domain.Settings, error), player *PlaybackController, opts ReaderOptions) *Reader {
	if opts.Translation == "" {
		opts.Translation = domain.DefaultTranslationEdition
	}
	return &Reader{
		logger:      logger,
		content:     content,
		settings:    settings,
		player:      player,
		offline:     opts.Offline,
		bus:         opts.Bus,
		translation: opts.Translation,
	}
}

type ReaderView struct {
	Chapter  *domain.Chapter         `json:"chapter,omitempty"`
	Reciter  string                  `json:"reciter,omitempty"`
	Verses   []domain.Verse          `json:"verses"`
	Playback domain.PlaybackSnapshot `json:"playback"`
}

// Chapters charge la liste des sourates une seule fois; un échec sera retenté au prochain appel.
func (r *Reader) Chapters(ctx context.Context) ([]domain.Chapter, error) {
	r.mu.Lock()
	if len(r.chapters) > 0 {
		out := r.chapters
		r.mu.Unlock()
		return out, nil
	}
	r.mu.Unlock()

	chapters, err := r.content.Chapters(ctx)
	if err != nil {
		return nil, fetchError("failed to load chapters", err)
	}

	r.mu.Lock()
	if len(r.chapters) == 0 {
		r.chapters = chapters
	}
	out := r.chapters
	r.mu.Unlock()
	return out, nil
}

// KnownChapters renvoie les sourates déjà chargées, sans appel réseau.
func (r *Reader) KnownChapters() []domain.Chapter {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chapters
}

// Open charge une sourate (texte arabe + audio du récitateur, et traduction en parallèle)
// et la confie au contrôleur de lecture. Un Open plus récent l'emporte.
func (r *Reader) Open(ctx context.Context, number int) (ReaderView, error) {
	if !domain.ValidChapterNumber(number) {
		return ReaderView{}, coded(CodeInvalidParams, fmt.Sprintf("chapter must be in [1, %d]", domain.TotalChapters), nil)
	}
	st, err := r.settings(ctx)
	if err != nil {
		return ReaderView{}, err
	}
	reciter := st.Reciter
	if reciter == "" {
		reciter = domain.DefaultReciter
	}

	r.mu.Lock()
	r.openSeq++
	seq := r.openSeq
	r.mu.Unlock()

	var arabic, translation domain.ChapterEdition
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		arabic, err = r.content.ChapterEdition(gctx, number, reciter)
		return err
	})
	g.Go(func() error {
		var err error
		translation, err = r.content.ChapterEdition(gctx, number, r.translation)
		return err
	})
	err = g.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	if seq != r.openSeq {
		return ReaderView{}, fmt.Errorf("chapter %d: %w", number, ports.ErrConflict)
	}
	if err != nil {
		r.resetLocked()
		r.logger.Warn().Err(err).Int("chapter", number).Msg("failed to load chapter")
		return ReaderView{}, fetchError(fmt.Sprintf("failed to load chapter %d", number), err)
	}

	verses := domain.MergeVerses(arabic.Verses, translation.Verses)
	if r.offline != nil {
		verses = r.offline.Rewrite(reciter, verses)
	}
	chapter := arabic.Chapter
	r.chapter = &chapter
	r.reciter = reciter
	r.verses = verses
	r.player.Load(verses)

	view := r.viewLocked()
	r.publish(TopicReaderOpened, map[string]any{"chapter": chapter, "reciter": reciter, "verses": len(verses)})
	return view, nil
}

// Reload recharge la sourate ouverte (ex: changement de récitateur). Sans sourate, ne fait rien.
func (r *Reader) Reload(ctx context.Context) error {
	r.mu.Lock()
	ch := r.chapter
	r.mu.Unlock()
	if ch == nil {
		return nil
	}
	_, err := r.Open(ctx, ch.Number)
	return err
}

// Close correspond au retour à la liste des sourates.
func (r *Reader) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.openSeq++
	r.resetLocked()
	r.publish(TopicReaderClosed, map[string]any{})
}

func (r *Reader) View() ReaderView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewLocked()
}

// Verse renvoie la sourate ouverte et le verset à l'index donné.
func (r *Reader) Verse(index int) (domain.Chapter, domain.Verse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.chapter == nil {
		return domain.Chapter{}, domain.Verse{}, coded(CodeNoChapter, "no chapter open", nil)
	}
	if index < 0 || index >= len(r.verses) {
		return domain.Chapter{}, domain.Verse{}, coded(CodeInvalidIndex, fmt.Sprintf("verse index %d out of range [0, %d)", index, len(r.verses)), nil)
	}
	return *r.chapter, r.verses[index], nil
}

func (r *Reader) resetLocked() {
	r.chapter = nil
	r.reciter = ""
	r.verses = nil
	r.player.Load(nil)
}

func (r *Reader) viewLocked() ReaderView {
	view := ReaderView{
		Reciter:  r.reciter,
		Verses:   r.verses,
		Playback: r.player.Snapshot(),
	}
	if view.Verses == nil {
		view.Verses = []domain.Verse{}
	}
	if r.chapter != nil {
		ch := *r.chapter
		view.Chapter = &ch
	}
	return view
}

func (r *Reader) publish(topic string, payload any) {
	if r.bus == nil {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	r.bus.Publish(topic, b)
}
