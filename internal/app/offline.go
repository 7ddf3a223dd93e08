package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/hidaya/internal/domain"
	"github.com/Guilhem-Bonnet/hidaya/internal/ports"
)

const TopicOfflineUpdated = "offline.updated"

// OfflineLibrary range l'audio préchargé sous <dir>/<reciter>/<numéro global>.mp3.
type OfflineLibrary struct {
	dir string
}

func NewOfflineLibrary(dir string) *OfflineLibrary {
	return &OfflineLibrary{dir: dir}
}

func (l *OfflineLibrary) Dir(reciter string) string {
	return filepath.Join(l.dir, sanitizePathPart(reciter))
}

func (l *OfflineLibrary) Path(reciter string, verseNumber int) string {
	return filepath.Join(l.Dir(reciter), strconv.Itoa(verseNumber)+".mp3")
}

// Rewrite remplace l'audio distant par le fichier local quand il existe.
func (l *OfflineLibrary) Rewrite(reciter string, verses []domain.Verse) []domain.Verse {
	if l == nil || l.dir == "" {
		return verses
	}
	out := make([]domain.Verse, len(verses))
	for i, v := range verses {
		if v.HasAudio() {
			p := l.Path(reciter, v.Number)
			if st, err := os.Stat(p); err == nil && st.Size() > 0 {
				v.Audio = p
			}
		}
		out[i] = v
	}
	return out
}

func sanitizePathPart(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
	s = strings.Trim(s, ".")
	if s == "" {
		return "_"
	}
	return s
}

// OfflineRecorder enregistre les sourates préchargées à la fin des jobs "prefetch".
type OfflineRecorder struct {
	logger zerolog.Logger
	bus    ports.EventBus
	repo   ports.OfflineRepository
}

func NewOfflineRecorder(logger zerolog.Logger, bus ports.EventBus, repo ports.OfflineRepository) *OfflineRecorder {
	return &OfflineRecorder{logger: logger, bus: bus, repo: repo}
}

func (u *OfflineRecorder) Run(ctx context.Context) {
	if u == nil || u.bus == nil || u.repo == nil {
		return
	}
	ch, cancel := u.bus.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			u.logger.Info().Msg("offline recorder stopped")
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			u.handleEvent(ctx, evt)
		}
	}
}

func (u *OfflineRecorder) handleEvent(ctx context.Context, evt ports.Event) {
	if evt.Topic != TopicJobCompleted {
		return
	}

	var job JobDTO
	if err := json.Unmarshal(evt.Payload, &job); err != nil {
		return
	}
	if job.Type != domain.JobTypePrefetch || len(job.Result) == 0 {
		return
	}

	var res PrefetchResult
	if err := json.Unmarshal(job.Result, &res); err != nil {
		u.logger.Warn().Err(err).Str("job_id", job.ID).Msg("invalid prefetch result")
		return
	}
	if !domain.ValidChapterNumber(res.Chapter) || res.Reciter == "" {
		return
	}

	saved, err := u.repo.Upsert(ctx, domain.OfflineChapter{
		Chapter:   res.Chapter,
		Reciter:   res.Reciter,
		Verses:    res.Downloaded + res.Existing,
		Directory: res.Directory,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		u.logger.Warn().Err(err).Int("chapter", res.Chapter).Msg("failed to record offline chapter")
		return
	}

	if u.bus != nil {
		if b, err := json.Marshal(saved); err == nil {
			u.bus.Publish(TopicOfflineUpdated, b)
		}
	}
}
