package app

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/hidaya/internal/domain"
	"github.com/Guilhem-Bonnet/hidaya/internal/ports"
)

const (
	TopicSearchResults = "search.results"

	MaxSearchResults      = 20
	DefaultSearchDebounce = 300 * time.Millisecond
)

type SearchHit struct {
	Kind    string          `json:"kind"` // "chapter" | "verse"
	Chapter *domain.Chapter `json:"chapter,omitempty"`
	Index   int             `json:"index,omitempty"`
	Verse   *domain.Verse   `json:"verse,omitempty"`
}

type SearchResults struct {
	Query string      `json:"query"`
	Hits  []SearchHit `json:"hits"`
}

// SearchService cherche dans la liste des sourates puis dans la sourate ouverte.
type SearchService struct {
	logger   zerolog.Logger
	reader   *Reader
	bus      ports.EventBus
	debounce *Debouncer
}

func NewSearchService(logger zerolog.Logger, reader *Reader, bus ports.EventBus, debounce time.Duration) *SearchService {
	if debounce <= 0 {
		debounce = DefaultSearchDebounce
	}
	return &SearchService{logger: logger, reader: reader, bus: bus, debounce: NewDebouncer(debounce)}
}

func (s *SearchService) Search(ctx context.Context, query string) SearchResults {
	out := SearchResults{Query: query, Hits: []SearchHit{}}
	q := strings.TrimSpace(query)
	if q == "" {
		return out
	}

	chapters, err := s.reader.Chapters(ctx)
	if err != nil {
		// La recherche dans les versets reste possible.
		s.logger.Debug().Err(err).Msg("search without chapter list")
		chapters = s.reader.KnownChapters()
	}
	view := s.reader.View()
	out.Hits = MatchAll(q, chapters, view.Verses, MaxSearchResults)
	return out
}

// Typeahead planifie une recherche après le délai d'anti-rebond; une saisie plus récente
// remplace la précédente. Une saisie vide publie immédiatement un résultat vide.
func (s *SearchService) Typeahead(query string) {
	if strings.TrimSpace(query) == "" {
		s.debounce.Cancel()
		s.publish(SearchResults{Query: query, Hits: []SearchHit{}})
		return
	}
	s.debounce.Trigger(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.publish(s.Search(ctx, query))
	})
}

func (s *SearchService) Close() {
	s.debounce.Cancel()
}

func (s *SearchService) publish(res SearchResults) {
	if s.bus == nil {
		return
	}
	b, err := json.Marshal(res)
	if err != nil {
		return
	}
	s.bus.Publish(TopicSearchResults, b)
}

// MatchAll renvoie d'abord les sourates, puis les versets, au plus limit résultats.
func MatchAll(query string, chapters []domain.Chapter, verses []domain.Verse, limit int) []SearchHit {
	hits := []SearchHit{}
	q := strings.TrimSpace(query)
	if q == "" || limit <= 0 {
		return hits
	}
	lower := strings.ToLower(q)

	for i := range chapters {
		if len(hits) >= limit {
			return hits
		}
		ch := chapters[i]
		if strings.Contains(strings.ToLower(ch.EnglishName), lower) ||
			strings.Contains(strings.ToLower(ch.EnglishNameTranslation), lower) ||
			strings.Contains(ch.Name, q) {
			hits = append(hits, SearchHit{Kind: "chapter", Chapter: &ch})
		}
	}
	for i := range verses {
		if len(hits) >= limit {
			return hits
		}
		v := verses[i]
		if strings.Contains(v.Arabic, q) || strings.Contains(strings.ToLower(v.Translation), lower) {
			hits = append(hits, SearchHit{Kind: "verse", Index: i, Verse: &v})
		}
	}
	return hits
}
