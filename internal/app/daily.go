package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/hidaya/internal/domain"
	"github.com/Guilhem-Bonnet/hidaya/internal/ports"
)

type DailyVerse struct {
	Date          string `json:"date"`
	Number        int    `json:"number"`
	NumberInSurah int    `json:"numberInSurah"`
	Arabic        string `json:"arabic"`
	Translation   string `json:"translation"`
	Reference     string `json:"reference"`
	Fallback      bool   `json:"fallback,omitempty"`
}

// Verset de repli: Al-Fatihah 1.
var fallbackDailyVerse = DailyVerse{
	Number:        1,
	NumberInSurah: 1,
	Arabic:        "بِسْمِ اللَّهِ الرَّحْمَٰنِ الرَّحِيمِ",
	Translation:   "In the name of God, the Most Gracious, the Most Merciful",
	Reference:     "Al-Fatihah, Ayah 1",
	Fallback:      true,
}

type DailyVerseService struct {
	logger      zerolog.Logger
	content     ports.ContentProvider
	translation string
	now         func() time.Time
}

func NewDailyVerseService(logger zerolog.Logger, content ports.ContentProvider, translation string) *DailyVerseService {
	if translation == "" {
		translation = domain.DefaultTranslationEdition
	}
	return &DailyVerseService{logger: logger, content: content, translation: translation, now: time.Now}
}

// DailyVerseNumber choisit le verset du jour à partir de la date locale.
func DailyVerseNumber(date time.Time) int {
	seed := date.Year()*10000 + int(date.Month())*100 + date.Day()
	return seed%domain.TotalVerses + 1
}

// Today ne renvoie jamais d'erreur: en cas d'échec, le verset de repli est servi.
func (s *DailyVerseService) Today(ctx context.Context) DailyVerse {
	now := s.now()
	n := DailyVerseNumber(now)
	date := now.Format("2006-01-02")

	texts, err := s.content.VerseEditions(ctx, n, []string{domain.ArabicTextEdition, s.translation})
	if err == nil && len(texts) < 2 {
		err = fmt.Errorf("verse %d: expected 2 editions, got %d", n, len(texts))
	}
	if err != nil {
		s.logger.Warn().Err(err).Int("verse", n).Msg("daily verse unavailable, using fallback")
		out := fallbackDailyVerse
		out.Date = date
		return out
	}

	out := DailyVerse{
		Date:          date,
		Number:        n,
		NumberInSurah: texts[0].NumberInSurah,
		Arabic:        texts[0].Text,
		Translation:   texts[1].Text,
	}
	name := ""
	if texts[0].Chapter != nil {
		name = texts[0].Chapter.EnglishName
	}
	out.Reference = fmt.Sprintf("%s, Ayah %d", name, out.NumberInSurah)
	return out
}
