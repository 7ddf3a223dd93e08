package ports

import (
	"context"
	"errors"
	"time"

	"github.com/Guilhem-Bonnet/hidaya/internal/domain"
)

// Erreurs des fournisseurs distants (contenu, horaires, localisation).
var (
	ErrFetchTimeout = errors.New("fetch timeout")
	ErrFetchFailed  = errors.New("fetch failed")
)

// ContentProvider expose le texte et l'audio du Coran.
type ContentProvider interface {
	Chapters(ctx context.Context) ([]domain.Chapter, error)
	// ChapterEdition renvoie une sourate dans une édition (récitateur audio ou traduction).
	ChapterEdition(ctx context.Context, number int, edition string) (domain.ChapterEdition, error)
	// VerseEditions renvoie le verset global n dans chaque édition demandée, dans l'ordre.
	VerseEditions(ctx context.Context, number int, editions []string) ([]domain.VerseText, error)
}

type PrayerTimeProvider interface {
	Timings(ctx context.Context, at domain.Coordinates, date time.Time) (domain.Timings, error)
}

// Locator résout la position courante (IP, configuration...).
type Locator interface {
	Locate(ctx context.Context) (domain.Coordinates, error)
}
