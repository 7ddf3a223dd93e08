package ports

import (
	"context"

	"github.com/Guilhem-Bonnet/hidaya/internal/domain"
)

// SettingsRepository persiste les préférences de l'utilisateur (récitateur, vitesse, volume, thème).
// Get renvoie les valeurs par défaut tant que rien n'a été enregistré.
type SettingsRepository interface {
	Get(ctx context.Context) (domain.Settings, error)
	Put(ctx context.Context, settings domain.Settings) (domain.Settings, error)
}

// OfflineRepository liste les sourates dont l'audio est disponible localement.
type OfflineRepository interface {
	Upsert(ctx context.Context, chapter domain.OfflineChapter) (domain.OfflineChapter, error)
	List(ctx context.Context) ([]domain.OfflineChapter, error)
}
