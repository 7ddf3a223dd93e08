package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/hidaya/internal/domain"
)

// ApplySettings renvoie le hook qui propage les réglages vers la lecture:
// vitesse et volume immédiatement, rechargement de la sourate si le récitateur change.
func ApplySettings(logger zerolog.Logger, reader *Reader, player *PlaybackController) func(previous, updated domain.Settings) {
	return func(previous, updated domain.Settings) {
		if player != nil {
			if err := player.SetSpeed(updated.Speed); err != nil {
				logger.Warn().Err(err).Float64("speed", updated.Speed).Msg("failed to apply speed")
			}
			if err := player.SetVolume(updated.Volume); err != nil {
				logger.Warn().Err(err).Float64("volume", updated.Volume).Msg("failed to apply volume")
			}
		}
		if reader == nil || previous.Reciter == updated.Reciter {
			return
		}
		// Nouvelles URLs audio: on recharge hors de la requête en cours.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := reader.Reload(ctx); err != nil {
				logger.Warn().Err(err).Str("reciter", updated.Reciter).Msg("failed to reload chapter after reciter change")
			}
		}()
	}
}
