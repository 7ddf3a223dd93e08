package ports

import "context"

type AudioEventKind string

const (
	AudioEnded AudioEventKind = "ended"
	AudioError AudioEventKind = "error"
)

type AudioEvent struct {
	Kind AudioEventKind
	// Ticket reprend la valeur passée à Load: un événement dont le ticket n'est plus
	// le courant est périmé.
	Ticket  uint64
	Locator string
	Err     error
}

// AudioOutput est l'unique sortie audio. Les implémentations doivent être
// sûres en concurrence; Pause et Stop ne doivent jamais bloquer.
type AudioOutput interface {
	Load(locator string, ticket uint64) error
	Play(ctx context.Context) error
	Pause() error
	// Stop libère la piste courante sans émettre d'événement.
	Stop() error
	SetRate(rate float64) error
	SetVolume(volume float64) error
	Events() <-chan AudioEvent
}
