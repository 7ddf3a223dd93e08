package domain

import "errors"

type PlaybackState string

const (
	PlaybackStopped    PlaybackState = "stopped"
	PlaybackPlaying    PlaybackState = "playing"
	PlaybackPlayingAll PlaybackState = "playing_all"
)

var ErrInvalidPlaybackTransition = errors.New("invalid playback state transition")

// CanTransitionPlayback décrit les transitions autorisées du contrôleur de lecture.
// Stop et erreur ramènent toujours à l'arrêt; il n'y a pas d'état terminal.
func CanTransitionPlayback(from, to PlaybackState) bool {
	if to == PlaybackStopped {
		return true
	}
	switch from {
	case PlaybackStopped:
		return to == PlaybackPlaying || to == PlaybackPlayingAll
	case PlaybackPlaying:
		return to == PlaybackPlaying || to == PlaybackPlayingAll
	case PlaybackPlayingAll:
		return to == PlaybackPlayingAll || to == PlaybackPlaying
	default:
		return false
	}
}

// PlaybackSnapshot est une photo cohérente de la session de lecture.
type PlaybackSnapshot struct {
	SessionID string        `json:"sessionId"`
	State     PlaybackState `json:"state"`
	Index     int           `json:"index"`
	Playing   bool          `json:"playing"`
	PlayAll   bool          `json:"playAll"`
	Length    int           `json:"length"`
	Verse     *Verse        `json:"verse,omitempty"`
	Speed     float64       `json:"speed"`
	Volume    float64       `json:"volume"`
	// Ticket identifie le démarrage en cours (0 à l'arrêt); à renvoyer avec "ended".
	Ticket uint64 `json:"ticket,omitempty"`
}

func StateOf(playing, playAll bool) PlaybackState {
	switch {
	case !playing:
		return PlaybackStopped
	case playAll:
		return PlaybackPlayingAll
	default:
		return PlaybackPlaying
	}
}
