// Package audio fournit les sorties audio du contrôleur de lecture.
package audio

import (
	"context"
	"sync"

	"github.com/Guilhem-Bonnet/hidaya/internal/ports"
)

// Null n'émet aucun son: la lecture réelle est faite par les clients (navigateur, MQTT),
// qui signalent la fin d'un verset via la commande "ended" (index et ticket du snapshot).
type Null struct {
	mu      sync.Mutex
	locator string
	playing bool
	events  chan ports.AudioEvent
}

func NewNull() *Null {
	return &Null{events: make(chan ports.AudioEvent)}
}

func (n *Null) Load(locator string, _ uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.locator = locator
	n.playing = false
	return nil
}

func (n *Null) Play(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.playing = n.locator != ""
	return nil
}

func (n *Null) Pause() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.playing = false
	return nil
}

func (n *Null) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.locator = ""
	n.playing = false
	return nil
}

func (n *Null) SetRate(float64) error   { return nil }
func (n *Null) SetVolume(float64) error { return nil }

func (n *Null) Events() <-chan ports.AudioEvent { return n.events }

// Current renvoie la piste chargée et si elle est "en lecture".
func (n *Null) Current() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.locator, n.playing
}
