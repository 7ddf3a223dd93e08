package audio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/hidaya/internal/ports"
)

// Délai max pour joindre le socket de contrôle du lecteur.
const ipcTimeout = 500 * time.Millisecond

// Process joue chaque verset avec un lecteur externe (mpv par défaut), un processus par piste.
// Pause/reprise passent par SIGSTOP/SIGCONT; la fin du processus produit l'événement
// "ended" (code 0) ou "error". Vitesse et volume sont poussés au processus en cours
// via son socket IPC (--input-ipc-server).
type Process struct {
	logger  zerolog.Logger
	binary  string
	args    []string
	ipcPath string

	mu      sync.Mutex
	locator string
	ticket  uint64
	rate    float64
	volume  float64
	cmd     *exec.Cmd
	paused  bool
	// killed marque les processus arrêtés volontairement (pas d'événement).
	killed map[*exec.Cmd]bool

	events chan ports.AudioEvent
}

// NewProcess crée une sortie mpv; binary vide = "mpv" cherché dans le PATH.
func NewProcess(logger zerolog.Logger, binary string) *Process {
	if binary == "" {
		binary = "mpv"
	}
	return &Process{
		logger:  logger,
		binary:  binary,
		args:    []string{"--no-video", "--force-window=no", "--really-quiet"},
		ipcPath: filepath.Join(os.TempDir(), fmt.Sprintf("hidaya-mpv-%d.sock", os.Getpid())),
		rate:    1,
		volume:  1,
		killed:  map[*exec.Cmd]bool{},
		events:  make(chan ports.AudioEvent, 16),
	}
}

// Available indique si le lecteur est utilisable sur cette machine.
func (p *Process) Available() bool {
	_, err := exec.LookPath(p.binary)
	return err == nil
}

func (p *Process) Load(locator string, ticket uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.killLocked()
	p.locator = locator
	p.ticket = ticket
	return nil
}

func (p *Process) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil {
		if !p.paused {
			return nil
		}
		if err := p.cmd.Process.Signal(syscall.SIGCONT); err != nil {
			return fmt.Errorf("resume player: %w", err)
		}
		p.paused = false
		return nil
	}
	if p.locator == "" {
		return errors.New("no track loaded")
	}

	args := append(append([]string(nil), p.args...),
		"--input-ipc-server="+p.ipcPath,
		"--speed="+strconv.FormatFloat(p.rate, 'f', -1, 64),
		"--volume="+strconv.Itoa(mpvVolume(p.volume)),
		p.locator,
	)
	// Le processus vit au-delà de ctx (qui ne borne que le démarrage).
	cmd := exec.Command(p.binary, args...)
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start player: %w", err)
	}
	p.cmd = cmd
	p.paused = false
	p.logger.Debug().Int("pid", cmd.Process.Pid).Str("locator", p.locator).Uint64("ticket", p.ticket).Msg("player started")

	go p.wait(cmd, p.locator, p.ticket)
	return nil
}

func (p *Process) wait(cmd *exec.Cmd, locator string, ticket uint64) {
	err := cmd.Wait()

	p.mu.Lock()
	killed := p.killed[cmd]
	delete(p.killed, cmd)
	if p.cmd == cmd {
		p.cmd = nil
		p.paused = false
	}
	p.mu.Unlock()

	if killed {
		return
	}
	evt := ports.AudioEvent{Kind: ports.AudioEnded, Ticket: ticket, Locator: locator}
	if err != nil {
		evt = ports.AudioEvent{Kind: ports.AudioError, Ticket: ticket, Locator: locator, Err: err}
	}
	select {
	case p.events <- evt:
	default:
		p.logger.Warn().Str("kind", string(evt.Kind)).Msg("audio event dropped")
	}
}

// Pause ne bloque pas: simple signal au processus courant.
func (p *Process) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil || p.paused {
		return nil
	}
	if err := p.cmd.Process.Signal(syscall.SIGSTOP); err != nil {
		return fmt.Errorf("pause player: %w", err)
	}
	p.paused = true
	return nil
}

// Stop termine le processus courant; la piste doit être rechargée avant Play.
func (p *Process) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.killLocked()
	p.locator = ""
	return nil
}

// SetRate et SetVolume s'appliquent au verset en cours et aux suivants.
func (p *Process) SetRate(rate float64) error {
	p.mu.Lock()
	p.rate = rate
	live := p.cmd != nil
	p.mu.Unlock()
	if live {
		p.setProperty("speed", rate)
	}
	return nil
}

func (p *Process) SetVolume(level float64) error {
	p.mu.Lock()
	p.volume = level
	live := p.cmd != nil
	p.mu.Unlock()
	if live {
		p.setProperty("volume", mpvVolume(level))
	}
	return nil
}

// setProperty envoie une commande JSON au socket IPC. Un échec n'est pas fatal:
// la valeur est de toute façon reprise au démarrage du verset suivant.
func (p *Process) setProperty(name string, value any) {
	conn, err := net.DialTimeout("unix", p.ipcPath, ipcTimeout)
	if err != nil {
		p.logger.Debug().Err(err).Str("property", name).Msg("player ipc unavailable")
		return
	}
	defer conn.Close()

	b, err := json.Marshal(map[string]any{"command": []any{"set_property", name, value}})
	if err != nil {
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(ipcTimeout))
	if _, err := conn.Write(append(b, '\n')); err != nil {
		p.logger.Warn().Err(err).Str("property", name).Msg("player ipc write failed")
	}
}

func (p *Process) Events() <-chan ports.AudioEvent { return p.events }

func (p *Process) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.killLocked()
	_ = os.Remove(p.ipcPath)
	return nil
}

func (p *Process) killLocked() {
	if p.cmd == nil {
		return
	}
	cmd := p.cmd
	p.killed[cmd] = true
	if p.paused {
		// Un processus stoppé ne traite pas SIGTERM avant SIGCONT.
		_ = cmd.Process.Signal(syscall.SIGCONT)
	}
	_ = cmd.Process.Signal(syscall.SIGTERM)
	p.cmd = nil
	p.paused = false
}

// mpvVolume convertit 0..1 en 0..100.
func mpvVolume(level float64) int {
	return int(level*100 + 0.5)
}
