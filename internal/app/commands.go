package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Guilhem-Bonnet/hidaya/internal/domain"
)

// Command est une action de lecture reçue par HTTP ou MQTT.
type Command struct {
	Action  string   `json:"action"`
	Index   *int     `json:"index,omitempty"`
	Chapter int      `json:"chapter,omitempty"`
	Value   *float64 `json:"value,omitempty"`
	// Ticket accompagne "ended" (valeur lue dans le snapshot de lecture).
	Ticket uint64 `json:"ticket,omitempty"`
}

const (
	CommandPlay      = "play"
	CommandToggle    = "toggle"
	CommandToggleAll = "toggle_all"
	CommandStop      = "stop"
	CommandSpeed     = "speed"
	CommandVolume    = "volume"
	CommandOpen      = "open"
	CommandClose     = "close"
	CommandEnded     = "ended"
)

type Dispatcher struct {
	reader   *Reader
	player   *PlaybackController
	settings *SettingsService
}

func NewDispatcher(reader *Reader, player *PlaybackController, settings *SettingsService) *Dispatcher {
	return &Dispatcher{reader: reader, player: player, settings: settings}
}

func ParseCommand(b []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(b, &cmd); err != nil {
		return cmd, coded(CodeInvalidParams, "invalid command", err)
	}
	return cmd, nil
}

// Dispatch applique la commande et renvoie l'état de lecture qui en résulte.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) (ReaderView, error) {
	cmd.Action = strings.ToLower(strings.TrimSpace(cmd.Action))
	var err error
	switch cmd.Action {
	case CommandPlay, CommandToggle, CommandEnded:
		if cmd.Index == nil {
			return ReaderView{}, coded(CodeInvalidParams, cmd.Action+" requires index", nil)
		}
		switch cmd.Action {
		case CommandPlay:
			err = d.player.PlayAt(*cmd.Index)
		case CommandToggle:
			err = d.player.ToggleSingle(*cmd.Index)
		default:
			d.player.OnVerseEnded(*cmd.Index, cmd.Ticket)
		}
	case CommandToggleAll:
		err = d.player.TogglePlayAll()
	case CommandStop:
		d.player.Stop()
	case CommandSpeed, CommandVolume:
		if cmd.Value == nil {
			return ReaderView{}, coded(CodeInvalidParams, cmd.Action+" requires value", nil)
		}
		err = d.applySetting(ctx, cmd.Action, *cmd.Value)
	case CommandOpen:
		_, err = d.reader.Open(ctx, cmd.Chapter)
	case CommandClose:
		d.reader.Close()
	default:
		return ReaderView{}, coded(CodeInvalidParams, fmt.Sprintf("unknown action %q", cmd.Action), nil)
	}
	if err != nil {
		return ReaderView{}, err
	}
	return d.reader.View(), nil
}

// Vitesse et volume passent par les réglages pour être persistés.
func (d *Dispatcher) applySetting(ctx context.Context, action string, value float64) error {
	if action == CommandSpeed {
		if err := d.player.SetSpeed(value); err != nil {
			return err
		}
	} else if err := d.player.SetVolume(value); err != nil {
		return err
	}
	if d.settings == nil {
		return nil
	}
	_, err := d.settings.Update(ctx, func(st *domain.Settings) {
		if action == CommandSpeed {
			st.Speed = value
		} else {
			st.Volume = value
		}
	})
	return err
}
