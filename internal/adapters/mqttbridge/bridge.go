// Package mqttbridge relaie les événements du bus vers un broker MQTT et
// reçoit les commandes de lecture depuis un topic dédié.
package mqttbridge

import (
	"context"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/hidaya/internal/app"
	"github.com/Guilhem-Bonnet/hidaya/internal/ports"
)

const (
	DefaultEventsPrefix  = "hidaya/events"
	DefaultCommandsTopic = "hidaya/commands"

	disconnectQuiesceMs = 250
	commandTimeout      = 15 * time.Second
)

type Options struct {
	Broker        string
	ClientID      string
	Username      string
	Password      string
	EventsPrefix  string
	CommandsTopic string
}

// CommandDispatcher est la partie du Dispatcher applicatif utilisée par le pont.
type CommandDispatcher interface {
	Dispatch(ctx context.Context, cmd app.Command) (app.ReaderView, error)
}

type Bridge struct {
	logger   zerolog.Logger
	opts     Options
	bus      ports.EventBus
	commands CommandDispatcher
	client   mqtt.Client
}

func New(logger zerolog.Logger, opts Options, bus ports.EventBus, commands CommandDispatcher) *Bridge {
	if opts.EventsPrefix == "" {
		opts.EventsPrefix = DefaultEventsPrefix
	}
	if opts.CommandsTopic == "" {
		opts.CommandsTopic = DefaultCommandsTopic
	}
	if opts.ClientID == "" {
		opts.ClientID = "hidaya-server"
	}
	b := &Bridge{logger: logger, opts: opts, bus: bus, commands: commands}

	co := mqtt.NewClientOptions()
	co.AddBroker(opts.Broker)
	co.SetClientID(opts.ClientID)
	co.SetUsername(opts.Username)
	co.SetPassword(opts.Password)
	co.SetAutoReconnect(true)
	co.SetConnectRetry(true)
	co.OnConnect = func(c mqtt.Client) {
		logger.Info().Str("broker", opts.Broker).Msg("mqtt connected")
		// (Ré)abonnement à chaque connexion.
		if token := c.Subscribe(opts.CommandsTopic, 1, b.onCommand); token.Wait() && token.Error() != nil {
			logger.Error().Err(token.Error()).Str("topic", opts.CommandsTopic).Msg("mqtt subscribe failed")
		}
	}
	co.OnConnectionLost = func(c mqtt.Client, err error) {
		logger.Warn().Err(err).Msg("mqtt connection lost")
	}
	b.client = mqtt.NewClient(co)
	return b
}

// Run connecte le client puis relaie les événements jusqu'à l'arrêt du contexte.
func (b *Bridge) Run(ctx context.Context) error {
	token := b.client.Connect()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-token.Done():
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	defer b.client.Disconnect(disconnectQuiesceMs)

	events, cancel := b.bus.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("mqtt bridge stopped")
			return nil
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			b.publish(evt)
		}
	}
}

func (b *Bridge) publish(evt ports.Event) {
	topic := EventTopic(b.opts.EventsPrefix, evt.Topic)
	// Le dernier état de lecture est conservé par le broker pour les nouveaux abonnés.
	retained := evt.Topic == app.TopicPlaybackState || evt.Topic == app.TopicPrayerUpdated
	token := b.client.Publish(topic, 0, retained, evt.Payload)
	go func() {
		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			b.logger.Warn().Err(token.Error()).Str("topic", topic).Msg("mqtt publish failed")
		}
	}()
}

func (b *Bridge) onCommand(_ mqtt.Client, msg mqtt.Message) {
	b.handleCommand(msg.Payload())
}

func (b *Bridge) handleCommand(payload []byte) {
	cmd, err := app.ParseCommand(payload)
	if err != nil {
		b.logger.Warn().Err(err).Msg("invalid mqtt command")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if _, err := b.commands.Dispatch(ctx, cmd); err != nil {
		b.logger.Warn().Err(err).Str("action", cmd.Action).Str("code", app.ErrorCode(err)).Msg("mqtt command failed")
		return
	}
	b.logger.Debug().Str("action", cmd.Action).Msg("mqtt command applied")
}

// EventTopic traduit un topic du bus ("playback.state") en topic MQTT ("hidaya/events/playback/state").
func EventTopic(prefix, topic string) string {
	return strings.TrimRight(prefix, "/") + "/" + strings.ReplaceAll(topic, ".", "/")
}
