package mqttbridge

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/hidaya/internal/adapters/memorybus"
	"github.com/Guilhem-Bonnet/hidaya/internal/app"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	cmds []app.Command
	err  error
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, cmd app.Command) (app.ReaderView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cmds = append(d.cmds, cmd)
	return app.ReaderView{}, d.err
}

func TestEventTopic(t *testing.T) {
	cases := map[string]string{
		"playback.state": "hidaya/events/playback/state",
		"job.completed":  "hidaya/events/job/completed",
		"reader.opened":  "hidaya/events/reader/opened",
	}
	for in, want := range cases {
		if got := EventTopic("hidaya/events/", in); got != want {
			t.Fatalf("EventTopic(%q): want %q, got %q", in, want, got)
		}
	}
}

func TestBridge_HandleCommand(t *testing.T) {
	d := &recordingDispatcher{}
	b := New(zerolog.Nop(), Options{Broker: "tcp://127.0.0.1:1"}, memorybus.New(), d)

	b.handleCommand([]byte(`{"action":"play","index":2}`))
	b.handleCommand([]byte(`not json`))
	d.err = errors.New("boom")
	b.handleCommand([]byte(`{"action":"stop"}`))

	if len(d.cmds) != 2 {
		t.Fatalf("expected 2 dispatched commands, got %d", len(d.cmds))
	}
	if d.cmds[0].Action != "play" || d.cmds[0].Index == nil || *d.cmds[0].Index != 2 {
		t.Fatalf("unexpected first command: %+v", d.cmds[0])
	}
	if d.cmds[1].Action != "stop" {
		t.Fatalf("unexpected second command: %+v", d.cmds[1])
	}
}
