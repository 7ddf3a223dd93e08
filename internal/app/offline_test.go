package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/hidaya/internal/domain"
	"github.com/Guilhem-Bonnet/hidaya/internal/ports"
)

func TestOfflineLibrary_Paths(t *testing.T) {
	lib := NewOfflineLibrary("/data/offline")
	if got := lib.Path("ar.alafasy", 7); got != filepath.Join("/data/offline", "ar.alafasy", "7.mp3") {
		t.Fatalf("unexpected path %q", got)
	}
	if got := lib.Dir("../../etc"); got != filepath.Join("/data/offline", "_.._etc") {
		t.Fatalf("reciter must not escape the library: %q", got)
	}
	if got := lib.Dir(" "); got != filepath.Join("/data/offline", "_") {
		t.Fatalf("blank reciter: %q", got)
	}
}

func TestOfflineLibrary_RewriteSkipsEmptyFiles(t *testing.T) {
	lib := NewOfflineLibrary(t.TempDir())
	verses := []domain.Verse{{Number: 1, Audio: "https://cdn/1.mp3"}, {Number: 2, Audio: "https://cdn/2.mp3"}, {Number: 3}}

	if err := os.MkdirAll(lib.Dir("r"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	_ = os.WriteFile(lib.Path("r", 1), []byte("x"), 0o644)
	_ = os.WriteFile(lib.Path("r", 2), nil, 0o644)
	_ = os.WriteFile(lib.Path("r", 3), []byte("x"), 0o644)

	out := lib.Rewrite("r", verses)
	if out[0].Audio != lib.Path("r", 1) || out[1].Audio != "https://cdn/2.mp3" || out[2].Audio != "" {
		t.Fatalf("unexpected rewrite: %+v", out)
	}
	if verses[0].Audio != "https://cdn/1.mp3" {
		t.Fatalf("input slice must not be modified")
	}
	var nilLib *OfflineLibrary
	if got := nilLib.Rewrite("r", verses); &got[0] != &verses[0] {
		t.Fatalf("nil library must return the input as is")
	}
}

func TestOfflineRecorder_RecordsCompletedPrefetch(t *testing.T) {
	bus := &fakeBus{}
	repo := &memOfflineRepo{}
	u := NewOfflineRecorder(zerolog.Nop(), bus, repo)

	result, _ := json.Marshal(PrefetchResult{Chapter: 36, Reciter: "ar.alafasy", Verses: 83, Downloaded: 80, Existing: 2, Skipped: 1, Directory: "/x"})
	job := ToJobDTO(domain.Job{ID: "j1", Type: domain.JobTypePrefetch, State: domain.JobCompleted, ResultJSON: result, CreatedAt: time.Now(), UpdatedAt: time.Now()})
	payload, _ := json.Marshal(job)

	// Ignorés: autre topic, autre type.
	u.handleEvent(context.Background(), ports.Event{Topic: TopicJobProgress, Payload: payload})
	noop, _ := json.Marshal(ToJobDTO(domain.Job{ID: "j2", Type: domain.JobTypeNoop, State: domain.JobCompleted}))
	u.handleEvent(context.Background(), ports.Event{Topic: TopicJobCompleted, Payload: noop})
	if items, _ := repo.List(context.Background()); len(items) != 0 {
		t.Fatalf("unexpected records: %+v", items)
	}

	u.handleEvent(context.Background(), ports.Event{Topic: TopicJobCompleted, Payload: payload})
	items, _ := repo.List(context.Background())
	if len(items) != 1 || items[0].Chapter != 36 || items[0].Verses != 82 || items[0].Directory != "/x" {
		t.Fatalf("unexpected records: %+v", items)
	}
	if _, ok := bus.Last(TopicOfflineUpdated); !ok {
		t.Fatalf("expected offline.updated")
	}
}
