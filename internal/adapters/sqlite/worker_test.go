package sqlite

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/hidaya/internal/adapters/memorybus"
	"github.com/Guilhem-Bonnet/hidaya/internal/app"
	"github.com/Guilhem-Bonnet/hidaya/internal/domain"
)

// stepExecutor publie une progression par pas de 0.001 puis échoue si fail est vrai.
type stepExecutor struct {
	fail bool
}

func (e stepExecutor) Execute(ctx context.Context, job domain.Job, env app.ExecEnv) error {
	for i := 1; i <= 1000; i++ {
		if err := env.UpdateProgress(float64(i) / 1000); err != nil {
			return err
		}
	}
	if e.fail {
		return app.ErrNotFound
	}
	return env.UpdateResult([]byte(`{"ok":true}`))
}

func TestWorker_ThrottlesProgressAndRecordsOutcome(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := NewJobsRepository(db.X)
	bus := memorybus.New()
	events, unsubscribe := bus.SubscribeTopics("job.progress")
	defer unsubscribe()

	opts := app.DefaultWorkerOptions()
	opts.PollInterval = 5 * time.Millisecond
	opts.ProgressStep = 0.25
	opts.Executors = app.NewExecutorRegistry(map[string]app.JobExecutor{
		"steps":  stepExecutor{},
		"broken": stepExecutor{fail: true},
	})

	now := time.Now().UTC()
	for i, typ := range []string{"steps", "broken", "mystery"} {
		created := now.Add(time.Duration(i) * time.Second)
		if _, err := repo.Create(ctx, domain.Job{ID: typ, Type: typ, State: domain.JobQueued, CreatedAt: created, UpdatedAt: created}); err != nil {
			t.Fatalf("Create(%s): %v", typ, err)
		}
	}

	go app.NewWorker(zerolog.Nop(), repo, bus, opts).Run(ctx)

	waitState := func(id string, want domain.JobState) domain.Job {
		t.Helper()
		deadline := time.Now().Add(3 * time.Second)
		for time.Now().Before(deadline) {
			job, err := repo.Get(ctx, id)
			if err == nil && job.State == want {
				return job
			}
			time.Sleep(5 * time.Millisecond)
		}
		t.Fatalf("job %s never reached %s", id, want)
		return domain.Job{}
	}

	done := waitState("steps", domain.JobCompleted)
	if done.Progress != 1 || string(done.ResultJSON) != `{"ok":true}` {
		t.Fatalf("completed job: %+v", done)
	}
	broken := waitState("broken", domain.JobFailed)
	if broken.ErrorCode != "executor_failed" {
		t.Fatalf("broken job error code: %q", broken.ErrorCode)
	}
	unknown := waitState("mystery", domain.JobFailed)
	if unknown.ErrorCode != app.CodeInvalidParams {
		t.Fatalf("unknown type error code: %q", unknown.ErrorCode)
	}

	// 1000 pas de 0.001 avec un seuil de 0.25: 4 publications par job exécuté.
	count := 0
	for {
		select {
		case evt := <-events:
			var dto app.JobDTO
			if err := json.Unmarshal(evt.Payload, &dto); err == nil && dto.ID == "steps" {
				count++
			}
			continue
		default:
		}
		break
	}
	if count != 4 {
		t.Fatalf("expected 4 throttled progress events for steps, got %d", count)
	}
}
