package sqlite

import (
	"context"
	"testing"

	"github.com/Guilhem-Bonnet/hidaya/internal/domain"
)

func TestSettingsRepository_DefaultsAndPersist(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := NewSettingsRepository(db.X)

	got, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("Get(default): %v", err)
	}
	if got != domain.DefaultSettings() {
		t.Fatalf("expected default settings, got %+v", got)
	}

	want := domain.Settings{Reciter: "ar.husary", Speed: 1.5, Volume: 0.4, DarkMode: false}
	updated, err := repo.Put(ctx, want)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if updated != want {
		t.Fatalf("Put: want %+v, got %+v", want, updated)
	}

	var rows int
	if err := db.X.GetContext(ctx, &rows, `SELECT COUNT(*) FROM settings`); err != nil || rows != 4 {
		t.Fatalf("expected one row per setting, got %d (%v)", rows, err)
	}

	got2, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("Get(after Put): %v", err)
	}
	if got2 != want {
		t.Fatalf("Get after Put: want %+v, got %+v", want, got2)
	}
}

func TestSettingsRepository_MissingOrInvalidKeysKeepDefaults(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	seed := map[string]string{
		"reciter": `"ar.minshawi"`,
		"volume":  `"loud"`,
		"legacy":  `{"x":1}`,
	}
	for k, v := range seed {
		if _, err := db.X.ExecContext(ctx, `INSERT INTO settings(key, value_json, updated_at) VALUES(?, ?, '')`, k, []byte(v)); err != nil {
			t.Fatalf("seed %s: %v", k, err)
		}
	}

	got, err := NewSettingsRepository(db.X).Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Reciter != "ar.minshawi" {
		t.Fatalf("Reciter: got %q", got.Reciter)
	}
	if got.Speed != 1 || got.Volume != 1 || !got.DarkMode {
		t.Fatalf("expected defaults for missing or invalid keys, got %+v", got)
	}
}
