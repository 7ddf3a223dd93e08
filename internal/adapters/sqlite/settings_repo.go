package sqlite

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx"

	"github.com/Guilhem-Bonnet/hidaya/internal/domain"
)

// SettingsRepository stocke une ligne par réglage (clé, valeur JSON).
// Une clé absente ou illisible garde sa valeur par défaut.
type SettingsRepository struct {
	db *sqlx.DB
}

func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

type settingRow struct {
	Key   string `db:"key"`
	Value []byte `db:"value_json"`
}

// settingFields relie chaque clé persistée au champ correspondant.
func settingFields(s *domain.Settings) map[string]any {
	return map[string]any{
		"reciter":  &s.Reciter,
		"speed":    &s.Speed,
		"volume":   &s.Volume,
		"darkMode": &s.DarkMode,
	}
}

func (r *SettingsRepository) Get(ctx context.Context) (domain.Settings, error) {
	var rows []settingRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT key, value_json FROM settings`); err != nil {
		return domain.Settings{}, err
	}

	s := domain.DefaultSettings()
	fields := settingFields(&s)
	for _, row := range rows {
		dst, ok := fields[row.Key]
		if !ok {
			continue
		}
		// Valeur corrompue ou mal typée: json laisse le défaut en place.
		_ = json.Unmarshal(row.Value, dst)
	}
	return s, nil
}

func (r *SettingsRepository) Put(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Settings{}, err
	}
	defer func() { _ = tx.Rollback() }()

	now := nowText()
	for key, value := range settingFields(&settings) {
		b, err := json.Marshal(value)
		if err != nil {
			return domain.Settings{}, err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO settings(key, value_json, updated_at)
			VALUES(?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value_json = excluded.value_json, updated_at = excluded.updated_at
		`, key, b, now); err != nil {
			return domain.Settings{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.Settings{}, err
	}
	return r.Get(ctx)
}
