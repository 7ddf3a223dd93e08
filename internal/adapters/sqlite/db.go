package sqlite

import (
	"bufio"
	"context"
	"embed"
	"fmt"
	"io/fs"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB regroupe la connexion SQLite (driver pur Go modernc) et l'accès sqlx des repositories.
// Le schéma (réglages, jobs, sourates hors-ligne) est migré à l'ouverture.
type DB struct {
	X *sqlx.DB
}

func Open(ctx context.Context, path string) (*DB, error) {
	x, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// SQLite: un seul écrivain; ":memory:" exige aussi une connexion unique.
	x.SetMaxOpenConns(1)
	x.SetMaxIdleConns(1)
	x.SetConnMaxLifetime(0)

	db := &DB{X: x}
	if err := db.Ping(ctx); err != nil {
		_ = x.Close()
		return nil, err
	}
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		_ = x.Close()
		return nil, err
	}
	if err := db.Migrate(ctx, sub); err != nil {
		_ = x.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error {
	return d.X.Close()
}

func (d *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return d.X.PingContext(ctx)
}

// SchemaVersion renvoie la dernière migration appliquée (0 si aucune).
func (d *DB) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := d.X.GetContext(ctx, &v, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`)
	return v, err
}

type migration struct {
	version int
	name    string
	up      string
}

// Migrate applique, chacune dans sa transaction, les migrations "NNNN_nom.sql" de fsys
// pas encore enregistrées dans schema_migrations.
func (d *DB) Migrate(ctx context.Context, fsys fs.FS) error {
	if _, err := d.X.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL);`); err != nil {
		return err
	}
	pending, err := loadMigrations(fsys)
	if err != nil {
		return err
	}
	current, err := d.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range pending {
		if m.version <= current || strings.TrimSpace(m.up) == "" {
			continue
		}
		if err := d.apply(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) apply(ctx context.Context, m migration) error {
	tx, err := d.X.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, m.up); err != nil {
		return fmt.Errorf("migration %s failed: %w", m.name, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, applied_at) VALUES(?, ?)`, m.version, nowText()); err != nil {
		return err
	}
	return tx.Commit()
}

func loadMigrations(fsys fs.FS) ([]migration, error) {
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, err
	}
	out := make([]migration, 0, len(names))
	for _, name := range names {
		prefix, _, _ := strings.Cut(name, "_")
		v, err := strconv.Atoi(prefix)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("invalid migration name: %s", name)
		}
		b, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		out = append(out, migration{version: v, name: name, up: upSection(string(b))})
	}
	slices.SortFunc(out, func(a, b migration) int { return a.version - b.version })
	for i := 1; i < len(out); i++ {
		if out[i].version == out[i-1].version {
			return nil, fmt.Errorf("duplicate migration version %d", out[i].version)
		}
	}
	return out, nil
}

// upSection garde les lignes entre "-- +migrate Up" et "-- +migrate Down".
func upSection(sqlText string) string {
	var b strings.Builder
	inUp := false
	sc := bufio.NewScanner(strings.NewReader(sqlText))
	for sc.Scan() {
		line := sc.Text()
		switch trim := strings.TrimSpace(line); {
		case strings.HasPrefix(trim, "-- +migrate Up"):
			inUp = true
		case strings.HasPrefix(trim, "-- +migrate Down"):
			inUp = false
		case inUp:
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}
