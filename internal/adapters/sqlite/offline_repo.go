package sqlite

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Guilhem-Bonnet/hidaya/internal/domain"
)

type OfflineRepository struct {
	db *sqlx.DB
}

func NewOfflineRepository(db *sqlx.DB) *OfflineRepository {
	return &OfflineRepository{db: db}
}

type offlineRow struct {
	Chapter   int    `db:"chapter"`
	Reciter   string `db:"reciter"`
	Verses    int    `db:"verses"`
	Directory string `db:"directory"`
	UpdatedAt string `db:"updated_at"`
}

func (r *OfflineRepository) Upsert(ctx context.Context, c domain.OfflineChapter) (domain.OfflineChapter, error) {
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now().UTC()
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO offline_chapters(chapter, reciter, verses, directory, updated_at)
		VALUES(:chapter, :reciter, :verses, :directory, :updated_at)
		ON CONFLICT(chapter, reciter) DO UPDATE SET
			verses = excluded.verses,
			directory = excluded.directory,
			updated_at = excluded.updated_at
	`, offlineRow{
		Chapter:   c.Chapter,
		Reciter:   c.Reciter,
		Verses:    c.Verses,
		Directory: c.Directory,
		UpdatedAt: c.UpdatedAt.UTC().Format(timeLayout),
	})
	if err != nil {
		return domain.OfflineChapter{}, err
	}
	return c, nil
}

func (r *OfflineRepository) List(ctx context.Context) ([]domain.OfflineChapter, error) {
	var rows []offlineRow
	if err := r.db.SelectContext(ctx, &rows, `
		SELECT chapter, reciter, verses, directory, updated_at
		FROM offline_chapters
		ORDER BY chapter ASC, reciter ASC
	`); err != nil {
		return nil, err
	}
	out := make([]domain.OfflineChapter, 0, len(rows))
	for _, row := range rows {
		updated, _ := time.Parse(timeLayout, row.UpdatedAt)
		out = append(out, domain.OfflineChapter{
			Chapter:   row.Chapter,
			Reciter:   row.Reciter,
			Verses:    row.Verses,
			Directory: row.Directory,
			UpdatedAt: updated,
		})
	}
	return out, nil
}
