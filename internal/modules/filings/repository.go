// Package filings stores entities and their reported periods.
package filings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/screener/internal/database"
	"github.com/aristath/screener/internal/domain"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// EntitySummary is an entity without its periods.
type EntitySummary struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Sector      domain.Sector `json:"sector"`
	PeriodCount int           `json:"period_count"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Repository persists entities in the screener database.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a filings repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "filings").Logger(),
	}
}

// Save upserts the entity and replaces all of its periods. The sector is
// stored in canonical form and periods in chronological order; duplicate or
// mixed-type periods are rejected before anything is written.
func (r *Repository) Save(ctx context.Context, entity domain.Entity) error {
	if err := entity.Validate(); err != nil {
		return err
	}
	sector, err := domain.ParseSector(string(entity.Sector))
	if err != nil {
		return err
	}
	entity.Sector = sector
	periods, err := domain.SortPeriods(entity.Periods)
	if err != nil {
		return fmt.Errorf("entity %s: %w", entity.ID, err)
	}
	entity.Periods = periods
	now := time.Now().Unix()

	err = database.WithTransaction(r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO entities (id, name, sector, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name, sector = excluded.sector, updated_at = excluded.updated_at
		`, entity.ID, entity.Name, string(entity.Sector), now, now)
		if err != nil {
			return fmt.Errorf("failed to upsert entity: %w", err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM periods WHERE entity_id = ?", entity.ID); err != nil {
			return fmt.Errorf("failed to clear periods: %w", err)
		}

		for _, p := range entity.Periods {
			items, err := msgpack.Marshal(p.Items())
			if err != nil {
				return fmt.Errorf("failed to encode period %s: %w", p.Key(), err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO periods (entity_id, year, quarter, period_type, end_date, form, filed_at, items)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, entity.ID, p.Key().Year, p.Key().Quarter, string(p.Type()),
				nullUnix(p.EndDate()), string(p.Form()), nullUnix(p.FiledAt()), items)
			if err != nil {
				return fmt.Errorf("failed to insert period %s: %w", p.Key(), err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save entity %s: %w", entity.ID, err)
	}

	r.log.Info().
		Str("entity", entity.ID).
		Str("sector", string(entity.Sector)).
		Int("periods", len(entity.Periods)).
		Msg("Entity saved")
	return nil
}

// Get returns the entity with its periods in chronological order, or nil if
// it does not exist.
func (r *Repository) Get(ctx context.Context, id string) (*domain.Entity, error) {
	var entity domain.Entity
	var sector string
	err := r.db.QueryRowContext(ctx, "SELECT id, name, sector FROM entities WHERE id = ?", id).
		Scan(&entity.ID, &entity.Name, &sector)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entity %s: %w", id, err)
	}
	entity.Sector = domain.Sector(sector)

	periods, err := r.periods(ctx, id)
	if err != nil {
		return nil, err
	}
	entity.Periods = periods
	return &entity, nil
}

func (r *Repository) periods(ctx context.Context, id string) ([]domain.FinancialPeriod, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT year, quarter, end_date, form, filed_at, items
		FROM periods WHERE entity_id = ?
		ORDER BY period_type, year, quarter
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query periods of %s: %w", id, err)
	}
	defer rows.Close()

	var periods []domain.FinancialPeriod
	for rows.Next() {
		var (
			key       domain.PeriodKey
			endDate   sql.NullInt64
			form      string
			filedAt   sql.NullInt64
			itemsBlob []byte
		)
		if err := rows.Scan(&key.Year, &key.Quarter, &endDate, &form, &filedAt, &itemsBlob); err != nil {
			return nil, fmt.Errorf("failed to scan period: %w", err)
		}

		var items map[string]float64
		if err := msgpack.Unmarshal(itemsBlob, &items); err != nil {
			return nil, fmt.Errorf("failed to decode period %s of %s: %w", key, id, err)
		}

		p, err := domain.NewFinancialPeriod(key, domain.PeriodMeta{
			EndDate: fromNullUnix(endDate),
			Form:    domain.FilingForm(form),
			FiledAt: fromNullUnix(filedAt),
		}, items)
		if err != nil {
			return nil, fmt.Errorf("stored period %s of %s is invalid: %w", key, id, err)
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

// List returns every entity summary ordered by id.
func (r *Repository) List(ctx context.Context) ([]EntitySummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.id, e.name, e.sector, e.updated_at, COUNT(p.entity_id)
		FROM entities e LEFT JOIN periods p ON p.entity_id = e.id
		GROUP BY e.id
		ORDER BY e.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	defer rows.Close()

	summaries := []EntitySummary{}
	for rows.Next() {
		var s EntitySummary
		var sector string
		var updatedAt int64
		if err := rows.Scan(&s.ID, &s.Name, &sector, &updatedAt, &s.PeriodCount); err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		s.Sector = domain.Sector(sector)
		s.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// All loads every entity with its periods.
func (r *Repository) All(ctx context.Context) ([]domain.Entity, error) {
	summaries, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	entities := make([]domain.Entity, 0, len(summaries))
	for _, s := range summaries {
		e, err := r.Get(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		if e != nil {
			entities = append(entities, *e)
		}
	}
	return entities, nil
}

// Delete removes an entity and its periods. Returns false if it did not exist.
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	var n int64
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM periods WHERE entity_id = ?", id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM entities WHERE id = ?", id)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete entity %s: %w", id, err)
	}
	if n > 0 {
		r.log.Info().Str("entity", id).Msg("Entity deleted")
	}
	return n > 0, nil
}

func nullUnix(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func fromNullUnix(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.Unix(v.Int64, 0).UTC()
}
