// Package verdicts stores screening verdicts.
package verdicts

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aristath/screener/internal/database"
	"github.com/aristath/screener/internal/modules/screening"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultLimit bounds history queries that pass no limit.
const DefaultLimit = 20

// Repository persists verdicts. The full verdict is stored as a msgpack
// payload keyed by its json field names; the remaining columns exist for
// querying.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a verdict repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "verdicts").Logger(),
	}
}

func encode(v screening.Verdict) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte) (screening.Verdict, error) {
	var v screening.Verdict
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	err := dec.Decode(&v)
	return v, err
}

// Save stores one verdict.
func (r *Repository) Save(ctx context.Context, v screening.Verdict) error {
	return r.SaveAll(ctx, []screening.Verdict{v})
}

// SaveAll stores verdicts in a single transaction.
func (r *Repository) SaveAll(ctx context.Context, verdicts []screening.Verdict) error {
	if len(verdicts) == 0 {
		return nil
	}

	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO verdicts (id, run_id, entity_id, sector, ruleset, ruleset_version, outcome, created_at, payload)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, v := range verdicts {
			if v.ID == "" {
				return fmt.Errorf("verdict for %s has no id", v.EntityID)
			}
			payload, err := encode(v)
			if err != nil {
				return fmt.Errorf("failed to encode verdict %s: %w", v.ID, err)
			}
			_, err = stmt.ExecContext(ctx, v.ID, v.RunID, v.EntityID, string(v.Sector),
				v.Ruleset, v.RulesetVersion, string(v.Outcome), v.CreatedAt.UnixMilli(), payload)
			if err != nil {
				return fmt.Errorf("failed to insert verdict %s: %w", v.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save verdicts: %w", err)
	}

	r.log.Debug().Int("count", len(verdicts)).Msg("Verdicts saved")
	return nil
}

// Get returns a verdict by id, or nil if it does not exist.
func (r *Repository) Get(ctx context.Context, id string) (*screening.Verdict, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx, "SELECT payload FROM verdicts WHERE id = ?", id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get verdict %s: %w", id, err)
	}

	v, err := decode(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode verdict %s: %w", id, err)
	}
	return &v, nil
}

// ListByEntity returns the newest verdicts of an entity first.
func (r *Repository) ListByEntity(ctx context.Context, entityID string, limit int) ([]screening.Verdict, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return r.query(ctx, `
		SELECT id, payload FROM verdicts
		WHERE entity_id = ?
		ORDER BY created_at DESC, id
		LIMIT ?
	`, entityID, limit)
}

// Latest returns the most recent verdict of an entity, or nil.
func (r *Repository) Latest(ctx context.Context, entityID string) (*screening.Verdict, error) {
	list, err := r.ListByEntity(ctx, entityID, 1)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}

// ListByRun returns every verdict of one screening run ordered by entity.
func (r *Repository) ListByRun(ctx context.Context, runID string) ([]screening.Verdict, error) {
	return r.query(ctx, `
		SELECT id, payload FROM verdicts
		WHERE run_id = ?
		ORDER BY entity_id
	`, runID)
}

// CountByOutcome returns how many verdicts of a run ended in each outcome.
func (r *Repository) CountByOutcome(ctx context.Context, runID string) (map[screening.Status]int, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT outcome, COUNT(*) FROM verdicts WHERE run_id = ? GROUP BY outcome", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to count verdicts of run %s: %w", runID, err)
	}
	defer rows.Close()

	counts := make(map[screening.Status]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		counts[screening.Status(outcome)] = n
	}
	return counts, rows.Err()
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]screening.Verdict, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query verdicts: %w", err)
	}
	defer rows.Close()

	verdicts := []screening.Verdict{}
	for rows.Next() {
		var id string
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan verdict: %w", err)
		}
		v, err := decode(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode verdict %s: %w", id, err)
		}
		verdicts = append(verdicts, v)
	}
	return verdicts, rows.Err()
}
