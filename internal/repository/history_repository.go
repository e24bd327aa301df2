package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tobiasfroe/cs2-portfolio-tool/internal/model"
)

// DefaultHistoryLimit is the number of daily points the log retains.
const DefaultHistoryLimit = 90

// HistoryRepository provides data access methods for the history_point table,
// the durable daily portfolio value log. The log holds at most one point per
// date and at most limit points, the most recent ones.
//
// Writes are serialized: concurrent upserts of the same date resolve as last
// write wins.
type HistoryRepository struct {
	db    *sql.DB
	limit int
	mu    sync.Mutex
}

// NewHistoryRepository creates a HistoryRepository bounded to DefaultHistoryLimit points.
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db, limit: DefaultHistoryLimit}
}

// Limit returns the maximum number of retained points.
func (r *HistoryRepository) Limit() int { return r.limit }

// Upsert inserts the point for its date, overwriting any existing point for
// that date in place, then drops points beyond the retention limit.
func (r *HistoryRepository) Upsert(ctx context.Context, point model.HistoryPoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := upsertPoint(ctx, tx, point); err != nil {
		return err
	}
	if err := r.prune(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history upsert: %w", err)
	}
	return nil
}

// Replace supersedes the whole log with points. Only the most recent points
// within the retention limit are kept.
func (r *HistoryRepository) Replace(ctx context.Context, points []model.HistoryPoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM history_point`); err != nil {
		return fmt.Errorf("failed to clear history_point table: %w", err)
	}
	for _, p := range points {
		if err := upsertPoint(ctx, tx, p); err != nil {
			return err
		}
	}
	if err := r.prune(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history replace: %w", err)
	}
	return nil
}

// Latest returns the n most recent points in ascending date order.
// n <= 0 returns the whole log.
func (r *HistoryRepository) Latest(ctx context.Context, n int) ([]model.HistoryPoint, error) {
	if n <= 0 || n > r.limit {
		n = r.limit
	}

	query := `
		SELECT date, value, recorded_at FROM (
			SELECT date, value, recorded_at
			FROM history_point
			ORDER BY date DESC
			LIMIT ?
		) ORDER BY date ASC
	`

	rows, err := r.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query history_point table: %w", err)
	}
	defer rows.Close()

	points := []model.HistoryPoint{}
	for rows.Next() {
		var date, value, recordedAt string
		if err := rows.Scan(&date, &value, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history_point results: %w", err)
		}

		v, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("failed to parse history value %q: %w", value, err)
		}
		ts, err := ParseTime(recordedAt)
		if err != nil {
			return nil, err
		}

		points = append(points, model.HistoryPoint{Date: date, Value: v, Timestamp: ts})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history_point table: %w", err)
	}

	return points, nil
}

// Count returns the number of stored points.
func (r *HistoryRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM history_point`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count history points: %w", err)
	}
	return n, nil
}

func upsertPoint(ctx context.Context, tx *sql.Tx, p model.HistoryPoint) error {
	if _, err := time.Parse(model.DateLayout, p.Date); err != nil {
		return fmt.Errorf("invalid history date %q: %w", p.Date, err)
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO history_point (id, date, value, recorded_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			value = excluded.value,
			recorded_at = excluded.recorded_at
	`,
		uuid.New().String(),
		p.Date,
		p.Value.String(),
		p.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert history point %s: %w", p.Date, err)
	}
	return nil
}

func (r *HistoryRepository) prune(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		DELETE FROM history_point
		WHERE date NOT IN (
			SELECT date FROM history_point ORDER BY date DESC LIMIT ?
		)
	`, r.limit)
	if err != nil {
		return fmt.Errorf("failed to prune history_point table: %w", err)
	}
	return nil
}
