package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/subbot/core/logger"
	"log/slog"
)

// Store persists subscriber records. Absence of a record is a normal
// result (nil, nil), never an error; boolean results report whether a
// row was actually touched.
type Store interface {
	Create(ctx context.Context, userID int64, username string) (bool, error)
	Get(ctx context.Context, userID int64) (*Record, error)
	UpdateStatus(ctx context.Context, userID int64, status Status) (bool, error)
	UpdateDates(ctx context.Context, userID int64, start time.Time, end *time.Time, plan Plan) (bool, error)
	ListExpired(ctx context.Context, today time.Time) ([]Record, error)
	Delete(ctx context.Context, userID int64) (bool, error)
}

// SQLStore is the Postgres-backed Store implementation.
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore wraps an open sqlx handle.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Create inserts a new pending subscriber without plan or dates.
// Returns false when the user already exists.
func (s *SQLStore) Create(ctx context.Context, userID int64, username string) (bool, error) {
	const q = `
		INSERT INTO subscribers (user_id, username, status)
		VALUES ($1, $2, 'pending')
		ON CONFLICT (user_id) DO NOTHING`
	res, err := s.db.ExecContext(ctx, q, userID, nullIfEmpty(username))
	if err != nil {
		return false, fmt.Errorf("create subscriber %d: %w", userID, err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		logger.SVCSubscribers.Debug("subscriber created",
			slog.String("event", "store.create"),
			slog.Int64("user_id", userID),
		)
	}
	return n > 0, nil
}

// Get fetches a subscriber by user ID. Returns (nil, nil) when absent.
func (s *SQLStore) Get(ctx context.Context, userID int64) (*Record, error) {
	const q = `
		SELECT user_id, username, start_date, end_date, status, subscription_type
		FROM subscribers
		WHERE user_id = $1`
	var rec Record
	if err := s.db.GetContext(ctx, &rec, q, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get subscriber %d: %w", userID, err)
	}
	return &rec, nil
}

// UpdateStatus sets the status column for one subscriber.
func (s *SQLStore) UpdateStatus(ctx context.Context, userID int64, status Status) (bool, error) {
	if !status.Valid() {
		return false, fmt.Errorf("update status %d: invalid status %q", userID, status)
	}
	const q = `UPDATE subscribers SET status = $1 WHERE user_id = $2`
	res, err := s.db.ExecContext(ctx, q, status, userID)
	if err != nil {
		return false, fmt.Errorf("update status %d: %w", userID, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// UpdateDates sets the subscription window and plan for one subscriber.
// A nil end marks an unbounded (lifetime) subscription.
func (s *SQLStore) UpdateDates(ctx context.Context, userID int64, start time.Time, end *time.Time, plan Plan) (bool, error) {
	if !plan.Valid() {
		return false, fmt.Errorf("update dates %d: invalid plan %q", userID, plan)
	}
	const q = `
		UPDATE subscribers
		SET start_date = $1, end_date = $2, subscription_type = $3
		WHERE user_id = $4`
	res, err := s.db.ExecContext(ctx, q, Midnight(start), nullDate(end), plan, userID)
	if err != nil {
		return false, fmt.Errorf("update dates %d: %w", userID, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListExpired returns active subscribers whose end date is before today,
// oldest expiry first.
func (s *SQLStore) ListExpired(ctx context.Context, today time.Time) ([]Record, error) {
	const q = `
		SELECT user_id, username, start_date, end_date, status, subscription_type
		FROM subscribers
		WHERE status = 'active'
		  AND end_date IS NOT NULL
		  AND end_date < $1
		ORDER BY end_date ASC`
	var recs []Record
	if err := s.db.SelectContext(ctx, &recs, q, Midnight(today)); err != nil {
		return nil, fmt.Errorf("list expired: %w", err)
	}
	return recs, nil
}

// Delete removes a subscriber row. Administrative cleanup only; the
// normal lifecycle never deletes records.
func (s *SQLStore) Delete(ctx context.Context, userID int64) (bool, error) {
	const q = `DELETE FROM subscribers WHERE user_id = $1`
	res, err := s.db.ExecContext(ctx, q, userID)
	if err != nil {
		return false, fmt.Errorf("delete subscriber %d: %w", userID, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := Midnight(*t)
	return &d
}
