package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4/pgxpool"
)

// AttemptLedger enforces one recorded attempt per (spreadsheet, email) with a
// conditional insert. The spreadsheet's own attempt count cannot do this: two
// near-simultaneous submissions both see zero prior rows. The primary key here
// makes exactly one reservation win.
type AttemptLedger struct {
	pool *pgxpool.Pool
}

func NewAttemptLedger(pool *pgxpool.Pool) *AttemptLedger {
	return &AttemptLedger{pool: pool}
}

// Reserve claims the attempt slot. It returns false when the slot was already
// taken by an earlier (or racing) submission.
func (l *AttemptLedger) Reserve(ctx context.Context, spreadsheetID, email string) (bool, error) {
	tag, err := l.pool.Exec(ctx,
		`INSERT INTO quiz_attempts (spreadsheet_id, email) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		spreadsheetID, strings.ToLower(email))
	if err != nil {
		return false, fmt.Errorf("reserve attempt: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Release gives a reserved slot back. Used when the result row never made it
// to the spreadsheet, so the reservation must not count as a completed attempt.
func (l *AttemptLedger) Release(ctx context.Context, spreadsheetID, email string) error {
	_, err := l.pool.Exec(ctx,
		`DELETE FROM quiz_attempts WHERE spreadsheet_id=$1 AND email=$2`,
		spreadsheetID, strings.ToLower(email))
	if err != nil {
		return fmt.Errorf("release attempt: %w", err)
	}
	return nil
}

// Count reports how many attempt slots an email holds for a spreadsheet.
func (l *AttemptLedger) Count(ctx context.Context, spreadsheetID, email string) (int, error) {
	var count int
	err := l.pool.QueryRow(ctx,
		`SELECT count(*) FROM quiz_attempts WHERE spreadsheet_id=$1 AND email=$2`,
		spreadsheetID, strings.ToLower(email)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return count, nil
}
