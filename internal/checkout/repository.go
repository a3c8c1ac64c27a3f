package checkout

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
)

type postgresLedger struct {
	db *sql.DB
}

// NewPostgresLedger stores handoffs in the checkout_handoffs table, so a
// payment callback can be resumed by any instance and after a restart.
func NewPostgresLedger(db *sql.DB) Ledger {
	return &postgresLedger{db: db}
}

const handoffColumns = `order_id, owner_id, line_ids, amount, created_at, dispatched_at, completed_at, outcome, message`

func (r *postgresLedger) SaveHandoff(ctx context.Context, h Handoff) error {
	const q = `
	INSERT INTO checkout_handoffs (
		order_id,
		owner_id,
		line_ids,
		amount,
		created_at
	)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (order_id)
	DO NOTHING
	RETURNING order_id;
	`

	var id string
	err := r.db.QueryRowContext(ctx, q,
		h.OrderID,
		h.OwnerID,
		pq.Array(h.LineIDs),
		h.Amount,
		h.CreatedAt,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrHandoffExists
	}
	return err
}

func (r *postgresLedger) GetHandoff(ctx context.Context, orderID string) (*Handoff, error) {
	q := `SELECT ` + handoffColumns + ` FROM checkout_handoffs WHERE order_id = $1`

	h, err := scanHandoff(r.db.QueryRowContext(ctx, q, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrHandoffNotFound
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (r *postgresLedger) Claim(ctx context.Context, orderID string, now, staleBefore time.Time) (*Handoff, bool, error) {
	q := `
	UPDATE checkout_handoffs
	SET dispatched_at = $2
	WHERE order_id = $1
	  AND completed_at IS NULL
	  AND (dispatched_at IS NULL OR dispatched_at < $3)
	RETURNING ` + handoffColumns

	h, err := scanHandoff(r.db.QueryRowContext(ctx, q, orderID, now, staleBefore))
	if err == nil {
		return h, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	// Either unknown or already claimed.
	h, err = r.GetHandoff(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	return h, false, nil
}

func (r *postgresLedger) Complete(ctx context.Context, orderID string, outcome Outcome, message string, at time.Time) error {
	const q = `
	UPDATE checkout_handoffs
	SET completed_at = $2, outcome = $3, message = $4
	WHERE order_id = $1 AND completed_at IS NULL;
	`

	_, err := r.db.ExecContext(ctx, q, orderID, at, string(outcome), message)
	return err
}

func scanHandoff(row *sql.Row) (*Handoff, error) {
	var (
		h          Handoff
		lineIDs    []string
		dispatched sql.NullTime
		completed  sql.NullTime
		outcome    string
	)
	err := row.Scan(
		&h.OrderID, &h.OwnerID, pq.Array(&lineIDs), &h.Amount, &h.CreatedAt,
		&dispatched, &completed, &outcome, &h.Message,
	)
	if err != nil {
		return nil, err
	}

	h.LineIDs = lineIDs
	h.Outcome = Outcome(outcome)
	if dispatched.Valid {
		t := dispatched.Time
		h.DispatchedAt = &t
	}
	if completed.Valid {
		t := completed.Time
		h.CompletedAt = &t
	}
	return &h, nil
}
