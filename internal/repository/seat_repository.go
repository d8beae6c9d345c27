package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/event-seat-assignment/internal/database"
	"github.com/iliyamo/event-seat-assignment/internal/seating"
)

// Seat slots of a registrant.
const (
	SlotPrimary   = 1
	SlotCompanion = 2
)

// AssignmentTx is the view of the database an assignment run works
// against.  Every method runs inside the same transaction; nothing is
// visible to other sessions until the run commits.
type AssignmentTx interface {
	// LoadUnseatedPaidRoster returns paid, live registrants without a
	// primary seat in registration order.  The rows are locked until the
	// transaction ends.
	LoadUnseatedPaidRoster(ctx context.Context) ([]seating.Request, error)
	// LoadHoldings returns every registrant holding at least one seat,
	// soft-deleted rows included.
	LoadHoldings(ctx context.Context) ([]seating.Holding, error)
	// PersistAssignment claims the seats of a and records them on the
	// registrant.  ErrSeatTaken or ErrConflict mean the run must abort.
	PersistAssignment(ctx context.Context, a seating.Assignment) error
}

// SeatRepo owns every write to seat columns and the seat_claims table.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo returns a SeatRepo bound to db.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

// InAssignmentTx runs fn inside one transaction and commits when fn returns
// nil.  Any error from fn rolls everything back.
func (r *SeatRepo) InAssignmentTx(ctx context.Context, fn func(AssignmentTx) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(&assignmentTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

type assignmentTx struct {
	tx *sql.Tx
}

func (a *assignmentTx) LoadUnseatedPaidRoster(ctx context.Context) ([]seating.Request, error) {
	rows, err := a.tx.QueryContext(ctx,
		`SELECT id, ticket_count, birth_date FROM registrants
		 WHERE is_paid = 1 AND deleted_at IS NULL
		   AND seat_label IS NULL AND seat_label_2 IS NULL
		 ORDER BY created_at, id
		 FOR UPDATE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []seating.Request
	for rows.Next() {
		var (
			req   seating.Request
			birth sql.NullString
		)
		if err := rows.Scan(&req.ID, &req.TicketCount, &birth); err != nil {
			return nil, err
		}
		req.PriorityKey = birth.String
		out = append(out, req)
	}
	return out, rows.Err()
}

func (a *assignmentTx) LoadHoldings(ctx context.Context) ([]seating.Holding, error) {
	rows, err := a.tx.QueryContext(ctx,
		`SELECT id, seat_label, seat_label_2 FROM registrants
		 WHERE seat_label IS NOT NULL OR seat_label_2 IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []seating.Holding
	for rows.Next() {
		var (
			h              seating.Holding
			primary, extra sql.NullString
		)
		if err := rows.Scan(&h.RegistrantID, &primary, &extra); err != nil {
			return nil, err
		}
		h.Primary, h.Companion = primary.String, extra.String
		out = append(out, h)
	}
	return out, rows.Err()
}

func (a *assignmentTx) PersistAssignment(ctx context.Context, as seating.Assignment) error {
	if err := claim(ctx, a.tx, as.Primary, as.RequestID, SlotPrimary); err != nil {
		return err
	}
	var group2, number2, label2 any
	if as.Companion != nil {
		if err := claim(ctx, a.tx, *as.Companion, as.RequestID, SlotCompanion); err != nil {
			return err
		}
		group2, number2, label2 = as.Companion.Group, as.Companion.Number, as.Companion.Label()
	}
	res, err := a.tx.ExecContext(ctx,
		`UPDATE registrants
		 SET seat_group = ?, seat_number = ?, seat_label = ?,
		     seat_group_2 = ?, seat_number_2 = ?, seat_label_2 = ?
		 WHERE id = ? AND seat_label IS NULL AND seat_label_2 IS NULL
		   AND is_paid = 1 AND deleted_at IS NULL`,
		as.Primary.Group, as.Primary.Number, as.Primary.Label(),
		group2, number2, label2, as.RequestID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("registrant %d: %w", as.RequestID, ErrConflict)
	}
	return nil
}

// claim inserts the seat_claims row for s.  The primary key makes this the
// atomic "only if free" write.
func claim(ctx context.Context, tx *sql.Tx, s seating.Seat, registrantID uint64, slot int) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO seat_claims (label, registrant_id, slot) VALUES (?, ?, ?)`,
		s.Label(), registrantID, slot)
	if database.IsDuplicateKey(err) {
		return fmt.Errorf("%s: %w", s.Label(), ErrSeatTaken)
	}
	return err
}

// AssignManual puts registrant id into seat s on the given slot, replacing
// whatever that slot held.  The companion slot is only valid for two-ticket
// registrants.
func (r *SeatRepo) AssignManual(ctx context.Context, id uint64, slot int, s seating.Seat) error {
	if slot != SlotPrimary && slot != SlotCompanion {
		return ErrInvalidSlot
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var tickets int
	err = tx.QueryRowContext(ctx,
		`SELECT ticket_count FROM registrants WHERE id = ? AND deleted_at IS NULL FOR UPDATE`, id,
	).Scan(&tickets)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if slot == SlotCompanion && tickets != 2 {
		return ErrInvalidSlot
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM seat_claims WHERE registrant_id = ? AND slot = ?`, id, slot); err != nil {
		return err
	}
	if err := claim(ctx, tx, s, id, slot); err != nil {
		return err
	}

	q := `UPDATE registrants SET seat_group = ?, seat_number = ?, seat_label = ? WHERE id = ?`
	if slot == SlotCompanion {
		q = `UPDATE registrants SET seat_group_2 = ?, seat_number_2 = ?, seat_label_2 = ? WHERE id = ?`
	}
	if _, err := tx.ExecContext(ctx, q, s.Group, s.Number, s.Label(), id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ClearSeats releases the seats of registrant id.  slot 0 clears both.
func (r *SeatRepo) ClearSeats(ctx context.Context, id uint64, slot int) error {
	var update, release string
	var args []any
	switch slot {
	case 0:
		update = `UPDATE registrants SET seat_group = NULL, seat_number = NULL, seat_label = NULL,
			seat_group_2 = NULL, seat_number_2 = NULL, seat_label_2 = NULL WHERE id = ?`
		release = `DELETE FROM seat_claims WHERE registrant_id = ?`
		args = []any{id}
	case SlotPrimary:
		update = `UPDATE registrants SET seat_group = NULL, seat_number = NULL, seat_label = NULL WHERE id = ?`
		release = `DELETE FROM seat_claims WHERE registrant_id = ? AND slot = ?`
		args = []any{id, slot}
	case SlotCompanion:
		update = `UPDATE registrants SET seat_group_2 = NULL, seat_number_2 = NULL, seat_label_2 = NULL WHERE id = ?`
		release = `DELETE FROM seat_claims WHERE registrant_id = ? AND slot = ?`
		args = []any{id, slot}
	default:
		return ErrInvalidSlot
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM registrants WHERE id = ? FOR UPDATE`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, update, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, release, args...); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ResetAllSeats clears every seat of every registrant.  token must be
// ConfirmResetAllSeats.
func (r *SeatRepo) ResetAllSeats(ctx context.Context, token string) (int64, error) {
	if token != ConfirmResetAllSeats {
		return 0, ErrInvalidConfirmToken
	}
	return r.reset(ctx, false)
}

// ResetSeatsAndPayment clears every seat and every payment flag.  token
// must be ConfirmResetSeatsAndPayment.
func (r *SeatRepo) ResetSeatsAndPayment(ctx context.Context, token string) (int64, error) {
	if token != ConfirmResetSeatsAndPayment {
		return 0, ErrInvalidConfirmToken
	}
	return r.reset(ctx, true)
}

func (r *SeatRepo) reset(ctx context.Context, payment bool) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM seat_claims`); err != nil {
		return 0, err
	}
	q := `UPDATE registrants SET seat_group = NULL, seat_number = NULL, seat_label = NULL,
		seat_group_2 = NULL, seat_number_2 = NULL, seat_label_2 = NULL`
	if payment {
		q += `, is_paid = 0`
	}
	res, err := tx.ExecContext(ctx, q)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return n, nil
}

// ClaimedLabels returns every claimed label, for seat maps.
func (r *SeatRepo) ClaimedLabels(ctx context.Context) (seating.LabelSet, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT label FROM seat_claims`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := seating.NewLabelSet()
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, err
		}
		set.Add(l)
	}
	return set, rows.Err()
}
