package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/event-seat-assignment/internal/model"
)

// CheckinRepo manages check-in lists and the records scanned against them.
type CheckinRepo struct {
	db *sql.DB
}

// NewCheckinRepo returns a CheckinRepo bound to db.
func NewCheckinRepo(db *sql.DB) *CheckinRepo { return &CheckinRepo{db: db} }

const checkinListSelect = `SELECT l.id, l.name, l.description, l.allowed_seat_groups, l.is_active,
	l.created_at, l.updated_at,
	(SELECT COUNT(*) FROM checkin_records r WHERE r.checkin_list_id = l.id)
	FROM checkin_lists l`

func scanCheckinList(s rowScanner) (model.CheckinList, error) {
	var (
		l       model.CheckinList
		desc    sql.NullString
		allowed sql.NullString
	)
	err := s.Scan(&l.ID, &l.Name, &desc, &allowed, &l.IsActive, &l.CreatedAt, &l.UpdatedAt, &l.CheckedInCount)
	if err != nil {
		return l, err
	}
	l.Description = strPtr(desc)
	l.AllowedSeatGroups = []string{}
	if allowed.Valid && strings.TrimSpace(allowed.String) != "" {
		if err := json.Unmarshal([]byte(allowed.String), &l.AllowedSeatGroups); err != nil {
			return l, err
		}
	}
	return l, nil
}

func encodeGroups(groups []string) (any, error) {
	if len(groups) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(groups)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// ListLists returns all lists, or only active ones, newest first.
func (r *CheckinRepo) ListLists(ctx context.Context, activeOnly bool) ([]model.CheckinList, error) {
	q := checkinListSelect
	if activeOnly {
		q += " WHERE l.is_active = 1"
	}
	q += " ORDER BY l.created_at DESC, l.id DESC"
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.CheckinList, 0)
	for rows.Next() {
		l, err := scanCheckinList(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// GetList loads one list.
func (r *CheckinRepo) GetList(ctx context.Context, id uint64) (*model.CheckinList, error) {
	l, err := scanCheckinList(r.db.QueryRowContext(ctx, checkinListSelect+" WHERE l.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// CreateList inserts l and fills its id.
func (r *CheckinRepo) CreateList(ctx context.Context, l *model.CheckinList) error {
	groups, err := encodeGroups(l.AllowedSeatGroups)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO checkin_lists (name, description, allowed_seat_groups, is_active) VALUES (?, ?, ?, ?)`,
		l.Name, nullable(l.Description), groups, l.IsActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

// UpdateList overwrites name, description, allowed groups and the active
// flag of l.ID.
func (r *CheckinRepo) UpdateList(ctx context.Context, l *model.CheckinList) error {
	groups, err := encodeGroups(l.AllowedSeatGroups)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE checkin_lists SET name = ?, description = ?, allowed_seat_groups = ?, is_active = ? WHERE id = ?`,
		l.Name, nullable(l.Description), groups, l.IsActive, l.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		// unchanged rows report 0 as well
		if _, err := r.GetList(ctx, l.ID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteList removes a list that has no records; ErrConflict otherwise.
func (r *CheckinRepo) DeleteList(ctx context.Context, id uint64) error {
	var n int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM checkin_records WHERE checkin_list_id = ?`, id).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM checkin_lists WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err != nil {
		return err
	} else if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Record checks registrantID in on listID.  INSERT IGNORE on the unique
// (registrant, list) key makes concurrent scans safe: exactly one wins and
// the others get created=false with the original timestamp.
func (r *CheckinRepo) Record(ctx context.Context, registrantID, listID uint64, by string) (created bool, at time.Time, err error) {
	now := time.Now().UTC().Truncate(time.Second)
	var byArg any
	if by != "" {
		byArg = by
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT IGNORE INTO checkin_records (registrant_id, checkin_list_id, checked_in_at, checked_in_by) VALUES (?, ?, ?, ?)`,
		registrantID, listID, now, byArg)
	if err != nil {
		return false, time.Time{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, time.Time{}, err
	}
	if n == 0 {
		err = r.db.QueryRowContext(ctx,
			`SELECT checked_in_at FROM checkin_records WHERE registrant_id = ? AND checkin_list_id = ?`,
			registrantID, listID).Scan(&at)
		return false, at, err
	}
	if _, err := r.db.ExecContext(ctx,
		`UPDATE registrants SET is_checked_in = 1 WHERE id = ?`, registrantID); err != nil {
		return true, now, err
	}
	return true, now, nil
}

// Stats counts paid live registrants and how many of them are checked in
// anywhere.
func (r *CheckinRepo) Stats(ctx context.Context) (model.CheckinStats, error) {
	var s model.CheckinStats
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(is_checked_in), 0) FROM registrants WHERE is_paid = 1 AND deleted_at IS NULL`,
	).Scan(&s.Eligible, &s.CheckedIn)
	s.Remaining = s.Eligible - s.CheckedIn
	return s, err
}

// ListStats counts the registrants list l admits and how many were checked
// in on it.
func (r *CheckinRepo) ListStats(ctx context.Context, l model.CheckinList) (model.CheckinStats, error) {
	var s model.CheckinStats
	q := `SELECT COUNT(*) FROM registrants WHERE is_paid = 1 AND deleted_at IS NULL`
	var args []any
	if len(l.AllowedSeatGroups) > 0 {
		q += ` AND (seat_group IS NULL OR seat_group IN (?` + strings.Repeat(", ?", len(l.AllowedSeatGroups)-1) + `))`
		for _, g := range l.AllowedSeatGroups {
			args = append(args, g)
		}
	}
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&s.Eligible); err != nil {
		return s, err
	}
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM checkin_records WHERE checkin_list_id = ?`, l.ID).Scan(&s.CheckedIn); err != nil {
		return s, err
	}
	s.Remaining = s.Eligible - s.CheckedIn
	if s.Remaining < 0 {
		s.Remaining = 0
	}
	return s, nil
}

// Records pages through the records of a list, most recent first.
func (r *CheckinRepo) Records(ctx context.Context, listID uint64, limit, offset int) ([]model.CheckinRecord, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM checkin_records WHERE checkin_list_id = ?`, listID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.registrant_id, c.checkin_list_id, c.checked_in_at, c.checked_in_by,
		        p.user_name, p.phone, p.seat_label
		 FROM checkin_records c
		 JOIN registrants p ON p.id = c.registrant_id
		 WHERE c.checkin_list_id = ?
		 ORDER BY c.checked_in_at DESC, c.id DESC
		 LIMIT ? OFFSET ?`, listID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.CheckinRecord, 0, limit)
	for rows.Next() {
		var (
			rec       model.CheckinRecord
			by, label sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.RegistrantID, &rec.CheckinListID, &rec.CheckedInAt, &by,
			&rec.UserName, &rec.Phone, &label); err != nil {
			return nil, 0, err
		}
		rec.CheckedInBy = strPtr(by)
		rec.SeatLabel = strPtr(label)
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

// CancelRecord deletes a record.  The registrant's is_checked_in flag is
// cleared when no other list still has them checked in.
func (r *CheckinRepo) CancelRecord(ctx context.Context, listID, recordID uint64) error {
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

	var registrantID uint64
	err = tx.QueryRowContext(ctx,
		`SELECT registrant_id FROM checkin_records WHERE id = ? AND checkin_list_id = ? FOR UPDATE`,
		recordID, listID).Scan(&registrantID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM checkin_records WHERE id = ?`, recordID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE registrants SET is_checked_in = 0
		 WHERE id = ? AND NOT EXISTS (SELECT 1 FROM checkin_records WHERE registrant_id = ?)`,
		registrantID, registrantID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
