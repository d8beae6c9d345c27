package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/event-seat-assignment/internal/database"
	"github.com/iliyamo/event-seat-assignment/internal/model"
)

// RegistrantRepo provides access to the registrants table.  Seat writes
// live in seat_repository.go.
type RegistrantRepo struct {
	db *sql.DB
}

// NewRegistrantRepo returns a RegistrantRepo bound to db.
func NewRegistrantRepo(db *sql.DB) *RegistrantRepo { return &RegistrantRepo{db: db} }

// DB exposes the handle for callers that open their own transaction.
func (r *RegistrantRepo) DB() *sql.DB { return r.db }

const registrantColumns = `id, user_name, phone, birth_date, ticket_count,
	companion_name, companion_phone, companion_birth_date, companion_completed,
	is_paid, seat_group, seat_number, seat_label, seat_group_2, seat_number_2, seat_label_2,
	is_checked_in, created_at, deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistrant(s rowScanner) (model.Registrant, error) {
	var (
		reg                          model.Registrant
		birth, cName, cPhone, cBirth sql.NullString
		group, label, group2, label2 sql.NullString
		number, number2              sql.NullInt64
		deletedAt                    sql.NullTime
	)
	err := s.Scan(&reg.ID, &reg.UserName, &reg.Phone, &birth, &reg.TicketCount,
		&cName, &cPhone, &cBirth, &reg.CompanionCompleted,
		&reg.IsPaid, &group, &number, &label, &group2, &number2, &label2,
		&reg.IsCheckedIn, &reg.CreatedAt, &deletedAt)
	if err != nil {
		return reg, err
	}
	reg.BirthDate = strPtr(birth)
	reg.CompanionName = strPtr(cName)
	reg.CompanionPhone = strPtr(cPhone)
	reg.CompanionBirthDate = strPtr(cBirth)
	reg.SeatGroup = strPtr(group)
	reg.SeatNumber = intPtr(number)
	reg.SeatLabel = strPtr(label)
	reg.SeatGroup2 = strPtr(group2)
	reg.SeatNumber2 = intPtr(number2)
	reg.SeatLabel2 = strPtr(label2)
	if deletedAt.Valid {
		t := deletedAt.Time
		reg.DeletedAt = &t
	}
	return reg, nil
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func intPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	n := int(ni.Int64)
	return &n
}

func nullable(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

// Create inserts a registrant and returns its id.  A duplicate phone, or a
// phone already given as someone's companion, yields ErrPhoneExists.
func (r *RegistrantRepo) Create(ctx context.Context, reg *model.Registrant) (uint64, error) {
	var taken int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrants WHERE companion_phone = ? AND companion_completed = 1 AND deleted_at IS NULL`,
		reg.Phone).Scan(&taken)
	if err != nil {
		return 0, err
	}
	if taken > 0 {
		return 0, ErrPhoneExists
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO registrants (user_name, phone, birth_date, ticket_count) VALUES (?, ?, ?, ?)`,
		reg.UserName, reg.Phone, nullable(reg.BirthDate), reg.TicketCount)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return 0, ErrPhoneExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	reg.ID = uint64(id)
	return reg.ID, nil
}

// Count returns the number of live applications and the sum of their
// tickets.
func (r *RegistrantRepo) Count(ctx context.Context) (applications, tickets int, err error) {
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(ticket_count), 0) FROM registrants WHERE deleted_at IS NULL`,
	).Scan(&applications, &tickets)
	return applications, tickets, err
}

// GetByID loads one registrant, soft-deleted rows included.
func (r *RegistrantRepo) GetByID(ctx context.Context, id uint64) (*model.Registrant, error) {
	reg, err := scanRegistrant(r.db.QueryRowContext(ctx,
		`SELECT `+registrantColumns+` FROM registrants WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// FindByPhone looks a live registrant up by its own phone, then by the phone
// of a completed companion.  asCompanion tells which one matched.
func (r *RegistrantRepo) FindByPhone(ctx context.Context, phone string) (reg *model.Registrant, asCompanion bool, err error) {
	row, err := scanRegistrant(r.db.QueryRowContext(ctx,
		`SELECT `+registrantColumns+` FROM registrants WHERE phone = ? AND deleted_at IS NULL`, phone))
	if err == nil {
		return &row, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}
	row, err = scanRegistrant(r.db.QueryRowContext(ctx,
		`SELECT `+registrantColumns+` FROM registrants
		 WHERE companion_phone = ? AND companion_completed = 1 AND deleted_at IS NULL
		 ORDER BY id LIMIT 1`, phone))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, ErrNotFound
	}
	if err != nil {
		return nil, false, err
	}
	return &row, true, nil
}

// Companion is the data a two-ticket registrant supplies for their guest.
type Companion struct {
	Name      string
	Phone     string
	BirthDate *string
}

// SetCompanion stores the companion of the live two-ticket registrant
// identified by phone.  The companion phone must differ from the
// registrant's and must not be in use by any other live registrant or
// companion.
func (r *RegistrantRepo) SetCompanion(ctx context.Context, phone string, c Companion) error {
	if c.Phone == phone {
		return ErrPhoneExists
	}
	var id uint64
	var tickets int
	err := r.db.QueryRowContext(ctx,
		`SELECT id, ticket_count FROM registrants WHERE phone = ? AND deleted_at IS NULL`, phone,
	).Scan(&id, &tickets)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if tickets != 2 {
		return ErrInvalidSlot
	}

	var used int
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrants
		 WHERE deleted_at IS NULL AND id <> ?
		   AND (phone = ? OR (companion_phone = ? AND companion_completed = 1))`,
		id, c.Phone, c.Phone).Scan(&used)
	if err != nil {
		return err
	}
	if used > 0 {
		return ErrPhoneExists
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE registrants SET companion_name = ?, companion_phone = ?, companion_birth_date = ?, companion_completed = 1
		 WHERE id = ?`,
		c.Name, c.Phone, nullable(c.BirthDate), id)
	return err
}

// ListFilter narrows List.  Query matches name, phone or seat label.
type ListFilter struct {
	Query          string
	Paid           *bool
	Seated         *bool
	IncludeDeleted bool
}

// List returns registrants in registration order.
func (r *RegistrantRepo) List(ctx context.Context, f ListFilter) ([]model.Registrant, error) {
	var (
		where []string
		args  []any
	)
	if !f.IncludeDeleted {
		where = append(where, "deleted_at IS NULL")
	}
	if f.Paid != nil {
		where = append(where, "is_paid = ?")
		args = append(args, *f.Paid)
	}
	if f.Seated != nil {
		if *f.Seated {
			where = append(where, "seat_label IS NOT NULL")
		} else {
			where = append(where, "seat_label IS NULL")
		}
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + q + "%"
		where = append(where, "(user_name LIKE ? OR phone LIKE ? OR companion_phone LIKE ? OR seat_label LIKE ? OR seat_label_2 LIKE ?)")
		args = append(args, like, like, like, like, like)
	}
	query := `SELECT ` + registrantColumns + ` FROM registrants`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Registrant, 0)
	for rows.Next() {
		reg, err := scanRegistrant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}

// SetPaid toggles the payment flag of a live registrant.
func (r *RegistrantRepo) SetPaid(ctx context.Context, id uint64, paid bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE registrants SET is_paid = ? WHERE id = ? AND deleted_at IS NULL`, paid, id)
	if err != nil {
		return err
	}
	return r.expectRow(ctx, res, id)
}

// SoftDelete marks a registrant deleted and releases its seats in the same
// transaction so the labels become assignable again.
func (r *RegistrantRepo) SoftDelete(ctx context.Context, id uint64) error {
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

	res, err := tx.ExecContext(ctx,
		`UPDATE registrants SET deleted_at = ?,
		   seat_group = NULL, seat_number = NULL, seat_label = NULL,
		   seat_group_2 = NULL, seat_number_2 = NULL, seat_label_2 = NULL
		 WHERE id = ? AND deleted_at IS NULL`, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM seat_claims WHERE registrant_id = ?`, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Restore clears deleted_at.  Released seats are not given back.
func (r *RegistrantRepo) Restore(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE registrants SET deleted_at = NULL WHERE id = ? AND deleted_at IS NOT NULL`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// expectRow turns a zero-row update into ErrNotFound.  MySQL reports 0
// affected rows when the new value equals the old one, so the row is
// re-checked before giving up.
func (r *RegistrantRepo) expectRow(ctx context.Context, res sql.Result, id uint64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var one int
	err = r.db.QueryRowContext(ctx,
		`SELECT 1 FROM registrants WHERE id = ? AND deleted_at IS NULL`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("recheck registrant %d: %w", id, err)
	}
	return nil
}
