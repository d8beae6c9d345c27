package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/iliyamo/event-seat-assignment/internal/model"
)

// SettingRepo stores key/value settings and the seat group configuration
// history.
type SettingRepo struct {
	db *sql.DB
}

// NewSettingRepo returns a SettingRepo bound to db.
func NewSettingRepo(db *sql.DB) *SettingRepo { return &SettingRepo{db: db} }

// Get returns the value of key, or ErrNotFound.
func (r *SettingRepo) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE `key` = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return v, err
}

// Set upserts key.
func (r *SettingRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO settings (`key`, value) VALUES (?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)",
		key, value)
	return err
}

// RegistrationOpen reports whether public registration is accepted.  A
// missing setting means closed.
func (r *SettingRepo) RegistrationOpen(ctx context.Context) (bool, error) {
	v, err := r.Get(ctx, model.SettingRegistrationOpen)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v == "true", nil
}

// SetRegistrationOpen opens or closes public registration.
func (r *SettingRepo) SetRegistrationOpen(ctx context.Context, open bool) error {
	v := "false"
	if open {
		v = "true"
	}
	return r.Set(ctx, model.SettingRegistrationOpen, v)
}

// ActiveSeatGroups returns the groups of the latest active configuration.
func (r *SettingRepo) ActiveSeatGroups(ctx context.Context) (*model.SeatGroupConfig, error) {
	cfg, err := scanSeatGroupConfig(r.db.QueryRowContext(ctx,
		`SELECT id, groups_json, is_active, created_by, created_at FROM seat_group_configs
		 WHERE is_active = 1 ORDER BY id DESC LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveSeatGroups deactivates previous configurations and stores groups as
// the active one.
func (r *SettingRepo) SaveSeatGroups(ctx context.Context, groups []string, by string) (uint64, error) {
	raw, err := json.Marshal(groups)
	if err != nil {
		return 0, err
	}
	var byArg any
	if by != "" {
		byArg = by
	}

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

	if _, err := tx.ExecContext(ctx, `UPDATE seat_group_configs SET is_active = 0 WHERE is_active = 1`); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO seat_group_configs (groups_json, is_active, created_by) VALUES (?, 1, ?)`,
		string(raw), byArg)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return uint64(id), nil
}

// SeatGroupHistory returns up to limit configurations, newest first.
func (r *SettingRepo) SeatGroupHistory(ctx context.Context, limit int) ([]model.SeatGroupConfig, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, groups_json, is_active, created_by, created_at FROM seat_group_configs
		 ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.SeatGroupConfig, 0)
	for rows.Next() {
		cfg, err := scanSeatGroupConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}

func scanSeatGroupConfig(s rowScanner) (model.SeatGroupConfig, error) {
	var (
		cfg model.SeatGroupConfig
		raw string
		by  sql.NullString
	)
	if err := s.Scan(&cfg.ID, &raw, &cfg.IsActive, &by, &cfg.CreatedAt); err != nil {
		return cfg, err
	}
	cfg.CreatedBy = strPtr(by)
	if err := json.Unmarshal([]byte(raw), &cfg.Groups); err != nil {
		return cfg, err
	}
	return cfg, nil
}
