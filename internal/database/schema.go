package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate creates every table the service needs.  Statements use IF NOT
// EXISTS so it is safe on every start; they run one by one because the
// driver is not opened with multiStatements.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i, err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		role VARCHAR(16) NOT NULL DEFAULT 'STAFF',
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_refresh_user (user_id),
		CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	// seat_label/seat_label_2 mirror seat_claims; the claim table is the
	// authority for uniqueness.
	`CREATE TABLE IF NOT EXISTS registrants (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_name VARCHAR(100) NOT NULL,
		phone CHAR(11) NOT NULL UNIQUE,
		birth_date CHAR(6) NULL,
		ticket_count TINYINT NOT NULL DEFAULT 1,
		companion_name VARCHAR(100) NULL,
		companion_phone CHAR(11) NULL,
		companion_birth_date CHAR(6) NULL,
		companion_completed TINYINT(1) NOT NULL DEFAULT 0,
		is_paid TINYINT(1) NOT NULL DEFAULT 0,
		seat_group VARCHAR(16) NULL,
		seat_number INT NULL,
		seat_label VARCHAR(32) NULL,
		seat_group_2 VARCHAR(16) NULL,
		seat_number_2 INT NULL,
		seat_label_2 VARCHAR(32) NULL,
		is_checked_in TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		deleted_at DATETIME NULL,
		KEY idx_registrants_companion_phone (companion_phone),
		KEY idx_registrants_roster (is_paid, deleted_at, seat_label, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS seat_claims (
		label VARCHAR(32) NOT NULL PRIMARY KEY,
		registrant_id BIGINT UNSIGNED NOT NULL,
		slot TINYINT NOT NULL,
		claimed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_claim_slot (registrant_id, slot),
		CONSTRAINT fk_claim_registrant FOREIGN KEY (registrant_id) REFERENCES registrants(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	"CREATE TABLE IF NOT EXISTS settings (\n" +
		"\t`key` VARCHAR(64) NOT NULL PRIMARY KEY,\n" +
		"\tvalue VARCHAR(255) NOT NULL,\n" +
		"\tupdated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP\n" +
		") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4",

	`CREATE TABLE IF NOT EXISTS seat_group_configs (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		groups_json TEXT NOT NULL,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		created_by VARCHAR(255) NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_seat_group_active (is_active)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS checkin_lists (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		description VARCHAR(255) NULL,
		allowed_seat_groups TEXT NULL,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS checkin_records (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		registrant_id BIGINT UNSIGNED NOT NULL,
		checkin_list_id BIGINT UNSIGNED NOT NULL,
		checked_in_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		checked_in_by VARCHAR(255) NULL,
		UNIQUE KEY uq_checkin_once (registrant_id, checkin_list_id),
		KEY idx_checkin_list (checkin_list_id),
		CONSTRAINT fk_checkin_registrant FOREIGN KEY (registrant_id) REFERENCES registrants(id) ON DELETE CASCADE,
		CONSTRAINT fk_checkin_list FOREIGN KEY (checkin_list_id) REFERENCES checkin_lists(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS inquiries (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_name VARCHAR(100) NOT NULL,
		phone CHAR(11) NOT NULL,
		content TEXT NOT NULL,
		answer TEXT NULL,
		is_answered TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		answered_at DATETIME NULL,
		KEY idx_inquiry_phone (phone),
		KEY idx_inquiry_answered (is_answered, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS stories (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		phone CHAR(11) NOT NULL,
		title VARCHAR(200) NULL,
		content TEXT NOT NULL,
		is_read TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		deleted_at DATETIME NULL,
		KEY idx_story_live (deleted_at, is_read, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	"INSERT IGNORE INTO settings (`key`, value) VALUES ('registration_open', 'false')",
}
