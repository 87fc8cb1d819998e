package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates every table the service reads or writes.  Times are
// stored with millisecond precision in UTC.  Positions are deliberately
// not unique at the database level: a re-rank rewrites them one row at
// a time under the drop lock.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		email VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role VARCHAR(16) NOT NULL DEFAULT 'USER',
		created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3),
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL,
		expires_at DATETIME(3) NOT NULL,
		revoked_at DATETIME(3) NULL,
		created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		UNIQUE KEY uq_refresh_hash (token_hash),
		KEY idx_refresh_user (user_id),
		CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS drops (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		description TEXT NULL,
		stock INT UNSIGNED NOT NULL,
		claim_window_start DATETIME(3) NOT NULL,
		claim_window_end DATETIME(3) NOT NULL,
		created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3),
		KEY idx_drops_window_end (claim_window_end),
		CONSTRAINT chk_drops_window CHECK (claim_window_start < claim_window_end)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS waitlist_entries (
		user_id BIGINT UNSIGNED NOT NULL,
		drop_id BIGINT UNSIGNED NOT NULL,
		position INT UNSIGNED NOT NULL,
		priority_score BIGINT NOT NULL,
		created_at DATETIME(3) NOT NULL,
		PRIMARY KEY (drop_id, user_id),
		KEY idx_waitlist_user_created (user_id, created_at),
		CONSTRAINT fk_waitlist_drop FOREIGN KEY (drop_id) REFERENCES drops (id) ON DELETE CASCADE,
		CONSTRAINT fk_waitlist_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS claim_codes (
		code CHAR(16) NOT NULL PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		drop_id BIGINT UNSIGNED NOT NULL,
		created_at DATETIME(3) NOT NULL,
		used BOOLEAN NOT NULL DEFAULT FALSE,
		used_at DATETIME(3) NULL,
		UNIQUE KEY uq_claim_user_drop (user_id, drop_id),
		KEY idx_claim_drop (drop_id),
		KEY idx_claim_user_created (user_id, created_at),
		CONSTRAINT fk_claim_drop FOREIGN KEY (drop_id) REFERENCES drops (id) ON DELETE CASCADE,
		CONSTRAINT fk_claim_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates missing tables.  Existing tables are left as is.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
