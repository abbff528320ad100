package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema creates the three tables.  Tour start coordinates are mirrored from
// the GeoJSON document into stored generated columns so the geo queries can
// build POINTs without JSON extraction on every row.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		role ENUM('user','guide','lead-guide','admin') NOT NULL DEFAULT 'user',
		photo VARCHAR(255) NOT NULL DEFAULT 'default.jpg',
		password_hash VARCHAR(255) NOT NULL,
		password_changed_at DATETIME NULL,
		password_reset_token CHAR(64) NULL,
		password_reset_expires DATETIME NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_email (email),
		KEY ix_users_reset (password_reset_token)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS tours (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(40) NOT NULL,
		slug VARCHAR(64) NOT NULL,
		duration INT NOT NULL,
		max_group_size INT NOT NULL,
		difficulty ENUM('easy','medium','difficult') NOT NULL,
		ratings_average DECIMAL(2,1) NOT NULL DEFAULT 4.5,
		ratings_quantity INT NOT NULL DEFAULT 0,
		price DECIMAL(10,2) NOT NULL,
		price_discount DECIMAL(10,2) NULL,
		summary VARCHAR(1000) NOT NULL,
		description TEXT NULL,
		image_cover VARCHAR(255) NOT NULL,
		images JSON NOT NULL,
		start_dates JSON NOT NULL,
		start_location JSON NOT NULL,
		start_lng DOUBLE AS (JSON_EXTRACT(start_location, '$.coordinates[0]')) STORED,
		start_lat DOUBLE AS (JSON_EXTRACT(start_location, '$.coordinates[1]')) STORED,
		locations JSON NOT NULL,
		secret_tour BOOLEAN NOT NULL DEFAULT FALSE,
		guides JSON NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_tours_name (name),
		KEY ix_tours_price_rating (price, ratings_average),
		KEY ix_tours_slug (slug)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS reviews (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		review TEXT NOT NULL,
		rating TINYINT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		tour_id BIGINT UNSIGNED NOT NULL,
		user_id BIGINT UNSIGNED NOT NULL,
		UNIQUE KEY uq_reviews_tour_user (tour_id, user_id),
		CONSTRAINT fk_reviews_tour FOREIGN KEY (tour_id) REFERENCES tours(id) ON DELETE CASCADE,
		CONSTRAINT fk_reviews_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		CONSTRAINT ck_reviews_rating CHECK (rating BETWEEN 1 AND 5)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate applies Schema.  Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
