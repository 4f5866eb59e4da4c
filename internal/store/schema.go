package store

import (
	"context"
	"fmt"
	"strings"
)

// schema is written once; {{...}} tokens expand per dialect.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            {{pk}},
		email         TEXT NOT NULL UNIQUE,
		username      TEXT NOT NULL UNIQUE,
		first_name    TEXT NOT NULL DEFAULT '',
		last_name     TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		created_at    {{ts}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS user_profiles (
		user_id        {{ref}} PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		goal_calories  {{real}} NOT NULL DEFAULT 2000,
		goal_protein   {{real}} NOT NULL DEFAULT 50,
		weight_kg      {{real}} NOT NULL DEFAULT 0,
		height_cm      {{real}} NOT NULL DEFAULT 0,
		age            INTEGER NOT NULL DEFAULT 0,
		activity_level TEXT NOT NULL DEFAULT '',
		gender         TEXT NOT NULL DEFAULT '',
		bio            TEXT NOT NULL DEFAULT '',
		updated_at     {{ts}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS meals (
		id            {{pk}},
		user_id       {{ref}} NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		meal_date     TEXT NOT NULL,
		meal_type     TEXT NOT NULL,
		description   TEXT NOT NULL,
		calories      {{real}} NOT NULL DEFAULT 0 CHECK (calories >= 0),
		protein       {{real}} NOT NULL DEFAULT 0 CHECK (protein >= 0),
		carbs         {{real}} NOT NULL DEFAULT 0 CHECK (carbs >= 0),
		fat           {{real}} NOT NULL DEFAULT 0 CHECK (fat >= 0),
		fiber         {{real}} NOT NULL DEFAULT 0 CHECK (fiber >= 0),
		sugar         {{real}} NOT NULL DEFAULT 0 CHECK (sugar >= 0),
		sodium        {{real}} NOT NULL DEFAULT 0 CHECK (sodium >= 0),
		source        TEXT NOT NULL DEFAULT 'manual',
		analysis_note TEXT NOT NULL DEFAULT '',
		created_at    {{ts}} NOT NULL,
		updated_at    {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_meals_user_date ON meals (user_id, meal_date)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id            {{pk}},
		user_id       {{ref}} NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		content       TEXT NOT NULL DEFAULT '',
		image_url     TEXT NOT NULL DEFAULT '',
		image_key     TEXT NOT NULL DEFAULT '',
		meal_id       {{ref}} REFERENCES meals(id) ON DELETE SET NULL,
		like_count    INTEGER NOT NULL DEFAULT 0,
		comment_count INTEGER NOT NULL DEFAULT 0,
		created_at    {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_user_created ON posts (user_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS post_likes (
		user_id    {{ref}} NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		post_id    {{ref}} NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		created_at {{ts}} NOT NULL,
		PRIMARY KEY (user_id, post_id)
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id         {{pk}},
		post_id    {{ref}} NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		user_id    {{ref}} NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		content    TEXT NOT NULL,
		created_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_post ON comments (post_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS follows (
		follower_id {{ref}} NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		followee_id {{ref}} NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at  {{ts}} NOT NULL,
		PRIMARY KEY (follower_id, followee_id),
		CHECK (follower_id <> followee_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_follows_followee ON follows (followee_id)`,
	`CREATE TABLE IF NOT EXISTS favorites (
		user_id    {{ref}} NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		post_id    {{ref}} NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		created_at {{ts}} NOT NULL,
		PRIMARY KEY (user_id, post_id)
	)`,
}

func (s *Store) ddl(stmt string) string {
	var r *strings.Replacer
	if s.dialect == Postgres {
		r = strings.NewReplacer(
			"{{pk}}", "BIGSERIAL PRIMARY KEY",
			"{{ref}}", "BIGINT",
			"{{ts}}", "TIMESTAMPTZ",
			"{{real}}", "DOUBLE PRECISION",
		)
	} else {
		r = strings.NewReplacer(
			"{{pk}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
			"{{ref}}", "INTEGER",
			"{{ts}}", "DATETIME",
			"{{real}}", "REAL",
		)
	}
	return r.Replace(stmt)
}

// Migrate creates every table and index if it doesn't exist.
func (s *Store) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, s.ddl(stmt)); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i, err)
		}
	}
	return nil
}
