package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ayush/nutrilog/internal/models"
)

// GetProfile returns the user's profile, or defaults when no row exists yet.
func (s *Store) GetProfile(ctx context.Context, userID int64) (*models.Profile, error) {
	p := models.Profile{UserID: userID}
	var updated time.Time
	err := s.db.QueryRowContext(ctx, s.q(
		`SELECT goal_calories, goal_protein, weight_kg, height_cm, age,
		        activity_level, gender, bio, updated_at
		 FROM user_profiles WHERE user_id = ?`), userID,
	).Scan(&p.GoalCalories, &p.GoalProtein, &p.WeightKg, &p.HeightCm, &p.Age,
		&p.ActivityLevel, &p.Gender, &p.Bio, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultProfile(userID), nil
	}
	if err != nil {
		return nil, wrap("get profile", err)
	}
	p.UpdatedAt = &updated
	return &p, nil
}

const upsertProfile = `INSERT INTO user_profiles
	(user_id, goal_calories, goal_protein, weight_kg, height_cm, age, activity_level, gender, bio, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (user_id) DO UPDATE SET
		goal_calories  = excluded.goal_calories,
		goal_protein   = excluded.goal_protein,
		weight_kg      = excluded.weight_kg,
		height_cm      = excluded.height_cm,
		age            = excluded.age,
		activity_level = excluded.activity_level,
		gender         = excluded.gender,
		bio            = excluded.bio,
		updated_at     = excluded.updated_at`

// SaveProfile updates the user's names and upserts the profile row in one
// transaction.
func (s *Store) SaveProfile(ctx context.Context, u *models.User, p *models.Profile) error {
	now := time.Now().UTC()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := updateUserNames(ctx, tx, s.q, u); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, s.q(upsertProfile),
			u.ID, p.GoalCalories, p.GoalProtein, p.WeightKg, p.HeightCm, p.Age,
			p.ActivityLevel, p.Gender, p.Bio, now,
		)
		if err != nil {
			return wrap("upsert profile", err)
		}
		p.UserID = u.ID
		p.UpdatedAt = &now
		return nil
	})
}

// SaveGoals upserts only the goal columns, creating the row with defaults
// for everything else.
func (s *Store) SaveGoals(ctx context.Context, userID int64, calories, protein float64) error {
	_, err := s.db.ExecContext(ctx, s.q(
		`INSERT INTO user_profiles (user_id, goal_calories, goal_protein, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
			goal_calories = excluded.goal_calories,
			goal_protein  = excluded.goal_protein,
			updated_at    = excluded.updated_at`),
		userID, calories, protein, time.Now().UTC(),
	)
	return wrap("save goals", err)
}
