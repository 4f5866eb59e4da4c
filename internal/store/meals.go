package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/ayush/nutrilog/internal/models"
)

const mealColumns = `id, user_id, meal_date, meal_type, description,
	calories, protein, carbs, fat, fiber, sugar, sodium,
	source, analysis_note, created_at, updated_at`

func scanMeal(row interface{ Scan(...any) error }, m *models.Meal) error {
	return row.Scan(&m.ID, &m.UserID, &m.Date, &m.Type, &m.Description,
		&m.Calories, &m.Protein, &m.Carbs, &m.Fat, &m.Fiber, &m.Sugar, &m.Sodium,
		&m.Source, &m.AnalysisNote, &m.CreatedAt, &m.UpdatedAt)
}

func (s *Store) CreateMeal(ctx context.Context, m *models.Meal) (*models.Meal, error) {
	out := *m
	out.CreatedAt = time.Now().UTC()
	out.UpdatedAt = out.CreatedAt
	err := s.db.QueryRowContext(ctx, s.q(
		`INSERT INTO meals (user_id, meal_date, meal_type, description,
			calories, protein, carbs, fat, fiber, sugar, sodium,
			source, analysis_note, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`),
		out.UserID, out.Date, out.Type, out.Description,
		out.Calories, out.Protein, out.Carbs, out.Fat, out.Fiber, out.Sugar, out.Sodium,
		out.Source, out.AnalysisNote, out.CreatedAt, out.UpdatedAt,
	).Scan(&out.ID)
	if err != nil {
		return nil, wrap("create meal", err)
	}
	return &out, nil
}

// GetMeal returns the meal only when it belongs to userID.
func (s *Store) GetMeal(ctx context.Context, userID, id int64) (*models.Meal, error) {
	var m models.Meal
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+mealColumns+` FROM meals WHERE id = ? AND user_id = ?`), id, userID)
	if err := scanMeal(row, &m); err != nil {
		return nil, wrap("get meal", err)
	}
	return &m, nil
}

// ListMeals returns meals with from <= meal_date <= to, oldest first.
func (s *Store) ListMeals(ctx context.Context, userID int64, from, to string) ([]models.Meal, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT `+mealColumns+` FROM meals
		 WHERE user_id = ? AND meal_date >= ? AND meal_date <= ?
		 ORDER BY meal_date, created_at, id`),
		userID, from, to,
	)
	if err != nil {
		return nil, wrap("list meals", err)
	}
	defer rows.Close()

	meals := []models.Meal{}
	for rows.Next() {
		var m models.Meal
		if err := scanMeal(rows, &m); err != nil {
			return nil, wrap("scan meal", err)
		}
		meals = append(meals, m)
	}
	return meals, wrap("list meals", rows.Err())
}

// UpdateMeal overwrites every mutable column of an owned meal.
func (s *Store) UpdateMeal(ctx context.Context, m *models.Meal) error {
	m.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, s.q(
		`UPDATE meals SET meal_date = ?, meal_type = ?, description = ?,
			calories = ?, protein = ?, carbs = ?, fat = ?, fiber = ?, sugar = ?, sodium = ?,
			source = ?, analysis_note = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`),
		m.Date, m.Type, m.Description,
		m.Calories, m.Protein, m.Carbs, m.Fat, m.Fiber, m.Sugar, m.Sodium,
		m.Source, m.AnalysisNote, m.UpdatedAt,
		m.ID, m.UserID,
	)
	if err != nil {
		return wrap("update meal", err)
	}
	return affected("update meal", res)
}

func (s *Store) DeleteMeal(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM meals WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return wrap("delete meal", err)
	}
	return affected("delete meal", res)
}

// DailyTotals sums the user's meals per date in [from, to]. Dates without
// meals are absent.
func (s *Store) DailyTotals(ctx context.Context, userID int64, from, to string) ([]models.DailyTotal, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT meal_date, COUNT(*),
			COALESCE(SUM(calories), 0), COALESCE(SUM(protein), 0), COALESCE(SUM(carbs), 0),
			COALESCE(SUM(fat), 0), COALESCE(SUM(fiber), 0), COALESCE(SUM(sugar), 0),
			COALESCE(SUM(sodium), 0)
		 FROM meals
		 WHERE user_id = ? AND meal_date >= ? AND meal_date <= ?
		 GROUP BY meal_date
		 ORDER BY meal_date`),
		userID, from, to,
	)
	if err != nil {
		return nil, wrap("daily totals", err)
	}
	defer rows.Close()

	var out []models.DailyTotal
	for rows.Next() {
		var d models.DailyTotal
		if err := rows.Scan(&d.Date, &d.MealCount,
			&d.Calories, &d.Protein, &d.Carbs, &d.Fat, &d.Fiber, &d.Sugar, &d.Sodium); err != nil {
			return nil, wrap("scan daily total", err)
		}
		out = append(out, d)
	}
	return out, wrap("daily totals", rows.Err())
}

func affected(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrap(op, err)
	}
	if n == 0 {
		return wrap(op, ErrNotFound)
	}
	return nil
}
