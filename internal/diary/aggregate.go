// Package diary aggregates a user's meals into day, week, month and summary
// views measured against their goals.
package diary

import (
	"time"

	"github.com/ayush/nutrilog/internal/models"
)

// GoalMet applies the goal rules: calories are met when 0 < total <= goal,
// protein when goal > 0 and total >= goal.
func GoalMet(total models.Macros, goals models.Goals) models.GoalMet {
	return models.GoalMet{
		Calories: goals.Calories > 0 && total.Calories > 0 && total.Calories <= goals.Calories,
		Protein:  goals.Protein > 0 && total.Protein >= goals.Protein,
	}
}

// WeekStart returns the Monday of the ISO week containing d.
func WeekStart(d time.Time) time.Time {
	offset := (int(d.Weekday()) + 6) % 7
	return dateOnly(d).AddDate(0, 0, -offset)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// fillDays returns one entry per date in [from, to], zero-filled where no
// meals were logged.
func fillDays(from, to time.Time, totals []models.DailyTotal, goals models.Goals) []models.DayEntry {
	byDate := make(map[string]models.DailyTotal, len(totals))
	for _, t := range totals {
		byDate[t.Date] = t
	}
	var days []models.DayEntry
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		key := d.Format(models.DateLayout)
		t, ok := byDate[key]
		if !ok {
			t = models.DailyTotal{Date: key}
		}
		days = append(days, models.DayEntry{DailyTotal: t, GoalMet: GoalMet(t.Macros, goals)})
	}
	return days
}

type tally struct {
	totals      models.Macros
	logged      int
	calorieDays int
	proteinDays int
}

func count(days []models.DayEntry) tally {
	var t tally
	for _, d := range days {
		t.totals = t.totals.Add(d.Macros)
		if d.MealCount > 0 {
			t.logged++
		}
		if d.GoalMet.Calories {
			t.calorieDays++
		}
		if d.GoalMet.Protein {
			t.proteinDays++
		}
	}
	return t
}

func (t tally) averages() models.Macros {
	if t.logged == 0 {
		return models.Macros{}
	}
	return t.totals.Scale(1 / float64(t.logged))
}

// BuildDay assembles the single-day view.
func BuildDay(date string, meals []models.Meal, goals models.Goals) models.DayView {
	var total models.Macros
	for _, m := range meals {
		total = total.Add(m.Macros)
	}
	if meals == nil {
		meals = []models.Meal{}
	}
	return models.DayView{
		Date:    date,
		Meals:   meals,
		Totals:  total,
		Goals:   goals,
		GoalMet: GoalMet(total, goals),
	}
}

// BuildWeek assembles the Monday-Sunday week starting at start.
func BuildWeek(start time.Time, totals []models.DailyTotal, goals models.Goals) models.WeekView {
	start = dateOnly(start)
	end := start.AddDate(0, 0, 6)
	days := fillDays(start, end, totals, goals)
	t := count(days)
	return models.WeekView{
		Start:      start.Format(models.DateLayout),
		End:        end.Format(models.DateLayout),
		Days:       days,
		Totals:     t.totals,
		Averages:   t.averages(),
		DaysLogged: t.logged,
		Goals:      goals,
	}
}

// MonthRange returns the first and last day of the month.
func MonthRange(year int, month time.Month) (time.Time, time.Time) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return first, first.AddDate(0, 1, -1)
}

// BuildMonth assembles one entry per calendar day of the month.
func BuildMonth(year int, month time.Month, totals []models.DailyTotal, goals models.Goals) models.MonthView {
	first, last := MonthRange(year, month)
	days := fillDays(first, last, totals, goals)
	t := count(days)
	return models.MonthView{
		Year:            year,
		Month:           int(month),
		Days:            days,
		Totals:          t.totals,
		DaysLogged:      t.logged,
		CalorieGoalDays: t.calorieDays,
		ProteinGoalDays: t.proteinDays,
		Goals:           goals,
	}
}

// BuildSummary covers the n days ending today.
func BuildSummary(today time.Time, n int, totals []models.DailyTotal, goals models.Goals) models.Summary {
	to := dateOnly(today)
	from := to.AddDate(0, 0, -(n - 1))
	days := fillDays(from, to, totals, goals)
	t := count(days)
	return models.Summary{
		Days:            n,
		From:            from.Format(models.DateLayout),
		To:              to.Format(models.DateLayout),
		DaysLogged:      t.logged,
		Averages:        t.averages(),
		CalorieGoalDays: t.calorieDays,
		ProteinGoalDays: t.proteinDays,
		Streak:          streak(days),
		Goals:           goals,
	}
}

// streak counts consecutive logged days ending today, or yesterday when
// nothing is logged yet today. days must be in ascending date order.
func streak(days []models.DayEntry) int {
	i := len(days) - 1
	if i >= 0 && days[i].MealCount == 0 {
		i--
	}
	n := 0
	for ; i >= 0 && days[i].MealCount > 0; i-- {
		n++
	}
	return n
}
