package models

// Goals are the daily calorie and protein targets.
type Goals struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
}

// GoalMet reports which goals a day's totals satisfy.
type GoalMet struct {
	Calories bool `json:"calories"`
	Protein  bool `json:"protein"`
}

// DailyTotal is the aggregate of one user's meals on a single date.
type DailyTotal struct {
	Date      string `json:"date"`
	MealCount int    `json:"meal_count"`
	Macros
}

// DayEntry is one day inside a week or month view.
type DayEntry struct {
	DailyTotal
	GoalMet GoalMet `json:"goal_met"`
}

// DayView is the response of GET /api/diary/{date}.
type DayView struct {
	Date    string  `json:"date"`
	Meals   []Meal  `json:"meals"`
	Totals  Macros  `json:"totals"`
	Goals   Goals   `json:"goals"`
	GoalMet GoalMet `json:"goal_met"`
}

// WeekView is the response of GET /api/diary/week/{date}.
type WeekView struct {
	Start      string     `json:"start"`
	End        string     `json:"end"`
	Days       []DayEntry `json:"days"`
	Totals     Macros     `json:"totals"`
	Averages   Macros     `json:"averages"`
	DaysLogged int        `json:"days_logged"`
	Goals      Goals      `json:"goals"`
}

// MonthView is the response of GET /api/diary/{year}/{month}.
type MonthView struct {
	Year            int        `json:"year"`
	Month           int        `json:"month"`
	Days            []DayEntry `json:"days"`
	Totals          Macros     `json:"totals"`
	DaysLogged      int        `json:"days_logged"`
	CalorieGoalDays int        `json:"calorie_goal_days"`
	ProteinGoalDays int        `json:"protein_goal_days"`
	Goals           Goals      `json:"goals"`
}

// Summary is the response of GET /api/diary/summary.
type Summary struct {
	Days            int    `json:"days"`
	From            string `json:"from"`
	To              string `json:"to"`
	DaysLogged      int    `json:"days_logged"`
	Averages        Macros `json:"averages"`
	CalorieGoalDays int    `json:"calorie_goal_days"`
	ProteinGoalDays int    `json:"protein_goal_days"`
	Streak          int    `json:"streak"`
	Goals           Goals  `json:"goals"`
}
