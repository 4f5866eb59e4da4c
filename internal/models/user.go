package models

import "time"

// User represents a row in the users table.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Password  string    `json:"-"` // never serialize
	CreatedAt time.Time `json:"created_at"`
}

// RegisterRequest is the JSON body for POST /api/auth/register.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

// LoginRequest is the JSON body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

// Activity levels accepted on a profile.
const (
	ActivitySedentary  = "sedentary"
	ActivityLight      = "light"
	ActivityModerate   = "moderate"
	ActivityActive     = "active"
	ActivityVeryActive = "very_active"
)

// Genders accepted on a profile.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

const (
	DefaultGoalCalories = 2000
	DefaultGoalProtein  = 50
)

// Profile is the 1:1 goals and body data for a user. A missing row reads as
// DefaultProfile.
type Profile struct {
	UserID        int64      `json:"user_id"`
	GoalCalories  float64    `json:"goal_calories"`
	GoalProtein   float64    `json:"goal_protein"`
	WeightKg      float64    `json:"weight_kg"`
	HeightCm      float64    `json:"height_cm"`
	Age           int        `json:"age"`
	ActivityLevel string     `json:"activity_level"`
	Gender        string     `json:"gender"`
	Bio           string     `json:"bio"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

func DefaultProfile(userID int64) *Profile {
	return &Profile{
		UserID:       userID,
		GoalCalories: DefaultGoalCalories,
		GoalProtein:  DefaultGoalProtein,
	}
}

// Goals returns the calorie and protein targets of the profile.
func (p *Profile) Goals() Goals {
	return Goals{Calories: p.GoalCalories, Protein: p.GoalProtein}
}

// UpdateProfileRequest is the JSON body for PUT /api/profile. Nil fields are
// left unchanged.
type UpdateProfileRequest struct {
	FirstName     *string  `json:"first_name"`
	LastName      *string  `json:"last_name"`
	Username      *string  `json:"username"`
	GoalCalories  *float64 `json:"goal_calories"`
	GoalProtein   *float64 `json:"goal_protein"`
	WeightKg      *float64 `json:"weight_kg"`
	HeightCm      *float64 `json:"height_cm"`
	Age           *int     `json:"age"`
	ActivityLevel *string  `json:"activity_level"`
	Gender        *string  `json:"gender"`
	Bio           *string  `json:"bio"`
}

// GoalsRequest is the JSON body for PUT /api/profile/goals.
type GoalsRequest struct {
	GoalCalories float64 `json:"goal_calories"`
	GoalProtein  float64 `json:"goal_protein"`
}

// UserSummary is the public view of a user in lists.
type UserSummary struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// PublicUser is the public profile returned by the social endpoints.
type PublicUser struct {
	UserSummary
	Bio       string    `json:"bio"`
	Followers int       `json:"followers"`
	Following int       `json:"following"`
	Posts     int       `json:"posts"`
	IsFollow  bool      `json:"is_following"`
	CreatedAt time.Time `json:"created_at"`
}
