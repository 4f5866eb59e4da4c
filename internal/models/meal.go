package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DateLayout is the wire and storage format of meal dates.
const DateLayout = "2006-01-02"

// Meal types.
const (
	MealBreakfast = "breakfast"
	MealLunch     = "lunch"
	MealDinner    = "dinner"
	MealSnack     = "snack"
)

// Nutrition sources.
const (
	SourceManual = "manual"
	SourceAI     = "ai"
)

func ValidMealType(t string) bool {
	switch t {
	case MealBreakfast, MealLunch, MealDinner, MealSnack:
		return true
	}
	return false
}

var ErrNegativeMacro = errors.New("macro values must be non-negative")

// Macros are the seven tracked nutrient quantities of a meal.
type Macros struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Fiber    float64 `json:"fiber"`
	Sugar    float64 `json:"sugar"`
	Sodium   float64 `json:"sodium"`
}

func (m Macros) Add(o Macros) Macros {
	return Macros{
		Calories: m.Calories + o.Calories,
		Protein:  m.Protein + o.Protein,
		Carbs:    m.Carbs + o.Carbs,
		Fat:      m.Fat + o.Fat,
		Fiber:    m.Fiber + o.Fiber,
		Sugar:    m.Sugar + o.Sugar,
		Sodium:   m.Sodium + o.Sodium,
	}
}

// Scale multiplies every field by f.
func (m Macros) Scale(f float64) Macros {
	return Macros{
		Calories: m.Calories * f,
		Protein:  m.Protein * f,
		Carbs:    m.Carbs * f,
		Fat:      m.Fat * f,
		Fiber:    m.Fiber * f,
		Sugar:    m.Sugar * f,
		Sodium:   m.Sodium * f,
	}
}

// Clamp replaces negative fields with zero.
func (m Macros) Clamp() Macros {
	c := func(v float64) float64 {
		if v < 0 {
			return 0
		}
		return v
	}
	return Macros{
		Calories: c(m.Calories),
		Protein:  c(m.Protein),
		Carbs:    c(m.Carbs),
		Fat:      c(m.Fat),
		Fiber:    c(m.Fiber),
		Sugar:    c(m.Sugar),
		Sodium:   c(m.Sodium),
	}
}

func (m Macros) Validate() error {
	if m != m.Clamp() {
		return ErrNegativeMacro
	}
	return nil
}

// MacroInput carries optionally supplied macro fields from a request body.
type MacroInput struct {
	Calories *float64 `json:"calories,omitempty"`
	Protein  *float64 `json:"protein,omitempty"`
	Carbs    *float64 `json:"carbs,omitempty"`
	Fat      *float64 `json:"fat,omitempty"`
	Fiber    *float64 `json:"fiber,omitempty"`
	Sugar    *float64 `json:"sugar,omitempty"`
	Sodium   *float64 `json:"sodium,omitempty"`
}

func (in MacroInput) fields() []*float64 {
	return []*float64{in.Calories, in.Protein, in.Carbs, in.Fat, in.Fiber, in.Sugar, in.Sodium}
}

// Complete reports whether all seven fields were supplied.
func (in MacroInput) Complete() bool {
	for _, f := range in.fields() {
		if f == nil {
			return false
		}
	}
	return true
}

// Any reports whether at least one field was supplied.
func (in MacroInput) Any() bool {
	for _, f := range in.fields() {
		if f != nil {
			return true
		}
	}
	return false
}

// Validate rejects negative supplied values.
func (in MacroInput) Validate() error {
	for _, f := range in.fields() {
		if f != nil && *f < 0 {
			return ErrNegativeMacro
		}
	}
	return nil
}

// ApplyTo overwrites the supplied fields of m.
func (in MacroInput) ApplyTo(m Macros) Macros {
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	set(&m.Calories, in.Calories)
	set(&m.Protein, in.Protein)
	set(&m.Carbs, in.Carbs)
	set(&m.Fat, in.Fat)
	set(&m.Fiber, in.Fiber)
	set(&m.Sugar, in.Sugar)
	set(&m.Sodium, in.Sodium)
	return m
}

// Meal is a single logged meal.
type Meal struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"user_id"`
	Date         string `json:"date"`
	Type         string `json:"meal_type"`
	Description  string `json:"description"`
	Macros              // flattened into the JSON object
	Source       string    `json:"source"`
	AnalysisNote string    `json:"analysis_note,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateMealRequest is the JSON body for POST /api/meals.
type CreateMealRequest struct {
	Description string `json:"description"`
	MealType    string `json:"meal_type"`
	Date        string `json:"date"`
	MacroInput
}

// UpdateMealRequest is the JSON body for PATCH /api/meals/{id}.
type UpdateMealRequest struct {
	Description *string `json:"description"`
	MealType    *string `json:"meal_type"`
	Date        *string `json:"date"`
	Reanalyze   bool    `json:"reanalyze"`
	MacroInput
}

// AnalyzeRequest is the JSON body for POST /api/meals/analyze.
type AnalyzeRequest struct {
	Description string `json:"description"`
}

// AnalysisRecord is one AI estimation attempt stored in MongoDB.
type AnalysisRecord struct {
	ID          primitive.ObjectID `json:"id"           bson:"_id,omitempty"`
	UserID      int64              `json:"user_id"      bson:"user_id"`
	MealID      int64              `json:"meal_id"      bson:"meal_id"`
	Description string             `json:"description"  bson:"description"`
	Model       string             `json:"model"        bson:"model"`
	Macros      Macros             `json:"macros"       bson:"macros"`
	Raw         string             `json:"raw"          bson:"raw"`
	Error       string             `json:"error,omitempty" bson:"error,omitempty"`
	LatencyMS   int64              `json:"latency_ms"   bson:"latency_ms"`
	CreatedAt   time.Time          `json:"created_at"   bson:"created_at"`
}
