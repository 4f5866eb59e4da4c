package profile

import (
	"errors"
	"math"

	"github.com/ayush/nutrilog/internal/models"
)

// ErrIncomplete is returned when the body data needed for a recommendation
// is missing.
var ErrIncomplete = errors.New("weight_kg, height_cm, age and gender are required")

const proteinPerKg = 1.6

var activityFactors = map[string]float64{
	models.ActivitySedentary:  1.2,
	models.ActivityLight:      1.375,
	models.ActivityModerate:   1.55,
	models.ActivityActive:     1.725,
	models.ActivityVeryActive: 1.9,
}

// Recommendation is the response of GET /api/profile/recommendation.
type Recommendation struct {
	BMR            float64 `json:"bmr"`
	ActivityFactor float64 `json:"activity_factor"`
	Calories       float64 `json:"calories"`
	Protein        float64 `json:"protein"`
	BMI            float64 `json:"bmi"`
	BMICategory    string  `json:"bmi_category"`
}

// Recommend derives daily targets with the Mifflin-St Jeor equation. An unset
// activity level counts as sedentary; gender "other" uses the midpoint of the
// male and female offsets.
func Recommend(p *models.Profile) (Recommendation, error) {
	if p.WeightKg <= 0 || p.HeightCm <= 0 || p.Age <= 0 || p.Gender == "" {
		return Recommendation{}, ErrIncomplete
	}
	bmr := 10*p.WeightKg + 6.25*p.HeightCm - 5*float64(p.Age)
	switch p.Gender {
	case models.GenderMale:
		bmr += 5
	case models.GenderFemale:
		bmr -= 161
	default:
		bmr -= 78
	}
	factor, ok := activityFactors[p.ActivityLevel]
	if !ok {
		factor = activityFactors[models.ActivitySedentary]
	}
	m := p.HeightCm / 100
	bmi := p.WeightKg / (m * m)
	return Recommendation{
		BMR:            round(bmr, 0),
		ActivityFactor: factor,
		Calories:       round(bmr*factor, 0),
		Protein:        round(p.WeightKg*proteinPerKg, 1),
		BMI:            round(bmi, 1),
		BMICategory:    bmiCategory(bmi),
	}, nil
}

func bmiCategory(bmi float64) string {
	switch {
	case bmi < 18.5:
		return "underweight"
	case bmi < 25:
		return "normal"
	case bmi < 30:
		return "overweight"
	default:
		return "obese"
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
