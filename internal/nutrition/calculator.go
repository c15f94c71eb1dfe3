package nutrition

import (
	"fmt"
	"math"
)

const (
	// DefaultProteinFactor is grams of protein per kg of body weight.
	DefaultProteinFactor = 0.8

	carbShare = 0.45
	fatShare  = 0.30

	kcalPerGramCarb = 4
	kcalPerGramFat  = 9
)

// Calculator computes Targets with a fixed protein factor.
// The zero value is not usable; use NewCalculator or DefaultCalculator.
type Calculator struct {
	ProteinFactor float64
}

// DefaultCalculator uses DefaultProteinFactor.
var DefaultCalculator = Calculator{ProteinFactor: DefaultProteinFactor}

// NewCalculator returns a Calculator using proteinFactor grams per kg.
func NewCalculator(proteinFactor float64) (*Calculator, error) {
	if !isPositive(proteinFactor) {
		return nil, fmt.Errorf("protein factor must be a positive number, got %v", proteinFactor)
	}
	return &Calculator{ProteinFactor: proteinFactor}, nil
}

// ComputeTargets runs DefaultCalculator on p.
func ComputeTargets(p Profile) (Targets, error) {
	return DefaultCalculator.Compute(p)
}

// Validate returns an *InvalidProfileError for the first bad field, or nil.
func Validate(p Profile) error {
	if p.Gender == "" {
		return invalid("gender", "is required")
	}
	if !p.Gender.Valid() {
		return invalid("gender", fmt.Sprintf("must be one of male, female (got %q)", p.Gender))
	}
	if p.Age <= 0 {
		return invalid("age", "must be greater than 0")
	}
	if !isPositive(p.WeightKg) {
		return invalid("weight_kg", "must be a positive number")
	}
	if !isPositive(p.HeightCm) {
		return invalid("height_cm", "must be a positive number")
	}
	if p.ActivityLevel == "" {
		return invalid("activity_level", "is required")
	}
	if !p.ActivityLevel.Valid() {
		return invalid("activity_level", fmt.Sprintf("must be one of sedentary, light, moderate, active, very_active (got %q)", p.ActivityLevel))
	}
	return nil
}

// BMR returns the Mifflin-St Jeor basal metabolic rate in kcal/day.
// p must already be valid.
func BMR(p Profile) float64 {
	base := 10*p.WeightKg + 6.25*p.HeightCm - 5*float64(p.Age)
	if p.Gender == GenderMale {
		return base + 5
	}
	return base - 161
}

// Compute derives Targets from p. It never substitutes defaults: an
// incomplete profile is an *InvalidProfileError.
func (c Calculator) Compute(p Profile) (Targets, error) {
	if err := Validate(p); err != nil {
		return Targets{}, err
	}
	if !isPositive(c.ProteinFactor) {
		return Targets{}, fmt.Errorf("calculator misconfigured: protein factor %v", c.ProteinFactor)
	}

	mult, _ := p.ActivityLevel.Multiplier()
	bmr := BMR(p)
	if bmr <= 0 {
		// Age is the only input that lowers the estimate.
		return Targets{}, invalid("age", "is too high for the given weight and height")
	}
	tdee := bmr * mult
	calories := int(math.Round(tdee))

	heightM := p.HeightCm / 100

	return Targets{
		BMR:                     bmr,
		TDEE:                    tdee,
		DailyCalorieTarget:      calories,
		DailyProteinTargetGrams: int(math.Round(p.WeightKg * c.ProteinFactor)),
		DailyCarbTargetGrams:    int(math.Round(float64(calories) * carbShare / kcalPerGramCarb)),
		DailyFatTargetGrams:     int(math.Round(float64(calories) * fatShare / kcalPerGramFat)),
		BMI:                     RoundTo(p.WeightKg/(heightM*heightM), 1),
	}, nil
}

// RoundTo rounds v half away from zero to the given number of decimals.
func RoundTo(v float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}

func isPositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
