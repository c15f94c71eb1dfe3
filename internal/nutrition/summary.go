package nutrition

import (
	"math"

	"github.com/dustin/go-humanize"
)

// DefaultCalorieTarget is the presentation fallback shown when a device has
// no profile yet. Compute never uses it.
const DefaultCalorieTarget = 2000

// MealEntry is one logged food, usually the result of a photo analysis.
type MealEntry struct {
	Name         string  `json:"name"`
	Calories     float64 `json:"calories"`
	ProteinGrams float64 `json:"protein_g"`
	CarbsGrams   float64 `json:"carbs_g"`
	FatGrams     float64 `json:"fat_g"`
}

// Intake is the running total of a day's entries.
type Intake struct {
	Calories     int     `json:"calories"`
	ProteinGrams float64 `json:"protein_g"`
	CarbsGrams   float64 `json:"carbs_g"`
	FatGrams     float64 `json:"fat_g"`
	Entries      int     `json:"entries"`
}

// Progress is the share of each target already consumed, in percent.
type Progress struct {
	CaloriesPercent   float64 `json:"calories_percent"`
	ProteinPercent    float64 `json:"protein_percent"`
	CarbsPercent      float64 `json:"carbs_percent"`
	FatPercent        float64 `json:"fat_percent"`
	RemainingCalories int     `json:"remaining_calories"`
}

// SumIntake totals the entries. Negative values are treated as zero.
func SumIntake(entries []MealEntry) Intake {
	var (
		cal             float64
		prot, carb, fat float64
	)
	for _, e := range entries {
		cal += nonNegative(e.Calories)
		prot += nonNegative(e.ProteinGrams)
		carb += nonNegative(e.CarbsGrams)
		fat += nonNegative(e.FatGrams)
	}
	return Intake{
		Calories:     int(math.Round(cal)),
		ProteinGrams: RoundTo(prot, 1),
		CarbsGrams:   RoundTo(carb, 1),
		FatGrams:     RoundTo(fat, 1),
		Entries:      len(entries),
	}
}

// ProgressOf compares intake to targets. RemainingCalories goes negative
// once the calorie target is exceeded.
func ProgressOf(in Intake, t Targets) Progress {
	return Progress{
		CaloriesPercent:   percent(float64(in.Calories), float64(t.DailyCalorieTarget)),
		ProteinPercent:    percent(in.ProteinGrams, float64(t.DailyProteinTargetGrams)),
		CarbsPercent:      percent(in.CarbsGrams, float64(t.DailyCarbTargetGrams)),
		FatPercent:        percent(in.FatGrams, float64(t.DailyFatTargetGrams)),
		RemainingCalories: t.DailyCalorieTarget - in.Calories,
	}
}

// BMICategory maps a BMI value to its WHO band.
func BMICategory(bmi float64) string {
	switch {
	case bmi <= 0:
		return "Unknown"
	case bmi < 18.5:
		return "Underweight"
	case bmi < 25.0:
		return "Normal weight"
	case bmi < 30.0:
		return "Overweight"
	case bmi < 35.0:
		return "Obesity class I"
	case bmi < 40.0:
		return "Obesity class II"
	default:
		return "Obesity class III"
	}
}

// FormatKcal renders 2701 as "2,701 kcal".
func FormatKcal(kcal int) string {
	return humanize.Comma(int64(kcal)) + " kcal"
}

func percent(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return RoundTo(part/whole*100, 1)
}

func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
