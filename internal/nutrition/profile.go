/*
Package nutrition derives daily energy and macro targets from a user's
physiological profile. Everything here is pure: no I/O, no shared state.
*/
package nutrition

import (
	"strings"
)

// Gender selects the Mifflin-St Jeor constant.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// ActivityLevel selects the TDEE multiplier.
type ActivityLevel string

const (
	ActivitySedentary  ActivityLevel = "sedentary"
	ActivityLight      ActivityLevel = "light"
	ActivityModerate   ActivityLevel = "moderate"
	ActivityActive     ActivityLevel = "active"
	ActivityVeryActive ActivityLevel = "very_active"
)

// activityMultipliers is the single source of truth for valid activity levels.
var activityMultipliers = map[ActivityLevel]float64{
	ActivitySedentary:  1.20,
	ActivityLight:      1.375,
	ActivityModerate:   1.55,
	ActivityActive:     1.725,
	ActivityVeryActive: 1.90,
}

// ActivityLevels lists the valid levels from least to most active.
var ActivityLevels = []ActivityLevel{
	ActivitySedentary,
	ActivityLight,
	ActivityModerate,
	ActivityActive,
	ActivityVeryActive,
}

// Multiplier returns the TDEE multiplier for the level and whether the level is known.
func (a ActivityLevel) Multiplier() (float64, bool) {
	m, ok := activityMultipliers[a]
	return m, ok
}

// Valid reports whether a is one of the defined activity levels.
func (a ActivityLevel) Valid() bool {
	_, ok := activityMultipliers[a]
	return ok
}

// Valid reports whether g is one of the defined genders.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// ParseGender normalizes user input ("Male ", "FEMALE") into a Gender.
// Unknown values are returned as-is so validation can name them.
func ParseGender(s string) Gender {
	return Gender(strings.ToLower(strings.TrimSpace(s)))
}

// ParseActivityLevel normalizes user input. "Very Active" and
// "very-active" both map to ActivityVeryActive.
func ParseActivityLevel(s string) ActivityLevel {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return ActivityLevel(s)
}

// Profile is the physiological input of a calculation.
type Profile struct {
	Gender        Gender        `json:"gender"`
	Age           int           `json:"age"`
	WeightKg      float64       `json:"weight_kg"`
	HeightCm      float64       `json:"height_cm"`
	ActivityLevel ActivityLevel `json:"activity_level"`
}

// Targets is always recomputed from a complete Profile; never edit a field in place.
type Targets struct {
	BMR                     float64 `json:"bmr"`
	TDEE                    float64 `json:"tdee"`
	DailyCalorieTarget      int     `json:"daily_calorie_target"`
	DailyProteinTargetGrams int     `json:"daily_protein_target_grams"`
	DailyCarbTargetGrams    int     `json:"daily_carb_target_grams"`
	DailyFatTargetGrams     int     `json:"daily_fat_target_grams"`
	BMI                     float64 `json:"bmi"`
}
