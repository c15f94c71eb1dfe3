package user

import (
	"net/http"
	"strings"

	"Nutrimind/internal/nutrition"
	"Nutrimind/internal/store"
	"Nutrimind/internal/utility"
	"github.com/labstack/echo/v4"
)

/* =================================================================================
							DTOs (Data Transfer Objects)
=================================================================================*/

// ProfileRequest uses pointers so a missing field can be told apart from zero.
type ProfileRequest struct {
	Name          *string  `json:"name"`
	Gender        *string  `json:"gender"`
	Age           *int     `json:"age"`
	WeightKg      *float64 `json:"weight_kg"`
	HeightCm      *float64 `json:"height_cm"`
	ActivityLevel *string  `json:"activity_level"`
}

// ProfileResponse is a stored or freshly computed profile with display helpers.
type ProfileResponse struct {
	store.ProfileRecord
	BMICategory   string `json:"bmi_category"`
	CalorieTarget string `json:"calorie_target_display"`
}

// toProfile checks presence and normalizes the enums. Range checks are left
// to the calculator.
func (r *ProfileRequest) toProfile() (nutrition.Profile, error) {
	switch {
	case r.Gender == nil:
		return nutrition.Profile{}, &nutrition.InvalidProfileError{Field: "gender", Reason: "is required"}
	case r.Age == nil:
		return nutrition.Profile{}, &nutrition.InvalidProfileError{Field: "age", Reason: "is required"}
	case r.WeightKg == nil:
		return nutrition.Profile{}, &nutrition.InvalidProfileError{Field: "weight_kg", Reason: "is required"}
	case r.HeightCm == nil:
		return nutrition.Profile{}, &nutrition.InvalidProfileError{Field: "height_cm", Reason: "is required"}
	case r.ActivityLevel == nil:
		return nutrition.Profile{}, &nutrition.InvalidProfileError{Field: "activity_level", Reason: "is required"}
	}

	return nutrition.Profile{
		Gender:        nutrition.ParseGender(*r.Gender),
		Age:           *r.Age,
		WeightKg:      *r.WeightKg,
		HeightCm:      *r.HeightCm,
		ActivityLevel: nutrition.ParseActivityLevel(*r.ActivityLevel),
	}, nil
}

func newProfileResponse(rec store.ProfileRecord) ProfileResponse {
	return ProfileResponse{
		ProfileRecord: rec,
		BMICategory:   nutrition.BMICategory(rec.Targets.BMI),
		CalorieTarget: nutrition.FormatKcal(rec.Targets.DailyCalorieTarget),
	}
}

/* =================================================================================
									HANDLERS
=================================================================================*/

// UpsertProfileHandler handles PUT /profile.
func (h *Handler) UpsertProfileHandler(c echo.Context) error {
	log := utility.GetLogger(c)

	devID, err := deviceID(c)
	if err != nil {
		return err
	}

	var req ProfileRequest
	if err := c.Bind(&req); err != nil {
		return bindProfileError(c, err)
	}

	rec, err := h.computeProfile(devID, &req)
	if err != nil {
		log.Warn().Err(err).Msg("Profile rejected")
		return validationError(c, err)
	}

	h.store.SaveProfile(rec)
	log.Info().Int("daily_calorie_target", rec.Targets.DailyCalorieTarget).Msg("Profile saved")

	return c.JSON(http.StatusOK, newProfileResponse(rec))
}

// GetProfileHandler handles GET /profile.
func (h *Handler) GetProfileHandler(c echo.Context) error {
	devID, err := deviceID(c)
	if err != nil {
		return err
	}

	rec, ok := h.store.GetProfile(devID)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Profile not found. Please create it first."})
	}
	return c.JSON(http.StatusOK, newProfileResponse(rec))
}

// CalculateTargetsHandler handles POST /nutrition/targets. Nothing is stored.
func (h *Handler) CalculateTargetsHandler(c echo.Context) error {
	var req ProfileRequest
	if err := c.Bind(&req); err != nil {
		return bindProfileError(c, err)
	}

	profile, err := req.toProfile()
	if err != nil {
		return validationError(c, err)
	}
	targets, err := h.calc.Compute(profile)
	if err != nil {
		return validationError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"profile":                profile,
		"targets":                targets,
		"bmi_category":           nutrition.BMICategory(targets.BMI),
		"calorie_target_display": nutrition.FormatKcal(targets.DailyCalorieTarget),
	})
}

func (h *Handler) computeProfile(devID string, req *ProfileRequest) (store.ProfileRecord, error) {
	profile, err := req.toProfile()
	if err != nil {
		return store.ProfileRecord{}, err
	}
	targets, err := h.calc.Compute(profile)
	if err != nil {
		return store.ProfileRecord{}, err
	}

	rec := store.ProfileRecord{
		DeviceID:  devID,
		Profile:   profile,
		Targets:   targets,
		UpdatedAt: h.now(),
	}
	if req.Name != nil {
		rec.Name = strings.TrimSpace(*req.Name)
	}
	return rec, nil
}
