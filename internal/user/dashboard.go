package user

import (
	"context"
	"net/http"

	"Nutrimind/internal/geminiservice"
	"Nutrimind/internal/nutrition"
	"Nutrimind/internal/store"
	"Nutrimind/internal/utility"
	"github.com/labstack/echo/v4"
)

// DashboardResponse is everything the home screen renders.
type DashboardResponse struct {
	Date            string             `json:"date"`
	ProfileComplete bool               `json:"profile_complete"`
	Name            string             `json:"name,omitempty"`
	Targets         nutrition.Targets  `json:"targets"`
	CalorieTarget   string             `json:"calorie_target_display"`
	BMICategory     string             `json:"bmi_category"`
	Intake          nutrition.Intake   `json:"intake"`
	Progress        nutrition.Progress `json:"progress"`
	Entries         []store.FoodEntry  `json:"entries"`

	Insight       *geminiservice.Insight `json:"insight,omitempty"`
	InsightSource string                 `json:"insight_source,omitempty"` // "ai" or "fallback"
}

// GetDashboardHandler handles GET /dashboard. Pass insight=true for an AI tip;
// a failing model falls back to a static tip instead of failing the request.
func (h *Handler) GetDashboardHandler(c echo.Context) error {
	ctx := c.Request().Context()
	log := utility.GetLogger(c)

	devID, err := deviceID(c)
	if err != nil {
		return err
	}
	day := h.today()

	rec, hasProfile := h.store.GetProfile(devID)
	entries := h.store.FoodLog(devID, day)

	resp := DashboardResponse{
		Date:            day,
		ProfileComplete: hasProfile,
		Entries:         entries,
	}
	if hasProfile {
		resp.Name = rec.Name
		resp.Targets = rec.Targets
	} else {
		resp.Targets = nutrition.Targets{DailyCalorieTarget: nutrition.DefaultCalorieTarget}
	}
	resp.CalorieTarget = nutrition.FormatKcal(resp.Targets.DailyCalorieTarget)
	resp.BMICategory = nutrition.BMICategory(resp.Targets.BMI)
	resp.Intake = nutrition.SumIntake(meals(entries))
	resp.Progress = nutrition.ProgressOf(resp.Intake, resp.Targets)

	if truthy(c.QueryParam("insight")) {
		resp.Insight, resp.InsightSource = h.insight(ctx, c, resp)
	}

	log.Debug().
		Bool("profile_complete", hasProfile).
		Int("entries", len(entries)).
		Msg("Dashboard built")

	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) insight(ctx context.Context, c echo.Context, d DashboardResponse) (*geminiservice.Insight, string) {
	fallback := geminiservice.FallbackInsight
	if !h.aiReady() {
		return &fallback, "fallback"
	}
	log := utility.GetLogger(c)

	recent := make([]string, 0, len(d.Entries))
	for _, e := range d.Entries {
		recent = append(recent, e.Meal.Name)
	}
	in := geminiservice.InsightContext{
		Targets:         d.Targets,
		Intake:          d.Intake,
		Progress:        d.Progress,
		ProfileComplete: d.ProfileComplete,
		RecentMeals:     recent,
	}
	if d.ProfileComplete {
		in.BMICategory = d.BMICategory
	}

	ctx, cancel := context.WithTimeout(ctx, h.opts.InsightTimeout)
	defer cancel()

	out, err := h.ai.DashboardInsight(ctx, log, in)
	if err != nil {
		log.Warn().Err(err).Msg("Dashboard insight failed, using fallback tip")
		return &fallback, "fallback"
	}
	return out, "ai"
}
