package geminiservice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"Nutrimind/internal/nutrition"
	"Nutrimind/internal/store"
	"github.com/rs/zerolog"
)

/*=================================================================================
								FOOD PHOTO ANALYSIS
=================================================================================*/

// FoodItem is one item the model recognized in a photo.
type FoodItem struct {
	Name         string  `json:"name"`
	Portion      string  `json:"portion,omitempty"`
	Calories     float64 `json:"calories"`
	ProteinGrams float64 `json:"protein_g"`
	CarbsGrams   float64 `json:"carbs_g"`
	FatGrams     float64 `json:"fat_g"`
}

// FoodAnalysis is the normalized result of a photo analysis.
type FoodAnalysis struct {
	FoodName      string     `json:"food_name"`
	Items         []FoodItem `json:"items"`
	TotalCalories float64    `json:"total_calories"`
	TotalProtein  float64    `json:"total_protein_g"`
	TotalCarbs    float64    `json:"total_carbs_g"`
	TotalFat      float64    `json:"total_fat_g"`
	Confidence    float64    `json:"confidence"`
	HealthNote    string     `json:"health_note,omitempty"`
}

// MealEntry converts the analysis into a loggable entry.
func (a *FoodAnalysis) MealEntry() nutrition.MealEntry {
	return nutrition.MealEntry{
		Name:         a.FoodName,
		Calories:     a.TotalCalories,
		ProteinGrams: a.TotalProtein,
		CarbsGrams:   a.TotalCarbs,
		FatGrams:     a.TotalFat,
	}
}

// AnalyzeFood sends a meal photo to the model and returns its nutrition estimate.
func (c *Client) AnalyzeFood(ctx context.Context, log *zerolog.Logger, image []byte, mimeType, note string) (*FoodAnalysis, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("image is empty")
	}
	if strings.TrimSpace(note) == "" {
		note = "none"
	}

	req := Request{
		SystemPrompt: FoodAnalysisSystemPrompt,
		Contents: []GeminiContent{{
			Role: "user",
			Parts: []GeminiPart{
				{InlineData: &InlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(image)}},
				{Text: fmt.Sprintf(FoodAnalysisUserPrompt, note)},
			},
		}},
		Schema: FoodAnalysisSchema,
	}

	var result FoodAnalysis
	if err := c.GenerateAndParse(ctx, log, "FoodAnalysis", req, &result); err != nil {
		return nil, err
	}
	normalizeFoodAnalysis(&result)

	log.Info().
		Str("food_name", result.FoodName).
		Float64("calories", result.TotalCalories).
		Float64("confidence", result.Confidence).
		Msg("Food photo analyzed")
	return &result, nil
}

// normalizeFoodAnalysis repairs the gaps the model tends to leave: missing
// names, negative numbers, totals that don't match the items.
func normalizeFoodAnalysis(a *FoodAnalysis) {
	a.FoodName = strings.TrimSpace(a.FoodName)

	var sum FoodItem
	items := make([]FoodItem, 0, len(a.Items))
	for _, it := range a.Items {
		it.Name = strings.TrimSpace(it.Name)
		if it.Name == "" {
			it.Name = "Unknown item"
		}
		it.Calories = clean(it.Calories)
		it.ProteinGrams = clean(it.ProteinGrams)
		it.CarbsGrams = clean(it.CarbsGrams)
		it.FatGrams = clean(it.FatGrams)

		sum.Calories += it.Calories
		sum.ProteinGrams += it.ProteinGrams
		sum.CarbsGrams += it.CarbsGrams
		sum.FatGrams += it.FatGrams
		items = append(items, it)
	}
	a.Items = items

	if a.FoodName == "" {
		if len(items) > 0 {
			a.FoodName = items[0].Name
		} else {
			a.FoodName = "Unknown food"
		}
	}

	// Items win over the model's totals whenever there are items.
	if len(items) > 0 {
		a.TotalCalories = sum.Calories
		a.TotalProtein = sum.ProteinGrams
		a.TotalCarbs = sum.CarbsGrams
		a.TotalFat = sum.FatGrams
	}
	a.TotalCalories = nutrition.RoundTo(clean(a.TotalCalories), 0)
	a.TotalProtein = nutrition.RoundTo(clean(a.TotalProtein), 1)
	a.TotalCarbs = nutrition.RoundTo(clean(a.TotalCarbs), 1)
	a.TotalFat = nutrition.RoundTo(clean(a.TotalFat), 1)

	a.Confidence = clamp(clean(a.Confidence), 0, 1)
}

/*=================================================================================
								MOOD ASSESSMENT CHAT
=================================================================================*/

// MindTurn is the model's answer to one user message.
type MindTurn struct {
	Reply     string `json:"reply"`
	MoodScore int    `json:"mood_score"`
	MoodLabel string `json:"mood_label"`
	Complete  bool   `json:"assessment_complete"`
}

// mindTurnReply is the raw model answer. The score is decoded as a float
// because the model does not always return a whole number.
type mindTurnReply struct {
	Reply     string  `json:"reply"`
	MoodScore float64 `json:"mood_score"`
	MoodLabel string  `json:"mood_label"`
	Complete  bool    `json:"assessment_complete"`
}

const mindFallbackReply = "Thanks for sharing. Could you tell me a little more about how you're feeling?"

// MindChat continues a mood assessment. history must end with the user's
// latest message.
func (c *Client) MindChat(ctx context.Context, log *zerolog.Logger, history []store.ChatMessage) (*MindTurn, error) {
	if len(history) == 0 {
		return nil, fmt.Errorf("conversation is empty")
	}

	contents := make([]GeminiContent, 0, len(history))
	for _, m := range history {
		role := "user"
		if m.Role == "model" {
			role = "model"
		}
		contents = append(contents, GeminiContent{Role: role, Parts: []GeminiPart{{Text: m.Content}}})
	}

	req := Request{
		SystemPrompt: MindSystemPrompt,
		Contents:     contents,
		Schema:       MindSchema,
	}

	var raw mindTurnReply
	if err := c.GenerateAndParse(ctx, log, "MindChat", req, &raw); err != nil {
		return nil, err
	}
	turn := normalizeMindTurn(raw)
	return &turn, nil
}

func normalizeMindTurn(r mindTurnReply) MindTurn {
	t := MindTurn{
		Reply:     strings.TrimSpace(r.Reply),
		MoodScore: int(math.Round(clamp(clean(r.MoodScore), 0, 100))),
		MoodLabel: r.MoodLabel,
		Complete:  r.Complete,
	}
	if t.Reply == "" {
		t.Reply = mindFallbackReply
	}
	t.MoodLabel = strings.ToLower(strings.TrimSpace(t.MoodLabel))
	switch t.MoodLabel {
	case "struggling", "okay", "good", "great":
	default:
		t.MoodLabel = MoodLabelForScore(t.MoodScore)
	}
	return t
}

// MoodLabelForScore maps a 0-100 score onto the label bands.
func MoodLabelForScore(score int) string {
	switch {
	case score < 40:
		return "struggling"
	case score < 60:
		return "okay"
	case score < 80:
		return "good"
	default:
		return "great"
	}
}

/*=================================================================================
								DASHBOARD INSIGHT
=================================================================================*/

// InsightContext is everything the model sees when writing the daily tip.
type InsightContext struct {
	Targets         nutrition.Targets  `json:"targets"`
	Intake          nutrition.Intake   `json:"intake_today"`
	Progress        nutrition.Progress `json:"progress"`
	BMICategory     string             `json:"bmi_category,omitempty"`
	ProfileComplete bool               `json:"profile_complete"`
	RecentMeals     []string           `json:"recent_meals"`
}

// Insight is the daily dashboard tip.
type Insight struct {
	Headline string `json:"headline"`
	Tip      string `json:"tip"`
}

// FallbackInsight is shown when the model is unavailable.
var FallbackInsight = Insight{
	Headline: "Keep it balanced",
	Tip:      "Log your next meal to see how it fits your targets for today.",
}

// DashboardInsight asks the model for a short tip about today's progress.
func (c *Client) DashboardInsight(ctx context.Context, log *zerolog.Logger, in InsightContext) (*Insight, error) {
	if in.RecentMeals == nil {
		in.RecentMeals = []string{}
	}
	ctxJSON, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode insight context: %w", err)
	}

	req := TextRequest(InsightSystemPrompt, fmt.Sprintf(InsightUserPromptTemplate, ctxJSON), InsightSchema)

	var out Insight
	if err := c.GenerateAndParse(ctx, log, "DashboardInsight", req, &out); err != nil {
		return nil, err
	}
	out.Headline = strings.TrimSpace(out.Headline)
	out.Tip = strings.TrimSpace(out.Tip)
	if out.Headline == "" {
		out.Headline = FallbackInsight.Headline
	}
	if out.Tip == "" {
		out.Tip = FallbackInsight.Tip
	}
	return &out, nil
}

/*=================================================================================
								HELPER FUNCTIONS
=================================================================================*/

func clean(v float64) float64 {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
