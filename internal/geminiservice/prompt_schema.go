package geminiservice

/* =================================================================================
							GEMINI SCHEMA DEFINITION
	This is the core structure that tells Gemini how to format its JSON response
=================================================================================*/

// GeminiSchema defines the structure for "Controlled Generation" (Structured Output).
type GeminiSchema struct {
	// Type defines the data type (e.g., "OBJECT", "ARRAY", "STRING", "INTEGER").
	Type string `json:"type"`

	// Format specifies data format, primarily used for "enum" validation.
	Format string `json:"format,omitempty"`

	// Description explains the field's purpose to the AI.
	Description string `json:"description,omitempty"`

	// Properties maps field names to their child schemas (used when Type is "OBJECT").
	Properties map[string]*GeminiSchema `json:"properties,omitempty"`

	// Items defines the schema for elements within an array (used when Type is "ARRAY").
	Items *GeminiSchema `json:"items,omitempty"`

	// Required lists the field names that the AI MUST include in the response.
	Required []string `json:"required,omitempty"`

	// Enum lists valid specific string values for fields with restricted options.
	Enum []string `json:"enum,omitempty"`
}

/* =================================================================================
						FOOD PHOTO ANALYSIS
=================================================================================*/

const FoodAnalysisSystemPrompt = `You are a nutrition analyst looking at a photo of a meal.

RULES:
1. Identify every distinct food item visible on the plate or in the picture.
2. Estimate the portion of each item from visual cues (plate size, utensils, hands).
3. Estimate calories, protein, carbohydrates and fat for the portion you see, not per 100g.
4. If the picture does not contain food, return food_name "Not food", an empty items array and confidence 0.
5. Never give medical advice. health_note is one friendly sentence about the meal's balance.

RESPONSE FORMAT:
- Return ONLY the JSON structure defined in the schema
- Numbers are plain numbers without units
- confidence is between 0.0 and 1.0`

// FoodAnalysisUserPrompt is sent next to the image. %s is the user's optional note.
const FoodAnalysisUserPrompt = `Analyze this meal photo and estimate its nutrition.
User note: %s`

var foodItemSchema = &GeminiSchema{
	Type: "OBJECT",
	Properties: map[string]*GeminiSchema{
		"name":      {Type: "STRING", Description: "Food item name"},
		"portion":   {Type: "STRING", Description: "Estimated portion, e.g. '1 cup', '150g'"},
		"calories":  {Type: "NUMBER", Description: "kcal for this portion"},
		"protein_g": {Type: "NUMBER", Description: "Protein grams for this portion"},
		"carbs_g":   {Type: "NUMBER", Description: "Carbohydrate grams for this portion"},
		"fat_g":     {Type: "NUMBER", Description: "Fat grams for this portion"},
	},
	Required: []string{"name", "calories"},
}

var FoodAnalysisSchema = &GeminiSchema{
	Type: "OBJECT",
	Properties: map[string]*GeminiSchema{
		"food_name": {
			Type:        "STRING",
			Description: "Short name for the whole meal, e.g. 'Chicken rice bowl'.",
		},
		"items": {
			Type:        "ARRAY",
			Description: "Each visible food item with its own estimate.",
			Items:       foodItemSchema,
		},
		"total_calories":  {Type: "NUMBER", Description: "Sum of item calories."},
		"total_protein_g": {Type: "NUMBER"},
		"total_carbs_g":   {Type: "NUMBER"},
		"total_fat_g":     {Type: "NUMBER"},
		"confidence": {
			Type:        "NUMBER",
			Description: "Float 0.0 to 1.0. Lower it when the photo is blurry, partial or ambiguous.",
		},
		"health_note": {
			Type:        "STRING",
			Description: "One friendly sentence about the meal's balance.",
		},
	},
	Required: []string{"food_name", "items", "confidence"},
}

/* =================================================================================
						MOOD ASSESSMENT CHAT
=================================================================================*/

// MindGreeting opens every mood assessment session.
const MindGreeting = "Hi! I'm here to check in on how you're feeling. How has your day been so far?"

const MindSystemPrompt = `You are a warm, supportive wellness companion running a short mood check-in.

GOAL:
Over a few turns, understand how the user feels today (energy, stress, sleep, mood) and estimate a mood score.

CONVERSATION RULES:
1. Ask ONE short, open question per reply. Be empathetic and non-judgmental.
2. Never diagnose, never prescribe medication, never claim to be a therapist.
3. If the user mentions self-harm or being in danger, reply with a short caring message urging them to contact local emergency services or a crisis line right now, set mood_label to "struggling" and assessment_complete to true.
4. After 4 to 6 user answers, or as soon as you have a clear picture, give a short summary with one gentle, practical suggestion and set assessment_complete to true.

SCORING:
- mood_score is an integer 0 to 100 (0 = very low, 100 = excellent) reflecting everything said so far.
- mood_label is one of: struggling, okay, good, great.

RESPONSE FORMAT:
- Return ONLY the JSON structure defined in the schema`

var MindSchema = &GeminiSchema{
	Type: "OBJECT",
	Properties: map[string]*GeminiSchema{
		"reply": {
			Type:        "STRING",
			Description: "Your next message to the user.",
		},
		"mood_score": {
			Type:        "INTEGER",
			Description: "0 to 100, current estimate of the user's mood.",
		},
		"mood_label": {
			Type:   "STRING",
			Format: "enum",
			Enum:   []string{"struggling", "okay", "good", "great"},
		},
		"assessment_complete": {
			Type:        "BOOLEAN",
			Description: "True once you have given the closing summary.",
		},
	},
	Required: []string{"reply", "mood_score"},
}

/* =================================================================================
						DASHBOARD INSIGHT
=================================================================================*/

const InsightSystemPrompt = `You are a friendly nutrition coach writing the daily tip on a wellness dashboard.

RULES:
1. Use the targets and today's intake given in the JSON context. Do not recompute the targets.
2. One short headline and one or two practical sentences. No medical advice.
3. If nothing was logged yet, encourage logging the next meal.
4. Respond ONLY with the JSON structure defined in the schema.`

// InsightUserPromptTemplate receives the JSON-encoded InsightContext.
const InsightUserPromptTemplate = `
=== TODAY ===
%s

Write today's tip.`

var InsightSchema = &GeminiSchema{
	Type: "OBJECT",
	Properties: map[string]*GeminiSchema{
		"headline": {Type: "STRING", Description: "Max 8 words."},
		"tip":      {Type: "STRING", Description: "One or two practical sentences."},
	},
	Required: []string{"headline", "tip"},
}
