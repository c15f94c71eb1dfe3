package user

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"Nutrimind/internal/geminiservice"
	"Nutrimind/internal/nutrition"
	"Nutrimind/internal/store"
	"Nutrimind/internal/utility"
	"github.com/labstack/echo/v4"
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
	"image/heif": true,
}

var errImageTooLarge = errors.New("image is too large")

/* =================================================================================
							DTOs (Data Transfer Objects)
=================================================================================*/

// AnalyzeFoodJSONRequest is the non-multipart form of POST /food/analyze.
type AnalyzeFoodJSONRequest struct {
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
	Note        string `json:"note"`
	Log         bool   `json:"log"`
}

// AnalyzeFoodResponse carries the analysis and, when requested, the log entry it created.
type AnalyzeFoodResponse struct {
	Analysis    *geminiservice.FoodAnalysis `json:"analysis"`
	LoggedEntry *store.FoodEntry            `json:"logged_entry,omitempty"`
}

// ManualFoodRequest logs a meal without a photo.
type ManualFoodRequest struct {
	Name         string  `json:"name"`
	Calories     float64 `json:"calories"`
	ProteinGrams float64 `json:"protein_g"`
	CarbsGrams   float64 `json:"carbs_g"`
	FatGrams     float64 `json:"fat_g"`
}

// FoodLogResponse is one day of entries with their running total.
type FoodLogResponse struct {
	Date    string            `json:"date"`
	Entries []store.FoodEntry `json:"entries"`
	Intake  nutrition.Intake  `json:"intake"`
}

type uploadedImage struct {
	data     []byte
	mimeType string
	note     string
	log      bool
}

/* =================================================================================
									HANDLERS
=================================================================================*/

// AnalyzeFoodHandler handles POST /food/analyze.
// Accepts a multipart "image" field or a JSON body with image_base64.
func (h *Handler) AnalyzeFoodHandler(c echo.Context) error {
	ctx := c.Request().Context()
	log := utility.GetLogger(c)

	devID, err := deviceID(c)
	if err != nil {
		return err
	}
	if !h.aiReady() {
		return aiError(c, geminiservice.ErrNotConfigured)
	}

	img, err := h.readImage(c)
	if err != nil {
		if errors.Is(err, errImageTooLarge) {
			return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{
				"error": "Image exceeds the upload limit of " + strconv.FormatInt(h.opts.MaxUploadBytes, 10) + " bytes",
			})
		}
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	analysis, err := h.ai.AnalyzeFood(ctx, log, img.data, img.mimeType, img.note)
	if err != nil {
		log.Error().Err(err).Msg("Food analysis failed")
		return aiError(c, err)
	}

	resp := AnalyzeFoodResponse{Analysis: analysis}
	if img.log {
		entry := h.store.AppendFood(devID, h.today(), store.FoodEntry{
			LoggedAt:   h.now(),
			Source:     "photo",
			Confidence: analysis.Confidence,
			Meal:       analysis.MealEntry(),
		})
		resp.LoggedEntry = &entry
		log.Info().Str("entry_id", entry.EntryID).Msg("Analyzed meal logged")
	}

	return c.JSON(http.StatusOK, resp)
}

// LogFoodHandler handles POST /food/log for manually entered meals.
func (h *Handler) LogFoodHandler(c echo.Context) error {
	devID, err := deviceID(c)
	if err != nil {
		return err
	}

	var req ManualFoodRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "name is required", "field": "name"})
	}
	for field, v := range map[string]float64{
		"calories":  req.Calories,
		"protein_g": req.ProteinGrams,
		"carbs_g":   req.CarbsGrams,
		"fat_g":     req.FatGrams,
	} {
		if v < 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": field + " must not be negative", "field": field})
		}
	}

	entry := h.store.AppendFood(devID, h.today(), store.FoodEntry{
		LoggedAt: h.now(),
		Source:   "manual",
		Meal: nutrition.MealEntry{
			Name:         req.Name,
			Calories:     req.Calories,
			ProteinGrams: req.ProteinGrams,
			CarbsGrams:   req.CarbsGrams,
			FatGrams:     req.FatGrams,
		},
	})
	return c.JSON(http.StatusCreated, entry)
}

// GetFoodLogHandler handles GET /food/log.
func (h *Handler) GetFoodLogHandler(c echo.Context) error {
	devID, err := deviceID(c)
	if err != nil {
		return err
	}

	day := h.today()
	entries := h.store.FoodLog(devID, day)
	return c.JSON(http.StatusOK, FoodLogResponse{
		Date:    day,
		Entries: entries,
		Intake:  nutrition.SumIntake(meals(entries)),
	})
}

// DeleteFoodLogHandler handles DELETE /food/log/:entry_id.
func (h *Handler) DeleteFoodLogHandler(c echo.Context) error {
	devID, err := deviceID(c)
	if err != nil {
		return err
	}

	entryID := c.Param("entry_id")
	if !h.store.DeleteFood(devID, h.today(), entryID) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Food log entry not found"})
	}
	return c.NoContent(http.StatusNoContent)
}

/* =================================================================================
								HELPER FUNCTIONS
=================================================================================*/

func (h *Handler) readImage(c echo.Context) (*uploadedImage, error) {
	ct := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(ct, echo.MIMEMultipartForm) {
		return h.readMultipartImage(c)
	}
	return h.readBase64Image(c)
}

func (h *Handler) readMultipartImage(c echo.Context) (*uploadedImage, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		return nil, errors.New("image file is required")
	}
	if fh.Size > h.opts.MaxUploadBytes {
		return nil, errImageTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return nil, errors.New("image file could not be read")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.opts.MaxUploadBytes+1))
	if err != nil {
		return nil, errors.New("image file could not be read")
	}

	img := &uploadedImage{
		data: data,
		note: c.FormValue("note"),
		log:  truthy(c.FormValue("log")) || truthy(c.QueryParam("log")),
	}
	if err := h.checkImage(img, fh.Header.Get(echo.HeaderContentType)); err != nil {
		return nil, err
	}
	return img, nil
}

func (h *Handler) readBase64Image(c echo.Context) (*uploadedImage, error) {
	var req AnalyzeFoodJSONRequest
	if err := c.Bind(&req); err != nil {
		return nil, errors.New("invalid request body")
	}

	raw := strings.TrimSpace(req.ImageBase64)
	if raw == "" {
		return nil, errors.New("image_base64 is required")
	}
	declared := req.MimeType
	// Accept data URLs: "data:image/png;base64,...."
	if strings.HasPrefix(raw, "data:") {
		if i := strings.Index(raw, ","); i > 0 {
			if declared == "" {
				declared = strings.TrimSuffix(strings.TrimPrefix(raw[:i], "data:"), ";base64")
			}
			raw = raw[i+1:]
		}
	}
	if int64(base64.StdEncoding.DecodedLen(len(raw))) > h.opts.MaxUploadBytes+2 {
		return nil, errImageTooLarge
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, errors.New("image_base64 is not valid base64")
	}

	img := &uploadedImage{
		data: data,
		note: req.Note,
		log:  req.Log || truthy(c.QueryParam("log")),
	}
	if err := h.checkImage(img, declared); err != nil {
		return nil, err
	}
	return img, nil
}

// checkImage enforces the size limit and settles the MIME type. Sniffing
// wins over the declared type, except for HEIC which net/http can't detect.
func (h *Handler) checkImage(img *uploadedImage, declared string) error {
	if len(img.data) == 0 {
		return errors.New("image is empty")
	}
	if int64(len(img.data)) > h.opts.MaxUploadBytes {
		return errImageTooLarge
	}

	mimeType := http.DetectContentType(img.data)
	if !allowedImageTypes[mimeType] {
		declared = strings.ToLower(strings.TrimSpace(strings.Split(declared, ";")[0]))
		if declared != "image/heic" && declared != "image/heif" {
			return errors.New("unsupported image type " + mimeType + "; use JPEG, PNG, WebP or HEIC")
		}
		mimeType = declared
	}
	img.mimeType = mimeType
	return nil
}

func truthy(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func meals(entries []store.FoodEntry) []nutrition.MealEntry {
	out := make([]nutrition.MealEntry, len(entries))
	for i, e := range entries {
		out[i] = e.Meal
	}
	return out
}
