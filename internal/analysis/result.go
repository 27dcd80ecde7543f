package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Amazomic/loki-analyzer/internal/models"
)

var validate = validator.New()

// The raw shapes use pointers so that absent fields can be told apart from zero values.
type rawResult struct {
	Summary         *string               `json:"summary"`
	DetectedErrors  *[]*rawDetectedError  `json:"detectedErrors"`
	Recommendations *[]*rawRecommendation `json:"recommendations"`
}

type rawDetectedError struct {
	Type        *string  `json:"type"`
	Description *string  `json:"description"`
	Count       *float64 `json:"count"`
}

type rawRecommendation struct {
	Title    *string `json:"title"`
	Action   *string `json:"action"`
	Priority *string `json:"priority"`
}

// ParseResult decodes a provider payload into an AnalysisResult. It never
// returns a partially shaped result: any missing field, wrong type or
// out-of-range value yields an *AnalysisError.
func ParseResult(text string) (models.AnalysisResult, error) {
	payload := stripCodeFence(text)
	if payload == "" {
		return models.AnalysisResult{}, &AnalysisError{Kind: KindEmpty, Message: "provider returned empty content"}
	}

	var raw rawResult
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return models.AnalysisResult{}, &AnalysisError{Kind: KindMalformed, Message: "provider returned invalid JSON", Err: err}
	}

	result, err := raw.toResult()
	if err != nil {
		return models.AnalysisResult{}, &AnalysisError{Kind: KindShape, Message: err.Error(), Err: err}
	}

	if err := ValidateResult(result); err != nil {
		return models.AnalysisResult{}, &AnalysisError{Kind: KindShape, Message: err.Error(), Err: err}
	}
	return result, nil
}

// ValidateResult checks the AnalysisResult invariants: non-empty strings,
// positive counts and priorities within the enumerated set.
func ValidateResult(r models.AnalysisResult) error {
	if r.DetectedErrors == nil || r.Recommendations == nil {
		return errors.New("detectedErrors and recommendations must be present")
	}
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("field %s failed %q validation", fe.Namespace(), fe.Tag())
		}
		return err
	}
	return nil
}

func (r rawResult) toResult() (models.AnalysisResult, error) {
	switch {
	case r.Summary == nil:
		return models.AnalysisResult{}, errors.New("missing summary")
	case r.DetectedErrors == nil:
		return models.AnalysisResult{}, errors.New("missing detectedErrors")
	case r.Recommendations == nil:
		return models.AnalysisResult{}, errors.New("missing recommendations")
	}

	result := models.AnalysisResult{
		Summary:         *r.Summary,
		DetectedErrors:  make([]models.DetectedError, 0, len(*r.DetectedErrors)),
		Recommendations: make([]models.Recommendation, 0, len(*r.Recommendations)),
	}

	for i, d := range *r.DetectedErrors {
		if d == nil || d.Type == nil || d.Description == nil || d.Count == nil {
			return models.AnalysisResult{}, fmt.Errorf("detectedErrors[%d] is missing type, description or count", i)
		}
		count := *d.Count
		if count != math.Trunc(count) || count < 1 || count > math.MaxInt32 {
			return models.AnalysisResult{}, fmt.Errorf("detectedErrors[%d].count must be a positive integer, got %v", i, count)
		}
		result.DetectedErrors = append(result.DetectedErrors, models.DetectedError{
			Type:        *d.Type,
			Description: *d.Description,
			Count:       int(count),
		})
	}

	for i, rec := range *r.Recommendations {
		if rec == nil || rec.Title == nil || rec.Action == nil || rec.Priority == nil {
			return models.AnalysisResult{}, fmt.Errorf("recommendations[%d] is missing title, action or priority", i)
		}
		result.Recommendations = append(result.Recommendations, models.Recommendation{
			Title:    *rec.Title,
			Action:   *rec.Action,
			Priority: models.Priority(strings.ToLower(strings.TrimSpace(*rec.Priority))),
		})
	}

	return result, nil
}

// stripCodeFence removes a surrounding markdown code fence, which some chat
// models add even when asked for bare JSON.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
