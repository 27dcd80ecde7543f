package models

// Priority is the urgency of a recommendation.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities returns the valid priorities in ascending order.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh}
}

// AnalysisResult is the provider-independent outcome of an analysis.
type AnalysisResult struct {
	Summary         string           `json:"summary" validate:"required"`
	DetectedErrors  []DetectedError  `json:"detectedErrors" validate:"dive"`
	Recommendations []Recommendation `json:"recommendations" validate:"dive"`
}

// DetectedError is one recurring error pattern found in the logs.
type DetectedError struct {
	Type        string `json:"type" validate:"required"`
	Description string `json:"description" validate:"required"`
	Count       int    `json:"count" validate:"gt=0"`
}

// Recommendation is one remediation step.
type Recommendation struct {
	Title    string   `json:"title" validate:"required"`
	Action   string   `json:"action" validate:"required"`
	Priority Priority `json:"priority" validate:"oneof=low medium high"`
}

// ErrorTypes returns the distinct detected error types in order of appearance.
func (r AnalysisResult) ErrorTypes() []string {
	seen := make(map[string]bool, len(r.DetectedErrors))
	types := make([]string, 0, len(r.DetectedErrors))
	for _, e := range r.DetectedErrors {
		if seen[e.Type] {
			continue
		}
		seen[e.Type] = true
		types = append(types, e.Type)
	}
	return types
}
