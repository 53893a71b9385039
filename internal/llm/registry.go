// Package llm provides structured generation against a fixed set of models.
package llm

import (
	"github.com/rotisserie/eris"
)

// ModelName is a logical model identifier. The set of supported models is
// closed; each entry maps to an API call name and a trace display name.
type ModelName string

const (
	// ModelFast is the cheap, low-latency model used for selection and
	// per-page extraction.
	ModelFast ModelName = "fast"
	// ModelBalanced is the mid-tier model used for the final merge.
	ModelBalanced ModelName = "balanced"
)

// modelInfo holds the two derived names for a logical model.
type modelInfo struct {
	apiName   string
	traceName string
}

var models = map[ModelName]modelInfo{
	ModelFast:     {apiName: "claude-haiku-4-5-20251001", traceName: "anthropic/claude-haiku-4-5"},
	ModelBalanced: {apiName: "claude-sonnet-4-5-20250929", traceName: "anthropic/claude-sonnet-4-5"},
}

// ParseModel validates a configured model name.
func ParseModel(s string) (ModelName, error) {
	m := ModelName(s)
	if _, ok := models[m]; !ok {
		return "", eris.Errorf("llm: unknown model %q", s)
	}
	return m, nil
}

// APIName returns the provider-facing model identifier.
func (m ModelName) APIName() string {
	return models[m].apiName
}

// TraceName returns the name used in trace records.
func (m ModelName) TraceName() string {
	return models[m].traceName
}
