// Package validation checks simulation parameters against per-kind rule
// tables and proposes corrected values. All functions are pure: no I/O,
// no retained state.
package validation

import (
	"fmt"
	"math"

	"github.com/dronreef2/3dPot2-sub000/core/models"
)

// Outcome is the result of validating a parameter set
type Outcome struct {
	Valid               bool                   `json:"valid"`
	Errors              []string               `json:"errors,omitempty"`
	Warnings            []string               `json:"warnings,omitempty"`
	SuggestedParameters map[string]interface{} `json:"suggested_parameters,omitempty"`
}

// Validate checks params against the rule table for kind. Errors block
// submission; warnings do not, but SuggestedParameters then carries the
// adjusted values from Suggest.
func Validate(kind models.SimulationKind, params map[string]interface{}) Outcome {
	out := Outcome{Valid: true}
	if !kind.Valid() {
		out.Valid = false
		out.Errors = append(out.Errors, fmt.Sprintf("unknown simulation kind %q", kind))
		return out
	}

	for _, rule := range kindRules[kind] {
		raw, present := params[rule.Field]
		if !present {
			if rule.Required {
				out.Errors = append(out.Errors, fmt.Sprintf("%s is required", rule.Field))
			}
			continue
		}
		v, ok := numericValue(raw)
		if !ok {
			out.Errors = append(out.Errors, fmt.Sprintf("%s must be a number", rule.Field))
			continue
		}
		if rule.Integer && v != math.Trunc(v) {
			out.Errors = append(out.Errors, fmt.Sprintf("%s must be a whole number", rule.Field))
			continue
		}
		if v < rule.Min || v > rule.Max {
			out.Errors = append(out.Errors, rule.Message)
		}
	}

	for _, rule := range kindEnums[kind] {
		raw, present := params[rule.Field]
		if !present {
			continue
		}
		s, ok := raw.(string)
		if !ok || !containsString(rule.Allowed, s) {
			out.Errors = append(out.Errors, rule.Message)
		}
	}

	for _, rule := range kindWarnings[kind] {
		if rule.Check(params) {
			out.Warnings = append(out.Warnings, rule.Message)
		}
	}

	out.Valid = len(out.Errors) == 0
	if out.Valid && len(out.Warnings) > 0 {
		out.SuggestedParameters = Suggest(kind, params)
	}
	return out
}

// Suggest returns a copy of params with out-of-band values clamped toward
// sane defaults. It never raises errors and is idempotent:
// Suggest(Suggest(p)) == Suggest(p).
func Suggest(kind models.SimulationKind, params map[string]interface{}) map[string]interface{} {
	suggested := make(map[string]interface{}, len(params))
	for k, v := range params {
		suggested[k] = v
	}
	if !kind.Valid() {
		return suggested
	}

	for _, rule := range kindRules[kind] {
		raw, present := suggested[rule.Field]
		if !present {
			continue
		}
		v, ok := numericValue(raw)
		if !ok {
			continue
		}
		if v < rule.Min {
			v = rule.Min
		} else if v > rule.Max {
			v = rule.Max
		}
		if rule.Integer {
			v = math.Round(v)
		}
		suggested[rule.Field] = v
	}

	for _, rule := range kindWarnings[kind] {
		if rule.Check(suggested) {
			suggested[rule.Field] = rule.Suggested(suggested)
		}
	}
	return suggested
}

// numericParam reads a numeric field out of a parameter map.
func numericParam(params map[string]interface{}, field string) (float64, bool) {
	raw, ok := params[field]
	if !ok {
		return 0, false
	}
	return numericValue(raw)
}

func numericValue(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
