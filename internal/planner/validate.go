package planner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/gamesmith/internal/game"
	"github.com/fyrsmithlabs/gamesmith/internal/pipeline"
)

// shape is the expected JSON shape of a plan field.
type shape int

const (
	shapeString shape = iota
	shapeStringList
	shapeStringMap
	shapeObject
)

func (s shape) String() string {
	switch s {
	case shapeString:
		return "a non-empty string"
	case shapeStringList:
		return "a non-empty list of strings"
	case shapeStringMap:
		return "an object of string values"
	default:
		return "an object"
	}
}

type field struct {
	name   string
	shape  shape
	fields []field
}

// planSchema lists the required plan fields in validation order.
var planSchema = []field{
	{name: "game_title", shape: shapeString},
	{name: "framework", shape: shapeString},
	{name: "mechanics", shape: shapeStringList},
	{name: "controls", shape: shapeObject, fields: []field{
		{name: "bindings", shape: shapeStringMap},
		{name: "description", shape: shapeString},
	}},
	{name: "game_loop", shape: shapeObject, fields: []field{
		{name: "init", shape: shapeString},
		{name: "update", shape: shapeString},
		{name: "render", shape: shapeString},
		{name: "win_condition", shape: shapeString},
		{name: "lose_condition", shape: shapeString},
	}},
	{name: "entities", shape: shapeStringList},
	{name: "visual_style", shape: shapeString},
	{name: "core_systems", shape: shapeStringList},
	{name: "file_structure", shape: shapeStringMap},
}

// RequiredFields returns the dotted names of every required plan field.
func RequiredFields() []string {
	var out []string
	var walk func(prefix string, fs []field)
	walk = func(prefix string, fs []field) {
		for _, f := range fs {
			out = append(out, prefix+f.name)
			walk(prefix+f.name+".", f.fields)
		}
	}
	walk("", planSchema)
	return out
}

func topLevelFields() []string {
	names := make([]string, 0, len(planSchema))
	for _, f := range planSchema {
		names = append(names, f.name)
	}
	return names
}

// Parse extracts and validates a plan from a model response. Failures are
// PlanParse when no JSON object can be found and PlanValidation naming the
// first bad field otherwise. Parse is pure: the same text always gives the
// same result.
func Parse(text string) (*game.Plan, *pipeline.Failure) {
	obj, err := ExtractObject(text, topLevelFields()...)
	if err != nil {
		return nil, &pipeline.Failure{
			Phase:  pipeline.PhasePlanning,
			Kind:   pipeline.KindPlanParse,
			Detail: "response did not contain a well-formed JSON object",
			Err:    err,
		}
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return nil, &pipeline.Failure{
			Phase:  pipeline.PhasePlanning,
			Kind:   pipeline.KindPlanParse,
			Detail: "JSON object could not be decoded",
			Err:    err,
		}
	}

	if f := validate(raw); f != nil {
		return nil, f
	}

	var plan game.Plan
	if err := json.Unmarshal([]byte(obj), &plan); err != nil {
		return nil, &pipeline.Failure{
			Phase:  pipeline.PhasePlanning,
			Kind:   pipeline.KindPlanParse,
			Detail: "validated plan could not be decoded",
			Err:    err,
		}
	}
	return &plan, nil
}

func validate(raw map[string]any) *pipeline.Failure {
	if f := validateFields("", planSchema, raw); f != nil {
		return f
	}
	if fw := raw["framework"].(string); fw != game.Framework {
		return invalid("framework", fmt.Sprintf("must be %q, got %q", game.Framework, fw))
	}
	return nil
}

func validateFields(prefix string, schema []field, obj map[string]any) *pipeline.Failure {
	for _, f := range schema {
		name := prefix + f.name
		v, ok := obj[f.name]
		if !ok || v == nil {
			return invalid(name, "is missing")
		}
		if !hasShape(v, f.shape) {
			return invalid(name, fmt.Sprintf("must be %s", f.shape))
		}
		if f.shape == shapeObject {
			if fail := validateFields(name+".", f.fields, v.(map[string]any)); fail != nil {
				return fail
			}
		}
	}
	return nil
}

func hasShape(v any, s shape) bool {
	switch s {
	case shapeString:
		str, ok := v.(string)
		return ok && strings.TrimSpace(str) != ""
	case shapeStringList:
		list, ok := v.([]any)
		if !ok || len(list) == 0 {
			return false
		}
		for _, item := range list {
			if _, ok := item.(string); !ok {
				return false
			}
		}
		return true
	case shapeStringMap:
		m, ok := v.(map[string]any)
		if !ok {
			return false
		}
		for _, item := range m {
			if _, ok := item.(string); !ok {
				return false
			}
		}
		return true
	default:
		_, ok := v.(map[string]any)
		return ok
	}
}

func invalid(field, detail string) *pipeline.Failure {
	return &pipeline.Failure{
		Phase:  pipeline.PhasePlanning,
		Kind:   pipeline.KindPlanValidation,
		Field:  field,
		Detail: detail,
	}
}
