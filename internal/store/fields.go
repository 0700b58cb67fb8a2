package store

import (
	"math"
	"sort"
	"strings"

	dserrors "github.com/Aman-CERP/deckstore/internal/errors"
)

type fieldKind int

const (
	kindText         fieldKind = iota // string, NOT NULL
	kindNullableText                  // string, *string or nil
	kindInt                           // whole number
	kindFloat                         // any number
)

type fieldSpec struct {
	column string
	kind   fieldKind
}

// assignment is one validated "column = value" pair of a partial update.
type assignment struct {
	field  string
	column string
	value  any
}

// updatePlan is the validated form of a Fields map.
type updatePlan []assignment

// has reports whether the plan assigns field.
func (p updatePlan) has(field string) bool {
	for _, a := range p {
		if a.field == field {
			return true
		}
	}
	return false
}

// value returns the converted value assigned to field.
func (p updatePlan) value(field string) (any, bool) {
	for _, a := range p {
		if a.field == field {
			return a.value, true
		}
	}
	return nil, false
}

// setClause renders "col1 = ?, col2 = ?" and the matching arguments.
func (p updatePlan) setClause() (string, []any) {
	cols := make([]string, len(p))
	args := make([]any, len(p))
	for i, a := range p {
		cols[i] = a.column + " = ?"
		args[i] = a.value
	}
	return strings.Join(cols, ", "), args
}

var slideFields = map[string]fieldSpec{
	"position":   {"position", kindInt},
	"title":      {"title", kindText},
	"body":       {"body", kindText},
	"notes":      {"notes", kindText},
	"thumbnail":  {"thumbnail", kindText},
	"ai_topic":   {"ai_topic", kindNullableText},
	"ai_type":    {"ai_type", kindNullableText},
	"ai_insight": {"ai_insight", kindNullableText},
}

// slideSearchFields are the slide fields that feed the search blob.
var slideSearchFields = []string{"title", "body", "notes", "ai_topic", "ai_insight"}

var elementFields = map[string]fieldSpec{
	"type":   {"type", kindText},
	"x":      {"x", kindFloat},
	"y":      {"y", kindFloat},
	"width":  {"width", kindFloat},
	"height": {"height", kindFloat},
	"text":   {"text", kindNullableText},
}

var keywordFields = map[string]fieldSpec{
	"text":  {"text", kindText},
	"color": {"color", kindText},
}

var projectFields = map[string]fieldSpec{
	"name":      {"name", kindText},
	"root_path": {"root_path", kindText},
}

var fileFields = map[string]fieldSpec{
	"original_path": {"original_path", kindText},
	"internal_path": {"internal_path", kindText},
	"slide_count":   {"slide_count", kindInt},
}

var assemblyFields = map[string]fieldSpec{
	"name": {"name", kindText},
}

// planUpdate validates fields against the entity's allowed set and converts
// every value to its column type. Assignments are ordered by field name.
func planUpdate(entity string, fields Fields, specs map[string]fieldSpec) (updatePlan, error) {
	if len(fields) == 0 {
		return nil, dserrors.InvalidArgument("no fields to update for %s", entity)
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	plan := make(updatePlan, 0, len(names))
	for _, name := range names {
		spec, ok := specs[name]
		if !ok {
			return nil, dserrors.InvalidArgument("unknown %s field %q", entity, name)
		}
		v, err := convertField(spec.kind, fields[name])
		if err != nil {
			return nil, dserrors.InvalidArgument("%s field %q: %s", entity, name, err.Error())
		}
		plan = append(plan, assignment{field: name, column: spec.column, value: v})
	}
	return plan, nil
}

type conversionError string

func (e conversionError) Error() string { return string(e) }

func convertField(kind fieldKind, v any) (any, error) {
	switch kind {
	case kindText:
		switch s := v.(type) {
		case string:
			return s, nil
		case *string:
			if s != nil {
				return *s, nil
			}
		}
		return nil, conversionError("expected a string")

	case kindNullableText:
		switch s := v.(type) {
		case nil:
			return nil, nil
		case string:
			return s, nil
		case *string:
			if s == nil {
				return nil, nil
			}
			return *s, nil
		}
		return nil, conversionError("expected a string or null")

	case kindInt:
		switch n := v.(type) {
		case int:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case int64:
			return n, nil
		case float64:
			if n == math.Trunc(n) && !math.IsInf(n, 0) {
				return int64(n), nil
			}
		}
		return nil, conversionError("expected a whole number")

	case kindFloat:
		switch n := v.(type) {
		case float64:
			if !math.IsNaN(n) && !math.IsInf(n, 0) {
				return n, nil
			}
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
		return nil, conversionError("expected a finite number")
	}
	return nil, conversionError("unsupported field kind")
}
