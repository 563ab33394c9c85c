package validation

import (
	"regexp"
)

type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindInteger Kind = "integer"
	KindBoolean Kind = "boolean"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
	KindAny     Kind = "any"
)

// Field is the rule set for a single input field. Min and Max apply to the
// numeric value for number/integer fields and to the length for string and
// array fields.
type Field struct {
	Kind     Kind
	Required bool
	Min      *float64
	Max      *float64
	Pattern  *regexp.Regexp
	Enum     []string
}

// RuleSet is a declarative schema for one input source (params, query or
// body). Fields not listed pass through unexamined.
type RuleSet struct {
	Fields map[string]Field
}

func NewRuleSet() *RuleSet {
	return &RuleSet{Fields: make(map[string]Field)}
}

func (rs *RuleSet) Field(name string, field Field) *RuleSet {
	rs.Fields[name] = field
	return rs
}

func (rs *RuleSet) Require(name string, kind Kind) *RuleSet {
	return rs.Field(name, Field{Kind: kind, Required: true})
}

func (rs *RuleSet) Optional(name string, kind Kind) *RuleSet {
	return rs.Field(name, Field{Kind: kind})
}

func MinOf(v float64) *float64 { return &v }
func MaxOf(v float64) *float64 { return &v }
