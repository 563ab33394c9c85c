package validation

import (
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/strada-framework/strada/types"
)

// CodeInvalidSchema reports a schema reference the engine does not
// understand. It signals a wiring bug, not bad request input.
const CodeInvalidSchema = "invalid_schema"

// Engine validates raw request input against RuleSet and StructSchema
// references. It implements types.Validator.
type Engine struct {
	validate *validator.Validate
}

func NewEngine() *Engine {
	return &Engine{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (e *Engine) Validate(schema interface{}, input interface{}) (interface{}, []types.Failure) {
	switch s := schema.(type) {
	case *RuleSet:
		return e.validateRules(s, input)
	case *StructSchema:
		return e.validateStruct(s, input)
	case nil:
		return input, nil
	default:
		return input, []types.Failure{{
			Code:    CodeInvalidSchema,
			Message: fmt.Sprintf("unsupported schema reference %T", schema),
		}}
	}
}

func (e *Engine) validateRules(rs *RuleSet, input interface{}) (interface{}, []types.Failure) {
	values := normalizeInput(input)
	validated := make(map[string]interface{}, len(values))
	var failures []types.Failure

	for key, raw := range values {
		field, declared := rs.Fields[key]
		if !declared {
			validated[key] = raw
			continue
		}

		value, failure := checkField(key, field, raw)
		if failure != nil {
			failures = append(failures, *failure)
			continue
		}
		validated[key] = value
	}

	for name, field := range rs.Fields {
		if !field.Required {
			continue
		}
		if _, present := values[name]; !present {
			failures = append(failures, types.Failure{
				Code:    types.CodeRequired,
				Path:    []string{name},
				Message: fmt.Sprintf("%s is required", name),
			})
		}
	}

	if len(failures) > 0 {
		return nil, failures
	}
	return validated, nil
}

func normalizeInput(input interface{}) map[string]interface{} {
	switch in := input.(type) {
	case map[string]interface{}:
		return in
	case map[string]string:
		values := make(map[string]interface{}, len(in))
		for k, v := range in {
			values[k] = v
		}
		return values
	case types.Params:
		values := make(map[string]interface{}, len(in))
		for _, p := range in {
			values[p.Name] = p.Value
		}
		return values
	case nil:
		return map[string]interface{}{}
	default:
		return map[string]interface{}{}
	}
}

// checkField validates one value against its rules, coercing string input
// (params and query arrive as strings) into the declared kind.
func checkField(name string, field Field, raw interface{}) (interface{}, *types.Failure) {
	value, failure := coerceKind(name, field.Kind, raw)
	if failure != nil {
		return nil, failure
	}

	switch v := value.(type) {
	case string:
		if f := checkString(name, field, v); f != nil {
			return nil, f
		}
	case float64:
		if f := checkNumber(name, field, v); f != nil {
			return nil, f
		}
	case int64:
		if f := checkNumber(name, field, float64(v)); f != nil {
			return nil, f
		}
	case []interface{}:
		if f := checkLength(name, field, float64(len(v))); f != nil {
			return nil, f
		}
	}

	return value, nil
}

func coerceKind(name string, kind Kind, raw interface{}) (interface{}, *types.Failure) {
	if kind == KindAny || kind == "" {
		return raw, nil
	}

	if s, isString := raw.(string); isString && kind != KindString {
		return coerceString(name, kind, s)
	}

	switch kind {
	case KindString:
		if s, ok := raw.(string); ok {
			return s, nil
		}
	case KindNumber:
		if f, ok := rawNumber(raw); ok {
			return f, nil
		}
	case KindInteger:
		if f, ok := rawNumber(raw); ok && f == float64(int64(f)) {
			return int64(f), nil
		}
	case KindBoolean:
		if b, ok := raw.(bool); ok {
			return b, nil
		}
	case KindArray:
		if a, ok := raw.([]interface{}); ok {
			return a, nil
		}
	case KindObject:
		if o, ok := raw.(map[string]interface{}); ok {
			return o, nil
		}
	}

	return nil, &types.Failure{
		Code:    types.CodeInvalidType,
		Path:    []string{name},
		Message: fmt.Sprintf("expected %s, got %s", kind, typeName(raw)),
	}
}

func coerceString(name string, kind Kind, s string) (interface{}, *types.Failure) {
	switch kind {
	case KindNumber:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, nil
		}
	case KindInteger:
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
	case KindBoolean:
		if b, err := strconv.ParseBool(s); err == nil {
			return b, nil
		}
	}

	return nil, &types.Failure{
		Code:    types.CodeInvalidType,
		Path:    []string{name},
		Message: fmt.Sprintf("expected %s, got string %q", kind, s),
	}
}

func rawNumber(raw interface{}) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func checkString(name string, field Field, v string) *types.Failure {
	if f := checkLength(name, field, float64(len(v))); f != nil {
		return f
	}

	if field.Pattern != nil && !field.Pattern.MatchString(v) {
		return &types.Failure{
			Code:    types.CodeInvalidString,
			Path:    []string{name},
			Message: fmt.Sprintf("%s does not match %s", name, field.Pattern.String()),
		}
	}

	if len(field.Enum) > 0 {
		for _, allowed := range field.Enum {
			if v == allowed {
				return nil
			}
		}
		return &types.Failure{
			Code:    types.CodeInvalidEnum,
			Path:    []string{name},
			Message: fmt.Sprintf("%s must be one of %v", name, field.Enum),
			Extra:   map[string]interface{}{"allowed": field.Enum},
		}
	}

	return nil
}

func checkNumber(name string, field Field, v float64) *types.Failure {
	if field.Min != nil && v < *field.Min {
		return &types.Failure{
			Code:    types.CodeTooSmall,
			Path:    []string{name},
			Message: fmt.Sprintf("%s must be >= %v", name, *field.Min),
		}
	}
	if field.Max != nil && v > *field.Max {
		return &types.Failure{
			Code:    types.CodeTooBig,
			Path:    []string{name},
			Message: fmt.Sprintf("%s must be <= %v", name, *field.Max),
		}
	}
	return nil
}

func checkLength(name string, field Field, length float64) *types.Failure {
	if field.Min != nil && length < *field.Min {
		return &types.Failure{
			Code:    types.CodeTooSmall,
			Path:    []string{name},
			Message: fmt.Sprintf("%s length must be >= %v", name, *field.Min),
		}
	}
	if field.Max != nil && length > *field.Max {
		return &types.Failure{
			Code:    types.CodeTooBig,
			Path:    []string{name},
			Message: fmt.Sprintf("%s length must be <= %v", name, *field.Max),
		}
	}
	return nil
}

func typeName(raw interface{}) string {
	switch raw.(type) {
	case string:
		return "string"
	case float64, int, int64:
		return "number"
	case bool:
		return "boolean"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", raw)
	}
}
