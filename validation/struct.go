package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/strada-framework/strada/types"
	"github.com/strada-framework/strada/utils"
)

// StructSchema validates input by decoding it into a fresh copy of the
// prototype struct and running go-playground/validator over the result.
// Prototype must be a pointer to a struct carrying `validate` tags.
type StructSchema struct {
	prototype reflect.Type
}

func Struct(prototype interface{}) *StructSchema {
	t := reflect.TypeOf(prototype)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return &StructSchema{prototype: t}
}

func (e *Engine) validateStruct(schema *StructSchema, input interface{}) (interface{}, []types.Failure) {
	if schema.prototype == nil || schema.prototype.Kind() != reflect.Struct {
		return input, []types.Failure{{
			Code:    CodeInvalidSchema,
			Message: "struct schema prototype is not a struct",
		}}
	}

	target := reflect.New(schema.prototype).Interface()

	raw, err := utils.Marshal(input)
	if err != nil {
		return nil, []types.Failure{{
			Code:    types.CodeInvalidType,
			Message: fmt.Sprintf("input not representable: %v", err),
		}}
	}
	if err := utils.UnmarshalInto(raw, target); err != nil {
		return nil, []types.Failure{{
			Code:    types.CodeInvalidType,
			Message: fmt.Sprintf("input does not match %s: %v", schema.prototype.Name(), err),
		}}
	}

	if err := e.validate.Struct(target); err != nil {
		var fieldErrors validator.ValidationErrors
		if !asFieldErrors(err, &fieldErrors) {
			return nil, []types.Failure{{
				Code:    CodeInvalidSchema,
				Message: err.Error(),
			}}
		}

		failures := make([]types.Failure, 0, len(fieldErrors))
		for _, fe := range fieldErrors {
			failures = append(failures, fieldFailure(fe))
		}
		return nil, failures
	}

	return target, nil
}

func asFieldErrors(err error, out *validator.ValidationErrors) bool {
	if fe, ok := err.(validator.ValidationErrors); ok {
		*out = fe
		return true
	}
	return false
}

// fieldFailure maps a validator tag violation onto the shared failure codes.
func fieldFailure(fe validator.FieldError) types.Failure {
	var code string
	switch fe.Tag() {
	case "required":
		code = types.CodeRequired
	case "min", "gte", "gt":
		code = types.CodeTooSmall
	case "max", "lte", "lt":
		code = types.CodeTooBig
	case "oneof":
		code = types.CodeInvalidEnum
	default:
		code = types.CodeInvalidString
	}

	return types.Failure{
		Code:    code,
		Path:    fieldPath(fe),
		Message: fe.Error(),
		Extra:   map[string]interface{}{"tag": fe.Tag()},
	}
}

func fieldPath(fe validator.FieldError) []string {
	// Namespace looks like "CreateUser.Profile.Name"; drop the root struct.
	parts := strings.Split(fe.Namespace(), ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, part := range parts {
		parts[i] = lowerFirst(part)
	}
	return parts
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
