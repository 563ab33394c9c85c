package types

// Failure codes shared between the validation engine and the 400 response
// body. Stable wire contract, do not rename.
const (
	CodeInvalidType   = "invalid_type"
	CodeRequired      = "required"
	CodeTooSmall      = "too_small"
	CodeTooBig        = "too_big"
	CodeInvalidEnum   = "invalid_enum"
	CodeInvalidString = "invalid_string"
)

type Failure struct {
	Code    string                 `json:"code"`
	Path    []string               `json:"path"`
	Message string                 `json:"message"`
	Extra   map[string]interface{} `json:"extra,omitempty"`
}

// Validator is the pluggable validation engine. Given an opaque schema
// reference and raw input it returns the validated (possibly coerced) value,
// or a non-empty failure list.
type Validator interface {
	Validate(schema interface{}, input interface{}) (interface{}, []Failure)
}
