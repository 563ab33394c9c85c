package types

import (
	"context"
)

// Handler produces the base response for a matched route. Handlers may block
// on I/O; the dispatcher never inspects what they do with ctx.
type Handler func(ctx context.Context, rc *RequestContext) (*Response, error)

// TransformFunc is a response post-processor registered by a middleware
// Transform outcome. It may replace the response entirely.
type TransformFunc func(resp *Response) *Response

type Request struct {
	Method      string
	Path        string
	QueryString string
	Headers     map[string]string
	Body        []byte
}

type Response struct {
	Status  int
	Headers map[string]string
	Body    []byte
}

func NewResponse(status int, body []byte) *Response {
	return &Response{
		Status:  status,
		Headers: make(map[string]string, 4),
		Body:    body,
	}
}

func (r *Response) SetHeader(key, value string) *Response {
	if r.Headers == nil {
		r.Headers = make(map[string]string, 4)
	}
	r.Headers[key] = value
	return r
}

func (r *Response) Header(key string) string {
	return r.Headers[key]
}

// Param is a single dynamic segment binding. Params preserves left-to-right
// path order, which maps and their iteration cannot.
type Param struct {
	Name  string
	Value string
}

type Params []Param

func (ps Params) Get(name string) (string, bool) {
	for _, p := range ps {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

func (ps Params) Map() map[string]string {
	if len(ps) == 0 {
		return nil
	}
	m := make(map[string]string, len(ps))
	for _, p := range ps {
		m[p.Name] = p.Value
	}
	return m
}

// Source identifies which part of the request a schema or validation failure
// applies to.
type Source string

const (
	SourceParams Source = "params"
	SourceQuery  Source = "query"
	SourceBody   Source = "body"
)

// Schema holds per-source validation schema references. The references are
// opaque to the routing core; only the validation engine interprets them.
type Schema struct {
	Params interface{}
	Query  interface{}
	Body   interface{}
}

func (s *Schema) BySource(source Source) interface{} {
	if s == nil {
		return nil
	}
	switch source {
	case SourceParams:
		return s.Params
	case SourceQuery:
		return s.Query
	case SourceBody:
		return s.Body
	}
	return nil
}

func (s *Schema) Empty() bool {
	return s == nil || (s.Params == nil && s.Query == nil && s.Body == nil)
}

// Declaration is one externally supplied route: the core does not care
// whether it came from a filesystem walk, static config or code generation.
type Declaration struct {
	Method     string
	Pattern    string
	Handler    Handler
	Schema     *Schema
	Middleware []Middleware
	Metadata   map[string]interface{}
}

// RequestContext is the per-request record handed to middleware and
// handlers. It is created at dispatch start, owned by a single request and
// discarded at dispatch end.
type RequestContext struct {
	Method   string
	Path     string
	Params   Params
	Wildcard []string
	Query    map[string]string
	Headers  map[string]string
	Body     []byte

	validated  map[Source]interface{}
	transforms []TransformFunc
	values     map[string]interface{}
}

func NewRequestContext(req *Request) *RequestContext {
	return &RequestContext{
		Method:  req.Method,
		Path:    req.Path,
		Headers: req.Headers,
		Body:    req.Body,
	}
}

func (rc *RequestContext) Param(name string) string {
	v, _ := rc.Params.Get(name)
	return v
}

// SetValidated stores the coerced value for a source after the validation
// stage. Validated values shadow the raw ones for later stages.
func (rc *RequestContext) SetValidated(source Source, value interface{}) {
	if rc.validated == nil {
		rc.validated = make(map[Source]interface{}, 3)
	}
	rc.validated[source] = value
}

func (rc *RequestContext) Validated(source Source) (interface{}, bool) {
	v, ok := rc.validated[source]
	return v, ok
}

// PushTransform registers a response post-processor. Transforms are applied
// in reverse registration order during unwind.
func (rc *RequestContext) PushTransform(fn TransformFunc) {
	if fn == nil {
		return
	}
	rc.transforms = append(rc.transforms, fn)
}

func (rc *RequestContext) Transforms() []TransformFunc {
	return rc.transforms
}

func (rc *RequestContext) SetValue(key string, value interface{}) {
	if rc.values == nil {
		rc.values = make(map[string]interface{}, 4)
	}
	rc.values[key] = value
}

func (rc *RequestContext) Value(key string) (interface{}, bool) {
	v, ok := rc.values[key]
	return v, ok
}

func (rc *RequestContext) Header(key string) string {
	return rc.Headers[key]
}
