package types

import "context"

// Middleware is one stage of the dispatch pipeline. Each invocation returns
// an Outcome; the dispatcher resolves it with an exhaustive switch rather
// than inspecting return types at runtime.
type Middleware interface {
	Handle(ctx context.Context, rc *RequestContext) Outcome
	Name() string
	Weight() int
}

type OutcomeKind uint8

const (
	// OutcomeContinue proceeds to the next pipeline stage.
	OutcomeContinue OutcomeKind = iota
	// OutcomeRespond terminates the chain immediately; remaining stages
	// including the handler are skipped.
	OutcomeRespond
	// OutcomeTransform proceeds, registering a post-processor applied to the
	// eventual response in reverse registration order.
	OutcomeTransform
)

type Outcome struct {
	Kind     OutcomeKind
	Response *Response
	Post     TransformFunc
}

func Continue() Outcome {
	return Outcome{Kind: OutcomeContinue}
}

func Respond(resp *Response) Outcome {
	return Outcome{Kind: OutcomeRespond, Response: resp}
}

func Transform(fn TransformFunc) Outcome {
	return Outcome{Kind: OutcomeTransform, Post: fn}
}

type MiddlewareEntry struct {
	Name       string
	Middleware Middleware
	Weight     int
}

// MiddlewareFunc adapts a bare function to the Middleware interface, for
// route-scoped middleware that needs no configuration.
type MiddlewareFunc struct {
	HandleFunc func(ctx context.Context, rc *RequestContext) Outcome
	FuncName   string
	FuncWeight int
}

func (f MiddlewareFunc) Handle(ctx context.Context, rc *RequestContext) Outcome {
	return f.HandleFunc(ctx, rc)
}

func (f MiddlewareFunc) Name() string { return f.FuncName }
func (f MiddlewareFunc) Weight() int  { return f.FuncWeight }
