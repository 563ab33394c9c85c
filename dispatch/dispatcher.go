package dispatch

import (
	"context"
	"fmt"
	"net/url"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/strada-framework/strada/router"
	"github.com/strada-framework/strada/types"
	"github.com/strada-framework/strada/utils"
)

type Config struct {
	// Debug adds panic/stack detail to 500 responses. Pass-through flag,
	// normally wired from ServiceConfig.Debug.
	Debug bool
}

// Dispatcher executes the per-request pipeline:
// match, global middleware, validation, route middleware, handler, then
// transform unwind in reverse registration order. All collaborators arrive
// by constructor injection; there is no ambient registry.
type Dispatcher struct {
	config    Config
	logger    types.Logger
	trie      *router.Trie
	global    []types.MiddlewareEntry
	validator types.Validator
}

func NewDispatcher(
	config Config,
	logger types.Logger,
	trie *router.Trie,
	global []types.MiddlewareEntry,
	validator types.Validator) (*Dispatcher, error) {
	if trie == nil {
		return nil, types.Errorf(types.ErrRouteLoadFailed, "dispatcher requires a route trie")
	}

	return &Dispatcher{
		config:    config,
		logger:    logger,
		trie:      trie,
		global:    global,
		validator: validator,
	}, nil
}

// Dispatch resolves and runs one request. It always returns a well-formed
// response; request-time failures never propagate as errors or panics.
func (d *Dispatcher) Dispatch(ctx context.Context, req *types.Request) *types.Response {
	match := d.trie.Match(req.Method, req.Path)

	switch match.Kind {
	case router.MatchNotFound:
		return notFoundResponse()
	case router.MatchMethodNotAllowed:
		return methodNotAllowedResponse(match.Allowed)
	}

	rc := d.buildContext(req, match)
	resp := d.run(ctx, rc, match.Entry)

	return d.unwind(rc, resp)
}

func (d *Dispatcher) buildContext(req *types.Request, match router.Match) *types.RequestContext {
	rc := types.NewRequestContext(req)
	rc.Params = match.Params
	rc.Wildcard = match.Wildcard
	rc.Query = parseQuery(req.QueryString)
	return rc
}

// run executes everything up to (but not including) the transform unwind.
// A panic anywhere in middleware or handler converts to a 500 here, so the
// unwind still sees registered transforms.
func (d *Dispatcher) run(ctx context.Context, rc *types.RequestContext, entry *router.Entry) (resp *types.Response) {
	defer func() {
		if rec := recover(); rec != nil {
			resp = d.recovered(rc, rec)
		}
	}()

	if resp = d.runChain(ctx, rc, d.global); resp != nil {
		return resp
	}

	if d.validator != nil && !entry.Schema.Empty() {
		if resp = d.validateStage(rc, entry.Schema); resp != nil {
			return resp
		}
	}

	if resp = d.runMiddleware(ctx, rc, entry.Middleware); resp != nil {
		return resp
	}

	handlerResp, err := entry.Handler(ctx, rc)
	if err != nil {
		if d.logger != nil {
			d.logger.Error("Handler failed",
				zap.String("method", rc.Method),
				zap.String("path", rc.Path),
				zap.Error(err))
		}
		return internalErrorResponse(d.config.Debug, err.Error())
	}
	if handlerResp == nil {
		return internalErrorResponse(d.config.Debug, "handler returned no response")
	}

	return handlerResp
}

func (d *Dispatcher) runChain(ctx context.Context, rc *types.RequestContext, chain []types.MiddlewareEntry) *types.Response {
	for _, entry := range chain {
		if resp := d.applyOutcome(rc, entry.Middleware.Handle(ctx, rc)); resp != nil {
			return resp
		}
	}
	return nil
}

func (d *Dispatcher) runMiddleware(ctx context.Context, rc *types.RequestContext, middleware []types.Middleware) *types.Response {
	for _, m := range middleware {
		if resp := d.applyOutcome(rc, m.Handle(ctx, rc)); resp != nil {
			return resp
		}
	}
	return nil
}

// applyOutcome resolves one middleware outcome. A non-nil return
// short-circuits the chain.
func (d *Dispatcher) applyOutcome(rc *types.RequestContext, outcome types.Outcome) *types.Response {
	switch outcome.Kind {
	case types.OutcomeContinue:
		return nil
	case types.OutcomeRespond:
		if outcome.Response == nil {
			return internalErrorResponse(d.config.Debug, "middleware responded with nil response")
		}
		return outcome.Response
	case types.OutcomeTransform:
		rc.PushTransform(outcome.Post)
		return nil
	default:
		return internalErrorResponse(d.config.Debug, fmt.Sprintf("unknown middleware outcome %d", outcome.Kind))
	}
}

// validateStage validates params, query and body independently against the
// declared schemas. Any failure short-circuits to a 400 grouped by source;
// on success the coerced values shadow the raw ones.
func (d *Dispatcher) validateStage(rc *types.RequestContext, schema *types.Schema) *types.Response {
	grouped := make(map[types.Source][]types.Failure, 3)

	if s := schema.BySource(types.SourceParams); s != nil {
		validated, failures := d.validator.Validate(s, rc.Params)
		if len(failures) > 0 {
			grouped[types.SourceParams] = failures
		} else {
			rc.SetValidated(types.SourceParams, validated)
		}
	}

	if s := schema.BySource(types.SourceQuery); s != nil {
		validated, failures := d.validator.Validate(s, rc.Query)
		if len(failures) > 0 {
			grouped[types.SourceQuery] = failures
		} else {
			rc.SetValidated(types.SourceQuery, validated)
		}
	}

	if s := schema.BySource(types.SourceBody); s != nil {
		body, parseFailure := parseBody(rc)
		if parseFailure != nil {
			grouped[types.SourceBody] = []types.Failure{*parseFailure}
		} else {
			validated, failures := d.validator.Validate(s, body)
			if len(failures) > 0 {
				grouped[types.SourceBody] = failures
			} else {
				rc.SetValidated(types.SourceBody, validated)
			}
		}
	}

	if len(grouped) > 0 {
		return validationFailedResponse(grouped)
	}
	return nil
}

// unwind applies registered transforms in reverse registration order,
// regardless of whether resp came from the handler or a short-circuit. A
// transform may replace the response but never skip its turn.
func (d *Dispatcher) unwind(rc *types.RequestContext, resp *types.Response) *types.Response {
	transforms := rc.Transforms()
	for i := len(transforms) - 1; i >= 0; i-- {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					resp = d.recovered(rc, rec)
				}
			}()
			if next := transforms[i](resp); next != nil {
				resp = next
			}
		}()
	}
	return resp
}

func (d *Dispatcher) recovered(rc *types.RequestContext, rec interface{}) *types.Response {
	stack := make([]byte, 4096)
	stack = stack[:runtime.Stack(stack, false)]

	if d.logger != nil {
		d.logger.Error("Recovered from panic",
			zap.Any("panic", rec),
			zap.String("method", rc.Method),
			zap.String("path", rc.Path),
			zap.String("stack", utils.BytesToString(stack)))
	}

	detail := fmt.Sprintf("%v\n%s", rec, stack)
	return internalErrorResponse(d.config.Debug, detail)
}

func parseQuery(queryString string) map[string]string {
	if queryString == "" {
		return map[string]string{}
	}

	values, err := url.ParseQuery(queryString)
	if err != nil {
		return map[string]string{}
	}

	query := make(map[string]string, len(values))
	for key, vals := range values {
		if len(vals) > 0 {
			query[key] = vals[0]
		}
	}
	return query
}

// parseBody decodes the raw body per content type: JSON by default,
// form-urlencoded as a string map. An empty body validates as an empty
// object so required-field failures surface uniformly.
func parseBody(rc *types.RequestContext) (interface{}, *types.Failure) {
	if len(rc.Body) == 0 {
		return map[string]interface{}{}, nil
	}

	contentType := rc.Header("Content-Type")
	if idx := strings.IndexByte(contentType, ';'); idx >= 0 {
		contentType = contentType[:idx]
	}
	contentType = strings.TrimSpace(contentType)

	switch contentType {
	case "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(utils.BytesToString(rc.Body))
		if err != nil {
			return nil, &types.Failure{
				Code:    types.CodeInvalidType,
				Message: "malformed form body",
			}
		}
		form := make(map[string]interface{}, len(values))
		for key, vals := range values {
			if len(vals) > 0 {
				form[key] = vals[0]
			}
		}
		return form, nil

	default:
		var body interface{}
		if err := utils.Unmarshal(rc.Body, &body); err != nil {
			return nil, &types.Failure{
				Code:    types.CodeInvalidType,
				Message: "malformed json body",
			}
		}
		return body, nil
	}
}
