package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strada-framework/strada/router"
	"github.com/strada-framework/strada/types"
	"github.com/strada-framework/strada/utils"
	"github.com/strada-framework/strada/validation"
)

func okHandler(tag string) types.Handler {
	return func(_ context.Context, _ *types.RequestContext) (*types.Response, error) {
		return types.NewResponse(200, []byte(tag)), nil
	}
}

func tracingMiddleware(name string, trace *[]string, outcome func() types.Outcome) types.Middleware {
	return types.MiddlewareFunc{
		FuncName: name,
		HandleFunc: func(_ context.Context, _ *types.RequestContext) types.Outcome {
			*trace = append(*trace, name)
			return outcome()
		},
	}
}

func continueMiddleware(name string, trace *[]string) types.Middleware {
	return tracingMiddleware(name, trace, types.Continue)
}

func mustLoad(t *testing.T, decls []types.Declaration) *router.Trie {
	t.Helper()
	trie, err := router.NewRegistrar(nil).Load(decls)
	require.NoError(t, err)
	return trie
}

func newDispatcher(t *testing.T, trie *router.Trie, global []types.MiddlewareEntry) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(Config{}, nil, trie, global, validation.NewEngine())
	require.NoError(t, err)
	return d
}

func globalEntries(middleware ...types.Middleware) []types.MiddlewareEntry {
	entries := make([]types.MiddlewareEntry, 0, len(middleware))
	for i, m := range middleware {
		entries = append(entries, types.MiddlewareEntry{Name: m.Name(), Middleware: m, Weight: i})
	}
	return entries
}

func TestDispatch_DynamicRouteParams(t *testing.T) {
	var gotID string
	trie := mustLoad(t, []types.Declaration{{
		Method:  "GET",
		Pattern: "/users/[id]",
		Handler: func(_ context.Context, rc *types.RequestContext) (*types.Response, error) {
			gotID = rc.Param("id")
			return types.NewResponse(200, []byte("ok")), nil
		},
	}})
	d := newDispatcher(t, trie, nil)

	resp := d.Dispatch(context.Background(), &types.Request{Method: "GET", Path: "/users/42"})
	require.Equal(t, 200, resp.Status)
	assert.Equal(t, "42", gotID)
}

func TestDispatch_WildcardSegments(t *testing.T) {
	var got []string
	trie := mustLoad(t, []types.Declaration{{
		Method:  "GET",
		Pattern: "/files/[...]",
		Handler: func(_ context.Context, rc *types.RequestContext) (*types.Response, error) {
			got = rc.Wildcard
			return types.NewResponse(200, nil), nil
		},
	}})
	d := newDispatcher(t, trie, nil)

	resp := d.Dispatch(context.Background(), &types.Request{Method: "GET", Path: "/files/a/b/c.txt"})
	require.Equal(t, 200, resp.Status)
	assert.Equal(t, []string{"a", "b", "c.txt"}, got)
}

func TestDispatch_NotFound(t *testing.T) {
	trie := mustLoad(t, []types.Declaration{
		{Method: "GET", Pattern: "/users", Handler: okHandler("list")},
	})
	d := newDispatcher(t, trie, nil)

	resp := d.Dispatch(context.Background(), &types.Request{Method: "GET", Path: "/posts"})
	assert.Equal(t, 404, resp.Status)
	assert.Equal(t, contentTypeJSON, resp.Header("Content-Type"))
}

func TestDispatch_MethodNotAllowed(t *testing.T) {
	trie := mustLoad(t, []types.Declaration{
		{Method: "GET", Pattern: "/users", Handler: okHandler("list")},
		{Method: "POST", Pattern: "/users", Handler: okHandler("create")},
	})
	d := newDispatcher(t, trie, nil)

	resp := d.Dispatch(context.Background(), &types.Request{Method: "DELETE", Path: "/users"})
	assert.Equal(t, 405, resp.Status)
	assert.Equal(t, "GET, POST", resp.Header("Allow"))
}

func TestDispatch_PipelineOrder(t *testing.T) {
	var trace []string

	routeMw := tracingMiddleware("C", &trace, types.Continue)
	schema := &types.Schema{Body: validation.NewRuleSet().Optional("name", validation.KindString)}

	trie := mustLoad(t, []types.Declaration{{
		Method:  "POST",
		Pattern: "/users",
		Schema:  schema,
		Handler: func(_ context.Context, _ *types.RequestContext) (*types.Response, error) {
			trace = append(trace, "handler")
			return types.NewResponse(201, nil), nil
		},
		Middleware: []types.Middleware{routeMw},
	}})

	global := globalEntries(
		continueMiddleware("A", &trace),
		continueMiddleware("B", &trace),
	)
	d := newDispatcher(t, trie, global)

	resp := d.Dispatch(context.Background(), &types.Request{
		Method:  "POST",
		Path:    "/users",
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    []byte(`{"name":"Ada"}`),
	})
	require.Equal(t, 201, resp.Status)
	assert.Equal(t, []string{"A", "B", "C", "handler"}, trace)
}

func TestDispatch_RespondShortCircuitSkipsRest(t *testing.T) {
	var trace []string

	shortResp := types.NewResponse(403, []byte("denied"))
	global := globalEntries(
		tracingMiddleware("A", &trace, func() types.Outcome {
			return types.Transform(func(resp *types.Response) *types.Response {
				resp.SetHeader("X-From-A", "yes")
				return resp
			})
		}),
		tracingMiddleware("B", &trace, func() types.Outcome { return types.Respond(shortResp) }),
	)

	routeMw := tracingMiddleware("C", &trace, types.Continue)
	trie := mustLoad(t, []types.Declaration{{
		Method:  "GET",
		Pattern: "/secret",
		Schema:  &types.Schema{Query: validation.NewRuleSet().Require("token", validation.KindString)},
		Handler: func(_ context.Context, _ *types.RequestContext) (*types.Response, error) {
			trace = append(trace, "handler")
			return types.NewResponse(200, nil), nil
		},
		Middleware: []types.Middleware{routeMw},
	}})
	d := newDispatcher(t, trie, global)

	resp := d.Dispatch(context.Background(), &types.Request{Method: "GET", Path: "/secret"})

	// Validation, route middleware and handler never ran, but A's transform
	// still applied to B's response.
	assert.Equal(t, []string{"A", "B"}, trace)
	assert.Equal(t, 403, resp.Status)
	assert.Equal(t, "yes", resp.Header("X-From-A"))
}

func TestDispatch_TransformsUnwindInReverseOrder(t *testing.T) {
	appendTransform := func(tag string) types.Middleware {
		return types.MiddlewareFunc{
			FuncName: tag,
			HandleFunc: func(_ context.Context, _ *types.RequestContext) types.Outcome {
				return types.Transform(func(resp *types.Response) *types.Response {
					resp.Body = append(resp.Body, []byte(tag)...)
					return resp
				})
			},
		}
	}

	trie := mustLoad(t, []types.Declaration{
		{Method: "GET", Pattern: "/", Handler: okHandler("base-")},
	})
	d := newDispatcher(t, trie, globalEntries(appendTransform("t1"), appendTransform("t2")))

	resp := d.Dispatch(context.Background(), &types.Request{Method: "GET", Path: "/"})
	// Last registered runs first.
	assert.Equal(t, "base-t2t1", string(resp.Body))
}

func TestDispatch_ValidationFailureGroupsBySource(t *testing.T) {
	schema := &types.Schema{
		Body: validation.NewRuleSet().Require("name", validation.KindString),
	}
	trie := mustLoad(t, []types.Declaration{
		{Method: "POST", Pattern: "/users", Schema: schema, Handler: okHandler("create")},
	})
	d := newDispatcher(t, trie, nil)

	resp := d.Dispatch(context.Background(), &types.Request{
		Method:  "POST",
		Path:    "/users",
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    []byte(`{"name":5}`),
	})
	require.Equal(t, 400, resp.Status)

	var body struct {
		Error  string                     `json:"error"`
		Errors map[string][]types.Failure `json:"errors"`
	}
	require.NoError(t, utils.Unmarshal(resp.Body, &body))
	assert.Equal(t, "validation_failed", body.Error)
	require.Len(t, body.Errors["body"], 1)
	assert.Equal(t, types.CodeInvalidType, body.Errors["body"][0].Code)
	assert.Equal(t, []string{"name"}, body.Errors["body"][0].Path)
}

func TestDispatch_ValidationShortCircuitStillTransforms(t *testing.T) {
	markTransform := types.MiddlewareFunc{
		FuncName: "mark",
		HandleFunc: func(_ context.Context, _ *types.RequestContext) types.Outcome {
			return types.Transform(func(resp *types.Response) *types.Response {
				resp.SetHeader("X-Marked", "1")
				return resp
			})
		},
	}

	schema := &types.Schema{Query: validation.NewRuleSet().Require("page", validation.KindInteger)}
	trie := mustLoad(t, []types.Declaration{
		{Method: "GET", Pattern: "/list", Schema: schema, Handler: okHandler("list")},
	})
	d := newDispatcher(t, trie, globalEntries(markTransform))

	resp := d.Dispatch(context.Background(), &types.Request{Method: "GET", Path: "/list"})
	assert.Equal(t, 400, resp.Status)
	assert.Equal(t, "1", resp.Header("X-Marked"))
}

func TestDispatch_ValidatedValuesShadowRaw(t *testing.T) {
	var validatedQuery map[string]interface{}
	schema := &types.Schema{Query: validation.NewRuleSet().Require("page", validation.KindInteger)}

	trie := mustLoad(t, []types.Declaration{{
		Method:  "GET",
		Pattern: "/list",
		Schema:  schema,
		Handler: func(_ context.Context, rc *types.RequestContext) (*types.Response, error) {
			v, ok := rc.Validated(types.SourceQuery)
			if ok {
				validatedQuery = v.(map[string]interface{})
			}
			return types.NewResponse(200, nil), nil
		},
	}})
	d := newDispatcher(t, trie, nil)

	resp := d.Dispatch(context.Background(), &types.Request{Method: "GET", Path: "/list", QueryString: "page=3"})
	require.Equal(t, 200, resp.Status)
	assert.Equal(t, int64(3), validatedQuery["page"])
}

func TestDispatch_HandlerErrorBecomes500(t *testing.T) {
	trie := mustLoad(t, []types.Declaration{{
		Method:  "GET",
		Pattern: "/broken",
		Handler: func(_ context.Context, _ *types.RequestContext) (*types.Response, error) {
			return nil, errors.New("database exploded")
		},
	}})
	d := newDispatcher(t, trie, nil)

	resp := d.Dispatch(context.Background(), &types.Request{Method: "GET", Path: "/broken"})
	assert.Equal(t, 500, resp.Status)
	assert.NotContains(t, string(resp.Body), "database exploded")
}

func TestDispatch_HandlerErrorDebugDetail(t *testing.T) {
	trie := mustLoad(t, []types.Declaration{{
		Method:  "GET",
		Pattern: "/broken",
		Handler: func(_ context.Context, _ *types.RequestContext) (*types.Response, error) {
			return nil, errors.New("database exploded")
		},
	}})
	d, err := NewDispatcher(Config{Debug: true}, nil, trie, nil, validation.NewEngine())
	require.NoError(t, err)

	resp := d.Dispatch(context.Background(), &types.Request{Method: "GET", Path: "/broken"})
	assert.Equal(t, 500, resp.Status)
	assert.Contains(t, string(resp.Body), "database exploded")
}

func TestDispatch_HandlerPanicRecovered(t *testing.T) {
	trie := mustLoad(t, []types.Declaration{{
		Method:  "GET",
		Pattern: "/panic",
		Handler: func(_ context.Context, _ *types.RequestContext) (*types.Response, error) {
			panic("boom")
		},
	}})
	d := newDispatcher(t, trie, nil)

	resp := d.Dispatch(context.Background(), &types.Request{Method: "GET", Path: "/panic"})
	assert.Equal(t, 500, resp.Status)
}

func TestDispatch_PanicStillRunsTransforms(t *testing.T) {
	markTransform := types.MiddlewareFunc{
		FuncName: "mark",
		HandleFunc: func(_ context.Context, _ *types.RequestContext) types.Outcome {
			return types.Transform(func(resp *types.Response) *types.Response {
				resp.SetHeader("X-Marked", "1")
				return resp
			})
		},
	}

	trie := mustLoad(t, []types.Declaration{{
		Method:  "GET",
		Pattern: "/panic",
		Handler: func(_ context.Context, _ *types.RequestContext) (*types.Response, error) {
			panic("boom")
		},
	}})
	d := newDispatcher(t, trie, globalEntries(markTransform))

	resp := d.Dispatch(context.Background(), &types.Request{Method: "GET", Path: "/panic"})
	assert.Equal(t, 500, resp.Status)
	assert.Equal(t, "1", resp.Header("X-Marked"))
}

func TestDispatch_FormBodyValidation(t *testing.T) {
	schema := &types.Schema{Body: validation.NewRuleSet().Require("age", validation.KindInteger)}
	trie := mustLoad(t, []types.Declaration{
		{Method: "POST", Pattern: "/signup", Schema: schema, Handler: okHandler("ok")},
	})
	d := newDispatcher(t, trie, nil)

	resp := d.Dispatch(context.Background(), &types.Request{
		Method:  "POST",
		Path:    "/signup",
		Headers: map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
		Body:    []byte("age=30"),
	})
	assert.Equal(t, 200, resp.Status)
}

func TestDispatch_MalformedJSONBody(t *testing.T) {
	schema := &types.Schema{Body: validation.NewRuleSet().Require("name", validation.KindString)}
	trie := mustLoad(t, []types.Declaration{
		{Method: "POST", Pattern: "/users", Schema: schema, Handler: okHandler("ok")},
	})
	d := newDispatcher(t, trie, nil)

	resp := d.Dispatch(context.Background(), &types.Request{
		Method:  "POST",
		Path:    "/users",
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    []byte(`{"name":`),
	})
	assert.Equal(t, 400, resp.Status)
}

func TestDispatch_NoSchemaSkipsValidation(t *testing.T) {
	trie := mustLoad(t, []types.Declaration{
		{Method: "POST", Pattern: "/raw", Handler: okHandler("ok")},
	})
	d := newDispatcher(t, trie, nil)

	resp := d.Dispatch(context.Background(), &types.Request{
		Method: "POST",
		Path:   "/raw",
		Body:   []byte("not json at all"),
	})
	assert.Equal(t, 200, resp.Status)
}
