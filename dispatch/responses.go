package dispatch

import (
	"strings"

	"github.com/valyala/fasthttp"

	"github.com/strada-framework/strada/types"
	"github.com/strada-framework/strada/utils"
)

const contentTypeJSON = "application/json"

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

type validationBody struct {
	Error  string                           `json:"error"`
	Errors map[types.Source][]types.Failure `json:"errors"`
}

func jsonResponse(status int, body interface{}) *types.Response {
	data, err := utils.Marshal(body)
	if err != nil {
		resp := types.NewResponse(fasthttp.StatusInternalServerError, []byte(`{"error":"internal_error"}`))
		resp.SetHeader("Content-Type", contentTypeJSON)
		return resp
	}
	resp := types.NewResponse(status, data)
	resp.SetHeader("Content-Type", contentTypeJSON)
	return resp
}

func notFoundResponse() *types.Response {
	return jsonResponse(fasthttp.StatusNotFound, errorBody{Error: "not_found"})
}

func methodNotAllowedResponse(allowed []string) *types.Response {
	resp := jsonResponse(fasthttp.StatusMethodNotAllowed, errorBody{Error: "method_not_allowed"})
	if len(allowed) > 0 {
		resp.SetHeader("Allow", strings.Join(allowed, ", "))
	}
	return resp
}

func validationFailedResponse(failures map[types.Source][]types.Failure) *types.Response {
	return jsonResponse(fasthttp.StatusBadRequest, validationBody{
		Error:  "validation_failed",
		Errors: failures,
	})
}

// internalErrorResponse hides diagnostic detail unless debug mode is on.
func internalErrorResponse(debug bool, detail string) *types.Response {
	body := errorBody{Error: "internal_error", Message: "An unexpected error occurred"}
	if debug {
		body.Detail = detail
	}
	return jsonResponse(fasthttp.StatusInternalServerError, body)
}
