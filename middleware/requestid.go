package middleware

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/strada-framework/strada/types"
	"github.com/strada-framework/strada/utils"
)

const RequestIDKey = "request_id"

type RequestIDConfig struct {
	Header string `json:"header"`
}

// RequestIDMiddleware assigns every request an identifier, reusing the
// inbound header when the client already sent one.
type RequestIDMiddleware struct {
	logger types.Logger
	header string
	name   string
	weight int
}

func NewRequestIDMiddleware(config types.ConfigManager, logger types.Logger) *RequestIDMiddleware {
	idConfig := &RequestIDConfig{
		Header: "X-Request-ID",
	}

	item := config.GetConfig().Middlewares.RequestID
	if item.Params != nil {
		if err := utils.UnmarshalConfig(item.Params, idConfig); err != nil {
			logger.Error("Failed to unmarshal request id middleware config", zap.Error(err))
		}
	}

	return &RequestIDMiddleware{
		name:   "request_id",
		weight: item.Weight,
		logger: logger,
		header: idConfig.Header,
	}
}

func (m *RequestIDMiddleware) Name() string { return m.name }
func (m *RequestIDMiddleware) Weight() int  { return m.weight }

func (m *RequestIDMiddleware) Handle(ctx context.Context, rc *types.RequestContext) types.Outcome {
	id := rc.Header(m.header)
	if id == "" {
		id = uuid.NewString()
	}

	rc.SetValue(RequestIDKey, id)

	header := m.header
	return types.Transform(func(resp *types.Response) *types.Response {
		return resp.SetHeader(header, id)
	})
}
