package middleware

import (
	"context"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/strada-framework/strada/types"
	"github.com/strada-framework/strada/utils"
)

const DefaultMaxBodySize = 4 * 1024 * 1024

type BodyLimitConfig struct {
	MaxSize int `json:"max_size"`
}

// BodyLimitMiddleware rejects oversized request bodies before validation or
// handlers touch them.
type BodyLimitMiddleware struct {
	logger  types.Logger
	maxSize int
	name    string
	weight  int
}

func NewBodyLimitMiddleware(config types.ConfigManager, logger types.Logger) *BodyLimitMiddleware {
	limitConfig := &BodyLimitConfig{
		MaxSize: DefaultMaxBodySize,
	}

	item := config.GetConfig().Middlewares.BodyLimit
	if item.Params != nil {
		if err := utils.UnmarshalConfig(item.Params, limitConfig); err != nil {
			logger.Error("Failed to unmarshal body limit middleware config", zap.Error(err))
		}
	}
	if limitConfig.MaxSize <= 0 {
		limitConfig.MaxSize = DefaultMaxBodySize
	}

	return &BodyLimitMiddleware{
		name:    "body_limit",
		weight:  item.Weight,
		logger:  logger,
		maxSize: limitConfig.MaxSize,
	}
}

func (m *BodyLimitMiddleware) Name() string { return m.name }
func (m *BodyLimitMiddleware) Weight() int  { return m.weight }

func (m *BodyLimitMiddleware) Handle(ctx context.Context, rc *types.RequestContext) types.Outcome {
	if len(rc.Body) <= m.maxSize {
		return types.Continue()
	}

	m.logger.Warn("Request body too large",
		zap.String("path", rc.Path),
		zap.Int("size", len(rc.Body)),
		zap.Int("max_size", m.maxSize))

	resp := types.NewResponse(fasthttp.StatusRequestEntityTooLarge,
		[]byte(`{"error":"request entity too large"}`))
	resp.SetHeader("Content-Type", "application/json")
	return types.Respond(resp)
}
