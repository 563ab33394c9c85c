package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/strada-framework/strada/types"
)

// AccessLogMiddleware logs one line per request once the final response is
// known, via the transform unwind.
type AccessLogMiddleware struct {
	logger types.Logger
	name   string
	weight int
}

func NewAccessLogMiddleware(config types.ConfigManager, logger types.Logger) *AccessLogMiddleware {
	return &AccessLogMiddleware{
		name:   "access_log",
		weight: config.GetConfig().Middlewares.AccessLog.Weight,
		logger: logger,
	}
}

func (m *AccessLogMiddleware) Name() string { return m.name }
func (m *AccessLogMiddleware) Weight() int  { return m.weight }

func (m *AccessLogMiddleware) Handle(ctx context.Context, rc *types.RequestContext) types.Outcome {
	start := time.Now()
	method := rc.Method
	path := rc.Path

	return types.Transform(func(resp *types.Response) *types.Response {
		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.Status),
			zap.Duration("duration", time.Since(start)),
			zap.Int("size", len(resp.Body)),
		}

		if id, ok := rc.Value(RequestIDKey); ok {
			fields = append(fields, zap.Any("request_id", id))
		}

		m.logger.Info("Request handled", fields...)
		return resp
	})
}
