package types

import (
	"errors"
	"fmt"
)

var (
	ErrConfigNotFound       = errors.New("config not found")
	ErrConfigParseFailed    = errors.New("config parse failed")
	ErrConfigIsNil          = errors.New("config is nil")
	ErrConfigLoadFailed     = errors.New("config load failed")
	ErrConfigValidateFailed = errors.New("config validate failed")
)

var (
	ErrServerNotRunning     = errors.New("server not running")
	ErrServerAlreadyRunning = errors.New("server already running")
	ErrServerStartFailed    = errors.New("server start failed")
	ErrServerStopFailed     = errors.New("server stop failed")
)

var (
	ErrConflictingSegmentKind = errors.New("conflicting segment kind")
	ErrDuplicateRoute         = errors.New("duplicate route")
	ErrWildcardNotTerminal    = errors.New("wildcard segment not terminal")
	ErrEmptyPattern           = errors.New("empty route pattern")
	ErrInvalidSegment         = errors.New("invalid route segment")
	ErrUnknownMethod          = errors.New("unknown http method")
	ErrHandlerIsNil           = errors.New("handler is nil")
	ErrRouteLoadFailed        = errors.New("route load failed")
)

var (
	ErrMiddlewareNotFound    = errors.New("middleware not found")
	ErrMiddlewareInvalidType = errors.New("middleware invalid type")
	ErrMiddlewareFinalized   = errors.New("middleware registry finalized")
	ErrAuthTokenInvalid      = errors.New("auth token invalid")
	ErrBodyTooLarge          = errors.New("body too large")
)

var (
	ErrCacheNotFound         = errors.New("cache not found")
	ErrCacheKeyEmpty         = errors.New("cache key empty")
	ErrCacheConnectionFailed = errors.New("cache connection failed")
	ErrCacheTypeUnknown      = errors.New("cache type unknown")
	ErrCacheIsDisabled       = errors.New("cache manager is disabled")
)

var (
	ErrMetricsIsDisabled    = errors.New("metrics manager is disabled")
	ErrMetricsTypeUnknown   = errors.New("metrics type unknown")
	ErrMetricsStartFailed   = errors.New("metrics start failed")
	ErrMetricsConfigInvalid = errors.New("metrics config invalid")
)

var (
	ErrValidationFailed    = errors.New("validation failed")
	ErrSchemaTypeUnknown   = errors.New("schema type unknown")
	ErrUnsupportedBodyType = errors.New("unsupported body content type")
)

var (
	ErrLogFileIsEmpty     = errors.New("log file is empty")
	ErrLogFileWrongFormat = errors.New("log file wrong format")
	ErrLoggerTypeUnknown  = errors.New("logger type unknown")
)

func Errorf(baseErr error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", baseErr, fmt.Sprintf(format, args...))
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func NewErrorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

func IsError(err, target error) bool {
	return errors.Is(err, target)
}
