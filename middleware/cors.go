package middleware

import (
	"context"
	"strconv"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/strada-framework/strada/types"
	"github.com/strada-framework/strada/utils"
)

type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	ExposedHeaders   []string `json:"exposed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	MaxAge           int      `json:"max_age"`
}

type CORSMiddleware struct {
	logger          types.Logger
	corsConfig      *CORSConfig
	allowedOrigins  map[string]bool
	wildcardDomains []string
	allowedMethods  string
	allowedHeaders  string
	exposedHeaders  string
	maxAge          string
	name            string
	weight          int
	allowsAll       bool
}

func NewCORSMiddleware(config types.ConfigManager, logger types.Logger) *CORSMiddleware {
	corsConfig := &CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
		MaxAge:         86400,
	}

	item := config.GetConfig().Middlewares.CORS
	if item.Params != nil {
		if err := utils.UnmarshalConfig(item.Params, corsConfig); err != nil {
			logger.Error("Failed to unmarshal CORS middleware config", zap.Error(err))
		}
	}

	cm := &CORSMiddleware{
		name:           "cors",
		weight:         item.Weight,
		logger:         logger,
		corsConfig:     corsConfig,
		allowedMethods: strings.Join(corsConfig.AllowedMethods, ", "),
		allowedHeaders: strings.Join(corsConfig.AllowedHeaders, ", "),
		exposedHeaders: strings.Join(corsConfig.ExposedHeaders, ", "),
		maxAge:         strconv.Itoa(corsConfig.MaxAge),
	}

	cm.allowsAll = len(corsConfig.AllowedOrigins) == 1 && corsConfig.AllowedOrigins[0] == "*"
	if !cm.allowsAll {
		cm.allowedOrigins = make(map[string]bool, len(corsConfig.AllowedOrigins))
		for _, origin := range corsConfig.AllowedOrigins {
			if strings.HasPrefix(origin, "*.") {
				cm.wildcardDomains = append(cm.wildcardDomains, strings.TrimPrefix(origin, "*."))
			} else {
				cm.allowedOrigins[origin] = true
			}
		}
	}

	return cm
}

func (c *CORSMiddleware) Name() string { return c.name }
func (c *CORSMiddleware) Weight() int  { return c.weight }

func (c *CORSMiddleware) Handle(ctx context.Context, rc *types.RequestContext) types.Outcome {
	origin := rc.Header("Origin")
	if origin == "" {
		return types.Continue()
	}

	if !c.isOriginAllowed(origin) {
		c.logger.Warn("CORS request blocked",
			zap.String("origin", origin),
			zap.String("method", rc.Method),
			zap.String("path", rc.Path))

		resp := types.NewResponse(fasthttp.StatusForbidden,
			[]byte(`{"error":"CORS policy violation","message":"Origin not allowed"}`))
		resp.SetHeader("Content-Type", "application/json")
		return types.Respond(resp)
	}

	if rc.Method == fasthttp.MethodOptions {
		return types.Respond(c.preflightResponse(origin))
	}

	return types.Transform(func(resp *types.Response) *types.Response {
		c.setOriginHeaders(resp, origin)
		if c.exposedHeaders != "" {
			resp.SetHeader("Access-Control-Expose-Headers", c.exposedHeaders)
		}
		resp.SetHeader("Vary", "Origin")
		return resp
	})
}

func (c *CORSMiddleware) isOriginAllowed(origin string) bool {
	if c.allowsAll {
		return true
	}
	if c.allowedOrigins[origin] {
		return true
	}
	for _, domain := range c.wildcardDomains {
		if matchesWildcardDomain(origin, domain) {
			return true
		}
	}
	return false
}

func matchesWildcardDomain(origin, domain string) bool {
	if origin == domain {
		return true
	}

	suffix := "." + domain
	if strings.HasSuffix(origin, suffix) {
		prefixLen := len(origin) - len(suffix)
		if prefixLen > 0 {
			return origin[prefixLen-1] != '.'
		}
	}

	return false
}

func (c *CORSMiddleware) preflightResponse(origin string) *types.Response {
	resp := types.NewResponse(fasthttp.StatusNoContent, nil)
	c.setOriginHeaders(resp, origin)
	resp.SetHeader("Access-Control-Allow-Methods", c.allowedMethods)
	resp.SetHeader("Access-Control-Allow-Headers", c.allowedHeaders)
	resp.SetHeader("Access-Control-Max-Age", c.maxAge)
	resp.SetHeader("Vary", "Origin, Access-Control-Request-Method, Access-Control-Request-Headers")
	return resp
}

func (c *CORSMiddleware) setOriginHeaders(resp *types.Response, origin string) {
	if c.allowsAll {
		resp.SetHeader("Access-Control-Allow-Origin", "*")
	} else {
		resp.SetHeader("Access-Control-Allow-Origin", origin)
	}
	if c.corsConfig.AllowCredentials {
		resp.SetHeader("Access-Control-Allow-Credentials", "true")
	}
}
