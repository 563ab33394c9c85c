package middleware

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/strada-framework/strada/types"
	"github.com/strada-framework/strada/utils"
)

const AuthUserKey = "auth_user"

type AuthConfig struct {
	Scheme    string            `json:"scheme"`
	Tokens    []string          `json:"tokens"`
	Users     map[string]string `json:"users"`
	SkipPaths []string          `json:"skip_paths"`
}

// AuthMiddleware guards the pipeline with either bearer tokens or basic
// credentials. Basic passwords are compared against bcrypt hashes from the
// config, never stored in clear.
type AuthMiddleware struct {
	logger     types.Logger
	authConfig *AuthConfig
	tokens     map[string]bool
	skipPaths  map[string]bool
	name       string
	weight     int
}

func NewAuthMiddleware(config types.ConfigManager, logger types.Logger) *AuthMiddleware {
	authConfig := &AuthConfig{
		Scheme: "bearer",
	}

	item := config.GetConfig().Middlewares.Auth
	if item.Params != nil {
		if err := utils.UnmarshalConfig(item.Params, authConfig); err != nil {
			logger.Error("Failed to unmarshal auth middleware config", zap.Error(err))
		}
	}

	am := &AuthMiddleware{
		name:       "auth",
		weight:     item.Weight,
		logger:     logger,
		authConfig: authConfig,
		tokens:     make(map[string]bool, len(authConfig.Tokens)),
		skipPaths:  make(map[string]bool, len(authConfig.SkipPaths)),
	}

	for _, token := range authConfig.Tokens {
		am.tokens[token] = true
	}
	for _, path := range authConfig.SkipPaths {
		am.skipPaths[path] = true
	}

	return am
}

func (a *AuthMiddleware) Name() string { return a.name }
func (a *AuthMiddleware) Weight() int  { return a.weight }

func (a *AuthMiddleware) Handle(ctx context.Context, rc *types.RequestContext) types.Outcome {
	if a.skipPaths[rc.Path] {
		return types.Continue()
	}

	switch a.authConfig.Scheme {
	case "basic":
		return a.handleBasic(rc)
	default:
		return a.handleBearer(rc)
	}
}

func (a *AuthMiddleware) handleBearer(rc *types.RequestContext) types.Outcome {
	header := rc.Header("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || !a.tokens[token] {
		return a.unauthorized(rc, "Bearer")
	}

	return types.Continue()
}

func (a *AuthMiddleware) handleBasic(rc *types.RequestContext) types.Outcome {
	header := rc.Header("Authorization")
	encoded, ok := strings.CutPrefix(header, "Basic ")
	if !ok {
		return a.unauthorized(rc, "Basic")
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return a.unauthorized(rc, "Basic")
	}

	user, password, found := strings.Cut(string(decoded), ":")
	if !found {
		return a.unauthorized(rc, "Basic")
	}

	hash, exists := a.authConfig.Users[user]
	if !exists {
		return a.unauthorized(rc, "Basic")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return a.unauthorized(rc, "Basic")
	}

	rc.SetValue(AuthUserKey, user)
	return types.Continue()
}

func (a *AuthMiddleware) unauthorized(rc *types.RequestContext, scheme string) types.Outcome {
	a.logger.Warn("Request rejected by auth",
		zap.String("path", rc.Path),
		zap.String("scheme", scheme))

	resp := types.NewResponse(fasthttp.StatusUnauthorized,
		[]byte(`{"error":"unauthorized"}`))
	resp.SetHeader("Content-Type", "application/json")
	resp.SetHeader("WWW-Authenticate", scheme)
	return types.Respond(resp)
}
