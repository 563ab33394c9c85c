package server

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/strada-framework/strada/dispatch"
	"github.com/strada-framework/strada/types"
	"github.com/strada-framework/strada/utils"
)

type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

// FastHTTPServer adapts fasthttp to the dispatcher: it converts each inbound
// RequestCtx to a types.Request, dispatches it and writes the resulting
// response back. All routing decisions live in the dispatcher.
type FastHTTPServer struct {
	ctx             context.Context
	cancel          context.CancelFunc
	config          types.ConfigManager
	logger          types.Logger
	dispatcher      *dispatch.Dispatcher
	server          *fasthttp.Server
	listener        net.Listener
	httpConfig      *types.HTTPConfig
	state           atomic.Value
	shutdownTimeout time.Duration
}

func NewHTTPServer(
	ctx context.Context,
	config types.ConfigManager,
	logger types.Logger,
	dispatcher *dispatch.Dispatcher) (*FastHTTPServer, error) {
	if dispatcher == nil {
		return nil, types.Errorf(types.ErrServerStartFailed, "dispatcher is required")
	}

	httpConfig := config.GetConfig().Server.HTTP

	shutdownTimeout := 5 * time.Second
	if httpConfig.ShutdownTimeout > 0 {
		shutdownTimeout = time.Duration(httpConfig.ShutdownTimeout) * time.Second
	}

	serverCtx, cancel := context.WithCancel(ctx)

	server := &FastHTTPServer{
		ctx:             serverCtx,
		cancel:          cancel,
		config:          config,
		logger:          logger,
		dispatcher:      dispatcher,
		httpConfig:      httpConfig,
		shutdownTimeout: shutdownTimeout,
	}

	server.state.Store(StateStopped)

	return server, nil
}

func (h *FastHTTPServer) Start() error {
	if !h.transitionState(StateStopped, StateStarting) {
		return types.ErrServerAlreadyRunning
	}

	defer func() {
		if h.getState() == StateStarting {
			h.setState(StateRunning)
		}
	}()

	h.server = &fasthttp.Server{
		Handler:                      h.handleRequest,
		Name:                         h.config.GetConfig().Name,
		ReadTimeout:                  time.Duration(h.httpConfig.ReadTimeout) * time.Second,
		WriteTimeout:                 time.Duration(h.httpConfig.WriteTimeout) * time.Second,
		IdleTimeout:                  time.Duration(h.httpConfig.IdleTimeout) * time.Second,
		TCPKeepalive:                 true,
		DisablePreParseMultipartForm: true,
		CloseOnShutdown:              true,
	}

	addr := fmt.Sprintf("%s:%d", h.httpConfig.Host, h.httpConfig.Port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		h.setState(StateStopped)
		return types.WrapError(err, "failed to bind http listener")
	}
	h.listener = listener

	go func() {
		if err := h.server.Serve(h.listener); err != nil {
			h.logger.Error("HTTP server failed", zap.Error(err))
			h.setState(StateStopped)
		}
	}()

	h.logger.Info("HTTP server started", zap.String("address", addr))

	return nil
}

func (h *FastHTTPServer) Stop() error {
	if !h.transitionState(StateRunning, StateStopping) {
		return types.ErrServerNotRunning
	}

	defer func() {
		h.setState(StateStopped)
		h.cancel()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if h.server != nil {
			return h.server.ShutdownWithContext(gCtx)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		select {
		case <-ctx.Done():
			h.logger.Warn("Server stop timeout, some connections may have been dropped")
		default:
			h.logger.Error("Error during server shutdown", zap.Error(err))
		}
	} else {
		h.logger.Info("HTTP server stopped gracefully")
	}

	return nil
}

func (h *FastHTTPServer) IsRunning() bool {
	return h.getState() == StateRunning
}

func (h *FastHTTPServer) getState() State {
	return h.state.Load().(State)
}

func (h *FastHTTPServer) setState(newState State) bool {
	currentState := h.getState()
	return h.state.CompareAndSwap(currentState, newState)
}

func (h *FastHTTPServer) transitionState(from, to State) bool {
	return h.state.CompareAndSwap(from, to)
}

func (h *FastHTTPServer) handleRequest(ctx *fasthttp.RequestCtx) {
	req := buildRequest(ctx)
	resp := h.dispatcher.Dispatch(h.ctx, req)
	writeResponse(ctx, resp)
}

func buildRequest(ctx *fasthttp.RequestCtx) *types.Request {
	headers := make(map[string]string, ctx.Request.Header.Len())
	ctx.Request.Header.VisitAll(func(key, value []byte) {
		headers[string(key)] = string(value)
	})

	return &types.Request{
		Method:      string(ctx.Method()),
		Path:        string(ctx.Path()),
		QueryString: utils.BytesToString(ctx.URI().QueryString()),
		Headers:     headers,
		Body:        ctx.PostBody(),
	}
}

func writeResponse(ctx *fasthttp.RequestCtx, resp *types.Response) {
	ctx.SetStatusCode(resp.Status)
	for key, value := range resp.Headers {
		ctx.Response.Header.Set(key, value)
	}
	ctx.SetBody(resp.Body)
}
