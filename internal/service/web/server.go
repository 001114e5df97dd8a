package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"tglink/internal/shared/logger"
	"tglink/internal/shared/types"
)

// loggingListener logs accepted connections at debug level.
type loggingListener struct {
	net.Listener
}

func (l loggingListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err == nil {
		logger.Debug().Msgf("[WebServer] Connection accepted from: %s", conn.RemoteAddr())
	}
	return conn, err
}

// basicAuthMiddleware 检查 user 和 password 是否已配置。
// 如果配置了，它将强制执行 HTTP Basic Authentication。
func basicAuthMiddleware(next http.Handler, user, pass string) http.Handler {
	if user == "" || pass == "" {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Unauthorized.\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewMux builds the API routes.
func NewMux(cfg types.WebConf, controller ServerController, hub *Hub) *http.ServeMux {
	handler := NewHandler(controller)
	mux := http.NewServeMux()

	protect := func(f http.HandlerFunc) http.Handler {
		return requestIDMiddleware(basicAuthMiddleware(f, cfg.User, cfg.Password))
	}

	mux.Handle("/api/resolve", protect(handler.HandleResolve))
	mux.Handle("/api/classify", protect(handler.HandleClassify))
	mux.Handle("/api/proxy", protect(handler.HandleGetProxy))
	mux.Handle("/api/proxy/", protect(handler.HandleProxyAction)) // 捕获 /api/proxy/{action}

	// 公开的状态 API 和 WebSocket
	mux.Handle("/api/status", requestIDMiddleware(http.HandlerFunc(handler.HandleStatus)))
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r)
	})

	return mux
}

// Server wraps the HTTP API listener.
type Server struct {
	httpServer *http.Server
	addr       net.Addr
}

// StartServer listens on cfg.Port and serves in the background. It returns
// nil when the web API is disabled (port <= 0).
func StartServer(wg *sync.WaitGroup, cfg types.WebConf, controller ServerController, hub *Hub) (*Server, error) {
	if cfg.Port <= 0 {
		logger.Info().Msg("[WebServer] Web API is disabled (port is 0 or not set).")
		return nil, nil
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start web API on %s: %w", addr, err)
	}

	s := &Server{
		httpServer: &http.Server{
			Handler:           NewMux(cfg, controller, hub),
			ReadHeaderTimeout: 10 * time.Second,
		},
		addr: listener.Addr(),
	}
	logger.Info().Msgf("SUCCESS: Web API is listening on http://%s", listener.Addr())

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.httpServer.Serve(loggingListener{Listener: listener}); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Web server error")
		}
		logger.Info().Msg("Web server stopped.")
	}()
	return s, nil
}

// Addr returns the bound address.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// Shutdown stops accepting requests and waits for active ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
