package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"tglink/internal/deeplink"
	"tglink/internal/resolver"
	"tglink/internal/shared/logger"
	"tglink/internal/shared/settings"
	"tglink/internal/shared/types"
)

const resolveTimeout = 30 * time.Second

// ServerController defines the interface that the web handler uses to interact with the AppServer.
// This decouples the web package from the app package.
type ServerController interface {
	ResolveURL(ctx context.Context, input string) (resolver.Result, error)
	ProxySettings() *settings.Manager
	ConnectionStatus() types.ConnectionStatus
	SetConnectionStatus(status types.ConnectionStatus)
	ServerAvailability() map[types.ProxyServerConfig]types.ServerAvailability
}

type Handler struct {
	controller ServerController
}

func NewHandler(controller ServerController) *Handler {
	return &Handler{controller: controller}
}

// ProxySettingsResponse is the body of GET /api/proxy.
type ProxySettingsResponse struct {
	Enabled          bool                     `json:"enabled"`
	UseForCalls      bool                     `json:"use_for_calls"`
	ActiveServer     *types.ProxyServerConfig `json:"active_server,omitempty"`
	Servers          []settings.ServerEntry   `json:"servers"`
	ConnectionStatus string                   `json:"connection_status"`
}

// HandleResolve 处理 GET /api/resolve?url= 请求
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	input := r.URL.Query().Get("url")
	if input == "" {
		http.Error(w, "Missing url parameter", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), resolveTimeout)
	defer cancel()

	result, err := h.controller.ResolveURL(ctx, input)
	if err != nil {
		// the only error is cancellation: the client went away or the lookup timed out
		status := http.StatusServiceUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		http.Error(w, "Resolution did not complete: "+err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, resolver.Encode(result))
}

// HandleClassify 处理 GET /api/classify?url= 请求, 只做同步解析, 不做查询。
func (h *Handler) HandleClassify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	input := r.URL.Query().Get("url")
	if input == "" {
		http.Error(w, "Missing url parameter", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, resolver.Encode(deeplink.Classify(input)))
}

// HandleGetProxy 处理 GET /api/proxy 请求
func (h *Handler) HandleGetProxy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.proxySettingsResponse())
}

func (h *Handler) proxySettingsResponse() ProxySettingsResponse {
	return NewProxySettingsResponse(h.controller)
}

// NewProxySettingsResponse snapshots the settings together with the display
// status of every saved server.
func NewProxySettingsResponse(controller ServerController) ProxySettingsResponse {
	current := controller.ProxySettings().Get()
	conn := controller.ConnectionStatus()
	return ProxySettingsResponse{
		Enabled:          current.Enabled,
		UseForCalls:      current.UseForCalls,
		ActiveServer:     current.ActiveServer,
		Servers:          settings.ServerEntries(current, controller.ServerAvailability(), conn),
		ConnectionStatus: conn.String(),
	}
}

type boolRequest struct {
	Value bool `json:"value"`
}

type replaceRequest struct {
	Old types.ProxyServerConfig `json:"old"`
	New types.ProxyServerConfig `json:"new"`
}

// reorderRequest positions refer to Servers, the list as the client last saw
// it. Without Servers the current list is used.
type reorderRequest struct {
	From    int                       `json:"from"`
	To      int                       `json:"to"`
	Servers []types.ProxyServerConfig `json:"servers,omitempty"`
}

// HandleProxyAction 处理 POST /api/proxy/{action} 请求
func (h *Handler) HandleProxyAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	action := strings.TrimPrefix(r.URL.Path, "/api/proxy/")
	manager := h.controller.ProxySettings()

	var transform settings.Transform
	switch action {
	case "enabled", "calls":
		var req boolRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if action == "enabled" {
			transform = settings.ToggleEnabled(req.Value)
		} else {
			transform = settings.ToggleUseForCalls(req.Value)
		}
	case "activate", "remove", "add", "install":
		var server types.ProxyServerConfig
		if !decodeBody(w, r, &server) {
			return
		}
		if server.Host == "" {
			http.Error(w, "Server host is required", http.StatusBadRequest)
			return
		}
		switch action {
		case "activate":
			transform = settings.ActivateServer(server)
		case "remove":
			transform = settings.RemoveServer(server)
		case "add":
			transform = settings.AddServer(server)
		default:
			transform = settings.InstallServer(server)
		}
	case "replace":
		var req replaceRequest
		if !decodeBody(w, r, &req) {
			return
		}
		transform = settings.ReplaceServer(req.Old, req.New)
	case "reorder":
		var req reorderRequest
		if !decodeBody(w, r, &req) {
			return
		}
		snapshot := req.Servers
		if snapshot == nil {
			snapshot = manager.Get().Servers
		}
		transform = settings.MoveServer(snapshot, req.From, req.To)
	default:
		http.NotFound(w, r)
		return
	}

	logger.Info().Str("action", action).Msg("[Handler] Received proxy settings update.")
	if err := manager.Update(r.Context(), transform); err != nil {
		logger.Error().Err(err).Str("action", action).Msg("Failed to update proxy settings")
		http.Error(w, "Failed to update proxy settings: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, h.proxySettingsResponse())
}

// HandleStatus 处理 GET/POST /api/status 请求。
// POST 由网络层调用, 上报连接状态: {"status": "online"}。
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		var req struct {
			Status string `json:"status"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		status, err := types.ParseConnectionStatus(req.Status)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.controller.SetConnectionStatus(status)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"connection_status": h.controller.ConnectionStatus().String()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// requestIDMiddleware tags each request and its response with an X-Request-ID.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		logger.Debug().Str("request_id", id).Str("method", r.Method).Str("path", r.URL.Path).Msg("[WebServer] Request received.")
		next.ServeHTTP(w, r)
	})
}
