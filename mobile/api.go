package mobile

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"tglink/internal/app"
	"tglink/internal/deeplink"
	"tglink/internal/resolver"
	"tglink/internal/service/web"
	"tglink/internal/shared/config"
	"tglink/internal/shared/logger"
	"tglink/internal/shared/types"
)

const resolveTimeout = 30 * time.Second

var (
	// 全局变量，用于持有当前为移动端运行的唯一 AppServer 实例
	activeAppServer *app.AppServer
	instanceMutex   sync.Mutex
)

// Start is the main entry point for mobile clients.
// It starts the Go core in-memory, without any file I/O for configuration.
// iniContent: the content of a tglink.ini file.
// seedJson: a JSON object mapping public names to peer ids, may be empty.
func Start(iniContent, seedJson string) (err error) {
	// Defer a panic handler to convert panics into errors, which is safer for CGo boundaries.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("go core panic: %v\n\n%s", r, debug.Stack())
		}
	}()

	instanceMutex.Lock()
	defer instanceMutex.Unlock()

	if activeAppServer != nil {
		return fmt.Errorf("service is already running")
	}

	cfg := new(types.Config)
	if err := config.LoadIniContent(cfg, iniContent); err != nil {
		return err
	}

	if err := logger.Init(cfg.LogConf); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	seed, err := config.ParseDirectorySeed([]byte(seedJson))
	if err != nil {
		return err
	}
	logger.Debug().Int("count", len(seed)).Msg("Loaded directory seed for mobile.")

	appServer, err := app.NewForMobile(cfg, seed)
	if err != nil {
		return err
	}
	if err := appServer.Start(); err != nil {
		logger.Error().Err(err).Msg("Failed to start app server in mobile mode")
		return err
	}

	activeAppServer = appServer
	logger.Debug().Msg("Go core started successfully.")
	return nil
}

// Stop stops the Go core.
func Stop() {
	instanceMutex.Lock()
	defer instanceMutex.Unlock()

	if activeAppServer != nil {
		logger.Debug().Msg("Stopping Go core for mobile...")
		activeAppServer.Stop()
		activeAppServer = nil
	}
}

func current() (*app.AppServer, error) {
	instanceMutex.Lock()
	defer instanceMutex.Unlock()
	if activeAppServer == nil {
		return nil, fmt.Errorf("service is not running")
	}
	return activeAppServer, nil
}

// ResolveURL 解析链接, 返回 {"type": ..., "data": ...} 形式的 JSON 字符串。
func ResolveURL(input string) (resultJson string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("go core panic in ResolveURL: %v\n\n%s", r, debug.Stack())
			resultJson = ""
		}
	}()

	s, err := current()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()
	result, err := s.ResolveURL(ctx, input)
	if err != nil {
		return "", err
	}
	data, err := resolver.MarshalEnvelope(result)
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}
	return string(data), nil
}

// ClassifyURL 只做同步分类, 不需要服务运行。
func ClassifyURL(input string) (resultJson string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("go core panic in ClassifyURL: %v", r)
			resultJson = ""
		}
	}()

	data, err := resolver.MarshalEnvelope(deeplink.Classify(input))
	if err != nil {
		return "", fmt.Errorf("failed to marshal classification: %w", err)
	}
	return string(data), nil
}

// GetProxySettings returns the proxy settings with per-server display status.
func GetProxySettings() (settingsJson string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("go core panic in GetProxySettings: %v", r)
			settingsJson = "{}"
		}
	}()

	s, err := current()
	if err != nil {
		return "{}", err
	}
	data, err := json.Marshal(web.NewProxySettingsResponse(s))
	if err != nil {
		return "{}", fmt.Errorf("failed to marshal proxy settings: %w", err)
	}
	return string(data), nil
}

// InstallProxy resolves a proxy link and saves and activates its server.
func InstallProxy(link string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("go core panic in InstallProxy: %v", r)
		}
	}()

	s, err := current()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()
	result, err := s.ResolveURL(ctx, link)
	if err != nil {
		return err
	}
	p, ok := result.(resolver.Proxy)
	if !ok {
		return fmt.Errorf("not a proxy link: %s", result.Kind())
	}
	return s.InstallProxy(ctx, p)
}

// SetConnectionStatus is called by the host when the network state changes.
// status is one of "waiting_for_network", "connecting", "updating", "online".
func SetConnectionStatus(status string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("go core panic in SetConnectionStatus: %v", r)
		}
	}()

	parsed, err := types.ParseConnectionStatus(status)
	if err != nil {
		return err
	}
	s, err := current()
	if err != nil {
		return err
	}
	s.SetConnectionStatus(parsed)
	return nil
}
