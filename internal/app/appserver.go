package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"tglink/internal/core/health"
	"tglink/internal/resolver"
	"tglink/internal/service/web"
	"tglink/internal/shared/config"
	"tglink/internal/shared/globalstate"
	"tglink/internal/shared/logger"
	"tglink/internal/shared/settings"
	"tglink/internal/shared/types"
)

// AppServer is the application's main struct.
type AppServer struct {
	cfg     *types.Config
	dataDir string

	settingsManager *settings.Manager
	resolver        *resolver.Resolver
	connStatus      *globalstate.ConnectionStatusManager
	healthChecker   *health.Checker
	redisClient     *redis.Client // nil when the directory cache is disabled

	// availabilityLock 保护 availability, 即最近一次检查的结果
	availabilityLock sync.RWMutex
	availability     map[types.ProxyServerConfig]types.ServerAvailability
	checkRunning     atomic.Bool // 同一时间只跑一轮检查

	hub       *web.Hub
	webServer *web.Server

	isMobileMode bool

	waitGroup sync.WaitGroup
	stopCh    chan struct{}
	stopOnce  sync.Once
}

var _ web.ServerController = (*AppServer)(nil)

// NewForPC creates a new AppServer instance for PC/file-based mode.
// Settings and the directory seed live next to the ini file unless
// [common] data_dir says otherwise.
func NewForPC(cfg *types.Config, iniPath string) (*AppServer, error) {
	dataDir := cfg.CommonConf.DataDir
	if dataDir == "" {
		dataDir = filepath.Dir(iniPath)
	}

	seedPath := cfg.DirectoryConf.SeedFile
	if seedPath != "" && !filepath.IsAbs(seedPath) {
		seedPath = filepath.Join(dataDir, seedPath)
	}
	seed := map[string]types.PeerID{}
	if seedPath != "" {
		var err error
		if seed, err = config.LoadDirectorySeed(seedPath); err != nil {
			return nil, err
		}
	}

	sm, err := settings.NewManager(filepath.Join(dataDir, cfg.CommonConf.Settings))
	if err != nil {
		return nil, err
	}

	s := newAppServer(cfg, sm, seed, false)
	s.dataDir = dataDir
	return s, nil
}

// NewForMobile creates a new AppServer instance for mobile/in-memory mode.
func NewForMobile(cfg *types.Config, seed map[string]types.PeerID) (*AppServer, error) {
	sm, err := settings.NewManager("")
	if err != nil {
		return nil, err
	}
	return newAppServer(cfg, sm, seed, true), nil
}

func newAppServer(cfg *types.Config, sm *settings.Manager, seed map[string]types.PeerID, mobile bool) *AppServer {
	s := &AppServer{
		cfg:             cfg,
		settingsManager: sm,
		connStatus:      globalstate.NewConnectionStatusManager(types.ConnectionConnecting),
		healthChecker: health.New(
			cfg.ProbeConf.Target,
			time.Duration(cfg.ProbeConf.Timeout)*time.Second,
			cfg.ProbeConf.Concurrency,
		),
		availability: make(map[types.ProxyServerConfig]types.ServerAvailability),
		hub:          web.NewHub(),
		isMobileMode: mobile,
		stopCh:       make(chan struct{}),
	}
	s.resolver = resolver.New(s.buildDirectory(seed), s.buildPreviewer())
	return s
}

// Start launches the background loops and, unless disabled, the web API.
func (s *AppServer) Start() error {
	mode := "local"
	if s.isMobileMode {
		mode = "mobile"
	}
	logger.Info().Str("mode", mode).Msg("Starting tglink core...")

	go s.hub.Run()

	s.waitGroup.Add(1)
	go s.watchSettings()

	s.waitGroup.Add(1)
	go s.watchConnectionStatus()

	if s.cfg.ProbeConf.Interval > 0 {
		s.waitGroup.Add(1)
		go s.healthCheckLoop(time.Duration(s.cfg.ProbeConf.Interval) * time.Second)
	} else {
		logger.Info().Msg("Periodic proxy checks are disabled.")
	}

	webServer, err := web.StartServer(&s.waitGroup, s.cfg.WebConf, s, s.hub)
	if err != nil {
		s.Stop()
		return err
	}
	s.webServer = webServer
	return nil
}

// Run starts the server and blocks until Stop is called.
func (s *AppServer) Run() error {
	if err := s.Start(); err != nil {
		return err
	}
	s.Wait()
	return nil
}

// Stop gracefully shuts down the server.
func (s *AppServer) Stop() {
	s.stopOnce.Do(func() {
		logger.Info().Msg("Stopping tglink core...")
		close(s.stopCh)

		if s.webServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := s.webServer.Shutdown(ctx); err != nil {
				logger.Warn().Err(err).Msg("Web server shutdown did not complete cleanly")
			}
			cancel()
		}
		s.hub.Stop()
		s.settingsManager.Close()
		if s.redisClient != nil {
			if err := s.redisClient.Close(); err != nil {
				logger.Warn().Err(err).Msg("Failed to close redis client")
			}
		}
	})
}

func (s *AppServer) Wait() {
	s.waitGroup.Wait()
}

func (s *AppServer) done() <-chan struct{} {
	return s.stopCh
}

// ResolveURL implements web.ServerController.
func (s *AppServer) ResolveURL(ctx context.Context, input string) (resolver.Result, error) {
	return s.resolver.Resolve(ctx, input)
}

// ProxySettings implements web.ServerController.
func (s *AppServer) ProxySettings() *settings.Manager {
	return s.settingsManager
}

// InstallProxy saves and activates the server behind a resolved proxy link.
func (s *AppServer) InstallProxy(ctx context.Context, p resolver.Proxy) error {
	server := p.ServerConfig()
	if server.Host == "" {
		return fmt.Errorf("proxy link has no host")
	}
	if err := s.settingsManager.Update(ctx, settings.InstallServer(server)); err != nil {
		return fmt.Errorf("failed to install proxy %s: %w", server.Address(), err)
	}
	logger.Info().Str("server", server.Address()).Msg("Installed proxy from link.")
	return nil
}
