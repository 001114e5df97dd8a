package app

import (
	"context"
	"time"

	"tglink/internal/service/web"
	"tglink/internal/shared/logger"
	"tglink/internal/shared/types"
)

// ConnectionStatus implements web.ServerController.
func (s *AppServer) ConnectionStatus() types.ConnectionStatus {
	return s.connStatus.Get()
}

// SetConnectionStatus is called by the network layer (web API or mobile host).
func (s *AppServer) SetConnectionStatus(status types.ConnectionStatus) {
	s.connStatus.Set(status)
}

// ServerAvailability returns a copy of the latest check results.
func (s *AppServer) ServerAvailability() map[types.ProxyServerConfig]types.ServerAvailability {
	s.availabilityLock.RLock()
	defer s.availabilityLock.RUnlock()
	out := make(map[types.ProxyServerConfig]types.ServerAvailability, len(s.availability))
	for k, v := range s.availability {
		out[k] = v
	}
	return out
}

// RefreshAvailability checks every saved server once and publishes the result.
func (s *AppServer) RefreshAvailability(ctx context.Context) {
	servers := s.settingsManager.Get().Servers
	if len(servers) == 0 {
		logger.Debug().Msg("[HealthChecker] No saved servers to check.")
		return
	}

	results := s.healthChecker.Check(ctx, servers)

	s.availabilityLock.Lock()
	changed := false
	for server, availability := range results {
		if s.availability[server] != availability {
			changed = true
		}
		s.availability[server] = availability
	}
	s.availabilityLock.Unlock()

	logger.Debug().Int("checked_count", len(results)).Bool("state_changed", changed).Msg("[HealthChecker] Cycle complete.")
	if changed {
		s.broadcastProxySettings()
	}
}

// pruneAvailability drops results for servers that are no longer saved.
func (s *AppServer) pruneAvailability(current types.ProxySettings) {
	saved := make(map[types.ProxyServerConfig]struct{}, len(current.Servers))
	for _, server := range current.Servers {
		saved[server] = struct{}{}
	}

	s.availabilityLock.Lock()
	defer s.availabilityLock.Unlock()
	for server := range s.availability {
		if _, ok := saved[server]; !ok {
			delete(s.availability, server)
		}
	}
}

func (s *AppServer) healthCheckLoop(interval time.Duration) {
	defer s.waitGroup.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runCheck()
		case <-s.done():
			return
		}
	}
}

// runCheck runs one check round unless another one is in flight. It reports
// whether a round ran.
func (s *AppServer) runCheck() bool {
	if !s.checkRunning.CompareAndSwap(false, true) {
		logger.Debug().Msg("[HealthChecker] A check round is already running, skipping.")
		return false
	}
	defer s.checkRunning.Store(false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.done():
			cancel()
		case <-ctx.Done():
		}
	}()
	s.RefreshAvailability(ctx)
	return true
}

// launchCheck runs a check round in the background, tracked by waitGroup.
func (s *AppServer) launchCheck() {
	select {
	case <-s.done():
		return
	default:
	}
	if s.checkRunning.Load() {
		return
	}
	s.waitGroup.Add(1)
	go func() {
		defer s.waitGroup.Done()
		s.runCheck()
	}()
}

// watchSettings pushes every committed settings change to websocket clients
// and checks servers that have no result yet.
func (s *AppServer) watchSettings() {
	defer s.waitGroup.Done()
	updates, unsubscribe := s.settingsManager.Subscribe()
	defer unsubscribe()

	for {
		select {
		case current, ok := <-updates:
			if !ok {
				return
			}
			s.pruneAvailability(current)
			s.broadcastProxySettings()
			if s.hasUncheckedServers(current) && s.cfg.ProbeConf.Interval > 0 {
				s.launchCheck()
			}
		case <-s.done():
			return
		}
	}
}

func (s *AppServer) hasUncheckedServers(current types.ProxySettings) bool {
	s.availabilityLock.RLock()
	defer s.availabilityLock.RUnlock()
	for _, server := range current.Servers {
		if _, ok := s.availability[server]; !ok {
			return true
		}
	}
	return false
}

func (s *AppServer) watchConnectionStatus() {
	defer s.waitGroup.Done()
	updates, unsubscribe := s.connStatus.Subscribe()
	defer unsubscribe()

	for {
		select {
		case status, ok := <-updates:
			if !ok {
				return
			}
			logger.Debug().Str("status", status.String()).Msg("Connection status changed.")
			s.hub.BroadcastConnectionStatus(status.String())
			s.broadcastProxySettings()
		case <-s.done():
			return
		}
	}
}

func (s *AppServer) broadcastProxySettings() {
	s.hub.BroadcastProxySettings(web.NewProxySettingsResponse(s))
}
