package health

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/net/proxy"

	"tglink/internal/shared/logger"
	"tglink/internal/shared/types"
)

// Checker 负责对保存的代理服务器进行可用性检查。
// 每个服务器通过 SOCKS5 拨号到 target, 成功则记录往返时间。
type Checker struct {
	target      string
	timeout     time.Duration
	concurrency int
}

// New 创建一个新的 Checker 实例。
func New(target string, timeout time.Duration, concurrency int) *Checker {
	if concurrency <= 0 {
		concurrency = 5
	}
	return &Checker{
		target:      target,
		timeout:     timeout,
		concurrency: concurrency,
	}
}

// Check probes servers concurrently, at most c.concurrency at a time.
// Servers left unchecked because ctx ended, and probes cut short by it, are
// reported as checking.
func (c *Checker) Check(ctx context.Context, servers []types.ProxyServerConfig) map[types.ProxyServerConfig]types.ServerAvailability {
	l := logger.WithComponent("HealthCheck")
	results := make(map[types.ProxyServerConfig]types.ServerAvailability, len(servers))
	var wg sync.WaitGroup
	var mu sync.Mutex
	semaphore := make(chan struct{}, c.concurrency)

	record := func(s types.ProxyServerConfig, availability types.ServerAvailability) {
		mu.Lock()
		results[s] = availability
		mu.Unlock()
	}
	checking := types.ServerAvailability{Kind: types.AvailabilityChecking}

	for _, server := range servers {
		select {
		case semaphore <- struct{}{}:
		case <-ctx.Done():
			record(server, checking)
			continue
		}
		// select picks at random when both cases are ready
		if ctx.Err() != nil {
			<-semaphore
			record(server, checking)
			continue
		}

		wg.Add(1)
		go func(s types.ProxyServerConfig) {
			defer wg.Done()
			defer func() { <-semaphore }()

			start := time.Now()
			err := c.checkSocks5(ctx, s)
			rtt := time.Since(start)

			switch {
			case err == nil:
				record(s, types.ServerAvailability{Kind: types.AvailabilityAvailable, RTT: rtt})
				l.Debug().Str("server", s.Address()).Dur("rtt", rtt).Msg("HealthCheck: Check passed.")
			case ctx.Err() != nil:
				record(s, checking)
				l.Debug().Str("server", s.Address()).Msg("HealthCheck: Check cancelled.")
			default:
				record(s, types.ServerAvailability{Kind: types.AvailabilityNotAvailable})
				l.Debug().Str("server", s.Address()).Err(err).Msg("HealthCheck: Check failed.")
			}
		}(server)
	}

	wg.Wait()
	return results
}

// checkSocks5 opens a tunnel through the server to the probe target.
func (c *Checker) checkSocks5(ctx context.Context, s types.ProxyServerConfig) error {
	var auth *proxy.Auth
	if s.Username != "" || s.Password != "" {
		auth = &proxy.Auth{User: s.Username, Password: s.Password}
	}

	dialer, err := proxy.SOCKS5("tcp", s.Address(), auth, &net.Dialer{Timeout: c.timeout})
	if err != nil {
		return fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := dialer.(proxy.ContextDialer).DialContext(ctx, "tcp", c.target)
	if err != nil {
		return err
	}
	conn.Close()
	return nil
}
