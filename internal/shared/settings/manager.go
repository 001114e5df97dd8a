package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"tglink/internal/shared/logger"
	"tglink/internal/shared/types"
)

// ErrManagerClosed is returned by Update after Close.
var ErrManagerClosed = errors.New("settings: manager is closed")

// Transform maps the current settings to the next ones. It receives a private
// deep copy and may modify it freely.
type Transform func(current types.ProxySettings) types.ProxySettings

// Manager 是代理设置的事务性存储。
// 读取是无锁的 (atomic.Value 快照); 所有修改都通过 Update 串行化:
// 拷贝 -> 变换 -> 规范化 -> 持久化 -> 原子替换 -> 通知订阅者。
// 读者永远不会看到中间状态。
type Manager struct {
	filePath string
	settings atomic.Value // types.ProxySettings

	mu     sync.Mutex // 串行化 Update 和文件写入
	closed bool

	subMu       sync.Mutex
	subscribers map[chan types.ProxySettings]struct{}
}

// NewManager 创建并初始化一个新的代理设置管理器。
// filePath 为空时只在内存中运行 (移动端); 文件不存在时写入默认设置。
func NewManager(filePath string) (*Manager, error) {
	m := &Manager{
		filePath:    filePath,
		subscribers: make(map[chan types.ProxySettings]struct{}),
	}

	if filePath == "" {
		m.settings.Store(types.DefaultProxySettings())
		return m, nil
	}

	if err := m.load(); err != nil {
		return nil, fmt.Errorf("failed to load initial proxy settings: %w", err)
	}
	return m, nil
}

func (m *Manager) load() error {
	l := logger.WithComponent("Settings")
	data, err := os.ReadFile(m.filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to read settings file: %w", err)
		}
		l.Warn().Str("path", m.filePath).Msg("Proxy settings file not found, creating with default values.")
		defaults := types.DefaultProxySettings()
		if err := m.persist(defaults); err != nil {
			return fmt.Errorf("failed to write default settings file: %w", err)
		}
		m.settings.Store(defaults)
		return nil
	}

	loaded := types.DefaultProxySettings()
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(m.filePath), err)
	}
	m.settings.Store(normalize(loaded))
	return nil
}

// Get 返回当前设置的一个深拷贝快照。此操作是无锁的。
func (m *Manager) Get() types.ProxySettings {
	return m.settings.Load().(types.ProxySettings).Clone()
}

// Update applies transform as one atomic read-modify-write. Concurrent calls
// are serialised; each transform sees the result of the previous one.
func (m *Manager) Update(ctx context.Context, transform Transform) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrManagerClosed
	}

	current := m.settings.Load().(types.ProxySettings)
	next := normalize(transform(current.Clone()))
	if settingsEqual(current, next) {
		return nil
	}

	if m.filePath != "" {
		if err := m.persist(next); err != nil {
			return fmt.Errorf("failed to save proxy settings: %w", err)
		}
	}

	m.settings.Store(next)
	logger.Debug().
		Bool("enabled", next.Enabled).
		Int("servers", len(next.Servers)).
		Bool("use_for_calls", next.UseForCalls).
		Msg("Proxy settings updated.")

	m.notify(next)
	return nil
}

// Subscribe returns a stream that yields the current settings and then every
// committed change. Slow readers only observe the latest value.
func (m *Manager) Subscribe() (<-chan types.ProxySettings, func()) {
	ch := make(chan types.ProxySettings, 1)

	m.subMu.Lock()
	ch <- m.Get()
	if m.subscribers == nil {
		close(ch)
		m.subMu.Unlock()
		return ch, func() {}
	}
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.subMu.Lock()
			defer m.subMu.Unlock()
			if _, ok := m.subscribers[ch]; ok {
				delete(m.subscribers, ch)
				close(ch)
			}
		})
	}
}

// Close rejects further updates and ends every subscription.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.subMu.Lock()
	defer m.subMu.Unlock()
	for ch := range m.subscribers {
		close(ch)
	}
	m.subscribers = nil
}

func (m *Manager) notify(next types.ProxySettings) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for ch := range m.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- next.Clone()
	}
}

// persist 写入临时文件后重命名, 避免留下半写的文件。
func (m *Manager) persist(s types.ProxySettings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp := m.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, m.filePath)
}

// normalize enforces the invariants every committed value satisfies:
// servers are unique by value, the active server is one of them, and the
// proxy cannot be enabled without servers.
func normalize(s types.ProxySettings) types.ProxySettings {
	unique := make([]types.ProxyServerConfig, 0, len(s.Servers))
	seen := make(map[types.ProxyServerConfig]struct{}, len(s.Servers))
	for _, server := range s.Servers {
		if _, dup := seen[server]; dup {
			continue
		}
		seen[server] = struct{}{}
		unique = append(unique, server)
	}
	s.Servers = unique

	if s.ActiveServer != nil {
		if _, ok := seen[*s.ActiveServer]; !ok {
			s.ActiveServer = nil
			s.Enabled = false
		}
	}
	if len(s.Servers) == 0 {
		s.Enabled = false
	}
	return s
}

func settingsEqual(a, b types.ProxySettings) bool {
	if a.Enabled != b.Enabled || a.UseForCalls != b.UseForCalls || len(a.Servers) != len(b.Servers) {
		return false
	}
	if (a.ActiveServer == nil) != (b.ActiveServer == nil) {
		return false
	}
	if a.ActiveServer != nil && *a.ActiveServer != *b.ActiveServer {
		return false
	}
	for i := range a.Servers {
		if a.Servers[i] != b.Servers[i] {
			return false
		}
	}
	return true
}
