package globalstate

import (
	"sync"

	"tglink/internal/shared/types"
)

// ConnectionStatusManager 管理网络层上报的连接状态。
// 它使用 RWMutex 来保护并发读写, 并向订阅者推送最新值。
type ConnectionStatusManager struct {
	mu          sync.RWMutex
	status      types.ConnectionStatus
	subscribers map[chan types.ConnectionStatus]struct{}
}

// NewConnectionStatusManager creates a manager starting in the given state.
func NewConnectionStatusManager(initial types.ConnectionStatus) *ConnectionStatusManager {
	return &ConnectionStatusManager{
		status:      initial,
		subscribers: make(map[chan types.ConnectionStatus]struct{}),
	}
}

// Set 方法用于安全地更新状态。
func (sm *ConnectionStatusManager) Set(newStatus types.ConnectionStatus) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.status == newStatus {
		return
	}
	sm.status = newStatus
	for ch := range sm.subscribers {
		offerLatest(ch, newStatus)
	}
}

// Get 方法用于安全地读取状态。
func (sm *ConnectionStatusManager) Get() types.ConnectionStatus {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.status
}

// Subscribe returns a stream that yields the current status and then every change.
// Slow readers only observe the latest value. The returned func unsubscribes.
func (sm *ConnectionStatusManager) Subscribe() (<-chan types.ConnectionStatus, func()) {
	ch := make(chan types.ConnectionStatus, 1)

	sm.mu.Lock()
	sm.subscribers[ch] = struct{}{}
	ch <- sm.status
	sm.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			delete(sm.subscribers, ch)
			close(ch)
			sm.mu.Unlock()
		})
	}
}

// offerLatest replaces any pending value in a 1-buffered channel.
func offerLatest(ch chan types.ConnectionStatus, v types.ConnectionStatus) {
	select {
	case <-ch:
	default:
	}
	ch <- v
}
