package types

import (
	"fmt"
	"strings"
	"time"
)

// ConnectionStatus is reported by the network layer and only used for display.
type ConnectionStatus int

const (
	ConnectionWaitingForNetwork ConnectionStatus = iota
	ConnectionConnecting
	ConnectionUpdating
	ConnectionOnline
)

func (s ConnectionStatus) String() string {
	switch s {
	case ConnectionWaitingForNetwork:
		return "waiting_for_network"
	case ConnectionConnecting:
		return "connecting"
	case ConnectionUpdating:
		return "updating"
	case ConnectionOnline:
		return "online"
	default:
		return "unknown"
	}
}

// ParseConnectionStatus accepts the String() form, case-insensitively.
func ParseConnectionStatus(s string) (ConnectionStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "waiting_for_network":
		return ConnectionWaitingForNetwork, nil
	case "connecting":
		return ConnectionConnecting, nil
	case "updating":
		return ConnectionUpdating, nil
	case "online":
		return ConnectionOnline, nil
	default:
		return 0, fmt.Errorf("unknown connection status %q", s)
	}
}

// AvailabilityKind 表示代理服务器的可用性检查结果。
type AvailabilityKind int

const (
	AvailabilityChecking AvailabilityKind = iota
	AvailabilityNotAvailable
	AvailabilityAvailable
)

// ServerAvailability is the latest probe result for one proxy server.
// RTT is only meaningful when Kind is AvailabilityAvailable.
type ServerAvailability struct {
	Kind AvailabilityKind
	RTT  time.Duration
}
