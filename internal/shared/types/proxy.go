package types

import (
	"net"
	"strconv"
)

// ProxyServerConfig 定义了一个代理服务器的连接参数。
// 它是可比较的值类型: 查找、去重和排序都基于四个字段的结构相等性。
// 空的 Username/Password 表示未设置。
type ProxyServerConfig struct {
	Host     string `json:"host"`
	Port     int32  `json:"port"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// Address returns host:port suitable for dialing.
func (c ProxyServerConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(int(c.Port)))
}

// ProxySettings 是持久化的代理设置。
type ProxySettings struct {
	Enabled      bool                `json:"enabled"`
	Servers      []ProxyServerConfig `json:"servers"`
	ActiveServer *ProxyServerConfig  `json:"active_server,omitempty"`
	UseForCalls  bool                `json:"use_for_calls"`
}

// DefaultProxySettings returns the empty settings a fresh store starts from.
func DefaultProxySettings() ProxySettings {
	return ProxySettings{Servers: []ProxyServerConfig{}}
}

// Clone returns a deep copy; the transform contract relies on it.
func (s ProxySettings) Clone() ProxySettings {
	out := s
	out.Servers = make([]ProxyServerConfig, len(s.Servers))
	copy(out.Servers, s.Servers)
	if s.ActiveServer != nil {
		active := *s.ActiveServer
		out.ActiveServer = &active
	}
	return out
}

// IndexOf returns the position of server in Servers or -1.
func (s ProxySettings) IndexOf(server ProxyServerConfig) int {
	for i, candidate := range s.Servers {
		if candidate == server {
			return i
		}
	}
	return -1
}

// IsActive reports whether server is the current active server.
func (s ProxySettings) IsActive(server ProxyServerConfig) bool {
	return s.ActiveServer != nil && *s.ActiveServer == server
}
