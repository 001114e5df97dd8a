package settings

import (
	"fmt"

	"tglink/internal/deeplink"
	"tglink/internal/shared/types"
)

// DisplayStatus is the status line shown under a saved server.
type DisplayStatus struct {
	Activity   bool   `json:"activity"`    // show a spinner
	Text       string `json:"text"`
	TextActive bool   `json:"text_active"` // highlight the text
}

// ServerDisplayStatus 计算单个服务器的显示状态。
// 正在使用的服务器显示连接状态, 其余服务器显示最近一次可用性检查的结果。
func ServerDisplayStatus(s types.ProxySettings, server types.ProxyServerConfig, availability types.ServerAvailability, conn types.ConnectionStatus) DisplayStatus {
	if s.Enabled && s.IsActive(server) {
		switch conn {
		case types.ConnectionWaitingForNetwork:
			return DisplayStatus{Activity: true, Text: "waiting for network"}
		case types.ConnectionConnecting, types.ConnectionUpdating:
			return DisplayStatus{Activity: true, Text: "connecting"}
		case types.ConnectionOnline:
			return DisplayStatus{Text: "online", TextActive: true}
		}
	}

	switch availability.Kind {
	case types.AvailabilityNotAvailable:
		return DisplayStatus{Text: "not available"}
	case types.AvailabilityAvailable:
		return DisplayStatus{Text: fmt.Sprintf("available (ping: %d ms)", availability.RTT.Milliseconds())}
	default:
		return DisplayStatus{Text: "checking"}
	}
}

// ServerEntry is one row of the saved-servers list.
type ServerEntry struct {
	Server types.ProxyServerConfig `json:"server"`
	Active bool                    `json:"active"`
	Status DisplayStatus           `json:"status"`
	Link   string                  `json:"link,omitempty"`
}

// ServerEntries builds the rows in list order. Servers missing from
// statuses are shown as "checking".
func ServerEntries(s types.ProxySettings, statuses map[types.ProxyServerConfig]types.ServerAvailability, conn types.ConnectionStatus) []ServerEntry {
	entries := make([]ServerEntry, 0, len(s.Servers))
	for _, server := range s.Servers {
		entries = append(entries, ServerEntry{
			Server: server,
			Active: s.IsActive(server),
			Status: ServerDisplayStatus(s, server, statuses[server], conn),
			Link:   ShareLink(server),
		})
	}
	return entries
}

// ShareLink is the t.me/proxy link that installs server.
func ShareLink(server types.ProxyServerConfig) string {
	return deeplink.ProxyLink(deeplink.ProxyReference{
		Host:     server.Host,
		Port:     server.Port,
		Username: server.Username,
		Password: server.Password,
	})
}
