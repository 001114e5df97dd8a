package settings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tglink/internal/shared/types"
)

func TestServerDisplayStatus(t *testing.T) {
	active := withActive(withServers(srvA, srvB), srvA)
	available := types.ServerAvailability{Kind: types.AvailabilityAvailable, RTT: 123456 * time.Microsecond}

	disabled := active.Clone()
	disabled.Enabled = false

	tests := []struct {
		name   string
		s      types.ProxySettings
		server types.ProxyServerConfig
		avail  types.ServerAvailability
		conn   types.ConnectionStatus
		want   DisplayStatus
	}{
		{name: "active waiting", s: active, server: srvA, conn: types.ConnectionWaitingForNetwork, want: DisplayStatus{Activity: true, Text: "waiting for network"}},
		{name: "active connecting", s: active, server: srvA, conn: types.ConnectionConnecting, want: DisplayStatus{Activity: true, Text: "connecting"}},
		{name: "active updating", s: active, server: srvA, conn: types.ConnectionUpdating, want: DisplayStatus{Activity: true, Text: "connecting"}},
		{name: "active online", s: active, server: srvA, conn: types.ConnectionOnline, avail: available, want: DisplayStatus{Text: "online", TextActive: true}},
		{name: "inactive available", s: active, server: srvB, avail: available, conn: types.ConnectionOnline, want: DisplayStatus{Text: "available (ping: 123 ms)"}},
		{name: "inactive unavailable", s: active, server: srvB, avail: types.ServerAvailability{Kind: types.AvailabilityNotAvailable}, want: DisplayStatus{Text: "not available"}},
		{name: "inactive checking", s: active, server: srvB, want: DisplayStatus{Text: "checking"}},
		{name: "active but proxy disabled", s: disabled, server: srvA, avail: available, conn: types.ConnectionOnline, want: DisplayStatus{Text: "available (ping: 123 ms)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ServerDisplayStatus(tt.s, tt.server, tt.avail, tt.conn))
		})
	}
}

func TestServerEntries(t *testing.T) {
	s := withActive(withServers(srvA, srvB), srvB)
	statuses := map[types.ProxyServerConfig]types.ServerAvailability{
		srvA: {Kind: types.AvailabilityNotAvailable},
	}

	entries := ServerEntries(s, statuses, types.ConnectionOnline)
	if assert.Len(t, entries, 2) {
		assert.Equal(t, srvA, entries[0].Server)
		assert.False(t, entries[0].Active)
		assert.Equal(t, "not available", entries[0].Status.Text)
		assert.Equal(t, "https://t.me/proxy?server=a.example.org&port=1080", entries[0].Link)

		assert.True(t, entries[1].Active)
		assert.Equal(t, "online", entries[1].Status.Text)
		assert.Equal(t, "https://t.me/proxy?server=b.example.org&port=1080&user=u&pass=p", entries[1].Link)
	}
}
