package settings

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tglink/internal/shared/types"
)

func TestNewManager_InMemory(t *testing.T) {
	m, err := NewManager("")
	require.NoError(t, err)
	assert.Equal(t, types.DefaultProxySettings(), m.Get())
}

func TestNewManager_CreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxy_settings.json")
	m, err := NewManager(path)
	require.NoError(t, err)
	assert.Equal(t, types.DefaultProxySettings(), m.Get())
	assert.FileExists(t, path)
}

func TestNewManager_LoadsAndNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxy_settings.json")
	data := `{
	  "enabled": true,
	  "servers": [
	    {"host": "a.example.org", "port": 1080},
	    {"host": "a.example.org", "port": 1080},
	    {"host": "c.example.org", "port": 443}
	  ],
	  "active_server": {"host": "gone.example.org", "port": 1},
	  "use_for_calls": true
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	m, err := NewManager(path)
	require.NoError(t, err)

	s := m.Get()
	assert.Equal(t, []types.ProxyServerConfig{srvA, srvC}, s.Servers)
	assert.Nil(t, s.ActiveServer)
	assert.False(t, s.Enabled)
	assert.True(t, s.UseForCalls)
}

func TestNewManager_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxy_settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	_, err := NewManager(path)
	assert.Error(t, err)
}

func TestManager_UpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxy_settings.json")
	m, err := NewManager(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, m.Update(ctx, AddServer(srvA)))
	require.NoError(t, m.Update(ctx, AddServer(srvB)))
	require.NoError(t, m.Update(ctx, ActivateServer(srvB)))

	reloaded, err := NewManager(path)
	require.NoError(t, err)
	assert.Equal(t, m.Get(), reloaded.Get())

	var onDisk types.ProxySettings
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.True(t, onDisk.Enabled)
	assert.Equal(t, &srvB, onDisk.ActiveServer)
}

func TestManager_GetReturnsACopy(t *testing.T) {
	m, err := NewManager("")
	require.NoError(t, err)
	require.NoError(t, m.Update(context.Background(), InstallServer(srvA)))

	snapshot := m.Get()
	snapshot.Servers[0] = srvD
	snapshot.ActiveServer.Host = "mutated"

	fresh := m.Get()
	assert.Equal(t, []types.ProxyServerConfig{srvA}, fresh.Servers)
	assert.Equal(t, &srvA, fresh.ActiveServer)
}

func TestManager_TransformCannotBreakInvariants(t *testing.T) {
	m, err := NewManager("")
	require.NoError(t, err)

	err = m.Update(context.Background(), func(s types.ProxySettings) types.ProxySettings {
		s.Enabled = true
		s.ActiveServer = &srvD
		s.Servers = []types.ProxyServerConfig{srvA, srvA}
		return s
	})
	require.NoError(t, err)

	s := m.Get()
	assert.Equal(t, []types.ProxyServerConfig{srvA}, s.Servers)
	assert.Nil(t, s.ActiveServer)
	assert.False(t, s.Enabled)

	require.NoError(t, m.Update(context.Background(), ToggleEnabled(true)))
	assert.True(t, m.Get().Enabled)

	require.NoError(t, m.Update(context.Background(), RemoveServer(srvA)))
	require.NoError(t, m.Update(context.Background(), ToggleEnabled(true)))
	assert.False(t, m.Get().Enabled, "enabled requires at least one server")
}

func TestManager_ConcurrentUpdatesSerialize(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "proxy_settings.json"))
	require.NoError(t, err)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			server := types.ProxyServerConfig{Host: "h", Port: int32(i)}
			assert.NoError(t, m.Update(context.Background(), InstallServer(server)))
		}(i)
	}
	wg.Wait()

	s := m.Get()
	assert.Len(t, s.Servers, n)
	require.NotNil(t, s.ActiveServer)
	assert.GreaterOrEqual(t, s.IndexOf(*s.ActiveServer), 0)
}

func TestManager_Subscribe(t *testing.T) {
	m, err := NewManager("")
	require.NoError(t, err)

	ch, unsubscribe := m.Subscribe()
	defer unsubscribe()

	first := <-ch
	assert.Empty(t, first.Servers)

	require.NoError(t, m.Update(context.Background(), AddServer(srvA)))
	select {
	case got := <-ch:
		assert.Equal(t, []types.ProxyServerConfig{srvA}, got.Servers)
	case <-time.After(time.Second):
		t.Fatal("no update received")
	}

	// no-op transforms do not notify
	require.NoError(t, m.Update(context.Background(), AddServer(srvA)))
	select {
	case got := <-ch:
		t.Fatalf("unexpected update: %+v", got)
	default:
	}
}

func TestManager_SubscribeKeepsLatestOnly(t *testing.T) {
	m, err := NewManager("")
	require.NoError(t, err)

	ch, unsubscribe := m.Subscribe()
	defer unsubscribe()

	for _, server := range []types.ProxyServerConfig{srvA, srvB, srvC} {
		require.NoError(t, m.Update(context.Background(), AddServer(server)))
	}
	got := <-ch
	assert.Equal(t, []types.ProxyServerConfig{srvA, srvB, srvC}, got.Servers)
}

func TestManager_Close(t *testing.T) {
	m, err := NewManager("")
	require.NoError(t, err)

	ch, unsubscribe := m.Subscribe()
	<-ch
	m.Close()
	unsubscribe()

	_, open := <-ch
	assert.False(t, open)
	assert.ErrorIs(t, m.Update(context.Background(), AddServer(srvA)), ErrManagerClosed)

	late, _ := m.Subscribe()
	<-late
	_, open = <-late
	assert.False(t, open)
}

func TestManager_UpdateCancelled(t *testing.T) {
	m, err := NewManager("")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Update(ctx, AddServer(srvA)), context.Canceled)
	assert.Empty(t, m.Get().Servers)
}

func TestManager_IdempotentTransform(t *testing.T) {
	m, err := NewManager("")
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, m.Update(ctx, AddServer(srvA)))
	require.NoError(t, m.Update(ctx, AddServer(srvB)))

	require.NoError(t, m.Update(ctx, RemoveServer(srvA)))
	once := m.Get()
	require.NoError(t, m.Update(ctx, RemoveServer(srvA)))
	assert.Equal(t, once, m.Get())
}
