package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tglink/internal/shared/types"
)

type fakeDirectory struct {
	mu      sync.Mutex
	peers   map[string]types.PeerID
	err     error
	calls   []string
	stream  []types.PeerLookup // emitted verbatim when set
	block   bool
	stopped chan struct{}
}

func (d *fakeDirectory) ResolvePeerByName(ctx context.Context, name string) <-chan types.PeerLookup {
	d.mu.Lock()
	d.calls = append(d.calls, name)
	d.mu.Unlock()

	ch := make(chan types.PeerLookup)
	go func() {
		defer close(ch)
		if d.stopped != nil {
			defer close(d.stopped)
		}
		if d.block {
			<-ctx.Done()
			return
		}
		values := d.stream
		if values == nil {
			id, ok := d.peers[name]
			values = []types.PeerLookup{{PeerID: id, Found: ok, Err: d.err}}
		}
		for _, v := range values {
			select {
			case ch <- v:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

type fakePreviewer struct {
	page  *types.WebPage
	err   error
	calls int
}

func (p *fakePreviewer) FetchPagePreview(ctx context.Context, url string) (*types.WebPage, error) {
	p.calls++
	return p.page, p.err
}

var (
	durovID   = types.PeerID{Namespace: types.PeerNamespaceCloudUser, ID: 1}
	botID     = types.PeerID{Namespace: types.PeerNamespaceCloudUser, ID: 100}
	channelID = types.PeerID{Namespace: types.PeerNamespaceCloudChannel, ID: 7}
)

func newDirectory() *fakeDirectory {
	return &fakeDirectory{peers: map[string]types.PeerID{
		"durov":       durovID,
		"mybot":       botID,
		"channelname": channelID,
	}}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Result
	}{
		{name: "external", input: "https://example.com", want: ExternalURL{URL: "https://example.com"}},
		{name: "peer", input: "https://t.me/durov", want: Peer{PeerID: durovID}},
		{name: "bot start", input: "t.me/mybot?start=p", want: BotStart{PeerID: botID, Payload: "p"}},
		{name: "group bot start", input: "t.me/mybot?startgroup=g", want: GroupBotStart{PeerID: botID, Payload: "g"}},
		{
			name:  "channel message",
			input: "https://t.me/channelname/42",
			want: ChannelMessage{
				PeerID:    channelID,
				MessageID: types.MessageID{PeerID: channelID, Namespace: types.MessageNamespaceCloud, ID: 42},
			},
		},
		{name: "unknown peer", input: "https://t.me/nobody", want: ExternalURL{URL: "https://t.me/nobody"}},
		{name: "sticker pack", input: "https://t.me/addstickers/Foo", want: StickerPack{Name: "Foo"}},
		{name: "join", input: "https://t.me/joinchat/abc123", want: Join{Token: "abc123"}},
		{
			name:  "proxy",
			input: "https://t.me/proxy?server=1.2.3.4&port=8080&user=u&pass=p",
			want:  Proxy{Host: "1.2.3.4", Port: 8080, Username: "u", Password: "p"},
		},
		{name: "proxy bad port", input: "https://t.me/proxy?server=1.2.3.4&port=abc", want: ExternalURL{URL: "https://t.me/proxy?server=1.2.3.4&port=abc"}},
		{name: "game", input: "https://t.me/mybot?game=tetris", want: ExternalURL{URL: "https://t.me/mybot?game=tetris"}},
	}

	r := New(newDirectory(), &fakePreviewer{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_NoLookupForLocalIntents(t *testing.T) {
	dir := newDirectory()
	prev := &fakePreviewer{}
	r := New(dir, prev)

	for _, in := range []string{
		"https://t.me/proxy?server=h&port=1",
		"https://t.me/addstickers/Foo",
		"https://t.me/joinchannel/x",
		"https://example.com",
	} {
		_, err := r.Resolve(context.Background(), in)
		require.NoError(t, err)
	}
	assert.Empty(t, dir.calls)
	assert.Zero(t, prev.calls)
}

func TestResolve_TakesFirstStreamValue(t *testing.T) {
	dir := &fakeDirectory{
		stream: []types.PeerLookup{
			{PeerID: durovID, Found: true},
			{PeerID: botID, Found: true},
		},
		stopped: make(chan struct{}),
	}
	r := New(dir, nil)

	got, err := r.Resolve(context.Background(), "t.me/durov")
	require.NoError(t, err)
	assert.Equal(t, Peer{PeerID: durovID}, got)

	// the lookup context is cancelled once the first value is taken
	select {
	case <-dir.stopped:
	case <-time.After(time.Second):
		t.Fatal("directory stream was not cancelled")
	}
}

func TestResolve_FirstValueNotFoundWins(t *testing.T) {
	dir := &fakeDirectory{stream: []types.PeerLookup{
		{Found: false},
		{PeerID: durovID, Found: true},
	}}
	r := New(dir, nil)

	got, err := r.Resolve(context.Background(), "t.me/durov")
	require.NoError(t, err)
	assert.Equal(t, ExternalURL{URL: "t.me/durov"}, got)
}

func TestResolve_DirectoryErrorFallsBack(t *testing.T) {
	dir := newDirectory()
	dir.err = errors.New("network down")
	r := New(dir, nil)

	got, err := r.Resolve(context.Background(), "https://t.me/durov")
	require.NoError(t, err)
	assert.Equal(t, ExternalURL{URL: "https://t.me/durov"}, got)
}

func TestResolve_ClosedStreamFallsBack(t *testing.T) {
	dir := &fakeDirectory{stream: []types.PeerLookup{}}
	r := New(dir, nil)

	got, err := r.Resolve(context.Background(), "https://t.me/durov")
	require.NoError(t, err)
	assert.Equal(t, ExternalURL{URL: "https://t.me/durov"}, got)
}

func TestResolve_NilDirectory(t *testing.T) {
	r := New(nil, nil)
	got, err := r.Resolve(context.Background(), "https://t.me/durov")
	require.NoError(t, err)
	assert.Equal(t, ExternalURL{URL: "https://t.me/durov"}, got)
}

func TestResolve_CancelledDuringLookup(t *testing.T) {
	dir := &fakeDirectory{block: true}
	r := New(dir, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	got, err := r.Resolve(ctx, "https://t.me/durov")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, got)
}

func TestResolve_InstantView(t *testing.T) {
	page := &types.WebPage{
		URL:         "https://telegra.ph/Article-01-01",
		State:       types.WebPageLoaded,
		InstantPage: &types.InstantPage{Title: "Article"},
	}

	tests := []struct {
		name  string
		input string
		page  *types.WebPage
		err   error
		want  Result
	}{
		{name: "with anchor", input: "https://telegra.ph/Article-01-01#part-2", page: page, want: InstantView{Page: page, Anchor: "part-2"}},
		{name: "empty anchor", input: "https://telegra.ph/Article-01-01#", page: page, want: InstantView{Page: page}},
		{name: "no anchor", input: "telegra.ph/Article-01-01", page: page, want: InstantView{Page: page}},
		{
			name:  "no instant page",
			input: "https://telegra.ph/Article-01-01",
			page:  &types.WebPage{State: types.WebPageLoaded},
			want:  ExternalURL{URL: "https://telegra.ph/Article-01-01"},
		},
		{
			name:  "pending page",
			input: "https://telegra.ph/Article-01-01",
			page:  &types.WebPage{State: types.WebPagePending, InstantPage: &types.InstantPage{}},
			want:  ExternalURL{URL: "https://telegra.ph/Article-01-01"},
		},
		{name: "no page", input: "https://telegra.ph/x", want: ExternalURL{URL: "https://telegra.ph/x"}},
		{name: "fetch error", input: "https://telegra.ph/x", err: errors.New("boom"), want: ExternalURL{URL: "https://telegra.ph/x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := &fakePreviewer{page: tt.page, err: tt.err}
			r := New(newDirectory(), prev)
			got, err := r.Resolve(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, 1, prev.calls)
		})
	}
}

func TestResolve_ConcurrentCalls(t *testing.T) {
	r := New(newDirectory(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := r.Resolve(context.Background(), "https://t.me/mybot?start=x")
			assert.NoError(t, err)
			assert.Equal(t, BotStart{PeerID: botID, Payload: "x"}, got)
		}()
	}
	wg.Wait()
}

func TestMarshalEnvelope(t *testing.T) {
	data, err := MarshalEnvelope(Proxy{Host: "h", Port: 1, Username: "u"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"proxy","data":{"host":"h","port":1,"username":"u"}}`, string(data))

	var env struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	data, err = MarshalEnvelope(ExternalURL{URL: "x"})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, "external_url", env.Type)
}

func TestProxy_ServerConfig(t *testing.T) {
	p := Proxy{Host: "h", Port: 2, Username: "u", Password: "p"}
	assert.Equal(t, types.ProxyServerConfig{Host: "h", Port: 2, Username: "u", Password: "p"}, p.ServerConfig())
}
