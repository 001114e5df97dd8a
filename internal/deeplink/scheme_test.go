package deeplink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  ParsedURL
	}{
		{name: "https t.me peer", input: "https://t.me/durov", want: Internal{Intent: PeerReference{Name: "durov"}}},
		{name: "http telegram.me peer", input: "http://telegram.me/durov", want: Internal{Intent: PeerReference{Name: "durov"}}},
		{name: "no scheme", input: "t.me/durov", want: Internal{Intent: PeerReference{Name: "durov"}}},
		{name: "prefix is case-insensitive", input: "HTTPS://T.ME/Durov", want: Internal{Intent: PeerReference{Name: "Durov"}}},
		{name: "remainder keeps case", input: "t.me/addstickers/FooBar", want: Internal{Intent: StickerPackReference{Name: "FooBar"}}},
		{name: "join", input: "https://t.me/joinchat/abc123", want: Internal{Intent: JoinReference{InviteToken: "abc123"}}},
		{name: "bot start", input: "https://t.me/mybot?start=p1", want: Internal{Intent: PeerReference{Name: "mybot", Parameter: BotStart{Payload: "p1"}}}},
		{name: "channel message", input: "https://t.me/channelname/42", want: Internal{Intent: PeerReference{Name: "channelname", Parameter: ChannelMessage{MessageID: 42}}}},
		{
			name:  "proxy",
			input: "https://t.me/proxy?server=1.2.3.4&port=8080&user=u&pass=p",
			want:  Internal{Intent: ProxyReference{Host: "1.2.3.4", Port: 8080, Username: "u", Password: "p"}},
		},
		{name: "proxy bad port", input: "https://t.me/proxy?server=1.2.3.4&port=abc", want: External{URL: "https://t.me/proxy?server=1.2.3.4&port=abc"}},
		{name: "start before game wins", input: "https://t.me/mybot?start=x&game=y", want: Internal{Intent: PeerReference{Name: "mybot", Parameter: BotStart{Payload: "x"}}}},
		{name: "game falls back", input: "https://t.me/mybot?game=y&start=x", want: External{URL: "https://t.me/mybot?game=y&start=x"}},
		{name: "grammar miss", input: "https://t.me/a/b/c", want: External{URL: "https://t.me/a/b/c"}},
		{name: "bare host", input: "https://t.me/", want: External{URL: "https://t.me/"}},
		{name: "host without slash", input: "https://t.me", want: External{URL: "https://t.me"}},
		{name: "telegraph", input: "https://telegra.ph/Some-Article-01-01", want: Article{URL: "https://telegra.ph/Some-Article-01-01"}},
		{name: "telegraph no scheme", input: "Telegra.ph/x#part", want: Article{URL: "Telegra.ph/x#part"}},
		{name: "unrelated host", input: "https://example.com/durov", want: External{URL: "https://example.com/durov"}},
		{name: "lookalike host", input: "https://nott.me/durov", want: External{URL: "https://nott.me/durov"}},
		{name: "t.me as a path", input: "https://example.com/t.me/durov", want: External{URL: "https://example.com/t.me/durov"}},
		{name: "plain text", input: "hello world", want: External{URL: "hello world"}},
		{name: "empty", input: "", want: External{URL: ""}},
		{name: "other scheme", input: "tg://resolve?domain=durov", want: External{URL: "tg://resolve?domain=durov"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.input))
		})
	}
}

func TestClassify_UnknownInputsAreUnchanged(t *testing.T) {
	inputs := []string{
		"https://google.com",
		"ftp://t.me/durov",
		"mailto:someone@t.me",
		" https://t.me/durov",
		"https://t.mex/durov",
		"\x00\xff",
	}
	for _, in := range inputs {
		assert.Equal(t, External{URL: in}, Classify(in), "input %q", in)
	}
}

func TestAnchor(t *testing.T) {
	assert.Equal(t, "", Anchor("https://telegra.ph/x"))
	assert.Equal(t, "", Anchor("https://telegra.ph/x#"))
	assert.Equal(t, "section-2", Anchor("https://telegra.ph/x#section-2"))
	assert.Equal(t, "a#b", Anchor("https://telegra.ph/x#a#b"))
}

func TestProxyLink_RoundTrip(t *testing.T) {
	refs := []ProxyReference{
		{Host: "1.2.3.4", Port: 8080, Username: "u", Password: "p"},
		{Host: "proxy.example.org", Port: 1080},
		{Host: "2001:db8::1", Port: 443, Password: "only-pass"},
		{Host: "h", Port: 1, Username: "user name", Password: "p&ss=w+rd/%"},
		{Host: "h", Port: -5},
	}
	for _, ref := range refs {
		link := ProxyLink(ref)
		parsed := Classify(link)
		internal, ok := parsed.(Internal)
		require.True(t, ok, "link %q classified as %T", link, parsed)
		assert.Equal(t, ref, internal.Intent, "link %q", link)
	}
}

func TestProxyLink_Format(t *testing.T) {
	assert.Equal(t,
		"https://t.me/proxy?server=1.2.3.4&port=8080&user=u&pass=p",
		ProxyLink(ProxyReference{Host: "1.2.3.4", Port: 8080, Username: "u", Password: "p"}))
	assert.Equal(t,
		"https://t.me/proxy?server=example.org&port=443",
		ProxyLink(ProxyReference{Host: "example.org", Port: 443}))
}
