package resolver

import (
	"encoding/json"

	"tglink/internal/shared/types"
)

// Result is the terminal, directly actionable outcome of resolving a link.
// Implementations: ExternalURL, Peer, BotStart, GroupBotStart, ChannelMessage,
// StickerPack, InstantView, Proxy, Join.
type Result interface {
	Kind() string
	isResult()
}

type ExternalURL struct {
	URL string `json:"url"`
}

type Peer struct {
	PeerID types.PeerID `json:"peer_id"`
}

type BotStart struct {
	PeerID  types.PeerID `json:"peer_id"`
	Payload string       `json:"payload"`
}

type GroupBotStart struct {
	PeerID  types.PeerID `json:"peer_id"`
	Payload string       `json:"payload"`
}

type ChannelMessage struct {
	PeerID    types.PeerID    `json:"peer_id"`
	MessageID types.MessageID `json:"message_id"`
}

type StickerPack struct {
	Name string `json:"name"`
}

// InstantView opens the pre-rendered article. An empty Anchor means none.
type InstantView struct {
	Page   *types.WebPage `json:"page"`
	Anchor string         `json:"anchor,omitempty"`
}

// Proxy carries the parameters of a proxy link. Empty Username/Password mean absent.
type Proxy struct {
	Host     string `json:"host"`
	Port     int32  `json:"port"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

type Join struct {
	Token string `json:"token"`
}

func (ExternalURL) Kind() string    { return "external_url" }
func (Peer) Kind() string           { return "peer" }
func (BotStart) Kind() string       { return "bot_start" }
func (GroupBotStart) Kind() string  { return "group_bot_start" }
func (ChannelMessage) Kind() string { return "channel_message" }
func (StickerPack) Kind() string    { return "sticker_pack" }
func (InstantView) Kind() string    { return "instant_view" }
func (Proxy) Kind() string          { return "proxy" }
func (Join) Kind() string           { return "join" }

func (ExternalURL) isResult()    {}
func (Peer) isResult()           {}
func (BotStart) isResult()       {}
func (GroupBotStart) isResult()  {}
func (ChannelMessage) isResult() {}
func (StickerPack) isResult()    {}
func (InstantView) isResult()    {}
func (Proxy) isResult()          {}
func (Join) isResult()           {}

// ServerConfig converts a proxy result into the value stored in the proxy settings.
func (p Proxy) ServerConfig() types.ProxyServerConfig {
	return types.ProxyServerConfig{Host: p.Host, Port: p.Port, Username: p.Username, Password: p.Password}
}

// Envelope is the JSON shape handed to the web and mobile surfaces.
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Encode wraps any tagged value (Result, deeplink.ParsedURL) with its kind.
func Encode(v interface{ Kind() string }) Envelope {
	return Envelope{Type: v.Kind(), Data: v}
}

// MarshalEnvelope is json.Marshal(Encode(v)).
func MarshalEnvelope(v interface{ Kind() string }) ([]byte, error) {
	return json.Marshal(Encode(v))
}
