// Package deeplink classifies link strings into unresolved intents.
// Everything in this package is pure and safe for concurrent use.
package deeplink

// Intent is a classified but not yet resolved internal link.
// Implementations: PeerReference, StickerPackReference, JoinReference, ProxyReference.
type Intent interface {
	Kind() string
	isIntent()
}

// BotParameter refines a PeerReference.
// Implementations: BotStart, GroupBotStart, ChannelMessage.
type BotParameter interface {
	Kind() string
	isBotParameter()
}

type PeerReference struct {
	Name      string       `json:"name"`
	Parameter BotParameter `json:"parameter,omitempty"`
}

type StickerPackReference struct {
	Name string `json:"name"`
}

type JoinReference struct {
	InviteToken string `json:"invite_token"`
}

// ProxyReference carries proxy parameters only. Empty Username/Password mean absent.
type ProxyReference struct {
	Host     string `json:"host"`
	Port     int32  `json:"port"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

type BotStart struct {
	Payload string `json:"payload"`
}

type GroupBotStart struct {
	Payload string `json:"payload"`
}

type ChannelMessage struct {
	MessageID int32 `json:"message_id"`
}

func (PeerReference) Kind() string        { return "peer" }
func (StickerPackReference) Kind() string { return "sticker_pack" }
func (JoinReference) Kind() string        { return "join" }
func (ProxyReference) Kind() string       { return "proxy" }

func (PeerReference) isIntent()        {}
func (StickerPackReference) isIntent() {}
func (JoinReference) isIntent()        {}
func (ProxyReference) isIntent()       {}

func (BotStart) Kind() string       { return "bot_start" }
func (GroupBotStart) Kind() string  { return "group_bot_start" }
func (ChannelMessage) Kind() string { return "channel_message" }

func (BotStart) isBotParameter()       {}
func (GroupBotStart) isBotParameter()  {}
func (ChannelMessage) isBotParameter() {}

// ParsedURL is the output of Classify.
// Implementations: External, Internal, Article.
type ParsedURL interface {
	Kind() string
	isParsedURL()
}

// External is any input that is not an internal link.
type External struct {
	URL string `json:"url"`
}

// Internal wraps a grammar match.
type Internal struct {
	Intent Intent `json:"intent"`
}

// Article is a telegra.ph reference that needs a page-preview lookup.
type Article struct {
	URL string `json:"url"`
}

func (External) Kind() string { return "external" }
func (Internal) Kind() string { return "internal" }
func (Article) Kind() string  { return "article" }

func (External) isParsedURL() {}
func (Internal) isParsedURL() {}
func (Article) isParsedURL()  {}
