package types

// PeerNamespace 区分 peer id 所属的命名空间。
type PeerNamespace int32

const (
	PeerNamespaceCloudUser PeerNamespace = iota
	PeerNamespaceCloudGroup
	PeerNamespaceCloudChannel
	PeerNamespaceSecretChat
)

func (n PeerNamespace) String() string {
	switch n {
	case PeerNamespaceCloudUser:
		return "user"
	case PeerNamespaceCloudGroup:
		return "group"
	case PeerNamespaceCloudChannel:
		return "channel"
	case PeerNamespaceSecretChat:
		return "secret"
	default:
		return "unknown"
	}
}

// PeerID is the stable identifier a directory lookup maps a public name to.
type PeerID struct {
	Namespace PeerNamespace `json:"namespace"`
	ID        int32         `json:"id"`
}

// MessageNamespace 区分消息所属的命名空间。
type MessageNamespace int32

const (
	MessageNamespaceCloud MessageNamespace = iota
	MessageNamespaceLocal
)

// MessageID identifies a message inside a peer's history.
type MessageID struct {
	PeerID    PeerID           `json:"peer_id"`
	Namespace MessageNamespace `json:"namespace"`
	ID        int32            `json:"id"`
}

// PeerLookup is one value emitted by a directory lookup stream.
// Found is false for "no such name"; Err reports a transport failure.
type PeerLookup struct {
	PeerID PeerID
	Found  bool
	Err    error
}

// WebPageContentState 表示网页预览的加载状态。
type WebPageContentState int

const (
	WebPagePending WebPageContentState = iota
	WebPageLoaded
)

// InstantPage is the pre-rendered article representation of an external page.
type InstantPage struct {
	Title    string   `json:"title"`
	Author   string   `json:"author,omitempty"`
	Blocks   []string `json:"blocks"`
	ImageURL string   `json:"image_url,omitempty"`
}

// WebPage is the result of a page-preview lookup.
type WebPage struct {
	URL         string              `json:"url"`
	State       WebPageContentState `json:"state"`
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	SiteName    string              `json:"site_name,omitempty"`
	InstantPage *InstantPage        `json:"instant_page,omitempty"`
}

// HasInstantView reports whether the page is loaded and carries an instant-view page.
func (p *WebPage) HasInstantView() bool {
	return p != nil && p.State == WebPageLoaded && p.InstantPage != nil
}
