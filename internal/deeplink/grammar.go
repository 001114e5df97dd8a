package deeplink

import (
	"net/url"
	"strconv"
	"strings"
)

type queryItem struct {
	name     string
	value    string
	hasValue bool
}

// ParseInternalPath classifies the part of a link after the host, e.g.
// "durov", "mychannel/42?single" or "proxy?server=1.2.3.4&port=443".
// It returns nil when the path has no internal meaning.
func ParseInternalPath(query string) Intent {
	u, err := url.Parse("/" + query)
	if err != nil {
		return nil
	}

	segments := strings.Split(u.Path, "/")
	if len(segments) > 0 {
		segments = segments[1:]
	}
	if len(segments) == 0 || segments[0] == "" {
		return nil
	}

	items, ok := parseQueryItems(u.RawQuery)
	if !ok {
		return nil
	}

	name := segments[0]
	switch len(segments) {
	case 1:
		if name == "socks" || name == "proxy" {
			return parseProxyItems(items)
		}
		for _, item := range items {
			if !item.hasValue {
				continue
			}
			switch item.name {
			case "start":
				return PeerReference{Name: name, Parameter: BotStart{Payload: item.value}}
			case "startgroup":
				return PeerReference{Name: name, Parameter: GroupBotStart{Payload: item.value}}
			case "game":
				// games are not supported; the link stays external
				return nil
			}
		}
		return PeerReference{Name: name}
	case 2:
		switch name {
		case "addstickers":
			return StickerPackReference{Name: segments[1]}
		case "joinchat", "joinchannel":
			return JoinReference{InviteToken: segments[1]}
		}
		id, err := strconv.ParseInt(segments[1], 10, 32)
		if err != nil {
			return nil
		}
		return PeerReference{Name: name, Parameter: ChannelMessage{MessageID: int32(id)}}
	default:
		return nil
	}
}

// parseProxyItems takes the first value of each proxy key.
func parseProxyItems(items []queryItem) Intent {
	var server, port, user, pass *string
	for i := range items {
		item := &items[i]
		if !item.hasValue {
			continue
		}
		switch item.name {
		case "server", "proxy":
			if server == nil {
				server = &item.value
			}
		case "port":
			if port == nil {
				port = &item.value
			}
		case "user":
			if user == nil {
				user = &item.value
			}
		case "pass":
			if pass == nil {
				pass = &item.value
			}
		}
	}

	if server == nil || *server == "" || port == nil {
		return nil
	}
	portValue, err := strconv.ParseInt(*port, 10, 32)
	if err != nil {
		return nil
	}

	ref := ProxyReference{Host: *server, Port: int32(portValue)}
	if user != nil {
		ref.Username = *user
	}
	if pass != nil {
		ref.Password = *pass
	}
	return ref
}

// parseQueryItems splits a raw query preserving order. net/url.ParseQuery is not
// used because it returns a map and decodes '+' as a space.
func parseQueryItems(raw string) ([]queryItem, bool) {
	if raw == "" {
		return nil, true
	}
	parts := strings.Split(raw, "&")
	items := make([]queryItem, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		kRaw, vRaw, hasEq := strings.Cut(part, "=")
		k, err := url.PathUnescape(kRaw)
		if err != nil {
			return nil, false
		}
		item := queryItem{name: k, hasValue: hasEq}
		if hasEq {
			v, err := url.PathUnescape(vRaw)
			if err != nil {
				return nil, false
			}
			item.value = v
		}
		items = append(items, item)
	}
	return items, true
}
