package deeplink

import (
	"net/url"
	"strconv"
	"strings"
)

var (
	schemes          = []string{"http://", "https://", ""}
	telegramMeBases  = []string{"telegram.me", "t.me"}
	instantViewBases = []string{"telegra.ph"}
)

// Classify decides whether input is an internal link, a telegra.ph article or
// an external URL. Prefixes compare case-insensitively; the remainder keeps its case.
func Classify(input string) ParsedURL {
	for _, base := range telegramMeBases {
		for _, scheme := range schemes {
			prefix := scheme + base + "/"
			if hasPrefixFold(input, prefix) {
				if intent := ParseInternalPath(input[len(prefix):]); intent != nil {
					return Internal{Intent: intent}
				}
				return External{URL: input}
			}
		}
	}
	for _, base := range instantViewBases {
		for _, scheme := range schemes {
			if hasPrefixFold(input, scheme+base+"/") {
				return Article{URL: input}
			}
		}
	}
	return External{URL: input}
}

// Anchor returns the text after the first '#', or "" when there is none.
func Anchor(input string) string {
	_, anchor, _ := strings.Cut(input, "#")
	return anchor
}

// ProxyLink builds a t.me/proxy link that Classify maps back to an equal ProxyReference.
func ProxyLink(ref ProxyReference) string {
	var sb strings.Builder
	sb.WriteString("https://t.me/proxy?server=")
	sb.WriteString(escapeQueryValue(ref.Host))
	sb.WriteString("&port=")
	sb.WriteString(strconv.FormatInt(int64(ref.Port), 10))
	if ref.Username != "" {
		sb.WriteString("&user=")
		sb.WriteString(escapeQueryValue(ref.Username))
	}
	if ref.Password != "" {
		sb.WriteString("&pass=")
		sb.WriteString(escapeQueryValue(ref.Password))
	}
	return sb.String()
}

// escapeQueryValue escapes with %20 for spaces; the grammar does not decode '+'.
func escapeQueryValue(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// hasPrefixFold is an ASCII case-insensitive strings.HasPrefix.
func hasPrefixFold(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		if lowerASCII(s[i]) != lowerASCII(prefix[i]) {
			return false
		}
	}
	return true
}

func lowerASCII(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
