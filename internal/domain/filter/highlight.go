package filter

import "strings"

// Style is a presentation tag attached to a row. Styles never remove rows.
type Style string

const (
	StyleNone           Style = ""
	StyleBlacklisted    Style = "blacklisted"
	StyleOnHold         Style = "on_hold"
	StyleNeedsAttention Style = "needs_attention"
)

var attentionKeywords = []string{
	"second part?",
	"ops need to fix",
	"error",
	"we or ops need fix",
}

// StatusStyle tags the exact statuses "blacklist", "on hold" and "claimed".
func StatusStyle(status string) Style {
	s := strings.ToLower(strings.TrimSpace(status))
	switch s {
	case "blacklist":
		return StyleBlacklisted
	case "on hold", "claimed":
		return StyleOnHold
	default:
		return StyleNone
	}
}

// AttentionStyle tags bonus results that still need someone to act.
func AttentionStyle(result string) Style {
	s := strings.ToLower(result)
	for _, kw := range attentionKeywords {
		if strings.Contains(s, kw) {
			return StyleNeedsAttention
		}
	}
	return StyleNone
}
