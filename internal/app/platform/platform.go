// Package platform classifies submitted URLs by social-media platform and
// canonicalises them for duplicate detection.
package platform

import "strings"

// Platform is the label attached to a stored link.
type Platform string

const (
	Twitter   Platform = "Twitter"
	Facebook  Platform = "Facebook"
	Instagram Platform = "Instagram"
	YouTube   Platform = "YouTube"
	Telegram  Platform = "Telegram"
	WhatsApp  Platform = "WhatsApp"
	Reddit    Platform = "Reddit"
	Other     Platform = "Other"
)

type rule struct {
	patterns []string
	label    Platform
}

// Order matters: the first rule with a matching pattern wins.
var rules = []rule{
	{patterns: []string{"twitter.com", "x.com"}, label: Twitter},
	{patterns: []string{"facebook.com"}, label: Facebook},
	{patterns: []string{"instagram.com"}, label: Instagram},
	{patterns: []string{"youtube.com"}, label: YouTube},
	{patterns: []string{"t.me", "telegram.org"}, label: Telegram},
	{patterns: []string{"whatsapp.com"}, label: WhatsApp},
	{patterns: []string{"reddit.com"}, label: Reddit},
}

// Classify maps a URL to its platform using case-insensitive substring
// matching. Anything unrecognised is Other.
func Classify(rawURL string) Platform {
	lower := strings.ToLower(rawURL)
	for _, r := range rules {
		for _, p := range r.patterns {
			if strings.Contains(lower, p) {
				return r.label
			}
		}
	}
	return Other
}

// Normalize canonicalises a trimmed URL for the given platform. Instagram
// links lose their query string and fragment and end in exactly one slash;
// every other platform is returned trimmed but otherwise untouched.
func Normalize(rawURL string, p Platform) string {
	u := strings.TrimSpace(rawURL)
	if p != Instagram {
		return u
	}

	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return strings.TrimRight(u, "/") + "/"
}

// Resolve classifies and normalises in one step, which is what callers
// storing a new link want.
func Resolve(rawURL string) (string, Platform) {
	trimmed := strings.TrimSpace(rawURL)
	p := Classify(trimmed)
	return Normalize(trimmed, p), p
}
