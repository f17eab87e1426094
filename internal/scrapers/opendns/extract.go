package opendns

import (
	"fmt"
	"regexp"
	"strings"
)

var loginTokenRegex = regexp.MustCompile(`name="formtoken" value="([0-9a-f]+)"`)

const loginSuccessMarker = "Logging you in"

// ExtractLoginToken returns the value of the first formtoken input on the
// login page, or "" when there is none.
func ExtractLoginToken(page string) string {
	groups := loginTokenRegex.FindStringSubmatch(page)
	if len(groups) < 2 {
		return ""
	}
	return groups[1]
}

// IsLoginSuccess reports whether the response to the login form is the
// interstitial the dashboard shows before redirecting a signed in user.
func IsLoginSuccess(page string) bool {
	return strings.Contains(page, loginSuccessMarker)
}

// the network selector looks like this:
//
//	<option value="123456">&nbsp;&nbsp;Home (203.0.113.7)</option>
var networkOptionRegex = regexp.MustCompile(
	`<option value="(\d+)">(?:&nbsp;)+([^<]+?)\(([\d./]+)\)</option>`,
)

// ParseNetworkDirectory extracts one descriptor per network option on the
// page, in document order.
func ParseNetworkDirectory(page string) []UserNetworkDescriptor {
	matches := networkOptionRegex.FindAllStringSubmatch(page, -1)
	networks := make([]UserNetworkDescriptor, 0, len(matches))
	for _, m := range matches {
		networks = append(networks, UserNetworkDescriptor{
			NetworkId:   m[1],
			NetworkName: strings.TrimSpace(m[2]),
			NetworkIp:   m[3],
		})
	}
	return networks
}

var htmlEntities = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// htmlEncode escapes the markup characters with named entities and every
// rune in U+00A0..U+00FF as a decimal entity, the form the dashboard's
// login handler was written against.
func htmlEncode(value string) string {
	value = htmlEntities.Replace(value)
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r >= 0xA0 && r <= 0xFF {
			fmt.Fprintf(&b, "&#%d;", r)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// escapeFormValue html encodes `value`, then replaces every "+" with "%2B"
// so the dashboard doesn't decode it as a space. An "&" comes out as "&amp;",
// whose own "&" still splits the field in the hand-composed body.
func escapeFormValue(value string) string {
	if value == "" {
		return value
	}
	return strings.ReplaceAll(htmlEncode(value), "+", "%2B")
}
