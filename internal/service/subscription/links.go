package subscription

import (
	"net/url"
	"strings"
)

// LinkBuilder constructs the absolute verification and unsubscribe URLs
// embedded in outbound mail. The base URL comes from deployment config and
// is not validated beyond presence — a malformed base yields malformed
// links, which is the operator's problem to notice.
type LinkBuilder struct {
	baseURL string
}

// NewLinkBuilder creates a link builder for the given site origin,
// e.g. "https://cosmoexplorer.io".
func NewLinkBuilder(baseURL string) LinkBuilder {
	return LinkBuilder{baseURL: strings.TrimRight(baseURL, "/")}
}

// VerificationLink returns the URL a subscriber follows to confirm signup.
func (b LinkBuilder) VerificationLink(token string) string {
	return b.baseURL + "/verify?token=" + url.QueryEscape(token)
}

// UnsubscribeLink returns the URL a subscriber follows to be removed.
func (b LinkBuilder) UnsubscribeLink(token string) string {
	return b.baseURL + "/unsubscribe?token=" + url.QueryEscape(token)
}
