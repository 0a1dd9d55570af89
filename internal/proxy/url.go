package proxy

import (
	"net/http"
	"net/url"
	"strings"
)

// EncodeTarget percent-encodes an upstream URL so it fits in a single proxy
// path segment. QueryEscape covers every reserved character, but encodes
// spaces as '+', which PathUnescape would leave literal; rewrite them to %20
// so the round-trip is exact.
func EncodeTarget(upstream string) string {
	if upstream == "" {
		return ""
	}
	return strings.ReplaceAll(url.QueryEscape(upstream), "+", "%20")
}

// ImageURL returns the proxied form of an image URL.
func ImageURL(proxyBase, upstream string) string {
	return strings.TrimSuffix(proxyBase, "/") + "/image-proxy/" + EncodeTarget(upstream)
}

// StreamURL returns the proxied form of a media URL.
func StreamURL(proxyBase, upstream string) string {
	return strings.TrimSuffix(proxyBase, "/") + "/stream-proxy/" + EncodeTarget(upstream)
}

// targetFromPath extracts and decodes the upstream URL from a proxy request
// path. The escaped path is used because the encoded target contains %2F
// sequences that the router's decoded path would flatten into real slashes.
func targetFromPath(r *http.Request, prefix string) (string, bool) {
	p := r.URL.EscapedPath()
	if !strings.HasPrefix(p, prefix) {
		return "", false
	}
	enc := strings.TrimPrefix(p, prefix)
	if enc == "" {
		return "", false
	}
	target, err := url.PathUnescape(enc)
	if err != nil {
		return "", false
	}
	// Only http(s) targets are proxied; file://, ftp:// and friends would
	// open local file access through the encoder.
	if u, err := url.Parse(target); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", false
	}
	return target, true
}
