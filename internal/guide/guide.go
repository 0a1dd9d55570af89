// Package guide fetches the upstream XMLTV programme guide and optionally
// rewrites channel icon URLs to go through the image proxy.
package guide

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/xtream2m3u/xtream2m3u/internal/apierr"
	"github.com/xtream2m3u/xtream2m3u/internal/httpclient"
	"github.com/xtream2m3u/xtream2m3u/internal/proxy"
	"github.com/xtream2m3u/xtream2m3u/internal/xtream"
)

const fetchTimeout = 30 * time.Second

// SourceURL builds the xmltv.php endpoint for a credential set.
func SourceURL(creds xtream.Credentials) string {
	return creds.BaseURL + "/xmltv.php?username=" + url.QueryEscape(creds.Username) +
		"&password=" + url.QueryEscape(creds.Password)
}

// Fetch retrieves the guide document and returns it normalized to UTF-8.
// Upstream feeds declare a mix of encodings (windows-1251 and latin-1 are
// common); charset.NewReader honors both the Content-Type charset parameter
// and in-document XML declarations.
func Fetch(ctx context.Context, creds xtream.Credentials) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, SourceURL(creds), nil)
	if err != nil {
		return nil, apierr.Wrap(apierr.UpstreamTransport, err, "invalid guide URL")
	}
	req.Header.Set("Accept", "application/xml, text/xml, */*")

	resp, err := httpclient.WithTimeout(fetchTimeout).Do(req)
	if err != nil {
		return nil, apierr.Wrap(apierr.UpstreamTransport, err, "guide fetch failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &apierr.Error{
			Kind:           apierr.UpstreamTransport,
			Detail:         "guide fetch returned " + resp.Status,
			UpstreamStatus: resp.StatusCode,
		}
	}

	decoded, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, apierr.Wrap(apierr.UpstreamTransport, err, "guide charset detection failed")
	}
	data, err := io.ReadAll(decoded)
	if err != nil {
		return nil, apierr.Wrap(apierr.UpstreamTransport, err, "guide body read failed")
	}
	return data, nil
}

var iconSrcRe = regexp.MustCompile(`(<icon\s+src=")([^"]+)(")`)

// RewriteIcons replaces every absolute icon URL in the document with its
// image-proxy form. Relative or empty src values are left alone.
func RewriteIcons(doc []byte, proxyBase string) []byte {
	return iconSrcRe.ReplaceAllFunc(doc, func(m []byte) []byte {
		parts := iconSrcRe.FindSubmatch(m)
		src := string(parts[2])
		if !isAbsoluteURL(src) {
			return m
		}
		return []byte(string(parts[1]) + proxy.ImageURL(proxyBase, src) + string(parts[3]))
	})
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}
