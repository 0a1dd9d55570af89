package xtream

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/xtream2m3u/xtream2m3u/internal/apierr"
	"github.com/xtream2m3u/xtream2m3u/internal/httpclient"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// apiURL builds a player_api.php URL. Credentials are query-escaped so
// special characters cannot inject extra parameters.
func apiURL(creds Credentials, action string) string {
	base := strings.TrimSuffix(creds.BaseURL, "/")
	u := base + "/player_api.php?username=" + url.QueryEscape(creds.Username) +
		"&password=" + url.QueryEscape(creds.Password)
	if action != "" {
		u += "&action=" + action
	}
	return u
}

// apiGet performs one GET against the upstream API and returns the decoded
// body. Transport failures map to UpstreamTransport; non-2xx responses are
// reported with their status. No retries: callers re-issue the request.
func apiGet(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json,text/html,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", httpclient.AcceptEncoding)

	resp, err := client.Do(req)
	if err != nil {
		return nil, apierr.Wrap(apierr.UpstreamTransport, err, err.Error())
	}
	body, err := httpclient.DecodedBody(resp)
	if err != nil {
		resp.Body.Close()
		return nil, apierr.Wrap(apierr.UpstreamTransport, err, "decode response body")
	}
	defer body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, body)
		return nil, apierr.New(apierr.UpstreamTransport, "%s: %s", rawURL, resp.Status)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, apierr.Wrap(apierr.UpstreamTransport, err, "read response body")
	}
	return data, nil
}
