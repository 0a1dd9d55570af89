package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

// fakeUpstream emulates the slice of the Xtream API the handlers touch.
func fakeUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/player_api.php":
			serveAPI(w, r)
		case "/xmltv.php":
			w.Header().Set("Content-Type", "application/xml")
			_, _ = w.Write([]byte(`<tv><channel id="c"><icon src="http://img.example.com/logo.png"/></channel></tv>`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func serveAPI(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("password") != "good" {
		_, _ = w.Write([]byte(`{"user_info": {"auth": 0}, "server_info": {"url": "x", "port": 80}}`))
		return
	}
	switch r.URL.Query().Get("action") {
	case "":
		_, _ = w.Write([]byte(`{
			"user_info": {"username": "u", "password": "good", "auth": 1},
			"server_info": {"url": "media.example.com", "port": 8080}
		}`))
	case "get_live_categories":
		_, _ = w.Write([]byte(`[{"category_id": "1", "category_name": "Sports"}]`))
	case "get_live_streams":
		_, _ = w.Write([]byte(`[{"stream_id": 10, "name": "Chan One", "category_id": "1"}]`))
	case "get_vod_categories", "get_series_categories":
		_, _ = w.Write([]byte(`[]`))
	default:
		_, _ = w.Write([]byte(`[]`))
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	s := &Server{}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestM3UMissingParams(t *testing.T) {
	api := newTestServer(t)
	resp, err := http.Get(api.URL + "/m3u?url=http://host")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "Missing Parameters" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestM3UInvalidCredentials(t *testing.T) {
	upstream := fakeUpstream(t)
	api := newTestServer(t)

	resp, err := http.Get(api.URL + "/m3u?url=" + url.QueryEscape(upstream.URL) + "&username=u&password=bad")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestM3UGeneratesPlaylist(t *testing.T) {
	upstream := fakeUpstream(t)
	api := newTestServer(t)

	resp, err := http.Get(api.URL + "/m3u?url=" + url.QueryEscape(upstream.URL) + "&username=u&password=good&nostreamproxy=true")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != "attachment; filename=LiveStream.m3u" {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "audio/x-scpls") {
		t.Errorf("Content-Type = %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	doc := string(body)
	if !strings.HasPrefix(doc, "#EXTM3U\n") {
		t.Fatalf("missing header:\n%s", doc)
	}
	if !strings.Contains(doc, `group-title="Sports"`) || !strings.Contains(doc, ",Chan One\n") {
		t.Errorf("live record missing:\n%s", doc)
	}
	// nostreamproxy: direct upstream media URL from the auth response.
	if !strings.Contains(doc, "http://media.example.com:8080/live/u/good/10.ts") {
		t.Errorf("direct media URL missing:\n%s", doc)
	}
}

func TestM3UPostBody(t *testing.T) {
	upstream := fakeUpstream(t)
	api := newTestServer(t)

	payload := `{
		"url": "` + upstream.URL + `",
		"username": "u",
		"password": "good",
		"wanted_groups": "sports",
		"nostreamproxy": "true"
	}`
	resp, err := http.Post(api.URL+"/m3u", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), ",Chan One\n") {
		t.Errorf("wanted group should be included:\n%s", body)
	}
}

func TestM3UProxyRewriteUsesRequestHost(t *testing.T) {
	upstream := fakeUpstream(t)
	api := newTestServer(t)

	resp, err := http.Get(api.URL + "/m3u?url=" + url.QueryEscape(upstream.URL) + "&username=u&password=good")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	// No proxy_url given and none configured: the service's own address from
	// the request becomes the proxy base.
	if !strings.Contains(string(body), api.URL+"/stream-proxy/") {
		t.Errorf("media URL should be proxied through the request host:\n%s", body)
	}
}

func TestCategories(t *testing.T) {
	upstream := fakeUpstream(t)
	api := newTestServer(t)

	resp, err := http.Get(api.URL + "/categories?url=" + url.QueryEscape(upstream.URL) + "&username=u&password=good")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var categories []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&categories); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(categories) != 1 || categories[0]["category_name"] != "Sports" {
		t.Errorf("categories = %v", categories)
	}
	if categories[0]["content_type"] != "live" {
		t.Errorf("content_type = %v, want live", categories[0]["content_type"])
	}
}

func TestXMLTVRewritesIcons(t *testing.T) {
	upstream := fakeUpstream(t)
	api := newTestServer(t)

	resp, err := http.Get(api.URL + "/xmltv?url=" + url.QueryEscape(upstream.URL) +
		"&username=u&password=good&proxy_url=http://proxy.local:5000")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != "attachment; filename=guide.xml" {
		t.Errorf("Content-Disposition = %q", cd)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "http://proxy.local:5000/image-proxy/") {
		t.Errorf("icons not proxied:\n%s", body)
	}
}

func TestM3UOptionsPreflight(t *testing.T) {
	api := newTestServer(t)
	req, _ := http.NewRequest(http.MethodOptions, api.URL+"/m3u", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("CORS header missing")
	}
}

func TestHealthz(t *testing.T) {
	api := newTestServer(t)
	resp, err := http.Get(api.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v", body["status"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	api := newTestServer(t)
	resp, err := http.Get(api.URL + "/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
