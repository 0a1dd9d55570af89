package xtream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/xtream2m3u/xtream2m3u/internal/apierr"
)

// catalogServer serves canned per-action responses and records which actions
// were requested.
type catalogServer struct {
	mu        sync.Mutex
	requested []string
	responses map[string]string
	statuses  map[string]int
}

func (cs *catalogServer) start(t *testing.T) Credentials {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		action := r.URL.Query().Get("action")
		cs.mu.Lock()
		cs.requested = append(cs.requested, action)
		cs.mu.Unlock()
		if status, ok := cs.statuses[action]; ok {
			w.WriteHeader(status)
			return
		}
		body, ok := cs.responses[action]
		if !ok {
			body = "[]"
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return Credentials{BaseURL: ts.URL, Username: "u", Password: "p"}
}

func (cs *catalogServer) sawAction(action string) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for _, a := range cs.requested {
		if a == action {
			return true
		}
	}
	return false
}

func TestFetchCatalogMergesKinds(t *testing.T) {
	cs := &catalogServer{responses: map[string]string{
		"get_live_categories":   `[{"category_id": "1", "category_name": "Sports"}]`,
		"get_live_streams":      `[{"stream_id": 10, "name": "Chan", "category_id": 1, "epg_channel_id": "chan.uk"}]`,
		"get_vod_categories":    `[{"category_id": "2", "category_name": "Movies"}]`,
		"get_series_categories": `[{"category_id": "3", "category_name": "Drama"}]`,
		"get_vod_streams":       `[{"stream_id": "20", "name": "Film", "category_id": "2", "container_extension": "mkv", "added": "1700000000"}]`,
		"get_series":            `[{"series_id": 30, "name": "Show", "category_id": "3", "cover": "http://x/c.png"}]`,
	}}
	creds := cs.start(t)

	categories, streams, err := FetchCatalog(context.Background(), creds, true, true)
	if err != nil {
		t.Fatalf("FetchCatalog: %v", err)
	}
	if len(categories) != 3 {
		t.Fatalf("categories = %d, want 3", len(categories))
	}
	if len(streams) != 3 {
		t.Fatalf("streams = %d, want 3", len(streams))
	}

	byID := map[string]Stream{}
	for _, s := range streams {
		byID[s.ID] = s
	}
	if s := byID["10"]; s.Kind != KindLive || s.CategoryID != "1" || s.EPGChannelID != "chan.uk" {
		t.Errorf("live stream wrong: %+v", s)
	}
	if s := byID["20"]; s.Kind != KindVOD || s.ContainerExt != "mkv" || s.Added != "1700000000" {
		t.Errorf("vod stream wrong: %+v", s)
	}
	// Series entries key on series_id and fall back to cover for the icon.
	if s := byID["30"]; s.Kind != KindSeries || s.Icon != "http://x/c.png" {
		t.Errorf("series stream wrong: %+v", s)
	}
}

func TestFetchCatalogOptionalFailureIsSilent(t *testing.T) {
	cs := &catalogServer{
		responses: map[string]string{
			"get_live_categories": `[{"category_id": "1", "category_name": "Sports"}]`,
			"get_live_streams":    `[{"stream_id": 10, "name": "Chan", "category_id": "1"}]`,
		},
		statuses: map[string]int{"get_vod_streams": http.StatusInternalServerError},
	}
	creds := cs.start(t)

	categories, streams, err := FetchCatalog(context.Background(), creds, true, true)
	if err != nil {
		t.Fatalf("optional endpoint failure must not fail the fetch: %v", err)
	}
	if len(categories) != 1 || len(streams) != 1 {
		t.Errorf("live results must survive: categories=%d streams=%d", len(categories), len(streams))
	}
}

func TestFetchCatalogMandatoryFailure(t *testing.T) {
	cs := &catalogServer{
		statuses: map[string]int{"get_live_streams": http.StatusBadGateway},
	}
	creds := cs.start(t)

	_, _, err := FetchCatalog(context.Background(), creds, false, false)
	if kind := errKind(t, err); kind != apierr.UpstreamTransport {
		t.Errorf("kind = %v, want UpstreamTransport", kind)
	}
}

func TestFetchCatalogMandatoryNotAList(t *testing.T) {
	cs := &catalogServer{responses: map[string]string{
		"get_live_categories": `{"error": "surprise object"}`,
		"get_live_streams":    `[]`,
	}}
	creds := cs.start(t)

	_, _, err := FetchCatalog(context.Background(), creds, false, false)
	if kind := errKind(t, err); kind != apierr.InvalidCatalogFormat {
		t.Errorf("kind = %v, want InvalidCatalogFormat", kind)
	}
}

func TestFetchCatalogCategoriesOnlySkipsStreamLists(t *testing.T) {
	cs := &catalogServer{responses: map[string]string{
		"get_live_categories": `[]`,
		"get_live_streams":    `[]`,
	}}
	creds := cs.start(t)

	if _, _, err := FetchCatalog(context.Background(), creds, true, false); err != nil {
		t.Fatalf("FetchCatalog: %v", err)
	}
	if !cs.sawAction("get_vod_categories") || !cs.sawAction("get_series_categories") {
		t.Error("category endpoints should be requested when includeVOD is set")
	}
	if cs.sawAction("get_vod_streams") || cs.sawAction("get_series") {
		t.Error("stream list endpoints must not be requested on the categories path")
	}
}
