package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/xtream2m3u/xtream2m3u/internal/apierr"
	"github.com/xtream2m3u/xtream2m3u/internal/guide"
	"github.com/xtream2m3u/xtream2m3u/internal/httpclient"
	"github.com/xtream2m3u/xtream2m3u/internal/playlist"
	"github.com/xtream2m3u/xtream2m3u/internal/xtream"
)

// request carries the decoded per-request parameters. GET requests use query
// parameters; POST requests use a JSON body, which keeps very large filter
// lists out of the URL.
type request struct {
	creds    xtream.Credentials
	proxyURL string
	body     map[string]interface{} // nil on GET
	raw      *http.Request
}

func (s *Server) decodeRequest(r *http.Request) (*request, error) {
	req := &request{raw: r}
	if r.Method == http.MethodPost {
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			body = map[string]interface{}{}
		}
		req.body = body
	}
	req.creds = xtream.Credentials{
		BaseURL:  strings.TrimSuffix(req.param("url"), "/"),
		Username: req.param("username"),
		Password: req.param("password"),
	}
	if req.creds.BaseURL == "" || req.creds.Username == "" || req.creds.Password == "" {
		return nil, apierr.New(apierr.MissingParameters, "required parameters: url, username, and password")
	}
	req.proxyURL = req.param("proxy_url")
	if req.proxyURL == "" {
		req.proxyURL = s.DefaultProxyURL
	}
	if req.proxyURL == "" {
		req.proxyURL = requestBase(r)
	}
	req.proxyURL = strings.TrimSuffix(req.proxyURL, "/")
	return req, nil
}

// param looks a parameter up in the JSON body for POST, the query string
// otherwise. Body values may arrive as strings, numbers or booleans.
func (req *request) param(key string) string {
	if req.body != nil {
		if v, ok := req.body[key]; ok && v != nil {
			switch t := v.(type) {
			case string:
				return t
			case bool:
				if t {
					return "true"
				}
				return "false"
			default:
				return fmt.Sprint(t)
			}
		}
		return ""
	}
	return req.raw.URL.Query().Get(key)
}

func (req *request) boolParam(key string) bool {
	return strings.EqualFold(strings.TrimSpace(req.param(key)), "true")
}

// requestBase reconstructs the externally visible base URL of this service
// from the incoming request, for when no proxy URL was configured or passed.
func requestBase(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func corsHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func (s *Server) serveM3U(w http.ResponseWriter, r *http.Request) {
	corsHeaders(w)
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodGet, http.MethodPost:
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req, err := s.decodeRequest(r)
	if err != nil {
		apierr.WriteJSON(w, err)
		return
	}

	spec := playlist.FilterSpec{
		Wanted:   playlist.ParseGroupList(req.param("wanted_groups")),
		Unwanted: playlist.ParseGroupList(req.param("unwanted_groups")),
	}
	includeVOD := req.boolParam("include_vod")
	opts := playlist.Options{
		IncludeVOD:       includeVOD,
		ProxyBase:        req.proxyURL,
		ProxyEnabled:     !req.boolParam("nostreamproxy"),
		IncludeChannelID: req.boolParam("include_channel_id"),
		ChannelIDTag:     req.param("channel_id_tag"),
	}

	ctx := r.Context()
	auth, err := xtream.ValidateCredentials(ctx, httpclient.Default(), req.creds)
	if err != nil {
		apierr.WriteJSON(w, err)
		return
	}
	opts.Auth = auth

	categories, streams, err := xtream.FetchCatalog(ctx, req.creds, includeVOD, includeVOD)
	if err != nil {
		apierr.WriteJSON(w, err)
		return
	}

	resolve := func(ctx context.Context, seriesIDs []string) xtream.EpisodeMap {
		return xtream.ResolveEpisodes(ctx, req.creds, seriesIDs)
	}
	doc := playlist.Synthesize(ctx, categories, streams, spec, resolve, opts)

	filename := "LiveStream.m3u"
	if includeVOD {
		filename = "FullPlaylist.m3u"
	}
	w.Header().Set("Content-Type", "audio/x-scpls")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	_, _ = w.Write([]byte(doc))
}

func (s *Server) serveCategories(w http.ResponseWriter, r *http.Request) {
	corsHeaders(w)
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req, err := s.decodeRequest(r)
	if err != nil {
		apierr.WriteJSON(w, err)
		return
	}
	includeVOD := req.boolParam("include_vod")

	ctx := r.Context()
	if _, err := xtream.ValidateCredentials(ctx, httpclient.Default(), req.creds); err != nil {
		apierr.WriteJSON(w, err)
		return
	}
	// Categories only; the huge vod_streams/series lists are never requested.
	categories, _, err := xtream.FetchCatalog(ctx, req.creds, includeVOD, false)
	if err != nil {
		apierr.WriteJSON(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(categories)
}

func (s *Server) serveXMLTV(w http.ResponseWriter, r *http.Request) {
	corsHeaders(w)
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req, err := s.decodeRequest(r)
	if err != nil {
		apierr.WriteJSON(w, err)
		return
	}

	ctx := r.Context()
	if _, err := xtream.ValidateCredentials(ctx, httpclient.Default(), req.creds); err != nil {
		apierr.WriteJSON(w, err)
		return
	}
	doc, err := guide.Fetch(ctx, req.creds)
	if err != nil {
		apierr.WriteJSON(w, err)
		return
	}
	if req.proxyURL != "" {
		doc = guide.RewriteIcons(doc, req.proxyURL)
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("Content-Disposition", "attachment; filename=guide.xml")
	_, _ = w.Write(doc)
}
