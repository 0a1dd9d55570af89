package xtream

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xtream2m3u/xtream2m3u/internal/apierr"
	"github.com/xtream2m3u/xtream2m3u/internal/httpclient"
	"github.com/xtream2m3u/xtream2m3u/internal/metrics"
)

// fetchConcurrency bounds the catalog endpoint worker pool.
const fetchConcurrency = 10

type endpointSpec struct {
	name      string
	action    string
	timeout   time.Duration
	kind      ContentKind
	category  bool // category list vs stream list
	mandatory bool
}

type endpointResult struct {
	body []byte
	err  error
}

// FetchCatalog fetches all relevant player_api.php endpoints concurrently and
// merges the results into kind-tagged categories and streams.
//
// Live categories and live streams are mandatory; any other endpoint failing
// or returning a non-list silently contributes nothing. includeSeriesStreams
// is only set on the playlist path: the vod_streams/series lists are an order
// of magnitude larger than the category lists and must not be fetched when
// only categories are requested.
func FetchCatalog(ctx context.Context, creds Credentials, includeVOD, includeSeriesStreams bool) ([]Category, []Stream, error) {
	endpoints := []endpointSpec{
		{name: "live_categories", action: "get_live_categories", timeout: 60 * time.Second, kind: KindLive, category: true, mandatory: true},
		{name: "live_streams", action: "get_live_streams", timeout: 180 * time.Second, kind: KindLive, mandatory: true},
	}
	if includeVOD {
		endpoints = append(endpoints,
			endpointSpec{name: "vod_categories", action: "get_vod_categories", timeout: 60 * time.Second, kind: KindVOD, category: true},
			endpointSpec{name: "series_categories", action: "get_series_categories", timeout: 60 * time.Second, kind: KindSeries, category: true},
		)
		if includeSeriesStreams {
			endpoints = append(endpoints,
				endpointSpec{name: "vod_streams", action: "get_vod_streams", timeout: 240 * time.Second, kind: KindVOD},
				endpointSpec{name: "series", action: "get_series", timeout: 240 * time.Second, kind: KindSeries},
			)
		}
	}

	// One result slot per endpoint; workers never share state and never
	// cancel each other. A failed endpoint only marks its own slot, and the
	// group waits for every worker regardless.
	results := make([]endpointResult, len(endpoints))
	var g errgroup.Group
	g.SetLimit(fetchConcurrency)
	for i, ep := range endpoints {
		g.Go(func() error {
			start := time.Now()
			epCtx, cancel := context.WithTimeout(ctx, ep.timeout)
			defer cancel()
			body, err := apiGet(epCtx, httpclient.WithTimeout(ep.timeout), apiURL(creds, ep.action))
			results[i] = endpointResult{body: body, err: err}
			if err != nil {
				metrics.CatalogEndpointFailures.WithLabelValues(ep.name).Inc()
				log.Printf("fetch: %s failed after %s: %v", ep.name, time.Since(start).Round(time.Millisecond), err)
			} else {
				log.Printf("fetch: %s done in %s (%d bytes)", ep.name, time.Since(start).Round(time.Millisecond), len(body))
			}
			return nil
		})
	}
	_ = g.Wait()

	var categories []Category
	var streams []Stream
	for i, ep := range endpoints {
		res := results[i]
		if ep.mandatory {
			if res.err != nil {
				return nil, nil, res.err
			}
		} else if res.err != nil {
			continue
		}
		if ep.category {
			cats, err := decodeCategories(res.body, ep.kind)
			if err != nil {
				if ep.mandatory {
					return nil, nil, apierr.New(apierr.InvalidCatalogFormat, "%s data is not in the expected format", ep.name)
				}
				continue
			}
			categories = append(categories, cats...)
		} else {
			st, err := decodeStreams(res.body, ep.kind)
			if err != nil {
				if ep.mandatory {
					return nil, nil, apierr.New(apierr.InvalidCatalogFormat, "%s data is not in the expected format", ep.name)
				}
				continue
			}
			streams = append(streams, st...)
		}
	}
	log.Printf("fetch: aggregated %d categories and %d streams", len(categories), len(streams))
	return categories, streams, nil
}

func decodeCategories(body []byte, kind ContentKind) ([]Category, error) {
	var wire []struct {
		CategoryID   interface{} `json:"category_id"`
		CategoryName string      `json:"category_name"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, err
	}
	out := make([]Category, 0, len(wire))
	for _, c := range wire {
		id := idStr(c.CategoryID)
		if id == "" {
			continue
		}
		out = append(out, Category{ID: id, Name: c.CategoryName, Kind: kind})
	}
	return out, nil
}

func decodeStreams(body []byte, kind ContentKind) ([]Stream, error) {
	var wire []struct {
		StreamID           interface{} `json:"stream_id"`
		SeriesID           interface{} `json:"series_id"`
		Name               string      `json:"name"`
		CategoryID         interface{} `json:"category_id"`
		StreamIcon         string      `json:"stream_icon"`
		Cover              string      `json:"cover"`
		ContainerExtension string      `json:"container_extension"`
		EPGChannelID       interface{} `json:"epg_channel_id"`
		Added              interface{} `json:"added"`
		Size               interface{} `json:"size"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, err
	}
	out := make([]Stream, 0, len(wire))
	for _, s := range wire {
		id := idStr(s.StreamID)
		if kind == KindSeries {
			id = idStr(s.SeriesID)
		}
		if id == "" {
			continue
		}
		icon := s.StreamIcon
		if icon == "" {
			icon = s.Cover
		}
		out = append(out, Stream{
			ID:           id,
			Name:         s.Name,
			CategoryID:   idStr(s.CategoryID),
			Kind:         kind,
			Icon:         icon,
			ContainerExt: s.ContainerExtension,
			EPGChannelID: idStr(s.EPGChannelID),
			Added:        idStr(s.Added),
			Size:         int64From(s.Size),
		})
	}
	return out, nil
}
