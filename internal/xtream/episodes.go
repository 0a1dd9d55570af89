package xtream

import (
	"context"
	"encoding/json"
	"log"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/xtream2m3u/xtream2m3u/internal/httpclient"
	"github.com/xtream2m3u/xtream2m3u/internal/metrics"
)

const (
	// episodeConcurrency is lower than the catalog pool: a playlist request
	// may fan out to hundreds of series.
	episodeConcurrency = 5
	episodeTimeout     = 20 * time.Second
)

// episodePace rate-limits get_series_info calls so a large fan-out does not
// hammer the upstream.
var episodePace = rate.NewLimiter(rate.Every(200*time.Millisecond), episodeConcurrency)

// ResolveEpisodes fetches get_series_info for each series id and returns
// the resolved episode map. Callers must pre-filter: only series that
// survived the group filter belong here, since every id costs one upstream
// round-trip. Per-series failures yield no entry and never fail the batch.
func ResolveEpisodes(ctx context.Context, creds Credentials, seriesIDs []string) EpisodeMap {
	if len(seriesIDs) == 0 {
		return EpisodeMap{}
	}
	log.Printf("episodes: resolving %d series", len(seriesIDs))

	type slot struct {
		id       string
		episodes SeasonEpisodes
	}
	results := make([]slot, len(seriesIDs))
	client := httpclient.WithTimeout(episodeTimeout)

	var g errgroup.Group
	g.SetLimit(episodeConcurrency)
	for i, id := range seriesIDs {
		g.Go(func() error {
			if err := episodePace.Wait(ctx); err != nil {
				return nil
			}
			epCtx, cancel := context.WithTimeout(ctx, episodeTimeout)
			defer cancel()
			body, err := apiGet(epCtx, client, apiURL(creds, "get_series_info&series_id="+url.QueryEscape(id)))
			if err != nil {
				metrics.EpisodeFetchFailures.Inc()
				log.Printf("episodes: series %s failed: %v", id, err)
				return nil
			}
			episodes := decodeEpisodes(body)
			if len(episodes) == 0 {
				metrics.EpisodeFetchFailures.Inc()
				log.Printf("episodes: series %s has no episodes", id)
				return nil
			}
			results[i] = slot{id: id, episodes: episodes}
			return nil
		})
	}
	_ = g.Wait()

	out := make(EpisodeMap, len(seriesIDs))
	for _, r := range results {
		if r.id != "" {
			out[r.id] = r.episodes
		}
	}
	log.Printf("episodes: resolved %d/%d series", len(out), len(seriesIDs))
	return out
}

type episodeWire struct {
	ID                 interface{} `json:"id"`
	EpisodeNum         interface{} `json:"episode_num"`
	Title              string      `json:"title"`
	ContainerExtension string      `json:"container_extension"`
	Season             interface{} `json:"season"`
	Added              interface{} `json:"added"`
	Size               interface{} `json:"size"`
	Info               struct {
		Size interface{} `json:"size"`
	} `json:"info"`
}

// decodeEpisodes accepts the two shapes the upstream emits for the episodes
// field: a map keyed by season number, or a flat list where each episode
// carries its own season (defaulting to season 1 when absent).
func decodeEpisodes(body []byte) SeasonEpisodes {
	var payload struct {
		Episodes json.RawMessage `json:"episodes"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Episodes) == 0 {
		return nil
	}

	var bySeason map[string][]episodeWire
	if err := json.Unmarshal(payload.Episodes, &bySeason); err == nil {
		out := make(SeasonEpisodes, len(bySeason))
		for season, eps := range bySeason {
			out[season] = convertEpisodes(eps)
		}
		return pruneEmptySeasons(out)
	}

	var flat []episodeWire
	if err := json.Unmarshal(payload.Episodes, &flat); err != nil {
		return nil
	}
	out := make(SeasonEpisodes)
	for _, ep := range flat {
		season := strconv.Itoa(intFrom(ep.Season, 1))
		converted := convertEpisode(ep)
		if converted == nil {
			continue
		}
		out[season] = append(out[season], *converted)
	}
	return pruneEmptySeasons(out)
}

func convertEpisodes(wire []episodeWire) []Episode {
	out := make([]Episode, 0, len(wire))
	for _, ep := range wire {
		if conv := convertEpisode(ep); conv != nil {
			out = append(out, *conv)
		}
	}
	return out
}

func convertEpisode(ep episodeWire) *Episode {
	id := idStr(ep.ID)
	if id == "" {
		return nil
	}
	size := int64From(ep.Size)
	if size == 0 {
		size = int64From(ep.Info.Size)
	}
	return &Episode{
		ID:           id,
		EpisodeNum:   intFrom(ep.EpisodeNum, 0),
		Title:        ep.Title,
		ContainerExt: ep.ContainerExtension,
		Added:        idStr(ep.Added),
		Size:         size,
	}
}

func pruneEmptySeasons(m SeasonEpisodes) SeasonEpisodes {
	for season, eps := range m {
		if len(eps) == 0 {
			delete(m, season)
		}
	}
	if len(m) == 0 {
		return nil
	}
	return m
}
