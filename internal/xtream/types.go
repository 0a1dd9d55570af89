// Package xtream speaks the Xtream Codes player_api.php protocol: credential
// validation, concurrent catalog aggregation, and per-series episode
// resolution. All results are request-scoped; nothing is cached.
package xtream

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ContentKind classifies a catalog entry. The upstream API does not label
// content kind itself; the fetcher tags every category and stream before
// merging. Closed set: URL building and playlist synthesis switch over it
// exhaustively.
type ContentKind int

const (
	KindLive ContentKind = iota
	KindVOD
	KindSeries
)

func (k ContentKind) String() string {
	switch k {
	case KindLive:
		return "live"
	case KindVOD:
		return "vod"
	case KindSeries:
		return "series"
	}
	return fmt.Sprintf("ContentKind(%d)", int(k))
}

func (k ContentKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// Category is one upstream category tagged with its content kind.
// Identity is ID scoped within Kind.
type Category struct {
	ID   string      `json:"category_id"`
	Name string      `json:"category_name"`
	Kind ContentKind `json:"content_type"`
}

// Stream is one live channel, VOD entry, or series entry. For series, ID
// holds the series_id and one Stream may expand into many playlist records.
type Stream struct {
	ID           string      `json:"stream_id"`
	Name         string      `json:"name"`
	CategoryID   string      `json:"category_id"`
	Kind         ContentKind `json:"content_type"`
	Icon         string      `json:"stream_icon,omitempty"`
	ContainerExt string      `json:"container_extension,omitempty"`
	EPGChannelID string      `json:"epg_channel_id,omitempty"`
	Added        string      `json:"added,omitempty"`
	Size         int64       `json:"size,omitempty"`
}

// Episode is one episode from a get_series_info response.
type Episode struct {
	ID           string
	EpisodeNum   int
	Title        string
	ContainerExt string
	Added        string
	Size         int64
}

// SeasonEpisodes maps a season key (usually a number, but the upstream is
// not strict about that) to its ordered episode list.
type SeasonEpisodes map[string][]Episode

// EpisodeMap maps series_id to its resolved seasons. Built once per request
// for the series that survived group filtering, discarded after synthesis.
type EpisodeMap map[string]SeasonEpisodes

// Credentials identifies one upstream account for the duration of a request.
type Credentials struct {
	BaseURL  string
	Username string
	Password string
}

// idStr coerces the loosely-typed IDs the upstream emits (sometimes JSON
// numbers, sometimes strings) into a canonical string.
func idStr(v interface{}) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatInt(int64(x), 10)
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	}
	return ""
}

// intFrom coerces a loosely-typed number; returns fallback when absent or
// unparseable.
func intFrom(v interface{}, fallback int) int {
	switch x := v.(type) {
	case float64:
		return int(x)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(x)); err == nil {
			return n
		}
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return int(n)
		}
	}
	return fallback
}

// int64From is intFrom for byte sizes.
func int64From(v interface{}) int64 {
	switch x := v.(type) {
	case float64:
		return int64(x)
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
			return n
		}
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
	}
	return 0
}
