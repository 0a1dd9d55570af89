package playlist

import (
	"context"
	"log"
	"strconv"
	"strings"

	"github.com/xtream2m3u/xtream2m3u/internal/proxy"
	"github.com/xtream2m3u/xtream2m3u/internal/xtream"
)

// ResolveFunc resolves episodes for the series that survived filtering.
// Injected so synthesis stays testable without an upstream.
type ResolveFunc func(ctx context.Context, seriesIDs []string) xtream.EpisodeMap

// Options carries the per-request synthesis settings.
type Options struct {
	Auth             *xtream.AuthInfo
	IncludeVOD       bool
	ProxyBase        string // base URL for image-proxy/stream-proxy rewriting
	ProxyEnabled     bool   // false = emit direct upstream URLs
	IncludeChannelID bool
	ChannelIDTag     string // attribute name for the channel id; default "channel-id"
}

// Synthesize produces the playlist document: a #EXTM3U header followed by
// one metadata line + one URL line per included record, in stream order.
// Series streams are pre-filtered before episode resolution and expand into
// one record per episode; series with no resolved episodes fall back to a
// single record keyed by the series id.
func Synthesize(ctx context.Context, categories []xtream.Category, streams []xtream.Stream, spec FilterSpec, resolve ResolveFunc, opts Options) string {
	filter := spec.Compile()
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	if opts.ChannelIDTag == "" {
		opts.ChannelIDTag = "channel-id"
	}

	episodes := xtream.EpisodeMap{}
	if opts.IncludeVOD && resolve != nil {
		var wantedSeries []string
		for _, s := range streams {
			if s.Kind != xtream.KindSeries {
				continue
			}
			catName := categoryName(names, s.CategoryID)
			if filter.Include(catName, groupTitle(s.Kind, catName)) {
				wantedSeries = append(wantedSeries, s.ID)
			}
		}
		if len(wantedSeries) > 0 {
			episodes = resolve(ctx, wantedSeries)
		}
	}

	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	included := 0
	for _, s := range streams {
		catName := categoryName(names, s.CategoryID)
		group := groupTitle(s.Kind, catName)
		if !filter.Include(catName, group) {
			continue
		}
		included++
		name := streamName(s)
		tags := recordTags(s, name, group, opts)

		switch s.Kind {
		case xtream.KindLive:
			writeRecord(&b, tags, name, s.Size, mediaURL(opts, xtream.KindLive, s.ID, "ts"))
		case xtream.KindVOD:
			writeRecord(&b, tags, name, s.Size, mediaURL(opts, xtream.KindVOD, s.ID, s.ContainerExt))
		case xtream.KindSeries:
			seasons := episodes[s.ID]
			if len(seasons) == 0 {
				writeRecord(&b, tags, name, 0, mediaURL(opts, xtream.KindSeries, s.ID, ""))
				continue
			}
			for _, season := range xtream.SortedSeasonKeys(seasons) {
				for _, ep := range seasons[season] {
					title := name + " - S" + pad2(season) + " - E" + pad2(strconv.Itoa(ep.EpisodeNum)) + " - " + ep.Title
					epTags := tags
					if ep.Added != "" {
						epTags = append(append([]string(nil), tags...), attr("added", ep.Added))
					}
					writeRecord(&b, epTags, title, ep.Size, mediaURL(opts, xtream.KindSeries, ep.ID, ep.ContainerExt))
				}
			}
		}
	}
	log.Printf("m3u: generated playlist with %d/%d streams included", included, len(streams))
	return b.String()
}

func categoryName(names map[string]string, categoryID string) string {
	if n, ok := names[categoryID]; ok && n != "" {
		return n
	}
	return "Uncategorized"
}

// groupTitle prefixes the category name by content kind so live, VOD, and
// series entries with identically named categories stay distinguishable.
func groupTitle(kind xtream.ContentKind, categoryName string) string {
	switch kind {
	case xtream.KindVOD:
		return "VOD - " + categoryName
	case xtream.KindSeries:
		return "Series - " + categoryName
	default:
		return categoryName
	}
}

func streamName(s xtream.Stream) string {
	if s.Name != "" {
		return s.Name
	}
	if s.Kind == xtream.KindSeries {
		return "Unknown Series"
	}
	return "Unknown"
}

func recordTags(s xtream.Stream, name, group string, opts Options) []string {
	tags := []string{
		attr("tvg-name", name),
		attr("group-title", group),
	}
	if s.Icon != "" {
		logo := s.Icon
		if opts.ProxyEnabled {
			logo = proxy.ImageURL(opts.ProxyBase, logo)
		}
		tags = append(tags, attr("tvg-logo", logo))
	}
	if opts.IncludeChannelID && s.EPGChannelID != "" {
		tags = append(tags, attr(opts.ChannelIDTag, s.EPGChannelID))
	}
	if s.Added != "" {
		tags = append(tags, attr("added", s.Added))
	}
	return tags
}

func mediaURL(opts Options, kind xtream.ContentKind, id, ext string) string {
	u := xtream.MediaURL(opts.Auth, kind, id, ext)
	if opts.ProxyEnabled {
		return proxy.StreamURL(opts.ProxyBase, u)
	}
	return u
}

// writeRecord emits one playlist record: the #EXTINF metadata line, an
// optional #EXTBYT size directive, then the media URL.
func writeRecord(b *strings.Builder, tags []string, display string, size int64, mediaURL string) {
	b.WriteString("#EXTINF:0 ")
	b.WriteString(strings.Join(tags, " "))
	b.WriteString(",")
	b.WriteString(display)
	b.WriteString("\n")
	if size > 0 {
		b.WriteString("#EXTBYT:")
		b.WriteString(strconv.FormatInt(size, 10))
		b.WriteString("\n")
	}
	b.WriteString(mediaURL)
	b.WriteString("\n")
}

func attr(key, value string) string {
	return key + "=\"" + value + "\""
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
