package xtream

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// MediaURL builds the upstream playback URL for one catalog entry:
// {server}/{kind}/{username}/{password}/{id}.{ext}. The path segment for VOD
// is "movie", matching the upstream convention.
func MediaURL(auth *AuthInfo, kind ContentKind, id, ext string) string {
	var segment, defaultExt string
	switch kind {
	case KindLive:
		segment, defaultExt = "live", "ts"
	case KindVOD:
		segment, defaultExt = "movie", "mp4"
	case KindSeries:
		segment, defaultExt = "series", "mp4"
	default:
		segment, defaultExt = "live", "ts"
	}
	if ext == "" {
		ext = defaultExt
	}
	return fmt.Sprintf("%s/%s/%s/%s/%s.%s",
		strings.TrimSuffix(auth.ServerBase, "/"),
		segment,
		url.PathEscape(auth.Username),
		url.PathEscape(auth.Password),
		url.PathEscape(id),
		url.PathEscape(ext),
	)
}

// SortedSeasonKeys orders season keys numerically ascending; non-numeric
// keys sort after all numeric ones, lexicographically so output stays
// deterministic across runs.
func SortedSeasonKeys(m SeasonEpisodes) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		ni, iNum := seasonNum(keys[i])
		nj, jNum := seasonNum(keys[j])
		switch {
		case iNum && jNum:
			return ni < nj
		case iNum:
			return true
		case jNum:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}

func seasonNum(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	return n, err == nil
}
