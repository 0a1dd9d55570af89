package playlist

import "strings"

// FilterSpec is the caller-supplied group filter. When Wanted is non-empty,
// Unwanted is ignored entirely: inclusion mode takes priority over exclusion
// mode.
type FilterSpec struct {
	Wanted   []string
	Unwanted []string
}

// Compile lowercases the patterns once so per-stream matching does not
// re-lower them for every (stream, pattern) pair.
func (s FilterSpec) Compile() *Filter {
	return &Filter{
		wanted:   lowerAll(s.Wanted),
		unwanted: lowerAll(s.Unwanted),
	}
}

// Filter is a compiled FilterSpec.
type Filter struct {
	wanted   []string
	unwanted []string
}

// Include decides whether a stream belongs in the output. Both the raw
// category name and the content-kind-prefixed group title are tested so a
// filter value matches whether or not the caller anticipated the prefix.
func (f *Filter) Include(categoryName, groupTitle string) bool {
	if len(f.wanted) == 0 && len(f.unwanted) == 0 {
		return true
	}
	catLower := strings.ToLower(categoryName)
	groupLower := strings.ToLower(groupTitle)
	if len(f.wanted) > 0 {
		for _, p := range f.wanted {
			if matchLower(catLower, p) || matchLower(groupLower, p) {
				return true
			}
		}
		return false
	}
	for _, p := range f.unwanted {
		if matchLower(catLower, p) || matchLower(groupLower, p) {
			return false
		}
	}
	return true
}

func lowerAll(patterns []string) []string {
	if len(patterns) == 0 {
		return nil
	}
	out := make([]string, len(patterns))
	for i, p := range patterns {
		out[i] = strings.ToLower(p)
	}
	return out
}

// ParseGroupList splits a comma-separated pattern list, trimming whitespace
// and dropping empty entries.
func ParseGroupList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
