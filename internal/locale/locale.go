// Package locale resolves the UI language for incoming requests and
// maps paths to and from their locale prefix.
package locale

import (
	"sort"
	"strconv"
	"strings"
)

// Resolver negotiates a supported locale for a request. Priority order:
// persisted cookie, Accept-Language weights, configured default.
type Resolver struct {
	supported []string
	fallback  string
}

func NewResolver(supported []string, fallback string) *Resolver {
	return &Resolver{supported: supported, fallback: fallback}
}

func (r *Resolver) Default() string {
	return r.fallback
}

// Supported reports whether the given tag is a configured locale.
func (r *Resolver) Supported(tag string) bool {
	for _, l := range r.supported {
		if l == tag {
			return true
		}
	}

	return false
}

// Resolve picks the locale for a request. cookieValue is the persisted
// preference ("" when absent), acceptLanguage the raw header value.
func (r *Resolver) Resolve(cookieValue string, acceptLanguage string) string {
	if cookieValue != "" && r.Supported(cookieValue) {
		return cookieValue
	}

	for _, candidate := range parseAcceptLanguage(acceptLanguage) {
		if match := r.matchTag(candidate.tag); match != "" {
			return match
		}
	}

	return r.fallback
}

// matchTag matches exactly or by prefix relation in either direction,
// so "en" satisfies "en-US" and "en-US" satisfies "en".
func (r *Resolver) matchTag(tag string) string {
	for _, l := range r.supported {
		if tag == l || strings.HasPrefix(tag, l+"-") || strings.HasPrefix(l, tag+"-") {
			return l
		}
	}

	return ""
}

type weightedTag struct {
	tag    string
	weight float64
}

// parseAcceptLanguage splits an Accept-Language header into tags sorted
// by descending q weight. A missing weight defaults to 1; ties keep
// header order.
func parseAcceptLanguage(header string) []weightedTag {
	if strings.TrimSpace(header) == "" {
		return nil
	}

	parts := strings.Split(header, ",")
	tags := make([]weightedTag, 0, len(parts))
	for _, part := range parts {
		entry := strings.TrimSpace(part)
		if entry == "" {
			continue
		}

		tag := entry
		weight := 1.0
		if idx := strings.Index(entry, ";"); idx >= 0 {
			tag = strings.TrimSpace(entry[:idx])
			params := strings.TrimSpace(entry[idx+1:])
			if q, ok := strings.CutPrefix(params, "q="); ok {
				parsed, err := strconv.ParseFloat(strings.TrimSpace(q), 64)
				if err == nil {
					weight = parsed
				}
			}
		}

		if tag == "" {
			continue
		}
		tags = append(tags, weightedTag{tag: tag, weight: weight})
	}

	sort.SliceStable(tags, func(i, j int) bool {
		return tags[i].weight > tags[j].weight
	})

	return tags
}

// SplitPath extracts a leading locale segment from path. It returns the
// locale ("" when the path carries none) and the path with the segment
// stripped, always starting with "/".
func (r *Resolver) SplitPath(path string) (string, string) {
	trimmed := strings.TrimPrefix(path, "/")
	segment, rest, _ := strings.Cut(trimmed, "/")
	if segment == "" || !r.Supported(segment) {
		return "", path
	}

	if rest == "" {
		return segment, "/"
	}

	return segment, "/" + rest
}

// WithLocale prefixes path with the given locale segment.
func WithLocale(loc string, path string) string {
	if path == "" || path == "/" {
		return "/" + loc
	}

	return "/" + loc + "/" + strings.TrimPrefix(path, "/")
}

// LoginPath is the locale-aware login page.
func LoginPath(loc string) string {
	return "/" + loc + "/login"
}
