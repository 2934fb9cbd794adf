package crawler

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

var repeatedSlashes = regexp.MustCompile(`/+`)

// Canonicalize normalizes a URL into the single form used as the dedup key
// everywhere in the system. It lowercases the scheme (defaulting to https)
// and host, strips a leading "www.", collapses repeated path separators,
// drops a single trailing slash on non-root paths, sorts query parameters by
// key, and removes the fragment. It is total: malformed input is normalized
// best-effort and never produces an error.
func Canonicalize(rawURL string) string {
	raw := strings.TrimSpace(rawURL)
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	// Scheme-less input like "www.example.com/p" parses with an empty Host
	// and the whole authority in Path; re-parse with the default scheme so
	// host normalization applies to it.
	if u.Scheme == "" && u.Host == "" && raw != "" {
		if reparsed, rerr := url.Parse("https://" + raw); rerr == nil && reparsed.Host != "" {
			u = reparsed
		}
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme == "" {
		scheme = "https"
	}

	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	path = repeatedSlashes.ReplaceAllString(path, "/")
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}

	out := url.URL{
		Scheme:   scheme,
		Host:     host,
		Path:     "",
		RawQuery: sortedQuery(u.RawQuery),
	}
	// Opaque assembly keeps the already-escaped path intact.
	return out.Scheme + "://" + out.Host + path + queryTail(out.RawQuery)
}

// DomainOf extracts the registrable domain used for allow-listing and robots
// lookups: the lowercased host minus a leading "www.".
func DomainOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Host)
	return strings.TrimPrefix(host, "www.")
}

type queryParam struct {
	key   string
	value string
}

// sortedQuery re-encodes a raw query with parameters ordered by key. Blank
// values survive the round trip; ordering among equal keys is preserved.
func sortedQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	params := parseQueryParams(rawQuery)
	sort.SliceStable(params, func(i, j int) bool {
		return params[i].key < params[j].key
	})
	var b strings.Builder
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String()
}

func parseQueryParams(rawQuery string) []queryParam {
	pieces := strings.Split(rawQuery, "&")
	params := make([]queryParam, 0, len(pieces))
	for _, piece := range pieces {
		if piece == "" {
			continue
		}
		key, value, _ := strings.Cut(piece, "=")
		if unescaped, err := url.QueryUnescape(key); err == nil {
			key = unescaped
		}
		if unescaped, err := url.QueryUnescape(value); err == nil {
			value = unescaped
		}
		params = append(params, queryParam{key: key, value: value})
	}
	return params
}

func queryTail(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	return "?" + rawQuery
}
