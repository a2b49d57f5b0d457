// Package canon normalises URLs into their canonical form for
// deduplication. Canonicalisation is deterministic: the same input yields
// a byte-identical output on every run, so canonical URLs are safe to use
// as unique keys in the content store.
package canon

import (
	"log/slog"
	"net/url"
	"sort"
	"strings"
)

// trackingParams is the closed set of query parameters that never change
// the resource being addressed: campaign tags, ad-click identifiers and
// session tokens. They are stripped during canonicalisation.
var trackingParams = map[string]struct{}{
	// UTM campaign tags.
	"utm_source": {}, "utm_medium": {}, "utm_campaign": {},
	"utm_term": {}, "utm_content": {},
	// Ad and share click identifiers.
	"fbclid": {}, "gclid": {}, "dclid": {}, "msclkid": {}, "igshid": {},
	"mc_cid": {}, "mc_eid": {}, "ref": {}, "referrer": {}, "source": {},
	"cmpid": {}, "ncid": {}, "ocid": {}, "spm": {}, "sr_share": {},
	// Session tokens.
	"sid": {}, "sessionid": {}, "session_id": {}, "phpsessid": {},
	"jsessionid": {}, "s_cid": {},
}

// Canonicalise normalises a URL: lowercases scheme and host, strips a
// leading "www.", collapses an empty path to "/", strips one trailing
// slash from non-root paths, drops the fragment, removes tracking
// parameters and sorts the survivors. Query values are reduced to the
// first value per key.
//
// A malformed URL is returned unchanged; dedup then falls back to exact
// string equality, which is safe if overly strict.
func Canonicalise(raw string) string {
	if raw == "" {
		return raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		slog.Warn("canon: unparseable URL left as-is", "url", raw, "error", err)
		return raw
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" || parsed.Host == "" {
		return raw
	}
	parsed.Scheme = scheme

	host := strings.ToLower(parsed.Host)
	host = strings.TrimPrefix(host, "www.")
	parsed.Host = host

	switch parsed.Path {
	case "", "/":
		parsed.Path = "/"
	default:
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}

	parsed.Fragment = ""
	parsed.RawFragment = ""
	parsed.RawQuery = encodeQuery(parsed.Query())

	return parsed.String()
}

// encodeQuery keeps the first value per key, drops tracking parameters
// and re-encodes in lexicographic key order.
func encodeQuery(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if _, tracked := trackingParams[strings.ToLower(k)]; tracked {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)

	var buf strings.Builder
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte('&')
		}
		buf.WriteString(url.QueryEscape(k))
		buf.WriteByte('=')
		buf.WriteString(url.QueryEscape(params.Get(k)))
	}
	return buf.String()
}

// ApplyCanonicalLink resolves a rel="canonical" href against the page it
// was found on and canonicalises the result. The declared canonical
// supersedes the fetched URL. An unresolvable href falls back to
// canonicalising the page URL itself.
func ApplyCanonicalLink(pageURL, href string) string {
	if strings.TrimSpace(href) == "" {
		return Canonicalise(pageURL)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		slog.Warn("canon: unparseable page URL for canonical link", "url", pageURL, "error", err)
		return Canonicalise(pageURL)
	}
	rel, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		slog.Warn("canon: unparseable canonical href ignored", "href", href, "error", err)
		return Canonicalise(pageURL)
	}
	return Canonicalise(base.ResolveReference(rel).String())
}

// IsHTTP reports whether raw parses as an absolute http or https URL with
// a host. Discovery uses it to drop mailto:, javascript: and relative
// noise before queueing.
func IsHTTP(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(parsed.Scheme)
	return (scheme == "http" || scheme == "https") && parsed.Host != ""
}

// Host returns the lowercased host (with any "www." prefix removed) of an
// absolute URL, or "" when raw does not parse.
func Host(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
}
