// Package canonical normalizes URLs into a stable identity used for
// cross-index deduplication of search results.
package canonical

import (
	"net/url"
	"sort"
	"strings"

	"github.com/jmagar/pulse-sub007/internal/apperr"
)

// trackingParamPrefixes are query param name prefixes dropped during
// canonicalization.
var trackingParamPrefixes = []string{"utm_"}

// trackingParamNames are exact query param names dropped during
// canonicalization, on top of the prefix match above.
var trackingParamNames = map[string]bool{
	"fbclid":  true,
	"gclid":   true,
	"mc_cid":  true,
	"mc_eid":  true,
	"igshid":  true,
	"ref":     true,
	"ref_src": true,
}

func isTracking(name string) bool {
	if trackingParamNames[name] {
		return true
	}
	for _, p := range trackingParamPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// Canonicalize normalizes u into its canonical form: lowercased
// scheme+host, "www." stripped, fragment dropped, trailing slash
// stripped (except for an empty path), tracking query params removed,
// remaining params sorted by name then value. Canonicalization is
// idempotent: Canonicalize(Canonicalize(u)) == Canonicalize(u).
func Canonicalize(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", apperr.Wrap(apperr.KindInvalidInput, "malformed url", err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", apperr.New(apperr.KindInvalidInput, "url scheme must be http or https")
	}
	u.Scheme = scheme

	host := strings.ToLower(u.Host)
	host = stripDefaultPort(host, scheme)
	host = strings.TrimPrefix(host, "www.")
	u.Host = host

	u.Fragment = ""
	u.RawFragment = ""

	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
	if u.Path == "" {
		u.Path = "/"
	}

	q := u.Query()
	for name := range q {
		if isTracking(name) {
			q.Del(name)
		}
	}
	u.RawQuery = sortedQuery(q)

	return u.String(), nil
}

func stripDefaultPort(host, scheme string) string {
	defaultPort := map[string]string{"http": ":80", "https": ":443"}[scheme]
	if defaultPort != "" && strings.HasSuffix(host, defaultPort) {
		return strings.TrimSuffix(host, defaultPort)
	}
	return host
}

// sortedQuery re-serializes q with pairs sorted by name then value, so the
// resulting query string is independent of input param order.
func sortedQuery(q url.Values) string {
	if len(q) == 0 {
		return ""
	}
	type pair struct{ name, value string }
	var pairs []pair
	for name, values := range q {
		for _, v := range values {
			pairs = append(pairs, pair{name, v})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].name != pairs[j].name {
			return pairs[i].name < pairs[j].name
		}
		return pairs[i].value < pairs[j].value
	})

	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String()
}
