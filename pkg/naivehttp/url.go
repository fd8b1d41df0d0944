package naivehttp

import (
	"errors"
	"net/url"
	"strings"
)

// NormalizeURL builds a request URL from base and optional query params.
//
// Params are merged into any query already present on base. A param key
// replaces every existing value for that key, and the merged query is
// re-encoded in sorted key order, so each supplied key appears exactly once
// and the result does not depend on map iteration order.
//
// Without params base is returned as parsed, query untouched. With params
// the existing query must also parse as url.ParseQuery accepts it, so a
// query using ';' separators is rejected as malformed rather than
// silently losing the pairs ParseQuery skips.
func NormalizeURL(base string, params map[string]string) (*url.URL, error) {
	raw := strings.TrimSpace(base)
	u, err := url.Parse(raw)
	if err != nil {
		return nil, newMalformedURLError(base, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, newMalformedURLError(base, errors.New("url must be absolute with scheme and host"))
	}
	if len(params) == 0 {
		return u, nil
	}

	query, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return nil, newMalformedURLError(base, err)
	}
	for k, v := range params {
		query.Set(k, v)
	}
	u.RawQuery = query.Encode()
	u.ForceQuery = false

	// Round-trip the result so a merge can never hand the transport an
	// unparseable URL.
	out, err := url.Parse(u.String())
	if err != nil {
		return nil, newMalformedURLError(base, err)
	}
	return out, nil
}
