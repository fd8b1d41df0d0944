package naivehttp

import (
	"bytes"
	"net/http"
	"net/url"
)

const mimeJSON = "application/json"

// Request describes one outgoing exchange. It is immutable once built;
// accessors hand out copies.
type Request struct {
	method string
	url    *url.URL
	header http.Header
	body   []byte
}

// Method returns http.MethodGet or http.MethodPost.
func (r *Request) Method() string { return r.method }

// URL returns a copy of the target URL.
func (r *Request) URL() *url.URL {
	u := *r.url
	if r.url.User != nil {
		user := *r.url.User
		u.User = &user
	}
	return &u
}

// Header returns a copy of the request headers.
func (r *Request) Header() http.Header { return r.header.Clone() }

// Body returns a copy of the encoded body, or nil when there is none.
func (r *Request) Body() []byte {
	if r.body == nil {
		return nil
	}
	return bytes.Clone(r.body)
}

// BuildGet assembles a GET request. The query params are merged into uri and
// the headers are used verbatim.
func BuildGet(uri string, params, headers map[string]string) (*Request, error) {
	u, err := NormalizeURL(uri, params)
	if err != nil {
		return nil, err
	}
	h := make(http.Header, len(headers))
	applyHeaders(h, headers)
	return &Request{method: http.MethodGet, url: u, header: h}, nil
}

// BuildPost assembles a POST request with JSON Accept and Content-Type
// headers, which the caller's headers override. POST takes no query params;
// uri is used as given. A nil body sends no body. When encode is nil
// EncodeJSON is used.
func BuildPost(uri string, body Value, headers map[string]string, encode Encoder) (*Request, error) {
	u, err := NormalizeURL(uri, nil)
	if err != nil {
		return nil, err
	}

	h := make(http.Header, len(headers)+2)
	h.Set("Accept", mimeJSON)
	h.Set("Content-Type", mimeJSON)
	applyHeaders(h, headers)

	req := &Request{method: http.MethodPost, url: u, header: h}
	if body == nil {
		return req, nil
	}

	if encode == nil {
		encode = EncodeJSON
	}
	payload, err := encode(body)
	if err != nil {
		return nil, newEncodingError(err)
	}
	req.body = payload
	return req, nil
}

func applyHeaders(h http.Header, headers map[string]string) {
	for k, v := range headers {
		h.Set(k, v)
	}
}
