package httpclient

import (
	"context"
	"net/http"
)

// Request is a fully formed outgoing request.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
	Header() http.Header
}

// Client abstracts HTTP calls so callers can inject mocks or different transports.
type Client interface {
	Do(ctx context.Context, req Request) (Response, error)
}
