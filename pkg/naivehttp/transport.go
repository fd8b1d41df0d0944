package naivehttp

import (
	"context"
	"net/http"

	"github.com/samvad-hq/naivehttp/pkg/httpclient"
)

// Metadata is the response metadata delivered by a transport.
type Metadata struct {
	// StatusCode is zero when the transport has no HTTP status to report.
	StatusCode int
	Header     http.Header
	URL        string
}

// Completion receives the result of one exchange: body and metadata when a
// response arrived, err when the exchange itself failed.
type Completion func(body []byte, meta *Metadata, err error)

// Transport executes a request asynchronously. Implementations must return
// without waiting for the exchange and must call done exactly once.
type Transport interface {
	Perform(ctx context.Context, req *Request, done Completion)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req *Request, done Completion)

func (f TransportFunc) Perform(ctx context.Context, req *Request, done Completion) {
	f(ctx, req, done)
}

// NewTransport runs requests through client, one goroutine per exchange.
func NewTransport(client httpclient.Client) Transport {
	return &clientTransport{client: client}
}

type clientTransport struct {
	client httpclient.Client
}

func (t *clientTransport) Perform(ctx context.Context, req *Request, done Completion) {
	target := req.URL().String()
	hreq := httpclient.Request{
		Method: req.Method(),
		URL:    target,
		Header: req.Header(),
		Body:   req.Body(),
	}

	go func() {
		resp, err := t.client.Do(ctx, hreq)
		if resp == nil {
			done(nil, nil, err)
			return
		}
		done(resp.Body(), &Metadata{
			StatusCode: resp.StatusCode(),
			Header:     resp.Header(),
			URL:        target,
		}, err)
	}()
}
