package publishers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/naivehttp/pkg/httpclient"
	"github.com/samvad-hq/naivehttp/pkg/naivehttp"
)

type httpPublisher struct {
	id      string
	url     string
	headers map[string]string
	client  *naivehttp.Client
	log     Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}

	log = ensureLogger(log)
	transport := naivehttp.NewTransport(httpclient.NewRestyClient(time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second))
	client, err := naivehttp.New(transport, naivehttp.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("publisher %q: %w", cfg.ID, err)
	}

	return &httpPublisher{
		id:      cfg.ID,
		url:     cfg.HTTP.URL,
		headers: cfg.HTTP.Headers,
		client:  client,
		log:     log,
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return TypeHTTP }
func (h *httpPublisher) Close() error { return nil }

// Publish POSTs the report as JSON and waits for the single completion.
func (h *httpPublisher) Publish(ctx context.Context, r Report) error {
	body, err := r.Value()
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	h.client.PostCombined(ctx, h.url, body, h.headers, func(resp []byte, meta *naivehttp.Metadata, cerr *naivehttp.ClassifiedError) {
		if cerr == nil {
			done <- nil
			return
		}
		if _, isStatus := naivehttp.IsHTTPStatus(cerr); isStatus {
			done <- fmt.Errorf("http response status %d: %s: %w", cerr.Code, readBodySnippet(resp), cerr)
			return
		}
		done <- fmt.Errorf("http request: %w", cerr)
	})

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func readBodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return strings.TrimSpace(string(body))
}
