package naivehttp

import (
	"context"
	"errors"
	"sync/atomic"
)

// SuccessHandler receives the body and metadata of a successful exchange.
type SuccessHandler func(body []byte, meta *Metadata)

// FailureHandler receives the single classified failure of an exchange.
type FailureHandler func(err *ClassifiedError)

// CompletionHandler receives every result slot of an exchange. On success
// err is nil; on failure body and meta carry whatever raw data arrived.
type CompletionHandler func(body []byte, meta *Metadata, err *ClassifiedError)

// Option configures a Client.
type Option func(*Client)

// WithEncoder replaces the JSON encoder used for POST bodies.
func WithEncoder(enc Encoder) Option {
	return func(c *Client) {
		if enc != nil {
			c.encode = enc
		}
	}
}

// WithLogger attaches a logger for debug traces of each exchange.
func WithLogger(log Logger) Option {
	return func(c *Client) { c.log = ensureLogger(log) }
}

// Client issues GET and POST exchanges over an injected Transport. It keeps
// no per-call state and is safe for concurrent use.
//
// Every call ends in exactly one handler invocation, always made off the
// calling goroutine. If ctx is done by the time the result is ready the
// invocation is suppressed instead.
type Client struct {
	transport Transport
	encode    Encoder
	log       Logger
}

// New returns a Client dispatching through t.
func New(t Transport, opts ...Option) (*Client, error) {
	if t == nil {
		return nil, errors.New("naivehttp: transport is required")
	}
	c := &Client{
		transport: t,
		encode:    EncodeJSON,
		log:       noopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get issues a GET and reports to onSuccess or onFailure. Either handler may
// be nil.
func (c *Client) Get(ctx context.Context, uri string, params, headers map[string]string, onSuccess SuccessHandler, onFailure FailureHandler) {
	req, err := BuildGet(uri, params, headers)
	c.exchange(ctx, req, err, split(onSuccess, onFailure))
}

// GetCombined issues a GET and reports to a single handler.
func (c *Client) GetCombined(ctx context.Context, uri string, params, headers map[string]string, onComplete CompletionHandler) {
	req, err := BuildGet(uri, params, headers)
	c.exchange(ctx, req, err, combined(onComplete))
}

// Post issues a JSON POST and reports to onSuccess or onFailure. Either
// handler may be nil. An unencodable body fails without contacting the
// transport.
func (c *Client) Post(ctx context.Context, uri string, body Value, headers map[string]string, onSuccess SuccessHandler, onFailure FailureHandler) {
	req, err := BuildPost(uri, body, headers, c.encode)
	c.exchange(ctx, req, err, split(onSuccess, onFailure))
}

// PostCombined issues a JSON POST and reports to a single handler.
func (c *Client) PostCombined(ctx context.Context, uri string, body Value, headers map[string]string, onComplete CompletionHandler) {
	req, err := BuildPost(uri, body, headers, c.encode)
	c.exchange(ctx, req, err, combined(onComplete))
}

func split(onSuccess SuccessHandler, onFailure FailureHandler) func(Outcome) {
	return func(o Outcome) {
		if o.Succeeded() {
			if onSuccess != nil {
				onSuccess(o.Body, o.Meta)
			}
			return
		}
		if onFailure != nil {
			onFailure(o.Err)
		}
	}
}

func combined(onComplete CompletionHandler) func(Outcome) {
	return func(o Outcome) {
		if onComplete != nil {
			onComplete(o.Body, o.Meta, o.Err)
		}
	}
}

// exchange performs one request, or short-circuits a build failure, and
// hands the single classified Outcome to deliver.
func (c *Client) exchange(ctx context.Context, req *Request, buildErr error, deliver func(Outcome)) {
	if ctx == nil {
		ctx = context.Background()
	}

	if buildErr != nil {
		ce, ok := AsClassified(buildErr)
		if !ok {
			ce = newEncodingError(buildErr)
		}
		c.log.DebugObj("naivehttp request rejected before dispatch", "naivehttp_request", map[string]any{
			"kind": ce.Kind.String(),
			"code": ce.Code,
		})
		go c.finish(ctx, Outcome{Err: ce}, deliver)
		return
	}

	c.log.DebugObj("naivehttp dispatch", "naivehttp_request", map[string]any{
		"method": req.Method(),
		"url":    req.URL().String(),
	})

	var completed atomic.Bool
	c.transport.Perform(ctx, req, func(body []byte, meta *Metadata, err error) {
		if !completed.CompareAndSwap(false, true) {
			c.log.WarnObj("naivehttp transport completed more than once", "naivehttp_request", map[string]any{
				"method": req.Method(),
				"url":    req.URL().String(),
			})
			return
		}
		go c.finish(ctx, Classify(body, meta, err), deliver)
	})
}

func (c *Client) finish(ctx context.Context, o Outcome, deliver func(Outcome)) {
	if ctx.Err() != nil {
		c.log.DebugObj("naivehttp completion suppressed", "naivehttp_cancel", map[string]any{
			"reason": ctx.Err().Error(),
		})
		return
	}
	if o.Err != nil {
		c.log.DebugObj("naivehttp exchange failed", "naivehttp_outcome", map[string]any{
			"kind":   o.Err.Kind.String(),
			"domain": o.Err.Domain,
			"code":   o.Err.Code,
		})
	}
	deliver(o)
}
