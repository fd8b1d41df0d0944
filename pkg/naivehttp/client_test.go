package naivehttp

import (
	"context"
	"errors"
	"math"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeTransport records requests and completes them with a canned result.
type fakeTransport struct {
	mu       sync.Mutex
	requests []*Request
	body     []byte
	meta     *Metadata
	err      error
	repeat   int
}

func (f *fakeTransport) Perform(_ context.Context, req *Request, done Completion) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	go func() {
		for i := 0; i <= f.repeat; i++ {
			done(f.body, f.meta, f.err)
		}
	}()
}

func (f *fakeTransport) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func newTestClient(t *testing.T, tr Transport, opts ...Option) *Client {
	t.Helper()
	c, err := New(tr, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

type result struct {
	body []byte
	meta *Metadata
	err  *ClassifiedError
	kind string
}

// collect wires split handlers into a channel.
func collect() (SuccessHandler, FailureHandler, chan result) {
	ch := make(chan result, 4)
	onSuccess := func(body []byte, meta *Metadata) { ch <- result{body: body, meta: meta, kind: "success"} }
	onFailure := func(err *ClassifiedError) { ch <- result{err: err, kind: "failure"} }
	return onSuccess, onFailure, ch
}

func collectCombined() (CompletionHandler, chan result) {
	ch := make(chan result, 4)
	return func(body []byte, meta *Metadata, err *ClassifiedError) {
		ch <- result{body: body, meta: meta, err: err, kind: "combined"}
	}, ch
}

func await(t *testing.T, ch chan result) result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatalf("handler not invoked")
	}
	return result{}
}

func assertNoMore(t *testing.T, ch chan result) {
	t.Helper()
	select {
	case r := <-ch:
		t.Fatalf("unexpected extra invocation %#v", r)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNewRequiresTransport(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatalf("expected error for nil transport")
	}
}

func TestGetSplitSuccess(t *testing.T) {
	meta := &Metadata{StatusCode: http.StatusOK}
	tr := &fakeTransport{body: []byte(`[]`), meta: meta}
	c := newTestClient(t, tr)
	onSuccess, onFailure, ch := collect()

	c.Get(context.Background(), "https://api.example.com/items", map[string]string{"q": "socks"}, nil, onSuccess, onFailure)

	r := await(t, ch)
	if r.kind != "success" || string(r.body) != "[]" || r.meta != meta {
		t.Fatalf("unexpected result %#v", r)
	}
	assertNoMore(t, ch)

	req := tr.requests[0]
	if req.Method() != http.MethodGet || req.URL().String() != "https://api.example.com/items?q=socks" || req.Body() != nil {
		t.Fatalf("transport got %s %s", req.Method(), req.URL())
	}
}

func TestGetCombinedStatusFailureCarriesRawSlots(t *testing.T) {
	meta := &Metadata{StatusCode: http.StatusNotFound}
	tr := &fakeTransport{body: []byte("not here"), meta: meta}
	c := newTestClient(t, tr)
	onComplete, ch := collectCombined()

	c.GetCombined(context.Background(), "https://api.example.com/items/9", nil, nil, onComplete)

	r := await(t, ch)
	if code, ok := IsHTTPStatus(r.err); !ok || code != 404 {
		t.Fatalf("expected 404 failure, got %#v", r.err)
	}
	if string(r.body) != "not here" || r.meta != meta {
		t.Fatalf("raw slots missing: %#v", r)
	}
	assertNoMore(t, ch)
}

func TestPostSplitScenario(t *testing.T) {
	tr := &fakeTransport{body: []byte(`{"id":1}`), meta: &Metadata{StatusCode: http.StatusCreated}}
	c := newTestClient(t, tr)
	onSuccess, onFailure, ch := collect()

	c.Post(context.Background(), "https://api.example.com/items", Object{"name": String("sock")}, nil, onSuccess, onFailure)

	if r := await(t, ch); r.kind != "success" {
		t.Fatalf("unexpected result %#v", r)
	}
	req := tr.requests[0]
	h := req.Header()
	if h.Get("Accept") != "application/json" || h.Get("Content-Type") != "application/json" {
		t.Fatalf("headers = %v", h)
	}
	if string(req.Body()) != `{"name":"sock"}` {
		t.Fatalf("body = %s", req.Body())
	}
}

func TestPostUnencodableBodyNeverReachesTransport(t *testing.T) {
	tr := &fakeTransport{meta: &Metadata{StatusCode: 200}}
	c := newTestClient(t, tr)
	onSuccess, onFailure, ch := collect()

	c.Post(context.Background(), "https://api.example.com/items", Object{"n": Number(math.NaN())}, nil, onSuccess, onFailure)

	r := await(t, ch)
	if r.kind != "failure" || !IsBodyEncoding(r.err) || r.err.Code != CodeBodyEncoding {
		t.Fatalf("expected body encoding failure, got %#v", r)
	}
	assertNoMore(t, ch)
	if tr.calls() != 0 {
		t.Fatalf("transport invoked %d times", tr.calls())
	}
}

func TestPostCombinedEncodingFailure(t *testing.T) {
	tr := &fakeTransport{}
	c := newTestClient(t, tr, WithEncoder(func(Value) ([]byte, error) { return nil, errors.New("nope") }))
	onComplete, ch := collectCombined()

	c.PostCombined(context.Background(), "https://example.com", String("x"), nil, onComplete)

	r := await(t, ch)
	if r.body != nil || r.meta != nil || !IsBodyEncoding(r.err) {
		t.Fatalf("unexpected result %#v", r)
	}
	if tr.calls() != 0 {
		t.Fatalf("transport invoked")
	}
}

func TestMalformedURLRoutesToFailure(t *testing.T) {
	tr := &fakeTransport{}
	c := newTestClient(t, tr)
	onSuccess, onFailure, ch := collect()

	c.Get(context.Background(), "no scheme here", nil, nil, onSuccess, onFailure)

	r := await(t, ch)
	if r.kind != "failure" || r.err.Kind != KindMalformedURL {
		t.Fatalf("unexpected result %#v", r)
	}
	if tr.calls() != 0 {
		t.Fatalf("transport invoked")
	}
}

func TestTransportErrorReachesFailureHandlerUnchanged(t *testing.T) {
	cause := errors.New("tls: handshake failure")
	c := newTestClient(t, &fakeTransport{err: cause})
	onSuccess, onFailure, ch := collect()

	c.Get(context.Background(), "https://example.com", nil, nil, onSuccess, onFailure)

	r := await(t, ch)
	if r.kind != "failure" || !errors.Is(r.err, cause) || r.err.Error() != cause.Error() {
		t.Fatalf("unexpected result %#v", r)
	}
}

func TestAbsentHandlersAreSkipped(t *testing.T) {
	var done sync.WaitGroup
	done.Add(2)
	tr := TransportFunc(func(_ context.Context, _ *Request, complete Completion) {
		go func() {
			defer done.Done()
			complete([]byte("ok"), &Metadata{StatusCode: 200}, nil)
		}()
	})
	c := newTestClient(t, tr)

	var failures atomic.Int32
	c.Get(context.Background(), "https://example.com", nil, nil, nil, func(*ClassifiedError) { failures.Add(1) })
	c.PostCombined(context.Background(), "https://example.com", nil, nil, nil)
	done.Wait()
	time.Sleep(50 * time.Millisecond)

	if failures.Load() != 0 {
		t.Fatalf("failure handler invoked on success")
	}

	// Failure branch with no failure handler.
	c2 := newTestClient(t, &fakeTransport{meta: &Metadata{StatusCode: 500}})
	var successes atomic.Int32
	c2.Get(context.Background(), "https://example.com", nil, nil, func([]byte, *Metadata) { successes.Add(1) }, nil)
	time.Sleep(50 * time.Millisecond)
	if successes.Load() != 0 {
		t.Fatalf("success handler invoked on failure")
	}
}

func TestDuplicateTransportCompletionDeliveredOnce(t *testing.T) {
	tr := &fakeTransport{body: []byte("x"), meta: &Metadata{StatusCode: 200}, repeat: 2}
	c := newTestClient(t, tr)
	onComplete, ch := collectCombined()

	c.GetCombined(context.Background(), "https://example.com", nil, nil, onComplete)

	if r := await(t, ch); r.err != nil {
		t.Fatalf("unexpected failure %v", r.err)
	}
	assertNoMore(t, ch)
}

func TestExactlyOnceAcrossOutcomes(t *testing.T) {
	transports := []Transport{
		&fakeTransport{body: []byte("a"), meta: &Metadata{StatusCode: 200}},
		&fakeTransport{body: []byte("b"), meta: &Metadata{StatusCode: 400}},
		&fakeTransport{err: errors.New("reset")},
		&fakeTransport{},
	}
	for _, tr := range transports {
		c := newTestClient(t, tr)
		onSuccess, onFailure, ch := collect()
		c.Get(context.Background(), "https://example.com", nil, nil, onSuccess, onFailure)
		await(t, ch)
		assertNoMore(t, ch)

		onComplete, cch := collectCombined()
		c.PostCombined(context.Background(), "https://example.com", Bool(true), nil, onComplete)
		await(t, cch)
		assertNoMore(t, cch)
	}
}

func TestCancelledContextSuppressesHandlers(t *testing.T) {
	release := make(chan struct{})
	finished := make(chan struct{})
	tr := TransportFunc(func(_ context.Context, _ *Request, done Completion) {
		go func() {
			<-release
			done([]byte("late"), &Metadata{StatusCode: 200}, nil)
			close(finished)
		}()
	})
	c := newTestClient(t, tr)
	onSuccess, onFailure, ch := collect()

	ctx, cancel := context.WithCancel(context.Background())
	c.Get(ctx, "https://example.com", nil, nil, onSuccess, onFailure)
	cancel()
	close(release)
	<-finished

	assertNoMore(t, ch)
}

func TestCallerIsNeverBlocked(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	tr := TransportFunc(func(_ context.Context, _ *Request, done Completion) {
		go func() {
			<-block
			done(nil, &Metadata{StatusCode: 200}, nil)
		}()
	})
	c := newTestClient(t, tr)

	returned := make(chan struct{})
	go func() {
		c.Get(context.Background(), "https://example.com", nil, nil, nil, nil)
		c.Post(context.Background(), "https://example.com", Number(math.Inf(1)), nil, func([]byte, *Metadata) {
			<-block
		}, func(*ClassifiedError) {
			<-block
		})
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatalf("client call blocked the caller")
	}
}

func TestSynchronousTransportStillDeliversAsync(t *testing.T) {
	block := make(chan struct{})
	tr := TransportFunc(func(_ context.Context, _ *Request, done Completion) {
		done([]byte("now"), &Metadata{StatusCode: 200}, nil)
	})
	c := newTestClient(t, tr)

	delivered := make(chan string, 1)
	returned := make(chan struct{})
	go func() {
		c.Get(context.Background(), "https://example.com", nil, nil, func(body []byte, _ *Metadata) {
			<-block
			delivered <- string(body)
		}, nil)
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatalf("handler ran on the calling goroutine")
	}
	close(block)
	select {
	case got := <-delivered:
		if got != "now" {
			t.Fatalf("body = %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("handler not invoked")
	}
}

type recordingLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (l *recordingLogger) add(msg string) {
	l.mu.Lock()
	l.msgs = append(l.msgs, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) InfoObj(msg, _ string, _ interface{})  { l.add(msg) }
func (l *recordingLogger) DebugObj(msg, _ string, _ interface{}) { l.add(msg) }
func (l *recordingLogger) WarnObj(msg, _ string, _ interface{})  { l.add(msg) }
func (l *recordingLogger) ErrorObj(msg, _ string, _ interface{}) { l.add(msg) }

func TestWithLoggerTracesDispatch(t *testing.T) {
	log := &recordingLogger{}
	c := newTestClient(t, &fakeTransport{meta: &Metadata{StatusCode: 200}}, WithLogger(log))
	onComplete, ch := collectCombined()
	c.GetCombined(context.Background(), "https://example.com", nil, nil, onComplete)
	await(t, ch)

	log.mu.Lock()
	defer log.mu.Unlock()
	if len(log.msgs) == 0 || log.msgs[0] != "naivehttp dispatch" {
		t.Fatalf("expected dispatch trace, got %v", log.msgs)
	}
}
