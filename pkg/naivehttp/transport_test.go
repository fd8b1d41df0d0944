package naivehttp

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/samvad-hq/naivehttp/pkg/httpclient"
)

func TestRestyTransportEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/items":
			if r.Method == http.MethodPost {
				raw, _ := io.ReadAll(r.Body)
				if string(raw) != `{"name":"sock"}` {
					t.Errorf("body = %s", raw)
				}
				if r.Header.Get("Content-Type") != "application/json" || r.Header.Get("Accept") != "application/json" {
					t.Errorf("headers = %v", r.Header)
				}
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(`{"id":7}`))
				return
			}
			if r.URL.Query().Get("q") != "socks" {
				t.Errorf("query = %s", r.URL.RawQuery)
			}
			w.Header().Set("X-Count", "2")
			_, _ = w.Write([]byte(`["a","b"]`))
		default:
			http.Error(w, "nope", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, NewTransport(httpclient.NewRestyClient(2*time.Second)))

	onSuccess, onFailure, ch := collect()
	c.Get(context.Background(), srv.URL+"/items", map[string]string{"q": "socks"}, nil, onSuccess, onFailure)
	r := await(t, ch)
	if r.kind != "success" || string(r.body) != `["a","b"]` {
		t.Fatalf("GET result %#v", r)
	}
	if r.meta.StatusCode != http.StatusOK || r.meta.Header.Get("X-Count") != "2" {
		t.Fatalf("GET meta %#v", r.meta)
	}

	onComplete, cch := collectCombined()
	c.PostCombined(context.Background(), srv.URL+"/items", Object{"name": String("sock")}, nil, onComplete)
	r = await(t, cch)
	if r.err != nil || r.meta.StatusCode != http.StatusCreated || string(r.body) != `{"id":7}` {
		t.Fatalf("POST result %#v", r)
	}

	c.GetCombined(context.Background(), srv.URL+"/missing", nil, nil, onComplete)
	r = await(t, cch)
	if code, ok := IsHTTPStatus(r.err); !ok || code != http.StatusNotFound {
		t.Fatalf("expected 404, got %#v", r.err)
	}
	if r.meta == nil || len(r.body) == 0 {
		t.Fatalf("raw response not delivered with failure: %#v", r)
	}
}

func TestRestyTransportConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c := newTestClient(t, NewTransport(httpclient.NewRestyClient(time.Second)))
	onSuccess, onFailure, ch := collect()
	c.Get(context.Background(), addr, nil, nil, onSuccess, onFailure)

	r := await(t, ch)
	if r.kind != "failure" || !IsTransport(r.err) {
		t.Fatalf("expected transport failure, got %#v", r)
	}
}
