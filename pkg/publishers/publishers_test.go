package publishers

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRegistryEnabledFilter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publishers.yaml")
	raw := `
publishers:
  - id: http1
    type: http
    enabled: false
    http:
      url: https://example.com
  - id: http2
    type: http
    enabled: true
    http:
      url: https://example.com/2
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	enabled := reg.Enabled()
	if len(enabled) != 1 || enabled[0].ID != "http2" {
		t.Fatalf("expected only http2 enabled, got %#v", enabled)
	}
}

func TestValidatePublisherConfigRejectsMissingHTTP(t *testing.T) {
	err := validatePublisherConfig(PublisherConfig{
		ID:   "h1",
		Type: TypeHTTP,
	})
	if err == nil {
		t.Fatalf("expected validation error for missing http block")
	}
}

func TestValidatePublisherConfigPerType(t *testing.T) {
	cases := map[string]PublisherConfig{
		"sqs missing region": {ID: "q", Type: TypeSQS, SQS: &SQSPublisherConfig{QueueURL: "https://q"}},
		"sns missing topic":  {ID: "s", Type: TypeSNS, SNS: &SNSPublisherConfig{Region: "us-east-1"}},
		"pubsub no project":  {ID: "p", Type: TypeGCPPubSub, GCPPubSub: &GCPPubSubPublisherConfig{Topic: "t"}},
		"unknown type":       {ID: "k", Type: "kafka"},
		"missing id":         {Type: TypeHTTP, HTTP: &HTTPPublisherConfig{URL: "https://x"}},
	}
	for name, cfg := range cases {
		if err := validatePublisherConfig(cfg); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLoadRegistryJSONSanitizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publishers.json")
	raw := `{"publishers":[{"id":" sink ","type":"SNS","sns":{"topic_arn":" arn:aws:sns:us-east-1:1:t ","region":"us-east-1"}},
{"id":"hook","type":"http","http":{"url":"https://example.com","headers":{"X-Empty":" ","X-Key":"v"}}}]}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	sink, ok := reg.ByID("sink")
	if !ok || sink.Type != TypeSNS || sink.SNS.TopicARN != "arn:aws:sns:us-east-1:1:t" {
		t.Fatalf("sink = %#v", sink)
	}
	hook, _ := reg.ByID("hook")
	if hook.HTTP.TimeoutSeconds != httpDefaultTimeoutSeconds {
		t.Fatalf("timeout default not applied: %d", hook.HTTP.TimeoutSeconds)
	}
	if _, ok := hook.HTTP.Headers["X-Empty"]; ok || hook.HTTP.Headers["X-Key"] != "v" {
		t.Fatalf("headers not sanitized: %v", hook.HTTP.Headers)
	}
}
