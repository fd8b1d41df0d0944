package inspect

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samvad-hq/naivehttp/pkg/naivehttp"
)

const maxTitleLen = 120

// Summarize describes a response body in one line for logs and reports.
func Summarize(body []byte, meta *naivehttp.Metadata) string {
	if len(body) == 0 {
		return "empty body"
	}

	mediaType := contentType(meta)
	switch {
	case isJSON(mediaType, body):
		return summarizeJSON(body)
	case isHTML(mediaType, body):
		return summarizeHTML(body)
	case mediaType != "":
		return fmt.Sprintf("%s, %d bytes", mediaType, len(body))
	default:
		return fmt.Sprintf("%d bytes", len(body))
	}
}

func contentType(meta *naivehttp.Metadata) string {
	if meta == nil || meta.Header == nil {
		return ""
	}
	raw := meta.Header.Get("Content-Type")
	if raw == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(raw))
	}
	return mediaType
}

func isJSON(mediaType string, body []byte) bool {
	if mediaType == "application/json" || strings.HasSuffix(mediaType, "+json") {
		return true
	}
	if mediaType != "" {
		return false
	}
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}

func isHTML(mediaType string, body []byte) bool {
	if mediaType == "text/html" || mediaType == "application/xhtml+xml" {
		return true
	}
	if mediaType != "" {
		return false
	}
	head := bytes.ToLower(bytes.TrimSpace(body))
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html"))
}

func summarizeJSON(body []byte) string {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return fmt.Sprintf("invalid json, %d bytes", len(body))
	}
	switch t := raw.(type) {
	case map[string]any:
		return fmt.Sprintf("json object with %d keys, %d bytes", len(t), len(body))
	case []any:
		return fmt.Sprintf("json array with %d items, %d bytes", len(t), len(body))
	default:
		return fmt.Sprintf("json %T, %d bytes", t, len(body))
	}
}

func summarizeHTML(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return fmt.Sprintf("html, %d bytes", len(body))
	}
	title := strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
	if title == "" {
		return fmt.Sprintf("html without title, %d bytes", len(body))
	}
	if r := []rune(title); len(r) > maxTitleLen {
		title = string(r[:maxTitleLen]) + "…"
	}
	return fmt.Sprintf("html %q, %d bytes", title, len(body))
}
