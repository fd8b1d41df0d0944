package publishers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/samvad-hq/naivehttp/pkg/naivehttp"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// Report describes one finished exchange.
type Report struct {
	RequestID   string    `json:"request_id"`
	Method      string    `json:"method"`
	URL         string    `json:"url"`
	StatusCode  int       `json:"status_code,omitempty"`
	Succeeded   bool      `json:"succeeded"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	ErrorDomain string    `json:"error_domain,omitempty"`
	ErrorCode   int       `json:"error_code,omitempty"`
	Error       string    `json:"error,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	ElapsedMS   int64     `json:"elapsed_ms"`
	CompletedAt time.Time `json:"completed_at"`
}

// NewReport builds a Report from the slots delivered to a completion handler.
func NewReport(requestID, method, url string, meta *naivehttp.Metadata, err *naivehttp.ClassifiedError, elapsed time.Duration) Report {
	r := Report{
		RequestID:   requestID,
		Method:      method,
		URL:         url,
		Succeeded:   err == nil,
		ElapsedMS:   elapsed.Milliseconds(),
		CompletedAt: time.Now().UTC(),
	}
	if meta != nil {
		r.StatusCode = meta.StatusCode
	}
	if err != nil {
		r.ErrorKind = err.Kind.String()
		r.ErrorDomain = err.Domain
		r.ErrorCode = err.Code
		r.Error = err.Error()
		if code, ok := naivehttp.IsHTTPStatus(err); ok && r.StatusCode == 0 {
			r.StatusCode = code
		}
	}
	return r
}

// Outcome returns "success" or "failure".
func (r Report) Outcome() string {
	if r.Succeeded {
		return outcomeSuccess
	}
	return outcomeFailure
}

// Value converts the report into a request body value.
func (r Report) Value() (naivehttp.Value, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return naivehttp.ParseValue(raw)
}

// attributes are attached to queue and topic messages for filtering.
func (r Report) attributes() map[string]string {
	return map[string]string{
		"request_id": r.RequestID,
		"outcome":    r.Outcome(),
	}
}
