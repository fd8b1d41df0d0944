package requests

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/samvad-hq/naivehttp/pkg/naivehttp"
	"gopkg.in/yaml.v3"
)

// planFile represents the structure of the request plan file.
type planFile struct {
	Requests []Entry `json:"requests" yaml:"requests"`
}

// Entry is a single request declared in the plan file.
type Entry struct {
	ID      string            `json:"id" yaml:"id"`
	Method  string            `json:"method" yaml:"method"`
	URI     string            `json:"uri" yaml:"uri"`
	Params  map[string]string `json:"params" yaml:"params"`
	Headers map[string]string `json:"headers" yaml:"headers"`
	Body    any               `json:"body" yaml:"body"`

	// Value is Body converted for the client; nil when no body is set.
	Value naivehttp.Value `json:"-" yaml:"-"`
}

// Plan holds the validated entries in file order.
type Plan struct {
	mu      sync.RWMutex
	entries []Entry
	idx     map[string]Entry
}

// LoadPlan loads the request plan from a YAML/JSON file.
func LoadPlan(path string) (*Plan, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("requests file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open requests file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read requests file: %w", err)
	}

	parsed, err := parsePlan(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	return NewPlan(parsed.Requests)
}

// NewPlan validates entries and builds a Plan.
func NewPlan(entries []Entry) (*Plan, error) {
	if len(entries) == 0 {
		return nil, errors.New("requests file contains no requests entries")
	}

	plan := &Plan{
		entries: make([]Entry, len(entries)),
		idx:     make(map[string]Entry, len(entries)),
	}
	for i := range entries {
		e := sanitizeEntry(entries[i])
		if err := validateEntry(e); err != nil {
			return nil, fmt.Errorf("requests[%d]: %w", i, err)
		}
		if _, exists := plan.idx[e.ID]; exists {
			return nil, fmt.Errorf("duplicate request id %q", e.ID)
		}
		if e.Body != nil {
			val, err := naivehttp.ValueOf(e.Body)
			if err != nil {
				return nil, fmt.Errorf("requests[%d] body: %w", i, err)
			}
			e.Value = val
		}
		plan.entries[i] = e
		plan.idx[e.ID] = e
	}
	return plan, nil
}

// parsePlan decodes the plan file content, guided by the file extension.
func parsePlan(data []byte, ext string) (planFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var plan planFile
		if err := d.fn(data, &plan); err == nil {
			return plan, nil
		}
	}

	return planFile{}, errors.New("requests file format not recognized (expected YAML or JSON)")
}

// sanitizeEntry trims and normalizes entry fields.
func sanitizeEntry(e Entry) Entry {
	e.ID = strings.TrimSpace(e.ID)
	e.URI = strings.TrimSpace(e.URI)
	e.Method = strings.ToUpper(strings.TrimSpace(e.Method))
	if e.Method == "" {
		e.Method = http.MethodGet
	}
	e.Headers = sanitizeMap(e.Headers, false)
	e.Params = sanitizeMap(e.Params, true)
	return e
}

// sanitizeMap trims keys and values and drops empty keys. Empty values are
// kept only when allowEmpty is set.
func sanitizeMap(in map[string]string, allowEmpty bool) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		key := strings.TrimSpace(k)
		val := strings.TrimSpace(v)
		if key == "" || (val == "" && !allowEmpty) {
			continue
		}
		out[key] = val
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// validateEntry checks that required fields are present and consistent.
func validateEntry(e Entry) error {
	if e.ID == "" {
		return errors.New("id is required")
	}
	if e.URI == "" {
		return fmt.Errorf("uri is required for request %q", e.ID)
	}
	switch e.Method {
	case http.MethodGet:
		if e.Body != nil {
			return fmt.Errorf("request %q: GET does not take a body", e.ID)
		}
	case http.MethodPost:
		if len(e.Params) > 0 {
			return fmt.Errorf("request %q: POST does not take params; put the query in uri", e.ID)
		}
	default:
		return fmt.Errorf("request %q: unsupported method %q", e.ID, e.Method)
	}
	return nil
}

// ByID returns the entry by id.
func (p *Plan) ByID(id string) (Entry, bool) {
	if p == nil {
		return Entry{}, false
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Entry{}, false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.idx[id]
	return e, ok
}

// All returns every entry in file order.
func (p *Plan) All() []Entry {
	if p == nil {
		return nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Entry, len(p.entries))
	copy(out, p.entries)
	return out
}
