package storage

import (
	"fmt"
	"strings"
	"time"
)

// Package storage keeps a local journal of finished exchanges.

// Entry records one finished exchange.
type Entry struct {
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
	At          time.Time `json:"at"`
}

// Journal persists exchange entries.
type Journal interface {
	Close() error
	Record(e Entry) error
	// Recent returns up to limit unexpired entries, newest first.
	Recent(limit int) ([]Entry, error)
}

// Options controls retention characteristics for concrete journal implementations.
type Options struct {
	EntryTTL        time.Duration
	CleanupInterval time.Duration
}

const (
	defaultEntryTTL        = 7 * 24 * time.Hour
	defaultCleanupInterval = 6 * time.Hour
)

// NewJournal creates the configured journal backend.
func NewJournal(typ, path string, opts Options) (Journal, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopJournal{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt journal requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported journal type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.EntryTTL <= 0 {
		opts.EntryTTL = defaultEntryTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopJournal struct{}

func (noopJournal) Close() error                { return nil }
func (noopJournal) Record(Entry) error          { return nil }
func (noopJournal) Recent(int) ([]Entry, error) { return nil, nil }
