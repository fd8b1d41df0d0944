package app

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/samvad-hq/naivehttp/internal/config"
)

// PrintHistory writes the most recent journal entries to w as JSON lines.
func PrintHistory(cfg *config.Config, limit int, w io.Writer) error {
	if cfg == nil {
		return fmt.Errorf("config must not be nil")
	}
	journal, err := openJournal(cfg)
	if err != nil {
		return err
	}
	defer journal.Close()

	entries, err := journal.Recent(limit)
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}
	enc := json.NewEncoder(w)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("write history: %w", err)
		}
	}
	return nil
}
