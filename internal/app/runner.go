package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/samvad-hq/naivehttp/internal/config"
	"github.com/samvad-hq/naivehttp/internal/inspect"
	"github.com/samvad-hq/naivehttp/internal/logger"
	"github.com/samvad-hq/naivehttp/internal/requests"
	"github.com/samvad-hq/naivehttp/internal/storage"
	"github.com/samvad-hq/naivehttp/pkg/httpclient"
	"github.com/samvad-hq/naivehttp/pkg/naivehttp"
	"github.com/samvad-hq/naivehttp/pkg/publishers"
)

// Runner executes a request plan through the naivehttp client, journaling
// and publishing the outcome of every exchange.
type Runner struct {
	cfg      *config.Config
	plan     *requests.Plan
	client   *naivehttp.Client
	journal  storage.Journal
	fanout   *publishers.Fanout
	interval time.Duration
	log      logger.Logger
}

// completion carries the slots of one handler invocation.
type completion struct {
	body []byte
	meta *naivehttp.Metadata
	err  *naivehttp.ClassifiedError
}

// NewRunner builds a runner from config files.
func NewRunner(ctx context.Context, cfg *config.Config, log logger.Logger) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	plan, err := requests.LoadPlan(cfg.RequestsFile)
	if err != nil {
		return nil, fmt.Errorf("load request plan: %w", err)
	}
	entries := plan.All()
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	log.InfoObj("request plan loaded", "plan_meta", map[string]any{
		"count": len(ids),
		"ids":   ids,
	})

	httpClient := httpclient.NewRestyClient(cfg.Timeout).WithUserAgent(cfg.UserAgent)
	client, err := naivehttp.New(naivehttp.NewTransport(httpClient), naivehttp.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("init client: %w", err)
	}

	fanout, err := buildFanout(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	journal, err := openJournal(cfg)
	if err != nil {
		_ = fanout.Close()
		return nil, err
	}
	log.InfoObj("journal initialized", "journal_config", map[string]any{
		"type":                     cfg.JournalType,
		"path":                     cfg.JournalPath,
		"entry_ttl_seconds":        int(cfg.JournalTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.JournalCleanupInterval.Seconds()),
	})

	return &Runner{
		cfg:      cfg,
		plan:     plan,
		client:   client,
		journal:  journal,
		fanout:   fanout,
		interval: cfg.RepeatInterval,
		log:      log,
	}, nil
}

// buildFanout loads report publishers; an unset publishers file means none.
func buildFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*publishers.Fanout, error) {
	if cfg.PublishersFile == "" {
		return publishers.NewFanout(nil), nil
	}

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := publisherReg.Enabled()

	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubClients), nil
}

func openJournal(cfg *config.Config) (storage.Journal, error) {
	journal, err := storage.NewJournal(cfg.JournalType, cfg.JournalPath, storage.Options{
		EntryTTL:        cfg.JournalTTL,
		CleanupInterval: cfg.JournalCleanupInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("init journal: %w", err)
	}
	return journal, nil
}

// Run executes the plan once, or on every tick when a repeat interval is
// configured, until the context is cancelled. A one-shot run returns the
// joined exchange failures.
func (r *Runner) Run(ctx context.Context) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("runner is not initialized")
	}
	defer r.close()

	r.log.InfoObj("runner starting", "runner_state", map[string]any{
		"requests_count":   len(r.plan.All()),
		"publishers_count": r.fanout.Size(),
		"repeat_interval":  r.interval.String(),
	})

	if r.interval <= 0 {
		return r.runOnce(ctx)
	}

	if err := r.runOnce(ctx); err != nil {
		r.log.ErrorObj("initial run failed", "error", err.Error())
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.InfoObj("runner loop exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			if err := r.runOnce(ctx); err != nil {
				r.log.ErrorObj("scheduled run failed", "error", err.Error())
			}
		}
	}
}

// runOnce performs every exchange in the plan sequentially.
func (r *Runner) runOnce(ctx context.Context) error {
	start := time.Now()
	entries := r.plan.All()

	var errs []error
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := r.execute(ctx, e); err != nil {
			errs = append(errs, fmt.Errorf("request %s: %w", e.ID, err))
		}
	}

	r.log.InfoObj("run completed", "run_meta", map[string]any{
		"requests_count": len(entries),
		"failed_count":   len(errs),
		"elapsed_ms":     time.Since(start).Milliseconds(),
	})
	return errors.Join(errs...)
}

// execute performs one exchange and waits for its single completion.
// GET entries use split handlers and POST entries the combined handler.
func (r *Runner) execute(ctx context.Context, e requests.Entry) error {
	start := time.Now()
	done := make(chan completion, 1)

	switch e.Method {
	case http.MethodPost:
		r.client.PostCombined(ctx, e.URI, e.Value, e.Headers, func(body []byte, meta *naivehttp.Metadata, err *naivehttp.ClassifiedError) {
			done <- completion{body: body, meta: meta, err: err}
		})
	default:
		r.client.Get(ctx, e.URI, e.Params, e.Headers,
			func(body []byte, meta *naivehttp.Metadata) {
				done <- completion{body: body, meta: meta}
			},
			func(err *naivehttp.ClassifiedError) {
				done <- completion{err: err}
			},
		)
	}

	var c completion
	select {
	case c = <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	target := e.URI
	if c.meta != nil && c.meta.URL != "" {
		target = c.meta.URL
	}
	report := publishers.NewReport(e.ID, e.Method, target, c.meta, c.err, time.Since(start))
	if c.body != nil {
		report.Summary = inspect.Summarize(c.body, c.meta)
	}

	r.record(report)
	r.publish(ctx, report)

	if c.err != nil {
		r.log.WarnObj("exchange failed", "exchange", report)
		return c.err
	}
	r.log.InfoObj("exchange succeeded", "exchange", report)
	return nil
}

func (r *Runner) record(report publishers.Report) {
	err := r.journal.Record(storage.Entry{
		RequestID:   report.RequestID,
		Method:      report.Method,
		URL:         report.URL,
		StatusCode:  report.StatusCode,
		Succeeded:   report.Succeeded,
		ErrorKind:   report.ErrorKind,
		ErrorDomain: report.ErrorDomain,
		ErrorCode:   report.ErrorCode,
		Error:       report.Error,
		Summary:     report.Summary,
		ElapsedMS:   report.ElapsedMS,
		At:          report.CompletedAt,
	})
	if err != nil {
		r.log.ErrorObj("journal record failed", "journal_error", map[string]any{
			"request_id": report.RequestID,
			"error":      err.Error(),
		})
	}
}

func (r *Runner) publish(ctx context.Context, report publishers.Report) {
	if r.fanout.Size() == 0 {
		return
	}
	delivered, err := r.fanout.Publish(ctx, report)
	if err != nil {
		r.log.ErrorObj("report publish failed", "publish_error", map[string]any{
			"request_id": report.RequestID,
			"delivered":  delivered,
			"error":      err.Error(),
		})
	}
}

// close releases the journal and publishers, logging any errors encountered.
func (r *Runner) close() {
	if err := r.journal.Close(); err != nil {
		r.log.ErrorObj("journal close failed", "error", err.Error())
	}
	if err := r.fanout.Close(); err != nil {
		r.log.ErrorObj("publishers close failed", "error", err.Error())
	}
}
