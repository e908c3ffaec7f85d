package retention

import (
	"context"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/robfig/cron/v3"

	"cryout/config"
	"cryout/core/store"
)

// Worker prunes old audit entries on a cron schedule. Audit rows name
// responder organizations and report ids, so they age out instead of
// accumulating forever.
type Worker struct {
	cfg    config.RetentionConfig
	audits store.AuditStore
	logger log.Interface

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

func NewWorker(cfg config.RetentionConfig, audits store.AuditStore, logger log.Interface) *Worker {
	return &Worker{cfg: cfg, audits: audits, logger: logger}
}

func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running || !w.cfg.Enabled {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(w.cfg.Schedule, func() {
		if err := w.RunOnce(context.Background()); err != nil {
			w.logger.WithError(err).Error("audit retention run failed")
		}
	}); err != nil {
		return err
	}
	c.Start()
	w.cron = c
	w.running = true
	w.logger.WithField("schedule", w.cfg.Schedule).Info("audit retention worker started")
	return nil
}

func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.cron.Stop()
	w.cron = nil
	w.running = false
}

// RunOnce deletes audit entries older than the configured age.
func (w *Worker) RunOnce(ctx context.Context) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -w.cfg.AuditMaxAgeDays)
	n, err := w.audits.PruneBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if n > 0 {
		w.logger.WithFields(log.Fields{"pruned": n, "cutoff": cutoff.Format(time.RFC3339)}).Info("pruned audit entries")
	}
	return nil
}
