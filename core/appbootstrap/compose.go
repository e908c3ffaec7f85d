package appbootstrap

import (
	"context"

	"github.com/apex/log"

	"cryout/api"
	"cryout/config"
	"cryout/core/cases"
	"cryout/core/media"
	"cryout/core/orgs"
	"cryout/core/rbac"
	"cryout/core/retention"
	"cryout/core/store"
)

// BackgroundWorker is anything that runs alongside the HTTP server and can
// be stopped on shutdown.
type BackgroundWorker interface {
	Start() error
	Stop()
}

type runtimeComposition struct {
	serverDeps api.ServerDeps
	orgsSvc    *orgs.Service
	workers    []BackgroundWorker
}

func composeRuntime(ctx context.Context, cfg *config.AppConfig, db *store.DB, logger log.Interface) (*runtimeComposition, error) {
	reports := store.NewReportsStore(db)
	organizations := store.NewOrgsStore(db)
	audits := store.NewAuditStore(db)

	casesSvc := cases.NewService(reports, audits, logger)
	orgsSvc := orgs.NewService(organizations, audits, logger)

	policy, err := rbac.NewPolicy()
	if err != nil {
		return nil, err
	}

	var uploader media.Uploader
	if cfg.MediaConfigured() {
		mu, err := media.NewMinioUploader(cfg.Media, logger)
		if err != nil {
			return nil, err
		}
		if err := mu.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		uploader = mu
	} else {
		logger.Warn("media host not configured, file attachments disabled")
	}

	retentionWorker := retention.NewWorker(cfg.Retention, audits, logger)

	return &runtimeComposition{
		serverDeps: api.ServerDeps{
			Cases:    casesSvc,
			Orgs:     orgsSvc,
			Audits:   audits,
			Uploader: uploader,
			Policy:   policy,
		},
		orgsSvc: orgsSvc,
		workers: []BackgroundWorker{retentionWorker},
	}, nil
}
