package tests

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"

	"cryout/api"
	"cryout/config"
	"cryout/core/cases"
	"cryout/core/orgs"
	"cryout/core/rbac"
	"cryout/core/store"
)

type env struct {
	ctx     context.Context
	cfg     *config.AppConfig
	reports store.ReportsStore
	orgs    store.OrgsStore
	audits  store.AuditStore
	cases   *cases.Service
	orgsSvc *orgs.Service
	server  *api.Server
}

func testLogger() log.Interface {
	return &log.Logger{Handler: discard.New(), Level: log.ErrorLevel}
}

func setupEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.AppConfig{
		DBDriver:   "sqlite",
		DBPath:     filepath.Join(dir, "test.db"),
		AdminToken: "test-admin-token",
	}
	logger := testLogger()
	db, err := store.NewDB(cfg, logger)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()
	if err := store.ApplyMigrations(ctx, db, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	reports := store.NewReportsStore(db)
	organizations := store.NewOrgsStore(db)
	audits := store.NewAuditStore(db)
	casesSvc := cases.NewService(reports, audits, logger)
	orgsSvc := orgs.NewService(organizations, audits, logger)
	policy, err := rbac.NewPolicy()
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	server := api.NewServer(cfg, api.ServerDeps{
		Cases:  casesSvc,
		Orgs:   orgsSvc,
		Audits: audits,
		Policy: policy,
	}, logger)

	return &env{
		ctx:     ctx,
		cfg:     cfg,
		reports: reports,
		orgs:    organizations,
		audits:  audits,
		cases:   casesSvc,
		orgsSvc: orgsSvc,
		server:  server,
	}
}

func (e *env) submitReport(t *testing.T, category store.Category, contactPolice bool) *store.Report {
	t.Helper()
	r, err := e.cases.Submit(e.ctx, cases.SubmitInput{
		Category:      category,
		Description:   "test incident description",
		ContactPolice: contactPolice,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return r
}

func (e *env) approvedOrg(t *testing.T, name string, orgType store.OrgType, accessCode string) *store.Organization {
	t.Helper()
	org, err := e.orgsSvc.Register(e.ctx, orgs.RegisterInput{
		Name:       name,
		Type:       orgType,
		AccessCode: accessCode,
		Country:    "USA",
	})
	if err != nil {
		t.Fatalf("register org: %v", err)
	}
	org, err = e.orgsSvc.SetStatus(e.ctx, org.ID, store.OrgApproved)
	if err != nil {
		t.Fatalf("approve org: %v", err)
	}
	return org
}

func actorFor(org *store.Organization) cases.Actor {
	return cases.Actor{OrgID: org.ID, OrgName: org.Name}
}
