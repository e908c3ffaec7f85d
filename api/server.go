package api

import (
	"net/http"
	"time"

	"github.com/apex/log"
	"github.com/go-chi/chi/v5"

	"cryout/api/handlers"
	"cryout/config"
	"cryout/core/cases"
	"cryout/core/media"
	"cryout/core/orgs"
	"cryout/core/rbac"
	"cryout/core/store"
)

type ServerDeps struct {
	Cases    *cases.Service
	Orgs     *orgs.Service
	Audits   store.AuditStore
	Uploader media.Uploader
	Policy   *rbac.Policy
}

type Server struct {
	cfg    *config.AppConfig
	logger log.Interface
	policy *rbac.Policy

	casesSvc *cases.Service
	orgsSvc  *orgs.Service
	audits   store.AuditStore
	uploader media.Uploader

	loginLimiter  *requestLimiter
	submitLimiter *requestLimiter
}

func NewServer(cfg *config.AppConfig, deps ServerDeps, logger log.Interface) *Server {
	loginCap := cfg.Limits.LoginPerMinute
	if loginCap <= 0 {
		loginCap = 10
	}
	submitCap := cfg.Limits.SubmitPerMinute
	if submitCap <= 0 {
		submitCap = 6
	}
	return &Server{
		cfg:           cfg,
		logger:        logger,
		policy:        deps.Policy,
		casesSvc:      deps.Cases,
		orgsSvc:       deps.Orgs,
		audits:        deps.Audits,
		uploader:      deps.Uploader,
		loginLimiter:  newLimiter(loginCap, time.Minute),
		submitLimiter: newLimiter(submitCap, time.Minute),
	}
}

type routeHandlers struct {
	reports *handlers.ReportsHandler
	orgs    *handlers.OrgsHandler
	admin   *handlers.AdminHandler
}

func (s *Server) newRouteHandlers() routeHandlers {
	return routeHandlers{
		reports: handlers.NewReportsHandler(s.cfg, s.casesSvc, s.orgsSvc, s.uploader, s.logger),
		orgs:    handlers.NewOrgsHandler(s.cfg, s.orgsSvc, s.uploader, s.logger),
		admin:   handlers.NewAdminHandler(s.casesSvc, s.orgsSvc, s.audits, s.logger),
	}
}

func (s *Server) Router() http.Handler {
	h := s.newRouteHandlers()

	r := chi.NewRouter()
	r.Use(s.recoverMiddleware)
	r.Use(s.securityHeadersMiddleware)
	r.Use(s.jsonMiddleware)
	r.Use(s.loggingMiddleware)

	r.Route("/api", func(apiRouter chi.Router) {
		apiRouter.MethodFunc("GET", "/health", s.handleHealth)

		apiRouter.MethodFunc("POST", "/reports", s.limit(s.submitLimiter, s.perm(rbac.RolePublic, rbac.PermReportSubmit, h.reports.Submit)))
		apiRouter.MethodFunc("GET", "/reports/{id}", s.perm(rbac.RoleResponder, rbac.PermReportView, h.reports.Get))
		apiRouter.MethodFunc("PUT", "/reports/{id}/claim", s.perm(rbac.RoleResponder, rbac.PermReportClaim, h.reports.Claim))
		apiRouter.MethodFunc("PUT", "/reports/{id}/escalate", s.perm(rbac.RoleResponder, rbac.PermReportEscalate, h.reports.Escalate))
		apiRouter.MethodFunc("PUT", "/reports/{id}/request-police", s.perm(rbac.RoleResponder, rbac.PermReportEscalate, h.reports.RequestPolice))
		apiRouter.MethodFunc("PUT", "/reports/{id}/resolve", s.perm(rbac.RoleResponder, rbac.PermReportResolve, h.reports.Resolve))
		apiRouter.MethodFunc("POST", "/reports/{id}/resolve", s.perm(rbac.RoleResponder, rbac.PermReportResolve, h.reports.Resolve))
		apiRouter.MethodFunc("GET", "/org-reports/{orgId}", s.perm(rbac.RoleResponder, rbac.PermReportView, h.reports.OrgReports))

		apiRouter.MethodFunc("POST", "/register-org", s.perm(rbac.RolePublic, rbac.PermOrgRegister, h.orgs.Register))
		apiRouter.MethodFunc("POST", "/login", s.limit(s.loginLimiter, s.perm(rbac.RolePublic, rbac.PermOrgLogin, h.orgs.Login)))
		apiRouter.MethodFunc("GET", "/public/help-directory", s.perm(rbac.RolePublic, rbac.PermDirectoryView, h.orgs.HelpDirectory))

		apiRouter.Route("/admin", func(adminRouter chi.Router) {
			adminRouter.MethodFunc("GET", "/orgs", s.withAdmin(rbac.PermAdminOrgs, h.admin.ListOrgs))
			adminRouter.MethodFunc("GET", "/all-reports", s.withAdmin(rbac.PermAdminReports, h.admin.AllReports))
			adminRouter.MethodFunc("PUT", "/update-status/{id}", s.withAdmin(rbac.PermAdminOrgs, h.admin.UpdateOrgStatus))
			adminRouter.MethodFunc("PUT", "/update-categories/{id}", s.withAdmin(rbac.PermAdminOrgs, h.admin.UpdateOrgCategories))
			adminRouter.MethodFunc("PUT", "/mark-priority/{id}", s.withAdmin(rbac.PermAdminReports, h.admin.MarkPriority))
			adminRouter.MethodFunc("PUT", "/unclaim-report/{id}", s.withAdmin(rbac.PermAdminReports, h.admin.UnclaimReport))
			adminRouter.MethodFunc("PUT", "/assign-report/{id}", s.withAdmin(rbac.PermAdminReports, h.admin.AssignReport))
			adminRouter.MethodFunc("DELETE", "/delete-org/{id}", s.withAdmin(rbac.PermAdminOrgs, h.admin.DeleteOrg))
			adminRouter.MethodFunc("GET", "/audit-log", s.withAdmin(rbac.PermAdminAudit, h.admin.AuditLog))
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
