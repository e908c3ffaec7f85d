package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/apex/log"

	"cryout/core/cases"
	"cryout/core/orgs"
	"cryout/core/store"
)

// AdminHandler serves the super-admin console. Every route behind it is
// guarded by the shared admin token; handlers here may be verbose in a way
// the victim-facing ones must never be.
type AdminHandler struct {
	cases  *cases.Service
	orgs   *orgs.Service
	audits store.AuditStore
	logger log.Interface
}

func NewAdminHandler(cs *cases.Service, os *orgs.Service, audits store.AuditStore, logger log.Interface) *AdminHandler {
	return &AdminHandler{cases: cs, orgs: os, audits: audits, logger: logger}
}

var adminActor = cases.Actor{SuperAdmin: true}

func (h *AdminHandler) ListOrgs(w http.ResponseWriter, r *http.Request) {
	filter := store.OrgFilter{
		Status: store.OrgStatus(r.URL.Query().Get("status")),
		Type:   store.OrgType(r.URL.Query().Get("type")),
	}
	list, err := h.orgs.List(r.Context(), filter)
	if err != nil {
		h.logger.WithError(err).Error("admin org listing failed")
		writeError(w, http.StatusInternalServerError, "admin.orgs_list_failed", "admin.error.orgsListFailed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"organizations": list})
}

// AllReports is the oversight view: every report regardless of visibility
// scope, sliced by tab and optionally narrowed to one organization. The
// per-status counts ride along for the console header.
func (h *AdminHandler) AllReports(w http.ResponseWriter, r *http.Request) {
	tab := cases.OversightTab(r.URL.Query().Get("tab"))
	reports, err := h.cases.Oversight(r.Context(), tab, r.URL.Query().Get("orgId"))
	if errors.Is(err, cases.ErrUnknownTab) {
		writeError(w, http.StatusBadRequest, "admin.unknown_tab", "admin.error.unknownTab")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("admin report listing failed")
		writeError(w, http.StatusInternalServerError, "admin.reports_list_failed", "admin.error.reportsListFailed")
		return
	}
	counts, err := h.cases.StatusCounts(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("admin report counts failed")
		writeError(w, http.StatusInternalServerError, "admin.reports_list_failed", "admin.error.reportsListFailed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports, "counts": counts})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *AdminHandler) UpdateOrgStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "admin.bad_json", "admin.error.badJson")
		return
	}
	org, err := h.orgs.SetStatus(r.Context(), urlParam(r, "id"), store.OrgStatus(req.Status))
	switch {
	case errors.Is(err, orgs.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "admin.invalid_status", "admin.error.invalidStatus")
		return
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "orgs.not_found", "orgs.error.notFound")
		return
	case err != nil:
		h.logger.WithError(err).Error("org status update failed")
		writeError(w, http.StatusInternalServerError, "admin.update_failed", "admin.error.updateFailed")
		return
	}
	writeJSON(w, http.StatusOK, org)
}

type updateCategoriesRequest struct {
	AllowedCategories []string `json:"allowedCategories"`
}

func (h *AdminHandler) UpdateOrgCategories(w http.ResponseWriter, r *http.Request) {
	var req updateCategoriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "admin.bad_json", "admin.error.badJson")
		return
	}
	categories := make([]store.Category, 0, len(req.AllowedCategories))
	for _, c := range req.AllowedCategories {
		categories = append(categories, store.Category(c))
	}
	org, err := h.orgs.SetAllowedCategories(r.Context(), urlParam(r, "id"), categories)
	switch {
	case errors.Is(err, orgs.ErrInvalidCategory):
		writeError(w, http.StatusBadRequest, "admin.invalid_category", "admin.error.invalidCategory")
		return
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "orgs.not_found", "orgs.error.notFound")
		return
	case err != nil:
		h.logger.WithError(err).Error("org categories update failed")
		writeError(w, http.StatusInternalServerError, "admin.update_failed", "admin.error.updateFailed")
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func (h *AdminHandler) MarkPriority(w http.ResponseWriter, r *http.Request) {
	val, err := h.cases.TogglePriority(r.Context(), adminActor, urlParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "reports.not_found", "reports.error.notFound")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("priority toggle failed")
		writeError(w, http.StatusInternalServerError, "admin.update_failed", "admin.error.updateFailed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"isPriority": val})
}

func (h *AdminHandler) UnclaimReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.cases.ForceUnclaim(r.Context(), adminActor, urlParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "reports.not_found", "reports.error.notFound")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("force unclaim failed")
		writeError(w, http.StatusInternalServerError, "admin.update_failed", "admin.error.updateFailed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type assignRequest struct {
	OrgID    string `json:"orgId"`
	IsPolice bool   `json:"isPolice"`
}

// AssignReport hands the case to the chosen organization, replacing any
// existing assignment. isPolice also flips the police-consent flag so a
// police org can see its new case.
func (h *AdminHandler) AssignReport(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrgID == "" {
		writeError(w, http.StatusBadRequest, "admin.missing_org", "admin.error.missingOrg")
		return
	}
	org, err := h.orgs.Get(r.Context(), req.OrgID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusBadRequest, "orgs.not_found", "orgs.error.notFound")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "orgs.get_failed", "orgs.error.getFailed")
		return
	}
	isPolice := req.IsPolice || org.Type == store.OrgTypePolice
	report, err := h.cases.ForceAssign(r.Context(), adminActor, urlParam(r, "id"), org, isPolice)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "reports.not_found", "reports.error.notFound")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("force assign failed")
		writeError(w, http.StatusInternalServerError, "admin.update_failed", "admin.error.updateFailed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *AdminHandler) DeleteOrg(w http.ResponseWriter, r *http.Request) {
	err := h.orgs.Delete(r.Context(), urlParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "orgs.not_found", "orgs.error.notFound")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("org delete failed")
		writeError(w, http.StatusInternalServerError, "admin.update_failed", "admin.error.updateFailed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (h *AdminHandler) AuditLog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.audits.List(r.Context(),
		parseIntDefault(r.URL.Query().Get("limit"), 100),
		parseIntDefault(r.URL.Query().Get("offset"), 0))
	if err != nil {
		h.logger.WithError(err).Error("audit log listing failed")
		writeError(w, http.StatusInternalServerError, "admin.audit_failed", "admin.error.auditFailed")
		return
	}
	if entries == nil {
		entries = []store.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": entries})
}
