package handlers

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/apex/log"

	"cryout/config"
	"cryout/core/cases"
	"cryout/core/media"
	"cryout/core/orgs"
	"cryout/core/store"
)

type ReportsHandler struct {
	cfg      *config.AppConfig
	cases    *cases.Service
	orgs     *orgs.Service
	uploader media.Uploader
	logger   log.Interface
}

func NewReportsHandler(cfg *config.AppConfig, cs *cases.Service, os *orgs.Service, uploader media.Uploader, logger log.Interface) *ReportsHandler {
	return &ReportsHandler{cfg: cfg, cases: cs, orgs: os, uploader: uploader, logger: logger}
}

type submitRequest struct {
	Category      string            `json:"category"`
	Description   string            `json:"description"`
	Location      store.Location    `json:"location"`
	ContactPolice bool              `json:"contactPolice"`
	ContactInfo   store.ContactInfo `json:"contactInfo"`
}

// Submit accepts the public report form. The body is either JSON or, when
// evidence files ride along, multipart form data with the same field names.
// Store failures never leak detail to the victim-facing response.
func (h *ReportsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	var mediaURLs []string

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		maxBytes := h.cfg.Media.UploadMaxBytes
		if maxBytes <= 0 {
			maxBytes = 32 << 20
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			writeError(w, http.StatusBadRequest, "reports.bad_form", "reports.error.badForm")
			return
		}
		req = submitRequest{
			Category:      r.FormValue("category"),
			Description:   r.FormValue("description"),
			ContactPolice: parseBool(r.FormValue("contactPolice")),
			Location: store.Location{
				Lat:     parseFloat(r.FormValue("lat")),
				Lng:     parseFloat(r.FormValue("lng")),
				Address: r.FormValue("address"),
			},
			ContactInfo: store.ContactInfo{
				Method:          store.ContactMethod(strings.ToUpper(strings.TrimSpace(r.FormValue("contactMethod")))),
				Value:           r.FormValue("contactValue"),
				SafeToVoicemail: parseBool(r.FormValue("safeToVoicemail")),
				SafeTime:        r.FormValue("safeTime"),
				ImmediateHelp:   parseBool(r.FormValue("immediateHelp")),
			},
		}
		files := r.MultipartForm.File["media"]
		urls, err := media.UploadAll(r.Context(), h.uploader, files)
		if err != nil {
			h.logger.WithError(err).Error("evidence upload failed")
			writeError(w, http.StatusBadGateway, "reports.media_upload_failed", "reports.error.mediaUploadFailed")
			return
		}
		mediaURLs = urls
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "reports.bad_json", "reports.error.badJson")
			return
		}
	}

	report, err := h.cases.Submit(r.Context(), cases.SubmitInput{
		Category:      store.Category(req.Category),
		Description:   req.Description,
		Media:         mediaURLs,
		Location:      req.Location,
		ContactPolice: req.ContactPolice,
		ContactInfo:   req.ContactInfo,
	})
	switch {
	case errors.Is(err, cases.ErrInvalidCategory):
		writeError(w, http.StatusBadRequest, "reports.invalid_category", "reports.error.invalidCategory")
		return
	case errors.Is(err, cases.ErrEmptyDescription):
		writeError(w, http.StatusBadRequest, "reports.empty_description", "reports.error.emptyDescription")
		return
	case err != nil:
		h.logger.WithError(err).Error("report submission failed")
		writeError(w, http.StatusInternalServerError, "reports.submit_failed", "reports.error.submitFailed")
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

func (h *ReportsHandler) Get(w http.ResponseWriter, r *http.Request) {
	report, err := h.cases.Get(r.Context(), urlParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "reports.not_found", "reports.error.notFound")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "reports.get_failed", "reports.error.getFailed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// OrgReports returns the dashboard listing for one organization, bounded by
// its visibility scope. view selects feed, mine or all.
func (h *ReportsHandler) OrgReports(w http.ResponseWriter, r *http.Request) {
	org, err := h.orgs.Get(r.Context(), urlParam(r, "orgId"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "orgs.not_found", "orgs.error.notFound")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "orgs.get_failed", "orgs.error.getFailed")
		return
	}
	if org.Status != store.OrgApproved {
		writeError(w, http.StatusForbidden, "orgs.not_approved", "orgs.error.notApproved")
		return
	}
	reports, err := h.cases.OrgReports(r.Context(), org, cases.View(r.URL.Query().Get("view")))
	if errors.Is(err, cases.ErrUnknownView) {
		writeError(w, http.StatusBadRequest, "reports.unknown_view", "reports.error.unknownView")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "reports.list_failed", "reports.error.listFailed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

type orgActionRequest struct {
	OrgID string `json:"orgId"`
}

// actor resolves the acting organization from the request body. The org must
// exist and be approved.
func (h *ReportsHandler) actor(w http.ResponseWriter, r *http.Request) (cases.Actor, bool) {
	var req orgActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.OrgID) == "" {
		writeError(w, http.StatusBadRequest, "reports.missing_org", "reports.error.missingOrg")
		return cases.Actor{}, false
	}
	org, err := h.orgs.Get(r.Context(), req.OrgID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusBadRequest, "orgs.not_found", "orgs.error.notFound")
		return cases.Actor{}, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "orgs.get_failed", "orgs.error.getFailed")
		return cases.Actor{}, false
	}
	if org.Status != store.OrgApproved {
		writeError(w, http.StatusForbidden, "orgs.not_approved", "orgs.error.notApproved")
		return cases.Actor{}, false
	}
	return cases.Actor{OrgID: org.ID, OrgName: org.Name}, true
}

func (h *ReportsHandler) Claim(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	report, err := h.cases.Claim(r.Context(), actor, urlParam(r, "id"))
	if !h.writeLifecycleError(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *ReportsHandler) Escalate(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	report, err := h.cases.Escalate(r.Context(), actor, urlParam(r, "id"))
	if !h.writeLifecycleError(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *ReportsHandler) RequestPolice(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	report, err := h.cases.RequestPoliceIntervention(r.Context(), actor, urlParam(r, "id"))
	if !h.writeLifecycleError(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type resolveRequest struct {
	OrgID string   `json:"orgId"`
	Notes string   `json:"notes"`
	Proof []string `json:"proof"`
}

// Resolve closes the case, optionally attaching proof. Multipart bodies carry
// proof files that go through the same media path as evidence.
func (h *ReportsHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		maxBytes := h.cfg.Media.UploadMaxBytes
		if maxBytes <= 0 {
			maxBytes = 32 << 20
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			writeError(w, http.StatusBadRequest, "reports.bad_form", "reports.error.badForm")
			return
		}
		req.OrgID = r.FormValue("orgId")
		req.Notes = r.FormValue("notes")
		urls, err := media.UploadAll(r.Context(), h.uploader, r.MultipartForm.File["proof"])
		if err != nil {
			h.logger.WithError(err).Error("proof upload failed")
			writeError(w, http.StatusBadGateway, "reports.media_upload_failed", "reports.error.mediaUploadFailed")
			return
		}
		req.Proof = urls
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "reports.bad_json", "reports.error.badJson")
			return
		}
	}
	if strings.TrimSpace(req.OrgID) == "" {
		writeError(w, http.StatusBadRequest, "reports.missing_org", "reports.error.missingOrg")
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
	if org.Status != store.OrgApproved {
		writeError(w, http.StatusForbidden, "orgs.not_approved", "orgs.error.notApproved")
		return
	}
	actor := cases.Actor{OrgID: org.ID, OrgName: org.Name}
	report, err := h.cases.Resolve(r.Context(), actor, urlParam(r, "id"), req.Notes, req.Proof)
	if !h.writeLifecycleError(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// writeLifecycleError maps store lifecycle errors onto the API taxonomy. It
// returns true when err was nil and the caller should write its response.
func (h *ReportsHandler) writeLifecycleError(w http.ResponseWriter, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "reports.not_found", "reports.error.notFound")
	case errors.Is(err, store.ErrAlreadyClaimed):
		writeError(w, http.StatusConflict, "reports.already_claimed", "reports.error.alreadyClaimed")
	case errors.Is(err, store.ErrAlreadyResolved):
		writeError(w, http.StatusConflict, "reports.already_resolved", "reports.error.alreadyResolved")
	default:
		h.logger.WithError(err).Error("report lifecycle operation failed")
		writeError(w, http.StatusInternalServerError, "reports.operation_failed", "reports.error.operationFailed")
	}
	return false
}

func parseFloat(val string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(val), 64)
	return f
}
