package handlers

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/apex/log"

	"cryout/config"
	"cryout/core/media"
	"cryout/core/orgs"
	"cryout/core/store"
)

type OrgsHandler struct {
	cfg      *config.AppConfig
	orgs     *orgs.Service
	uploader media.Uploader
	logger   log.Interface
}

func NewOrgsHandler(cfg *config.AppConfig, os *orgs.Service, uploader media.Uploader, logger log.Interface) *OrgsHandler {
	return &OrgsHandler{cfg: cfg, orgs: os, uploader: uploader, logger: logger}
}

type registerRequest struct {
	Name               string   `json:"name"`
	Type               string   `json:"type"`
	AccessCode         string   `json:"accessCode"`
	Country            string   `json:"country"`
	Region             string   `json:"region"`
	City               string   `json:"city"`
	Address            string   `json:"address"`
	ContactEmail       string   `json:"contactEmail"`
	ContactPhone       string   `json:"contactPhone"`
	Website            string   `json:"website"`
	RegistrationNumber string   `json:"registrationNumber"`
	Description        string   `json:"description"`
	Documents          []string `json:"documents"`
}

// Register files a new organization. Legitimacy paperwork can ride along as
// multipart "documents" files, stored through the same media path as report
// evidence.
func (h *OrgsHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		maxBytes := h.cfg.Media.UploadMaxBytes
		if maxBytes <= 0 {
			maxBytes = 32 << 20
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			writeError(w, http.StatusBadRequest, "orgs.bad_form", "orgs.error.badForm")
			return
		}
		req = registerRequest{
			Name:               r.FormValue("name"),
			Type:               strings.ToUpper(strings.TrimSpace(r.FormValue("type"))),
			AccessCode:         r.FormValue("accessCode"),
			Country:            r.FormValue("country"),
			Region:             r.FormValue("region"),
			City:               r.FormValue("city"),
			Address:            r.FormValue("address"),
			ContactEmail:       r.FormValue("contactEmail"),
			ContactPhone:       r.FormValue("contactPhone"),
			Website:            r.FormValue("website"),
			RegistrationNumber: r.FormValue("registrationNumber"),
			Description:        r.FormValue("description"),
		}
		urls, err := media.UploadAll(r.Context(), h.uploader, r.MultipartForm.File["documents"])
		if err != nil {
			h.logger.WithError(err).Error("registration document upload failed")
			writeError(w, http.StatusBadGateway, "orgs.document_upload_failed", "orgs.error.documentUploadFailed")
			return
		}
		req.Documents = urls
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "orgs.bad_json", "orgs.error.badJson")
		return
	}
	org, err := h.orgs.Register(r.Context(), orgs.RegisterInput{
		Name:               req.Name,
		Type:               store.OrgType(req.Type),
		AccessCode:         req.AccessCode,
		Country:            req.Country,
		Region:             req.Region,
		City:               req.City,
		Address:            req.Address,
		ContactEmail:       req.ContactEmail,
		ContactPhone:       req.ContactPhone,
		Website:            req.Website,
		RegistrationNumber: req.RegistrationNumber,
		Description:        req.Description,
		Documents:          req.Documents,
	})
	var missing *orgs.MissingFieldError
	switch {
	case errors.As(err, &missing):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": map[string]string{
				"code":     "orgs.missing_field",
				"i18n_key": "orgs.error.missingField",
				"field":    missing.Field,
			},
		})
		return
	case errors.Is(err, orgs.ErrInvalidOrgType):
		writeError(w, http.StatusBadRequest, "orgs.invalid_type", "orgs.error.invalidType")
		return
	case errors.Is(err, store.ErrDuplicateAccessCode):
		writeError(w, http.StatusConflict, "orgs.duplicate_access_code", "orgs.error.duplicateAccessCode")
		return
	case err != nil:
		h.logger.WithError(err).Error("organization registration failed")
		writeError(w, http.StatusInternalServerError, "orgs.register_failed", "orgs.error.registerFailed")
		return
	}
	// Registration echoes the record without the credential.
	org.AccessCode = ""
	writeJSON(w, http.StatusCreated, org)
}

type loginRequest struct {
	AccessCode string `json:"accessCode"`
}

func (h *OrgsHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "orgs.bad_json", "orgs.error.badJson")
		return
	}
	org, err := h.orgs.Login(r.Context(), req.AccessCode)
	switch {
	case errors.Is(err, orgs.ErrInvalidAccessCode):
		writeError(w, http.StatusUnauthorized, "orgs.invalid_access_code", "orgs.error.invalidAccessCode")
		return
	case errors.Is(err, orgs.ErrPendingApproval):
		writeError(w, http.StatusForbidden, "orgs.pending_approval", "orgs.error.pendingApproval")
		return
	case errors.Is(err, orgs.ErrRejected):
		writeError(w, http.StatusForbidden, "orgs.rejected", "orgs.error.rejected")
		return
	case err != nil:
		h.logger.WithError(err).Error("organization login failed")
		writeError(w, http.StatusInternalServerError, "orgs.login_failed", "orgs.error.loginFailed")
		return
	}
	org.AccessCode = ""
	writeJSON(w, http.StatusOK, map[string]any{"organization": org})
}

// directoryEntry is the public projection of an approved organization for
// the help directory. No credential, no registration paperwork.
type directoryEntry struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Type         store.OrgType `json:"type"`
	Country      string        `json:"country,omitempty"`
	Region       string        `json:"region,omitempty"`
	City         string        `json:"city,omitempty"`
	ContactEmail string        `json:"contactEmail,omitempty"`
	ContactPhone string        `json:"contactPhone,omitempty"`
	Website      string        `json:"website,omitempty"`
	Description  string        `json:"description,omitempty"`
}

func (h *OrgsHandler) HelpDirectory(w http.ResponseWriter, r *http.Request) {
	approved, err := h.orgs.Approved(r.Context(), store.OrgType(r.URL.Query().Get("type")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "orgs.list_failed", "orgs.error.listFailed")
		return
	}
	entries := make([]directoryEntry, 0, len(approved))
	for _, org := range approved {
		entries = append(entries, directoryEntry{
			ID:           org.ID,
			Name:         org.Name,
			Type:         org.Type,
			Country:      org.Country,
			Region:       org.Region,
			City:         org.City,
			ContactEmail: org.ContactEmail,
			ContactPhone: org.ContactPhone,
			Website:      org.Website,
			Description:  org.Description,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"organizations": entries})
}
