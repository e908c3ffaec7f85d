package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cryout/core/store"
)

func doJSON(t *testing.T, router http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	e := setupEnv(t)
	rec := doJSON(t, e.server.Router(), "GET", "/api/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSubmitReportOverHTTP(t *testing.T) {
	e := setupEnv(t)
	router := e.server.Router()

	rec := doJSON(t, router, "POST", "/api/reports", map[string]any{
		"category":      "Domestic Violence",
		"description":   "needs urgent help",
		"contactPolice": true,
		"location":      map[string]any{"lat": 40.7, "lng": -74.0, "address": "somewhere"},
		"contactInfo":   map[string]any{"method": "PHONE", "value": "555-0100", "immediateHelp": true},
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var report store.Report
	decodeBody(t, rec, &report)
	if report.ID == "" || report.Status != store.StatusPending {
		t.Fatalf("report = %+v", report)
	}
	if !report.ContactPolice || report.ContactInfo.Method != store.ContactPhone {
		t.Fatalf("contact fields lost: %+v", report)
	}

	rec = doJSON(t, router, "POST", "/api/reports", map[string]any{
		"category":    "Bogus",
		"description": "x",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid category status = %d", rec.Code)
	}
	var errResp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decodeBody(t, rec, &errResp)
	if errResp.Error.Code != "reports.invalid_category" {
		t.Fatalf("error code = %q", errResp.Error.Code)
	}
}

func TestClaimOverHTTP(t *testing.T) {
	e := setupEnv(t)
	router := e.server.Router()
	shelter := e.approvedOrg(t, "Shelter", store.OrgTypeShelter, "shelter-code")
	community := e.approvedOrg(t, "Community", store.OrgTypeCommunity, "community-code")
	report := e.submitReport(t, store.CategoryDomesticViolence, false)

	rec := doJSON(t, router, "PUT", "/api/reports/"+report.ID+"/claim", map[string]string{"orgId": shelter.ID}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("claim status = %d body = %s", rec.Code, rec.Body.String())
	}
	var claimed store.Report
	decodeBody(t, rec, &claimed)
	if claimed.AssignedTo == nil || claimed.AssignedTo.OrgID != shelter.ID {
		t.Fatalf("assignment = %+v", claimed.AssignedTo)
	}

	rec = doJSON(t, router, "PUT", "/api/reports/"+report.ID+"/claim", map[string]string{"orgId": community.ID}, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second claim status = %d", rec.Code)
	}

	rec = doJSON(t, router, "PUT", "/api/reports/no-such-id/claim", map[string]string{"orgId": shelter.ID}, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing report status = %d", rec.Code)
	}

	rec = doJSON(t, router, "PUT", "/api/reports/"+report.ID+"/claim", map[string]string{}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing org status = %d", rec.Code)
	}
}

func TestResolveOverHTTP(t *testing.T) {
	e := setupEnv(t)
	router := e.server.Router()
	medical := e.approvedOrg(t, "Medical", store.OrgTypeMedical, "medical-code")
	report := e.submitReport(t, store.CategorySexualAssault, false)

	rec := doJSON(t, router, "POST", "/api/reports/"+report.ID+"/resolve", map[string]any{
		"orgId": medical.ID,
		"notes": "referred to counseling",
		"proof": []string{"https://proof/1"},
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("resolve status = %d body = %s", rec.Code, rec.Body.String())
	}
	var resolved store.Report
	decodeBody(t, rec, &resolved)
	if resolved.Status != store.StatusResolved || resolved.Resolution == nil {
		t.Fatalf("report = %+v", resolved)
	}
	if resolved.Resolution.Notes != "referred to counseling" || len(resolved.Resolution.Proof) != 1 {
		t.Fatalf("resolution = %+v", resolved.Resolution)
	}
}

func TestResolveRequiresApprovedOrg(t *testing.T) {
	e := setupEnv(t)
	router := e.server.Router()
	report := e.submitReport(t, store.CategoryDomesticViolence, false)

	rec := doJSON(t, router, "POST", "/api/register-org", map[string]any{
		"name":       "Unvetted Org",
		"type":       "SHELTER",
		"accessCode": "unvetted-code",
		"country":    "USA",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d", rec.Code)
	}
	var org store.Organization
	decodeBody(t, rec, &org)

	body := map[string]any{"orgId": org.ID, "notes": "should not close"}
	rec = doJSON(t, router, "PUT", "/api/reports/"+report.ID+"/resolve", body, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("pending org resolve status = %d, want 403", rec.Code)
	}

	admin := map[string]string{"X-Admin-Token": e.cfg.AdminToken}
	rec = doJSON(t, router, "PUT", "/api/admin/update-status/"+org.ID, map[string]string{"status": "REJECTED"}, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("reject status = %d", rec.Code)
	}
	rec = doJSON(t, router, "PUT", "/api/reports/"+report.ID+"/resolve", body, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("rejected org resolve status = %d, want 403", rec.Code)
	}

	got, err := e.cases.Get(e.ctx, report.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != store.StatusPending {
		t.Fatalf("report status = %q after refused resolves, want Pending", got.Status)
	}

	rec = doJSON(t, router, "PUT", "/api/admin/update-status/"+org.ID, map[string]string{"status": "APPROVED"}, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve status = %d", rec.Code)
	}
	rec = doJSON(t, router, "PUT", "/api/reports/"+report.ID+"/resolve", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("approved org resolve status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestOrgReportsEndpoint(t *testing.T) {
	e := setupEnv(t)
	router := e.server.Router()
	shelter := e.approvedOrg(t, "Shelter", store.OrgTypeShelter, "shelter-code")
	e.submitReport(t, store.CategoryDomesticViolence, false)

	rec := doJSON(t, router, "GET", "/api/org-reports/"+shelter.ID+"?view=feed", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Reports []store.Report `json:"reports"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Reports) != 1 {
		t.Fatalf("feed size = %d, want 1", len(resp.Reports))
	}

	rec = doJSON(t, router, "GET", "/api/org-reports/unknown-org", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown org status = %d", rec.Code)
	}

	rec = doJSON(t, router, "GET", "/api/org-reports/"+shelter.ID+"?view=bogus", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad view status = %d", rec.Code)
	}
}

func TestRegisterAndLoginOverHTTP(t *testing.T) {
	e := setupEnv(t)
	router := e.server.Router()

	rec := doJSON(t, router, "POST", "/api/register-org", map[string]any{
		"name":       "New Shelter",
		"type":       "SHELTER",
		"accessCode": "new-shelter-code",
		"country":    "USA",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d body = %s", rec.Code, rec.Body.String())
	}
	var created store.Organization
	decodeBody(t, rec, &created)
	if created.AccessCode != "" {
		t.Fatal("registration response leaked the access code")
	}

	// Not approved yet.
	rec = doJSON(t, router, "POST", "/api/login", map[string]string{"accessCode": "new-shelter-code"}, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("pending login status = %d", rec.Code)
	}

	admin := map[string]string{"X-Admin-Token": e.cfg.AdminToken}
	rec = doJSON(t, router, "PUT", "/api/admin/update-status/"+created.ID, map[string]string{"status": "APPROVED"}, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve status = %d body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, "POST", "/api/login", map[string]string{"accessCode": "new-shelter-code"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("approved login status = %d", rec.Code)
	}
	var loginResp struct {
		Organization store.Organization `json:"organization"`
	}
	decodeBody(t, rec, &loginResp)
	if loginResp.Organization.ID != created.ID || loginResp.Organization.AccessCode != "" {
		t.Fatalf("login response = %+v", loginResp.Organization)
	}

	rec = doJSON(t, router, "POST", "/api/login", map[string]string{"accessCode": "wrong"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d", rec.Code)
	}
}

func TestHelpDirectoryHidesCredentials(t *testing.T) {
	e := setupEnv(t)
	router := e.server.Router()
	e.approvedOrg(t, "Visible Org", store.OrgTypeCommunity, "secret-code")

	rec := doJSON(t, router, "GET", "/api/public/help-directory", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "secret-code") {
		t.Fatal("help directory leaked an access code")
	}
	var resp struct {
		Organizations []map[string]any `json:"organizations"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Organizations) != 1 {
		t.Fatalf("directory size = %d", len(resp.Organizations))
	}
	if resp.Organizations[0]["name"] != "Visible Org" {
		t.Fatalf("entry = %v", resp.Organizations[0])
	}
}

func TestAdminEndpoints(t *testing.T) {
	e := setupEnv(t)
	router := e.server.Router()
	shelter := e.approvedOrg(t, "Shelter", store.OrgTypeShelter, "shelter-code")
	report := e.submitReport(t, store.CategoryDomesticViolence, false)
	admin := map[string]string{"X-Admin-Token": e.cfg.AdminToken}

	// No token, wrong token.
	rec := doJSON(t, router, "GET", "/api/admin/all-reports", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token status = %d", rec.Code)
	}
	rec = doJSON(t, router, "GET", "/api/admin/all-reports", nil, map[string]string{"X-Admin-Token": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token status = %d", rec.Code)
	}

	rec = doJSON(t, router, "GET", "/api/admin/all-reports?tab=unclaimed", nil, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("all-reports status = %d body = %s", rec.Code, rec.Body.String())
	}
	var listResp struct {
		Reports []store.Report             `json:"reports"`
		Counts  map[store.ReportStatus]int `json:"counts"`
	}
	decodeBody(t, rec, &listResp)
	if len(listResp.Reports) != 1 || listResp.Counts[store.StatusPending] != 1 {
		t.Fatalf("reports=%d counts=%v", len(listResp.Reports), listResp.Counts)
	}

	rec = doJSON(t, router, "PUT", "/api/admin/assign-report/"+report.ID, map[string]any{"orgId": shelter.ID}, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("assign status = %d body = %s", rec.Code, rec.Body.String())
	}
	var assigned store.Report
	decodeBody(t, rec, &assigned)
	if assigned.AssignedTo == nil || assigned.AssignedTo.OrgID != shelter.ID {
		t.Fatalf("assignment = %+v", assigned.AssignedTo)
	}

	rec = doJSON(t, router, "PUT", "/api/admin/mark-priority/"+report.ID, nil, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("priority status = %d", rec.Code)
	}
	var prio struct {
		IsPriority bool `json:"isPriority"`
	}
	decodeBody(t, rec, &prio)
	if !prio.IsPriority {
		t.Fatal("priority not set")
	}

	rec = doJSON(t, router, "PUT", "/api/admin/unclaim-report/"+report.ID, nil, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("unclaim status = %d", rec.Code)
	}
	var unclaimed store.Report
	decodeBody(t, rec, &unclaimed)
	if unclaimed.AssignedTo != nil || unclaimed.Status != store.StatusPending {
		t.Fatalf("unclaimed = %+v", unclaimed)
	}

	rec = doJSON(t, router, "GET", "/api/admin/audit-log", nil, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("audit-log status = %d", rec.Code)
	}
	var auditResp struct {
		Items []store.AuditEntry `json:"items"`
	}
	decodeBody(t, rec, &auditResp)
	if len(auditResp.Items) == 0 {
		t.Fatal("audit log empty after admin mutations")
	}

	rec = doJSON(t, router, "DELETE", "/api/admin/delete-org/"+shelter.ID, nil, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doJSON(t, router, "GET", "/api/org-reports/"+shelter.ID, nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("deleted org lookup status = %d", rec.Code)
	}
}
