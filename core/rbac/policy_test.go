package rbac

import "testing"

func TestRoleInheritance(t *testing.T) {
	p, err := NewPolicy()
	if err != nil {
		t.Fatalf("policy: %v", err)
	}

	if !p.Allowed(RolePublic, PermReportSubmit) {
		t.Fatal("public cannot submit reports")
	}
	if p.Allowed(RolePublic, PermReportClaim) {
		t.Fatal("public must not claim reports")
	}
	if p.Allowed(RolePublic, PermAdminOrgs) {
		t.Fatal("public must not reach admin permissions")
	}

	// Responders inherit public permissions.
	if !p.Allowed(RoleResponder, PermReportSubmit) || !p.Allowed(RoleResponder, PermReportClaim) {
		t.Fatal("responder missing inherited or own permissions")
	}
	if p.Allowed(RoleResponder, PermAdminReports) {
		t.Fatal("responder must not reach admin permissions")
	}

	// Super admin inherits everything.
	for _, perm := range []string{PermReportSubmit, PermReportResolve, PermAdminOrgs, PermAdminReports, PermAdminAudit} {
		if !p.Allowed(RoleSuperAdmin, perm) {
			t.Fatalf("superadmin missing %s", perm)
		}
	}

	if p.Allowed("stranger", PermReportView) {
		t.Fatal("unknown role allowed")
	}
}
