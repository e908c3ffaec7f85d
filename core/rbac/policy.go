package rbac

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

// Roles recognized by the policy.
const (
	RolePublic     = "public"
	RoleResponder  = "responder"
	RoleSuperAdmin = "superadmin"
)

// Permissions checked by the API layer.
const (
	PermReportSubmit   = "reports.submit"
	PermReportView     = "reports.view"
	PermReportClaim    = "reports.claim"
	PermReportEscalate = "reports.escalate"
	PermReportResolve  = "reports.resolve"
	PermOrgRegister    = "orgs.register"
	PermOrgLogin       = "orgs.login"
	PermDirectoryView  = "directory.view"
	PermAdminOrgs      = "admin.orgs"
	PermAdminReports   = "admin.reports"
	PermAdminAudit     = "admin.audit"
)

const modelText = `
[request_definition]
r = sub, perm

[policy_definition]
p = sub, perm

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.perm == p.perm
`

var grants = map[string][]string{
	RolePublic:     {PermReportSubmit, PermOrgRegister, PermOrgLogin, PermDirectoryView},
	RoleResponder:  {PermReportView, PermReportClaim, PermReportEscalate, PermReportResolve},
	RoleSuperAdmin: {PermAdminOrgs, PermAdminReports, PermAdminAudit},
}

// Policy answers whether a role holds a permission. Role inheritance runs
// superadmin > responder > public.
type Policy struct {
	enforcer *casbin.Enforcer
}

func NewPolicy() (*Policy, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("rbac model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("rbac enforcer: %w", err)
	}
	for role, perms := range grants {
		for _, perm := range perms {
			if _, err := e.AddPolicy(role, perm); err != nil {
				return nil, fmt.Errorf("rbac policy: %w", err)
			}
		}
	}
	for _, link := range [][2]string{
		{RoleResponder, RolePublic},
		{RoleSuperAdmin, RoleResponder},
	} {
		if _, err := e.AddGroupingPolicy(link[0], link[1]); err != nil {
			return nil, fmt.Errorf("rbac grouping: %w", err)
		}
	}
	return &Policy{enforcer: e}, nil
}

func (p *Policy) Allowed(role, perm string) bool {
	ok, err := p.enforcer.Enforce(role, perm)
	return err == nil && ok
}
