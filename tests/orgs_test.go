package tests

import (
	"errors"
	"reflect"
	"testing"

	"cryout/core/orgs"
	"cryout/core/store"
)

func TestRegisterDefaultsCategoriesByType(t *testing.T) {
	e := setupEnv(t)

	checks := []struct {
		orgType store.OrgType
		want    []store.Category
	}{
		{store.OrgTypePolice, store.AllCategories()},
		{store.OrgTypeShelter, []store.Category{store.CategoryDomesticViolence, store.CategoryStalking, store.CategoryOther}},
		{store.OrgTypeMedical, []store.Category{store.CategorySexualAssault, store.CategoryPhysicalAbuse}},
		{store.OrgTypeLegal, []store.Category{store.CategoryDomesticViolence, store.CategorySexualAssault}},
		{store.OrgTypeCommunity, []store.Category{store.CategoryOther, store.CategoryPhysicalAbuse, store.CategoryDomesticViolence}},
	}
	for _, c := range checks {
		org, err := e.orgsSvc.Register(e.ctx, orgs.RegisterInput{
			Name:       "Org " + string(c.orgType),
			Type:       c.orgType,
			AccessCode: "code-" + string(c.orgType),
			Country:    "USA",
		})
		if err != nil {
			t.Fatalf("register %s: %v", c.orgType, err)
		}
		if org.Status != store.OrgPending {
			t.Fatalf("%s status = %q, want PENDING", c.orgType, org.Status)
		}
		if !reflect.DeepEqual(org.AllowedCategories, c.want) {
			t.Fatalf("%s categories = %v, want %v", c.orgType, org.AllowedCategories, c.want)
		}
	}
}

func TestRegisterValidation(t *testing.T) {
	e := setupEnv(t)

	_, err := e.orgsSvc.Register(e.ctx, orgs.RegisterInput{
		Type:       store.OrgTypeShelter,
		AccessCode: "x",
		Country:    "USA",
	})
	var missing *orgs.MissingFieldError
	if !errors.As(err, &missing) || missing.Field != "name" {
		t.Fatalf("err = %v, want MissingFieldError{name}", err)
	}

	_, err = e.orgsSvc.Register(e.ctx, orgs.RegisterInput{
		Name:       "Org",
		Type:       "CIRCUS",
		AccessCode: "x",
		Country:    "USA",
	})
	if !errors.Is(err, orgs.ErrInvalidOrgType) {
		t.Fatalf("err = %v, want ErrInvalidOrgType", err)
	}
}

func TestDuplicateAccessCodeRejected(t *testing.T) {
	e := setupEnv(t)
	e.approvedOrg(t, "First", store.OrgTypeShelter, "shared-code")

	_, err := e.orgsSvc.Register(e.ctx, orgs.RegisterInput{
		Name:       "Second",
		Type:       store.OrgTypeMedical,
		AccessCode: "shared-code",
		Country:    "USA",
	})
	if !errors.Is(err, store.ErrDuplicateAccessCode) {
		t.Fatalf("err = %v, want ErrDuplicateAccessCode", err)
	}
}

func TestLoginStatusGates(t *testing.T) {
	e := setupEnv(t)

	pending, err := e.orgsSvc.Register(e.ctx, orgs.RegisterInput{
		Name:       "Pending Org",
		Type:       store.OrgTypeShelter,
		AccessCode: "pending-code",
		Country:    "USA",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := e.orgsSvc.Login(e.ctx, "pending-code"); !errors.Is(err, orgs.ErrPendingApproval) {
		t.Fatalf("pending login: err = %v, want ErrPendingApproval", err)
	}
	if _, err := e.orgsSvc.Login(e.ctx, "nope"); !errors.Is(err, orgs.ErrInvalidAccessCode) {
		t.Fatalf("bad code: err = %v, want ErrInvalidAccessCode", err)
	}

	if _, err := e.orgsSvc.SetStatus(e.ctx, pending.ID, store.OrgRejected); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := e.orgsSvc.Login(e.ctx, "pending-code"); !errors.Is(err, orgs.ErrRejected) {
		t.Fatalf("rejected login: err = %v, want ErrRejected", err)
	}

	if _, err := e.orgsSvc.SetStatus(e.ctx, pending.ID, store.OrgApproved); err != nil {
		t.Fatalf("approve: %v", err)
	}
	org, err := e.orgsSvc.Login(e.ctx, "pending-code")
	if err != nil {
		t.Fatalf("approved login: %v", err)
	}
	if org.ID != pending.ID {
		t.Fatalf("login returned %s, want %s", org.ID, pending.ID)
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	e := setupEnv(t)
	if err := e.orgsSvc.Seed(e.ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := e.orgsSvc.Seed(e.ctx); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	list, err := e.orgsSvc.List(e.ctx, store.OrgFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("got %d organizations after double seed, want 3", len(list))
	}
	for _, org := range list {
		if org.Status != store.OrgApproved {
			t.Fatalf("seeded org %s not approved", org.Name)
		}
	}

	// Seeding stops as soon as anything exists, even a single registration.
	e2 := setupEnv(t)
	e2.approvedOrg(t, "Existing", store.OrgTypeLegal, "legal-code")
	if err := e2.orgsSvc.Seed(e2.ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	list, err = e2.orgsSvc.List(e2.ctx, store.OrgFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("seed ran over existing data: %d orgs", len(list))
	}
}

func TestUpdateAllowedCategoriesChangesVisibility(t *testing.T) {
	e := setupEnv(t)
	legal := e.approvedOrg(t, "Legal Aid", store.OrgTypeLegal, "legal-code")
	stalking := e.submitReport(t, store.CategoryStalking, false)

	before, err := e.cases.OrgReports(e.ctx, legal, "all")
	if err != nil {
		t.Fatalf("reports: %v", err)
	}
	if reportIDs(before)[stalking.ID] {
		t.Fatal("stalking visible to legal org before grant")
	}

	legal, err = e.orgsSvc.SetAllowedCategories(e.ctx, legal.ID, []store.Category{store.CategoryStalking})
	if err != nil {
		t.Fatalf("set categories: %v", err)
	}
	after, err := e.cases.OrgReports(e.ctx, legal, "all")
	if err != nil {
		t.Fatalf("reports: %v", err)
	}
	if !reportIDs(after)[stalking.ID] {
		t.Fatal("stalking not visible after grant")
	}
}
