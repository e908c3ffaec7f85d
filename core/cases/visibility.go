package cases

import (
	"context"
	"errors"
	"sort"

	"cryout/core/store"
)

// View selects which slice of the dashboard an organization is looking at.
type View string

const (
	// ViewFeed lists unassigned open cases the organization may claim.
	ViewFeed View = "feed"
	// ViewMine lists cases currently assigned to the organization.
	ViewMine View = "mine"
	// ViewAll lists everything in the organization's visibility scope plus
	// its own assignments.
	ViewAll View = "all"
)

var ErrUnknownView = errors.New("unknown view")

// visibilityFilter translates an organization's type into the report filter
// that bounds what it may see. Police organizations see exactly the cases
// where the victim consented to police contact; every other type sees the
// categories it was admitted for.
func visibilityFilter(org *store.Organization) store.ReportFilter {
	if org.Type == store.OrgTypePolice {
		consent := true
		return store.ReportFilter{ContactPolice: &consent}
	}
	cats := org.AllowedCategories
	if len(cats) == 0 {
		// An org with no admitted categories sees nothing. The impossible
		// category keeps the IN clause from matching.
		cats = []store.Category{store.Category("")}
	}
	return store.ReportFilter{Categories: cats}
}

// OrgReports returns the reports an organization sees for the requested view.
// Force-assigned cases outside the organization's normal scope still show up
// under mine and all.
func (s *Service) OrgReports(ctx context.Context, org *store.Organization, view View) ([]store.Report, error) {
	switch view {
	case ViewFeed:
		f := visibilityFilter(org)
		f.Unassigned = true
		f.Statuses = []store.ReportStatus{store.StatusPending}
		return s.listOrEmpty(ctx, f)
	case ViewMine:
		// My-cases is a worklist: resolved cases drop out of it.
		return s.listOrEmpty(ctx, store.ReportFilter{
			AssignedOrgID: org.ID,
			Statuses:      []store.ReportStatus{store.StatusInProgress},
		})
	case ViewAll, "":
		scoped, err := s.reports.ListReports(ctx, visibilityFilter(org))
		if err != nil {
			return nil, err
		}
		mine, err := s.reports.ListReports(ctx, store.ReportFilter{AssignedOrgID: org.ID})
		if err != nil {
			return nil, err
		}
		return mergeReports(scoped, mine), nil
	default:
		return nil, ErrUnknownView
	}
}

// OversightTab selects a slice of the super-admin case lists. Oversight
// bypasses organization visibility entirely.
type OversightTab string

const (
	TabAll       OversightTab = ""
	TabEscalated OversightTab = "escalated"
	TabUnclaimed OversightTab = "unclaimed"
	TabActive    OversightTab = "active"
	TabResolved  OversightTab = "resolved"
)

var ErrUnknownTab = errors.New("unknown tab")

func (s *Service) Oversight(ctx context.Context, tab OversightTab, orgID string) ([]store.Report, error) {
	f := store.ReportFilter{AssignedOrgID: orgID}
	switch tab {
	case TabAll:
	case TabEscalated:
		esc := true
		f.Escalated = &esc
	case TabUnclaimed:
		f.Unassigned = true
		f.Statuses = []store.ReportStatus{store.StatusPending}
	case TabActive:
		f.Statuses = []store.ReportStatus{store.StatusInProgress}
	case TabResolved:
		f.Statuses = []store.ReportStatus{store.StatusResolved}
	default:
		return nil, ErrUnknownTab
	}
	return s.listOrEmpty(ctx, f)
}

func (s *Service) listOrEmpty(ctx context.Context, f store.ReportFilter) ([]store.Report, error) {
	out, err := s.reports.ListReports(ctx, f)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []store.Report{}
	}
	return out, nil
}

// mergeReports unions two listings, dropping duplicates and restoring the
// priority-first, newest-first order.
func mergeReports(a, b []store.Report) []store.Report {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]store.Report, 0, len(a)+len(b))
	for _, list := range [][]store.Report{a, b} {
		for _, r := range list {
			if _, ok := seen[r.ID]; ok {
				continue
			}
			seen[r.ID] = struct{}{}
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsPriority != out[j].IsPriority {
			return out[i].IsPriority
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
