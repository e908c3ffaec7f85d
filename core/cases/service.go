package cases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/apex/log"

	"cryout/core/store"
)

var (
	ErrInvalidCategory    = errors.New("invalid category")
	ErrEmptyDescription   = errors.New("empty description")
	ErrSuperAdminRequired = errors.New("super admin required")
)

// Actor identifies who performs a case operation. Responder actions carry
// the organization identity; administrative overrides set SuperAdmin.
type Actor struct {
	OrgID      string
	OrgName    string
	SuperAdmin bool
}

func (a Actor) auditName() string {
	if a.SuperAdmin {
		return "super-admin"
	}
	if a.OrgName != "" {
		return a.OrgName
	}
	return a.OrgID
}

// Service owns the report lifecycle: anonymous submission, responder
// claim/escalate/resolve, and administrative overrides.
type Service struct {
	reports store.ReportsStore
	audits  store.AuditStore
	logger  log.Interface
}

func NewService(reports store.ReportsStore, audits store.AuditStore, logger log.Interface) *Service {
	return &Service{reports: reports, audits: audits, logger: logger}
}

// SubmitInput carries everything a victim provides on the public form.
// Media URLs are produced by the upload layer before submission reaches
// the service.
type SubmitInput struct {
	Category      store.Category
	Description   string
	Media         []string
	Location      store.Location
	ContactPolice bool
	ContactInfo   store.ContactInfo
}

func (s *Service) Submit(ctx context.Context, in SubmitInput) (*store.Report, error) {
	if !in.Category.Valid() {
		return nil, ErrInvalidCategory
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, ErrEmptyDescription
	}
	loc := in.Location
	if !loc.HasGPS() && strings.TrimSpace(loc.Address) == "" {
		loc.Address = "Not provided"
	}
	contact := in.ContactInfo
	if !contact.Method.Valid() {
		contact.Method = store.ContactNone
	}
	if contact.Method == store.ContactNone {
		contact.Value = ""
	}
	r := &store.Report{
		Category:      in.Category,
		Description:   strings.TrimSpace(in.Description),
		Media:         in.Media,
		Location:      loc,
		ContactPolice: in.ContactPolice,
		ContactInfo:   contact,
		Status:        store.StatusPending,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.reports.CreateReport(ctx, r); err != nil {
		return nil, err
	}
	s.logger.WithFields(log.Fields{"report": r.ID, "category": r.Category}).Info("report submitted")
	return r, nil
}

func (s *Service) Get(ctx context.Context, id string) (*store.Report, error) {
	r, err := s.reports.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, store.ErrNotFound
	}
	return r, nil
}

// Claim puts the case In Progress under the acting organization. Exactly one
// of any set of concurrent claims succeeds; losers get ErrAlreadyClaimed.
func (s *Service) Claim(ctx context.Context, actor Actor, id string) (*store.Report, error) {
	a := store.Assignment{OrgID: actor.OrgID, OrgName: actor.OrgName, ClaimedAt: time.Now().UTC()}
	if err := s.reports.ClaimReport(ctx, id, a); err != nil {
		return nil, err
	}
	s.audit(ctx, actor, "cases.claim", id)
	return s.Get(ctx, id)
}

// Escalate raises the urgency flag. Escalation is one-way and idempotent;
// escalating an escalated case is not an error.
func (s *Service) Escalate(ctx context.Context, actor Actor, id string) (*store.Report, error) {
	if err := s.reports.EscalateReport(ctx, id, false); err != nil {
		return nil, err
	}
	s.audit(ctx, actor, "cases.escalate", id)
	return s.Get(ctx, id)
}

// RequestPoliceIntervention escalates the case and flips police consent on.
// The consent flip is one-way; it makes the case visible to police
// organizations from here onward.
func (s *Service) RequestPoliceIntervention(ctx context.Context, actor Actor, id string) (*store.Report, error) {
	if err := s.reports.EscalateReport(ctx, id, true); err != nil {
		return nil, err
	}
	s.audit(ctx, actor, "cases.request_police", id)
	return s.Get(ctx, id)
}

// Resolve closes the case with the actor's resolution. A prior claim is not
// required; any responder seeing a case may close it.
func (s *Service) Resolve(ctx context.Context, actor Actor, id, notes string, proof []string) (*store.Report, error) {
	res := store.Resolution{
		ResolvedBy: actor.auditName(),
		ResolvedAt: time.Now().UTC(),
		Notes:      notes,
		Proof:      proof,
	}
	if err := s.reports.ResolveReport(ctx, id, res); err != nil {
		return nil, err
	}
	s.audit(ctx, actor, "cases.resolve", id)
	return s.Get(ctx, id)
}

// ForceAssign hands the case to the given organization regardless of any
// existing assignment. isPolice additionally flips police consent on so a
// police org can actually see what it was just given.
func (s *Service) ForceAssign(ctx context.Context, actor Actor, id string, org *store.Organization, isPolice bool) (*store.Report, error) {
	if !actor.SuperAdmin {
		return nil, ErrSuperAdminRequired
	}
	a := store.Assignment{OrgID: org.ID, OrgName: org.Name, ClaimedAt: time.Now().UTC()}
	if err := s.reports.ForceAssignReport(ctx, id, a, isPolice); err != nil {
		return nil, err
	}
	s.audit(ctx, actor, "cases.force_assign", fmt.Sprintf("%s -> %s", id, org.Name))
	return s.Get(ctx, id)
}

// ForceUnclaim returns the case to the unassigned pool. Escalation and
// police-consent flags survive.
func (s *Service) ForceUnclaim(ctx context.Context, actor Actor, id string) (*store.Report, error) {
	if !actor.SuperAdmin {
		return nil, ErrSuperAdminRequired
	}
	if err := s.reports.UnclaimReport(ctx, id); err != nil {
		return nil, err
	}
	s.audit(ctx, actor, "cases.force_unclaim", id)
	return s.Get(ctx, id)
}

// TogglePriority flips the priority flag and returns the new value. Priority
// cases sort ahead of everything else in every listing.
func (s *Service) TogglePriority(ctx context.Context, actor Actor, id string) (bool, error) {
	if !actor.SuperAdmin {
		return false, ErrSuperAdminRequired
	}
	val, err := s.reports.TogglePriority(ctx, id)
	if err != nil {
		return false, err
	}
	s.audit(ctx, actor, "cases.toggle_priority", fmt.Sprintf("%s -> %t", id, val))
	return val, nil
}

func (s *Service) StatusCounts(ctx context.Context) (map[store.ReportStatus]int, error) {
	return s.reports.CountReportsByStatus(ctx)
}

func (s *Service) audit(ctx context.Context, actor Actor, action, details string) {
	if s.audits == nil {
		return
	}
	if err := s.audits.Log(ctx, actor.auditName(), action, details); err != nil {
		s.logger.WithError(err).WithField("action", action).Warn("audit write failed")
	}
}
