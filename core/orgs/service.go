package orgs

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
	ErrInvalidAccessCode = errors.New("invalid access code")
	ErrPendingApproval   = errors.New("organization pending approval")
	ErrRejected          = errors.New("organization rejected")
	ErrInvalidOrgType    = errors.New("invalid organization type")
	ErrInvalidStatus     = errors.New("invalid organization status")
	ErrInvalidCategory   = errors.New("invalid category")
)

// MissingFieldError names the registration field that was left empty.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

// Service owns responder organization lifecycle: registration, access-code
// login, and the super-admin approval and category-grant operations.
type Service struct {
	orgs   store.OrgsStore
	audits store.AuditStore
	logger log.Interface
}

func NewService(orgs store.OrgsStore, audits store.AuditStore, logger log.Interface) *Service {
	return &Service{orgs: orgs, audits: audits, logger: logger}
}

type RegisterInput struct {
	Name               string
	Type               store.OrgType
	AccessCode         string
	Country            string
	Region             string
	City               string
	Address            string
	ContactEmail       string
	ContactPhone       string
	Website            string
	RegistrationNumber string
	Description        string
	Documents          []string
}

// defaultCategories maps an organization type to the categories it is
// admitted for until a super admin adjusts the grant. Police scope is not
// category-based at all, but the full set keeps the record meaningful if the
// type is ever edited.
func defaultCategories(t store.OrgType) []store.Category {
	switch t {
	case store.OrgTypePolice:
		return store.AllCategories()
	case store.OrgTypeShelter:
		return []store.Category{store.CategoryDomesticViolence, store.CategoryStalking, store.CategoryOther}
	case store.OrgTypeMedical:
		return []store.Category{store.CategorySexualAssault, store.CategoryPhysicalAbuse}
	case store.OrgTypeLegal:
		return []store.Category{store.CategoryDomesticViolence, store.CategorySexualAssault}
	case store.OrgTypeCommunity:
		return []store.Category{store.CategoryOther, store.CategoryPhysicalAbuse, store.CategoryDomesticViolence}
	}
	return nil
}

// Register files a new organization in PENDING status. It cannot log in
// until a super admin approves it.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*store.Organization, error) {
	for _, f := range []struct{ name, val string }{
		{"name", in.Name},
		{"country", in.Country},
		{"type", string(in.Type)},
		{"accessCode", in.AccessCode},
	} {
		if strings.TrimSpace(f.val) == "" {
			return nil, &MissingFieldError{Field: f.name}
		}
	}
	if !in.Type.Valid() {
		return nil, ErrInvalidOrgType
	}
	org := &store.Organization{
		Name:               strings.TrimSpace(in.Name),
		Type:               in.Type,
		AccessCode:         strings.TrimSpace(in.AccessCode),
		Country:            strings.TrimSpace(in.Country),
		Region:             strings.TrimSpace(in.Region),
		City:               strings.TrimSpace(in.City),
		Address:            strings.TrimSpace(in.Address),
		ContactEmail:       strings.TrimSpace(in.ContactEmail),
		ContactPhone:       strings.TrimSpace(in.ContactPhone),
		Website:            strings.TrimSpace(in.Website),
		RegistrationNumber: strings.TrimSpace(in.RegistrationNumber),
		Description:        strings.TrimSpace(in.Description),
		Documents:          in.Documents,
		AllowedCategories:  defaultCategories(in.Type),
		Status:             store.OrgPending,
		CreatedAt:          time.Now().UTC(),
	}
	if err := s.orgs.CreateOrganization(ctx, org); err != nil {
		return nil, err
	}
	s.logger.WithFields(log.Fields{"org": org.ID, "type": org.Type}).Info("organization registered")
	return org, nil
}

// Login exchanges an access code for the organization it belongs to. The
// error distinguishes a wrong code from a known org that is not approved;
// the pending and rejected cases carry different messages on purpose.
func (s *Service) Login(ctx context.Context, accessCode string) (*store.Organization, error) {
	accessCode = strings.TrimSpace(accessCode)
	if accessCode == "" {
		return nil, ErrInvalidAccessCode
	}
	org, err := s.orgs.FindByAccessCode(ctx, accessCode)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, ErrInvalidAccessCode
	}
	switch org.Status {
	case store.OrgApproved:
		return org, nil
	case store.OrgPending:
		return nil, ErrPendingApproval
	case store.OrgRejected:
		return nil, ErrRejected
	default:
		return nil, ErrInvalidAccessCode
	}
}

func (s *Service) Get(ctx context.Context, id string) (*store.Organization, error) {
	org, err := s.orgs.GetOrganization(ctx, id)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, store.ErrNotFound
	}
	return org, nil
}

func (s *Service) List(ctx context.Context, filter store.OrgFilter) ([]store.Organization, error) {
	out, err := s.orgs.ListOrganizations(ctx, filter)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []store.Organization{}
	}
	return out, nil
}

// Approved lists approved organizations with credentials redacted, for the
// public help directory and admin assignment pickers.
func (s *Service) Approved(ctx context.Context, orgType store.OrgType) ([]store.Organization, error) {
	out, err := s.List(ctx, store.OrgFilter{Status: store.OrgApproved, Type: orgType})
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].AccessCode = ""
	}
	return out, nil
}

// SetStatus moves an organization between PENDING, APPROVED and REJECTED.
func (s *Service) SetStatus(ctx context.Context, id string, status store.OrgStatus) (*store.Organization, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if err := s.orgs.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	s.audit(ctx, "orgs.set_status", fmt.Sprintf("%s -> %s", id, status))
	return s.Get(ctx, id)
}

// SetAllowedCategories replaces the organization's category grant.
func (s *Service) SetAllowedCategories(ctx context.Context, id string, categories []store.Category) (*store.Organization, error) {
	for _, c := range categories {
		if !c.Valid() {
			return nil, ErrInvalidCategory
		}
	}
	if err := s.orgs.UpdateAllowedCategories(ctx, id, categories); err != nil {
		return nil, err
	}
	s.audit(ctx, "orgs.set_categories", id)
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.orgs.DeleteOrganization(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, "orgs.delete", id)
	return nil
}

// Seed installs the sample responder organizations on an empty database so a
// fresh deployment has someone to hand cases to. Idempotent: it does nothing
// once any organization exists.
func (s *Service) Seed(ctx context.Context) error {
	n, err := s.orgs.CountOrganizations(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	samples := []store.Organization{
		{
			Name:              "City Police Department",
			Type:              store.OrgTypePolice,
			AccessCode:        "police123",
			Country:           "USA",
			City:              "Springfield",
			AllowedCategories: defaultCategories(store.OrgTypePolice),
			Status:            store.OrgApproved,
		},
		{
			Name:              "Safe Haven Shelter",
			Type:              store.OrgTypeShelter,
			AccessCode:        "safe123",
			Country:           "USA",
			City:              "Springfield",
			AllowedCategories: defaultCategories(store.OrgTypeShelter),
			Status:            store.OrgApproved,
		},
		{
			Name:              "Community Help Center",
			Type:              store.OrgTypeCommunity,
			AccessCode:        "help123",
			Country:           "USA",
			City:              "Springfield",
			AllowedCategories: defaultCategories(store.OrgTypeCommunity),
			Status:            store.OrgApproved,
		},
	}
	for i := range samples {
		samples[i].CreatedAt = time.Now().UTC()
		if err := s.orgs.CreateOrganization(ctx, &samples[i]); err != nil {
			return err
		}
	}
	s.logger.WithField("count", len(samples)).Info("seeded sample organizations")
	return nil
}

func (s *Service) audit(ctx context.Context, action, details string) {
	if s.audits == nil {
		return
	}
	if err := s.audits.Log(ctx, "super-admin", action, details); err != nil {
		s.logger.WithError(err).WithField("action", action).Warn("audit write failed")
	}
}
