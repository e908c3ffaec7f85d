package store

// Category is the closed set of incident categories a report can carry. The
// wire values match what victims see on the submission form.
type Category string

const (
	CategoryDomesticViolence Category = "Domestic Violence"
	CategorySexualAssault    Category = "Sexual Assault"
	CategoryPhysicalAbuse    Category = "Physical Abuse"
	CategoryStalking         Category = "Stalking"
	CategoryOther            Category = "Other"
)

func AllCategories() []Category {
	return []Category{
		CategoryDomesticViolence,
		CategorySexualAssault,
		CategoryPhysicalAbuse,
		CategoryStalking,
		CategoryOther,
	}
}

func (c Category) Valid() bool {
	switch c {
	case CategoryDomesticViolence, CategorySexualAssault, CategoryPhysicalAbuse, CategoryStalking, CategoryOther:
		return true
	}
	return false
}

// OrgType is the closed set of responder organization kinds.
type OrgType string

const (
	OrgTypePolice    OrgType = "POLICE"
	OrgTypeShelter   OrgType = "SHELTER"
	OrgTypeMedical   OrgType = "MEDICAL"
	OrgTypeLegal     OrgType = "LEGAL"
	OrgTypeCommunity OrgType = "COMMUNITY"
)

func (t OrgType) Valid() bool {
	switch t {
	case OrgTypePolice, OrgTypeShelter, OrgTypeMedical, OrgTypeLegal, OrgTypeCommunity:
		return true
	}
	return false
}

// ReportStatus is the report lifecycle state. Pending is initial, Resolved is
// terminal on the normal path; In Progress -> Pending happens only through an
// administrative unclaim.
type ReportStatus string

const (
	StatusPending    ReportStatus = "Pending"
	StatusInProgress ReportStatus = "In Progress"
	StatusResolved   ReportStatus = "Resolved"
)

func (s ReportStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// OrgStatus is the organization approval state.
type OrgStatus string

const (
	OrgPending  OrgStatus = "PENDING"
	OrgApproved OrgStatus = "APPROVED"
	OrgRejected OrgStatus = "REJECTED"
)

func (s OrgStatus) Valid() bool {
	switch s {
	case OrgPending, OrgApproved, OrgRejected:
		return true
	}
	return false
}

// ContactMethod is the victim's preferred recontact channel.
type ContactMethod string

const (
	ContactPhone ContactMethod = "PHONE"
	ContactEmail ContactMethod = "EMAIL"
	ContactNone  ContactMethod = "NONE"
)

func (m ContactMethod) Valid() bool {
	switch m {
	case ContactPhone, ContactEmail, ContactNone:
		return true
	}
	return false
}
