package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
)

type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

// HasGPS reports whether the location carries a real coordinate. {0,0} is the
// "no GPS available" sentinel and must never be rendered as a map link.
func (l Location) HasGPS() bool {
	return l.Lat != 0 || l.Lng != 0
}

type ContactInfo struct {
	Method          ContactMethod `json:"method"`
	Value           string        `json:"value,omitempty"`
	SafeToVoicemail bool          `json:"safeToVoicemail"`
	SafeTime        string        `json:"safeTime,omitempty"`
	ImmediateHelp   bool          `json:"immediateHelp"`
}

// Assignment snapshots the organization owning a case. The name is
// denormalized so historic display survives an org rename or deletion.
type Assignment struct {
	OrgID     string    `json:"orgId"`
	OrgName   string    `json:"orgName"`
	ClaimedAt time.Time `json:"claimedAt"`
}

type Resolution struct {
	ResolvedBy string    `json:"resolvedBy"`
	ResolvedAt time.Time `json:"resolvedAt"`
	Notes      string    `json:"notes,omitempty"`
	Proof      []string  `json:"proof,omitempty"`
}

type Report struct {
	ID            string       `json:"id"`
	Category      Category     `json:"category"`
	Description   string       `json:"description"`
	Media         []string     `json:"media,omitempty"`
	Location      Location     `json:"location"`
	ContactPolice bool         `json:"contactPolice"`
	ContactInfo   ContactInfo  `json:"contactInfo"`
	Status        ReportStatus `json:"status"`
	AssignedTo    *Assignment  `json:"assignedTo,omitempty"`
	IsPriority    bool         `json:"isPriority"`
	IsEscalated   bool         `json:"isEscalated"`
	Resolution    *Resolution  `json:"resolution,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
}

type ReportFilter struct {
	Categories    []Category
	ContactPolice *bool
	Statuses      []ReportStatus
	AssignedOrgID string
	Unassigned    bool
	Escalated     *bool
	Limit         int
	Offset        int
}

type ReportsStore interface {
	CreateReport(ctx context.Context, r *Report) error
	GetReport(ctx context.Context, id string) (*Report, error)
	ListReports(ctx context.Context, filter ReportFilter) ([]Report, error)

	// ClaimReport is a single conditional update on "assignedTo is empty";
	// concurrent claims serialize at the store and only the first succeeds.
	ClaimReport(ctx context.Context, id string, a Assignment) error
	EscalateReport(ctx context.Context, id string, police bool) error
	ResolveReport(ctx context.Context, id string, res Resolution) error
	ForceAssignReport(ctx context.Context, id string, a Assignment, police bool) error
	UnclaimReport(ctx context.Context, id string) error
	TogglePriority(ctx context.Context, id string) (bool, error)

	CountReportsByStatus(ctx context.Context) (map[ReportStatus]int, error)
}

type reportsStore struct {
	db *DB
}

func NewReportsStore(db *DB) ReportsStore {
	return &reportsStore{db: db}
}

const reportColumns = `id, category, description, media_json, lat, lng, address,
	contact_police, contact_method, contact_value, safe_to_voicemail, safe_time, immediate_help,
	status, assigned_org_id, assigned_org_name, claimed_at,
	is_priority, is_escalated,
	resolved_by, resolved_at, resolution_notes, resolution_proof_json, created_at`

func (s *reportsStore) CreateReport(ctx context.Context, r *Report) error {
	if strings.TrimSpace(r.ID) == "" {
		r.ID = uuid.Must(uuid.NewV4()).String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	if r.ContactInfo.Method == "" {
		r.ContactInfo.Method = ContactNone
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO reports(id, category, description, media_json, lat, lng, address,
			contact_police, contact_method, contact_value, safe_to_voicemail, safe_time, immediate_help,
			status, assigned_org_id, assigned_org_name, claimed_at,
			is_priority, is_escalated,
			resolved_by, resolved_at, resolution_notes, resolution_proof_json, created_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`),
		r.ID, r.Category, r.Description, listToJSON(r.Media), r.Location.Lat, r.Location.Lng, r.Location.Address,
		r.ContactPolice, r.ContactInfo.Method, r.ContactInfo.Value, r.ContactInfo.SafeToVoicemail, r.ContactInfo.SafeTime, r.ContactInfo.ImmediateHelp,
		r.Status, nil, "", nil,
		r.IsPriority, r.IsEscalated,
		"", nil, "", listToJSON(nil), r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (s *reportsStore) GetReport(ctx context.Context, id string) (*Report, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`
		SELECT `+reportColumns+` FROM reports WHERE id=?`), id)
	return scanReport(row)
}

func (s *reportsStore) ListReports(ctx context.Context, filter ReportFilter) ([]Report, error) {
	var clauses []string
	var args []any
	if len(filter.Categories) > 0 {
		placeholders := strings.TrimRight(strings.Repeat("?,", len(filter.Categories)), ",")
		clauses = append(clauses, fmt.Sprintf("category IN (%s)", placeholders))
		for _, c := range filter.Categories {
			args = append(args, c)
		}
	}
	if filter.ContactPolice != nil {
		clauses = append(clauses, "contact_police=?")
		args = append(args, *filter.ContactPolice)
	}
	if len(filter.Statuses) > 0 {
		placeholders := strings.TrimRight(strings.Repeat("?,", len(filter.Statuses)), ",")
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", placeholders))
		for _, st := range filter.Statuses {
			args = append(args, st)
		}
	}
	if filter.AssignedOrgID != "" {
		clauses = append(clauses, "assigned_org_id=?")
		args = append(args, filter.AssignedOrgID)
	}
	if filter.Unassigned {
		clauses = append(clauses, "assigned_org_id IS NULL")
	}
	if filter.Escalated != nil {
		clauses = append(clauses, "is_escalated=?")
		args = append(args, *filter.Escalated)
	}
	query := `SELECT ` + reportColumns + ` FROM reports`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	// Display contract: priority cases first, newest within each tier.
	query += " ORDER BY is_priority DESC, created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *reportsStore) ClaimReport(ctx context.Context, id string, a Assignment) error {
	claimedAt := a.ClaimedAt
	if claimedAt.IsZero() {
		claimedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE reports SET status=?, assigned_org_id=?, assigned_org_name=?, claimed_at=?
		WHERE id=? AND assigned_org_id IS NULL AND status!=?`),
		StatusInProgress, a.OrgID, a.OrgName, claimedAt, id, StatusResolved)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		r, err := s.GetReport(ctx, id)
		if err != nil {
			return err
		}
		if r == nil {
			return ErrNotFound
		}
		if r.AssignedTo != nil {
			return ErrAlreadyClaimed
		}
		return ErrAlreadyResolved
	}
	return nil
}

func (s *reportsStore) EscalateReport(ctx context.Context, id string, police bool) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE reports SET is_escalated=?, contact_police=(contact_police OR ?)
		WHERE id=? AND status!=?`),
		true, police, id, StatusResolved)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		r, err := s.GetReport(ctx, id)
		if err != nil {
			return err
		}
		if r == nil {
			return ErrNotFound
		}
		return ErrAlreadyResolved
	}
	return nil
}

func (s *reportsStore) ResolveReport(ctx context.Context, id string, resolution Resolution) error {
	resolvedAt := resolution.ResolvedAt
	if resolvedAt.IsZero() {
		resolvedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE reports SET status=?, resolved_by=?, resolved_at=?, resolution_notes=?, resolution_proof_json=?
		WHERE id=? AND status!=?`),
		StatusResolved, resolution.ResolvedBy, resolvedAt, resolution.Notes, listToJSON(resolution.Proof), id, StatusResolved)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		r, err := s.GetReport(ctx, id)
		if err != nil {
			return err
		}
		if r == nil {
			return ErrNotFound
		}
		return ErrAlreadyResolved
	}
	return nil
}

func (s *reportsStore) ForceAssignReport(ctx context.Context, id string, a Assignment, police bool) error {
	claimedAt := a.ClaimedAt
	if claimedAt.IsZero() {
		claimedAt = time.Now().UTC()
	}
	// Administrative override: overwrites any existing assignment on purpose.
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE reports SET status=?, assigned_org_id=?, assigned_org_name=?, claimed_at=?, contact_police=(contact_police OR ?)
		WHERE id=?`),
		StatusInProgress, a.OrgID, a.OrgName, claimedAt, police, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *reportsStore) UnclaimReport(ctx context.Context, id string) error {
	// Escalation and police-consent flags are one-way and survive unclaim.
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE reports SET status=?, assigned_org_id=NULL, assigned_org_name='', claimed_at=NULL
		WHERE id=?`),
		StatusPending, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *reportsStore) TogglePriority(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE reports SET is_priority=(NOT is_priority) WHERE id=?`), id)
	if err != nil {
		return false, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return false, ErrNotFound
	}
	var val bool
	if err := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT is_priority FROM reports WHERE id=?`), id).Scan(&val); err != nil {
		return false, err
	}
	return val, nil
}

func (s *reportsStore) CountReportsByStatus(ctx context.Context) (map[ReportStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM reports GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[ReportStatus]int{}
	for rows.Next() {
		var st ReportStatus
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		out[st] = n
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*Report, error) {
	var r Report
	var mediaJSON, proofJSON string
	var assignedID, assignedName sql.NullString
	var claimedAt, resolvedAt sql.NullTime
	var resolvedBy, notes sql.NullString
	err := row.Scan(&r.ID, &r.Category, &r.Description, &mediaJSON, &r.Location.Lat, &r.Location.Lng, &r.Location.Address,
		&r.ContactPolice, &r.ContactInfo.Method, &r.ContactInfo.Value, &r.ContactInfo.SafeToVoicemail, &r.ContactInfo.SafeTime, &r.ContactInfo.ImmediateHelp,
		&r.Status, &assignedID, &assignedName, &claimedAt,
		&r.IsPriority, &r.IsEscalated,
		&resolvedBy, &resolvedAt, &notes, &proofJSON, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.Media = listFromJSON(mediaJSON)
	if assignedID.Valid && assignedID.String != "" {
		r.AssignedTo = &Assignment{OrgID: assignedID.String, OrgName: assignedName.String}
		if claimedAt.Valid {
			r.AssignedTo.ClaimedAt = claimedAt.Time
		}
	}
	if resolvedAt.Valid {
		r.Resolution = &Resolution{
			ResolvedBy: resolvedBy.String,
			ResolvedAt: resolvedAt.Time,
			Notes:      notes.String,
			Proof:      listFromJSON(proofJSON),
		}
	}
	return &r, nil
}

func listToJSON(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func listFromJSON(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "[]" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}
