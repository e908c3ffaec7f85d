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

type Organization struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Type               OrgType    `json:"type"`
	AccessCode         string     `json:"accessCode,omitempty"`
	Country            string     `json:"country,omitempty"`
	Region             string     `json:"region,omitempty"`
	City               string     `json:"city,omitempty"`
	Address            string     `json:"address,omitempty"`
	ContactEmail       string     `json:"contactEmail,omitempty"`
	ContactPhone       string     `json:"contactPhone,omitempty"`
	Website            string     `json:"website,omitempty"`
	RegistrationNumber string     `json:"registrationNumber,omitempty"`
	Description        string     `json:"description,omitempty"`
	Documents          []string   `json:"documents,omitempty"`
	AllowedCategories  []Category `json:"allowedCategories"`
	Status             OrgStatus  `json:"status"`
	CreatedAt          time.Time  `json:"createdAt"`
}

type OrgFilter struct {
	Status OrgStatus
	Type   OrgType
}

type OrgsStore interface {
	CreateOrganization(ctx context.Context, org *Organization) error
	GetOrganization(ctx context.Context, id string) (*Organization, error)
	FindByAccessCode(ctx context.Context, accessCode string) (*Organization, error)
	ListOrganizations(ctx context.Context, filter OrgFilter) ([]Organization, error)
	UpdateStatus(ctx context.Context, id string, status OrgStatus) error
	UpdateAllowedCategories(ctx context.Context, id string, categories []Category) error
	DeleteOrganization(ctx context.Context, id string) error
	CountOrganizations(ctx context.Context) (int, error)
}

type orgsStore struct {
	db *DB
}

func NewOrgsStore(db *DB) OrgsStore {
	return &orgsStore{db: db}
}

const orgColumns = `id, name, org_type, access_code, country, region, city, address,
	contact_email, contact_phone, website, registration_number, description,
	documents_json, allowed_categories_json, status, created_at`

func (s *orgsStore) CreateOrganization(ctx context.Context, org *Organization) error {
	if strings.TrimSpace(org.ID) == "" {
		org.ID = uuid.Must(uuid.NewV4()).String()
	}
	if org.CreatedAt.IsZero() {
		org.CreatedAt = time.Now().UTC()
	}
	if org.Status == "" {
		org.Status = OrgPending
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	// Access codes are the sole login credential; the duplicate check runs
	// before the insert inside the same transaction, with the UNIQUE
	// constraint as the backstop.
	var exists bool
	err = tx.QueryRowContext(ctx, s.db.Rebind(`SELECT EXISTS(SELECT 1 FROM organizations WHERE access_code=?)`), org.AccessCode).Scan(&exists)
	if err != nil {
		tx.Rollback()
		return err
	}
	if exists {
		tx.Rollback()
		return ErrDuplicateAccessCode
	}
	_, err = tx.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO organizations(id, name, org_type, access_code, country, region, city, address,
			contact_email, contact_phone, website, registration_number, description,
			documents_json, allowed_categories_json, status, created_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`),
		org.ID, org.Name, org.Type, org.AccessCode, org.Country, org.Region, org.City, org.Address,
		org.ContactEmail, org.ContactPhone, org.Website, org.RegistrationNumber, org.Description,
		listToJSON(org.Documents), categoriesToJSON(org.AllowedCategories), org.Status, org.CreatedAt)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("insert organization: %w", err)
	}
	return tx.Commit()
}

func (s *orgsStore) GetOrganization(ctx context.Context, id string) (*Organization, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`
		SELECT `+orgColumns+` FROM organizations WHERE id=?`), id)
	return scanOrganization(row)
}

func (s *orgsStore) FindByAccessCode(ctx context.Context, accessCode string) (*Organization, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`
		SELECT `+orgColumns+` FROM organizations WHERE access_code=?`), accessCode)
	return scanOrganization(row)
}

func (s *orgsStore) ListOrganizations(ctx context.Context, filter OrgFilter) ([]Organization, error) {
	var clauses []string
	var args []any
	if filter.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, filter.Status)
	}
	if filter.Type != "" {
		clauses = append(clauses, "org_type=?")
		args = append(args, filter.Type)
	}
	query := `SELECT ` + orgColumns + ` FROM organizations`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *org)
	}
	return out, rows.Err()
}

func (s *orgsStore) UpdateStatus(ctx context.Context, id string, status OrgStatus) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE organizations SET status=? WHERE id=?`), status, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *orgsStore) UpdateAllowedCategories(ctx context.Context, id string, categories []Category) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE organizations SET allowed_categories_json=? WHERE id=?`),
		categoriesToJSON(categories), id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *orgsStore) DeleteOrganization(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM organizations WHERE id=?`), id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *orgsStore) CountOrganizations(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM organizations`).Scan(&n)
	return n, err
}

func scanOrganization(row rowScanner) (*Organization, error) {
	var org Organization
	var documentsJSON, categoriesJSON string
	err := row.Scan(&org.ID, &org.Name, &org.Type, &org.AccessCode, &org.Country, &org.Region, &org.City, &org.Address,
		&org.ContactEmail, &org.ContactPhone, &org.Website, &org.RegistrationNumber, &org.Description,
		&documentsJSON, &categoriesJSON, &org.Status, &org.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	org.Documents = listFromJSON(documentsJSON)
	org.AllowedCategories = categoriesFromJSON(categoriesJSON)
	return &org, nil
}

func categoriesToJSON(categories []Category) string {
	if len(categories) == 0 {
		return "[]"
	}
	b, err := json.Marshal(categories)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func categoriesFromJSON(raw string) []Category {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "[]" {
		return nil
	}
	var out []Category
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}
