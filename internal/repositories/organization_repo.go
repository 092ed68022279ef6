package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"dukapos/internal/models"

	"github.com/google/uuid"
)

type OrganizationRepository interface {
	Create(ctx context.Context, org *models.Organization) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	ListActive(ctx context.Context) ([]*models.Organization, error)
	UpdateSettings(ctx context.Context, id uuid.UUID, settings models.OrganizationSettings) error
}

type organizationRepo struct {
	db DBTX
}

func NewOrganizationRepo(db DBTX) OrganizationRepository {
	return &organizationRepo{db: db}
}

func (r *organizationRepo) Create(ctx context.Context, org *models.Organization) error {
	settings, err := json.Marshal(org.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	query := `
		INSERT INTO organizations (id, name, status, settings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
	`
	_, err = r.db.Exec(ctx, query, org.ID, org.Name, org.Status, settings)
	return wrapErr("create organization", err)
}

func decodeSettings(raw []byte) (models.OrganizationSettings, error) {
	settings := models.DefaultOrganizationSettings()
	if len(raw) == 0 {
		return settings, nil
	}
	if err := json.Unmarshal(raw, &settings); err != nil {
		return settings, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	return settings, nil
}

func (r *organizationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	org := &models.Organization{}
	var raw []byte
	query := `
		SELECT id, name, status, settings, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`
	if err := r.db.QueryRow(ctx, query, id).Scan(&org.ID, &org.Name, &org.Status, &raw, &org.CreatedAt, &org.UpdatedAt); err != nil {
		return nil, wrapErr("get organization", err)
	}
	settings, err := decodeSettings(raw)
	if err != nil {
		return nil, err
	}
	org.Settings = settings
	return org, nil
}

func (r *organizationRepo) ListActive(ctx context.Context) ([]*models.Organization, error) {
	query := `
		SELECT id, name, status, settings, created_at, updated_at
		FROM organizations
		WHERE status = 'active'
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, wrapErr("list organizations", err)
	}
	defer rows.Close()

	var orgs []*models.Organization
	for rows.Next() {
		org := &models.Organization{}
		var raw []byte
		if err := rows.Scan(&org.ID, &org.Name, &org.Status, &raw, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, wrapErr("list organizations", err)
		}
		if org.Settings, err = decodeSettings(raw); err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}
	return orgs, wrapErr("list organizations", rows.Err())
}

func (r *organizationRepo) UpdateSettings(ctx context.Context, id uuid.UUID, settings models.OrganizationSettings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	tag, err := r.db.Exec(ctx, `UPDATE organizations SET settings = $1, updated_at = NOW() WHERE id = $2`, raw, id)
	return affectedOne("update organization settings", tag, err)
}
