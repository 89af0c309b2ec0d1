package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/animalia-app/iam-service/models"
	"gorm.io/gorm"
)

// PermissionStore reads the permission catalog. The catalog is seeded and
// administered out-of-band; there is deliberately no create-on-the-fly here.
type PermissionStore struct{ DB *gorm.DB }

func NewPermissionStore(db *gorm.DB) *PermissionStore { return &PermissionStore{DB: db} }

func (s *PermissionStore) GetByID(ctx context.Context, id string) (*models.Permission, error) {
	var p models.Permission
	err := s.DB.WithContext(ctx).Raw(
		`SELECT id, code, name, description, category FROM permissions WHERE id = ?`, id,
	).Scan(&p).Error
	if err != nil {
		return nil, wrapDB(err)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("permission %s: %w", id, ErrNotFound)
	}
	return &p, nil
}

func (s *PermissionStore) GetByCode(ctx context.Context, code string) (*models.Permission, error) {
	code = strings.TrimSpace(code)
	var p models.Permission
	err := s.DB.WithContext(ctx).Raw(
		`SELECT id, code, name, description, category FROM permissions WHERE code = ?`, code,
	).Scan(&p).Error
	if err != nil {
		return nil, wrapDB(err)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("permission %s: %w", code, ErrNotFound)
	}
	return &p, nil
}

func (s *PermissionStore) List(ctx context.Context) ([]models.Permission, error) {
	var perms []models.Permission
	err := s.DB.WithContext(ctx).Raw(
		`SELECT id, code, name, description, category FROM permissions ORDER BY category, code`,
	).Scan(&perms).Error
	if err != nil {
		return nil, wrapDB(err)
	}
	return perms, nil
}

// exists is a shared row-existence check used by stores that validate foreign
// references inside a transaction.
func exists(tx *gorm.DB, table, id string) (bool, error) {
	var count int64
	if err := tx.Table(table).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
