package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/animalia-app/iam-service/models"
	"gorm.io/gorm"
)

// GroupStore manages groups and their permission links. Mutations that change
// what a group confers fan invalidation out to every member, since each of
// their cached effective sets is now stale.
type GroupStore struct {
	DB         *gorm.DB
	invalidate Invalidator
}

func NewGroupStore(db *gorm.DB, invalidate Invalidator) *GroupStore {
	return &GroupStore{DB: db, invalidate: invalidate}
}

func (s *GroupStore) notifyAll(userIDs []string) {
	if s.invalidate == nil {
		return
	}
	for _, id := range userIDs {
		s.invalidate(id)
	}
}

// GroupUpdate carries the mutable group fields; nil means "leave unchanged".
type GroupUpdate struct {
	Name        *string
	Description *string
	ColorTag    *string
	IsActive    *bool
}

func (s *GroupStore) Create(ctx context.Context, name, description, colorTag string, createdBy *string) (*models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: group name is required", ErrValidation)
	}
	now := time.Now().UTC()
	g := models.Group{
		ID:          models.NewID(),
		Name:        name,
		Description: description,
		ColorTag:    colorTag,
		IsActive:    true,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Table("groups").Where("name = ?", name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("group %s: %w", name, ErrConflict)
		}
		return tx.Create(&g).Error
	})
	if err != nil {
		return nil, wrapDB(err)
	}
	return &g, nil
}

func (s *GroupStore) Get(ctx context.Context, id string) (*models.Group, error) {
	var g models.Group
	err := s.DB.WithContext(ctx).Raw(
		`SELECT id, name, description, color_tag, is_active, created_by, created_at, updated_at
		 FROM groups WHERE id = ?`, id,
	).Scan(&g).Error
	if err != nil {
		return nil, wrapDB(err)
	}
	if g.ID == "" {
		return nil, fmt.Errorf("group %s: %w", id, ErrNotFound)
	}
	return &g, nil
}

func (s *GroupStore) List(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	err := s.DB.WithContext(ctx).Raw(
		`SELECT id, name, description, color_tag, is_active, created_by, created_at, updated_at
		 FROM groups ORDER BY name`,
	).Scan(&groups).Error
	if err != nil {
		return nil, wrapDB(err)
	}
	return groups, nil
}

// Update applies the given fields. Toggling is_active changes what every
// member resolves to, so their cache entries are invalidated; membership rows
// themselves are untouched and reactivation restores access as-is.
func (s *GroupStore) Update(ctx context.Context, id string, upd GroupUpdate) (*models.Group, error) {
	var g models.Group
	var members []string
	activeChanged := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ?", id).First(&g).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("group %s: %w", id, ErrNotFound)
		} else if err != nil {
			return err
		}
		updates := map[string]interface{}{"updated_at": time.Now().UTC()}
		if upd.Name != nil {
			name := strings.TrimSpace(*upd.Name)
			if name == "" {
				return fmt.Errorf("%w: group name is required", ErrValidation)
			}
			var count int64
			if err := tx.Table("groups").Where("name = ? AND id <> ?", name, id).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return fmt.Errorf("group %s: %w", name, ErrConflict)
			}
			updates["name"] = name
			g.Name = name
		}
		if upd.Description != nil {
			updates["description"] = *upd.Description
			g.Description = *upd.Description
		}
		if upd.ColorTag != nil {
			updates["color_tag"] = *upd.ColorTag
			g.ColorTag = *upd.ColorTag
		}
		if upd.IsActive != nil && *upd.IsActive != g.IsActive {
			updates["is_active"] = *upd.IsActive
			g.IsActive = *upd.IsActive
			activeChanged = true
			if err := tx.Table("memberships").Where("group_id = ?", id).Pluck("user_id", &members).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.Group{}).Where("id = ?", id).Updates(updates).Error
	})
	if err != nil {
		return nil, wrapDB(err)
	}
	if activeChanged {
		s.notifyAll(members)
	}
	return &g, nil
}

// Delete removes the group, its permission links and its memberships in one
// transaction. Direct grants are unrelated and survive.
func (s *GroupStore) Delete(ctx context.Context, id string) error {
	var members []string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := exists(tx, "groups", id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("group %s: %w", id, ErrNotFound)
		}
		if err := tx.Table("memberships").Where("group_id = ?", id).Pluck("user_id", &members).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM group_permissions WHERE group_id = ?`, id).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM memberships WHERE group_id = ?`, id).Error; err != nil {
			return err
		}
		return tx.Exec(`DELETE FROM groups WHERE id = ?`, id).Error
	})
	if err != nil {
		return wrapDB(err)
	}
	s.notifyAll(members)
	return nil
}

// SetPermissions replaces the group's permission set. All permission ids must
// exist in the catalog.
func (s *GroupStore) SetPermissions(ctx context.Context, groupID string, permissionIDs []string) error {
	seen := make(map[string]bool, len(permissionIDs))
	deduped := permissionIDs[:0:0]
	for _, id := range permissionIDs {
		if id != "" && !seen[id] {
			seen[id] = true
			deduped = append(deduped, id)
		}
	}
	var members []string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := exists(tx, "groups", groupID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("group %s: %w", groupID, ErrNotFound)
		}
		if len(deduped) > 0 {
			var count int64
			if err := tx.Table("permissions").Where("id IN ?", deduped).Count(&count).Error; err != nil {
				return err
			}
			if count != int64(len(deduped)) {
				return fmt.Errorf("one or more permissions: %w", ErrNotFound)
			}
		}
		if err := tx.Table("memberships").Where("group_id = ?", groupID).Pluck("user_id", &members).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM group_permissions WHERE group_id = ?`, groupID).Error; err != nil {
			return err
		}
		for _, pid := range deduped {
			if err := tx.Exec(
				`INSERT INTO group_permissions (group_id, permission_id) VALUES (?,?) ON CONFLICT DO NOTHING`,
				groupID, pid,
			).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return wrapDB(err)
	}
	s.notifyAll(members)
	return nil
}

// ListPermissions returns the catalog entries linked to the group.
func (s *GroupStore) ListPermissions(ctx context.Context, groupID string) ([]models.Permission, error) {
	var perms []models.Permission
	err := s.DB.WithContext(ctx).Raw(
		`SELECT p.id, p.code, p.name, p.description, p.category
		 FROM permissions p JOIN group_permissions gp ON gp.permission_id = p.id
		 WHERE gp.group_id = ? ORDER BY p.code`, groupID,
	).Scan(&perms).Error
	if err != nil {
		return nil, wrapDB(err)
	}
	return perms, nil
}
