package store

import (
	"context"
	"fmt"
	"time"

	"github.com/animalia-app/iam-service/models"
	"gorm.io/gorm"
)

// MembershipStore manages the user↔group join table.
type MembershipStore struct {
	DB         *gorm.DB
	invalidate Invalidator
}

func NewMembershipStore(db *gorm.DB, invalidate Invalidator) *MembershipStore {
	return &MembershipStore{DB: db, invalidate: invalidate}
}

func (s *MembershipStore) notify(userID string) {
	if s.invalidate != nil {
		s.invalidate(userID)
	}
}

// AddMember adds the user to the group. Idempotent: re-adding an existing
// membership succeeds without touching the original row.
func (s *MembershipStore) AddMember(ctx context.Context, groupID, userID string, addedBy *string) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := exists(tx, "users", userID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		ok, err = exists(tx, "groups", groupID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("group %s: %w", groupID, ErrNotFound)
		}
		return tx.Exec(
			`INSERT INTO memberships (id, user_id, group_id, joined_at, added_by) VALUES (?,?,?,?,?)
			 ON CONFLICT (user_id, group_id) DO NOTHING`,
			models.NewID(), userID, groupID, time.Now().UTC(), addedBy,
		).Error
	})
	if err != nil {
		if isTaxonomy(err) {
			return err
		}
		return wrapDB(err)
	}
	s.notify(userID)
	return nil
}

// RemoveMember deletes the membership row. Removing an absent membership is a
// no-op success.
func (s *MembershipStore) RemoveMember(ctx context.Context, groupID, userID string) error {
	err := s.DB.WithContext(ctx).Exec(
		`DELETE FROM memberships WHERE user_id = ? AND group_id = ?`, userID, groupID,
	).Error
	if err != nil {
		return wrapDB(err)
	}
	s.notify(userID)
	return nil
}

// SetUserGroups replaces the user's group set with exactly groupIDs. Computed
// as a diff inside one transaction: memberships being kept are not rewritten,
// so their joined_at/added_by history survives.
func (s *MembershipStore) SetUserGroups(ctx context.Context, userID string, groupIDs []string, addedBy *string) error {
	want := make(map[string]bool, len(groupIDs))
	deduped := groupIDs[:0:0]
	for _, id := range groupIDs {
		if id != "" && !want[id] {
			want[id] = true
			deduped = append(deduped, id)
		}
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := exists(tx, "users", userID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		if len(deduped) > 0 {
			var count int64
			if err := tx.Table("groups").Where("id IN ?", deduped).Count(&count).Error; err != nil {
				return err
			}
			if count != int64(len(deduped)) {
				return fmt.Errorf("one or more groups: %w", ErrNotFound)
			}
		}

		var current []string
		if err := tx.Table("memberships").Where("user_id = ?", userID).Pluck("group_id", &current).Error; err != nil {
			return err
		}
		have := make(map[string]bool, len(current))
		for _, id := range current {
			have[id] = true
		}

		var removes []string
		for _, id := range current {
			if !want[id] {
				removes = append(removes, id)
			}
		}
		if len(removes) > 0 {
			if err := tx.Exec(`DELETE FROM memberships WHERE user_id = ? AND group_id IN ?`, userID, removes).Error; err != nil {
				return err
			}
		}
		now := time.Now().UTC()
		for _, id := range deduped {
			if have[id] {
				continue
			}
			if err := tx.Exec(
				`INSERT INTO memberships (id, user_id, group_id, joined_at, added_by) VALUES (?,?,?,?,?)
				 ON CONFLICT (user_id, group_id) DO NOTHING`,
				models.NewID(), userID, id, now, addedBy,
			).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isTaxonomy(err) {
			return err
		}
		return wrapDB(err)
	}
	s.notify(userID)
	return nil
}

// ListGroupsForUser returns the groups the user belongs to, active or not.
func (s *MembershipStore) ListGroupsForUser(ctx context.Context, userID string) ([]models.Group, error) {
	var groups []models.Group
	err := s.DB.WithContext(ctx).Raw(
		`SELECT g.id, g.name, g.description, g.color_tag, g.is_active, g.created_by, g.created_at, g.updated_at
		 FROM groups g JOIN memberships m ON m.group_id = g.id
		 WHERE m.user_id = ? ORDER BY g.name`, userID,
	).Scan(&groups).Error
	if err != nil {
		return nil, wrapDB(err)
	}
	return groups, nil
}

// ListMembers returns the membership rows of a group, oldest join first.
func (s *MembershipStore) ListMembers(ctx context.Context, groupID string) ([]models.Membership, error) {
	var rows []models.Membership
	err := s.DB.WithContext(ctx).Raw(
		`SELECT id, user_id, group_id, joined_at, added_by FROM memberships
		 WHERE group_id = ? ORDER BY joined_at`, groupID,
	).Scan(&rows).Error
	if err != nil {
		return nil, wrapDB(err)
	}
	return rows, nil
}

// ListActiveGroupPermissionsForUser returns every permission the user holds
// through an active group, one row per (permission, group) pair. Inactive
// groups are filtered in the join, so deactivation takes effect immediately
// without touching membership rows.
func (s *MembershipStore) ListActiveGroupPermissionsForUser(ctx context.Context, userID string) ([]models.GroupPermissionRow, error) {
	var rows []models.GroupPermissionRow
	err := s.DB.WithContext(ctx).Raw(
		`SELECT p.id AS permission_id, p.code, p.name, p.category,
		        g.id AS group_id, g.name AS group_name, g.color_tag
		 FROM memberships m
		 JOIN groups g ON g.id = m.group_id AND g.is_active = TRUE
		 JOIN group_permissions gp ON gp.group_id = g.id
		 JOIN permissions p ON p.id = gp.permission_id
		 WHERE m.user_id = ?
		 ORDER BY p.code, g.name`, userID,
	).Scan(&rows).Error
	if err != nil {
		return nil, wrapDB(err)
	}
	return rows, nil
}
