package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/animalia-app/iam-service/models"
	"gorm.io/gorm"
)

// GrantStore manages direct (user-level) permission grants. Grants are
// soft-revoked and retained for audit; the unique (user_id, permission_id)
// row is reused across grant/revoke cycles.
type GrantStore struct {
	DB         *gorm.DB
	invalidate Invalidator
}

func NewGrantStore(db *gorm.DB, invalidate Invalidator) *GrantStore {
	return &GrantStore{DB: db, invalidate: invalidate}
}

func (s *GrantStore) notify(userID string) {
	if s.invalidate != nil {
		s.invalidate(userID)
	}
}

// Grant upserts the direct grant for (userID, permissionID). A revoked or
// expired row is reactivated in place; granting an already-active permission
// refreshes grantedBy/grantedAt/expiresAt without error.
func (s *GrantStore) Grant(ctx context.Context, userID, permissionID string, grantedBy *string, expiresAt *time.Time) (*models.DirectGrant, error) {
	now := time.Now().UTC()
	if expiresAt != nil && !expiresAt.After(now) {
		return nil, fmt.Errorf("%w: expires_at is in the past", ErrValidation)
	}
	var g models.DirectGrant
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := exists(tx, "users", userID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		ok, err = exists(tx, "permissions", permissionID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("permission %s: %w", permissionID, ErrNotFound)
		}

		err = tx.Where("user_id = ? AND permission_id = ?", userID, permissionID).First(&g).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			g = models.DirectGrant{
				ID:           models.NewID(),
				UserID:       userID,
				PermissionID: permissionID,
				Granted:      true,
				GrantedBy:    grantedBy,
				GrantedAt:    now,
				ExpiresAt:    expiresAt,
			}
			return tx.Create(&g).Error
		} else if err != nil {
			return err
		}
		g.Granted = true
		g.GrantedBy = grantedBy
		g.GrantedAt = now
		g.ExpiresAt = expiresAt
		return tx.Model(&models.DirectGrant{}).Where("id = ?", g.ID).Updates(map[string]interface{}{
			"granted":    true,
			"granted_by": grantedBy,
			"granted_at": now,
			"expires_at": expiresAt,
		}).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) {
			return nil, err
		}
		return nil, wrapDB(err)
	}
	s.notify(userID)
	return &g, nil
}

// Revoke soft-revokes the grant. Revoking a grant that was never issued is an
// error (audit clarity); revoking an already-revoked grant is a no-op.
func (s *GrantStore) Revoke(ctx context.Context, userID, permissionID string) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var g models.DirectGrant
		err := tx.Where("user_id = ? AND permission_id = ?", userID, permissionID).First(&g).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("grant for user %s permission %s: %w", userID, permissionID, ErrNotFound)
		} else if err != nil {
			return err
		}
		if !g.Granted {
			return nil
		}
		return tx.Model(&models.DirectGrant{}).Where("id = ?", g.ID).Update("granted", false).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return wrapDB(err)
	}
	s.notify(userID)
	return nil
}

// HardDelete removes the grant row entirely, discarding its audit trail.
func (s *GrantStore) HardDelete(ctx context.Context, userID, permissionID string) error {
	res := s.DB.WithContext(ctx).Exec(
		`DELETE FROM user_permissions WHERE user_id = ? AND permission_id = ?`, userID, permissionID,
	)
	if res.Error != nil {
		return wrapDB(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("grant for user %s permission %s: %w", userID, permissionID, ErrNotFound)
	}
	s.notify(userID)
	return nil
}

// ListForUser returns every grant row for the user, active or not, newest
// first. Audit view.
func (s *GrantStore) ListForUser(ctx context.Context, userID string) ([]models.DirectGrant, error) {
	var grants []models.DirectGrant
	err := s.DB.WithContext(ctx).Raw(
		`SELECT id, user_id, permission_id, granted, granted_by, granted_at, expires_at
		 FROM user_permissions WHERE user_id = ? ORDER BY granted_at DESC`, userID,
	).Scan(&grants).Error
	if err != nil {
		return nil, wrapDB(err)
	}
	return grants, nil
}

// ListActiveForUser returns the user's currently effective direct grants
// joined to their catalog entries. The liveness predicate (granted AND not
// expired) is evaluated here at query time; the sweep is only advisory.
func (s *GrantStore) ListActiveForUser(ctx context.Context, userID string) ([]models.GrantedPermission, error) {
	var rows []models.GrantedPermission
	err := s.DB.WithContext(ctx).Raw(
		`SELECT p.id AS permission_id, p.code, p.name, p.category, up.granted_at, up.expires_at
		 FROM user_permissions up
		 JOIN permissions p ON p.id = up.permission_id
		 WHERE up.user_id = ? AND up.granted = TRUE AND (up.expires_at IS NULL OR up.expires_at > ?)
		 ORDER BY p.code`, userID, time.Now().UTC(),
	).Scan(&rows).Error
	if err != nil {
		return nil, wrapDB(err)
	}
	return rows, nil
}

// ExpireDue demotes grants whose expiry has passed, returning the number of
// rows touched. Resolution does not depend on this; it keeps stored state in
// line with what resolves already report.
func (s *GrantStore) ExpireDue(ctx context.Context) (int64, error) {
	res := s.DB.WithContext(ctx).Exec(
		`UPDATE user_permissions SET granted = FALSE
		 WHERE granted = TRUE AND expires_at IS NOT NULL AND expires_at <= ?`, time.Now().UTC(),
	)
	if res.Error != nil {
		return 0, wrapDB(res.Error)
	}
	return res.RowsAffected, nil
}
