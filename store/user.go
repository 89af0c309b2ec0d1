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

// UserStore is the user directory: identity, login email and provider
// metadata. The permission engine treats it as read-mostly; writes happen at
// the login boundary and when mapping rules assign a role.
type UserStore struct{ DB *gorm.DB }

func NewUserStore(db *gorm.DB) *UserStore { return &UserStore{DB: db} }

func (s *UserStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.DB.WithContext(ctx).Raw(
		`SELECT id, email, provider, role, display_name, created_at, updated_at FROM users WHERE id = ?`, id,
	).Scan(&u).Error
	if err != nil {
		return nil, wrapDB(err)
	}
	if u.ID == "" {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return &u, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u models.User
	err := s.DB.WithContext(ctx).Raw(
		`SELECT id, email, provider, role, display_name, created_at, updated_at FROM users WHERE email = ?`, email,
	).Scan(&u).Error
	if err != nil {
		return nil, wrapDB(err)
	}
	if u.ID == "" {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	return &u, nil
}

// UpsertByProvider creates or refreshes the directory row for a verified
// login identity. New users start with role "user"; an existing user's role
// is left alone (roles move only via mapping rules or admin action).
func (s *UserStore) UpsertByProvider(ctx context.Context, email, provider string, displayName *string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(provider) == "" {
		return nil, fmt.Errorf("%w: email and provider are required", ErrValidation)
	}
	var u models.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("email = ?", email).First(&u).Error
		now := time.Now().UTC()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			u = models.User{
				ID:          models.NewID(),
				Email:       email,
				Provider:    provider,
				Role:        models.RoleUser,
				DisplayName: displayName,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			return tx.Create(&u).Error
		} else if err != nil {
			return err
		}
		u.Provider = provider
		if displayName != nil {
			u.DisplayName = displayName
		}
		u.UpdatedAt = now
		return tx.Model(&models.User{}).Where("id = ?", u.ID).Updates(map[string]interface{}{
			"provider":     u.Provider,
			"display_name": u.DisplayName,
			"updated_at":   u.UpdatedAt,
		}).Error
	})
	if err != nil {
		return nil, wrapDB(err)
	}
	return &u, nil
}

// SetRole updates the user's role tier.
func (s *UserStore) SetRole(ctx context.Context, id string, role models.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: invalid role %q", ErrValidation, role)
	}
	res := s.DB.WithContext(ctx).Exec(
		`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`, role, time.Now().UTC(), id,
	)
	if res.Error != nil {
		return wrapDB(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}
