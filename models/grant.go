package models

import "time"

// GrantStatus is the derived lifecycle state of a direct grant. Rows are
// soft-revoked and retained for audit; the stored columns are granted +
// expires_at, and Status is the single place that turns them into a state.
type GrantStatus string

const (
	GrantActive  GrantStatus = "active"
	GrantRevoked GrantStatus = "revoked"
	GrantExpired GrantStatus = "expired"
)

// DirectGrant is a permission given straight to a user, independent of any
// group. Composite-unique on (user_id, permission_id); grant/revoke cycles
// reuse the same row.
type DirectGrant struct {
	ID           string     `gorm:"column:id;primaryKey" json:"id"`
	UserID       string     `gorm:"column:user_id;index" json:"user_id"`
	PermissionID string     `gorm:"column:permission_id;index" json:"permission_id"`
	Granted      bool       `gorm:"column:granted" json:"granted"`
	GrantedBy    *string    `gorm:"column:granted_by" json:"granted_by,omitempty"`
	GrantedAt    time.Time  `gorm:"column:granted_at" json:"granted_at"`
	ExpiresAt    *time.Time `gorm:"column:expires_at" json:"expires_at,omitempty"`
}

func (DirectGrant) TableName() string { return "user_permissions" }

// Status derives the grant state at the given instant. Expiry wins over
// revocation so a swept row still reads as expired.
func (g DirectGrant) Status(now time.Time) GrantStatus {
	if g.ExpiresAt != nil && !g.ExpiresAt.After(now) {
		return GrantExpired
	}
	if !g.Granted {
		return GrantRevoked
	}
	return GrantActive
}

// GrantedPermission is the scan target for the resolver's direct lookup: an
// active grant joined to its catalog entry.
type GrantedPermission struct {
	PermissionID string             `gorm:"column:permission_id"`
	Code         string             `gorm:"column:code"`
	Name         string             `gorm:"column:name"`
	Category     PermissionCategory `gorm:"column:category"`
	GrantedAt    time.Time          `gorm:"column:granted_at"`
	ExpiresAt    *time.Time         `gorm:"column:expires_at"`
}
