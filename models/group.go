package models

import "time"

// Group is a named bundle of permissions with member users. Deactivating a
// group suspends everything it confers without touching membership rows;
// deleting it cascades memberships and permission links but never direct
// grants.
type Group struct {
	ID          string    `gorm:"column:id;primaryKey" json:"id"`
	Name        string    `gorm:"column:name;uniqueIndex" json:"name"`
	Description string    `gorm:"column:description" json:"description"`
	ColorTag    string    `gorm:"column:color_tag" json:"color_tag"`
	IsActive    bool      `gorm:"column:is_active" json:"is_active"`
	CreatedBy   *string   `gorm:"column:created_by" json:"created_by,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Group) TableName() string { return "groups" }

// GroupPermission links a group to one catalog entry.
type GroupPermission struct {
	GroupID      string `gorm:"column:group_id;primaryKey"`
	PermissionID string `gorm:"column:permission_id;primaryKey"`
}

func (GroupPermission) TableName() string { return "group_permissions" }

// GroupPermissionRow is the scan target for the resolver's group-sourced
// lookup: one active membership's group joined to one of its permissions.
type GroupPermissionRow struct {
	PermissionID string             `gorm:"column:permission_id"`
	Code         string             `gorm:"column:code"`
	Name         string             `gorm:"column:name"`
	Category     PermissionCategory `gorm:"column:category"`
	GroupID      string             `gorm:"column:group_id"`
	GroupName    string             `gorm:"column:group_name"`
	ColorTag     string             `gorm:"column:color_tag"`
}
