package models

import "time"

// Role is the coarse account tier. It is assigned by domain mapping rules at
// resync time and never derived from group membership.
type Role string

const (
	RoleUser    Role = "user"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// User is the directory view of an authenticated account: identity, login
// email and the provider that verified it.
type User struct {
	ID          string    `gorm:"column:id;primaryKey" json:"id"`
	Email       string    `gorm:"column:email;uniqueIndex" json:"email"`
	Provider    string    `gorm:"column:provider" json:"provider"`
	Role        Role      `gorm:"column:role" json:"role"`
	DisplayName *string   `gorm:"column:display_name" json:"display_name,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (User) TableName() string { return "users" }
