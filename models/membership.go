package models

import "time"

// Membership records one user's membership in one group. Composite-unique on
// (user_id, group_id); re-adding an existing membership is a no-op, not a
// duplicate row.
type Membership struct {
	ID       string    `gorm:"column:id;primaryKey" json:"id"`
	UserID   string    `gorm:"column:user_id;index" json:"user_id"`
	GroupID  string    `gorm:"column:group_id;index" json:"group_id"`
	JoinedAt time.Time `gorm:"column:joined_at" json:"joined_at"`
	AddedBy  *string   `gorm:"column:added_by" json:"added_by,omitempty"`
}

func (Membership) TableName() string { return "memberships" }
