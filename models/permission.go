package models

// PermissionCategory groups catalog entries for display and filtering only.
// Resolution logic never inspects it. Closed set to keep typos out of the
// catalog.
type PermissionCategory string

const (
	CategoryAnimals PermissionCategory = "animals"
	CategorySpecies PermissionCategory = "species"
	CategoryMedia   PermissionCategory = "media"
	CategoryUsers   PermissionCategory = "users"
	CategorySystem  PermissionCategory = "system"
)

func (c PermissionCategory) Valid() bool {
	switch c {
	case CategoryAnimals, CategorySpecies, CategoryMedia, CategoryUsers, CategorySystem:
		return true
	}
	return false
}

// Permission is one catalog entry. Code is the stable identifier grants and
// group links point at; rows are seeded/administered out-of-band and treated
// as immutable once referenced.
type Permission struct {
	ID          string             `gorm:"column:id;primaryKey" json:"id"`
	Code        string             `gorm:"column:code;uniqueIndex" json:"code"`
	Name        string             `gorm:"column:name" json:"name"`
	Description string             `gorm:"column:description" json:"description"`
	Category    PermissionCategory `gorm:"column:category" json:"category"`
}

func (Permission) TableName() string { return "permissions" }
