package models

import "strings"

// MatchType says how a domain mapping rule compares against a login email.
// Closed set: an unknown match type must fail validation, not silently never
// match.
type MatchType string

const (
	MatchExactEmail   MatchType = "exact-email"
	MatchDomainSuffix MatchType = "domain-suffix"
)

func (m MatchType) Valid() bool {
	return m == MatchExactEmail || m == MatchDomainSuffix
}

// DomainMappingRule maps an authentication email onto a target group and/or a
// role. Rules are admin-edited configuration consulted only at resync time.
// Role targets and group targets are independent axes.
type DomainMappingRule struct {
	ID            string    `gorm:"column:id;primaryKey" json:"id"`
	MatchType     MatchType `gorm:"column:match_type" json:"match_type"`
	Pattern       string    `gorm:"column:pattern" json:"pattern"`
	TargetGroupID *string   `gorm:"column:target_group_id" json:"target_group_id,omitempty"`
	TargetRole    *Role     `gorm:"column:target_role" json:"target_role,omitempty"`
	Priority      int       `gorm:"column:priority" json:"priority"`
}

func (DomainMappingRule) TableName() string { return "domain_mapping_rules" }

// Matches reports whether the rule applies to the given email. Comparison is
// case-insensitive; domain-suffix patterns are stored with the leading "@".
func (r DomainMappingRule) Matches(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	pattern := strings.ToLower(strings.TrimSpace(r.Pattern))
	if email == "" || pattern == "" {
		return false
	}
	switch r.MatchType {
	case MatchExactEmail:
		return email == pattern
	case MatchDomainSuffix:
		return strings.HasSuffix(email, pattern)
	}
	return false
}
