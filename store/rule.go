package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/animalia-app/iam-service/models"
	"gorm.io/gorm"
)

// RuleStore manages domain mapping rules. Rules only influence future resync
// runs, so mutations here do not invalidate any resolved cache entries.
type RuleStore struct{ DB *gorm.DB }

func NewRuleStore(db *gorm.DB) *RuleStore { return &RuleStore{DB: db} }

func (s *RuleStore) Create(ctx context.Context, r models.DomainMappingRule) (*models.DomainMappingRule, error) {
	r.Pattern = strings.ToLower(strings.TrimSpace(r.Pattern))
	if !r.MatchType.Valid() {
		return nil, fmt.Errorf("%w: invalid match type %q", ErrValidation, r.MatchType)
	}
	if r.Pattern == "" {
		return nil, fmt.Errorf("%w: pattern is required", ErrValidation)
	}
	if r.MatchType == models.MatchDomainSuffix && !strings.HasPrefix(r.Pattern, "@") {
		return nil, fmt.Errorf("%w: domain-suffix pattern must start with '@'", ErrValidation)
	}
	if r.TargetGroupID == nil && r.TargetRole == nil {
		return nil, fmt.Errorf("%w: rule needs a target group or a target role", ErrValidation)
	}
	if r.TargetRole != nil && !r.TargetRole.Valid() {
		return nil, fmt.Errorf("%w: invalid target role %q", ErrValidation, *r.TargetRole)
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if r.TargetGroupID != nil {
			ok, err := exists(tx, "groups", *r.TargetGroupID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("group %s: %w", *r.TargetGroupID, ErrNotFound)
			}
		}
		r.ID = models.NewID()
		return tx.Create(&r).Error
	})
	if err != nil {
		return nil, wrapDB(err)
	}
	return &r, nil
}

func (s *RuleStore) Delete(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Exec(`DELETE FROM domain_mapping_rules WHERE id = ?`, id)
	if res.Error != nil {
		return wrapDB(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("rule %s: %w", id, ErrNotFound)
	}
	return nil
}

// List returns all rules in evaluation order: ascending priority, and on a
// priority tie exact-email before domain-suffix (most specific match wins).
func (s *RuleStore) List(ctx context.Context) ([]models.DomainMappingRule, error) {
	var rules []models.DomainMappingRule
	err := s.DB.WithContext(ctx).Raw(
		`SELECT id, match_type, pattern, target_group_id, target_role, priority
		 FROM domain_mapping_rules
		 ORDER BY priority, CASE WHEN match_type = 'exact-email' THEN 0 ELSE 1 END, id`,
	).Scan(&rules).Error
	if err != nil {
		return nil, wrapDB(err)
	}
	return rules, nil
}
