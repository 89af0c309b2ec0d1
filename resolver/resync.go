package resolver

import (
	"context"
	"log"

	"github.com/animalia-app/iam-service/models"
)

// RuleSource lists domain mapping rules in evaluation order (ascending
// priority, exact-email before domain-suffix on ties).
type RuleSource interface {
	List(ctx context.Context) ([]models.DomainMappingRule, error)
}

// MembershipWriter adds rule-derived memberships. Must be idempotent.
type MembershipWriter interface {
	AddMember(ctx context.Context, groupID, userID string, addedBy *string) error
}

// RoleWriter updates a user's role tier.
type RoleWriter interface {
	SetRole(ctx context.Context, userID string, role models.Role) error
}

// resyncActor is recorded as added_by on rule-derived memberships so admins
// can tell them from manual assignments.
const resyncActor = "domain-mapping"

// Resync re-evaluates domain mapping rules for a user and reconciles role and
// memberships. Rules only ever add: a manually assigned group is never
// removed here, admins revoke by hand.
type Resync struct {
	dir      Directory
	rules    RuleSource
	members  MembershipWriter
	roles    RoleWriter
	resolver *Resolver
	logger   *log.Logger
}

func NewResync(dir Directory, rules RuleSource, members MembershipWriter, roles RoleWriter, res *Resolver) *Resync {
	return &Resync{dir: dir, rules: rules, members: members, roles: roles, resolver: res}
}

func (o *Resync) logf(format string, args ...interface{}) {
	if o.logger != nil {
		o.logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// ResyncUser applies mapping rules to the user's login email and returns the
// freshly resolved set. Role rules and group rules are independent axes; for
// each axis the first matching rule in evaluation order wins. No role match
// leaves the role unchanged.
func (o *Resync) ResyncUser(ctx context.Context, userID string) (*EffectiveSet, error) {
	user, err := o.dir.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	rules, err := o.rules.List(ctx)
	if err != nil {
		return nil, err
	}

	for _, r := range rules {
		if r.TargetRole == nil || !r.Matches(user.Email) {
			continue
		}
		if *r.TargetRole != user.Role {
			if err := o.roles.SetRole(ctx, userID, *r.TargetRole); err != nil {
				return nil, err
			}
		}
		break
	}

	actor := resyncActor
	for _, r := range rules {
		if r.TargetGroupID == nil || !r.Matches(user.Email) {
			continue
		}
		if err := o.members.AddMember(ctx, *r.TargetGroupID, userID, &actor); err != nil {
			return nil, err
		}
		break
	}

	o.resolver.Invalidate(ctx, userID)
	return o.resolver.Resolve(ctx, userID)
}

// ResyncOnLogin is the login-path wrapper: failures are logged and swallowed
// so a permission-subsystem outage never blocks authentication. The user
// proceeds with whatever was previously synced (stale but safe; authorization
// checks elsewhere fail closed).
func (o *Resync) ResyncOnLogin(ctx context.Context, userID string) {
	if _, err := o.ResyncUser(ctx, userID); err != nil {
		o.logf("resync on login for user %s failed, continuing with previously synced permissions: %v", userID, err)
	}
}
