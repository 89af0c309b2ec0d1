package resolver

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"time"

	"github.com/animalia-app/iam-service/models"
	"github.com/animalia-app/iam-service/store"
)

// Source says where an effective permission came from. A permission held both
// directly and through groups reports "direct" (direct grants win the
// tie-break) while still listing the contributing groups.
type Source string

const (
	SourceDirect Source = "direct"
	SourceGroup  Source = "group"
)

// GroupRef identifies a group that contributed a permission.
type GroupRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ColorTag string `json:"colorTag"`
}

// EffectivePermission is one resolved entry: the catalog fields plus
// provenance.
type EffectivePermission struct {
	ID         string                    `json:"id"`
	Code       string                    `json:"code"`
	Name       string                    `json:"name"`
	Category   models.PermissionCategory `json:"category"`
	Source     Source                    `json:"source"`
	FromGroups []GroupRef                `json:"fromGroups,omitempty"`
}

// EffectiveSet is the resolved permission set for one user. It is a derived
// view, recomputed on demand; never a source of truth.
type EffectiveSet struct {
	UserID                    string                `json:"userId"`
	DirectPermissions         int                   `json:"directPermissions"`
	GroupPermissions          int                   `json:"groupPermissions"`
	TotalEffectivePermissions int                   `json:"totalEffectivePermissions"`
	EffectivePermissions      []EffectivePermission `json:"effectivePermissions"`
	ResolvedAt                time.Time             `json:"resolvedAt"`
}

// Directory resolves user ids to directory entries.
type Directory interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// GrantSource lists a user's currently active direct grants.
type GrantSource interface {
	ListActiveForUser(ctx context.Context, userID string) ([]models.GrantedPermission, error)
}

// GroupSource lists the permissions a user holds through active groups.
type GroupSource interface {
	ListActiveGroupPermissionsForUser(ctx context.Context, userID string) ([]models.GroupPermissionRow, error)
}

// Resolver computes effective permission sets. Read-only and safe to call
// concurrently; an optional cache short-circuits repeat resolves and is kept
// coherent by store-side invalidation.
type Resolver struct {
	dir    Directory
	grants GrantSource
	groups GroupSource
	cache  store.ResolvedCache
	ttl    time.Duration
	logger *log.Logger
}

// New builds a Resolver. cache may be nil to disable caching; ttl bounds how
// long a cached set may outlive a missed invalidation.
func New(dir Directory, grants GrantSource, groups GroupSource, cache store.ResolvedCache, ttl time.Duration) *Resolver {
	return &Resolver{dir: dir, grants: grants, groups: groups, cache: cache, ttl: ttl}
}

func (r *Resolver) logf(format string, args ...interface{}) {
	if r.logger != nil {
		r.logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Resolve returns the user's effective permission set: the union of active
// direct grants and permissions of active groups the user belongs to, merged
// by permission id with direct source winning ties. Cost is bounded by the
// user's own grants and memberships, never by ledger size.
func (r *Resolver) Resolve(ctx context.Context, userID string) (*EffectiveSet, error) {
	if r.cache != nil {
		if payload, ok, err := r.cache.Get(ctx, userID); err != nil {
			// cache trouble degrades to a recompute, never a failed resolve
			r.logf("resolver: cache get for user %s: %v", userID, err)
		} else if ok {
			var set EffectiveSet
			if err := json.Unmarshal(payload, &set); err == nil {
				return &set, nil
			}
			r.logf("resolver: discarding undecodable cache entry for user %s", userID)
		}
	}

	if _, err := r.dir.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	direct, err := r.grants.ListActiveForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	groupRows, err := r.groups.ListActiveGroupPermissionsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*EffectivePermission, len(direct)+len(groupRows))
	for _, d := range direct {
		byID[d.PermissionID] = &EffectivePermission{
			ID:       d.PermissionID,
			Code:     d.Code,
			Name:     d.Name,
			Category: d.Category,
			Source:   SourceDirect,
		}
	}
	for _, row := range groupRows {
		ep, ok := byID[row.PermissionID]
		if !ok {
			ep = &EffectivePermission{
				ID:       row.PermissionID,
				Code:     row.Code,
				Name:     row.Name,
				Category: row.Category,
				Source:   SourceGroup,
			}
			byID[row.PermissionID] = ep
		}
		// tie-break keeps source=direct but the group metadata is still reported
		ep.FromGroups = append(ep.FromGroups, GroupRef{ID: row.GroupID, Name: row.GroupName, ColorTag: row.ColorTag})
	}

	set := &EffectiveSet{UserID: userID, ResolvedAt: time.Now().UTC()}
	for _, ep := range byID {
		sort.Slice(ep.FromGroups, func(i, j int) bool { return ep.FromGroups[i].Name < ep.FromGroups[j].Name })
		if ep.Source == SourceDirect {
			set.DirectPermissions++
		} else {
			set.GroupPermissions++
		}
		set.EffectivePermissions = append(set.EffectivePermissions, *ep)
	}
	sort.Slice(set.EffectivePermissions, func(i, j int) bool {
		return set.EffectivePermissions[i].Code < set.EffectivePermissions[j].Code
	})
	set.TotalEffectivePermissions = len(set.EffectivePermissions)

	if r.cache != nil {
		if payload, err := json.Marshal(set); err == nil {
			if err := r.cache.Set(ctx, userID, payload, r.ttl); err != nil {
				r.logf("resolver: cache set for user %s: %v", userID, err)
			}
		}
	}
	return set, nil
}

// Invalidate drops the cached set for the user. Stores call this (via their
// Invalidator) before a mutation returns success.
func (r *Resolver) Invalidate(ctx context.Context, userID string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Invalidate(ctx, userID); err != nil {
		r.logf("resolver: cache invalidate for user %s: %v", userID, err)
	}
}
