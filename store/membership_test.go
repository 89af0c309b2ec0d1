package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAddMemberIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	inv := &invalidations{}
	memberships := NewMembershipStore(db, inv.fn())
	ctx := context.Background()

	user := seedUser(t, db, uniq("member")+"@example.org")
	group := seedGroup(t, db, uniq("keepers"), true)

	if err := memberships.AddMember(ctx, group.ID, user.ID, nil); err != nil {
		t.Fatalf("add member: %v", err)
	}
	if err := memberships.AddMember(ctx, group.ID, user.ID, nil); err != nil {
		t.Fatalf("repeat add member: %v", err)
	}

	rows, err := memberships.ListMembers(ctx, group.ID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected a single membership row, got %d", len(rows))
	}
	if inv.count(user.ID) == 0 {
		t.Fatal("membership change did not invalidate the user")
	}
}

func TestAddMemberUnknownReferences(t *testing.T) {
	db := openTestDB(t)
	memberships := NewMembershipStore(db, nil)
	ctx := context.Background()

	user := seedUser(t, db, uniq("orphan")+"@example.org")
	group := seedGroup(t, db, uniq("ghosts"), true)

	if err := memberships.AddMember(ctx, "no-such-group", user.ID, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown group, got %v", err)
	}
	if err := memberships.AddMember(ctx, group.ID, "no-such-user", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestSetUserGroupsDiffPreservesJoinedAt(t *testing.T) {
	db := openTestDB(t)
	memberships := NewMembershipStore(db, nil)
	ctx := context.Background()

	user := seedUser(t, db, uniq("mover")+"@example.org")
	a := seedGroup(t, db, uniq("group-a"), true)
	b := seedGroup(t, db, uniq("group-b"), true)
	c := seedGroup(t, db, uniq("group-c"), true)

	if err := memberships.SetUserGroups(ctx, user.ID, []string{a.ID, b.ID}, nil); err != nil {
		t.Fatalf("set {a,b}: %v", err)
	}
	var joinedB time.Time
	if err := db.Raw(`SELECT joined_at FROM memberships WHERE user_id = ? AND group_id = ?`, user.ID, b.ID).Scan(&joinedB).Error; err != nil {
		t.Fatalf("read joined_at: %v", err)
	}

	// replace {a,b} with {b,c}: b must survive untouched
	if err := memberships.SetUserGroups(ctx, user.ID, []string{b.ID, c.ID}, nil); err != nil {
		t.Fatalf("set {b,c}: %v", err)
	}

	groups, err := memberships.ListGroupsForUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("list groups: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups after replace, got %d", len(groups))
	}
	for _, g := range groups {
		if g.ID == a.ID {
			t.Fatal("group a should have been removed")
		}
	}

	var joinedB2 time.Time
	if err := db.Raw(`SELECT joined_at FROM memberships WHERE user_id = ? AND group_id = ?`, user.ID, b.ID).Scan(&joinedB2).Error; err != nil {
		t.Fatalf("re-read joined_at: %v", err)
	}
	if !joinedB2.Equal(joinedB) {
		t.Fatalf("surviving membership was rewritten: %v != %v", joinedB2, joinedB)
	}
}

func TestSetUserGroupsRejectsUnknownGroup(t *testing.T) {
	db := openTestDB(t)
	memberships := NewMembershipStore(db, nil)
	ctx := context.Background()

	user := seedUser(t, db, uniq("strict")+"@example.org")
	a := seedGroup(t, db, uniq("real"), true)

	err := memberships.SetUserGroups(ctx, user.ID, []string{a.ID, "no-such-group"}, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	// nothing applied
	groups, lerr := memberships.ListGroupsForUser(ctx, user.ID)
	if lerr != nil {
		t.Fatalf("list groups: %v", lerr)
	}
	if len(groups) != 0 {
		t.Fatalf("partial membership write leaked: %+v", groups)
	}
}

func TestActiveGroupPermissionsExcludeInactiveGroups(t *testing.T) {
	db := openTestDB(t)
	memberships := NewMembershipStore(db, nil)
	ctx := context.Background()

	user := seedUser(t, db, uniq("suspended")+"@example.org")
	perm := seedPermission(t, db, uniq("species.manage"))
	live := seedGroup(t, db, uniq("live"), true, perm.ID)
	dark := seedGroup(t, db, uniq("dark"), false, perm.ID)

	if err := memberships.AddMember(ctx, live.ID, user.ID, nil); err != nil {
		t.Fatalf("add to live: %v", err)
	}
	if err := memberships.AddMember(ctx, dark.ID, user.ID, nil); err != nil {
		t.Fatalf("add to dark: %v", err)
	}

	rows, err := memberships.ListActiveGroupPermissionsForUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("list active group permissions: %v", err)
	}
	if len(rows) != 1 || rows[0].GroupID != live.ID {
		t.Fatalf("inactive group leaked into resolution: %+v", rows)
	}
}

func TestRemoveMemberIsNoOpWhenAbsent(t *testing.T) {
	db := openTestDB(t)
	memberships := NewMembershipStore(db, nil)
	ctx := context.Background()

	user := seedUser(t, db, uniq("absent")+"@example.org")
	group := seedGroup(t, db, uniq("empty"), true)

	if err := memberships.RemoveMember(ctx, group.ID, user.ID); err != nil {
		t.Fatalf("remove absent member should succeed, got %v", err)
	}
}
