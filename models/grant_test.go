package models

import (
	"testing"
	"time"
)

func TestDirectGrantStatus(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name  string
		grant DirectGrant
		want  GrantStatus
	}{
		{"granted no expiry", DirectGrant{Granted: true}, GrantActive},
		{"granted future expiry", DirectGrant{Granted: true, ExpiresAt: &future}, GrantActive},
		{"granted past expiry", DirectGrant{Granted: true, ExpiresAt: &past}, GrantExpired},
		{"revoked", DirectGrant{Granted: false}, GrantRevoked},
		{"revoked and expired reads expired", DirectGrant{Granted: false, ExpiresAt: &past}, GrantExpired},
	}
	for _, tc := range cases {
		if got := tc.grant.Status(now); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestDirectGrantStatusExpiryBoundary(t *testing.T) {
	now := time.Now().UTC()
	g := DirectGrant{Granted: true, ExpiresAt: &now}
	// expiresAt == now means no longer in effect
	if got := g.Status(now); got != GrantExpired {
		t.Fatalf("grant expiring exactly now should be expired, got %s", got)
	}
}
