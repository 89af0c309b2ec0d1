package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/animalia-app/iam-service/models"
	"github.com/animalia-app/iam-service/resolver"
	"github.com/animalia-app/iam-service/store"
)

// apiFixture backs the resolver and resync behind the HTTP surface with
// in-memory data so these tests need no database.
type apiFixture struct {
	users     map[string]*models.User
	grants    map[string][]models.GrantedPermission
	groupRows map[string][]models.GroupPermissionRow
	rules     []models.DomainMappingRule
	added     []string
}

func newAPIFixture() *apiFixture {
	return &apiFixture{
		users:     map[string]*models.User{},
		grants:    map[string][]models.GrantedPermission{},
		groupRows: map[string][]models.GroupPermissionRow{},
	}
}

func (f *apiFixture) GetUser(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("%w: user %s", store.ErrNotFound, id)
}

func (f *apiFixture) ListActiveForUser(ctx context.Context, userID string) ([]models.GrantedPermission, error) {
	return f.grants[userID], nil
}

func (f *apiFixture) ListActiveGroupPermissionsForUser(ctx context.Context, userID string) ([]models.GroupPermissionRow, error) {
	return f.groupRows[userID], nil
}

func (f *apiFixture) List(ctx context.Context) ([]models.DomainMappingRule, error) {
	return f.rules, nil
}

func (f *apiFixture) AddMember(ctx context.Context, groupID, userID string, addedBy *string) error {
	f.added = append(f.added, groupID+"/"+userID)
	return nil
}

func (f *apiFixture) SetRole(ctx context.Context, userID string, role models.Role) error {
	if u, ok := f.users[userID]; ok {
		u.Role = role
	}
	return nil
}

func newAPITestServer(t *testing.T) (*apiFixture, *httptest.Server) {
	t.Helper()
	f := newAPIFixture()
	res := resolver.New(f, f, f, nil, 0)
	s := &Server{
		Config:   &AppConfig{Auth: AuthConfig{JWTKey: testJWTKey}},
		Resolver: res,
		Resync:   resolver.NewResync(f, f, f, f, res),
	}
	ts := httptest.NewServer(NewGinEngine(s))
	t.Cleanup(ts.Close)
	return f, ts
}

func bearer(t *testing.T, userID string) string {
	return "Bearer " + signToken(t, testJWTKey, jwt.MapClaims{"sub": userID, "exp": time.Now().Add(time.Hour).Unix()})
}

func TestAPIRequiresAuth(t *testing.T) {
	_, ts := newAPITestServer(t)
	e := httpexpect.Default(t, ts.URL)

	e.GET("/iam/v1/users/u-1/effective-permissions").
		Expect().
		Status(http.StatusUnauthorized).
		JSON().Object().
		ValueEqual("error", "unauthorized")
}

func TestAPIGetEffectivePermissions(t *testing.T) {
	f, ts := newAPITestServer(t)
	f.users["u-1"] = &models.User{ID: "u-1", Email: "u1@example.org", Role: models.RoleUser}
	f.grants["u-1"] = []models.GrantedPermission{
		{PermissionID: "p-del", Code: "animals.delete", Name: "Delete animals", Category: models.CategoryAnimals},
	}
	f.groupRows["u-1"] = []models.GroupPermissionRow{
		{PermissionID: "p-read", Code: "animals.read", Name: "View animals", Category: models.CategoryAnimals, GroupID: "g-1", GroupName: "managers", ColorTag: "#1d7874"},
	}

	e := httpexpect.Default(t, ts.URL)
	obj := e.GET("/iam/v1/users/u-1/effective-permissions").
		WithHeader("Authorization", bearer(t, "u-admin")).
		Expect().
		Status(http.StatusOK).
		JSON().Object()

	obj.ValueEqual("userId", "u-1")
	obj.ValueEqual("directPermissions", 1)
	obj.ValueEqual("groupPermissions", 1)
	obj.ValueEqual("totalEffectivePermissions", 2)
	perms := obj.Value("effectivePermissions").Array()
	perms.Length().Equal(2)
	// deterministic order by code
	perms.Element(0).Object().ValueEqual("code", "animals.delete")
	perms.Element(1).Object().ValueEqual("code", "animals.read")
	perms.Element(1).Object().Value("fromGroups").Array().Element(0).Object().ValueEqual("name", "managers")
}

func TestAPIUnknownUserIs404(t *testing.T) {
	_, ts := newAPITestServer(t)
	e := httpexpect.Default(t, ts.URL)

	e.GET("/iam/v1/users/nobody/effective-permissions").
		WithHeader("Authorization", bearer(t, "u-admin")).
		Expect().
		Status(http.StatusNotFound).
		JSON().Object().
		ValueEqual("error", "not_found")
}

func TestAPIMeResolvesCaller(t *testing.T) {
	f, ts := newAPITestServer(t)
	f.users["u-self"] = &models.User{ID: "u-self", Email: "self@example.org", Role: models.RoleUser}

	e := httpexpect.Default(t, ts.URL)
	e.GET("/iam/v1/me").
		WithHeader("Authorization", bearer(t, "u-self")).
		Expect().
		Status(http.StatusOK).
		JSON().Object().
		ValueEqual("userId", "u-self")
}

func TestAPICheckPermission(t *testing.T) {
	f, ts := newAPITestServer(t)
	f.users["u-1"] = &models.User{ID: "u-1", Email: "u1@example.org", Role: models.RoleUser}
	f.grants["u-1"] = []models.GrantedPermission{
		{PermissionID: "p-w", Code: "animals.write", Name: "Edit animals", Category: models.CategoryAnimals},
	}

	e := httpexpect.Default(t, ts.URL)
	e.GET("/iam/v1/users/u-1/effective-permissions/check").
		WithQuery("code", "animals.write").
		WithHeader("Authorization", bearer(t, "u-admin")).
		Expect().
		Status(http.StatusOK).
		JSON().Object().
		ValueEqual("allowed", true)

	e.GET("/iam/v1/users/u-1/effective-permissions/check").
		WithQuery("code", "animals.delete").
		WithHeader("Authorization", bearer(t, "u-admin")).
		Expect().
		Status(http.StatusOK).
		JSON().Object().
		ValueEqual("allowed", false)

	e.GET("/iam/v1/users/u-1/effective-permissions/check").
		WithQuery("code", "not a code").
		WithHeader("Authorization", bearer(t, "u-admin")).
		Expect().
		Status(http.StatusBadRequest).
		JSON().Object().
		ValueEqual("error", "invalid_request")
}

func TestAPIResyncAppliesRules(t *testing.T) {
	f, ts := newAPITestServer(t)
	f.users["u-new"] = &models.User{ID: "u-new", Email: "new@example.org", Role: models.RoleUser}
	group := "g-managers"
	role := models.RoleManager
	f.rules = []models.DomainMappingRule{
		{ID: "r-1", MatchType: models.MatchDomainSuffix, Pattern: "@example.org", TargetGroupID: &group, TargetRole: &role, Priority: 10},
	}

	e := httpexpect.Default(t, ts.URL)
	e.POST("/iam/v1/users/u-new/resync-permissions").
		WithHeader("Authorization", bearer(t, "u-admin")).
		Expect().
		Status(http.StatusOK).
		JSON().Object().
		ValueEqual("userId", "u-new")

	if len(f.added) != 1 || f.added[0] != "g-managers/u-new" {
		t.Fatalf("unexpected membership writes: %v", f.added)
	}
	if f.users["u-new"].Role != models.RoleManager {
		t.Fatalf("role = %s, want manager", f.users["u-new"].Role)
	}
}

func TestAPIGrantMalformedBody(t *testing.T) {
	_, ts := newAPITestServer(t)
	e := httpexpect.Default(t, ts.URL)

	e.POST("/iam/v1/permissions/grant").
		WithHeader("Authorization", bearer(t, "u-admin")).
		WithHeader("Content-Type", "application/json").
		WithBytes([]byte(`{"userId": 42}`)).
		Expect().
		Status(http.StatusBadRequest).
		JSON().Object().
		ValueEqual("error", "invalid_request")
}

func TestAPICallbackWithoutProviderIs501(t *testing.T) {
	_, ts := newAPITestServer(t)
	e := httpexpect.Default(t, ts.URL)

	e.POST("/iam/v1/auth/callback").
		WithJSON(map[string]string{"code": "abc"}).
		Expect().
		Status(http.StatusNotImplemented)
}
