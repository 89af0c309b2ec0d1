package store

import (
	"context"
	"log"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/animalia-app/iam-service/migrate"
	"github.com/animalia-app/iam-service/models"
)

// getTestDSN returns the Postgres DSN for store tests. Tests skip when unset
// so the suite stays green without a database.
func getTestDSN() string {
	dsn := strings.TrimSpace(os.Getenv("IAM_TEST_DB_DSN"))
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("MIGRATE_DSN"))
	}
	return dsn
}

var (
	migrateOnce sync.Once
	migrateErr  error
)

// openTestDB opens a gorm handle against the test database, running schema
// migrations once per process.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := getTestDSN()
	if dsn == "" {
		t.Skip("IAM_TEST_DB_DSN not set; skipping database test")
	}
	migrateOnce.Do(func() {
		migrateErr = migrate.Run(migrate.Options{
			Driver:  "postgres",
			DSN:     dsn,
			Command: "up",
			Logger:  log.New(os.Stdout, "[test-migrate] ", log.LstdFlags),
		})
	})
	if migrateErr != nil {
		t.Skipf("migrations failed against test database: %v", migrateErr)
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Skipf("cannot open test database: %v", err)
	}
	return db
}

// invalidations records Invalidator calls for cache-coherence assertions.
type invalidations struct {
	mu  sync.Mutex
	ids []string
}

func (r *invalidations) fn() Invalidator {
	return func(userID string) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.ids = append(r.ids, userID)
	}
}

func (r *invalidations) count(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, id := range r.ids {
		if id == userID {
			n++
		}
	}
	return n
}

// seedUser inserts a throwaway user and removes it when the test ends.
func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	u := &models.User{
		ID:        models.NewID(),
		Email:     email,
		Provider:  "test",
		Role:      models.RoleUser,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(context.Background()).Exec(
		`INSERT INTO users (id, email, provider, role, display_name, created_at, updated_at) VALUES (?,?,?,?,?,?,?)`,
		u.ID, u.Email, u.Provider, u.Role, nil, u.CreatedAt, u.UpdatedAt,
	).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	t.Cleanup(func() {
		db.Exec(`DELETE FROM user_permissions WHERE user_id = ?`, u.ID)
		db.Exec(`DELETE FROM memberships WHERE user_id = ?`, u.ID)
		db.Exec(`DELETE FROM users WHERE id = ?`, u.ID)
	})
	return u
}

// seedPermission inserts a throwaway catalog entry.
func seedPermission(t *testing.T, db *gorm.DB, code string) *models.Permission {
	t.Helper()
	p := &models.Permission{
		ID:       models.NewID(),
		Code:     code,
		Name:     code,
		Category: models.CategoryAnimals,
	}
	if err := db.Exec(
		`INSERT INTO permissions (id, code, name, description, category) VALUES (?,?,?,?,?)`,
		p.ID, p.Code, p.Name, "", p.Category,
	).Error; err != nil {
		t.Fatalf("seed permission: %v", err)
	}
	t.Cleanup(func() {
		db.Exec(`DELETE FROM group_permissions WHERE permission_id = ?`, p.ID)
		db.Exec(`DELETE FROM user_permissions WHERE permission_id = ?`, p.ID)
		db.Exec(`DELETE FROM permissions WHERE id = ?`, p.ID)
	})
	return p
}

// seedGroup inserts a throwaway group with the given permissions linked.
func seedGroup(t *testing.T, db *gorm.DB, name string, active bool, permissionIDs ...string) *models.Group {
	t.Helper()
	g := &models.Group{
		ID:        models.NewID(),
		Name:      name,
		IsActive:  active,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := db.Exec(
		`INSERT INTO groups (id, name, description, color_tag, is_active, created_by, created_at, updated_at) VALUES (?,?,?,?,?,?,?,?)`,
		g.ID, g.Name, "", "", g.IsActive, nil, g.CreatedAt, g.UpdatedAt,
	).Error; err != nil {
		t.Fatalf("seed group: %v", err)
	}
	for _, pid := range permissionIDs {
		if err := db.Exec(
			`INSERT INTO group_permissions (group_id, permission_id) VALUES (?,?)`, g.ID, pid,
		).Error; err != nil {
			t.Fatalf("seed group permission: %v", err)
		}
	}
	t.Cleanup(func() {
		db.Exec(`DELETE FROM group_permissions WHERE group_id = ?`, g.ID)
		db.Exec(`DELETE FROM memberships WHERE group_id = ?`, g.ID)
		db.Exec(`DELETE FROM groups WHERE id = ?`, g.ID)
	})
	return g
}

// uniq builds a collision-free name for parallel test runs.
func uniq(prefix string) string {
	return prefix + "-" + models.NewID()[:12]
}
