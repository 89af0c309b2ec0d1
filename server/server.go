package server

import (
	"context"
	"errors"
	"log"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/animalia-app/iam-service/authn"
	"github.com/animalia-app/iam-service/resolver"
	"github.com/animalia-app/iam-service/store"
)

// ErrDBDSNNotSet is returned when no database DSN is configured.
var ErrDBDSNNotSet = errors.New("database dsn not set")

// Server wires the stores, the resolver and the login boundary behind the
// HTTP surface. Stores share one gorm handle; mutating stores invalidate the
// resolved-set cache through the Invalidator built here.
type Server struct {
	Config *AppConfig
	DB     *gorm.DB
	Cache  store.ResolvedCache

	Users       *store.UserStore
	Permissions *store.PermissionStore
	Groups      *store.GroupStore
	Memberships *store.MembershipStore
	Grants      *store.GrantStore
	Rules       *store.RuleStore

	Resolver *resolver.Resolver
	Resync   *resolver.Resync
	Sweeper  *resolver.Sweeper

	// Login is nil when no upstream OAuth provider is configured; the
	// callback endpoint then answers 501.
	Login *authn.Provider
}

// NewServer opens the configured Postgres database and builds a Server.
func NewServer(cfg *AppConfig) (*Server, error) {
	dsn := cfg.DatabaseDSN()
	if dsn == "" {
		return nil, ErrDBDSNNotSet
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return NewServerWithDB(cfg, db)
}

// NewServerWithDB builds a Server on an existing gorm handle. Used directly
// by tests that bring their own database.
func NewServerWithDB(cfg *AppConfig, db *gorm.DB) (*Server, error) {
	cache, err := newCache(cfg)
	if err != nil {
		return nil, err
	}
	invalidate := func(userID string) {
		if err := cache.Invalidate(context.Background(), userID); err != nil {
			log.Printf("server: cache invalidate for user %s: %v", userID, err)
		}
	}

	s := &Server{
		Config:      cfg,
		DB:          db,
		Cache:       cache,
		Users:       store.NewUserStore(db),
		Permissions: store.NewPermissionStore(db),
		Groups:      store.NewGroupStore(db, invalidate),
		Memberships: store.NewMembershipStore(db, invalidate),
		Grants:      store.NewGrantStore(db, invalidate),
		Rules:       store.NewRuleStore(db),
	}
	s.Resolver = resolver.New(s.Users, s.Grants, s.Memberships, cache, cfg.CacheTTL())
	s.Resync = resolver.NewResync(s.Users, s.Rules, s.Memberships, s.Users, s.Resolver)
	s.Sweeper = resolver.NewSweeper(s.Grants, cfg.SweepInterval(), nil)

	if cfg.Auth.OAuth.ClientID != "" {
		s.Login = authn.NewProvider(authn.Config{
			Provider:     cfg.Auth.OAuth.Provider,
			ClientID:     cfg.Auth.OAuth.ClientID,
			ClientSecret: cfg.Auth.OAuth.ClientSecret,
			AuthURL:      cfg.Auth.OAuth.AuthURL,
			TokenURL:     cfg.Auth.OAuth.TokenURL,
			UserInfoURL:  cfg.Auth.OAuth.UserInfoURL,
			RedirectURL:  cfg.Auth.OAuth.RedirectURL,
			Scopes:       cfg.Auth.OAuth.Scopes,
		}, s.Users, s.Resync)
	}
	return s, nil
}

func newCache(cfg *AppConfig) (store.ResolvedCache, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Cache.Backend)) {
	case "", "memory":
		return store.NewBuntCache()
	case "valkey":
		return store.NewValkeyCache(cfg.Cache.Addr, "iam:resolved:")
	}
	return nil, errors.New("unknown cache backend: " + cfg.Cache.Backend)
}

// Close releases the cache and the underlying sql connection pool.
func (s *Server) Close() error {
	if s.Cache != nil {
		if err := s.Cache.Close(); err != nil {
			log.Printf("server: cache close: %v", err)
		}
	}
	if s.DB != nil {
		if sqlDB, err := s.DB.DB(); err == nil {
			return sqlDB.Close()
		}
	}
	return nil
}
