package authn

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/animalia-app/iam-service/models"
	"github.com/animalia-app/iam-service/store"
)

// Config describes one upstream OAuth2 identity provider.
type Config struct {
	Provider     string
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	RedirectURL  string
	Scopes       []string
}

// UserUpserter persists users keyed by verified email.
type UserUpserter interface {
	UpsertByProvider(ctx context.Context, email, provider string, displayName *string) (*models.User, error)
}

// LoginResyncer re-applies domain mapping rules after a login. Best effort;
// implementations swallow their own failures.
type LoginResyncer interface {
	ResyncOnLogin(ctx context.Context, userID string)
}

// Provider completes upstream OAuth logins. The permission system trusts the
// provider-verified email as the identity anchor and never sees credentials.
type Provider struct {
	name        string
	oauth       *oauth2.Config
	userInfoURL string
	users       UserUpserter
	resync      LoginResyncer

	// HTTPClient overrides the client used for the userinfo fetch; nil
	// means http.DefaultClient with a timeout.
	HTTPClient *http.Client
}

func NewProvider(cfg Config, users UserUpserter, resync LoginResyncer) *Provider {
	return &Provider{
		name: cfg.Provider,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		userInfoURL: cfg.UserInfoURL,
		users:       users,
		resync:      resync,
	}
}

// AuthCodeURL returns the provider authorization URL and the state value
// embedded in it. The caller is responsible for round-tripping the state.
func (p *Provider) AuthCodeURL() (string, string) {
	state := uuid.NewString()
	return p.oauth.AuthCodeURL(state), state
}

// userInfo is the subset of the provider userinfo response we consume.
type userInfo struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
	Name          string `json:"name"`
}

// CompleteLogin exchanges the authorization code, fetches the verified email
// from the userinfo endpoint, upserts the user and triggers a best-effort
// resync. Returns the persisted user.
func (p *Provider) CompleteLogin(ctx context.Context, code string) (*models.User, error) {
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: code exchange rejected", store.ErrValidation)
	}

	info, err := p.fetchUserInfo(ctx, token)
	if err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(info.Email))
	if email == "" {
		return nil, fmt.Errorf("%w: provider returned no email", store.ErrValidation)
	}
	if info.EmailVerified != nil && !*info.EmailVerified {
		return nil, fmt.Errorf("%w: provider email is unverified", store.ErrValidation)
	}

	var displayName *string
	if name := strings.TrimSpace(info.Name); name != "" {
		displayName = &name
	}
	user, err := p.users.UpsertByProvider(ctx, email, p.name, displayName)
	if err != nil {
		return nil, err
	}

	if p.resync != nil {
		p.resync.ResyncOnLogin(ctx, user.ID)
	}
	return user, nil
}

func (p *Provider) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*userInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build userinfo request: %v", store.ErrDependency, err)
	}
	token.SetAuthHeader(req)

	client := p.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: userinfo fetch: %v", store.ErrDependency, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: userinfo returned %d", store.ErrDependency, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read userinfo: %v", store.ErrDependency, err)
	}
	var info userInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("%w: decode userinfo: %v", store.ErrDependency, err)
	}
	return &info, nil
}
