// Package oidchttp implements session.IdentityService against an OIDC
// provider: resource-owner password grant for sign-in, refresh-token grant
// for session re-validation, and the UserInfo endpoint for principal
// attributes.
package oidchttp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/raterly/go-raterly/session"
	"github.com/raterly/go-raterly/users"
)

var _ session.IdentityService = (*Service)(nil)

// Config holds the identity provider settings.
type Config struct {
	IssuerURL    string // OIDC issuer; discovery runs against it
	ClientID     string
	ClientSecret string // Empty for public clients
	SignUpURL    string // Registration endpoint; sign-up is not part of OIDC
}

type Service struct {
	provider   *oidc.Provider
	oauth      oauth2.Config
	signUpURL  string
	revokeURL  string
	httpClient *http.Client
}

// New runs OIDC discovery against the issuer and builds the service.
func New(ctx context.Context, cfg Config) (*Service, error) {
	if cfg.IssuerURL == "" {
		return nil, errors.New("[oidchttp.New] issuer URL is required")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("[oidchttp.New] client ID is required")
	}

	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, errors.Wrap(err, "[oidchttp.New] oidc.NewProvider")
	}

	var discovered struct {
		RevocationEndpoint string `json:"revocation_endpoint"`
	}
	if err := provider.Claims(&discovered); err != nil {
		return nil, errors.Wrap(err, "[oidchttp.New] provider claims")
	}

	return &Service{
		provider: provider,
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email", oidc.ScopeOfflineAccess},
		},
		signUpURL:  cfg.SignUpURL,
		revokeURL:  discovered.RevocationEndpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*session.IdentityResult, error) {
	token, err := s.oauth.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		var retrieve *oauth2.RetrieveError
		if errors.As(err, &retrieve) && retrieve.Response != nil &&
			(retrieve.Response.StatusCode == http.StatusBadRequest || retrieve.Response.StatusCode == http.StatusUnauthorized) {
			// The provider rejected the credentials rather than failing.
			return nil, errors.Wrap(session.ErrInvalidCredentials, "[Service.SignIn] password grant")
		}
		return nil, errors.Wrap(err, "[Service.SignIn] password grant")
	}
	return s.resultFromToken(ctx, token)
}

func (s *Service) SignOut(ctx context.Context, accessToken string) error {
	if s.revokeURL == "" || accessToken == "" {
		return nil
	}

	form := url.Values{}
	form.Set("token", accessToken)
	form.Set("token_type_hint", "access_token")
	form.Set("client_id", s.oauth.ClientID)
	if s.oauth.ClientSecret != "" {
		form.Set("client_secret", s.oauth.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "[Service.SignOut] build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "[Service.SignOut] revoke")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("[Service.SignOut] revoke status %d", resp.StatusCode)
	}
	return nil
}

func (s *Service) SignUp(ctx context.Context, email, password string, attrs session.SignUpAttributes) (*users.User, error) {
	if s.signUpURL == "" {
		return nil, errors.New("[Service.SignUp] no sign-up endpoint configured")
	}

	body, err := json.Marshal(struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name,omitempty"`
		TenantID string `json:"tenant_id,omitempty"`
	}{Email: email, Password: password, FullName: attrs.FullName, TenantID: attrs.TenantID})
	if err != nil {
		return nil, errors.Wrap(err, "[Service.SignUp] encode")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.signUpURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "[Service.SignUp] build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.SignUp] register")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, errors.Errorf("[Service.SignUp] register status %d", resp.StatusCode)
	}

	var user users.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, errors.Wrap(err, "[Service.SignUp] decode")
	}
	return &user, nil
}

func (s *Service) GetSession(ctx context.Context, refreshToken string) (*session.IdentityResult, error) {
	return s.RefreshSession(ctx, refreshToken)
}

func (s *Service) RefreshSession(ctx context.Context, refreshToken string) (*session.IdentityResult, error) {
	if refreshToken == "" {
		return nil, nil
	}

	source := s.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		var retrieve *oauth2.RetrieveError
		if errors.As(err, &retrieve) && retrieve.Response != nil &&
			(retrieve.Response.StatusCode == http.StatusBadRequest || retrieve.Response.StatusCode == http.StatusUnauthorized) {
			// The provider rejected the token: not an outage, just no session.
			return nil, nil
		}
		return nil, errors.Wrap(err, "[Service.RefreshSession] refresh grant")
	}
	return s.resultFromToken(ctx, token)
}

// resultFromToken resolves the principal via UserInfo and builds the session
// bundle. Expiry falls back to the access token's exp claim when the token
// response omitted expires_in.
func (s *Service) resultFromToken(ctx context.Context, token *oauth2.Token) (*session.IdentityResult, error) {
	info, err := s.provider.UserInfo(ctx, oauth2.StaticTokenSource(token))
	if err != nil {
		return nil, errors.Wrap(err, "[Service.resultFromToken] userinfo")
	}

	var claims struct {
		EmailVerified    bool       `json:"email_verified"`
		EmailConfirmedAt *time.Time `json:"email_confirmed_at"`
		CreatedAt        time.Time  `json:"created_at"`
		LastSignInAt     *time.Time `json:"last_sign_in_at"`
	}
	if err := info.Claims(&claims); err != nil {
		return nil, errors.Wrap(err, "[Service.resultFromToken] claims")
	}

	user := &users.User{
		ID:               info.Subject,
		Email:            info.Email,
		EmailConfirmedAt: claims.EmailConfirmedAt,
		CreatedAt:        claims.CreatedAt,
		LastSignInAt:     claims.LastSignInAt,
	}
	if user.EmailConfirmedAt == nil && claims.EmailVerified {
		now := time.Now().UTC()
		user.EmailConfirmedAt = &now
	}

	expiry := token.Expiry
	if expiry.IsZero() {
		expiry = expiryFromJWT(token.AccessToken)
	}

	return &session.IdentityResult{
		User: user,
		Session: &session.Session{
			AccessToken:  token.AccessToken,
			RefreshToken: token.RefreshToken,
			TokenType:    token.Type(),
			ExpiresAt:    expiry,
		},
	}, nil
}

// expiryFromJWT reads the exp claim without verifying the signature; the
// client only needs the timestamp, validation is the resource server's job.
func expiryFromJWT(accessToken string) time.Time {
	parsed, _, err := jwt.NewParser().ParseUnverified(accessToken, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
