package identityfakes

import (
	"context"
	"sync"

	"github.com/raterly/go-raterly/session"
	"github.com/raterly/go-raterly/users"
)

var _ session.IdentityService = (*FakeIdentityService)(nil)

// FakeIdentityService is an in-memory identity provider for tests.
// Accounts are seeded with SeedAccount; set the *Err fields to force
// failure paths.
type FakeIdentityService struct {
	accounts map[string]account // keyed by email
	lock     sync.RWMutex

	SignInErr     error
	SignOutErr    error
	SignUpErr     error
	GetSessionErr error
	RefreshErr    error

	// Result returned by GetSession/RefreshSession when a refresh token is
	// recognised. Nil means "no session".
	SessionResult *session.IdentityResult

	SignInCalls     int
	SignOutCalls    int
	GetSessionCalls int
	RefreshCalls    int
}

type account struct {
	user     *users.User
	password string
	result   *session.IdentityResult
}

func NewFakeIdentityService() *FakeIdentityService {
	return &FakeIdentityService{accounts: make(map[string]account)}
}

// SeedAccount registers credentials and the result a successful sign-in
// yields.
func (is *FakeIdentityService) SeedAccount(email, password string, result *session.IdentityResult) {
	is.lock.Lock()
	defer is.lock.Unlock()
	is.accounts[email] = account{user: result.User, password: password, result: result}
}

func (is *FakeIdentityService) SignIn(_ context.Context, email, password string) (*session.IdentityResult, error) {
	is.lock.Lock()
	defer is.lock.Unlock()
	is.SignInCalls++
	if is.SignInErr != nil {
		return nil, is.SignInErr
	}
	acct, ok := is.accounts[email]
	if !ok || acct.password != password {
		return nil, session.ErrInvalidCredentials
	}
	return cloneResult(acct.result), nil
}

func (is *FakeIdentityService) SignOut(_ context.Context, _ string) error {
	is.lock.Lock()
	defer is.lock.Unlock()
	is.SignOutCalls++
	return is.SignOutErr
}

func (is *FakeIdentityService) SignUp(_ context.Context, email, _ string, attrs session.SignUpAttributes) (*users.User, error) {
	is.lock.Lock()
	defer is.lock.Unlock()
	if is.SignUpErr != nil {
		return nil, is.SignUpErr
	}
	user := &users.User{ID: "new-" + email, Email: email}
	_ = attrs
	return user, nil
}

func (is *FakeIdentityService) GetSession(_ context.Context, refreshToken string) (*session.IdentityResult, error) {
	is.lock.Lock()
	defer is.lock.Unlock()
	is.GetSessionCalls++
	if is.GetSessionErr != nil {
		return nil, is.GetSessionErr
	}
	if refreshToken == "" {
		return nil, nil
	}
	return cloneResult(is.SessionResult), nil
}

func (is *FakeIdentityService) RefreshSession(_ context.Context, refreshToken string) (*session.IdentityResult, error) {
	is.lock.Lock()
	defer is.lock.Unlock()
	is.RefreshCalls++
	if is.RefreshErr != nil {
		return nil, is.RefreshErr
	}
	if refreshToken == "" {
		return nil, nil
	}
	return cloneResult(is.SessionResult), nil
}

func cloneResult(res *session.IdentityResult) *session.IdentityResult {
	if res == nil {
		return nil
	}
	copied := session.IdentityResult{}
	if res.User != nil {
		u := *res.User
		copied.User = &u
	}
	if res.Session != nil {
		sess := *res.Session
		copied.Session = &sess
	}
	return &copied
}
