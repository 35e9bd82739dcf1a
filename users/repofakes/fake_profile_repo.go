package repofakes

import (
	"context"
	"sync"

	"github.com/raterly/go-raterly/users"
)

var _ users.ProfileRepo = (*FakeProfileRepo)(nil)

// FakeProfileRepo is an in-memory ProfileRepo for tests. Set GetErr or
// UpdateErr to force failure paths.
type FakeProfileRepo struct {
	profiles map[string]*users.Profile
	lock     sync.RWMutex

	GetErr    error
	UpdateErr error
	GetCalls  int
}

func NewFakeProfileRepo() *FakeProfileRepo {
	return &FakeProfileRepo{
		profiles: make(map[string]*users.Profile),
	}
}

func (pr *FakeProfileRepo) Seed(profile *users.Profile) {
	pr.lock.Lock()
	defer pr.lock.Unlock()
	pr.profiles[profile.ID] = profile
}

func (pr *FakeProfileRepo) GetByID(_ context.Context, id string) (*users.Profile, error) {
	pr.lock.Lock()
	defer pr.lock.Unlock()
	pr.GetCalls++
	if pr.GetErr != nil {
		return nil, pr.GetErr
	}
	profile, ok := pr.profiles[id]
	if !ok {
		return nil, users.ErrProfileNotFound
	}
	copied := *profile
	return &copied, nil
}

func (pr *FakeProfileRepo) Update(_ context.Context, id string, updates users.ProfileUpdates) error {
	pr.lock.Lock()
	defer pr.lock.Unlock()
	if pr.UpdateErr != nil {
		return pr.UpdateErr
	}
	profile, ok := pr.profiles[id]
	if !ok {
		return users.ErrProfileNotFound
	}
	if updates.FullName != nil {
		profile.FullName = *updates.FullName
	}
	if updates.Email != nil {
		profile.Email = *updates.Email
	}
	if updates.Role != nil {
		profile.Role = *updates.Role
	}
	if updates.TenantID != nil {
		profile.TenantID = *updates.TenantID
	}
	return nil
}
