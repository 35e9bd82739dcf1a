// Package httprepo implements users.ProfileRepo against the Raterly REST API.
package httprepo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	interrors "github.com/raterly/go-raterly/internal/errors"
	"github.com/raterly/go-raterly/users"
)

var _ users.ProfileRepo = (*ProfileRepo)(nil)

// TokenFunc supplies the bearer token for each request. It is called per
// request so refreshed sessions take effect without rebuilding the repo.
type TokenFunc func() string

type ProfileRepo struct {
	baseURL    string
	httpClient *http.Client
	token      TokenFunc
}

func NewProfileRepo(baseURL string, token TokenFunc) *ProfileRepo {
	return &ProfileRepo{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		token:      token,
	}
}

func (pr *ProfileRepo) GetByID(ctx context.Context, id string) (*users.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/profiles/%s", pr.baseURL, id), nil)
	if err != nil {
		return nil, interrors.Wrapf(err, "profile request")
	}
	pr.setHeaders(req)

	resp, err := pr.httpClient.Do(req)
	if err != nil {
		return nil, interrors.Wrapf(err, "profile fetch")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, users.ErrProfileNotFound
	case http.StatusUnauthorized:
		return nil, interrors.ErrUnauthorized
	default:
		return nil, interrors.Wrapf(interrors.ErrRemote, "profile fetch status %d", resp.StatusCode)
	}

	var profile users.Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, interrors.Wrapf(err, "profile decode")
	}
	return &profile, nil
}

func (pr *ProfileRepo) Update(ctx context.Context, id string, updates users.ProfileUpdates) error {
	body, err := json.Marshal(updates)
	if err != nil {
		return interrors.Wrapf(err, "profile update encode")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, fmt.Sprintf("%s/profiles/%s", pr.baseURL, id), bytes.NewReader(body))
	if err != nil {
		return interrors.Wrapf(err, "profile update request")
	}
	pr.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := pr.httpClient.Do(req)
	if err != nil {
		return interrors.Wrapf(err, "profile update")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return users.ErrProfileNotFound
	case http.StatusUnauthorized:
		return interrors.ErrUnauthorized
	default:
		return interrors.Wrapf(interrors.ErrRemote, "profile update status %d", resp.StatusCode)
	}
}

func (pr *ProfileRepo) setHeaders(req *http.Request) {
	if pr.token != nil {
		if t := pr.token(); t != "" {
			req.Header.Set("Authorization", "Bearer "+t)
		}
	}
	req.Header.Set("Accept", "application/json")
}
