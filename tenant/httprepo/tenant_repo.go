// Package httprepo implements tenant.Repo against the Raterly REST API.
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
	"github.com/raterly/go-raterly/tenant"
)

var _ tenant.Repo = (*TenantRepo)(nil)

// TokenFunc supplies the bearer token for each request. It is called per
// request so refreshed sessions take effect without rebuilding the repo.
type TokenFunc func() string

type TenantRepo struct {
	baseURL    string
	httpClient *http.Client
	token      TokenFunc
}

func NewTenantRepo(baseURL string, token TokenFunc) *TenantRepo {
	return &TenantRepo{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		token:      token,
	}
}

func (tr *TenantRepo) GetForUser(ctx context.Context, userID string) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := tr.getJSON(ctx, fmt.Sprintf("%s/users/%s/tenant", tr.baseURL, userID), &t)
	if err != nil {
		if interrors.Is(err, tenant.ErrTenantNotFound) {
			return nil, tenant.ErrNoTenantAssigned
		}
		return nil, err
	}
	return &t, nil
}

func (tr *TenantRepo) List(ctx context.Context) ([]*tenant.Tenant, error) {
	var list []*tenant.Tenant
	if err := tr.getJSON(ctx, tr.baseURL+"/tenants", &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (tr *TenantRepo) Get(ctx context.Context, id string) (*tenant.Tenant, error) {
	var t tenant.Tenant
	if err := tr.getJSON(ctx, fmt.Sprintf("%s/tenants/%s", tr.baseURL, id), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (tr *TenantRepo) Metrics(ctx context.Context, id string) (*tenant.Metrics, error) {
	var m tenant.Metrics
	if err := tr.getJSON(ctx, fmt.Sprintf("%s/tenants/%s/metrics", tr.baseURL, id), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (tr *TenantRepo) Create(ctx context.Context, createReq tenant.CreateRequest) (*tenant.Tenant, error) {
	var t tenant.Tenant
	if err := tr.sendJSON(ctx, http.MethodPost, tr.baseURL+"/tenants", createReq, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (tr *TenantRepo) Update(ctx context.Context, id string, updates tenant.Updates) (*tenant.Tenant, error) {
	var t tenant.Tenant
	if err := tr.sendJSON(ctx, http.MethodPatch, fmt.Sprintf("%s/tenants/%s", tr.baseURL, id), updates, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (tr *TenantRepo) Delete(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, fmt.Sprintf("%s/tenants/%s", tr.baseURL, id), nil)
	if err != nil {
		return interrors.Wrapf(err, "tenant delete request")
	}
	tr.setHeaders(req)

	resp, err := tr.httpClient.Do(req)
	if err != nil {
		return interrors.Wrapf(err, "tenant delete")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return tenant.ErrTenantNotFound
	case http.StatusUnauthorized:
		return interrors.ErrUnauthorized
	default:
		return interrors.Wrapf(interrors.ErrRemote, "tenant delete status %d", resp.StatusCode)
	}
}

func (tr *TenantRepo) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return interrors.Wrapf(err, "tenant request")
	}
	tr.setHeaders(req)

	resp, err := tr.httpClient.Do(req)
	if err != nil {
		return interrors.Wrapf(err, "tenant fetch")
	}
	defer resp.Body.Close()

	if err := checkStatus(resp.StatusCode, "tenant fetch"); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return interrors.Wrapf(err, "tenant decode")
	}
	return nil
}

func (tr *TenantRepo) sendJSON(ctx context.Context, method, url string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return interrors.Wrapf(err, "tenant encode")
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return interrors.Wrapf(err, "tenant request")
	}
	tr.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := tr.httpClient.Do(req)
	if err != nil {
		return interrors.Wrapf(err, "tenant send")
	}
	defer resp.Body.Close()

	if err := checkStatus(resp.StatusCode, "tenant send"); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return interrors.Wrapf(err, "tenant decode")
	}
	return nil
}

func (tr *TenantRepo) setHeaders(req *http.Request) {
	if tr.token != nil {
		if t := tr.token(); t != "" {
			req.Header.Set("Authorization", "Bearer "+t)
		}
	}
	req.Header.Set("Accept", "application/json")
}

func checkStatus(code int, op string) error {
	switch code {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusNotFound:
		return tenant.ErrTenantNotFound
	case http.StatusUnauthorized:
		return interrors.ErrUnauthorized
	default:
		return interrors.Wrapf(interrors.ErrRemote, "%s status %d", op, code)
	}
}
