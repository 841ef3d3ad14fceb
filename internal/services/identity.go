package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// IdentityClient is a thin wrapper around the hosted identity
// provider's management API. The provider is the system of record for
// users and organizations; the mirror store only catches up through
// webhook events.
type IdentityClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewIdentityClient(baseURL, apiKey string) *IdentityClient {
	return &IdentityClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type OrganizationInput struct {
	Name      string `json:"name"`
	Slug      string `json:"slug,omitempty"`
	CreatedBy string `json:"created_by,omitempty"`
}

// ProviderOrganization is the provider's view of an organization.
type ProviderOrganization struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	ImageURL     string `json:"image_url"`
	CreatedBy    string `json:"created_by"`
	MembersCount int    `json:"members_count"`
}

func (c *IdentityClient) CreateOrganization(ctx context.Context, createdBy string, input OrganizationInput) (*ProviderOrganization, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("organization name is required")
	}
	input.CreatedBy = createdBy

	var org ProviderOrganization
	if err := c.do(ctx, http.MethodPost, "/organizations", input, &org); err != nil {
		return nil, fmt.Errorf("create organization: %w", err)
	}
	return &org, nil
}

func (c *IdentityClient) UpdateOrganization(ctx context.Context, orgID string, input OrganizationInput) (*ProviderOrganization, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("organization name is required")
	}

	var org ProviderOrganization
	if err := c.do(ctx, http.MethodPatch, "/organizations/"+orgID, input, &org); err != nil {
		return nil, fmt.Errorf("update organization: %w", err)
	}
	return &org, nil
}

func (c *IdentityClient) DeleteOrganization(ctx context.Context, orgID string) error {
	if err := c.do(ctx, http.MethodDelete, "/organizations/"+orgID, nil, nil); err != nil {
		return fmt.Errorf("delete organization: %w", err)
	}
	return nil
}

// UpdateUserMetadata pushes per-user public metadata (the role claim)
// into the provider so freshly minted session tokens carry it.
func (c *IdentityClient) UpdateUserMetadata(ctx context.Context, userID string, metadata map[string]interface{}) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}

	body := map[string]interface{}{"public_metadata": metadata}
	if err := c.do(ctx, http.MethodPatch, "/users/"+userID+"/metadata", body, nil); err != nil {
		return fmt.Errorf("update user metadata: %w", err)
	}
	return nil
}

func (c *IdentityClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("identity provider returned %d: %s", resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
