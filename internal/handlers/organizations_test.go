package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamtodo-backend/internal/models"
)

func TestCreateOrganizationEmptyName(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodPost, "/users/u1/organizations", "u1", `{"name": ""}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	// No provider call and no mirror write may happen on validation
	// failure.
	assert.Zero(t, f.identity.createCalls)
	assert.Empty(t, f.store.orgs)
}

func TestCreateOrganizationForwardsToProvider(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodPost, "/users/u1/organizations", "u1", `{"name": "Acme", "slug": "acme"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.identity.createCalls)
	// Provider is the system of record: the mirror row arrives via the
	// webhook, never from this handler.
	assert.Empty(t, f.store.orgs)

	var resp struct {
		Organization struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"organization"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Acme", resp.Organization.Name)
}

func TestCreateOrganizationAsOtherUser(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodPost, "/users/u1/organizations", "u2", `{"name": "Acme"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, f.identity.createCalls)
}

func TestDeleteOrganizationAsOtherUser(t *testing.T) {
	f := newFixture(t)
	f.store.orgs["o1"] = models.Organization{ID: "o1", UserID: "u1", Name: "Acme"}

	rec := f.request(t, http.MethodDelete, "/users/u1/organizations/o1", "u2", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, f.identity.deleteCalls)
	assert.Contains(t, f.store.orgs, "o1")
}

func TestUpdateOrganizationEmptyName(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodPut, "/users/u1/organizations/o1", "u1", `{"name": ""}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, f.identity.updateCalls)
}

func TestUpdateOrganizationNotVisible(t *testing.T) {
	f := newFixture(t)
	f.store.orgs["o1"] = models.Organization{ID: "o1", UserID: "someone-else", Name: "Acme"}

	rec := f.request(t, http.MethodPut, "/users/u1/organizations/o1", "u1", `{"name": "Hijacked"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	// The provider must never see a mutation for an organization the
	// caller does not belong to.
	assert.Zero(t, f.identity.updateCalls)
}

func TestUpdateOrganizationForwardsToProvider(t *testing.T) {
	f := newFixture(t)
	f.store.orgs["o1"] = models.Organization{ID: "o1", UserID: "u1", Name: "Acme"}

	rec := f.request(t, http.MethodPut, "/users/u1/organizations/o1", "u1", `{"name": "Acme Corp"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.identity.updateCalls)
}

func TestDeleteOrganizationNotVisible(t *testing.T) {
	f := newFixture(t)
	f.store.orgs["o1"] = models.Organization{ID: "o1", UserID: "someone-else", Name: "Acme"}

	rec := f.request(t, http.MethodDelete, "/users/u1/organizations/o1", "u1", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, f.identity.deleteCalls)
}

func TestDeleteOrganizationForwardsToProvider(t *testing.T) {
	f := newFixture(t)
	f.store.orgs["o1"] = models.Organization{ID: "o1", UserID: "u1", Name: "Acme"}

	rec := f.request(t, http.MethodDelete, "/users/u1/organizations/o1", "u1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.identity.deleteCalls)
	// The mirror row only goes away when organization.deleted arrives.
	assert.Contains(t, f.store.orgs, "o1")
}

func TestGetOrganizationNotVisible(t *testing.T) {
	f := newFixture(t)
	f.store.orgs["o1"] = models.Organization{ID: "o1", UserID: "someone-else"}

	rec := f.request(t, http.MethodGet, "/users/u1/organizations/o1", "u1", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListOrganizations(t *testing.T) {
	f := newFixture(t)
	f.store.orgs["o1"] = models.Organization{ID: "o1", UserID: "u1", Name: "Acme"}
	f.store.orgs["o2"] = models.Organization{ID: "o2", UserID: "u2", Name: "Other"}

	rec := f.request(t, http.MethodGet, "/users/u1/organizations", "u1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Organizations []models.Organization `json:"organizations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Organizations, 1)
	assert.Equal(t, "o1", resp.Organizations[0].ID)
}

func TestProviderFailureIsOpaque500(t *testing.T) {
	f := newFixture(t)
	f.identity.err = errUpstream

	rec := f.request(t, http.MethodPost, "/users/u1/organizations", "u1", `{"name": "Acme"}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "upstream failure")
}

func TestActiveOrganizationFallsBackToFirst(t *testing.T) {
	f := newFixture(t)
	f.store.orgs["o1"] = models.Organization{ID: "o1", UserID: "u1", Name: "Acme"}

	rec := f.request(t, http.MethodGet, "/users/u1/active-organization", "u1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	// Fallback selection is rehydrated into the store.
	assert.Equal(t, "o1", f.cache.activeOrgs["u1"])
}

func TestActiveOrganizationNoneAvailable(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodGet, "/users/u1/active-organization", "u1", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetActiveOrganizationRequiresVisibility(t *testing.T) {
	f := newFixture(t)
	f.store.orgs["o1"] = models.Organization{ID: "o1", UserID: "someone-else"}

	rec := f.request(t, http.MethodPut, "/users/u1/active-organization", "u1", `{"organization_id": "o1"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, f.cache.activeOrgs)
}

func TestClearActiveOrganization(t *testing.T) {
	f := newFixture(t)
	f.cache.activeOrgs["u1"] = "o1"

	rec := f.request(t, http.MethodDelete, "/users/u1/active-organization", "u1", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, f.cache.activeOrgs)
}
