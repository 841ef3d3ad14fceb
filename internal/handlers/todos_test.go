package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamtodo-backend/internal/models"
)

func TestCreateTodoRequiresTitle(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodPost, "/users/u1/todos", "u1", `{"title": ""}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.store.todos)
}

func TestCreateAndGetTodo(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodPost, "/users/u1/todos", "u1", `{"title": "write report"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Todo models.Todo `json:"todo"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "write report", resp.Todo.Title)
	assert.Equal(t, "u1", resp.Todo.UserID)

	rec = f.request(t, http.MethodGet, "/users/u1/todos/"+resp.Todo.ID, "u1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetTodoOfOtherUserIsHidden(t *testing.T) {
	f := newFixture(t)
	f.store.todos["t1"] = models.Todo{ID: "t1", Title: "secret", UserID: "u2"}

	rec := f.request(t, http.MethodGet, "/users/u1/todos/t1", "u1", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListTodosFiltersByOrganization(t *testing.T) {
	f := newFixture(t)
	orgID := "o1"
	f.store.todos["t1"] = models.Todo{ID: "t1", Title: "personal", UserID: "u1"}
	f.store.todos["t2"] = models.Todo{ID: "t2", Title: "shared", UserID: "u1", OrganizationID: &orgID}

	rec := f.request(t, http.MethodGet, "/users/u1/todos?organization_id=o1", "u1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Todos []models.Todo `json:"todos"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Todos, 1)
	assert.Equal(t, "t2", resp.Todos[0].ID)
}

func TestUpdateTodoEmptyTitle(t *testing.T) {
	f := newFixture(t)
	f.store.todos["t1"] = models.Todo{ID: "t1", Title: "old", UserID: "u1"}

	rec := f.request(t, http.MethodPut, "/users/u1/todos/t1", "u1", `{"title": ""}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "old", f.store.todos["t1"].Title)
}

func TestDeleteMissingTodoIs404(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodDelete, "/users/u1/todos/nope", "u1", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAttachUnknownLabelIs404(t *testing.T) {
	f := newFixture(t)
	f.store.todos["t1"] = models.Todo{ID: "t1", Title: "x", UserID: "u1"}

	rec := f.request(t, http.MethodPut, "/users/u1/todos/t1/labels/nope", "u1", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateLabelRequiresName(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodPost, "/labels", "u1", `{"name": ""}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.store.labels)
}

func TestDeleteMissingLabelIs404(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodDelete, "/labels/nope", "u1", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
