package profile

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boothlead/backend/internal/compat"
	"github.com/boothlead/backend/internal/middleware"
	"github.com/boothlead/backend/internal/models"
	"github.com/boothlead/backend/internal/store"
	"github.com/boothlead/backend/internal/store/storetest"
)

func newRepo(mem *storetest.Memory) *Repository {
	return NewRepository(mem, compat.NewWriter(nil, nil), nil)
}

func TestGetProfile(t *testing.T) {
	mem := storetest.NewMemory()
	mem.Seed(store.TableUsers, store.Row{"id": "u1", "full_name": "Sam Rep", "role": "Company_Admin", "company_id": 7})
	repo := newRepo(mem)

	p, err := repo.GetProfile(context.Background(), "u1", "sam@example.com")
	require.NoError(t, err)
	assert.Equal(t, &models.Profile{
		ID: "u1", Email: "sam@example.com", FullName: "Sam Rep",
		Role: models.RoleCompanyAdmin, RoleLabel: "Company Admin", CompanyID: "7",
	}, p)

	_, err = repo.GetProfile(context.Background(), "missing", "")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetProfile(context.Background(), " ", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetProfile_LegacyNameColumn(t *testing.T) {
	mem := storetest.NewMemory()
	mem.Seed(store.TableUsers, store.Row{"id": "u1", "name": "Sam Legacy", "role": "exhibitor"})

	p, err := newRepo(mem).GetProfile(context.Background(), "u1", "")
	require.NoError(t, err)
	assert.Equal(t, "Sam Legacy", p.FullName)

	calls := mem.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "*", calls[0].Query.Columns)
}

func TestUpdateFullName(t *testing.T) {
	mem := storetest.NewMemory()
	mem.Seed(store.TableUsers, store.Row{"id": "u1", "full_name": "Sam", "role": "exhibitor"})
	repo := newRepo(mem)

	_, err := repo.UpdateFullName(context.Background(), "u1", "", "   ")
	assert.ErrorIs(t, err, ErrFullNameRequired)
	assert.Zero(t, mem.CountCalls("update", store.TableUsers))

	p, err := repo.UpdateFullName(context.Background(), "u1", "", "  Samantha Rep ")
	require.NoError(t, err)
	assert.Equal(t, "Samantha Rep", p.FullName)
	assert.Equal(t, "Exhibitor", p.RoleLabel)
	assert.Equal(t, "Samantha Rep", mem.Rows(store.TableUsers)[0]["full_name"])
}

func TestUpdateFullName_LegacyNameColumn(t *testing.T) {
	mem := storetest.NewMemory()
	mem.Seed(store.TableUsers, store.Row{"id": "u1", "name": "Sam"})
	mem.Restrict(store.TableUsers, "name")
	p, err := newRepo(mem).UpdateFullName(context.Background(), "u1", "", "Sam R")
	require.NoError(t, err)
	assert.Equal(t, "Sam R", p.FullName)
	assert.Equal(t, "Member", p.RoleLabel)
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mem := storetest.NewMemory()
	mem.Seed(store.TableUsers, store.Row{"id": "u1", "full_name": "Sam", "role": "platform_admin"})
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(middleware.ContextUserID, "u1"); c.Next() })
	h := NewHandler(newRepo(mem), nil)
	r.GET("/profile", h.Get)
	r.PATCH("/profile", h.Update)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/profile", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role_label":"Platform Admin"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/profile", bytes.NewBufferString(`{"full_name":""}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Full name is required.")

	mem.FailNext("update", store.TableUsers, &store.Error{Message: "boom"})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/profile", bytes.NewBufferString(`{"full_name":"Sam"}`)))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
