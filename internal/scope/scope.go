// Package scope decides which lead records a request may see or modify.
package scope

import (
	"strings"

	"github.com/boothlead/backend/internal/models"
	"github.com/boothlead/backend/internal/store"
	"github.com/boothlead/backend/pkg/normalize"
)

// Roles known to the backend.
const (
	RolePlatformAdmin = string(models.RolePlatformAdmin)
	RoleCompanyAdmin  = string(models.RoleCompanyAdmin)
	RoleExhibitor     = string(models.RoleExhibitor)
)

// CompanyColumn is the tenant column every scoped query filters on.
const CompanyColumn = "company_id"

// CompanyScope is the request-time authority of the caller. It is computed
// per request and never cached.
type CompanyScope struct {
	Role            string `json:"role"`
	ActiveCompanyID string `json:"active_company_id"`
}

// IsUnscoped reports whether the role sees every company.
func (s CompanyScope) IsUnscoped() bool {
	return strings.TrimSpace(s.Role) == RolePlatformAdmin
}

// CompanyID returns the normalized active company id, or "".
func (s CompanyScope) CompanyID() string {
	return normalize.ID(s.ActiveCompanyID)
}

// HasQueryPermission reports whether any lead query may run under s.
func (s CompanyScope) HasQueryPermission() bool {
	return s.IsUnscoped() || s.CompanyID() != ""
}

// Apply returns q restricted to s. The boolean is false when s denies
// access; the query must then not be executed and the caller returns an
// empty result or a nil write outcome.
func Apply(q store.Query, s CompanyScope) (store.Query, bool) {
	if s.IsUnscoped() {
		return q, true
	}
	id := s.CompanyID()
	if id == "" {
		return store.Query{}, false
	}
	return q.Eq(CompanyColumn, id), true
}

// Allows reports whether a row owned by companyID is visible under s.
func (s CompanyScope) Allows(companyID string) bool {
	if s.IsUnscoped() {
		return true
	}
	id := s.CompanyID()
	return id != "" && id == normalize.ID(companyID)
}
