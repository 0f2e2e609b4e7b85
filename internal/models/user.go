package models

// Role is a user's platform role.
type Role string

const (
	RolePlatformAdmin Role = "platform_admin"
	RoleCompanyAdmin  Role = "company_admin"
	RoleExhibitor     Role = "exhibitor"
)

// Label returns the display name of r.
func (r Role) Label() string {
	switch r {
	case RolePlatformAdmin:
		return "Platform Admin"
	case RoleCompanyAdmin:
		return "Company Admin"
	case RoleExhibitor:
		return "Exhibitor"
	default:
		return "Member"
	}
}

// Profile is the signed-in user's profile row.
type Profile struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	FullName  string `json:"full_name"`
	Role      Role   `json:"role"`
	RoleLabel string `json:"role_label"`
	CompanyID string `json:"company_id"`
}
