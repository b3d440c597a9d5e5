// internal/models/user.go
package models

// User is the canonical admin-facing user shape, after normalization of the
// upstream user-management service's varying field names.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role,omitempty"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

// UserPage is a normalized page of users plus the upstream-declared total.
type UserPage struct {
	Users []map[string]interface{} `json:"users"`
	Total int                      `json:"total"`
}
