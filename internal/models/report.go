// internal/models/report.go
package models

// DashboardTotals is the reduced cross-service dashboard view. Each figure is
// computed independently; a failed sub-fetch leaves its figure at zero.
type DashboardTotals struct {
	TotalUsers       int            `json:"total_users"`
	TotalProperties  int            `json:"total_properties"`
	PropertiesByType map[string]int `json:"properties_by_type,omitempty"`
	Approximate      bool           `json:"approximate,omitempty"`
	TotalPayments    int            `json:"total_payments"`
	ServicesTotal    int            `json:"services_total"`
	ServicesHealthy  int            `json:"services_healthy"`
	GeneratedAt      string         `json:"generated_at"`
}

// UserReport is the generated admin user report.
type UserReport struct {
	Title         string `json:"title"`
	Language      string `json:"language"`
	TotalUsers    int    `json:"total_users"`
	NewUsersMonth int    `json:"new_users_month"`
	ActiveUsers   int    `json:"active_users"`
	GeneratedAt   string `json:"generated_at"`
}

// ExportResult describes where an exported report file ended up.
type ExportResult struct {
	URL      string `json:"url"`
	Uploaded bool   `json:"uploaded"`
}
