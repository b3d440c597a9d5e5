// internal/models/property.go
package models

// PropertyPage is a page of property listings plus the upstream-declared total.
// Property objects are passed through untouched; the gateway only guarantees
// the envelope shape.
type PropertyPage struct {
	Items []map[string]interface{} `json:"items"`
	Total int                      `json:"total"`
}

// PropertyFilter carries the admin listing filters forwarded upstream.
type PropertyFilter struct {
	Location string
	MinPrice *float64
	MaxPrice *float64
	Status   string
	Search   string
	Offset   int
	Limit    int
}
