// internal/admin/validation.go
package admin

import (
	"strings"

	errs "admin-gateway/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

// Schema for the admin user-update payload. The gateway rejects unknown
// fields before dispatching: the update plan falls through several upstream
// paths and an unvalidated payload could succeed against the wrong one.
const userUpdateSchemaJSON = `{
	"type": "object",
	"minProperties": 1,
	"additionalProperties": false,
	"properties": {
		"email":      {"type": "string", "minLength": 3},
		"phone":      {"type": "string"},
		"full_name":  {"type": "string"},
		"first_name": {"type": "string"},
		"last_name":  {"type": "string"},
		"role":       {"type": "string", "enum": ["admin", "agent", "customer"]},
		"is_active":  {"type": "boolean"}
	}
}`

var userUpdateSchema = gojsonschema.NewStringLoader(userUpdateSchemaJSON)

// ValidateUserUpdate checks an update payload against the schema.
func ValidateUserUpdate(payload map[string]interface{}) error {
	result, err := gojsonschema.Validate(userUpdateSchema, gojsonschema.NewGoLoader(payload))
	if err != nil {
		return errs.NewValidationFailed(err.Error())
	}
	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		details = append(details, e.String())
	}
	return errs.NewValidationFailed(strings.Join(details, "; "))
}
