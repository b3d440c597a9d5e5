// internal/normalize/user.go

// Package normalize converts the upstreams' heterogeneous JSON shapes into
// the gateway's canonical records. Every function here is best-effort and
// total: missing fields degrade to documented defaults, never errors.
package normalize

import (
	"encoding/hex"
	"strings"
	"time"

	"admin-gateway/internal/models"
)

// Alias chains, in resolution order. Order is fixed: resolution must never
// depend on map iteration order.
var (
	idAliases        = []string{"id", "_id", "user_id", "sub", "uid"}
	phoneAliases     = []string{"phone", "phone_number"}
	activeAliases    = []string{"is_active", "active", "enabled"}
	createdAtAliases = []string{"created_at", "createdAt", "created", "date_joined", "joined_at", "registered_at", "created_on"}
)

// hexEscapeMarker prefixes phone values that arrive as hex-escaped byte
// strings from the user-management service's export path.
const hexEscapeMarker = `\x`

// User canonicalizes one upstream user object. Non-objects pass through
// untouched. Idempotent: normalizing an already-normalized record is a no-op.
func User(raw interface{}) interface{} {
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return raw
	}

	out := make(map[string]interface{}, len(obj)+2)
	for k, v := range obj {
		out[k] = v
	}

	if id, ok := firstString(obj, idAliases); ok {
		out["id"] = id
	}

	if phone, ok := firstString(obj, phoneAliases); ok {
		out["phone"] = decodePhone(phone)
	}

	if role, ok := out["role"].(string); ok {
		out["role"] = strings.ToLower(role)
	}

	out["is_active"] = firstBool(obj, activeAliases)

	if created, ok := firstString(obj, createdAtAliases); ok {
		out["created_at"] = created
	} else {
		out["created_at"] = time.Now().UTC().Format(time.RFC3339)
	}

	return out
}

// UserRecord is the typed view of a normalized user object.
func UserRecord(raw interface{}) models.User {
	obj, _ := User(raw).(map[string]interface{})
	u := models.User{}
	if obj == nil {
		return u
	}
	u.ID, _ = obj["id"].(string)
	u.Email, _ = obj["email"].(string)
	u.Phone, _ = obj["phone"].(string)
	u.Role, _ = obj["role"].(string)
	u.IsActive, _ = obj["is_active"].(bool)
	u.CreatedAt, _ = obj["created_at"].(string)
	return u
}

// Users unwraps a list of user objects from the usual envelopes ({data},
// {results}, {items}, bare list, single object) and normalizes each entry.
func Users(payload interface{}) []map[string]interface{} {
	items := unwrapList(payload)
	out := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		if obj, ok := User(item).(map[string]interface{}); ok {
			out = append(out, obj)
		}
	}
	return out
}

// decodePhone handles the user-management export quirk of hex-escaped phone
// strings. A value starting with the escape marker is stripped of markers and
// hex-decoded; bytes that are not valid UTF-8 are dropped. Malformed hex
// falls back to the original string. Spaces are always removed.
func decodePhone(phone string) string {
	decoded := phone
	if strings.HasPrefix(phone, hexEscapeMarker) {
		hexStr := strings.ReplaceAll(phone, hexEscapeMarker, "")
		if b, err := hex.DecodeString(hexStr); err == nil {
			decoded = strings.ToValidUTF8(string(b), "")
		}
	}
	return strings.ReplaceAll(decoded, " ", "")
}

func firstString(obj map[string]interface{}, aliases []string) (string, bool) {
	for _, key := range aliases {
		if v, ok := obj[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}

func firstBool(obj map[string]interface{}, aliases []string) bool {
	for _, key := range aliases {
		if v, ok := obj[key]; ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
	}
	return false
}

func unwrapList(payload interface{}) []interface{} {
	switch v := payload.(type) {
	case []interface{}:
		return v
	case map[string]interface{}:
		for _, key := range listAliases {
			if raw, ok := v[key]; ok {
				list, _ := raw.([]interface{})
				return list
			}
		}
		// A single object counts as a one-element list.
		return []interface{}{v}
	}
	return nil
}
