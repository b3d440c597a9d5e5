// internal/normalize/user_test.go
package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserIDAliasResolution(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]interface{}
		want string
	}{
		{"id wins over everything", map[string]interface{}{"id": "a", "_id": "b", "sub": "c"}, "a"},
		{"mongo style _id", map[string]interface{}{"_id": "b", "uid": "e"}, "b"},
		{"user_id", map[string]interface{}{"user_id": "c"}, "c"},
		{"jwt sub fallback", map[string]interface{}{"sub": "d", "email": "x@y.z"}, "d"},
		{"uid last", map[string]interface{}{"uid": "e"}, "e"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, ok := User(tt.raw).(map[string]interface{})
			require.True(t, ok)
			assert.Equal(t, tt.want, obj["id"])
		})
	}
}

func TestUserPhoneDecoding(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"hex escaped with embedded space", `\x2b32353120393131`, "+251911"},
		{"malformed hex returned as-is", `\x2b3235312039313z`, `\x2b3235312039313z`},
		{"plain number spaces stripped", "+251 91 123 4567", "+251911234567"},
		{"already clean", "+251911234567", "+251911234567"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, ok := User(map[string]interface{}{"id": "u", "phone": tt.in}).(map[string]interface{})
			require.True(t, ok)
			assert.Equal(t, tt.want, obj["phone"])
		})
	}
}

func TestUserPhoneNumberAlias(t *testing.T) {
	obj, ok := User(map[string]interface{}{"id": "u", "phone_number": "+251 911"}).(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "+251911", obj["phone"])
}

func TestUserDefaults(t *testing.T) {
	before := time.Now().UTC()
	obj, ok := User(map[string]interface{}{"id": "u", "Role": "ignored"}).(map[string]interface{})
	require.True(t, ok)

	assert.Equal(t, false, obj["is_active"])

	created, ok := obj["created_at"].(string)
	require.True(t, ok)
	ts, err := time.Parse(time.RFC3339, created)
	require.NoError(t, err)
	assert.WithinDuration(t, before, ts, 5*time.Second)
}

func TestUserActiveAliases(t *testing.T) {
	for _, key := range []string{"is_active", "active", "enabled"} {
		obj, ok := User(map[string]interface{}{"id": "u", key: true}).(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, true, obj["is_active"], key)
	}
}

func TestUserCreatedAtAliases(t *testing.T) {
	for _, key := range []string{"createdAt", "created", "date_joined", "joined_at", "registered_at", "created_on"} {
		obj, ok := User(map[string]interface{}{"id": "u", key: "2024-01-01T00:00:00Z"}).(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "2024-01-01T00:00:00Z", obj["created_at"], key)
	}
}

func TestUserRoleLowercased(t *testing.T) {
	obj, ok := User(map[string]interface{}{"id": "u", "role": "ADMIN"}).(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "admin", obj["role"])
}

func TestUserPassThroughForNonObjects(t *testing.T) {
	assert.Equal(t, "hello", User("hello"))
	assert.Equal(t, 42.0, User(42.0))
	assert.Nil(t, User(nil))
	list := []interface{}{"a"}
	assert.Equal(t, list, User(list))
}

func TestUserIdempotent(t *testing.T) {
	raw := map[string]interface{}{
		"sub":         "u-9",
		"phone":       `\x2b32353120393131`,
		"role":        "Admin",
		"enabled":     true,
		"date_joined": "2023-06-01T10:00:00Z",
	}
	once := User(raw)
	twice := User(once)
	assert.Equal(t, once, twice)
}

func TestUserRecord(t *testing.T) {
	u := UserRecord(map[string]interface{}{
		"user_id":   "u-1",
		"email":     "a@b.c",
		"role":      "Admin",
		"active":    true,
		"createdAt": "2024-02-02T00:00:00Z",
	})
	assert.Equal(t, "u-1", u.ID)
	assert.Equal(t, "a@b.c", u.Email)
	assert.Equal(t, "admin", u.Role)
	assert.True(t, u.IsActive)
	assert.Equal(t, "2024-02-02T00:00:00Z", u.CreatedAt)
}

func TestUsersUnwrapping(t *testing.T) {
	single := map[string]interface{}{"id": "u1"}

	tests := []struct {
		name    string
		payload interface{}
		wantLen int
	}{
		{"data envelope", map[string]interface{}{"data": []interface{}{single, single}}, 2},
		{"results envelope", map[string]interface{}{"results": []interface{}{single}}, 1},
		{"items envelope", map[string]interface{}{"items": []interface{}{single}}, 1},
		{"bare list", []interface{}{single, single, single}, 3},
		{"single object", single, 1},
		{"scalar", "nope", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, Users(tt.payload), tt.wantLen)
		})
	}
}
