// internal/upstream/plans.go
package upstream

import "fmt"

// VerifyTokenPlan checks a bearer token against the user-management service.
// Deployments disagree on how the verify endpoint wants the token, so every
// known shape is tried: JSON body, form body, Authorization header, then
// query parameters.
func VerifyTokenPlan() Plan {
	return Plan{
		Name: "verify_token",
		Candidates: []Candidate{
			{Method: "POST", Path: "/auth/verify", Encoding: EncodeJSON, Fields: map[string]string{"token": "token"}},
			{Method: "POST", Path: "/auth/verify", Encoding: EncodeForm, Fields: map[string]string{"token": "token"}},
			{Method: "GET", Path: "/auth/verify", Encoding: EncodeBearer, Fields: map[string]string{"token": "token"}},
			{Method: "GET", Path: "/auth/verify", Encoding: EncodeQuery, Fields: map[string]string{"token": "token"}},
			{Method: "GET", Path: "/auth/verify", Encoding: EncodeQuery, Fields: map[string]string{"access_token": "token"}},
		},
	}
}

// LoginPlan proxies credential login. JSON with email/password first, then
// JSON with username/password, then an OAuth2-style form grant.
func LoginPlan() Plan {
	return Plan{
		Name: "login",
		Candidates: []Candidate{
			{Method: "POST", Path: "/auth/login", Encoding: EncodeJSON, Fields: map[string]string{"email": "email", "password": "password"}},
			{Method: "POST", Path: "/auth/login", Encoding: EncodeJSON, Fields: map[string]string{"username": "email", "password": "password"}},
			{Method: "POST", Path: "/auth/login", Encoding: EncodeForm,
				Fields: map[string]string{"username": "email", "password": "password"},
				Static: map[string]string{"grant_type": "password"}},
		},
	}
}

// UpdateUserPlan edits a user record. Admin PUT first, then admin PATCH,
// then the public user path.
func UpdateUserPlan(userID string) Plan {
	adminPath := fmt.Sprintf("/admin/users/%s", userID)
	publicPath := fmt.Sprintf("/users/%s", userID)
	return Plan{
		Name: "update_user",
		Candidates: []Candidate{
			{Method: "PUT", Path: adminPath, Encoding: EncodeJSON},
			{Method: "PATCH", Path: adminPath, Encoding: EncodeJSON},
			{Method: "PUT", Path: publicPath, Encoding: EncodeJSON},
		},
	}
}
