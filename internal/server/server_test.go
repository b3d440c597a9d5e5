// internal/server/server_test.go
package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"admin-gateway/internal/admin"
	"admin-gateway/internal/aggregate"
	"admin-gateway/internal/common/auth"
	"admin-gateway/internal/common/config"
	chttp "admin-gateway/internal/common/http"
	"admin-gateway/internal/common/logger"
	"admin-gateway/internal/reporting"
	"admin-gateway/internal/upstream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// verifyHandler answers the first verify-plan candidate (POST JSON).
func verifyHandler(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&body)
	token, _ := body["token"].(string)

	switch token {
	case "admin-tok":
		json.NewEncoder(w).Encode(map[string]interface{}{
			"user": map[string]interface{}{"id": "admin-1", "role": "admin"},
		})
	case "agent-tok":
		json.NewEncoder(w).Encode(map[string]interface{}{
			"user": map[string]interface{}{"id": "u-2", "role": "agent"},
		})
	default:
		w.WriteHeader(401)
	}
}

// buildGateway wires a complete gateway over one fake upstream serving all
// six services.
func buildGateway(t *testing.T, mux *http.ServeMux) http.Handler {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	log := logger.NewTestLogger(t)
	client := chttp.NewClient(2 * time.Second)
	dispatcher := upstream.NewDispatcher(client, log)

	users := upstream.NewEndpoint(config.ServiceUserManagement, srv.URL)
	properties := upstream.NewEndpoint(config.ServicePropertyListing, srv.URL)

	verifier := auth.NewVerifier(dispatcher, users, log)
	auditLog := admin.NewAuditLog(nil, log)
	adminSvc := admin.NewService(dispatcher, users, properties, auditLog, log)

	health := aggregate.NewHealthAggregator(client, nil, log, []upstream.Endpoint{users, properties}, nil)
	dashboard := aggregate.NewDashboard(client, log, health, map[string]upstream.Endpoint{
		config.ServiceUserManagement:  users,
		config.ServicePropertyListing: properties,
	}, nil)
	reporter := reporting.NewReporter(client, dispatcher, nil, users, config.ReportsConfig{}, log)

	return New(log, verifier, adminSvc, health, dashboard, reporter, dispatcher, users, nil).Handler()
}

func doRequest(t *testing.T, h http.Handler, method, path, token string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func baseMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/verify", verifyHandler)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	return mux
}

func TestMissingTokenRejected(t *testing.T) {
	h := buildGateway(t, baseMux())
	rec := doRequest(t, h, "GET", "/api/v1/admin/users", "", "")
	assert.Equal(t, 401, rec.Code)
}

func TestNonAdminForbidden(t *testing.T) {
	h := buildGateway(t, baseMux())
	rec := doRequest(t, h, "GET", "/api/v1/admin/users", "agent-tok", "")
	assert.Equal(t, 403, rec.Code)
}

func TestListUsersEndpoint(t *testing.T) {
	mux := baseMux()
	mux.HandleFunc("/api/v1/admin/users", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data":  []interface{}{map[string]interface{}{"_id": "u1", "role": "ADMIN"}},
			"total": 1,
		})
	})

	h := buildGateway(t, mux)
	rec := doRequest(t, h, "GET", "/api/v1/admin/users", "admin-tok", "")
	require.Equal(t, 200, rec.Code)

	var page struct {
		Users []map[string]interface{} `json:"users"`
		Total int                      `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Users, 1)
	assert.Equal(t, "u1", page.Users[0]["id"])
	assert.Equal(t, "admin", page.Users[0]["role"])
}

func TestLoginProxyFallsThroughToFormGrant(t *testing.T) {
	mux := baseMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
			w.WriteHeader(415)
			return
		}
		_ = r.ParseForm()
		if r.PostForm.Get("grant_type") != "password" {
			w.WriteHeader(422)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": "jwt-1", "token_type": "bearer"})
	})

	h := buildGateway(t, mux)
	rec := doRequest(t, h, "POST", "/auth/login", "", `{"email":"a@b.c","password":"pw"}`)
	require.Equal(t, 200, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "jwt-1", body["access_token"])
}

func TestLoginWrapsNonJSONToken(t *testing.T) {
	mux := baseMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("raw-token-string"))
	})

	h := buildGateway(t, mux)
	rec := doRequest(t, h, "POST", "/auth/login", "", `{"email":"a@b.c","password":"pw"}`)
	require.Equal(t, 200, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "raw-token-string", body["access_token"])
	assert.Equal(t, "bearer", body["token_type"])
}

func TestLoginMissingCredentials(t *testing.T) {
	h := buildGateway(t, baseMux())
	rec := doRequest(t, h, "POST", "/auth/login", "", `{"email":"a@b.c"}`)
	assert.Equal(t, 422, rec.Code)
}

func TestUpdateUserValidationFailure(t *testing.T) {
	h := buildGateway(t, baseMux())
	rec := doRequest(t, h, "PUT", "/api/v1/admin/users/u1", "admin-tok", `{"password":"nope"}`)
	assert.Equal(t, 422, rec.Code)
}

func TestUpdateUserPropagatesUpstreamStatus(t *testing.T) {
	mux := baseMux()
	mux.HandleFunc("/api/v1/admin/users/u1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	})

	h := buildGateway(t, mux)
	rec := doRequest(t, h, "PUT", "/api/v1/admin/users/u1", "admin-tok", `{"role":"agent"}`)
	assert.Equal(t, 500, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "UPSTREAM_FAILED", body["code"])
}

func TestHealthEndpointAlways200(t *testing.T) {
	// No upstream /health handlers at all: everything is down, yet the
	// aggregation endpoint still answers 200 with a status body.
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/verify", verifyHandler)

	h := buildGateway(t, mux)
	rec := doRequest(t, h, "GET", "/api/v1/admin/health", "admin-tok", "")
	require.Equal(t, 200, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, []interface{}{"ok", "degraded", "down"}, body["status"])
}

func TestDashboardEndpointAlways200(t *testing.T) {
	h := buildGateway(t, baseMux())
	rec := doRequest(t, h, "GET", "/api/v1/admin/dashboard", "admin-tok", "")
	require.Equal(t, 200, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "total_users")
	assert.Contains(t, body, "services_total")
}

func TestUserReportEndpoint(t *testing.T) {
	mux := baseMux()
	mux.HandleFunc("/api/v1/admin/users", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []interface{}{
				map[string]interface{}{"id": "u1", "is_active": true, "created_at": "2020-01-01T00:00:00Z"},
			},
		})
	})

	h := buildGateway(t, mux)
	rec := doRequest(t, h, "GET", "/api/v1/admin/reports/users?lang=am", "admin-tok", "")
	require.Equal(t, 200, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "የተጠቃሚ መረጃ ሪፖርት", body["title"])
	assert.Equal(t, float64(1), body["total_users"])
}

func TestRequestIDHeader(t *testing.T) {
	h := buildGateway(t, baseMux())
	rec := doRequest(t, h, "GET", "/health", "", "")
	assert.Equal(t, 200, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
