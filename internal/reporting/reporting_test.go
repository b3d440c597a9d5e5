// internal/reporting/reporting_test.go
package reporting

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"admin-gateway/internal/common/config"
	"admin-gateway/internal/common/database"
	chttp "admin-gateway/internal/common/http"
	"admin-gateway/internal/common/logger"
	"admin-gateway/internal/upstream"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userFixture(created string, active bool) map[string]interface{} {
	return map[string]interface{}{"id": "u", "created_at": created, "is_active": active}
}

func usersHandler(hits *int32, users []interface{}) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/admin/users", func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"data": users})
	})
	return mux
}

func reporterFor(t *testing.T, handler http.Handler, cache *database.RedisClient, storage config.ReportsConfig) *Reporter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := chttp.NewClient(2 * time.Second)
	d := upstream.NewDispatcher(client, logger.NewTestLogger(t))
	ep := upstream.NewEndpoint("user_management", srv.URL)
	return NewReporter(client, d, cache, ep, storage, logger.NewTestLogger(t))
}

func redisCache(t *testing.T) *database.RedisClient {
	t.Helper()
	mr := miniredis.RunT(t)
	cache, err := database.NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestUserReportFigures(t *testing.T) {
	thisMonth := time.Now().UTC().Format("2006-01") + "-03T10:00:00Z"
	users := []interface{}{
		userFixture(thisMonth, true),
		userFixture(thisMonth, false),
		userFixture("2020-01-01T00:00:00Z", true),
	}
	r := reporterFor(t, usersHandler(nil, users), nil, config.ReportsConfig{})

	report, err := r.UserReport(context.Background(), "en", "tok")
	require.NoError(t, err)
	assert.Equal(t, 3, report.TotalUsers)
	assert.Equal(t, 2, report.NewUsersMonth)
	assert.Equal(t, 2, report.ActiveUsers)
	assert.Equal(t, "User Report", report.Title)
}

func TestUserReportLocalizedTitle(t *testing.T) {
	r := reporterFor(t, usersHandler(nil, nil), nil, config.ReportsConfig{})

	am, err := r.UserReport(context.Background(), "am", "tok")
	require.NoError(t, err)
	assert.Equal(t, "የተጠቃሚ መረጃ ሪፖርት", am.Title)
	assert.Equal(t, "am", am.Language)

	// Unknown languages fall back to English.
	other, err := r.UserReport(context.Background(), "fr", "tok")
	require.NoError(t, err)
	assert.Equal(t, "en", other.Language)
}

func TestUserReportCachedPerLanguage(t *testing.T) {
	var hits int32
	r := reporterFor(t, usersHandler(&hits, nil), redisCache(t), config.ReportsConfig{})

	_, err := r.UserReport(context.Background(), "en", "tok")
	require.NoError(t, err)
	_, err = r.UserReport(context.Background(), "en", "tok")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "second call must be served from cache")

	_, err = r.UserReport(context.Background(), "am", "tok")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits), "each language caches independently")
}

func TestExportUploadsCSV(t *testing.T) {
	var uploaded []byte
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/storage/v1/object/reports/users_en.csv", r.URL.Path)
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		assert.Equal(t, "key-1", r.Header.Get("apikey"))
		assert.Equal(t, "true", r.Header.Get("x-upsert"))

		body, _ := io.ReadAll(r.Body)
		uploaded = body

		json.NewEncoder(w).Encode(map[string]string{"Key": "reports/users_en.csv"})
	}))
	defer storage.Close()

	r := reporterFor(t, usersHandler(nil, []interface{}{userFixture("2020-01-01", true)}), nil, config.ReportsConfig{
		StorageURL: storage.URL,
		StorageKey: "key-1",
	})

	result, err := r.ExportUserReportCSV(context.Background(), "en", "tok")
	require.NoError(t, err)
	assert.True(t, result.Uploaded)
	assert.Equal(t, storage.URL+"/storage/v1/object/public/reports/users_en.csv", result.URL)
	assert.Contains(t, string(uploaded), "total_users,1")
}

func TestExportPrefersExplicitURL(t *testing.T) {
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"url": "https://cdn.example/users_en.csv"})
	}))
	defer storage.Close()

	r := reporterFor(t, usersHandler(nil, nil), nil, config.ReportsConfig{StorageURL: storage.URL})

	result, err := r.ExportUserReportCSV(context.Background(), "en", "tok")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/users_en.csv", result.URL)
}

func TestExportFallsBackToDataURI(t *testing.T) {
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	storage.Close()

	r := reporterFor(t, usersHandler(nil, nil), nil, config.ReportsConfig{StorageURL: storage.URL})

	result, err := r.ExportUserReportCSV(context.Background(), "en", "tok")
	require.NoError(t, err)
	assert.False(t, result.Uploaded)
	require.True(t, strings.HasPrefix(result.URL, "data:text/csv;base64,"))

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(result.URL, "data:text/csv;base64,"))
	require.NoError(t, err)
	assert.Contains(t, string(decoded), "metric,value")
}
