// internal/reporting/reporting.go

// Package reporting generates the admin user report and exports it as CSV to
// the configured object storage.
package reporting

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"admin-gateway/internal/common/config"
	"admin-gateway/internal/common/database"
	chttp "admin-gateway/internal/common/http"
	"admin-gateway/internal/common/logger"
	"admin-gateway/internal/models"
	"admin-gateway/internal/normalize"
	"admin-gateway/internal/upstream"
)

const (
	reportCacheTTL = 3600 * time.Second
	reportPageSize = 1000
)

// Localized report titles.
var reportTitles = map[string]string{
	"en": "User Report",
	"am": "የተጠቃሚ መረጃ ሪፖርት",
}

type Reporter struct {
	client     *chttp.Client
	dispatcher *upstream.Dispatcher
	cache      *database.RedisClient
	users      upstream.Endpoint
	cfg        config.ReportsConfig
	log        logger.Logger
}

func NewReporter(client *chttp.Client, dispatcher *upstream.Dispatcher, cache *database.RedisClient, users upstream.Endpoint, cfg config.ReportsConfig, log logger.Logger) *Reporter {
	return &Reporter{
		client:     client,
		dispatcher: dispatcher,
		cache:      cache,
		users:      users,
		cfg:        cfg,
		log:        log,
	}
}

func reportCacheKey(lang string) string {
	return "report:users:" + lang
}

// UserReport computes the user report for the given language, serving a
// cached copy within the TTL. Unknown languages fall back to English.
func (r *Reporter) UserReport(ctx context.Context, lang, token string) (*models.UserReport, error) {
	if _, ok := reportTitles[lang]; !ok {
		lang = "en"
	}

	if r.cache != nil {
		if raw, err := r.cache.Get(ctx, reportCacheKey(lang)); err == nil {
			var cached models.UserReport
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return &cached, nil
			}
		}
	}

	users, err := r.fetchUsers(ctx, token)
	if err != nil {
		return nil, err
	}

	monthPrefix := time.Now().UTC().Format("2006-01")
	report := &models.UserReport{
		Title:       reportTitles[lang],
		Language:    lang,
		TotalUsers:  len(users),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
	for _, u := range users {
		if created, _ := u["created_at"].(string); strings.HasPrefix(created, monthPrefix) {
			report.NewUsersMonth++
		}
		if active, _ := u["is_active"].(bool); active {
			report.ActiveUsers++
		}
	}

	if r.cache != nil {
		if data, err := json.Marshal(report); err == nil {
			if err := r.cache.Set(ctx, reportCacheKey(lang), data, reportCacheTTL); err != nil {
				r.log.Warn("failed to cache user report", map[string]interface{}{"error": err.Error()})
			}
		}
	}

	return report, nil
}

func (r *Reporter) fetchUsers(ctx context.Context, token string) ([]map[string]interface{}, error) {
	plan := upstream.Plan{
		Name: "report_users",
		Candidates: []upstream.Candidate{
			{Method: "GET", Path: "/admin/users", Encoding: upstream.EncodeQuery},
			{Method: "GET", Path: "/users", Encoding: upstream.EncodeQuery},
		},
	}
	payload := map[string]interface{}{
		"skip":  "0",
		"limit": strconv.Itoa(reportPageSize),
	}

	resp, err := r.dispatcher.Execute(ctx, r.users, plan, payload, token)
	if err != nil {
		return nil, err
	}
	decoded, err := resp.JSON()
	if err != nil {
		return nil, err
	}
	return normalize.Users(decoded), nil
}

// ExportUserReportCSV renders the report as CSV and uploads it. When the
// storage endpoint is unreachable the CSV is returned inline as a data URI so
// the export never hard-fails after the report was computed.
func (r *Reporter) ExportUserReportCSV(ctx context.Context, lang, token string) (*models.ExportResult, error) {
	report, err := r.UserReport(ctx, lang, token)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	records := [][]string{
		{"metric", "value"},
		{"title", report.Title},
		{"total_users", strconv.Itoa(report.TotalUsers)},
		{"new_users_month", strconv.Itoa(report.NewUsersMonth)},
		{"active_users", strconv.Itoa(report.ActiveUsers)},
		{"generated_at", report.GeneratedAt},
	}
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("render csv: %w", err)
	}

	filename := fmt.Sprintf("users_%s.csv", report.Language)
	return r.upload(ctx, filename, buf.Bytes()), nil
}

func (r *Reporter) upload(ctx context.Context, filename string, data []byte) *models.ExportResult {
	if r.cfg.StorageURL == "" {
		return dataURIResult(data)
	}

	target := fmt.Sprintf("%s/storage/v1/object/reports/%s", strings.TrimRight(r.cfg.StorageURL, "/"), filename)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(data))
	if err != nil {
		return dataURIResult(data)
	}
	req.Header.Set("Content-Type", "text/csv")
	req.Header.Set("Authorization", "Bearer "+r.cfg.StorageKey)
	req.Header.Set("apikey", r.cfg.StorageKey)
	req.Header.Set("x-upsert", "true")

	resp, err := r.client.Do(req)
	if err != nil {
		r.log.Warn("report upload failed, falling back to inline export", map[string]interface{}{"error": err.Error()})
		return dataURIResult(data)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.log.Warn("report upload rejected", map[string]interface{}{"status": resp.StatusCode})
		return dataURIResult(data)
	}

	return &models.ExportResult{URL: r.resolveUploadURL(body, filename), Uploaded: true}
}

// resolveUploadURL extracts the object URL from the storage response, trying
// the known response keys before assuming the public path convention.
func (r *Reporter) resolveUploadURL(body []byte, filename string) string {
	var parsed map[string]interface{}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if u, ok := parsed["url"].(string); ok && u != "" {
			return u
		}
		if u, ok := parsed["publicURL"].(string); ok && u != "" {
			return u
		}
		if key, ok := parsed["Key"].(string); ok && key != "" {
			return fmt.Sprintf("%s/storage/v1/object/public/%s", strings.TrimRight(r.cfg.StorageURL, "/"), key)
		}
	}
	return fmt.Sprintf("%s/storage/v1/object/public/reports/%s", strings.TrimRight(r.cfg.StorageURL, "/"), filename)
}

func dataURIResult(data []byte) *models.ExportResult {
	return &models.ExportResult{
		URL:      "data:text/csv;base64," + base64.StdEncoding.EncodeToString(data),
		Uploaded: false,
	}
}
