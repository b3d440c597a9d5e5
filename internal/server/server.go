// internal/server/server.go

// Package server is the thin routing layer over the gateway's components.
// Aggregation endpoints always answer 200 with partial data; single-target
// operations propagate the upstream's failure status.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"admin-gateway/internal/admin"
	"admin-gateway/internal/aggregate"
	"admin-gateway/internal/common/auth"
	errs "admin-gateway/internal/common/errors"
	"admin-gateway/internal/common/logger"
	"admin-gateway/internal/common/observability"
	"admin-gateway/internal/models"
	"admin-gateway/internal/reporting"
	"admin-gateway/internal/upstream"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	log        logger.Logger
	verifier   *auth.Verifier
	admin      *admin.Service
	health     *aggregate.HealthAggregator
	dashboard  *aggregate.Dashboard
	reporter   *reporting.Reporter
	dispatcher *upstream.Dispatcher
	users      upstream.Endpoint
	obs        *observability.Observability
	mux        *http.ServeMux
}

func New(log logger.Logger, verifier *auth.Verifier, adminSvc *admin.Service, health *aggregate.HealthAggregator, dashboard *aggregate.Dashboard, reporter *reporting.Reporter, dispatcher *upstream.Dispatcher, users upstream.Endpoint, obs *observability.Observability) *Server {
	s := &Server{
		log:        log,
		verifier:   verifier,
		admin:      adminSvc,
		health:     health,
		dashboard:  dashboard,
		reporter:   reporter,
		dispatcher: dispatcher,
		users:      users,
		obs:        obs,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleLiveness)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /auth/login", s.handleLogin)

	mux.HandleFunc("GET /api/v1/admin/users", s.requireAdmin(s.handleListUsers))
	mux.HandleFunc("GET /api/v1/admin/users/{id}", s.requireAdmin(s.handleGetUser))
	mux.HandleFunc("PUT /api/v1/admin/users/{id}", s.requireAdmin(s.handleUpdateUser))
	mux.HandleFunc("GET /api/v1/admin/properties", s.requireAdmin(s.handleListProperties))
	mux.HandleFunc("POST /api/v1/admin/properties/{id}/approve", s.requireAdmin(s.handleApproveProperty))
	mux.HandleFunc("GET /api/v1/admin/health", s.requireAdmin(s.handleHealth))
	mux.HandleFunc("GET /api/v1/admin/dashboard", s.requireAdmin(s.handleDashboard))
	mux.HandleFunc("GET /api/v1/admin/reports/users", s.requireAdmin(s.handleUserReport))
	mux.HandleFunc("GET /api/v1/admin/reports/users/export", s.requireAdmin(s.handleExportUserReport))

	s.mux = mux
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.withRequestLogging(s.mux)
}

type adminHandler func(w http.ResponseWriter, r *http.Request, adminUser models.User, token string)

// requireAdmin verifies the bearer token upstream and requires the admin
// role before invoking the handler.
func (s *Server) requireAdmin(next adminHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		adminUser, err := s.verifier.VerifyAdmin(r.Context(), token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		next(w, r, adminUser, token)
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLogin proxies credential login through the multi-candidate plan.
// Accepts JSON or form credentials from the dashboard frontend.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	email, password, ok := readCredentials(r)
	if !ok {
		s.writeError(w, r, errs.NewValidationFailed("email and password are required"))
		return
	}

	payload := map[string]interface{}{"email": email, "password": password}
	resp, err := s.dispatcher.Execute(r.Context(), s.users, upstream.LoginPlan(), payload, "")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	decoded, jsonErr := resp.JSON()
	if jsonErr != nil {
		// Some deployments answer with the raw token as text.
		s.writeJSON(w, http.StatusOK, map[string]string{
			"access_token": strings.TrimSpace(string(resp.Body)),
			"token_type":   "bearer",
		})
		return
	}
	s.writeJSON(w, http.StatusOK, decoded)
}

func readCredentials(r *http.Request) (string, string, bool) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		var body struct {
			Email    string `json:"email"`
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return "", "", false
		}
		email := body.Email
		if email == "" {
			email = body.Username
		}
		return email, body.Password, email != "" && body.Password != ""
	}

	if err := r.ParseForm(); err != nil {
		return "", "", false
	}
	email := r.PostForm.Get("email")
	if email == "" {
		email = r.PostForm.Get("username")
	}
	password := r.PostForm.Get("password")
	return email, password, email != "" && password != ""
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request, _ models.User, token string) {
	skip := intQuery(r, "skip", 0)
	limit := intQuery(r, "limit", 50)

	page, err := s.admin.ListUsers(r.Context(), token, skip, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request, _ models.User, token string) {
	obj, err := s.admin.GetUser(r.Context(), token, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, obj)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request, adminUser models.User, token string) {
	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, r, errs.NewValidationFailed("request body must be a JSON object"))
		return
	}

	obj, err := s.admin.UpdateUser(r.Context(), adminUser, token, r.PathValue("id"), payload)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, obj)
}

func (s *Server) handleListProperties(w http.ResponseWriter, r *http.Request, _ models.User, token string) {
	filter := models.PropertyFilter{
		Location: r.URL.Query().Get("location"),
		Status:   r.URL.Query().Get("status"),
		Search:   r.URL.Query().Get("search"),
		Offset:   intQuery(r, "skip", 0),
		Limit:    intQuery(r, "limit", 50),
	}
	if v := r.URL.Query().Get("min_price"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MinPrice = &f
		}
	}
	if v := r.URL.Query().Get("max_price"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MaxPrice = &f
		}
	}

	page, err := s.admin.ListProperties(r.Context(), token, filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleApproveProperty(w http.ResponseWriter, r *http.Request, adminUser models.User, token string) {
	obj, err := s.admin.ApproveProperty(r.Context(), adminUser, token, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, obj)
}

// handleHealth always answers 200: degradation is reported in the body, not
// the gateway's own status code.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ models.User, _ string) {
	verbose := boolQuery(r, "verbose")
	report := s.health.Report(r.Context(), verbose)
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, _ models.User, _ string) {
	totals := s.dashboard.Totals(r.Context())
	s.writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleUserReport(w http.ResponseWriter, r *http.Request, _ models.User, token string) {
	lang := r.URL.Query().Get("lang")
	report, err := s.reporter.UserReport(r.Context(), lang, token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleExportUserReport(w http.ResponseWriter, r *http.Request, _ models.User, token string) {
	lang := r.URL.Query().Get("lang")
	result, err := s.reporter.ExportUserReportCSV(r.Context(), lang, token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func intQuery(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}

func boolQuery(r *http.Request, key string) bool {
	v := r.URL.Query().Get(key)
	return v == "1" || strings.EqualFold(v, "true")
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to encode response", map[string]interface{}{"error": err.Error()})
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errs.HTTPStatus(err)

	body := map[string]interface{}{"error": err.Error()}
	if stdErr, ok := errs.AsStandard(err); ok {
		body = map[string]interface{}{
			"code":    stdErr.Code,
			"message": stdErr.Message,
			"details": stdErr.Details,
		}
	}

	s.log.Warn("request failed", map[string]interface{}{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": status,
		"error":  err.Error(),
	})
	s.writeJSON(w, status, body)
}
