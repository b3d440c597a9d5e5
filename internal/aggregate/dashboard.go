// internal/aggregate/dashboard.go
package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"sync"
	"time"

	"admin-gateway/internal/common/config"
	chttp "admin-gateway/internal/common/http"
	"admin-gateway/internal/common/logger"
	"admin-gateway/internal/models"
	"admin-gateway/internal/normalize"
	"admin-gateway/internal/upstream"
)

// pageCap bounds last-resort page fetches; figures derived from a capped page
// are approximations when the upstream declares more items.
const pageCap = normalize.TallyCap

// Header names upstreams use to declare list totals.
var countHeaders = []string{"X-Total-Count", "X-Total", "Total-Count"}

// Text metric fallback for payment services exposing exporter-style output.
var paymentsTotalRe = regexp.MustCompile(`payments_total\s+(\d+)`)

// Dashboard reduces counts and breakdowns across the upstreams into one
// summary. The four sub-fetches run concurrently and independently: a failed
// fetch contributes a zero figure and never aborts the others.
type Dashboard struct {
	client    *chttp.Client
	log       logger.Logger
	health    *HealthAggregator
	endpoints map[string]upstream.Endpoint
	tokens    map[string]string
}

func NewDashboard(client *chttp.Client, log logger.Logger, health *HealthAggregator, endpoints map[string]upstream.Endpoint, tokens map[string]string) *Dashboard {
	if tokens == nil {
		tokens = map[string]string{}
	}
	return &Dashboard{
		client:    client,
		log:       log,
		health:    health,
		endpoints: endpoints,
		tokens:    tokens,
	}
}

// Totals recomputes the dashboard summary. Never returns an error: individual
// failures degrade their own figure to zero.
func (d *Dashboard) Totals(ctx context.Context) *models.DashboardTotals {
	totals := &models.DashboardTotals{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}

	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		totals.TotalUsers = d.safeCount("users", d.userCount)(ctx)
	}()
	go func() {
		defer wg.Done()
		count, byType, approx := d.propertyMetrics(ctx)
		totals.TotalProperties = count
		totals.PropertiesByType = byType
		totals.Approximate = approx
	}()
	go func() {
		defer wg.Done()
		totals.TotalPayments = d.safeCount("payments", d.paymentsTotal)(ctx)
	}()
	go func() {
		defer wg.Done()
		report := d.health.Report(ctx, false)
		totals.ServicesTotal = report.Summary.Total
		totals.ServicesHealthy = report.Summary.Healthy
	}()

	wg.Wait()
	return totals
}

// safeCount wraps a sub-fetch so a panic or error degrades to zero.
func (d *Dashboard) safeCount(name string, fetch func(context.Context) (int, error)) func(context.Context) int {
	return func(ctx context.Context) (n int) {
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("dashboard sub-fetch panicked", map[string]interface{}{"figure": name, "panic": fmt.Sprint(r)})
				n = 0
			}
		}()
		n, err := fetch(ctx)
		if err != nil {
			d.log.Warn("dashboard sub-fetch failed", map[string]interface{}{"figure": name, "error": err.Error()})
			return 0
		}
		return n
	}
}

// userCount tries dedicated count endpoints, then total-count headers via a
// HEAD and a limit-1 GET, then a bounded first page.
func (d *Dashboard) userCount(ctx context.Context) (int, error) {
	ep, ok := d.endpoints[config.ServiceUserManagement]
	if !ok {
		return 0, fmt.Errorf("user_management endpoint not configured")
	}
	token := d.tokens[config.ServiceUserManagement]

	for _, path := range []string{"/admin/users/count", "/users/count"} {
		payload, _, status, err := d.fetch(ctx, http.MethodGet, ep.URL(path), token)
		if err != nil || status >= 400 {
			continue
		}
		if n, ok := normalize.Count(payload); ok {
			return n, nil
		}
	}

	// Header probing: HEAD first, then a limit-1 GET whose headers or body
	// may carry the total.
	if n, ok := d.headerCount(ctx, http.MethodHead, ep.URL("/admin/users"), token); ok {
		return n, nil
	}
	payload, header, status, err := d.fetch(ctx, http.MethodGet, ep.URL("/admin/users?limit=1"), token)
	if err == nil && status < 400 {
		if n, ok := totalFromHeader(header); ok {
			return n, nil
		}
		if n, ok := normalize.Count(payload); ok && n > 1 {
			return n, nil
		}
	}

	// Bounded first page as last resort.
	payload, _, status, err = d.fetch(ctx, http.MethodGet, fmt.Sprintf("%s?skip=0&limit=%d", ep.URL("/admin/users"), pageCap), token)
	if err != nil {
		return 0, err
	}
	if status >= 400 {
		return 0, fmt.Errorf("user page fetch returned %d", status)
	}
	if n, ok := normalize.Count(payload); ok {
		return n, nil
	}
	return 0, nil
}

// propertyMetrics extracts the property total and type breakdown, falling
// back to a capped page tally when the metrics payload is missing.
func (d *Dashboard) propertyMetrics(ctx context.Context) (int, map[string]int, bool) {
	ep, ok := d.endpoints[config.ServicePropertyListing]
	if !ok {
		return 0, nil, false
	}
	token := d.tokens[config.ServicePropertyListing]

	for _, path := range []string{"/properties/metrics", "/properties/stats", "/admin/properties/metrics"} {
		payload, _, status, err := d.fetch(ctx, http.MethodGet, ep.URL(path), token)
		if err != nil || status >= 400 {
			continue
		}
		count, countOK := normalize.Count(payload)
		byType, typeOK := normalize.Breakdown(payload, "by_type", "types", "breakdown", "property_types")
		if countOK || typeOK {
			return count, byType, false
		}
	}

	payload, _, status, err := d.fetch(ctx, http.MethodGet, fmt.Sprintf("%s?limit=%d", ep.URL("/properties"), pageCap), token)
	if err != nil || status >= 400 {
		if err != nil {
			d.log.Warn("property page fetch failed", map[string]interface{}{"error": err.Error()})
		}
		return 0, nil, false
	}

	items := normalize.Items(payload)
	count, countOK := normalize.Count(payload)
	if !countOK {
		count = len(items)
	}
	byType := normalize.Tally(items, "property_type", "type")
	if len(byType) == 0 {
		byType = nil
	}
	// The tally undercounts when the declared total exceeds the page cap.
	approximate := count > pageCap
	return count, byType, approximate
}

// paymentsTotal tries numeric fields on the payment metrics payload, then an
// exporter-style text scan.
func (d *Dashboard) paymentsTotal(ctx context.Context) (int, error) {
	ep, ok := d.endpoints[config.ServicePaymentProcessing]
	if !ok {
		return 0, fmt.Errorf("payment_processing endpoint not configured")
	}
	token := d.tokens[config.ServicePaymentProcessing]

	// Exporter-style metrics live at the bare base, outside the version
	// prefix, with a root fallback on versioned bases.
	targets := []string{
		ep.URL("/payments/metrics"),
		ep.Base() + "/metrics",
	}
	if ep.Versioned() {
		targets = append(targets, ep.RootURL("/metrics"))
	}
	targets = append(targets, ep.URL("/payments/stats"))

	for _, target := range targets {
		raw, _, status, err := d.fetchRaw(ctx, http.MethodGet, target, token)
		if err != nil || status >= 400 {
			continue
		}

		var payload interface{}
		if err := json.Unmarshal(raw, &payload); err == nil {
			if obj, ok := payload.(map[string]interface{}); ok {
				for _, key := range []string{"payments_total", "total_payments", "total", "count"} {
					if v, ok := obj[key]; ok {
						if n, ok := asNumeric(v); ok {
							return n, nil
						}
					}
				}
			}
			if n, ok := normalize.Count(payload); ok {
				return n, nil
			}
			continue
		}

		if m := paymentsTotalRe.FindSubmatch(raw); m != nil {
			if n, err := strconv.Atoi(string(m[1])); err == nil {
				return n, nil
			}
		}
	}
	return 0, nil
}

func (d *Dashboard) headerCount(ctx context.Context, method, url, token string) (int, bool) {
	_, header, status, err := d.fetch(ctx, method, url, token)
	if err != nil || status >= 400 {
		return 0, false
	}
	return totalFromHeader(header)
}

func totalFromHeader(header http.Header) (int, bool) {
	for _, name := range countHeaders {
		if v := header.Get(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

func (d *Dashboard) fetch(ctx context.Context, method, url, token string) (interface{}, http.Header, int, error) {
	raw, header, status, err := d.fetchRaw(ctx, method, url, token)
	if err != nil {
		return nil, nil, 0, err
	}
	var payload interface{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &payload)
	}
	return payload, header, status, nil
}

func (d *Dashboard) fetchRaw(ctx context.Context, method, url, token string) ([]byte, http.Header, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
	if err != nil {
		return nil, nil, 0, err
	}
	return body, resp.Header, resp.StatusCode, nil
}

func asNumeric(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}
