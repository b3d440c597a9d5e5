// internal/aggregate/health.go

// Package aggregate fans probes out across every configured upstream and
// reduces the per-service outcomes into single report structures. A failure
// against one service never aborts the aggregation; each outcome is isolated
// and reported individually.
package aggregate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"admin-gateway/internal/common/config"
	"admin-gateway/internal/common/database"
	chttp "admin-gateway/internal/common/http"
	"admin-gateway/internal/common/logger"
	"admin-gateway/internal/common/metrics"
	"admin-gateway/internal/models"
	"admin-gateway/internal/upstream"
)

const (
	healthCacheKey = "health:services"
	healthCacheTTL = 300 * time.Second
	probeTimeout   = 10 * time.Second

	// Non-JSON health bodies are truncated to keep HTML error pages out of
	// the report.
	textSnippetLimit = 200

	maxProbeBody = 64 << 10
)

// HealthAggregator probes every configured upstream and caches the reduced
// report.
type HealthAggregator struct {
	client    *chttp.Client
	cache     *database.RedisClient
	log       logger.Logger
	endpoints []upstream.Endpoint
	optional  map[string]bool
}

// NewHealthAggregator builds an aggregator over the given endpoints.
// Endpoints keep their order in the report. optional marks services whose
// unavailability must not degrade overall status.
func NewHealthAggregator(client *chttp.Client, cache *database.RedisClient, log logger.Logger, endpoints []upstream.Endpoint, optional map[string]bool) *HealthAggregator {
	if optional == nil {
		optional = map[string]bool{}
	}
	return &HealthAggregator{
		client:    client,
		cache:     cache,
		log:       log,
		endpoints: endpoints,
		optional:  optional,
	}
}

// Report probes all services concurrently and reduces the outcomes. The
// non-verbose report is served from cache within the TTL. Verbose always
// recomputes, records every attempted URL, and leaves the cached snapshot
// untouched.
func (a *HealthAggregator) Report(ctx context.Context, verbose bool) *models.HealthReport {
	if !verbose && a.cache != nil {
		if raw, err := a.cache.Get(ctx, healthCacheKey); err == nil {
			var cached models.HealthReport
			if err := json.Unmarshal([]byte(raw), &cached); err != nil {
				a.log.Warn("discarding unreadable cached health report", map[string]interface{}{"error": err.Error()})
			} else {
				return &cached
			}
		}
	}

	results := make([]models.ServiceHealth, len(a.endpoints))
	var wg sync.WaitGroup
	for i, ep := range a.endpoints {
		wg.Add(1)
		go func(i int, ep upstream.Endpoint) {
			defer wg.Done()
			results[i] = a.probe(ctx, ep, verbose)
		}(i, ep)
	}
	wg.Wait()

	report := reduce(results)

	if !verbose && a.cache != nil {
		if data, err := json.Marshal(report); err == nil {
			if err := a.cache.Set(ctx, healthCacheKey, data, healthCacheTTL); err != nil {
				a.log.Warn("failed to cache health report", map[string]interface{}{"error": err.Error()})
			}
		}
	}

	return report
}

func (a *HealthAggregator) probe(ctx context.Context, ep upstream.Endpoint, verbose bool) models.ServiceHealth {
	start := time.Now()
	defer func() {
		metrics.ProbeDuration.WithLabelValues(ep.Name()).Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	targets := []string{ep.Base() + "/health"}
	if ep.Versioned() {
		// Operators sometimes expose /health only at the unversioned root.
		targets = append(targets, ep.Root()+"/health")
	}
	if ep.Name() == config.ServiceAIRecommendation {
		// The recommendation service exposes no health path at all; any
		// non-error answer from its base counts as reachable.
		targets = append(targets, ep.Base())
		if ep.Versioned() {
			targets = append(targets, ep.Root())
		}
	}

	sh := models.ServiceHealth{Service: ep.Name(), Optional: a.optional[ep.Name()]}
	var lastErr error

	for _, url := range targets {
		if verbose {
			sh.Attempted = append(sh.Attempted, url)
		}

		status, data, err := a.get(ctx, url)
		if err != nil {
			lastErr = err
			a.log.Warn("health probe failed", map[string]interface{}{
				"service": ep.Name(),
				"url":     url,
				"error":   err.Error(),
			})
			continue
		}

		code := status
		sh.StatusCode = &code
		sh.Data = data
		if status < 400 {
			break
		}
	}

	if sh.StatusCode == nil && lastErr != nil {
		sh.Error = classifyTransportError(lastErr)
	}

	if sh.Healthy() {
		metrics.ServiceUp.WithLabelValues(ep.Name()).Set(1)
	} else {
		metrics.ServiceUp.WithLabelValues(ep.Name()).Set(0)
	}

	return sh
}

func (a *HealthAggregator) get(ctx context.Context, url string) (int, map[string]interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
	return resp.StatusCode, capturePayload(body), nil
}

// capturePayload keeps JSON objects as-is, wraps other JSON values under a
// message key, and truncates non-JSON bodies to a text snippet.
func capturePayload(body []byte) map[string]interface{} {
	if len(body) == 0 {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(body, &v); err == nil {
		if obj, ok := v.(map[string]interface{}); ok {
			return obj
		}
		return map[string]interface{}{"message": v}
	}
	text := string(body)
	if len(text) > textSnippetLimit {
		text = text[:textSnippetLimit]
	}
	return map[string]interface{}{"message": text}
}

func classifyTransportError(err error) *models.ServiceError {
	kind := models.ErrKindOther

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = models.ErrKindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = models.ErrKindTimeout
	default:
		var opErr *net.OpError
		if errors.As(err, &opErr) {
			kind = models.ErrKindConnection
		}
	}

	return &models.ServiceError{Kind: kind, Message: err.Error()}
}

func reduce(results []models.ServiceHealth) *models.HealthReport {
	report := &models.HealthReport{
		Services:  make(map[string]models.ServiceHealth, len(results)),
		CheckedAt: time.Now().UTC().Format(time.RFC3339),
	}

	for _, sh := range results {
		report.Services[sh.Service] = sh
		if sh.Optional {
			report.Summary.Ignored++
			continue
		}
		report.Summary.Total++
		if sh.Healthy() {
			report.Summary.Healthy++
		} else {
			report.Summary.Errors++
		}
	}

	switch {
	case report.Summary.Errors == 0:
		report.Status = models.StatusOK
	case report.Summary.Healthy == 0:
		report.Status = models.StatusDown
	default:
		report.Status = models.StatusDegraded
	}

	return report
}
