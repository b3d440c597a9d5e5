// internal/upstream/dispatch.go
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	errs "admin-gateway/internal/common/errors"
	chttp "admin-gateway/internal/common/http"
	"admin-gateway/internal/common/logger"
	"admin-gateway/internal/common/metrics"
)

// Encoding selects how a candidate carries the request payload.
type Encoding int

const (
	EncodeJSON Encoding = iota
	EncodeForm
	EncodeQuery
	EncodeBearer
)

func (e Encoding) String() string {
	switch e {
	case EncodeJSON:
		return "json"
	case EncodeForm:
		return "form"
	case EncodeQuery:
		return "query"
	case EncodeBearer:
		return "bearer"
	}
	return "unknown"
}

// Candidate is one request shape to try against an upstream.
//
// Fields maps wire key -> payload key, selecting and renaming payload values
// for this candidate; a nil Fields sends the whole payload under its own
// keys. Static entries are sent as-is.
type Candidate struct {
	Method   string
	Path     string
	Encoding Encoding
	Fields   map[string]string
	Static   map[string]string
}

// Plan is an ordered list of candidates for one logical operation.
// Order is significant: candidates are tried strictly in sequence.
type Plan struct {
	Name       string
	Candidates []Candidate
}

// Response is an accepted upstream response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// JSON decodes the response body.
func (r *Response) JSON() (interface{}, error) {
	var v interface{}
	if err := json.Unmarshal(r.Body, &v); err != nil {
		return nil, fmt.Errorf("upstream body is not JSON: %w", err)
	}
	return v, nil
}

// Statuses meaning "this candidate's shape was rejected, try the next one".
// Anything else outside 2xx aborts the plan: the shape matched but the
// operation itself failed.
var retryableStatus = map[int]bool{
	400: true,
	401: true,
	403: true,
	404: true,
	405: true,
	415: true,
	422: true,
}

// Dispatcher executes plans against upstream endpoints.
type Dispatcher struct {
	client *chttp.Client
	log    logger.Logger
}

func NewDispatcher(client *chttp.Client, log logger.Logger) *Dispatcher {
	return &Dispatcher{client: client, log: log}
}

// Execute tries each candidate in order against the endpoint. The first 2xx
// response wins. Retryable statuses and transport errors advance to the next
// candidate; any other status aborts the plan immediately.
func (d *Dispatcher) Execute(ctx context.Context, ep Endpoint, plan Plan, payload map[string]interface{}, auth string) (*Response, error) {
	resp, _, err := d.run(ctx, ep, plan, payload, auth)
	return resp, err
}

// ExecuteVerbose behaves like Execute but additionally returns every URL
// attempted. Opt-in only: the list exposes internal topology.
func (d *Dispatcher) ExecuteVerbose(ctx context.Context, ep Endpoint, plan Plan, payload map[string]interface{}, auth string) (*Response, []string, error) {
	return d.run(ctx, ep, plan, payload, auth)
}

func (d *Dispatcher) run(ctx context.Context, ep Endpoint, plan Plan, payload map[string]interface{}, auth string) (*Response, []string, error) {
	var (
		attempted   []string
		lastStatus  int
		lastBody    string
		sawResponse bool
	)

	for _, cand := range plan.Candidates {
		target := ep.URL(cand.Path)
		req, err := buildRequest(ctx, target, cand, payload, auth)
		if err != nil {
			d.log.Warn("failed to build request candidate", map[string]interface{}{
				"service": ep.Name(),
				"plan":    plan.Name,
				"method":  cand.Method,
				"path":    cand.Path,
				"error":   err.Error(),
			})
			continue
		}
		attempted = append(attempted, req.URL.String())

		resp, err := d.client.Do(req)
		if err != nil {
			// Transport failures are retryable: a different shape might
			// route around a transient fault.
			metrics.DispatchAttempts.WithLabelValues(ep.Name(), cand.Method, "transport_error").Inc()
			d.log.Warn("upstream candidate transport error", map[string]interface{}{
				"service":  ep.Name(),
				"plan":     plan.Name,
				"method":   cand.Method,
				"path":     cand.Path,
				"encoding": cand.Encoding.String(),
				"error":    err.Error(),
			})
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		metrics.DispatchAttempts.WithLabelValues(ep.Name(), cand.Method, strconv.Itoa(resp.StatusCode)).Inc()
		d.log.Debug("upstream candidate attempted", map[string]interface{}{
			"service":  ep.Name(),
			"plan":     plan.Name,
			"method":   cand.Method,
			"path":     cand.Path,
			"encoding": cand.Encoding.String(),
			"status":   resp.StatusCode,
		})

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return &Response{
				StatusCode: resp.StatusCode,
				Header:     resp.Header,
				Body:       body,
			}, attempted, nil
		}

		sawResponse = true
		lastStatus = resp.StatusCode
		lastBody = string(body)

		if !retryableStatus[resp.StatusCode] {
			metrics.DispatchFailures.WithLabelValues(ep.Name(), string(errs.ErrCodeUpstreamFailed)).Inc()
			return nil, attempted, errs.NewUpstreamFailed(ep.Name(), resp.StatusCode, lastBody)
		}
	}

	if sawResponse {
		metrics.DispatchFailures.WithLabelValues(ep.Name(), string(errs.ErrCodeUpstreamExhausted)).Inc()
		return nil, attempted, errs.NewUpstreamExhausted(ep.Name(), lastStatus, lastBody)
	}
	metrics.DispatchFailures.WithLabelValues(ep.Name(), string(errs.ErrCodeUpstreamUnavailable)).Inc()
	return nil, attempted, errs.NewUpstreamUnavailable(ep.Name(), nil)
}

func buildRequest(ctx context.Context, target string, cand Candidate, payload map[string]interface{}, auth string) (*http.Request, error) {
	resolved := resolveFields(cand, payload)

	var (
		body        io.Reader
		contentType string
	)

	switch cand.Encoding {
	case EncodeJSON:
		data, err := json.Marshal(resolved)
		if err != nil {
			return nil, fmt.Errorf("encode json body: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"

	case EncodeForm:
		form := url.Values{}
		for k, v := range resolved {
			form.Set(k, fmt.Sprint(v))
		}
		body = strings.NewReader(form.Encode())
		contentType = "application/x-www-form-urlencoded"

	case EncodeQuery:
		u, err := url.Parse(target)
		if err != nil {
			return nil, fmt.Errorf("parse candidate url: %w", err)
		}
		q := u.Query()
		for k, v := range resolved {
			q.Set(k, fmt.Sprint(v))
		}
		u.RawQuery = q.Encode()
		target = u.String()

	case EncodeBearer:
		// Credential travels in the Authorization header, set below.
	}

	req, err := http.NewRequestWithContext(ctx, cand.Method, target, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	if cand.Encoding == EncodeBearer {
		if tok, ok := resolved["token"]; ok {
			req.Header.Set("Authorization", "Bearer "+fmt.Sprint(tok))
		}
	} else if auth != "" {
		req.Header.Set("Authorization", "Bearer "+auth)
	}

	return req, nil
}

// resolveFields selects the payload values this candidate sends.
func resolveFields(cand Candidate, payload map[string]interface{}) map[string]interface{} {
	resolved := make(map[string]interface{})
	if cand.Fields == nil {
		for k, v := range payload {
			resolved[k] = v
		}
	} else {
		for wireKey, payloadKey := range cand.Fields {
			if v, ok := payload[payloadKey]; ok {
				resolved[wireKey] = v
			}
		}
	}
	for k, v := range cand.Static {
		resolved[k] = v
	}
	return resolved
}
