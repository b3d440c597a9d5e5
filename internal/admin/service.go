// internal/admin/service.go

// Package admin implements the unified admin operations over the user and
// property upstreams: listing and editing users, listing and approving
// properties, with mutations recorded in the audit log.
package admin

import (
	"context"
	"fmt"
	"strconv"

	"admin-gateway/internal/common/logger"
	"admin-gateway/internal/models"
	"admin-gateway/internal/normalize"
	"admin-gateway/internal/upstream"
)

// Audit action names.
const (
	ActionUpdateUser      = "update_user"
	ActionApproveProperty = "approve_property"
)

type Service struct {
	dispatcher *upstream.Dispatcher
	users      upstream.Endpoint
	properties upstream.Endpoint
	audit      *AuditLog
	log        logger.Logger
}

func NewService(dispatcher *upstream.Dispatcher, users, properties upstream.Endpoint, audit *AuditLog, log logger.Logger) *Service {
	return &Service{
		dispatcher: dispatcher,
		users:      users,
		properties: properties,
		audit:      audit,
		log:        log,
	}
}

// ListUsers fetches a normalized page of users. The admin path is preferred;
// deployments without it fall back to the public listing.
func (s *Service) ListUsers(ctx context.Context, token string, skip, limit int) (*models.UserPage, error) {
	plan := upstream.Plan{
		Name: "list_users",
		Candidates: []upstream.Candidate{
			{Method: "GET", Path: "/admin/users", Encoding: upstream.EncodeQuery},
			{Method: "GET", Path: "/users", Encoding: upstream.EncodeQuery},
		},
	}
	payload := map[string]interface{}{
		"skip":  strconv.Itoa(skip),
		"limit": strconv.Itoa(limit),
	}

	resp, err := s.dispatcher.Execute(ctx, s.users, plan, payload, token)
	if err != nil {
		return nil, err
	}
	decoded, err := resp.JSON()
	if err != nil {
		return nil, err
	}

	page := &models.UserPage{Users: normalize.Users(decoded)}
	if total, ok := normalize.Count(decoded); ok {
		page.Total = total
	} else {
		page.Total = len(page.Users)
	}
	return page, nil
}

// GetUser fetches one user by id, normalized.
func (s *Service) GetUser(ctx context.Context, token, id string) (map[string]interface{}, error) {
	plan := upstream.Plan{
		Name: "get_user",
		Candidates: []upstream.Candidate{
			{Method: "GET", Path: "/admin/users/" + id, Encoding: upstream.EncodeQuery},
			{Method: "GET", Path: "/users/" + id, Encoding: upstream.EncodeQuery},
		},
	}

	resp, err := s.dispatcher.Execute(ctx, s.users, plan, nil, token)
	if err != nil {
		return nil, err
	}
	decoded, err := resp.JSON()
	if err != nil {
		return nil, err
	}

	obj, _ := normalize.User(unwrapObject(decoded, "user")).(map[string]interface{})
	return obj, nil
}

// UpdateUser validates the payload, dispatches the update plan, and records
// the action. Audit failures are logged but do not fail the update; the
// upstream mutation already happened.
func (s *Service) UpdateUser(ctx context.Context, adminUser models.User, token, id string, payload map[string]interface{}) (map[string]interface{}, error) {
	if err := ValidateUserUpdate(payload); err != nil {
		return nil, err
	}

	resp, err := s.dispatcher.Execute(ctx, s.users, upstream.UpdateUserPlan(id), payload, token)
	if err != nil {
		return nil, err
	}
	decoded, err := resp.JSON()
	if err != nil {
		return nil, err
	}

	if err := s.audit.Record(ctx, adminUser.ID, ActionUpdateUser, id); err != nil {
		s.log.Warn("update succeeded but audit write failed", map[string]interface{}{"user_id": id})
	}

	obj, _ := normalize.User(unwrapObject(decoded, "user")).(map[string]interface{})
	return obj, nil
}

// ListProperties forwards the admin filters to the property service and
// guarantees the {items, total} envelope regardless of the upstream shape.
func (s *Service) ListProperties(ctx context.Context, token string, filter models.PropertyFilter) (*models.PropertyPage, error) {
	payload := map[string]interface{}{
		"skip":  strconv.Itoa(filter.Offset),
		"limit": strconv.Itoa(filter.Limit),
	}
	if filter.Location != "" {
		payload["location"] = filter.Location
	}
	if filter.MinPrice != nil {
		payload["min_price"] = fmt.Sprintf("%g", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		payload["max_price"] = fmt.Sprintf("%g", *filter.MaxPrice)
	}
	if filter.Status != "" {
		payload["status"] = filter.Status
	}
	if filter.Search != "" {
		payload["search"] = filter.Search
	}

	plan := upstream.Plan{
		Name: "list_properties",
		Candidates: []upstream.Candidate{
			{Method: "GET", Path: "/admin/properties", Encoding: upstream.EncodeQuery},
			{Method: "GET", Path: "/properties", Encoding: upstream.EncodeQuery},
		},
	}

	resp, err := s.dispatcher.Execute(ctx, s.properties, plan, payload, token)
	if err != nil {
		return nil, err
	}
	decoded, err := resp.JSON()
	if err != nil {
		return nil, err
	}

	page := &models.PropertyPage{Items: []map[string]interface{}{}}
	for _, item := range normalize.Items(decoded) {
		if obj, ok := item.(map[string]interface{}); ok {
			page.Items = append(page.Items, obj)
		}
	}
	if total, ok := normalize.Count(decoded); ok {
		page.Total = total
	} else {
		page.Total = len(page.Items)
	}
	return page, nil
}

// ApproveProperty marks a listing approved and records the action.
func (s *Service) ApproveProperty(ctx context.Context, adminUser models.User, token, id string) (map[string]interface{}, error) {
	plan := upstream.Plan{
		Name: "approve_property",
		Candidates: []upstream.Candidate{
			{Method: "POST", Path: fmt.Sprintf("/admin/properties/%s/approve", id), Encoding: upstream.EncodeJSON},
			{Method: "POST", Path: fmt.Sprintf("/properties/%s/approve", id), Encoding: upstream.EncodeJSON},
			{Method: "PATCH", Path: "/properties/" + id, Encoding: upstream.EncodeJSON,
				Static: map[string]string{"status": "approved"}},
		},
	}

	resp, err := s.dispatcher.Execute(ctx, s.properties, plan, nil, token)
	if err != nil {
		return nil, err
	}
	decoded, _ := resp.JSON()

	if err := s.audit.Record(ctx, adminUser.ID, ActionApproveProperty, id); err != nil {
		s.log.Warn("approval succeeded but audit write failed", map[string]interface{}{"property_id": id})
	}

	obj, _ := unwrapObject(decoded, "property").(map[string]interface{})
	if obj == nil {
		obj = map[string]interface{}{"id": id, "status": "approved"}
	}
	return obj, nil
}

// unwrapObject unwraps a single-key envelope like {user: {...}}.
func unwrapObject(payload interface{}, key string) interface{} {
	if obj, ok := payload.(map[string]interface{}); ok {
		if inner, ok := obj[key].(map[string]interface{}); ok {
			return inner
		}
	}
	return payload
}
