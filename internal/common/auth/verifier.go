// internal/common/auth/verifier.go

// Package auth verifies admin bearer tokens against the user-management
// service. The verify endpoint's contract differs between deployments, so
// verification goes through the dispatcher's multi-candidate plan.
package auth

import (
	"context"

	errs "admin-gateway/internal/common/errors"
	"admin-gateway/internal/common/logger"
	"admin-gateway/internal/models"
	"admin-gateway/internal/normalize"
	"admin-gateway/internal/upstream"
)

// AdminRole is the only role allowed through the gateway.
const AdminRole = "admin"

type Verifier struct {
	dispatcher *upstream.Dispatcher
	users      upstream.Endpoint
	log        logger.Logger
}

func NewVerifier(dispatcher *upstream.Dispatcher, users upstream.Endpoint, log logger.Logger) *Verifier {
	return &Verifier{dispatcher: dispatcher, users: users, log: log}
}

// VerifyAdmin checks the token upstream and requires the resolved user to
// hold the admin role. The upstream may answer with {user: {...}} or a flat
// user object; either is accepted.
func (v *Verifier) VerifyAdmin(ctx context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, errs.NewInvalidToken("no bearer token supplied")
	}

	resp, err := v.dispatcher.Execute(ctx, v.users, upstream.VerifyTokenPlan(), map[string]interface{}{"token": token}, "")
	if err != nil {
		v.log.Warn("token verification rejected upstream", map[string]interface{}{"error": err.Error()})
		if stdErr, ok := errs.AsStandard(err); ok && stdErr.Code == errs.ErrCodeUpstreamUnavailable {
			return models.User{}, err
		}
		return models.User{}, errs.NewInvalidToken("upstream rejected the token")
	}

	payload, err := resp.JSON()
	if err != nil {
		return models.User{}, errs.NewInvalidToken("verify response was not JSON")
	}

	user := normalize.UserRecord(unwrapUser(payload))
	if user.ID == "" {
		return models.User{}, errs.NewInvalidToken("verify response carried no user identity")
	}
	if user.Role != AdminRole {
		return models.User{}, errs.NewAdminRequired(user.Role)
	}
	return user, nil
}

// unwrapUser accepts {user: {...}} envelopes and flat user objects.
func unwrapUser(payload interface{}) interface{} {
	if obj, ok := payload.(map[string]interface{}); ok {
		if inner, ok := obj["user"].(map[string]interface{}); ok {
			return inner
		}
	}
	return payload
}
