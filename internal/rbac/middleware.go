package rbac

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elsoprime/erpsolutions/internal/platform/httpx"
	"github.com/elsoprime/erpsolutions/internal/shared"
)

const maxAssignmentBody = 64 << 10

// MembershipSource loads the role memberships of a user.
type MembershipSource interface {
	UserMemberships(ctx context.Context, userID string) ([]Membership, error)
}

// AssignmentExtractor reads the assignments a request performs from its
// buffered body. An empty result means the request touches no role fields
// and skips authorization. Every returned assignment must be allowed.
type AssignmentExtractor func(r *http.Request, body []byte) ([]AssignmentRequest, error)

// Middleware wires role-assignment authorization ahead of user handlers.
type Middleware struct {
	Authorizer  *Authorizer
	Memberships MembershipSource
	Logger      *slog.Logger
}

type (
	decisionContextKey   struct{}
	authorizedContextKey struct{}
)

// DecisionFromContext returns the last decision that let the request through.
func DecisionFromContext(ctx context.Context) (Decision, bool) {
	d, ok := ctx.Value(decisionContextKey{}).(Decision)
	return d, ok
}

// AuthorizedFromContext returns the assignments the guard allowed, in the
// order the extractor produced them.
func AuthorizedFromContext(ctx context.Context) ([]AssignmentRequest, bool) {
	reqs, ok := ctx.Value(authorizedContextKey{}).([]AssignmentRequest)
	return reqs, ok
}

// RequireAssignment authorizes the role assignment carried by the request
// before next runs. Denials short-circuit with 403, malformed input with 400.
func (m Middleware) RequireAssignment(extract AssignmentExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := m.currentUserID(r)
			if !ok {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAssignmentBody))
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					httpx.RespondError(w, fmt.Errorf("%w: limit is %d bytes", httpx.ErrTooLarge, tooLarge.Limit))
					return
				}
				httpx.RespondError(w, fmt.Errorf("%w: read body: %v", httpx.ErrValidation, err))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			reqs, err := extract(r, body)
			if err != nil {
				m.respond(w, "rbac extract assignment", err)
				return
			}
			if len(reqs) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			memberships, err := m.Memberships.UserMemberships(r.Context(), userID)
			if err != nil {
				m.respond(w, "rbac load memberships", err)
				return
			}
			var decision Decision
			for _, req := range reqs {
				decision, err = m.Authorizer.Authorize(r.Context(), memberships, req)
				if err != nil {
					m.respond(w, "rbac authorize assignment", err)
					return
				}
				if !decision.Allowed {
					httpx.RespondError(w, decision.Err())
					return
				}
			}
			ctx := context.WithValue(r.Context(), decisionContextKey{}, decision)
			ctx = context.WithValue(ctx, authorizedContextKey{}, reqs)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (m Middleware) currentUserID(r *http.Request) (string, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return "", false
	}
	id := strings.TrimSpace(sess.UserID)
	return id, id != ""
}

func (m Middleware) respond(w http.ResponseWriter, op string, err error) {
	if m.Logger != nil && !isClientError(err) {
		m.Logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func isClientError(err error) bool {
	return errors.Is(err, httpx.ErrValidation) ||
		errors.Is(err, httpx.ErrNotFound) ||
		errors.Is(err, httpx.ErrForbidden)
}
