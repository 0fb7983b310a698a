package users

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/elsoprime/erpsolutions/internal/platform/httpx"
	"github.com/elsoprime/erpsolutions/internal/rbac"
	"github.com/elsoprime/erpsolutions/internal/shared"
)

// Handler manages user role membership endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance. guard authorizes every role change
// before it reaches the service.
func NewHandler(logger *slog.Logger, service *Service, guard rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, guard: guard, validator: rbac.NewValidator()}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{userID}/roles", h.listRoles)
	r.With(h.guard.RequireAssignment(h.grantAssignment)).Post("/{userID}/roles", h.grantRole)
	r.With(h.guard.RequireAssignment(h.updateAssignment)).Patch("/{userID}/roles/{membershipID}", h.updateRole)
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	memberships, err := h.service.Memberships(r.Context(), shared.UserIDFromContext(r.Context()), chi.URLParam(r, "userID"))
	if err != nil {
		h.fail(w, "list memberships", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"memberships": memberships})
}

func (h *Handler) grantAssignment(r *http.Request, body []byte) ([]rbac.AssignmentRequest, error) {
	grant, err := h.decodeGrant(body)
	if err != nil {
		return nil, err
	}
	req, err := grant.Assignment()
	if err != nil {
		return nil, err
	}
	return []rbac.AssignmentRequest{req}, nil
}

// updateAssignment checks the assigner against both the stored role and the
// merged target, so a membership can only be edited by someone who outranks
// it before and after the change. The stored role comes first; updateRole
// re-checks it under the row lock.
func (h *Handler) updateAssignment(r *http.Request, body []byte) ([]rbac.AssignmentRequest, error) {
	upd, err := h.decodeUpdate(body)
	if err != nil {
		return nil, err
	}
	if !upd.TouchesRole() {
		return nil, nil
	}
	current, err := h.service.Membership(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "membershipID"))
	if err != nil {
		return nil, err
	}
	target, err := upd.Apply(current)
	if err != nil {
		return nil, err
	}
	return []rbac.AssignmentRequest{AssignmentOf(current), AssignmentOf(target)}, nil
}

func (h *Handler) grantRole(w http.ResponseWriter, r *http.Request) {
	var grant RoleGrant
	if err := httpx.DecodeJSON(r, &grant); err != nil {
		httpx.RespondError(w, err)
		return
	}
	m, err := h.service.Grant(r.Context(), chi.URLParam(r, "userID"), grant)
	if err != nil {
		h.fail(w, "grant role", err)
		return
	}
	h.logAssignment(r, "role granted", m)
	httpx.JSON(w, http.StatusCreated, m)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	var upd RoleUpdate
	if err := httpx.DecodeJSON(r, &upd); err != nil {
		httpx.RespondError(w, err)
		return
	}
	var authorized *rbac.AssignmentRequest
	if upd.TouchesRole() {
		reqs, ok := rbac.AuthorizedFromContext(r.Context())
		if !ok || len(reqs) == 0 {
			h.fail(w, "update role", httpx.ErrForbidden)
			return
		}
		authorized = &reqs[0]
	}
	m, err := h.service.Update(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "membershipID"), upd, authorized)
	if err != nil {
		h.fail(w, "update role", err)
		return
	}
	h.logAssignment(r, "role updated", m)
	httpx.JSON(w, http.StatusOK, m)
}

func (h *Handler) decodeGrant(body []byte) (RoleGrant, error) {
	var grant RoleGrant
	if err := httpx.DecodeJSONBytes(body, &grant); err != nil {
		return RoleGrant{}, err
	}
	if err := h.validator.Struct(grant); err != nil {
		return RoleGrant{}, rbac.ValidationErrorFrom(err)
	}
	return grant, nil
}

func (h *Handler) decodeUpdate(body []byte) (RoleUpdate, error) {
	var upd RoleUpdate
	if err := httpx.DecodeJSONBytes(body, &upd); err != nil {
		return RoleUpdate{}, err
	}
	if err := h.validator.Struct(upd); err != nil {
		return RoleUpdate{}, rbac.ValidationErrorFrom(err)
	}
	return upd, nil
}

func (h *Handler) logAssignment(r *http.Request, msg string, m rbac.Membership) {
	attrs := []any{
		slog.String("user_id", chi.URLParam(r, "userID")),
		slog.String("membership_id", m.ID),
		slog.String("role", string(m.Role)),
		slog.String("company_id", m.CompanyID),
	}
	if d, ok := rbac.DecisionFromContext(r.Context()); ok {
		attrs = append(attrs, slog.String("assigner_role", string(d.AssignerEffectiveRole)))
	}
	h.logger.Info(msg, attrs...)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if !isClientError(err) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func isClientError(err error) bool {
	for _, target := range []error{
		httpx.ErrValidation, httpx.ErrNotFound, httpx.ErrDuplicate,
		httpx.ErrConflict, httpx.ErrForbidden, httpx.ErrUnauthorized,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
