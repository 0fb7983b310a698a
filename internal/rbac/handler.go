package rbac

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/elsoprime/erpsolutions/internal/platform/httpx"
)

// Handler serves the permission endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: NewValidator()}
}

// MountRoutes registers permission routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/calculate", h.calculate)
	r.Get("/available-modules/{companyID}", h.availableModules)
	r.Get("/check-module/{companyID}/{module}", h.checkModule)
	r.Post("/validate", h.validate)
	r.Post("/preview", h.preview)
	r.Get("/roles", h.listRoles)
	r.Get("/features", h.listFeatures)
}

type calculateQuery struct {
	CompanyID string `json:"companyId" validate:"required,max=64"`
	Role      string `json:"role" validate:"required"`
}

type planInfoResponse struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type calculateResponse struct {
	Permissions       []string         `json:"permissions"`
	AvailableModules  []FeatureKey     `json:"availableModules"`
	RestrictedModules []FeatureKey     `json:"restrictedModules"`
	PlanInfo          planInfoResponse `json:"planInfo"`
}

func newCalculateResponse(res Result) calculateResponse {
	return calculateResponse{
		Permissions:       res.Permissions.Sorted(),
		AvailableModules:  nonNil(res.AvailableModules),
		RestrictedModules: nonNil(res.RestrictedModules),
		PlanInfo:          planInfoResponse{Name: res.Plan.Name, Type: res.Plan.Type},
	}
}

func (h *Handler) calculate(w http.ResponseWriter, r *http.Request) {
	q := calculateQuery{
		CompanyID: r.URL.Query().Get("companyId"),
		Role:      r.URL.Query().Get("role"),
	}
	if err := h.validator.Struct(q); err != nil {
		httpx.RespondError(w, ValidationErrorFrom(err))
		return
	}
	role, err := ParseCompanyRole(q.Role)
	if err != nil {
		httpx.RespondError(w, newValidationError("role", err.Error()))
		return
	}
	res, err := h.service.Calculate(r.Context(), role, q.CompanyID)
	if err != nil {
		h.fail(w, "calculate permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, newCalculateResponse(res))
}

func (h *Handler) availableModules(w http.ResponseWriter, r *http.Request) {
	modules, err := h.service.AvailableModules(r.Context(), chi.URLParam(r, "companyID"))
	if err != nil {
		h.fail(w, "available modules", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"availableModules": nonNil(modules)})
}

func (h *Handler) checkModule(w http.ResponseWriter, r *http.Request) {
	module, err := ParseFeatureKey(chi.URLParam(r, "module"))
	if err != nil {
		httpx.RespondError(w, newValidationError("module", err.Error()))
		return
	}
	available, err := h.service.ModuleAvailable(r.Context(), chi.URLParam(r, "companyID"), module)
	if err != nil {
		h.fail(w, "check module", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"available": available})
}

type validateRequest struct {
	Permissions []string `json:"permissions" validate:"required,dive,max=128"`
	Role        string   `json:"role" validate:"required"`
	CompanyID   string   `json:"companyId" validate:"required,max=64"`
}

func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, ValidationErrorFrom(err))
		return
	}
	role, err := ParseCompanyRole(req.Role)
	if err != nil {
		httpx.RespondError(w, newValidationError("role", err.Error()))
		return
	}
	res, err := h.service.Validate(r.Context(), req.Permissions, role, req.CompanyID)
	if err != nil {
		h.fail(w, "validate permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

type previewRequest struct {
	Role     string         `json:"role" validate:"required"`
	Features map[string]any `json:"features" validate:"required"`
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, ValidationErrorFrom(err))
		return
	}
	role, err := ParseCompanyRole(req.Role)
	if err != nil {
		httpx.RespondError(w, newValidationError("role", err.Error()))
		return
	}
	features, err := DecodeFeatureSet(req.Features)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	for key := range features {
		if _, err := ParseFeatureKey(string(key)); err != nil {
			httpx.RespondError(w, newValidationError("features."+string(key), "unknown feature"))
			return
		}
	}
	httpx.JSON(w, http.StatusOK, newCalculateResponse(ResolveWithFeatures(role, features)))
}

type roleEntry struct {
	Role        Role     `json:"role"`
	Rank        int      `json:"rank"`
	Permissions []string `json:"permissions"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles := CompanyRoles()
	out := make([]roleEntry, 0, len(roles))
	for _, role := range roles {
		out = append(out, roleEntry{
			Role:        role,
			Rank:        RankOf(role),
			Permissions: DefaultPermissionsFor(role).Sorted(),
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": out})
}

type featureEntry struct {
	Feature     FeatureKey `json:"feature"`
	Permissions []string   `json:"permissions"`
}

func (h *Handler) listFeatures(w http.ResponseWriter, r *http.Request) {
	keys := FeatureKeys()
	out := make([]featureEntry, 0, len(keys))
	for _, key := range keys {
		out = append(out, featureEntry{Feature: key, Permissions: FeaturePermissions(key).Sorted()})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"base":     BasePermissions().Sorted(),
		"features": out,
	})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	var verr *ValidationError
	if !errors.As(err, &verr) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func nonNil(keys []FeatureKey) []FeatureKey {
	if keys == nil {
		return []FeatureKey{}
	}
	return keys
}
