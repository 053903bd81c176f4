package handlers

import (
	"errors"
	"net/http"

	"github.com/Harshitk-cp/tenantctl/internal/domain"
	"github.com/Harshitk-cp/tenantctl/internal/service"
	"go.uber.org/zap"
)

type UserHandler struct {
	svc    *service.UserService
	logger *zap.Logger
}

func NewUserHandler(svc *service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{svc: svc, logger: logger}
}

type createUserRequest struct {
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"required,max=255"`
}

// List answers 200 with an empty list for malformed or unknown project ids.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := projectID(r)
	if !ok {
		writeJSON(w, http.StatusOK, []domain.User{})
		return
	}
	writeJSON(w, http.StatusOK, h.svc.List(r.Context(), id))
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if msg, ok := decodeAndValidate(r, &req, "name and email are required"); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	id, ok := projectID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	u, err := h.svc.Create(r.Context(), id, req.Name, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			writeError(w, http.StatusBadRequest, "name and email are required")
		case errors.Is(err, service.ErrProjectNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrDuplicateEmail):
			writeError(w, http.StatusConflict, err.Error())
		default:
			requestLogger(r, h.logger).Error("failed to create user", zap.Int64("project_id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to create user")
		}
		return
	}

	writeJSON(w, http.StatusCreated, u)
}
