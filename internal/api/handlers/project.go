package handlers

import (
	"errors"
	"net/http"

	"github.com/Harshitk-cp/tenantctl/internal/domain"
	"github.com/Harshitk-cp/tenantctl/internal/service"
	"go.uber.org/zap"
)

type ProjectHandler struct {
	svc    *service.ProjectService
	logger *zap.Logger
}

func NewProjectHandler(svc *service.ProjectService, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{svc: svc, logger: logger}
}

type createProjectRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// List never fails towards the dashboard; catalog errors render as no projects.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.svc.List(r.Context())
	if err != nil {
		requestLogger(r, h.logger).Error("failed to fetch projects", zap.Error(err))
		writeJSON(w, http.StatusOK, []domain.Project{})
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if msg, ok := decodeAndValidate(r, &req, "project name is required"); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	p, err := h.svc.Create(r.Context(), req.Name)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			writeError(w, http.StatusBadRequest, "project name is required")
			return
		}
		requestLogger(r, h.logger).Error("project creation failed", zap.String("project_name", req.Name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create project")
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

func (h *ProjectHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := projectID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	p, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrProjectNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		requestLogger(r, h.logger).Error("failed to get project", zap.Int64("project_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get project")
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := projectID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrProjectNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		requestLogger(r, h.logger).Error("project deletion failed", zap.Int64("project_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete project")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
