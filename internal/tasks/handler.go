package tasks

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/taskboard/backend/internal/apperr"
	"github.com/ayush/taskboard/backend/internal/auth"
	"github.com/ayush/taskboard/backend/internal/models"
	"github.com/ayush/taskboard/backend/internal/web"
)

// TaskStore defines the interface for task persistence. Every operation is
// owner-scoped.
type TaskStore interface {
	Insert(ctx context.Context, task *models.Task) (*models.Task, error)
	GetByID(ctx context.Context, id, ownerID string) (*models.Task, error)
	Update(ctx context.Context, id, ownerID string, patch models.TaskPatch) (*models.Task, error)
	UpdateStatus(ctx context.Context, id, ownerID string, status models.Status) (*models.Task, error)
	Delete(ctx context.Context, id, ownerID string) error
	List(ctx context.Context, ownerID string, opts models.ListOptions) ([]models.Task, error)
}

// OwnerStore resolves task owners for the read path.
type OwnerStore interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Handler holds task HTTP handlers.
type Handler struct {
	store  TaskStore
	owners OwnerStore
	now    func() time.Time
}

func NewHandler(store TaskStore, owners OwnerStore) *Handler {
	return &Handler{store: store, owners: owners, now: time.Now}
}

// Create stores a new task for the authenticated user. Status defaults to
// Pending and the due date must not be in the past.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		web.Error(w, apperr.New(apperr.CodeAuthTokenMissing, "not authenticated"))
		return
	}

	var req models.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Error(w, apperr.New(apperr.CodeValidation, "invalid request body"))
		return
	}
	if err := models.Validate(&req); err != nil {
		web.Error(w, err)
		return
	}

	status := models.StatusPending
	if req.Status != "" {
		parsed, err := models.ParseStatus(req.Status)
		if err != nil {
			web.Error(w, err)
			return
		}
		status = parsed
	}

	if req.DueDate.Before(h.now()) {
		web.Error(w, apperr.New(apperr.CodeValidation, "due date must not be in the past"))
		return
	}

	task, err := h.store.Insert(r.Context(), &models.Task{
		OwnerID:     user.ID,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate.UTC(),
		Status:      status,
	})
	if err != nil {
		web.Error(w, err)
		return
	}

	task.Finalize(h.now())
	web.JSON(w, http.StatusCreated, map[string]*models.Task{"task": task})
}

// List returns the user's tasks, optionally filtered by status and sorted by
// the requested field. The full filtered set is returned; there is no
// pagination.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		web.Error(w, apperr.New(apperr.CodeAuthTokenMissing, "not authenticated"))
		return
	}

	opts, err := models.ParseListOptions(r.URL.Query())
	if err != nil {
		web.Error(w, err)
		return
	}

	tasks, err := h.store.List(r.Context(), user.ID, opts)
	if err != nil {
		web.Error(w, err)
		return
	}

	now := h.now()
	for i := range tasks {
		tasks[i].Finalize(now)
	}
	web.JSON(w, http.StatusOK, map[string][]models.Task{"tasks": tasks})
}

// Get returns one of the user's tasks with its owner summary attached. The
// owner is looked up explicitly from the credential store on the read path.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		web.Error(w, apperr.New(apperr.CodeAuthTokenMissing, "not authenticated"))
		return
	}

	task, err := h.store.GetByID(r.Context(), chi.URLParam(r, "id"), user.ID)
	if err != nil {
		web.Error(w, err)
		return
	}

	owner, err := h.owners.GetUserByID(r.Context(), task.OwnerID)
	if err != nil {
		log.Printf("task %s: owner lookup failed: %v", task.ID.Hex(), err)
	} else {
		task.Owner = owner.Summary()
	}

	task.Finalize(h.now())
	web.JSON(w, http.StatusOK, map[string]*models.Task{"task": task})
}

// Update replaces the mutable fields of the user's task.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		web.Error(w, apperr.New(apperr.CodeAuthTokenMissing, "not authenticated"))
		return
	}

	var req models.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Error(w, apperr.New(apperr.CodeValidation, "invalid request body"))
		return
	}
	if err := models.Validate(&req); err != nil {
		web.Error(w, err)
		return
	}

	patch := models.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
	}
	if req.Status != "" {
		status, err := models.ParseStatus(req.Status)
		if err != nil {
			web.Error(w, err)
			return
		}
		patch.Status = status
	}

	task, err := h.store.Update(r.Context(), chi.URLParam(r, "id"), user.ID, patch)
	if err != nil {
		web.Error(w, err)
		return
	}

	task.Finalize(h.now())
	web.JSON(w, http.StatusOK, map[string]*models.Task{"task": task})
}

// UpdateStatus changes only the status of the user's task.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		web.Error(w, apperr.New(apperr.CodeAuthTokenMissing, "not authenticated"))
		return
	}

	var req models.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Error(w, apperr.New(apperr.CodeValidation, "invalid request body"))
		return
	}
	if err := models.Validate(&req); err != nil {
		web.Error(w, err)
		return
	}
	status, err := models.ParseStatus(req.Status)
	if err != nil {
		web.Error(w, err)
		return
	}

	task, err := h.store.UpdateStatus(r.Context(), chi.URLParam(r, "id"), user.ID, status)
	if err != nil {
		web.Error(w, err)
		return
	}

	task.Finalize(h.now())
	web.JSON(w, http.StatusOK, map[string]*models.Task{"task": task})
}

// Delete removes the user's task.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		web.Error(w, apperr.New(apperr.CodeAuthTokenMissing, "not authenticated"))
		return
	}

	if err := h.store.Delete(r.Context(), chi.URLParam(r, "id"), user.ID); err != nil {
		web.Error(w, err)
		return
	}

	web.JSON(w, http.StatusOK, map[string]string{"message": "task deleted"})
}
