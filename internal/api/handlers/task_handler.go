package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/taskflow-api/internal/api/respond"
	"github.com/isdelr/taskflow-api/internal/models"
	"github.com/isdelr/taskflow-api/internal/services"
)

const taskNotFound = "Task not found."

// TaskHandler handles HTTP requests related to tasks. Every route acts on
// the authenticated user's own tasks.
type TaskHandler struct {
	service services.TaskServiceProvider
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(service services.TaskServiceProvider) *TaskHandler {
	return &TaskHandler{service: service}
}

// GetAll handles listing tasks with optional search, filters and sorting.
func (h *TaskHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	list, err := h.service.ListTasks(r.Context(), user.ID, models.TaskQuery{
		Search:   q.Get("q"),
		Status:   q.Get("status"),
		Priority: q.Get("priority"),
		SortBy:   q.Get("sortBy"),
		Order:    q.Get("order"),
	})
	if err != nil {
		writeServiceError(w, r, err, taskNotFound)
		return
	}

	respond.JSON(w, http.StatusOK, respond.M{
		"count": len(list.Tasks),
		"tasks": list.Tasks,
		"stats": list.Stats,
	})
}

// Get handles the request to get a single task by its ID.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	task, err := h.service.GetTask(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, taskNotFound)
		return
	}
	respond.JSON(w, http.StatusOK, respond.M{"task": task})
}

// Create handles the request to create a new task.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var input models.TaskInput
	if !decodeBody(w, r, &input) {
		return
	}

	task, err := h.service.CreateTask(r.Context(), user.ID, input)
	if err != nil {
		writeServiceError(w, r, err, taskNotFound)
		return
	}
	respond.JSON(w, http.StatusCreated, respond.M{"message": "Task created.", "task": task})
}

// Update applies the fields present in the body to an existing task.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var patch models.TaskPatch
	if !decodeBody(w, r, &patch) {
		return
	}

	task, err := h.service.UpdateTask(r.Context(), user.ID, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeServiceError(w, r, err, taskNotFound)
		return
	}
	respond.JSON(w, http.StatusOK, respond.M{"message": "Task updated.", "task": task})
}

// Delete handles the request to delete a task.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.service.RemoveTask(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err, taskNotFound)
		return
	}
	respond.Message(w, http.StatusOK, "Task deleted.")
}
