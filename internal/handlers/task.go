package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/chepyr/study-planner/internal/models"
	"github.com/chepyr/study-planner/internal/planner"
	"github.com/google/uuid"
)

const requestTimeout = 3 * time.Second

// withIdentity resolves the caller and the optional {id} path value. It writes
// the error response itself and reports false when the request must stop.
func withIdentity(w http.ResponseWriter, r *http.Request, needTaskID bool) (planner.Identity, uuid.UUID, bool) {
	id, ok := identityFrom(r)
	if !ok {
		sendError(w, "No token, authorization denied", http.StatusUnauthorized)
		return planner.Identity{}, uuid.Nil, false
	}
	if !needTaskID {
		return id, uuid.Nil, true
	}
	taskID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		sendError(w, "Invalid task ID", http.StatusBadRequest)
		return planner.Identity{}, uuid.Nil, false
	}
	return id, taskID, true
}

func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	id, _, ok := withIdentity(w, r, false)
	if !ok {
		return
	}
	var input planner.CreateTaskInput
	if !decodeJSON(w, r, &input) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	task, err := h.Planner.CreateTask(ctx, id, input)
	if err != nil {
		sendServiceError(w, h.op("handlers.createTask"), err)
		return
	}
	w.Header().Set("Location", "/api/tasks/"+task.ID.String())
	sendJSON(w, http.StatusCreated, task)
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	id, _, ok := withIdentity(w, r, false)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	tasks, err := h.Planner.ListTasks(ctx, id)
	if err != nil {
		sendServiceError(w, h.op("handlers.listTasks"), err)
		return
	}
	sendJSON(w, http.StatusOK, tasks)
}

func (h *Handler) getTask(w http.ResponseWriter, r *http.Request) {
	id, taskID, ok := withIdentity(w, r, true)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	task, err := h.Planner.GetTask(ctx, id, taskID)
	if err != nil {
		sendServiceError(w, h.op("handlers.getTask"), err)
		return
	}
	sendJSON(w, http.StatusOK, task)
}

func (h *Handler) updateTask(w http.ResponseWriter, r *http.Request) {
	id, taskID, ok := withIdentity(w, r, true)
	if !ok {
		return
	}
	var input planner.UpdateTaskInput
	if !decodeJSON(w, r, &input) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	task, err := h.Planner.UpdateTask(ctx, id, taskID, input)
	if err != nil {
		sendServiceError(w, h.op("handlers.updateTask"), err)
		return
	}
	sendJSON(w, http.StatusOK, task)
}

func (h *Handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	id, taskID, ok := withIdentity(w, r, true)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.Planner.DeleteTask(ctx, id, taskID); err != nil {
		sendServiceError(w, h.op("handlers.deleteTask"), err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]string{"message": "Task deleted successfully"})
}

func (h *Handler) completeTask(w http.ResponseWriter, r *http.Request) {
	id, taskID, ok := withIdentity(w, r, true)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	task, err := h.Planner.CompleteTask(ctx, id, taskID)
	if err != nil {
		sendServiceError(w, h.op("handlers.completeTask"), err)
		return
	}
	sendJSON(w, http.StatusOK, task)
}

// reorderItem accepts both "id" and "_id" for the task identifier.
type reorderItem struct {
	ID    string `json:"id"`
	MID   string `json:"_id"`
	Order *int   `json:"order"`
}

type reorderRequest struct {
	Tasks []reorderItem `json:"tasks"`
}

/*
PUT /api/tasks/reorder

The default mode applies each pair on its own and returns null for pairs that
name a missing or foreign task. ?mode=strict applies all pairs or none.
*/
func (h *Handler) reorderTasks(w http.ResponseWriter, r *http.Request) {
	id, _, ok := withIdentity(w, r, false)
	if !ok {
		return
	}
	var input reorderRequest
	if !decodeJSON(w, r, &input) {
		return
	}
	if input.Tasks == nil {
		sendError(w, "Invalid tasks format", http.StatusBadRequest)
		return
	}

	items := make([]planner.ReorderItem, len(input.Tasks))
	for i, t := range input.Tasks {
		taskID := t.ID
		if taskID == "" {
			taskID = t.MID
		}
		items[i] = planner.ReorderItem{ID: taskID, Order: t.Order}
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var (
		tasks []*models.Task
		err   error
	)
	switch r.URL.Query().Get("mode") {
	case "", "partial":
		tasks, err = h.Planner.ReorderTasks(ctx, id, items)
	case "strict":
		tasks, err = h.Planner.ReorderTasksStrict(ctx, id, items)
	default:
		sendError(w, "mode must be partial or strict", http.StatusBadRequest)
		return
	}
	if err != nil {
		sendServiceError(w, h.op("handlers.reorderTasks"), err)
		return
	}
	sendJSON(w, http.StatusOK, tasks)
}

