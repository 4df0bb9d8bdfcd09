package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/chepyr/study-planner/internal/auth"
	"github.com/chepyr/study-planner/internal/db"
	"github.com/chepyr/study-planner/internal/planner"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	Planner        *planner.Service
	UserRepo       db.UserRepositoryInterface
	Tokens         *auth.TokenManager
	RateLimiter    *RateLimiter
	WSHub          *WSHub
	AllowedOrigins []string
	Log            *logrus.Logger
}

// Routes wires every endpoint onto a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", h.Register)
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.HandleFunc("GET /api/auth/me", h.AuthMiddleware(h.Me))
	mux.HandleFunc("GET /api/users/leaderboard", h.Leaderboard)

	mux.HandleFunc("POST /api/tasks", h.AuthMiddleware(h.createTask))
	mux.HandleFunc("GET /api/tasks", h.AuthMiddleware(h.listTasks))
	mux.HandleFunc("PUT /api/tasks/reorder", h.AuthMiddleware(h.reorderTasks))
	mux.HandleFunc("GET /api/tasks/{id}", h.AuthMiddleware(h.getTask))
	mux.HandleFunc("PUT /api/tasks/{id}", h.AuthMiddleware(h.updateTask))
	mux.HandleFunc("DELETE /api/tasks/{id}", h.AuthMiddleware(h.deleteTask))
	mux.HandleFunc("PATCH /api/tasks/{id}/complete", h.AuthMiddleware(h.completeTask))

	mux.HandleFunc("GET /ws", h.AuthMiddleware(h.HandleWebSocket))
	return mux
}

// CORS lets the single-page client call the API from its own origin.
func (h *Handler) CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && originAllowed(h.AllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// an empty allow-list accepts every origin
func originAllowed(allowed []string, origin string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, o := range allowed {
		if strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

func (h *Handler) logger() *logrus.Logger {
	if h.Log == nil {
		return logrus.StandardLogger()
	}
	return h.Log
}

func (h *Handler) op(name string) *logrus.Entry {
	return h.logger().WithField("operation", name)
}

type errorResponse struct {
	Error string `json:"error"`
}

func sendError(w http.ResponseWriter, message string, status int) {
	sendJSON(w, status, errorResponse{Error: message})
}

func sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// sendServiceError maps planner errors onto status codes. Anything not in the
// taxonomy is logged and reported as a generic server error.
func sendServiceError(w http.ResponseWriter, log *logrus.Entry, err error) {
	var verr *planner.ValidationError
	switch {
	case errors.As(err, &verr):
		sendError(w, verr.Message, http.StatusBadRequest)
	case errors.Is(err, planner.ErrForbidden):
		sendError(w, "Not authorized to access this task", http.StatusForbidden)
	case errors.Is(err, planner.ErrTaskNotFound):
		sendError(w, "Task not found", http.StatusNotFound)
	case errors.Is(err, planner.ErrUserNotFound):
		sendError(w, "User not found", http.StatusNotFound)
	case errors.Is(err, planner.ErrAlreadyCompleted):
		sendError(w, "Task already completed", http.StatusBadRequest)
	default:
		log.WithError(err).Error("request failed")
		sendError(w, "Server Error", http.StatusInternalServerError)
	}
}

func isJSONContentType(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(strings.ToLower(ct), "application/json")
}

// decodeJSON enforces the content type and a 1MB body limit.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !isJSONContentType(r) {
		sendError(w, "Content-Type must be application/json", http.StatusBadRequest)
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		sendError(w, "Invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}
