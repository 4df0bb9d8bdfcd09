package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chepyr/study-planner/internal/auth"
	"github.com/chepyr/study-planner/internal/db"
	"github.com/chepyr/study-planner/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type registerInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (h *Handler) allow(w http.ResponseWriter, r *http.Request, log *logrus.Entry) bool {
	if h.RateLimiter == nil {
		return true
	}
	ip := clientIP(r)
	if !h.RateLimiter.Allow(ip) {
		log.WithField("ip", ip).Warn("rate limit exceeded")
		sendError(w, "Too many attempts. Please try again later.", http.StatusTooManyRequests)
		return false
	}
	return true
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	log := h.op("handlers.Register")
	if !h.allow(w, r, log) {
		return
	}

	var input registerInput
	if !decodeJSON(w, r, &input) {
		return
	}
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := validate.Struct(input); err != nil {
		sendError(w, "Please provide a name, a valid email and a password of at least 6 characters", http.StatusBadRequest)
		return
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		log.WithError(err).Error("hash password")
		sendError(w, "Server Error", http.StatusInternalServerError)
		return
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Achievements: models.StringList{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.UserRepo.Create(r.Context(), user); err != nil {
		if errors.Is(err, db.ErrDuplicateEmail) {
			sendError(w, "User already exists", http.StatusBadRequest)
			return
		}
		log.WithError(err).Error("create user")
		sendError(w, "Server Error", http.StatusInternalServerError)
		return
	}

	token, err := h.Tokens.Generate(user.ID)
	if err != nil {
		log.WithError(err).Error("generate token")
		sendError(w, "Server Error", http.StatusInternalServerError)
		return
	}
	log.WithField("user_id", user.ID).Info("user registered")
	sendJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	log := h.op("handlers.Login")
	if !h.allow(w, r, log) {
		return
	}

	var input loginInput
	if !decodeJSON(w, r, &input) {
		return
	}
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := validate.Struct(input); err != nil {
		sendError(w, "Invalid Credentials", http.StatusBadRequest)
		return
	}

	user, err := h.UserRepo.GetByEmail(r.Context(), input.Email)
	if errors.Is(err, db.ErrNotFound) {
		sendError(w, "Invalid Credentials", http.StatusBadRequest)
		return
	}
	if err != nil {
		log.WithError(err).Error("load user")
		sendError(w, "Server Error", http.StatusInternalServerError)
		return
	}
	if !auth.CheckPassword(user.PasswordHash, input.Password) {
		log.WithField("user_id", user.ID).Info("wrong password")
		sendError(w, "Invalid Credentials", http.StatusBadRequest)
		return
	}

	token, err := h.Tokens.Generate(user.ID)
	if err != nil {
		log.WithError(err).Error("generate token")
		sendError(w, "Server Error", http.StatusInternalServerError)
		return
	}
	sendJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

// Me returns the profile of the authenticated caller.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFrom(r)
	if !ok {
		sendError(w, "No token, authorization denied", http.StatusUnauthorized)
		return
	}
	user, err := h.Planner.Profile(r.Context(), id)
	if err != nil {
		sendServiceError(w, h.op("handlers.Me"), err)
		return
	}
	sendJSON(w, http.StatusOK, user)
}

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			sendError(w, "limit must be between 1 and 100", http.StatusBadRequest)
			return
		}
		limit = n
	}
	entries, err := h.Planner.Leaderboard(r.Context(), limit)
	if err != nil {
		sendServiceError(w, h.op("handlers.Leaderboard"), err)
		return
	}
	sendJSON(w, http.StatusOK, entries)
}
