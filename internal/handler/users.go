package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/thaicafe/pos-api/internal/auth"
	"github.com/thaicafe/pos-api/internal/database"
	"github.com/thaicafe/pos-api/internal/enum"
)

// UserStore defines the database methods needed by user handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type UserStore interface {
	ListUsers(ctx context.Context) ([]database.User, error)
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
	UpdateUser(ctx context.Context, arg database.UpdateUserParams) (database.User, error)
	UpdateUserPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	SoftDeleteUser(ctx context.Context, id uuid.UUID) (int64, error)
}

// UserHandler handles staff account endpoints.
type UserHandler struct {
	store UserStore
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(store UserStore) *UserHandler {
	return &UserHandler{store: store}
}

// RegisterRoutes registers user CRUD endpoints on the given Chi router.
// Expected to be mounted at /users behind RequireRole(ADMIN).
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type updateUserRequest struct {
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u database.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		FullName:  u.FullName,
		Role:      string(u.Role),
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

func isValidRole(role string) bool {
	switch role {
	case enum.UserRoleAdmin, enum.UserRoleCashier, enum.UserRoleWaiter, enum.UserRoleKitchen:
		return true
	}
	return false
}

// --- Handlers ---

// List returns all active staff accounts.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		log.Printf("ERROR: list users: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]userResponse, len(users))
	for i, u := range users {
		resp[i] = toUserResponse(u)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Create adds a staff account with a bcrypt-hashed password.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" || req.FullName == "" || req.Role == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "username, password, full_name, and role are required"})
		return
	}

	if !isValidRole(req.Role) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "role must be ADMIN, CASHIER, WAITER, or KITCHEN"})
		return
	}

	if len(req.Password) < 6 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "password must be at least 6 characters"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("ERROR: hash password: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	user, err := h.store.CreateUser(r.Context(), database.CreateUserParams{
		Username:     req.Username,
		PasswordHash: hash,
		FullName:     req.FullName,
		Role:         database.UserRole(req.Role),
	})
	if err != nil {
		if pgCode(err) == "23505" {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "username already exists"})
			return
		}
		log.Printf("ERROR: create user: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// Update changes name and role, and the password when one is given.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(w, r, "id", "user")
	if !ok {
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.FullName == "" || req.Role == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "full_name and role are required"})
		return
	}

	if !isValidRole(req.Role) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "role must be ADMIN, CASHIER, WAITER, or KITCHEN"})
		return
	}

	if req.Password != "" && len(req.Password) < 6 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "password must be at least 6 characters"})
		return
	}

	user, err := h.store.UpdateUser(r.Context(), database.UpdateUserParams{
		ID:       userID,
		FullName: req.FullName,
		Role:     database.UserRole(req.Role),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		log.Printf("ERROR: update user: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			log.Printf("ERROR: hash password: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		if err := h.store.UpdateUserPassword(r.Context(), userID, hash); err != nil {
			log.Printf("ERROR: update user password: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// Delete deactivates a staff account. Orders keep pointing at it.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(w, r, "id", "user")
	if !ok {
		return
	}

	n, err := h.store.SoftDeleteUser(r.Context(), userID)
	if err != nil {
		log.Printf("ERROR: delete user: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if n == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
