package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/thaicafe/pos-api/internal/service"
)

// writeServiceError maps a service error class to its HTTP status.
// Anything unclassified is logged and hidden behind a 500.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case service.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case service.IsConflict(err):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case service.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

// urlID parses a UUID path parameter. On failure it writes
// 400 "invalid <what> ID" and returns false.
func urlID(w http.ResponseWriter, r *http.Request, param, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + what + " ID"})
		return uuid.Nil, false
	}
	return id, true
}

// parsePagination reads limit/offset query params with defaults.
func parsePagination(r *http.Request, defaultLimit int32) (limit, offset int32) {
	limit = defaultLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.ParseInt(s, 10, 32); err == nil && n > 0 && n <= 200 {
			limit = int32(n)
		}
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		if n, err := strconv.ParseInt(s, 10, 32); err == nil && n >= 0 {
			offset = int32(n)
		}
	}
	return limit, offset
}

// pgCode returns the PostgreSQL error code carried by err, or "".
func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
