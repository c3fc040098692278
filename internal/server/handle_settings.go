package server

import (
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

type VerifySecretRequest struct {
	Secret string `json:"secret"`
}

type VerifySecretResponse struct {
	Valid bool `json:"valid"`
}

func handleVerifySecret(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req VerifySecretRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		writeJSON(w, http.StatusOK, VerifySecretResponse{
			Valid: verifyAdminSecret(r.Context(), store, req.Secret),
		})
	}
}

type InitSettingsRequest struct {
	TotalNodes    int    `json:"totalNodes"`
	PointsPerNode int    `json:"pointsPerNode"`
	AdminSecret   string `json:"adminSecret"`
}

func validateSettings(totalNodes, pointsPerNode int, secret string) string {
	switch {
	case totalNodes < 1:
		return "totalNodes must be at least 1"
	case pointsPerNode < 0:
		return "pointsPerNode must not be negative"
	case strings.TrimSpace(secret) == "":
		return "adminSecret is required"
	}
	return ""
}

// handleInitSettings creates or overwrites the settings singleton and
// activates the game. The first call is open; once settings exist the
// caller must present the current secret.
func handleInitSettings(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req InitSettingsRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if msg := validateSettings(req.TotalNodes, req.PointsPerNode, req.AdminSecret); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		_, err := store.Settings(r.Context())
		switch {
		case err == nil:
			if !verifyAdminSecret(r.Context(), store, r.Header.Get(adminSecretHeader)) {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
		case !errors.Is(err, ErrNoSettings):
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.AdminSecret), bcrypt.DefaultCost)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		settings := Settings{
			TotalNodes:    req.TotalNodes,
			GameActive:    true,
			PointsPerNode: req.PointsPerNode,
		}
		if err := store.SaveSettings(r.Context(), settings, string(hash)); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusCreated, settings)
	}
}

type UpdateSettingsRequest struct {
	TotalNodes    int    `json:"totalNodes"`
	GameActive    bool   `json:"gameActive"`
	PointsPerNode int    `json:"pointsPerNode"`
	AdminSecret   string `json:"adminSecret"`
}

func handleUpdateSettings(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateSettingsRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if msg := validateSettings(req.TotalNodes, req.PointsPerNode, req.AdminSecret); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		if _, err := store.Settings(r.Context()); errors.Is(err, ErrNoSettings) {
			writeError(w, http.StatusNotFound, "settings not initialized")
			return
		} else if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.AdminSecret), bcrypt.DefaultCost)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		settings := Settings{
			TotalNodes:    req.TotalNodes,
			GameActive:    req.GameActive,
			PointsPerNode: req.PointsPerNode,
		}
		if err := store.SaveSettings(r.Context(), settings, string(hash)); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, settings)
	}
}

func handleGetSettings(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		settings, err := store.Settings(r.Context())
		if errors.Is(err, ErrNoSettings) {
			writeError(w, http.StatusNotFound, "settings not initialized")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, settings)
	}
}

type ToggleActiveRequest struct {
	Active bool `json:"active"`
}

// handleToggleActive flips the global pause flag without touching any
// other settings field.
func handleToggleActive(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ToggleActiveRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		err := store.ToggleActive(r.Context(), req.Active)
		if errors.Is(err, ErrNoSettings) {
			writeError(w, http.StatusNotFound, "settings not initialized")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		settings, err := store.Settings(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, settings)
	}
}

func handleStats(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.GameStats(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}
