package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

type CreateTeamRequest struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

func handleCreateTeam(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateTeamRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Name = strings.TrimSpace(req.Name)
		members := make([]string, 0, len(req.Members))
		for _, m := range req.Members {
			if m = strings.TrimSpace(m); m != "" {
				members = append(members, m)
			}
		}
		if req.Name == "" || len(members) == 0 {
			writeError(w, http.StatusBadRequest, "name and at least one member are required")
			return
		}

		team, err := store.CreateTeam(r.Context(), req.Name, members)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusCreated, team)
	}
}

func handleTeamLookup(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "teamCode")))

		team, err := store.TeamByCode(r.Context(), code)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "team not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, team)
	}
}

const defaultLeaderboardSize = 10

type LeaderboardEntry struct {
	Rank         int    `json:"rank"`
	TeamID       string `json:"teamId"`
	Name         string `json:"name"`
	CurrentStage int    `json:"currentStage"`
	Score        int    `json:"score"`
}

func handleLeaderboard(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultLeaderboardSize
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = n
		}

		teams, err := store.Leaderboard(r.Context(), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		entries := []LeaderboardEntry{}
		for i, t := range teams {
			entries = append(entries, LeaderboardEntry{
				Rank:         i + 1,
				TeamID:       t.ID,
				Name:         t.Name,
				CurrentStage: t.CurrentStage,
				Score:        t.Score,
			})
		}
		writeJSON(w, http.StatusOK, entries)
	}
}
