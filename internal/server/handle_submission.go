package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type SubmitAnswerRequest struct {
	TeamID string `json:"teamId"`
	NodeID int    `json:"nodeId"`
	Answer string `json:"answer"`
}

// handleSubmitAnswer records a free-text answer for human review. The
// answer itself is not graded here; expectedAnswer is reference material
// for the reviewer only.
func handleSubmitAnswer(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SubmitAnswerRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Answer = strings.TrimSpace(req.Answer)
		if req.TeamID == "" || req.Answer == "" {
			writeError(w, http.StatusBadRequest, "teamId and answer are required")
			return
		}

		settings, err := store.Settings(r.Context())
		if err == nil && !settings.GameActive {
			writeError(w, http.StatusConflict, "game is not active")
			return
		}
		if err != nil && !errors.Is(err, ErrNoSettings) {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		team, err := store.TeamByID(r.Context(), req.TeamID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "team not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		// Answers are only accepted for the team's current node.
		if req.NodeID != team.CurrentStage {
			writeError(w, http.StatusConflict, "not the team's current node")
			return
		}

		// One pending attempt per team+node; resubmit after review.
		pending, err := store.HasPendingSubmission(r.Context(), team.ID, req.NodeID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if pending {
			writeError(w, http.StatusConflict, "an answer for this node is already awaiting review")
			return
		}

		sub, err := store.CreateSubmission(r.Context(), team.ID, req.NodeID, req.Answer)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusCreated, sub)
	}
}

func handleTeamSubmissions(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teamID := chi.URLParam(r, "teamID")

		if _, err := store.TeamByID(r.Context(), teamID); errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "team not found")
			return
		} else if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		subs, err := store.ListTeamSubmissions(r.Context(), teamID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, subs)
	}
}

func handleListPendingSubmissions(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := store.ListPendingSubmissions(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func handleListSubmissions(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := store.ListSubmissions(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

type ReviewRequest struct {
	Approved   bool   `json:"approved"`
	ReviewedBy string `json:"reviewedBy"`
}

type ReviewResponse struct {
	Status        string `json:"status"`
	TeamID        string `json:"teamId"`
	NodeID        int    `json:"nodeId"`
	PointsAwarded int    `json:"pointsAwarded,omitempty"`
	NewStage      int    `json:"newStage,omitempty"`
	NewScore      int    `json:"newScore,omitempty"`
}

// handleReviewSubmission applies an admin decision. Approval advances the
// team's stage and score in the same transaction as the status change.
func handleReviewSubmission(store Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req ReviewRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.ReviewedBy = strings.TrimSpace(req.ReviewedBy)
		if req.ReviewedBy == "" {
			writeError(w, http.StatusBadRequest, "reviewedBy is required")
			return
		}

		out, err := store.ReviewSubmission(r.Context(), id, req.Approved, req.ReviewedBy)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "submission not found")
			return
		}
		if errors.Is(err, ErrAlreadyReviewed) {
			writeError(w, http.StatusConflict, "submission already reviewed")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		resp := ReviewResponse{
			Status: StatusRejected,
			TeamID: out.TeamID,
			NodeID: out.NodeID,
		}
		broker.Publish(out.TeamID, SSEEvent{
			Type:     "submission_reviewed",
			NodeID:   out.NodeID,
			Approved: out.Approved,
		})
		if out.Approved {
			resp.Status = StatusAccepted
			resp.PointsAwarded = out.PointsAwarded
			resp.NewStage = out.NewStage
			resp.NewScore = out.NewScore
			broker.Publish(out.TeamID, SSEEvent{
				Type:     "team_advanced",
				NodeID:   out.NodeID,
				Points:   out.PointsAwarded,
				NewStage: out.NewStage,
				NewScore: out.NewScore,
			})
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
