package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

type CreateNodeRequest struct {
	NodeID         int    `json:"nodeId"`
	Clue           string `json:"clue"`
	Question       string `json:"question"`
	ExpectedAnswer string `json:"expectedAnswer,omitempty"`
}

// AdminNode is the admin view of a node, including the unlock secret and
// the payload to encode into the printed QR code.
type AdminNode struct {
	NodeID         int    `json:"nodeId"`
	Clue           string `json:"clue"`
	Question       string `json:"question"`
	CorrectCode    string `json:"correctCode"`
	ExpectedAnswer string `json:"expectedAnswer,omitempty"`
	IsActive       bool   `json:"isActive"`
	CreatedAt      string `json:"createdAt"`
	QRPayload      string `json:"qrPayload"`
}

type CreateNodeResponse struct {
	Node      AdminNode `json:"node"`
	QRPayload string    `json:"qrPayload"`
}

func adminNodeView(n nodeRecord) AdminNode {
	payload, _ := json.Marshal(unlockPayload{NodeID: n.NodeID, QRSecret: n.CorrectCode})
	return AdminNode{
		NodeID:         n.NodeID,
		Clue:           n.Clue,
		Question:       n.Question,
		CorrectCode:    n.CorrectCode,
		ExpectedAnswer: n.ExpectedAnswer,
		IsActive:       n.IsActive,
		CreatedAt:      n.CreatedAt,
		QRPayload:      string(payload),
	}
}

func handleCreateNode(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateNodeRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Clue = strings.TrimSpace(req.Clue)
		req.Question = strings.TrimSpace(req.Question)
		if req.NodeID < 1 {
			writeError(w, http.StatusBadRequest, "nodeId must be a positive integer")
			return
		}
		if req.Clue == "" || req.Question == "" {
			writeError(w, http.StatusBadRequest, "clue and question are required")
			return
		}

		node, err := store.CreateNode(r.Context(), req.NodeID, req.Clue, req.Question, req.ExpectedAnswer)
		if errors.Is(err, ErrDuplicateNode) {
			writeError(w, http.StatusConflict, "a node with this sequence number already exists")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		view := adminNodeView(node)
		writeJSON(w, http.StatusCreated, CreateNodeResponse{
			Node:      view,
			QRPayload: view.QRPayload,
		})
	}
}

type UpdateNodeRequest struct {
	Clue           string `json:"clue"`
	Question       string `json:"question"`
	ExpectedAnswer string `json:"expectedAnswer,omitempty"`
	IsActive       bool   `json:"isActive"`
}

// handleUpdateNode edits a node in place. Nodes are never deleted, only
// deactivated, so submission history keeps pointing at real sequences.
func handleUpdateNode(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nodeID, err := strconv.Atoi(chi.URLParam(r, "nodeID"))
		if err != nil || nodeID < 1 {
			writeError(w, http.StatusBadRequest, "invalid node sequence")
			return
		}

		var req UpdateNodeRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Clue = strings.TrimSpace(req.Clue)
		req.Question = strings.TrimSpace(req.Question)
		if req.Clue == "" || req.Question == "" {
			writeError(w, http.StatusBadRequest, "clue and question are required")
			return
		}

		err = store.UpdateNode(r.Context(), nodeID, req.Clue, req.Question, req.ExpectedAnswer, req.IsActive)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "node not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func handleAdminListNodes(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := store.ListNodes(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		nodes := []AdminNode{}
		for _, n := range records {
			nodes = append(nodes, adminNodeView(n))
		}
		writeJSON(w, http.StatusOK, nodes)
	}
}

// handleListActiveNodes returns the public node list: clues only, no
// questions or secrets. Questions are revealed by a successful scan.
func handleListActiveNodes(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nodes, err := store.ListActiveNodes(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, nodes)
	}
}
