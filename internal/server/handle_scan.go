package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// unlockPayload is the decoded contents of a node's printed QR code. The
// two-field shape is an external contract: it is what physically hangs at
// each location.
type unlockPayload struct {
	NodeID   int    `json:"nodeId"`
	QRSecret string `json:"qrSecret"`
}

type ScanRequest struct {
	TeamID  string `json:"teamId"`
	Payload string `json:"payload"`
}

// Scan outcome reasons. Out-of-order and wrong-code are deliberately
// distinct so the UI can show different messages.
const (
	ReasonMalformedPayload = "malformed_payload"
	ReasonUnknownTeam      = "unknown_team"
	ReasonUnknownNode      = "unknown_node"
	ReasonOutOfSequence    = "out_of_sequence"
	ReasonWrongCode        = "wrong_code"
)

type ScanNode struct {
	NodeID   int    `json:"nodeId"`
	Clue     string `json:"clue"`
	Question string `json:"question"`
}

type ScanResponse struct {
	Valid   bool      `json:"valid"`
	Reason  string    `json:"reason,omitempty"`
	Message string    `json:"message,omitempty"`
	Node    *ScanNode `json:"node,omitempty"`
}

func scanFailure(reason, message string) ScanResponse {
	return ScanResponse{Valid: false, Reason: reason, Message: message}
}

// handleScan validates a scanned QR payload against the team's current
// stage. Validation is read-only: nothing changes until an answer is
// submitted and accepted, so scan spam cannot affect scores.
func handleScan(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ScanRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.TeamID == "" {
			writeError(w, http.StatusBadRequest, "teamId is required")
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

		var payload unlockPayload
		if err := json.Unmarshal([]byte(strings.TrimSpace(req.Payload)), &payload); err != nil {
			writeJSON(w, http.StatusOK, scanFailure(ReasonMalformedPayload, "Unreadable code. Try scanning again."))
			return
		}

		team, err := store.TeamByID(r.Context(), req.TeamID)
		if errors.Is(err, ErrNotFound) {
			writeJSON(w, http.StatusOK, scanFailure(ReasonUnknownTeam, "Team not found."))
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		node, err := store.NodeBySequence(r.Context(), payload.NodeID)
		if errors.Is(err, ErrNotFound) {
			writeJSON(w, http.StatusOK, scanFailure(ReasonUnknownNode, "This code does not belong to the hunt."))
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		// A deactivated node is indistinguishable from a missing one.
		if !node.IsActive {
			writeJSON(w, http.StatusOK, scanFailure(ReasonUnknownNode, "This code does not belong to the hunt."))
			return
		}

		// Sequence before secret: scanning ahead with a valid code is still
		// out of order, and the response must not confirm the code was right.
		if team.CurrentStage != node.NodeID {
			writeJSON(w, http.StatusOK, scanFailure(ReasonOutOfSequence, "Wrong sequence! Complete previous nodes first."))
			return
		}

		if payload.QRSecret != node.CorrectCode {
			writeJSON(w, http.StatusOK, scanFailure(ReasonWrongCode, "Wrong place! Keep exploring."))
			return
		}

		writeJSON(w, http.StatusOK, ScanResponse{
			Valid: true,
			Node: &ScanNode{
				NodeID:   node.NodeID,
				Clue:     node.Clue,
				Question: node.Question,
			},
		})
	}
}
