package server

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestVerifySecretBeforeInit(t *testing.T) {
	r, _ := testRouter(t)

	w := doRequest(t, r, http.MethodPost, "/api/admin/verify",
		VerifySecretRequest{Secret: "anything"}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp VerifySecretResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Valid {
		t.Error("expected valid=false when no settings exist")
	}
}

func TestInitAndVerifySecret(t *testing.T) {
	r, _ := testRouter(t)

	w := doRequest(t, r, http.MethodPost, "/api/admin/settings",
		InitSettingsRequest{TotalNodes: 6, PointsPerNode: 100, AdminSecret: "open-sesame"}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("init: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var settings Settings
	json.NewDecoder(w.Body).Decode(&settings)
	if !settings.GameActive {
		t.Error("init: expected gameActive=true")
	}

	for candidate, want := range map[string]bool{
		"open-sesame": true,
		"OPEN-SESAME": false, // case-sensitive
		"wrong":       false,
	} {
		w = doRequest(t, r, http.MethodPost, "/api/admin/verify",
			VerifySecretRequest{Secret: candidate}, "")
		var resp VerifySecretResponse
		json.NewDecoder(w.Body).Decode(&resp)
		if resp.Valid != want {
			t.Errorf("verify %q = %v, want %v", candidate, resp.Valid, want)
		}
	}
}

func TestAdminGate(t *testing.T) {
	r, _ := testRouter(t)
	const secret = "hunt-master"

	doRequest(t, r, http.MethodPost, "/api/admin/settings",
		InitSettingsRequest{TotalNodes: 1, PointsPerNode: 100, AdminSecret: secret}, "")

	// No header.
	w := doRequest(t, r, http.MethodGet, "/api/admin/stats", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no header: expected 401, got %d", w.Code)
	}

	// Wrong secret.
	w = doRequest(t, r, http.MethodGet, "/api/admin/stats", nil, "intruder")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong secret: expected 401, got %d", w.Code)
	}

	// Correct secret.
	w = doRequest(t, r, http.MethodGet, "/api/admin/stats", nil, secret)
	if w.Code != http.StatusOK {
		t.Errorf("correct secret: expected 200, got %d", w.Code)
	}
}

func TestReinitRequiresCurrentSecret(t *testing.T) {
	r, _ := testRouter(t)

	doRequest(t, r, http.MethodPost, "/api/admin/settings",
		InitSettingsRequest{TotalNodes: 4, PointsPerNode: 100, AdminSecret: "first"}, "")

	// Once settings exist, re-initialization needs the current secret.
	w := doRequest(t, r, http.MethodPost, "/api/admin/settings",
		InitSettingsRequest{TotalNodes: 9, PointsPerNode: 50, AdminSecret: "hijack"}, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated reinit: expected 401, got %d", w.Code)
	}

	w = doRequest(t, r, http.MethodPost, "/api/admin/settings",
		InitSettingsRequest{TotalNodes: 9, PointsPerNode: 50, AdminSecret: "second"}, "first")
	if w.Code != http.StatusCreated {
		t.Fatalf("authenticated reinit: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	// The secret rotated.
	var resp VerifySecretResponse
	w = doRequest(t, r, http.MethodPost, "/api/admin/verify", VerifySecretRequest{Secret: "second"}, "")
	json.NewDecoder(w.Body).Decode(&resp)
	if !resp.Valid {
		t.Error("expected new secret to verify")
	}
}

func TestSettingsValidation(t *testing.T) {
	r, _ := testRouter(t)

	tests := []struct {
		name string
		req  InitSettingsRequest
	}{
		{"zero nodes", InitSettingsRequest{TotalNodes: 0, PointsPerNode: 100, AdminSecret: "s"}},
		{"negative points", InitSettingsRequest{TotalNodes: 3, PointsPerNode: -10, AdminSecret: "s"}},
		{"blank secret", InitSettingsRequest{TotalNodes: 3, PointsPerNode: 100, AdminSecret: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, r, http.MethodPost, "/api/admin/settings", tt.req, "")
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
		})
	}
}

func TestUpdateAndToggleSettings(t *testing.T) {
	r, _ := testRouter(t)
	const secret = "hunt-master"

	doRequest(t, r, http.MethodPost, "/api/admin/settings",
		InitSettingsRequest{TotalNodes: 5, PointsPerNode: 100, AdminSecret: secret}, "")

	w := doRequest(t, r, http.MethodPut, "/api/admin/settings",
		UpdateSettingsRequest{TotalNodes: 7, GameActive: true, PointsPerNode: 200, AdminSecret: secret}, secret)
	if w.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(t, r, http.MethodPost, "/api/admin/settings/active",
		ToggleActiveRequest{Active: false}, secret)
	if w.Code != http.StatusOK {
		t.Fatalf("toggle: expected 200, got %d", w.Code)
	}

	var settings Settings
	w = doRequest(t, r, http.MethodGet, "/api/admin/settings", nil, secret)
	json.NewDecoder(w.Body).Decode(&settings)
	if settings.GameActive {
		t.Error("expected gameActive=false after toggle")
	}
	if settings.TotalNodes != 7 || settings.PointsPerNode != 200 {
		t.Errorf("toggle touched other fields: %+v", settings)
	}
}

func TestAdminNodeManagement(t *testing.T) {
	r, _ := testRouter(t)
	const secret = "hunt-master"

	doRequest(t, r, http.MethodPost, "/api/admin/settings",
		InitSettingsRequest{TotalNodes: 2, PointsPerNode: 100, AdminSecret: secret}, "")

	w := doRequest(t, r, http.MethodPost, "/api/admin/nodes",
		CreateNodeRequest{NodeID: 1, Clue: "clue", Question: "question", ExpectedAnswer: "ref"}, secret)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	// Duplicate sequence number.
	w = doRequest(t, r, http.MethodPost, "/api/admin/nodes",
		CreateNodeRequest{NodeID: 1, Clue: "other", Question: "other"}, secret)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate: expected 409, got %d", w.Code)
	}

	// Deactivate in place.
	w = doRequest(t, r, http.MethodPut, "/api/admin/nodes/1",
		UpdateNodeRequest{Clue: "clue", Question: "question", IsActive: false}, secret)
	if w.Code != http.StatusNoContent {
		t.Fatalf("update: expected 204, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(t, r, http.MethodPut, "/api/admin/nodes/42",
		UpdateNodeRequest{Clue: "c", Question: "q", IsActive: true}, secret)
	if w.Code != http.StatusNotFound {
		t.Errorf("update unknown: expected 404, got %d", w.Code)
	}

	// Admin listing still shows the deactivated node, with its secret.
	w = doRequest(t, r, http.MethodGet, "/api/admin/nodes", nil, secret)
	var nodes []AdminNode
	json.NewDecoder(w.Body).Decode(&nodes)
	if len(nodes) != 1 || nodes[0].IsActive {
		t.Fatalf("admin nodes = %+v, want one inactive node", nodes)
	}
	if nodes[0].CorrectCode == "" || nodes[0].QRPayload == "" {
		t.Error("admin listing should include the secret and QR payload")
	}
}

func TestReviewUnknownSubmissionHTTP(t *testing.T) {
	r, _ := testRouter(t)
	const secret = "hunt-master"

	doRequest(t, r, http.MethodPost, "/api/admin/settings",
		InitSettingsRequest{TotalNodes: 1, PointsPerNode: 100, AdminSecret: secret}, "")

	w := doRequest(t, r, http.MethodPost, "/api/admin/submissions/missing/review",
		ReviewRequest{Approved: true, ReviewedBy: "gm"}, secret)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
