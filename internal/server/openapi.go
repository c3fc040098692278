package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "QR Hunt API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the QR scavenger hunt game.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// POST /api/teams
	postTeams, _ := r.NewOperationContext(http.MethodPost, "/api/teams")
	postTeams.SetSummary("Register a team")
	postTeams.SetDescription("Creates a team with a member list. Returns the team and its join code.")
	postTeams.AddReqStructure(CreateTeamRequest{})
	postTeams.AddRespStructure(Team{}, openapi.WithHTTPStatus(http.StatusCreated))
	postTeams.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postTeams)

	// GET /api/teams/code/{teamCode}
	getTeam, _ := r.NewOperationContext(http.MethodGet, "/api/teams/code/{teamCode}")
	getTeam.SetSummary("Look up team by code")
	getTeam.SetDescription("Finds a team by its short join code.")
	getTeam.AddReqStructure(struct {
		TeamCode string `path:"teamCode"`
	}{})
	getTeam.AddRespStructure(Team{}, openapi.WithHTTPStatus(http.StatusOK))
	getTeam.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getTeam)

	// GET /api/teams/{teamID}/submissions
	getTeamSubs, _ := r.NewOperationContext(http.MethodGet, "/api/teams/{teamID}/submissions")
	getTeamSubs.SetSummary("Team submission history")
	getTeamSubs.AddReqStructure(struct {
		TeamID string `path:"teamID"`
	}{})
	getTeamSubs.AddRespStructure([]Submission{}, openapi.WithHTTPStatus(http.StatusOK))
	getTeamSubs.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getTeamSubs)

	// GET /api/leaderboard
	getLeaderboard, _ := r.NewOperationContext(http.MethodGet, "/api/leaderboard")
	getLeaderboard.SetSummary("Leaderboard")
	getLeaderboard.SetDescription("Teams ranked by score, then stage, then earliest registration.")
	getLeaderboard.AddRespStructure([]LeaderboardEntry{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getLeaderboard)

	// GET /api/nodes
	getNodes, _ := r.NewOperationContext(http.MethodGet, "/api/nodes")
	getNodes.SetSummary("List active nodes")
	getNodes.SetDescription("Public node list: sequence numbers and clues only.")
	getNodes.AddRespStructure([]Node{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getNodes)

	// POST /api/scan
	postScan, _ := r.NewOperationContext(http.MethodPost, "/api/scan")
	postScan.SetSummary("Validate a scanned code")
	postScan.SetDescription("Checks a scanned QR payload against the team's current node. Read-only.")
	postScan.AddReqStructure(ScanRequest{})
	postScan.AddRespStructure(ScanResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postScan.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postScan)

	// POST /api/answers
	postAnswers, _ := r.NewOperationContext(http.MethodPost, "/api/answers")
	postAnswers.SetSummary("Submit an answer")
	postAnswers.SetDescription("Records a free-text answer for the team's current node, pending admin review.")
	postAnswers.AddReqStructure(SubmitAnswerRequest{})
	postAnswers.AddRespStructure(Submission{}, openapi.WithHTTPStatus(http.StatusCreated))
	postAnswers.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postAnswers)

	// GET /api/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events stream of review and progression events for a team.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// POST /api/admin/verify
	postVerify, _ := r.NewOperationContext(http.MethodPost, "/api/admin/verify")
	postVerify.SetSummary("Verify admin secret")
	postVerify.AddReqStructure(VerifySecretRequest{})
	postVerify.AddRespStructure(VerifySecretResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(postVerify)

	// POST /api/admin/settings
	postSettings, _ := r.NewOperationContext(http.MethodPost, "/api/admin/settings")
	postSettings.SetSummary("Initialize settings")
	postSettings.SetDescription("Creates or overwrites the settings singleton and activates the game.")
	postSettings.AddReqStructure(InitSettingsRequest{})
	postSettings.AddRespStructure(Settings{}, openapi.WithHTTPStatus(http.StatusCreated))
	postSettings.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postSettings)

	// GET /api/admin/settings
	getSettings, _ := r.NewOperationContext(http.MethodGet, "/api/admin/settings")
	getSettings.SetSummary("Get settings")
	getSettings.AddRespStructure(Settings{}, openapi.WithHTTPStatus(http.StatusOK))
	getSettings.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getSettings)

	// PUT /api/admin/settings
	putSettings, _ := r.NewOperationContext(http.MethodPut, "/api/admin/settings")
	putSettings.SetSummary("Update settings")
	putSettings.AddReqStructure(UpdateSettingsRequest{})
	putSettings.AddRespStructure(Settings{}, openapi.WithHTTPStatus(http.StatusOK))
	putSettings.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(putSettings)

	// POST /api/admin/settings/active
	postActive, _ := r.NewOperationContext(http.MethodPost, "/api/admin/settings/active")
	postActive.SetSummary("Pause or resume the game")
	postActive.AddReqStructure(ToggleActiveRequest{})
	postActive.AddRespStructure(Settings{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(postActive)

	// GET /api/admin/stats
	getStats, _ := r.NewOperationContext(http.MethodGet, "/api/admin/stats")
	getStats.SetSummary("Game statistics")
	getStats.AddRespStructure(GameStats{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getStats)

	// POST /api/admin/nodes
	postNodes, _ := r.NewOperationContext(http.MethodPost, "/api/admin/nodes")
	postNodes.SetSummary("Create a node")
	postNodes.SetDescription("Creates a hunt node and returns the payload to encode into its QR code.")
	postNodes.AddReqStructure(CreateNodeRequest{})
	postNodes.AddRespStructure(CreateNodeResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postNodes.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postNodes)

	// GET /api/admin/nodes
	getAdminNodes, _ := r.NewOperationContext(http.MethodGet, "/api/admin/nodes")
	getAdminNodes.SetSummary("List all nodes")
	getAdminNodes.AddRespStructure([]AdminNode{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getAdminNodes)

	// PUT /api/admin/nodes/{nodeID}
	putNode, _ := r.NewOperationContext(http.MethodPut, "/api/admin/nodes/{nodeID}")
	putNode.SetSummary("Update a node")
	putNode.AddReqStructure(struct {
		NodeID int `path:"nodeID"`
	}{})
	putNode.AddReqStructure(UpdateNodeRequest{})
	putNode.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	putNode.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(putNode)

	// GET /api/admin/submissions
	getSubs, _ := r.NewOperationContext(http.MethodGet, "/api/admin/submissions")
	getSubs.SetSummary("List all submissions")
	getSubs.AddRespStructure([]ReviewItem{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getSubs)

	// GET /api/admin/submissions/pending
	getPending, _ := r.NewOperationContext(http.MethodGet, "/api/admin/submissions/pending")
	getPending.SetSummary("List pending submissions")
	getPending.AddRespStructure([]ReviewItem{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getPending)

	// POST /api/admin/submissions/{id}/review
	postReview, _ := r.NewOperationContext(http.MethodPost, "/api/admin/submissions/{id}/review")
	postReview.SetSummary("Review a submission")
	postReview.SetDescription("Accepts or rejects a pending submission. Approval advances the team.")
	postReview.AddReqStructure(struct {
		ID int `path:"id"`
	}{})
	postReview.AddReqStructure(ReviewRequest{})
	postReview.AddRespStructure(ReviewResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postReview.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postReview.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postReview)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write(data)
	}
}
