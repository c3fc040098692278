package server

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyReviewed = errors.New("submission already reviewed")
	ErrNoSettings      = errors.New("game settings not initialized")
	ErrDuplicateNode   = errors.New("node sequence already exists")
)

// Submission review states. A submission moves pending -> accepted or
// pending -> rejected exactly once and never back.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

type Team struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Members      []string `json:"members"`
	TeamCode     string   `json:"teamCode"`
	CurrentStage int      `json:"currentStage"`
	Score        int      `json:"score"`
	CreatedAt    string   `json:"createdAt"`
}

// Node is the public view of a hunt node. The unlock secret lives only in
// nodeRecord and is never serialized here.
type Node struct {
	NodeID    int    `json:"nodeId"`
	Clue      string `json:"clue"`
	IsActive  bool   `json:"isActive"`
	CreatedAt string `json:"createdAt"`
}

// nodeRecord is the full stored node, including fields reserved for the
// admin surface and scan validation.
type nodeRecord struct {
	Node
	Question       string
	CorrectCode    string
	ExpectedAnswer string
}

type Submission struct {
	ID              string `json:"id"`
	TeamID          string `json:"teamId"`
	NodeID          int    `json:"nodeId"`
	SubmittedAnswer string `json:"submittedAnswer"`
	Status          string `json:"status"`
	SubmittedAt     string `json:"submittedAt"`
	ReviewedAt      string `json:"reviewedAt,omitempty"`
	ReviewedBy      string `json:"reviewedBy,omitempty"`
}

// ReviewItem is a submission joined with team display data for admin queues.
type ReviewItem struct {
	Submission
	TeamName  string `json:"teamName"`
	TeamStage int    `json:"teamStage"`
}

type Settings struct {
	TotalNodes    int  `json:"totalNodes"`
	GameActive    bool `json:"gameActive"`
	PointsPerNode int  `json:"pointsPerNode"`
}

type GameStats struct {
	ActiveTeams          int `json:"activeTeams"`
	PendingSubmissions   int `json:"pendingSubmissions"`
	CompletedSubmissions int `json:"completedSubmissions"`
	ActiveNodes          int `json:"activeNodes"`
	TotalSubmissions     int `json:"totalSubmissions"`
}

// reviewOutcome reports what a review decision did, for the caller to
// publish events and build the response.
type reviewOutcome struct {
	TeamID        string
	NodeID        int
	Approved      bool
	PointsAwarded int
	NewStage      int
	NewScore      int
}

type Store interface {
	CreateTeam(ctx context.Context, name string, members []string) (Team, error)
	TeamByCode(ctx context.Context, code string) (Team, error)
	TeamByID(ctx context.Context, id string) (Team, error)
	Leaderboard(ctx context.Context, limit int) ([]Team, error)

	CreateNode(ctx context.Context, nodeID int, clue, question, expectedAnswer string) (nodeRecord, error)
	NodeBySequence(ctx context.Context, nodeID int) (nodeRecord, error)
	UpdateNode(ctx context.Context, nodeID int, clue, question, expectedAnswer string, isActive bool) error
	ListActiveNodes(ctx context.Context) ([]Node, error)
	ListNodes(ctx context.Context) ([]nodeRecord, error)

	CreateSubmission(ctx context.Context, teamID string, nodeID int, answer string) (Submission, error)
	HasPendingSubmission(ctx context.Context, teamID string, nodeID int) (bool, error)
	ListPendingSubmissions(ctx context.Context) ([]ReviewItem, error)
	ListSubmissions(ctx context.Context) ([]ReviewItem, error)
	ListTeamSubmissions(ctx context.Context, teamID string) ([]Submission, error)
	ReviewSubmission(ctx context.Context, id string, approved bool, reviewer string) (reviewOutcome, error)

	Settings(ctx context.Context) (Settings, error)
	SaveSettings(ctx context.Context, s Settings, secretHash string) error
	ToggleActive(ctx context.Context, active bool) error
	AdminSecretHash(ctx context.Context) (string, error)
	GameStats(ctx context.Context) (GameStats, error)
}
