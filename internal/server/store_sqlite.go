package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

var _ Store = (*SQLiteStore)(nil)

func newID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// newTeamCode generates the short human-entered code teams share to join.
// Upper-case alphanumerics, no lookalike risk worth engineering around.
func newTeamCode() string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, 6)
	rand.Read(b)
	for i := range b {
		b[i] = alphabet[int(b[i])%len(alphabet)]
	}
	return string(b)
}

func nowUTC() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}

// Teams

func (s *SQLiteStore) CreateTeam(ctx context.Context, name string, members []string) (Team, error) {
	membersJSON, err := json.Marshal(members)
	if err != nil {
		return Team{}, err
	}

	t := Team{
		ID:           newID(),
		Name:         name,
		Members:      members,
		CurrentStage: 1,
		Score:        0,
		CreatedAt:    nowUTC(),
	}

	// Retry on the (unlikely) team code collision.
	for range 5 {
		t.TeamCode = newTeamCode()
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO teams (id, name, members, team_code, current_stage, score, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, t.ID, t.Name, string(membersJSON), t.TeamCode, t.CurrentStage, t.Score, t.CreatedAt)
		if err == nil {
			return t, nil
		}
		if !isUniqueViolation(err) {
			return Team{}, err
		}
	}
	return Team{}, err
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func scanTeam(row interface{ Scan(...any) error }) (Team, error) {
	var t Team
	var membersJSON string
	err := row.Scan(&t.ID, &t.Name, &membersJSON, &t.TeamCode, &t.CurrentStage, &t.Score, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	if err := json.Unmarshal([]byte(membersJSON), &t.Members); err != nil {
		return t, err
	}
	return t, nil
}

const teamColumns = `id, name, members, team_code, current_stage, score, created_at`

func (s *SQLiteStore) TeamByCode(ctx context.Context, code string) (Team, error) {
	return scanTeam(s.db.QueryRowContext(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE team_code = ?`, code))
}

func (s *SQLiteStore) TeamByID(ctx context.Context, id string) (Team, error) {
	return scanTeam(s.db.QueryRowContext(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE id = ?`, id))
}

// Leaderboard orders by score, then stage, then earliest registration.
func (s *SQLiteStore) Leaderboard(ctx context.Context, limit int) ([]Team, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+teamColumns+` FROM teams
		ORDER BY score DESC, current_stage DESC, created_at ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := []Team{}
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// Nodes

func (s *SQLiteStore) CreateNode(ctx context.Context, nodeID int, clue, question, expectedAnswer string) (nodeRecord, error) {
	n := nodeRecord{
		Node: Node{
			NodeID:    nodeID,
			Clue:      clue,
			IsActive:  true,
			CreatedAt: nowUTC(),
		},
		Question:       question,
		CorrectCode:    newID(),
		ExpectedAnswer: expectedAnswer,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO nodes (id, node_id, clue, question, correct_code, expected_answer, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?)
	`, newID(), n.NodeID, n.Clue, n.Question, n.CorrectCode, n.ExpectedAnswer, n.CreatedAt)
	if isUniqueViolation(err) {
		return nodeRecord{}, ErrDuplicateNode
	}
	if err != nil {
		return nodeRecord{}, err
	}
	return n, nil
}

const nodeColumns = `node_id, clue, question, correct_code, expected_answer, is_active, created_at`

func scanNode(row interface{ Scan(...any) error }) (nodeRecord, error) {
	var n nodeRecord
	var active int
	err := row.Scan(&n.NodeID, &n.Clue, &n.Question, &n.CorrectCode, &n.ExpectedAnswer, &active, &n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return n, ErrNotFound
	}
	if err != nil {
		return n, err
	}
	n.IsActive = active == 1
	return n, nil
}

func (s *SQLiteStore) NodeBySequence(ctx context.Context, nodeID int) (nodeRecord, error) {
	return scanNode(s.db.QueryRowContext(ctx,
		`SELECT `+nodeColumns+` FROM nodes WHERE node_id = ?`, nodeID))
}

func (s *SQLiteStore) UpdateNode(ctx context.Context, nodeID int, clue, question, expectedAnswer string, isActive bool) error {
	active := 0
	if isActive {
		active = 1
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE nodes SET clue = ?, question = ?, expected_answer = ?, is_active = ?
		WHERE node_id = ?
	`, clue, question, expectedAnswer, active, nodeID)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) ListActiveNodes(ctx context.Context) ([]Node, error) {
	records, err := s.listNodes(ctx, `WHERE is_active = 1`)
	if err != nil {
		return nil, err
	}
	nodes := []Node{}
	for _, r := range records {
		nodes = append(nodes, r.Node)
	}
	return nodes, nil
}

func (s *SQLiteStore) ListNodes(ctx context.Context) ([]nodeRecord, error) {
	return s.listNodes(ctx, ``)
}

func (s *SQLiteStore) listNodes(ctx context.Context, where string) ([]nodeRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+nodeColumns+` FROM nodes `+where+` ORDER BY node_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []nodeRecord
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// Submissions

func (s *SQLiteStore) CreateSubmission(ctx context.Context, teamID string, nodeID int, answer string) (Submission, error) {
	sub := Submission{
		ID:              newID(),
		TeamID:          teamID,
		NodeID:          nodeID,
		SubmittedAnswer: answer,
		Status:          StatusPending,
		SubmittedAt:     nowUTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO submissions (id, team_id, node_id, submitted_answer, status, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sub.ID, sub.TeamID, sub.NodeID, sub.SubmittedAnswer, sub.Status, sub.SubmittedAt)
	if err != nil {
		return Submission{}, err
	}
	return sub, nil
}

func (s *SQLiteStore) HasPendingSubmission(ctx context.Context, teamID string, nodeID int) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM submissions
		WHERE team_id = ? AND node_id = ? AND status = 'pending'
	`, teamID, nodeID).Scan(&count)
	return count > 0, err
}

func (s *SQLiteStore) ListPendingSubmissions(ctx context.Context) ([]ReviewItem, error) {
	return s.listReviewItems(ctx, `WHERE sub.status = 'pending' ORDER BY sub.submitted_at`)
}

func (s *SQLiteStore) ListSubmissions(ctx context.Context) ([]ReviewItem, error) {
	return s.listReviewItems(ctx, `ORDER BY sub.submitted_at DESC`)
}

func (s *SQLiteStore) listReviewItems(ctx context.Context, tail string) ([]ReviewItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sub.id, sub.team_id, sub.node_id, sub.submitted_answer, sub.status,
			sub.submitted_at, COALESCE(sub.reviewed_at, ''), COALESCE(sub.reviewed_by, ''),
			t.name, t.current_stage
		FROM submissions sub
		JOIN teams t ON t.id = sub.team_id
		`+tail)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []ReviewItem{}
	for rows.Next() {
		var it ReviewItem
		if err := rows.Scan(&it.ID, &it.TeamID, &it.NodeID, &it.SubmittedAnswer, &it.Status,
			&it.SubmittedAt, &it.ReviewedAt, &it.ReviewedBy, &it.TeamName, &it.TeamStage); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *SQLiteStore) ListTeamSubmissions(ctx context.Context, teamID string) ([]Submission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, team_id, node_id, submitted_answer, status,
			submitted_at, COALESCE(reviewed_at, ''), COALESCE(reviewed_by, '')
		FROM submissions
		WHERE team_id = ?
		ORDER BY submitted_at
	`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := []Submission{}
	for rows.Next() {
		var sub Submission
		if err := rows.Scan(&sub.ID, &sub.TeamID, &sub.NodeID, &sub.SubmittedAnswer, &sub.Status,
			&sub.SubmittedAt, &sub.ReviewedAt, &sub.ReviewedBy); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// defaultPointsPerNode applies when a submission is approved before the
// settings singleton exists.
const defaultPointsPerNode = 100

// ReviewSubmission marks a pending submission accepted or rejected and, on
// approval, advances the team's stage and score in the same transaction so a
// reviewed-but-not-advanced state is never observable.
func (s *SQLiteStore) ReviewSubmission(ctx context.Context, id string, approved bool, reviewer string) (reviewOutcome, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return reviewOutcome{}, err
	}
	defer tx.Rollback()

	var out reviewOutcome
	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT team_id, node_id, status FROM submissions WHERE id = ?`, id,
	).Scan(&out.TeamID, &out.NodeID, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return reviewOutcome{}, ErrNotFound
	}
	if err != nil {
		return reviewOutcome{}, err
	}
	if status != StatusPending {
		return reviewOutcome{}, ErrAlreadyReviewed
	}

	newStatus := StatusRejected
	if approved {
		newStatus = StatusAccepted
	}
	out.Approved = approved

	// Guard on status again so the transition is single-shot even if a
	// concurrent review slipped between read and write.
	result, err := tx.ExecContext(ctx, `
		UPDATE submissions SET status = ?, reviewed_at = ?, reviewed_by = ?
		WHERE id = ? AND status = 'pending'
	`, newStatus, nowUTC(), reviewer, id)
	if err != nil {
		return reviewOutcome{}, err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return reviewOutcome{}, ErrAlreadyReviewed
	}

	if approved {
		points := defaultPointsPerNode
		var p int
		err := tx.QueryRowContext(ctx,
			`SELECT points_per_node FROM game_settings WHERE id = 1`,
		).Scan(&p)
		if err == nil {
			points = p
		} else if !errors.Is(err, sql.ErrNoRows) {
			return reviewOutcome{}, err
		}

		// Relative increments: concurrent advances serialize on the row
		// instead of losing updates through stale reads.
		err = tx.QueryRowContext(ctx, `
			UPDATE teams SET current_stage = current_stage + 1, score = score + ?
			WHERE id = ?
			RETURNING current_stage, score
		`, points, out.TeamID).Scan(&out.NewStage, &out.NewScore)
		if errors.Is(err, sql.ErrNoRows) {
			return reviewOutcome{}, ErrNotFound
		}
		if err != nil {
			return reviewOutcome{}, err
		}
		out.PointsAwarded = points
	}

	if err := tx.Commit(); err != nil {
		return reviewOutcome{}, err
	}
	return out, nil
}

// Settings

func (s *SQLiteStore) Settings(ctx context.Context) (Settings, error) {
	var set Settings
	var active int
	err := s.db.QueryRowContext(ctx, `
		SELECT total_nodes, game_active, points_per_node FROM game_settings WHERE id = 1
	`).Scan(&set.TotalNodes, &active, &set.PointsPerNode)
	if errors.Is(err, sql.ErrNoRows) {
		return Settings{}, ErrNoSettings
	}
	if err != nil {
		return Settings{}, err
	}
	set.GameActive = active == 1
	return set, nil
}

func (s *SQLiteStore) SaveSettings(ctx context.Context, set Settings, secretHash string) error {
	active := 0
	if set.GameActive {
		active = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO game_settings (id, total_nodes, game_active, points_per_node, admin_secret_hash)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			total_nodes = excluded.total_nodes,
			game_active = excluded.game_active,
			points_per_node = excluded.points_per_node,
			admin_secret_hash = excluded.admin_secret_hash
	`, set.TotalNodes, active, set.PointsPerNode, secretHash)
	return err
}

func (s *SQLiteStore) ToggleActive(ctx context.Context, active bool) error {
	v := 0
	if active {
		v = 1
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE game_settings SET game_active = ? WHERE id = 1`, v)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNoSettings
	}
	return nil
}

func (s *SQLiteStore) AdminSecretHash(ctx context.Context) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT admin_secret_hash FROM game_settings WHERE id = 1`).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoSettings
	}
	return hash, err
}

func (s *SQLiteStore) GameStats(ctx context.Context) (GameStats, error) {
	var st GameStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM teams),
			(SELECT COUNT(*) FROM submissions WHERE status = 'pending'),
			(SELECT COUNT(*) FROM submissions WHERE status = 'accepted'),
			(SELECT COUNT(*) FROM nodes WHERE is_active = 1),
			(SELECT COUNT(*) FROM submissions)
	`).Scan(&st.ActiveTeams, &st.PendingSubmissions, &st.CompletedSubmissions,
		&st.ActiveNodes, &st.TotalSubmissions)
	return st, err
}
