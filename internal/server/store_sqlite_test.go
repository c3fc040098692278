package server

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/huntworks/qrhunt/internal/database"
	"github.com/huntworks/qrhunt/internal/migrations"
)

func setupStore(t *testing.T) (*SQLiteStore, *sql.DB) {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Run(db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	return NewSQLiteStore(db), db
}

func TestCreateTeamDefaults(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	team, err := store.CreateTeam(ctx, "Trailblazers", []string{"Ana", "Ben"})
	if err != nil {
		t.Fatalf("create team: %v", err)
	}

	if team.CurrentStage != 1 {
		t.Errorf("currentStage = %d, want 1", team.CurrentStage)
	}
	if team.Score != 0 {
		t.Errorf("score = %d, want 0", team.Score)
	}
	if len(team.TeamCode) != 6 {
		t.Errorf("teamCode = %q, want 6 characters", team.TeamCode)
	}

	got, err := store.TeamByCode(ctx, team.TeamCode)
	if err != nil {
		t.Fatalf("lookup by code: %v", err)
	}
	if got.ID != team.ID {
		t.Errorf("lookup returned team %q, want %q", got.ID, team.ID)
	}
	if len(got.Members) != 2 || got.Members[0] != "Ana" {
		t.Errorf("members = %v, want [Ana Ben]", got.Members)
	}
}

func TestLeaderboardOrdering(t *testing.T) {
	store, db := setupStore(t)
	ctx := context.Background()

	// Same score everywhere: stage breaks the tie, then earliest creation.
	fixtures := []struct {
		name      string
		score     int
		stage     int
		createdAt string
	}{
		{"A", 300, 4, "2026-08-01T10:01:00.000Z"},
		{"B", 300, 5, "2026-08-01T10:02:00.000Z"},
		{"C", 300, 5, "2026-08-01T10:00:00.000Z"},
	}
	for _, f := range fixtures {
		team, err := store.CreateTeam(ctx, f.name, []string{"p"})
		if err != nil {
			t.Fatalf("create team %s: %v", f.name, err)
		}
		_, err = db.ExecContext(ctx,
			`UPDATE teams SET score = ?, current_stage = ?, created_at = ? WHERE id = ?`,
			f.score, f.stage, f.createdAt, team.ID)
		if err != nil {
			t.Fatalf("seed team %s: %v", f.name, err)
		}
	}

	teams, err := store.Leaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}

	var got []string
	for _, team := range teams {
		got = append(got, team.Name)
	}
	want := []string{"C", "B", "A"}
	if len(got) != len(want) {
		t.Fatalf("got %d teams, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rank %d = %s, want %s (full order %v)", i+1, got[i], want[i], got)
		}
	}
}

func TestReviewApproveAdvancesOnce(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	team, err := store.CreateTeam(ctx, "Seekers", []string{"Lea"})
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	sub, err := store.CreateSubmission(ctx, team.ID, 1, "the old fountain")
	if err != nil {
		t.Fatalf("create submission: %v", err)
	}

	out, err := store.ReviewSubmission(ctx, sub.ID, true, "admin")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if out.NewStage != 2 {
		t.Errorf("newStage = %d, want 2", out.NewStage)
	}
	// No settings yet, so the default point value applies.
	if out.PointsAwarded != 100 || out.NewScore != 100 {
		t.Errorf("points = %d score = %d, want 100/100", out.PointsAwarded, out.NewScore)
	}

	// Re-review must not double-credit.
	if _, err := store.ReviewSubmission(ctx, sub.ID, true, "admin"); !errors.Is(err, ErrAlreadyReviewed) {
		t.Fatalf("second review: got %v, want ErrAlreadyReviewed", err)
	}

	got, err := store.TeamByID(ctx, team.ID)
	if err != nil {
		t.Fatalf("reload team: %v", err)
	}
	if got.CurrentStage != 2 || got.Score != 100 {
		t.Errorf("team stage/score = %d/%d, want 2/100", got.CurrentStage, got.Score)
	}
}

func TestReviewRejectDoesNotAdvance(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	team, _ := store.CreateTeam(ctx, "Wanderers", []string{"Kim"})
	sub, _ := store.CreateSubmission(ctx, team.ID, 1, "a guess")

	out, err := store.ReviewSubmission(ctx, sub.ID, false, "admin")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if out.Approved {
		t.Error("expected approved=false")
	}

	got, _ := store.TeamByID(ctx, team.ID)
	if got.CurrentStage != 1 || got.Score != 0 {
		t.Errorf("team stage/score = %d/%d, want 1/0", got.CurrentStage, got.Score)
	}

	subs, err := store.ListTeamSubmissions(ctx, team.ID)
	if err != nil {
		t.Fatalf("list submissions: %v", err)
	}
	if len(subs) != 1 || subs[0].Status != StatusRejected {
		t.Errorf("submissions = %+v, want one rejected", subs)
	}
	if subs[0].ReviewedBy != "admin" || subs[0].ReviewedAt == "" {
		t.Errorf("review stamps missing: %+v", subs[0])
	}
}

func TestReviewUnknownSubmission(t *testing.T) {
	store, _ := setupStore(t)

	if _, err := store.ReviewSubmission(context.Background(), "nope", true, "admin"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestReviewUsesConfiguredPoints(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	if err := store.SaveSettings(ctx, Settings{TotalNodes: 5, GameActive: true, PointsPerNode: 250}, "hash"); err != nil {
		t.Fatalf("save settings: %v", err)
	}

	team, _ := store.CreateTeam(ctx, "Pathfinders", []string{"Mo"})
	sub, _ := store.CreateSubmission(ctx, team.ID, 1, "answer")

	out, err := store.ReviewSubmission(ctx, sub.ID, true, "admin")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if out.PointsAwarded != 250 || out.NewScore != 250 {
		t.Errorf("points = %d score = %d, want 250/250", out.PointsAwarded, out.NewScore)
	}
}

func TestCreateNodeDuplicateSequence(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	if _, err := store.CreateNode(ctx, 1, "clue", "question", ""); err != nil {
		t.Fatalf("create node: %v", err)
	}
	if _, err := store.CreateNode(ctx, 1, "other clue", "other question", ""); !errors.Is(err, ErrDuplicateNode) {
		t.Fatalf("got %v, want ErrDuplicateNode", err)
	}
}

func TestNodeSecretsAreUnique(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	a, _ := store.CreateNode(ctx, 1, "c", "q", "")
	b, _ := store.CreateNode(ctx, 2, "c", "q", "")

	if a.CorrectCode == b.CorrectCode {
		t.Error("two nodes share an unlock secret")
	}
	if len(a.CorrectCode) != 32 {
		t.Errorf("secret length = %d, want 32 hex chars", len(a.CorrectCode))
	}
}

func TestSettingsLifecycle(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	if _, err := store.Settings(ctx); !errors.Is(err, ErrNoSettings) {
		t.Fatalf("got %v, want ErrNoSettings", err)
	}
	if err := store.ToggleActive(ctx, false); !errors.Is(err, ErrNoSettings) {
		t.Fatalf("toggle before init: got %v, want ErrNoSettings", err)
	}
	if _, err := store.AdminSecretHash(ctx); !errors.Is(err, ErrNoSettings) {
		t.Fatalf("hash before init: got %v, want ErrNoSettings", err)
	}

	if err := store.SaveSettings(ctx, Settings{TotalNodes: 8, GameActive: true, PointsPerNode: 100}, "hash-1"); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := store.ToggleActive(ctx, false); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	got, err := store.Settings(ctx)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if got.GameActive {
		t.Error("expected gameActive=false after toggle")
	}
	if got.TotalNodes != 8 || got.PointsPerNode != 100 {
		t.Errorf("toggle touched other fields: %+v", got)
	}

	// Upsert overwrites the singleton in place.
	if err := store.SaveSettings(ctx, Settings{TotalNodes: 3, GameActive: true, PointsPerNode: 50}, "hash-2"); err != nil {
		t.Fatalf("second save: %v", err)
	}
	hash, err := store.AdminSecretHash(ctx)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash != "hash-2" {
		t.Errorf("hash = %q, want hash-2", hash)
	}
}

func TestGameStats(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	teamA, _ := store.CreateTeam(ctx, "A", []string{"x"})
	store.CreateTeam(ctx, "B", []string{"y"})

	store.CreateNode(ctx, 1, "c", "q", "")
	node2, _ := store.CreateNode(ctx, 2, "c", "q", "")
	store.UpdateNode(ctx, node2.NodeID, "c", "q", "", false)

	s1, _ := store.CreateSubmission(ctx, teamA.ID, 1, "one")
	store.CreateSubmission(ctx, teamA.ID, 1, "two")
	store.ReviewSubmission(ctx, s1.ID, true, "admin")

	stats, err := store.GameStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	want := GameStats{
		ActiveTeams:          2,
		PendingSubmissions:   1,
		CompletedSubmissions: 1,
		ActiveNodes:          1,
		TotalSubmissions:     2,
	}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}
