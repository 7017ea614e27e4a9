package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bridgetext/coach/internal/domain"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "coach.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestGetSessionMissingReturnsNil(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	sess, err := repo.GetSession(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if sess != nil {
		t.Fatalf("expected nil session, got %+v", sess)
	}
}

func TestPutSessionRoundTrip(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	sess := domain.NewSession("user-1")
	sess.Stage = domain.StageFreeDialogue
	sess.Tone = domain.ToneCasual
	sess.TurnCount = 3
	sess.Append("hi there", "hello!", time.Unix(1700000000, 0))

	if err := repo.PutSession(ctx, sess); err != nil {
		t.Fatalf("PutSession failed: %v", err)
	}

	got, err := repo.GetSession(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected session, got nil")
	}
	if got.Stage != domain.StageFreeDialogue || got.Tone != domain.ToneCasual || got.TurnCount != 3 {
		t.Errorf("unexpected session state: %+v", got)
	}
	if len(got.History) != 1 || got.History[0].User != "hi there" || got.History[0].AI != "hello!" {
		t.Errorf("unexpected history: %+v", got.History)
	}
	if !got.History[0].Timestamp.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("history timestamp not preserved: %v", got.History[0].Timestamp)
	}
}

func TestPutSessionReplacesExisting(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	sess := domain.NewSession("user-2")
	if err := repo.PutSession(ctx, sess); err != nil {
		t.Fatalf("PutSession failed: %v", err)
	}

	sess.Stage = domain.StageAwaitingTopic
	sess.Tone = domain.ToneProfessional
	if err := repo.PutSession(ctx, sess); err != nil {
		t.Fatalf("PutSession update failed: %v", err)
	}

	got, err := repo.GetSession(ctx, "user-2")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.Stage != domain.StageAwaitingTopic || got.Tone != domain.ToneProfessional {
		t.Errorf("update not applied: %+v", got)
	}
}

func TestDeleteSessionIsIdempotent(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	if err := repo.PutSession(ctx, domain.NewSession("user-3")); err != nil {
		t.Fatalf("PutSession failed: %v", err)
	}
	if err := repo.DeleteSession(ctx, "user-3"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	// Second delete must also succeed.
	if err := repo.DeleteSession(ctx, "user-3"); err != nil {
		t.Fatalf("repeated DeleteSession failed: %v", err)
	}

	got, err := repo.GetSession(ctx, "user-3")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got != nil {
		t.Fatalf("session not deleted: %+v", got)
	}
}
