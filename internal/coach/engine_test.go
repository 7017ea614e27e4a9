package coach

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bridgetext/coach/internal/domain"
	"github.com/bridgetext/coach/internal/safety"
)

type fakeRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	putErr   error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{sessions: make(map[string]*domain.Session)}
}

func (f *fakeRepo) GetSession(_ context.Context, userID string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess := f.sessions[userID]
	if sess == nil {
		return nil, nil
	}
	copied := *sess
	copied.History = append([]domain.Exchange(nil), sess.History...)
	return &copied, nil
}

func (f *fakeRepo) PutSession(_ context.Context, sess *domain.Session) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *sess
	copied.History = append([]domain.Exchange(nil), sess.History...)
	f.sessions[sess.UserID] = &copied
	return nil
}

func (f *fakeRepo) DeleteSession(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, userID)
	return nil
}

func (f *fakeRepo) Ping(_ context.Context) error { return nil }
func (f *fakeRepo) Close() error                 { return nil }

type fakeRetriever struct {
	snippets []string
	err      error
	calls    int
}

func (f *fakeRetriever) Query(_ context.Context, _ string, _ int) ([]string, error) {
	f.calls++
	return f.snippets, f.err
}

type fakeGenerator struct {
	reply   string
	err     error
	calls   int
	prompts []Prompt
}

func (f *fakeGenerator) Generate(_ context.Context, prompt Prompt) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newTestEngine(repo *fakeRepo, ret *fakeRetriever, gen *fakeGenerator) *Engine {
	return NewEngine(repo, safety.NewLexiconClassifier(), ret, gen, EngineConfig{
		MessageLimit:   10,
		RequestTimeout: time.Second,
	}, nil)
}

func TestEmptyMessageRejectedWithoutMutation(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	engine := newTestEngine(repo, &fakeRetriever{}, &fakeGenerator{reply: "ok"})

	if _, err := engine.ProcessTurn(context.Background(), "u1", "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if len(repo.sessions) != 0 {
		t.Error("validation failure must not create session state")
	}
}

func TestHarmfulInputReturnsCrisisMessage(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	gen := &fakeGenerator{reply: "ok"}
	engine := newTestEngine(repo, &fakeRetriever{}, gen)
	ctx := context.Background()

	sess := domain.NewSession("u1")
	sess.Stage = domain.StageFreeDialogue
	sess.Tone = domain.ToneCasual
	sess.TurnCount = 4
	if err := repo.PutSession(ctx, sess); err != nil {
		t.Fatal(err)
	}

	reply, err := engine.ProcessTurn(ctx, "u1", "my coworker brought a weapon to the office")
	if err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}
	if !strings.Contains(reply.Response, "988") {
		t.Errorf("expected crisis resources in reply, got %q", reply.Response)
	}
	if gen.calls != 0 {
		t.Error("harmful input must not reach the generator")
	}
	if got := repo.sessions["u1"]; got.TurnCount != 4 || got.Stage != domain.StageFreeDialogue {
		t.Errorf("safety block must not mutate session state: %+v", got)
	}
}

func TestOffTopicInputRedirectsWithoutGeneration(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{reply: "ok"}
	engine := newTestEngine(newFakeRepo(), &fakeRetriever{}, gen)

	reply, err := engine.ProcessTurn(context.Background(), "u1", "I keep getting a fever at work")
	if err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}
	if !strings.Contains(reply.Response, "medical professional") {
		t.Errorf("expected scope redirection, got %q", reply.Response)
	}
	if gen.calls != 0 {
		t.Error("off-topic input must not reach the generator")
	}
}

func TestGreetingOffersToneQuickReplies(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	gen := &fakeGenerator{reply: "ok"}
	engine := newTestEngine(repo, &fakeRetriever{}, gen)

	reply, err := engine.ProcessTurn(context.Background(), "u1", "hi")
	if err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}
	if len(reply.QuickReplies) != 2 || reply.QuickReplies[0] != "Professional" || reply.QuickReplies[1] != "Casual" {
		t.Errorf("expected tone quick replies, got %v", reply.QuickReplies)
	}
	if gen.calls != 0 {
		t.Error("greeting must not invoke the generator")
	}
	// Stage must not have advanced.
	if sess := repo.sessions["u1"]; sess != nil && sess.Stage != domain.StageAwaitingTone {
		t.Errorf("greeting advanced the stage: %+v", sess)
	}
}

func TestToneSelectionAdvancesToTopics(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	engine := newTestEngine(repo, &fakeRetriever{}, &fakeGenerator{reply: "ok"})

	reply, err := engine.ProcessTurn(context.Background(), "u1", "Casual")
	if err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}
	if !strings.Contains(reply.Response, "Casual") {
		t.Errorf("confirmation must reference the chosen tone: %q", reply.Response)
	}
	if len(reply.QuickReplies) != 4 {
		t.Errorf("expected the four topic quick replies, got %v", reply.QuickReplies)
	}

	sess := repo.sessions["u1"]
	if sess == nil || sess.Stage != domain.StageAwaitingTopic || sess.Tone != domain.ToneCasual {
		t.Errorf("unexpected session after tone selection: %+v", sess)
	}
	if sess.TurnCount != 0 {
		t.Error("tone selection must not count against the message limit")
	}
}

func TestTopicSelectionEntersFreeDialogue(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	gen := &fakeGenerator{reply: "ok"}
	engine := newTestEngine(repo, &fakeRetriever{}, gen)
	ctx := context.Background()

	sess := domain.NewSession("u1")
	sess.Stage = domain.StageAwaitingTopic
	sess.Tone = domain.ToneProfessional
	if err := repo.PutSession(ctx, sess); err != nil {
		t.Fatal(err)
	}

	reply, err := engine.ProcessTurn(ctx, "u1", "Team conflicts")
	if err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}
	if !strings.Contains(reply.Response, "team conflicts") {
		t.Errorf("acknowledgement must reference the topic: %q", reply.Response)
	}
	if len(reply.QuickReplies) != 0 {
		t.Errorf("free dialogue offers no quick replies, got %v", reply.QuickReplies)
	}
	if gen.calls != 0 {
		t.Error("topic acknowledgement is a fixed reply, not generated")
	}
	if got := repo.sessions["u1"]; got.Stage != domain.StageFreeDialogue {
		t.Errorf("expected free dialogue stage, got %q", got.Stage)
	}
}

func TestFreeFormTopicMessageIsAnsweredSameTurn(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	gen := &fakeGenerator{reply: "Let's unpack that."}
	engine := newTestEngine(repo, &fakeRetriever{}, gen)
	ctx := context.Background()

	sess := domain.NewSession("u1")
	sess.Stage = domain.StageAwaitingTopic
	sess.Tone = domain.ToneCasual
	if err := repo.PutSession(ctx, sess); err != nil {
		t.Fatal(err)
	}

	reply, err := engine.ProcessTurn(ctx, "u1", "my manager rewrites all my emails")
	if err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}
	if reply.Response != "Let's unpack that." {
		t.Errorf("expected generated reply, got %q", reply.Response)
	}
	if gen.calls != 1 {
		t.Errorf("expected one generator call, got %d", gen.calls)
	}

	got := repo.sessions["u1"]
	if got.Stage != domain.StageFreeDialogue || got.TurnCount != 1 {
		t.Errorf("unexpected session: %+v", got)
	}
	if len(got.History) != 1 || got.History[0].User != "my manager rewrites all my emails" {
		t.Errorf("message was lost: %+v", got.History)
	}
}

func TestFirstQuestionDefaultsToneAndAnswers(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	gen := &fakeGenerator{reply: "That sounds tough."}
	engine := newTestEngine(repo, &fakeRetriever{}, gen)

	reply, err := engine.ProcessTurn(context.Background(), "u1", "my team keeps missing deadlines and I can't adapt")
	if err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}
	if reply.Response != "That sounds tough." {
		t.Errorf("expected generated reply, got %q", reply.Response)
	}

	sess := repo.sessions["u1"]
	if sess.Tone != domain.ToneProfessional {
		t.Errorf("expected Professional default tone, got %q", sess.Tone)
	}
	if sess.Stage != domain.StageFreeDialogue {
		t.Errorf("expected free dialogue, got %q", sess.Stage)
	}
}

func TestLimitGateCapsCounter(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	gen := &fakeGenerator{reply: "ok"}
	engine := newTestEngine(repo, &fakeRetriever{}, gen)
	ctx := context.Background()

	sess := domain.NewSession("u1")
	sess.Stage = domain.StageFreeDialogue
	sess.Tone = domain.ToneProfessional
	sess.TurnCount = 10
	if err := repo.PutSession(ctx, sess); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		reply, err := engine.ProcessTurn(ctx, "u1", "one more question")
		if err != nil {
			t.Fatalf("ProcessTurn failed: %v", err)
		}
		if !reply.LimitReached {
			t.Fatal("expected limit_reached reply")
		}
		if !strings.Contains(reply.Response, "limit") {
			t.Errorf("expected upgrade message, got %q", reply.Response)
		}
	}

	if gen.calls != 0 {
		t.Error("limit gate must stop generator calls")
	}
	if got := repo.sessions["u1"]; got.TurnCount != 10 {
		t.Errorf("counter must stay capped at 10, got %d", got.TurnCount)
	}
}

func TestGeneratorFailureLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	gen := &fakeGenerator{err: errors.New("backend timeout")}
	engine := newTestEngine(repo, &fakeRetriever{}, gen)
	ctx := context.Background()

	sess := domain.NewSession("u1")
	sess.Stage = domain.StageFreeDialogue
	sess.Tone = domain.ToneCasual
	sess.TurnCount = 2
	sess.Append("earlier", "reply", time.Now())
	if err := repo.PutSession(ctx, sess); err != nil {
		t.Fatal(err)
	}

	reply, err := engine.ProcessTurn(ctx, "u1", "what should I do next")
	if err != nil {
		t.Fatalf("generator failure must not fail the turn: %v", err)
	}
	if reply.Response != apologyMessage {
		t.Errorf("expected apology message, got %q", reply.Response)
	}

	got := repo.sessions["u1"]
	if got.TurnCount != 2 || len(got.History) != 1 {
		t.Errorf("generator failure mutated state: %+v", got)
	}
}

func TestRetrievalFailureDegradesGracefully(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	ret := &fakeRetriever{err: errors.New("vector store down")}
	gen := &fakeGenerator{reply: "still coaching"}
	engine := newTestEngine(repo, ret, gen)
	ctx := context.Background()

	sess := domain.NewSession("u1")
	sess.Stage = domain.StageFreeDialogue
	sess.Tone = domain.ToneProfessional
	if err := repo.PutSession(ctx, sess); err != nil {
		t.Fatal(err)
	}

	reply, err := engine.ProcessTurn(ctx, "u1", "how do I handle this change")
	if err != nil {
		t.Fatalf("retrieval failure must not fail the turn: %v", err)
	}
	if reply.Response != "still coaching" {
		t.Errorf("expected generated reply, got %q", reply.Response)
	}
	if ret.calls != 1 || gen.calls != 1 {
		t.Errorf("expected retrieval then generation, got %d/%d calls", ret.calls, gen.calls)
	}
}

func TestMissingToneRecoversWithDefault(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	gen := &fakeGenerator{reply: "ok"}
	engine := newTestEngine(repo, &fakeRetriever{}, gen)
	ctx := context.Background()

	// Corrupt state: free dialogue with no tone.
	sess := domain.NewSession("u1")
	sess.Stage = domain.StageFreeDialogue
	if err := repo.PutSession(ctx, sess); err != nil {
		t.Fatal(err)
	}

	if _, err := engine.ProcessTurn(ctx, "u1", "help me out"); err != nil {
		t.Fatalf("invariant violation must not fail the turn: %v", err)
	}
	if got := repo.sessions["u1"]; got.Tone != domain.ToneProfessional {
		t.Errorf("expected default tone fallback, got %q", got.Tone)
	}
}
