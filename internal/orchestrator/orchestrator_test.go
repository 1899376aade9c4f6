package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/concierge-labs/concierge/internal/handler"
	"github.com/concierge-labs/concierge/internal/handlers"
	"github.com/concierge-labs/concierge/internal/registry"
	"github.com/concierge-labs/concierge/internal/state"
	"github.com/concierge-labs/concierge/pkg/models"
)

// openTestStore creates a migrated temporary SQLite store.
func openTestStore(t *testing.T) *state.DB {
	t.Helper()
	db, err := state.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// ulidLike produces distinct sortable IDs for fixtures.
func ulidLike(i int) string {
	return fmt.Sprintf("01TEST%020d", i)
}

func builtinOrchestrator(t *testing.T, store state.Store) *Orchestrator {
	t.Helper()
	routing, err := registry.NewRouting(handlers.Builtin(nil), registry.Config{})
	if err != nil {
		t.Fatalf("NewRouting: %v", err)
	}
	o, err := New(Options{Routing: routing, Store: store})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { o.Close() })
	return o
}

func TestProcessTurnReturnMerchandise(t *testing.T) {
	o := builtinOrchestrator(t, nil)

	res := o.ProcessTurn(context.Background(), "return a product", "", "user-1", registry.RequestContext{})

	if !res.Success {
		t.Fatalf("expected success, got code %s", res.ErrorCode)
	}
	if !containsIntent(res.IntentsIdentified, models.IntentOrderManagement) {
		t.Errorf("expected order_management intent, got %v", res.IntentsIdentified)
	}
	if containsIntent(res.IntentsIdentified, models.IntentSearch) {
		t.Errorf("short singular return must not classify as search: %v", res.IntentsIdentified)
	}
	if !containsString(res.HandlersUsed, "order-management") {
		t.Errorf("expected order handler, got %v", res.HandlersUsed)
	}
}

func TestProcessTurnReturnAllIsBrowse(t *testing.T) {
	o := builtinOrchestrator(t, nil)

	res := o.ProcessTurn(context.Background(), "return all products", "", "user-1", registry.RequestContext{})

	if !containsIntent(res.IntentsIdentified, models.IntentSearch) {
		t.Errorf("plural return must classify as search, got %v", res.IntentsIdentified)
	}
	if containsIntent(res.IntentsIdentified, models.IntentOrderManagement) {
		t.Errorf("plural return must not classify as order_management: %v", res.IntentsIdentified)
	}
}

func TestProcessTurnExplicitAgentRequest(t *testing.T) {
	o := builtinOrchestrator(t, nil)

	res := o.ProcessTurn(context.Background(), "speak to an agent", "", "user-1", registry.RequestContext{})

	if !res.Success {
		t.Fatalf("expected success, got code %s", res.ErrorCode)
	}
	if !res.Escalate {
		t.Error("an explicit agent request must escalate")
	}
	if !containsString(res.HandlersUsed, "escalation") {
		t.Errorf("expected the escalation handler, got %v", res.HandlersUsed)
	}
	// The transition message is the whole answer; the generic failure line
	// must not lead it.
	if !strings.HasPrefix(res.ResponseText, "I'm connecting you") {
		t.Errorf("transition must be the primary response, got %q", res.ResponseText)
	}
	if strings.Contains(res.ResponseText, genericResponse) {
		t.Errorf("generic fallback must not appear on a successful handoff: %q", res.ResponseText)
	}
}

func TestProcessTurnFallbackRunsAtHigh(t *testing.T) {
	var sawPriority models.Priority
	probe := &stubHandler{id: "probe-fallback", intents: []models.Intent{models.IntentGeneral}, priority: models.PriorityLow,
		exec: func(ctx context.Context, req handler.Request) (handler.Result, error) {
			sawPriority = req.Priority
			return handler.Result{HandlerID: "probe-fallback", Text: "ok", Confidence: 0.9}, nil
		}}

	// Route the general intent away so an unmatched utterance produces an
	// empty union and exercises the fallback substitution.
	routing, err := registry.NewRouting([]handler.Handler{probe}, registry.Config{
		Routes:   map[models.Intent][]string{models.IntentGeneral: {}},
		Fallback: "probe-fallback",
	})
	if err != nil {
		t.Fatalf("NewRouting: %v", err)
	}
	o, err := New(Options{Routing: routing})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer o.Close()

	res := o.ProcessTurn(context.Background(), "xyzzy plugh", "", "", registry.RequestContext{})

	if !containsIntent(res.IntentsIdentified, models.IntentGeneral) {
		t.Errorf("expected fallback intent, got %v", res.IntentsIdentified)
	}
	if !containsString(res.HandlersUsed, "probe-fallback") {
		t.Errorf("fallback handler must run, got %v", res.HandlersUsed)
	}
	if sawPriority != models.PriorityHigh {
		t.Errorf("fallback handler must run at high priority, got %s", sawPriority)
	}
}

func TestProcessTurnUrgentPromotesAll(t *testing.T) {
	var priorities []models.Priority
	mk := func(id string, p models.Priority) *stubHandler {
		return &stubHandler{id: id, intents: []models.Intent{models.IntentSearch}, priority: p,
			exec: func(ctx context.Context, req handler.Request) (handler.Result, error) {
				priorities = append(priorities, req.Priority)
				return handler.Result{HandlerID: id, Text: "ok", Confidence: 0.9}, nil
			}}
	}
	routing, err := registry.NewRouting([]handler.Handler{
		mk("a", models.PriorityLow),
		mk("b", models.PriorityMedium),
		okStub("general", models.IntentGeneral),
	}, registry.Config{})
	if err != nil {
		t.Fatalf("NewRouting: %v", err)
	}
	o, err := New(Options{Routing: routing})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer o.Close()

	res := o.ProcessTurn(context.Background(), "search for things", "", "", registry.RequestContext{Urgent: true})

	if len(priorities) != 2 {
		t.Fatalf("expected 2 handler runs, got %d", len(priorities))
	}
	for i, p := range priorities {
		if p != models.PriorityCritical {
			t.Errorf("handler %d ran at %s, want critical", i, p)
		}
	}
	if res.HandlersUsed[0] != "a" {
		t.Errorf("registration order must break the critical tie, got %v", res.HandlersUsed)
	}
}

func TestProcessTurnFaultEscalatesAndContinues(t *testing.T) {
	faulty := &stubHandler{id: "faulty", intents: []models.Intent{models.IntentSearch}, priority: models.PriorityCritical,
		exec: func(ctx context.Context, req handler.Request) (handler.Result, error) {
			return handler.Result{}, fmt.Errorf("store offline")
		}}
	after := &stubHandler{id: "after", intents: []models.Intent{models.IntentSearch}, priority: models.PriorityLow,
		exec: func(ctx context.Context, req handler.Request) (handler.Result, error) {
			return handler.Result{HandlerID: "after", Text: "recovered", Confidence: 0.9}, nil
		}}
	routing, err := registry.NewRouting([]handler.Handler{
		faulty, after, okStub("general", models.IntentGeneral),
	}, registry.Config{})
	if err != nil {
		t.Fatalf("NewRouting: %v", err)
	}
	o, err := New(Options{Routing: routing})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer o.Close()

	res := o.ProcessTurn(context.Background(), "search for things", "", "", registry.RequestContext{})

	if !res.Escalate {
		t.Error("a handler fault must escalate the turn")
	}
	if !res.Success {
		t.Error("a contained handler fault is not a turn-level failure")
	}
	if !containsString(res.HandlersUsed, "after") {
		t.Errorf("later handlers must still run, got %v", res.HandlersUsed)
	}
	if res.Summary.Failed != 1 {
		t.Errorf("expected one failed handler in the summary, got %d", res.Summary.Failed)
	}
	if res.ResponseText == "" {
		t.Error("turn must still produce a response")
	}
}

func TestProcessTurnNeverRaises(t *testing.T) {
	panicky := &stubHandler{id: "panicky", intents: []models.Intent{models.IntentGeneral}, priority: models.PriorityHigh,
		exec: func(ctx context.Context, req handler.Request) (handler.Result, error) {
			panic("catastrophe")
		}}
	routing, err := registry.NewRouting([]handler.Handler{panicky}, registry.Config{})
	if err != nil {
		t.Fatalf("NewRouting: %v", err)
	}
	o, err := New(Options{Routing: routing})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer o.Close()

	res := o.ProcessTurn(context.Background(), "hello", "", "", registry.RequestContext{})

	if res.ResponseText == "" {
		t.Error("even a fully failed turn must produce response text")
	}
	if res.Metadata.TurnID == "" || res.Metadata.SessionID == "" {
		t.Error("metadata must identify the turn and session")
	}
}

func TestProcessTurnAssignsSession(t *testing.T) {
	o := builtinOrchestrator(t, nil)

	res := o.ProcessTurn(context.Background(), "hello", "", "", registry.RequestContext{})
	if res.Metadata.SessionID == "" {
		t.Fatal("expected a generated session ID")
	}

	// A supplied session ID is kept.
	res2 := o.ProcessTurn(context.Background(), "hello", "my-session", "", registry.RequestContext{})
	if res2.Metadata.SessionID != "my-session" {
		t.Errorf("expected my-session, got %s", res2.Metadata.SessionID)
	}
}

func TestProcessTurnPersistsHistory(t *testing.T) {
	db := openTestStore(t)
	o := builtinOrchestrator(t, db)

	res := o.ProcessTurn(context.Background(), "show me headphones", "sess-1", "user-1", registry.RequestContext{})
	if !res.Success {
		t.Fatalf("turn failed: %s", res.ErrorCode)
	}

	s, err := db.GetSession("sess-1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if s == nil {
		t.Fatal("session must be created on first utterance")
	}

	turns, err := db.RecentTurns("sess-1", 10)
	if err != nil {
		t.Fatalf("RecentTurns: %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("expected 1 persisted turn, got %d", len(turns))
	}
	if turns[0].Utterance != "show me headphones" {
		t.Errorf("unexpected persisted utterance %q", turns[0].Utterance)
	}
	if turns[0].Response != res.ResponseText {
		t.Error("persisted response must match the result")
	}
}

func TestFailureStreakAccumulatesAndResets(t *testing.T) {
	db := openTestStore(t)

	faulty := &stubHandler{id: "faulty", intents: []models.Intent{models.IntentSearch}, priority: models.PriorityHigh,
		exec: func(ctx context.Context, req handler.Request) (handler.Result, error) {
			return handler.Result{}, fmt.Errorf("boom")
		}}
	routing, err := registry.NewRouting([]handler.Handler{
		faulty, okStub("general", models.IntentGeneral),
	}, registry.Config{})
	if err != nil {
		t.Fatalf("NewRouting: %v", err)
	}
	o, err := New(Options{Routing: routing, Store: db})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer o.Close()

	for i := 0; i < 2; i++ {
		o.ProcessTurn(context.Background(), "search stuff", "sess-1", "", registry.RequestContext{})
	}
	s, err := db.GetSession("sess-1")
	if err != nil || s == nil {
		t.Fatalf("GetSession: %v", err)
	}
	if s.FailureStreak != 2 {
		t.Errorf("expected streak 2, got %d", s.FailureStreak)
	}

	// A clean turn resets the streak.
	o.ProcessTurn(context.Background(), "hello", "sess-1", "", registry.RequestContext{})
	s, err = db.GetSession("sess-1")
	if err != nil || s == nil {
		t.Fatalf("GetSession: %v", err)
	}
	if s.FailureStreak != 0 {
		t.Errorf("expected streak reset, got %d", s.FailureStreak)
	}
}

func TestCheckHealth(t *testing.T) {
	o := builtinOrchestrator(t, nil)

	report := o.CheckHealth(context.Background())
	if report.Overall != handler.StatusHealthy {
		t.Errorf("expected healthy overall, got %s", report.Overall)
	}
	if len(report.Handlers) != len(handlers.Builtin(nil)) {
		t.Errorf("expected a probe per handler, got %d", len(report.Handlers))
	}
}

func TestCheckHealthDegraded(t *testing.T) {
	sick := &stubHandler{id: "sick", intents: []models.Intent{models.IntentSearch}, priority: models.PriorityHigh,
		exec: func(ctx context.Context, req handler.Request) (handler.Result, error) {
			return handler.Result{}, fmt.Errorf("probe failed")
		}}
	routing, err := registry.NewRouting([]handler.Handler{
		sick, okStub("general", models.IntentGeneral),
	}, registry.Config{})
	if err != nil {
		t.Fatalf("NewRouting: %v", err)
	}
	o, err := New(Options{Routing: routing})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer o.Close()

	report := o.CheckHealth(context.Background())
	if report.Overall != handler.StatusUnhealthy {
		t.Error("one sick handler must degrade overall status")
	}
	found := false
	for _, hh := range report.Handlers {
		if hh.HandlerID == "sick" && hh.Status == handler.StatusUnhealthy {
			found = true
		}
	}
	if !found {
		t.Error("sick handler must be reported unhealthy")
	}
}

func TestSetRoutingSwapsBetweenTurns(t *testing.T) {
	o := builtinOrchestrator(t, nil)

	replacement := okStub("replacement", models.IntentGeneral)
	newRouting, err := registry.NewRouting([]handler.Handler{replacement}, registry.Config{})
	if err != nil {
		t.Fatalf("NewRouting: %v", err)
	}
	o.SetRouting(newRouting)

	res := o.ProcessTurn(context.Background(), "xyzzy", "", "", registry.RequestContext{})
	if !containsString(res.HandlersUsed, "replacement") {
		t.Errorf("swapped routing must serve the next turn, got %v", res.HandlersUsed)
	}
}

func TestSelectBranchPrecedence(t *testing.T) {
	tests := []struct {
		name    string
		intents []models.Intent
		want    Branch
	}{
		{"escalation wins", []models.Intent{models.IntentSearch, models.IntentEscalation}, BranchEscalation},
		{"order over search", []models.Intent{models.IntentSearch, models.IntentOrderManagement}, BranchOrderCart},
		{"cart over recommendation", []models.Intent{models.IntentRecommendation, models.IntentCartManagement}, BranchOrderCart},
		{"search over recommendation", []models.Intent{models.IntentRecommendation, models.IntentSearch}, BranchSearch},
		{"recommendation alone", []models.Intent{models.IntentRecommendation}, BranchRecommendation},
		{"greeting is synthesis only", []models.Intent{models.IntentGreeting}, BranchSynthesisOnly},
		{"empty is synthesis only", nil, BranchSynthesisOnly},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SelectBranch(tt.intents); got != tt.want {
				t.Errorf("SelectBranch(%v) = %s, want %s", tt.intents, got, tt.want)
			}
		})
	}
}

func containsIntent(list []models.Intent, want models.Intent) bool {
	for _, in := range list {
		if in == want {
			return true
		}
	}
	return false
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
