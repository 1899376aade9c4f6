package orchestrator

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/concierge-labs/concierge/internal/intent"
	"github.com/concierge-labs/concierge/internal/registry"
	"github.com/concierge-labs/concierge/internal/state"
	"github.com/concierge-labs/concierge/pkg/models"
)

// defaultTurnTimeout bounds a whole turn when no timeout is configured.
const defaultTurnTimeout = 30 * time.Second

// Options configures an Orchestrator.
type Options struct {
	// Routing is the immutable routing snapshot. Required.
	Routing *registry.Routing
	// Store persists sessions and turn history. Optional; a nil store makes
	// the orchestrator stateless (no history, no failure streak).
	Store state.Store
	// Logger receives debug output. Nil selects a no-op logger.
	Logger *DebugLogger
	// HandlerTimeout bounds one handler invocation. Zero selects the default.
	HandlerTimeout time.Duration
	// TurnTimeout bounds a whole turn. Zero selects the default.
	TurnTimeout time.Duration
	// HistoryDepth is how many prior turns an escalation package carries.
	HistoryDepth int
	// Suggestions overrides the per-handler suggestion templates.
	Suggestions map[string][]models.Suggestion
	// EventBuffer sizes the event channel. Zero selects 64.
	EventBuffer int
}

// Orchestrator is the conversational turn processor. One instance serves
// many concurrent turns; each turn runs its own private pipeline over its
// own TurnState, and the routing snapshot is swapped atomically on reload.
type Orchestrator struct {
	routing    atomic.Pointer[registry.Routing]
	classifier *intent.Classifier
	store      state.Store
	logger     *DebugLogger
	emitter    *EventEmitter
	synth      *Synthesizer

	handlerTimeout time.Duration
	turnTimeout    time.Duration
	historyDepth   int
}

// New creates an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Routing == nil {
		return nil, fmt.Errorf("orchestrator requires a routing snapshot")
	}

	logger := opts.Logger
	if logger == nil {
		logger = NopLogger()
	}
	setPackageLogger(logger)

	handlerTimeout := opts.HandlerTimeout
	if handlerTimeout <= 0 {
		handlerTimeout = defaultHandlerTimeout
	}
	turnTimeout := opts.TurnTimeout
	if turnTimeout <= 0 {
		turnTimeout = defaultTurnTimeout
	}
	historyDepth := opts.HistoryDepth
	if historyDepth <= 0 {
		historyDepth = 10
	}
	buffer := opts.EventBuffer
	if buffer <= 0 {
		buffer = 64
	}

	o := &Orchestrator{
		classifier:     intent.NewClassifier(),
		store:          opts.Store,
		logger:         logger,
		emitter:        NewEventEmitter(buffer),
		synth:          NewSynthesizer(opts.Suggestions),
		handlerTimeout: handlerTimeout,
		turnTimeout:    turnTimeout,
		historyDepth:   historyDepth,
	}
	o.routing.Store(opts.Routing)
	return o, nil
}

// Events returns the pipeline event stream.
func (o *Orchestrator) Events() <-chan Event {
	return o.emitter.Events()
}

// SetRouting swaps in a new routing snapshot. In-flight turns keep the
// snapshot they started with; the swap takes effect between turns.
func (o *Orchestrator) SetRouting(r *registry.Routing) {
	if r != nil {
		o.routing.Store(r)
		o.logger.Log("routing snapshot replaced (%d handlers)", len(r.Handlers()))
	}
}

// Routing returns the current routing snapshot.
func (o *Orchestrator) Routing() *registry.Routing {
	return o.routing.Load()
}

// Close releases the orchestrator's resources.
func (o *Orchestrator) Close() error {
	o.emitter.Close()
	return o.logger.Close()
}

// ProcessTurn runs one utterance through the pipeline and returns the
// synthesized result. It never raises to the caller: panics and turn-level
// faults become a result with Success=false and an internal error code. An
// empty sessionID starts a new session; the assigned ID is in the result
// metadata.
func (o *Orchestrator) ProcessTurn(ctx context.Context, utterance, sessionID, userID string, rc registry.RequestContext) (result models.TurnResult) {
	turnID := ulid.Make().String()
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	defer func() {
		if r := recover(); r != nil {
			o.logger.Log("turn %s: pipeline panic: %v", turnID, r)
			result = o.turnFailure(turnID, sessionID, ErrCodeScheduler)
		}
	}()

	routing := o.routing.Load()
	if routing == nil {
		return o.turnFailure(turnID, sessionID, ErrCodeConfig)
	}

	ctx, cancel := context.WithTimeout(ctx, o.turnTimeout)
	defer cancel()

	st := NewTurnState(turnID, sessionID, userID, utterance)
	st.FailureStreak = o.loadSession(sessionID, userID)

	cls := o.classifier.Classify(utterance)
	st.SetClassification(cls.Intents, cls.Confidence, cls.Fallback)

	selections := routing.Lookup(st.Intents)
	st.Selections = routing.Resolve(selections, rc)

	branch := SelectBranch(st.Intents)
	o.logger.Log("turn %s: session=%s branch=%s intents=%v handlers=%d",
		turnID, sessionID, branch, st.Intents, len(st.Selections))
	o.emitter.Emit(Event{
		Type:      EventTurnStarted,
		TurnID:    turnID,
		SessionID: sessionID,
		Message:   string(branch),
	})

	var history HistoryProvider
	if o.store != nil {
		history = o.store
	}
	pipeline := NewPipeline(routing, history, o.emitter, o.handlerTimeout, o.historyDepth)
	pipeline.Run(ctx, st)

	result = o.synth.Synthesize(st)

	o.persistTurn(st, &result)

	o.emitter.Emit(Event{
		Type:      EventTurnCompleted,
		TurnID:    turnID,
		SessionID: sessionID,
		Message:   result.Summary.Complexity,
		Elapsed:   st.CompletedAt.Sub(st.StartedAt),
	})
	return result
}

// turnFailure builds the minimal safe result for a turn-level fault. The
// user sees a generic message; the code identifies the fault internally.
func (o *Orchestrator) turnFailure(turnID, sessionID, code string) models.TurnResult {
	return models.TurnResult{
		Success:      false,
		ResponseText: contactSupportResponse,
		ErrorCode:    code,
		Summary:      models.WorkflowSummary{Complexity: "simple"},
		Metadata: models.TurnMetadata{
			Timestamp:          time.Now(),
			SessionID:          sessionID,
			TurnID:             turnID,
			WorkflowComplexity: "simple",
		},
	}
}

// loadSession reads or creates the session row and returns its failure
// streak. Store errors degrade to a stateless turn.
func (o *Orchestrator) loadSession(sessionID, userID string) int {
	if o.store == nil {
		return 0
	}

	s, err := o.store.GetSession(sessionID)
	if err != nil {
		o.logger.Log("session %s: load failed: %v", sessionID, err)
		return 0
	}
	if s == nil {
		now := time.Now()
		s = &state.Session{ID: sessionID, UserID: userID, CreatedAt: now, LastActiveAt: now}
		if err := o.store.CreateSession(s); err != nil {
			o.logger.Log("session %s: create failed: %v", sessionID, err)
		}
		return 0
	}
	return s.FailureStreak
}

// persistTurn appends the turn record and updates the session row. Failed
// handlers extend the failure streak; a clean turn resets it. Last write
// wins on the session row.
func (o *Orchestrator) persistTurn(st *TurnState, result *models.TurnResult) {
	if o.store == nil {
		return
	}

	record := &state.TurnRecord{
		ID:        st.TurnID,
		SessionID: st.SessionID,
		Utterance: st.Utterance,
		Response:  result.ResponseText,
		Intents:   result.IntentsIdentified,
		Handlers:  result.HandlersUsed,
		Escalated: result.Escalate,
		Success:   result.Success,
		CreatedAt: st.CompletedAt,
	}
	if err := o.store.AppendTurn(record); err != nil {
		o.logger.Log("turn %s: persist failed: %v", st.TurnID, err)
	}

	s, err := o.store.GetSession(st.SessionID)
	if err != nil || s == nil {
		return
	}
	s.LastActiveAt = st.CompletedAt
	if st.AnyFailed() || !result.Success {
		s.FailureStreak++
	} else {
		s.FailureStreak = 0
	}
	if err := o.store.UpdateSession(s); err != nil {
		o.logger.Log("session %s: update failed: %v", st.SessionID, err)
	}
}
