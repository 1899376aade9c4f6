package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/concierge-labs/concierge/internal/handler"
	"github.com/concierge-labs/concierge/internal/registry"
	"github.com/concierge-labs/concierge/pkg/models"
)

// defaultHandlerTimeout bounds one handler invocation when no timeout is
// configured.
const defaultHandlerTimeout = 5 * time.Second

// Pipeline executes one turn's resolved handler list sequentially against
// the shared turn state. Handlers never run concurrently within a turn, so
// the accumulator needs no locking; fault containment is per handler.
type Pipeline struct {
	routing        *registry.Routing
	history        HistoryProvider
	emitter        *EventEmitter
	handlerTimeout time.Duration
	historyDepth   int
}

// NewPipeline builds a pipeline over an immutable routing snapshot.
func NewPipeline(routing *registry.Routing, history HistoryProvider, emitter *EventEmitter, handlerTimeout time.Duration, historyDepth int) *Pipeline {
	if handlerTimeout <= 0 {
		handlerTimeout = defaultHandlerTimeout
	}
	if historyDepth <= 0 {
		historyDepth = 10
	}
	return &Pipeline{
		routing:        routing,
		history:        history,
		emitter:        emitter,
		handlerTimeout: handlerTimeout,
		historyDepth:   historyDepth,
	}
}

// Run executes the turn. For each scheduled handler it builds the sub-context
// view, invokes under a bounded timeout with fault conversion, checks the
// escalation triggers, and applies the one-shot re-route. When the turn
// context expires the current handler finishes and the rest are skipped.
func (p *Pipeline) Run(ctx context.Context, st *TurnState) {
	queue := append([]registry.Selection{}, st.Selections...)

	for i := 0; i < len(queue); i++ {
		sel := queue[i]

		if ctx.Err() != nil {
			for _, rest := range queue[i:] {
				st.Skipped = append(st.Skipped, rest.HandlerID)
			}
			debugLog("turn %s: deadline reached, skipped %d handlers", st.TurnID, len(queue)-i)
			break
		}

		h := p.routing.Handler(sel.HandlerID)
		if h == nil {
			// A stale route survived a validation gap; contain it like any
			// other handler fault.
			st.RecordResult(handler.Failure(sel.HandlerID, fmt.Errorf("handler %q not registered", sel.HandlerID)))
			p.checkAndEscalate(ctx, st, false)
			continue
		}

		p.emitter.Emit(Event{
			Type:      EventHandlerStarted,
			TurnID:    st.TurnID,
			SessionID: st.SessionID,
			HandlerID: sel.HandlerID,
		})

		res := p.invoke(ctx, h, st.buildRequest(sel))
		st.RecordResult(res)

		if res.Failed {
			debugLog("turn %s: handler %s failed: %s", st.TurnID, res.HandlerID, res.Err)
			p.emitter.Emit(Event{
				Type:      EventHandlerFailed,
				TurnID:    st.TurnID,
				SessionID: st.SessionID,
				HandlerID: res.HandlerID,
				Message:   res.Err,
				Elapsed:   res.Elapsed,
			})
		} else {
			p.emitter.Emit(Event{
				Type:      EventHandlerCompleted,
				TurnID:    st.TurnID,
				SessionID: st.SessionID,
				HandlerID: res.HandlerID,
				Elapsed:   res.Elapsed,
			})
		}

		p.maybeReroute(st, sel, res, &queue)
		p.checkAndEscalate(ctx, st, false)
	}

	// Final check before synthesis, at the lower confidence floor.
	p.checkAndEscalate(ctx, st, true)
	st.CompletedAt = time.Now()
}

// invoke runs one handler under the bounded timeout, converting any error,
// panic, or timeout into a failed result rather than propagating.
func (p *Pipeline) invoke(ctx context.Context, h handler.Handler, req handler.Request) handler.Result {
	cctx, cancel := context.WithTimeout(ctx, p.handlerTimeout)
	defer cancel()

	type outcome struct {
		res handler.Result
		err error
	}
	ch := make(chan outcome, 1)
	start := time.Now()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("handler panic: %v", r)}
			}
		}()
		res, err := h.Execute(cctx, req)
		ch <- outcome{res: res, err: err}
	}()

	var res handler.Result
	select {
	case out := <-ch:
		if out.err != nil {
			res = handler.Failure(h.ID(), out.err)
		} else {
			res = out.res
			res.HandlerID = h.ID()
		}
	case <-cctx.Done():
		// Timeout is treated identically to a fault. The goroutine may still
		// finish in the background; its write lands in the buffered channel
		// and is discarded.
		res = handler.Failure(h.ID(), cctx.Err())
	}
	res.Elapsed = time.Since(start)
	return res
}

// checkAndEscalate evaluates the escalation triggers after a handler (or
// finally before synthesis) and runs the sub-workflow on the first hit.
func (p *Pipeline) checkAndEscalate(ctx context.Context, st *TurnState, final bool) {
	var last *handler.Result
	if n := len(st.Invoked); n > 0 {
		res := st.Results[st.Invoked[n-1]]
		last = &res
	}
	reason, origin := checkTrigger(st, last, final)
	if reason == "" {
		return
	}
	p.runEscalation(ctx, st, reason, origin)
}

// maybeReroute applies the single bounded re-route: a search that produced
// zero results on a recommendation-flavored turn hops once to the
// recommendation branch before synthesis. The one-shot flag guarantees the
// hop never repeats, and handlers already scheduled are not enqueued twice.
func (p *Pipeline) maybeReroute(st *TurnState, sel registry.Selection, res handler.Result, queue *[]registry.Selection) {
	if st.Rerouted || res.Failed {
		return
	}
	if !triggeredBy(sel, models.IntentSearch) {
		return
	}
	if !zeroResults(res) || !recommendationFlavored(st) {
		return
	}

	st.Rerouted = true
	scheduled := make(map[string]bool, len(*queue))
	for _, s := range *queue {
		scheduled[s.HandlerID] = true
	}

	added := 0
	for _, extra := range p.routing.Lookup([]models.Intent{models.IntentRecommendation}) {
		if extra.Fallback || scheduled[extra.HandlerID] {
			continue
		}
		*queue = append(*queue, extra)
		added++
	}
	if added > 0 {
		debugLog("turn %s: rerouted search to recommendation (%d handlers added)", st.TurnID, added)
		p.emitter.Emit(Event{
			Type:      EventReroute,
			TurnID:    st.TurnID,
			SessionID: st.SessionID,
			HandlerID: sel.HandlerID,
			Message:   "search returned zero results",
		})
	}
}

// recommendationFlavored reports whether the turn qualifies for the
// search-to-recommendation hop: a recommendation intent was detected, or the
// utterance carries gift vocabulary that did not survive intent capping.
func recommendationFlavored(st *TurnState) bool {
	for _, in := range st.Intents {
		if in == models.IntentRecommendation {
			return true
		}
	}
	lower := strings.ToLower(st.Utterance)
	for _, w := range []string{"gift", "present", "idea"} {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func triggeredBy(sel registry.Selection, want models.Intent) bool {
	for _, in := range sel.TriggeredBy {
		if in == want {
			return true
		}
	}
	return false
}

// zeroResults reports whether a search-style result carried an explicit
// empty result set.
func zeroResults(res handler.Result) bool {
	v, ok := res.Payload["result_count"]
	if !ok {
		return false
	}
	switch n := v.(type) {
	case int:
		return n == 0
	case float64:
		return n == 0
	default:
		return false
	}
}
