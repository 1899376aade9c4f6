package handlers

import (
	"context"
	"testing"

	"github.com/concierge-labs/concierge/internal/handler"
	"github.com/concierge-labs/concierge/pkg/models"
)

func testRequest(utterance, userID string) handler.Request {
	return handler.Request{
		TurnID:    "turn-1",
		SessionID: "sess-1",
		UserID:    userID,
		Utterance: utterance,
	}
}

func TestBuiltinRegistrationOrder(t *testing.T) {
	suite := Builtin(nil)

	want := []string{
		"product-search",
		"customer-profile",
		"recommendation",
		"order-management",
		"cart-management",
		"escalation",
		"general-assistant",
	}
	if len(suite) != len(want) {
		t.Fatalf("expected %d handlers, got %d", len(want), len(suite))
	}
	for i, h := range suite {
		if h.ID() != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], h.ID())
		}
	}
}

func TestBuiltinHealthProbes(t *testing.T) {
	for _, h := range Builtin(nil) {
		req := handler.Request{Utterance: handler.HealthCheckUtterance, HealthCheck: true}
		res, err := h.Execute(context.Background(), req)
		if err != nil {
			t.Errorf("%s: health probe failed: %v", h.ID(), err)
		}
		if res.Failed {
			t.Errorf("%s: health probe marked failed", h.ID())
		}
	}
}

func TestSearchHandlerFindsProducts(t *testing.T) {
	h := NewSearchHandler(DefaultCatalog())

	res, err := h.Execute(context.Background(), testRequest("search for headphones", "user-1"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Text == "" {
		t.Error("expected response text for a matching search")
	}
	if got := res.Payload["result_count"].(int); got != 2 {
		t.Errorf("expected 2 headphone matches, got %d", got)
	}
}

func TestSearchHandlerZeroResults(t *testing.T) {
	h := NewSearchHandler(DefaultCatalog())

	res, err := h.Execute(context.Background(), testRequest("find me a unicorn saddle", "user-1"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Text != "" {
		t.Errorf("expected no text for zero results, got %q", res.Text)
	}
	if got := res.Payload["result_count"].(int); got != 0 {
		t.Errorf("expected zero results, got %d", got)
	}
}

func TestSearchHandlerCancelledContext(t *testing.T) {
	h := NewSearchHandler(DefaultCatalog())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := h.Execute(ctx, testRequest("headphones", "user-1")); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestRecommendationPrefersProfileSegment(t *testing.T) {
	h := NewRecommendationHandler(DefaultCatalog())

	req := testRequest("recommend something", "user-1")
	req.PriorResults = map[string]handler.Result{
		"customer-profile": {
			HandlerID: "customer-profile",
			Payload:   map[string]any{"segment": "frequent_buyer"},
		},
	}
	res, err := h.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	recs := res.Payload["recommendations"].([]string)
	if len(recs) != 3 {
		t.Fatalf("expected 3 recommendations, got %d", len(recs))
	}
	// Frequent buyers of audio gear get audio picks first.
	if recs[0] != "wireless headphones" {
		t.Errorf("expected audio pick first, got %q", recs[0])
	}
}

func TestRecommendationWithoutProfile(t *testing.T) {
	h := NewRecommendationHandler(DefaultCatalog())

	res, err := h.Execute(context.Background(), testRequest("gift ideas", "nobody"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Text == "" {
		t.Error("expected recommendations without a profile")
	}
}

func TestOrderHandlerStatus(t *testing.T) {
	h := NewOrderHandler(DefaultCatalog())

	res, err := h.Execute(context.Background(), testRequest("where is my order", "user-1"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Payload["action"] != "status" {
		t.Errorf("expected status action, got %v", res.Payload["action"])
	}
	if res.Payload["latest_order"] != "ORD-1002" {
		t.Errorf("expected newest order first, got %v", res.Payload["latest_order"])
	}
}

func TestOrderHandlerReturn(t *testing.T) {
	h := NewOrderHandler(DefaultCatalog())

	res, err := h.Execute(context.Background(), testRequest("I want to return a product", "user-1"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Payload["action"] != "return_initiated" {
		t.Errorf("expected return action, got %v", res.Payload["action"])
	}
}

func TestOrderHandlerCancelRules(t *testing.T) {
	h := NewOrderHandler(DefaultCatalog())

	// user-1's latest order is still processing, so cancel succeeds.
	res, err := h.Execute(context.Background(), testRequest("cancel my order", "user-1"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Payload["action"] != "cancelled" {
		t.Errorf("expected cancel to succeed, got %v", res.Payload["action"])
	}

	// user-2's latest order was delivered, so cancel is rejected.
	res, err = h.Execute(context.Background(), testRequest("cancel my order", "user-2"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Payload["action"] != "cancel_rejected" {
		t.Errorf("expected cancel rejection, got %v", res.Payload["action"])
	}
}

func TestOrderHandlerNoOrders(t *testing.T) {
	h := NewOrderHandler(DefaultCatalog())

	res, err := h.Execute(context.Background(), testRequest("track my order", "stranger"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Payload["order_count"].(int) != 0 {
		t.Error("expected zero orders for unknown user")
	}
	if res.Failed {
		t.Error("no orders is not a failure")
	}
}

func TestCartHandlerAdd(t *testing.T) {
	h := NewCartHandler(DefaultCatalog())

	res, err := h.Execute(context.Background(), testRequest("add the desk lamp to my cart", "user-1"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Payload["action"] != "added" {
		t.Errorf("expected added, got %v", res.Payload["action"])
	}
	if res.Payload["sku"] != "LMP-070" {
		t.Errorf("expected desk lamp SKU, got %v", res.Payload["sku"])
	}
}

func TestCartHandlerAddUnknownProduct(t *testing.T) {
	h := NewCartHandler(DefaultCatalog())

	res, err := h.Execute(context.Background(), testRequest("add a spaceship to my cart", "user-1"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Payload["action"] != "add_rejected" {
		t.Errorf("expected add_rejected, got %v", res.Payload["action"])
	}
}

func TestProfileHandlerKnownUser(t *testing.T) {
	h := NewProfileHandler(DefaultCatalog())

	res, err := h.Execute(context.Background(), testRequest("show me headphones", "user-1"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Payload["segment"] != "frequent_buyer" {
		t.Errorf("unexpected segment %v", res.Payload["segment"])
	}
	if res.Payload["loyalty_tier"] != "gold" {
		t.Errorf("unexpected tier %v", res.Payload["loyalty_tier"])
	}
	if res.Text != "" {
		t.Error("profile handler must not produce response text")
	}
}

func TestProfileHandlerUnknownUser(t *testing.T) {
	h := NewProfileHandler(DefaultCatalog())

	res, err := h.Execute(context.Background(), testRequest("show me headphones", "stranger"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Payload["profile_found"] != false {
		t.Error("expected profile_found=false for unknown user")
	}
	if res.Failed {
		t.Error("missing profile is not a failure")
	}
}

func TestGeneralHandlerGreeting(t *testing.T) {
	h := NewGeneralHandler()

	req := testRequest("hello there", "user-1")
	req.TriggeredBy = []models.Intent{models.IntentGreeting}
	res, err := h.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Text == "" {
		t.Error("expected greeting text")
	}
}

func TestEscalationHandlerSignals(t *testing.T) {
	h := NewEscalationHandler()

	res, err := h.Execute(context.Background(), testRequest("speak to a human", "user-1"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.NeedsEscalation {
		t.Error("escalation handler must signal escalation")
	}
	if res.Text == "" {
		t.Error("expected a transition message")
	}
}

func TestNewLLMHandlerRequiresKey(t *testing.T) {
	if _, err := NewLLMHandler(LLMConfig{}); err == nil {
		t.Error("expected error without API key")
	}
}
