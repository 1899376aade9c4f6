// Package handlers provides the built-in capability handlers behind the
// uniform handler contract. They run against a deterministic in-memory
// catalog so the orchestration core is executable and testable without any
// external store.
package handlers

import "strings"

// Product is one catalog entry.
type Product struct {
	SKU      string
	Name     string
	Category string
	Price    float64
	InStock  bool
}

// Order is a past order visible to the order-management handler.
type Order struct {
	ID      string
	UserID  string
	Status  string
	Items   []string
	Total   float64
	Carrier string
}

// Profile is a known customer profile.
type Profile struct {
	UserID      string
	Segment     string
	LoyaltyTier string
}

// Catalog is the shared read-only data the built-in handlers serve from.
type Catalog struct {
	Products []Product
	Orders   []Order
	Profiles map[string]Profile
}

// DefaultCatalog returns the built-in demo data set. The contents are fixed
// so handler output is reproducible across runs.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Products: []Product{
			{SKU: "HDP-100", Name: "wireless headphones", Category: "audio", Price: 129.99, InStock: true},
			{SKU: "HDP-200", Name: "noise cancelling headphones", Category: "audio", Price: 249.99, InStock: true},
			{SKU: "SPK-050", Name: "portable speaker", Category: "audio", Price: 59.99, InStock: true},
			{SKU: "WTC-310", Name: "fitness watch", Category: "wearables", Price: 199.00, InStock: true},
			{SKU: "WTC-320", Name: "smart watch strap", Category: "wearables", Price: 24.50, InStock: false},
			{SKU: "LMP-070", Name: "desk lamp", Category: "home", Price: 39.99, InStock: true},
			{SKU: "MUG-015", Name: "travel mug", Category: "home", Price: 18.75, InStock: true},
		},
		Orders: []Order{
			{ID: "ORD-1001", UserID: "user-1", Status: "shipped", Items: []string{"HDP-100"}, Total: 129.99, Carrier: "UPS"},
			{ID: "ORD-1002", UserID: "user-1", Status: "processing", Items: []string{"LMP-070", "MUG-015"}, Total: 58.74},
			{ID: "ORD-2001", UserID: "user-2", Status: "delivered", Items: []string{"WTC-310"}, Total: 199.00, Carrier: "FedEx"},
		},
		Profiles: map[string]Profile{
			"user-1": {UserID: "user-1", Segment: "frequent_buyer", LoyaltyTier: "gold"},
			"user-2": {UserID: "user-2", Segment: "new_customer", LoyaltyTier: "bronze"},
		},
	}
}

// FindProducts returns products whose name or category contains any term of
// the query, in catalog order.
func (c *Catalog) FindProducts(query string) []Product {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil
	}
	var out []Product
	for _, p := range c.Products {
		for _, term := range terms {
			if strings.Contains(p.Name, term) || strings.Contains(p.Category, term) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// OrdersFor returns the orders belonging to a user, newest ID first.
func (c *Catalog) OrdersFor(userID string) []Order {
	var out []Order
	for i := len(c.Orders) - 1; i >= 0; i-- {
		if c.Orders[i].UserID == userID {
			out = append(out, c.Orders[i])
		}
	}
	return out
}

// ProfileFor returns the profile for a user, or false when unknown.
func (c *Catalog) ProfileFor(userID string) (Profile, bool) {
	p, ok := c.Profiles[userID]
	return p, ok
}
