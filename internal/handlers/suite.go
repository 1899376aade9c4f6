package handlers

import "github.com/concierge-labs/concierge/internal/handler"

// Builtin returns the built-in handler suite over the given catalog, in
// registration order. Registration order is the priority tie-break, so the
// order here is part of the observable contract.
func Builtin(catalog *Catalog) []handler.Handler {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return []handler.Handler{
		NewSearchHandler(catalog),
		NewProfileHandler(catalog),
		NewRecommendationHandler(catalog),
		NewOrderHandler(catalog),
		NewCartHandler(catalog),
		NewEscalationHandler(),
		NewGeneralHandler(),
	}
}
