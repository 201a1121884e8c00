package server

import (
	"net/http"

	"golang.org/x/time/rate"

	"github.com/ahmethakanbesel/price-tracker/internal/catalog"
	"github.com/ahmethakanbesel/price-tracker/internal/item"
	"github.com/ahmethakanbesel/price-tracker/internal/job"
	"github.com/ahmethakanbesel/price-tracker/internal/report"
)

type Services struct {
	Catalog *catalog.Service
	Items   *item.Service
	Reports *report.Service
	Jobs    *job.Service
}

// Options guard the mutating routes. An empty APIKey disables the key check
// and a non-positive WriteRPS disables rate limiting.
type Options struct {
	APIKey     string
	WriteRPS   float64
	WriteBurst int
}

// NewHandler creates the full HTTP handler with routes and middleware.
// Exported for use in tests (e.g., httptest.NewServer).
func NewHandler(svcs Services, opts Options) http.Handler {
	return newMux(svcs, opts)
}

func newMux(svcs Services, opts Options) http.Handler {
	h := &handler{
		catalogSvc: svcs.Catalog,
		itemSvc:    svcs.Items,
		reportSvc:  svcs.Reports,
		jobSvc:     svcs.Jobs,
	}

	var limiter *rate.Limiter
	if opts.WriteRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.WriteRPS), max(opts.WriteBurst, 1))
	}
	write := guard(opts.APIKey, limiter)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.health)

	mux.HandleFunc("GET /api/v1/categories", h.listCategories)
	mux.HandleFunc("GET /api/v1/categories/{id}", h.getCategory)
	mux.Handle("POST /api/v1/categories", write(h.createCategory))
	mux.Handle("POST /api/v1/categories/import", write(h.importCategories))
	mux.Handle("PATCH /api/v1/categories/{id}", write(h.renameCategory))
	mux.Handle("DELETE /api/v1/categories/{id}", write(h.deleteCategory))

	mux.HandleFunc("GET /api/v1/products", h.listProducts)
	mux.HandleFunc("GET /api/v1/products/{id}", h.getProduct)
	mux.Handle("POST /api/v1/products", write(h.createProduct))
	mux.Handle("POST /api/v1/products/import", write(h.importProducts))

	mux.HandleFunc("GET /api/v1/marketplaces", h.listMarketplaces)
	mux.HandleFunc("GET /api/v1/marketplaces/{id}", h.getMarketplace)
	mux.Handle("POST /api/v1/marketplaces", write(h.createMarketplace))
	mux.Handle("POST /api/v1/marketplaces/import", write(h.importMarketplaces))

	mux.HandleFunc("GET /api/v1/items", h.listItems)
	mux.HandleFunc("GET /api/v1/items/{id}", h.getItem)
	mux.HandleFunc("GET /api/v1/items/price-dynamic", h.priceDynamic)
	mux.HandleFunc("GET /api/v1/items/price-comparison", h.priceComparison)
	mux.Handle("POST /api/v1/items", write(h.createItem))
	mux.Handle("POST /api/v1/items/import", write(h.importItems))
	mux.Handle("DELETE /api/v1/items/{id}", write(h.deleteItem))

	mux.HandleFunc("GET /api/v1/jobs", h.listJobs)
	mux.HandleFunc("GET /api/v1/jobs/{id}", h.getJob)

	// Apply middleware stack: recovery -> requestID -> logging
	var handler http.Handler = mux
	handler = logging(handler)
	handler = requestID(handler)
	handler = recovery(handler)

	return handler
}
