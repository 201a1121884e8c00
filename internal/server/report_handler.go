package server

import (
	"net/http"

	"github.com/ahmethakanbesel/price-tracker/internal/report"
)

func (h *handler) priceDynamic(w http.ResponseWriter, r *http.Request) {
	productID, ok := queryID(w, r, "productId", true)
	if !ok {
		return
	}
	marketplaceID, ok := queryID(w, r, "marketplaceId", false)
	if !ok {
		return
	}
	win, ok := queryWindow(w, r)
	if !ok {
		return
	}

	format := r.URL.Query().Get("format")
	if format != "" && format != "json" && format != "csv" {
		writeError(w, http.StatusBadRequest, "format must be json or csv")
		return
	}

	reports, err := h.reportSvc.Dynamic(r.Context(), report.DynamicRequest{
		ProductID:     productID,
		MarketplaceID: marketplaceID,
		Window:        win,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if format == "csv" {
		writeCSV(w, reports)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (h *handler) priceComparison(w http.ResponseWriter, r *http.Request) {
	productID, ok := queryID(w, r, "productId", false)
	if !ok {
		return
	}
	win, ok := queryWindow(w, r)
	if !ok {
		return
	}

	reports, err := h.reportSvc.Compare(r.Context(), report.CompareRequest{
		ProductID: productID,
		Window:    win,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}
