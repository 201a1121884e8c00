package server

import (
	"net/http"

	"github.com/ahmethakanbesel/price-tracker/internal/item"
)

func (h *handler) listItems(w http.ResponseWriter, r *http.Request) {
	productID, ok := queryID(w, r, "productId", false)
	if !ok {
		return
	}
	marketplaceID, ok := queryID(w, r, "marketplaceId", false)
	if !ok {
		return
	}

	items, err := h.itemSvc.List(r.Context(), item.ListItemsRequest{ProductID: productID, MarketplaceID: marketplaceID})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "item")
	if !ok {
		return
	}
	it, err := h.itemSvc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (h *handler) createItem(w http.ResponseWriter, r *http.Request) {
	var req item.CreateItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	it, err := h.itemSvc.Insert(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

// importItems stores a batch. With async=true the batch is queued as a job
// and the job is returned with 202.
func (h *handler) importItems(w http.ResponseWriter, r *http.Request) {
	var reqs []item.CreateItemRequest
	if !decodeBody(w, r, &reqs) {
		return
	}

	if r.URL.Query().Get("async") == "true" {
		j, err := h.itemSvc.QueueImport(r.Context(), reqs)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, j)
		return
	}

	writeJSON(w, http.StatusOK, h.itemSvc.BulkInsert(r.Context(), reqs))
}

func (h *handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "item")
	if !ok {
		return
	}
	if err := h.itemSvc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
