package server

import (
	"net/http"

	"github.com/ahmethakanbesel/price-tracker/internal/catalog"
)

func (h *handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalogSvc.ListCategories(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *handler) getCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "category")
	if !ok {
		return
	}
	c, err := h.catalogSvc.GetCategory(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req catalog.CreateCategoryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c, err := h.catalogSvc.CreateCategory(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *handler) importCategories(w http.ResponseWriter, r *http.Request) {
	var reqs []catalog.CreateCategoryRequest
	if !decodeBody(w, r, &reqs) {
		return
	}
	categories, err := h.catalogSvc.ImportCategories(r.Context(), reqs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, categories)
}

func (h *handler) renameCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "category")
	if !ok {
		return
	}
	var req catalog.RenameCategoryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.ID = id
	c, err := h.catalogSvc.RenameCategory(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "category")
	if !ok {
		return
	}
	if err := h.catalogSvc.DeleteCategory(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalogSvc.ListProducts(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "product")
	if !ok {
		return
	}
	p, err := h.catalogSvc.GetProduct(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req catalog.CreateProductRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := h.catalogSvc.CreateProduct(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *handler) importProducts(w http.ResponseWriter, r *http.Request) {
	var reqs []catalog.CreateProductRequest
	if !decodeBody(w, r, &reqs) {
		return
	}
	products, err := h.catalogSvc.ImportProducts(r.Context(), reqs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, products)
}

func (h *handler) listMarketplaces(w http.ResponseWriter, r *http.Request) {
	marketplaces, err := h.catalogSvc.ListMarketplaces(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, marketplaces)
}

func (h *handler) getMarketplace(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "marketplace")
	if !ok {
		return
	}
	m, err := h.catalogSvc.GetMarketplace(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *handler) createMarketplace(w http.ResponseWriter, r *http.Request) {
	var req catalog.CreateMarketplaceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	m, err := h.catalogSvc.CreateMarketplace(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *handler) importMarketplaces(w http.ResponseWriter, r *http.Request) {
	var reqs []catalog.CreateMarketplaceRequest
	if !decodeBody(w, r, &reqs) {
		return
	}
	marketplaces, err := h.catalogSvc.ImportMarketplaces(r.Context(), reqs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, marketplaces)
}
