package api

import (
	"net/http"

	"cafe-pos-service/internal/domain"
	"cafe-pos-service/internal/pos"
)

// --- Catalog Handlers ---

// ListCatalogProducts serves the counter grid: products of one category
// matching the search box. Without a category parameter the configured
// default category is shown.
func (h *HTTPHandler) ListCatalogProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category := h.defaultCategory
	if _, ok := q["category"]; ok {
		category = q.Get("category")
	}
	products := pos.Filter(h.catalog.Products(), category, q.Get("q"))
	respondWithJSON(w, http.StatusOK, struct {
		Category string           `json:"category"`
		Data     []domain.Product `json:"data"`
	}{Category: category, Data: products})
}

func (h *HTTPHandler) ListCatalogCategories(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, struct {
		Data []domain.Category `json:"data"`
	}{Data: h.catalog.Categories()})
}
