package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Guilhem-Bonnet/hidaya/internal/app"
	"github.com/Guilhem-Bonnet/hidaya/internal/httpjson"
)

type SearchHandler struct {
	search *app.SearchService
}

func NewSearchHandler(search *app.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

func (h *SearchHandler) Routes(r chi.Router) {
	r.Get("/search", h.query)
	r.Post("/search/typeahead", h.typeahead)
}

func (h *SearchHandler) query(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, h.search.Search(r.Context(), r.URL.Query().Get("q")))
}

type typeaheadRequest struct {
	Query string `json:"query"`
}

// typeahead répond tout de suite; les résultats arrivent sur "search.results" (SSE / MQTT).
func (h *SearchHandler) typeahead(w http.ResponseWriter, r *http.Request) {
	var req typeaheadRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.WriteCodedError(w, http.StatusBadRequest, app.CodeInvalidParams, "invalid json")
		return
	}
	h.search.Typeahead(req.Query)
	httpjson.Write(w, http.StatusAccepted, map[string]string{"status": "scheduled", "query": req.Query})
}
