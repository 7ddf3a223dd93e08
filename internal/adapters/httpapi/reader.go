package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Guilhem-Bonnet/hidaya/internal/app"
	"github.com/Guilhem-Bonnet/hidaya/internal/httpjson"
)

type ReaderHandler struct {
	reader *app.Reader
}

func NewReaderHandler(reader *app.Reader) *ReaderHandler {
	return &ReaderHandler{reader: reader}
}

func (h *ReaderHandler) Routes(r chi.Router) {
	r.Get("/chapters", h.chapters)
	r.Route("/reader", func(r chi.Router) {
		r.Get("/", h.view)
		r.Post("/open", h.open)
		r.Post("/close", h.close)
		r.Get("/verses/{index}/share", h.share)
		r.Get("/verses/{index}/share.png", h.shareQR)
	})
}

func (h *ReaderHandler) chapters(w http.ResponseWriter, r *http.Request) {
	list, err := h.reader.Chapters(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, list)
}

func (h *ReaderHandler) view(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, h.reader.View())
}

type openRequest struct {
	Chapter int `json:"chapter"`
}

func (h *ReaderHandler) open(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.WriteCodedError(w, http.StatusBadRequest, app.CodeInvalidParams, "invalid json")
		return
	}
	view, err := h.reader.Open(r.Context(), req.Chapter)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, view)
}

func (h *ReaderHandler) close(w http.ResponseWriter, r *http.Request) {
	h.reader.Close()
	httpjson.Write(w, http.StatusOK, h.reader.View())
}

func (h *ReaderHandler) share(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	chapter, verse, err := h.reader.Verse(index)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	out, err := app.BuildShare(r.URL.Query().Get("target"), chapter, verse)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, out)
}

func (h *ReaderHandler) shareQR(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	chapter, verse, err := h.reader.Verse(index)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	png, err := app.ShareQR(chapter, verse)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func indexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httpjson.WriteCodedError(w, http.StatusBadRequest, app.CodeInvalidIndex, "index must be an integer")
		return 0, false
	}
	return index, true
}
